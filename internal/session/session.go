// Package session persists and restores questionnaire progress on top of
// the key/value store. Storage failures are contained here: they are
// logged and degrade to "no existing session" or "save skipped", never
// propagated as fatal.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/marketpulse/diagnostic/internal/model"
	"github.com/marketpulse/diagnostic/internal/store"
)

// Repository is the key/value surface the session store needs. The sqlite
// store satisfies it; tests may substitute their own.
type Repository interface {
	Get(clientID, key string) (string, error)
	Set(clientID, key, value string) error
	SetAll(clientID string, values map[string]string) error
	Delete(clientID string, keys ...string) error
}

type Store struct {
	repo Repository
}

func New(repo Repository) *Store {
	return &Store{repo: repo}
}

// Create starts a fresh session: generates a new session identifier,
// stores it, and clears any prior answers, position and identity.
// The identifier only needs to be collision-resistant, not secret.
func (s *Store) Create(clientID string) model.Snapshot {
	snap := model.Snapshot{
		SessionID: NewID(),
		Position:  0,
		Screen:    model.ScreenLanding,
	}
	if err := s.repo.Delete(clientID, store.KeyAnswers, store.KeyIdentity); err != nil {
		slog.Warn("session create: clear prior state failed", "error", err)
	}
	err := s.repo.SetAll(clientID, map[string]string{
		store.KeySessionID: snap.SessionID,
		store.KeyPosition:  "0",
		store.KeyScreen:    strconv.Itoa(int(snap.Screen)),
	})
	if err != nil {
		slog.Warn("session create: save failed", "error", err)
	}
	return snap
}

// Restore reconstructs a stored session. A session counts as existing only
// when both a session identifier and a non-empty answer set are stored;
// otherwise (including any read or parse failure) it falls back to Create
// and reports found=false.
func (s *Store) Restore(clientID string) (model.Snapshot, bool) {
	sessionID, err := s.repo.Get(clientID, store.KeySessionID)
	if err != nil {
		if err != store.ErrNotFound {
			slog.Warn("session restore: read session id failed", "error", err)
		}
		return s.Create(clientID), false
	}

	raw, err := s.repo.Get(clientID, store.KeyAnswers)
	if err != nil {
		if err != store.ErrNotFound {
			slog.Warn("session restore: read answers failed", "error", err)
		}
		return s.Create(clientID), false
	}
	var answers []model.Answer
	if err := json.Unmarshal([]byte(raw), &answers); err != nil {
		slog.Warn("session restore: unparsable answers, starting over", "error", err)
		return s.Create(clientID), false
	}
	if len(answers) == 0 {
		return s.Create(clientID), false
	}

	snap := model.Snapshot{
		SessionID: sessionID,
		Answers:   answers,
		Position:  s.restoreInt(clientID, store.KeyPosition, 0),
		Screen:    model.Screen(s.restoreInt(clientID, store.KeyScreen, int(model.ScreenLanding))),
	}

	// Unparsable identity is non-fatal: leave it empty and carry on.
	if rawID, err := s.repo.Get(clientID, store.KeyIdentity); err == nil {
		if err := json.Unmarshal([]byte(rawID), &snap.Identity); err != nil {
			slog.Warn("session restore: unparsable identity, leaving empty", "error", err)
			snap.Identity = model.Identity{}
		}
	}

	return snap, true
}

func (s *Store) restoreInt(clientID, key string, fallback int) int {
	raw, err := s.repo.Get(clientID, key)
	if err != nil {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		slog.Warn("session restore: unparsable value", "key", key, "value", raw)
		return fallback
	}
	return n
}

// Persist writes the full snapshot. The error is logged and also returned
// so callers that want to verify the write can, but it is safe to ignore:
// a storage failure must never break the flow.
func (s *Store) Persist(clientID string, snap model.Snapshot) error {
	answers, err := json.Marshal(snap.Answers)
	if err != nil {
		slog.Error("session persist: marshal answers", "error", err)
		return fmt.Errorf("marshal answers: %w", err)
	}
	identity, err := json.Marshal(snap.Identity)
	if err != nil {
		slog.Error("session persist: marshal identity", "error", err)
		return fmt.Errorf("marshal identity: %w", err)
	}
	err = s.repo.SetAll(clientID, map[string]string{
		store.KeySessionID: snap.SessionID,
		store.KeyAnswers:   string(answers),
		store.KeyPosition:  strconv.Itoa(snap.Position),
		store.KeyScreen:    strconv.Itoa(int(snap.Screen)),
		store.KeyIdentity:  string(identity),
	})
	if err != nil {
		slog.Warn("session persist: save skipped", "error", err)
	}
	return err
}

// ReadAnswer reads back the stored answer for a question, for post-write
// verification.
func (s *Store) ReadAnswer(clientID, questionID string) (model.Answer, bool) {
	raw, err := s.repo.Get(clientID, store.KeyAnswers)
	if err != nil {
		return model.Answer{}, false
	}
	var answers []model.Answer
	if err := json.Unmarshal([]byte(raw), &answers); err != nil {
		return model.Answer{}, false
	}
	for _, a := range answers {
		if a.QuestionID == questionID {
			return a, true
		}
	}
	return model.Answer{}, false
}

// Clear removes all five logical keys; called on successful completion and
// on explicit reset.
func (s *Store) Clear(clientID string) {
	if err := s.repo.Delete(clientID, store.SessionKeys...); err != nil {
		slog.Warn("session clear failed", "error", err)
	}
}

// NewID builds a timestamp-plus-random session identifier. The hyphen is
// load-bearing: share links reuse this shape and are validated on it.
func NewID() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		// Extremely unlikely; fall back to the clock alone.
		return fmt.Sprintf("%d-%d", time.Now().UnixMilli(), time.Now().UnixNano()%1000)
	}
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), hex.EncodeToString(b))
}
