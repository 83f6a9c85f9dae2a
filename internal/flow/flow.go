// Package flow is the questionnaire state machine. It owns all screen
// transitions; the session store owns durable state; the scoring engine is
// called exactly once, at completion. Every event validates the current
// screen, so illegal transitions are rejected in one place.
package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/marketpulse/diagnostic/internal/catalog"
	"github.com/marketpulse/diagnostic/internal/model"
	"github.com/marketpulse/diagnostic/internal/scoring"
	"github.com/marketpulse/diagnostic/internal/session"
	"github.com/marketpulse/diagnostic/internal/share"
)

var (
	// ErrBusy means an answer is mid-processing; the event is dropped,
	// not queued.
	ErrBusy = errors.New("another event is being processed")

	// ErrInvalidTransition means the event is not legal on the current
	// screen.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrResumeChoiceRequired gates the start transition while a prior
	// session exists: the caller must pick StartNew or Continue.
	ErrResumeChoiceRequired = errors.New("existing session found: choose resume or restart")

	// ErrUnknownOption means the selected value matches no option of the
	// current question.
	ErrUnknownOption = errors.New("unknown option for current question")

	// ErrAnswerNotSaved means the post-write verification of the answer
	// failed; the step is aborted and the user should retry.
	ErrAnswerNotSaved = errors.New("answer did not persist, retry")

	// ErrCannotNavigate means a back/forward move is not allowed from the
	// current position.
	ErrCannotNavigate = errors.New("navigation not allowed here")
)

// UnansweredError reports that identity submission found unanswered
// questions; the machine has already moved back to the first of them.
type UnansweredError struct {
	Count      int
	FirstIndex int
}

func (e *UnansweredError) Error() string {
	return fmt.Sprintf("%d unanswered questions, first at index %d", e.Count, e.FirstIndex)
}

// IdentityError reports invalid lead-capture input.
type IdentityError struct {
	Field string
}

func (e *IdentityError) Error() string {
	return "invalid identity field: " + e.Field
}

// Deliverer sends captured identity data to an external collaborator.
// Delivery outcome never blocks or fails the flow.
type Deliverer interface {
	Deliver(ctx context.Context, identity model.Identity, sessionID string) bool
}

// Machine drives one client's journey through the questionnaire.
type Machine struct {
	mu sync.Mutex

	clientID string
	cat      *catalog.Catalog
	sessions *session.Store
	deliver  Deliverer

	screen      model.Screen
	position    int
	answers     []model.Answer
	identity    model.Identity
	sessionID   string
	hasExisting bool
	// storedScreen remembers where a restored session left off; Continue
	// resumes there.
	storedScreen model.Screen

	result   *model.DiagnosticResult
	resultID string
}

// New builds a machine for a client, restoring any stored session. A
// restored session lands on the landing screen with the existing-session
// flag raised; entering the questions requires an explicit resume-or-
// restart choice.
func New(clientID string, cat *catalog.Catalog, sessions *session.Store, deliver Deliverer) *Machine {
	m := &Machine{
		clientID: clientID,
		cat:      cat,
		sessions: sessions,
		deliver:  deliver,
		screen:   model.ScreenLanding,
	}
	snap, found := sessions.Restore(clientID)
	m.sessionID = snap.SessionID
	if found {
		m.answers = snap.Answers
		m.position = clampPosition(snap.Position, cat.Len())
		m.identity = snap.Identity
		m.hasExisting = true
		m.storedScreen = snap.Screen
	}
	return m
}

func clampPosition(pos, total int) int {
	if pos < 0 {
		return 0
	}
	if pos >= total {
		return total - 1
	}
	return pos
}

// State is a read-only view of the machine for presentation layers.
type State struct {
	Screen          model.Screen
	SessionID       string
	Position        int
	TotalQuestions  int
	AnsweredCount   int
	HasExisting     bool
	CurrentQuestion *model.Question
	Result          *model.DiagnosticResult
	ResultID        string
}

// State snapshots the machine.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := State{
		Screen:         m.screen,
		SessionID:      m.sessionID,
		Position:       m.position,
		TotalQuestions: m.cat.Len(),
		AnsweredCount:  len(m.answers),
		HasExisting:    m.hasExisting,
		Result:         m.result,
		ResultID:       m.resultID,
	}
	if m.screen == model.ScreenQuestions {
		if q, ok := m.cat.Question(m.position); ok {
			st.CurrentQuestion = &q
		}
	}
	return st
}

// Start moves from landing into the questions. When a prior session was
// detected the transition is gated behind an explicit resume-or-restart
// choice.
func (m *Machine) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.screen != model.ScreenLanding {
		return ErrInvalidTransition
	}
	if m.hasExisting {
		return ErrResumeChoiceRequired
	}
	m.screen = model.ScreenQuestions
	m.persistLocked()
	return nil
}

// StartNew discards any stored progress and enters the questions with a
// brand-new session.
func (m *Machine) StartNew() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.screen != model.ScreenLanding {
		return ErrInvalidTransition
	}
	m.sessions.Clear(m.clientID)
	snap := m.sessions.Create(m.clientID)
	m.sessionID = snap.SessionID
	m.answers = nil
	m.position = 0
	m.identity = model.Identity{}
	m.hasExisting = false
	m.storedScreen = model.ScreenLanding
	m.screen = model.ScreenQuestions
	m.persistLocked()
	return nil
}

// Continue resumes the stored session where it left off. A session that
// was persisted mid identity-capture resumes there; completeness is still
// re-validated at submission.
func (m *Machine) Continue() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.screen != model.ScreenLanding || !m.hasExisting {
		return ErrInvalidTransition
	}
	m.hasExisting = false
	if m.storedScreen == model.ScreenIdentityCapture {
		m.screen = model.ScreenIdentityCapture
	} else {
		m.screen = model.ScreenQuestions
	}
	m.persistLocked()
	return nil
}

// SelectOption records the answer for the current question and advances.
// The commit is synchronous: upsert, persist, verify, then move. A second
// selection arriving while one is being processed is dropped with ErrBusy.
func (m *Machine) SelectOption(value string) error {
	if !m.mu.TryLock() {
		return ErrBusy
	}
	defer m.mu.Unlock()

	if m.screen != model.ScreenQuestions {
		return ErrInvalidTransition
	}
	q, ok := m.cat.Question(m.position)
	if !ok {
		return ErrInvalidTransition
	}
	if q.Option(value) == nil {
		return ErrUnknownOption
	}

	m.upsertAnswer(model.Answer{QuestionID: q.ID, SelectedOption: value})
	m.persistLocked()

	// Post-write integrity check: the answer must round-trip before the
	// flow is allowed to advance.
	saved, ok := m.sessions.ReadAnswer(m.clientID, q.ID)
	if !ok || saved.SelectedOption != value {
		return ErrAnswerNotSaved
	}

	if m.position < m.cat.Len()-1 {
		m.position++
	} else if idx := m.firstUnansweredLocked(); idx >= 0 {
		m.position = idx
	} else {
		m.screen = model.ScreenIdentityCapture
	}
	m.persistLocked()
	return nil
}

// upsertAnswer replaces the answer for the question if present, otherwise
// appends. The active set never holds two answers for one question.
func (m *Machine) upsertAnswer(a model.Answer) {
	for i := range m.answers {
		if m.answers[i].QuestionID == a.QuestionID {
			m.answers[i] = a
			return
		}
	}
	m.answers = append(m.answers, a)
}

// firstUnansweredLocked returns the lowest catalog index without an
// answer, or -1. Detection is by identifier membership, so answering out
// of order is fully supported.
func (m *Machine) firstUnansweredLocked() int {
	answered := make(map[string]bool, len(m.answers))
	for _, a := range m.answers {
		answered[a.QuestionID] = true
	}
	for i, q := range m.cat.Questions() {
		if !answered[q.ID] {
			return i
		}
	}
	return -1
}

// Back moves one question backwards.
func (m *Machine) Back() error {
	if !m.mu.TryLock() {
		return ErrBusy
	}
	defer m.mu.Unlock()

	if m.screen != model.ScreenQuestions {
		return ErrInvalidTransition
	}
	if m.position == 0 {
		return ErrCannotNavigate
	}
	m.position--
	m.persistLocked()
	return nil
}

// Forward moves one question ahead without answering, allowed only when
// the current question already has a recorded answer.
func (m *Machine) Forward() error {
	if !m.mu.TryLock() {
		return ErrBusy
	}
	defer m.mu.Unlock()

	if m.screen != model.ScreenQuestions {
		return ErrInvalidTransition
	}
	if m.position >= m.cat.Len()-1 {
		return ErrCannotNavigate
	}
	q, _ := m.cat.Question(m.position)
	if !m.answeredLocked(q.ID) {
		return ErrCannotNavigate
	}
	m.position++
	m.persistLocked()
	return nil
}

func (m *Machine) answeredLocked(questionID string) bool {
	for _, a := range m.answers {
		if a.QuestionID == questionID {
			return true
		}
	}
	return false
}

// SubmitIdentity validates the lead fields and the answer set. With
// unanswered questions left, the machine returns to the questions at the
// first missing index and reports UnansweredError. With a complete set it
// computes the result, mints a result identifier, kicks off best-effort
// lead delivery, clears the session store, and shows the results.
func (m *Machine) SubmitIdentity(ctx context.Context, identity model.Identity) error {
	if !m.mu.TryLock() {
		return ErrBusy
	}
	defer m.mu.Unlock()

	if m.screen != model.ScreenIdentityCapture {
		return ErrInvalidTransition
	}
	if err := validateIdentity(identity); err != nil {
		return err
	}

	if idx := m.firstUnansweredLocked(); idx >= 0 {
		count := m.cat.Len() - len(m.answers)
		m.screen = model.ScreenQuestions
		m.position = idx
		m.persistLocked()
		return &UnansweredError{Count: count, FirstIndex: idx}
	}

	m.identity = identity
	result := scoring.Calculate(ctx, m.answers, m.cat)
	m.result = &result
	m.resultID = uuid.NewString()

	// Fire-and-forget; the goroutine touches no machine state, so no
	// liveness guard is needed. The outcome is logged by the deliverer.
	if m.deliver != nil {
		sessionID := m.sessionID
		deliverCtx := context.WithoutCancel(ctx)
		go m.deliver.Deliver(deliverCtx, identity, sessionID)
	}

	m.sessions.Clear(m.clientID)
	m.screen = model.ScreenResults
	return nil
}

func validateIdentity(identity model.Identity) error {
	if strings.TrimSpace(identity.Name) == "" {
		return &IdentityError{Field: "name"}
	}
	email := strings.TrimSpace(identity.Email)
	if email == "" || !strings.Contains(email, "@") {
		return &IdentityError{Field: "email"}
	}
	return nil
}

// Reset returns to the landing screen from anywhere: in-memory state and
// the session store are wiped and a fresh session identifier is minted.
// Nothing is persisted until the user starts again, so a reset leaves
// storage empty. Reset waits for any in-flight answer processing instead
// of dropping.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions.Clear(m.clientID)
	m.sessionID = session.NewID()
	m.answers = nil
	m.position = 0
	m.identity = model.Identity{}
	m.result = nil
	m.resultID = ""
	m.hasExisting = false
	m.storedScreen = model.ScreenLanding
	m.screen = model.ScreenLanding
}

// OpenShared enters the results screen directly with the placeholder
// result for a share identifier, bypassing the normal flow. A malformed
// identifier is returned as an error for the caller to surface and
// redirect on.
func (m *Machine) OpenShared(ctx context.Context, shareID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	result, err := share.Resolve(ctx, shareID)
	if err != nil {
		return err
	}
	m.result = &result
	m.resultID = shareID
	m.screen = model.ScreenResults
	return nil
}

// persistLocked saves current progress. Failures are contained inside the
// session store; the write error is only consulted where the integrity
// check needs it.
func (m *Machine) persistLocked() {
	_ = m.sessions.Persist(m.clientID, model.Snapshot{
		SessionID: m.sessionID,
		Answers:   m.answers,
		Position:  m.position,
		Screen:    m.screen,
		Identity:  m.identity,
	})
}
