package store

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/marketpulse/diagnostic/internal/model"
)

// ExportAllSessions builds an inspectable dump of every stored session.
// Values that fail to parse are carried verbatim in Raw instead of
// aborting the export.
func (s *Store) ExportAllSessions() ([]model.StoredSession, error) {
	clients, err := s.ListClients()
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}

	var sessions []model.StoredSession
	for _, clientID := range clients {
		sess := model.StoredSession{ClientID: clientID}

		if at, err := s.LastUpdated(clientID); err == nil {
			sess.UpdatedAt = at
		}

		for _, key := range SessionKeys {
			value, err := s.Get(clientID, key)
			if err == ErrNotFound {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("read %s for %s: %w", key, clientID, err)
			}

			switch key {
			case KeySessionID:
				sess.SessionID = value
			case KeyAnswers:
				if err := json.Unmarshal([]byte(value), &sess.Answers); err != nil {
					keepRaw(&sess, key, value)
				}
			case KeyPosition:
				pos, err := strconv.Atoi(value)
				if err != nil {
					keepRaw(&sess, key, value)
					continue
				}
				sess.Position = pos
			case KeyScreen:
				ord, err := strconv.Atoi(value)
				if err != nil {
					keepRaw(&sess, key, value)
					continue
				}
				sess.Screen = model.Screen(ord)
			case KeyIdentity:
				if err := json.Unmarshal([]byte(value), &sess.Identity); err != nil {
					keepRaw(&sess, key, value)
				}
			}
		}

		sessions = append(sessions, sess)
	}

	return sessions, nil
}

func keepRaw(sess *model.StoredSession, key, value string) {
	if sess.Raw == nil {
		sess.Raw = make(map[string]string)
	}
	sess.Raw[key] = value
}
