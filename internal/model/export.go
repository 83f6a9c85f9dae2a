package model

import "time"

// SessionExport is the top-level JSON structure for the session dump
// produced by the export subcommand.
type SessionExport struct {
	ExportedAt time.Time       `json:"exported_at"`
	Sessions   []StoredSession `json:"sessions"`
}

// StoredSession is one client's persisted session as found in the store.
// Raw holds values that failed to parse, keyed by logical key, so a
// partially corrupted session is still inspectable.
type StoredSession struct {
	ClientID  string            `json:"client_id"`
	SessionID string            `json:"session_id"`
	Answers   []Answer          `json:"answers"`
	Position  int               `json:"position"`
	Screen    Screen            `json:"screen"`
	Identity  Identity          `json:"identity"`
	UpdatedAt time.Time         `json:"updated_at"`
	Raw       map[string]string `json:"raw,omitempty"`
}
