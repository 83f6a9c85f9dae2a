// Package store is the durable backing for session state: a namespaced
// key/value table in sqlite, string keys to string values, one namespace
// per client. It mirrors the five logical keys the questionnaire persists.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Logical keys a session is persisted under. All values are UTF-8 text;
// numeric and enum values are stored in decimal string form.
const (
	KeySessionID = "session_id"
	KeyAnswers   = "answers"
	KeyPosition  = "position"
	KeyScreen    = "screen"
	KeyIdentity  = "identity"
)

// SessionKeys lists all five logical keys.
var SessionKeys = []string{KeySessionID, KeyAnswers, KeyPosition, KeyScreen, KeyIdentity}

const schemaVersion = "1"

// ErrNotFound is returned by Get when a key has no value for the client.
var ErrNotFound = sql.ErrNoRows

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS session_data (
		client_id TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (client_id, key)
	);

	CREATE TABLE IF NOT EXISTS store_metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return s.SetMetadata(MetaSchemaVersion, schemaVersion)
}

// Get returns the value stored under a key for a client.
// Returns ErrNotFound when the key is absent.
func (s *Store) Get(clientID, key string) (string, error) {
	var value string
	err := s.db.QueryRow(
		`SELECT value FROM session_data WHERE client_id = ? AND key = ?`, clientID, key,
	).Scan(&value)
	return value, err
}

// Set upserts a single key for a client.
func (s *Store) Set(clientID, key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO session_data (client_id, key, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(client_id, key) DO UPDATE SET value = ?, updated_at = ?`,
		clientID, key, value, time.Now(), value, time.Now(),
	)
	return err
}

// SetAll writes several keys for a client. Each key is written
// independently; there is no cross-key transaction, matching the
// best-effort recovery model of the session store.
func (s *Store) SetAll(clientID string, values map[string]string) error {
	for key, value := range values {
		if err := s.Set(clientID, key, value); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
	}
	return nil
}

// Delete removes the given keys for a client. Missing keys are not an error.
func (s *Store) Delete(clientID string, keys ...string) error {
	for _, key := range keys {
		if _, err := s.db.Exec(
			`DELETE FROM session_data WHERE client_id = ? AND key = ?`, clientID, key,
		); err != nil {
			return fmt.Errorf("delete %s: %w", key, err)
		}
	}
	return nil
}

// Keys returns the keys currently stored for a client.
func (s *Store) Keys(clientID string) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT key FROM session_data WHERE client_id = ? ORDER BY key`, clientID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// ListClients returns all client ids with stored data, most recently
// updated first.
func (s *Store) ListClients() ([]string, error) {
	rows, err := s.db.Query(
		`SELECT client_id FROM session_data GROUP BY client_id ORDER BY MAX(updated_at) DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var clients []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		clients = append(clients, id)
	}
	return clients, rows.Err()
}

// LastUpdated returns the most recent write time across a client's keys.
func (s *Store) LastUpdated(clientID string) (time.Time, error) {
	var at time.Time
	err := s.db.QueryRow(
		`SELECT MAX(updated_at) FROM session_data WHERE client_id = ?`, clientID,
	).Scan(&at)
	return at, err
}
