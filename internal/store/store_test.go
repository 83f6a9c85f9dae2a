package store

import (
	"testing"

	"github.com/marketpulse/diagnostic/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetSetDelete(t *testing.T) {
	s := newTestStore(t)

	// Missing key.
	_, err := s.Get("client-a", KeySessionID)
	if err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// Set and get.
	if err := s.Set("client-a", KeySessionID, "1700000000000-abcd"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.Get("client-a", KeySessionID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "1700000000000-abcd" {
		t.Errorf("got %q", got)
	}

	// Upsert replaces.
	if err := s.Set("client-a", KeySessionID, "other"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, _ = s.Get("client-a", KeySessionID)
	if got != "other" {
		t.Errorf("after upsert got %q, want %q", got, "other")
	}

	// Delete; deleting a missing key is not an error.
	if err := s.Delete("client-a", KeySessionID, KeyAnswers); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get("client-a", KeySessionID); err != ErrNotFound {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestClientIsolation(t *testing.T) {
	s := newTestStore(t)

	if err := s.Set("client-a", KeyPosition, "3"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set("client-b", KeyPosition, "7"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	a, _ := s.Get("client-a", KeyPosition)
	b, _ := s.Get("client-b", KeyPosition)
	if a != "3" || b != "7" {
		t.Errorf("isolation broken: a=%q b=%q", a, b)
	}

	clients, err := s.ListClients()
	if err != nil {
		t.Fatalf("ListClients: %v", err)
	}
	if len(clients) != 2 {
		t.Errorf("expected 2 clients, got %d", len(clients))
	}
}

func TestSetAllAndKeys(t *testing.T) {
	s := newTestStore(t)

	err := s.SetAll("client-a", map[string]string{
		KeySessionID: "id-1",
		KeyAnswers:   `[{"questionId":"q1","selectedOption":"a"}]`,
		KeyPosition:  "0",
	})
	if err != nil {
		t.Fatalf("SetAll: %v", err)
	}

	keys, err := s.Keys("client-a")
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 3 {
		t.Errorf("expected 3 keys, got %v", keys)
	}
}

func TestMetadata(t *testing.T) {
	s := newTestStore(t)

	// Missing key yields empty string, no error.
	v, err := s.GetMetadata(MetaCatalogChecksum)
	if err != nil {
		t.Fatalf("GetMetadata: %v", err)
	}
	if v != "" {
		t.Errorf("expected empty, got %q", v)
	}

	if err := s.SetMetadata(MetaCatalogChecksum, "abc"); err != nil {
		t.Fatalf("SetMetadata: %v", err)
	}
	if err := s.SetMetadata(MetaCatalogChecksum, "def"); err != nil {
		t.Fatalf("SetMetadata upsert: %v", err)
	}
	v, _ = s.GetMetadata(MetaCatalogChecksum)
	if v != "def" {
		t.Errorf("got %q, want %q", v, "def")
	}
}

func TestNewClientToken(t *testing.T) {
	a, err := NewClientToken()
	if err != nil {
		t.Fatalf("NewClientToken: %v", err)
	}
	b, err := NewClientToken()
	if err != nil {
		t.Fatalf("NewClientToken: %v", err)
	}
	if a == b {
		t.Error("tokens should be unique")
	}
	if len(a) != 32 {
		t.Errorf("token length %d, want 32", len(a))
	}
}

func TestExportAllSessions(t *testing.T) {
	s := newTestStore(t)

	err := s.SetAll("client-a", map[string]string{
		KeySessionID: "1700000000000-abcd",
		KeyAnswers:   `[{"questionId":"q1","selectedOption":"a"},{"questionId":"q3","selectedOption":"b"}]`,
		KeyPosition:  "2",
		KeyScreen:    "1",
		KeyIdentity:  `{"name":"Ada","email":"ada@example.com"}`,
	})
	if err != nil {
		t.Fatalf("SetAll: %v", err)
	}
	// A client with a corrupted answers value still exports.
	if err := s.Set("client-b", KeyAnswers, "not-json"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	sessions, err := s.ExportAllSessions()
	if err != nil {
		t.Fatalf("ExportAllSessions: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}

	byClient := make(map[string]model.StoredSession)
	for _, sess := range sessions {
		byClient[sess.ClientID] = sess
	}

	a := byClient["client-a"]
	if a.SessionID != "1700000000000-abcd" || a.Position != 2 || a.Screen != model.ScreenQuestions {
		t.Errorf("client-a parsed wrong: %+v", a)
	}
	if len(a.Answers) != 2 || a.Identity.Name != "Ada" {
		t.Errorf("client-a answers/identity wrong: %+v", a)
	}

	b := byClient["client-b"]
	if b.Raw[KeyAnswers] != "not-json" {
		t.Errorf("client-b should carry raw unparsable value, got %+v", b)
	}
}
