package webhook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/marketpulse/diagnostic/internal/model"
)

func TestNewEmptyEndpointDisablesDelivery(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c != nil {
		t.Fatal("empty endpoint should yield a nil client")
	}
	// A nil client reports success so the flow never stalls on it.
	if !c.Deliver(context.Background(), model.Identity{}, "sid") {
		t.Error("nil client Deliver = false, want true")
	}
}

func TestDeliverSendsIdentityAsQuery(t *testing.T) {
	received := make(chan *http.Request, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received <- r
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	identity := model.Identity{
		Name:      "Ada Lovelace",
		Email:     "ada@example.com",
		Company:   "Analytical Engines",
		Phone:     "+1 555 0100",
		UTMSource: "newsletter",
	}
	if !c.Deliver(context.Background(), identity, "1714000000000-a1b2c3d4") {
		t.Fatal("Deliver = false, want true")
	}

	r := <-received
	if r.Method != http.MethodGet {
		t.Errorf("method = %s, want GET", r.Method)
	}
	q := r.URL.Query()
	for key, want := range map[string]string{
		"name":       "Ada Lovelace",
		"email":      "ada@example.com",
		"company":    "Analytical Engines",
		"phone":      "+1 555 0100",
		"utm_source": "newsletter",
		"session":    "1714000000000-a1b2c3d4",
	} {
		if got := q.Get(key); got != want {
			t.Errorf("query %s = %q, want %q", key, got, want)
		}
	}
	if q.Get("ts") == "" {
		t.Error("cache-busting timestamp missing")
	}
}

func TestDeliverReportsTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := srv.URL
	srv.Close()

	c, err := New(endpoint)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.Deliver(context.Background(), model.Identity{Name: "Ada"}, "sid") {
		t.Error("Deliver to closed server = true, want false")
	}
}

func TestDeliverIgnoresResponseStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !c.Deliver(context.Background(), model.Identity{Name: "Ada"}, "sid") {
		t.Error("Deliver = false even though the request completed")
	}
}
