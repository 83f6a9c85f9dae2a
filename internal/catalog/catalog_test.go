package catalog

import (
	"testing"

	"github.com/marketpulse/diagnostic/internal/model"
)

func validQuestion(id string, pillar model.Pillar) model.Question {
	return model.Question{
		ID:     id,
		Text:   "text for " + id,
		Pillar: pillar,
		Options: []model.Option{
			{Label: "A", Value: "a", Score: 1},
			{Label: "B", Value: "b", Score: 2},
			{Label: "C", Value: "c", Score: 3},
			{Label: "D", Value: "d", Score: 4},
		},
	}
}

func TestLoadEmbeddedCatalog(t *testing.T) {
	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Len() == 0 {
		t.Fatal("embedded catalog is empty")
	}
	if c.Checksum() == "" {
		t.Error("expected non-empty checksum")
	}

	// Every pillar must appear in the catalog.
	if got, want := len(c.Pillars()), len(model.Pillars); got != want {
		t.Errorf("expected %d pillars, got %d", want, got)
	}

	// Grouping must cover every question exactly once.
	total := 0
	for _, qs := range c.ByPillar() {
		total += len(qs)
	}
	if total != c.Len() {
		t.Errorf("ByPillar covers %d questions, catalog has %d", total, c.Len())
	}
}

func TestNewValidation(t *testing.T) {
	bad4 := validQuestion("q1", model.PillarStrategy)
	bad4.Options = bad4.Options[:3]

	badScore := validQuestion("q1", model.PillarStrategy)
	badScore.Options[2].Score = 5

	badValue := validQuestion("q1", model.PillarStrategy)
	badValue.Options[1].Value = "a"

	tests := []struct {
		name      string
		questions []model.Question
		wantErr   bool
	}{
		{"valid", []model.Question{
			validQuestion("q1", model.PillarStrategy),
			validQuestion("q2", model.PillarBranding),
		}, false},
		{"empty", nil, true},
		{"duplicate id", []model.Question{
			validQuestion("q1", model.PillarStrategy),
			validQuestion("q1", model.PillarBranding),
		}, true},
		{"undefined pillar", []model.Question{
			validQuestion("q1", model.Pillar("vibes")),
		}, true},
		{"wrong option count", []model.Question{bad4}, true},
		{"score out of range", []model.Question{badScore}, true},
		{"duplicate option value", []model.Question{badValue}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.questions)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestByPillarPreservesOrder(t *testing.T) {
	c, err := New([]model.Question{
		validQuestion("s1", model.PillarStrategy),
		validQuestion("b1", model.PillarBranding),
		validQuestion("s2", model.PillarStrategy),
		validQuestion("b2", model.PillarBranding),
		validQuestion("s3", model.PillarStrategy),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	groups := c.ByPillar()
	strategy := groups[model.PillarStrategy]
	wantOrder := []string{"s1", "s2", "s3"}
	if len(strategy) != len(wantOrder) {
		t.Fatalf("expected %d strategy questions, got %d", len(wantOrder), len(strategy))
	}
	for i, id := range wantOrder {
		if strategy[i].ID != id {
			t.Errorf("strategy[%d] = %q, want %q", i, strategy[i].ID, id)
		}
	}

	// Pillar order follows first appearance.
	pillars := c.Pillars()
	if pillars[0] != model.PillarStrategy || pillars[1] != model.PillarBranding {
		t.Errorf("unexpected pillar order: %v", pillars)
	}
}

func TestIndexOf(t *testing.T) {
	c, err := New([]model.Question{
		validQuestion("q1", model.PillarStrategy),
		validQuestion("q2", model.PillarBranding),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if got := c.IndexOf("q2"); got != 1 {
		t.Errorf("IndexOf(q2) = %d, want 1", got)
	}
	if got := c.IndexOf("missing"); got != -1 {
		t.Errorf("IndexOf(missing) = %d, want -1", got)
	}

	if _, ok := c.Question(5); ok {
		t.Error("Question(5) should report not found")
	}
	if q, ok := c.Question(0); !ok || q.ID != "q1" {
		t.Errorf("Question(0) = %v, %v", q, ok)
	}
}
