package i18n

import (
	"context"
	"os"
	"strings"
	"testing"
)

func TestMain(m *testing.M) {
	if err := Init("en"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func TestTranslate(t *testing.T) {
	ctx := context.Background()
	if got := T(ctx, "Evaluation.high"); got != "High maturity" {
		t.Errorf("T(Evaluation.high) = %q", got)
	}

	// Missing IDs fall back to the ID itself so callers never render blanks.
	if got := T(ctx, "No.Such.Message"); got != "No.Such.Message" {
		t.Errorf("missing ID = %q, want the ID back", got)
	}
}

func TestTranslateWithLocalizer(t *testing.T) {
	ctx := WithLocalizer(context.Background(), NewLocalizer("es"))
	got := T(ctx, "Evaluation.high")
	if got == "" || got == "High maturity" {
		t.Errorf("spanish localizer returned %q", got)
	}
}

func TestTranslatePlural(t *testing.T) {
	ctx := context.Background()

	one := Tp(ctx, "Notice.UnansweredQuestions", 1)
	if !strings.Contains(one, "1 unanswered question.") {
		t.Errorf("singular form = %q", one)
	}

	many := Tp(ctx, "Notice.UnansweredQuestions", 3)
	if !strings.Contains(many, "3 unanswered questions") {
		t.Errorf("plural form = %q", many)
	}
}
