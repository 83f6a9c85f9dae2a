// Package share resolves inbound share identifiers. There is no backing
// store for completed results, so resolution is a deliberate stub: any
// identifier with the expected shape yields a fixed placeholder result for
// display, never real data.
package share

import (
	"context"
	"errors"
	"strings"

	appI18n "github.com/marketpulse/diagnostic/internal/i18n"
	"github.com/marketpulse/diagnostic/internal/model"
)

// ErrInvalidShareID is returned for identifiers that cannot have come from
// a completed diagnostic. Callers recover by redirecting to the landing
// screen.
var ErrInvalidShareID = errors.New("invalid share identifier")

const (
	placeholderScore = 70.0
)

// Resolve validates a share identifier and returns the placeholder result.
// Both session and result identifiers contain a hyphen, so that is the
// whole shape check.
func Resolve(ctx context.Context, shareID string) (model.DiagnosticResult, error) {
	if !strings.Contains(shareID, "-") {
		return model.DiagnosticResult{}, ErrInvalidShareID
	}
	return model.DiagnosticResult{
		Pillars:           map[model.Pillar]model.PillarScore{},
		OverallScore:      placeholderScore,
		OverallEvaluation: model.EvaluationMedium,
		Recommendations: []string{
			appI18n.T(ctx, "Recommendation.Generic.Review"),
			appI18n.T(ctx, "Recommendation.Generic.Consistency"),
			appI18n.T(ctx, "Recommendation.Generic.Measure"),
		},
	}, nil
}
