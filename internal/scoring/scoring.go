// Package scoring aggregates a completed answer set into per-pillar and
// overall scores. Calculate is a pure function of its inputs: no state,
// no clock, identical inputs give identical results.
package scoring

import (
	"context"
	"sort"

	"github.com/marketpulse/diagnostic/internal/catalog"
	appI18n "github.com/marketpulse/diagnostic/internal/i18n"
	"github.com/marketpulse/diagnostic/internal/model"
)

// Tier thresholds, inclusive on both boundaries: >= 75 is high, <= 45 is
// low, everything between is medium.
const (
	highThreshold = 75.0
	lowThreshold  = 45.0
)

// minRecommendations is the floor on how many recommendation strings a
// result carries; generic fillers top it up when tiers produce fewer.
const minRecommendations = 3

// maxMediumRecommendations caps how many medium-tier pillars get a
// remediation sentence of their own.
const maxMediumRecommendations = 2

// Evaluate buckets a percentage into a qualitative tier.
func Evaluate(percentage float64) model.Evaluation {
	switch {
	case percentage >= highThreshold:
		return model.EvaluationHigh
	case percentage <= lowThreshold:
		return model.EvaluationLow
	default:
		return model.EvaluationMedium
	}
}

// Calculate scores the answer set against the catalog. Unanswered or
// mismatched questions contribute zero and are skipped, not errors; the
// completeness gate lives in the flow, not here. The context only carries
// the localizer for recommendation copy.
func Calculate(ctx context.Context, answers []model.Answer, cat *catalog.Catalog) model.DiagnosticResult {
	byQuestion := make(map[string]string, len(answers))
	for _, a := range answers {
		byQuestion[a.QuestionID] = a.SelectedOption
	}

	groups := cat.ByPillar()
	pillars := make(map[model.Pillar]model.PillarScore, len(groups))

	var totalScore, totalMax int
	for _, pillar := range cat.Pillars() {
		questions := groups[pillar]
		ps := model.PillarScore{
			Pillar:        pillar,
			QuestionCount: len(questions),
			MaxScore:      len(questions) * model.MaxOptionScore,
		}
		for _, q := range questions {
			selected, ok := byQuestion[q.ID]
			if !ok {
				continue
			}
			opt := q.Option(selected)
			if opt == nil {
				continue
			}
			ps.Score += opt.Score
			ps.AnsweredCount++
		}
		if ps.MaxScore > 0 {
			ps.Percentage = float64(ps.Score) / float64(ps.MaxScore) * 100
		}
		ps.Evaluation = Evaluate(ps.Percentage)
		pillars[pillar] = ps

		totalScore += ps.Score
		totalMax += ps.MaxScore
	}

	var overall float64
	if totalMax > 0 {
		overall = float64(totalScore) / float64(totalMax) * 100
	}

	return model.DiagnosticResult{
		Pillars:           pillars,
		OverallScore:      overall,
		OverallEvaluation: Evaluate(overall),
		Recommendations:   recommendations(ctx, pillars),
	}
}

// recommendations builds the ordered recommendation list: one remediation
// per low pillar (weakest first), then up to two for the weakest medium
// pillars, then generic fillers until at least minRecommendations exist.
func recommendations(ctx context.Context, pillars map[model.Pillar]model.PillarScore) []string {
	var low, medium []model.PillarScore
	for _, ps := range pillars {
		switch ps.Evaluation {
		case model.EvaluationLow:
			low = append(low, ps)
		case model.EvaluationMedium:
			medium = append(medium, ps)
		}
	}
	sortAscending(low)
	sortAscending(medium)

	if len(medium) > maxMediumRecommendations {
		medium = medium[:maxMediumRecommendations]
	}

	var recs []string
	for _, ps := range low {
		recs = append(recs, appI18n.T(ctx, "Recommendation.Low."+string(ps.Pillar)))
	}
	for _, ps := range medium {
		recs = append(recs, appI18n.T(ctx, "Recommendation.Medium."+string(ps.Pillar)))
	}

	generic := []string{
		"Recommendation.Generic.Review",
		"Recommendation.Generic.Consistency",
		"Recommendation.Generic.Measure",
	}
	for i := 0; len(recs) < minRecommendations && i < len(generic); i++ {
		recs = append(recs, appI18n.T(ctx, generic[i]))
	}

	return recs
}

// sortAscending orders pillar scores weakest first. Percentage rather
// than raw score keeps pillars of different sizes comparable; pillar key
// breaks ties so the output is stable.
func sortAscending(scores []model.PillarScore) {
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Percentage != scores[j].Percentage {
			return scores[i].Percentage < scores[j].Percentage
		}
		return scores[i].Pillar < scores[j].Pillar
	})
}
