package model

import "context"

// Pillar is one of the fixed thematic categories a question belongs to.
type Pillar string

const (
	PillarStrategy           Pillar = "strategy"
	PillarBranding           Pillar = "branding"
	PillarDigitalPresence    Pillar = "digital_presence"
	PillarContent            Pillar = "content"
	PillarLeadGeneration     Pillar = "lead_generation"
	PillarCustomerExperience Pillar = "customer_experience"
	PillarAnalytics          Pillar = "analytics"
)

// Pillars lists all pillars in catalog order.
var Pillars = []Pillar{
	PillarStrategy,
	PillarBranding,
	PillarDigitalPresence,
	PillarContent,
	PillarLeadGeneration,
	PillarCustomerExperience,
	PillarAnalytics,
}

// MaxOptionScore is the highest score a single option can carry.
const MaxOptionScore = 4

// Option is one of the four choices offered for a question.
type Option struct {
	Label    string `json:"label"`
	Value    string `json:"value"`
	Score    int    `json:"score"`
	Feedback string `json:"feedback,omitempty"`
}

// Question is a single catalog entry with exactly four scored options.
type Question struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Pillar  Pillar   `json:"pillar"`
	Options []Option `json:"options"`
}

// Option returns the option matching the given value, or nil.
func (q Question) Option(value string) *Option {
	for i := range q.Options {
		if q.Options[i].Value == value {
			return &q.Options[i]
		}
	}
	return nil
}

// Answer pairs a question identifier with a selected option value.
type Answer struct {
	QuestionID     string `json:"questionId"`
	SelectedOption string `json:"selectedOption"`
}

// Screen identifies which part of the flow the user is in.
// The ordinal is what gets persisted, so the order is part of the
// storage format and must not change.
type Screen int

const (
	ScreenLanding Screen = iota
	ScreenQuestions
	ScreenIdentityCapture
	ScreenResults
)

func (s Screen) String() string {
	switch s {
	case ScreenLanding:
		return "landing"
	case ScreenQuestions:
		return "questions"
	case ScreenIdentityCapture:
		return "identity_capture"
	case ScreenResults:
		return "results"
	}
	return "unknown"
}

// Identity holds the lead-capture fields plus marketing attribution.
type Identity struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Company     string `json:"company,omitempty"`
	Phone       string `json:"phone,omitempty"`
	UTMSource   string `json:"utm_source,omitempty"`
	UTMMedium   string `json:"utm_medium,omitempty"`
	UTMCampaign string `json:"utm_campaign,omitempty"`
}

// IsZero reports whether no identity field has been captured.
func (id Identity) IsZero() bool {
	return id == Identity{}
}

// Evaluation is the qualitative tier derived from a percentage score.
type Evaluation string

const (
	EvaluationHigh   Evaluation = "high"
	EvaluationMedium Evaluation = "medium"
	EvaluationLow    Evaluation = "low"
)

// PillarScore is the per-pillar aggregate produced by the scoring engine.
type PillarScore struct {
	Pillar        Pillar     `json:"pillar"`
	Score         int        `json:"score"`
	MaxScore      int        `json:"max_score"`
	QuestionCount int        `json:"question_count"`
	AnsweredCount int        `json:"answered_count"`
	Percentage    float64    `json:"percentage"`
	Evaluation    Evaluation `json:"evaluation"`
}

// DiagnosticResult is the immutable output of the scoring engine.
// Identical inputs always produce identical results, so there is no
// timestamp here; completion time is session state, not score state.
type DiagnosticResult struct {
	Pillars           map[Pillar]PillarScore `json:"pillars"`
	OverallScore      float64                `json:"overall_score"`
	OverallEvaluation Evaluation             `json:"overall_evaluation"`
	Recommendations   []string               `json:"recommendations"`
}

// Snapshot is the restorable session state: everything the session store
// persists under its five logical keys.
type Snapshot struct {
	SessionID string   `json:"session_id"`
	Answers   []Answer `json:"answers"`
	Position  int      `json:"position"`
	Screen    Screen   `json:"screen"`
	Identity  Identity `json:"identity"`
}

type basePathCtxKey struct{}

// ContextWithBasePath stores the base path prefix in context.
func ContextWithBasePath(ctx context.Context, basePath string) context.Context {
	return context.WithValue(ctx, basePathCtxKey{}, basePath)
}

// BasePathFromContext retrieves the base path from context (empty string if not set).
func BasePathFromContext(ctx context.Context) string {
	bp, _ := ctx.Value(basePathCtxKey{}).(string)
	return bp
}

// ServeConfig holds runtime parameters set via CLI flags.
type ServeConfig struct {
	BasePath      string // URL prefix for sub-path deployments (e.g. "/diag")
	SecureCookies bool   // Set Secure flag on cookies (disable for local dev)
	WebhookURL    string // Lead delivery endpoint; empty disables delivery
	Lang          string // UI language (en, es)
}
