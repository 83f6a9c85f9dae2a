package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/marketpulse/diagnostic/internal/catalog"
	"github.com/marketpulse/diagnostic/internal/flow"
	appI18n "github.com/marketpulse/diagnostic/internal/i18n"
	"github.com/marketpulse/diagnostic/internal/model"
	"github.com/marketpulse/diagnostic/internal/share"
)

// Handler exposes the diagnostic flow as a JSON API. Rendering is the
// client's job; this layer only maps HTTP to flow events and state.
type Handler struct {
	manager *flow.Manager
	cat     *catalog.Catalog
	config  model.ServeConfig
}

// New creates a new Handler.
func New(manager *flow.Manager, cat *catalog.Catalog, cfg model.ServeConfig) *Handler {
	return &Handler{manager: manager, cat: cat, config: cfg}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Use(h.clientMiddleware)
	r.Get("/", h.handleState)
	r.Post("/session/start", h.handleStart)
	r.Post("/session/new", h.handleStartNew)
	r.Post("/session/continue", h.handleContinue)
	r.Post("/answer", h.handleAnswer)
	r.Post("/navigate/back", h.handleBack)
	r.Post("/navigate/forward", h.handleForward)
	r.Post("/identity", h.handleIdentity)
	r.Post("/reset", h.handleReset)
	r.Get("/thank-you", h.handleThankYou)
	r.Get("/result/{resultID}", h.handleSharedResult)
	r.Get("/r/{shareID}", h.handleLegacyResult)
}

// BasePathMiddleware stores the configured base path in the request
// context for link building.
func (h *Handler) BasePathMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := model.ContextWithBasePath(r.Context(), h.config.BasePath)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) path(p string) string {
	return h.config.BasePath + p
}

// stateResponse is the view of the machine sent to clients.
type stateResponse struct {
	Screen          string                  `json:"screen"`
	Position        int                     `json:"position"`
	TotalQuestions  int                     `json:"total_questions"`
	AnsweredCount   int                     `json:"answered_count"`
	HasExisting     bool                    `json:"has_existing_session"`
	Question        *model.Question         `json:"question,omitempty"`
	Result          *model.DiagnosticResult `json:"result,omitempty"`
	ResultID        string                  `json:"result_id,omitempty"`
	Notice          string                  `json:"notice,omitempty"`
	UnansweredIndex *int                    `json:"unanswered_index,omitempty"`
}

func stateView(st flow.State) stateResponse {
	return stateResponse{
		Screen:         st.Screen.String(),
		Position:       st.Position,
		TotalQuestions: st.TotalQuestions,
		AnsweredCount:  st.AnsweredCount,
		HasExisting:    st.HasExisting,
		Question:       st.CurrentQuestion,
		Result:         st.Result,
		ResultID:       st.ResultID,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write response", "error", err)
	}
}

// handleState reports the current machine state. An inbound share
// parameter short-circuits straight into the results screen (or, when
// malformed, back to landing with a notice).
func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	m := h.machine(r)

	if shareID := r.URL.Query().Get("share"); shareID != "" {
		if err := m.OpenShared(r.Context(), shareID); err != nil {
			resp := stateView(m.State())
			resp.Notice = appI18n.T(r.Context(), "Notice.InvalidShareLink")
			writeJSON(w, http.StatusOK, resp)
			return
		}
	}

	writeJSON(w, http.StatusOK, stateView(m.State()))
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	m := h.machine(r)
	if err := m.Start(); err != nil {
		h.writeFlowError(w, r, m, err)
		return
	}
	writeJSON(w, http.StatusOK, stateView(m.State()))
}

func (h *Handler) handleStartNew(w http.ResponseWriter, r *http.Request) {
	m := h.machine(r)
	if err := m.StartNew(); err != nil {
		h.writeFlowError(w, r, m, err)
		return
	}
	writeJSON(w, http.StatusOK, stateView(m.State()))
}

func (h *Handler) handleContinue(w http.ResponseWriter, r *http.Request) {
	m := h.machine(r)
	if err := m.Continue(); err != nil {
		h.writeFlowError(w, r, m, err)
		return
	}
	writeJSON(w, http.StatusOK, stateView(m.State()))
}

type answerRequest struct {
	Option string `json:"option"`
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Option == "" {
		http.Error(w, "option is required", http.StatusBadRequest)
		return
	}

	m := h.machine(r)
	if err := m.SelectOption(req.Option); err != nil {
		h.writeFlowError(w, r, m, err)
		return
	}
	writeJSON(w, http.StatusOK, stateView(m.State()))
}

func (h *Handler) handleBack(w http.ResponseWriter, r *http.Request) {
	m := h.machine(r)
	if err := m.Back(); err != nil {
		h.writeFlowError(w, r, m, err)
		return
	}
	writeJSON(w, http.StatusOK, stateView(m.State()))
}

func (h *Handler) handleForward(w http.ResponseWriter, r *http.Request) {
	m := h.machine(r)
	if err := m.Forward(); err != nil {
		h.writeFlowError(w, r, m, err)
		return
	}
	writeJSON(w, http.StatusOK, stateView(m.State()))
}

func (h *Handler) handleIdentity(w http.ResponseWriter, r *http.Request) {
	var identity model.Identity
	if err := json.NewDecoder(r.Body).Decode(&identity); err != nil {
		http.Error(w, "invalid identity payload", http.StatusBadRequest)
		return
	}

	m := h.machine(r)
	if err := m.SubmitIdentity(r.Context(), identity); err != nil {
		h.writeFlowError(w, r, m, err)
		return
	}
	writeJSON(w, http.StatusOK, stateView(m.State()))
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	m := h.machine(r)
	m.Reset()
	writeJSON(w, http.StatusOK, stateView(m.State()))
}

func (h *Handler) handleThankYou(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": appI18n.T(r.Context(), "Notice.ThankYou"),
	})
}

// handleSharedResult serves the read-only share view. The backing data is
// a placeholder; see the share package.
func (h *Handler) handleSharedResult(w http.ResponseWriter, r *http.Request) {
	resultID := chi.URLParam(r, "resultID")
	result, err := share.Resolve(r.Context(), resultID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"notice":   appI18n.T(r.Context(), "Notice.InvalidShareLink"),
			"redirect": h.path("/"),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"result_id": resultID,
		"result":    result,
	})
}

// handleLegacyResult redirects old result paths into the root with the
// share parameter reconstructed from the trailing segment.
func (h *Handler) handleLegacyResult(w http.ResponseWriter, r *http.Request) {
	shareID := chi.URLParam(r, "shareID")
	http.Redirect(w, r, h.path("/?share="+shareID), http.StatusMovedPermanently)
}

// writeFlowError maps flow errors onto HTTP responses. Validation problems
// carry the post-transition state so clients can follow the auto-repair
// (e.g. the jump back to the first unanswered question).
func (h *Handler) writeFlowError(w http.ResponseWriter, r *http.Request, m *flow.Machine, err error) {
	var unanswered *flow.UnansweredError
	var identityErr *flow.IdentityError

	switch {
	case errors.As(err, &unanswered):
		resp := stateView(m.State())
		resp.Notice = appI18n.Tp(r.Context(), "Notice.UnansweredQuestions", unanswered.Count)
		resp.UnansweredIndex = &unanswered.FirstIndex
		writeJSON(w, http.StatusUnprocessableEntity, resp)
	case errors.As(err, &identityErr):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": identityErr.Error()})
	case errors.Is(err, flow.ErrAnswerNotSaved):
		resp := stateView(m.State())
		resp.Notice = appI18n.T(r.Context(), "Notice.AnswerRetry")
		writeJSON(w, http.StatusConflict, resp)
	case errors.Is(err, flow.ErrBusy):
		// Dropped, not queued: report current state unchanged.
		writeJSON(w, http.StatusConflict, stateView(m.State()))
	case errors.Is(err, flow.ErrResumeChoiceRequired):
		resp := stateView(m.State())
		resp.Notice = err.Error()
		writeJSON(w, http.StatusConflict, resp)
	case errors.Is(err, flow.ErrUnknownOption):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, flow.ErrInvalidTransition), errors.Is(err, flow.ErrCannotNavigate):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		slog.Error("flow error", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
