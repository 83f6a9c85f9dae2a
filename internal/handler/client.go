package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/marketpulse/diagnostic/internal/flow"
	"github.com/marketpulse/diagnostic/internal/store"
)

const clientCookieName = "diag_client"

type clientCtxKey struct{}

// clientMiddleware ensures every request carries an opaque client token
// cookie. The token namespaces that client's stored session; it is not an
// authentication credential.
func (h *Handler) clientMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var clientID string
		if cookie, err := r.Cookie(clientCookieName); err == nil && cookie.Value != "" {
			clientID = cookie.Value
		} else {
			token, err := store.NewClientToken()
			if err != nil {
				slog.Error("generate client token", "error", err)
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			clientID = token

			cookiePath := "/"
			if h.config.BasePath != "" {
				cookiePath = h.config.BasePath + "/"
			}
			http.SetCookie(w, &http.Cookie{
				Name:     clientCookieName,
				Value:    clientID,
				Path:     cookiePath,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
				Secure:   h.config.SecureCookies,
			})
		}

		ctx := context.WithValue(r.Context(), clientCtxKey{}, clientID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// machine resolves the flow machine for the request's client.
func (h *Handler) machine(r *http.Request) *flow.Machine {
	clientID, _ := r.Context().Value(clientCtxKey{}).(string)
	return h.manager.Machine(clientID)
}
