package handler

import (
	"context"
	"net/http"

	"hospital-admin/internal/models"
	"hospital-admin/internal/service"
)

type ctxKey int

const (
	userKey ctxKey = iota
	sessionKey
)

// MustAuth returns the user and session placed in the context by
// RequireAuth. Panics if called outside an authenticated route.
func MustAuth(ctx context.Context) (*models.User, *models.Session) {
	user, ok := ctx.Value(userKey).(*models.User)
	if !ok {
		panic("handler: MustAuth outside authenticated route")
	}
	return user, ctx.Value(sessionKey).(*models.Session)
}

// RequireAuth resolves the session cookie once per request and stores
// the user and session in the request context. Requests without a valid
// live session get 401 and a cleared cookie.
func (h *AuthHandler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.sessionToken(r)
		if token == "" {
			h.respondWithError(w, http.StatusUnauthorized, service.ErrSessionInvalid, "Authentication required")
			return
		}

		user, session, err := h.sessions.Resolve(r.Context(), token, deviceFrom(r))
		if err != nil {
			h.clearSessionCookie(w)
			h.respondAuthError(w, err, "Authentication required")
			return
		}

		ctx := context.WithValue(r.Context(), userKey, user)
		ctx = context.WithValue(ctx, sessionKey, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
