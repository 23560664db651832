package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"hospital-admin/internal/config"
	"hospital-admin/internal/service"
	"hospital-admin/internal/util"
)

// AuthHandler exposes the authentication and session endpoints.
type AuthHandler struct {
	auth     *service.AuthService
	sessions *service.SessionService
	cleanup  *service.CleanupService
	cfg      config.AuthConfig
	cronKey  string
	logger   *zap.Logger
}

func NewAuthHandler(
	auth *service.AuthService,
	sessions *service.SessionService,
	cleanup *service.CleanupService,
	cfg config.AuthConfig,
	cronKey string,
	logger *zap.Logger,
) *AuthHandler {
	return &AuthHandler{
		auth:     auth,
		sessions: sessions,
		cleanup:  cleanup,
		cfg:      cfg,
		cronKey:  cronKey,
		logger:   logger,
	}
}

// Response is the standard API envelope.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

func successResponse(data interface{}, message string) Response {
	return Response{Success: true, Data: data, Message: message}
}

func errorResponse(err error, message string) Response {
	return Response{Success: false, Error: err.Error(), Message: message}
}

// RegisterRoutes mounts the auth and cron endpoints.
func (h *AuthHandler) RegisterRoutes(router chi.Router) {
	router.Route("/auth", func(r chi.Router) {
		r.Post("/request-otp", h.RequestOTP)
		r.Post("/verify-otp", h.VerifyOTP)
		r.Post("/logout", h.Logout)

		r.Group(func(r chi.Router) {
			r.Use(h.RequireAuth)
			r.Post("/logout-all", h.LogoutAll)
			r.Post("/logout-other", h.LogoutOther)
			r.Get("/sessions", h.ListSessions)
			r.Delete("/sessions/{sessionID}", h.RevokeSession)
		})
	})

	router.Get("/cron/cleanup", h.RunCleanup)
}

type requestOTPRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// RequestOTP handles POST /auth/request-otp.
func (h *AuthHandler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	var req requestOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, service.ErrInvalidInput, "Invalid request body")
		return
	}

	err := h.auth.RequestOTP(r.Context(), req.Identifier, req.Password, deviceFrom(r))
	if err != nil {
		h.respondAuthError(w, err, "Failed to send OTP")
		return
	}

	h.respondWithJSON(w, http.StatusOK, successResponse(nil, "OTP sent"))
}

type verifyOTPRequest struct {
	Identifier      string `json:"identifier"`
	Password        string `json:"password"`
	Otp             string `json:"otp"`
	SessionDuration string `json:"sessionDuration"`
}

// VerifyOTP handles POST /auth/verify-otp. A successful verification
// sets the session cookie.
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, service.ErrInvalidInput, "Invalid request body")
		return
	}

	result, err := h.auth.VerifyOTP(r.Context(), req.Identifier, req.Password, req.Otp, req.SessionDuration, deviceFrom(r))
	if err != nil {
		h.respondAuthError(w, err, "Failed to verify OTP")
		return
	}

	h.setSessionCookie(w, result.Session.ID.String(), result.Session.ExpiresAt)
	h.respondWithJSON(w, http.StatusOK, successResponse(map[string]interface{}{
		"userId":    result.User.ID,
		"name":      result.User.Name,
		"role":      result.User.Role,
		"expiresAt": result.Session.ExpiresAt,
	}, "Logged in"))
}

// Logout handles POST /auth/logout. The cookie is cleared even when it
// does not resolve to a live session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearSessionCookie(w)

	token := h.sessionToken(r)
	if token == "" {
		h.respondWithJSON(w, http.StatusOK, successResponse(nil, "Logged out"))
		return
	}

	device := deviceFrom(r)
	_, session, err := h.sessions.Resolve(r.Context(), token, device)
	if err != nil {
		if errors.Is(err, service.ErrSessionInvalid) {
			h.respondWithJSON(w, http.StatusOK, successResponse(nil, "Logged out"))
			return
		}
		h.respondAuthError(w, err, "Failed to log out")
		return
	}

	if err := h.sessions.Logout(r.Context(), session, device); err != nil {
		h.respondAuthError(w, err, "Failed to log out")
		return
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(nil, "Logged out"))
}

type logoutAllRequest struct {
	Password string `json:"password"`
}

// LogoutAll handles POST /auth/logout-all.
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	user, session := MustAuth(r.Context())

	var req logoutAllRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, service.ErrInvalidInput, "Invalid request body")
		return
	}
	if err := h.auth.VerifyPassword(user, req.Password); err != nil {
		h.respondAuthError(w, err, "Failed to log out all sessions")
		return
	}

	count, err := h.sessions.RevokeAll(r.Context(), user, session, deviceFrom(r))
	if err != nil {
		h.respondAuthError(w, err, "Failed to log out all sessions")
		return
	}

	h.clearSessionCookie(w)
	h.respondWithJSON(w, http.StatusOK, successResponse(map[string]interface{}{
		"sessionsDeleted": count,
	}, "All sessions logged out"))
}

type logoutOtherRequest struct {
	SessionID string `json:"sessionId"`
	Password  string `json:"password"`
}

// LogoutOther handles POST /auth/logout-other.
func (h *AuthHandler) LogoutOther(w http.ResponseWriter, r *http.Request) {
	user, session := MustAuth(r.Context())

	var req logoutOtherRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, service.ErrInvalidInput, "Invalid request body")
		return
	}
	targetID, err := uuid.Parse(req.SessionID)
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, service.ErrInvalidInput, "Invalid session id")
		return
	}
	if err := h.auth.VerifyPassword(user, req.Password); err != nil {
		h.respondAuthError(w, err, "Failed to log out session")
		return
	}

	if err := h.sessions.RevokeOther(r.Context(), user, session, targetID, deviceFrom(r)); err != nil {
		h.respondAuthError(w, err, "Failed to log out session")
		return
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(nil, "Session logged out"))
}

// ListSessions handles GET /auth/sessions.
func (h *AuthHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	user, session := MustAuth(r.Context())

	views, err := h.sessions.List(r.Context(), user.ID, session.ID)
	if err != nil {
		h.respondAuthError(w, err, "Failed to list sessions")
		return
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(map[string]interface{}{
		"sessions": views,
	}, "Sessions retrieved"))
}

// RevokeSession handles DELETE /auth/sessions/{sessionID}. Revoking the
// current session clears the cookie.
func (h *AuthHandler) RevokeSession(w http.ResponseWriter, r *http.Request) {
	user, session := MustAuth(r.Context())

	targetID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, service.ErrInvalidInput, "Invalid session id")
		return
	}

	if err := h.sessions.RevokeByID(r.Context(), user, session, targetID, deviceFrom(r)); err != nil {
		h.respondAuthError(w, err, "Failed to revoke session")
		return
	}
	if targetID == session.ID {
		h.clearSessionCookie(w)
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(nil, "Session revoked"))
}

// RunCleanup handles GET /cron/cleanup, guarded by a bearer secret.
func (h *AuthHandler) RunCleanup(w http.ResponseWriter, r *http.Request) {
	if h.cronKey == "" || r.Header.Get("Authorization") != "Bearer "+h.cronKey {
		h.respondWithError(w, http.StatusUnauthorized, service.ErrUnauthorized, "Invalid cron credentials")
		return
	}

	report, err := h.cleanup.Run(r.Context())
	if err != nil {
		h.respondWithError(w, http.StatusInternalServerError, err, "Cleanup run failed")
		return
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(report, "Cleanup completed"))
}

func (h *AuthHandler) sessionToken(r *http.Request) string {
	cookie, err := r.Cookie(h.cfg.CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.CookieName,
		Value:    token,
		Path:     "/",
		Domain:   h.cfg.CookieDomain,
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   h.cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.CookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.cfg.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// deviceFrom builds the request's device metadata from its headers.
func deviceFrom(r *http.Request) service.DeviceInfo {
	return service.ParseDevice(r.UserAgent(), util.ExtractIPAddress(r))
}

// respondAuthError maps a service error to its HTTP status and writes
// the envelope, attaching rate-limit and attempt detail where present.
func (h *AuthHandler) respondAuthError(w http.ResponseWriter, err error, message string) {
	statusCode := h.getStatusCode(err)
	resp := errorResponse(err, message)

	var rle *service.RateLimitError
	if errors.As(err, &rle) {
		waitSeconds := int(rle.RetryAfter.Round(time.Second) / time.Second)
		if waitSeconds < 1 {
			waitSeconds = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(waitSeconds))
		resp.Data = map[string]interface{}{"waitSeconds": waitSeconds}
	}
	var oae *service.OtpAttemptError
	if errors.As(err, &oae) {
		resp.Data = map[string]interface{}{"remainingAttempts": oae.Remaining}
	}

	h.logger.Warn("HTTP error response",
		util.ErrorField(err),
		util.Int("status_code", statusCode),
		util.String("message", message),
	)
	h.respondWithJSON(w, statusCode, resp)
}

func (h *AuthHandler) getStatusCode(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrAccountSuspended):
		return http.StatusForbidden
	case errors.Is(err, service.ErrRateLimited), errors.Is(err, service.ErrOtpExhausted):
		return http.StatusTooManyRequests
	case errors.Is(err, service.ErrOtpNotFound), errors.Is(err, service.ErrOtpExpired), errors.Is(err, service.ErrOtpInvalid):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrSessionInvalid):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, service.ErrDeliveryFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *AuthHandler) respondWithJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", util.ErrorField(err))
	}
}

func (h *AuthHandler) respondWithError(w http.ResponseWriter, statusCode int, err error, message string) {
	h.logger.Warn("HTTP error response",
		util.ErrorField(err),
		util.Int("status_code", statusCode),
		util.String("message", message),
	)
	h.respondWithJSON(w, statusCode, errorResponse(err, message))
}
