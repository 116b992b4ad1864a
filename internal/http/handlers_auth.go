package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	domainauth "github.com/target/exam-portal/internal/domain/auth"
	apperrors "github.com/target/exam-portal/internal/errors"
	"github.com/target/exam-portal/internal/service"
)

// AuthHandlers serves /api/auth. Login answers with the gateway contract
// {success, user, token} or {success:false, message}.
type AuthHandlers struct {
	Svc     *service.AuthService
	Metrics APIErrorRecorder
	Logger  *slog.Logger
}

// Login handles POST /api/auth/login. A rejected login is 401, a malformed body 400
// and an unreachable identity provider 503; all three carry a message.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req domainauth.LoginRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	grant, err := h.Svc.Login(r.Context(), req)
	if err != nil {
		status := http.StatusUnauthorized
		msg := "Invalid credentials"
		var rejected *domainauth.RejectedError
		switch {
		case errors.As(err, &rejected):
			msg = rejected.Error()
		case errors.Is(err, domainauth.ErrGatewayUnreachable):
			status = http.StatusServiceUnavailable
			msg = "Unable to reach the authentication service"
		case !errors.Is(err, domainauth.ErrInvalidCredentials):
			WriteAppError(w, h.Metrics, err)
			return
		}
		if h.Metrics != nil {
			h.Metrics.RecordAPIError(statusLabel(status), "login_failed")
		}
		WriteJSON(w, status, domainauth.LoginResponse{Success: false, Message: msg})
		return
	}

	user := grant.User
	WriteJSON(w, http.StatusOK, domainauth.LoginResponse{Success: true, User: &user, Token: grant.Token})
}

// Logout handles POST /api/auth/logout by revoking the caller's token.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.Logout(r.Context(), bearerToken(r)); err != nil {
		if errors.Is(err, domainauth.ErrUnauthorized) {
			err = apperrors.Wrap(err, apperrors.ErrCodeUnauthenticated, "Invalid or expired token")
		}
		WriteAppError(w, h.Metrics, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Refresh handles POST /api/auth/refresh.
func (h *AuthHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	next, err := h.Svc.Refresh(r.Context(), bearerToken(r))
	if err != nil {
		if errors.Is(err, domainauth.ErrUnauthorized) {
			err = apperrors.Wrap(err, apperrors.ErrCodeUnauthenticated, "Invalid or expired token")
		}
		WriteAppError(w, h.Metrics, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"token": next})
}
