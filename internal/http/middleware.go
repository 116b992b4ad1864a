package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	domainauth "github.com/target/exam-portal/internal/domain/auth"
	apperrors "github.com/target/exam-portal/internal/errors"
	"github.com/target/exam-portal/internal/ports"
	"github.com/target/exam-portal/internal/session"
)

// DeviceCookie names the cookie that binds a browser to its session store.
const DeviceCookie = "device_id"

const deviceCookieMaxAge = 400 * 24 * time.Hour

// Logging returns a middleware that logs HTTP requests and responses.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &respWriter{ResponseWriter: w, status: http.StatusOK}
			fields := &logFields{}
			next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), logFieldsKey{}, fields)))
			attrs := []any{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			}
			if fields.device != "" {
				attrs = append(attrs, slog.String("device", fields.device))
			}
			logger.InfoContext(r.Context(), "http", attrs...)
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status int
}

// logFields lets inner middleware add attributes to the request log line.
type logFields struct{ device string }

type logFieldsKey struct{}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *respWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// Recover returns a middleware that recovers from panics and logs them.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}
					logger.Error("panic",
						slog.Any("error", err),
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method),
						slog.String("stack", string(debug.Stack())))
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// DeviceSessionConfig configures DeviceSession.
type DeviceSessionConfig struct {
	Registry     *session.Registry
	CookieDomain string
	// Secure marks the device cookie Secure; set it when served over TLS.
	Secure bool
	Logger *slog.Logger
}

// DeviceSession issues the device cookie when absent, resolves the device's session
// store from the registry (rehydrating it on first use) and attaches it to the context.
func DeviceSession(cfg DeviceSessionConfig) func(http.Handler) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			device := deviceFromRequest(r)
			if device == "" {
				device = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     DeviceCookie,
					Value:    device,
					Path:     "/",
					Domain:   cfg.CookieDomain,
					MaxAge:   int(deviceCookieMaxAge / time.Second),
					HttpOnly: true,
					Secure:   cfg.Secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			st, err := cfg.Registry.Get(r.Context(), device)
			if err != nil {
				logger.ErrorContext(r.Context(), "resolve device session failed", "error", err)
				http.Error(w, "Session unavailable", http.StatusServiceUnavailable)
				return
			}
			ctx := SetDeviceInContext(r.Context(), device)
			ctx = SetStoreInContext(ctx, st)
			if f, ok := r.Context().Value(logFieldsKey{}).(*logFields); ok {
				f.device = device
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func deviceFromRequest(r *http.Request) string {
	c, err := r.Cookie(DeviceCookie)
	if err != nil {
		return ""
	}
	id, err := uuid.Parse(c.Value)
	if err != nil {
		return ""
	}
	return id.String()
}

// RequireToken returns a middleware that verifies the bearer token and attaches its
// claims to the context. Missing or invalid tokens get a 401 JSON response.
func RequireToken(verifier ports.TokenVerifier, rec APIErrorRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				WriteAppError(w, rec, apperrors.Unauthenticated("Authentication required"))
				return
			}
			claims, err := verifier.Verify(r.Context(), raw)
			if err != nil {
				if errors.Is(err, domainauth.ErrUnauthorized) {
					err = apperrors.Wrap(err, apperrors.ErrCodeUnauthenticated, "Invalid or expired token")
				}
				WriteAppError(w, rec, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(SetClaimsInContext(r.Context(), claims)))
		})
	}
}

// RequireRole returns a middleware that admits only callers whose token carries one of
// roles. It must run after RequireToken.
func RequireRole(rec APIErrorRecorder, roles ...domainauth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := GetClaimsFromContext(r.Context())
			if !ok {
				WriteAppError(w, rec, apperrors.Unauthenticated("Authentication required"))
				return
			}
			if !claims.Role.In(roles) {
				WriteAppError(w, rec, apperrors.Forbidden("Insufficient permissions"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}

// chain applies middlewares so the first one listed runs outermost.
func chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
