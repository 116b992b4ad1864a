package httpx

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	// CSRFCookie holds the double-submit token. Forms echo it in the csrf_token field.
	CSRFCookie = "csrf_token"
	// CSRFHeader carries the token on htmx requests.
	CSRFHeader = "X-Csrf-Token"

	csrfTokenBytes   = 32
	csrfCookieMaxAge = 12 * time.Hour
)

// CSRFConfig configures CSRFProtection.
type CSRFConfig struct {
	CookieDomain string
	// Secure marks the cookie Secure even when the request arrived over plain HTTP,
	// for deployments behind a proxy that does not set X-Forwarded-Proto.
	Secure bool
	Logger *slog.Logger
}

// CSRFProtection guards the dashboard's state-changing requests with a
// double-submit token. The token lives in a cookie readable by htmx and must be
// echoed in the X-Csrf-Token header or the csrf_token form field on every POST.
// Handlers read it with GetCSRFToken to embed it in rendered forms.
func CSRFProtection(cfg CSRFConfig) func(http.Handler) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := csrfCookieValue(r)
			if token == "" {
				var err error
				token, err = newCSRFToken()
				if err != nil {
					logger.ErrorContext(r.Context(), "generate csrf token failed", "error", err)
					http.Error(w, "Unable to start a session", http.StatusInternalServerError)
					return
				}
				http.SetCookie(w, &http.Cookie{
					Name:     CSRFCookie,
					Value:    token,
					Path:     "/",
					Domain:   cfg.CookieDomain,
					MaxAge:   int(csrfCookieMaxAge / time.Second),
					HttpOnly: false,
					Secure:   cfg.Secure || r.TLS != nil || isForwardedHTTPS(r),
					SameSite: http.SameSiteStrictMode,
				})
			}

			r = r.WithContext(context.WithValue(r.Context(), csrfTokenKey{}, token))

			if !isSafeMethod(r.Method) && !csrfTokenMatches(r, token) {
				logger.WarnContext(r.Context(), "csrf token rejected",
					"method", r.Method, "path", r.URL.Path, "device", GetDeviceFromContext(r.Context()))
				http.Error(w, "Your form has expired. Reload the page and try again.", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	default:
		return false
	}
}

func csrfCookieValue(r *http.Request) string {
	c, err := r.Cookie(CSRFCookie)
	if err != nil {
		return ""
	}
	return c.Value
}

// newCSRFToken fails closed: there is no fallback to a predictable token.
func newCSRFToken() (string, error) {
	b := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("csrf token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// isForwardedHTTPS reports whether a proxy saw the request over HTTPS.
// X-Forwarded-Proto may hold a comma-separated chain.
func isForwardedHTTPS(r *http.Request) bool {
	for _, proto := range strings.Split(r.Header.Get("X-Forwarded-Proto"), ",") {
		if strings.EqualFold(strings.TrimSpace(proto), "https") {
			return true
		}
	}
	return false
}

// csrfTokenMatches compares the submitted token to the cookie in constant time.
// The header wins over the form field; only form-encoded bodies are parsed.
func csrfTokenMatches(r *http.Request, cookieToken string) bool {
	if cookieToken == "" {
		return false
	}
	submitted := r.Header.Get(CSRFHeader)
	if submitted == "" {
		ct := r.Header.Get("Content-Type")
		if !strings.HasPrefix(ct, "application/x-www-form-urlencoded") && !strings.HasPrefix(ct, "multipart/form-data") {
			return false
		}
		submitted = r.PostFormValue(CSRFCookie)
	}
	if submitted == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(submitted), []byte(cookieToken)) == 1
}

type csrfTokenKey struct{}

// GetCSRFToken returns the token CSRFProtection attached to r, or "".
func GetCSRFToken(r *http.Request) string {
	token, _ := r.Context().Value(csrfTokenKey{}).(string)
	return token
}
