package httpx

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func csrfHandler(cfg CSRFConfig) (http.Handler, *string) {
	var seen string
	h := CSRFProtection(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetCSRFToken(r)
		w.WriteHeader(http.StatusOK)
	}))
	return h, &seen
}

func csrfCookieFrom(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	resp := rec.Result()
	defer resp.Body.Close()
	for _, c := range resp.Cookies() {
		if c.Name == CSRFCookie {
			return c
		}
	}
	return nil
}

// issueCSRFToken performs a GET and returns the cookie it set.
func issueCSRFToken(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/student", nil))
	c := csrfCookieFrom(t, rec)
	require.NotNil(t, c)
	require.NotEmpty(t, c.Value)
	return c.Value
}

func TestCSRFProtection_GetIssuesToken(t *testing.T) {
	h, seen := csrfHandler(CSRFConfig{Logger: discardLogger()})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	c := csrfCookieFrom(t, rec)
	require.NotNil(t, c)
	assert.Equal(t, c.Value, *seen, "handlers see the cookie token")
	assert.False(t, c.HttpOnly, "htmx reads the cookie")
	assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
	assert.Equal(t, "/", c.Path)
	assert.False(t, c.Secure)
}

func TestCSRFProtection_ExistingCookieIsReused(t *testing.T) {
	h, seen := csrfHandler(CSRFConfig{Logger: discardLogger()})
	tok := issueCSRFToken(t, h)

	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	req.AddCookie(&http.Cookie{Name: CSRFCookie, Value: tok})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Nil(t, csrfCookieFrom(t, rec))
	assert.Equal(t, tok, *seen)
}

func TestCSRFProtection_SafeMethodsExempt(t *testing.T) {
	h, _ := csrfHandler(CSRFConfig{Logger: discardLogger()})
	for _, method := range []string{http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace} {
		t.Run(method, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(method, "/teacher", nil))
			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}
}

func TestCSRFProtection_Validation(t *testing.T) {
	h, _ := csrfHandler(CSRFConfig{Logger: discardLogger()})
	tok := issueCSRFToken(t, h)

	form := func(v url.Values) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/admin/users/1/delete", strings.NewReader(v.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req
	}

	tests := []struct {
		name string
		req  func() *http.Request
		want int
	}{
		{
			name: "no cookie and no token",
			req:  func() *http.Request { return httptest.NewRequest(http.MethodPost, "/logout", nil) },
			want: http.StatusForbidden,
		},
		{
			name: "cookie without token",
			req: func() *http.Request {
				r := form(url.Values{"id": {"1"}})
				r.AddCookie(&http.Cookie{Name: CSRFCookie, Value: tok})
				return r
			},
			want: http.StatusForbidden,
		},
		{
			name: "form token matches",
			req: func() *http.Request {
				r := form(url.Values{CSRFCookie: {tok}})
				r.AddCookie(&http.Cookie{Name: CSRFCookie, Value: tok})
				return r
			},
			want: http.StatusOK,
		},
		{
			name: "form token mismatch",
			req: func() *http.Request {
				r := form(url.Values{CSRFCookie: {"other"}})
				r.AddCookie(&http.Cookie{Name: CSRFCookie, Value: tok})
				return r
			},
			want: http.StatusForbidden,
		},
		{
			name: "header token matches",
			req: func() *http.Request {
				r := httptest.NewRequest(http.MethodPost, "/login/clear-error", nil)
				r.Header.Set(CSRFHeader, tok)
				r.AddCookie(&http.Cookie{Name: CSRFCookie, Value: tok})
				return r
			},
			want: http.StatusOK,
		},
		{
			name: "header token mismatch",
			req: func() *http.Request {
				r := httptest.NewRequest(http.MethodPost, "/login/clear-error", nil)
				r.Header.Set(CSRFHeader, "different")
				r.AddCookie(&http.Cookie{Name: CSRFCookie, Value: tok})
				return r
			},
			want: http.StatusForbidden,
		},
		{
			name: "json body is not searched for a token",
			req: func() *http.Request {
				r := httptest.NewRequest(http.MethodPost, "/teacher/exams", strings.NewReader(`{"csrf_token":"`+tok+`"}`))
				r.Header.Set("Content-Type", "application/json")
				r.AddCookie(&http.Cookie{Name: CSRFCookie, Value: tok})
				return r
			},
			want: http.StatusForbidden,
		},
		{
			name: "query string token is ignored",
			req: func() *http.Request {
				r := form(url.Values{})
				r.URL.RawQuery = url.Values{CSRFCookie: {tok}}.Encode()
				r.AddCookie(&http.Cookie{Name: CSRFCookie, Value: tok})
				return r
			},
			want: http.StatusForbidden,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, tt.req())
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestCSRFProtection_SecureCookie(t *testing.T) {
	t.Run("https request", func(t *testing.T) {
		h, _ := csrfHandler(CSRFConfig{CookieDomain: "exams.example.com", Logger: discardLogger()})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "https://exams.example.com/login", nil))
		c := csrfCookieFrom(t, rec)
		require.NotNil(t, c)
		assert.True(t, c.Secure)
		assert.Equal(t, "exams.example.com", c.Domain)
	})

	t.Run("forwarded proto chain", func(t *testing.T) {
		h, _ := csrfHandler(CSRFConfig{Logger: discardLogger()})
		req := httptest.NewRequest(http.MethodGet, "http://exams.example.com/login", nil)
		req.Header.Set("X-Forwarded-Proto", "http, https")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		c := csrfCookieFrom(t, rec)
		require.NotNil(t, c)
		assert.True(t, c.Secure)
	})

	t.Run("forced by config", func(t *testing.T) {
		h, _ := csrfHandler(CSRFConfig{Secure: true, Logger: discardLogger()})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))
		c := csrfCookieFrom(t, rec)
		require.NotNil(t, c)
		assert.True(t, c.Secure)
	})
}

func TestGetCSRFToken_Absent(t *testing.T) {
	assert.Empty(t, GetCSRFToken(httptest.NewRequest(http.MethodGet, "/", nil)))
}
