package httpx

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	examportal "github.com/target/exam-portal"
	"github.com/target/exam-portal/internal/adapters/kvstore"
	"github.com/target/exam-portal/internal/adapters/mockgateway"
	"github.com/target/exam-portal/internal/apiclient"
	domainauth "github.com/target/exam-portal/internal/domain/auth"
	"github.com/target/exam-portal/internal/data"
	"github.com/target/exam-portal/internal/ports"
	"github.com/target/exam-portal/internal/service"
	"github.com/target/exam-portal/internal/session"
	"github.com/target/exam-portal/internal/token"
)

const testPassword = "secret"

// testClock is inside the fixture Mathematics exam window (10:00 to 12:00 UTC).
var testClock = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type recordedGuard struct{ view, kind string }

type fakeRecorder struct {
	mu        sync.Mutex
	apiErrors []string
	guards    []recordedGuard
}

func (f *fakeRecorder) RecordAPIError(status, class string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.apiErrors = append(f.apiErrors, status+":"+class)
}

func (f *fakeRecorder) RecordGuard(view, kind string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.guards = append(f.guards, recordedGuard{view: view, kind: kind})
}

func (f *fakeRecorder) guardKinds() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.guards))
	for _, g := range f.guards {
		out = append(out, g.kind)
	}
	return out
}

// testEnv is the full server: JSON API and dashboards on one listener, the dashboards
// calling back into the API over HTTP the way a deployment does.
type testEnv struct {
	srv      *httptest.Server
	tokens   *token.Manager
	registry *session.Registry
	metrics  *fakeRecorder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := discardLogger()
	clock := func() time.Time { return testClock }

	tokens, err := token.NewManager(token.Options{SigningKey: []byte(strings.Repeat("k", 32))})
	require.NoError(t, err)
	gw := mockgateway.New(mockgateway.Config{Delay: -1, Password: testPassword, Issuer: tokens})
	authSvc, err := service.NewAuthService(service.AuthServiceOptions{Gateway: gw, Tokens: tokens, Logger: logger})
	require.NoError(t, err)

	fx := data.NewFixtures(data.NewFixedTimeProvider(testClock))

	var handler http.Handler
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	api, err := apiclient.New(apiclient.Config{BaseURL: srv.URL + "/api", Timeout: 5 * time.Second, Logger: logger})
	require.NoError(t, err)

	backing := kvstore.NewMemory()
	registry, err := session.NewRegistry(session.RegistryOptions{
		Gateway: apiclient.NewGateway(api),
		StorageFor: func(device string) ports.Storage {
			return kvstore.NewNamespaced(backing, device)
		},
		Logger: logger,
	})
	require.NoError(t, err)

	templates, err := examportal.Templates()
	require.NoError(t, err)
	renderer, err := NewTemplateRenderer(TemplateRendererConfig{TemplateFS: templates, Logger: logger})
	require.NoError(t, err)
	static, err := examportal.Static()
	require.NoError(t, err)

	rec := &fakeRecorder{}
	handler = NewRouter(RouterServices{
		Auth: authSvc,
		Student: service.NewStudentService(service.StudentServiceOptions{
			Repos:  service.StudentRepos{Exams: fx.Exams, Results: fx.Results, Submissions: fx.Submissions},
			Now:    clock,
			Logger: logger,
		}),
		Teacher: service.NewTeacherService(service.TeacherServiceOptions{Exams: fx.Exams, Submissions: fx.Submissions, Logger: logger}),
		Admin: service.NewAdminService(service.AdminServiceOptions{
			Repos:  service.AdminRepos{Accounts: fx.Accounts, Exams: fx.Exams, Submissions: fx.Submissions, Monitoring: fx.Monitoring},
			Logger: logger,
		}),
		Proctor:   service.NewProctorService(service.ProctorServiceOptions{Monitoring: fx.Monitoring, Now: clock, Logger: logger}),
		Registry:  registry,
		API:       api,
		Renderer:  renderer,
		StaticFS:  static,
		Metrics:   rec,
		EnableAPI: true,
		EnableUI:  true,
		Logger:    logger,
		Now:       clock,
	})

	return &testEnv{srv: srv, tokens: tokens, registry: registry, metrics: rec}
}

// browser returns a client with a cookie jar that does not follow redirects.
func (e *testEnv) browser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar:     jar,
		Timeout: 10 * time.Second,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

type result struct {
	status   int
	location string
	header   http.Header
	body     string
}

func (e *testEnv) get(t *testing.T, c *http.Client, path string) result {
	t.Helper()
	resp, err := c.Get(e.srv.URL + path)
	require.NoError(t, err)
	return readResult(t, resp)
}

// post submits form the way a rendered page does, echoing the CSRF cookie in the
// csrf_token field. A fresh client loads /login first to receive its cookies.
func (e *testEnv) post(t *testing.T, c *http.Client, path string, form url.Values) result {
	t.Helper()
	withToken := url.Values{}
	for k, v := range form {
		withToken[k] = v
	}
	withToken.Set(CSRFCookie, e.csrfToken(t, c))
	return e.postRaw(t, c, path, withToken)
}

// postRaw submits form unchanged.
func (e *testEnv) postRaw(t *testing.T, c *http.Client, path string, form url.Values) result {
	t.Helper()
	resp, err := c.PostForm(e.srv.URL+path, form)
	require.NoError(t, err)
	return readResult(t, resp)
}

// csrfToken returns the CSRF cookie held by c's jar.
func (e *testEnv) csrfToken(t *testing.T, c *http.Client) string {
	t.Helper()
	u, err := url.Parse(e.srv.URL)
	require.NoError(t, err)
	find := func() string {
		for _, ck := range c.Jar.Cookies(u) {
			if ck.Name == CSRFCookie {
				return ck.Value
			}
		}
		return ""
	}
	if tok := find(); tok != "" {
		return tok
	}
	e.get(t, c, "/login")
	tok := find()
	require.NotEmpty(t, tok, "no csrf cookie issued")
	return tok
}

func readResult(t *testing.T, resp *http.Response) result {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return result{status: resp.StatusCode, location: resp.Header.Get("Location"), header: resp.Header, body: string(body)}
}

// signIn logs c in through the login form as role.
func (e *testEnv) signIn(t *testing.T, c *http.Client, role domainauth.Role) {
	t.Helper()
	res := e.post(t, c, "/login", url.Values{
		"role":     {string(role)},
		"email":    {string(role) + "@example.com"},
		"password": {testPassword},
	})
	require.Equal(t, http.StatusSeeOther, res.status, res.body)
	require.Equal(t, "/dashboard", res.location)
}

// store returns the session store behind c's device cookie.
func (e *testEnv) store(t *testing.T, c *http.Client) *session.Store {
	t.Helper()
	u, err := url.Parse(e.srv.URL)
	require.NoError(t, err)
	for _, ck := range c.Jar.Cookies(u) {
		if ck.Name == DeviceCookie {
			st, err := e.registry.Get(context.Background(), ck.Value)
			require.NoError(t, err)
			return st
		}
	}
	t.Fatal("no device cookie")
	return nil
}

// apiToken logs in through the JSON API and returns the bearer token.
func (e *testEnv) apiToken(t *testing.T, role domainauth.Role) string {
	t.Helper()
	res := e.apiCall(t, http.MethodPost, "/api/auth/login", "",
		`{"email":"`+string(role)+`@example.com","password":"`+testPassword+`","role":"`+string(role)+`"}`)
	require.Equal(t, http.StatusOK, res.status, res.body)
	var out domainauth.LoginResponse
	require.NoError(t, json.Unmarshal([]byte(res.body), &out))
	require.True(t, out.Success)
	require.NotEmpty(t, out.Token)
	return out.Token
}

func (e *testEnv) apiCall(t *testing.T, method, path, bearer, body string) result {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, rdr)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return readResult(t, resp)
}
