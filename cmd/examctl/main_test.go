package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/exam-portal/config"
	"github.com/target/exam-portal/internal/adapters/kvstore"
	"github.com/target/exam-portal/internal/bootstrap"
	"github.com/target/exam-portal/internal/session"
)

type harness struct {
	cmdCtx *commandContext
	out    *bytes.Buffer
	errOut *bytes.Buffer
	file   string
}

func apiConfig() *config.AppConfig {
	return &config.AppConfig{
		IsDev:    true,
		Services: "api",
		Auth: config.AuthConfig{
			Mode:         config.AuthModeMock,
			Gateway:      config.GatewayLocal,
			MockPassword: "password",
			TokenTTL:     time.Hour,
		},
		API:      config.APIConfig{Timeout: 5 * time.Second},
		Storage:  config.StorageConfig{Backend: config.StorageMemory},
		Sessions: config.SessionsConfig{IdleTTL: time.Minute, ReapInterval: time.Minute},
	}
}

// newHarness serves the JSON API in-process and points a fresh session file at it.
func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := apiConfig()

	svcs, err := bootstrap.NewServices(context.Background(), &bootstrap.ServiceDeps{Config: cfg, Logger: logger})
	require.NoError(t, err)
	handler, err := bootstrap.BuildHTTPHandler(cfg, svcs, logger)
	require.NoError(t, err)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	h := &harness{
		out:    &bytes.Buffer{},
		errOut: &bytes.Buffer{},
		file:   filepath.Join(t.TempDir(), "examportal", "session.json"),
	}
	h.cmdCtx = &commandContext{
		Ctx:         context.Background(),
		Logger:      logger,
		Config:      *cfg,
		Out:         h.out,
		Err:         h.errOut,
		SessionFile: h.file,
		APIBaseURL:  srv.URL + "/api",
	}
	return h
}

func (h *harness) run(t *testing.T, name string, args ...string) (string, error) {
	t.Helper()
	cmd, ok := commands()[name]
	require.True(t, ok, "unknown command %s", name)
	h.out.Reset()
	err := cmd.run(h.cmdCtx, args)
	return h.out.String(), err
}

func (h *harness) login(t *testing.T, role string) {
	t.Helper()
	_, err := h.run(t, "login", "--role", role, "--email", role+"@school.edu", "--password", "password")
	require.NoError(t, err)
}

func TestLogin_PersistsSessionAcrossInvocations(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "login", "--role", "student", "--email", "john@school.edu", "--password", "password")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as John Doe (student)")
	assert.Contains(t, out, "Dashboard: /student")

	file, err := kvstore.NewFile(h.file)
	require.NoError(t, err)
	role, ok, err := file.Get(context.Background(), session.KeyRole)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "student", role)

	out, err = h.run(t, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "John Doe")
	assert.Contains(t, out, "john@school.edu")
	assert.Contains(t, out, "ST001")
}

func TestLogin_Rejected(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "login", "--role", "student", "--email", "john@school.edu", "--password", "nope")
	require.Error(t, err)

	_, err = h.run(t, "whoami")
	require.ErrorIs(t, err, errNotSignedIn)
}

func TestLogin_UnknownRole(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, "login", "--role", "janitor", "--email", "a@b.c", "--password", "password")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--role")
}

func TestLogin_SwitchesAccounts(t *testing.T) {
	h := newHarness(t)
	h.login(t, "teacher")

	out, err := h.run(t, "login", "--role", "student", "--email", "john@school.edu", "--password", "password")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as John Doe (student)")

	// A failed switch leaves no trace of the previous account.
	_, err = h.run(t, "login", "--role", "admin", "--email", "root@school.edu", "--password", "")
	require.Error(t, err)

	file, err := kvstore.NewFile(h.file)
	require.NoError(t, err)
	for _, key := range session.Keys() {
		_, ok, err := file.Get(context.Background(), key)
		require.NoError(t, err)
		assert.False(t, ok, key)
	}
	_, err = h.run(t, "whoami")
	require.ErrorIs(t, err, errNotSignedIn)
}

func TestStudentCommands(t *testing.T) {
	h := newHarness(t)
	h.login(t, "student")

	out, err := h.run(t, "exams")
	require.NoError(t, err)
	assert.Contains(t, out, "Mathematics Final Exam")
	assert.Contains(t, out, "AVAILABILITY")

	out, err = h.run(t, "results")
	require.NoError(t, err)
	assert.Contains(t, out, "Physics Midterm")
}

func TestRoleMismatch(t *testing.T) {
	h := newHarness(t)
	h.login(t, "student")

	_, err := h.run(t, "stats")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "needs the admin role")

	_, err = h.run(t, "active-exams")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "needs the proctor role")
}

func TestDataCommandsRequireLogin(t *testing.T) {
	h := newHarness(t)
	for _, name := range []string{"exams", "results", "users", "stats", "active-exams"} {
		_, err := h.run(t, name)
		require.ErrorIs(t, err, errNotSignedIn, name)
	}
}

func TestAdminCommands(t *testing.T) {
	h := newHarness(t)
	h.login(t, "admin")

	out, err := h.run(t, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Total Users")

	out, err = h.run(t, "users")
	require.NoError(t, err)
	assert.Contains(t, out, "EMAIL")
	assert.Contains(t, out, "accounts:")
}

func TestOpen_PrintsGuardDecision(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "open", "/teacher")
	require.NoError(t, err)
	assert.Equal(t, "/teacher: redirect_login -> /login\n", out)

	h.login(t, "teacher")

	out, err = h.run(t, "open", "/teacher")
	require.NoError(t, err)
	assert.Equal(t, "/teacher: render teacher_dashboard\n", out)

	out, err = h.run(t, "open", "/admin")
	require.NoError(t, err)
	assert.Equal(t, "/admin: redirect_unauthorized -> /unauthorized\n", out)

	out, err = h.run(t, "open", "/login")
	require.NoError(t, err)
	assert.Equal(t, "/login: redirect -> /dashboard\n", out)

	out, err = h.run(t, "open", "/nowhere")
	require.NoError(t, err)
	assert.Equal(t, "/nowhere: not_found\n", out)
}

func TestUnauthorizedClearsSession(t *testing.T) {
	h := newHarness(t)
	h.login(t, "student")

	file, err := kvstore.NewFile(h.file)
	require.NoError(t, err)
	require.NoError(t, file.Set(context.Background(), session.KeyToken, "not-a-valid-token"))

	_, err = h.run(t, "exams")
	require.ErrorIs(t, err, errSessionExpired)
	assert.Contains(t, h.errOut.String(), "examctl login")

	for _, key := range session.Keys() {
		_, ok, err := file.Get(context.Background(), key)
		require.NoError(t, err)
		assert.False(t, ok, key)
	}
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	h.login(t, "proctor")

	out, err := h.run(t, "logout")
	require.NoError(t, err)
	assert.Equal(t, "Signed out\n", out)

	_, err = h.run(t, "whoami")
	require.ErrorIs(t, err, errNotSignedIn)

	out, err = h.run(t, "logout")
	require.NoError(t, err)
	assert.Equal(t, "Signed out\n", out)
}

func TestSealedSessionFile(t *testing.T) {
	h := newHarness(t)
	h.cmdCtx.Config.Storage.EncryptionKey = "correct horse battery staple"
	h.login(t, "teacher")

	raw, err := kvstore.NewFile(h.file)
	require.NoError(t, err)
	role, ok, err := raw.Get(context.Background(), session.KeyRole)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEqual(t, "teacher", role)

	out, err := h.run(t, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Jane Smith")
}

func TestParseArgs(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "exam")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "usage: examctl exam ID")

	_, err = h.run(t, "exam", "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid exam id "abc"`)

	_, err = h.run(t, "whoami", "--help")
	require.ErrorIs(t, err, pflag.ErrHelp)
}

func TestPrintUsageListsCommands(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printUsage(&buf))
	for name := range commands() {
		assert.Contains(t, buf.String(), name)
	}
}

func TestMigrateFlags(t *testing.T) {
	h := newHarness(t)

	opts, err := parseMigrateFlags(h.cmdCtx, nil)
	require.NoError(t, err)
	assert.Equal(t, defaultMigrationTimeout, opts.Timeout)

	_, err = parseMigrateFlags(h.cmdCtx, []string{"--timeout", "0s"})
	require.Error(t, err)
}
