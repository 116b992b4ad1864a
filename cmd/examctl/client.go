package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/target/exam-portal/internal/adapters/kvstore"
	"github.com/target/exam-portal/internal/apiclient"
	"github.com/target/exam-portal/internal/bootstrap"
	domainauth "github.com/target/exam-portal/internal/domain/auth"
	"github.com/target/exam-portal/internal/guard"
	"github.com/target/exam-portal/internal/ports"
	"github.com/target/exam-portal/internal/session"
)

const deviceName = "examctl"

var (
	errNotSignedIn    = errors.New("not signed in: run `examctl login` first")
	errSessionExpired = errors.New("session expired")
)

// client is the one session this process works with.
type client struct {
	cmdCtx  *commandContext
	store   *session.Store
	api     *apiclient.Client
	session *apiclient.Session
	expired bool
}

func defaultSessionFile() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "examportal", "session.json"), nil
}

func (c *commandContext) sessionFile() (string, error) {
	if c.SessionFile != "" {
		return c.SessionFile, nil
	}
	return defaultSessionFile()
}

func (c *commandContext) apiBaseURL() string {
	if c.APIBaseURL != "" {
		return c.APIBaseURL
	}
	return c.Config.API.BaseURL
}

//nolint:ireturn // sealing is optional.
func openStorage(cmdCtx *commandContext) (ports.Storage, error) {
	path, err := cmdCtx.sessionFile()
	if err != nil {
		return nil, err
	}
	file, err := kvstore.NewFile(path)
	if err != nil {
		return nil, fmt.Errorf("open session file: %w", err)
	}
	if !cmdCtx.Config.Storage.Encrypted() {
		return file, nil
	}
	sealer, err := bootstrap.NewSealer(cmdCtx.Config.Storage.EncryptionKey, cmdCtx.Logger)
	if err != nil {
		return nil, err
	}
	return kvstore.NewSealed(file, sealer), nil
}

// openClient rehydrates the stored session and binds an API client to it.
func openClient(cmdCtx *commandContext) (*client, error) {
	storage, err := openStorage(cmdCtx)
	if err != nil {
		return nil, err
	}
	api, err := apiclient.New(apiclient.Config{
		BaseURL:    cmdCtx.apiBaseURL(),
		Timeout:    cmdCtx.Config.API.Timeout,
		HTTPClient: cmdCtx.HTTPClient,
		Logger:     cmdCtx.Logger,
	})
	if err != nil {
		return nil, err
	}
	store, err := session.NewStore(session.Options{
		Gateway: apiclient.NewGateway(api),
		Storage: storage,
		Logger:  cmdCtx.Logger,
		Device:  deviceName,
	})
	if err != nil {
		return nil, err
	}
	store.Initialize(cmdCtx.Ctx)

	c := &client{cmdCtx: cmdCtx, store: store, api: api}
	c.session = api.Session(apiclient.SessionOptions{Tokens: store, OnUnauthorized: c.expire})
	return c, nil
}

// expire clears the session file after the API rejected the token.
func (c *client) expire(ctx context.Context) {
	if err := c.store.Expire(ctx); err != nil {
		c.cmdCtx.Logger.Warn("clear expired session", "error", err)
	}
	c.expired = true
	if err := writeln(c.cmdCtx.Err, "Your session has expired. Run `examctl login` to sign in again."); err != nil {
		c.cmdCtx.Logger.Warn("print expiry notice", "error", err)
	}
}

// apiErr maps a failed API call to the command result.
func (c *client) apiErr(err error) error {
	if err == nil {
		return nil
	}
	if c.expired || apiclient.Status(err) == http.StatusUnauthorized {
		return errSessionExpired
	}
	return err
}

// requireRole checks the stored session against the dashboard for role, the same
// way the web dashboard guards it.
func (c *client) requireRole(role domainauth.Role) error {
	state := c.store.State()
	d := guard.Evaluate(state, []domainauth.Role{role}, "")
	switch d.Kind {
	case guard.KindRedirectToLogin:
		return errNotSignedIn
	case guard.KindRedirectToUnauthorized:
		return fmt.Errorf("signed in as %s: this command needs the %s role", state.Role, role)
	case guard.KindLoading:
		return errors.New("session is still loading")
	default:
		return nil
	}
}

// requireAnyRole returns the session role when it is one of roles.
func (c *client) requireAnyRole(roles ...domainauth.Role) (domainauth.Role, error) {
	state := c.store.State()
	d := guard.Evaluate(state, roles, "")
	switch d.Kind {
	case guard.KindRedirectToLogin:
		return "", errNotSignedIn
	case guard.KindRedirectToUnauthorized:
		return "", fmt.Errorf("signed in as %s: this command is not available to that role", state.Role)
	case guard.KindLoading:
		return "", errors.New("session is still loading")
	default:
		return state.Role, nil
	}
}

// withRole opens the session, checks role and runs fn.
func withRole(cmdCtx *commandContext, role domainauth.Role, fn func(c *client) error) error {
	c, err := openClient(cmdCtx)
	if err != nil {
		return err
	}
	if err := c.requireRole(role); err != nil {
		return err
	}
	return c.apiErr(fn(c))
}

func parseID(raw, what string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", what, raw)
	}
	return id, nil
}
