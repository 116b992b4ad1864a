// Package session implements the session store: the state machine that owns the
// signed-in identity, rehydrates it from persisted keys and drives login and logout
// through an injected authentication gateway and storage.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	domainauth "github.com/target/exam-portal/internal/domain/auth"
	"github.com/target/exam-portal/internal/ports"
)

// Persisted keys.
const (
	KeyUser  = "userData"
	KeyRole  = "userRole"
	KeyToken = "authToken"
)

// Keys returns every persisted key in write order.
func Keys() []string { return []string{KeyUser, KeyRole, KeyToken} }

var (
	// ErrLoginInProgress is returned when Login is called while the store is loading.
	ErrLoginInProgress = errors.New("login already in progress")
	// ErrAlreadyAuthenticated is returned when Login is called on a signed-in session.
	// The caller logs out first to switch accounts.
	ErrAlreadyAuthenticated = errors.New("already signed in")
	// ErrLoginSuperseded is returned when a logout completed while the gateway call was in flight.
	ErrLoginSuperseded = errors.New("login superseded by logout")
	// ErrPersistFailed wraps storage failures while saving a new session.
	ErrPersistFailed = errors.New("persist session")
)

// Messages surfaced in State.Error.
const (
	MsgMissingFields = "Please fill in all fields"
	MsgMissingRole   = "Please select a role to continue"
	MsgInvalid       = "Invalid credentials"
	MsgUnreachable   = "Unable to reach the authentication service"
	MsgPersistFailed = "Unable to save your session"
	MsgLoginFailed   = "Login failed"
)

// Login outcomes reported to the Recorder.
const (
	OutcomeSuccess      = "success"
	OutcomeRejected     = "invalid_credentials"
	OutcomeUnreachable  = "unreachable"
	OutcomePersistError = "persist_failed"
	OutcomeBusy         = "busy"
	OutcomeSignedIn     = "already_authenticated"
	OutcomeSuperseded   = "superseded"
	OutcomeError        = "error"
)

// Recorder receives session lifecycle events for metrics.
type Recorder interface {
	RecordLogin(role domainauth.Role, outcome string)
	RecordLogout(reason string)
	RecordRehydrate(outcome string)
}

type nopRecorder struct{}

func (nopRecorder) RecordLogin(domainauth.Role, string) {}
func (nopRecorder) RecordLogout(string)                 {}
func (nopRecorder) RecordRehydrate(string)              {}

// Options configures a Store.
type Options struct {
	Gateway ports.AuthGateway
	Storage ports.Storage
	Logger  *slog.Logger
	Metrics Recorder
	// Device labels log lines; it is not persisted.
	Device string
}

// Store is the session state machine for one device. It is safe for concurrent use.
type Store struct {
	gateway ports.AuthGateway
	storage ports.Storage
	logger  *slog.Logger
	metrics Recorder

	mu    sync.Mutex
	state domainauth.State
	// epoch increments on every logout so an in-flight login can detect it was superseded.
	epoch uint64
}

// NewStore constructs a Store in the uninitialized, loading state.
func NewStore(opts Options) (*Store, error) {
	if opts.Gateway == nil {
		return nil, errors.New("session: gateway is required")
	}
	if opts.Storage == nil {
		return nil, errors.New("session: storage is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Device != "" {
		logger = logger.With("device", opts.Device)
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = nopRecorder{}
	}
	return &Store{
		gateway: opts.Gateway,
		storage: opts.Storage,
		logger:  logger.With("component", "session"),
		metrics: metrics,
		state:   domainauth.InitialState(),
	}, nil
}

// State returns a snapshot of the current session.
func (s *Store) State() domainauth.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	if st.User != nil {
		u := *st.User
		st.User = &u
	}
	return st
}

// Initialize rehydrates the session from storage. Only the first call has an effect.
// It never fails: missing, partial or malformed data yields an anonymous session.
func (s *Store) Initialize(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Phase != domainauth.PhaseUninitialized {
		return
	}
	s.state = domainauth.State{Phase: domainauth.PhaseRehydrating, Loading: true}

	user, role, err := s.readPersisted(ctx)
	switch {
	case err == nil:
		s.state = domainauth.AuthenticatedState(user, role)
		s.metrics.RecordRehydrate("authenticated")
		s.logger.Debug("session rehydrated", "role", role, "phase", s.state.Phase)
	case errors.Is(err, errNothingPersisted):
		s.state = domainauth.AnonymousState("")
		s.metrics.RecordRehydrate("anonymous")
		s.logger.Debug("no persisted session", "phase", s.state.Phase)
	case errors.Is(err, domainauth.ErrMalformedSession):
		s.state = domainauth.AnonymousState("")
		s.metrics.RecordRehydrate("malformed")
		s.logger.Debug("ignoring persisted session", "error", err, "phase", s.state.Phase)
	default:
		s.state = domainauth.AnonymousState("")
		s.metrics.RecordRehydrate("error")
		s.logger.Warn("failed to read persisted session", "error", err, "phase", s.state.Phase)
	}
}

var errNothingPersisted = errors.New("no persisted session")

func (s *Store) readPersisted(ctx context.Context) (domainauth.User, domainauth.Role, error) {
	rawUser, hasUser, err := s.storage.Get(ctx, KeyUser)
	if err != nil {
		return domainauth.User{}, "", fmt.Errorf("read %s: %w", KeyUser, err)
	}
	rawRole, hasRole, err := s.storage.Get(ctx, KeyRole)
	if err != nil {
		return domainauth.User{}, "", fmt.Errorf("read %s: %w", KeyRole, err)
	}
	if !hasUser && !hasRole {
		return domainauth.User{}, "", errNothingPersisted
	}
	if !hasUser || !hasRole {
		return domainauth.User{}, "", fmt.Errorf("%w: partial keys", domainauth.ErrMalformedSession)
	}

	var user domainauth.User
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
		return domainauth.User{}, "", fmt.Errorf("%w: %w", domainauth.ErrMalformedSession, err)
	}
	if err := user.Validate(); err != nil {
		return domainauth.User{}, "", fmt.Errorf("%w: %w", domainauth.ErrMalformedSession, err)
	}
	role, err := domainauth.ParseRole(rawRole)
	if err != nil {
		return domainauth.User{}, "", fmt.Errorf("%w: %w", domainauth.ErrMalformedSession, err)
	}
	return user, role, nil
}

// Login authenticates creds through the gateway. It returns ErrLoginInProgress without
// touching state when another authentication (or rehydration) is in flight, and
// ErrAlreadyAuthenticated when the session is signed in. On success the
// user, role and token are persisted before the session becomes authenticated. On any
// failure the session is anonymous with State.Error set.
func (s *Store) Login(ctx context.Context, creds domainauth.Credentials) error {
	s.mu.Lock()
	if s.state.Loading {
		s.mu.Unlock()
		s.metrics.RecordLogin(creds.Role, OutcomeBusy)
		return ErrLoginInProgress
	}
	if s.state.IsAuthenticated {
		s.mu.Unlock()
		s.metrics.RecordLogin(creds.Role, OutcomeSignedIn)
		return ErrAlreadyAuthenticated
	}
	s.state = domainauth.State{Phase: domainauth.PhaseAuthenticating, Loading: true}
	epoch := s.epoch
	s.mu.Unlock()

	if err := precheck(creds); err != nil {
		return s.fail(creds.Role, err, OutcomeRejected)
	}

	grant, err := s.gateway.Authenticate(ctx, creds)
	if err == nil {
		err = grant.User.Validate()
		if err != nil {
			err = fmt.Errorf("gateway returned invalid user: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		s.metrics.RecordLogin(creds.Role, OutcomeSuperseded)
		s.logger.Info("login discarded after logout", "role", creds.Role)
		return ErrLoginSuperseded
	}
	if err != nil {
		return s.failLocked(creds.Role, err, classify(err))
	}
	if err := s.persist(ctx, grant, creds.Role); err != nil {
		return s.failLocked(creds.Role, err, OutcomePersistError)
	}

	s.state = domainauth.AuthenticatedState(grant.User, creds.Role)
	s.metrics.RecordLogin(creds.Role, OutcomeSuccess)
	s.logger.Info("login succeeded", "role", creds.Role, "user_id", grant.User.ID, "phase", s.state.Phase)
	return nil
}

func precheck(creds domainauth.Credentials) error {
	if !creds.Role.Valid() {
		return domainauth.Reject(MsgMissingRole)
	}
	if !creds.Complete() {
		return domainauth.Reject(MsgMissingFields)
	}
	return nil
}

func classify(err error) string {
	switch {
	case errors.Is(err, domainauth.ErrInvalidCredentials):
		return OutcomeRejected
	case errors.Is(err, domainauth.ErrGatewayUnreachable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return OutcomeUnreachable
	default:
		return OutcomeError
	}
}

// persist writes the three keys. On failure it removes whatever it wrote so no
// partial session survives.
func (s *Store) persist(ctx context.Context, grant domainauth.Grant, role domainauth.Role) error {
	raw, err := json.Marshal(grant.User)
	if err != nil {
		return fmt.Errorf("%w: encode user: %w", ErrPersistFailed, err)
	}
	writes := []struct{ key, value string }{
		{KeyUser, string(raw)},
		{KeyRole, role.String()},
		{KeyToken, grant.Token},
	}
	for _, w := range writes {
		if err := s.storage.Set(ctx, w.key, w.value); err != nil {
			if rmErr := s.removeAll(context.WithoutCancel(ctx)); rmErr != nil {
				s.logger.Warn("failed to roll back partial session", "error", rmErr)
			}
			return fmt.Errorf("%w: %s: %w", ErrPersistFailed, w.key, err)
		}
	}
	return nil
}

func (s *Store) fail(role domainauth.Role, err error, outcome string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failLocked(role, err, outcome)
}

func (s *Store) failLocked(role domainauth.Role, err error, outcome string) error {
	s.state = domainauth.AnonymousState(Message(err))
	s.metrics.RecordLogin(role, outcome)
	s.logger.Info("login failed", "role", role, "outcome", outcome, "error", err, "phase", s.state.Phase)
	return err
}

// Message converts a login error into the text shown on the login form.
func Message(err error) string {
	var rejected *domainauth.RejectedError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &rejected):
		return rejected.Error()
	case errors.Is(err, domainauth.ErrInvalidCredentials):
		return MsgInvalid
	case errors.Is(err, domainauth.ErrGatewayUnreachable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return MsgUnreachable
	case errors.Is(err, ErrLoginInProgress):
		return "A sign-in attempt is already in progress"
	case errors.Is(err, ErrAlreadyAuthenticated):
		return "You are already signed in"
	}
	if errors.Is(err, ErrPersistFailed) {
		return MsgPersistFailed
	}
	return MsgLoginFailed
}

// Logout removes every persisted key, best effort and independently, then
// unconditionally moves to the anonymous state. It is idempotent. The returned
// error joins the removal failures and is informational only.
func (s *Store) Logout(ctx context.Context) error {
	return s.teardown(ctx, "logout")
}

// Expire is Logout triggered by a downstream authorization failure.
func (s *Store) Expire(ctx context.Context) error {
	return s.teardown(ctx, "unauthorized")
}

func (s *Store) teardown(ctx context.Context, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.state = domainauth.State{Phase: domainauth.PhaseLoggingOut, User: s.state.User, Role: s.state.Role}
	err := s.removeAll(ctx)
	s.state = domainauth.AnonymousState("")
	s.metrics.RecordLogout(reason)
	if err != nil {
		s.logger.Warn("session teardown incomplete", "reason", reason, "error", err, "phase", s.state.Phase)
	} else {
		s.logger.Info("session cleared", "reason", reason, "phase", s.state.Phase)
	}
	return err
}

func (s *Store) removeAll(ctx context.Context) error {
	var errs []error
	for _, key := range Keys() {
		if err := s.storage.Remove(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

// ClearError clears State.Error and nothing else.
func (s *Store) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Error = ""
}

// Token returns the persisted bearer token, or "" when none is stored.
func (s *Store) Token(ctx context.Context) (string, error) {
	tok, ok, err := s.storage.Get(ctx, KeyToken)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", KeyToken, err)
	}
	if !ok {
		return "", nil
	}
	return tok, nil
}

// ReplaceToken persists a refreshed bearer token for an authenticated session.
func (s *Store) ReplaceToken(ctx context.Context, tok string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.IsAuthenticated {
		return domainauth.ErrUnauthorized
	}
	if err := s.storage.Set(ctx, KeyToken, tok); err != nil {
		return fmt.Errorf("persist %s: %w", KeyToken, err)
	}
	return nil
}
