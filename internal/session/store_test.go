package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/target/exam-portal/internal/adapters/kvstore"
	domainauth "github.com/target/exam-portal/internal/domain/auth"
	"github.com/target/exam-portal/internal/mocks"
)

// fakeGateway is a function-field fake for ports.AuthGateway.
type fakeGateway struct {
	mu    sync.Mutex
	calls int
	fn    func(ctx context.Context, creds domainauth.Credentials) (domainauth.Grant, error)
}

func (f *fakeGateway) Authenticate(ctx context.Context, creds domainauth.Credentials) (domainauth.Grant, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.fn(ctx, creds)
}

func (f *fakeGateway) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func grantFor(role domainauth.Role) domainauth.Grant {
	return domainauth.Grant{
		User:  domainauth.User{ID: 1, Name: "John Doe", Email: "student@test.com", StudentID: "ST001"},
		Token: "token-" + role.String(),
	}
}

func acceptingGateway() *fakeGateway {
	return &fakeGateway{fn: func(_ context.Context, creds domainauth.Credentials) (domainauth.Grant, error) {
		return grantFor(creds.Role), nil
	}}
}

func newTestStore(t *testing.T, gw *fakeGateway, storage *kvstore.Memory) *Store {
	t.Helper()
	st, err := NewStore(Options{Gateway: gw, Storage: storage, Device: "test"})
	require.NoError(t, err)
	st.Initialize(context.Background())
	return st
}

func creds(role domainauth.Role) domainauth.Credentials {
	return domainauth.Credentials{Email: "student@test.com", Password: "password", Role: role}
}

func TestNewStore_RequiresCollaborators(t *testing.T) {
	_, err := NewStore(Options{Storage: kvstore.NewMemory()})
	require.Error(t, err)
	_, err = NewStore(Options{Gateway: acceptingGateway()})
	require.Error(t, err)
}

func TestStore_InitialStateIsLoading(t *testing.T) {
	st, err := NewStore(Options{Gateway: acceptingGateway(), Storage: kvstore.NewMemory()})
	require.NoError(t, err)

	s := st.State()
	assert.True(t, s.Loading)
	assert.False(t, s.IsAuthenticated)
	assert.Equal(t, domainauth.PhaseUninitialized, s.Phase)

	err = st.Login(context.Background(), creds(domainauth.RoleStudent))
	require.ErrorIs(t, err, ErrLoginInProgress, "login must wait for rehydration")
}

func TestStore_Initialize_EmptyStorage(t *testing.T) {
	st := newTestStore(t, acceptingGateway(), kvstore.NewMemory())

	s := st.State()
	assert.False(t, s.Loading)
	assert.False(t, s.IsAuthenticated)
	assert.Nil(t, s.User)
	assert.Equal(t, domainauth.PhaseAnonymous, s.Phase)
}

func TestStore_Login_Success(t *testing.T) {
	storage := kvstore.NewMemory()
	st := newTestStore(t, acceptingGateway(), storage)

	require.NoError(t, st.Login(context.Background(), creds(domainauth.RoleTeacher)))

	s := st.State()
	assert.True(t, s.IsAuthenticated)
	assert.False(t, s.Loading)
	assert.Empty(t, s.Error)
	assert.Equal(t, domainauth.RoleTeacher, s.Role)
	require.NotNil(t, s.User)
	assert.Equal(t, "John Doe", s.User.Name)

	ctx := context.Background()
	for _, key := range Keys() {
		_, ok, err := storage.Get(ctx, key)
		require.NoError(t, err)
		assert.True(t, ok, "key %s must be persisted", key)
	}
	role, _, _ := storage.Get(ctx, KeyRole)
	assert.Equal(t, "teacher", role)

	tok, err := st.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "token-teacher", tok)
}

func TestStore_Login_MissingFieldsSkipsGateway(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := mocks.NewMockAuthGateway(ctrl) // no expectations: any call fails the test

	st, err := NewStore(Options{Gateway: gw, Storage: kvstore.NewMemory()})
	require.NoError(t, err)
	st.Initialize(context.Background())

	for _, c := range []domainauth.Credentials{
		{Email: "", Password: "pw", Role: domainauth.RoleStudent},
		{Email: "a@b.c", Password: "", Role: domainauth.RoleStudent},
	} {
		err := st.Login(context.Background(), c)
		require.ErrorIs(t, err, domainauth.ErrInvalidCredentials)

		s := st.State()
		assert.False(t, s.IsAuthenticated)
		assert.False(t, s.Loading)
		assert.Equal(t, MsgMissingFields, s.Error)
	}

	err = st.Login(context.Background(), domainauth.Credentials{Email: "a@b.c", Password: "pw"})
	require.ErrorIs(t, err, domainauth.ErrInvalidCredentials)
	assert.Equal(t, MsgMissingRole, st.State().Error)
}

func TestStore_Login_GatewayFailures(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantIs  error
		wantMsg string
	}{
		{"rejected with message", domainauth.Reject("Invalid credentials"), domainauth.ErrInvalidCredentials, "Invalid credentials"},
		{"bare rejection", domainauth.ErrInvalidCredentials, domainauth.ErrInvalidCredentials, MsgInvalid},
		{"unreachable", domainauth.ErrGatewayUnreachable, domainauth.ErrGatewayUnreachable, MsgUnreachable},
		{"deadline", context.DeadlineExceeded, context.DeadlineExceeded, MsgUnreachable},
		{"other", errors.New("boom"), nil, MsgLoginFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage := kvstore.NewMemory()
			gw := &fakeGateway{fn: func(context.Context, domainauth.Credentials) (domainauth.Grant, error) {
				return domainauth.Grant{}, tt.err
			}}
			st := newTestStore(t, gw, storage)

			err := st.Login(context.Background(), creds(domainauth.RoleAdmin))
			require.Error(t, err)
			if tt.wantIs != nil {
				require.ErrorIs(t, err, tt.wantIs)
			}

			s := st.State()
			assert.False(t, s.IsAuthenticated)
			assert.False(t, s.Loading)
			assert.Nil(t, s.User)
			assert.Equal(t, tt.wantMsg, s.Error)
			assert.Empty(t, storage.Keys(""))
		})
	}
}

func TestStore_Login_InvalidUserFromGateway(t *testing.T) {
	gw := &fakeGateway{fn: func(context.Context, domainauth.Credentials) (domainauth.Grant, error) {
		return domainauth.Grant{User: domainauth.User{Name: "no id"}, Token: "t"}, nil
	}}
	st := newTestStore(t, gw, kvstore.NewMemory())

	require.Error(t, st.Login(context.Background(), creds(domainauth.RoleStudent)))
	assert.False(t, st.State().IsAuthenticated)
}

func TestStore_Login_PersistFailureStaysAnonymous(t *testing.T) {
	ctrl := gomock.NewController(t)
	storage := mocks.NewMockStorage(ctrl)
	ctx := context.Background()

	storage.EXPECT().Get(gomock.Any(), KeyUser).Return("", false, nil)
	storage.EXPECT().Get(gomock.Any(), KeyRole).Return("", false, nil)
	gomock.InOrder(
		storage.EXPECT().Set(gomock.Any(), KeyUser, gomock.Any()).Return(nil),
		storage.EXPECT().Set(gomock.Any(), KeyRole, "student").Return(errors.New("disk full")),
	)
	for _, key := range Keys() {
		storage.EXPECT().Remove(gomock.Any(), key).Return(nil)
	}

	st, err := NewStore(Options{Gateway: acceptingGateway(), Storage: storage})
	require.NoError(t, err)
	st.Initialize(ctx)

	err = st.Login(ctx, creds(domainauth.RoleStudent))
	require.ErrorIs(t, err, ErrPersistFailed)

	s := st.State()
	assert.False(t, s.IsAuthenticated)
	assert.Equal(t, MsgPersistFailed, s.Error)
}

func TestStore_LoginThenInitializeRestoresSession(t *testing.T) {
	storage := kvstore.NewMemory()
	first := newTestStore(t, acceptingGateway(), storage)
	require.NoError(t, first.Login(context.Background(), creds(domainauth.RoleProctor)))

	second := newTestStore(t, acceptingGateway(), storage)
	s := second.State()
	assert.True(t, s.IsAuthenticated)
	assert.Equal(t, domainauth.RoleProctor, s.Role)
	assert.Equal(t, first.State().User, s.User)
}

func TestStore_LoginWhileSignedInIsRejected(t *testing.T) {
	storage := kvstore.NewMemory()
	gw := acceptingGateway()
	rec := &recordingMetrics{}
	st, err := NewStore(Options{Gateway: gw, Storage: storage, Metrics: rec})
	require.NoError(t, err)
	st.Initialize(context.Background())
	require.NoError(t, st.Login(context.Background(), creds(domainauth.RoleTeacher)))

	err = st.Login(context.Background(), domainauth.Credentials{Role: domainauth.RoleStudent})
	require.ErrorIs(t, err, ErrAlreadyAuthenticated)
	assert.Equal(t, 1, gw.Calls())
	assert.Equal(t, []string{OutcomeSuccess, OutcomeSignedIn}, rec.logins)

	s := st.State()
	assert.True(t, s.IsAuthenticated)
	assert.Equal(t, domainauth.RoleTeacher, s.Role)
	assert.Empty(t, s.Error)

	// Memory and storage agree after a reload.
	reloaded := newTestStore(t, acceptingGateway(), storage)
	assert.Equal(t, s.IsAuthenticated, reloaded.State().IsAuthenticated)
	assert.Equal(t, s.Role, reloaded.State().Role)

	// Switching accounts goes through logout.
	require.NoError(t, st.Logout(context.Background()))
	require.NoError(t, st.Login(context.Background(), creds(domainauth.RoleStudent)))
	assert.Equal(t, domainauth.RoleStudent, st.State().Role)
}

func TestStore_LogoutThenInitializeIsAnonymous(t *testing.T) {
	storage := kvstore.NewMemory()
	st := newTestStore(t, acceptingGateway(), storage)
	require.NoError(t, st.Login(context.Background(), creds(domainauth.RoleStudent)))

	require.NoError(t, st.Logout(context.Background()))
	assert.True(t, st.State().Anonymous())
	assert.Empty(t, storage.Keys(""), "no residual keys after logout")

	again := newTestStore(t, acceptingGateway(), storage)
	assert.True(t, again.State().Anonymous())

	// Idempotent.
	require.NoError(t, st.Logout(context.Background()))
	assert.True(t, st.State().Anonymous())
}

func TestStore_LogoutIsBestEffort(t *testing.T) {
	ctrl := gomock.NewController(t)
	storage := mocks.NewMockStorage(ctrl)
	storage.EXPECT().Get(gomock.Any(), gomock.Any()).Return("", false, nil).AnyTimes()
	storage.EXPECT().Remove(gomock.Any(), KeyUser).Return(errors.New("unavailable"))
	storage.EXPECT().Remove(gomock.Any(), KeyRole).Return(nil)
	storage.EXPECT().Remove(gomock.Any(), KeyToken).Return(errors.New("unavailable"))

	st, err := NewStore(Options{Gateway: acceptingGateway(), Storage: storage})
	require.NoError(t, err)
	st.Initialize(context.Background())

	err = st.Logout(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), KeyUser)
	assert.Contains(t, err.Error(), KeyToken)

	s := st.State()
	assert.True(t, s.Anonymous())
	assert.Empty(t, s.Error)
}

func TestStore_Initialize_MalformedDataIsAbsent(t *testing.T) {
	tests := []struct {
		name string
		data map[string]string
	}{
		{"user only", map[string]string{KeyUser: `{"id":1,"name":"John Doe"}`}},
		{"role only", map[string]string{KeyRole: "student"}},
		{"bad json", map[string]string{KeyUser: `{not json`, KeyRole: "student"}},
		{"missing id", map[string]string{KeyUser: `{"name":"John Doe"}`, KeyRole: "student"}},
		{"unknown role", map[string]string{KeyUser: `{"id":1,"name":"John Doe"}`, KeyRole: "janitor"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage := kvstore.NewMemory()
			for k, v := range tt.data {
				require.NoError(t, storage.Set(context.Background(), k, v))
			}
			st := newTestStore(t, acceptingGateway(), storage)
			s := st.State()
			assert.True(t, s.Anonymous())
			assert.Empty(t, s.Error)
		})
	}
}

func TestStore_Initialize_StorageErrorIsAnonymous(t *testing.T) {
	ctrl := gomock.NewController(t)
	storage := mocks.NewMockStorage(ctrl)
	storage.EXPECT().Get(gomock.Any(), KeyUser).Return("", false, errors.New("connection refused"))

	st, err := NewStore(Options{Gateway: acceptingGateway(), Storage: storage})
	require.NoError(t, err)
	st.Initialize(context.Background())
	st.Initialize(context.Background()) // second call is a no-op

	assert.True(t, st.State().Anonymous())
}

func TestStore_ConcurrentLoginIsRejected(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	gw := &fakeGateway{fn: func(_ context.Context, c domainauth.Credentials) (domainauth.Grant, error) {
		close(started)
		<-release
		return grantFor(c.Role), nil
	}}
	st := newTestStore(t, gw, kvstore.NewMemory())

	done := make(chan error, 1)
	go func() { done <- st.Login(context.Background(), creds(domainauth.RoleTeacher)) }()
	<-started

	s := st.State()
	assert.True(t, s.Loading)
	assert.Equal(t, domainauth.PhaseAuthenticating, s.Phase)

	err := st.Login(context.Background(), creds(domainauth.RoleAdmin))
	require.ErrorIs(t, err, ErrLoginInProgress)
	assert.True(t, st.State().Loading, "rejected attempt must not change state")

	close(release)
	require.NoError(t, <-done)

	s = st.State()
	assert.True(t, s.IsAuthenticated)
	assert.Equal(t, domainauth.RoleTeacher, s.Role, "in-flight attempt's result stands")
	assert.Equal(t, 1, gw.Calls())
}

func TestStore_LogoutDuringLoginWins(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	gw := &fakeGateway{fn: func(_ context.Context, c domainauth.Credentials) (domainauth.Grant, error) {
		close(started)
		<-release
		return grantFor(c.Role), nil
	}}
	storage := kvstore.NewMemory()
	st := newTestStore(t, gw, storage)

	done := make(chan error, 1)
	go func() { done <- st.Login(context.Background(), creds(domainauth.RoleStudent)) }()
	<-started

	require.NoError(t, st.Logout(context.Background()))
	close(release)
	require.ErrorIs(t, <-done, ErrLoginSuperseded)

	assert.True(t, st.State().Anonymous())
	assert.Empty(t, storage.Keys(""))
}

func TestStore_ClearError(t *testing.T) {
	gw := &fakeGateway{fn: func(context.Context, domainauth.Credentials) (domainauth.Grant, error) {
		return domainauth.Grant{}, domainauth.Reject("Invalid credentials")
	}}
	st := newTestStore(t, gw, kvstore.NewMemory())
	require.Error(t, st.Login(context.Background(), creds(domainauth.RoleStudent)))
	before := st.State()
	require.NotEmpty(t, before.Error)

	st.ClearError()
	after := st.State()
	assert.Empty(t, after.Error)
	before.Error = ""
	assert.Equal(t, before, after, "only the error changes")
}

func TestStore_ReplaceToken(t *testing.T) {
	storage := kvstore.NewMemory()
	st := newTestStore(t, acceptingGateway(), storage)

	require.ErrorIs(t, st.ReplaceToken(context.Background(), "x"), domainauth.ErrUnauthorized)

	require.NoError(t, st.Login(context.Background(), creds(domainauth.RoleStudent)))
	require.NoError(t, st.ReplaceToken(context.Background(), "refreshed"))
	tok, err := st.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "refreshed", tok)
}

func TestStore_ExpireClearsSession(t *testing.T) {
	storage := kvstore.NewMemory()
	rec := &recordingMetrics{}
	st, err := NewStore(Options{Gateway: acceptingGateway(), Storage: storage, Metrics: rec})
	require.NoError(t, err)
	st.Initialize(context.Background())
	require.NoError(t, st.Login(context.Background(), creds(domainauth.RoleAdmin)))

	require.NoError(t, st.Expire(context.Background()))
	assert.True(t, st.State().Anonymous())
	assert.Empty(t, storage.Keys(""))
	assert.Equal(t, []string{"unauthorized"}, rec.logouts)
	assert.Equal(t, []string{OutcomeSuccess}, rec.logins)
}

func TestMessage(t *testing.T) {
	assert.Empty(t, Message(nil))
	assert.Equal(t, "Custom", Message(domainauth.Reject("Custom")))
	assert.Equal(t, MsgUnreachable, Message(errors.Join(errors.New("dial"), domainauth.ErrGatewayUnreachable)))
	assert.Equal(t, "A sign-in attempt is already in progress", Message(ErrLoginInProgress))
	assert.Equal(t, "You are already signed in", Message(ErrAlreadyAuthenticated))
}

type recordingMetrics struct {
	mu      sync.Mutex
	logins  []string
	logouts []string
}

func (r *recordingMetrics) RecordLogin(_ domainauth.Role, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logins = append(r.logins, outcome)
}

func (r *recordingMetrics) RecordLogout(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logouts = append(r.logouts, reason)
}

func (r *recordingMetrics) RecordRehydrate(string) {}
