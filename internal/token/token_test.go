package token

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/target/exam-portal/internal/domain/auth"
)

var testKey = []byte(strings.Repeat("k", 32))

func newTestManager(t *testing.T, now func() time.Time) *Manager {
	t.Helper()
	m, err := NewManager(Options{SigningKey: testKey, TTL: time.Hour, Now: now})
	require.NoError(t, err)
	return m
}

func TestNewManager_RejectsShortKey(t *testing.T) {
	_, err := NewManager(Options{SigningKey: []byte("short")})
	require.Error(t, err)
}

func TestManager_IssueVerify(t *testing.T) {
	m := newTestManager(t, nil)
	user := domainauth.User{ID: 2, Name: "Jane Smith", Email: "teacher@test.com"}

	raw, err := m.Issue(user, domainauth.RoleTeacher)
	require.NoError(t, err)

	c, err := m.Verify(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, int64(2), c.UserID)
	assert.Equal(t, "2", c.Subject)
	assert.Equal(t, "Jane Smith", c.Name)
	assert.Equal(t, "teacher@test.com", c.Email)
	assert.Equal(t, domainauth.RoleTeacher, c.Role)
	assert.NotEmpty(t, c.ID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), c.ExpiresAt, time.Minute)
}

func TestManager_IssueRejectsUnknownRole(t *testing.T) {
	m := newTestManager(t, nil)
	_, err := m.Issue(domainauth.User{ID: 1, Name: "x"}, "janitor")
	require.ErrorIs(t, err, domainauth.ErrUnknownRole)
}

func TestManager_VerifyFailures(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	clock := now
	m := newTestManager(t, func() time.Time { return clock })
	raw, err := m.Issue(domainauth.User{ID: 1, Name: "John Doe"}, domainauth.RoleStudent)
	require.NoError(t, err)

	other, err := NewManager(Options{SigningKey: []byte(strings.Repeat("x", 32))})
	require.NoError(t, err)

	ctx := context.Background()
	_, err = other.Verify(ctx, raw)
	require.ErrorIs(t, err, ErrInvalid)
	require.ErrorIs(t, err, domainauth.ErrUnauthorized)

	_, err = m.Verify(ctx, "")
	require.ErrorIs(t, err, ErrInvalid)

	_, err = m.Verify(ctx, "not.a.jwt")
	require.ErrorIs(t, err, ErrInvalid)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "1"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = m.Verify(ctx, unsigned)
	require.ErrorIs(t, err, ErrInvalid)

	clock = now.Add(2 * time.Hour)
	_, err = m.Verify(ctx, raw)
	require.ErrorIs(t, err, ErrExpired)
	require.ErrorIs(t, err, domainauth.ErrUnauthorized)
}

func TestManager_RevokeAndRefresh(t *testing.T) {
	m := newTestManager(t, nil)
	ctx := context.Background()

	raw, err := m.Issue(domainauth.User{ID: 3, Name: "Admin User", Email: "admin@test.com"}, domainauth.RoleAdmin)
	require.NoError(t, err)

	next, err := m.Refresh(ctx, raw)
	require.NoError(t, err)
	assert.NotEqual(t, raw, next)

	_, err = m.Verify(ctx, raw)
	require.ErrorIs(t, err, ErrRevoked, "refreshed token is retired")

	c, err := m.Verify(ctx, next)
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleAdmin, c.Role)
	assert.Equal(t, "Admin User", c.Name)

	require.NoError(t, m.Revoke(ctx, next))
	_, err = m.Verify(ctx, next)
	require.ErrorIs(t, err, ErrRevoked)
	require.ErrorIs(t, m.Revoke(ctx, next), ErrRevoked)
}

func TestMemoryRevocations_Expire(t *testing.T) {
	r := NewMemoryRevocations()
	now := time.Now()
	r.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, r.Revoke(ctx, "a", now.Add(time.Minute)))
	ok, err := r.Revoked(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	ok, err = r.Revoked(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)
}
