// Package token issues and verifies the portal's HS256 bearer tokens.
package token

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	domainauth "github.com/target/exam-portal/internal/domain/auth"
	"github.com/target/exam-portal/internal/ports"
)

var (
	// ErrExpired is returned for a token past its expiry.
	ErrExpired = fmt.Errorf("%w: token has expired", domainauth.ErrUnauthorized)
	// ErrInvalid is returned for a malformed, unsigned or mis-signed token.
	ErrInvalid = fmt.Errorf("%w: invalid token", domainauth.ErrUnauthorized)
	// ErrRevoked is returned for a token that was logged out.
	ErrRevoked = fmt.Errorf("%w: token revoked", domainauth.ErrUnauthorized)
)

// RevocationList records token IDs that must no longer be accepted.
type RevocationList interface {
	Revoke(ctx context.Context, id string, until time.Time) error
	Revoked(ctx context.Context, id string) (bool, error)
}

type claims struct {
	Name  string          `json:"name"`
	Email string          `json:"email"`
	Role  domainauth.Role `json:"role"`
	jwt.RegisteredClaims
}

// Options configures a Manager.
type Options struct {
	SigningKey  []byte
	Issuer      string
	Audience    string
	TTL         time.Duration
	Revocations RevocationList
	Now         func() time.Time
}

// Manager implements ports.TokenIssuer and ports.TokenVerifier.
type Manager struct {
	key      []byte
	issuer   string
	audience string
	ttl      time.Duration
	revoked  RevocationList
	now      func() time.Time
}

const minKeyLen = 32

// NewManager validates opts. TTL defaults to eight hours and revocations to an in-memory list.
func NewManager(opts Options) (*Manager, error) {
	if len(opts.SigningKey) < minKeyLen {
		return nil, fmt.Errorf("token signing key must be at least %d bytes", minKeyLen)
	}
	if opts.Issuer == "" {
		opts.Issuer = "exam-portal"
	}
	if opts.Audience == "" {
		opts.Audience = "exam-portal"
	}
	if opts.TTL <= 0 {
		opts.TTL = 8 * time.Hour
	}
	if opts.Revocations == nil {
		opts.Revocations = NewMemoryRevocations()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		key:      append([]byte(nil), opts.SigningKey...),
		issuer:   opts.Issuer,
		audience: opts.Audience,
		ttl:      opts.TTL,
		revoked:  opts.Revocations,
		now:      opts.Now,
	}, nil
}

// Issue signs a token for user acting as role.
func (m *Manager) Issue(user domainauth.User, role domainauth.Role) (string, error) {
	if !role.Valid() {
		return "", fmt.Errorf("issue token: %w", domainauth.ErrUnknownRole)
	}
	now := m.now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Name:  user.Name,
		Email: user.Email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			Issuer:    m.issuer,
			Audience:  jwt.ClaimStrings{m.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			ID:        uuid.NewString(),
		},
	})
	signed, err := tok.SignedString(m.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, issuer, audience, expiry and revocation.
func (m *Manager) Verify(ctx context.Context, raw string) (ports.Claims, error) {
	if raw == "" {
		return ports.Claims{}, ErrInvalid
	}
	parsed, err := jwt.ParseWithClaims(raw, &claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return m.key, nil
	},
		jwt.WithIssuer(m.issuer),
		jwt.WithAudience(m.audience),
		jwt.WithTimeFunc(m.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ports.Claims{}, ErrExpired
		}
		return ports.Claims{}, ErrInvalid
	}
	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid {
		return ports.Claims{}, ErrInvalid
	}
	uid, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || !c.Role.Valid() {
		return ports.Claims{}, ErrInvalid
	}

	revoked, err := m.revoked.Revoked(ctx, c.ID)
	if err != nil {
		return ports.Claims{}, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return ports.Claims{}, ErrRevoked
	}

	out := ports.Claims{
		Subject: c.Subject,
		UserID:  uid,
		Name:    c.Name,
		Email:   c.Email,
		Role:    c.Role,
		ID:      c.ID,
	}
	if c.ExpiresAt != nil {
		out.ExpiresAt = c.ExpiresAt.Time
	}
	return out, nil
}

// Revoke verifies raw and blocks its ID until it would have expired anyway.
func (m *Manager) Revoke(ctx context.Context, raw string) error {
	c, err := m.Verify(ctx, raw)
	if err != nil {
		return err
	}
	if err := m.revoked.Revoke(ctx, c.ID, c.ExpiresAt); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// Refresh exchanges a valid token for a new one with a fresh expiry and revokes the old one.
func (m *Manager) Refresh(ctx context.Context, raw string) (string, error) {
	c, err := m.Verify(ctx, raw)
	if err != nil {
		return "", err
	}
	next, err := m.Issue(domainauth.User{ID: c.UserID, Name: c.Name, Email: c.Email}, c.Role)
	if err != nil {
		return "", err
	}
	if err := m.revoked.Revoke(ctx, c.ID, c.ExpiresAt); err != nil {
		return "", fmt.Errorf("revoke refreshed token: %w", err)
	}
	return next, nil
}

// MemoryRevocations is a process-local RevocationList.
type MemoryRevocations struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryRevocations returns an empty list.
func NewMemoryRevocations() *MemoryRevocations {
	return &MemoryRevocations{entries: make(map[string]time.Time), now: time.Now}
}

func (r *MemoryRevocations) Revoke(_ context.Context, id string, until time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[id] = until
	return nil
}

func (r *MemoryRevocations) Revoked(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	until, ok := r.entries[id]
	if !ok {
		return false, nil
	}
	if !until.IsZero() && r.now().After(until) {
		delete(r.entries, id)
		return false, nil
	}
	return true, nil
}
