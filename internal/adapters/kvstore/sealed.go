package kvstore

import (
	"context"
	"fmt"

	"github.com/target/exam-portal/internal/data/cryptoutil"
	domainauth "github.com/target/exam-portal/internal/domain/auth"
	"github.com/target/exam-portal/internal/ports"
)

// Sealed encrypts values before they reach base. Keys are left in the clear.
type Sealed struct {
	base   ports.Storage
	sealer cryptoutil.Sealer
	scope  string
}

// NewSealed wraps base with sealer.
func NewSealed(base ports.Storage, sealer cryptoutil.Sealer) *Sealed {
	return &Sealed{base: base, sealer: sealer}
}

// NewScopedSealed is NewSealed with every value bound to scope as well as its key,
// so a value copied into another device's namespace fails to open.
func NewScopedSealed(base ports.Storage, sealer cryptoutil.Sealer, scope string) *Sealed {
	return &Sealed{base: base, sealer: sealer, scope: scope}
}

func (s *Sealed) boundKey(key string) string {
	if s.scope == "" {
		return key
	}
	return s.scope + ":" + key
}

// Get returns an error wrapping domainauth.ErrMalformedSession when a stored value
// cannot be opened (wrong key, tampering or plaintext written by another writer).
func (s *Sealed) Get(ctx context.Context, key string) (string, bool, error) {
	raw, ok, err := s.base.Get(ctx, key)
	if err != nil || !ok {
		return "", ok, err
	}
	pt, err := s.sealer.Open(s.boundKey(key), raw)
	if err != nil {
		return "", false, fmt.Errorf("%w: %s: %w", domainauth.ErrMalformedSession, key, err)
	}
	return string(pt), true, nil
}

func (s *Sealed) Set(ctx context.Context, key, value string) error {
	sealed, err := s.sealer.Seal(s.boundKey(key), []byte(value))
	if err != nil {
		return fmt.Errorf("seal %s: %w", key, err)
	}
	return s.base.Set(ctx, key, sealed)
}

func (s *Sealed) Remove(ctx context.Context, key string) error {
	return s.base.Remove(ctx, key)
}
