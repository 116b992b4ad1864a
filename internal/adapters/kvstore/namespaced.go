package kvstore

import (
	"context"

	"github.com/target/exam-portal/internal/ports"
)

// Namespaced prefixes every key so many devices can share one backing store.
type Namespaced struct {
	base   ports.Storage
	prefix string
}

// NewNamespaced scopes base to keys beginning with prefix + ":".
func NewNamespaced(base ports.Storage, prefix string) *Namespaced {
	return &Namespaced{base: base, prefix: prefix + ":"}
}

func (n *Namespaced) Get(ctx context.Context, key string) (string, bool, error) {
	return n.base.Get(ctx, n.prefix+key)
}

func (n *Namespaced) Set(ctx context.Context, key, value string) error {
	return n.base.Set(ctx, n.prefix+key, value)
}

func (n *Namespaced) Remove(ctx context.Context, key string) error {
	return n.base.Remove(ctx, n.prefix+key)
}
