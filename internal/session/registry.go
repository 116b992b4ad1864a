package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/target/exam-portal/internal/ports"
)

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	Gateway ports.AuthGateway
	// StorageFor returns the storage view owned by device.
	StorageFor func(device string) ports.Storage
	Logger     *slog.Logger
	Metrics    Recorder
	Now        func() time.Time
}

type registryEntry struct {
	store    *Store
	lastSeen time.Time
}

// Registry hands out one initialized Store per device. Concurrent first requests for
// the same device share a single construction.
type Registry struct {
	opts  RegistryOptions
	group singleflight.Group

	mu      sync.Mutex
	entries map[string]*registryEntry
}

// NewRegistry validates opts and returns an empty Registry.
func NewRegistry(opts RegistryOptions) (*Registry, error) {
	if opts.Gateway == nil {
		return nil, errors.New("session registry: gateway is required")
	}
	if opts.StorageFor == nil {
		return nil, errors.New("session registry: storage factory is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Registry{opts: opts, entries: make(map[string]*registryEntry)}, nil
}

// Get returns the Store for device, creating and initializing it on first use.
func (r *Registry) Get(ctx context.Context, device string) (*Store, error) {
	if device == "" {
		return nil, errors.New("session registry: device id is required")
	}
	if st, ok := r.lookup(device); ok {
		return st, nil
	}

	v, err, _ := r.group.Do(device, func() (any, error) {
		if st, ok := r.lookup(device); ok {
			return st, nil
		}
		st, err := NewStore(Options{
			Gateway: r.opts.Gateway,
			Storage: r.opts.StorageFor(device),
			Logger:  r.opts.Logger,
			Metrics: r.opts.Metrics,
			Device:  device,
		})
		if err != nil {
			return nil, err
		}
		// Rehydration outlives the request that triggered it.
		st.Initialize(context.WithoutCancel(ctx))

		r.mu.Lock()
		r.entries[device] = &registryEntry{store: st, lastSeen: r.opts.Now()}
		r.mu.Unlock()
		return st, nil
	})
	if err != nil {
		return nil, fmt.Errorf("create session for device: %w", err)
	}
	st, ok := v.(*Store)
	if !ok {
		return nil, errors.New("session registry: unexpected store type")
	}
	return st, nil
}

func (r *Registry) lookup(device string) (*Store, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[device]
	if !ok {
		return nil, false
	}
	e.lastSeen = r.opts.Now()
	return e.store, true
}

// Len returns the number of live stores.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Prune drops stores that are settled, anonymous and unused for at least idle.
// Authenticated stores are kept; they would rehydrate anyway but keeping them avoids
// a storage round trip on the next request.
func (r *Registry) Prune(idle time.Duration) int {
	cutoff := r.opts.Now().Add(-idle)

	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for device, e := range r.entries {
		if e.lastSeen.After(cutoff) {
			continue
		}
		if !e.store.State().Anonymous() {
			continue
		}
		delete(r.entries, device)
		removed++
	}
	return removed
}
