package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/target/exam-portal/internal/observability/statsd"
)

// SessionPruner drops idle anonymous sessions.
type SessionPruner interface {
	Prune(idle time.Duration) int
}

// StoragePurger deletes expired persisted session keys.
type StoragePurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// ReaperConfig controls the cleanup cadence.
type ReaperConfig struct {
	Interval time.Duration
	IdleTTL  time.Duration
}

// ReaperServiceOptions groups dependencies for ReaperService.
type ReaperServiceOptions struct {
	Sessions SessionPruner // Required
	Storage  StoragePurger // Optional: only SQL-backed storage needs purging
	Config   ReaperConfig
	Logger   *slog.Logger // Optional
	Metrics  statsd.Sink  // Optional
}

// ReaperService periodically bounds server-side session state:
// - idle anonymous device stores are dropped from the registry
// - expired rows are deleted from SQL session storage.
type ReaperService struct {
	sessions SessionPruner
	storage  StoragePurger
	config   ReaperConfig
	logger   *slog.Logger
	metrics  statsd.Sink
}

// NewReaperService constructs a new ReaperService.
func NewReaperService(opts ReaperServiceOptions) (*ReaperService, error) {
	if opts.Sessions == nil {
		return nil, errors.New("session pruner is required")
	}
	if opts.Config.Interval <= 0 {
		return nil, errors.New("reaper interval must be positive")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ReaperService{
		sessions: opts.Sessions,
		storage:  opts.Storage,
		config:   opts.Config,
		logger:   logger.With("component", "reaper_service"),
		metrics:  opts.Metrics,
	}, nil
}

// Run performs cleanup at the configured interval until ctx is cancelled.
// It returns nil on graceful shutdown.
func (s *ReaperService) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "starting reaper service", "interval", s.config.Interval, "idle_ttl", s.config.IdleTTL)

	s.waitWithJitter(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	if err := s.RunOnce(ctx); err != nil {
		s.logger.WarnContext(ctx, "initial cleanup failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "reaper service stopping", "reason", ctx.Err())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.WarnContext(ctx, "cleanup failed", "error", err)
			}
		}
	}
}

// waitWithJitter delays up to 10% of the interval so replicas do not tick together.
func (s *ReaperService) waitWithJitter(ctx context.Context) {
	maxJitter := int64(s.config.Interval / 10)
	if maxJitter <= 0 {
		return
	}
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return
	}
	jitter := time.Duration(int64(binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter))) // #nosec G115 - bounded by maxJitter
	select {
	case <-time.After(jitter):
	case <-ctx.Done():
	}
}

// RunOnce performs a single cleanup pass.
func (s *ReaperService) RunOnce(ctx context.Context) error {
	start := time.Now()
	pruned := s.sessions.Prune(s.config.IdleTTL)
	s.count("reaper.sessions_pruned", int64(pruned))

	var err error
	if s.storage != nil {
		var purged int64
		purged, err = s.storage.PurgeExpired(ctx)
		s.count("reaper.storage_purged", purged)
		if err != nil {
			err = fmt.Errorf("purge expired storage: %w", err)
		}
	}

	if s.metrics != nil {
		s.metrics.Timing("reaper.duration", time.Since(start), nil)
	}
	if pruned > 0 {
		s.logger.DebugContext(ctx, "pruned idle sessions", "count", pruned)
	}
	return err
}

func (s *ReaperService) count(name string, n int64) {
	if s.metrics == nil || n == 0 {
		return
	}
	s.metrics.Count(name, n, nil)
}
