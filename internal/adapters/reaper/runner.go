// Package reaper provides adapters for running the session reaper.
package reaper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/target/exam-portal/config"
	"github.com/target/exam-portal/internal/observability/statsd"
	"github.com/target/exam-portal/internal/service"
)

// Runner provides a simple adapter to run the reaper loop.
// It constructs the reaper service and runs the cleanup loop.
type Runner struct {
	reaper *service.ReaperService
	logger *slog.Logger
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	Sessions service.SessionPruner // Required: usually the device session registry
	Storage  service.StoragePurger // Optional: set when sessions persist to Postgres
	Config   config.SessionsConfig
	Logger   *slog.Logger
	Metrics  statsd.Sink
}

// NewRunner creates a new reaper runner with the given options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if err := validateRunnerOptions(&opts); err != nil {
		return nil, err
	}

	reaper, err := service.NewReaperService(service.ReaperServiceOptions{
		Sessions: opts.Sessions,
		Storage:  opts.Storage,
		Config: service.ReaperConfig{
			Interval: opts.Config.ReapInterval,
			IdleTTL:  opts.Config.IdleTTL,
		},
		Logger:  opts.Logger,
		Metrics: opts.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("wire reaper service: %w", err)
	}

	return &Runner{reaper: reaper, logger: opts.Logger}, nil
}

// validateRunnerOptions validates and sets defaults for RunnerOptions.
func validateRunnerOptions(opts *RunnerOptions) error {
	if opts.Sessions == nil {
		return errors.New("session registry is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	opts.Config.Sanitize()
	return nil
}

// Run starts the reaper loop and runs until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting reaper runner")
	return r.reaper.Run(ctx)
}

// RunOnce performs a single cleanup pass.
func (r *Runner) RunOnce(ctx context.Context) error {
	return r.reaper.RunOnce(ctx)
}
