package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/target/exam-portal/config"
	"github.com/target/exam-portal/internal/apiclient"
	"github.com/target/exam-portal/internal/data"
	"github.com/target/exam-portal/internal/observability/metrics"
	"github.com/target/exam-portal/internal/observability/statsd"
	"github.com/target/exam-portal/internal/ports"
	"github.com/target/exam-portal/internal/service"
	"github.com/target/exam-portal/internal/session"
	"github.com/target/exam-portal/internal/token"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	// JSON API; nil unless the api service is enabled.
	Auth    *service.AuthService
	Student *service.StudentService
	Teacher *service.TeacherService
	Admin   *service.AdminService
	Proctor *service.ProctorService
	Tokens  *token.Manager

	// Device sessions; nil unless the ui or reaper service is enabled.
	Registry *session.Registry
	API      *apiclient.Client
	Storage  SessionStorage

	Observability ObservabilityContainer
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	Metrics       *metrics.Metrics
	Prometheus    *prometheus.Registry
	MetricsSink   *statsd.Client
	MetricsConfig config.ObservabilityMetricsConfig
}

// Handler serves the Prometheus registry, or nil when scraping is disabled.
func (o ObservabilityContainer) Handler() http.Handler {
	if o.Prometheus == nil || !o.MetricsConfig.PrometheusEnabled {
		return nil
	}
	return promhttp.HandlerFor(o.Prometheus, promhttp.HandlerOpts{Registry: o.Prometheus})
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB               // Optional: postgres session storage
	RedisClient redis.UniversalClient // Optional: redis session storage and token revocations
	Logger      *slog.Logger
}

// buildObservability configures Prometheus collectors and the optional StatsD mirror.
func buildObservability(logger *slog.Logger, cfg config.ObservabilityConfig) ObservabilityContainer {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var sink *statsd.Client
	if cfg.Metrics.IsEnabled() {
		client, err := statsd.NewClient(statsd.Config{
			Address: cfg.Metrics.StatsdAddress,
			Prefix:  cfg.Metrics.Prefix,
			Logger:  logger,
		})
		if err != nil {
			logger.Error("failed to initialise statsd client", "error", err)
		} else {
			sink = client
		}
	}

	var mirror statsd.Sink = statsd.Discard{}
	if sink != nil {
		mirror = sink
	}

	return ObservabilityContainer{
		Metrics:       metrics.New(reg, mirror),
		Prometheus:    reg,
		MetricsSink:   sink,
		MetricsConfig: cfg.Metrics,
	}
}

// NewServices builds the services the enabled modes need. Data comes from the
// seeded in-memory fixtures.
func NewServices(ctx context.Context, deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return ServiceContainer{}, errors.New("service deps with config are required")
	}
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := ServiceContainer{Observability: buildObservability(logger, cfg.Observability)}
	authCfg := AuthConfig{Auth: cfg.Auth, IsDev: cfg.IsDev, RedisClient: deps.RedisClient, Logger: logger}

	var local ports.AuthGateway
	if cfg.IsAPIEnabled() || (cfg.IsUIEnabled() && cfg.Auth.Gateway == config.GatewayLocal) {
		tokens, err := BuildTokenManager(authCfg)
		if err != nil {
			return c, err
		}
		gw, err := BuildGateway(ctx, authCfg, tokens)
		if err != nil {
			return c, err
		}
		c.Tokens, local = tokens, gw
	}

	if cfg.IsAPIEnabled() {
		if err := buildDomainServices(&c, local, logger); err != nil {
			return c, err
		}
	}

	if cfg.IsUIEnabled() || cfg.IsReaperEnabled() {
		if err := buildSessionServices(&c, deps, local, logger); err != nil {
			return c, err
		}
	}

	return c, nil
}

func buildDomainServices(c *ServiceContainer, gw ports.AuthGateway, logger *slog.Logger) error {
	auth, err := BuildAuthService(gw, c.Tokens, logger)
	if err != nil {
		return err
	}
	fx := data.NewFixtures(data.RealTimeProvider{})

	c.Auth = auth
	c.Student = service.NewStudentService(service.StudentServiceOptions{
		Repos:  service.StudentRepos{Exams: fx.Exams, Results: fx.Results, Submissions: fx.Submissions},
		Logger: logger,
	})
	c.Teacher = service.NewTeacherService(service.TeacherServiceOptions{
		Exams:       fx.Exams,
		Submissions: fx.Submissions,
		Logger:      logger,
	})
	c.Admin = service.NewAdminService(service.AdminServiceOptions{
		Repos: service.AdminRepos{
			Accounts:    fx.Accounts,
			Exams:       fx.Exams,
			Submissions: fx.Submissions,
			Monitoring:  fx.Monitoring,
		},
		Logger: logger,
	})
	c.Proctor = service.NewProctorService(service.ProctorServiceOptions{Monitoring: fx.Monitoring, Logger: logger})
	return nil
}

func buildSessionServices(c *ServiceContainer, deps *ServiceDeps, local ports.AuthGateway, logger *slog.Logger) error {
	cfg := deps.Config
	api, err := apiclient.New(apiclient.Config{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("create api client: %w", err)
	}

	storage, err := BuildSessionStorage(StorageConfig{
		Storage:     cfg.Storage,
		DB:          deps.DB,
		RedisClient: deps.RedisClient,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	gwCfg := cfg.Auth
	if local == nil {
		// Reaper-only processes never sign anyone in; the remote gateway needs no keys.
		gwCfg.Gateway = config.GatewayRemote
	}
	gw, err := SessionGateway(gwCfg, local, api)
	if err != nil {
		return err
	}

	registry, err := session.NewRegistry(session.RegistryOptions{
		Gateway:    gw,
		StorageFor: storage.For,
		Logger:     logger,
		Metrics:    c.Observability.Metrics,
	})
	if err != nil {
		return fmt.Errorf("create session registry: %w", err)
	}
	c.Observability.Metrics.RegisterSessionGauge(c.Observability.Prometheus, func() float64 {
		return float64(registry.Len())
	})

	c.API, c.Storage, c.Registry = api, storage, registry
	return nil
}

// ServiceOrchestrationConfig contains configuration for service orchestration.
type ServiceOrchestrationConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
}

const (
	// shutdownWaitTimeout is the maximum time to wait for services to stop gracefully.
	shutdownWaitTimeout = 10 * time.Second
)

// serviceStartupDeps groups dependencies for service startup.
type serviceStartupDeps struct {
	ctx             context.Context
	cfg             *ServiceOrchestrationConfig
	logger          *slog.Logger
	enabledServices map[config.ServiceMode]bool
	errCh           chan error
}

// backgroundService describes a startable background component.
type backgroundService struct {
	mode  config.ServiceMode
	name  string
	start func(context.Context) error
}

// backgroundServiceHandle tracks a running background service.
type backgroundServiceHandle struct {
	name string
	done <-chan struct{}
}

// startHTTPServerIfEnabled starts the HTTP server when ui or api is enabled.
func startHTTPServerIfEnabled(deps *serviceStartupDeps) (*http.Server, error) {
	if deps == nil || deps.cfg == nil {
		return nil, nil
	}
	if !deps.enabledServices[config.ServiceModeUI] && !deps.enabledServices[config.ServiceModeAPI] {
		return nil, nil
	}
	return StartHTTPServer(&HTTPServerConfig{
		Config:   deps.cfg.Config,
		Services: deps.cfg.Services,
		Logger:   deps.logger,
		ErrCh:    deps.errCh,
	})
}

func launchBackground(ctx context.Context, deps *serviceStartupDeps, descriptor backgroundService) <-chan struct{} {
	if deps == nil || !deps.enabledServices[descriptor.mode] {
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := descriptor.start(ctx); err != nil {
			errMsg := fmt.Errorf("%s failed: %w", descriptor.name, err)
			select {
			case deps.errCh <- errMsg:
			case <-ctx.Done():
			default:
				deps.logger.WarnContext(ctx, "dropping background service error", "service", descriptor.name, "error", errMsg)
			}
		}
	}()

	deps.logger.InfoContext(ctx, "background service started", "service", descriptor.name, "mode", descriptor.mode)
	return done
}

func startBackgroundServices(deps *serviceStartupDeps, services []backgroundService) []backgroundServiceHandle {
	handles := make([]backgroundServiceHandle, 0, len(services))
	for _, svc := range services {
		if done := launchBackground(deps.ctx, deps, svc); done != nil {
			handles = append(handles, backgroundServiceHandle{name: svc.name, done: done})
		}
	}
	return handles
}

func newReaperBackgroundService(deps *serviceStartupDeps) backgroundService {
	return backgroundService{
		mode: config.ServiceModeReaper,
		name: "reaper",
		start: func(ctx context.Context) error {
			svcs := deps.cfg.Services
			if svcs.Registry == nil {
				return errors.New("reaper requires the session registry")
			}
			var sink statsd.Sink
			if svcs.Observability.MetricsSink != nil {
				sink = svcs.Observability.MetricsSink
			}
			return RunReaper(ctx, ReaperConfig{
				Sessions: svcs.Registry,
				Storage:  svcs.Storage.Purger,
				Config:   deps.cfg.Config.Sessions,
				Logger:   deps.logger,
				Metrics:  sink,
			})
		},
	}
}

func buildBackgroundServices(deps *serviceStartupDeps) []backgroundService {
	return []backgroundService{
		newReaperBackgroundService(deps),
	}
}

// RunServicesWithShutdown starts all enabled services and manages their lifecycle.
// This function blocks until a shutdown signal is received or a service fails.
func RunServicesWithShutdown(ctx context.Context, cfg *ServiceOrchestrationConfig) error {
	if cfg == nil || cfg.Config == nil {
		return errors.New("service orchestration config is required")
	}
	serviceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	enabledServices, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}
	errCh := make(chan error, errorChannelBufferSize(enabledServices))

	deps := &serviceStartupDeps{
		ctx:             serviceCtx,
		cfg:             cfg,
		logger:          logger,
		enabledServices: enabledServices,
		errCh:           errCh,
	}
	server, err := startHTTPServerIfEnabled(deps)
	if err != nil {
		return err
	}
	backgrounds := startBackgroundServices(deps, buildBackgroundServices(deps))

	return waitForShutdown(shutdownConfig{
		ctx:         serviceCtx,
		cancel:      cancel,
		errCh:       errCh,
		httpServer:  server,
		logger:      logger,
		backgrounds: backgrounds,
	})
}

// errorChannelCapacity counts the enabled services that can report a failure.
// ui and api share one HTTP server.
func errorChannelCapacity(enabled map[config.ServiceMode]bool) int {
	count := 0
	if enabled[config.ServiceModeUI] || enabled[config.ServiceModeAPI] {
		count++
	}
	if enabled[config.ServiceModeReaper] {
		count++
	}
	return count
}

func errorChannelBufferSize(enabled map[config.ServiceMode]bool) int {
	return errorChannelCapacity(enabled) + 1
}

// shutdownConfig contains dependencies for graceful shutdown.
type shutdownConfig struct {
	ctx         context.Context
	cancel      context.CancelFunc
	errCh       <-chan error
	httpServer  *http.Server
	logger      *slog.Logger
	backgrounds []backgroundServiceHandle
}

// waitForShutdown waits for a shutdown signal, a cancelled context or a service error.
func waitForShutdown(cfg shutdownConfig) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		cfg.logger.Info("shutting down services...")
		cfg.cancel()
		return gracefulStop(cfg)
	case <-cfg.ctx.Done():
		cfg.logger.Info("context cancelled, shutting down services...")
		return gracefulStop(cfg)
	case err := <-cfg.errCh:
		cfg.logger.Error("service error", "error", err)
		cfg.cancel()
		if stopErr := gracefulStop(cfg); stopErr != nil {
			cfg.logger.Error("graceful stop failed", "error", stopErr)
		}
		return err
	}
}

// gracefulStop attempts to gracefully stop all services.
func gracefulStop(cfg shutdownConfig) error {
	if cfg.httpServer != nil {
		// The service context is already cancelled; the drain gets its own deadline.
		if err := ShutdownHTTPServer(ShutdownConfig{
			Context: context.Background(),
			Server:  cfg.httpServer,
			Timeout: shutdownWaitTimeout,
			Logger:  cfg.logger,
		}); err != nil {
			return err
		}
	}

	for _, svc := range cfg.backgrounds {
		waitForService(svc.done, svc.name, cfg.logger)
	}
	return nil
}

// waitForService waits for a service to finish with timeout.
func waitForService(done <-chan struct{}, name string, logger *slog.Logger) {
	if done == nil {
		return
	}
	select {
	case <-done:
		logger.Info(name + " stopped")
	case <-time.After(shutdownWaitTimeout):
		logger.Warn("timeout waiting for " + name + " to stop")
	}
}
