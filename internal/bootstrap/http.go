package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	examportal "github.com/target/exam-portal"
	"github.com/target/exam-portal/config"
	httpx "github.com/target/exam-portal/internal/http"
)

// HTTPServerConfig contains configuration for HTTP server.
type HTTPServerConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
	// ErrCh receives the error when the listener fails after startup.
	ErrCh chan<- error
}

// BuildHTTPHandler assembles the router for the enabled surfaces.
func BuildHTTPHandler(appCfg *config.AppConfig, svcs ServiceContainer, logger *slog.Logger) (http.Handler, error) {
	services := httpx.RouterServices{
		Auth:           svcs.Auth,
		Student:        svcs.Student,
		Teacher:        svcs.Teacher,
		Admin:          svcs.Admin,
		Proctor:        svcs.Proctor,
		Registry:       svcs.Registry,
		API:            svcs.API,
		MetricsHandler: svcs.Observability.Handler(),
		EnableAPI:      appCfg.IsAPIEnabled(),
		EnableUI:       appCfg.IsUIEnabled(),
		CookieDomain:   appCfg.HTTP.CookieDomain,
		SecureCookies:  strings.HasPrefix(appCfg.HTTP.BaseURL, "https://"),
		Logger:         logger,
	}
	if svcs.Observability.Metrics != nil {
		services.Metrics = svcs.Observability.Metrics
	}

	if services.EnableUI {
		templates, err := examportal.Templates()
		if err != nil {
			return nil, err
		}
		renderer, err := httpx.NewTemplateRenderer(httpx.TemplateRendererConfig{TemplateFS: templates, Logger: logger})
		if err != nil {
			return nil, fmt.Errorf("parse templates: %w", err)
		}
		static, err := examportal.Static()
		if err != nil {
			return nil, err
		}
		services.Renderer, services.StaticFS = renderer, static
	}

	if appCfg.HTTP.CompressionEnabled {
		logger.Info("HTTP compression enabled", "level", appCfg.HTTP.CompressionLevel)
		services.Compression = &httpx.CompressionConfig{Level: appCfg.HTTP.CompressionLevel, Logger: logger}
	}

	return httpx.NewRouter(services), nil
}

// StartHTTPServer binds the listener and serves in the background.
// Returns the server instance for graceful shutdown.
func StartHTTPServer(cfg *HTTPServerConfig) (*http.Server, error) {
	if cfg == nil || cfg.Config == nil {
		return nil, errors.New("http server config is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	handler, err := BuildHTTPHandler(cfg.Config, cfg.Services, logger)
	if err != nil {
		return nil, err
	}

	addr := cfg.Config.HTTP.Addr
	if addr == "" {
		addr = ":8080"
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Bind before serving so a taken port fails startup.
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	go func() {
		logger.Info("starting HTTP server", "addr", ln.Addr().String())
		if serveErr := server.Serve(ln); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", serveErr)
			if cfg.ErrCh != nil {
				select {
				case cfg.ErrCh <- fmt.Errorf("http server: %w", serveErr):
				default:
				}
			}
		}
	}()

	return server, nil
}

// ShutdownConfig contains dependencies for HTTP server shutdown.
type ShutdownConfig struct {
	Context context.Context
	Server  *http.Server
	Timeout time.Duration // Defaults to 10s
	Logger  *slog.Logger
}

// ShutdownHTTPServer drains in-flight requests and stops the server.
func ShutdownHTTPServer(cfg ShutdownConfig) error {
	if cfg.Server == nil {
		return nil
	}
	ctx := cfg.Context
	if ctx == nil {
		ctx = context.Background()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("shutting down HTTP server")
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := cfg.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("HTTP server stopped")
	}
	return nil
}
