package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/imagecatalog/internal/adapters/http/api"
	"github.com/okian/imagecatalog/internal/adapters/http/swagger"
	"github.com/okian/imagecatalog/internal/adapters/kv"
	service "github.com/okian/imagecatalog/internal/app"
	"github.com/okian/imagecatalog/internal/config"
	"github.com/okian/imagecatalog/pkg/logger"
	"github.com/okian/imagecatalog/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.InitWithFormat(cfg.LogFormat); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()
	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc, err := newService(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			log.Warn(ctx, "closing namespace failed", logger.Error(err))
		}
	}()

	startSystemMetrics(ctx, metrics.Default())

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("backend", cfg.Backend),
			logger.String("namespace", cfg.Namespace))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
	return nil
}

// newService opens the configured namespace, seeds it when a seed file is
// set, and returns the catalog reader over it.
func newService(ctx context.Context, cfg *config.Config, log logger.Logger) (*service.Service, error) {
	ns, err := kv.Open(ctx, kv.Options{
		Backend:    cfg.Backend,
		Namespace:  cfg.Namespace,
		SQLitePath: cfg.SQLite.Path,
		Minio: kv.MinioConfig{
			Endpoint:  cfg.Minio.Endpoint,
			AccessKey: cfg.Minio.AccessKey,
			SecretKey: cfg.Minio.SecretKey,
			Bucket:    cfg.Minio.Bucket,
			Region:    cfg.Minio.Region,
			UseSSL:    cfg.Minio.UseSSL,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s namespace: %w", cfg.Backend, err)
	}

	if cfg.SeedFile != "" {
		w, ok := ns.(kv.Writer)
		if !ok {
			_ = ns.Close()
			return nil, fmt.Errorf("%s backend cannot be seeded", cfg.Backend)
		}
		n, err := kv.SeedFile(ctx, w, cfg.SeedFile)
		if err != nil {
			_ = ns.Close()
			return nil, err
		}
		log.Info(ctx, "seeded namespace", logger.String("file", cfg.SeedFile), logger.Int("entries", n))
	}

	return service.New(ns,
		service.WithLogger(log.Named("catalog")),
		service.WithNamespaceName(cfg.Namespace),
		service.WithBackendName(cfg.Backend),
	), nil
}

// newMux registers the docs and catalog routes.
func newMux(ctx context.Context, svc *service.Service) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc).Register(ctx, mux)
	return mux
}

// startSystemMetrics runs the updater in the background unless m is disabled.
func startSystemMetrics(ctx context.Context, m *metrics.Manager) bool {
	if !m.Enabled() {
		return false
	}
	go startSystemMetricsUpdater(ctx, m.RefreshInterval())
	return true
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
