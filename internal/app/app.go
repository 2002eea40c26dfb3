package app

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	apphttp "github.com/yungbote/shipdash-backend/internal/http"
	"github.com/yungbote/shipdash-backend/internal/observability"
	"github.com/yungbote/shipdash-backend/internal/pkg/logger"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	Metrics  *observability.Metrics
	Clients  Clients
	Repos    Repos
	Services Services
	Server   *apphttp.Server

	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

// New builds the application from the environment. The caller owns the returned
// App and must Close it.
func New(ctx context.Context) (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg, err := LoadConfig(log)
	if err != nil {
		log.Sync()
		return nil, err
	}
	return NewWithConfig(ctx, log, cfg)
}

func NewWithConfig(ctx context.Context, log *logger.Logger, cfg Config) (*App, error) {
	if strings.HasPrefix(strings.ToLower(cfg.LogMode), "prod") {
		gin.SetMode(gin.ReleaseMode)
	}

	otelShutdown := observability.InitOTel(ctx, log, cfg.Otel)
	metrics := observability.NewMetrics()

	clients, err := wireClients(ctx, log, cfg)
	if err != nil {
		_ = otelShutdown(ctx)
		log.Sync()
		return nil, err
	}

	repoSet, err := wireRepos(log, cfg, clients)
	if err != nil {
		clients.Close(ctx, log)
		_ = otelShutdown(ctx)
		log.Sync()
		return nil, err
	}

	serviceSet, err := wireServices(log, cfg, repoSet, clients, metrics)
	if err != nil {
		clients.Close(ctx, log)
		_ = otelShutdown(ctx)
		log.Sync()
		return nil, err
	}

	handlerSet := wireHandlers(log, cfg, repoSet, serviceSet)
	server := wireServer(log, cfg, handlerSet, metrics)

	return &App{
		Log:          log,
		Cfg:          cfg,
		Metrics:      metrics,
		Clients:      clients,
		Repos:        repoSet,
		Services:     serviceSet,
		Server:       server,
		otelShutdown: otelShutdown,
	}, nil
}

// Start launches the background task workers.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if a.Services.JobWorker != nil {
		a.Services.JobWorker.Start(ctx)
	}
}

// Run starts the workers and serves HTTP until ctx is cancelled or SIGINT/SIGTERM
// arrives, then drains in-flight requests.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.Start()

	addr := net.JoinHostPort("", a.Cfg.Port)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Log.Info("HTTP server listening", "addr", addr)
		return a.Server.Run(addr)
	})
	g.Go(func() error {
		<-gctx.Done()
		a.Log.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.shutdownTimeout())
		defer cancel()
		return a.Server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (a *App) shutdownTimeout() time.Duration {
	if a.Cfg.ShutdownTimeout <= 0 {
		return 30 * time.Second
	}
	return a.Cfg.ShutdownTimeout
}

// Close stops the workers and releases the queue, the store and the tracer.
func (a *App) Close() {
	if a == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout())
	defer cancel()

	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.Services.JobWorker != nil {
		a.Services.JobWorker.Wait()
	}
	a.Clients.Close(ctx, a.Log)
	if a.otelShutdown != nil {
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Info("Shutdown complete")
		a.Log.Sync()
	}
}
