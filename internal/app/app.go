package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/storefront-backend/internal/http"
	"github.com/yungbote/storefront-backend/internal/observability"
	"github.com/yungbote/storefront-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	Router   *gin.Engine
	Repos    Repos
	Clients  Clients
	Services Services
	Metrics  *observability.Metrics

	shutdownOtel func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	log.Info("Configuration loaded", "env", cfg.AppEnv, "cart_store", cfg.CartStore, "api_base_url", cfg.APIBaseURL)

	shutdownOtel := observability.InitOTel(ctx, log, observability.OtelConfig{
		Enabled:     cfg.OtelEnabled,
		ServiceName: cfg.OtelServiceName,
		Environment: cfg.AppEnv,
		Version:     cfg.Version,
		SampleRatio: cfg.OtelSampleRatio,
		Endpoint:    cfg.OtelEndpoint,
		Headers:     observability.ParseHeaders(cfg.OtelHeaders),
		Insecure:    cfg.OtelInsecure,
	})

	var metrics *observability.Metrics
	if cfg.MetricsEnabled {
		metrics = observability.NewMetrics()
	}

	reposet, err := wireRepos(ctx, log, cfg)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init repos: %w", err)
	}
	clients, err := wireClients(log, cfg, metrics)
	if err != nil {
		reposet.Close()
		log.Sync()
		return nil, err
	}
	serviceset := wireServices(log, cfg, clients, reposet)
	cartBus, err := wireCartBus(ctx, log, cfg, &reposet)
	if err == nil {
		err = serviceset.Carts.Listen(ctx, cartBus, cfg.InstanceID)
	}
	if err != nil {
		reposet.Close()
		log.Sync()
		return nil, fmt.Errorf("init cart bus: %w", err)
	}
	handlerset := wireHandlers(log, serviceset, metrics)
	middleware := wireMiddleware(log, clients)
	router := wireRouter(log, cfg, handlerset, middleware, metrics)

	return &App{
		Log:          log,
		Cfg:          cfg,
		Router:       router,
		Repos:        reposet,
		Clients:      clients,
		Services:     serviceset,
		Metrics:      metrics,
		shutdownOtel: shutdownOtel,
	}, nil
}

// Run serves HTTP on the configured address until ctx ends.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Log.Info("HTTP server listening", "addr", a.Cfg.HTTPAddr)
	srv := &http.Server{Engine: a.Router}
	return srv.Run(ctx, a.Cfg.HTTPAddr)
}

func (a *App) Close(ctx context.Context) {
	if a == nil {
		return
	}
	if a.shutdownOtel != nil {
		if err := a.shutdownOtel(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	a.Repos.Close()
	a.Log.Sync()
}
