package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/anonto42/brand-radar/backend/internal/comments"
	"github.com/anonto42/brand-radar/backend/internal/discovery"
	"github.com/anonto42/brand-radar/backend/internal/middleware"
	"github.com/anonto42/brand-radar/backend/internal/router"
	"github.com/anonto42/brand-radar/backend/pkg/cache"
	"github.com/anonto42/brand-radar/backend/pkg/config"
	"github.com/anonto42/brand-radar/backend/pkg/firebase"
	"github.com/anonto42/brand-radar/backend/pkg/logger"
	"github.com/anonto42/brand-radar/backend/pkg/metrics"
	"github.com/anonto42/brand-radar/backend/pkg/reddit"
	"github.com/anonto42/brand-radar/backend/pkg/resilience"
	"github.com/labstack/echo/v4"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("server: %v", err)
	}
}

// run owns every resource it opens, so its defers release them on any exit path.
func run() error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logg := logger.New(cfg.LogLevel, cfg.IsDevelopment())
	defer func() { _ = logg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database connections
	db, err := config.InitDB(cfg, logg)
	if err != nil {
		return fmt.Errorf("initialize databases: %w", err)
	}
	defer db.CloseDB()

	stores, err := router.NewStores(ctx, db)
	if err != nil {
		return fmt.Errorf("prepare stores: %w", err)
	}

	verifier, err := newVerifier(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize authentication: %w", err)
	}

	breaker := resilience.New(resilience.RedditConfig(), func(name, from, to string) {
		metrics.BreakerTransitionsTotal.WithLabelValues(name, to).Inc()
		logg.Warn("circuit breaker state changed",
			logger.String("name", name), logger.String("from", from), logger.String("to", to))
	})
	redditClient, err := reddit.New(reddit.Config{
		ClientID:          cfg.RedditClientID,
		ClientSecret:      cfg.RedditClientSecret,
		Username:          cfg.RedditUsername,
		Password:          cfg.RedditPassword,
		UserAgent:         cfg.RedditUserAgent,
		RequestsPerMinute: cfg.RedditRatePerMinute,
		Breaker:           breaker,
	})
	if err != nil {
		return fmt.Errorf("create reddit client: %w", err)
	}

	var searchCache discovery.Cache
	if redisClient := cache.Connect(cfg.RedisAddr, logg); redisClient != nil {
		defer func() { _ = redisClient.Close() }()
		if c := cache.NewSearchCache(redisClient, cfg.SearchCacheTTL); c != nil {
			searchCache = c
		}
	}

	discoverySvc := discovery.NewService(redditClient, searchCache, discovery.Config{
		Concurrency:   cfg.DiscoveryConcurrency,
		SearchTimeout: cfg.DiscoverySearchTimeout,
	}, logg)
	commentSvc := comments.NewService(redditClient, stores.Ledger, logg)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	config.SetupMiddleware(e, logg, cfg.RequestTimeout)
	router.SetupRoutes(e, router.Deps{
		Brands:     stores.Brands,
		SavedPosts: stores.SavedPosts,
		Discovery:  discoverySvc,
		Comments:   commentSvc,
		Verifier:   verifier,
		BrandLimit: cfg.BrandLimit,
		Log:        logg,
	})

	metricsSrv := metrics.NewServer(":" + cfg.MetricsPort)
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error("metrics server stopped", logger.Error(err))
		}
	}()

	serveErr := make(chan error, 1)
	go func() {
		logg.Info("server starting", logger.String("port", cfg.Port), logger.String("auth_mode", cfg.AuthMode))
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		runErr = fmt.Errorf("http server: %w", err)
	}
	logg.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logg.Error("server shutdown failed", logger.Error(err))
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logg.Error("metrics server shutdown failed", logger.Error(err))
	}
	return runErr
}

func newVerifier(ctx context.Context, cfg *config.Config) (middleware.Verifier, error) {
	if cfg.AuthMode == config.AuthJWT {
		return middleware.NewJWTVerifier(cfg.JWTSecret), nil
	}
	app, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath)
	if err != nil {
		return nil, err
	}
	return middleware.NewFirebaseVerifier(app.AuthClient), nil
}
