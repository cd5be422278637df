package router

import (
	"context"
	"fmt"

	"github.com/anonto42/brand-radar/backend/internal/handlers"
	"github.com/anonto42/brand-radar/backend/internal/middleware"
	"github.com/anonto42/brand-radar/backend/internal/repositories"
	"github.com/anonto42/brand-radar/backend/internal/validators"
	"github.com/anonto42/brand-radar/backend/pkg/config"
	"github.com/anonto42/brand-radar/backend/pkg/logger"
	"github.com/labstack/echo/v4"
)

// Stores are the persistent repositories backing the API.
type Stores struct {
	Brands     *repositories.MongoBrandRepository
	SavedPosts *repositories.MongoSavedPostRepository
	Ledger     *repositories.PostgresCommentLedger
}

// NewStores builds the repositories and prepares their indexes and tables.
func NewStores(ctx context.Context, db *config.DB) (*Stores, error) {
	mdb := db.Database()
	s := &Stores{
		Brands:     repositories.NewMongoBrandRepository(mdb),
		SavedPosts: repositories.NewMongoSavedPostRepository(mdb),
		Ledger:     repositories.NewPostgresCommentLedger(db.Postgres),
	}
	if err := s.Brands.EnsureIndexes(ctx); err != nil {
		return nil, err
	}
	if err := s.SavedPosts.EnsureIndexes(ctx); err != nil {
		return nil, err
	}
	if err := s.Ledger.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to auto migrate posted comments: %w", err)
	}
	return s, nil
}

// Deps are the collaborators the routes are wired to.
type Deps struct {
	Brands     repositories.BrandRepository
	SavedPosts repositories.SavedPostRepository
	Discovery  handlers.Discoverer
	Comments   handlers.Commenter
	Verifier   middleware.Verifier
	BrandLimit int
	Log        logger.Logger
}

// SetupRoutes configures all application routes, the validator and the error handler
func SetupRoutes(e *echo.Echo, d Deps) {
	e.Validator = validators.NewValidator()
	e.HTTPErrorHandler = handlers.NewHTTPErrorHandler(d.Log)

	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)

	api := e.Group("/api/v1")
	api.Use(middleware.Auth(d.Verifier))

	handlers.NewBrandHandler(d.Brands, d.BrandLimit, d.Log).RegisterBrandRoutes(api)
	handlers.NewRedditHandler(d.Brands, d.Discovery, d.Comments).RegisterRedditRoutes(api)
	handlers.NewSavedPostHandler(d.SavedPosts).RegisterSavedPostRoutes(api)

	d.Log.Info("routes configured", logger.Int("count", len(e.Routes())))
}
