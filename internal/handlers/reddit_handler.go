package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/anonto42/brand-radar/backend/internal/comments"
	"github.com/anonto42/brand-radar/backend/internal/discovery"
	"github.com/anonto42/brand-radar/backend/internal/models"
	"github.com/anonto42/brand-radar/backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

// Discoverer finds Reddit posts matching a keyword list.
type Discoverer interface {
	Discover(ctx context.Context, keywords []string) (*discovery.Result, error)
}

// Commenter posts brand comments and lists what was posted.
type Commenter interface {
	Post(ctx context.Context, userID string, brand *models.Brand, postID, text, key string) (*comments.Outcome, error)
	History(ctx context.Context, userID string, limit int) ([]models.PostedComment, error)
}

// RedditHandler serves discovery and comment posting for the caller's brand.
type RedditHandler struct {
	brandRepository repositories.BrandRepository
	discoverer      Discoverer
	commenter       Commenter
}

func NewRedditHandler(brandRepo repositories.BrandRepository, discoverer Discoverer, commenter Commenter) *RedditHandler {
	return &RedditHandler{brandRepository: brandRepo, discoverer: discoverer, commenter: commenter}
}

// RegisterRedditRoutes registers discovery and comment routes
func (h *RedditHandler) RegisterRedditRoutes(g *echo.Group) {
	g.GET("/posts/reddit", h.DiscoverPosts)
	g.POST("/posts/reddit", h.PostComment)
	g.GET("/posts/reddit/comments", h.ListComments)
}

// FailedKeywordsHeader carries one query-escaped value per keyword whose search
// failed. The body stays the bare post array the dashboard expects.
const FailedKeywordsHeader = "X-Failed-Keywords"

// DiscoverPosts runs discovery over ?brand_id= or, without it, the caller's newest brand
func (h *RedditHandler) DiscoverPosts(c echo.Context) error {
	uid, err := ownerID(c)
	if err != nil {
		return err
	}
	brand, err := h.resolveBrand(c, uid)
	if err != nil {
		return err
	}

	result, err := h.discoverer.Discover(c.Request().Context(), brand.Keywords)
	if err != nil {
		return err
	}
	for _, kw := range result.FailedKeywords {
		c.Response().Header().Add(FailedKeywordsHeader, url.QueryEscape(kw))
	}
	return c.JSON(http.StatusOK, result.Posts)
}

// PostComment replies to a Reddit post on behalf of the caller's brand.
// A replay of a finished idempotency key answers 200 with the stored record.
func (h *RedditHandler) PostComment(c echo.Context) error {
	uid, err := ownerID(c)
	if err != nil {
		return err
	}

	var req models.PostCommentRequest
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("%w: invalid request payload", models.ErrInvalidInput)
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.Request().Header.Get("Idempotency-Key")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	brand, err := h.resolveBrand(c, uid)
	if err != nil {
		return err
	}

	out, err := h.commenter.Post(c.Request().Context(), uid, brand, req.PostID, req.Comment, req.IdempotencyKey)
	if err != nil {
		return err
	}
	status := http.StatusCreated
	if out.Replayed {
		status = http.StatusOK
	}
	return c.JSON(status, out.Comment)
}

// ListComments returns the caller's posted comments, newest first
func (h *RedditHandler) ListComments(c echo.Context) error {
	uid, err := ownerID(c)
	if err != nil {
		return err
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	history, err := h.commenter.History(c.Request().Context(), uid, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, history)
}

func (h *RedditHandler) resolveBrand(c echo.Context, uid string) (*models.Brand, error) {
	ctx := c.Request().Context()
	if id := c.QueryParam("brand_id"); id != "" {
		return h.brandRepository.GetBrandForUser(ctx, id, uid)
	}
	brand, err := h.brandRepository.GetLatestBrand(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("no brand registered: %w", err)
	}
	return brand, nil
}
