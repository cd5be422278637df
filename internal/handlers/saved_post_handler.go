package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anonto42/brand-radar/backend/internal/models"
	"github.com/anonto42/brand-radar/backend/internal/repositories"
	"github.com/anonto42/brand-radar/backend/pkg/metrics"
	"github.com/labstack/echo/v4"
)

// SavedPostHandler handles saved post HTTP requests
type SavedPostHandler struct {
	savedPostRepository repositories.SavedPostRepository
}

// NewSavedPostHandler creates a new SavedPostHandler
func NewSavedPostHandler(savedPostRepo repositories.SavedPostRepository) *SavedPostHandler {
	return &SavedPostHandler{savedPostRepository: savedPostRepo}
}

// RegisterSavedPostRoutes registers saved post routes
func (h *SavedPostHandler) RegisterSavedPostRoutes(g *echo.Group) {
	g.GET("/posts/saved", h.ListSavedPosts)
	g.POST("/posts/saved", h.SavePost)
	g.DELETE("/posts/saved", h.UnsavePost)
}

// ListSavedPosts returns the caller's saved posts, newest first
func (h *SavedPostHandler) ListSavedPosts(c echo.Context) error {
	uid, err := ownerID(c)
	if err != nil {
		return err
	}
	posts, err := h.savedPostRepository.GetSavedPostsByUser(c.Request().Context(), uid)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, posts)
}

// SavePost bookmarks a post. Saving the same postUrl twice is a conflict.
func (h *SavedPostHandler) SavePost(c echo.Context) error {
	uid, err := ownerID(c)
	if err != nil {
		return err
	}

	var req models.SavePostRequest
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("%w: invalid request payload", models.ErrInvalidInput)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	savedPost := &models.SavedPost{
		UserID:  uid,
		PostURL: strings.TrimSpace(req.PostURL),
		Title:   req.Title,
		Content: req.Content,
	}
	if err := h.savedPostRepository.SavePost(c.Request().Context(), savedPost); err != nil {
		if errors.Is(err, models.ErrConflict) {
			metrics.SavedPostConflictsTotal.Inc()
			return fmt.Errorf("%w: post already saved", models.ErrConflict)
		}
		return err
	}
	return c.JSON(http.StatusOK, savedPost)
}

// UnsavePost removes a saved post identified by ?postUrl=
func (h *SavedPostHandler) UnsavePost(c echo.Context) error {
	uid, err := ownerID(c)
	if err != nil {
		return err
	}

	postURL := strings.TrimSpace(c.QueryParam("postUrl"))
	if postURL == "" {
		return fmt.Errorf("%w: postUrl is required", models.ErrInvalidInput)
	}
	if err := h.savedPostRepository.UnsavePost(c.Request().Context(), uid, postURL); err != nil {
		return err
	}
	return c.String(http.StatusOK, "Post removed from saved")
}
