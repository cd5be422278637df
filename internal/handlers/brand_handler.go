package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/anonto42/brand-radar/backend/internal/discovery"
	"github.com/anonto42/brand-radar/backend/internal/models"
	"github.com/anonto42/brand-radar/backend/internal/repositories"
	"github.com/anonto42/brand-radar/backend/pkg/logger"
	"github.com/labstack/echo/v4"
)

// BrandHandler handles brand HTTP requests
type BrandHandler struct {
	brandRepository repositories.BrandRepository
	limit           int // max brands per owner, 0 = unlimited
	log             logger.Logger
}

// NewBrandHandler creates a new BrandHandler
func NewBrandHandler(brandRepo repositories.BrandRepository, limit int, log logger.Logger) *BrandHandler {
	return &BrandHandler{brandRepository: brandRepo, limit: limit, log: log}
}

// RegisterBrandRoutes registers brand routes
func (h *BrandHandler) RegisterBrandRoutes(g *echo.Group) {
	g.POST("/brands", h.CreateBrand)
	g.GET("/brands", h.ListBrands)
	g.DELETE("/brands", h.DeleteBrand)
	g.DELETE("/brands/:id", h.DeleteBrand)
}

// CreateBrand registers a brand for the caller
func (h *BrandHandler) CreateBrand(c echo.Context) error {
	uid, err := ownerID(c)
	if err != nil {
		return err
	}

	var req models.CreateBrandRequest
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("%w: invalid request payload", models.ErrInvalidInput)
	}
	req.Keywords = discovery.NormalizeKeywords(req.Keywords)
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	if h.limit > 0 {
		// Count-then-insert is not atomic; two concurrent creates can both pass.
		n, err := h.brandRepository.CountBrandsByUserID(ctx, uid)
		if err != nil {
			return err
		}
		if n >= int64(h.limit) {
			return fmt.Errorf("%w: brand limit of %d reached", models.ErrConflict, h.limit)
		}
	}

	brand := &models.Brand{
		UserID:      uid,
		UserEmail:   req.UserEmail,
		UserName:    strings.TrimSpace(req.UserName),
		URL:         req.URL,
		Description: req.Description,
		Keywords:    req.Keywords,
	}
	if err := h.brandRepository.CreateBrand(ctx, brand); err != nil {
		return err
	}

	h.log.Info("brand created", logger.String("user_id", uid), logger.String("brand_id", brand.ID.Hex()))
	return c.JSON(http.StatusCreated, echo.Map{"brand": brand})
}

// ListBrands returns the caller's brands, newest first
func (h *BrandHandler) ListBrands(c echo.Context) error {
	uid, err := ownerID(c)
	if err != nil {
		return err
	}
	brands, err := h.brandRepository.GetBrandsByUserID(c.Request().Context(), uid)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"brands": brands})
}

// DeleteBrand deletes one of the caller's brands. The id comes from the path or ?id=.
func (h *BrandHandler) DeleteBrand(c echo.Context) error {
	uid, err := ownerID(c)
	if err != nil {
		return err
	}

	id := c.Param("id")
	if id == "" {
		id = c.QueryParam("id")
	}
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: brand id is required", models.ErrInvalidInput)
	}

	if err := h.brandRepository.DeleteBrand(c.Request().Context(), id, uid); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Brand deleted successfully"})
}
