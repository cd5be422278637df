package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/anonto42/brand-radar/backend/internal/middleware"
	"github.com/anonto42/brand-radar/backend/internal/models"
	"github.com/anonto42/brand-radar/backend/pkg/logger"
	"github.com/labstack/echo/v4"
)

// NewHTTPErrorHandler renders every error as {"error": "..."} with the status
// its sentinel maps to. Unknown errors are logged and reported as 500.
func NewHTTPErrorHandler(log logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, msg := statusFor(err)
		if status >= http.StatusInternalServerError {
			log.Error("request failed",
				logger.String("method", c.Request().Method),
				logger.String("path", c.Path()),
				logger.Int("status", status),
				logger.Error(err))
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, echo.Map{"error": msg})
		}
		if err != nil {
			log.Error("failed to write error response", logger.Error(err))
		}
	}
}

func statusFor(err error) (int, string) {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		return he.Code, fmt.Sprintf("%v", he.Message)
	case errors.Is(err, models.ErrUnauthenticated):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, models.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict, err.Error()
	// repository errors wrap ErrUpstream around the context error
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "upstream provider timed out"
	case errors.Is(err, models.ErrUpstream):
		return http.StatusBadGateway, "upstream provider degraded"
	default:
		return http.StatusInternalServerError, "unexpected error"
	}
}

func ownerID(c echo.Context) (string, error) {
	id := middleware.OwnerID(c)
	if id == "" {
		return "", fmt.Errorf("%w: user not authenticated", models.ErrUnauthenticated)
	}
	return id, nil
}
