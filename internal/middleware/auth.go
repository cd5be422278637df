package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anonto42/brand-radar/backend/internal/models"
	"github.com/labstack/echo/v4"
)

const (
	ownerIDKey = "ownerID"
	emailKey   = "ownerEmail"
)

// Identity is what a verified bearer token says about the caller.
type Identity struct {
	UID   string
	Email string
}

// Verifier checks a bearer token with the identity provider.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// Auth rejects requests without a valid bearer token and stores the caller's
// owner id in the echo context.
func Auth(v Verifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				return err
			}

			id, err := v.Verify(c.Request().Context(), token)
			if err != nil {
				// a provider outage says nothing about the token
				if errors.Is(err, models.ErrUpstream) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				return fmt.Errorf("%w: %v", models.ErrUnauthenticated, err)
			}
			if id.UID == "" {
				return fmt.Errorf("%w: token has no subject", models.ErrUnauthenticated)
			}

			c.Set(ownerIDKey, id.UID)
			c.Set(emailKey, id.Email)
			return next(c)
		}
	}
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", fmt.Errorf("%w: authorization header is missing", models.ErrUnauthenticated)
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", fmt.Errorf("%w: authorization header must be in Bearer format", models.ErrUnauthenticated)
	}
	return parts[1], nil
}

// OwnerID returns the verified caller id, or "" outside an authenticated route.
func OwnerID(c echo.Context) string {
	id, _ := c.Get(ownerIDKey).(string)
	return id
}

// OwnerEmail returns the email claim of the caller, when the provider supplied one.
func OwnerEmail(c echo.Context) string {
	email, _ := c.Get(emailKey).(string)
	return email
}

// WithOwner marks c as authenticated as uid. Tests use it to skip token verification.
func WithOwner(c echo.Context, uid string) {
	c.Set(ownerIDKey, uid)
}
