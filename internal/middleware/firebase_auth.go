package middleware

import (
	"context"
	"errors"
	"fmt"

	"firebase.google.com/go/v4/auth"
	"github.com/anonto42/brand-radar/backend/internal/models"
)

// IDTokenVerifier is the part of *auth.Client the middleware needs.
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// FirebaseVerifier verifies Firebase ID tokens.
type FirebaseVerifier struct {
	client IDTokenVerifier
}

func NewFirebaseVerifier(client IDTokenVerifier) *FirebaseVerifier {
	return &FirebaseVerifier{client: client}
}

func (v *FirebaseVerifier) Verify(ctx context.Context, idToken string) (*Identity, error) {
	token, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		if auth.IsCertificateFetchFailed(err) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: identity provider: %w", models.ErrUpstream, err)
		}
		return nil, err
	}
	email, _ := token.Claims["email"].(string)
	return &Identity{UID: token.UID, Email: email}, nil
}
