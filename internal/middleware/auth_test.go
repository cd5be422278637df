package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/anonto42/brand-radar/backend/internal/models"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runAuth(t *testing.T, v Verifier, header string) (string, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/brands", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	c := e.NewContext(req, httptest.NewRecorder())

	var seen string
	err := Auth(v)(func(c echo.Context) error {
		seen = OwnerID(c)
		return nil
	})(c)
	return seen, err
}

func TestAuth_JWT(t *testing.T) {
	v := NewJWTVerifier("test-secret")
	token, err := v.Issue("user-1", "u@example.com", time.Hour)
	require.NoError(t, err)

	uid, err := runAuth(t, v, "Bearer "+token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", uid)
}

func TestAuth_Rejects(t *testing.T) {
	v := NewJWTVerifier("test-secret")
	expired, err := v.Issue("user-1", "", -time.Minute)
	require.NoError(t, err)
	otherKey, err := NewJWTVerifier("other").Issue("user-1", "", time.Hour)
	require.NoError(t, err)
	noSubject, err := v.Issue("", "", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc"},
		{"garbage", "Bearer not-a-jwt"},
		{"expired", "Bearer " + expired},
		{"wrong secret", "Bearer " + otherKey},
		{"no subject", "Bearer " + noSubject},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uid, err := runAuth(t, v, tt.header)
			assert.ErrorIs(t, err, models.ErrUnauthenticated)
			assert.Empty(t, uid)
		})
	}
}

type fakeIDTokens struct {
	token *auth.Token
	err   error
}

func (f fakeIDTokens) VerifyIDToken(context.Context, string) (*auth.Token, error) {
	return f.token, f.err
}

func TestFirebaseVerifier(t *testing.T) {
	v := NewFirebaseVerifier(fakeIDTokens{token: &auth.Token{
		UID:    "fb-uid",
		Claims: map[string]interface{}{"email": "a@b.c"},
	}})
	id, err := v.Verify(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "fb-uid", id.UID)
	assert.Equal(t, "a@b.c", id.Email)

	uid, err := runAuth(t, NewFirebaseVerifier(fakeIDTokens{err: errors.New("expired")}), "Bearer tok")
	assert.ErrorIs(t, err, models.ErrUnauthenticated)
	assert.Empty(t, uid)
}

type stubVerifier struct {
	err error
}

func (s stubVerifier) Verify(context.Context, string) (*Identity, error) {
	return nil, s.err
}

func TestAuth_ProviderOutageIsNotUnauthenticated(t *testing.T) {
	outage := fmt.Errorf("%w: identity provider: fetch certs: connection refused", models.ErrUpstream)
	uid, err := runAuth(t, stubVerifier{err: outage}, "Bearer tok")
	assert.ErrorIs(t, err, models.ErrUpstream)
	assert.NotErrorIs(t, err, models.ErrUnauthenticated)
	assert.Empty(t, uid)

	_, err = runAuth(t, stubVerifier{err: errors.New("token expired")}, "Bearer tok")
	assert.ErrorIs(t, err, models.ErrUnauthenticated)
}

func TestFirebaseVerifier_ProviderTimeoutIsUpstream(t *testing.T) {
	v := NewFirebaseVerifier(fakeIDTokens{err: fmt.Errorf("fetch public keys: %w", context.DeadlineExceeded)})
	_, err := v.Verify(context.Background(), "tok")
	assert.ErrorIs(t, err, models.ErrUpstream)

	uid, err := runAuth(t, v, "Bearer tok")
	assert.ErrorIs(t, err, models.ErrUpstream)
	assert.NotErrorIs(t, err, models.ErrUnauthenticated)
	assert.Empty(t, uid)
}
