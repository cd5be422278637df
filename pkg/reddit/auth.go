package reddit

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
)

// passwordTokenSource performs the "script app" password grant each time
// the cached token expires. Reddit does not hand out refresh tokens for it.
type passwordTokenSource struct {
	ctx      context.Context
	cfg      *oauth2.Config
	username string
	password string
}

func (s passwordTokenSource) Token() (*oauth2.Token, error) {
	return s.cfg.PasswordCredentialsToken(s.ctx, s.username, s.password)
}

// userAgentTransport stamps the User-Agent Reddit requires on every request,
// token exchange included.
type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(r)
}

func newOAuthHTTPClient(cfg Config) *http.Client {
	base := &http.Client{
		Transport: userAgentTransport{base: http.DefaultTransport, userAgent: cfg.UserAgent},
		Timeout:   cfg.HTTPTimeout,
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)

	oc := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  cfg.TokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
	ts := oauth2.ReuseTokenSource(nil, passwordTokenSource{
		ctx:      ctx,
		cfg:      oc,
		username: cfg.Username,
		password: cfg.Password,
	})

	client := oauth2.NewClient(ctx, ts)
	client.Timeout = cfg.HTTPTimeout
	return client
}
