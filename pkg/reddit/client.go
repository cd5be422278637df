// Package reddit is a small client for the two Reddit OAuth API calls the
// service needs: link search and comment submission.
package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/anonto42/brand-radar/backend/pkg/resilience"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL   = "https://oauth.reddit.com"
	DefaultTokenURL  = "https://www.reddit.com/api/v1/access_token"
	DefaultUserAgent = "brand-radar/1.0.0"

	linkPrefix = "t3_"
)

// ErrMissingCredentials is returned by New when any credential is blank.
var ErrMissingCredentials = errors.New("reddit: missing API credentials")

// APIError is a non-successful answer from Reddit.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("reddit api: status %d: %s", e.StatusCode, e.Message)
}

// RateLimited reports whether Reddit asked us to slow down.
func (e *APIError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// Config configures the client. Zero values fall back to the defaults above.
type Config struct {
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	UserAgent    string

	BaseURL  string
	TokenURL string

	// RequestsPerMinute paces outgoing calls; Reddit allows 100 QPM per OAuth client.
	RequestsPerMinute int
	HTTPTimeout       time.Duration

	// Breaker guards Search. Nil disables it.
	Breaker *resilience.Breaker
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.TokenURL == "" {
		c.TokenURL = DefaultTokenURL
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.RequestsPerMinute <= 0 {
		c.RequestsPerMinute = 60
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 15 * time.Second
	}
}

// Client talks to the Reddit OAuth API.
type Client struct {
	http      *http.Client
	baseURL   string
	userAgent string
	limiter   *rate.Limiter
	breaker   *resilience.Breaker
}

// New builds a client authenticated with the password grant of a Reddit script app.
func New(cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.Username == "" || cfg.Password == "" {
		return nil, ErrMissingCredentials
	}
	cfg.applyDefaults()
	return NewWithHTTPClient(newOAuthHTTPClient(cfg), cfg), nil
}

// NewWithHTTPClient uses hc as is; authentication is the caller's business.
func NewWithHTTPClient(hc *http.Client, cfg Config) *Client {
	cfg.applyDefaults()
	perRequest := time.Minute / time.Duration(cfg.RequestsPerMinute)
	return &Client{
		http:      hc,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		limiter:   rate.NewLimiter(rate.Every(perRequest), 5),
		breaker:   cfg.Breaker,
	}
}

// Search runs a sitewide link search.
func (c *Client) Search(ctx context.Context, opts SearchOptions) ([]Post, error) {
	return resilience.Do(ctx, c.breaker, func() ([]Post, error) {
		return c.search(ctx, opts)
	})
}

func (c *Client) search(ctx context.Context, opts SearchOptions) ([]Post, error) {
	q := url.Values{}
	q.Set("q", opts.Query)
	q.Set("type", "link")
	q.Set("raw_json", "1")
	if opts.Sort != "" {
		q.Set("sort", opts.Sort)
	}
	if opts.Time != "" {
		q.Set("t", opts.Time)
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}

	var out listing
	if err := c.do(req, &out); err != nil {
		return nil, fmt.Errorf("search %q: %w", opts.Query, err)
	}

	posts := make([]Post, 0, len(out.Data.Children))
	for _, child := range out.Data.Children {
		if child.Kind != "t3" {
			continue
		}
		posts = append(posts, child.Data)
	}
	return posts, nil
}

// Comment replies to a link. postID may be a bare id or a t3_ fullname.
// The call is not retried: a second call creates a second comment.
func (c *Client) Comment(ctx context.Context, postID, text string) (*CommentAck, error) {
	form := url.Values{}
	form.Set("api_type", "json")
	form.Set("thing_id", Fullname(postID))
	form.Set("text", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/comment", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build comment request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var out commentResponse
	if err := c.do(req, &out); err != nil {
		return nil, fmt.Errorf("comment on %s: %w", postID, err)
	}
	if len(out.JSON.Errors) > 0 {
		return nil, &APIError{StatusCode: http.StatusOK, Message: fmt.Sprint(out.JSON.Errors)}
	}
	if len(out.JSON.Data.Things) == 0 {
		return nil, &APIError{StatusCode: http.StatusOK, Message: "empty comment response"}
	}
	ack := out.JSON.Data.Things[0].Data
	return &ack, nil
}

func (c *Client) do(req *http.Request, into interface{}) error {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Fullname prefixes a bare link id with t3_.
func Fullname(postID string) string {
	if strings.HasPrefix(postID, linkPrefix) {
		return postID
	}
	return linkPrefix + postID
}
