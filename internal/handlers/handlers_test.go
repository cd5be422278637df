package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/anonto42/brand-radar/backend/internal/comments"
	"github.com/anonto42/brand-radar/backend/internal/discovery"
	"github.com/anonto42/brand-radar/backend/internal/middleware"
	"github.com/anonto42/brand-radar/backend/internal/models"
	"github.com/anonto42/brand-radar/backend/internal/repositories/memrepo"
	"github.com/anonto42/brand-radar/backend/internal/validators"
	"github.com/anonto42/brand-radar/backend/pkg/logger"
	"github.com/anonto42/brand-radar/backend/pkg/reddit"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDiscoverer struct {
	mu       sync.Mutex
	keywords []string
	result   *discovery.Result
	err      error
}

func (s *stubDiscoverer) Discover(_ context.Context, keywords []string) (*discovery.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keywords = keywords
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type countingPoster struct {
	mu    sync.Mutex
	calls int
	texts []string
}

func (p *countingPoster) Comment(_ context.Context, postID, text string) (*reddit.CommentAck, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.texts = append(p.texts, text)
	return &reddit.CommentAck{ID: "c9", Permalink: "/r/x/comments/" + postID + "/_/c9/"}, nil
}

type fixture struct {
	e          *echo.Echo
	brands     *memrepo.Brands
	saved      *memrepo.SavedPosts
	discoverer *stubDiscoverer
	poster     *countingPoster
}

func newFixture(t *testing.T, brandLimit int) *fixture {
	t.Helper()
	f := &fixture{
		e:          echo.New(),
		brands:     memrepo.NewBrands(),
		saved:      memrepo.NewSavedPosts(),
		discoverer: &stubDiscoverer{result: &discovery.Result{Posts: []reddit.Post{}}},
		poster:     &countingPoster{},
	}
	f.e.Validator = validators.NewValidator()
	f.e.HTTPErrorHandler = NewHTTPErrorHandler(logger.Nop())

	api := f.e.Group("/api/v1", func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if uid := c.Request().Header.Get("X-Test-User"); uid != "" {
				middleware.WithOwner(c, uid)
			}
			return next(c)
		}
	})
	commentSvc := comments.NewService(f.poster, memrepo.NewLedger(), logger.Nop())
	NewBrandHandler(f.brands, brandLimit, logger.Nop()).RegisterBrandRoutes(api)
	NewSavedPostHandler(f.saved).RegisterSavedPostRoutes(api)
	NewRedditHandler(f.brands, f.discoverer, commentSvc).RegisterRedditRoutes(api)
	return f
}

func (f *fixture) do(method, path, user, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

const brandJSON = `{"userEmail":"owner@acme.test","userName":"Acme","url":"https://acme.test",
	"description":"Running shoes","keywords":["shoes"," Shoes ","sneakers",""]}`

func createBrand(t *testing.T, f *fixture, user string) models.Brand {
	t.Helper()
	rec := f.do(http.MethodPost, "/api/v1/brands", user, brandJSON)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var body struct {
		Brand models.Brand `json:"brand"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Brand
}

func TestBrands_CreateNormalizesKeywordsAndLists(t *testing.T) {
	f := newFixture(t, 0)
	b := createBrand(t, f, "u1")
	assert.Equal(t, "u1", b.UserID)
	assert.Equal(t, []string{"shoes", "sneakers"}, b.Keywords)

	rec := f.do(http.MethodGet, "/api/v1/brands", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Brands []models.Brand `json:"brands"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Brands, 1)
	assert.Equal(t, b.ID, list.Brands[0].ID)
	assert.Contains(t, rec.Body.String(), `"_id":"`+b.ID.Hex()+`"`)

	rec = f.do(http.MethodGet, "/api/v1/brands", "u2", "")
	assert.JSONEq(t, `{"brands":[]}`, rec.Body.String())
}

func TestBrands_LimitIsConflict(t *testing.T) {
	f := newFixture(t, 1)
	createBrand(t, f, "u1")

	rec := f.do(http.MethodPost, "/api/v1/brands", "u1", brandJSON)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, errorBody(t, rec), "brand limit of 1 reached")

	createBrand(t, f, "u2")
}

func TestBrands_CreateRejectsInvalidInput(t *testing.T) {
	f := newFixture(t, 0)
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"userEmail":`},
		{"bad email", `{"userEmail":"x","userName":"A","url":"https://a.test","description":"d","keywords":["k"]}`},
		{"only blank keywords", `{"userEmail":"a@b.co","userName":"A","url":"https://a.test","description":"d","keywords":["  ",""]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(http.MethodPost, "/api/v1/brands", "u1", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, errorBody(t, rec))
		})
	}
}

func TestBrands_RequireAuthentication(t *testing.T) {
	f := newFixture(t, 0)
	rec := f.do(http.MethodGet, "/api/v1/brands", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBrands_Delete(t *testing.T) {
	f := newFixture(t, 0)
	b := createBrand(t, f, "u1")
	other := createBrand(t, f, "u1")

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodDelete, "/api/v1/brands", "u1", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodDelete, "/api/v1/brands?id=zzz", "u1", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodDelete, "/api/v1/brands?id="+b.ID.Hex(), "u2", "").Code)

	assert.Equal(t, http.StatusOK, f.do(http.MethodDelete, "/api/v1/brands?id="+b.ID.Hex(), "u1", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodDelete, "/api/v1/brands?id="+b.ID.Hex(), "u1", "").Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodDelete, "/api/v1/brands/"+other.ID.Hex(), "u1", "").Code)
}

func TestDiscover_NoBrandIsNotFound(t *testing.T) {
	f := newFixture(t, 0)
	rec := f.do(http.MethodGet, "/api/v1/posts/reddit", "u1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDiscover_UsesLatestBrandKeywords(t *testing.T) {
	f := newFixture(t, 0)
	b := createBrand(t, f, "u1")
	f.discoverer.result = &discovery.Result{
		Posts:          []reddit.Post{{ID: "A", Title: "shoes", Score: 10}},
		FailedKeywords: []string{"sneakers"},
	}

	rec := f.do(http.MethodGet, "/api/v1/posts/reddit", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, b.Keywords, f.discoverer.keywords)

	var posts []reddit.Post
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &posts))
	require.Len(t, posts, 1)
	assert.Equal(t, "A", posts[0].ID)
	assert.Equal(t, []string{"sneakers"}, rec.Header().Values(FailedKeywordsHeader))
}

func TestDiscover_NoFailuresOmitsHeader(t *testing.T) {
	f := newFixture(t, 0)
	createBrand(t, f, "u1")

	rec := f.do(http.MethodGet, "/api/v1/posts/reddit", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
	assert.Empty(t, rec.Header().Values(FailedKeywordsHeader))
}

func TestDiscover_UpstreamFailureIsBadGateway(t *testing.T) {
	f := newFixture(t, 0)
	createBrand(t, f, "u1")
	f.discoverer.err = errors.Join(models.ErrUpstream, errors.New("reddit 503"))

	rec := f.do(http.MethodGet, "/api/v1/posts/reddit", "u1", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "upstream provider degraded", errorBody(t, rec))
}

func TestDiscover_UnknownBrandID(t *testing.T) {
	f := newFixture(t, 0)
	b := createBrand(t, f, "u1")
	rec := f.do(http.MethodGet, "/api/v1/posts/reddit?brand_id="+b.ID.Hex(), "u2", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPostComment(t *testing.T) {
	f := newFixture(t, 0)
	createBrand(t, f, "u1")

	rec := f.do(http.MethodPost, "/api/v1/posts/reddit", "u1", `{"postId":"abc"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body := `{"postId":"abc","comment":"Try us","idempotencyKey":"k1"}`
	rec = f.do(http.MethodPost, "/api/v1/posts/reddit", "u1", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var posted models.PostedComment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &posted))
	assert.Equal(t, "c9", posted.RedditCommentID)
	assert.Equal(t, "Try us\n\n- Acme\nhttps://acme.test", f.poster.texts[0])

	rec = f.do(http.MethodPost, "/api/v1/posts/reddit", "u1", body)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, f.poster.calls)

	rec = f.do(http.MethodGet, "/api/v1/posts/reddit/comments", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var history []models.PostedComment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	assert.Len(t, history, 1)
}

func TestPostComment_IdempotencyKeyHeader(t *testing.T) {
	f := newFixture(t, 0)
	createBrand(t, f, "u1")
	body := `{"postId":"abc","comment":"hi"}`

	assert.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/api/v1/posts/reddit", "u1", body, "Idempotency-Key", "h1").Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodPost, "/api/v1/posts/reddit", "u1", body, "Idempotency-Key", "h1").Code)
	assert.Equal(t, 1, f.poster.calls)
}

func TestPostComment_NoBrand(t *testing.T) {
	f := newFixture(t, 0)
	rec := f.do(http.MethodPost, "/api/v1/posts/reddit", "u1", `{"postId":"abc","comment":"hi"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Zero(t, f.poster.calls)
}

func TestSavedPosts(t *testing.T) {
	f := newFixture(t, 0)
	body := `{"postUrl":"https://reddit.com/r/x/1","title":"T","content":"C"}`

	assert.Equal(t, http.StatusOK, f.do(http.MethodPost, "/api/v1/posts/saved", "u1", body).Code)
	rec := f.do(http.MethodPost, "/api/v1/posts/saved", "u1", body)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict: post already saved", errorBody(t, rec))
	assert.Equal(t, 1, f.saved.Len())

	// another owner may save the same URL
	assert.Equal(t, http.StatusOK, f.do(http.MethodPost, "/api/v1/posts/saved", "u2", body).Code)
	assert.Equal(t, 2, f.saved.Len())

	rec = f.do(http.MethodGet, "/api/v1/posts/saved", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []models.SavedPost
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "https://reddit.com/r/x/1", list[0].PostURL)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/v1/posts/saved", "u1", `{"title":"T","content":"C"}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodDelete, "/api/v1/posts/saved", "u1", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodDelete, "/api/v1/posts/saved?postUrl=https://nope", "u1", "").Code)
	rec = f.do(http.MethodDelete, "/api/v1/posts/saved?postUrl=https://reddit.com/r/x/1", "u1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Post removed from saved", rec.Body.String())
	assert.Equal(t, 1, f.saved.Len())
}

func TestSavedPosts_DeleteOtherOwnersPost(t *testing.T) {
	f := newFixture(t, 0)
	body := `{"postUrl":"https://reddit.com/r/x/1","title":"T","content":"C"}`
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/api/v1/posts/saved", "u1", body).Code)
	require.Equal(t, 1, f.saved.Len())

	rec := f.do(http.MethodDelete, "/api/v1/posts/saved?postUrl=https://reddit.com/r/x/1", "u2", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 1, f.saved.Len())

	rec = f.do(http.MethodGet, "/api/v1/posts/saved", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []models.SavedPost
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{models.ErrUnauthenticated, http.StatusUnauthorized},
		{models.ErrInvalidInput, http.StatusBadRequest},
		{models.ErrNotFound, http.StatusNotFound},
		{comments.ErrInFlight, http.StatusConflict},
		{models.ErrUpstream, http.StatusBadGateway},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{fmt.Errorf("%w: find brand: %w", models.ErrUpstream, context.DeadlineExceeded), http.StatusGatewayTimeout},
		{fmt.Errorf("%w: find brand: %w", models.ErrUpstream, context.Canceled), http.StatusBadGateway},
		{echo.ErrMethodNotAllowed, http.StatusMethodNotAllowed},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		got, msg := statusFor(tt.err)
		assert.Equal(t, tt.want, got, tt.err.Error())
		assert.NotEmpty(t, msg)
	}
}
