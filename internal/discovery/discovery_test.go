package discovery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/anonto42/brand-radar/backend/internal/models"
	"github.com/anonto42/brand-radar/backend/pkg/logger"
	"github.com/anonto42/brand-radar/backend/pkg/reddit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSearcher answers from a keyword -> posts table and records every call.
type stubSearcher struct {
	mu      sync.Mutex
	results map[string][]reddit.Post
	errs    map[string]error
	calls   []reddit.SearchOptions
	delay   time.Duration
}

func (s *stubSearcher) Search(ctx context.Context, opts reddit.SearchOptions) ([]reddit.Post, error) {
	s.mu.Lock()
	s.calls = append(s.calls, opts)
	s.mu.Unlock()

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := s.errs[opts.Query]; err != nil {
		return nil, err
	}
	return s.results[opts.Query], nil
}

func (s *stubSearcher) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// memCache is an in-memory Cache.
type memCache struct {
	mu   sync.Mutex
	data map[string][]reddit.Post
}

func (c *memCache) Get(_ context.Context, opts reddit.SearchOptions) ([]reddit.Post, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.data[strings.ToLower(opts.Query)]
	return p, ok, nil
}

func (c *memCache) Set(_ context.Context, opts reddit.SearchOptions, posts []reddit.Post) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[strings.ToLower(opts.Query)] = posts
	return nil
}

func newService(s Searcher) *Service {
	return NewService(s, nil, Config{Concurrency: 3, SearchTimeout: time.Second}, logger.Nop())
}

func ids(posts []reddit.Post) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.ID
	}
	return out
}

func TestDiscover_EmptyKeywordsIssuesNoSearch(t *testing.T) {
	for _, kws := range [][]string{nil, {}, {"", "   "}} {
		s := &stubSearcher{}
		res, err := newService(s).Discover(context.Background(), kws)
		require.NoError(t, err)
		assert.Empty(t, res.Posts)
		assert.NotNil(t, res.Posts)
		assert.Zero(t, s.callCount())
	}
}

func TestDiscover_SearchParameters(t *testing.T) {
	s := &stubSearcher{}
	_, err := newService(s).Discover(context.Background(), []string{"shoes"})
	require.NoError(t, err)

	require.Len(t, s.calls, 1)
	assert.Equal(t, reddit.SearchOptions{Query: "shoes", Time: "week", Limit: 25, Sort: "new"}, s.calls[0])
}

func TestDiscover_ShoesScenario(t *testing.T) {
	s := &stubSearcher{results: map[string][]reddit.Post{
		"shoes": {
			{ID: "A", Title: "Best shoes?", Score: 10, NumComments: 5},
			{ID: "B", Title: "shoes for sale", Score: 3, NumComments: 1, Locked: true},
			{ID: "C", Title: "New shoes day", Score: 1, NumComments: 0},
		},
	}}

	res, err := newService(s).Discover(context.Background(), []string{"shoes"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C"}, ids(res.Posts))
	assert.Empty(t, res.FailedKeywords)
}

func TestDiscover_SamePostFromTwoKeywordsAppearsOnce(t *testing.T) {
	x := reddit.Post{ID: "X", Title: "a and b", Score: 2, NumComments: 2}
	s := &stubSearcher{results: map[string][]reddit.Post{"a": {x}, "b": {x}}}

	res, err := newService(s).Discover(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"X"}, ids(res.Posts))
	assert.Equal(t, 2, s.callCount())
}

func TestDiscover_ArchivedPostsExcluded(t *testing.T) {
	s := &stubSearcher{results: map[string][]reddit.Post{
		"go": {
			{ID: "1", Title: "go tips", Archived: true, Score: 100},
			{ID: "2", Title: "go tips", Score: 1},
		},
	}}
	res, err := newService(s).Discover(context.Background(), []string{"go"})
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, ids(res.Posts))
}

func TestDiscover_RelevanceRecheckedAgainstAllKeywords(t *testing.T) {
	s := &stubSearcher{results: map[string][]reddit.Post{
		"boots": {
			{ID: "1", Title: "unrelated hit", Score: 50},
			{ID: "2", Title: "nothing here", SelfText: "I love SNEAKERS", Score: 5},
			{ID: "3", Title: "Boots review", Score: 1},
		},
	}}
	res, err := newService(s).Discover(context.Background(), []string{"boots", "Sneakers"})
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "3"}, ids(res.Posts))
}

func TestDiscover_CaseVariantKeywordsSearchedOnce(t *testing.T) {
	s := &stubSearcher{results: map[string][]reddit.Post{
		"Shoes": {{ID: "1", Title: "shoes", Score: 1}},
	}}
	res, err := newService(s).Discover(context.Background(), []string{"Shoes", "shoes", " SHOES "})
	require.NoError(t, err)
	assert.Equal(t, 1, s.callCount())
	assert.Equal(t, []string{"1"}, ids(res.Posts))
}

func TestDiscover_TruncatesAndOrdersByEngagement(t *testing.T) {
	var posts []reddit.Post
	for i := 0; i < 40; i++ {
		posts = append(posts, reddit.Post{
			ID:          fmt.Sprintf("p%02d", i),
			Title:       "keyword mention",
			Score:       (i * 7) % 13,
			NumComments: i % 5,
		})
	}
	s := &stubSearcher{results: map[string][]reddit.Post{"keyword": posts}}

	res, err := newService(s).Discover(context.Background(), []string{"keyword"})
	require.NoError(t, err)
	require.Len(t, res.Posts, MaxResults)
	for i := 1; i < len(res.Posts); i++ {
		assert.GreaterOrEqual(t, res.Posts[i-1].Engagement(), res.Posts[i].Engagement())
	}
}

func TestDiscover_DeterministicTieBreak(t *testing.T) {
	s := &stubSearcher{results: map[string][]reddit.Post{
		"k": {
			{ID: "first", Title: "k", Score: 3, NumComments: 1},
			{ID: "second", Title: "k", Score: 2, NumComments: 2},
			{ID: "third", Title: "k", Score: 4, NumComments: 0},
		},
	}}
	svc := newService(s)

	first, err := svc.Discover(context.Background(), []string{"k"})
	require.NoError(t, err)
	second, err := svc.Discover(context.Background(), []string{"k"})
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "second", "third"}, ids(first.Posts))
	assert.Equal(t, ids(first.Posts), ids(second.Posts))
}

func TestDiscover_PartialFailureKeepsOtherKeywords(t *testing.T) {
	s := &stubSearcher{
		results: map[string][]reddit.Post{"ok": {{ID: "1", Title: "ok post", Score: 1}}},
		errs:    map[string]error{"broken": errors.New("503")},
	}
	res, err := newService(s).Discover(context.Background(), []string{"ok", "broken"})
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, ids(res.Posts))
	assert.Equal(t, []string{"broken"}, res.FailedKeywords)
}

func TestDiscover_AllKeywordsFailIsUpstreamFailure(t *testing.T) {
	boom := errors.New("401 unauthorized")
	s := &stubSearcher{errs: map[string]error{"a": boom, "b": boom}}

	res, err := newService(s).Discover(context.Background(), []string{"a", "b"})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, models.ErrUpstream)
	assert.ErrorIs(t, err, boom)
}

func TestDiscover_SearchTimeoutCountsAsKeywordFailure(t *testing.T) {
	s := &stubSearcher{delay: 200 * time.Millisecond}
	svc := NewService(s, nil, Config{Concurrency: 2, SearchTimeout: 20 * time.Millisecond}, logger.Nop())

	_, err := svc.Discover(context.Background(), []string{"slow"})
	assert.ErrorIs(t, err, models.ErrUpstream)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDiscover_CancelledContextAbortsCall(t *testing.T) {
	s := &stubSearcher{delay: time.Second}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newService(s).Discover(ctx, []string{"a", "b"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDiscover_UsesCache(t *testing.T) {
	s := &stubSearcher{results: map[string][]reddit.Post{"k": {{ID: "1", Title: "k", Score: 1}}}}
	c := &memCache{data: map[string][]reddit.Post{}}
	svc := NewService(s, c, Config{}, logger.Nop())

	for i := 0; i < 3; i++ {
		res, err := svc.Discover(context.Background(), []string{"k"})
		require.NoError(t, err)
		assert.Equal(t, []string{"1"}, ids(res.Posts))
	}
	assert.Equal(t, 1, s.callCount())
}
