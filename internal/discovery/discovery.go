// Package discovery finds recent Reddit posts that mention a brand's keywords.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anonto42/brand-radar/backend/internal/models"
	"github.com/anonto42/brand-radar/backend/pkg/logger"
	"github.com/anonto42/brand-radar/backend/pkg/metrics"
	"github.com/anonto42/brand-radar/backend/pkg/reddit"
	"github.com/anonto42/brand-radar/backend/pkg/resilience"
	"golang.org/x/sync/errgroup"
)

const (
	SearchWindow = "week"
	SearchLimit  = 25
	SearchSort   = "new"
	MaxResults   = 10
)

// Searcher is the external search capability.
type Searcher interface {
	Search(ctx context.Context, opts reddit.SearchOptions) ([]reddit.Post, error)
}

// Cache stores raw per-keyword search results. Implementations must treat a
// nil receiver as an empty cache.
type Cache interface {
	Get(ctx context.Context, opts reddit.SearchOptions) ([]reddit.Post, bool, error)
	Set(ctx context.Context, opts reddit.SearchOptions, posts []reddit.Post) error
}

// Config bounds the keyword fan-out.
type Config struct {
	Concurrency   int
	SearchTimeout time.Duration
}

// Result is the ranked output plus the keywords whose search failed.
type Result struct {
	Posts          []reddit.Post `json:"posts"`
	FailedKeywords []string      `json:"failedKeywords,omitempty"`
}

// Service runs keyword discovery.
type Service struct {
	searcher Searcher
	cache    Cache
	cfg      Config
	log      logger.Logger
}

// NewService creates a discovery Service. cache may be nil.
func NewService(searcher Searcher, cache Cache, cfg Config, log logger.Logger) *Service {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.SearchTimeout <= 0 {
		cfg.SearchTimeout = 10 * time.Second
	}
	return &Service{searcher: searcher, cache: cache, cfg: cfg, log: log}
}

// Discover searches every keyword concurrently, waits for all of them, then
// filters, deduplicates, ranks and truncates the merged results.
//
// A failing keyword is reported in Result.FailedKeywords and the others still
// count. The call fails with models.ErrUpstream only when every search failed.
func (s *Service) Discover(ctx context.Context, keywords []string) (*Result, error) {
	start := time.Now()
	terms := NormalizeKeywords(keywords)
	if len(terms) == 0 {
		return &Result{Posts: []reddit.Post{}}, nil
	}

	batches := make([][]reddit.Post, len(terms))
	errs := make([]error, len(terms))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i, kw := range terms {
		g.Go(func() error {
			posts, err := s.searchKeyword(gctx, kw)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				errs[i] = err
				return nil
			}
			batches[i] = posts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var failed []string
	for i, err := range errs {
		if err == nil {
			continue
		}
		failed = append(failed, terms[i])
		s.log.Warn("keyword search failed",
			logger.String("keyword", terms[i]), logger.Error(err))
	}
	if len(failed) == len(terms) {
		return nil, fmt.Errorf("%w: all %d keyword searches failed: %w",
			models.ErrUpstream, len(terms), errors.Join(errs...))
	}

	posts := Rank(batches, terms, MaxResults)
	metrics.ObserveDiscovery(time.Since(start), len(posts))
	s.log.Debug("discovery completed",
		logger.Int("keywords", len(terms)),
		logger.Int("failed", len(failed)),
		logger.Int("posts", len(posts)),
		logger.Duration("elapsed", time.Since(start)))

	return &Result{Posts: posts, FailedKeywords: failed}, nil
}

func (s *Service) searchKeyword(ctx context.Context, keyword string) ([]reddit.Post, error) {
	opts := reddit.SearchOptions{
		Query: keyword,
		Time:  SearchWindow,
		Limit: SearchLimit,
		Sort:  SearchSort,
	}

	if s.cache != nil {
		posts, hit, err := s.cache.Get(ctx, opts)
		if err != nil {
			s.log.Warn("search cache read failed", logger.String("keyword", keyword), logger.Error(err))
		} else if hit {
			metrics.RecordSearch("cache_hit")
			return posts, nil
		}
	}

	searchCtx, cancel := context.WithTimeoutCause(ctx, s.cfg.SearchTimeout, resilience.ErrCallTimeout)
	defer cancel()

	posts, err := s.searcher.Search(searchCtx, opts)
	if err != nil {
		metrics.RecordSearch("error")
		return nil, err
	}
	metrics.RecordSearch("ok")

	if s.cache != nil {
		if err := s.cache.Set(ctx, opts, posts); err != nil {
			s.log.Warn("search cache write failed", logger.String("keyword", keyword), logger.Error(err))
		}
	}
	return posts, nil
}
