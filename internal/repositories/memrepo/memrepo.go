// Package memrepo holds in-memory repositories with the same uniqueness and
// ownership rules as the Mongo and Postgres ones. Tests use them in place of a live store.
package memrepo

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/anonto42/brand-radar/backend/internal/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Brands implements repositories.BrandRepository.
type Brands struct {
	mu    sync.Mutex
	items []models.Brand
	now   func() time.Time
}

func NewBrands() *Brands {
	return &Brands{now: tick()}
}

func (r *Brands) CreateBrand(_ context.Context, brand *models.Brand) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	brand.ID = primitive.NewObjectID()
	brand.CreatedAt = r.now()
	r.items = append(r.items, *brand)
	return nil
}

func (r *Brands) GetBrandsByUserID(_ context.Context, userID string) ([]models.Brand, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Brand, 0)
	for _, b := range r.items {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *Brands) GetBrandForUser(_ context.Context, id, userID string) (*models.Brand, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed id %q", models.ErrInvalidInput, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.items {
		if b.ID == objID && b.UserID == userID {
			b := b
			return &b, nil
		}
	}
	return nil, fmt.Errorf("brand: %w", models.ErrNotFound)
}

func (r *Brands) GetLatestBrand(ctx context.Context, userID string) (*models.Brand, error) {
	brands, _ := r.GetBrandsByUserID(ctx, userID)
	if len(brands) == 0 {
		return nil, fmt.Errorf("brand: %w", models.ErrNotFound)
	}
	return &brands[0], nil
}

func (r *Brands) CountBrandsByUserID(ctx context.Context, userID string) (int64, error) {
	brands, _ := r.GetBrandsByUserID(ctx, userID)
	return int64(len(brands)), nil
}

func (r *Brands) DeleteBrand(_ context.Context, id, userID string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: malformed id %q", models.ErrInvalidInput, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, b := range r.items {
		if b.ID == objID && b.UserID == userID {
			r.items = append(r.items[:i], r.items[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("brand %s: %w", id, models.ErrNotFound)
}

// SavedPosts implements repositories.SavedPostRepository with the (userId, postUrl) unique rule.
type SavedPosts struct {
	mu    sync.Mutex
	items []models.SavedPost
	now   func() time.Time
}

func NewSavedPosts() *SavedPosts {
	return &SavedPosts{now: tick()}
}

func (r *SavedPosts) SavePost(_ context.Context, p *models.SavedPost) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.items {
		if existing.UserID == p.UserID && existing.PostURL == p.PostURL {
			return fmt.Errorf("%w: duplicate saved post", models.ErrConflict)
		}
	}
	p.ID = primitive.NewObjectID()
	p.CreatedAt = r.now()
	r.items = append(r.items, *p)
	return nil
}

func (r *SavedPosts) UnsavePost(_ context.Context, userID, postURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, p := range r.items {
		if p.UserID == userID && p.PostURL == postURL {
			r.items = append(r.items[:i], r.items[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("saved post: %w", models.ErrNotFound)
}

func (r *SavedPosts) GetSavedPostsByUser(_ context.Context, userID string) ([]models.SavedPost, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.SavedPost, 0)
	for _, p := range r.items {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Len returns the number of stored saved posts across all users.
func (r *SavedPosts) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// Ledger implements repositories.CommentLedger.
type Ledger struct {
	mu    sync.Mutex
	items map[uuid.UUID]models.PostedComment
	now   func() time.Time
}

func NewLedger() *Ledger {
	return &Ledger{items: make(map[uuid.UUID]models.PostedComment), now: tick()}
}

func (r *Ledger) Reserve(_ context.Context, c *models.PostedComment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.items {
		if existing.UserID == c.UserID && existing.IdempotencyKey == c.IdempotencyKey {
			return fmt.Errorf("posted comment: %w", models.ErrConflict)
		}
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.Status = models.CommentPending
	c.CreatedAt = r.now()
	r.items[c.ID] = *c
	return nil
}

func (r *Ledger) GetByKey(_ context.Context, userID, key string) (*models.PostedComment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.items {
		if c.UserID == userID && c.IdempotencyKey == key {
			c := c
			return &c, nil
		}
	}
	return nil, fmt.Errorf("posted comment: %w", models.ErrNotFound)
}

func (r *Ledger) Complete(_ context.Context, id uuid.UUID, redditCommentID, permalink string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	if !ok {
		return fmt.Errorf("posted comment: %w", models.ErrNotFound)
	}
	c.RedditCommentID = redditCommentID
	c.Permalink = permalink
	c.Status = models.CommentPosted
	r.items[id] = c
	return nil
}

func (r *Ledger) Release(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.items[id]; ok && c.Status == models.CommentPending {
		delete(r.items, id)
	}
	return nil
}

func (r *Ledger) ListByUser(_ context.Context, userID string, limit int) ([]models.PostedComment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.PostedComment, 0)
	for _, c := range r.items {
		if c.UserID == userID && c.Status == models.CommentPosted {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// tick returns a clock that starts at the current time and advances by one
// millisecond per call so newest-first ordering is stable within a test.
func tick() func() time.Time {
	base := time.Now().UTC().Truncate(time.Second)
	var n int64
	return func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Millisecond)
	}
}
