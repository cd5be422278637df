// Package comments posts brand-attributed replies to Reddit posts.
//
// Submissions carrying an idempotency key are reserved in a ledger before the
// provider is called, so a retried request never produces a second live comment.
package comments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anonto42/brand-radar/backend/internal/models"
	"github.com/anonto42/brand-radar/backend/internal/repositories"
	"github.com/anonto42/brand-radar/backend/pkg/logger"
	"github.com/anonto42/brand-radar/backend/pkg/metrics"
	"github.com/anonto42/brand-radar/backend/pkg/reddit"
	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
)

// ErrInFlight means another request holding the same idempotency key has not finished.
var ErrInFlight = fmt.Errorf("%w: a comment with this idempotency key is still being posted", models.ErrConflict)

// ErrKeyReused means an idempotency key came back with a different post or text.
var ErrKeyReused = fmt.Errorf("%w: idempotency key was already used for a different comment", models.ErrConflict)

const (
	// DefaultStaleAfter is how long a pending reservation blocks its key. No
	// single submission runs that long, so an older pending row belongs to a
	// request that died or lost its ledger update.
	DefaultStaleAfter = 5 * time.Minute

	completeAttempts = 4
)

// Poster is the external comment-submission capability.
type Poster interface {
	Comment(ctx context.Context, postID, text string) (*reddit.CommentAck, error)
}

// Service posts comments and keeps the ledger.
type Service struct {
	poster Poster
	ledger repositories.CommentLedger
	log    logger.Logger

	staleAfter    time.Duration
	completeDelay time.Duration
	now           func() time.Time
}

func NewService(poster Poster, ledger repositories.CommentLedger, log logger.Logger) *Service {
	return &Service{
		poster:        poster,
		ledger:        ledger,
		log:           log,
		staleAfter:    DefaultStaleAfter,
		completeDelay: 100 * time.Millisecond,
		now:           time.Now,
	}
}

// Outcome is the result of Post. Replayed is true when the stored record of an
// earlier submission with the same key was returned instead of posting again.
type Outcome struct {
	Comment  *models.PostedComment
	Replayed bool
}

// Post appends the brand signature to text and submits it as a reply to postID.
// An empty key means the caller accepts duplicate comments on retry; a key is then generated
// only to identify the ledger row.
func (s *Service) Post(ctx context.Context, userID string, brand *models.Brand, postID, text, key string) (*Outcome, error) {
	postID = strings.TrimSpace(postID)
	if postID == "" || strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: postId and comment are required", models.ErrInvalidInput)
	}
	if key == "" {
		key = uuid.NewString()
	}

	entry := &models.PostedComment{
		UserID:         userID,
		IdempotencyKey: key,
		BrandID:        brand.ID.Hex(),
		PostID:         postID,
		Text:           text + brand.Signature(),
	}

	if err := s.ledger.Reserve(ctx, entry); err != nil {
		if !errors.Is(err, models.ErrConflict) {
			return nil, err
		}
		out, reclaimed, err := s.replay(ctx, entry)
		if !reclaimed {
			return out, err
		}
		if err := s.ledger.Reserve(ctx, entry); err != nil {
			if errors.Is(err, models.ErrConflict) {
				// Another request reclaimed the key first.
				return nil, ErrInFlight
			}
			return nil, err
		}
	}

	ack, err := s.poster.Comment(ctx, postID, entry.Text)
	if err != nil {
		metrics.RecordComment("error")
		// The reservation is released with a fresh context: the request one may be gone.
		if relErr := s.ledger.Release(context.WithoutCancel(ctx), entry.ID); relErr != nil {
			s.log.Error("failed to release comment reservation",
				logger.String("id", entry.ID.String()), logger.Error(relErr))
		}
		return nil, fmt.Errorf("%w: post comment: %w", models.ErrUpstream, err)
	}

	if err := s.complete(context.WithoutCancel(ctx), entry.ID, ack); err != nil {
		// The comment is live; a failed bookkeeping write must not make the client retry.
		s.log.Error("comment posted but ledger update failed",
			logger.String("id", entry.ID.String()),
			logger.String("reddit_comment_id", ack.ID),
			logger.Error(err))
	}
	entry.RedditCommentID = ack.ID
	entry.Permalink = ack.Permalink
	entry.Status = models.CommentPosted

	metrics.RecordComment("posted")
	s.log.Info("comment posted",
		logger.String("user_id", userID),
		logger.String("post_id", postID),
		logger.String("reddit_comment_id", ack.ID))
	return &Outcome{Comment: entry}, nil
}

func (s *Service) complete(ctx context.Context, id uuid.UUID, ack *reddit.CommentAck) error {
	return retry.Do(
		func() error { return s.ledger.Complete(ctx, id, ack.ID, ack.Permalink) },
		retry.Context(ctx),
		retry.Attempts(completeAttempts),
		retry.Delay(s.completeDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
}

// replay answers a submission whose key is already in the ledger. reclaimed is
// true when the existing row was a stale reservation and has been removed, in
// which case the caller reserves the key again and posts.
func (s *Service) replay(ctx context.Context, want *models.PostedComment) (out *Outcome, reclaimed bool, err error) {
	existing, err := s.ledger.GetByKey(ctx, want.UserID, want.IdempotencyKey)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Released between our Reserve and this read.
			return nil, false, ErrInFlight
		}
		return nil, false, err
	}
	if existing.PostID != want.PostID || existing.Text != want.Text {
		return nil, false, ErrKeyReused
	}

	switch {
	case existing.Status == models.CommentPosted:
	case existing.RedditCommentID != "":
		// Reddit acknowledged it; only the status flip was lost.
		s.markPosted(ctx, existing)
	case s.now().Sub(existing.CreatedAt) < s.staleAfter:
		return nil, false, ErrInFlight
	default:
		s.log.Warn("reclaiming stale comment reservation",
			logger.String("id", existing.ID.String()),
			logger.String("user_id", existing.UserID),
			logger.String("post_id", existing.PostID))
		if err := s.ledger.Release(ctx, existing.ID); err != nil {
			return nil, false, err
		}
		return nil, true, nil
	}

	metrics.RecordComment("replayed")
	return &Outcome{Comment: existing, Replayed: true}, false, nil
}

func (s *Service) markPosted(ctx context.Context, c *models.PostedComment) {
	ack := &reddit.CommentAck{ID: c.RedditCommentID, Permalink: c.Permalink}
	if err := s.complete(context.WithoutCancel(ctx), c.ID, ack); err != nil {
		s.log.Warn("failed to mark acknowledged comment as posted",
			logger.String("id", c.ID.String()), logger.Error(err))
	}
	c.Status = models.CommentPosted
}

// History lists the user's posted comments, newest first.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]models.PostedComment, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.ledger.ListByUser(ctx, userID, limit)
}
