package repositories

import (
	"context"

	"github.com/anonto42/brand-radar/backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CommentLedger records comment submissions so each idempotency key posts at most once.
type CommentLedger interface {
	Reserve(ctx context.Context, comment *models.PostedComment) error
	GetByKey(ctx context.Context, userID, key string) (*models.PostedComment, error)
	Complete(ctx context.Context, id uuid.UUID, redditCommentID, permalink string) error
	Release(ctx context.Context, id uuid.UUID) error
	ListByUser(ctx context.Context, userID string, limit int) ([]models.PostedComment, error)
}

// PostgresCommentLedger implements CommentLedger with GORM.
// The DB must be opened with TranslateError so duplicates surface as gorm.ErrDuplicatedKey.
type PostgresCommentLedger struct {
	db *gorm.DB
}

func NewPostgresCommentLedger(db *gorm.DB) *PostgresCommentLedger {
	return &PostgresCommentLedger{db: db}
}

// Reserve inserts a pending entry. An existing (user, key) pair yields models.ErrConflict.
func (r *PostgresCommentLedger) Reserve(ctx context.Context, comment *models.PostedComment) error {
	if comment.ID == uuid.Nil {
		comment.ID = uuid.New()
	}
	comment.Status = models.CommentPending
	if err := r.db.WithContext(ctx).Create(comment).Error; err != nil {
		return mapGormError(err, "posted comment")
	}
	return nil
}

func (r *PostgresCommentLedger) GetByKey(ctx context.Context, userID, key string) (*models.PostedComment, error) {
	var comment models.PostedComment
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND idempotency_key = ?", userID, key).
		First(&comment).Error
	if err != nil {
		return nil, mapGormError(err, "posted comment")
	}
	return &comment, nil
}

func (r *PostgresCommentLedger) Complete(ctx context.Context, id uuid.UUID, redditCommentID, permalink string) error {
	res := r.db.WithContext(ctx).Model(&models.PostedComment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"reddit_comment_id": redditCommentID,
			"permalink":         permalink,
			"status":            models.CommentPosted,
		})
	if res.Error != nil {
		return mapGormError(res.Error, "posted comment")
	}
	if res.RowsAffected == 0 {
		return mapGormError(gorm.ErrRecordNotFound, "posted comment")
	}
	return nil
}

// Release drops a pending reservation after a failed submission so the key can be retried.
func (r *PostgresCommentLedger) Release(ctx context.Context, id uuid.UUID) error {
	err := r.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, models.CommentPending).
		Delete(&models.PostedComment{}).Error
	if err != nil {
		return mapGormError(err, "posted comment")
	}
	return nil
}

func (r *PostgresCommentLedger) ListByUser(ctx context.Context, userID string, limit int) ([]models.PostedComment, error) {
	comments := make([]models.PostedComment, 0)
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, models.CommentPosted).
		Order("created_at DESC").
		Limit(limit).
		Find(&comments).Error
	if err != nil {
		return nil, mapGormError(err, "posted comments")
	}
	return comments, nil
}

// Migrate creates or updates the posted_comments table and its unique index.
func (r *PostgresCommentLedger) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&models.PostedComment{})
}
