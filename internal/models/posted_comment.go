package models

import (
	"time"

	"github.com/google/uuid"
)

// Comment ledger states.
const (
	CommentPending = "pending"
	CommentPosted  = "posted"
)

// PostedComment is the ledger entry reserved before a comment is sent to Reddit
// and completed once Reddit acknowledged it.
// (UserID, IdempotencyKey) is unique so a replayed request never posts twice.
type PostedComment struct {
	ID              uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	UserID          string    `json:"userId" gorm:"size:128;index;uniqueIndex:idx_user_idempotency"`
	IdempotencyKey  string    `json:"idempotencyKey" gorm:"size:128;uniqueIndex:idx_user_idempotency"`
	BrandID         string    `json:"brandId" gorm:"size:24"`
	PostID          string    `json:"postId" gorm:"size:32;index"`
	RedditCommentID string    `json:"redditCommentId" gorm:"size:32"`
	Permalink       string    `json:"permalink"`
	Text            string    `json:"text"`
	Status          string    `json:"status" gorm:"size:16;default:pending"`
	CreatedAt       time.Time `json:"createdAt"`
}

// PostCommentRequest defines the request body for commenting on a Reddit post
type PostCommentRequest struct {
	PostID         string `json:"postId" validate:"required"`
	Comment        string `json:"comment" validate:"required,max=10000"`
	IdempotencyKey string `json:"idempotencyKey,omitempty" validate:"omitempty,max=128"`
}
