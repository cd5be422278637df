package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SavedPost represents a Reddit post bookmarked by a user.
// (userId, postUrl) is unique, enforced by a Mongo index.
type SavedPost struct {
	ID        primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	UserID    string             `json:"userId" bson:"userId"`
	PostURL   string             `json:"postUrl" bson:"postUrl"`
	Title     string             `json:"title" bson:"title"`
	Content   string             `json:"content" bson:"content"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
}

// SavePostRequest defines the request body for saving a post
type SavePostRequest struct {
	PostURL string `json:"postUrl" validate:"required,notblank,max=2048"`
	Title   string `json:"title" validate:"required,notblank"`
	Content string `json:"content" validate:"required"`
}
