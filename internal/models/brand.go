package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Brand is a user-owned profile whose keywords drive post discovery.
type Brand struct {
	ID          primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	UserID      string             `json:"userId" bson:"userId"` // identity provider UID
	UserEmail   string             `json:"userEmail" bson:"userEmail"`
	UserName    string             `json:"userName" bson:"userName"`
	URL         string             `json:"url" bson:"url"`
	Description string             `json:"description" bson:"description"`
	Keywords    []string           `json:"keywords" bson:"keywords"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
}

// Signature is appended to every comment posted on behalf of the brand.
func (b *Brand) Signature() string {
	return "\n\n- " + b.UserName + "\n" + b.URL
}

// CreateBrandRequest defines the request body for registering a brand
type CreateBrandRequest struct {
	UserEmail   string   `json:"userEmail" validate:"required,email"`
	UserName    string   `json:"userName" validate:"required,notblank,max=100"`
	URL         string   `json:"url" validate:"required,url"`
	Description string   `json:"description" validate:"required,notblank,max=2000"`
	Keywords    []string `json:"keywords" validate:"required,min=1,max=20,dive,max=100"`
}
