package repositories

import (
	"errors"
	"fmt"

	"github.com/anonto42/brand-radar/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

func parseObjectID(id string) (primitive.ObjectID, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: malformed id %q", models.ErrInvalidInput, id)
	}
	return objID, nil
}

// mapWriteError turns a duplicate key (E11000) into models.ErrConflict.
func mapWriteError(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %w", models.ErrConflict, err)
	}
	return fmt.Errorf("%w: %w", models.ErrUpstream, err)
}

func mapReadError(err error, what string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%s: %w", what, models.ErrNotFound)
	}
	return fmt.Errorf("%w: find %s: %w", models.ErrUpstream, what, err)
}

func mapGormError(err error, what string) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", what, models.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", what, models.ErrConflict)
	default:
		return fmt.Errorf("%w: %s: %w", models.ErrUpstream, what, err)
	}
}
