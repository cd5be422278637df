package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/anonto42/brand-radar/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// BrandRepository defines the interface for brand data operations
type BrandRepository interface {
	CreateBrand(ctx context.Context, brand *models.Brand) error
	GetBrandsByUserID(ctx context.Context, userID string) ([]models.Brand, error)
	GetBrandForUser(ctx context.Context, id, userID string) (*models.Brand, error)
	GetLatestBrand(ctx context.Context, userID string) (*models.Brand, error)
	CountBrandsByUserID(ctx context.Context, userID string) (int64, error)
	DeleteBrand(ctx context.Context, id, userID string) error
}

// MongoBrandRepository implements BrandRepository for MongoDB
type MongoBrandRepository struct {
	collection *mongo.Collection
}

// NewMongoBrandRepository creates a new MongoBrandRepository
func NewMongoBrandRepository(db *mongo.Database) *MongoBrandRepository {
	return &MongoBrandRepository{collection: db.Collection("brands")}
}

// EnsureIndexes creates the owner lookup index
func (r *MongoBrandRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("create brands index: %w", err)
	}
	return nil
}

// CreateBrand inserts a new brand
func (r *MongoBrandRepository) CreateBrand(ctx context.Context, brand *models.Brand) error {
	brand.ID = primitive.NewObjectID()
	brand.CreatedAt = time.Now().UTC()
	if _, err := r.collection.InsertOne(ctx, brand); err != nil {
		return mapWriteError(err)
	}
	return nil
}

// GetBrandsByUserID lists the owner's brands, newest first
func (r *MongoBrandRepository) GetBrandsByUserID(ctx context.Context, userID string) ([]models.Brand, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID}, findOptions)
	if err != nil {
		return nil, fmt.Errorf("%w: find brands: %w", models.ErrUpstream, err)
	}
	defer cursor.Close(ctx)

	brands := make([]models.Brand, 0)
	if err = cursor.All(ctx, &brands); err != nil {
		return nil, fmt.Errorf("%w: decode brands: %w", models.ErrUpstream, err)
	}
	return brands, nil
}

// GetBrandForUser loads one brand; a brand owned by someone else is reported as not found
func (r *MongoBrandRepository) GetBrandForUser(ctx context.Context, id, userID string) (*models.Brand, error) {
	objID, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}
	var brand models.Brand
	err = r.collection.FindOne(ctx, bson.M{"_id": objID, "userId": userID}).Decode(&brand)
	if err != nil {
		return nil, mapReadError(err, "brand")
	}
	return &brand, nil
}

// GetLatestBrand returns the owner's most recently created brand
func (r *MongoBrandRepository) GetLatestBrand(ctx context.Context, userID string) (*models.Brand, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	var brand models.Brand
	if err := r.collection.FindOne(ctx, bson.M{"userId": userID}, opts).Decode(&brand); err != nil {
		return nil, mapReadError(err, "brand")
	}
	return &brand, nil
}

// CountBrandsByUserID counts the owner's brands
func (r *MongoBrandRepository) CountBrandsByUserID(ctx context.Context, userID string) (int64, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"userId": userID})
	if err != nil {
		return 0, fmt.Errorf("%w: count brands: %w", models.ErrUpstream, err)
	}
	return n, nil
}

// DeleteBrand removes a brand if the caller owns it
func (r *MongoBrandRepository) DeleteBrand(ctx context.Context, id, userID string) error {
	objID, err := parseObjectID(id)
	if err != nil {
		return err
	}
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": objID, "userId": userID})
	if err != nil {
		return fmt.Errorf("%w: delete brand: %w", models.ErrUpstream, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("brand %s: %w", id, models.ErrNotFound)
	}
	return nil
}
