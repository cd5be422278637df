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

// SavedPostRepository defines the interface for saved post operations
type SavedPostRepository interface {
	SavePost(ctx context.Context, savedPost *models.SavedPost) error
	UnsavePost(ctx context.Context, userID, postURL string) error
	GetSavedPostsByUser(ctx context.Context, userID string) ([]models.SavedPost, error)
}

// MongoSavedPostRepository implements SavedPostRepository
type MongoSavedPostRepository struct {
	collection *mongo.Collection
}

func NewMongoSavedPostRepository(db *mongo.Database) *MongoSavedPostRepository {
	return &MongoSavedPostRepository{collection: db.Collection("savedPosts")}
}

// EnsureIndexes creates the unique (userId, postUrl) index. Save relies on it for conflicts.
func (r *MongoSavedPostRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "postUrl", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("userId_postUrl_unique"),
		},
		{
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
		},
	})
	if err != nil {
		return fmt.Errorf("create savedPosts indexes: %w", err)
	}
	return nil
}

// SavePost inserts the post; a second save of the same URL yields models.ErrConflict
func (r *MongoSavedPostRepository) SavePost(ctx context.Context, savedPost *models.SavedPost) error {
	savedPost.ID = primitive.NewObjectID()
	savedPost.CreatedAt = time.Now().UTC()
	if _, err := r.collection.InsertOne(ctx, savedPost); err != nil {
		return mapWriteError(err)
	}
	return nil
}

func (r *MongoSavedPostRepository) UnsavePost(ctx context.Context, userID, postURL string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"userId": userID, "postUrl": postURL})
	if err != nil {
		return fmt.Errorf("%w: delete saved post: %w", models.ErrUpstream, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("saved post: %w", models.ErrNotFound)
	}
	return nil
}

func (r *MongoSavedPostRepository) GetSavedPostsByUser(ctx context.Context, userID string) ([]models.SavedPost, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: find saved posts: %w", models.ErrUpstream, err)
	}
	defer cursor.Close(ctx)

	saved := make([]models.SavedPost, 0)
	if err := cursor.All(ctx, &saved); err != nil {
		return nil, fmt.Errorf("%w: decode saved posts: %w", models.ErrUpstream, err)
	}
	return saved, nil
}
