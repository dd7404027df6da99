package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// recommendationDocument holds the precomputed ranking of one user.
type recommendationDocument struct {
	UserID     string    `bson:"_id"`
	ListingIDs []string  `bson:"listing_ids"`
	UpdatedAt  time.Time `bson:"updated_at"`
}

// Recommender reads recommendations produced offline into a collection.
type Recommender struct {
	collection *mongo.Collection
	maxIDs     int
	logger     *zap.Logger
}

func NewRecommender(db *mongo.Database, collection string, maxIDs int, logger *zap.Logger) *Recommender {
	if maxIDs <= 0 {
		maxIDs = 200
	}
	return &Recommender{
		collection: db.Collection(collection),
		maxIDs:     maxIDs,
		logger:     logger.Named("mongo_recommender"),
	}
}

// Recommend returns the stored ranking, best first. A user without a ranking
// gets an empty list.
func (r *Recommender) Recommend(ctx context.Context, userID string) ([]string, error) {
	var doc recommendationDocument
	opts := options.FindOne().SetProjection(bson.M{"listing_ids": bson.M{"$slice": r.maxIDs}})
	err := r.collection.FindOne(ctx, bson.M{"_id": userID}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			r.logger.Debug("no recommendations stored for user", zap.String("user_id", userID))
			return []string{}, nil
		}
		return nil, fmt.Errorf("Recommender.Recommend for user '%s': %w", userID, err)
	}
	return doc.ListingIDs, nil
}

// Store replaces the ranking of a user.
func (r *Recommender) Store(ctx context.Context, userID string, listingIDs []string) error {
	doc := recommendationDocument{UserID: userID, ListingIDs: listingIDs, UpdatedAt: time.Now().UTC()}
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": userID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("Recommender.Store for user '%s': %w", userID, err)
	}
	return nil
}
