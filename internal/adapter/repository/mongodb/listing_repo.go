package mongodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/discovery/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

type ListingRepository struct {
	collection *mongo.Collection
	logger     *zap.Logger
}

func NewListingRepository(db *mongo.Database, collection string, logger *zap.Logger) *ListingRepository {
	return &ListingRepository{
		collection: db.Collection(collection),
		logger:     logger.Named("mongo_listing_repo"),
	}
}

// EnsureIndexes creates the indexes the discovery queries rely on.
func (r *ListingRepository) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "category", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "metrics.views", Value: -1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "price", Value: 1}}},
		{Keys: bson.D{{Key: "metadata.bedrooms", Value: 1}}, Options: options.Index().SetSparse(true)},
	}
	if _, err := r.collection.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("ListingRepository.EnsureIndexes: %w", err)
	}
	return nil
}

func (r *ListingRepository) Query(ctx context.Context, d domain.QueryDescriptor) ([]domain.Listing, error) {
	if d.Empty {
		return []domain.Listing{}, nil
	}
	ctx, span := otel.Tracer("mongo-listing-repo").Start(ctx, "ListingRepository.Query")
	defer span.End()
	span.SetAttributes(attribute.Int("offset", d.Page.Offset), attribute.Int("predicates", len(d.Predicates)))

	filter, err := buildFilter(d)
	if err != nil {
		return nil, err
	}
	cursor, err := r.collection.Find(ctx, filter, buildFindOptions(d))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "find failed")
		return nil, fmt.Errorf("ListingRepository.Query: find: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []listingDocument
	if err := cursor.All(ctx, &docs); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("ListingRepository.Query: decode: %w", err)
	}
	out := make([]domain.Listing, 0, len(docs))
	for i := range docs {
		out = append(out, toListingEntity(&docs[i]))
	}
	r.logger.Debug("listings queried", zap.Int("count", len(out)), zap.Int("offset", d.Page.Offset))
	return out, nil
}

func (r *ListingRepository) FindByID(ctx context.Context, id string) (*domain.Listing, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrListingNotFound
	}
	var doc listingDocument
	if err := r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrListingNotFound
		}
		return nil, fmt.Errorf("ListingRepository.FindByID: %w", err)
	}
	l := toListingEntity(&doc)
	return &l, nil
}

// Save upserts a listing. Listings without an id get a new ObjectID.
func (r *ListingRepository) Save(ctx context.Context, l *domain.Listing) error {
	if err := domain.ValidateListing(withPlaceholderID(l)); err != nil {
		return err
	}
	doc, err := toListingDocument(l)
	if err != nil {
		return err
	}
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}
	_, err = r.collection.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("ListingRepository.Save: %w", err)
	}
	l.ID = doc.ID.Hex()
	return nil
}

func withPlaceholderID(l *domain.Listing) *domain.Listing {
	if l.ID != "" {
		return l
	}
	cp := *l
	cp.ID = "new"
	return &cp
}
