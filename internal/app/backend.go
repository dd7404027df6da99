package app

import (
	"context"
	"fmt"

	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/adapter/cache/redis"
	cachedrepo "github.com/Abdurahmanit/GroupProject/discovery-service/internal/adapter/repository/cache"
	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/adapter/repository/mongodb"
	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/adapter/repository/sqlite"
	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/config"
	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/discovery/domain"
	"go.uber.org/zap"
)

// ListingWriter stores listings. Both backends implement it.
type ListingWriter interface {
	Save(ctx context.Context, l *domain.Listing) error
}

// Backend bundles the listing source selected by configuration.
type Backend struct {
	Listings    domain.ListingRepository
	Writer      ListingWriter
	Recommender domain.Recommender

	closers []func()
}

// Close releases connections in reverse order of opening.
func (b *Backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// OpenBackend connects the configured listing backend and, when enabled,
// wraps it in the redis page cache.
func OpenBackend(ctx context.Context, cfg *config.Config, recorder cachedrepo.LookupRecorder, logger *zap.Logger) (*Backend, error) {
	b := &Backend{}
	switch cfg.Backend {
	case "sqlite":
		db, err := sqlite.New(cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func() { _ = db.Close() })
		repo := sqlite.NewListingRepository(db, logger)
		b.Listings, b.Writer = repo, repo
		b.Recommender = sqlite.NewRecommender(db, 0)
		logger.Info("using sqlite backend", zap.String("path", cfg.SQLite.Path))
	default:
		client, err := mongodb.NewMongoDBConnection(&cfg.Mongo)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func() {
			if err := client.Disconnect(context.Background()); err != nil {
				logger.Error("error disconnecting from MongoDB", zap.Error(err))
			}
		})
		db := client.Database(cfg.Mongo.Database)
		repo := mongodb.NewListingRepository(db, cfg.Mongo.ListingsCollection, logger)
		if err := repo.EnsureIndexes(ctx); err != nil {
			b.Close()
			return nil, err
		}
		b.Listings, b.Writer = repo, repo
		b.Recommender = mongodb.NewRecommender(db, cfg.Mongo.RecommendationsCollection, 0, logger)
		logger.Info("using mongo backend", zap.String("database", cfg.Mongo.Database))
	}

	if cfg.Redis.Enabled {
		client, err := redis.NewRedisClient(ctx, &cfg.Redis, logger)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("redis page cache: %w", err)
		}
		b.closers = append(b.closers, func() { _ = client.Close() })
		b.Listings = cachedrepo.NewCachedListingRepository(
			b.Listings, redis.NewCacheRepository(client, logger), cfg.Redis.PageTTL, recorder, logger)
	}
	return b, nil
}
