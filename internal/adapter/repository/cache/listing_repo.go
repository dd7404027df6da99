package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/discovery/domain"
	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/port/cache"
	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
)

const (
	pageKeyPrefix    = "discovery:page:"
	listingKeyPrefix = "discovery:listing:"
)

// LookupRecorder counts cache hits and misses.
type LookupRecorder interface {
	CacheLookup(hit bool)
}

// CachedListingRepository serves repeated page queries from a cache. Cache
// failures degrade to the wrapped repository and are never returned.
type CachedListingRepository struct {
	next     domain.ListingRepository
	cache    cache.CacheRepository
	ttl      time.Duration
	recorder LookupRecorder
	logger   *zap.Logger
}

func NewCachedListingRepository(next domain.ListingRepository, c cache.CacheRepository, ttl time.Duration, recorder LookupRecorder, logger *zap.Logger) *CachedListingRepository {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &CachedListingRepository{next: next, cache: c, ttl: ttl, recorder: recorder, logger: logger.Named("cached_listing_repo")}
}

// PageKey derives the cache key of a descriptor.
func PageKey(d domain.QueryDescriptor) string {
	return pageKeyPrefix + strconv.FormatUint(xxhash.Sum64String(d.Key()), 16)
}

func (r *CachedListingRepository) Query(ctx context.Context, d domain.QueryDescriptor) ([]domain.Listing, error) {
	if d.Empty {
		return r.next.Query(ctx, d)
	}
	key := PageKey(d)
	var cached []domain.Listing
	if r.load(ctx, key, &cached) {
		return cached, nil
	}

	listings, err := r.next.Query(ctx, d)
	if err != nil {
		return nil, err
	}
	r.store(ctx, key, listings)
	return listings, nil
}

func (r *CachedListingRepository) FindByID(ctx context.Context, id string) (*domain.Listing, error) {
	key := listingKeyPrefix + id
	var cached domain.Listing
	if r.load(ctx, key, &cached) {
		return &cached, nil
	}

	l, err := r.next.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.store(ctx, key, l)
	return l, nil
}

func (r *CachedListingRepository) load(ctx context.Context, key string, dst any) bool {
	data, err := r.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			r.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		}
		r.record(false)
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		r.logger.Warn("dropping undecodable cache entry", zap.String("key", key), zap.Error(err))
		_ = r.cache.Delete(ctx, key)
		r.record(false)
		return false
	}
	r.record(true)
	return true
}

func (r *CachedListingRepository) store(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		r.logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := r.cache.Set(ctx, key, data, r.ttl); err != nil {
		r.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

func (r *CachedListingRepository) record(hit bool) {
	if r.recorder != nil {
		r.recorder.CacheLookup(hit)
	}
}
