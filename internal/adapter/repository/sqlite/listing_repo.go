package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/discovery/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ListingRepository serves discovery queries from a local SQLite file. The
// full listing is stored as JSON next to the columns used for filtering.
type ListingRepository struct {
	db     *DB
	logger *zap.Logger
}

func NewListingRepository(db *DB, logger *zap.Logger) *ListingRepository {
	return &ListingRepository{db: db, logger: logger.Named("sqlite_listing_repo")}
}

func (r *ListingRepository) Query(ctx context.Context, d domain.QueryDescriptor) ([]domain.Listing, error) {
	if d.Empty {
		return []domain.Listing{}, nil
	}
	query, args, err := buildQuery(d)
	if err != nil {
		return nil, err
	}

	var docs []string
	if err := r.db.SelectContext(ctx, &docs, query, args...); err != nil {
		return nil, fmt.Errorf("ListingRepository.Query: %w", err)
	}

	out := make([]domain.Listing, 0, len(docs))
	for _, doc := range docs {
		var l domain.Listing
		if err := json.Unmarshal([]byte(doc), &l); err != nil {
			r.logger.Warn("skipping undecodable listing row", zap.Error(err))
			continue
		}
		out = append(out, l)
	}
	r.logger.Debug("listings queried", zap.Int("count", len(out)), zap.Int("offset", d.Page.Offset))
	return out, nil
}

func (r *ListingRepository) FindByID(ctx context.Context, id string) (*domain.Listing, error) {
	var doc string
	err := r.db.GetContext(ctx, &doc, "SELECT doc FROM listings WHERE id = ?", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrListingNotFound
		}
		return nil, fmt.Errorf("ListingRepository.FindByID: %w", err)
	}
	var l domain.Listing
	if err := json.Unmarshal([]byte(doc), &l); err != nil {
		return nil, fmt.Errorf("ListingRepository.FindByID: decode: %w", err)
	}
	return &l, nil
}

// Save upserts a listing. Listings without an id get a new UUID.
func (r *ListingRepository) Save(ctx context.Context, l *domain.Listing) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if err := domain.ValidateListing(l); err != nil {
		return err
	}
	doc, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("ListingRepository.Save: encode: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO listings (id, category, title, price, status, created_at, views, doc)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			category = excluded.category,
			title = excluded.title,
			price = excluded.price,
			status = excluded.status,
			created_at = excluded.created_at,
			views = excluded.views,
			doc = excluded.doc`,
		l.ID, string(l.Category), l.Title, l.Price, string(l.Status),
		l.CreatedAt.UnixMilli(), l.Metrics.Views, string(doc),
	)
	if err != nil {
		return fmt.Errorf("ListingRepository.Save: %w", err)
	}
	return nil
}

// Recommender reads per-user rankings from the recommendations table.
type Recommender struct {
	db     *DB
	maxIDs int
}

func NewRecommender(db *DB, maxIDs int) *Recommender {
	if maxIDs <= 0 {
		maxIDs = 200
	}
	return &Recommender{db: db, maxIDs: maxIDs}
}

func (r *Recommender) Recommend(ctx context.Context, userID string) ([]string, error) {
	ids := []string{}
	err := r.db.SelectContext(ctx, &ids,
		"SELECT listing_id FROM recommendations WHERE user_id = ? ORDER BY ordinal ASC LIMIT ?", userID, r.maxIDs)
	if err != nil {
		return nil, fmt.Errorf("Recommender.Recommend for user '%s': %w", userID, err)
	}
	return ids, nil
}

// Store replaces the ranking of a user.
func (r *Recommender) Store(ctx context.Context, userID string, listingIDs []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM recommendations WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("Recommender.Store: %w", err)
	}
	for ordinal, id := range listingIDs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO recommendations (user_id, ordinal, listing_id) VALUES (?, ?, ?)", userID, ordinal, id); err != nil {
			return fmt.Errorf("Recommender.Store: %w", err)
		}
	}
	return tx.Commit()
}
