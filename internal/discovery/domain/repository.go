package domain

import "context"

// ListingRepository is the remote listing store.
type ListingRepository interface {
	// Query returns at most d.Page.Limit listings in backend order.
	Query(ctx context.Context, d QueryDescriptor) ([]Listing, error)
	FindByID(ctx context.Context, id string) (*Listing, error)
}

// Recommender returns listing ids recommended for a user, best first.
type Recommender interface {
	Recommend(ctx context.Context, userID string) ([]string, error)
}
