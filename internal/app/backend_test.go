package app

import (
	"context"
	"testing"
	"time"

	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/config"
	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/discovery/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOpenBackend_SQLite(t *testing.T) {
	cfg := &config.Config{Backend: "sqlite", SQLite: config.SQLiteConfig{Path: ":memory:"}}
	b, err := OpenBackend(context.Background(), cfg, nil, zap.NewNop())
	require.NoError(t, err)
	defer b.Close()

	ctx := context.Background()
	require.NoError(t, b.Writer.Save(ctx, &domain.Listing{
		ID: "s1", Category: domain.CategoryService, Title: "Dog walking", Price: 25,
		Status: domain.StatusActive, CreatedAt: time.Now().UTC(),
		Metadata: domain.ServiceMetadata{ServiceArea: "Newtown"},
	}))

	got, err := b.Listings.FindByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Dog walking", got.Title)

	ids, err := b.Recommender.Recommend(ctx, "anyone")
	require.NoError(t, err)
	assert.Empty(t, ids)
}
