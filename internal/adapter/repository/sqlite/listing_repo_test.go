package sqlite

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/discovery/domain"
	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/discovery/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRepo(t *testing.T) (*ListingRepository, *DB) {
	t.Helper()
	db, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewListingRepository(db, zap.NewNop()), db
}

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func house(id string, beds int, price float64, age time.Duration) *domain.Listing {
	return &domain.Listing{
		ID:        id,
		Category:  domain.CategoryRealEstate,
		Title:     "Family house " + id,
		Price:     price,
		Status:    domain.StatusActive,
		CreatedAt: baseTime.Add(-age),
		Metadata:  domain.RealEstateMetadata{Bedrooms: beds, PropertyType: "house"},
	}
}

func TestListingRepository_RealEstateBedsFilter(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, house("h2", 2, 300_000, time.Hour)))
	require.NoError(t, repo.Save(ctx, house("h3", 3, 400_000, 2*time.Hour)))
	require.NoError(t, repo.Save(ctx, house("h4", 4, 500_000, 3*time.Hour)))
	sold := house("h5", 5, 600_000, 0)
	sold.Status = domain.StatusSold
	require.NoError(t, repo.Save(ctx, sold))
	require.NoError(t, repo.Save(ctx, &domain.Listing{
		ID: "p1", Category: domain.CategoryProduct, Title: "Family board game", Price: 30,
		Status: domain.StatusActive, CreatedAt: baseTime, Metadata: domain.ProductMetadata{Brand: "Acme"},
	}))

	state := domain.DefaultFilterState()
	state.Category = domain.CategoryRealEstate
	state.Facets = domain.Facets{domain.FacetBeds: domain.NumberFacet(3)}
	d := query.Compile(state, domain.Page{Offset: 0, Limit: domain.PageSize}, nil)

	got, err := repo.Query(ctx, d)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "h3", got[0].ID, "newest first")
	assert.Equal(t, "h4", got[1].ID)
	assert.Equal(t, domain.RealEstateMetadata{Bedrooms: 3, PropertyType: "house"}, got[0].Metadata)
}

func TestListingRepository_SearchTokensAndPaging(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	for i := 0; i < 25; i++ {
		require.NoError(t, repo.Save(ctx, house(fmt.Sprintf("h%02d", i), 3, 100_000, time.Duration(i)*time.Minute)))
	}

	state := domain.DefaultFilterState()
	state.SearchText = "HOUSE family"
	first, err := repo.Query(ctx, query.Compile(state, domain.Page{Offset: 0, Limit: domain.PageSize}, nil))
	require.NoError(t, err)
	assert.Len(t, first, domain.PageSize)

	second, err := repo.Query(ctx, query.Compile(state, domain.Page{Offset: domain.PageSize, Limit: domain.PageSize}, nil))
	require.NoError(t, err)
	require.Len(t, second, 5)
	assert.Equal(t, "h20", second[0].ID)

	state.SearchText = "house 100%"
	none, err := repo.Query(ctx, query.Compile(state, domain.Page{Offset: 0, Limit: domain.PageSize}, nil))
	require.NoError(t, err)
	assert.Empty(t, none, "wildcards in search text are literal")
}

func TestListingRepository_RecommendedIDs(t *testing.T) {
	repo, db := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, house("a", 3, 1, 0)))
	require.NoError(t, repo.Save(ctx, house("b", 3, 1, 0)))
	require.NoError(t, repo.Save(ctx, house("c", 3, 1, 0)))

	rec := NewRecommender(db, 0)
	require.NoError(t, rec.Store(ctx, "u1", []string{"c", "a"}))
	ids, err := rec.Recommend(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, ids)

	missing, err := rec.Recommend(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, missing)

	state := domain.DefaultFilterState()
	state.Sort = domain.SortRecommended
	got, err := repo.Query(ctx, query.Compile(state, domain.Page{Limit: domain.PageSize}, ids))
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestListingRepository_EmptyDescriptorSkipsBackend(t *testing.T) {
	repo, _ := newTestRepo(t)
	got, err := repo.Query(context.Background(), domain.QueryDescriptor{Empty: true})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestListingRepository_FindByID(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	l := house("", 2, 10, 0)
	require.NoError(t, repo.Save(ctx, l))
	require.NotEmpty(t, l.ID)

	got, err := repo.FindByID(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, l.Title, got.Title)

	_, err = repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrListingNotFound)
}

func TestListingRepository_SaveRejectsMismatchedMetadata(t *testing.T) {
	repo, _ := newTestRepo(t)
	l := house("x", 1, 1, 0)
	l.Metadata = domain.PetMetadata{Species: "dog"}
	err := repo.Save(context.Background(), l)
	assert.ErrorIs(t, err, domain.ErrMetadataMismatch)
}

func TestBuildQuery_UnknownField(t *testing.T) {
	_, _, err := buildQuery(domain.QueryDescriptor{
		Predicates: []domain.Predicate{{Field: "secret", Op: domain.OpEq, Value: "x"}},
		Page:       domain.Page{Limit: 1},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidFilter)
}
