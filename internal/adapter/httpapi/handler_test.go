package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/discovery/domain"
	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/discovery/query"
	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/discovery/spatial"
	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/platform/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type fakeRepo struct {
	mu       sync.Mutex
	listings []domain.Listing
	queries  []domain.QueryDescriptor
	err      error
}

func (f *fakeRepo) Query(_ context.Context, d domain.QueryDescriptor) ([]domain.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, d)
	if f.err != nil {
		return nil, f.err
	}
	return f.listings, nil
}

func (f *fakeRepo) FindByID(_ context.Context, id string) (*domain.Listing, error) {
	for i := range f.listings {
		if f.listings[i].ID == id {
			l := f.listings[i]
			return &l, nil
		}
	}
	return nil, domain.ErrListingNotFound
}

func (f *fakeRepo) lastQuery() domain.QueryDescriptor {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries[len(f.queries)-1]
}

type staticRecommender map[string][]string

func (s staticRecommender) Recommend(_ context.Context, userID string) ([]string, error) {
	return s[userID], nil
}

type prefixSigner struct{}

func (prefixSigner) SignedURL(_ context.Context, raw string) (string, error) {
	return raw + "?signed=1", nil
}

const testSecret = "test-secret-key"

func estate(id string, lat, lng, price float64) domain.Listing {
	return domain.Listing{
		ID: id, Category: domain.CategoryRealEstate, Title: "House " + id, Price: price,
		Status: domain.StatusActive, CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Location: &domain.Location{Address: "1 Main St", Coordinates: &domain.LatLng{Lat: lat, Lng: lng}},
		Media: []domain.Media{
			{URL: "photos/" + id + "-2.jpg", Type: domain.MediaImage},
			{URL: "photos/" + id + ".jpg", Type: domain.MediaImage, Tag: domain.MediaTagMainPhoto},
		},
		Metadata: domain.RealEstateMetadata{Bedrooms: 3},
	}
}

func newTestServer(t *testing.T, repo *fakeRepo, rec domain.Recommender, limiter *rate.Limiter) http.Handler {
	t.Helper()
	logger := zap.NewNop()
	h := NewHandler(repo, query.NewPlanner(rec, nil, logger), prefixSigner{}, spatial.DefaultOptions(), logger)
	return NewRouter(h, RouterConfig{Verifier: auth.NewTokenVerifier(testSecret), Limiter: limiter}, logger)
}

func get(t *testing.T, srv http.Handler, target, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestSearchListings_CompilesFacets(t *testing.T) {
	repo := &fakeRepo{listings: []domain.Listing{estate("a", -33.8, 151.2, 500_000)}}
	srv := newTestServer(t, repo, nil, nil)

	rec := get(t, srv, "/api/discovery/listings?category=real_estate&facet.beds=3&q=harbour", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp searchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Items, 1)
	assert.False(t, resp.HasMore)

	d := repo.lastQuery()
	assert.Equal(t, domain.PageSize, d.Page.Limit)
	assert.Contains(t, d.Predicates, domain.Predicate{Field: domain.FieldBedrooms, Op: domain.OpGte, Value: 3.0})
	assert.Contains(t, d.Predicates, domain.Predicate{Field: domain.FieldCategory, Op: domain.OpEq, Value: "real_estate"})
}

func TestSearchListings_HasMoreOnFullPage(t *testing.T) {
	repo := &fakeRepo{}
	for i := 0; i < domain.PageSize; i++ {
		repo.listings = append(repo.listings, estate(fmt.Sprintf("l%d", i), -33, 151, 1))
	}
	srv := newTestServer(t, repo, nil, nil)

	rec := get(t, srv, "/api/discovery/listings?offset=20", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp searchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.HasMore)
	assert.Equal(t, 40, resp.NextOffset)
	assert.Equal(t, 20, repo.lastQuery().Page.Offset)
}

func TestSearchListings_BadInput(t *testing.T) {
	srv := newTestServer(t, &fakeRepo{}, nil, nil)
	for _, target := range []string{
		"/api/discovery/listings?category=boats",
		"/api/discovery/listings?sort=cheapest",
		"/api/discovery/listings?price_min=abc",
		"/api/discovery/listings?price_max=Inf",
		"/api/discovery/listings?price_min=NaN",
		"/api/discovery/listings?category=real_estate&facet.beds=NaN",
		"/api/discovery/listings?category=real_estate&facet.baths=-Inf",
		"/api/discovery/listings?offset=-1",
		"/api/discovery/listings?category=real_estate&facet.propertyType=castle",
		"/api/discovery/listings?facet.colour=red",
	} {
		rec := get(t, srv, target, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestSearchListings_ForeignFacetYieldsEmpty(t *testing.T) {
	repo := &fakeRepo{listings: []domain.Listing{estate("a", 0, 0, 1)}}
	srv := newTestServer(t, repo, nil, nil)

	rec := get(t, srv, "/api/discovery/listings?category=product&facet.beds=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp searchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Items)
	assert.Empty(t, repo.queries, "empty descriptor never reaches the backend")
}

func TestSearchListings_RecommendedUsesAuthenticatedUser(t *testing.T) {
	repo := &fakeRepo{}
	srv := newTestServer(t, repo, staticRecommender{"u-42": {"x", "y"}}, nil)
	token, err := auth.NewTokenVerifier(testSecret).Issue("u-42", time.Minute)
	require.NoError(t, err)

	rec := get(t, srv, "/api/discovery/listings?sort=recommended", token)
	require.Equal(t, http.StatusOK, rec.Code)
	d := repo.lastQuery()
	assert.Contains(t, d.Predicates, domain.Predicate{Field: domain.FieldID, Op: domain.OpIn, Value: []string{"x", "y"}})
	assert.Empty(t, d.Sort)

	rec = get(t, srv, "/api/discovery/listings?sort=recommended", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp searchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.SortFallback, "anonymous requests fall back to newest")
}

func TestSearchListings_InvalidToken(t *testing.T) {
	srv := newTestServer(t, &fakeRepo{}, nil, nil)
	rec := get(t, srv, "/api/discovery/listings", "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSearchListings_BackendError(t *testing.T) {
	srv := newTestServer(t, &fakeRepo{err: fmt.Errorf("timeout")}, nil, nil)
	rec := get(t, srv, "/api/discovery/listings", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestSearchListings_DropsMismatchedListings(t *testing.T) {
	bad := estate("bad", 0, 0, 1)
	bad.Metadata = domain.PetMetadata{Species: "cat"}
	repo := &fakeRepo{listings: []domain.Listing{estate("ok", 0, 0, 1), bad}}
	srv := newTestServer(t, repo, nil, nil)

	rec := get(t, srv, "/api/discovery/listings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp searchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "ok", resp.Items[0].ID)
	assert.Equal(t, 1, resp.Rejected)
}

func TestGetFacetSchema(t *testing.T) {
	srv := newTestServer(t, &fakeRepo{}, nil, nil)

	rec := get(t, srv, "/api/discovery/facets/real_estate", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var schema domain.FacetSchema
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &schema))
	require.Len(t, schema.Facets, 5)
	assert.Equal(t, domain.FacetPropertyType, schema.Facets[0].Name)

	rec = get(t, srv, "/api/discovery/facets/boats", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMapListings(t *testing.T) {
	repo := &fakeRepo{listings: []domain.Listing{
		estate("a", -33.86, 151.20, 1_500_000),
		estate("b", -33.87, 151.21, 950),
	}}
	srv := newTestServer(t, repo, nil, nil)

	rec := get(t, srv, "/api/discovery/map?category=real_estate", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp mapResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Active)
	require.Len(t, resp.Markers, 2)
	labels := []string{resp.Markers[0].Label, resp.Markers[1].Label}
	assert.ElementsMatch(t, []string{"1.5M", "950"}, labels)
	require.NotNil(t, resp.Viewport)
	assert.LessOrEqual(t, resp.Viewport.Zoom, spatial.DefaultOptions().MaxZoom)
	assert.NotEmpty(t, resp.Clusters)
}

func TestMapListings_InactiveForProducts(t *testing.T) {
	repo := &fakeRepo{}
	srv := newTestServer(t, repo, nil, nil)

	rec := get(t, srv, "/api/discovery/map?category=product", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp mapResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Active)
	assert.Empty(t, repo.queries)
}

func TestGetPreview(t *testing.T) {
	repo := &fakeRepo{listings: []domain.Listing{estate("a", 1, 1, 250_000)}}
	srv := newTestServer(t, repo, nil, nil)

	rec := get(t, srv, "/api/discovery/listings/a/preview", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp previewResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "250k", resp.PriceLabel)
	assert.Equal(t, "photos/a.jpg?signed=1", resp.MainPhotoURL)
	assert.Equal(t, "1 Main St", resp.Address)

	rec = get(t, srv, "/api/discovery/listings/missing/preview", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRateLimit(t *testing.T) {
	srv := newTestServer(t, &fakeRepo{}, nil, rate.NewLimiter(rate.Every(time.Hour), 1))

	assert.Equal(t, http.StatusOK, get(t, srv, "/api/discovery/facets/pet", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(t, srv, "/api/discovery/facets/pet", "").Code)
	assert.Equal(t, http.StatusOK, get(t, srv, "/healthz", "").Code, "health checks are not limited")
}
