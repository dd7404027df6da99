package domain

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validHouse() *Listing {
	return &Listing{
		ID:        "l-1",
		Category:  CategoryRealEstate,
		Title:     "Brick house",
		Price:     450000,
		Status:    StatusActive,
		CreatedAt: time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC),
		Location:  &Location{Address: "1 Main St", Coordinates: &LatLng{Lat: -33.86, Lng: 151.2}},
		Media: []Media{
			{URL: "https://cdn/1.jpg", Type: MediaImage},
			{URL: "https://cdn/2.jpg", Type: MediaImage, Tag: MediaTagMainPhoto},
		},
		Metadata: RealEstateMetadata{Bedrooms: 3, Bathrooms: 2, PropertyType: "house"},
	}
}

func TestValidateListing(t *testing.T) {
	t.Run("valid listing passes", func(t *testing.T) {
		assert.NoError(t, ValidateListing(validHouse()))
	})

	t.Run("metadata variant must match category", func(t *testing.T) {
		l := validHouse()
		l.Metadata = PetMetadata{Species: "dog"}
		err := ValidateListing(l)
		assert.True(t, errors.Is(err, ErrMetadataMismatch))
	})

	t.Run("missing metadata is a mismatch", func(t *testing.T) {
		l := validHouse()
		l.Metadata = nil
		assert.ErrorIs(t, ValidateListing(l), ErrMetadataMismatch)
	})

	t.Run("two main photos are rejected", func(t *testing.T) {
		l := validHouse()
		l.Media[0].Tag = MediaTagMainPhoto
		assert.ErrorIs(t, ValidateListing(l), ErrInvalidListingData)
	})

	t.Run("negative price is rejected", func(t *testing.T) {
		l := validHouse()
		l.Price = -1
		assert.ErrorIs(t, ValidateListing(l), ErrInvalidListingData)
	})

	t.Run("category all is not a listing category", func(t *testing.T) {
		l := validHouse()
		l.Category = CategoryAll
		assert.ErrorIs(t, ValidateListing(l), ErrInvalidListingData)
	})
}

func TestListingMainPhoto(t *testing.T) {
	l := validHouse()
	m, ok := l.MainPhoto()
	require.True(t, ok)
	assert.Equal(t, "https://cdn/2.jpg", m.URL)

	l.Media[1].Tag = ""
	m, ok = l.MainPhoto()
	require.True(t, ok)
	assert.Equal(t, "https://cdn/1.jpg", m.URL)
}

func TestListingJSONKeepsMetadataVariant(t *testing.T) {
	raw, err := json.Marshal(validHouse())
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"kind":"real_estate"`)

	var decoded Listing
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, RealEstateMetadata{Bedrooms: 3, Bathrooms: 2, PropertyType: "house"}, decoded.Metadata)
	p, ok := decoded.Coordinates()
	require.True(t, ok)
	assert.Equal(t, LatLng{Lat: -33.86, Lng: 151.2}, p)
}

func TestListingJSONRejectsUnknownKind(t *testing.T) {
	var l Listing
	err := json.Unmarshal([]byte(`{"id":"x","category":"pet","metadata":{"kind":"boat"}}`), &l)
	assert.ErrorIs(t, err, ErrInvalidListingData)
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory("")
	require.NoError(t, err)
	assert.Equal(t, CategoryAll, c)

	c, err = ParseCategory("pet")
	require.NoError(t, err)
	assert.Equal(t, CategoryPet, c)

	_, err = ParseCategory("boats")
	assert.ErrorIs(t, err, ErrUnknownCategory)

	assert.False(t, CategoryProduct.Geolocatable())
	assert.True(t, CategoryRealEstate.Geolocatable())
}

func TestSchemaFor(t *testing.T) {
	s := SchemaFor(CategoryRealEstate)
	names := make([]string, 0, len(s.Facets))
	for _, f := range s.Facets {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{FacetPropertyType, FacetBeds, FacetBaths, FacetMinLandSize, FacetMinFloorArea}, names)

	beds, ok := s.Lookup(FacetBeds)
	require.True(t, ok)
	assert.Equal(t, CompareGte, beds.Comparison)

	for _, c := range []Category{CategoryAll, CategoryProduct, CategoryService, CategoryPet, CategoryAutomotive} {
		assert.Empty(t, SchemaFor(c).Facets, c)
	}
}

func TestFacetSpecAccepts(t *testing.T) {
	s := SchemaFor(CategoryRealEstate)
	pt, _ := s.Lookup(FacetPropertyType)
	beds, _ := s.Lookup(FacetBeds)

	assert.NoError(t, pt.Accepts(EnumFacet("house")))
	assert.ErrorIs(t, pt.Accepts(EnumFacet("castle")), ErrInvalidFilter)
	assert.ErrorIs(t, beds.Accepts(EnumFacet("3")), ErrInvalidFilter)
	assert.ErrorIs(t, beds.Accepts(NumberFacet(-2)), ErrInvalidFilter)
	assert.NoError(t, beds.Accepts(NumberFacet(3)))
	assert.ErrorIs(t, beds.Accepts(NumberFacet(math.NaN())), ErrInvalidFilter)
	assert.ErrorIs(t, beds.Accepts(NumberFacet(math.Inf(1))), ErrInvalidFilter)
}

func TestPriceRangeValidate(t *testing.T) {
	assert.NoError(t, PriceRange{Min: 0, Max: DefaultPriceCeiling}.Validate())
	assert.ErrorIs(t, PriceRange{Min: 0, Max: math.Inf(1)}.Validate(), ErrInvalidFilter)
	assert.ErrorIs(t, PriceRange{Min: math.NaN(), Max: 10}.Validate(), ErrInvalidFilter)
}

func TestPriceRangeNormalize(t *testing.T) {
	assert.Equal(t, PriceRange{Min: 100, Max: 500}, PriceRange{Min: 500, Max: 100}.Normalize())
	assert.Equal(t, PriceRange{Min: 0, Max: 10}, PriceRange{Min: -5, Max: 10}.Normalize())
}

func TestFilterStateQueryEqualIgnoresViewMode(t *testing.T) {
	a := DefaultFilterState()
	b := a.Clone()
	b.ViewMode = ViewMap
	assert.True(t, a.QueryEqual(b))

	b.Facets[FacetBeds] = NumberFacet(2)
	assert.False(t, a.QueryEqual(b))
	assert.Empty(t, a.Facets, "clone must not share the facet map")
}

func TestSearchTokens(t *testing.T) {
	s := FilterState{SearchText: "  Sea VIEW  sea  apartment "}
	assert.Equal(t, []string{"sea", "view", "apartment"}, s.SearchTokens())
}

func TestQueryDescriptorKeyIsStable(t *testing.T) {
	d := QueryDescriptor{
		Predicates: []Predicate{
			{Field: FieldPrice, Op: OpBetween, Value: Range{Min: 0, Max: 10}},
			{Field: FieldTitle, Op: OpContainsAll, Value: []string{"a", "b"}},
		},
		Sort: []SortField{{Field: FieldCreatedAt, Descending: true}},
		Page: Page{Offset: 20, Limit: PageSize},
	}
	assert.Equal(t, d.Key(), d.Key())

	other := d
	other.Page.Offset = 40
	assert.NotEqual(t, d.Key(), other.Key())
}
