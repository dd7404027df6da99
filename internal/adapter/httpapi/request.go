package httpapi

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/discovery/domain"
)

const facetParamPrefix = "facet."

// searchRequest holds the raw query parameters of a discovery request.
type searchRequest struct {
	Category string   `validate:"omitempty,oneof=all real_estate product service pet automotive"`
	Query    string   `validate:"max=200"`
	Sort     string   `validate:"omitempty,oneof=newest mostViewed recommended"`
	View     string   `validate:"omitempty,oneof=list map"`
	PriceMin *float64 `validate:"omitempty,gte=0"`
	PriceMax *float64 `validate:"omitempty,gte=0"`
	Offset   int      `validate:"gte=0"`
	Facets   map[string]string
}

func parseSearchRequest(q url.Values) (searchRequest, error) {
	req := searchRequest{
		Category: q.Get("category"),
		Query:    q.Get("q"),
		Sort:     q.Get("sort"),
		View:     q.Get("view"),
		Facets:   map[string]string{},
	}
	var err error
	if req.PriceMin, err = optionalFloat(q, "price_min"); err != nil {
		return req, err
	}
	if req.PriceMax, err = optionalFloat(q, "price_max"); err != nil {
		return req, err
	}
	if v := q.Get("offset"); v != "" {
		if req.Offset, err = strconv.Atoi(v); err != nil {
			return req, fmt.Errorf("%w: offset %q", domain.ErrInvalidFilter, v)
		}
	}
	for key, values := range q {
		if name, ok := strings.CutPrefix(key, facetParamPrefix); ok && len(values) > 0 {
			req.Facets[name] = values[0]
		}
	}
	return req, nil
}

func optionalFloat(q url.Values, key string) (*float64, error) {
	v := q.Get(key)
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || !domain.IsFinite(f) {
		return nil, fmt.Errorf("%w: %s %q", domain.ErrInvalidFilter, key, v)
	}
	return &f, nil
}

// filterState converts a validated request into filter state. Facets are
// parsed according to the schema of the requested category.
func (r searchRequest) filterState() (domain.FilterState, error) {
	state := domain.DefaultFilterState()
	category, err := domain.ParseCategory(r.Category)
	if err != nil {
		return state, err
	}
	state.Category = category
	state.SearchText = r.Query
	if r.Sort != "" {
		state.Sort = domain.SortMode(r.Sort)
	}
	if r.View != "" {
		state.ViewMode = domain.ViewMode(r.View)
	}
	if r.PriceMin != nil {
		state.PriceRange.Min = *r.PriceMin
	}
	if r.PriceMax != nil {
		state.PriceRange.Max = *r.PriceMax
	}

	// A facet declared only by another category is kept; it compiles to an
	// empty result instead of being silently dropped.
	for name, raw := range r.Facets {
		spec, ok := lookupFacet(category, name)
		if !ok {
			return state, fmt.Errorf("%w: %q", domain.ErrUnknownFacet, name)
		}
		v, err := parseFacetValue(spec, raw)
		if err != nil {
			return state, err
		}
		if err := spec.Accepts(v); err != nil {
			return state, err
		}
		state.Facets[name] = v
	}
	return state, nil
}

func parseFacetValue(spec domain.FacetSpec, raw string) (domain.FacetValue, error) {
	switch spec.Kind {
	case domain.FacetNumericRange:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil || !domain.IsFinite(n) {
			return domain.FacetValue{}, fmt.Errorf("%w: facet %s expects a number", domain.ErrInvalidFilter, spec.Name)
		}
		return domain.NumberFacet(n), nil
	case domain.FacetBoolean:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return domain.FacetValue{}, fmt.Errorf("%w: facet %s expects a boolean", domain.ErrInvalidFilter, spec.Name)
		}
		return domain.BoolFacet(b), nil
	case domain.FacetTextList:
		return domain.ListFacet(strings.Split(raw, ",")...), nil
	default:
		return domain.EnumFacet(raw), nil
	}
}

func lookupFacet(category domain.Category, name string) (domain.FacetSpec, bool) {
	if spec, ok := domain.SchemaFor(category).Lookup(name); ok {
		return spec, true
	}
	for _, c := range domain.ListingCategories {
		if spec, ok := domain.SchemaFor(c).Lookup(name); ok {
			return spec, true
		}
	}
	return domain.FacetSpec{}, false
}
