package query

import (
	"fmt"

	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/discovery/domain"
)

var (
	sortNewest     = []domain.SortField{{Field: domain.FieldCreatedAt, Descending: true}}
	sortMostViewed = []domain.SortField{
		{Field: domain.FieldViews, Descending: true},
		{Field: domain.FieldCreatedAt, Descending: true},
	}
)

// Compile turns a filter state and a page into a query descriptor. It is pure:
// the same inputs always produce an identical descriptor. recommended holds
// the ids returned by the recommender for SortRecommended; when it is empty
// the sort falls back to newest.
func Compile(state domain.FilterState, page domain.Page, recommended []string) domain.QueryDescriptor {
	page.Limit = domain.PageSize
	if page.Offset < 0 {
		page.Offset = 0
	}

	schema := domain.SchemaFor(state.Category)
	if contradicts(schema, state.Facets) {
		return domain.QueryDescriptor{
			Predicates: []domain.Predicate{},
			Sort:       []domain.SortField{},
			Page:       page,
			Empty:      true,
		}
	}

	preds := []domain.Predicate{
		{Field: domain.FieldStatus, Op: domain.OpEq, Value: string(domain.StatusActive)},
	}
	if state.Category != domain.CategoryAll {
		preds = append(preds, domain.Predicate{Field: domain.FieldCategory, Op: domain.OpEq, Value: string(state.Category)})
	}
	if tokens := state.SearchTokens(); len(tokens) > 0 {
		preds = append(preds, domain.Predicate{Field: domain.FieldTitle, Op: domain.OpContainsAll, Value: tokens})
	}
	price := state.PriceRange.Normalize()
	preds = append(preds, domain.Predicate{
		Field: domain.FieldPrice,
		Op:    domain.OpBetween,
		Value: domain.Range{Min: price.Min, Max: price.Max},
	})
	for _, spec := range schema.Facets {
		v, ok := state.Facets[spec.Name]
		if !ok || v.IsUnset() {
			continue
		}
		preds = append(preds, facetPredicate(spec, v))
	}

	d := domain.QueryDescriptor{Page: page}
	switch state.Sort {
	case domain.SortRecommended:
		ids := uniqueIDs(recommended)
		if len(ids) == 0 {
			d.Sort = cloneSort(sortNewest)
			d.SortFallback = true
			break
		}
		preds = append(preds, domain.Predicate{Field: domain.FieldID, Op: domain.OpIn, Value: ids})
		d.Sort = []domain.SortField{}
	case domain.SortMostViewed:
		d.Sort = cloneSort(sortMostViewed)
	default:
		d.Sort = cloneSort(sortNewest)
	}
	d.Predicates = preds
	return d
}

// contradicts reports whether any selected facet is foreign to the schema,
// which happens when a state was assembled for another category.
func contradicts(schema domain.FacetSchema, facets domain.Facets) bool {
	for name, v := range facets {
		spec, ok := schema.Lookup(name)
		if !ok || spec.Accepts(v) != nil {
			return true
		}
	}
	return false
}

func facetPredicate(spec domain.FacetSpec, v domain.FacetValue) domain.Predicate {
	p := domain.Predicate{Field: spec.Field}
	switch spec.Kind {
	case domain.FacetNumericRange:
		p.Value = v.Number
		switch spec.Comparison {
		case domain.CompareLte:
			p.Op = domain.OpLte
		case domain.CompareEq:
			p.Op = domain.OpEq
		default:
			p.Op = domain.OpGte
		}
	case domain.FacetEnum:
		if spec.Comparison == domain.CompareIn {
			p.Op, p.Value = domain.OpIn, []string{v.Text}
		} else {
			p.Op, p.Value = domain.OpEq, v.Text
		}
	case domain.FacetBoolean:
		p.Op, p.Value = domain.OpEq, v.Flag
	case domain.FacetTextList:
		items := make([]string, len(v.List))
		copy(items, v.List)
		p.Op, p.Value = domain.OpIn, items
	}
	return p
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func cloneSort(s []domain.SortField) []domain.SortField {
	out := make([]domain.SortField, len(s))
	copy(out, s)
	return out
}

// Rejection describes a listing refused by Admit.
type Rejection struct {
	ListingID string
	Err       error
}

func (r Rejection) Error() string {
	return fmt.Sprintf("listing %s rejected: %v", r.ListingID, r.Err)
}

// Admit filters backend results down to listings whose structure is valid,
// in particular whose metadata variant matches the category. Order is kept.
func Admit(listings []domain.Listing) ([]domain.Listing, []Rejection) {
	admitted := make([]domain.Listing, 0, len(listings))
	var rejected []Rejection
	for i := range listings {
		if err := domain.ValidateListing(&listings[i]); err != nil {
			rejected = append(rejected, Rejection{ListingID: listings[i].ID, Err: err})
			continue
		}
		admitted = append(admitted, listings[i])
	}
	return admitted, rejected
}
