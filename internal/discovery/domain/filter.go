package domain

import (
	"fmt"
	"math"
	"strings"
)

// --- Sort & View ---

type SortMode string

const (
	SortNewest      SortMode = "newest"
	SortMostViewed  SortMode = "mostViewed"
	SortRecommended SortMode = "recommended"
)

func (s SortMode) IsValid() bool {
	switch s {
	case SortNewest, SortMostViewed, SortRecommended:
		return true
	}
	return false
}

type ViewMode string

const (
	ViewList ViewMode = "list"
	ViewMap  ViewMode = "map"
)

func (v ViewMode) IsValid() bool {
	return v == ViewList || v == ViewMap
}

// --- Filter State ---

// DefaultPriceCeiling is the upper price bound of an untouched filter.
const DefaultPriceCeiling = 100_000_000

type PriceRange struct {
	Min float64
	Max float64
}

// IsFinite reports whether f is neither NaN nor an infinity.
func IsFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Validate rejects bounds that are not finite numbers.
func (p PriceRange) Validate() error {
	if !IsFinite(p.Min) || !IsFinite(p.Max) {
		return fmt.Errorf("%w: price bounds must be finite numbers", ErrInvalidFilter)
	}
	return nil
}

// Normalize clamps negative bounds and swaps an inverted range.
func (p PriceRange) Normalize() PriceRange {
	if p.Min < 0 {
		p.Min = 0
	}
	if p.Max < 0 {
		p.Max = 0
	}
	if p.Min > p.Max {
		p.Min, p.Max = p.Max, p.Min
	}
	return p
}

// FilterState is an immutable snapshot of the user's discovery filters.
// Callers must not mutate Facets of a snapshot obtained from a store.
type FilterState struct {
	Category   Category
	SearchText string
	PriceRange PriceRange
	Sort       SortMode
	Facets     Facets
	ViewMode   ViewMode
}

func DefaultFilterState() FilterState {
	return FilterState{
		Category:   CategoryAll,
		PriceRange: PriceRange{Min: 0, Max: DefaultPriceCeiling},
		Sort:       SortNewest,
		Facets:     Facets{},
		ViewMode:   ViewList,
	}
}

// Clone returns a deep copy.
func (s FilterState) Clone() FilterState {
	s.Facets = s.Facets.Clone()
	return s
}

// QueryEqual reports whether two states compile to the same query. ViewMode
// is presentation only and is ignored.
func (s FilterState) QueryEqual(o FilterState) bool {
	return s.Category == o.Category &&
		s.SearchText == o.SearchText &&
		s.PriceRange == o.PriceRange &&
		s.Sort == o.Sort &&
		s.Facets.Equal(o.Facets)
}

// SearchTokens splits SearchText into lower-cased, de-duplicated tokens in
// first-seen order.
func (s FilterState) SearchTokens() []string {
	fields := strings.Fields(strings.ToLower(s.SearchText))
	seen := make(map[string]struct{}, len(fields))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		tokens = append(tokens, f)
	}
	return tokens
}

// FilterPatch is a partial update. Nil fields are left unchanged; a non-nil
// Facets replaces the whole selection (use an empty map to clear it).
type FilterPatch struct {
	Category   *Category
	SearchText *string
	PriceRange *PriceRange
	Sort       *SortMode
	Facets     Facets
	ViewMode   *ViewMode
}

// Apply returns s with the patch fields replaced. No validation happens here.
func (p FilterPatch) Apply(s FilterState) FilterState {
	next := s.Clone()
	if p.Category != nil {
		next.Category = *p.Category
	}
	if p.SearchText != nil {
		next.SearchText = *p.SearchText
	}
	if p.PriceRange != nil {
		next.PriceRange = *p.PriceRange
	}
	if p.Sort != nil {
		next.Sort = *p.Sort
	}
	if p.Facets != nil {
		next.Facets = p.Facets.Clone()
	}
	if p.ViewMode != nil {
		next.ViewMode = *p.ViewMode
	}
	return next
}

// Generation identifies a query-relevant version of the filter state. It only
// ever increases.
type Generation uint64
