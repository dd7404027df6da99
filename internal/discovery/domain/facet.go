package domain

import (
	"fmt"
	"slices"
)

// --- Facet Schema ---

type FacetKind string

const (
	FacetNumericRange FacetKind = "numeric_range"
	FacetEnum         FacetKind = "enum"
	FacetBoolean      FacetKind = "boolean"
	FacetTextList     FacetKind = "text_list"
)

// Comparison is the predicate operator a populated facet compiles to.
type Comparison string

const (
	CompareEq  Comparison = "eq"
	CompareGte Comparison = "gte"
	CompareLte Comparison = "lte"
	CompareIn  Comparison = "in"
)

// FacetSpec declares one filterable attribute of a category.
type FacetSpec struct {
	Name       string     `json:"name"`
	Field      string     `json:"field"`
	Kind       FacetKind  `json:"kind"`
	Comparison Comparison `json:"comparison"`
	Options    []string   `json:"options,omitempty"`
}

// FacetSchema is the ordered facet declaration of a category. Order is the
// compilation order of facet predicates.
type FacetSchema struct {
	Category Category    `json:"category"`
	Facets   []FacetSpec `json:"facets"`
}

const (
	FacetPropertyType = "propertyType"
	FacetBeds         = "beds"
	FacetBaths        = "baths"
	FacetMinLandSize  = "minLandSize"
	FacetMinFloorArea = "minFloorArea"
)

// PropertyTypes are the accepted values of the propertyType facet.
var PropertyTypes = []string{"house", "apartment", "townhouse", "unit", "land", "acreage", "rural", "commercial"}

var realEstateSchema = FacetSchema{
	Category: CategoryRealEstate,
	Facets: []FacetSpec{
		{Name: FacetPropertyType, Field: FieldPropertyType, Kind: FacetEnum, Comparison: CompareEq, Options: PropertyTypes},
		{Name: FacetBeds, Field: FieldBedrooms, Kind: FacetNumericRange, Comparison: CompareGte},
		{Name: FacetBaths, Field: FieldBathrooms, Kind: FacetNumericRange, Comparison: CompareGte},
		{Name: FacetMinLandSize, Field: FieldLandSize, Kind: FacetNumericRange, Comparison: CompareGte},
		{Name: FacetMinFloorArea, Field: FieldFloorArea, Kind: FacetNumericRange, Comparison: CompareGte},
	},
}

// SchemaFor returns the facet schema of a category. Only real estate declares
// facets; every other category has an empty schema.
func SchemaFor(c Category) FacetSchema {
	if c == CategoryRealEstate {
		return realEstateSchema
	}
	return FacetSchema{Category: c, Facets: []FacetSpec{}}
}

// Lookup finds a facet by name.
func (s FacetSchema) Lookup(name string) (FacetSpec, bool) {
	for _, f := range s.Facets {
		if f.Name == name {
			return f, true
		}
	}
	return FacetSpec{}, false
}

// Accepts validates a value against the facet declaration.
func (f FacetSpec) Accepts(v FacetValue) error {
	if v.Kind != f.Kind {
		return fmt.Errorf("%w: facet %s expects %s, got %s", ErrInvalidFilter, f.Name, f.Kind, v.Kind)
	}
	switch f.Kind {
	case FacetNumericRange:
		if !IsFinite(v.Number) {
			return fmt.Errorf("%w: facet %s must be a finite number", ErrInvalidFilter, f.Name)
		}
		if v.Number < 0 {
			return fmt.Errorf("%w: facet %s must not be negative", ErrInvalidFilter, f.Name)
		}
	case FacetEnum:
		if len(f.Options) > 0 && !slices.Contains(f.Options, v.Text) {
			return fmt.Errorf("%w: facet %s does not accept %q", ErrInvalidFilter, f.Name, v.Text)
		}
	case FacetTextList:
		for _, item := range v.List {
			if len(f.Options) > 0 && !slices.Contains(f.Options, item) {
				return fmt.Errorf("%w: facet %s does not accept %q", ErrInvalidFilter, f.Name, item)
			}
		}
	}
	return nil
}

// --- Facet Values ---

// FacetValue holds a user-selected facet value. Only the field matching Kind is meaningful.
type FacetValue struct {
	Kind   FacetKind
	Number float64
	Text   string
	Flag   bool
	List   []string
}

func NumberFacet(n float64) FacetValue { return FacetValue{Kind: FacetNumericRange, Number: n} }
func EnumFacet(s string) FacetValue    { return FacetValue{Kind: FacetEnum, Text: s} }
func BoolFacet(b bool) FacetValue      { return FacetValue{Kind: FacetBoolean, Flag: b} }
func ListFacet(items ...string) FacetValue {
	return FacetValue{Kind: FacetTextList, List: slices.Clone(items)}
}

// IsUnset reports whether the value selects nothing and should be dropped
// from the sparse facet map.
func (v FacetValue) IsUnset() bool {
	switch v.Kind {
	case FacetNumericRange:
		return v.Number == 0
	case FacetEnum:
		return v.Text == ""
	case FacetBoolean:
		return !v.Flag
	case FacetTextList:
		return len(v.List) == 0
	}
	return true
}

func (v FacetValue) Equal(o FacetValue) bool {
	return v.Kind == o.Kind && v.Number == o.Number && v.Text == o.Text && v.Flag == o.Flag && slices.Equal(v.List, o.List)
}

// Facets is the sparse facet selection of a FilterState.
type Facets map[string]FacetValue

func (f Facets) Clone() Facets {
	out := make(Facets, len(f))
	for k, v := range f {
		v.List = slices.Clone(v.List)
		out[k] = v
	}
	return out
}

func (f Facets) Equal(o Facets) bool {
	if len(f) != len(o) {
		return false
	}
	for k, v := range f {
		ov, ok := o[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}
