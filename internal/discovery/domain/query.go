package domain

import (
	"encoding/json"
	"fmt"
)

// PageSize is the fixed number of listings requested per page.
const PageSize = 20

// Logical field names used by query descriptors. Backends translate them to
// their own storage layout.
const (
	FieldID           = "id"
	FieldStatus       = "status"
	FieldCategory     = "category"
	FieldTitle        = "title"
	FieldPrice        = "price"
	FieldCreatedAt    = "created_at"
	FieldViews        = "metrics.views"
	FieldPropertyType = "metadata.property_type"
	FieldBedrooms     = "metadata.bedrooms"
	FieldBathrooms    = "metadata.bathrooms"
	FieldLandSize     = "metadata.land_size_m2"
	FieldFloorArea    = "metadata.floor_area_m2"
)

type Operator string

const (
	OpEq          Operator = "eq"
	OpGte         Operator = "gte"
	OpLte         Operator = "lte"
	OpBetween     Operator = "between"
	OpIn          Operator = "in"
	OpContainsAll Operator = "contains_all"
)

// Range is the value of an OpBetween predicate. Both bounds are inclusive.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Predicate is a single backend-agnostic condition. Value is a string,
// float64, bool, []string or Range depending on Op.
type Predicate struct {
	Field string   `json:"field"`
	Op    Operator `json:"op"`
	Value any      `json:"value"`
}

type SortField struct {
	Field      string `json:"field"`
	Descending bool   `json:"desc"`
}

type Page struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// QueryDescriptor is the compiled, backend-agnostic form of a FilterState page.
// Empty marks a query that is known to match nothing; backends must not be
// called for it.
type QueryDescriptor struct {
	Predicates   []Predicate `json:"predicates"`
	Sort         []SortField `json:"sort"`
	Page         Page        `json:"page"`
	Empty        bool        `json:"empty"`
	SortFallback bool        `json:"sort_fallback"`
}

// Key returns a canonical representation. Equal descriptors yield equal keys.
func (d QueryDescriptor) Key() string {
	b, err := json.Marshal(d)
	if err != nil {
		// Predicate values are restricted to JSON-safe types.
		return fmt.Sprintf("%+v", d)
	}
	return string(b)
}

// Strings returns the value of an OpIn or OpContainsAll predicate.
func (p Predicate) Strings() []string {
	v, _ := p.Value.([]string)
	return v
}

// Number returns a numeric predicate value.
func (p Predicate) Number() (float64, bool) {
	switch v := p.Value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

// Range returns the value of an OpBetween predicate.
func (p Predicate) Range() (Range, bool) {
	v, ok := p.Value.(Range)
	return v, ok
}
