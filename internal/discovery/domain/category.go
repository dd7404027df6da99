package domain

import "fmt"

// Category identifies a listing vertical. CategoryAll is only valid inside a
// FilterState and never on a Listing.
type Category string

const (
	CategoryAll        Category = "all"
	CategoryRealEstate Category = "real_estate"
	CategoryProduct    Category = "product"
	CategoryService    Category = "service"
	CategoryPet        Category = "pet"
	CategoryAutomotive Category = "automotive"
)

// ListingCategories is every concrete category in display order.
var ListingCategories = []Category{
	CategoryRealEstate,
	CategoryProduct,
	CategoryService,
	CategoryPet,
	CategoryAutomotive,
}

// IsValid reports whether c may appear on a Listing.
func (c Category) IsValid() bool {
	switch c {
	case CategoryRealEstate, CategoryProduct, CategoryService, CategoryPet, CategoryAutomotive:
		return true
	}
	return false
}

// IsFilterable reports whether c may be used as the category of a FilterState.
func (c Category) IsFilterable() bool {
	return c == CategoryAll || c.IsValid()
}

// Geolocatable reports whether listings of the category carry a location and
// can therefore be shown on the map. CategoryAll mixes categories, so it counts.
func (c Category) Geolocatable() bool {
	switch c {
	case CategoryAll, CategoryRealEstate, CategoryService, CategoryPet, CategoryAutomotive:
		return true
	}
	return false
}

// ParseCategory converts user input into a filterable category.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if s == "" {
		return CategoryAll, nil
	}
	if !c.IsFilterable() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
	}
	return c, nil
}
