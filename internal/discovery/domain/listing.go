package domain

import (
	"fmt"
	"time"
)

// --- Listing Status ---

type ListingStatus string

const (
	StatusActive ListingStatus = "active"
	StatusSold   ListingStatus = "sold"
	StatusRented ListingStatus = "rented"
	StatusHidden ListingStatus = "hidden"
	StatusDraft  ListingStatus = "draft"
)

// IsValid checks if the ListingStatus is one of the defined constants.
func (s ListingStatus) IsValid() bool {
	switch s {
	case StatusActive, StatusSold, StatusRented, StatusHidden, StatusDraft:
		return true
	}
	return false
}

// --- Media ---

type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

// MediaTagMainPhoto marks the cover image of a listing. At most one item may carry it.
const MediaTagMainPhoto = "MainPhoto"

type Media struct {
	URL  string
	Type MediaType
	Tag  string
}

// --- Location ---

// LatLng is a WGS84 coordinate pair in degrees.
type LatLng struct {
	Lat float64
	Lng float64
}

// Valid reports whether the pair lies inside the WGS84 range.
func (p LatLng) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

type Location struct {
	Address     string
	Coordinates *LatLng
}

type Metrics struct {
	Views int64
	Likes int64
}

// --- Listing Entity ---

type Listing struct {
	ID          string
	Category    Category
	Title       string
	Description string
	Price       float64
	Status      ListingStatus
	CreatedAt   time.Time
	Location    *Location
	Metrics     Metrics
	Media       []Media
	Metadata    CategoryMetadata
}

// Coordinates returns the listing position when it has one.
func (l *Listing) Coordinates() (LatLng, bool) {
	if l.Location == nil || l.Location.Coordinates == nil {
		return LatLng{}, false
	}
	return *l.Location.Coordinates, true
}

// MainPhoto returns the media item tagged as the cover image, falling back to
// the first image.
func (l *Listing) MainPhoto() (Media, bool) {
	for _, m := range l.Media {
		if m.Tag == MediaTagMainPhoto {
			return m, true
		}
	}
	for _, m := range l.Media {
		if m.Type == MediaImage {
			return m, true
		}
	}
	return Media{}, false
}

// ValidateListing checks the structural rules of a listing received from
// a backend. A metadata variant that disagrees with the category is reported as
// ErrMetadataMismatch and never coerced.
func ValidateListing(l *Listing) error {
	if l == nil || l.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidListingData)
	}
	if !l.Category.IsValid() {
		return fmt.Errorf("%w: listing %s has category %q", ErrInvalidListingData, l.ID, l.Category)
	}
	if l.Metadata == nil || l.Metadata.Category() != l.Category {
		return fmt.Errorf("%w: listing %s", ErrMetadataMismatch, l.ID)
	}
	if l.Price < 0 {
		return fmt.Errorf("%w: listing %s has negative price", ErrInvalidListingData, l.ID)
	}
	mainPhotos := 0
	for _, m := range l.Media {
		if m.Tag == MediaTagMainPhoto {
			mainPhotos++
		}
	}
	if mainPhotos > 1 {
		return fmt.Errorf("%w: listing %s has %d main photos", ErrInvalidListingData, l.ID, mainPhotos)
	}
	if p, ok := l.Coordinates(); ok && !p.Valid() {
		return fmt.Errorf("%w: listing %s has coordinates out of range", ErrInvalidListingData, l.ID)
	}
	return nil
}
