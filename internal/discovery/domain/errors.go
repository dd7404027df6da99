package domain

import "errors"

var (
	ErrListingNotFound    = errors.New("listing not found")
	ErrInvalidListingData = errors.New("invalid listing data")
	ErrMetadataMismatch   = errors.New("listing metadata does not match its category")
	ErrInvalidFilter      = errors.New("invalid filter parameters")
	ErrUnknownCategory    = errors.New("unknown category")
	ErrUnknownFacet       = errors.New("facet is not declared for category")
)
