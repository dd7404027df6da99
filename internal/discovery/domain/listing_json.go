package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

type listingJSON struct {
	ID          string        `json:"id"`
	Category    Category      `json:"category"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Price       float64       `json:"price"`
	Status      ListingStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	Location    *locationJSON `json:"location,omitempty"`
	Metrics     metricsJSON   `json:"metrics"`
	Media       []mediaJSON   `json:"media,omitempty"`
	Metadata    *metadataJSON `json:"metadata,omitempty"`
}

type locationJSON struct {
	Address string   `json:"address,omitempty"`
	Lat     *float64 `json:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty"`
}

type metricsJSON struct {
	Views int64 `json:"views"`
	Likes int64 `json:"likes"`
}

type mediaJSON struct {
	URL  string    `json:"url"`
	Type MediaType `json:"type"`
	Tag  string    `json:"tag,omitempty"`
}

// metadataJSON flattens every variant into one object discriminated by Kind.
type metadataJSON struct {
	Kind Category `json:"kind"`

	Bedrooms      int     `json:"bedrooms,omitempty"`
	Bathrooms     int     `json:"bathrooms,omitempty"`
	ParkingSpaces int     `json:"parking_spaces,omitempty"`
	FloorAreaM2   float64 `json:"floor_area_m2,omitempty"`
	LandSizeM2    float64 `json:"land_size_m2,omitempty"`
	PropertyType  string  `json:"property_type,omitempty"`

	Brand         string `json:"brand,omitempty"`
	Condition     string `json:"condition,omitempty"`
	StockQuantity int    `json:"stock_quantity,omitempty"`

	ServiceArea  string `json:"service_area,omitempty"`
	PricingUnit  string `json:"pricing_unit,omitempty"`
	Availability string `json:"availability,omitempty"`

	Species    string `json:"species,omitempty"`
	Breed      string `json:"breed,omitempty"`
	AgeMonths  int    `json:"age_months,omitempty"`
	Vaccinated bool   `json:"vaccinated,omitempty"`

	Make       string `json:"make,omitempty"`
	Model      string `json:"model,omitempty"`
	Year       int    `json:"year,omitempty"`
	OdometerKm int    `json:"odometer_km,omitempty"`
	Engine     string `json:"engine,omitempty"`
}

func (l Listing) MarshalJSON() ([]byte, error) {
	out := listingJSON{
		ID:          l.ID,
		Category:    l.Category,
		Title:       l.Title,
		Description: l.Description,
		Price:       l.Price,
		Status:      l.Status,
		CreatedAt:   l.CreatedAt,
		Metrics:     metricsJSON{Views: l.Metrics.Views, Likes: l.Metrics.Likes},
	}
	if l.Location != nil {
		loc := &locationJSON{Address: l.Location.Address}
		if c := l.Location.Coordinates; c != nil {
			lat, lng := c.Lat, c.Lng
			loc.Lat, loc.Lng = &lat, &lng
		}
		out.Location = loc
	}
	for _, m := range l.Media {
		out.Media = append(out.Media, mediaJSON{URL: m.URL, Type: m.Type, Tag: m.Tag})
	}
	if l.Metadata != nil {
		out.Metadata = encodeMetadata(l.Metadata)
	}
	return json.Marshal(out)
}

func (l *Listing) UnmarshalJSON(data []byte) error {
	var in listingJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*l = Listing{
		ID:          in.ID,
		Category:    in.Category,
		Title:       in.Title,
		Description: in.Description,
		Price:       in.Price,
		Status:      in.Status,
		CreatedAt:   in.CreatedAt,
		Metrics:     Metrics{Views: in.Metrics.Views, Likes: in.Metrics.Likes},
	}
	if in.Location != nil {
		loc := &Location{Address: in.Location.Address}
		if in.Location.Lat != nil && in.Location.Lng != nil {
			loc.Coordinates = &LatLng{Lat: *in.Location.Lat, Lng: *in.Location.Lng}
		}
		l.Location = loc
	}
	for _, m := range in.Media {
		l.Media = append(l.Media, Media{URL: m.URL, Type: m.Type, Tag: m.Tag})
	}
	if in.Metadata != nil {
		md, err := in.Metadata.decode()
		if err != nil {
			return err
		}
		l.Metadata = md
	}
	return nil
}

func encodeMetadata(md CategoryMetadata) *metadataJSON {
	out := &metadataJSON{Kind: md.Category()}
	switch v := md.(type) {
	case RealEstateMetadata:
		out.Bedrooms, out.Bathrooms, out.ParkingSpaces = v.Bedrooms, v.Bathrooms, v.ParkingSpaces
		out.FloorAreaM2, out.LandSizeM2, out.PropertyType = v.FloorAreaM2, v.LandSizeM2, v.PropertyType
	case ProductMetadata:
		out.Brand, out.Condition, out.StockQuantity = v.Brand, v.Condition, v.StockQuantity
	case ServiceMetadata:
		out.ServiceArea, out.PricingUnit, out.Availability = v.ServiceArea, v.PricingUnit, v.Availability
	case PetMetadata:
		out.Species, out.Breed, out.AgeMonths, out.Vaccinated = v.Species, v.Breed, v.AgeMonths, v.Vaccinated
	case AutomotiveMetadata:
		out.Make, out.Model, out.Year, out.OdometerKm, out.Engine = v.Make, v.Model, v.Year, v.OdometerKm, v.Engine
	}
	return out
}

func (m *metadataJSON) decode() (CategoryMetadata, error) {
	switch m.Kind {
	case CategoryRealEstate:
		return RealEstateMetadata{
			Bedrooms: m.Bedrooms, Bathrooms: m.Bathrooms, ParkingSpaces: m.ParkingSpaces,
			FloorAreaM2: m.FloorAreaM2, LandSizeM2: m.LandSizeM2, PropertyType: m.PropertyType,
		}, nil
	case CategoryProduct:
		return ProductMetadata{Brand: m.Brand, Condition: m.Condition, StockQuantity: m.StockQuantity}, nil
	case CategoryService:
		return ServiceMetadata{ServiceArea: m.ServiceArea, PricingUnit: m.PricingUnit, Availability: m.Availability}, nil
	case CategoryPet:
		return PetMetadata{Species: m.Species, Breed: m.Breed, AgeMonths: m.AgeMonths, Vaccinated: m.Vaccinated}, nil
	case CategoryAutomotive:
		return AutomotiveMetadata{Make: m.Make, Model: m.Model, Year: m.Year, OdometerKm: m.OdometerKm, Engine: m.Engine}, nil
	}
	return nil, fmt.Errorf("%w: metadata kind %q", ErrInvalidListingData, m.Kind)
}
