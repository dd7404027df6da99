package mongodb

import (
	"fmt"

	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/discovery/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type listingDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Category    string             `bson:"category"`
	Title       string             `bson:"title"`
	Description string             `bson:"description,omitempty"`
	Price       float64            `bson:"price"`
	Status      string             `bson:"status"`
	CreatedAt   primitive.DateTime `bson:"created_at"`
	Location    *locationDocument  `bson:"location,omitempty"`
	Metrics     metricsDocument    `bson:"metrics"`
	Media       []mediaDocument    `bson:"media,omitempty"`
	Metadata    metadataDocument   `bson:"metadata"`
}

type locationDocument struct {
	Address string   `bson:"address,omitempty"`
	Lat     *float64 `bson:"lat,omitempty"`
	Lng     *float64 `bson:"lng,omitempty"`
}

type metricsDocument struct {
	Views int64 `bson:"views"`
	Likes int64 `bson:"likes"`
}

type mediaDocument struct {
	URL  string `bson:"url"`
	Type string `bson:"type"`
	Tag  string `bson:"tag,omitempty"`
}

// metadataDocument stores every variant flat, discriminated by Kind, so facet
// fields are addressable as metadata.<field>.
type metadataDocument struct {
	Kind string `bson:"kind"`

	Bedrooms      int     `bson:"bedrooms,omitempty"`
	Bathrooms     int     `bson:"bathrooms,omitempty"`
	ParkingSpaces int     `bson:"parking_spaces,omitempty"`
	FloorAreaM2   float64 `bson:"floor_area_m2,omitempty"`
	LandSizeM2    float64 `bson:"land_size_m2,omitempty"`
	PropertyType  string  `bson:"property_type,omitempty"`

	Brand         string `bson:"brand,omitempty"`
	Condition     string `bson:"condition,omitempty"`
	StockQuantity int    `bson:"stock_quantity,omitempty"`

	ServiceArea  string `bson:"service_area,omitempty"`
	PricingUnit  string `bson:"pricing_unit,omitempty"`
	Availability string `bson:"availability,omitempty"`

	Species    string `bson:"species,omitempty"`
	Breed      string `bson:"breed,omitempty"`
	AgeMonths  int    `bson:"age_months,omitempty"`
	Vaccinated bool   `bson:"vaccinated,omitempty"`

	Make       string `bson:"make,omitempty"`
	Model      string `bson:"model,omitempty"`
	Year       int    `bson:"year,omitempty"`
	OdometerKm int    `bson:"odometer_km,omitempty"`
	Engine     string `bson:"engine,omitempty"`
}

func toListingDocument(l *domain.Listing) (*listingDocument, error) {
	doc := &listingDocument{
		Category:    string(l.Category),
		Title:       l.Title,
		Description: l.Description,
		Price:       l.Price,
		Status:      string(l.Status),
		CreatedAt:   primitive.NewDateTimeFromTime(l.CreatedAt),
		Metrics:     metricsDocument{Views: l.Metrics.Views, Likes: l.Metrics.Likes},
	}
	if l.ID != "" {
		objID, err := primitive.ObjectIDFromHex(l.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid listing ID format: %v", domain.ErrInvalidListingData, err)
		}
		doc.ID = objID
	}
	if l.Location != nil {
		doc.Location = &locationDocument{Address: l.Location.Address}
		if c := l.Location.Coordinates; c != nil {
			lat, lng := c.Lat, c.Lng
			doc.Location.Lat, doc.Location.Lng = &lat, &lng
		}
	}
	for _, m := range l.Media {
		doc.Media = append(doc.Media, mediaDocument{URL: m.URL, Type: string(m.Type), Tag: m.Tag})
	}
	if l.Metadata != nil {
		doc.Metadata = toMetadataDocument(l.Metadata)
	}
	return doc, nil
}

func toMetadataDocument(md domain.CategoryMetadata) metadataDocument {
	out := metadataDocument{Kind: string(md.Category())}
	switch v := md.(type) {
	case domain.RealEstateMetadata:
		out.Bedrooms, out.Bathrooms, out.ParkingSpaces = v.Bedrooms, v.Bathrooms, v.ParkingSpaces
		out.FloorAreaM2, out.LandSizeM2, out.PropertyType = v.FloorAreaM2, v.LandSizeM2, v.PropertyType
	case domain.ProductMetadata:
		out.Brand, out.Condition, out.StockQuantity = v.Brand, v.Condition, v.StockQuantity
	case domain.ServiceMetadata:
		out.ServiceArea, out.PricingUnit, out.Availability = v.ServiceArea, v.PricingUnit, v.Availability
	case domain.PetMetadata:
		out.Species, out.Breed, out.AgeMonths, out.Vaccinated = v.Species, v.Breed, v.AgeMonths, v.Vaccinated
	case domain.AutomotiveMetadata:
		out.Make, out.Model, out.Year, out.OdometerKm, out.Engine = v.Make, v.Model, v.Year, v.OdometerKm, v.Engine
	}
	return out
}

// toListingEntity never coerces metadata: an unknown kind is left nil and the
// listing is rejected downstream.
func toListingEntity(doc *listingDocument) domain.Listing {
	l := domain.Listing{
		ID:          doc.ID.Hex(),
		Category:    domain.Category(doc.Category),
		Title:       doc.Title,
		Description: doc.Description,
		Price:       doc.Price,
		Status:      domain.ListingStatus(doc.Status),
		CreatedAt:   doc.CreatedAt.Time().UTC(),
		Metrics:     domain.Metrics{Views: doc.Metrics.Views, Likes: doc.Metrics.Likes},
	}
	if doc.Location != nil {
		l.Location = &domain.Location{Address: doc.Location.Address}
		if doc.Location.Lat != nil && doc.Location.Lng != nil {
			l.Location.Coordinates = &domain.LatLng{Lat: *doc.Location.Lat, Lng: *doc.Location.Lng}
		}
	}
	for _, m := range doc.Media {
		l.Media = append(l.Media, domain.Media{URL: m.URL, Type: domain.MediaType(m.Type), Tag: m.Tag})
	}
	l.Metadata = doc.Metadata.toEntity()
	return l
}

func (m metadataDocument) toEntity() domain.CategoryMetadata {
	switch domain.Category(m.Kind) {
	case domain.CategoryRealEstate:
		return domain.RealEstateMetadata{
			Bedrooms: m.Bedrooms, Bathrooms: m.Bathrooms, ParkingSpaces: m.ParkingSpaces,
			FloorAreaM2: m.FloorAreaM2, LandSizeM2: m.LandSizeM2, PropertyType: m.PropertyType,
		}
	case domain.CategoryProduct:
		return domain.ProductMetadata{Brand: m.Brand, Condition: m.Condition, StockQuantity: m.StockQuantity}
	case domain.CategoryService:
		return domain.ServiceMetadata{ServiceArea: m.ServiceArea, PricingUnit: m.PricingUnit, Availability: m.Availability}
	case domain.CategoryPet:
		return domain.PetMetadata{Species: m.Species, Breed: m.Breed, AgeMonths: m.AgeMonths, Vaccinated: m.Vaccinated}
	case domain.CategoryAutomotive:
		return domain.AutomotiveMetadata{Make: m.Make, Model: m.Model, Year: m.Year, OdometerKm: m.OdometerKm, Engine: m.Engine}
	}
	return nil
}
