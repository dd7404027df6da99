package domain

// CategoryMetadata is the category-specific payload of a Listing. The set of
// implementations is closed: only the variants in this file satisfy it.
type CategoryMetadata interface {
	Category() Category
	isCategoryMetadata()
}

// --- Variants ---

type RealEstateMetadata struct {
	Bedrooms      int
	Bathrooms     int
	ParkingSpaces int
	FloorAreaM2   float64
	LandSizeM2    float64
	PropertyType  string
}

type ProductMetadata struct {
	Brand         string
	Condition     string
	StockQuantity int
}

type ServiceMetadata struct {
	ServiceArea  string
	PricingUnit  string // hour, job, month
	Availability string
}

type PetMetadata struct {
	Species    string
	Breed      string
	AgeMonths  int
	Vaccinated bool
}

type AutomotiveMetadata struct {
	Make       string
	Model      string
	Year       int
	OdometerKm int
	Engine     string
}

func (RealEstateMetadata) Category() Category { return CategoryRealEstate }
func (ProductMetadata) Category() Category    { return CategoryProduct }
func (ServiceMetadata) Category() Category    { return CategoryService }
func (PetMetadata) Category() Category        { return CategoryPet }
func (AutomotiveMetadata) Category() Category { return CategoryAutomotive }

func (RealEstateMetadata) isCategoryMetadata() {}
func (ProductMetadata) isCategoryMetadata()    {}
func (ServiceMetadata) isCategoryMetadata()    {}
func (PetMetadata) isCategoryMetadata()        {}
func (AutomotiveMetadata) isCategoryMetadata() {}
