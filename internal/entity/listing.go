package entity

import "time"

type Category string

const (
	CategoryCar     Category = "car"
	CategoryBike    Category = "bike"
	CategoryCycle   Category = "cycle"
	CategoryTruck   Category = "truck"
	CategoryTractor Category = "tractor"
	CategoryOther   Category = "other"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryCar, CategoryBike, CategoryCycle, CategoryTruck, CategoryTractor, CategoryOther:
		return true
	}
	return false
}

type FuelType string

const (
	FuelPetrol   FuelType = "petrol"
	FuelDiesel   FuelType = "diesel"
	FuelElectric FuelType = "electric"
	FuelCNG      FuelType = "cng"
	FuelHybrid   FuelType = "hybrid"
)

func (f FuelType) Valid() bool {
	switch f {
	case FuelPetrol, FuelDiesel, FuelElectric, FuelCNG, FuelHybrid:
		return true
	}
	return false
}

// MaxActiveListings is the per-seller cap on simultaneously active listings.
const MaxActiveListings = 5

// Image counts accepted by a publish request.
const (
	MinListingImages = 2
	MaxListingImages = 5
)

type Listing struct {
	ID          string    `json:"id"`
	SellerID    string    `json:"seller_id"`
	Category    Category  `json:"category"`
	Brand       string    `json:"brand"`
	Model       string    `json:"model"`
	Year        int       `json:"year"`
	KmDriven    int       `json:"km_driven"`
	FuelType    FuelType  `json:"fuel_type"`
	Price       float64   `json:"price"`
	Location    string    `json:"location"`
	Description string    `json:"description,omitempty"`
	Active      bool      `json:"active"`
	Images      []Image   `json:"images"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Image struct {
	ID         string    `json:"id"`
	ListingID  string    `json:"listing_id"`
	URL        string    `json:"url"`
	StorageKey string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

// ListingDraft is the unvalidated input to a publish operation.
type ListingDraft struct {
	Category    Category
	Brand       string
	Model       string
	Year        int
	KmDriven    int
	FuelType    FuelType
	Price       float64
	Location    string
	Description string
}

// ImageFile is an in-memory image to be uploaded during publish.
type ImageFile struct {
	Name string
	Data []byte
}

// FilterSet holds buyer-side search filters. Zero values mean "no constraint";
// Category and Fuel also accept the literal "any".
type FilterSet struct {
	Keyword  string
	Category string
	Fuel     string
	MinPrice float64
	MaxPrice float64
	Limit    int
}
