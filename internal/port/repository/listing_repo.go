package repository

import (
	"context"
	"time"

	"github.com/wheelmarket/listing-service/internal/entity"
)

// ListingQuery is the normalized search form produced by the query builder.
// Nil price bounds impose no constraint. Empty Keyword/Category/Fuel impose
// no constraint either.
type ListingQuery struct {
	Keyword    string
	Category   entity.Category
	Fuel       entity.FuelType
	MinPrice   *float64
	MaxPrice   *float64
	OnlyActive bool
	Limit      int64
}

type ListingRepository interface {
	Create(ctx context.Context, listing *entity.Listing) (string, error)
	GetByID(ctx context.Context, id string) (*entity.Listing, error)
	SetActive(ctx context.Context, id string, active bool) error
	Delete(ctx context.Context, id string) error
	// Search returns listings matching the query, newest first.
	Search(ctx context.Context, query ListingQuery) ([]*entity.Listing, error)
	ListBySeller(ctx context.Context, sellerID string) ([]*entity.Listing, error)
	CountActive(ctx context.Context, sellerID string) (int64, error)
	// FindActiveCreatedBefore is used by the janitor to locate candidates for
	// the orphaned-publish sweep.
	FindActiveCreatedBefore(ctx context.Context, cutoff time.Time) ([]*entity.Listing, error)
}

type ImageRepository interface {
	Add(ctx context.Context, image *entity.Image) (string, error)
	ListByListing(ctx context.Context, listingID string) ([]entity.Image, error)
	CountByListing(ctx context.Context, listingID string) (int64, error)
	DeleteByListing(ctx context.Context, listingID string) (int64, error)
}

type SellerRepository interface {
	Create(ctx context.Context, seller *entity.Seller) (string, error)
	GetByID(ctx context.Context, id string) (*entity.Seller, error)
}
