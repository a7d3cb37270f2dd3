package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/wheelmarket/listing-service/internal/entity"
	"github.com/wheelmarket/listing-service/internal/port/repository"
	"go.uber.org/zap"
)

// ListingSearch translates buyer filter sets into catalog queries. Buyers only
// ever see active listings; the same filters against the same catalog state
// always produce the same result.
type ListingSearch struct {
	listingRepo repository.ListingRepository
	imageRepo   repository.ImageRepository
	logger      *zap.Logger
}

func NewListingSearch(listingRepo repository.ListingRepository, imageRepo repository.ImageRepository, logger *zap.Logger) *ListingSearch {
	return &ListingSearch{
		listingRepo: listingRepo,
		imageRepo:   imageRepo,
		logger:      logger,
	}
}

const (
	// DefaultSearchLimit applies when the caller asks for no particular page size.
	DefaultSearchLimit = 50
	// MaxSearchLimit caps a single search response regardless of what was asked.
	MaxSearchLimit = 200
)

func noConstraint(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "any", "all":
		return true
	}
	return false
}

// BuildQuery normalizes a filter set. A missing or non-positive limit becomes
// DefaultSearchLimit and anything above MaxSearchLimit is clamped down. The
// second return is false when the filters can never match anything (inverted
// price bounds), in which case the store should not be consulted at all.
func BuildQuery(filters entity.FilterSet) (repository.ListingQuery, bool) {
	limit := int64(filters.Limit)
	if limit <= 0 {
		limit = DefaultSearchLimit
	} else if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}
	query := repository.ListingQuery{
		Keyword:    strings.TrimSpace(filters.Keyword),
		OnlyActive: true,
		Limit:      limit,
	}
	if !noConstraint(filters.Category) {
		query.Category = entity.Category(strings.ToLower(strings.TrimSpace(filters.Category)))
	}
	if !noConstraint(filters.Fuel) {
		query.Fuel = entity.FuelType(strings.ToLower(strings.TrimSpace(filters.Fuel)))
	}
	if filters.MinPrice > 0 {
		min := filters.MinPrice
		query.MinPrice = &min
	}
	if filters.MaxPrice > 0 {
		max := filters.MaxPrice
		query.MaxPrice = &max
	}
	if query.MinPrice != nil && query.MaxPrice != nil && *query.MinPrice > *query.MaxPrice {
		return repository.ListingQuery{}, false
	}
	return query, true
}

// Search returns matching active listings newest first, with their images
// attached.
func (s *ListingSearch) Search(ctx context.Context, filters entity.FilterSet) ([]*entity.Listing, error) {
	query, ok := BuildQuery(filters)
	if !ok {
		// Inverted price bounds match nothing by definition.
		return []*entity.Listing{}, nil
	}

	listings, err := s.listingRepo.Search(ctx, query)
	if err != nil {
		s.logger.Error("listing search failed",
			zap.String("keyword", query.Keyword),
			zap.Error(err),
		)
		return nil, fmt.Errorf("ListingSearch.Search: %w", err)
	}

	for _, listing := range listings {
		images, imgErr := s.imageRepo.ListByListing(ctx, listing.ID)
		if imgErr != nil {
			s.logger.Warn("failed to load images for search result",
				zap.String("listing_id", listing.ID),
				zap.Error(imgErr),
			)
			continue
		}
		listing.Images = images
	}

	return listings, nil
}
