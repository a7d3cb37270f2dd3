package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/wheelmarket/listing-service/internal/entity"
	"github.com/wheelmarket/listing-service/internal/port/cache"
	"github.com/wheelmarket/listing-service/internal/port/repository"
	"github.com/wheelmarket/listing-service/internal/port/storage"
	"go.uber.org/zap"
)

func listingCacheKey(listingID string) string {
	return fmt.Sprintf("listing:%s", listingID)
}

const listingCacheTTL = 5 * time.Minute

// ListingLifecycle performs owner-only state transitions on existing
// listings. Activation goes back through the QuotaGuard; deactivation and
// deletion never do.
type ListingLifecycle struct {
	listingRepo repository.ListingRepository
	imageRepo   repository.ImageRepository
	storage     storage.ObjectStorage
	quota       *QuotaGuard
	cacheRepo   cache.CacheRepository
	events      EventPublisherInterface
	logger      *zap.Logger
}

func NewListingLifecycle(
	listingRepo repository.ListingRepository,
	imageRepo repository.ImageRepository,
	objStorage storage.ObjectStorage,
	quota *QuotaGuard,
	cacheRepo cache.CacheRepository,
	events EventPublisherInterface,
	logger *zap.Logger,
) *ListingLifecycle {
	return &ListingLifecycle{
		listingRepo: listingRepo,
		imageRepo:   imageRepo,
		storage:     objStorage,
		quota:       quota,
		cacheRepo:   cacheRepo,
		events:      events,
		logger:      logger,
	}
}

// ownedListing loads a listing and verifies the caller owns it.
func (lc *ListingLifecycle) ownedListing(ctx context.Context, listingID, sellerID string) (*entity.Listing, error) {
	listing, err := lc.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrListingNotFound
		}
		return nil, fmt.Errorf("failed to load listing %s: %w", listingID, err)
	}
	if listing.SellerID != sellerID {
		lc.logger.Warn("forbidden listing transition attempt",
			zap.String("listing_id", listingID),
			zap.String("owner_id", listing.SellerID),
			zap.String("caller_id", sellerID),
		)
		return nil, ErrForbidden
	}
	return listing, nil
}

// Activate flips an inactive listing back to active, subject to the quota.
func (lc *ListingLifecycle) Activate(ctx context.Context, sellerID, listingID string) error {
	listing, err := lc.ownedListing(ctx, listingID, sellerID)
	if err != nil {
		return err
	}
	if listing.Active {
		return nil
	}

	err = lc.quota.Reserve(ctx, sellerID, func(ctx context.Context) error {
		return lc.listingRepo.SetActive(ctx, listingID, true)
	})
	if err != nil {
		return err
	}

	lc.invalidate(ctx, listingID)
	listing.Active = true
	if lc.events != nil {
		if pubErr := lc.events.PublishListingPublished(ctx, listing); pubErr != nil {
			lc.logger.Warn("failed to publish activation event",
				zap.String("listing_id", listingID), zap.Error(pubErr))
		}
	}
	return nil
}

// Deactivate is always permitted for the owner and frees a quota slot.
func (lc *ListingLifecycle) Deactivate(ctx context.Context, sellerID, listingID string) error {
	listing, err := lc.ownedListing(ctx, listingID, sellerID)
	if err != nil {
		return err
	}
	if !listing.Active {
		return nil
	}

	if err := lc.listingRepo.SetActive(ctx, listingID, false); err != nil {
		return fmt.Errorf("ListingLifecycle.Deactivate: %w", err)
	}

	lc.invalidate(ctx, listingID)
	if lc.events != nil {
		if pubErr := lc.events.PublishListingDeactivated(ctx, listingID); pubErr != nil {
			lc.logger.Warn("failed to publish deactivation event",
				zap.String("listing_id", listingID), zap.Error(pubErr))
		}
	}
	return nil
}

// Delete removes the listing and all its images. Object storage entries are
// removed best-effort after the rows are gone; a failed storage delete is
// logged, never fatal.
func (lc *ListingLifecycle) Delete(ctx context.Context, sellerID, listingID string) error {
	if _, err := lc.ownedListing(ctx, listingID, sellerID); err != nil {
		return err
	}

	images, err := lc.imageRepo.ListByListing(ctx, listingID)
	if err != nil {
		return fmt.Errorf("ListingLifecycle.Delete: failed to load images: %w", err)
	}

	if err := lc.listingRepo.Delete(ctx, listingID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrListingNotFound
		}
		return fmt.Errorf("ListingLifecycle.Delete: %w", err)
	}

	if _, err := lc.imageRepo.DeleteByListing(ctx, listingID); err != nil {
		lc.logger.Error("failed to cascade-delete image rows",
			zap.String("listing_id", listingID), zap.Error(err))
	}

	for _, image := range images {
		if image.StorageKey == "" {
			continue
		}
		if rmErr := lc.storage.Remove(ctx, image.StorageKey); rmErr != nil {
			lc.logger.Warn("failed to remove stored image object",
				zap.String("listing_id", listingID),
				zap.String("object_key", image.StorageKey),
				zap.Error(rmErr),
			)
		}
	}

	lc.invalidate(ctx, listingID)
	if lc.events != nil {
		if pubErr := lc.events.PublishListingDeleted(ctx, listingID); pubErr != nil {
			lc.logger.Warn("failed to publish deletion event",
				zap.String("listing_id", listingID), zap.Error(pubErr))
		}
	}
	return nil
}

// GetListing is the buyer-facing detail read, cache-aside.
func (lc *ListingLifecycle) GetListing(ctx context.Context, listingID string) (*entity.Listing, error) {
	if lc.cacheRepo != nil {
		key := listingCacheKey(listingID)
		cached, err := lc.cacheRepo.Get(ctx, key)
		if err == nil {
			var listing entity.Listing
			if unmarshalErr := json.Unmarshal(cached, &listing); unmarshalErr == nil {
				return &listing, nil
			}
			lc.logger.Warn("corrupted listing cache entry, dropping", zap.String("key", key))
			if delErr := lc.cacheRepo.Delete(ctx, key); delErr != nil {
				lc.logger.Warn("failed to drop corrupted cache entry", zap.String("key", key), zap.Error(delErr))
			}
		} else if !errors.Is(err, cache.ErrNotFound) {
			lc.logger.Warn("listing cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	listing, err := lc.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrListingNotFound
		}
		return nil, fmt.Errorf("ListingLifecycle.GetListing: %w", err)
	}

	images, err := lc.imageRepo.ListByListing(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("ListingLifecycle.GetListing: failed to load images: %w", err)
	}
	listing.Images = images

	if lc.cacheRepo != nil {
		if data, marshalErr := json.Marshal(listing); marshalErr == nil {
			key := listingCacheKey(listingID)
			if setErr := lc.cacheRepo.Set(ctx, key, data, listingCacheTTL); setErr != nil {
				lc.logger.Warn("failed to cache listing", zap.String("key", key), zap.Error(setErr))
			}
		}
	}

	return listing, nil
}

// ListBySeller returns all of a seller's listings, active and not, newest
// first. Used by the seller dashboard.
func (lc *ListingLifecycle) ListBySeller(ctx context.Context, sellerID string) ([]*entity.Listing, error) {
	listings, err := lc.listingRepo.ListBySeller(ctx, sellerID)
	if err != nil {
		return nil, fmt.Errorf("ListingLifecycle.ListBySeller: %w", err)
	}
	for _, listing := range listings {
		images, imgErr := lc.imageRepo.ListByListing(ctx, listing.ID)
		if imgErr != nil {
			lc.logger.Warn("failed to load images for seller listing",
				zap.String("listing_id", listing.ID), zap.Error(imgErr))
			continue
		}
		listing.Images = images
	}
	return listings, nil
}

// QuotaStatus reports how many active listings a seller has and how many
// slots remain. Advisory only.
func (lc *ListingLifecycle) QuotaStatus(ctx context.Context, sellerID string) (active, remaining int64, err error) {
	active, err = lc.listingRepo.CountActive(ctx, sellerID)
	if err != nil {
		return 0, 0, fmt.Errorf("ListingLifecycle.QuotaStatus: %w", err)
	}
	remaining = entity.MaxActiveListings - active
	if remaining < 0 {
		remaining = 0
	}
	return active, remaining, nil
}

func (lc *ListingLifecycle) invalidate(ctx context.Context, listingID string) {
	if lc.cacheRepo == nil {
		return
	}
	key := listingCacheKey(listingID)
	if err := lc.cacheRepo.Delete(ctx, key); err != nil {
		lc.logger.Warn("failed to invalidate listing cache", zap.String("key", key), zap.Error(err))
	}
}
