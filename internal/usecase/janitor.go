package usecase

import (
	"context"
	"time"

	"github.com/wheelmarket/listing-service/internal/entity"
	"github.com/wheelmarket/listing-service/internal/port/cache"
	"github.com/wheelmarket/listing-service/internal/port/repository"
	"go.uber.org/zap"
)

// Janitor sweeps up listings left behind by abandoned publishes: rows that
// are still active past the grace window but never got their minimum image
// set linked. Such listings are deactivated, not deleted, so the seller can
// retry the upload.
type Janitor struct {
	listingRepo repository.ListingRepository
	imageRepo   repository.ImageRepository
	cacheRepo   cache.CacheRepository
	events      EventPublisherInterface
	logger      *zap.Logger

	grace time.Duration
}

func NewJanitor(
	listingRepo repository.ListingRepository,
	imageRepo repository.ImageRepository,
	cacheRepo cache.CacheRepository,
	events EventPublisherInterface,
	grace time.Duration,
	logger *zap.Logger,
) *Janitor {
	return &Janitor{
		listingRepo: listingRepo,
		imageRepo:   imageRepo,
		cacheRepo:   cacheRepo,
		events:      events,
		grace:       grace,
		logger:      logger,
	}
}

// Sweep runs one pass and returns how many listings it deactivated.
func (j *Janitor) Sweep(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-j.grace)
	candidates, err := j.listingRepo.FindActiveCreatedBefore(ctx, cutoff)
	if err != nil {
		j.logger.Error("janitor sweep query failed", zap.Error(err))
		return 0, err
	}

	deactivated := 0
	for _, listing := range candidates {
		count, err := j.imageRepo.CountByListing(ctx, listing.ID)
		if err != nil {
			j.logger.Warn("janitor could not count images",
				zap.String("listing_id", listing.ID), zap.Error(err))
			continue
		}
		if count >= entity.MinListingImages {
			continue
		}

		if err := j.listingRepo.SetActive(ctx, listing.ID, false); err != nil {
			j.logger.Error("janitor failed to deactivate orphaned listing",
				zap.String("listing_id", listing.ID), zap.Error(err))
			continue
		}
		deactivated++
		j.logger.Info("deactivated orphaned listing",
			zap.String("listing_id", listing.ID),
			zap.Int64("linked_images", count),
		)
		if j.cacheRepo != nil {
			key := listingCacheKey(listing.ID)
			if delErr := j.cacheRepo.Delete(ctx, key); delErr != nil {
				j.logger.Warn("janitor failed to invalidate listing cache",
					zap.String("key", key), zap.Error(delErr))
			}
		}
		if j.events != nil {
			if pubErr := j.events.PublishListingDeactivated(ctx, listing.ID); pubErr != nil {
				j.logger.Warn("janitor failed to publish deactivation event",
					zap.String("listing_id", listing.ID), zap.Error(pubErr))
			}
		}
	}
	return deactivated, nil
}

// Run sweeps on a ticker until the context is cancelled.
func (j *Janitor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("janitor stopped")
			return
		case <-ticker.C:
			if _, err := j.Sweep(ctx); err != nil && ctx.Err() == nil {
				j.logger.Error("janitor sweep failed", zap.Error(err))
			}
		}
	}
}
