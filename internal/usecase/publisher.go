package usecase

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wheelmarket/listing-service/internal/entity"
	"github.com/wheelmarket/listing-service/internal/port/repository"
	"github.com/wheelmarket/listing-service/internal/port/storage"
	"go.uber.org/zap"
)

type EventPublisherInterface interface {
	PublishListingPublished(ctx context.Context, listing *entity.Listing) error
	PublishListingDeactivated(ctx context.Context, listingID string) error
	PublishListingDeleted(ctx context.Context, listingID string) error
}

type MailSenderInterface interface {
	SendListingPublishedEmail(toEmail, listingTitle string) error
}

// ListingPublisher creates a listing together with its images as one
// user-visible operation.
//
// Image uploads are individually best-effort, but the end state is checked:
// if fewer than entity.MinListingImages rows end up linked the listing is
// deactivated and an *IncompletePublishError listing the failed images is
// returned. A listing is never left active with 0 or 1 images.
type ListingPublisher struct {
	listingRepo repository.ListingRepository
	imageRepo   repository.ImageRepository
	sellerRepo  repository.SellerRepository
	storage     storage.ObjectStorage
	quota       *QuotaGuard
	events      EventPublisherInterface
	mailer      MailSenderInterface
	logger      *zap.Logger
}

func NewListingPublisher(
	listingRepo repository.ListingRepository,
	imageRepo repository.ImageRepository,
	sellerRepo repository.SellerRepository,
	objStorage storage.ObjectStorage,
	quota *QuotaGuard,
	events EventPublisherInterface,
	mailer MailSenderInterface,
	logger *zap.Logger,
) *ListingPublisher {
	return &ListingPublisher{
		listingRepo: listingRepo,
		imageRepo:   imageRepo,
		sellerRepo:  sellerRepo,
		storage:     objStorage,
		quota:       quota,
		events:      events,
		mailer:      mailer,
		logger:      logger,
	}
}

const minDraftYear = 1990

func validateDraft(draft entity.ListingDraft, imageCount int) *ValidationError {
	verr := &ValidationError{}

	if !draft.Category.Valid() {
		verr.add("category", "must be one of car, bike, cycle, truck, tractor, other")
	}
	if strings.TrimSpace(draft.Brand) == "" {
		verr.add("brand", "is required")
	}
	if strings.TrimSpace(draft.Model) == "" {
		verr.add("model", "is required")
	}
	if maxYear := time.Now().Year() + 1; draft.Year < minDraftYear || draft.Year > maxYear {
		verr.add("year", fmt.Sprintf("must be between %d and %d", minDraftYear, maxYear))
	}
	if draft.KmDriven < 0 {
		verr.add("km_driven", "must not be negative")
	}
	if !draft.FuelType.Valid() {
		verr.add("fuel_type", "must be one of petrol, diesel, electric, cng, hybrid")
	}
	if draft.Price <= 0 {
		verr.add("price", "must be greater than zero")
	}
	if strings.TrimSpace(draft.Location) == "" {
		verr.add("location", "is required")
	}
	if imageCount < entity.MinListingImages || imageCount > entity.MaxListingImages {
		verr.add("images", fmt.Sprintf("between %d and %d images are required",
			entity.MinListingImages, entity.MaxListingImages))
	}

	if len(verr.Fields) == 0 {
		return nil
	}
	return verr
}

func imageObjectKey(listingID, fileName string) string {
	return fmt.Sprintf("listings/%s/%s%s", listingID, uuid.New().String(), filepath.Ext(fileName))
}

// Publish validates the draft, reserves a quota slot, inserts the listing row
// and uploads its images. On *ValidationError or ErrQuotaExceeded no row has
// been written.
func (p *ListingPublisher) Publish(ctx context.Context, sellerID string, draft entity.ListingDraft, images []entity.ImageFile) (*entity.Listing, error) {
	if verr := validateDraft(draft, len(images)); verr != nil {
		p.logger.Info("listing draft rejected",
			zap.String("seller_id", sellerID),
			zap.Any("violations", verr.Fields),
		)
		return nil, verr
	}

	now := time.Now()
	listing := &entity.Listing{
		SellerID:    sellerID,
		Category:    draft.Category,
		Brand:       strings.TrimSpace(draft.Brand),
		Model:       strings.TrimSpace(draft.Model),
		Year:        draft.Year,
		KmDriven:    draft.KmDriven,
		FuelType:    draft.FuelType,
		Price:       draft.Price,
		Location:    strings.TrimSpace(draft.Location),
		Description: strings.TrimSpace(draft.Description),
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := p.quota.Reserve(ctx, sellerID, func(ctx context.Context) error {
		id, createErr := p.listingRepo.Create(ctx, listing)
		if createErr != nil {
			return fmt.Errorf("ListingPublisher.Publish: failed to create listing: %w", createErr)
		}
		listing.ID = id
		return nil
	})
	if err != nil {
		return nil, err
	}

	failures := p.attachImages(ctx, listing, images)

	if len(listing.Images) < entity.MinListingImages {
		p.logger.Warn("publish ended with too few linked images, deactivating listing",
			zap.String("listing_id", listing.ID),
			zap.Int("linked", len(listing.Images)),
			zap.Int("failed", len(failures)),
		)
		if deactErr := p.listingRepo.SetActive(ctx, listing.ID, false); deactErr != nil {
			p.logger.Error("failed to deactivate incomplete listing",
				zap.String("listing_id", listing.ID),
				zap.Error(deactErr),
			)
		}
		return nil, &IncompletePublishError{
			ListingID: listing.ID,
			Linked:    len(listing.Images),
			Failures:  failures,
		}
	}

	if len(failures) > 0 {
		p.logger.Warn("listing published with partial image failures",
			zap.String("listing_id", listing.ID),
			zap.Int("linked", len(listing.Images)),
			zap.Any("failures", failures),
		)
	}

	p.notifyPublished(ctx, listing)

	return listing, nil
}

func (p *ListingPublisher) attachImages(ctx context.Context, listing *entity.Listing, images []entity.ImageFile) []ImageFailure {
	var failures []ImageFailure

	for _, file := range images {
		key := imageObjectKey(listing.ID, file.Name)

		url, err := p.storage.Upload(ctx, key, file.Data)
		if err != nil {
			p.logger.Error("image upload failed",
				zap.String("listing_id", listing.ID),
				zap.String("file_name", file.Name),
				zap.Error(err),
			)
			failures = append(failures, ImageFailure{FileName: file.Name, Reason: err.Error()})
			continue
		}

		image := entity.Image{
			ListingID:  listing.ID,
			URL:        url,
			StorageKey: key,
			CreatedAt:  time.Now(),
		}
		imageID, err := p.imageRepo.Add(ctx, &image)
		if err != nil {
			p.logger.Error("failed to link uploaded image, removing object",
				zap.String("listing_id", listing.ID),
				zap.String("object_key", key),
				zap.Error(err),
			)
			if rmErr := p.storage.Remove(ctx, key); rmErr != nil {
				p.logger.Error("failed to remove orphaned object",
					zap.String("object_key", key),
					zap.Error(rmErr),
				)
			}
			failures = append(failures, ImageFailure{FileName: file.Name, Reason: err.Error()})
			continue
		}
		image.ID = imageID
		listing.Images = append(listing.Images, image)
	}

	return failures
}

func (p *ListingPublisher) notifyPublished(ctx context.Context, listing *entity.Listing) {
	if p.events != nil {
		if err := p.events.PublishListingPublished(ctx, listing); err != nil {
			p.logger.Warn("failed to publish listing.published event",
				zap.String("listing_id", listing.ID),
				zap.Error(err),
			)
		}
	}

	if p.mailer == nil {
		return
	}
	seller, err := p.sellerRepo.GetByID(ctx, listing.SellerID)
	if err != nil {
		p.logger.Warn("could not load seller for publish notification",
			zap.String("seller_id", listing.SellerID),
			zap.Error(err),
		)
		return
	}
	if seller.Email == "" {
		return
	}
	title := fmt.Sprintf("%d %s %s", listing.Year, listing.Brand, listing.Model)
	if err := p.mailer.SendListingPublishedEmail(seller.Email, title); err != nil {
		p.logger.Warn("failed to send publish notification email",
			zap.String("seller_id", listing.SellerID),
			zap.Error(err),
		)
	}
}
