package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/wheelmarket/listing-service/internal/entity"
	"github.com/wheelmarket/listing-service/internal/port/cache"
	"github.com/wheelmarket/listing-service/internal/port/repository"
	"go.uber.org/zap"
)

func newLifecycleUnderTest(
	listingRepo *MockListingRepository,
	imageRepo *MockImageRepository,
	objStorage *MockObjectStorage,
	cacheRepo cache.CacheRepository,
	events EventPublisherInterface,
) *ListingLifecycle {
	logger := zap.NewNop()
	quota := NewQuotaGuard(listingRepo, logger)
	return NewListingLifecycle(listingRepo, imageRepo, objStorage, quota, cacheRepo, events, logger)
}

func ownedInactiveListing() *entity.Listing {
	return &entity.Listing{ID: "l1", SellerID: "seller-1", Active: false}
}

func TestActivate_ForbiddenForNonOwner(t *testing.T) {
	listingRepo := new(MockListingRepository)
	listingRepo.On("GetByID", mock.Anything, "l1").Return(ownedInactiveListing(), nil).Once()

	lc := newLifecycleUnderTest(listingRepo, new(MockImageRepository), new(MockObjectStorage), nil, nil)

	err := lc.Activate(context.Background(), "intruder", "l1")

	assert.ErrorIs(t, err, ErrForbidden)
	listingRepo.AssertNotCalled(t, "SetActive", mock.Anything, mock.Anything, mock.Anything)
}

func TestActivate_QuotaExceededLeavesListingInactive(t *testing.T) {
	listingRepo := new(MockListingRepository)
	listingRepo.On("GetByID", mock.Anything, "l1").Return(ownedInactiveListing(), nil).Once()
	listingRepo.On("CountActive", mock.Anything, "seller-1").Return(int64(entity.MaxActiveListings), nil).Once()

	lc := newLifecycleUnderTest(listingRepo, new(MockImageRepository), new(MockObjectStorage), nil, nil)

	err := lc.Activate(context.Background(), "seller-1", "l1")

	assert.ErrorIs(t, err, ErrQuotaExceeded)
	listingRepo.AssertNotCalled(t, "SetActive", mock.Anything, mock.Anything, mock.Anything)
}

func TestActivate_FlipsFlagAndInvalidatesCache(t *testing.T) {
	listingRepo := new(MockListingRepository)
	cacheRepo := new(MockCacheRepository)
	listingRepo.On("GetByID", mock.Anything, "l1").Return(ownedInactiveListing(), nil).Once()
	listingRepo.On("CountActive", mock.Anything, "seller-1").Return(int64(2), nil).Once()
	listingRepo.On("SetActive", mock.Anything, "l1", true).Return(nil).Once()
	cacheRepo.On("Delete", mock.Anything, "listing:l1").Return(nil).Once()

	lc := newLifecycleUnderTest(listingRepo, new(MockImageRepository), new(MockObjectStorage), cacheRepo, nil)

	err := lc.Activate(context.Background(), "seller-1", "l1")

	require.NoError(t, err)
	listingRepo.AssertExpectations(t)
	cacheRepo.AssertExpectations(t)
}

func TestActivate_AlreadyActiveIsNoop(t *testing.T) {
	listingRepo := new(MockListingRepository)
	listingRepo.On("GetByID", mock.Anything, "l1").
		Return(&entity.Listing{ID: "l1", SellerID: "seller-1", Active: true}, nil).Once()

	lc := newLifecycleUnderTest(listingRepo, new(MockImageRepository), new(MockObjectStorage), nil, nil)

	err := lc.Activate(context.Background(), "seller-1", "l1")

	require.NoError(t, err)
	listingRepo.AssertNotCalled(t, "CountActive", mock.Anything, mock.Anything)
	listingRepo.AssertNotCalled(t, "SetActive", mock.Anything, mock.Anything, mock.Anything)
}

func TestDeactivate_NeverConsultsQuota(t *testing.T) {
	listingRepo := new(MockListingRepository)
	events := new(MockEventPublisher)
	listingRepo.On("GetByID", mock.Anything, "l1").
		Return(&entity.Listing{ID: "l1", SellerID: "seller-1", Active: true}, nil).Once()
	listingRepo.On("SetActive", mock.Anything, "l1", false).Return(nil).Once()
	events.On("PublishListingDeactivated", mock.Anything, "l1").Return(nil).Once()

	lc := newLifecycleUnderTest(listingRepo, new(MockImageRepository), new(MockObjectStorage), nil, events)

	err := lc.Deactivate(context.Background(), "seller-1", "l1")

	require.NoError(t, err)
	listingRepo.AssertNotCalled(t, "CountActive", mock.Anything, mock.Anything)
	listingRepo.AssertExpectations(t)
	events.AssertExpectations(t)
}

func TestDelete_CascadesImagesAndStorageObjects(t *testing.T) {
	listingRepo := new(MockListingRepository)
	imageRepo := new(MockImageRepository)
	objStorage := new(MockObjectStorage)
	events := new(MockEventPublisher)

	images := []entity.Image{
		{ID: "i1", ListingID: "l1", StorageKey: "listings/l1/a.jpg"},
		{ID: "i2", ListingID: "l1", StorageKey: "listings/l1/b.jpg"},
	}
	listingRepo.On("GetByID", mock.Anything, "l1").
		Return(&entity.Listing{ID: "l1", SellerID: "seller-1", Active: true}, nil).Once()
	imageRepo.On("ListByListing", mock.Anything, "l1").Return(images, nil).Once()
	listingRepo.On("Delete", mock.Anything, "l1").Return(nil).Once()
	imageRepo.On("DeleteByListing", mock.Anything, "l1").Return(int64(2), nil).Once()
	objStorage.On("Remove", mock.Anything, "listings/l1/a.jpg").Return(nil).Once()
	objStorage.On("Remove", mock.Anything, "listings/l1/b.jpg").Return(errors.New("object gone")).Once()
	events.On("PublishListingDeleted", mock.Anything, "l1").Return(nil).Once()

	lc := newLifecycleUnderTest(listingRepo, imageRepo, objStorage, nil, events)

	err := lc.Delete(context.Background(), "seller-1", "l1")

	require.NoError(t, err, "a failed storage delete is logged, not fatal")
	listingRepo.AssertExpectations(t)
	imageRepo.AssertExpectations(t)
	objStorage.AssertExpectations(t)
	events.AssertExpectations(t)
}

func TestDelete_ForbiddenForNonOwner(t *testing.T) {
	listingRepo := new(MockListingRepository)
	listingRepo.On("GetByID", mock.Anything, "l1").
		Return(&entity.Listing{ID: "l1", SellerID: "seller-1"}, nil).Once()

	lc := newLifecycleUnderTest(listingRepo, new(MockImageRepository), new(MockObjectStorage), nil, nil)

	err := lc.Delete(context.Background(), "intruder", "l1")

	assert.ErrorIs(t, err, ErrForbidden)
	listingRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestGetListing_NotFound(t *testing.T) {
	listingRepo := new(MockListingRepository)
	listingRepo.On("GetByID", mock.Anything, "missing").Return(nil, repository.ErrNotFound).Once()

	lc := newLifecycleUnderTest(listingRepo, new(MockImageRepository), new(MockObjectStorage), nil, nil)

	_, err := lc.GetListing(context.Background(), "missing")

	assert.ErrorIs(t, err, ErrListingNotFound)
}

func TestGetListing_CacheHitSkipsStore(t *testing.T) {
	listingRepo := new(MockListingRepository)
	cacheRepo := new(MockCacheRepository)

	cached := &entity.Listing{ID: "l1", Brand: "Maruti", Active: true}
	data, err := json.Marshal(cached)
	require.NoError(t, err)
	cacheRepo.On("Get", mock.Anything, "listing:l1").Return(data, nil).Once()

	lc := newLifecycleUnderTest(listingRepo, new(MockImageRepository), new(MockObjectStorage), cacheRepo, nil)

	listing, err := lc.GetListing(context.Background(), "l1")

	require.NoError(t, err)
	assert.Equal(t, "Maruti", listing.Brand)
	listingRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestGetListing_CacheMissPopulatesCache(t *testing.T) {
	listingRepo := new(MockListingRepository)
	imageRepo := new(MockImageRepository)
	cacheRepo := new(MockCacheRepository)

	cacheRepo.On("Get", mock.Anything, "listing:l1").Return(nil, cache.ErrNotFound).Once()
	listingRepo.On("GetByID", mock.Anything, "l1").
		Return(&entity.Listing{ID: "l1", SellerID: "seller-1", Active: true}, nil).Once()
	imageRepo.On("ListByListing", mock.Anything, "l1").
		Return([]entity.Image{{ID: "i1"}, {ID: "i2"}, {ID: "i3"}}, nil).Once()
	cacheRepo.On("Set", mock.Anything, "listing:l1", mock.Anything, listingCacheTTL).Return(nil).Once()

	lc := newLifecycleUnderTest(listingRepo, imageRepo, new(MockObjectStorage), cacheRepo, nil)

	listing, err := lc.GetListing(context.Background(), "l1")

	require.NoError(t, err)
	assert.Len(t, listing.Images, 3)
	cacheRepo.AssertExpectations(t)
}

func TestQuotaStatus(t *testing.T) {
	listingRepo := new(MockListingRepository)
	listingRepo.On("CountActive", mock.Anything, "seller-1").Return(int64(3), nil).Once()

	lc := newLifecycleUnderTest(listingRepo, new(MockImageRepository), new(MockObjectStorage), nil, nil)

	active, remaining, err := lc.QuotaStatus(context.Background(), "seller-1")

	require.NoError(t, err)
	assert.Equal(t, int64(3), active)
	assert.Equal(t, int64(2), remaining)
}
