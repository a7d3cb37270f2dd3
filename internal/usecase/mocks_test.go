package usecase

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/wheelmarket/listing-service/internal/entity"
	"github.com/wheelmarket/listing-service/internal/port/repository"
)

type MockListingRepository struct{ mock.Mock }

func (m *MockListingRepository) Create(ctx context.Context, listing *entity.Listing) (string, error) {
	args := m.Called(ctx, listing)
	return args.String(0), args.Error(1)
}
func (m *MockListingRepository) GetByID(ctx context.Context, id string) (*entity.Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Listing), args.Error(1)
}
func (m *MockListingRepository) SetActive(ctx context.Context, id string, active bool) error {
	args := m.Called(ctx, id, active)
	return args.Error(0)
}
func (m *MockListingRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
func (m *MockListingRepository) Search(ctx context.Context, query repository.ListingQuery) ([]*entity.Listing, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Listing), args.Error(1)
}
func (m *MockListingRepository) ListBySeller(ctx context.Context, sellerID string) ([]*entity.Listing, error) {
	args := m.Called(ctx, sellerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Listing), args.Error(1)
}
func (m *MockListingRepository) CountActive(ctx context.Context, sellerID string) (int64, error) {
	args := m.Called(ctx, sellerID)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockListingRepository) FindActiveCreatedBefore(ctx context.Context, cutoff time.Time) ([]*entity.Listing, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Listing), args.Error(1)
}

type MockImageRepository struct{ mock.Mock }

func (m *MockImageRepository) Add(ctx context.Context, image *entity.Image) (string, error) {
	args := m.Called(ctx, image)
	return args.String(0), args.Error(1)
}
func (m *MockImageRepository) ListByListing(ctx context.Context, listingID string) ([]entity.Image, error) {
	args := m.Called(ctx, listingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Image), args.Error(1)
}
func (m *MockImageRepository) CountByListing(ctx context.Context, listingID string) (int64, error) {
	args := m.Called(ctx, listingID)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockImageRepository) DeleteByListing(ctx context.Context, listingID string) (int64, error) {
	args := m.Called(ctx, listingID)
	return args.Get(0).(int64), args.Error(1)
}

type MockSellerRepository struct{ mock.Mock }

func (m *MockSellerRepository) Create(ctx context.Context, seller *entity.Seller) (string, error) {
	args := m.Called(ctx, seller)
	return args.String(0), args.Error(1)
}
func (m *MockSellerRepository) GetByID(ctx context.Context, id string) (*entity.Seller, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Seller), args.Error(1)
}

type MockObjectStorage struct{ mock.Mock }

func (m *MockObjectStorage) Upload(ctx context.Context, key string, data []byte) (string, error) {
	args := m.Called(ctx, key, data)
	return args.String(0), args.Error(1)
}
func (m *MockObjectStorage) Remove(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

type MockEventPublisher struct{ mock.Mock }

func (m *MockEventPublisher) PublishListingPublished(ctx context.Context, listing *entity.Listing) error {
	args := m.Called(ctx, listing)
	return args.Error(0)
}
func (m *MockEventPublisher) PublishListingDeactivated(ctx context.Context, listingID string) error {
	args := m.Called(ctx, listingID)
	return args.Error(0)
}
func (m *MockEventPublisher) PublishListingDeleted(ctx context.Context, listingID string) error {
	args := m.Called(ctx, listingID)
	return args.Error(0)
}

type MockMailSender struct{ mock.Mock }

func (m *MockMailSender) SendListingPublishedEmail(toEmail, listingTitle string) error {
	args := m.Called(toEmail, listingTitle)
	return args.Error(0)
}

type MockCacheRepository struct{ mock.Mock }

func (m *MockCacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}
func (m *MockCacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}
func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func validDraft() entity.ListingDraft {
	return entity.ListingDraft{
		Category: entity.CategoryCar,
		Brand:    "Maruti",
		Model:    "Swift",
		Year:     2019,
		KmDriven: 45000,
		FuelType: entity.FuelPetrol,
		Price:    450000,
		Location: "Pune",
	}
}

func imageFiles(n int) []entity.ImageFile {
	files := make([]entity.ImageFile, n)
	for i := range files {
		files[i] = entity.ImageFile{
			Name: "photo" + string(rune('a'+i)) + ".jpg",
			Data: []byte{byte(i), 0xff, 0xd8},
		}
	}
	return files
}
