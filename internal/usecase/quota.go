package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/wheelmarket/listing-service/internal/entity"
	"github.com/wheelmarket/listing-service/internal/port/repository"
	"go.uber.org/zap"
)

// QuotaGuard enforces the per-seller cap on simultaneously active listings.
//
// Counting active listings and committing the write that adds one are a
// check-then-act pair, so Reserve serializes both on a per-seller mutex: the
// count is taken and the commit callback runs inside the same critical
// section. Two concurrent activations for the same seller can therefore never
// both observe a stale count.
type QuotaGuard struct {
	listingRepo repository.ListingRepository
	logger      *zap.Logger

	locks sync.Map // sellerID -> *sync.Mutex
}

func NewQuotaGuard(listingRepo repository.ListingRepository, logger *zap.Logger) *QuotaGuard {
	return &QuotaGuard{
		listingRepo: listingRepo,
		logger:      logger,
	}
}

func (g *QuotaGuard) sellerLock(sellerID string) *sync.Mutex {
	mu, _ := g.locks.LoadOrStore(sellerID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// CanActivate is an advisory probe for UI banners. It takes no lock and gives
// no guarantee that a later Reserve will succeed.
func (g *QuotaGuard) CanActivate(ctx context.Context, sellerID string) (bool, error) {
	count, err := g.listingRepo.CountActive(ctx, sellerID)
	if err != nil {
		return false, fmt.Errorf("QuotaGuard.CanActivate: failed to count active listings: %w", err)
	}
	return count < entity.MaxActiveListings, nil
}

// Reserve re-checks the active count under the seller's lock and, while still
// holding it, runs commit — the write that creates or activates a listing.
// On ErrQuotaExceeded no write has happened.
func (g *QuotaGuard) Reserve(ctx context.Context, sellerID string, commit func(ctx context.Context) error) error {
	mu := g.sellerLock(sellerID)
	mu.Lock()
	defer mu.Unlock()

	count, err := g.listingRepo.CountActive(ctx, sellerID)
	if err != nil {
		return fmt.Errorf("QuotaGuard.Reserve: failed to count active listings: %w", err)
	}
	if count >= entity.MaxActiveListings {
		g.logger.Info("active listing quota exhausted",
			zap.String("seller_id", sellerID),
			zap.Int64("active_count", count),
		)
		return ErrQuotaExceeded
	}

	return commit(ctx)
}
