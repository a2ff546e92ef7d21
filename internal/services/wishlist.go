package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/SigNoz/freshmart-storefront/internal/models"
	"github.com/SigNoz/freshmart-storefront/internal/notify"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// WishlistService tracks liked products for one session
type WishlistService struct {
	mu       sync.Mutex
	entries  []models.WishlistEntry
	index    map[int64]struct{}
	state    sessionState
	notifier notify.Notifier
}

// NewWishlistService creates a wishlist and loads any persisted entries
func NewWishlistService(ctx context.Context, state sessionState, notifier notify.Notifier) *WishlistService {
	s := &WishlistService{
		index:    make(map[int64]struct{}),
		state:    state,
		notifier: notifier,
	}

	var stored []models.WishlistEntry
	if state.load(ctx, keyWishlist, &stored) {
		for _, e := range stored {
			if _, dup := s.index[e.ProductID]; e.ProductID <= 0 || dup {
				continue
			}
			s.index[e.ProductID] = struct{}{}
			s.entries = append(s.entries, e)
		}
	}
	return s
}

// AddToWishlist appends entry. A product already in the wishlist is rejected
// with ErrAlreadyInWishlist and leaves the wishlist unchanged.
func (s *WishlistService) AddToWishlist(ctx context.Context, entry models.WishlistEntry) error {
	if entry.ProductID <= 0 {
		return fmt.Errorf("%w: product %d", ErrInvalidItem, entry.ProductID)
	}

	attrs := metric.WithAttributes(s.state.metrics.WithServiceName([]attribute.KeyValue{})...)

	s.mu.Lock()
	if _, ok := s.index[entry.ProductID]; ok {
		s.mu.Unlock()
		s.state.metrics.WishlistRejections.Add(ctx, 1, attrs)
		s.notifier.Error(ctx, "Item already in wishlist")
		return ErrAlreadyInWishlist
	}
	s.index[entry.ProductID] = struct{}{}
	s.entries = append(s.entries, entry)
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.state.metrics.WishlistAdds.Add(ctx, 1, attrs)
	s.notifier.Success(ctx, entry.Name+" added to wishlist")
	return nil
}

// RemoveFromWishlist removes productID, reporting whether it was present
func (s *WishlistService) RemoveFromWishlist(ctx context.Context, productID int64) bool {
	s.mu.Lock()
	var removed models.WishlistEntry
	found := false
	if _, ok := s.index[productID]; ok {
		for i, e := range s.entries {
			if e.ProductID == productID {
				removed = e
				s.entries = append(s.entries[:i], s.entries[i+1:]...)
				break
			}
		}
		delete(s.index, productID)
		found = true
		s.persistLocked(ctx)
	}
	s.mu.Unlock()

	if found {
		s.notifier.Success(ctx, removed.Name+" removed from wishlist")
	}
	return found
}

// IsInWishlist reports whether productID is liked
func (s *WishlistService) IsInWishlist(productID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.index[productID]
	return ok
}

// ClearWishlist removes every entry
func (s *WishlistService) ClearWishlist(ctx context.Context) {
	s.mu.Lock()
	s.entries = nil
	s.index = make(map[int64]struct{})
	s.persistLocked(ctx)
	s.mu.Unlock()
}

// TotalItems returns the number of entries
func (s *WishlistService) TotalItems() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Items returns a copy of the entries in insertion order
func (s *WishlistService) Items() []models.WishlistEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.WishlistEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *WishlistService) persistLocked(ctx context.Context) {
	entries := s.entries
	if entries == nil {
		entries = []models.WishlistEntry{}
	}
	s.state.save(ctx, keyWishlist, entries)
}
