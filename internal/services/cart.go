package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/SigNoz/freshmart-storefront/internal/models"
	"github.com/SigNoz/freshmart-storefront/internal/notify"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// CartService handles cart operations for one session
type CartService struct {
	mu       sync.Mutex
	items    []models.CartLineItem
	state    sessionState
	notifier notify.Notifier
}

// NewCartService creates a cart and loads any persisted line items
func NewCartService(ctx context.Context, state sessionState, notifier notify.Notifier) *CartService {
	s := &CartService{state: state, notifier: notifier}

	var stored []models.CartLineItem
	if state.load(ctx, keyCart, &stored) {
		s.items = normalizeCart(stored)
	}
	return s
}

// normalizeCart drops unusable entries and merges duplicate product ids so a
// hand-edited or older blob still satisfies one line item per product
func normalizeCart(stored []models.CartLineItem) []models.CartLineItem {
	items := make([]models.CartLineItem, 0, len(stored))
	index := make(map[int64]int, len(stored))
	for _, it := range stored {
		if it.ProductID <= 0 || it.Quantity <= 0 || it.Price < 0 {
			continue
		}
		if i, ok := index[it.ProductID]; ok {
			items[i].Quantity = addQuantity(items[i].Quantity, it.Quantity)
			continue
		}
		it.Quantity = min(it.Quantity, models.MaxLineQuantity)
		index[it.ProductID] = len(items)
		items = append(items, it)
	}
	return items
}

// AddToCart merges item into the cart, adding quantity to an existing line.
// Quantities below one are treated as one. A line never exceeds
// models.MaxLineQuantity.
func (s *CartService) AddToCart(ctx context.Context, item models.CartLineItem, quantity int) error {
	if item.ProductID <= 0 || item.Price <= 0 {
		return fmt.Errorf("%w: product %d", ErrInvalidItem, item.ProductID)
	}
	if quantity < 1 {
		quantity = 1
	}

	s.mu.Lock()
	merged := false
	for i := range s.items {
		if s.items[i].ProductID == item.ProductID {
			s.items[i].Quantity = addQuantity(s.items[i].Quantity, quantity)
			merged = true
			break
		}
	}
	if !merged {
		item.Quantity = min(quantity, models.MaxLineQuantity)
		s.items = append(s.items, item)
	}
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.notifier.Success(ctx, item.Name+" added to cart")
	return nil
}

// RemoveFromCart deletes the line item for productID. Removing an absent
// product is a no-op and reports false.
func (s *CartService) RemoveFromCart(ctx context.Context, productID int64) bool {
	s.mu.Lock()
	removed, ok := s.removeLocked(productID)
	if ok {
		s.persistLocked(ctx)
	}
	s.mu.Unlock()

	if ok {
		s.notifier.Success(ctx, removed.Name+" removed from cart")
	}
	return ok
}

// UpdateQuantity sets the quantity of a line item. A quantity of zero or less
// removes the line item, and quantities above models.MaxLineQuantity are
// capped. It reports whether the cart changed.
func (s *CartService) UpdateQuantity(ctx context.Context, productID int64, quantity int) bool {
	if quantity <= 0 {
		return s.RemoveFromCart(ctx, productID)
	}
	quantity = min(quantity, models.MaxLineQuantity)

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ProductID == productID {
			s.items[i].Quantity = quantity
			s.persistLocked(ctx)
			return true
		}
	}
	return false
}

// ClearCart empties the cart
func (s *CartService) ClearCart(ctx context.Context) {
	s.mu.Lock()
	s.items = nil
	s.persistLocked(ctx)
	s.mu.Unlock()
}

// TakeItems empties the cart and returns the line items it held. An empty
// cart is left untouched and yields nil.
func (s *CartService) TakeItems(ctx context.Context) []models.CartLineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.items) == 0 {
		return nil
	}
	items := s.items
	s.items = nil
	s.persistLocked(ctx)
	return items
}

// Items returns a copy of the line items in insertion order
func (s *CartService) Items() []models.CartLineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.CartLineItem, len(s.items))
	copy(out, s.items)
	return out
}

// TotalItems returns the sum of quantities
func (s *CartService) TotalItems() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return totalItems(s.items)
}

// TotalPrice returns the unrounded sum of price times quantity
func (s *CartService) TotalPrice() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, _ := totalPrice(s.items).Float64()
	return f
}

// Summary returns the line items with their derived totals
func (s *CartService) Summary() models.CartSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]models.CartLineItem, len(s.items))
	copy(items, s.items)
	total := totalPrice(items)
	f, _ := total.Float64()
	return models.CartSummary{
		Items:        items,
		TotalItems:   totalItems(items),
		TotalPrice:   f,
		DisplayTotal: total.StringFixed(2),
	}
}

func (s *CartService) removeLocked(productID int64) (models.CartLineItem, bool) {
	for i, it := range s.items {
		if it.ProductID == productID {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return it, true
		}
	}
	return models.CartLineItem{}, false
}

// persistLocked saves the cart and updates the cart items gauge
func (s *CartService) persistLocked(ctx context.Context) {
	items := s.items
	if items == nil {
		items = []models.CartLineItem{}
	}
	s.state.save(ctx, keyCart, items)

	cartAttrs := s.state.metrics.WithServiceName([]attribute.KeyValue{
		attribute.String("session_id", s.state.sessionID),
	})
	s.state.metrics.CartItemsCount.Record(ctx, int64(totalItems(items)), metric.WithAttributes(cartAttrs...))
}

// addQuantity sums two positive line quantities, saturating at MaxLineQuantity
func addQuantity(a, b int) int {
	if b >= models.MaxLineQuantity-a {
		return models.MaxLineQuantity
	}
	return a + b
}

func totalItems(items []models.CartLineItem) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}

func totalPrice(items []models.CartLineItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}
