package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/SigNoz/freshmart-storefront/internal/catalog"
	"github.com/SigNoz/freshmart-storefront/internal/events"
	"github.com/SigNoz/freshmart-storefront/internal/models"
	"github.com/SigNoz/freshmart-storefront/internal/notify"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const currency = "INR"

var validStatuses = map[string]bool{
	models.OrderStatusProcessing: true,
	models.OrderStatusInTransit:  true,
	models.OrderStatusDelivered:  true,
	models.OrderStatusCancelled:  true,
}

// OrderService places orders from the cart and keeps the order history of one session
type OrderService struct {
	mu        sync.Mutex
	orders    []models.Order // most recent first
	cart      *CartService
	catalog   *catalog.Catalog
	publisher events.Publisher
	topic     string
	validate  *validator.Validate
	state     sessionState
	notifier  notify.Notifier
}

// NewOrderService creates the order history and loads any persisted orders
func NewOrderService(
	ctx context.Context,
	state sessionState,
	cart *CartService,
	c *catalog.Catalog,
	publisher events.Publisher,
	topic string,
	validate *validator.Validate,
	notifier notify.Notifier,
) *OrderService {
	s := &OrderService{
		cart:      cart,
		catalog:   c,
		publisher: publisher,
		topic:     topic,
		validate:  validate,
		state:     state,
		notifier:  notifier,
	}

	var stored []models.Order
	if state.load(ctx, keyOrders, &stored) {
		for _, o := range stored {
			if o.ID != "" && validStatuses[o.Status] {
				s.orders = append(s.orders, o)
			}
		}
	}
	return s
}

// PlaceOrder validates the checkout details and turns the current cart into
// an order. The cart is cleared once the order is stored.
func (s *OrderService) PlaceOrder(ctx context.Context, req models.CheckoutRequest) (*models.Order, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCheckout, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lines := s.cart.TakeItems(ctx)
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	// ============================================
	// SNAPSHOT CART LINES WITH THEIR CATEGORIES
	// ============================================
	items := make([]models.OrderItem, 0, len(lines))
	total := decimal.Zero
	for _, line := range lines {
		category := "unknown"
		if p, err := s.catalog.Product(line.ProductID); err == nil {
			category = p.Category
		}
		items = append(items, models.OrderItem{
			ProductID: line.ProductID,
			Name:      line.Name,
			Category:  category,
			Price:     line.Price,
			Quantity:  line.Quantity,
		})
		total = total.Add(decimal.NewFromFloat(line.Price).Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	now := time.Now().UTC()
	amount, _ := total.Round(2).Float64()
	order := models.Order{
		ID:            newOrderID(),
		Status:        models.OrderStatusProcessing,
		PaymentMethod: req.PaymentMethod,
		Items:         items,
		Total:         amount,
		Customer:      req.Customer(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	s.orders = append([]models.Order{order}, s.orders...)
	s.persistLocked(ctx)

	log := s.state.log.WithFields(logrus.Fields{
		"order_id":       order.ID,
		"total":          order.Total,
		"payment_method": order.PaymentMethod,
		"items":          len(items),
	})

	event := models.OrderPlacedEvent{
		OrderID:       order.ID,
		SessionID:     s.state.sessionID,
		PaymentMethod: order.PaymentMethod,
		Total:         order.Total,
		Items:         items,
		PlacedAt:      now,
		Type:          events.OrderPlaced,
	}
	if err := s.publisher.PublishEvent(ctx, s.topic, s.state.sessionID, event); err != nil {
		log.WithError(err).Warn("failed to publish order event")
	}

	s.recordOrderMetrics(ctx, order)

	log.Info("order placed")
	s.notifier.Success(ctx, "Order placed successfully")
	return &order, nil
}

// newOrderID returns "ORD-" followed by the first eight hex digits of a uuid
func newOrderID() string {
	return "ORD-" + strings.ToUpper(uuid.NewString()[:8])
}

// ListOrders returns the order history, most recent first
func (s *OrderService) ListOrders() []models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Order, len(s.orders))
	copy(out, s.orders)
	return out
}

// GetOrder returns the order with id
func (s *OrderService) GetOrder(id string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.orders {
		if s.orders[i].ID == id {
			o := s.orders[i]
			return &o, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
}

// UpdateOrderStatus moves an order to status
func (s *OrderService) UpdateOrderStatus(ctx context.Context, id, status string) error {
	if !validStatuses[status] {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.orders {
		if s.orders[i].ID != id {
			continue
		}
		s.orders[i].Status = status
		s.orders[i].UpdatedAt = time.Now().UTC()
		s.persistLocked(ctx)

		s.state.log.WithFields(logrus.Fields{"order_id": id, "status": status}).Info("order status updated")
		if status == models.OrderStatusDelivered {
			s.recordOrderMetrics(ctx, s.orders[i])
		}
		return nil
	}
	return fmt.Errorf("%w: %s", ErrOrderNotFound, id)
}

// recordOrderMetrics records order count and revenue per product category
func (s *OrderService) recordOrderMetrics(ctx context.Context, order models.Order) {
	categoryRevenue := make(map[string]decimal.Decimal)
	categoryOrders := make(map[string]int)
	for _, item := range order.Items {
		amount := decimal.NewFromFloat(item.Price).Mul(decimal.NewFromInt(int64(item.Quantity)))
		categoryRevenue[item.Category] = categoryRevenue[item.Category].Add(amount)
		categoryOrders[item.Category]++
	}

	m := s.state.metrics
	for category, orderCount := range categoryOrders {
		orderAttrs := m.WithServiceName([]attribute.KeyValue{
			attribute.String("order_status", order.Status),
			attribute.String("payment_method", order.PaymentMethod),
			attribute.String("product_category", category),
		})
		m.OrdersCreated.Add(ctx, int64(orderCount), metric.WithAttributes(orderAttrs...))

		revenue, _ := categoryRevenue[category].Float64()
		revenueAttrs := m.WithServiceName([]attribute.KeyValue{
			attribute.String("currency", currency),
			attribute.String("payment_method", order.PaymentMethod),
			attribute.String("product_category", category),
			attribute.String("order_status", order.Status),
		})
		m.RevenueTotal.Add(ctx, revenue, metric.WithAttributes(revenueAttrs...))

		s.state.log.WithFields(logrus.Fields{
			"order_id": order.ID,
			"category": category,
			"count":    orderCount,
			"revenue":  revenue,
			"status":   order.Status,
		}).Debug("order metrics recorded")
	}
}

func (s *OrderService) persistLocked(ctx context.Context) {
	orders := s.orders
	if orders == nil {
		orders = []models.Order{}
	}
	s.state.save(ctx, keyOrders, orders)
}
