package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/SigNoz/freshmart-storefront/internal/events"
	"github.com/SigNoz/freshmart-storefront/internal/models"
	"github.com/SigNoz/freshmart-storefront/internal/storage"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orderFixture struct {
	cart      *CartService
	orders    *OrderService
	publisher *recordingPublisher
	notifier  *recordingNotifier
	store     storage.Storage
}

func newOrderFixture(t *testing.T, store storage.Storage) orderFixture {
	t.Helper()
	ctx := context.Background()
	state := testState(t, store)
	n := &recordingNotifier{}
	pub := &recordingPublisher{}
	cart := NewCartService(ctx, state, n)
	return orderFixture{
		cart:      cart,
		orders:    NewOrderService(ctx, state, cart, testCatalog(t), pub, "orders", testValidator(), n),
		publisher: pub,
		notifier:  n,
		store:     store,
	}
}

func validCheckout() models.CheckoutRequest {
	return models.CheckoutRequest{
		FirstName:     "Asha",
		LastName:      "Rao",
		Email:         "asha@example.com",
		Phone:         "9876543210",
		Address:       "12 MG Road",
		City:          "Bengaluru",
		State:         "Karnataka",
		Pincode:       "560001",
		PaymentMethod: "upi",
	}
}

func TestPlaceOrderEmptyCart(t *testing.T) {
	f := newOrderFixture(t, storage.NewMemory())
	_, err := f.orders.PlaceOrder(context.Background(), validCheckout())
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Empty(t, f.orders.ListOrders())
	assert.Empty(t, f.publisher.events)
}

func TestPlaceOrderValidatesCheckout(t *testing.T) {
	f := newOrderFixture(t, storage.NewMemory())
	require.NoError(t, f.cart.AddToCart(context.Background(), lineItem(1, "Apples", 120), 1))

	tests := []struct {
		name   string
		mutate func(*models.CheckoutRequest)
		field  string
	}{
		{"missing name", func(r *models.CheckoutRequest) { r.FirstName = "" }, "first_name"},
		{"bad email", func(r *models.CheckoutRequest) { r.Email = "asha" }, "email"},
		{"short phone", func(r *models.CheckoutRequest) { r.Phone = "12345" }, "phone"},
		{"letters in pincode", func(r *models.CheckoutRequest) { r.Pincode = "56000A" }, "pincode"},
		{"unknown payment", func(r *models.CheckoutRequest) { r.PaymentMethod = "cheque" }, "payment_method"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validCheckout()
			tt.mutate(&req)
			_, err := f.orders.PlaceOrder(context.Background(), req)
			require.ErrorIs(t, err, ErrInvalidCheckout)

			var verrs validator.ValidationErrors
			require.True(t, errors.As(err, &verrs))
			assert.Equal(t, tt.field, verrs[0].Field())
		})
	}
	assert.Equal(t, 1, f.cart.TotalItems(), "cart untouched by failed checkout")
}

func TestPlaceOrder(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t, storage.NewMemory())
	require.NoError(t, f.cart.AddToCart(ctx, lineItem(1, "Apples", 120.5), 2))
	require.NoError(t, f.cart.AddToCart(ctx, lineItem(8, "Milk", 30), 1))
	require.NoError(t, f.cart.AddToCart(ctx, lineItem(99, "Retired", 10), 1))

	order, err := f.orders.PlaceOrder(ctx, validCheckout())
	require.NoError(t, err)

	assert.Regexp(t, `^ORD-[0-9A-F]{8}$`, order.ID)
	assert.Equal(t, models.OrderStatusProcessing, order.Status)
	assert.Equal(t, "upi", order.PaymentMethod)
	assert.Equal(t, 281.0, order.Total)
	assert.Equal(t, "Asha", order.Customer.FirstName)
	require.Len(t, order.Items, 3)
	assert.Equal(t, "fruits", order.Items[0].Category)
	assert.Equal(t, "dairy", order.Items[1].Category)
	assert.Equal(t, "unknown", order.Items[2].Category)

	assert.Empty(t, f.cart.Items(), "cart cleared after checkout")
	assert.Len(t, f.orders.ListOrders(), 1)
	assert.Equal(t, "Order placed successfully", f.notifier.last().Message)

	require.Len(t, f.publisher.events, 1)
	ev := f.publisher.events[0]
	assert.Equal(t, "orders", ev.topic)
	assert.Equal(t, "session-1", ev.key)
	placed, ok := ev.event.(models.OrderPlacedEvent)
	require.True(t, ok)
	assert.Equal(t, events.OrderPlaced, placed.Type)
	assert.Equal(t, order.ID, placed.OrderID)
	assert.Equal(t, order.Total, placed.Total)
}

func TestPlaceOrderKeepsConcurrentAdds(t *testing.T) {
	ctx := context.Background()
	for i := 0; i < 50; i++ {
		f := newOrderFixture(t, storage.NewMemory())
		require.NoError(t, f.cart.AddToCart(ctx, lineItem(1, "Apples", 120), 1))

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := f.orders.PlaceOrder(ctx, validCheckout())
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, f.cart.AddToCart(ctx, lineItem(2, "Bananas", 40), 1))
		}()
		wg.Wait()

		units := f.cart.TotalItems()
		for _, o := range f.orders.ListOrders() {
			for _, it := range o.Items {
				units += it.Quantity
			}
		}
		require.Equal(t, 2, units, "every added unit is either ordered or still in the cart")
	}
}

func TestPlaceOrderSurvivesPublishFailure(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t, storage.NewMemory())
	f.publisher.err = errors.New("broker down")
	require.NoError(t, f.cart.AddToCart(ctx, lineItem(1, "Apples", 120), 1))

	_, err := f.orders.PlaceOrder(ctx, validCheckout())
	require.NoError(t, err)
	assert.Len(t, f.orders.ListOrders(), 1)
	assert.Empty(t, f.cart.Items())
}

func TestOrderHistoryMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t, storage.NewMemory())

	var ids []string
	for i := 0; i < 3; i++ {
		require.NoError(t, f.cart.AddToCart(ctx, lineItem(2, "Bananas", 40), i+1))
		o, err := f.orders.PlaceOrder(ctx, validCheckout())
		require.NoError(t, err)
		ids = append(ids, o.ID)
	}

	list := f.orders.ListOrders()
	require.Len(t, list, 3)
	assert.Equal(t, ids[2], list[0].ID)
	assert.Equal(t, ids[0], list[2].ID)

	got, err := f.orders.GetOrder(ids[1])
	require.NoError(t, err)
	assert.Equal(t, 2, got.Items[0].Quantity)

	_, err = f.orders.GetOrder("missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestUpdateOrderStatus(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	f := newOrderFixture(t, store)
	require.NoError(t, f.cart.AddToCart(ctx, lineItem(3, "Mangoes", 250), 1))
	order, err := f.orders.PlaceOrder(ctx, validCheckout())
	require.NoError(t, err)

	assert.ErrorIs(t, f.orders.UpdateOrderStatus(ctx, order.ID, "shipped"), ErrInvalidStatus)
	assert.ErrorIs(t, f.orders.UpdateOrderStatus(ctx, "nope", models.OrderStatusDelivered), ErrOrderNotFound)

	require.NoError(t, f.orders.UpdateOrderStatus(ctx, order.ID, models.OrderStatusInTransit))
	require.NoError(t, f.orders.UpdateOrderStatus(ctx, order.ID, models.OrderStatusDelivered))

	got, err := f.orders.GetOrder(order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusDelivered, got.Status)
	assert.True(t, !got.UpdatedAt.Before(got.CreatedAt))

	reloaded := newOrderFixture(t, store)
	got, err = reloaded.orders.GetOrder(order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusDelivered, got.Status)
}

func TestOrdersLoadSkipsInvalid(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	require.NoError(t, store.Save(ctx, keyOrders, []byte(`[{"id":"a","status":"processing"},{"id":"","status":"processing"},{"id":"b","status":"lost"}]`)))

	f := newOrderFixture(t, store)
	list := f.orders.ListOrders()
	require.Len(t, list, 1)
	assert.Equal(t, "a", list[0].ID)
}

func testValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(jsonFieldName)
	return v
}
