package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscount(t *testing.T) {
	tests := []struct {
		price, original float64
		want            int
	}{
		{120, 160, 25},
		{99, 149, 34},
		{50, 0, 0},
		{50, 50, 0},
		{60, 50, 0},
	}
	for _, tt := range tests {
		p := Product{Price: tt.price, OriginalPrice: tt.original}
		assert.Equal(t, tt.want, p.Discount(), "price %v original %v", tt.price, tt.original)
	}

	view := NewProductView(Product{ID: 1, Price: 75, OriginalPrice: 100})
	assert.Equal(t, 25, view.Discount)
}

func TestProductViewJSON(t *testing.T) {
	b, err := json.Marshal(NewProductView(Product{ID: 1, Name: "Apples", Price: 120, OriginalPrice: 160, InStock: true}))
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, float64(25), got["discount"])
	assert.Equal(t, "Apples", got["name"])
	assert.Equal(t, true, got["in_stock"])
}

func TestQuantityUnmarshal(t *testing.T) {
	tests := map[string]Quantity{
		`{"quantity":3}`:      3,
		`{"quantity":"4"}`:    4,
		`{"quantity":" 2 "}`:  2,
		`{"quantity":"lots"}`: 0,
		`{"quantity":null}`:   0,
		`{"quantity":-2}`:     0,
		`{}`:                  0,
		`{"quantity":9e18}`:   MaxLineQuantity,
		`{"quantity":"1e30"}`: MaxLineQuantity,
		`{"quantity":1000}`:   MaxLineQuantity,
		`{"quantity":999}`:    999,
	}
	for body, want := range tests {
		var req AddToCartRequest
		require.NoError(t, json.Unmarshal([]byte(body), &req), body)
		assert.Equal(t, want, req.Quantity, body)
	}
}

func TestCheckoutCustomer(t *testing.T) {
	req := CheckoutRequest{FirstName: "Asha", Email: "asha@example.com", Pincode: "560001", PaymentMethod: "cod"}
	c := req.Customer()
	assert.Equal(t, "Asha", c.FirstName)
	assert.Equal(t, "560001", c.Pincode)
}
