package models

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Product represents a product in the catalog
type Product struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Description   string  `json:"description,omitempty"`
	Image         string  `json:"image"`
	Category      string  `json:"category"`
	Price         float64 `json:"price"`
	OriginalPrice float64 `json:"original_price,omitempty"`
	Rating        float64 `json:"rating"`
	Reviews       int     `json:"reviews"`
	IsOrganic     bool    `json:"is_organic"`
	InStock       bool    `json:"in_stock"`
	IsNew         bool    `json:"is_new"`
}

// Discount returns the whole discount percentage implied by OriginalPrice.
// It is always derived and never stored.
func (p Product) Discount() int {
	if p.OriginalPrice <= p.Price || p.OriginalPrice <= 0 {
		return 0
	}
	return int(math.Round((p.OriginalPrice - p.Price) / p.OriginalPrice * 100))
}

// ProductView is a product as rendered to clients, with its derived discount
type ProductView struct {
	Product
	Discount int `json:"discount,omitempty"`
}

// NewProductView wraps p with its derived fields
func NewProductView(p Product) ProductView {
	return ProductView{Product: p, Discount: p.Discount()}
}

// Category is one of the fixed catalog categories
type Category struct {
	Slug        string `json:"slug" yaml:"slug"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

// MaxLineQuantity caps the quantity of a single cart line item
const MaxLineQuantity = 999

// CartLineItem is one product in the cart with its quantity.
// Name, Price and Image are snapshots taken when the item was first added.
type CartLineItem struct {
	ProductID int64   `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Image     string  `json:"image"`
	Quantity  int     `json:"quantity"`
}

// NewCartLineItem snapshots p as a cart line item with quantity 1
func NewCartLineItem(p Product) CartLineItem {
	return CartLineItem{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Image:     p.Image,
		Quantity:  1,
	}
}

// WishlistEntry is a liked product snapshot
type WishlistEntry struct {
	ProductID int64   `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Image     string  `json:"image"`
}

// NewWishlistEntry snapshots p as a wishlist entry
func NewWishlistEntry(p Product) WishlistEntry {
	return WishlistEntry{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Image:     p.Image,
	}
}

// CartSummary represents a cart with its derived totals
type CartSummary struct {
	Items        []CartLineItem `json:"items"`
	TotalItems   int            `json:"total_items"`
	TotalPrice   float64        `json:"total_price"`
	DisplayTotal string         `json:"display_total"`
}

// Order statuses
const (
	OrderStatusProcessing = "processing"
	OrderStatusInTransit  = "in-transit"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

// Order represents a placed order
type Order struct {
	ID            string      `json:"id"`
	Status        string      `json:"status"`
	PaymentMethod string      `json:"payment_method"`
	Items         []OrderItem `json:"items"`
	Total         float64     `json:"total"`
	Customer      Customer    `json:"customer"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// OrderItem represents an item in an order
type OrderItem struct {
	ProductID int64   `json:"product_id"`
	Name      string  `json:"name"`
	Category  string  `json:"category"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

// Customer holds the contact and delivery details captured at checkout
type Customer struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	Pincode   string `json:"pincode"`
}

// CheckoutRequest represents a request to place an order from the cart
type CheckoutRequest struct {
	FirstName     string `json:"first_name" validate:"required"`
	LastName      string `json:"last_name" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
	Phone         string `json:"phone" validate:"required,numeric,len=10"`
	Address       string `json:"address" validate:"required"`
	City          string `json:"city" validate:"required"`
	State         string `json:"state" validate:"required"`
	Pincode       string `json:"pincode" validate:"required,numeric,len=6"`
	PaymentMethod string `json:"payment_method" validate:"required,oneof=cod card upi"`
}

// Customer returns the customer details of the request
func (r CheckoutRequest) Customer() Customer {
	return Customer{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		Phone:     r.Phone,
		Address:   r.Address,
		City:      r.City,
		State:     r.State,
		Pincode:   r.Pincode,
	}
}

// OrderPlacedEvent is published once an order has been stored
type OrderPlacedEvent struct {
	Type          string      `json:"type"`
	OrderID       string      `json:"order_id"`
	SessionID     string      `json:"session_id"`
	PaymentMethod string      `json:"payment_method"`
	Total         float64     `json:"total"`
	Items         []OrderItem `json:"items"`
	PlacedAt      time.Time   `json:"placed_at"`
}

// ContactRequest is a message sent from the contact page
type ContactRequest struct {
	Name    string `json:"name" validate:"required,max=100"`
	Email   string `json:"email" validate:"required,email"`
	Subject string `json:"subject" validate:"required,oneof='Order Inquiry' 'Product Question' 'Delivery Information' 'Feedback' 'Partnership' 'Other'"`
	Message string `json:"message" validate:"required,max=2000"`
}

// ContactSubmittedEvent is published for every accepted contact message
type ContactSubmittedEvent struct {
	Type        string    `json:"type"`
	MessageID   string    `json:"message_id"`
	SessionID   string    `json:"session_id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Subject     string    `json:"subject"`
	Message     string    `json:"message"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// FAQEntry is a single help center question
type FAQEntry struct {
	ID       string `json:"id" yaml:"id"`
	Category string `json:"category" yaml:"category"`
	Question string `json:"question" yaml:"question"`
	Answer   string `json:"answer" yaml:"answer"`
}

// Quantity is a requested item count from a client form. Anything that is
// not a number decodes as zero, which the cart clamps to one. Values above
// MaxLineQuantity decode as MaxLineQuantity.
type Quantity int

// UnmarshalJSON accepts numbers and numeric strings
func (q *Quantity) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*q = 0
	switch t := v.(type) {
	case float64:
		*q = boundQuantity(t)
	case string:
		if n, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil && !math.IsNaN(n) {
			*q = boundQuantity(n)
		}
	}
	return nil
}

func boundQuantity(f float64) Quantity {
	switch {
	case f > MaxLineQuantity:
		return MaxLineQuantity
	case f < 0:
		return 0
	}
	return Quantity(f)
}

// AddToCartRequest represents a request to add item to cart
type AddToCartRequest struct {
	ProductID int64    `json:"product_id"`
	Quantity  Quantity `json:"quantity"`
}

// UpdateQuantityRequest represents a request to set a line item quantity
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// ProductRequest identifies a product in a request body
type ProductRequest struct {
	ProductID int64 `json:"product_id"`
}
