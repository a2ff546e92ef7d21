package services

import "errors"

var (
	// ErrInvalidItem is returned when a cart item has no usable id or price
	ErrInvalidItem = errors.New("invalid cart item")

	// ErrAlreadyInWishlist is returned when adding a product that is already liked
	ErrAlreadyInWishlist = errors.New("item already in wishlist")

	// ErrEmptyCart is returned when checking out with nothing in the cart
	ErrEmptyCart = errors.New("cart is empty")

	// ErrInvalidCheckout wraps checkout form validation failures
	ErrInvalidCheckout = errors.New("invalid checkout details")

	// ErrOrderNotFound is returned for an unknown order id
	ErrOrderNotFound = errors.New("order not found")

	// ErrInvalidStatus is returned for an order status outside the lifecycle
	ErrInvalidStatus = errors.New("invalid order status")

	// ErrInvalidContact wraps contact form validation failures
	ErrInvalidContact = errors.New("invalid contact message")
)
