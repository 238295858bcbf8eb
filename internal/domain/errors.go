package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCart       = errors.New("order must contain at least one item")
	ErrInvalidQuantity = errors.New("item quantity must be a positive integer")
	ErrInvalidAddress  = errors.New("delivery address must be at least 10 characters")
	ErrInvalidStatus   = errors.New("invalid order status")
	ErrOrderNotFound   = errors.New("order not found")
	ErrForbidden       = errors.New("you don't have permission to view this order")
	ErrUserNotFound    = errors.New("user not found")
)

// ProductNotFoundError reports which requested product id could not be
// resolved, so the client can fix the cart line.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product with ID %s not found", e.ProductID)
}

// InsufficientStockError carries available vs requested so the client can
// correct the quantity without another round trip.
type InsufficientStockError struct {
	ProductID string
	Name      string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	name := e.Name
	if name == "" {
		name = e.ProductID
	}
	return fmt.Sprintf("insufficient stock for %s. Available: %d, Requested: %d", name, e.Available, e.Requested)
}
