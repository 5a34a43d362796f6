package orders

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"backend/internal/models"
)

var (
	ErrNotFound             = errors.New("order not found")
	ErrAccessDenied         = errors.New("access denied")
	ErrOrderTotalMismatch   = errors.New("order total mismatch")
	ErrInvalidStatus        = errors.New("invalid order status")
	ErrInvalidInput         = errors.New("invalid order input")
	ErrDuplicateOrderNumber = errors.New("duplicate order number")
)

// ProductUnavailableError reports a line item whose product is missing or
// no longer active.
type ProductUnavailableError struct {
	ProductID primitive.ObjectID
}

func (e *ProductUnavailableError) Error() string {
	return fmt.Sprintf("product %s not found or unavailable", e.ProductID.Hex())
}

// InsufficientStockError carries the product name and remaining stock so the
// caller can show an actionable message.
type InsufficientStockError struct {
	ProductID primitive.ObjectID
	Name      string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s. Only %d available", e.Name, e.Available)
}

// OrderNotCancellableError reports the current status that blocks a
// self-service cancellation.
type OrderNotCancellableError struct {
	Status models.OrderStatus
}

func (e *OrderNotCancellableError) Error() string {
	return fmt.Sprintf("cannot cancel order with status: %s", e.Status)
}
