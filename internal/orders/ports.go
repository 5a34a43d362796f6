package orders

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"backend/internal/models"
)

// CatalogStore is the engine's read view of the product catalog.
type CatalogStore interface {
	// FindProduct returns ErrNotFound when no product matches the id.
	FindProduct(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
}

// OrderStore persists orders and owns the stock side effects that must be
// atomic with them.
type OrderStore interface {
	// CreateWithStock inserts the order and decrements stock for every line
	// item in a single transaction. Each decrement is conditional on the
	// product still having sufficient stock; a failed condition aborts the
	// transaction with *InsufficientStockError. An order number collision
	// returns ErrDuplicateOrderNumber.
	CreateWithStock(ctx context.Context, order *models.Order) error

	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)

	// ListByUser returns one page of the user's orders, newest first, plus
	// the total order count for that user.
	ListByUser(ctx context.Context, userID primitive.ObjectID, page, limit int64) ([]models.Order, int64, error)

	// UpdateStatus persists the order's status fields, tracking info and the
	// appended history entry.
	UpdateStatus(ctx context.Context, order *models.Order) error

	// CancelWithRestock persists the cancelled order and restores stock for
	// its items in a single transaction. The stored order must still be in a
	// cancellable state; otherwise *OrderNotCancellableError is returned and
	// no stock moves.
	CancelWithRestock(ctx context.Context, order *models.Order) error
}

// CartStore lets the engine empty a cart after checkout.
type CartStore interface {
	Clear(ctx context.Context, userID primitive.ObjectID) error
}

// UserStore resolves order owners for notifications.
type UserStore interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// Notifier delivers the order confirmation. Delivery is best-effort; the
// engine logs failures and never fails an order because of one.
type Notifier interface {
	SendOrderConfirmation(ctx context.Context, user *models.User, order *models.Order) error
}
