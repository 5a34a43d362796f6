package orders

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"backend/internal/models"
)

// Cancellable reports whether a user may still cancel an order in the given
// status. Shipped, delivered and already-cancelled orders are off limits.
func Cancellable(status models.OrderStatus) bool {
	switch status {
	case models.OrderStatusShipped, models.OrderStatusDelivered, models.OrderStatusCancelled:
		return false
	}
	return true
}

// applyStatus overwrites the order status and appends exactly one history
// entry. History is append-only; nothing here ever rewrites or drops past
// entries. Delivered and cancelled additionally stamp their timestamps.
func applyStatus(order *models.Order, status models.OrderStatus, note string, actor primitive.ObjectID, now time.Time) {
	if note == "" {
		note = fmt.Sprintf("Order status updated to %s", status)
	}

	order.OrderStatus = status
	order.StatusHistory = append(order.StatusHistory, models.StatusHistoryEntry{
		Status:    status,
		Timestamp: now,
		Note:      note,
		UpdatedBy: &actor,
	})

	switch status {
	case models.OrderStatusDelivered:
		t := now
		order.DeliveredAt = &t
	case models.OrderStatusCancelled:
		t := now
		order.CancelledAt = &t
	}

	order.UpdatedAt = now
}
