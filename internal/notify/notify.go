// Package notify dispatches order confirmations. The storefront treats
// delivery as best-effort; callers log failures and move on.
package notify

import (
	"context"
	"fmt"
	"log"

	"backend/internal/models"
)

// LogNotifier writes the confirmation summary to the application log. Real
// mail transport lives outside this service; this keeps the dispatch path
// and its failure handling exercised without one.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) SendOrderConfirmation(ctx context.Context, user *models.User, order *models.Order) error {
	if user == nil || order == nil {
		return fmt.Errorf("notify: missing user or order")
	}

	log.Printf("[NOTIFY] [INFO] order confirmation for %s: order %s, %d item(s), total %.2f %s",
		user.Email, order.OrderNumber, len(order.Items), order.Total, order.Currency)
	return nil
}
