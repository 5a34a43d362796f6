package orders

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"backend/internal/models"
)

// totalEpsilon is the tolerance when comparing the client-sent total to the
// server-computed one.
const totalEpsilon = 0.01

// RequestingUser is the identity the auth middleware attaches to a request.
// The engine trusts it without re-verifying credentials.
type RequestingUser struct {
	ID   primitive.ObjectID
	Role string
}

func (u RequestingUser) IsAdmin() bool {
	return u.Role == models.RoleAdmin
}

// CreateItemInput names a product and the quantity to order. Name, price and
// image are never taken from the client; they are snapshotted server-side.
type CreateItemInput struct {
	ProductID primitive.ObjectID
	Quantity  int
}

// CreateInput is a checkout request. Tax, shipping and discount are taken as
// sent; the subtotal is always recomputed from current catalog prices and
// the grand total must agree with the recomputation within totalEpsilon.
type CreateInput struct {
	UserID          primitive.ObjectID
	Items           []CreateItemInput
	ShippingAddress models.OrderAddress
	BillingAddress  *models.OrderAddress
	PaymentMethod   string
	Tax             float64
	Shipping        float64
	Discount        float64
	Total           float64
	Notes           string
}

// UpdateStatusInput is an admin status change with optional tracking info.
type UpdateStatusInput struct {
	Status          models.OrderStatus
	Note            string
	TrackingNumber  string
	ShippingCarrier string
}

// Pagination mirrors the listing metadata the storefront consumes.
type Pagination struct {
	CurrentPage int64 `json:"currentPage"`
	TotalPages  int64 `json:"totalPages"`
	TotalOrders int64 `json:"totalOrders"`
	HasNextPage bool  `json:"hasNextPage"`
	HasPrevPage bool  `json:"hasPrevPage"`
}

// Engine implements the order lifecycle: checkout, status transitions and
// self-service cancellation, with the stock side effects each implies.
type Engine struct {
	catalog  CatalogStore
	orders   OrderStore
	carts    CartStore
	users    UserStore
	notifier Notifier

	now       func() time.Time
	newNumber func(time.Time) string
}

func NewEngine(catalog CatalogStore, orderStore OrderStore, carts CartStore, users UserStore, notifier Notifier) *Engine {
	return &Engine{
		catalog:   catalog,
		orders:    orderStore,
		carts:     carts,
		users:     users,
		notifier:  notifier,
		now:       time.Now,
		newNumber: NewOrderNumber,
	}
}

// Create runs the checkout: every line is validated against the current
// catalog before any stock moves, snapshots are taken from the catalog (not
// the client), the total is cross-checked, and the insert plus all stock
// decrements commit or roll back together.
func (e *Engine) Create(ctx context.Context, input CreateInput) (*models.Order, error) {
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	now := e.now()

	items := make([]models.OrderItem, 0, len(input.Items))
	subtotal := 0.0
	for _, item := range input.Items {
		product, err := e.catalog.FindProduct(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, &ProductUnavailableError{ProductID: item.ProductID}
			}
			return nil, err
		}
		if !product.IsActive {
			return nil, &ProductUnavailableError{ProductID: item.ProductID}
		}
		if product.Stock < item.Quantity {
			return nil, &InsufficientStockError{
				ProductID: product.ID,
				Name:      product.Name,
				Available: product.Stock,
				Requested: item.Quantity,
			}
		}

		items = append(items, models.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			Quantity:  item.Quantity,
			Price:     product.Price,
			Image:     product.PrimaryImage(),
		})
		subtotal += product.Price * float64(item.Quantity)
	}

	calculatedTotal := subtotal + input.Tax + input.Shipping - input.Discount
	if math.Abs(calculatedTotal-input.Total) > totalEpsilon {
		return nil, ErrOrderTotalMismatch
	}

	billing := input.ShippingAddress
	if input.BillingAddress != nil {
		billing = *input.BillingAddress
	}

	userID := input.UserID
	order := &models.Order{
		OrderNumber:     e.newNumber(now),
		UserID:          userID,
		Items:           items,
		ShippingAddress: input.ShippingAddress,
		BillingAddress:  billing,
		PaymentMethod:   input.PaymentMethod,
		PaymentStatus:   models.PaymentStatusPending,
		OrderStatus:     models.OrderStatusPending,
		Subtotal:        subtotal,
		Tax:             input.Tax,
		Shipping:        input.Shipping,
		Discount:        input.Discount,
		Total:           calculatedTotal,
		Currency:        "USD",
		Notes:           input.Notes,
		StatusHistory: []models.StatusHistoryEntry{
			{
				Status:    models.OrderStatusPending,
				Timestamp: now,
				Note:      "Order created",
				UpdatedBy: &userID,
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := e.orders.CreateWithStock(ctx, order)
	if errors.Is(err, ErrDuplicateOrderNumber) {
		order.OrderNumber = e.newNumber(e.now())
		err = e.orders.CreateWithStock(ctx, order)
	}
	if err != nil {
		return nil, err
	}

	// The cart must be empty before its next read, but a failure here does
	// not undo a committed order.
	if err := e.carts.Clear(ctx, input.UserID); err != nil {
		log.Println("[ORDER] [ERROR] cart clear after checkout failed:", err)
	}

	go e.sendConfirmation(input.UserID, order)

	return order, nil
}

// ListForUser returns one page of the user's own orders, newest first.
func (e *Engine) ListForUser(ctx context.Context, userID primitive.ObjectID, page, limit int64) ([]models.Order, Pagination, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	list, total, err := e.orders.ListByUser(ctx, userID, page, limit)
	if err != nil {
		return nil, Pagination{}, err
	}

	totalPages := (total + limit - 1) / limit
	return list, Pagination{
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalOrders: total,
		HasNextPage: page < totalPages,
		HasPrevPage: page > 1,
	}, nil
}

// Get returns a single order to its owner or to an admin.
func (e *Engine) Get(ctx context.Context, orderID primitive.ObjectID, requester RequestingUser) (*models.Order, error) {
	order, err := e.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.UserID != requester.ID && !requester.IsAdmin() {
		return nil, ErrAccessDenied
	}

	return order, nil
}

// Cancel is the owner-initiated cancellation. Stock restoration and the
// status flip are applied together by the store; neither happens alone.
func (e *Engine) Cancel(ctx context.Context, orderID primitive.ObjectID, requester RequestingUser, reason string) (*models.Order, error) {
	order, err := e.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.UserID != requester.ID {
		return nil, ErrAccessDenied
	}

	if !Cancellable(order.OrderStatus) {
		return nil, &OrderNotCancellableError{Status: order.OrderStatus}
	}

	if reason == "" {
		reason = "Cancelled by customer"
	}

	applyStatus(order, models.OrderStatusCancelled, reason, requester.ID, e.now())
	order.CancelReason = reason

	if err := e.orders.CancelWithRestock(ctx, order); err != nil {
		return nil, err
	}

	return order, nil
}

// UpdateStatus is the admin path. Any enum status is reachable from any
// other; the status machine is intentionally permissive. Cancelling via this
// path does not restore stock, matching the storefront's split between
// admin bookkeeping and customer cancellation.
func (e *Engine) UpdateStatus(ctx context.Context, orderID primitive.ObjectID, input UpdateStatusInput, actor RequestingUser) (*models.Order, error) {
	if !models.ValidOrderStatus(input.Status) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, input.Status)
	}

	order, err := e.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	applyStatus(order, input.Status, input.Note, actor.ID, e.now())
	if input.TrackingNumber != "" {
		order.TrackingNumber = input.TrackingNumber
	}
	if input.ShippingCarrier != "" {
		order.ShippingCarrier = input.ShippingCarrier
	}

	if err := e.orders.UpdateStatus(ctx, order); err != nil {
		return nil, err
	}

	return order, nil
}

func (e *Engine) sendConfirmation(userID primitive.ObjectID, order *models.Order) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	user, err := e.users.FindByID(ctx, userID)
	if err != nil {
		log.Println("[ORDER] [ERROR] confirmation lookup failed:", err)
		return
	}

	if err := e.notifier.SendOrderConfirmation(ctx, user, order); err != nil {
		log.Println("[ORDER] [ERROR] order confirmation failed:", err)
	}
}

func validateCreateInput(input CreateInput) error {
	if len(input.Items) == 0 {
		return fmt.Errorf("%w: at least one item is required", ErrInvalidInput)
	}
	for _, item := range input.Items {
		if item.Quantity < 1 {
			return fmt.Errorf("%w: quantity must be at least 1", ErrInvalidInput)
		}
	}
	if !models.ValidPaymentMethod(input.PaymentMethod) {
		return fmt.Errorf("%w: invalid payment method", ErrInvalidInput)
	}
	if input.Tax < 0 || input.Shipping < 0 || input.Discount < 0 || input.Total < 0 {
		return fmt.Errorf("%w: amounts cannot be negative", ErrInvalidInput)
	}
	return nil
}
