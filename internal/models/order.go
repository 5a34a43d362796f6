package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrderStatus is the closed set of order lifecycle states. Transitions are
// deliberately permissive for admins; only values outside the set are
// rejected.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusReturned   OrderStatus = "returned"
)

// ValidOrderStatus reports whether s is a member of the status enum.
func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled,
		OrderStatusReturned:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusPending           PaymentStatus = "pending"
	PaymentStatusPaid              PaymentStatus = "paid"
	PaymentStatusFailed            PaymentStatus = "failed"
	PaymentStatusRefunded          PaymentStatus = "refunded"
	PaymentStatusPartiallyRefunded PaymentStatus = "partially_refunded"
)

const (
	PaymentMethodCard           = "card"
	PaymentMethodPaypal         = "paypal"
	PaymentMethodBankTransfer   = "bank_transfer"
	PaymentMethodCashOnDelivery = "cash_on_delivery"
)

// ValidPaymentMethod reports whether m is an accepted payment method.
func ValidPaymentMethod(m string) bool {
	switch m {
	case PaymentMethodCard, PaymentMethodPaypal, PaymentMethodBankTransfer, PaymentMethodCashOnDelivery:
		return true
	}
	return false
}

// OrderItem is a frozen snapshot of a product at checkout time. Name, price
// and image never change afterwards, even if the product does.
type OrderItem struct {
	ProductID primitive.ObjectID `bson:"product" json:"product"`
	Name      string             `bson:"name" json:"name"`
	Quantity  int                `bson:"quantity" json:"quantity"`
	Price     float64            `bson:"price" json:"price"`
	Image     string             `bson:"image,omitempty" json:"image,omitempty"`
}

// OrderAddress is embedded on the order so later profile edits cannot
// rewrite where an order shipped.
type OrderAddress struct {
	FirstName string `bson:"firstName" json:"firstName"`
	LastName  string `bson:"lastName" json:"lastName"`
	Street    string `bson:"street" json:"street"`
	City      string `bson:"city" json:"city"`
	State     string `bson:"state" json:"state"`
	ZipCode   string `bson:"zipCode" json:"zipCode"`
	Country   string `bson:"country" json:"country"`
	Phone     string `bson:"phone,omitempty" json:"phone,omitempty"`
}

// StatusHistoryEntry is one element of the append-only status audit log.
type StatusHistoryEntry struct {
	Status    OrderStatus         `bson:"status" json:"status"`
	Timestamp time.Time           `bson:"timestamp" json:"timestamp"`
	Note      string              `bson:"note,omitempty" json:"note,omitempty"`
	UpdatedBy *primitive.ObjectID `bson:"updatedBy,omitempty" json:"updatedBy,omitempty"`
}

// Order is the persisted order document. Orders are never hard-deleted;
// status changes mutate orderStatus and append to statusHistory.
type Order struct {
	ID                primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	OrderNumber       string               `bson:"orderNumber" json:"orderNumber"`
	UserID            primitive.ObjectID   `bson:"user" json:"user"`
	Items             []OrderItem          `bson:"items" json:"items"`
	ShippingAddress   OrderAddress         `bson:"shippingAddress" json:"shippingAddress"`
	BillingAddress    OrderAddress         `bson:"billingAddress" json:"billingAddress"`
	PaymentMethod     string               `bson:"paymentMethod" json:"paymentMethod"`
	PaymentStatus     PaymentStatus        `bson:"paymentStatus" json:"paymentStatus"`
	OrderStatus       OrderStatus          `bson:"orderStatus" json:"orderStatus"`
	Subtotal          float64              `bson:"subtotal" json:"subtotal"`
	Tax               float64              `bson:"tax" json:"tax"`
	Shipping          float64              `bson:"shipping" json:"shipping"`
	Discount          float64              `bson:"discount" json:"discount"`
	Total             float64              `bson:"total" json:"total"`
	Currency          string               `bson:"currency" json:"currency"`
	Notes             string               `bson:"notes,omitempty" json:"notes,omitempty"`
	TrackingNumber    string               `bson:"trackingNumber,omitempty" json:"trackingNumber,omitempty"`
	ShippingCarrier   string               `bson:"shippingCarrier,omitempty" json:"shippingCarrier,omitempty"`
	EstimatedDelivery *time.Time           `bson:"estimatedDelivery,omitempty" json:"estimatedDelivery,omitempty"`
	DeliveredAt       *time.Time           `bson:"deliveredAt,omitempty" json:"deliveredAt,omitempty"`
	CancelledAt       *time.Time           `bson:"cancelledAt,omitempty" json:"cancelledAt,omitempty"`
	CancelReason      string               `bson:"cancelReason,omitempty" json:"cancelReason,omitempty"`
	StatusHistory     []StatusHistoryEntry `bson:"statusHistory" json:"statusHistory"`
	CreatedAt         time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time            `bson:"updatedAt" json:"updatedAt"`
}
