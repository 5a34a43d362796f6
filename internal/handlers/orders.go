package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"backend/internal/models"
	"backend/internal/orders"
)

type orderAddressRequest struct {
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName" binding:"required"`
	Street    string `json:"street" binding:"required"`
	City      string `json:"city" binding:"required"`
	State     string `json:"state" binding:"required"`
	ZipCode   string `json:"zipCode" binding:"required"`
	Country   string `json:"country"`
	Phone     string `json:"phone"`
}

func (r orderAddressRequest) toAddress() models.OrderAddress {
	country := strings.TrimSpace(r.Country)
	if country == "" {
		country = "US"
	}
	return models.OrderAddress{
		FirstName: strings.TrimSpace(r.FirstName),
		LastName:  strings.TrimSpace(r.LastName),
		Street:    strings.TrimSpace(r.Street),
		City:      strings.TrimSpace(r.City),
		State:     strings.TrimSpace(r.State),
		ZipCode:   strings.TrimSpace(r.ZipCode),
		Country:   country,
		Phone:     strings.TrimSpace(r.Phone),
	}
}

type createOrderItemRequest struct {
	Product  string `json:"product" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,min=1"`
}

type createOrderRequest struct {
	Items           []createOrderItemRequest `json:"items" binding:"required,min=1,dive"`
	ShippingAddress orderAddressRequest      `json:"shippingAddress" binding:"required"`
	BillingAddress  *orderAddressRequest     `json:"billingAddress"`
	PaymentMethod   string                   `json:"paymentMethod" binding:"required"`
	Subtotal        float64                  `json:"subtotal"`
	Tax             float64                  `json:"tax"`
	Shipping        float64                  `json:"shipping"`
	Discount        float64                  `json:"discount"`
	Total           float64                  `json:"total" binding:"required"`
	Notes           string                   `json:"notes"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

type updateOrderStatusRequest struct {
	Status          string `json:"status" binding:"required"`
	Note            string `json:"note"`
	TrackingNumber  string `json:"trackingNumber"`
	ShippingCarrier string `json:"shippingCarrier"`
}

// respondOrderError maps engine error kinds onto the storefront's response
// envelope. Conflict and state errors carry actionable messages; access
// errors never leak order contents.
func respondOrderError(c *gin.Context, route string, err error) {
	var stockErr *orders.InsufficientStockError
	if errors.As(err, &stockErr) {
		respondError(c, http.StatusBadRequest, route,
			fmt.Sprintf("Insufficient stock for %s. Only %d available", stockErr.Name, stockErr.Available))
		return
	}

	var unavailableErr *orders.ProductUnavailableError
	if errors.As(err, &unavailableErr) {
		respondError(c, http.StatusBadRequest, route,
			fmt.Sprintf("Product %s not found or unavailable", unavailableErr.ProductID.Hex()))
		return
	}

	var cancelErr *orders.OrderNotCancellableError
	if errors.As(err, &cancelErr) {
		respondError(c, http.StatusBadRequest, route,
			fmt.Sprintf("Cannot cancel order with status: %s", cancelErr.Status))
		return
	}

	switch {
	case errors.Is(err, orders.ErrNotFound):
		respondError(c, http.StatusNotFound, route, "Order not found")
	case errors.Is(err, orders.ErrAccessDenied):
		respondError(c, http.StatusForbidden, route, "Access denied")
	case errors.Is(err, orders.ErrOrderTotalMismatch):
		respondError(c, http.StatusBadRequest, route, "Order total mismatch")
	case errors.Is(err, orders.ErrInvalidStatus), errors.Is(err, orders.ErrInvalidInput):
		respondError(c, http.StatusBadRequest, route, err.Error())
	default:
		log.Printf("[%s] engine error: %v", route, err)
		respondError(c, http.StatusInternalServerError, route, "server error")
	}
}

func CreateOrder(engine *orders.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/orders"
		defer handlePanic(c, route)

		requester, ok := requestUser(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		var req createOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		items := make([]orders.CreateItemInput, 0, len(req.Items))
		for _, item := range req.Items {
			productID, err := primitive.ObjectIDFromHex(strings.TrimSpace(item.Product))
			if err != nil {
				respondError(c, http.StatusBadRequest, route, "invalid product id")
				return
			}
			items = append(items, orders.CreateItemInput{ProductID: productID, Quantity: item.Quantity})
		}

		input := orders.CreateInput{
			UserID:          requester.ID,
			Items:           items,
			ShippingAddress: req.ShippingAddress.toAddress(),
			PaymentMethod:   req.PaymentMethod,
			Tax:             req.Tax,
			Shipping:        req.Shipping,
			Discount:        req.Discount,
			Total:           req.Total,
			Notes:           strings.TrimSpace(req.Notes),
		}
		if req.BillingAddress != nil {
			billing := req.BillingAddress.toAddress()
			input.BillingAddress = &billing
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		order, err := engine.Create(ctx, input)
		if err != nil {
			respondOrderError(c, route, err)
			return
		}

		log.Println("[ORDER] [INFO] order created:", order.OrderNumber)
		c.JSON(http.StatusCreated, gin.H{
			"success": true,
			"message": "Order created successfully",
			"data":    gin.H{"order": order},
		})
	}
}

func GetMyOrders(engine *orders.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/orders"
		defer handlePanic(c, route)

		requester, ok := requestUser(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"), 10)
		if err != nil {
			respondError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		list, pagination, err := engine.ListForUser(ctx, requester.ID, page, limit)
		if err != nil {
			respondOrderError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data": gin.H{
				"orders":     list,
				"pagination": pagination,
			},
		})
	}
}

func GetOrder(engine *orders.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/orders/:id"
		defer handlePanic(c, route)

		requester, ok := requestUser(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		orderID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondError(c, http.StatusBadRequest, route, "invalid order id")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		order, err := engine.Get(ctx, orderID, requester)
		if err != nil {
			respondOrderError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"order": order}})
	}
}

func CancelOrder(engine *orders.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /api/orders/:id/cancel"
		defer handlePanic(c, route)

		requester, ok := requestUser(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		orderID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondError(c, http.StatusBadRequest, route, "invalid order id")
			return
		}

		var req cancelOrderRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				respondValidationError(c, err)
				return
			}
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		order, err := engine.Cancel(ctx, orderID, requester, strings.TrimSpace(req.Reason))
		if err != nil {
			respondOrderError(c, route, err)
			return
		}

		log.Println("[ORDER] [INFO] order cancelled:", order.OrderNumber)
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Order cancelled successfully",
			"data":    gin.H{"order": order},
		})
	}
}

// UpdateOrderStatus is the admin status path; any enum status is accepted.
func UpdateOrderStatus(engine *orders.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /api/admin/orders/:id/status"
		defer handlePanic(c, route)

		requester, ok := requestUser(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		orderID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondError(c, http.StatusBadRequest, route, "invalid order id")
			return
		}

		var req updateOrderStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		order, err := engine.UpdateStatus(ctx, orderID, orders.UpdateStatusInput{
			Status:          models.OrderStatus(req.Status),
			Note:            strings.TrimSpace(req.Note),
			TrackingNumber:  strings.TrimSpace(req.TrackingNumber),
			ShippingCarrier: strings.TrimSpace(req.ShippingCarrier),
		}, requester)
		if err != nil {
			respondOrderError(c, route, err)
			return
		}

		log.Println("[ORDER] [INFO] order status updated:", order.OrderNumber, "->", order.OrderStatus)
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Order status updated successfully",
			"data":    gin.H{"order": order},
		})
	}
}
