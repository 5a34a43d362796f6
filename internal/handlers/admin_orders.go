package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"backend/internal/models"
)

// GetAllOrders lists orders for the back office with optional status and
// payment-status filters.
func GetAllOrders(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/admin/orders"
		defer handlePanic(c, route)

		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"), 10)
		if err != nil {
			respondError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		filter := bson.M{}
		if status := strings.TrimSpace(c.Query("status")); status != "" {
			filter["orderStatus"] = status
		}
		if paymentStatus := strings.TrimSpace(c.Query("paymentStatus")); paymentStatus != "" {
			filter["paymentStatus"] = paymentStatus
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		total, err := db.Collection("orders").CountDocuments(ctx, filter)
		if err != nil {
			log.Println("[ADMIN] [ERROR] order count failed:", err)
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		opts := options.Find().
			SetSort(bson.D{{Key: "createdAt", Value: -1}}).
			SetSkip((page - 1) * limit).
			SetLimit(limit)

		cursor, err := db.Collection("orders").Find(ctx, filter, opts)
		if err != nil {
			log.Println("[ADMIN] [ERROR] order list failed:", err)
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		defer cursor.Close(ctx)

		list := make([]models.Order, 0, limit)
		if err := cursor.All(ctx, &list); err != nil {
			log.Println("[ADMIN] [ERROR] order decode failed:", err)
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		totalPages := (total + limit - 1) / limit
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data": gin.H{
				"orders": list,
				"pagination": gin.H{
					"currentPage": page,
					"totalPages":  totalPages,
					"totalOrders": total,
					"hasNextPage": page < totalPages,
					"hasPrevPage": page > 1,
				},
			},
		})
	}
}
