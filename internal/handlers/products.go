package handlers

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"backend/internal/models"
)

// GetProducts lists active catalog products with optional category, search,
// price range and stock filters.
func GetProducts(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/products"
		defer handlePanic(c, route)

		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"), 12)
		if err != nil {
			respondError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		filter := bson.M{"isActive": true}
		if category := strings.TrimSpace(c.Query("category")); category != "" {
			filter["category"] = category
		}
		if search := strings.TrimSpace(c.Query("search")); search != "" {
			filter["$text"] = bson.M{"$search": search}
		}
		if c.Query("inStock") == "true" {
			filter["stock"] = bson.M{"$gt": 0}
		}

		priceFilter := bson.M{}
		if minStr := c.Query("minPrice"); minStr != "" {
			if min, err := strconv.ParseFloat(minStr, 64); err == nil {
				priceFilter["$gte"] = min
			}
		}
		if maxStr := c.Query("maxPrice"); maxStr != "" {
			if max, err := strconv.ParseFloat(maxStr, 64); err == nil {
				priceFilter["$lte"] = max
			}
		}
		if len(priceFilter) > 0 {
			filter["price"] = priceFilter
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		total, err := db.Collection("products").CountDocuments(ctx, filter)
		if err != nil {
			log.Println("[PRODUCT] [ERROR] count failed:", err)
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		opts := options.Find().
			SetSort(bson.D{{Key: "createdAt", Value: -1}}).
			SetSkip((page - 1) * limit).
			SetLimit(limit)

		cursor, err := db.Collection("products").Find(ctx, filter, opts)
		if err != nil {
			log.Println("[PRODUCT] [ERROR] list failed:", err)
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		defer cursor.Close(ctx)

		products := make([]models.Product, 0, limit)
		if err := cursor.All(ctx, &products); err != nil {
			log.Println("[PRODUCT] [ERROR] decode failed:", err)
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		for i := range products {
			products[i].InStock = products[i].Stock > 0
		}

		totalPages := (total + limit - 1) / limit
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data": gin.H{
				"products": products,
				"pagination": gin.H{
					"currentPage":   page,
					"totalPages":    totalPages,
					"totalProducts": total,
					"hasNextPage":   page < totalPages,
					"hasPrevPage":   page > 1,
				},
			},
		})
	}
}

func GetProduct(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/products/:id"
		defer handlePanic(c, route)

		productID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondError(c, http.StatusBadRequest, route, "invalid product id")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var product models.Product
		err = db.Collection("products").FindOne(ctx, bson.M{
			"_id":      productID,
			"isActive": true,
		}).Decode(&product)
		if err == mongo.ErrNoDocuments {
			respondError(c, http.StatusNotFound, route, "product not found")
			return
		}
		if err != nil {
			log.Println("[PRODUCT] [ERROR] lookup failed:", err)
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		product.InStock = product.Stock > 0

		c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"product": product}})
	}
}
