package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"backend/internal/models"
)

type productImageRequest struct {
	URL       string `json:"url" binding:"required"`
	Alt       string `json:"alt"`
	IsPrimary bool   `json:"isPrimary"`
}

type createProductRequest struct {
	Name        string                `json:"name" binding:"required,min=2"`
	Description string                `json:"description"`
	Price       float64               `json:"price" binding:"required,gt=0"`
	Images      []productImageRequest `json:"images"`
	Category    string                `json:"category" binding:"required"`
	Brand       string                `json:"brand"`
	SKU         string                `json:"sku"`
	Stock       *int                  `json:"stock" binding:"required,min=0"`
}

type updateProductRequest struct {
	Name        *string               `json:"name"`
	Description *string               `json:"description"`
	Price       *float64              `json:"price"`
	Images      []productImageRequest `json:"images"`
	Category    *string               `json:"category"`
	Brand       *string               `json:"brand"`
	SKU         *string               `json:"sku"`
	Stock       *int                  `json:"stock"`
	IsActive    *bool                 `json:"isActive"`
}

func toProductImages(reqs []productImageRequest) []models.ProductImage {
	images := make([]models.ProductImage, 0, len(reqs))
	for _, img := range reqs {
		images = append(images, models.ProductImage{
			URL:       strings.TrimSpace(img.URL),
			Alt:       strings.TrimSpace(img.Alt),
			IsPrimary: img.IsPrimary,
		})
	}
	return images
}

func CreateProduct(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/admin/products"
		defer handlePanic(c, route)

		var req createProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		now := time.Now()
		product := models.Product{
			Name:        strings.TrimSpace(req.Name),
			Description: strings.TrimSpace(req.Description),
			Price:       req.Price,
			Images:      toProductImages(req.Images),
			Category:    strings.TrimSpace(req.Category),
			Brand:       strings.TrimSpace(req.Brand),
			SKU:         strings.TrimSpace(req.SKU),
			Stock:       *req.Stock,
			IsActive:    true,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		result, err := db.Collection("products").InsertOne(ctx, product)
		if err != nil {
			log.Println("[ADMIN] [ERROR] product insert failed:", err)
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		product.ID = result.InsertedID.(primitive.ObjectID)
		product.InStock = product.Stock > 0
		log.Println("[ADMIN] [INFO] product created:", product.Name)
		c.JSON(http.StatusCreated, gin.H{
			"success": true,
			"message": "Product created successfully",
			"data":    gin.H{"product": product},
		})
	}
}

func UpdateProduct(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /api/admin/products/:id"
		defer handlePanic(c, route)

		productID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondError(c, http.StatusBadRequest, route, "invalid product id")
			return
		}

		var req updateProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		set := bson.M{"updatedAt": time.Now()}
		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if len(name) < 2 {
				respondError(c, http.StatusBadRequest, route, "name must be at least 2 characters")
				return
			}
			set["name"] = name
		}
		if req.Description != nil {
			set["description"] = strings.TrimSpace(*req.Description)
		}
		if req.Price != nil {
			if *req.Price <= 0 {
				respondError(c, http.StatusBadRequest, route, "price must be greater than zero")
				return
			}
			set["price"] = *req.Price
		}
		if req.Images != nil {
			set["images"] = toProductImages(req.Images)
		}
		if req.Category != nil {
			set["category"] = strings.TrimSpace(*req.Category)
		}
		if req.Brand != nil {
			set["brand"] = strings.TrimSpace(*req.Brand)
		}
		if req.SKU != nil {
			set["sku"] = strings.TrimSpace(*req.SKU)
		}
		if req.Stock != nil {
			if *req.Stock < 0 {
				respondError(c, http.StatusBadRequest, route, "stock cannot be negative")
				return
			}
			set["stock"] = *req.Stock
		}
		if req.IsActive != nil {
			set["isActive"] = *req.IsActive
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var updated models.Product
		err = db.Collection("products").FindOneAndUpdate(ctx,
			bson.M{"_id": productID},
			bson.M{"$set": set},
			findOneAndUpdateReturnAfter(),
		).Decode(&updated)
		if errors.Is(err, mongo.ErrNoDocuments) {
			respondError(c, http.StatusNotFound, route, "Product not found")
			return
		}
		if err != nil {
			log.Println("[ADMIN] [ERROR] product update failed:", err)
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		updated.InStock = updated.Stock > 0
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Product updated successfully",
			"data":    gin.H{"product": updated},
		})
	}
}

// DeleteProduct soft-deletes: the product is deactivated so existing order
// snapshots keep pointing at a real document.
func DeleteProduct(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /api/admin/products/:id"
		defer handlePanic(c, route)

		productID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondError(c, http.StatusBadRequest, route, "invalid product id")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		result, err := db.Collection("products").UpdateOne(ctx,
			bson.M{"_id": productID},
			bson.M{"$set": bson.M{"isActive": false, "updatedAt": time.Now()}},
		)
		if err != nil {
			log.Println("[ADMIN] [ERROR] product delete failed:", err)
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if result.MatchedCount == 0 {
			respondError(c, http.StatusNotFound, route, "Product not found")
			return
		}

		log.Println("[ADMIN] [INFO] product deactivated:", productID.Hex())
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Product deleted successfully",
		})
	}
}
