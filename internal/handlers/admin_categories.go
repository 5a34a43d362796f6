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
	"go.mongodb.org/mongo-driver/mongo/options"

	"backend/internal/models"
)

type createCategoryRequest struct {
	Name        string `json:"name" binding:"required,min=2"`
	Description string `json:"description"`
}

type updateCategoryRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"isActive"`
}

func findOneAndUpdateReturnAfter() *options.FindOneAndUpdateOptions {
	return options.FindOneAndUpdate().SetReturnDocument(options.After)
}

// categoryUpdateSet builds the partial update, always stamping updatedAt.
func categoryUpdateSet(req updateCategoryRequest, now time.Time) (bson.M, error) {
	set := bson.M{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if len(name) < 2 {
			return nil, errors.New("name must be at least 2 characters")
		}
		set["name"] = name
	}
	if req.Description != nil {
		set["description"] = strings.TrimSpace(*req.Description)
	}
	if req.IsActive != nil {
		set["isActive"] = *req.IsActive
	}
	if len(set) == 0 {
		return nil, errors.New("nothing to update")
	}
	set["updatedAt"] = now
	return set, nil
}

func CreateCategory(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/admin/categories"
		defer handlePanic(c, route)

		var req createCategoryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		now := time.Now()
		category := models.Category{
			Name:        strings.TrimSpace(req.Name),
			Description: strings.TrimSpace(req.Description),
			IsActive:    true,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		result, err := db.Collection("categories").InsertOne(ctx, category)
		if err != nil {
			log.Println("[ADMIN] [ERROR] category insert failed:", err)
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		category.ID = result.InsertedID.(primitive.ObjectID)
		log.Println("[ADMIN] [INFO] category created:", category.Name)
		c.JSON(http.StatusCreated, gin.H{
			"success": true,
			"message": "Category created successfully",
			"data":    gin.H{"category": category},
		})
	}
}

func UpdateCategory(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /api/admin/categories/:id"
		defer handlePanic(c, route)

		categoryID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondError(c, http.StatusBadRequest, route, "invalid category id")
			return
		}

		var req updateCategoryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		set, err := categoryUpdateSet(req, time.Now())
		if err != nil {
			respondError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var updated models.Category
		err = db.Collection("categories").FindOneAndUpdate(ctx,
			bson.M{"_id": categoryID},
			bson.M{"$set": set},
			findOneAndUpdateReturnAfter(),
		).Decode(&updated)
		if errors.Is(err, mongo.ErrNoDocuments) {
			respondError(c, http.StatusNotFound, route, "Category not found")
			return
		}
		if err != nil {
			log.Println("[ADMIN] [ERROR] category update failed:", err)
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Category updated successfully",
			"data":    gin.H{"category": updated},
		})
	}
}

func DeleteCategory(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /api/admin/categories/:id"
		defer handlePanic(c, route)

		categoryID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondError(c, http.StatusBadRequest, route, "invalid category id")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		result, err := db.Collection("categories").UpdateOne(ctx,
			bson.M{"_id": categoryID},
			bson.M{"$set": bson.M{"isActive": false, "updatedAt": time.Now()}},
		)
		if err != nil {
			log.Println("[ADMIN] [ERROR] category delete failed:", err)
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if result.MatchedCount == 0 {
			respondError(c, http.StatusNotFound, route, "Category not found")
			return
		}

		log.Println("[ADMIN] [INFO] category deactivated:", categoryID.Hex())
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Category deleted successfully",
		})
	}
}
