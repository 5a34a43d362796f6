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

// userListFilter builds the back-office user query: optional role and
// isActive filters plus a case-insensitive name/email search.
func userListFilter(role, isActive, search string) bson.M {
	filter := bson.M{}
	if role != "" {
		filter["role"] = role
	}
	if isActive != "" {
		filter["isActive"] = isActive == "true"
	}
	if search != "" {
		pattern := primitive.Regex{Pattern: search, Options: "i"}
		filter["$or"] = []bson.M{
			{"firstName": pattern},
			{"lastName": pattern},
			{"email": pattern},
		}
	}
	return filter
}

func GetAllUsers(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/admin/users"
		defer handlePanic(c, route)

		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"), 10)
		if err != nil {
			respondError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		filter := userListFilter(
			strings.TrimSpace(c.Query("role")),
			strings.TrimSpace(c.Query("isActive")),
			strings.TrimSpace(c.Query("search")),
		)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		total, err := db.Collection("users").CountDocuments(ctx, filter)
		if err != nil {
			log.Println("[ADMIN] [ERROR] user count failed:", err)
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		opts := options.Find().
			SetSort(bson.D{{Key: "createdAt", Value: -1}}).
			SetSkip((page - 1) * limit).
			SetLimit(limit)

		cursor, err := db.Collection("users").Find(ctx, filter, opts)
		if err != nil {
			log.Println("[ADMIN] [ERROR] user list failed:", err)
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		defer cursor.Close(ctx)

		list := make([]models.User, 0, limit)
		if err := cursor.All(ctx, &list); err != nil {
			log.Println("[ADMIN] [ERROR] user decode failed:", err)
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		totalPages := (total + limit - 1) / limit
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data": gin.H{
				"users": list,
				"pagination": gin.H{
					"currentPage": page,
					"totalPages":  totalPages,
					"totalUsers":  total,
					"hasNextPage": page < totalPages,
					"hasPrevPage": page > 1,
				},
			},
		})
	}
}

// ToggleUserStatus flips a user's isActive flag. Deactivated users fail the
// login check; existing tokens stay valid until they expire.
func ToggleUserStatus(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /api/admin/users/:id/toggle-status"
		defer handlePanic(c, route)

		userID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondError(c, http.StatusBadRequest, route, "invalid user id")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var user models.User
		if err := db.Collection("users").FindOne(ctx, bson.M{"_id": userID}).Decode(&user); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				respondError(c, http.StatusNotFound, route, "User not found")
				return
			}
			log.Println("[ADMIN] [ERROR] user lookup failed:", err)
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		user.IsActive = !user.IsActive
		user.UpdatedAt = time.Now()

		_, err = db.Collection("users").UpdateByID(ctx, userID, bson.M{
			"$set": bson.M{"isActive": user.IsActive, "updatedAt": user.UpdatedAt},
		})
		if err != nil {
			log.Println("[ADMIN] [ERROR] user status update failed:", err)
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		message := "User deactivated successfully"
		if user.IsActive {
			message = "User activated successfully"
		}

		log.Println("[ADMIN] [INFO] user status toggled:", userID.Hex(), "->", user.IsActive)
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": message,
			"data":    gin.H{"user": user},
		})
	}
}
