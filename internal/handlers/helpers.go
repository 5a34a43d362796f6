package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"backend/internal/models"
	"backend/internal/orders"
)

func handlePanic(c *gin.Context, route string) {
	if r := recover(); r != nil {
		log.Printf("[%s] panic recovered: %v", route, r)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "message": "internal server error"})
	}
}

func ensureDBConnection(ctx context.Context, db *mongo.Database) error {
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return db.Client().Ping(checkCtx, readpref.Primary())
}

func respondError(c *gin.Context, status int, route string, message string) {
	log.Printf("[%s] returning error %d: %s", route, status, message)
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}

// respondValidationError turns binding failures into the field/message list
// the storefront renders next to form inputs.
func respondValidationError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		details := make([]gin.H, 0, len(validationErrors))
		for _, fieldError := range validationErrors {
			field := lowerCamel(fieldError.Field())
			switch fieldError.Tag() {
			case "required":
				details = append(details, gin.H{"field": field, "message": fmt.Sprintf("%s is required", field)})
			case "min":
				details = append(details, gin.H{"field": field, "message": fmt.Sprintf("%s is too small", field)})
			case "oneof":
				details = append(details, gin.H{"field": field, "message": fmt.Sprintf("%s has an invalid value", field)})
			default:
				details = append(details, gin.H{"field": field, "message": fmt.Sprintf("%s is invalid", field)})
			}
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "validation failed",
			"errors":  details,
		})
		return
	}

	c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid request body"})
}

func lowerCamel(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}

// requestUser reads the identity the auth middleware stored on the context.
func requestUser(c *gin.Context) (orders.RequestingUser, bool) {
	userIDValue, ok := c.Get("userId")
	if !ok {
		return orders.RequestingUser{}, false
	}
	userID, ok := userIDValue.(primitive.ObjectID)
	if !ok {
		return orders.RequestingUser{}, false
	}

	role := models.RoleUser
	if roleValue, ok := c.Get("role"); ok {
		if r, ok := roleValue.(string); ok && r != "" {
			role = r
		}
	}

	return orders.RequestingUser{ID: userID, Role: role}, true
}

func parsePaginationParams(pageStr, limitStr string, defaultLimit int64) (int64, int64, error) {
	page := int64(1)
	limit := defaultLimit

	if pageStr != "" {
		p, err := strconv.ParseInt(pageStr, 10, 64)
		if err != nil || p < 1 {
			return 0, 0, errors.New("invalid page parameter")
		}
		page = p
	}

	if limitStr != "" {
		l, err := strconv.ParseInt(limitStr, 10, 64)
		if err != nil || l < 1 || l > 100 {
			return 0, 0, errors.New("invalid limit parameter")
		}
		limit = l
	}

	return page, limit, nil
}
