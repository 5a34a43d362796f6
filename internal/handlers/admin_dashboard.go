package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"backend/internal/models"
)

type statusCount struct {
	Status models.OrderStatus `bson:"_id" json:"status"`
	Count  int64              `bson:"count" json:"count"`
}

type monthlySale struct {
	Month int64   `bson:"month" json:"month"`
	Year  int64   `bson:"year" json:"year"`
	Total float64 `bson:"total" json:"total"`
	Count int64   `bson:"count" json:"count"`
}

// GetDashboardStats aggregates the read-only numbers the admin dashboard
// renders. Cancelled orders are excluded from revenue.
func GetDashboardStats(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/admin/dashboard"
		defer handlePanic(c, route)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		totalUsers, err := db.Collection("users").CountDocuments(ctx, bson.M{"isActive": true})
		if err != nil {
			log.Println("[ADMIN] [ERROR] dashboard user count failed:", err)
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		totalProducts, err := db.Collection("products").CountDocuments(ctx, bson.M{"isActive": true})
		if err != nil {
			log.Println("[ADMIN] [ERROR] dashboard product count failed:", err)
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		totalOrders, err := db.Collection("orders").CountDocuments(ctx, bson.M{})
		if err != nil {
			log.Println("[ADMIN] [ERROR] dashboard order count failed:", err)
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		pendingOrders, err := db.Collection("orders").CountDocuments(ctx, bson.M{"orderStatus": models.OrderStatusPending})
		if err != nil {
			log.Println("[ADMIN] [ERROR] dashboard pending count failed:", err)
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		now := time.Now()
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		yearStart := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())

		totalRevenue, err := sumOrderTotals(ctx, db, bson.M{
			"orderStatus": bson.M{"$ne": models.OrderStatusCancelled},
		})
		if err != nil {
			log.Println("[ADMIN] [ERROR] dashboard revenue failed:", err)
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		monthlyRevenue, err := sumOrderTotals(ctx, db, bson.M{
			"orderStatus": bson.M{"$ne": models.OrderStatusCancelled},
			"createdAt":   bson.M{"$gte": monthStart},
		})
		if err != nil {
			log.Println("[ADMIN] [ERROR] dashboard monthly revenue failed:", err)
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		statusStats, err := orderStatusBreakdown(ctx, db)
		if err != nil {
			log.Println("[ADMIN] [ERROR] dashboard status breakdown failed:", err)
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		monthlySales, err := monthlySalesSeries(ctx, db, yearStart)
		if err != nil {
			log.Println("[ADMIN] [ERROR] dashboard monthly sales failed:", err)
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		recentOrders, err := recentOrdersList(ctx, db, 5)
		if err != nil {
			log.Println("[ADMIN] [ERROR] dashboard recent orders failed:", err)
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		lowStock, err := lowStockProducts(ctx, db, 10)
		if err != nil {
			log.Println("[ADMIN] [ERROR] dashboard low stock failed:", err)
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data": gin.H{
				"stats": gin.H{
					"totalUsers":     totalUsers,
					"totalProducts":  totalProducts,
					"totalOrders":    totalOrders,
					"pendingOrders":  pendingOrders,
					"totalRevenue":   totalRevenue,
					"monthlyRevenue": monthlyRevenue,
				},
				"recentOrders":     recentOrders,
				"lowStockProducts": lowStock,
				"orderStatusStats": statusStats,
				"monthlySales":     monthlySales,
			},
		})
	}
}

func sumOrderTotals(ctx context.Context, db *mongo.Database, match bson.M) (float64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{"_id": nil, "total": bson.M{"$sum": "$total"}}}},
	}

	cursor, err := db.Collection("orders").Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	defer cursor.Close(ctx)

	var results []struct {
		Total float64 `bson:"total"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return 0, err
	}
	if len(results) == 0 {
		return 0, nil
	}
	return results[0].Total, nil
}

func orderStatusBreakdown(ctx context.Context, db *mongo.Database) ([]statusCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$orderStatus", "count": bson.M{"$sum": 1}}}},
	}

	cursor, err := db.Collection("orders").Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	stats := make([]statusCount, 0)
	if err := cursor.All(ctx, &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

func monthlySalesSeries(ctx context.Context, db *mongo.Database, since time.Time) ([]monthlySale, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"orderStatus": bson.M{"$ne": models.OrderStatusCancelled},
			"createdAt":   bson.M{"$gte": since},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id": bson.M{
				"month": bson.M{"$month": "$createdAt"},
				"year":  bson.M{"$year": "$createdAt"},
			},
			"total": bson.M{"$sum": "$total"},
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id.year", Value: 1}, {Key: "_id.month", Value: 1}}}},
		{{Key: "$project", Value: bson.M{
			"_id":   0,
			"month": "$_id.month",
			"year":  "$_id.year",
			"total": 1,
			"count": 1,
		}}},
	}

	cursor, err := db.Collection("orders").Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	sales := make([]monthlySale, 0)
	if err := cursor.All(ctx, &sales); err != nil {
		return nil, err
	}
	return sales, nil
}

func recentOrdersList(ctx context.Context, db *mongo.Database, limit int64) ([]models.Order, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit)

	cursor, err := db.Collection("orders").Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	list := make([]models.Order, 0, limit)
	if err := cursor.All(ctx, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func lowStockProducts(ctx context.Context, db *mongo.Database, threshold int) ([]models.Product, error) {
	opts := options.Find().SetLimit(10)
	cursor, err := db.Collection("products").Find(ctx, bson.M{
		"stock":    bson.M{"$lte": threshold},
		"isActive": true,
	}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	list := make([]models.Product, 0)
	if err := cursor.All(ctx, &list); err != nil {
		return nil, err
	}
	return list, nil
}
