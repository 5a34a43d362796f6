package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"backend/internal/models"
	"backend/internal/orders"
)

// OrderStore persists orders and the stock mutations tied to them.
type OrderStore struct {
	db *mongo.Database
}

func NewOrderStore(db *mongo.Database) *OrderStore {
	return &OrderStore{db: db}
}

// CreateWithStock decrements stock per line item and inserts the order in a
// single transaction. Each decrement filters on stock >= quantity, so two
// concurrent checkouts cannot both win the last units; the loser aborts with
// no net stock change.
func (s *OrderStore) CreateWithStock(ctx context.Context, order *models.Order) error {
	session, err := s.db.Client().StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		for _, item := range order.Items {
			filter := bson.M{
				"_id":      item.ProductID,
				"isActive": true,
				"stock":    bson.M{"$gte": item.Quantity},
			}
			update := bson.M{
				"$inc": bson.M{"stock": -item.Quantity},
				"$set": bson.M{"updatedAt": order.CreatedAt},
			}

			res, err := s.db.Collection("products").UpdateOne(sessCtx, filter, update)
			if err != nil {
				return nil, err
			}
			if res.MatchedCount == 0 {
				return nil, s.stockFailure(sessCtx, item)
			}
		}

		res, err := s.db.Collection("orders").InsertOne(sessCtx, order)
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return nil, orders.ErrDuplicateOrderNumber
			}
			return nil, err
		}
		if id, ok := res.InsertedID.(primitive.ObjectID); ok {
			order.ID = id
		}
		return nil, nil
	})
	return err
}

// stockFailure distinguishes a vanished/inactive product from a genuine
// stock shortfall so the caller gets an actionable error either way.
func (s *OrderStore) stockFailure(ctx context.Context, item models.OrderItem) error {
	var product models.Product
	err := s.db.Collection("products").FindOne(ctx, bson.M{"_id": item.ProductID}).Decode(&product)
	if err == mongo.ErrNoDocuments {
		return &orders.ProductUnavailableError{ProductID: item.ProductID}
	}
	if err != nil {
		return err
	}
	if !product.IsActive {
		return &orders.ProductUnavailableError{ProductID: item.ProductID}
	}
	return &orders.InsufficientStockError{
		ProductID: item.ProductID,
		Name:      product.Name,
		Available: product.Stock,
		Requested: item.Quantity,
	}
}

func (s *OrderStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	var order models.Order
	err := s.db.Collection("orders").FindOne(ctx, bson.M{"_id": id}).Decode(&order)
	if err == mongo.ErrNoDocuments {
		return nil, orders.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *OrderStore) ListByUser(ctx context.Context, userID primitive.ObjectID, page, limit int64) ([]models.Order, int64, error) {
	filter := bson.M{"user": userID}

	total, err := s.db.Collection("orders").CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)

	cursor, err := s.db.Collection("orders").Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	list := make([]models.Order, 0, limit)
	if err := cursor.All(ctx, &list); err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// UpdateStatus persists a status change: the status fields are overwritten
// and only the newest history entry is pushed, keeping the stored history
// strictly append-only.
func (s *OrderStore) UpdateStatus(ctx context.Context, order *models.Order) error {
	set := bson.M{
		"orderStatus": order.OrderStatus,
		"updatedAt":   order.UpdatedAt,
	}
	if order.TrackingNumber != "" {
		set["trackingNumber"] = order.TrackingNumber
	}
	if order.ShippingCarrier != "" {
		set["shippingCarrier"] = order.ShippingCarrier
	}
	if order.DeliveredAt != nil {
		set["deliveredAt"] = order.DeliveredAt
	}
	if order.CancelledAt != nil {
		set["cancelledAt"] = order.CancelledAt
	}

	update := bson.M{
		"$set":  set,
		"$push": bson.M{"statusHistory": order.StatusHistory[len(order.StatusHistory)-1]},
	}

	res, err := s.db.Collection("orders").UpdateByID(ctx, order.ID, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return orders.ErrNotFound
	}
	return nil
}

// CancelWithRestock flips the order to cancelled and restores stock in one
// transaction. The status flip is conditional on the order still being
// cancellable, so the restock can fire at most once per order even under
// concurrent cancel attempts.
func (s *OrderStore) CancelWithRestock(ctx context.Context, order *models.Order) error {
	session, err := s.db.Client().StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		filter := bson.M{
			"_id": order.ID,
			"orderStatus": bson.M{"$nin": []models.OrderStatus{
				models.OrderStatusShipped,
				models.OrderStatusDelivered,
				models.OrderStatusCancelled,
			}},
		}
		update := bson.M{
			"$set": bson.M{
				"orderStatus":  order.OrderStatus,
				"cancelReason": order.CancelReason,
				"cancelledAt":  order.CancelledAt,
				"updatedAt":    order.UpdatedAt,
			},
			"$push": bson.M{"statusHistory": order.StatusHistory[len(order.StatusHistory)-1]},
		}

		res, err := s.db.Collection("orders").UpdateOne(sessCtx, filter, update)
		if err != nil {
			return nil, err
		}
		if res.MatchedCount == 0 {
			var current models.Order
			err := s.db.Collection("orders").FindOne(sessCtx, bson.M{"_id": order.ID}).Decode(&current)
			if err == mongo.ErrNoDocuments {
				return nil, orders.ErrNotFound
			}
			if err != nil {
				return nil, err
			}
			return nil, &orders.OrderNotCancellableError{Status: current.OrderStatus}
		}

		for _, item := range order.Items {
			_, err := s.db.Collection("products").UpdateByID(sessCtx,
				item.ProductID,
				bson.M{"$inc": bson.M{"stock": item.Quantity}},
			)
			if err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}
