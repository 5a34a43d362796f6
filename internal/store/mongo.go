// Package store provides the MongoDB implementations of the order engine's
// storage ports.
package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"backend/internal/models"
	"backend/internal/orders"
)

// CatalogStore reads products for checkout validation.
type CatalogStore struct {
	db *mongo.Database
}

func NewCatalogStore(db *mongo.Database) *CatalogStore {
	return &CatalogStore{db: db}
}

func (s *CatalogStore) FindProduct(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	var product models.Product
	err := s.db.Collection("products").FindOne(ctx, bson.M{"_id": id}).Decode(&product)
	if err == mongo.ErrNoDocuments {
		return nil, orders.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	product.InStock = product.Stock > 0
	return &product, nil
}

// CartStore empties a user's cart after a committed checkout.
type CartStore struct {
	db *mongo.Database
}

func NewCartStore(db *mongo.Database) *CartStore {
	return &CartStore{db: db}
}

func (s *CartStore) Clear(ctx context.Context, userID primitive.ObjectID) error {
	_, err := s.db.Collection("carts").UpdateOne(ctx,
		bson.M{"user": userID},
		bson.M{"$set": bson.M{"items": []models.CartItem{}, "updatedAt": time.Now()}},
	)
	return err
}

// UserStore resolves order owners for confirmation notifications.
type UserStore struct {
	db *mongo.Database
}

func NewUserStore(db *mongo.Database) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := s.db.Collection("users").FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, orders.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
