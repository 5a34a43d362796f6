package handlers

import (
	"context"
	"fmt"
	"log"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"backend/internal/models"
)

const (
	cartTaxRate           = 0.08
	cartFlatShippingFee   = 9.99
	freeShippingThreshold = 100.0
)

type addToCartRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity"`
}

type updateCartRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required"`
}

type cartViewItem struct {
	Product  models.Product `json:"product"`
	Quantity int            `json:"quantity"`
	Price    float64        `json:"price"`
	Total    float64        `json:"total"`
}

type cartView struct {
	Items     []cartViewItem `json:"items"`
	Subtotal  float64        `json:"subtotal"`
	Tax       float64        `json:"tax"`
	Shipping  float64        `json:"shipping"`
	Total     float64        `json:"total"`
	ItemCount int            `json:"itemCount"`
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// cartTotals derives tax and shipping from the subtotal: 8% tax, and a flat
// shipping fee waived above the free-shipping threshold.
func cartTotals(subtotal float64) (tax, shipping, total float64) {
	tax = round2(subtotal * cartTaxRate)
	shipping = cartFlatShippingFee
	if subtotal > freeShippingThreshold {
		shipping = 0
	}
	total = round2(subtotal + tax + shipping)
	return tax, shipping, total
}

// buildCartView materializes the cart against current catalog state. Items
// whose product is missing or inactive are pruned silently; prices come from
// the catalog, never from the stored snapshot. The returned kept slice is
// what should be persisted when pruned is true.
func buildCartView(items []models.CartItem, products map[primitive.ObjectID]models.Product) (cartView, []models.CartItem, bool) {
	view := cartView{Items: make([]cartViewItem, 0, len(items))}
	kept := make([]models.CartItem, 0, len(items))
	subtotal := 0.0

	for _, item := range items {
		product, ok := products[item.ProductID]
		if !ok || !product.IsActive {
			continue
		}
		product.InStock = product.Stock > 0

		itemTotal := round2(product.Price * float64(item.Quantity))
		subtotal += product.Price * float64(item.Quantity)

		view.Items = append(view.Items, cartViewItem{
			Product:  product,
			Quantity: item.Quantity,
			Price:    product.Price,
			Total:    itemTotal,
		})
		view.ItemCount += item.Quantity

		item.Price = product.Price
		kept = append(kept, item)
	}

	view.Subtotal = round2(subtotal)
	view.Tax, view.Shipping, view.Total = cartTotals(view.Subtotal)

	return view, kept, len(kept) != len(items)
}

// loadCart fetches the user's cart, creating an empty one on first access.
func loadCart(ctx context.Context, db *mongo.Database, userID primitive.ObjectID) (*models.Cart, error) {
	var cart models.Cart
	err := db.Collection("carts").FindOne(ctx, bson.M{"user": userID}).Decode(&cart)
	if err == nil {
		return &cart, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, err
	}

	now := time.Now()
	cart = models.Cart{
		UserID:    userID,
		Items:     []models.CartItem{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	res, err := db.Collection("carts").InsertOne(ctx, cart)
	if err != nil {
		return nil, err
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		cart.ID = id
	}
	return &cart, nil
}

func fetchCartProducts(ctx context.Context, db *mongo.Database, items []models.CartItem) (map[primitive.ObjectID]models.Product, error) {
	if len(items) == 0 {
		return map[primitive.ObjectID]models.Product{}, nil
	}

	ids := make([]primitive.ObjectID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}

	cursor, err := db.Collection("products").Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var products []models.Product
	if err := cursor.All(ctx, &products); err != nil {
		return nil, err
	}

	byID := make(map[primitive.ObjectID]models.Product, len(products))
	for _, product := range products {
		byID[product.ID] = product
	}
	return byID, nil
}

func persistCartItems(ctx context.Context, db *mongo.Database, cartID primitive.ObjectID, items []models.CartItem) error {
	_, err := db.Collection("carts").UpdateByID(ctx, cartID, bson.M{
		"$set": bson.M{"items": items, "updatedAt": time.Now()},
	})
	return err
}

func respondCart(c *gin.Context, ctx context.Context, db *mongo.Database, route string, cart *models.Cart) {
	products, err := fetchCartProducts(ctx, db, cart.Items)
	if err != nil {
		log.Println("[CART] [ERROR] product lookup failed:", err)
		respondError(c, http.StatusInternalServerError, route, "db error")
		return
	}

	view, kept, pruned := buildCartView(cart.Items, products)
	if pruned {
		if err := persistCartItems(ctx, db, cart.ID, kept); err != nil {
			log.Println("[CART] [ERROR] prune persist failed:", err)
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"cart": view}})
}

// GetCart returns the reconciled cart: stale items pruned, totals computed
// fresh from the current catalog.
func GetCart(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/cart"
		defer handlePanic(c, route)

		requester, ok := requestUser(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		cart, err := loadCart(ctx, db, requester.ID)
		if err != nil {
			log.Println("[CART] [ERROR] load failed:", err)
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		respondCart(c, ctx, db, route, cart)
	}
}

func AddToCart(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/cart/add"
		defer handlePanic(c, route)

		requester, ok := requestUser(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		var req addToCartRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		if req.Quantity <= 0 {
			req.Quantity = 1
		}

		productID, err := primitive.ObjectIDFromHex(strings.TrimSpace(req.ProductID))
		if err != nil {
			respondError(c, http.StatusBadRequest, route, "invalid productId")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var product models.Product
		err = db.Collection("products").FindOne(ctx, bson.M{"_id": productID, "isActive": true}).Decode(&product)
		if err == mongo.ErrNoDocuments {
			respondError(c, http.StatusNotFound, route, "product not found")
			return
		}
		if err != nil {
			log.Println("[CART] [ERROR] product lookup failed:", err)
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		cart, err := loadCart(ctx, db, requester.ID)
		if err != nil {
			log.Println("[CART] [ERROR] load failed:", err)
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		// At most one entry per product; adding again bumps the quantity.
		index := -1
		for i, item := range cart.Items {
			if item.ProductID == productID {
				index = i
				break
			}
		}

		newQuantity := req.Quantity
		if index > -1 {
			newQuantity += cart.Items[index].Quantity
		}
		if newQuantity > product.Stock {
			respondError(c, http.StatusBadRequest, route,
				fmt.Sprintf("insufficient stock for %s. Only %d available", product.Name, product.Stock))
			return
		}

		if index > -1 {
			cart.Items[index].Quantity = newQuantity
			cart.Items[index].Price = product.Price
		} else {
			cart.Items = append(cart.Items, models.CartItem{
				ProductID: productID,
				Quantity:  req.Quantity,
				Price:     product.Price,
				AddedAt:   time.Now(),
			})
		}

		if err := persistCartItems(ctx, db, cart.ID, cart.Items); err != nil {
			log.Println("[CART] [ERROR] add persist failed:", err)
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		respondCart(c, ctx, db, route, cart)
	}
}

func UpdateCartItem(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /api/cart/update"
		defer handlePanic(c, route)

		requester, ok := requestUser(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		var req updateCartRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		productID, err := primitive.ObjectIDFromHex(strings.TrimSpace(req.ProductID))
		if err != nil {
			respondError(c, http.StatusBadRequest, route, "invalid productId")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		cart, err := loadCart(ctx, db, requester.ID)
		if err != nil {
			log.Println("[CART] [ERROR] load failed:", err)
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		index := -1
		for i, item := range cart.Items {
			if item.ProductID == productID {
				index = i
				break
			}
		}
		if index == -1 {
			respondError(c, http.StatusNotFound, route, "item not in cart")
			return
		}

		if req.Quantity <= 0 {
			cart.Items = append(cart.Items[:index], cart.Items[index+1:]...)
		} else {
			var product models.Product
			err := db.Collection("products").FindOne(ctx, bson.M{"_id": productID, "isActive": true}).Decode(&product)
			if err == mongo.ErrNoDocuments {
				respondError(c, http.StatusNotFound, route, "product not found")
				return
			}
			if err != nil {
				log.Println("[CART] [ERROR] product lookup failed:", err)
				respondError(c, http.StatusInternalServerError, route, "db error")
				return
			}
			if req.Quantity > product.Stock {
				respondError(c, http.StatusBadRequest, route,
					fmt.Sprintf("insufficient stock for %s. Only %d available", product.Name, product.Stock))
				return
			}
			cart.Items[index].Quantity = req.Quantity
			cart.Items[index].Price = product.Price
		}

		if err := persistCartItems(ctx, db, cart.ID, cart.Items); err != nil {
			log.Println("[CART] [ERROR] update persist failed:", err)
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		respondCart(c, ctx, db, route, cart)
	}
}

func RemoveFromCart(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /api/cart/remove/:productId"
		defer handlePanic(c, route)

		requester, ok := requestUser(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		productID, err := primitive.ObjectIDFromHex(strings.TrimSpace(c.Param("productId")))
		if err != nil {
			respondError(c, http.StatusBadRequest, route, "invalid productId")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		cart, err := loadCart(ctx, db, requester.ID)
		if err != nil {
			log.Println("[CART] [ERROR] load failed:", err)
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		kept := make([]models.CartItem, 0, len(cart.Items))
		for _, item := range cart.Items {
			if item.ProductID != productID {
				kept = append(kept, item)
			}
		}
		cart.Items = kept

		if err := persistCartItems(ctx, db, cart.ID, cart.Items); err != nil {
			log.Println("[CART] [ERROR] remove persist failed:", err)
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		respondCart(c, ctx, db, route, cart)
	}
}

func ClearCart(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /api/cart/clear"
		defer handlePanic(c, route)

		requester, ok := requestUser(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		cart, err := loadCart(ctx, db, requester.ID)
		if err != nil {
			log.Println("[CART] [ERROR] load failed:", err)
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		cart.Items = []models.CartItem{}
		if err := persistCartItems(ctx, db, cart.ID, cart.Items); err != nil {
			log.Println("[CART] [ERROR] clear persist failed:", err)
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		respondCart(c, ctx, db, route, cart)
	}
}

