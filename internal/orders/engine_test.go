package orders

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"backend/internal/models"
)

type engineFixture struct {
	engine  *Engine
	catalog *memCatalog
	orders  *memOrderStore
	carts   *memCartStore
	userID  primitive.ObjectID
}

var fixedNow = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

func newEngineFixture(products ...models.Product) *engineFixture {
	catalog := newMemCatalog(products...)
	orderStore := newMemOrderStore(catalog)
	carts := newMemCartStore()
	userID := primitive.NewObjectID()
	users := &memUserStore{users: map[primitive.ObjectID]models.User{
		userID: {ID: userID, Email: "buyer@example.com", FirstName: "Ada", Role: models.RoleUser, IsActive: true},
	}}

	engine := NewEngine(catalog, orderStore, carts, users, &memNotifier{})
	engine.now = func() time.Time { return fixedNow }

	seq := 0
	engine.newNumber = func(time.Time) string {
		seq++
		return []string{"SH-100000001", "SH-100000002", "SH-100000003"}[seq-1]
	}

	return &engineFixture{engine: engine, catalog: catalog, orders: orderStore, carts: carts, userID: userID}
}

func testProduct(name string, price float64, stock int) models.Product {
	return models.Product{
		ID:       primitive.NewObjectID(),
		Name:     name,
		Price:    price,
		Stock:    stock,
		IsActive: true,
		Images: []models.ProductImage{
			{URL: "https://img.example.com/" + name + ".jpg", IsPrimary: true},
		},
	}
}

func testAddress() models.OrderAddress {
	return models.OrderAddress{
		FirstName: "Ada", LastName: "Lovelace",
		Street: "1 Analytical Way", City: "London", State: "LDN",
		ZipCode: "E1 6AN", Country: "GB",
	}
}

func checkoutInput(f *engineFixture, total float64, items ...CreateItemInput) CreateInput {
	return CreateInput{
		UserID:          f.userID,
		Items:           items,
		ShippingAddress: testAddress(),
		PaymentMethod:   models.PaymentMethodCard,
		Total:           total,
	}
}

func TestCreateDecrementsStockAndSnapshotsCatalog(t *testing.T) {
	camera := testProduct("camera", 10.00, 5)
	f := newEngineFixture(camera)

	order, err := f.engine.Create(context.Background(),
		checkoutInput(f, 30.00, CreateItemInput{ProductID: camera.ID, Quantity: 3}))
	require.NoError(t, err)

	assert.Equal(t, 2, f.catalog.stock(camera.ID))
	assert.Equal(t, models.OrderStatusPending, order.OrderStatus)
	assert.Equal(t, models.PaymentStatusPending, order.PaymentStatus)
	assert.Equal(t, "SH-100000001", order.OrderNumber)
	assert.Equal(t, 30.00, order.Subtotal)
	assert.Equal(t, 30.00, order.Total)
	assert.Equal(t, "USD", order.Currency)

	require.Len(t, order.Items, 1)
	assert.Equal(t, "camera", order.Items[0].Name)
	assert.Equal(t, 10.00, order.Items[0].Price)
	assert.Equal(t, "https://img.example.com/camera.jpg", order.Items[0].Image)

	require.Len(t, order.StatusHistory, 1)
	assert.Equal(t, models.OrderStatusPending, order.StatusHistory[0].Status)
	assert.Equal(t, "Order created", order.StatusHistory[0].Note)

	assert.Equal(t, 1, f.carts.clearedCount(f.userID))
}

func TestCreateBillingDefaultsToShipping(t *testing.T) {
	camera := testProduct("camera", 10.00, 5)
	f := newEngineFixture(camera)

	order, err := f.engine.Create(context.Background(),
		checkoutInput(f, 10.00, CreateItemInput{ProductID: camera.ID, Quantity: 1}))
	require.NoError(t, err)

	assert.Equal(t, order.ShippingAddress, order.BillingAddress)
}

func TestCreateRejectsInsufficientStock(t *testing.T) {
	camera := testProduct("camera", 10.00, 2)
	f := newEngineFixture(camera)

	_, err := f.engine.Create(context.Background(),
		checkoutInput(f, 30.00, CreateItemInput{ProductID: camera.ID, Quantity: 3}))

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 2, stockErr.Available)
	assert.Equal(t, 3, stockErr.Requested)
	assert.Equal(t, "camera", stockErr.Name)

	assert.Equal(t, 2, f.catalog.stock(camera.ID))
	assert.Equal(t, 0, f.carts.clearedCount(f.userID))
}

func TestCreateValidatesEveryLineBeforeAnyDecrement(t *testing.T) {
	camera := testProduct("camera", 10.00, 5)
	sensor := testProduct("sensor", 4.00, 1)
	f := newEngineFixture(camera, sensor)

	_, err := f.engine.Create(context.Background(), checkoutInput(f, 38.00,
		CreateItemInput{ProductID: camera.ID, Quantity: 3},
		CreateItemInput{ProductID: sensor.ID, Quantity: 2},
	))

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "sensor", stockErr.Name)

	// The first line must not have moved stock.
	assert.Equal(t, 5, f.catalog.stock(camera.ID))
	assert.Equal(t, 1, f.catalog.stock(sensor.ID))
}

func TestCreateRejectsInactiveProduct(t *testing.T) {
	camera := testProduct("camera", 10.00, 5)
	camera.IsActive = false
	f := newEngineFixture(camera)

	_, err := f.engine.Create(context.Background(),
		checkoutInput(f, 10.00, CreateItemInput{ProductID: camera.ID, Quantity: 1}))

	var unavailable *ProductUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, camera.ID, unavailable.ProductID)
}

func TestCreateRejectsUnknownProduct(t *testing.T) {
	f := newEngineFixture()

	_, err := f.engine.Create(context.Background(),
		checkoutInput(f, 10.00, CreateItemInput{ProductID: primitive.NewObjectID(), Quantity: 1}))

	var unavailable *ProductUnavailableError
	require.ErrorAs(t, err, &unavailable)
}

func TestCreateRejectsTotalMismatch(t *testing.T) {
	camera := testProduct("camera", 10.00, 5)
	f := newEngineFixture(camera)

	_, err := f.engine.Create(context.Background(),
		checkoutInput(f, 25.00, CreateItemInput{ProductID: camera.ID, Quantity: 3}))
	require.ErrorIs(t, err, ErrOrderTotalMismatch)

	assert.Equal(t, 5, f.catalog.stock(camera.ID))
}

func TestCreateAcceptsTotalWithinEpsilon(t *testing.T) {
	camera := testProduct("camera", 10.00, 5)
	f := newEngineFixture(camera)

	input := checkoutInput(f, 30.005, CreateItemInput{ProductID: camera.ID, Quantity: 3})
	order, err := f.engine.Create(context.Background(), input)
	require.NoError(t, err)

	// The persisted total is the server-computed one, not the client's.
	assert.Equal(t, 30.00, order.Total)
}

func TestCreateChargesAndTaxFlowIntoTotal(t *testing.T) {
	camera := testProduct("camera", 50.00, 5)
	f := newEngineFixture(camera)

	input := checkoutInput(f, 56.99, CreateItemInput{ProductID: camera.ID, Quantity: 1})
	input.Tax = 4.00
	input.Shipping = 9.99
	input.Discount = 7.00

	order, err := f.engine.Create(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, 50.00, order.Subtotal)
	assert.InDelta(t, 56.99, order.Total, 0.0001)
}

func TestCreateInputValidation(t *testing.T) {
	camera := testProduct("camera", 10.00, 5)

	cases := []struct {
		name   string
		mutate func(f *engineFixture, in *CreateInput)
	}{
		{"no items", func(f *engineFixture, in *CreateInput) { in.Items = nil }},
		{"zero quantity", func(f *engineFixture, in *CreateInput) { in.Items[0].Quantity = 0 }},
		{"bad payment method", func(f *engineFixture, in *CreateInput) { in.PaymentMethod = "check" }},
		{"negative discount", func(f *engineFixture, in *CreateInput) { in.Discount = -1 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newEngineFixture(camera)
			input := checkoutInput(f, 30.00, CreateItemInput{ProductID: camera.ID, Quantity: 3})
			tc.mutate(f, &input)

			_, err := f.engine.Create(context.Background(), input)
			require.ErrorIs(t, err, ErrInvalidInput)
			assert.Equal(t, 5, f.catalog.stock(camera.ID))
		})
	}
}

func TestCreateRetriesOnceOnOrderNumberCollision(t *testing.T) {
	camera := testProduct("camera", 10.00, 5)
	f := newEngineFixture(camera)
	f.orders.seed(models.Order{OrderNumber: "SH-100000001", UserID: primitive.NewObjectID()})

	order, err := f.engine.Create(context.Background(),
		checkoutInput(f, 10.00, CreateItemInput{ProductID: camera.ID, Quantity: 1}))
	require.NoError(t, err)
	assert.Equal(t, "SH-100000002", order.OrderNumber)
	assert.Equal(t, 4, f.catalog.stock(camera.ID))
}

func TestCancelRestoresStockAndRecordsReason(t *testing.T) {
	camera := testProduct("camera", 10.00, 5)
	f := newEngineFixture(camera)

	created, err := f.engine.Create(context.Background(),
		checkoutInput(f, 30.00, CreateItemInput{ProductID: camera.ID, Quantity: 3}))
	require.NoError(t, err)
	require.Equal(t, 2, f.catalog.stock(camera.ID))

	cancelled, err := f.engine.Cancel(context.Background(), created.ID,
		RequestingUser{ID: f.userID, Role: models.RoleUser}, "")
	require.NoError(t, err)

	assert.Equal(t, 5, f.catalog.stock(camera.ID))
	assert.Equal(t, models.OrderStatusCancelled, cancelled.OrderStatus)
	assert.Equal(t, "Cancelled by customer", cancelled.CancelReason)
	require.NotNil(t, cancelled.CancelledAt)
	assert.Equal(t, fixedNow, *cancelled.CancelledAt)

	require.Len(t, cancelled.StatusHistory, 2)
	assert.Equal(t, models.OrderStatusPending, cancelled.StatusHistory[0].Status)
	assert.Equal(t, models.OrderStatusCancelled, cancelled.StatusHistory[1].Status)
	assert.Equal(t, "Cancelled by customer", cancelled.StatusHistory[1].Note)
}

func TestCancelRejectedOnceShipped(t *testing.T) {
	camera := testProduct("camera", 10.00, 5)
	f := newEngineFixture(camera)

	orderID := f.orders.seed(models.Order{
		OrderNumber: "SH-900000001",
		UserID:      f.userID,
		OrderStatus: models.OrderStatusShipped,
		Items:       []models.OrderItem{{ProductID: camera.ID, Quantity: 3, Price: 10.00}},
	})

	_, err := f.engine.Cancel(context.Background(), orderID,
		RequestingUser{ID: f.userID, Role: models.RoleUser}, "changed my mind")

	var cancelErr *OrderNotCancellableError
	require.ErrorAs(t, err, &cancelErr)
	assert.Equal(t, models.OrderStatusShipped, cancelErr.Status)
	assert.Equal(t, 5, f.catalog.stock(camera.ID))
}

func TestCancelTwiceRestocksOnlyOnce(t *testing.T) {
	camera := testProduct("camera", 10.00, 5)
	f := newEngineFixture(camera)

	created, err := f.engine.Create(context.Background(),
		checkoutInput(f, 10.00, CreateItemInput{ProductID: camera.ID, Quantity: 1}))
	require.NoError(t, err)

	requester := RequestingUser{ID: f.userID, Role: models.RoleUser}
	_, err = f.engine.Cancel(context.Background(), created.ID, requester, "")
	require.NoError(t, err)
	require.Equal(t, 5, f.catalog.stock(camera.ID))

	_, err = f.engine.Cancel(context.Background(), created.ID, requester, "")
	var cancelErr *OrderNotCancellableError
	require.ErrorAs(t, err, &cancelErr)
	assert.Equal(t, models.OrderStatusCancelled, cancelErr.Status)
	assert.Equal(t, 5, f.catalog.stock(camera.ID))
}

func TestCancelDeniedForOtherUsers(t *testing.T) {
	camera := testProduct("camera", 10.00, 5)
	f := newEngineFixture(camera)

	created, err := f.engine.Create(context.Background(),
		checkoutInput(f, 10.00, CreateItemInput{ProductID: camera.ID, Quantity: 1}))
	require.NoError(t, err)

	stranger := RequestingUser{ID: primitive.NewObjectID(), Role: models.RoleUser}
	_, err = f.engine.Cancel(context.Background(), created.ID, stranger, "")
	require.ErrorIs(t, err, ErrAccessDenied)

	// Admins use the status route, not self-service cancel.
	admin := RequestingUser{ID: primitive.NewObjectID(), Role: models.RoleAdmin}
	_, err = f.engine.Cancel(context.Background(), created.ID, admin, "")
	require.ErrorIs(t, err, ErrAccessDenied)
}

func TestGetEnforcesOwnership(t *testing.T) {
	camera := testProduct("camera", 10.00, 5)
	f := newEngineFixture(camera)

	created, err := f.engine.Create(context.Background(),
		checkoutInput(f, 10.00, CreateItemInput{ProductID: camera.ID, Quantity: 1}))
	require.NoError(t, err)

	owner := RequestingUser{ID: f.userID, Role: models.RoleUser}
	got, err := f.engine.Get(context.Background(), created.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, created.OrderNumber, got.OrderNumber)

	stranger := RequestingUser{ID: primitive.NewObjectID(), Role: models.RoleUser}
	_, err = f.engine.Get(context.Background(), created.ID, stranger)
	require.ErrorIs(t, err, ErrAccessDenied)

	admin := RequestingUser{ID: primitive.NewObjectID(), Role: models.RoleAdmin}
	_, err = f.engine.Get(context.Background(), created.ID, admin)
	require.NoError(t, err)

	_, err = f.engine.Get(context.Background(), primitive.NewObjectID(), owner)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSnapshotSurvivesCatalogEdits(t *testing.T) {
	camera := testProduct("camera", 10.00, 5)
	f := newEngineFixture(camera)

	created, err := f.engine.Create(context.Background(),
		checkoutInput(f, 10.00, CreateItemInput{ProductID: camera.ID, Quantity: 1}))
	require.NoError(t, err)

	f.catalog.setPrice(camera.ID, 99.00)

	got, err := f.engine.Get(context.Background(), created.ID,
		RequestingUser{ID: f.userID, Role: models.RoleUser})
	require.NoError(t, err)
	assert.Equal(t, 10.00, got.Items[0].Price)
	assert.Equal(t, 10.00, got.Subtotal)
}

func TestUpdateStatusAppendsHistoryAndTracking(t *testing.T) {
	camera := testProduct("camera", 10.00, 5)
	f := newEngineFixture(camera)

	created, err := f.engine.Create(context.Background(),
		checkoutInput(f, 10.00, CreateItemInput{ProductID: camera.ID, Quantity: 1}))
	require.NoError(t, err)

	admin := RequestingUser{ID: primitive.NewObjectID(), Role: models.RoleAdmin}
	updated, err := f.engine.UpdateStatus(context.Background(), created.ID, UpdateStatusInput{
		Status:          models.OrderStatusShipped,
		TrackingNumber:  "TRK-42",
		ShippingCarrier: "UPS",
	}, admin)
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusShipped, updated.OrderStatus)
	assert.Equal(t, "TRK-42", updated.TrackingNumber)
	assert.Equal(t, "UPS", updated.ShippingCarrier)

	require.Len(t, updated.StatusHistory, 2)
	last := updated.StatusHistory[1]
	assert.Equal(t, models.OrderStatusShipped, last.Status)
	assert.Equal(t, "Order status updated to shipped", last.Note)
	require.NotNil(t, last.UpdatedBy)
	assert.Equal(t, admin.ID, *last.UpdatedBy)
}

func TestUpdateStatusCancelDoesNotRestock(t *testing.T) {
	camera := testProduct("camera", 10.00, 5)
	f := newEngineFixture(camera)

	created, err := f.engine.Create(context.Background(),
		checkoutInput(f, 30.00, CreateItemInput{ProductID: camera.ID, Quantity: 3}))
	require.NoError(t, err)
	require.Equal(t, 2, f.catalog.stock(camera.ID))

	admin := RequestingUser{ID: primitive.NewObjectID(), Role: models.RoleAdmin}
	updated, err := f.engine.UpdateStatus(context.Background(), created.ID, UpdateStatusInput{
		Status: models.OrderStatusCancelled,
		Note:   "fraud review",
	}, admin)
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusCancelled, updated.OrderStatus)
	assert.Equal(t, 2, f.catalog.stock(camera.ID))
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	camera := testProduct("camera", 10.00, 5)
	f := newEngineFixture(camera)

	created, err := f.engine.Create(context.Background(),
		checkoutInput(f, 10.00, CreateItemInput{ProductID: camera.ID, Quantity: 1}))
	require.NoError(t, err)

	admin := RequestingUser{ID: primitive.NewObjectID(), Role: models.RoleAdmin}
	_, err = f.engine.UpdateStatus(context.Background(), created.ID, UpdateStatusInput{
		Status: "exploded",
	}, admin)
	require.ErrorIs(t, err, ErrInvalidStatus)

	got, err := f.engine.Get(context.Background(), created.ID,
		RequestingUser{ID: f.userID, Role: models.RoleUser})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, got.OrderStatus)
	assert.Len(t, got.StatusHistory, 1)
}

func TestListForUserPaginates(t *testing.T) {
	camera := testProduct("camera", 10.00, 50)
	f := newEngineFixture(camera)

	base := fixedNow
	for i := 0; i < 3; i++ {
		f.orders.seed(models.Order{
			OrderNumber: fmt.Sprintf("SH-77700000%d", i+1),
			UserID:      f.userID,
			OrderStatus: models.OrderStatusPending,
			CreatedAt:   base.Add(time.Duration(i) * time.Hour),
		})
	}
	f.orders.seed(models.Order{
		OrderNumber: "SH-888000001",
		UserID:      primitive.NewObjectID(),
		OrderStatus: models.OrderStatusPending,
		CreatedAt:   base,
	})

	page1, meta, err := f.engine.ListForUser(context.Background(), f.userID, 1, 2)
	require.NoError(t, err)
	assert.Len(t, page1, 2)
	assert.Equal(t, int64(3), meta.TotalOrders)
	assert.Equal(t, int64(2), meta.TotalPages)
	assert.True(t, meta.HasNextPage)
	assert.False(t, meta.HasPrevPage)
	// Newest first.
	assert.Equal(t, "SH-777000003", page1[0].OrderNumber)

	page2, meta, err := f.engine.ListForUser(context.Background(), f.userID, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page2, 1)
	assert.False(t, meta.HasNextPage)
	assert.True(t, meta.HasPrevPage)

	empty, _, err := f.engine.ListForUser(context.Background(), f.userID, 5, 2)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestCancelUnknownOrder(t *testing.T) {
	f := newEngineFixture()
	_, err := f.engine.Cancel(context.Background(), primitive.NewObjectID(),
		RequestingUser{ID: f.userID, Role: models.RoleUser}, "")
	require.ErrorIs(t, err, ErrNotFound)
	require.True(t, errors.Is(err, ErrNotFound))
}
