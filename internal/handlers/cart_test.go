package handlers

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"backend/internal/models"
)

func TestCartTotals(t *testing.T) {
	cases := []struct {
		name         string
		subtotal     float64
		wantTax      float64
		wantShipping float64
		wantTotal    float64
	}{
		{"empty cart", 0, 0, 9.99, 9.99},
		{"below free shipping", 50.00, 4.00, 9.99, 63.99},
		{"at threshold still pays shipping", 100.00, 8.00, 9.99, 117.99},
		{"above threshold ships free", 150.00, 12.00, 0, 162.00},
		{"tax rounds to cents", 10.55, 0.84, 9.99, 21.38},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tax, shipping, total := cartTotals(tc.subtotal)
			if tax != tc.wantTax {
				t.Errorf("tax = %v, want %v", tax, tc.wantTax)
			}
			if shipping != tc.wantShipping {
				t.Errorf("shipping = %v, want %v", shipping, tc.wantShipping)
			}
			if total != tc.wantTotal {
				t.Errorf("total = %v, want %v", total, tc.wantTotal)
			}
		})
	}
}

func TestBuildCartViewPricesFromCatalog(t *testing.T) {
	productID := primitive.NewObjectID()
	products := map[primitive.ObjectID]models.Product{
		productID: {ID: productID, Name: "camera", Price: 25.00, Stock: 3, IsActive: true},
	}
	// Stored price is stale; the catalog price wins.
	items := []models.CartItem{{ProductID: productID, Quantity: 2, Price: 19.99}}

	view, kept, pruned := buildCartView(items, products)
	if pruned {
		t.Fatal("nothing should have been pruned")
	}
	if len(view.Items) != 1 {
		t.Fatalf("got %d view items, want 1", len(view.Items))
	}
	if view.Items[0].Price != 25.00 {
		t.Errorf("item price = %v, want catalog price 25.00", view.Items[0].Price)
	}
	if view.Items[0].Total != 50.00 {
		t.Errorf("item total = %v, want 50.00", view.Items[0].Total)
	}
	if view.Subtotal != 50.00 {
		t.Errorf("subtotal = %v, want 50.00", view.Subtotal)
	}
	if view.ItemCount != 2 {
		t.Errorf("itemCount = %d, want 2", view.ItemCount)
	}
	if kept[0].Price != 25.00 {
		t.Errorf("kept price = %v, want refreshed 25.00", kept[0].Price)
	}
}

func TestBuildCartViewPrunesMissingAndInactive(t *testing.T) {
	activeID := primitive.NewObjectID()
	inactiveID := primitive.NewObjectID()
	missingID := primitive.NewObjectID()

	products := map[primitive.ObjectID]models.Product{
		activeID:   {ID: activeID, Name: "camera", Price: 10.00, Stock: 5, IsActive: true},
		inactiveID: {ID: inactiveID, Name: "discontinued", Price: 5.00, IsActive: false},
	}
	items := []models.CartItem{
		{ProductID: activeID, Quantity: 1, Price: 10.00},
		{ProductID: inactiveID, Quantity: 2, Price: 5.00},
		{ProductID: missingID, Quantity: 3, Price: 7.00},
	}

	view, kept, pruned := buildCartView(items, products)
	if !pruned {
		t.Fatal("expected pruning")
	}
	if len(kept) != 1 || kept[0].ProductID != activeID {
		t.Fatalf("kept = %v, want only the active item", kept)
	}
	if len(view.Items) != 1 {
		t.Fatalf("got %d view items, want 1", len(view.Items))
	}
	if view.Subtotal != 10.00 {
		t.Errorf("subtotal = %v, want 10.00", view.Subtotal)
	}
}

func TestBuildCartViewEmpty(t *testing.T) {
	view, kept, pruned := buildCartView(nil, map[primitive.ObjectID]models.Product{})
	if pruned {
		t.Fatal("empty cart must not report pruning")
	}
	if len(kept) != 0 || len(view.Items) != 0 {
		t.Fatalf("expected empty view, got %+v", view)
	}
	if view.Total != 9.99 {
		t.Errorf("total = %v, want shipping-only 9.99", view.Total)
	}
}
