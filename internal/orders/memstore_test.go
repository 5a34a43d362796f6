package orders

import (
	"context"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"backend/internal/models"
)

// In-memory ports for engine tests. The order store shares the catalog so
// stock side effects are observable the way they would be against MongoDB.

type memCatalog struct {
	mu       sync.Mutex
	products map[primitive.ObjectID]models.Product
}

func newMemCatalog(products ...models.Product) *memCatalog {
	c := &memCatalog{products: make(map[primitive.ObjectID]models.Product)}
	for _, p := range products {
		c.products[p.ID] = p
	}
	return c
}

func (c *memCatalog) FindProduct(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	p.InStock = p.Stock > 0
	return &p, nil
}

func (c *memCatalog) stock(id primitive.ObjectID) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.products[id].Stock
}

func (c *memCatalog) setPrice(id primitive.ObjectID, price float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.products[id]
	p.Price = price
	c.products[id] = p
}

type memOrderStore struct {
	mu      sync.Mutex
	catalog *memCatalog
	orders  map[primitive.ObjectID]models.Order
	numbers map[string]bool
}

func newMemOrderStore(catalog *memCatalog) *memOrderStore {
	return &memOrderStore{
		catalog: catalog,
		orders:  make(map[primitive.ObjectID]models.Order),
		numbers: make(map[string]bool),
	}
}

func cloneOrder(o models.Order) models.Order {
	o.Items = append([]models.OrderItem(nil), o.Items...)
	o.StatusHistory = append([]models.StatusHistoryEntry(nil), o.StatusHistory...)
	return o
}

func (s *memOrderStore) seed(order models.Order) primitive.ObjectID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	s.orders[order.ID] = cloneOrder(order)
	s.numbers[order.OrderNumber] = true
	return order.ID
}

func (s *memOrderStore) CreateWithStock(ctx context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.numbers[order.OrderNumber] {
		return ErrDuplicateOrderNumber
	}

	s.catalog.mu.Lock()
	defer s.catalog.mu.Unlock()
	for _, item := range order.Items {
		p, ok := s.catalog.products[item.ProductID]
		if !ok || !p.IsActive {
			return &ProductUnavailableError{ProductID: item.ProductID}
		}
		if p.Stock < item.Quantity {
			return &InsufficientStockError{
				ProductID: p.ID,
				Name:      p.Name,
				Available: p.Stock,
				Requested: item.Quantity,
			}
		}
	}
	for _, item := range order.Items {
		p := s.catalog.products[item.ProductID]
		p.Stock -= item.Quantity
		s.catalog.products[item.ProductID] = p
	}

	order.ID = primitive.NewObjectID()
	s.orders[order.ID] = cloneOrder(*order)
	s.numbers[order.OrderNumber] = true
	return nil
}

func (s *memOrderStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := cloneOrder(o)
	return &copied, nil
}

func (s *memOrderStore) ListByUser(ctx context.Context, userID primitive.ObjectID, page, limit int64) ([]models.Order, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]models.Order, 0)
	for _, o := range s.orders {
		if o.UserID == userID {
			all = append(all, cloneOrder(o))
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := int64(len(all))
	start := (page - 1) * limit
	if start >= total {
		return []models.Order{}, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (s *memOrderStore) UpdateStatus(ctx context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[order.ID]; !ok {
		return ErrNotFound
	}
	s.orders[order.ID] = cloneOrder(*order)
	return nil
}

func (s *memOrderStore) CancelWithRestock(ctx context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.orders[order.ID]
	if !ok {
		return ErrNotFound
	}
	if !Cancellable(current.OrderStatus) {
		return &OrderNotCancellableError{Status: current.OrderStatus}
	}

	s.orders[order.ID] = cloneOrder(*order)

	s.catalog.mu.Lock()
	defer s.catalog.mu.Unlock()
	for _, item := range order.Items {
		p := s.catalog.products[item.ProductID]
		p.Stock += item.Quantity
		s.catalog.products[item.ProductID] = p
	}
	return nil
}

type memCartStore struct {
	mu      sync.Mutex
	cleared map[primitive.ObjectID]int
}

func newMemCartStore() *memCartStore {
	return &memCartStore{cleared: make(map[primitive.ObjectID]int)}
}

func (s *memCartStore) Clear(ctx context.Context, userID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleared[userID]++
	return nil
}

func (s *memCartStore) clearedCount(userID primitive.ObjectID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cleared[userID]
}

type memUserStore struct {
	users map[primitive.ObjectID]models.User
}

func (s *memUserStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

type memNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (n *memNotifier) SendOrderConfirmation(ctx context.Context, user *models.User, order *models.Order) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, order.OrderNumber)
	return nil
}
