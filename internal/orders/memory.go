package orders

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/w3-80717/SuprabhatGroceries/internal/domain"
)

// MemoryStore is an in-memory Store with real transactional semantics: a
// transaction stages its writes and applies them only when the callback
// succeeds, and transactions are serialized, so the no-oversell and
// atomicity guarantees hold exactly as in the Postgres implementation.
// It backs unit tests and keeps the workflow on a single code path.
type MemoryStore struct {
	mu       sync.Mutex
	products map[string]domain.Product
	orders   map[string]memOrder
	seq      int
}

type memOrder struct {
	domain.Order
	seq int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products: make(map[string]domain.Product),
		orders:   make(map[string]memOrder),
	}
}

// SeedProduct inserts or replaces a catalog entry.
func (s *MemoryStore) SeedProduct(p domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

// ProductStock reports the current stock of a product, for assertions.
func (s *MemoryStore) ProductStock(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id].Stock
}

// OrderCount reports how many orders are persisted.
func (s *MemoryStore) OrderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

func (s *MemoryStore) InTx(_ context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{store: s, stock: make(map[string]int)}
	if err := fn(tx); err != nil {
		return err
	}

	for id, stock := range tx.stock {
		p := s.products[id]
		p.Stock = stock
		s.products[id] = p
	}
	for _, order := range tx.inserted {
		s.seq++
		s.orders[order.ID] = memOrder{Order: order, seq: s.seq}
	}

	return nil
}

type memTx struct {
	store    *MemoryStore
	stock    map[string]int
	inserted []domain.Order
}

func (t *memTx) ProductForOrder(_ context.Context, productID string) (*domain.Product, error) {
	p, ok := t.store.products[productID]
	if !ok || p.IsDeleted {
		return nil, &domain.ProductNotFoundError{ProductID: productID}
	}
	if staged, ok := t.stock[productID]; ok {
		p.Stock = staged
	}
	return &p, nil
}

func (t *memTx) ReserveStock(ctx context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}

	p, err := t.ProductForOrder(ctx, productID)
	if err != nil {
		return err
	}
	if p.Stock < quantity {
		return &domain.InsufficientStockError{
			ProductID: productID,
			Name:      p.Name,
			Available: p.Stock,
			Requested: quantity,
		}
	}

	t.stock[productID] = p.Stock - quantity
	return nil
}

func (t *memTx) InsertOrder(_ context.Context, order *domain.Order) error {
	t.inserted = append(t.inserted, cloneOrder(*order))
	return nil
}

func (s *MemoryStore) OrderByID(_ context.Context, orderID string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.orders[orderID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	order := cloneOrder(stored.Order)
	return &order, nil
}

func (s *MemoryStore) OrdersByUser(_ context.Context, userID string) ([]domain.Order, error) {
	return s.listOrders(func(o memOrder) bool { return o.UserID == userID }), nil
}

func (s *MemoryStore) AllOrders(_ context.Context) ([]domain.Order, error) {
	return s.listOrders(func(memOrder) bool { return true }), nil
}

func (s *MemoryStore) listOrders(match func(memOrder) bool) []domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stored []memOrder
	for _, o := range s.orders {
		if match(o) {
			stored = append(stored, o)
		}
	}

	// Newest first; the insertion sequence breaks creation-time ties.
	sort.Slice(stored, func(i, j int) bool {
		if stored[i].CreatedAt.Equal(stored[j].CreatedAt) {
			return stored[i].seq > stored[j].seq
		}
		return stored[i].CreatedAt.After(stored[j].CreatedAt)
	})

	orders := make([]domain.Order, len(stored))
	for i, o := range stored {
		orders[i] = cloneOrder(o.Order)
	}
	return orders
}

func (s *MemoryStore) UpdateStatus(_ context.Context, orderID string, status domain.OrderStatus) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.orders[orderID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}

	stored.Status = status
	stored.UpdatedAt = time.Now().UTC()
	s.orders[orderID] = stored

	order := cloneOrder(stored.Order)
	return &order, nil
}

func cloneOrder(o domain.Order) domain.Order {
	items := make([]domain.OrderItem, len(o.Items))
	copy(items, o.Items)
	o.Items = items
	return o
}
