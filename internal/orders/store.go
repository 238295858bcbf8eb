package orders

import (
	"context"

	"github.com/w3-80717/SuprabhatGroceries/internal/domain"
)

// Line is one requested cart entry, before resolution against the catalog.
type Line struct {
	ProductID string
	Quantity  int
}

// Tx is the view of the store inside one order-placement transaction.
// Everything done through it commits or rolls back as a unit: stock is
// never decremented without the matching order row, and vice versa.
type Tx interface {
	// ProductForOrder resolves a non-deleted product, seeing the
	// transaction's own stock changes.
	ProductForOrder(ctx context.Context, productID string) (*domain.Product, error)

	// ReserveStock conditionally decrements stock, failing with
	// *domain.InsufficientStockError when not enough is available. This is
	// the authoritative guard against concurrent oversell.
	ReserveStock(ctx context.Context, productID string, quantity int) error

	// InsertOrder persists the order and its item snapshots.
	InsertOrder(ctx context.Context, order *domain.Order) error
}

// Store is the transactional boundary of the order subsystem. The Postgres
// implementation backs production; an in-memory implementation with the
// same transactional semantics backs unit tests, keeping a single workflow
// code path in every environment.
type Store interface {
	// InTx runs fn atomically. A non-nil error from fn rolls back every
	// mutation made through the Tx.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	OrderByID(ctx context.Context, orderID string) (*domain.Order, error)
	OrdersByUser(ctx context.Context, userID string) ([]domain.Order, error)
	AllOrders(ctx context.Context) ([]domain.Order, error)

	// UpdateStatus sets the status of an existing order and returns the
	// updated record, or domain.ErrOrderNotFound.
	UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) (*domain.Order, error)
}
