package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/w3-80717/SuprabhatGroceries/internal/catalog"
	"github.com/w3-80717/SuprabhatGroceries/internal/domain"
	"github.com/w3-80717/SuprabhatGroceries/internal/inventory"
)

// PostgresStore implements Store on the shared products/orders schema.
// Catalog resolution and stock reservation inside the order transaction are
// delegated to the catalog repository and the inventory ledger, so the
// conditional-decrement logic lives in exactly one place.
type PostgresStore struct {
	db       *sql.DB
	products *catalog.ProductRepository
	ledger   *inventory.Ledger
}

func NewPostgresStore(db *sql.DB, products *catalog.ProductRepository, ledger *inventory.Ledger) *PostgresStore {
	return &PostgresStore{
		db:       db,
		products: products,
		ledger:   ledger,
	}
}

func (s *PostgresStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin order transaction: %w", err)
	}
	defer func() { _ = sqlTx.Rollback() }()

	if err := fn(&pgTx{tx: sqlTx, store: s}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit order transaction: %w", err)
	}

	return nil
}

type pgTx struct {
	tx    *sql.Tx
	store *PostgresStore
}

func (t *pgTx) ProductForOrder(ctx context.Context, productID string) (*domain.Product, error) {
	return t.store.products.GetActiveIn(ctx, t.tx, productID)
}

func (t *pgTx) ReserveStock(ctx context.Context, productID string, quantity int) error {
	return t.store.ledger.ReserveIn(ctx, t.tx, productID, quantity)
}

func (t *pgTx) InsertOrder(ctx context.Context, order *domain.Order) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO orders (id, user_id, sub_total, delivery_fee, total_amount, delivery_address, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
	`, order.ID, order.UserID, order.SubTotal, order.DeliveryFee, order.TotalAmount,
		order.DeliveryAddress, order.Status, order.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for pos, item := range order.Items {
		_, err = t.tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, position, product_id, name, price, quantity)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, uuid.New().String(), order.ID, pos, item.ProductID, item.Name, item.Price, item.Quantity)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	return nil
}

const orderColumns = `id, user_id, sub_total, delivery_fee, total_amount, delivery_address, status, created_at, updated_at`

func (s *PostgresStore) OrderByID(ctx context.Context, orderID string) (*domain.Order, error) {
	order := &domain.Order{}

	err := s.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+` FROM orders WHERE id = $1
	`, orderID).Scan(&order.ID, &order.UserID, &order.SubTotal, &order.DeliveryFee,
		&order.TotalAmount, &order.DeliveryAddress, &order.Status, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("query order %s: %w", orderID, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, name, price, quantity
		FROM order_items
		WHERE order_id = $1
		ORDER BY position
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ProductID, &item.Name, &item.Price, &item.Quantity); err != nil {
			return nil, err
		}
		order.Items = append(order.Items, item)
	}

	return order, rows.Err()
}

func (s *PostgresStore) OrdersByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	return s.listOrders(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC, id
	`, userID)
}

func (s *PostgresStore) AllOrders(ctx context.Context) ([]domain.Order, error) {
	return s.listOrders(ctx, `
		SELECT `+orderColumns+` FROM orders
		ORDER BY created_at DESC, id
	`)
}

// listOrders loads the orders first, then their items in one batch query
// instead of one query per order.
func (s *PostgresStore) listOrders(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	orderMap := make(map[string]*domain.Order)
	var orderIDs []string

	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(&order.ID, &order.UserID, &order.SubTotal, &order.DeliveryFee,
			&order.TotalAmount, &order.DeliveryAddress, &order.Status, &order.CreatedAt, &order.UpdatedAt); err != nil {
			return nil, err
		}
		order.Items = []domain.OrderItem{}
		orderMap[order.ID] = &order
		orderIDs = append(orderIDs, order.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(orderIDs) == 0 {
		return []domain.Order{}, nil
	}

	itemRows, err := s.db.QueryContext(ctx, `
		SELECT order_id, product_id, name, price, quantity
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY position
	`, pq.Array(orderIDs))
	if err != nil {
		return nil, err
	}
	defer func() { _ = itemRows.Close() }()

	for itemRows.Next() {
		var orderID string
		var item domain.OrderItem
		if err := itemRows.Scan(&orderID, &item.ProductID, &item.Name, &item.Price, &item.Quantity); err != nil {
			return nil, err
		}
		orderMap[orderID].Items = append(orderMap[orderID].Items, item)
	}
	if err := itemRows.Err(); err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		orders = append(orders, *orderMap[id])
	}

	return orders, nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) (*domain.Order, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE orders SET status = $1, updated_at = NOW()
		WHERE id = $2
	`, status, orderID)
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rowsAffected == 0 {
		return nil, domain.ErrOrderNotFound
	}

	return s.OrderByID(ctx, orderID)
}
