// Package inventory owns per-product stock counts. Stock is only ever
// mutated through conditional updates in the database; no read-modify-write
// happens in application code, so concurrent reservations cannot oversell.
package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/w3-80717/SuprabhatGroceries/internal/domain"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx, letting ledger operations
// run standalone or join a caller-owned transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Line struct {
	ProductID string
	Quantity  int
}

type StockLevel struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Stock     int    `json:"stock"`
}

type Ledger struct {
	db *sql.DB
}

func NewLedger(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

// Reserve decrements stock by quantity if and only if enough is available.
func (l *Ledger) Reserve(ctx context.Context, productID string, quantity int) error {
	return l.ReserveIn(ctx, l.db, productID, quantity)
}

// ReserveIn is Reserve running against q, typically an open *sql.Tx. The
// decrement is a single conditional UPDATE; when it matches no row the
// follow-up read distinguishes a missing product from insufficient stock.
func (l *Ledger) ReserveIn(ctx context.Context, q DBTX, productID string, quantity int) error {
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}

	result, err := q.ExecContext(ctx, `
		UPDATE products
		SET stock = stock - $2, updated_at = NOW()
		WHERE id = $1 AND is_deleted = FALSE AND stock >= $2
	`, productID, quantity)
	if err != nil {
		return fmt.Errorf("reserve stock for product %s: %w", productID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected > 0 {
		return nil
	}

	var name string
	var stock int
	err = q.QueryRowContext(ctx, `
		SELECT name, stock FROM products WHERE id = $1 AND is_deleted = FALSE
	`, productID).Scan(&name, &stock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &domain.ProductNotFoundError{ProductID: productID}
		}
		return fmt.Errorf("read stock for product %s: %w", productID, err)
	}

	return &domain.InsufficientStockError{
		ProductID: productID,
		Name:      name,
		Available: stock,
		Requested: quantity,
	}
}

// ReserveMany reserves every line or none. The first failing line aborts
// the transaction, rolling back reservations already applied in the batch.
func (l *Ledger) ReserveMany(ctx context.Context, lines []Line) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, line := range lines {
		if err := l.ReserveIn(ctx, tx, line.ProductID, line.Quantity); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Release returns quantity units to stock. Used for admin restocks; order
// placement rolls back through its transaction instead.
func (l *Ledger) Release(ctx context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}

	result, err := l.db.ExecContext(ctx, `
		UPDATE products
		SET stock = stock + $2, updated_at = NOW()
		WHERE id = $1 AND is_deleted = FALSE
	`, productID, quantity)
	if err != nil {
		return fmt.Errorf("release stock for product %s: %w", productID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return &domain.ProductNotFoundError{ProductID: productID}
	}

	return nil
}

func (l *Ledger) GetStock(ctx context.Context, productID string) (*StockLevel, error) {
	level := &StockLevel{}

	err := l.db.QueryRowContext(ctx, `
		SELECT id, name, stock FROM products WHERE id = $1 AND is_deleted = FALSE
	`, productID).Scan(&level.ProductID, &level.Name, &level.Stock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.ProductNotFoundError{ProductID: productID}
		}
		return nil, err
	}

	return level, nil
}

func (l *Ledger) ListStock(ctx context.Context) ([]StockLevel, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, name, stock FROM products WHERE is_deleted = FALSE ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var levels []StockLevel
	for rows.Next() {
		var level StockLevel
		if err := rows.Scan(&level.ProductID, &level.Name, &level.Stock); err != nil {
			return nil, err
		}
		levels = append(levels, level)
	}

	return levels, rows.Err()
}
