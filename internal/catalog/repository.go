// Package catalog provides product storage and the read surface the order
// workflow resolves cart lines against. Soft deletion is explicit: callers
// choose between active-only and unfiltered lookups instead of relying on
// an implicit query filter.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/w3-80717/SuprabhatGroceries/internal/domain"
	"github.com/w3-80717/SuprabhatGroceries/internal/inventory"
)

const productColumns = `id, name, description, price, unit, category, stock, is_published, is_deleted, created_at, updated_at`

type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// GetActive returns a non-deleted product by id. Unpublished products are
// still returned: they are orderable through existing carts, just hidden
// from the public listing.
func (r *ProductRepository) GetActive(ctx context.Context, id string) (*domain.Product, error) {
	return r.GetActiveIn(ctx, r.db, id)
}

// GetActiveIn is GetActive against q, so the order transaction sees its own
// uncommitted stock changes.
func (r *ProductRepository) GetActiveIn(ctx context.Context, q inventory.DBTX, id string) (*domain.Product, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id = $1 AND is_deleted = FALSE
	`, id)

	return scanProduct(row, id)
}

// GetAny returns a product regardless of soft deletion. Admin and
// historical lookups only.
func (r *ProductRepository) GetAny(ctx context.Context, id string) (*domain.Product, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id = $1
	`, id)

	return scanProduct(row, id)
}

func scanProduct(row *sql.Row, id string) (*domain.Product, error) {
	p := &domain.Product{}
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Unit, &p.Category,
		&p.Stock, &p.IsPublished, &p.IsDeleted, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.ProductNotFoundError{ProductID: id}
		}
		return nil, fmt.Errorf("scan product %s: %w", id, err)
	}
	return p, nil
}

// ListPublished returns the public catalog: published, not deleted.
func (r *ProductRepository) ListPublished(ctx context.Context, category string) ([]domain.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE is_deleted = FALSE AND is_published = TRUE
	`
	args := []any{}
	if category != "" {
		query += ` AND category = $1`
		args = append(args, category)
	}
	query += ` ORDER BY name`

	return r.list(ctx, query, args...)
}

// ListAll returns every product including soft-deleted ones. Admin only.
func (r *ProductRepository) ListAll(ctx context.Context) ([]domain.Product, error) {
	return r.list(ctx, `SELECT `+productColumns+` FROM products ORDER BY name`)
}

func (r *ProductRepository) list(ctx context.Context, query string, args ...any) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	products := []domain.Product{}
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Unit, &p.Category,
			&p.Stock, &p.IsPublished, &p.IsDeleted, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}

	return products, rows.Err()
}

func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO products (id, name, description, price, unit, category, stock, is_published)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`, p.ID, p.Name, p.Description, p.Price, p.Unit, p.Category, p.Stock, p.IsPublished).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}

	return nil
}

// Update rewrites the mutable catalog fields. Stock is deliberately not
// updatable here; it moves only through the inventory ledger.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) (*domain.Product, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, description = $3, price = $4, unit = $5, category = $6,
		    is_published = $7, updated_at = NOW()
		WHERE id = $1 AND is_deleted = FALSE
	`, p.ID, p.Name, p.Description, p.Price, p.Unit, p.Category, p.IsPublished)
	if err != nil {
		return nil, fmt.Errorf("update product %s: %w", p.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rowsAffected == 0 {
		return nil, &domain.ProductNotFoundError{ProductID: p.ID}
	}

	return r.GetActive(ctx, p.ID)
}

// SoftDelete hides a product from the catalog while keeping the row for
// historical order items. The deleted row is returned so callers can
// invalidate caches keyed by its category.
func (r *ProductRepository) SoftDelete(ctx context.Context, id string) (*domain.Product, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE products
		SET is_deleted = TRUE, is_published = FALSE, updated_at = NOW()
		WHERE id = $1 AND is_deleted = FALSE
		RETURNING `+productColumns+`
	`, id)

	return scanProduct(row, id)
}
