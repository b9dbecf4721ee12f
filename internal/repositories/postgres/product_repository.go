package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	domain "github.com/supplyline/api/internal/domain"
	repositories "github.com/supplyline/api/internal/repositories"
)

// ProductRepository persists catalog products keyed by name.
type ProductRepository struct {
	registry *Registry
}

var _ repositories.ProductRepository = (*ProductRepository)(nil)

// GetOrCreate inserts the product when its name is unseen and otherwise
// returns the existing row with whatever category it currently carries.
func (r *ProductRepository) GetOrCreate(ctx context.Context, name string, categoryID int64) (domain.Product, bool, error) {
	if r == nil || r.registry == nil {
		return domain.Product{}, false, errors.New("product repository not initialised")
	}
	if strings.TrimSpace(name) == "" {
		return domain.Product{}, false, errors.New("product name is required")
	}
	if categoryID <= 0 {
		return domain.Product{}, false, errors.New("product category id is required")
	}

	q := r.registry.q(ctx)
	row := q.QueryRowContext(ctx,
		`INSERT INTO products (name, category_id) VALUES ($1, $2)
		 ON CONFLICT (name) DO NOTHING
		 RETURNING id, name, category_id`,
		name, categoryID)

	var p domain.Product
	err := row.Scan(&p.ID, &p.Name, &p.CategoryID)
	if err == nil {
		return p, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, false, WrapError("postgres: products get or create", err)
	}

	row = q.QueryRowContext(ctx,
		`SELECT id, name, category_id FROM products WHERE name = $1`, name)
	if err := row.Scan(&p.ID, &p.Name, &p.CategoryID); err != nil {
		return domain.Product{}, false, WrapError("postgres: products find by name", err)
	}
	return p, false, nil
}

// UpdateCategory moves the product under a different category.
func (r *ProductRepository) UpdateCategory(ctx context.Context, productID, categoryID int64) error {
	if r == nil || r.registry == nil {
		return errors.New("product repository not initialised")
	}
	if productID <= 0 || categoryID <= 0 {
		return errors.New("product and category ids are required")
	}

	res, err := r.registry.q(ctx).ExecContext(ctx,
		`UPDATE products SET category_id = $2 WHERE id = $1`, productID, categoryID)
	if err != nil {
		return WrapError("postgres: products update category", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return WrapError("postgres: products update category", sql.ErrNoRows)
	}
	return nil
}
