package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	domain "github.com/supplyline/api/internal/domain"
	repositories "github.com/supplyline/api/internal/repositories"
)

// CategoryRepository persists supplier-assigned category identifiers.
type CategoryRepository struct {
	registry *Registry
}

var _ repositories.CategoryRepository = (*CategoryRepository)(nil)

// Ensure inserts the category when its identifier is unseen. An identifier
// already on record keeps the name it was first registered with.
func (r *CategoryRepository) Ensure(ctx context.Context, category domain.Category) (domain.Category, error) {
	if r == nil || r.registry == nil {
		return domain.Category{}, errors.New("category repository not initialised")
	}
	if category.ID <= 0 {
		return domain.Category{}, errors.New("category id is required")
	}
	if strings.TrimSpace(category.Name) == "" {
		return domain.Category{}, errors.New("category name is required")
	}

	q := r.registry.q(ctx)
	row := q.QueryRowContext(ctx,
		`INSERT INTO categories (id, name) VALUES ($1, $2)
		 ON CONFLICT (id) DO NOTHING
		 RETURNING id, name`,
		category.ID, category.Name)

	var stored domain.Category
	err := row.Scan(&stored.ID, &stored.Name)
	if err == nil {
		return stored, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return domain.Category{}, WrapError("postgres: categories ensure", err)
	}
	return r.FindByID(ctx, category.ID)
}

// FindByID loads the category by its supplier-assigned identifier.
func (r *CategoryRepository) FindByID(ctx context.Context, categoryID int64) (domain.Category, error) {
	if r == nil || r.registry == nil {
		return domain.Category{}, errors.New("category repository not initialised")
	}
	if categoryID <= 0 {
		return domain.Category{}, errors.New("category id is required")
	}

	row := r.registry.q(ctx).QueryRowContext(ctx,
		`SELECT id, name FROM categories WHERE id = $1`, categoryID)
	var c domain.Category
	if err := row.Scan(&c.ID, &c.Name); err != nil {
		return domain.Category{}, WrapError("postgres: categories find by id", err)
	}
	return c, nil
}
