package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	domain "github.com/supplyline/api/internal/domain"
	repositories "github.com/supplyline/api/internal/repositories"
)

// ParameterRepository persists parameter names shared across offers.
type ParameterRepository struct {
	registry *Registry
}

var _ repositories.ParameterRepository = (*ParameterRepository)(nil)

// Ensure inserts the parameter name when unseen and returns the stored row.
func (r *ParameterRepository) Ensure(ctx context.Context, name string) (domain.Parameter, error) {
	if r == nil || r.registry == nil {
		return domain.Parameter{}, errors.New("parameter repository not initialised")
	}
	if strings.TrimSpace(name) == "" {
		return domain.Parameter{}, errors.New("parameter name is required")
	}

	q := r.registry.q(ctx)
	row := q.QueryRowContext(ctx,
		`INSERT INTO parameters (name) VALUES ($1)
		 ON CONFLICT (name) DO NOTHING
		 RETURNING id, name`,
		name)

	var p domain.Parameter
	err := row.Scan(&p.ID, &p.Name)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return domain.Parameter{}, WrapError("postgres: parameters ensure", err)
	}

	row = q.QueryRowContext(ctx, `SELECT id, name FROM parameters WHERE name = $1`, name)
	if err := row.Scan(&p.ID, &p.Name); err != nil {
		return domain.Parameter{}, WrapError("postgres: parameters find by name", err)
	}
	return p, nil
}

// ProductParameterRepository persists parameter values attached to an offer.
type ProductParameterRepository struct {
	registry *Registry
}

var _ repositories.ProductParameterRepository = (*ProductParameterRepository)(nil)

// Insert stores one parameter value for an offer row.
func (r *ProductParameterRepository) Insert(ctx context.Context, pp domain.ProductParameter) error {
	if r == nil || r.registry == nil {
		return errors.New("product parameter repository not initialised")
	}
	if pp.ProductInfoID <= 0 || pp.ParameterID <= 0 {
		return errors.New("product info and parameter ids are required")
	}

	if _, err := r.registry.q(ctx).ExecContext(ctx,
		`INSERT INTO product_parameters (product_info_id, parameter_id, value) VALUES ($1, $2, $3)`,
		pp.ProductInfoID, pp.ParameterID, pp.Value); err != nil {
		return WrapError("postgres: product parameters insert", err)
	}
	return nil
}

// ListByProductInfo returns the parameter values attached to one offer.
func (r *ProductParameterRepository) ListByProductInfo(ctx context.Context, productInfoID int64) ([]domain.ProductParameter, error) {
	if r == nil || r.registry == nil {
		return nil, errors.New("product parameter repository not initialised")
	}
	if productInfoID <= 0 {
		return nil, errors.New("product info id is required")
	}

	rows, err := r.registry.q(ctx).QueryContext(ctx,
		`SELECT id, product_info_id, parameter_id, value
		   FROM product_parameters WHERE product_info_id = $1 ORDER BY id`,
		productInfoID)
	if err != nil {
		return nil, WrapError("postgres: product parameters list", err)
	}
	defer rows.Close()

	var out []domain.ProductParameter
	for rows.Next() {
		var pp domain.ProductParameter
		if err := rows.Scan(&pp.ID, &pp.ProductInfoID, &pp.ParameterID, &pp.Value); err != nil {
			return nil, WrapError("postgres: product parameters list", err)
		}
		out = append(out, pp)
	}
	if err := rows.Err(); err != nil {
		return nil, WrapError("postgres: product parameters list", err)
	}
	return out, nil
}
