package postgres

import (
	"context"
	"errors"

	domain "github.com/supplyline/api/internal/domain"
	repositories "github.com/supplyline/api/internal/repositories"
)

// ProductInfoRepository owns the per-shop offer rows replaced on every import.
type ProductInfoRepository struct {
	registry *Registry
}

var _ repositories.ProductInfoRepository = (*ProductInfoRepository)(nil)

// DeleteByShop removes every offer the shop advertises along with the
// parameter values attached to those offers.
func (r *ProductInfoRepository) DeleteByShop(ctx context.Context, shopID int64) (int64, error) {
	if r == nil || r.registry == nil {
		return 0, errors.New("product info repository not initialised")
	}
	if shopID <= 0 {
		return 0, errors.New("shop id is required")
	}

	q := r.registry.q(ctx)
	if _, err := q.ExecContext(ctx,
		`DELETE FROM product_parameters
		  WHERE product_info_id IN (SELECT id FROM product_infos WHERE shop_id = $1)`,
		shopID); err != nil {
		return 0, WrapError("postgres: product parameters delete by shop", err)
	}

	res, err := q.ExecContext(ctx, `DELETE FROM product_infos WHERE shop_id = $1`, shopID)
	if err != nil {
		return 0, WrapError("postgres: product infos delete by shop", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, WrapError("postgres: product infos delete by shop", err)
	}
	return deleted, nil
}

// Insert stores a new offer row and returns it with its assigned identifier.
func (r *ProductInfoRepository) Insert(ctx context.Context, info domain.ProductInfo) (domain.ProductInfo, error) {
	if r == nil || r.registry == nil {
		return domain.ProductInfo{}, errors.New("product info repository not initialised")
	}
	if info.ProductID <= 0 || info.ShopID <= 0 {
		return domain.ProductInfo{}, errors.New("product and shop ids are required")
	}

	row := r.registry.q(ctx).QueryRowContext(ctx,
		`INSERT INTO product_infos (product_id, shop_id, model, external_id, price, price_rrc, quantity)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		info.ProductID, info.ShopID, info.Model, info.ExternalID, info.Price, info.PriceRRC, info.Quantity)
	if err := row.Scan(&info.ID); err != nil {
		return domain.ProductInfo{}, WrapError("postgres: product infos insert", err)
	}
	return info, nil
}

// ListByShop returns the offers the shop currently advertises, ordered by the
// supplier-assigned external id for stable output.
func (r *ProductInfoRepository) ListByShop(ctx context.Context, shopID int64) ([]domain.ProductInfo, error) {
	if r == nil || r.registry == nil {
		return nil, errors.New("product info repository not initialised")
	}
	if shopID <= 0 {
		return nil, errors.New("shop id is required")
	}

	rows, err := r.registry.q(ctx).QueryContext(ctx,
		`SELECT id, product_id, shop_id, model, external_id, price, price_rrc, quantity
		   FROM product_infos WHERE shop_id = $1 ORDER BY external_id`,
		shopID)
	if err != nil {
		return nil, WrapError("postgres: product infos list by shop", err)
	}
	defer rows.Close()

	var out []domain.ProductInfo
	for rows.Next() {
		var info domain.ProductInfo
		if err := rows.Scan(&info.ID, &info.ProductID, &info.ShopID, &info.Model,
			&info.ExternalID, &info.Price, &info.PriceRRC, &info.Quantity); err != nil {
			return nil, WrapError("postgres: product infos list by shop", err)
		}
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, WrapError("postgres: product infos list by shop", err)
	}
	return out, nil
}
