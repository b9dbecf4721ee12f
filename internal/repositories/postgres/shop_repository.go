package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	domain "github.com/supplyline/api/internal/domain"
	repositories "github.com/supplyline/api/internal/repositories"
)

// ShopRepository persists supplier shops keyed by catalog name.
type ShopRepository struct {
	registry *Registry
}

var _ repositories.ShopRepository = (*ShopRepository)(nil)

// GetOrCreate inserts the shop when its name is unseen and otherwise returns
// the existing row untouched. Racing creators converge on a single row thanks
// to the unique constraint on name.
func (r *ShopRepository) GetOrCreate(ctx context.Context, name string, ownerID int64) (domain.Shop, bool, error) {
	if r == nil || r.registry == nil {
		return domain.Shop{}, false, errors.New("shop repository not initialised")
	}
	if strings.TrimSpace(name) == "" {
		return domain.Shop{}, false, errors.New("shop name is required")
	}
	if ownerID <= 0 {
		return domain.Shop{}, false, errors.New("shop owner id is required")
	}

	q := r.registry.q(ctx)
	row := q.QueryRowContext(ctx,
		`INSERT INTO shops (name, user_id) VALUES ($1, $2)
		 ON CONFLICT (name) DO NOTHING
		 RETURNING id, name, user_id, url, accepting, created_at`,
		name, ownerID)

	shop, err := scanShop(row)
	if err == nil {
		return shop, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return domain.Shop{}, false, WrapError("postgres: shops get or create", err)
	}

	shop, err = r.findByName(ctx, q, name)
	if err != nil {
		return domain.Shop{}, false, err
	}
	return shop, false, nil
}

// FindByName loads the shop owning the given catalog name.
func (r *ShopRepository) FindByName(ctx context.Context, name string) (domain.Shop, error) {
	if r == nil || r.registry == nil {
		return domain.Shop{}, errors.New("shop repository not initialised")
	}
	if strings.TrimSpace(name) == "" {
		return domain.Shop{}, errors.New("shop name is required")
	}
	return r.findByName(ctx, r.registry.q(ctx), name)
}

func (r *ShopRepository) findByName(ctx context.Context, q querier, name string) (domain.Shop, error) {
	row := q.QueryRowContext(ctx,
		`SELECT id, name, user_id, url, accepting, created_at FROM shops WHERE name = $1`,
		name)
	shop, err := scanShop(row)
	if err != nil {
		return domain.Shop{}, WrapError("postgres: shops find by name", err)
	}
	return shop, nil
}

func scanShop(row interface{ Scan(dest ...any) error }) (domain.Shop, error) {
	var s domain.Shop
	if err := row.Scan(&s.ID, &s.Name, &s.UserID, &s.URL, &s.Accepting, &s.CreatedAt); err != nil {
		return domain.Shop{}, err
	}
	return s, nil
}
