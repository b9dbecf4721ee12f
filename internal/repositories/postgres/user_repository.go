package postgres

import (
	"context"
	"errors"
	"strings"

	domain "github.com/supplyline/api/internal/domain"
	repositories "github.com/supplyline/api/internal/repositories"
)

// UserRepository resolves principals from the users and auth_tokens tables.
type UserRepository struct {
	registry *Registry
}

var _ repositories.UserRepository = (*UserRepository)(nil)

// FindByID loads the user by primary key.
func (r *UserRepository) FindByID(ctx context.Context, userID int64) (domain.User, error) {
	if r == nil || r.registry == nil {
		return domain.User{}, errors.New("user repository not initialised")
	}
	if userID <= 0 {
		return domain.User{}, errors.New("user id is required")
	}

	row := r.registry.q(ctx).QueryRowContext(ctx,
		`SELECT id, email, type, active, created_at FROM users WHERE id = $1`,
		userID)
	return scanUser(row, "postgres: users find by id")
}

// FindByToken resolves the user owning the given API token key.
func (r *UserRepository) FindByToken(ctx context.Context, token string) (domain.User, error) {
	if r == nil || r.registry == nil {
		return domain.User{}, errors.New("user repository not initialised")
	}
	if strings.TrimSpace(token) == "" {
		return domain.User{}, errors.New("token is required")
	}

	row := r.registry.q(ctx).QueryRowContext(ctx,
		`SELECT u.id, u.email, u.type, u.active, u.created_at
		   FROM auth_tokens t
		   JOIN users u ON u.id = t.user_id
		  WHERE t.key = $1`,
		token)
	return scanUser(row, "postgres: users find by token")
}

func scanUser(row interface{ Scan(dest ...any) error }, op string) (domain.User, error) {
	var u domain.User
	var userType string
	if err := row.Scan(&u.ID, &u.Email, &userType, &u.Active, &u.CreatedAt); err != nil {
		return domain.User{}, WrapError(op, err)
	}
	u.Type = domain.UserType(userType)
	return u, nil
}
