package auth

import (
	"context"
	"errors"

	domain "github.com/supplyline/api/internal/domain"
	"github.com/supplyline/api/internal/repositories"
)

// RepositoryResolver adapts the user repository to the TokenResolver interface,
// translating categorised repository errors into auth sentinels.
type RepositoryResolver struct {
	users repositories.UserRepository
}

var _ TokenResolver = (*RepositoryResolver)(nil)

// NewRepositoryResolver constructs a database backed token resolver.
func NewRepositoryResolver(users repositories.UserRepository) (*RepositoryResolver, error) {
	if users == nil {
		return nil, errors.New("token resolver requires a user repository")
	}
	return &RepositoryResolver{users: users}, nil
}

// ResolveToken loads the principal owning the token key.
func (r *RepositoryResolver) ResolveToken(ctx context.Context, token string) (domain.User, error) {
	if r == nil || r.users == nil {
		return domain.User{}, errors.New("token resolver not initialised")
	}
	user, err := r.users.FindByToken(ctx, token)
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return domain.User{}, ErrTokenUnknown
		}
		return domain.User{}, err
	}
	return user, nil
}
