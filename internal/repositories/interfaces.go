package repositories

import (
	"context"
	"time"

	domain "github.com/supplyline/api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Users() UserRepository
	Shops() ShopRepository
	Categories() CategoryRepository
	Products() ProductRepository
	ProductInfos() ProductInfoRepository
	Parameters() ParameterRepository
	ProductParameters() ProductParameterRepository
	ImportJobs() ImportJobRepository
	Health() HealthRepository
	UnitOfWork
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// UnitOfWork allows grouping repository operations in a transactional boundary when supported.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// UserRepository resolves principals for authentication and job attribution.
type UserRepository interface {
	FindByID(ctx context.Context, userID int64) (domain.User, error)
	FindByToken(ctx context.Context, token string) (domain.User, error)
}

// ShopRepository persists supplier shops keyed by their catalog name.
type ShopRepository interface {
	// GetOrCreate returns the shop with the given name, creating it owned by
	// ownerID when absent. The boolean reports whether a new row was created.
	GetOrCreate(ctx context.Context, name string, ownerID int64) (domain.Shop, bool, error)
	FindByName(ctx context.Context, name string) (domain.Shop, error)
}

// CategoryRepository persists supplier-assigned category identifiers.
type CategoryRepository interface {
	// Ensure inserts the category when its identifier is unseen and returns the
	// stored row. An existing row keeps its original name.
	Ensure(ctx context.Context, category domain.Category) (domain.Category, error)
	FindByID(ctx context.Context, categoryID int64) (domain.Category, error)
}

// ProductRepository persists catalog products keyed by name.
type ProductRepository interface {
	// GetOrCreate returns the product with the given name, creating it under
	// categoryID when absent. The boolean reports whether a new row was created.
	GetOrCreate(ctx context.Context, name string, categoryID int64) (domain.Product, bool, error)
	UpdateCategory(ctx context.Context, productID, categoryID int64) error
}

// ProductInfoRepository owns the per-shop offer rows replaced on every import.
type ProductInfoRepository interface {
	// DeleteByShop removes every offer the shop currently advertises. Parameter
	// rows hanging off those offers are removed through the same call.
	DeleteByShop(ctx context.Context, shopID int64) (int64, error)
	Insert(ctx context.Context, info domain.ProductInfo) (domain.ProductInfo, error)
	ListByShop(ctx context.Context, shopID int64) ([]domain.ProductInfo, error)
}

// ParameterRepository persists parameter names shared across offers.
type ParameterRepository interface {
	// Ensure inserts the parameter name when unseen and returns the stored row.
	Ensure(ctx context.Context, name string) (domain.Parameter, error)
}

// ProductParameterRepository persists parameter values attached to an offer.
type ProductParameterRepository interface {
	Insert(ctx context.Context, pp domain.ProductParameter) error
	ListByProductInfo(ctx context.Context, productInfoID int64) ([]domain.ProductParameter, error)
}

// ImportJobRepository tracks the lifecycle of queued catalog imports.
type ImportJobRepository interface {
	Insert(ctx context.Context, rec domain.ImportJobRecord) (domain.ImportJobRecord, error)
	FindByID(ctx context.Context, jobID string) (domain.ImportJobRecord, error)
	UpdateStatus(ctx context.Context, jobID string, status domain.ImportJobStatus, update ImportJobStatusUpdate) (domain.ImportJobRecord, error)
}

// ImportJobStatusUpdate carries optional fields to mutate during a status transition.
type ImportJobStatusUpdate struct {
	Attempt      *int
	CreatedCount *int
	SkippedCount *int
	ErrorKind    *domain.ImportErrorKind
	ErrorMessage *string
	CompletedAt  *time.Time
}

// HealthRepository reports backend reachability for readiness probes.
type HealthRepository interface {
	Check(ctx context.Context) error
}
