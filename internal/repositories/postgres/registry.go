package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	repositories "github.com/supplyline/api/internal/repositories"
)

// querier abstracts *sql.DB and *sql.Tx so repositories transparently join the
// transaction carried in the context.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txContextKey struct{}

// Registry wires Postgres backed repositories over a shared connection pool.
type Registry struct {
	db *sql.DB

	users             *UserRepository
	shops             *ShopRepository
	categories        *CategoryRepository
	products          *ProductRepository
	productInfos      *ProductInfoRepository
	parameters        *ParameterRepository
	productParameters *ProductParameterRepository
	importJobs        *ImportJobRepository
	health            *HealthRepository
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry constructs the repository registry over an open database handle.
func NewRegistry(db *sql.DB) (*Registry, error) {
	if db == nil {
		return nil, errors.New("postgres registry requires a database handle")
	}

	r := &Registry{db: db}
	r.users = &UserRepository{registry: r}
	r.shops = &ShopRepository{registry: r}
	r.categories = &CategoryRepository{registry: r}
	r.products = &ProductRepository{registry: r}
	r.productInfos = &ProductInfoRepository{registry: r}
	r.parameters = &ParameterRepository{registry: r}
	r.productParameters = &ProductParameterRepository{registry: r}
	r.importJobs = &ImportJobRepository{registry: r}
	r.health = &HealthRepository{registry: r}
	return r, nil
}

// Close releases the underlying connection pool.
func (r *Registry) Close(ctx context.Context) error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// RunInTx executes fn inside a database transaction. The transaction handle is
// carried through the context so every repository call inside fn joins it.
// Nested calls reuse the transaction already in flight.
func (r *Registry) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if r == nil || r.db == nil {
		return errors.New("postgres registry not initialised")
	}
	if fn == nil {
		return errors.New("postgres registry: transaction body is required")
	}
	if _, ok := ctx.Value(txContextKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return WrapError("postgres: begin tx", err)
	}

	if err := fn(context.WithValue(ctx, txContextKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return WrapError("postgres: commit tx", err)
	}
	return nil
}

// q resolves the querier for the current context, preferring an open transaction.
func (r *Registry) q(ctx context.Context) querier {
	if tx, ok := ctx.Value(txContextKey{}).(*sql.Tx); ok {
		return tx
	}
	return r.db
}

func (r *Registry) Users() repositories.UserRepository          { return r.users }
func (r *Registry) Shops() repositories.ShopRepository          { return r.shops }
func (r *Registry) Categories() repositories.CategoryRepository { return r.categories }
func (r *Registry) Products() repositories.ProductRepository    { return r.products }
func (r *Registry) ProductInfos() repositories.ProductInfoRepository {
	return r.productInfos
}
func (r *Registry) Parameters() repositories.ParameterRepository { return r.parameters }
func (r *Registry) ProductParameters() repositories.ProductParameterRepository {
	return r.productParameters
}
func (r *Registry) ImportJobs() repositories.ImportJobRepository { return r.importJobs }
func (r *Registry) Health() repositories.HealthRepository        { return r.health }

// HealthRepository reports database reachability for readiness probes.
type HealthRepository struct {
	registry *Registry
}

var _ repositories.HealthRepository = (*HealthRepository)(nil)

// Check pings the database through the connection pool.
func (h *HealthRepository) Check(ctx context.Context) error {
	if h == nil || h.registry == nil || h.registry.db == nil {
		return errors.New("health repository not initialised")
	}
	if err := h.registry.db.PingContext(ctx); err != nil {
		return WrapError("postgres: ping", err)
	}
	return nil
}
