package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	domain "github.com/supplyline/api/internal/domain"
	"github.com/supplyline/api/internal/platform/requestctx"
	"github.com/supplyline/api/internal/repositories"
)

// CatalogReconcilerDeps bundles collaborators required to construct the reconciler.
type CatalogReconcilerDeps struct {
	Registry repositories.Registry
}

type catalogReconciler struct {
	registry repositories.Registry
}

var _ CatalogReconciler = (*catalogReconciler)(nil)

// NewCatalogReconciler assembles the storage merge stage of the pipeline.
func NewCatalogReconciler(deps CatalogReconcilerDeps) (CatalogReconciler, error) {
	if deps.Registry == nil {
		return nil, errors.New("catalog reconciler: registry is required")
	}
	return &catalogReconciler{registry: deps.Registry}, nil
}

// Reconcile replaces the shop's offer set with the document's goods list.
//
// Shop and category upserts run before the transaction opens: they are
// idempotent get-or-create steps shared across shops, and a failure later in
// the goods pass deliberately leaves them in place. The destructive portion,
// deleting and recreating every offer row, is a single transaction.
func (r *catalogReconciler) Reconcile(ctx context.Context, doc CatalogDocument, principal domain.User) (ReconcileResult, error) {
	if r == nil || r.registry == nil {
		return ReconcileResult{}, errors.New("catalog reconciler not initialised")
	}

	shop, _, err := r.registry.Shops().GetOrCreate(ctx, doc.Shop, principal.ID)
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("resolve shop %q: %w", doc.Shop, err)
	}
	if shop.UserID != principal.ID {
		return ReconcileResult{}, fmt.Errorf("shop %q: %w", doc.Shop, ErrShopOwnedByAnother)
	}

	for _, c := range doc.Categories {
		if _, err := r.registry.Categories().Ensure(ctx, domain.Category{ID: c.ID, Name: c.Name}); err != nil {
			return ReconcileResult{}, fmt.Errorf("ensure category %d: %w", c.ID, err)
		}
	}

	logger := requestctx.Logger(ctx).With(zap.String("shop", shop.Name))

	var result ReconcileResult
	err = r.registry.RunInTx(ctx, func(ctx context.Context) error {
		deleted, err := r.registry.ProductInfos().DeleteByShop(ctx, shop.ID)
		if err != nil {
			return fmt.Errorf("clear offers: %w", err)
		}
		logger.Info("cleared previous offers", zap.Int64("deleted", deleted))

		for i, good := range doc.Goods {
			if field := good.MissingField(); field != "" {
				return &ItemSchemaError{Index: i, Field: field}
			}

			category, err := r.registry.Categories().FindByID(ctx, *good.CategoryID)
			if err != nil {
				if isNotFound(err) {
					logger.Warn("skipping good with unknown category",
						zap.Int("index", i),
						zap.Int64("category_id", *good.CategoryID),
						zap.String("name", *good.Name))
					result.Skipped++
					continue
				}
				return fmt.Errorf("resolve category %d: %w", *good.CategoryID, err)
			}

			product, created, err := r.registry.Products().GetOrCreate(ctx, *good.Name, category.ID)
			if err != nil {
				return fmt.Errorf("resolve product %q: %w", *good.Name, err)
			}
			if !created && product.CategoryID != category.ID {
				if err := r.registry.Products().UpdateCategory(ctx, product.ID, category.ID); err != nil {
					return fmt.Errorf("recategorise product %q: %w", *good.Name, err)
				}
			}

			info, err := r.registry.ProductInfos().Insert(ctx, domain.ProductInfo{
				ProductID:  product.ID,
				ShopID:     shop.ID,
				Model:      *good.Model,
				ExternalID: *good.ExternalID,
				Price:      *good.Price,
				PriceRRC:   *good.PriceRRC,
				Quantity:   *good.Quantity,
			})
			if err != nil {
				return fmt.Errorf("insert offer for %q: %w", *good.Name, err)
			}

			for _, name := range sortedKeys(good.Parameters) {
				param, err := r.registry.Parameters().Ensure(ctx, name)
				if err != nil {
					return fmt.Errorf("ensure parameter %q: %w", name, err)
				}
				if err := r.registry.ProductParameters().Insert(ctx, domain.ProductParameter{
					ProductInfoID: info.ID,
					ParameterID:   param.ID,
					Value:         good.Parameters[name],
				}); err != nil {
					return fmt.Errorf("insert parameter %q for %q: %w", name, *good.Name, err)
				}
			}

			result.Created++
		}
		return nil
	})
	if err != nil {
		return ReconcileResult{}, err
	}
	return result, nil
}

func isNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}

func sortedKeys(m map[string]string) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
