package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	domain "github.com/supplyline/api/internal/domain"
	"github.com/supplyline/api/internal/repositories"
)

// stubRepoError implements repositories.RepositoryError for tests.
type stubRepoError struct {
	msg         string
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e *stubRepoError) Error() string       { return e.msg }
func (e *stubRepoError) IsNotFound() bool    { return e.notFound }
func (e *stubRepoError) IsConflict() bool    { return e.conflict }
func (e *stubRepoError) IsUnavailable() bool { return e.unavailable }

func notFoundErr(format string, args ...any) error {
	return &stubRepoError{msg: fmt.Sprintf(format, args...), notFound: true}
}

// stubRegistry is an in-memory repositories.Registry with snapshot-based
// transaction rollback, close enough to the real thing for pipeline tests.
type stubRegistry struct {
	mu sync.Mutex

	users      map[int64]domain.User
	shops      map[string]domain.Shop
	categories map[int64]domain.Category
	products   map[string]domain.Product
	infos      map[int64]domain.ProductInfo
	parameters map[string]domain.Parameter
	links      map[int64]domain.ProductParameter
	jobs       map[string]domain.ImportJobRecord

	nextID int64

	// failNext maps an operation name to an error returned once.
	failNext map[string]error
}

var _ repositories.Registry = (*stubRegistry)(nil)

func newStubRegistry() *stubRegistry {
	return &stubRegistry{
		users:      make(map[int64]domain.User),
		shops:      make(map[string]domain.Shop),
		categories: make(map[int64]domain.Category),
		products:   make(map[string]domain.Product),
		infos:      make(map[int64]domain.ProductInfo),
		parameters: make(map[string]domain.Parameter),
		links:      make(map[int64]domain.ProductParameter),
		jobs:       make(map[string]domain.ImportJobRecord),
		failNext:   make(map[string]error),
	}
}

func (s *stubRegistry) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *stubRegistry) fail(op string) error {
	if err, ok := s.failNext[op]; ok {
		delete(s.failNext, op)
		return err
	}
	return nil
}

func (s *stubRegistry) Close(ctx context.Context) error { return nil }

func (s *stubRegistry) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	snapProducts := cloneMap(s.products)
	snapInfos := cloneMap(s.infos)
	snapParameters := cloneMap(s.parameters)
	snapLinks := cloneMap(s.links)
	s.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.products = snapProducts
		s.infos = snapInfos
		s.parameters = snapParameters
		s.links = snapLinks
		s.mu.Unlock()
		return err
	}
	return nil
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (s *stubRegistry) Users() repositories.UserRepository          { return (*stubUsers)(s) }
func (s *stubRegistry) Shops() repositories.ShopRepository          { return (*stubShops)(s) }
func (s *stubRegistry) Categories() repositories.CategoryRepository { return (*stubCategories)(s) }
func (s *stubRegistry) Products() repositories.ProductRepository    { return (*stubProducts)(s) }
func (s *stubRegistry) ProductInfos() repositories.ProductInfoRepository {
	return (*stubInfos)(s)
}
func (s *stubRegistry) Parameters() repositories.ParameterRepository { return (*stubParameters)(s) }
func (s *stubRegistry) ProductParameters() repositories.ProductParameterRepository {
	return (*stubLinks)(s)
}
func (s *stubRegistry) ImportJobs() repositories.ImportJobRepository { return (*stubJobs)(s) }
func (s *stubRegistry) Health() repositories.HealthRepository        { return (*stubHealth)(s) }

type stubUsers stubRegistry

func (r *stubUsers) FindByID(ctx context.Context, userID int64) (domain.User, error) {
	s := (*stubRegistry)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("users.FindByID"); err != nil {
		return domain.User{}, err
	}
	user, ok := s.users[userID]
	if !ok {
		return domain.User{}, notFoundErr("user %d not found", userID)
	}
	return user, nil
}

func (r *stubUsers) FindByToken(ctx context.Context, token string) (domain.User, error) {
	s := (*stubRegistry)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if fmt.Sprintf("tok-%d", user.ID) == token {
			return user, nil
		}
	}
	return domain.User{}, notFoundErr("token not found")
}

type stubShops stubRegistry

func (r *stubShops) GetOrCreate(ctx context.Context, name string, ownerID int64) (domain.Shop, bool, error) {
	s := (*stubRegistry)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("shops.GetOrCreate"); err != nil {
		return domain.Shop{}, false, err
	}
	if shop, ok := s.shops[name]; ok {
		return shop, false, nil
	}
	shop := domain.Shop{ID: s.id(), Name: name, UserID: ownerID, Accepting: true}
	s.shops[name] = shop
	return shop, true, nil
}

func (r *stubShops) FindByName(ctx context.Context, name string) (domain.Shop, error) {
	s := (*stubRegistry)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	shop, ok := s.shops[name]
	if !ok {
		return domain.Shop{}, notFoundErr("shop %q not found", name)
	}
	return shop, nil
}

type stubCategories stubRegistry

func (r *stubCategories) Ensure(ctx context.Context, category domain.Category) (domain.Category, error) {
	s := (*stubRegistry)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.categories[category.ID]; ok {
		return existing, nil
	}
	s.categories[category.ID] = category
	return category, nil
}

func (r *stubCategories) FindByID(ctx context.Context, categoryID int64) (domain.Category, error) {
	s := (*stubRegistry)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	category, ok := s.categories[categoryID]
	if !ok {
		return domain.Category{}, notFoundErr("category %d not found", categoryID)
	}
	return category, nil
}

type stubProducts stubRegistry

func (r *stubProducts) GetOrCreate(ctx context.Context, name string, categoryID int64) (domain.Product, bool, error) {
	s := (*stubRegistry)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if product, ok := s.products[name]; ok {
		return product, false, nil
	}
	product := domain.Product{ID: s.id(), Name: name, CategoryID: categoryID}
	s.products[name] = product
	return product, true, nil
}

func (r *stubProducts) UpdateCategory(ctx context.Context, productID, categoryID int64) error {
	s := (*stubRegistry)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, product := range s.products {
		if product.ID == productID {
			product.CategoryID = categoryID
			s.products[name] = product
			return nil
		}
	}
	return notFoundErr("product %d not found", productID)
}

type stubInfos stubRegistry

func (r *stubInfos) DeleteByShop(ctx context.Context, shopID int64) (int64, error) {
	s := (*stubRegistry)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	for id, info := range s.infos {
		if info.ShopID != shopID {
			continue
		}
		delete(s.infos, id)
		deleted++
		for linkID, link := range s.links {
			if link.ProductInfoID == id {
				delete(s.links, linkID)
			}
		}
	}
	return deleted, nil
}

func (r *stubInfos) Insert(ctx context.Context, info domain.ProductInfo) (domain.ProductInfo, error) {
	s := (*stubRegistry)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("infos.Insert"); err != nil {
		return domain.ProductInfo{}, err
	}
	info.ID = s.id()
	s.infos[info.ID] = info
	return info, nil
}

func (r *stubInfos) ListByShop(ctx context.Context, shopID int64) ([]domain.ProductInfo, error) {
	s := (*stubRegistry)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ProductInfo
	for _, info := range s.infos {
		if info.ShopID == shopID {
			out = append(out, info)
		}
	}
	return out, nil
}

type stubParameters stubRegistry

func (r *stubParameters) Ensure(ctx context.Context, name string) (domain.Parameter, error) {
	s := (*stubRegistry)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if param, ok := s.parameters[name]; ok {
		return param, nil
	}
	param := domain.Parameter{ID: s.id(), Name: name}
	s.parameters[name] = param
	return param, nil
}

type stubLinks stubRegistry

func (r *stubLinks) Insert(ctx context.Context, pp domain.ProductParameter) error {
	s := (*stubRegistry)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	pp.ID = s.id()
	s.links[pp.ID] = pp
	return nil
}

func (r *stubLinks) ListByProductInfo(ctx context.Context, productInfoID int64) ([]domain.ProductParameter, error) {
	s := (*stubRegistry)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ProductParameter
	for _, link := range s.links {
		if link.ProductInfoID == productInfoID {
			out = append(out, link)
		}
	}
	return out, nil
}

type stubJobs stubRegistry

func (r *stubJobs) Insert(ctx context.Context, rec domain.ImportJobRecord) (domain.ImportJobRecord, error) {
	s := (*stubRegistry)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("jobs.Insert"); err != nil {
		return domain.ImportJobRecord{}, err
	}
	if rec.Status == "" {
		rec.Status = domain.ImportJobStatusQueued
	}
	rec.CreatedAt = time.Now().UTC()
	rec.UpdatedAt = rec.CreatedAt
	s.jobs[rec.ID] = rec
	return rec, nil
}

func (r *stubJobs) FindByID(ctx context.Context, jobID string) (domain.ImportJobRecord, error) {
	s := (*stubRegistry)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.jobs[jobID]
	if !ok {
		return domain.ImportJobRecord{}, notFoundErr("job %q not found", jobID)
	}
	return rec, nil
}

func (r *stubJobs) UpdateStatus(ctx context.Context, jobID string, status domain.ImportJobStatus, update repositories.ImportJobStatusUpdate) (domain.ImportJobRecord, error) {
	s := (*stubRegistry)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.jobs[jobID]
	if !ok {
		return domain.ImportJobRecord{}, notFoundErr("job %q not found", jobID)
	}
	rec.Status = status
	rec.UpdatedAt = time.Now().UTC()
	if update.Attempt != nil {
		rec.Attempt = *update.Attempt
	}
	if update.CreatedCount != nil {
		rec.CreatedCount = *update.CreatedCount
	}
	if update.SkippedCount != nil {
		rec.SkippedCount = *update.SkippedCount
	}
	if update.ErrorKind != nil {
		rec.ErrorKind = *update.ErrorKind
	}
	if update.ErrorMessage != nil {
		rec.ErrorMessage = *update.ErrorMessage
	}
	if update.CompletedAt != nil {
		t := *update.CompletedAt
		rec.CompletedAt = &t
	}
	s.jobs[jobID] = rec
	return rec, nil
}

type stubHealth stubRegistry

func (r *stubHealth) Check(ctx context.Context) error { return nil }
