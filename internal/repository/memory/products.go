package memory

import (
	"context"
	"sort"
	"strings"

	"tariff-service/internal/model"
	"tariff-service/internal/repository"
	"tariff-service/pkg/pagination"
)

type ProductRepository struct {
	store *Store
}

func NewProductRepository(store *Store) *ProductRepository {
	return &ProductRepository{store: store}
}

func (r *ProductRepository) Create(ctx context.Context, product *model.Product) error {
	return r.store.write(ctx, func() error {
		return r.store.insertProduct(product)
	})
}

// insertProduct enforces the code and name unique constraints. Callers hold s.mu.
func (s *Store) insertProduct(product *model.Product) error {
	if _, ok := s.products[product.HTSCode]; ok {
		return ErrDuplicateKey
	}
	for _, p := range s.products {
		if p.Name == product.Name {
			return ErrDuplicateKey
		}
	}
	now := s.now()
	product.CreatedAt, product.UpdatedAt = now, now
	s.products[product.HTSCode] = *product
	return nil
}

func (r *ProductRepository) Update(ctx context.Context, product *model.Product) error {
	return r.store.write(ctx, func() error {
		for code, p := range r.store.products {
			if code != product.HTSCode && p.Name == product.Name {
				return ErrDuplicateKey
			}
		}
		product.UpdatedAt = r.store.now()
		r.store.products[product.HTSCode] = *product
		return nil
	})
}

func (r *ProductRepository) Delete(ctx context.Context, code string) error {
	return r.store.write(ctx, func() error {
		for _, codes := range r.store.links {
			delete(codes, code)
		}
		delete(r.store.products, code)
		return nil
	})
}

func (r *ProductRepository) FindByCode(_ context.Context, code string) (*model.Product, error) {
	var (
		product model.Product
		ok      bool
	)
	r.store.read(func() { product, ok = r.store.products[code] })
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &product, nil
}

func (r *ProductRepository) FindByName(_ context.Context, name string) (*model.Product, error) {
	var found *model.Product
	r.store.read(func() {
		for _, p := range r.store.products {
			if p.Name == name {
				p := p
				found = &p
				return
			}
		}
	})
	if found == nil {
		return nil, repository.ErrNotFound
	}
	return found, nil
}

func (r *ProductRepository) List(_ context.Context, page, limit int, search string) ([]model.Product, int64, error) {
	var products []model.Product
	needle := strings.ToLower(search)
	r.store.read(func() {
		for _, p := range r.store.products {
			if search != "" && !strings.Contains(strings.ToLower(p.Name), needle) && !strings.HasPrefix(p.HTSCode, search) {
				continue
			}
			products = append(products, p)
		}
	})
	sort.Slice(products, func(i, j int) bool { return products[i].HTSCode < products[j].HTSCode })

	start, end := pagination.Window(len(products), page, limit)
	return products[start:end], int64(len(products)), nil
}
