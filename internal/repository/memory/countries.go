package memory

import (
	"context"
	"sort"

	"tariff-service/internal/model"
	"tariff-service/internal/repository"
)

type CountryRepository struct {
	store *Store
}

func NewCountryRepository(store *Store) *CountryRepository {
	return &CountryRepository{store: store}
}

func (r *CountryRepository) Create(ctx context.Context, country *model.Country) error {
	return r.store.write(ctx, func() error {
		if _, ok := r.store.countries[country.Code]; ok {
			return ErrDuplicateKey
		}
		now := r.store.now()
		country.CreatedAt, country.UpdatedAt = now, now
		r.store.countries[country.Code] = *country
		return nil
	})
}

func (r *CountryRepository) Update(ctx context.Context, country *model.Country) error {
	return r.store.write(ctx, func() error {
		country.UpdatedAt = r.store.now()
		r.store.countries[country.Code] = *country
		return nil
	})
}

func (r *CountryRepository) Delete(ctx context.Context, code string) error {
	return r.store.write(ctx, func() error {
		delete(r.store.countries, code)
		return nil
	})
}

func (r *CountryRepository) FindByCode(_ context.Context, code string) (*model.Country, error) {
	var (
		country model.Country
		ok      bool
	)
	r.store.read(func() { country, ok = r.store.countries[code] })
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &country, nil
}

func (r *CountryRepository) Exists(_ context.Context, code string) (bool, error) {
	var ok bool
	r.store.read(func() { _, ok = r.store.countries[code] })
	return ok, nil
}

func (r *CountryRepository) ListAll(_ context.Context) ([]model.Country, error) {
	var countries []model.Country
	r.store.read(func() {
		countries = make([]model.Country, 0, len(r.store.countries))
		for _, c := range r.store.countries {
			countries = append(countries, c)
		}
	})
	sort.Slice(countries, func(i, j int) bool { return countries[i].Code < countries[j].Code })
	return countries, nil
}
