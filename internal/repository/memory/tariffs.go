package memory

import (
	"context"
	"sort"
	"time"

	"tariff-service/internal/model"
	"tariff-service/internal/repository"
	"tariff-service/pkg/pagination"

	"github.com/google/uuid"
)

type TariffRepository struct {
	store *Store
}

func NewTariffRepository(store *Store) *TariffRepository {
	return &TariffRepository{store: store}
}

// Create stores the tariff and links its products, inserting products that do not exist yet
func (r *TariffRepository) Create(ctx context.Context, tariff *model.Tariff) error {
	return r.store.write(ctx, func() error {
		if tariff.ID == uuid.Nil {
			tariff.ID = uuid.New()
		}
		if _, ok := r.store.tariffs[tariff.ID]; ok {
			return ErrDuplicateKey
		}
		for i := range tariff.Products {
			if _, ok := r.store.products[tariff.Products[i].HTSCode]; ok {
				continue
			}
			if err := r.store.insertProduct(&tariff.Products[i]); err != nil {
				return err
			}
		}

		now := r.store.now()
		tariff.CreatedAt, tariff.UpdatedAt = now, now
		r.store.tariffs[tariff.ID] = cloneTariff(*tariff)

		codes := make(map[string]struct{}, len(tariff.Products))
		for _, p := range tariff.Products {
			codes[p.HTSCode] = struct{}{}
		}
		r.store.links[tariff.ID] = codes
		return nil
	})
}

func (r *TariffRepository) Update(ctx context.Context, tariff *model.Tariff) error {
	return r.store.write(ctx, func() error {
		if _, ok := r.store.tariffs[tariff.ID]; !ok {
			return repository.ErrNotFound
		}
		tariff.UpdatedAt = r.store.now()
		r.store.tariffs[tariff.ID] = cloneTariff(*tariff)
		return nil
	})
}

func (r *TariffRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.store.write(ctx, func() error {
		delete(r.store.tariffs, id)
		delete(r.store.links, id)
		return nil
	})
}

func (r *TariffRepository) FindByID(_ context.Context, id uuid.UUID) (*model.Tariff, error) {
	var (
		tariff model.Tariff
		ok     bool
	)
	r.store.read(func() {
		var stored model.Tariff
		if stored, ok = r.store.tariffs[id]; ok {
			tariff = r.store.hydrate(stored)
		}
	})
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &tariff, nil
}

func (r *TariffRepository) collect(match func(model.Tariff) bool) []model.Tariff {
	var out []model.Tariff
	r.store.read(func() {
		for _, t := range r.store.tariffs {
			if match(t) {
				out = append(out, r.store.hydrate(t))
			}
		}
	})
	return out
}

func sortByTimeline(tariffs []model.Tariff) {
	sort.Slice(tariffs, func(i, j int) bool {
		a, b := tariffs[i], tariffs[j]
		if a.OriginCountryCode != b.OriginCountryCode {
			return a.OriginCountryCode < b.OriginCountryCode
		}
		if a.DestCountryCode != b.DestCountryCode {
			return a.DestCountryCode < b.DestCountryCode
		}
		return a.EffectiveDate.Before(b.EffectiveDate)
	})
}

func (r *TariffRepository) FindByProductCode(_ context.Context, code string) ([]model.Tariff, error) {
	tariffs := r.collect(func(t model.Tariff) bool {
		_, ok := r.store.links[t.ID][code]
		return ok
	})
	sortByTimeline(tariffs)
	return tariffs, nil
}

func (r *TariffRepository) FindByKey(_ context.Context, key model.TariffKey) ([]model.Tariff, error) {
	tariffs := r.collect(func(t model.Tariff) bool { return r.store.matchesKey(t, key) })
	sortByTimeline(tariffs)
	return tariffs, nil
}

func (r *TariffRepository) FindApplicable(ctx context.Context, key model.TariffKey, targetDate time.Time) ([]model.Tariff, error) {
	var tariffs []model.Tariff
	r.store.readCommitted(ctx, func() {
		if p, ok := r.store.products[key.ProductCode]; !ok || !p.Enabled {
			return
		}
		for _, t := range r.store.tariffs {
			if t.Enabled && r.store.matchesKey(t, key) && t.Covers(targetDate) {
				tariffs = append(tariffs, r.store.hydrate(t))
			}
		}
	})
	sort.Slice(tariffs, func(i, j int) bool { return tariffs[i].EffectiveDate.After(tariffs[j].EffectiveDate) })
	if len(tariffs) > 2 {
		tariffs = tariffs[:2]
	}
	return tariffs, nil
}

func (r *TariffRepository) FindOverlapping(_ context.Context, key model.TariffKey, from time.Time, to *time.Time, excludeID *uuid.UUID) (int64, error) {
	window := model.Tariff{EffectiveDate: from, ExpiryDate: to}
	tariffs := r.collect(func(t model.Tariff) bool {
		if excludeID != nil && t.ID == *excludeID {
			return false
		}
		return t.Enabled && r.store.matchesKey(t, key) && t.Overlaps(&window)
	})
	return int64(len(tariffs)), nil
}

func (r *TariffRepository) List(_ context.Context, page, limit int) ([]model.Tariff, int64, error) {
	tariffs := r.collect(func(model.Tariff) bool { return true })
	sort.Slice(tariffs, func(i, j int) bool { return tariffs[i].EffectiveDate.After(tariffs[j].EffectiveDate) })
	start, end := pagination.Window(len(tariffs), page, limit)
	return tariffs[start:end], int64(len(tariffs)), nil
}

func (r *TariffRepository) ListAll(_ context.Context) ([]model.Tariff, error) {
	tariffs := r.collect(func(model.Tariff) bool { return true })
	sortByTimeline(tariffs)
	return tariffs, nil
}

func (r *TariffRepository) AddProduct(ctx context.Context, tariffID uuid.UUID, product *model.Product) error {
	return r.store.write(ctx, func() error {
		if _, ok := r.store.tariffs[tariffID]; !ok {
			return repository.ErrNotFound
		}
		if _, ok := r.store.products[product.HTSCode]; !ok {
			if err := r.store.insertProduct(product); err != nil {
				return err
			}
		}
		codes, ok := r.store.links[tariffID]
		if !ok {
			codes = make(map[string]struct{})
			r.store.links[tariffID] = codes
		}
		codes[product.HTSCode] = struct{}{}
		return nil
	})
}

func (r *TariffRepository) RemoveProduct(ctx context.Context, tariffID uuid.UUID, productCode string) error {
	return r.store.write(ctx, func() error {
		delete(r.store.links[tariffID], productCode)
		return nil
	})
}

// LockKey is a no-op: transactions on the store are already serialized
func (r *TariffRepository) LockKey(context.Context, model.TariffKey) error {
	return nil
}
