package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"tariff-service/internal/model"
	"tariff-service/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ repository.CountryRepository  = (*CountryRepository)(nil)
	_ repository.ProductRepository  = (*ProductRepository)(nil)
	_ repository.TariffRepository   = (*TariffRepository)(nil)
	_ repository.AuditRepository    = (*AuditRepository)(nil)
	_ repository.TransactionManager = (*TransactionManager)(nil)
)

func day(s string) time.Time {
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func newTariff(origin, dest, code, effective string) *model.Tariff {
	return &model.Tariff{
		OriginCountryCode: origin,
		DestCountryCode:   dest,
		EffectiveDate:     day(effective),
		AdValoremRate:     decimal.RequireFromString("0.05"),
		Enabled:           true,
		Products:          []model.Product{{HTSCode: code, Name: "product " + code, Enabled: true}},
	}
}

func TestRunInTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	tx := NewTransactionManager(store)
	countries := NewCountryRepository(store)
	tariffs := NewTariffRepository(store)

	require.NoError(t, countries.Create(ctx, &model.Country{Code: "US", Name: "United States", Enabled: true}))

	boom := errors.New("boom")
	err := tx.RunInTx(ctx, func(txCtx context.Context) error {
		require.NoError(t, countries.Create(txCtx, &model.Country{Code: "CN", Name: "China", Enabled: true}))
		require.NoError(t, tariffs.Create(txCtx, newTariff("CN", "US", "0101", "2024-01-01")))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	exists, err := countries.Exists(ctx, "CN")
	require.NoError(t, err)
	assert.False(t, exists)

	all, err := tariffs.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	exists, err = countries.Exists(ctx, "US")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRunInTxNestedJoinsOuter(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	tx := NewTransactionManager(store)
	countries := NewCountryRepository(store)

	err := tx.RunInTx(ctx, func(txCtx context.Context) error {
		return tx.RunInTx(txCtx, func(inner context.Context) error {
			return countries.Create(inner, &model.Country{Code: "DE", Name: "Germany", Enabled: true})
		})
	})
	require.NoError(t, err)

	exists, _ := countries.Exists(ctx, "DE")
	assert.True(t, exists)
}

func TestTariffRepositoryApplicable(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repo := NewTariffRepository(store)
	products := NewProductRepository(store)

	old := newTariff("CN", "US", "0101", "2024-01-01")
	exp := day("2024-06-30")
	old.ExpiryDate = &exp
	require.NoError(t, repo.Create(ctx, old))

	current := newTariff("CN", "US", "0101", "2024-07-01")
	require.NoError(t, repo.Create(ctx, current))

	key := model.TariffKey{Origin: "CN", Dest: "US", ProductCode: "0101"}

	found, err := repo.FindApplicable(ctx, key, day("2024-03-01"))
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, old.ID, found[0].ID)

	found, err = repo.FindApplicable(ctx, key, day("2025-01-01"))
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, current.ID, found[0].ID)
	require.Len(t, found[0].Products, 1)
	assert.Equal(t, "0101", found[0].Products[0].HTSCode)

	found, err = repo.FindApplicable(ctx, model.TariffKey{Origin: "US", Dest: "CN", ProductCode: "0101"}, day("2025-01-01"))
	require.NoError(t, err)
	assert.Empty(t, found)

	product, err := products.FindByCode(ctx, "0101")
	require.NoError(t, err)
	product.Enabled = false
	require.NoError(t, products.Update(ctx, product))

	found, err = repo.FindApplicable(ctx, key, day("2025-01-01"))
	require.NoError(t, err)
	assert.Empty(t, found, "disabled products never resolve")
}

func TestFindApplicableWaitsForRunningTransaction(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	tx := NewTransactionManager(store)
	repo := NewTariffRepository(store)

	current := newTariff("CN", "US", "0101", "2024-01-01")
	require.NoError(t, repo.Create(ctx, current))
	key := model.TariffKey{Origin: "CN", Dest: "US", ProductCode: "0101"}

	closed := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- tx.RunInTx(ctx, func(txCtx context.Context) error {
			stored, err := repo.FindByID(txCtx, current.ID)
			if err != nil {
				return err
			}
			exp := day("2024-03-31")
			stored.ExpiryDate = &exp
			if err := repo.Update(txCtx, stored); err != nil {
				return err
			}
			close(closed)
			<-release
			return errors.New("abandoned")
		})
	}()
	<-closed

	result := make(chan []model.Tariff, 1)
	go func() {
		found, _ := repo.FindApplicable(ctx, key, day("2024-06-01"))
		result <- found
	}()

	select {
	case <-result:
		t.Fatal("lookup returned while the transaction was still open")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.Error(t, <-done)

	found := <-result
	require.Len(t, found, 1)
	assert.Equal(t, current.ID, found[0].ID)
	assert.Nil(t, found[0].ExpiryDate)
}

func TestTariffRepositoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewTariffRepository(NewStore())

	tariff := newTariff("CN", "US", "0101", "2024-01-01")
	require.NoError(t, repo.Create(ctx, tariff))

	loaded, err := repo.FindByID(ctx, tariff.ID)
	require.NoError(t, err)
	exp := day("2024-02-01")
	loaded.ExpiryDate = &exp

	again, err := repo.FindByID(ctx, tariff.ID)
	require.NoError(t, err)
	assert.Nil(t, again.ExpiryDate)
}

func TestTariffRepositoryProducts(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repo := NewTariffRepository(store)

	tariff := newTariff("CN", "US", "0101", "2024-01-01")
	require.NoError(t, repo.Create(ctx, tariff))

	require.NoError(t, repo.AddProduct(ctx, tariff.ID, &model.Product{HTSCode: "0202", Name: "beef", Enabled: true}))
	loaded, err := repo.FindByID(ctx, tariff.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"0101", "0202"}, loaded.ProductCodes())

	require.NoError(t, repo.RemoveProduct(ctx, tariff.ID, "0101"))
	loaded, err = repo.FindByID(ctx, tariff.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"0202"}, loaded.ProductCodes())

	byCode, err := repo.FindByProductCode(ctx, "0101")
	require.NoError(t, err)
	assert.Empty(t, byCode)

	err = repo.AddProduct(ctx, tariff.ID, &model.Product{HTSCode: "0303", Name: "beef"})
	assert.ErrorIs(t, err, ErrDuplicateKey)
}

func TestTariffRepositoryFindOverlapping(t *testing.T) {
	ctx := context.Background()
	repo := NewTariffRepository(NewStore())
	key := model.TariffKey{Origin: "CN", Dest: "US", ProductCode: "0101"}

	closed := newTariff("CN", "US", "0101", "2024-01-01")
	exp := day("2024-06-30")
	closed.ExpiryDate = &exp
	require.NoError(t, repo.Create(ctx, closed))

	retired := newTariff("CN", "US", "0101", "2025-01-01")
	collapsed := day("2024-12-31")
	retired.ExpiryDate = &collapsed
	require.NoError(t, repo.Create(ctx, retired))

	to := day("2024-08-01")
	n, err := repo.FindOverlapping(ctx, key, day("2024-06-30"), &to, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = repo.FindOverlapping(ctx, key, day("2024-06-30"), &to, &closed.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	n, err = repo.FindOverlapping(ctx, key, day("2024-07-01"), nil, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n, "retired windows never overlap")
}

func TestProductRepositoryList(t *testing.T) {
	ctx := context.Background()
	repo := NewProductRepository(NewStore())

	require.NoError(t, repo.Create(ctx, &model.Product{HTSCode: "0101", Name: "Live horses"}))
	require.NoError(t, repo.Create(ctx, &model.Product{HTSCode: "0102", Name: "Live cattle"}))
	require.NoError(t, repo.Create(ctx, &model.Product{HTSCode: "0201", Name: "Beef, fresh"}))
	assert.ErrorIs(t, repo.Create(ctx, &model.Product{HTSCode: "0999", Name: "Live cattle"}), ErrDuplicateKey)

	items, total, err := repo.List(ctx, 1, 10, "live")
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, items, 2)

	items, total, err = repo.List(ctx, 2, 2, "")
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, items, 1)
	assert.Equal(t, "0201", items[0].HTSCode)

	_, err = repo.FindByName(ctx, "Sheep")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
