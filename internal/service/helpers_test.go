package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"tariff-service/internal/model"
	"tariff-service/internal/repository"
	"tariff-service/internal/repository/memory"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

var admin = Principal{Subject: "alice", Role: "admin"}

type recordedEvent struct {
	Name string
	Data map[string]interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *recordingPublisher) Publish(event string, data map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{Name: event, Data: data})
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Name)
	}
	return out
}

type mapCache struct {
	mu          sync.Mutex
	entries     map[string]model.Tariff
	invalidated int
	// onMiss runs after a miss is recorded, before the caller reads the store
	onMiss func()
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string]model.Tariff)}
}

func (c *mapCache) id(key model.TariffKey, date time.Time) string {
	return key.String() + "@" + date.Format(model.DateLayout)
}

func (c *mapCache) Get(_ context.Context, key model.TariffKey, date time.Time) (*model.Tariff, int64, bool) {
	c.mu.Lock()
	t, ok := c.entries[c.id(key, date)]
	gen := int64(c.invalidated)
	onMiss := c.onMiss
	c.mu.Unlock()
	if !ok {
		if onMiss != nil {
			onMiss()
		}
		return nil, gen, false
	}
	return &t, gen, true
}

func (c *mapCache) Set(_ context.Context, generation int64, key model.TariffKey, date time.Time, tariff *model.Tariff) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if generation != int64(c.invalidated) {
		return
	}
	c.entries[c.id(key, date)] = *tariff
}

func (c *mapCache) Invalidate(context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]model.Tariff)
	c.invalidated++
}

// failingAudit rejects entries for one action so the surrounding transaction rolls back
type failingAudit struct {
	repository.AuditRepository
	failOn string
}

func (f failingAudit) Log(ctx context.Context, entry *model.AuditLog) error {
	if entry.Action == f.failOn {
		return errors.New("audit store unavailable")
	}
	return f.AuditRepository.Log(ctx, entry)
}

type fixture struct {
	ctx       context.Context
	store     *memory.Store
	tariffs   *memory.TariffRepository
	products  *memory.ProductRepository
	countries *memory.CountryRepository
	audit     *memory.AuditRepository
	tx        *memory.TransactionManager
	cache     *mapCache
	events    *recordingPublisher
	logger    *logrus.Logger
	svc       TariffService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	f := &fixture{
		ctx:       context.Background(),
		store:     store,
		tariffs:   memory.NewTariffRepository(store),
		products:  memory.NewProductRepository(store),
		countries: memory.NewCountryRepository(store),
		audit:     memory.NewAuditRepository(store),
		tx:        memory.NewTransactionManager(store),
		cache:     newMapCache(),
		events:    &recordingPublisher{},
		logger:    logger,
	}
	f.svc = f.tariffService(f.audit)

	for _, c := range []model.Country{
		{Code: "CN", Name: "China", Enabled: true},
		{Code: "US", Name: "United States", Enabled: true},
		{Code: "DE", Name: "Germany", Enabled: true},
		{Code: "XK", Name: "Retired Country", Enabled: false},
	} {
		c := c
		require.NoError(t, f.countries.Create(f.ctx, &c))
	}
	return f
}

func (f *fixture) tariffService(audit repository.AuditRepository) TariffService {
	return NewTariffService(f.tariffs, f.products, f.countries, audit, f.tx, f.cache, f.events, f.logger)
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func enabled() *bool {
	b := true
	return &b
}

func addReq(effective, expiry, rate string) AddTariffRequest {
	return AddTariffRequest{
		OriginCountry: "CN",
		DestCountry:   "US",
		EffectiveDate: effective,
		ExpiryDate:    expiry,
		Rate:          dec(rate),
		HTSCode:       "1234.56",
		Products:      []ProductDescriptor{{HTSCode: "1234.56", Name: "Widgets", Enabled: enabled()}},
	}
}

func query(date string) ParticularTariffQuery {
	return ParticularTariffQuery{HTSCode: "1234.56", OriginCountry: "CN", DestCountry: "US", Date: date}
}

// assertNoOverlap checks that no two live windows share a day for any key
func assertNoOverlap(t *testing.T, f *fixture) {
	t.Helper()
	all, err := f.tariffs.ListAll(f.ctx)
	require.NoError(t, err)

	for i := range all {
		for j := i + 1; j < len(all); j++ {
			a, b := &all[i], &all[j]
			if !a.Enabled || !b.Enabled {
				continue
			}
			for _, key := range a.Keys() {
				if b.OriginCountryCode == key.Origin && b.DestCountryCode == key.Dest && b.HasProduct(key.ProductCode) {
					require.Falsef(t, a.Overlaps(b), "tariffs %s and %s overlap on %s", a.ID, b.ID, key)
				}
			}
		}
	}
}
