// Package memory keeps every repository table in process memory. It backs the
// tests and the STORAGE_DRIVER=memory mode of the API.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"tariff-service/internal/model"

	"github.com/google/uuid"
)

var ErrDuplicateKey = errors.New("duplicate key value violates unique constraint")

type txMarker struct{}

// Store owns the tables shared by the repositories built from it
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex

	countries map[string]model.Country
	products  map[string]model.Product
	tariffs   map[uuid.UUID]model.Tariff
	links     map[uuid.UUID]map[string]struct{}
	audit     []model.AuditLog

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		countries: make(map[string]model.Country),
		products:  make(map[string]model.Product),
		tariffs:   make(map[uuid.UUID]model.Tariff),
		links:     make(map[uuid.UUID]map[string]struct{}),
		now:       time.Now,
	}
}

type tables struct {
	countries map[string]model.Country
	products  map[string]model.Product
	tariffs   map[uuid.UUID]model.Tariff
	links     map[uuid.UUID]map[string]struct{}
	audit     []model.AuditLog
}

func (s *Store) snapshot() tables {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := tables{
		countries: make(map[string]model.Country, len(s.countries)),
		products:  make(map[string]model.Product, len(s.products)),
		tariffs:   make(map[uuid.UUID]model.Tariff, len(s.tariffs)),
		links:     make(map[uuid.UUID]map[string]struct{}, len(s.links)),
		audit:     append([]model.AuditLog(nil), s.audit...),
	}
	for k, v := range s.countries {
		snap.countries[k] = v
	}
	for k, v := range s.products {
		snap.products[k] = v
	}
	for k, v := range s.tariffs {
		snap.tariffs[k] = cloneTariff(v)
	}
	for k, codes := range s.links {
		set := make(map[string]struct{}, len(codes))
		for c := range codes {
			set[c] = struct{}{}
		}
		snap.links[k] = set
	}
	return snap
}

func (s *Store) restore(snap tables) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.countries = snap.countries
	s.products = snap.products
	s.tariffs = snap.tariffs
	s.links = snap.links
	s.audit = snap.audit
}

func inTx(ctx context.Context) bool {
	_, ok := ctx.Value(txMarker{}).(bool)
	return ok
}

// write runs fn under the table lock. Outside a transaction it also waits for
// any running transaction so a rollback cannot discard the write.
func (s *Store) write(ctx context.Context, fn func() error) error {
	if !inTx(ctx) {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

func (s *Store) read(fn func()) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn()
}

// readCommitted is read for lookups whose result is cached. Outside a transaction
// it waits for the running one, so it never observes rows a rollback would undo.
func (s *Store) readCommitted(ctx context.Context, fn func()) {
	if !inTx(ctx) {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.read(fn)
}

// TransactionManager runs one transaction at a time against the store
type TransactionManager struct {
	store *Store
}

func NewTransactionManager(store *Store) *TransactionManager {
	return &TransactionManager{store: store}
}

func (t *TransactionManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	t.store.txMu.Lock()
	defer t.store.txMu.Unlock()

	snap := t.store.snapshot()
	if err := fn(context.WithValue(ctx, txMarker{}, true)); err != nil {
		t.store.restore(snap)
		return err
	}
	return nil
}

func cloneTariff(t model.Tariff) model.Tariff {
	if t.ExpiryDate != nil {
		exp := *t.ExpiryDate
		t.ExpiryDate = &exp
	}
	t.Products = nil
	t.OriginCountry = nil
	t.DestCountry = nil
	return t
}

// hydrate attaches the linked products, ordered by code. Callers hold s.mu.
func (s *Store) hydrate(t model.Tariff) model.Tariff {
	out := cloneTariff(t)
	codes := make([]string, 0, len(s.links[t.ID]))
	for c := range s.links[t.ID] {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	out.Products = make([]model.Product, 0, len(codes))
	for _, c := range codes {
		if p, ok := s.products[c]; ok {
			out.Products = append(out.Products, p)
		}
	}
	return out
}

func (s *Store) matchesKey(t model.Tariff, key model.TariffKey) bool {
	if t.OriginCountryCode != key.Origin || t.DestCountryCode != key.Dest {
		return false
	}
	_, ok := s.links[t.ID][key.ProductCode]
	return ok
}
