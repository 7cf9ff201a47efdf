package service

import (
	"context"
	"time"

	"tariff-service/internal/model"
)

// ResolutionCache memoizes point-in-time lookups. Invalidate must drop every entry.
//
// Get reports the generation it looked in. Set must be given that generation so a
// value read from the store before an Invalidate is never visible after it.
type ResolutionCache interface {
	Get(ctx context.Context, key model.TariffKey, date time.Time) (tariff *model.Tariff, generation int64, ok bool)
	Set(ctx context.Context, generation int64, key model.TariffKey, date time.Time, tariff *model.Tariff)
	Invalidate(ctx context.Context)
}

// EventPublisher fans tariff change events out to listeners. Publish must not block.
type EventPublisher interface {
	Publish(event string, data map[string]interface{})
}

const (
	EventTariffCreated        = "tariff.created"
	EventTariffSuperseded     = "tariff.superseded"
	EventTariffUpdated        = "tariff.updated"
	EventTariffDeleted        = "tariff.deleted"
	EventTariffProductAdded   = "tariff.product_added"
	EventTariffProductRemoved = "tariff.product_removed"
)

type nopCache struct{}

func (nopCache) Get(context.Context, model.TariffKey, time.Time) (*model.Tariff, int64, bool) {
	return nil, 0, false
}
func (nopCache) Set(context.Context, int64, model.TariffKey, time.Time, *model.Tariff) {}
func (nopCache) Invalidate(context.Context)                                          {}

type nopPublisher struct{}

func (nopPublisher) Publish(string, map[string]interface{}) {}
