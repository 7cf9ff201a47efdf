// Package app wires repositories, the resolution cache and services from configuration.
// Both binaries build their dependency graph here.
package app

import (
	"fmt"

	"tariff-service/internal/cache"
	"tariff-service/internal/config"
	"tariff-service/internal/database"
	"tariff-service/internal/repository"
	"tariff-service/internal/repository/memory"
	"tariff-service/internal/service"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type Stores struct {
	Countries repository.CountryRepository
	Products  repository.ProductRepository
	Tariffs   repository.TariffRepository
	Audit     repository.AuditRepository
	Tx        repository.TransactionManager

	// DB is nil for the memory driver
	DB *gorm.DB
}

// OpenStores connects the configured storage driver
func OpenStores(cfg *config.Config, logger *logrus.Logger) (*Stores, error) {
	if cfg.Storage.Driver == config.StorageMemory {
		logger.Warn("using in-memory storage, data is lost on exit")
		store := memory.NewStore()
		return &Stores{
			Countries: memory.NewCountryRepository(store),
			Products:  memory.NewProductRepository(store),
			Tariffs:   memory.NewTariffRepository(store),
			Audit:     memory.NewAuditRepository(store),
			Tx:        memory.NewTransactionManager(store),
		}, nil
	}

	db, err := database.NewConnection(cfg.Database.DSN(), logger)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	logger.Info("connected to PostgreSQL")

	return &Stores{
		Countries: repository.NewCountryRepository(db),
		Products:  repository.NewProductRepository(db),
		Tariffs:   repository.NewTariffRepository(db),
		Audit:     repository.NewAuditRepository(db),
		Tx:        repository.NewTransactionManager(db),
		DB:        db,
	}, nil
}

// OpenCache returns the Redis resolution cache, or a no-op cache when Redis is disabled or down.
// The returned func releases the client.
func OpenCache(cfg *config.Config, logger *logrus.Logger) (service.ResolutionCache, func()) {
	if !cfg.Redis.Enabled {
		return cache.NopCache{}, func() {}
	}

	client, err := database.ConnectRedis(cfg.Redis)
	if err != nil {
		logger.WithError(err).Warn("redis unavailable, resolution cache disabled")
		return cache.NopCache{}, func() {}
	}
	logger.WithField("addr", cfg.Redis.Addr).Info("resolution cache enabled")

	return cache.NewRedisResolutionCache(client, cfg.Redis.CacheTTL, logger), func() { _ = client.Close() }
}

type Services struct {
	Countries service.CountryService
	Products  service.ProductService
	Tariffs   service.TariffService
	Audit     service.AuditService
}

func NewServices(st *Stores, resolutionCache service.ResolutionCache, events service.EventPublisher, logger *logrus.Logger) *Services {
	return &Services{
		Countries: service.NewCountryService(st.Countries, st.Audit, st.Tx, logger),
		Products:  service.NewProductService(st.Products, st.Audit, st.Tx, resolutionCache, logger),
		Tariffs:   service.NewTariffService(st.Tariffs, st.Products, st.Countries, st.Audit, st.Tx, resolutionCache, events, logger),
		Audit:     service.NewAuditService(st.Audit),
	}
}
