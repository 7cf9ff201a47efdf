package memory

import (
	"context"

	"tariff-service/internal/model"
	"tariff-service/internal/repository"
	"tariff-service/pkg/pagination"

	"github.com/google/uuid"
)

type AuditRepository struct {
	store *Store
}

func NewAuditRepository(store *Store) *AuditRepository {
	return &AuditRepository{store: store}
}

func (r *AuditRepository) Log(ctx context.Context, entry *model.AuditLog) error {
	return r.store.write(ctx, func() error {
		if entry.ID == uuid.Nil {
			entry.ID = uuid.New()
		}
		entry.CreatedAt = r.store.now()
		r.store.audit = append(r.store.audit, *entry)
		return nil
	})
}

// List returns the matching entries newest first
func (r *AuditRepository) List(_ context.Context, filter repository.AuditFilter, page, limit int) ([]model.AuditLog, int64, error) {
	var logs []model.AuditLog
	r.store.read(func() {
		logs = make([]model.AuditLog, 0, len(r.store.audit))
		for i := len(r.store.audit) - 1; i >= 0; i-- {
			if filter.Matches(r.store.audit[i]) {
				logs = append(logs, r.store.audit[i])
			}
		}
	})
	start, end := pagination.Window(len(logs), page, limit)
	return logs[start:end], int64(len(logs)), nil
}
