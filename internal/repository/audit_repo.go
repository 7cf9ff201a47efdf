package repository

import (
	"context"

	"tariff-service/internal/model"
	"tariff-service/pkg/pagination"

	"gorm.io/gorm"
)

// AuditFilter narrows the change history. Empty fields match every entry.
type AuditFilter struct {
	EntityID  string
	Action    string
	Principal string
}

// Matches applies the filter to one entry, for stores that cannot push it into a query
func (f AuditFilter) Matches(entry model.AuditLog) bool {
	return (f.EntityID == "" || entry.EntityID == f.EntityID) &&
		(f.Action == "" || entry.Action == f.Action) &&
		(f.Principal == "" || entry.Principal == f.Principal)
}

type AuditRepository interface {
	// Log must join the caller's transaction so the entry commits or rolls back with the change
	Log(ctx context.Context, entry *model.AuditLog) error
	List(ctx context.Context, filter AuditFilter, page, limit int) ([]model.AuditLog, int64, error)
}

type auditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Log(ctx context.Context, entry *model.AuditLog) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *auditRepository) List(ctx context.Context, filter AuditFilter, page, limit int) ([]model.AuditLog, int64, error) {
	query := GetDB(ctx, r.db).Model(&model.AuditLog{})
	if filter.EntityID != "" {
		query = query.Where("entity_id = ?", filter.EntityID)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.Principal != "" {
		query = query.Where("principal = ?", filter.Principal)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	p := pagination.New(page, limit)
	var logs []model.AuditLog
	if err := query.Order("created_at desc").Offset(p.Offset).Limit(p.Limit).Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}
