package service

import (
	"context"
	"fmt"
	"strings"

	"tariff-service/internal/repository"
)

type AuditLogResponse struct {
	ID         string `json:"id"`
	Principal  string `json:"principal"`
	Role       string `json:"role"`
	Action     string `json:"action"`
	EntityID   string `json:"entity_id"`
	EntityName string `json:"entity_name"`
	Details    string `json:"details"`
	CreatedAt  string `json:"created_at"`
}

// AuditLogQuery narrows the history, e.g. to every change made to one tariff
type AuditLogQuery struct {
	EntityID  string `form:"entity_id"`
	Action    string `form:"action"`
	Principal string `form:"principal"`
}

type AuditService interface {
	GetAuditLogs(ctx context.Context, q AuditLogQuery, page, limit int) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	auditRepo repository.AuditRepository
}

func NewAuditService(auditRepo repository.AuditRepository) AuditService {
	return &auditService{auditRepo: auditRepo}
}

// GetAuditLogs returns one page of the matching change history, newest first
func (s *auditService) GetAuditLogs(ctx context.Context, q AuditLogQuery, page, limit int) ([]AuditLogResponse, int64, error) {
	filter := repository.AuditFilter{
		EntityID:  strings.TrimSpace(q.EntityID),
		Action:    strings.ToUpper(strings.TrimSpace(q.Action)),
		Principal: strings.TrimSpace(q.Principal),
	}
	logs, total, err := s.auditRepo.List(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch audit logs: %w", err)
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		principal := l.Principal
		if principal == "" {
			principal = "System"
		}
		res = append(res, AuditLogResponse{
			ID:         l.ID.String(),
			Principal:  principal,
			Role:       l.Role,
			Action:     l.Action,
			EntityID:   l.EntityID,
			EntityName: l.EntityName,
			Details:    l.Details,
			CreatedAt:  l.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	return res, total, nil
}
