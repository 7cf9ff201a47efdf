package service

import (
	"context"
	"encoding/json"
	"fmt"

	"tariff-service/internal/model"
	"tariff-service/internal/repository"
)

// Principal identifies who performs a write. It is passed explicitly into every mutating call.
type Principal struct {
	Subject string
	Role    string
}

// SystemPrincipal attributes changes made by operator tooling
var SystemPrincipal = Principal{Subject: "system", Role: "system"}

func writeAudit(ctx context.Context, repo repository.AuditRepository, p Principal, action, entityID, entityName string, details interface{}) error {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to encode audit details: %w", err)
	}

	entry := &model.AuditLog{
		Principal:  p.Subject,
		Role:       p.Role,
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(detailsJSON),
	}
	if err := repo.Log(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}
