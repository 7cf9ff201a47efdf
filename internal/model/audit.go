package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionCreateCountry = "CREATE_COUNTRY"
	ActionUpdateCountry = "UPDATE_COUNTRY"
	ActionDeleteCountry = "DELETE_COUNTRY"
	ActionCreateProduct = "CREATE_PRODUCT"
	ActionUpdateProduct = "UPDATE_PRODUCT"
	ActionDeleteProduct = "DELETE_PRODUCT"

	// Tariff timeline actions
	ActionCreateTariff        = "CREATE_TARIFF"
	ActionSupersedeTariff     = "SUPERSEDE_TARIFF"
	ActionUpdateTariff        = "UPDATE_TARIFF"
	ActionSoftDeleteTariff    = "SOFT_DELETE_TARIFF"
	ActionHardDeleteTariff    = "HARD_DELETE_TARIFF"
	ActionAddTariffProduct    = "ADD_TARIFF_PRODUCT"
	ActionRemoveTariffProduct = "REMOVE_TARIFF_PRODUCT"
)

// AuditLog tracks Who, What, and When for every registry and tariff change
type AuditLog struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Principal  string    `gorm:"type:varchar(255);index" json:"principal"` // JWT subject, "system" for CLI runs
	Role       string    `gorm:"type:varchar(50)" json:"role"`
	Action     string    `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string    `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string    `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    string    `gorm:"type:jsonb" json:"details"` // Serialized JSON payload of the action
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}
