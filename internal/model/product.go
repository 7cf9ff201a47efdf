package model

import "time"

// Product is a tariff-schedule line keyed by its HTS code.
// Disabled products keep their history but are never resolved.
type Product struct {
	HTSCode     string    `gorm:"column:hts_code;type:varchar(20);primaryKey" json:"hts_code"`
	Name        string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Description string    `gorm:"type:varchar(255)" json:"description"`
	Enabled     bool      `gorm:"not null" json:"enabled"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
