package model

import "time"

// Country is a trading party identified by its short ISO code (e.g. "US", "CN", "DEU")
type Country struct {
	Code      string    `gorm:"type:varchar(3);primaryKey" json:"code"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Enabled   bool      `gorm:"not null" json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
