package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateLayout is the wire format of every tariff date (YYYY-MM-DD)
const DateLayout = "2006-01-02"

// Tariff is a rate applied to goods shipped from OriginCountry to DestCountry during
// [EffectiveDate, ExpiryDate]. A nil ExpiryDate means the window is open-ended.
type Tariff struct {
	ID                uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OriginCountryCode string              `gorm:"type:varchar(3);not null;index:idx_tariff_route" json:"origin_country"`
	OriginCountry     *Country            `gorm:"foreignKey:OriginCountryCode;references:Code" json:"-"`
	DestCountryCode   string              `gorm:"type:varchar(3);not null;index:idx_tariff_route" json:"dest_country"`
	DestCountry       *Country            `gorm:"foreignKey:DestCountryCode;references:Code" json:"-"`
	EffectiveDate     time.Time           `gorm:"type:date;not null;index" json:"effective_date"`
	ExpiryDate        *time.Time          `gorm:"type:date;index" json:"expiry_date"` // nullable = currently active
	AdValoremRate     decimal.Decimal     `gorm:"type:decimal(12,6);not null" json:"ad_valorem_rate"` // fraction, 0.12 = 12%
	SpecificRate      decimal.NullDecimal `gorm:"type:decimal(14,4)" json:"specific_rate"`            // absolute amount per unit
	Enabled           bool                `gorm:"not null;index" json:"enabled"`
	MinQuantity       int64               `gorm:"not null;default:0" json:"min_quantity"`
	MaxQuantity       int64               `gorm:"not null;default:0" json:"max_quantity"`
	UserDefined       bool                `gorm:"not null;default:false" json:"user_defined"`
	Products          []Product           `gorm:"many2many:tariff_products;joinForeignKey:TariffID;joinReferences:ProductCode" json:"products"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

// TariffKey identifies one tariff timeline. At most one enabled window per key covers any date.
type TariffKey struct {
	Origin      string
	Dest        string
	ProductCode string
}

func (k TariffKey) String() string {
	return k.Origin + ">" + k.Dest + ":" + k.ProductCode
}

// Day truncates t to midnight UTC of its calendar date
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// IsOpenEnded reports whether the window has no expiry
func (t *Tariff) IsOpenEnded() bool {
	return t.ExpiryDate == nil
}

// IsRetired reports whether the window was collapsed by a soft delete (expiry before effective date)
func (t *Tariff) IsRetired() bool {
	return t.ExpiryDate != nil && Day(*t.ExpiryDate).Before(Day(t.EffectiveDate))
}

// Covers reports whether date falls inside the tariff's inclusive window
func (t *Tariff) Covers(date time.Time) bool {
	d := Day(date)
	if Day(t.EffectiveDate).After(d) {
		return false
	}
	return t.ExpiryDate == nil || !Day(*t.ExpiryDate).Before(d)
}

// Overlaps reports whether the two windows share at least one day
func (t *Tariff) Overlaps(other *Tariff) bool {
	if t.IsRetired() || other.IsRetired() {
		return false
	}
	if t.ExpiryDate != nil && Day(*t.ExpiryDate).Before(Day(other.EffectiveDate)) {
		return false
	}
	if other.ExpiryDate != nil && Day(*other.ExpiryDate).Before(Day(t.EffectiveDate)) {
		return false
	}
	return true
}

// HasProduct reports whether the product with the given HTS code is attached
func (t *Tariff) HasProduct(code string) bool {
	for _, p := range t.Products {
		if p.HTSCode == code {
			return true
		}
	}
	return false
}

func (t *Tariff) ProductCodes() []string {
	codes := make([]string, 0, len(t.Products))
	for _, p := range t.Products {
		codes = append(codes, p.HTSCode)
	}
	return codes
}

// Keys returns one timeline key per attached product
func (t *Tariff) Keys() []TariffKey {
	keys := make([]TariffKey, 0, len(t.Products))
	for _, p := range t.Products {
		keys = append(keys, TariffKey{Origin: t.OriginCountryCode, Dest: t.DestCountryCode, ProductCode: p.HTSCode})
	}
	return keys
}
