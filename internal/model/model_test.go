package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func datePtr(s string) *time.Time {
	t := date(s)
	return &t
}

func TestTariffCovers(t *testing.T) {
	closed := &Tariff{EffectiveDate: date("2024-01-01"), ExpiryDate: datePtr("2024-06-30")}
	open := &Tariff{EffectiveDate: date("2024-07-01")}

	tests := []struct {
		name   string
		tariff *Tariff
		on     string
		want   bool
	}{
		{"day before effective", closed, "2023-12-31", false},
		{"effective day is inclusive", closed, "2024-01-01", true},
		{"inside window", closed, "2024-03-15", true},
		{"expiry day is inclusive", closed, "2024-06-30", true},
		{"day after expiry", closed, "2024-07-01", false},
		{"open ended far future", open, "2099-01-01", true},
		{"open ended before start", open, "2024-06-30", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.tariff.Covers(date(tt.on)))
		})
	}
}

func TestTariffCoversIgnoresTimeOfDay(t *testing.T) {
	tariff := &Tariff{EffectiveDate: date("2024-01-01"), ExpiryDate: datePtr("2024-01-31")}
	lateEvening := time.Date(2024, 1, 31, 23, 59, 0, 0, time.UTC)
	assert.True(t, tariff.Covers(lateEvening))
}

func TestTariffOverlaps(t *testing.T) {
	a := &Tariff{EffectiveDate: date("2024-01-01"), ExpiryDate: datePtr("2024-06-30")}
	adjacent := &Tariff{EffectiveDate: date("2024-07-01")}
	inside := &Tariff{EffectiveDate: date("2024-06-15")}
	retired := &Tariff{EffectiveDate: date("2024-01-01"), ExpiryDate: datePtr("2023-12-31")}

	assert.False(t, a.Overlaps(adjacent))
	assert.False(t, adjacent.Overlaps(a))
	assert.True(t, a.Overlaps(inside))
	assert.True(t, inside.Overlaps(a))
	assert.False(t, retired.Overlaps(a))
	assert.True(t, adjacent.Overlaps(inside))
}

func TestTariffRetired(t *testing.T) {
	assert.True(t, (&Tariff{EffectiveDate: date("2024-01-01"), ExpiryDate: datePtr("2023-12-31")}).IsRetired())
	assert.False(t, (&Tariff{EffectiveDate: date("2024-01-01"), ExpiryDate: datePtr("2024-01-01")}).IsRetired())
	assert.False(t, (&Tariff{EffectiveDate: date("2024-01-01")}).IsRetired())
}

func TestTariffKeys(t *testing.T) {
	tariff := &Tariff{
		OriginCountryCode: "CN",
		DestCountryCode:   "US",
		Products:          []Product{{HTSCode: "1234.56"}, {HTSCode: "8471.30"}},
	}

	assert.True(t, tariff.HasProduct("8471.30"))
	assert.False(t, tariff.HasProduct("0000.00"))
	assert.Equal(t, []string{"1234.56", "8471.30"}, tariff.ProductCodes())
	keys := tariff.Keys()
	assert.Len(t, keys, 2)
	assert.Equal(t, "CN>US:1234.56", keys[0].String())
}
