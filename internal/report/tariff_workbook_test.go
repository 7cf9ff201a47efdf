package report

import (
	"bytes"
	"testing"
	"time"

	"tariff-service/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func day(s string) time.Time {
	t, _ := time.Parse(model.DateLayout, s)
	return t
}

func TestWriteTariffWorkbook(t *testing.T) {
	closedExpiry := day("2024-06-30")
	retiredExpiry := day("2023-12-31")

	tariffs := []model.Tariff{
		{
			ID:                uuid.New(),
			OriginCountryCode: "CN",
			DestCountryCode:   "US",
			EffectiveDate:     day("2024-07-01"),
			AdValoremRate:     decimal.RequireFromString("0.08"),
			SpecificRate:      decimal.NewNullDecimal(decimal.RequireFromString("1.5")),
			Enabled:           true,
			Products:          []model.Product{{HTSCode: "1234.56", Name: "Widgets"}},
		},
		{
			ID:                uuid.New(),
			OriginCountryCode: "CN",
			DestCountryCode:   "US",
			EffectiveDate:     day("2024-01-01"),
			ExpiryDate:        &closedExpiry,
			AdValoremRate:     decimal.RequireFromString("0.1"),
			Enabled:           true,
			Products:          []model.Product{{HTSCode: "1234.56", Name: "Widgets"}, {HTSCode: "0101", Name: "Horses"}},
		},
		{
			ID:                uuid.New(),
			OriginCountryCode: "DE",
			DestCountryCode:   "US",
			EffectiveDate:     day("2024-01-01"),
			ExpiryDate:        &retiredExpiry,
			AdValoremRate:     decimal.RequireFromString("0.02"),
			Products:          []model.Product{{HTSCode: "0101", Name: "Horses"}},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteTariffWorkbook(&buf, tariffs))

	xl, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer xl.Close()

	rows, err := xl.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 5)

	assert.Equal(t, "tariff_id", rows[0][0])

	// CN>US:0101, CN>US:1234.56 (two windows, oldest first), DE>US:0101
	assert.Equal(t, []string{"CN", "US", "0101"}, rows[1][1:4])
	assert.Equal(t, "1234.56", rows[2][3])
	assert.Equal(t, "2024-01-01", rows[2][5])
	assert.Equal(t, "closed", rows[2][7])
	assert.Equal(t, "2024-07-01", rows[3][5])
	assert.Equal(t, "open", rows[3][7])
	assert.Equal(t, "1.5", rows[3][9])
	assert.Equal(t, "DE", rows[4][1])
	assert.Equal(t, "retired", rows[4][7])
}
