// Package report renders tariff timelines as spreadsheets.
package report

import (
	"fmt"
	"io"
	"sort"

	"tariff-service/internal/model"

	"github.com/xuri/excelize/v2"
)

const SheetName = "Tariffs"

var header = []interface{}{
	"tariff_id", "origin_country", "dest_country", "hts_code", "product_name",
	"effective_date", "expiry_date", "status", "ad_valorem_rate", "specific_rate",
	"enabled", "min_quantity", "max_quantity", "user_defined",
}

type row struct {
	key    model.TariffKey
	tariff *model.Tariff
	name   string
}

// WriteTariffWorkbook writes one row per (tariff, product) ordered by timeline key, then effective date
func WriteTariffWorkbook(w io.Writer, tariffs []model.Tariff) error {
	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	if err := xl.SetSheetName(xl.GetSheetName(0), SheetName); err != nil {
		return err
	}
	if err := xl.SetSheetRow(SheetName, "A1", &header); err != nil {
		return err
	}

	rows := make([]row, 0, len(tariffs))
	for i := range tariffs {
		t := &tariffs[i]
		if len(t.Products) == 0 {
			rows = append(rows, row{key: model.TariffKey{Origin: t.OriginCountryCode, Dest: t.DestCountryCode}, tariff: t})
			continue
		}
		for _, p := range t.Products {
			rows = append(rows, row{
				key:    model.TariffKey{Origin: t.OriginCountryCode, Dest: t.DestCountryCode, ProductCode: p.HTSCode},
				tariff: t,
				name:   p.Name,
			})
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.key != b.key {
			return a.key.String() < b.key.String()
		}
		return a.tariff.EffectiveDate.Before(b.tariff.EffectiveDate)
	})

	for i, r := range rows {
		t := r.tariff
		expiry, specific := "", ""
		if t.ExpiryDate != nil {
			expiry = t.ExpiryDate.Format(model.DateLayout)
		}
		if t.SpecificRate.Valid {
			specific = t.SpecificRate.Decimal.String()
		}
		record := []interface{}{
			t.ID.String(), t.OriginCountryCode, t.DestCountryCode, r.key.ProductCode, r.name,
			t.EffectiveDate.Format(model.DateLayout), expiry, status(t), t.AdValoremRate.String(), specific,
			t.Enabled, t.MinQuantity, t.MaxQuantity, t.UserDefined,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := xl.SetSheetRow(SheetName, cell, &record); err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
	}

	return xl.Write(w)
}

func status(t *model.Tariff) string {
	switch {
	case t.IsRetired():
		return "retired"
	case t.IsOpenEnded():
		return "open"
	default:
		return "closed"
	}
}
