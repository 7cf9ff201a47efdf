package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"tariff-service/internal/metrics"
	"tariff-service/internal/model"
	"tariff-service/internal/report"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// GetParticularTariff returns the single enabled tariff covering the query date.
// More than one match means the timeline is corrupt and yields an IntegrityError.
func (s *tariffService) GetParticularTariff(ctx context.Context, q ParticularTariffQuery) (TariffResponse, error) {
	tariff, err := s.resolveQuery(ctx, q)
	if err != nil {
		return TariffResponse{}, err
	}
	return toTariffResponse(*tariff), nil
}

func (s *tariffService) resolveQuery(ctx context.Context, q ParticularTariffQuery) (*model.Tariff, error) {
	code, err := s.productCodeFor(ctx, q.HTSCode, q.ProductName)
	if err != nil {
		return nil, err
	}

	date := model.Day(s.now())
	if strings.TrimSpace(q.Date) != "" {
		if date, err = parseDate("query", q.Date); err != nil {
			return nil, err
		}
	}

	key := model.TariffKey{Origin: normalizeCode(q.OriginCountry), Dest: normalizeCode(q.DestCountry), ProductCode: code}
	return s.resolve(ctx, key, date)
}

func (s *tariffService) resolve(ctx context.Context, key model.TariffKey, date time.Time) (*model.Tariff, error) {
	cached, generation, ok := s.cache.Get(ctx, key, date)
	if ok {
		metrics.TariffResolutions.WithLabelValues(metrics.OutcomeCacheHit).Inc()
		return cached, nil
	}

	matches, err := s.tariffRepo.FindApplicable(ctx, key, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query applicable tariff: %w", err)
	}

	switch len(matches) {
	case 0:
		metrics.TariffResolutions.WithLabelValues(metrics.OutcomeNotFound).Inc()
		return nil, &NotFoundError{Entity: "tariff", Key: fmt.Sprintf("%s on %s", key, formatDate(date))}
	case 1:
		metrics.TariffResolutions.WithLabelValues(metrics.OutcomeFound).Inc()
		s.cache.Set(ctx, generation, key, date, &matches[0])
		return &matches[0], nil
	default:
		metrics.TariffResolutions.WithLabelValues(metrics.OutcomeAmbiguous).Inc()
		metrics.TariffIntegrityErrors.Inc()
		ids := make([]string, 0, len(matches))
		for _, m := range matches {
			ids = append(ids, m.ID.String())
		}
		s.logger.WithFields(logrus.Fields{
			"key":        key.String(),
			"date":       formatDate(date),
			"count":      len(matches),
			"tariff_ids": ids,
		}).Error("tariff lookup matched more than one enabled tariff")
		return nil, &IntegrityError{Key: key.String(), Date: formatDate(date), Count: len(matches)}
	}
}

func (s *tariffService) productCodeFor(ctx context.Context, code, name string) (string, error) {
	code, name = strings.TrimSpace(code), strings.TrimSpace(name)
	if code != "" {
		return code, nil
	}
	if name == "" {
		return "", validationf("hts_code or product_name is required")
	}
	product, err := s.productByNameOrCode(ctx, name, "")
	if err != nil {
		return "", err
	}
	return product.HTSCode, nil
}

func (s *tariffService) GetTariffByID(ctx context.Context, id string) (TariffResponse, error) {
	tariffID, err := parseTariffID(id)
	if err != nil {
		return TariffResponse{}, err
	}
	tariff, err := s.findTariff(ctx, tariffID)
	if err != nil {
		return TariffResponse{}, err
	}
	return toTariffResponse(*tariff), nil
}

func (s *tariffService) GetTariffsByProductCode(ctx context.Context, code string) ([]TariffResponse, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, validationf("hts_code is required")
	}
	tariffs, err := s.tariffRepo.FindByProductCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tariffs for %s: %w", code, err)
	}
	return toTariffResponses(tariffs), nil
}

func (s *tariffService) ListTariffs(ctx context.Context, page, limit int) ([]TariffResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	tariffs, total, err := s.tariffRepo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch tariffs: %w", err)
	}
	return toTariffResponses(tariffs), total, nil
}

func (s *tariffService) ListAllTariffs(ctx context.Context) ([]TariffResponse, error) {
	tariffs, err := s.tariffRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tariffs: %w", err)
	}
	return toTariffResponses(tariffs), nil
}

// CalculateDuty resolves the applicable tariff and prices a shipment of quantity units at unit price
func (s *tariffService) CalculateDuty(ctx context.Context, req CalculateDutyRequest) (DutyResponse, error) {
	if !req.Quantity.IsPositive() {
		return DutyResponse{}, validationf("quantity must be greater than zero")
	}
	if req.UnitPrice.IsNegative() {
		return DutyResponse{}, validationf("unit_price must not be negative")
	}

	tariff, err := s.resolveQuery(ctx, req.ParticularTariffQuery)
	if err != nil {
		return DutyResponse{}, err
	}

	customsValue := req.Quantity.Mul(req.UnitPrice)
	adValoremDuty := customsValue.Mul(tariff.AdValoremRate)
	specificDuty := decimal.Zero
	if tariff.SpecificRate.Valid {
		specificDuty = req.Quantity.Mul(tariff.SpecificRate.Decimal)
	}
	totalDuty := adValoremDuty.Add(specificDuty)

	return DutyResponse{
		Tariff:        toTariffResponse(*tariff),
		Quantity:      req.Quantity.String(),
		UnitPrice:     req.UnitPrice.StringFixed(2),
		CustomsValue:  customsValue.StringFixed(2),
		AdValoremDuty: adValoremDuty.StringFixed(2),
		SpecificDuty:  specificDuty.StringFixed(2),
		TotalDuty:     totalDuty.StringFixed(2),
		LandedCost:    customsValue.Add(totalDuty).StringFixed(2),
	}, nil
}

// ExportTariffs writes every stored tariff as an xlsx workbook
func (s *tariffService) ExportTariffs(ctx context.Context, w io.Writer) error {
	tariffs, err := s.tariffRepo.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch tariffs: %w", err)
	}
	if err := report.WriteTariffWorkbook(w, tariffs); err != nil {
		return fmt.Errorf("failed to write tariff workbook: %w", err)
	}
	return nil
}

func toTariffResponses(tariffs []model.Tariff) []TariffResponse {
	res := make([]TariffResponse, 0, len(tariffs))
	for _, t := range tariffs {
		res = append(res, toTariffResponse(t))
	}
	return res
}
