package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"tariff-service/internal/metrics"
	"tariff-service/internal/model"
	"tariff-service/internal/repository"
	"tariff-service/pkg/optional"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var hundred = decimal.NewFromInt(100)

// --- DTOs ---

// ProductDescriptor carries the metadata used when a referenced product has to be created
type ProductDescriptor struct {
	HTSCode     string `json:"hts_code" binding:"max=20"`
	Name        string `json:"name" binding:"max=100"`
	Description string `json:"description" binding:"max=255"`
	Enabled     *bool  `json:"enabled"`
}

type AddTariffRequest struct {
	OriginCountry string `json:"origin_country" binding:"required,countrycode"`
	DestCountry   string `json:"dest_country" binding:"required,countrycode"`
	EffectiveDate string `json:"effective_date" binding:"required"` // YYYY-MM-DD
	ExpiryDate    string `json:"expiry_date"`                       // YYYY-MM-DD, empty = open-ended
	// Rate is the ad valorem fraction (0.12 = 12%). AdValoremPercent is the legacy percentage form.
	Rate             *decimal.Decimal    `json:"rate" swaggertype:"string"`
	AdValoremPercent *decimal.Decimal    `json:"ad_valorem_rate" swaggertype:"string"`
	SpecificRate     *decimal.Decimal    `json:"specific_rate" swaggertype:"string"`
	Enabled          *bool               `json:"enabled"`
	MinQuantity      int64               `json:"min_quantity" binding:"gte=0"`
	MaxQuantity      int64               `json:"max_quantity" binding:"gte=0"`
	UserDefined      bool                `json:"user_defined"`
	HTSCode          string              `json:"hts_code" binding:"max=20"`
	Products         []ProductDescriptor `json:"products" binding:"dive"`
}

// UpdateTariffRequest overwrites only the fields present in the body.
// An explicit null expiry_date reopens the window; a null specific_rate clears it.
type UpdateTariffRequest struct {
	OriginCountry    optional.Value[string]          `json:"origin_country" swaggertype:"string"`
	DestCountry      optional.Value[string]          `json:"dest_country" swaggertype:"string"`
	EffectiveDate    optional.Value[string]          `json:"effective_date" swaggertype:"string"`
	ExpiryDate       optional.Value[string]          `json:"expiry_date" swaggertype:"string"`
	Rate             optional.Value[decimal.Decimal] `json:"rate" swaggertype:"string"`
	AdValoremPercent optional.Value[decimal.Decimal] `json:"ad_valorem_rate" swaggertype:"string"`
	SpecificRate     optional.Value[decimal.Decimal] `json:"specific_rate" swaggertype:"string"`
	Enabled          optional.Value[bool]            `json:"enabled" swaggertype:"boolean"`
	MinQuantity      optional.Value[int64]           `json:"min_quantity" swaggertype:"integer"`
	MaxQuantity      optional.Value[int64]           `json:"max_quantity" swaggertype:"integer"`
	UserDefined      optional.Value[bool]            `json:"user_defined" swaggertype:"boolean"`
}

// ParticularTariffQuery selects the product by hts_code, or by product_name when no code is given
type ParticularTariffQuery struct {
	HTSCode       string `form:"hts_code" json:"hts_code"`
	ProductName   string `form:"product_name" json:"product_name"`
	OriginCountry string `form:"origin" json:"origin_country" binding:"required"`
	DestCountry   string `form:"dest" json:"dest_country" binding:"required"`
	Date          string `form:"date" json:"date"` // YYYY-MM-DD, empty = today
}

type CalculateDutyRequest struct {
	ParticularTariffQuery
	Quantity  decimal.Decimal `json:"quantity" swaggertype:"string"`
	UnitPrice decimal.Decimal `json:"unit_price" swaggertype:"string"`
}

type TariffResponse struct {
	ID            string            `json:"id"`
	OriginCountry string            `json:"origin_country"`
	DestCountry   string            `json:"dest_country"`
	EffectiveDate string            `json:"effective_date"`
	ExpiryDate    *string           `json:"expiry_date"`
	AdValoremRate string            `json:"ad_valorem_rate"`
	SpecificRate  *string           `json:"specific_rate"`
	Enabled       bool              `json:"enabled"`
	MinQuantity   int64             `json:"min_quantity"`
	MaxQuantity   int64             `json:"max_quantity"`
	UserDefined   bool              `json:"user_defined"`
	Products      []ProductResponse `json:"products"`
	CreatedAt     string            `json:"created_at"`
	UpdatedAt     string            `json:"updated_at"`
}

type DutyResponse struct {
	Tariff        TariffResponse `json:"tariff"`
	Quantity      string         `json:"quantity"`
	UnitPrice     string         `json:"unit_price"`
	CustomsValue  string         `json:"customs_value"`
	AdValoremDuty string         `json:"ad_valorem_duty"`
	SpecificDuty  string         `json:"specific_duty"`
	TotalDuty     string         `json:"total_duty"`
	LandedCost    string         `json:"landed_cost"`
}

// --- Interface ---

type TariffService interface {
	AddTariff(ctx context.Context, p Principal, req AddTariffRequest) (TariffResponse, error)
	GetParticularTariff(ctx context.Context, q ParticularTariffQuery) (TariffResponse, error)
	UpdateTariff(ctx context.Context, p Principal, id string, req UpdateTariffRequest) (TariffResponse, error)
	AddProductToTariff(ctx context.Context, p Principal, id string, req ProductDescriptor) (TariffResponse, error)
	RemoveProductFromTariff(ctx context.Context, p Principal, id string, productCode string) (TariffResponse, error)
	DeleteTariff(ctx context.Context, p Principal, id string, soft bool) error
	GetTariffByID(ctx context.Context, id string) (TariffResponse, error)
	GetTariffsByProductCode(ctx context.Context, code string) ([]TariffResponse, error)
	ListTariffs(ctx context.Context, page, limit int) ([]TariffResponse, int64, error)
	ListAllTariffs(ctx context.Context) ([]TariffResponse, error)
	CalculateDuty(ctx context.Context, req CalculateDutyRequest) (DutyResponse, error)
	ExportTariffs(ctx context.Context, w io.Writer) error
}

type tariffService struct {
	tariffRepo  repository.TariffRepository
	productRepo repository.ProductRepository
	countryRepo repository.CountryRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	cache       ResolutionCache
	events      EventPublisher
	logger      *logrus.Logger
	now         func() time.Time
}

func NewTariffService(
	tariffRepo repository.TariffRepository,
	productRepo repository.ProductRepository,
	countryRepo repository.CountryRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	cache ResolutionCache,
	events EventPublisher,
	logger *logrus.Logger,
) TariffService {
	if cache == nil {
		cache = nopCache{}
	}
	if events == nil {
		events = nopPublisher{}
	}
	return &tariffService{
		tariffRepo:  tariffRepo,
		productRepo: productRepo,
		countryRepo: countryRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		cache:       cache,
		events:      events,
		logger:      logger,
		now:         time.Now,
	}
}

// --- Writes ---

// AddTariff inserts a tariff for (origin, dest, product). An open-ended predecessor for the
// same key is closed the day before the new effective date; a closed predecessor still in
// force on that date rejects the insertion. The whole sequence runs in one transaction.
func (s *tariffService) AddTariff(ctx context.Context, p Principal, req AddTariffRequest) (TariffResponse, error) {
	origin, dest := normalizeCode(req.OriginCountry), normalizeCode(req.DestCountry)

	effective, err := parseDate("effective", req.EffectiveDate)
	if err != nil {
		return TariffResponse{}, err
	}
	expiry, err := parseOptionalDate("expiry", req.ExpiryDate)
	if err != nil {
		return TariffResponse{}, err
	}
	if expiry != nil && effective.After(*expiry) {
		return TariffResponse{}, validationf("effective date %s must not be after expiry date %s", formatDate(effective), formatDate(*expiry))
	}

	rate, specific, err := resolveRates(req.Rate, req.AdValoremPercent, req.SpecificRate)
	if err != nil {
		return TariffResponse{}, err
	}
	if req.MaxQuantity > 0 && req.MinQuantity > req.MaxQuantity {
		return TariffResponse{}, validationf("min_quantity %d exceeds max_quantity %d", req.MinQuantity, req.MaxQuantity)
	}

	code := strings.TrimSpace(req.HTSCode)
	if code == "" && len(req.Products) > 0 {
		code = strings.TrimSpace(req.Products[0].HTSCode)
	}
	if code == "" {
		return TariffResponse{}, validationf("hts_code is required")
	}

	if err := s.requireCountry(ctx, origin); err != nil {
		return TariffResponse{}, err
	}
	if err := s.requireCountry(ctx, dest); err != nil {
		return TariffResponse{}, err
	}

	key := model.TariffKey{Origin: origin, Dest: dest, ProductCode: code}
	tariff := model.Tariff{
		OriginCountryCode: origin,
		DestCountryCode:   dest,
		EffectiveDate:     effective,
		ExpiryDate:        expiry,
		AdValoremRate:     rate,
		SpecificRate:      specific,
		Enabled:           true,
		MinQuantity:       req.MinQuantity,
		MaxQuantity:       req.MaxQuantity,
		UserDefined:       req.UserDefined,
	}
	if req.Enabled != nil {
		tariff.Enabled = *req.Enabled
	}

	var superseded *model.Tariff
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.tariffRepo.LockKey(txCtx, key); err != nil {
			return fmt.Errorf("failed to lock tariff timeline: %w", err)
		}

		prev, err := s.closePredecessor(txCtx, p, key, effective)
		if err != nil {
			return err
		}
		superseded = prev

		product, err := s.resolveProduct(txCtx, p, code, req.Products)
		if err != nil {
			return err
		}
		tariff.Products = []model.Product{*product}

		if err := s.tariffRepo.Create(txCtx, &tariff); err != nil {
			return fmt.Errorf("failed to create tariff: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, p, model.ActionCreateTariff, tariff.ID.String(), key.String(), req)
	})
	if err != nil {
		return TariffResponse{}, err
	}

	s.cache.Invalidate(ctx)
	if superseded != nil {
		s.events.Publish(EventTariffSuperseded, map[string]interface{}{
			"id":          superseded.ID.String(),
			"key":         key.String(),
			"expiry_date": formatDate(*superseded.ExpiryDate),
		})
	}
	s.events.Publish(EventTariffCreated, map[string]interface{}{
		"id":             tariff.ID.String(),
		"key":            key.String(),
		"effective_date": formatDate(tariff.EffectiveDate),
	})
	s.logger.WithFields(logrus.Fields{
		"tariff_id": tariff.ID.String(),
		"key":       key.String(),
		"effective": formatDate(effective),
	}).Info("tariff created")

	return toTariffResponse(tariff), nil
}

// closePredecessor applies the versioning rule for key and returns the tariff it closed, if any
func (s *tariffService) closePredecessor(ctx context.Context, p Principal, key model.TariffKey, effective time.Time) (*model.Tariff, error) {
	existing, err := s.tariffRepo.FindByKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tariffs for %s: %w", key, err)
	}

	var (
		open         []*model.Tariff
		latestExpiry *time.Time
	)
	for i := range existing {
		t := &existing[i]
		if !t.Enabled || t.IsRetired() {
			continue
		}
		if t.IsOpenEnded() {
			open = append(open, t)
			continue
		}
		exp := model.Day(*t.ExpiryDate)
		if !exp.Before(effective) && (latestExpiry == nil || exp.After(*latestExpiry)) {
			latestExpiry = &exp
		}
	}

	if latestExpiry != nil {
		metrics.TariffConflicts.Inc()
		return nil, validationf("New effective date must be %s onwards: a tariff for %s is in force until %s",
			formatDate(latestExpiry.AddDate(0, 0, 1)), key, formatDate(*latestExpiry))
	}

	switch len(open) {
	case 0:
		return nil, nil
	case 1:
	default:
		metrics.TariffIntegrityErrors.Inc()
		s.logger.WithFields(logrus.Fields{"key": key.String(), "count": len(open)}).Error("multiple open-ended tariffs for one key")
		return nil, &IntegrityError{Key: key.String(), Date: formatDate(effective), Count: len(open)}
	}

	prev := open[0]
	if !model.Day(prev.EffectiveDate).Before(effective) {
		metrics.TariffConflicts.Inc()
		return nil, validationf("New effective date must be after %s: the tariff in force for %s starts on that date",
			formatDate(prev.EffectiveDate), key)
	}

	closedOn := effective.AddDate(0, 0, -1)
	prev.ExpiryDate = &closedOn
	if err := s.tariffRepo.Update(ctx, prev); err != nil {
		return nil, fmt.Errorf("failed to close tariff %s: %w", prev.ID, err)
	}
	if err := writeAudit(ctx, s.auditRepo, p, model.ActionSupersedeTariff, prev.ID.String(), key.String(),
		map[string]string{"expiry_date": formatDate(closedOn)}); err != nil {
		return nil, err
	}

	metrics.TariffSupersessions.Inc()
	s.logger.WithFields(logrus.Fields{
		"tariff_id": prev.ID.String(),
		"key":       key.String(),
		"expiry":    formatDate(closedOn),
	}).Info("tariff superseded")
	return prev, nil
}

// resolveProduct finds the product by code or creates it from the first descriptor.
// Products created this way start disabled unless the descriptor says otherwise.
func (s *tariffService) resolveProduct(ctx context.Context, p Principal, code string, descriptors []ProductDescriptor) (*model.Product, error) {
	product, err := s.productRepo.FindByCode(ctx, code)
	if err == nil {
		return product, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to fetch product: %w", err)
	}

	var d ProductDescriptor
	if len(descriptors) > 0 {
		d = descriptors[0]
	}
	return s.createProduct(ctx, p, code, d)
}

func (s *tariffService) createProduct(ctx context.Context, p Principal, code string, d ProductDescriptor) (*model.Product, error) {
	product := &model.Product{
		HTSCode:     code,
		Name:        strings.TrimSpace(d.Name),
		Description: d.Description,
	}
	if product.Name == "" {
		product.Name = code
	}
	if d.Enabled != nil {
		product.Enabled = *d.Enabled
	}

	if _, err := s.productRepo.FindByName(ctx, product.Name); err == nil {
		return nil, validationf("product name '%s' is already used by another hts code", product.Name)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to check product name: %w", err)
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	if err := writeAudit(ctx, s.auditRepo, p, model.ActionCreateProduct, product.HTSCode, product.Name, d); err != nil {
		return nil, err
	}
	return product, nil
}

// UpdateTariff patches the tariff in place. Overlaps introduced by the patch are logged, not rejected.
func (s *tariffService) UpdateTariff(ctx context.Context, p Principal, id string, req UpdateTariffRequest) (TariffResponse, error) {
	tariffID, err := parseTariffID(id)
	if err != nil {
		return TariffResponse{}, err
	}

	var tariff *model.Tariff
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		tariff, err = s.findTariff(txCtx, tariffID)
		if err != nil {
			return err
		}
		if err := s.applyPatch(txCtx, tariff, req); err != nil {
			return err
		}
		if err := s.tariffRepo.Update(txCtx, tariff); err != nil {
			return fmt.Errorf("failed to update tariff: %w", err)
		}
		s.warnOnOverlap(txCtx, tariff, tariff.Keys())
		return writeAudit(txCtx, s.auditRepo, p, model.ActionUpdateTariff, tariff.ID.String(), tariffLabel(tariff), req)
	})
	if err != nil {
		return TariffResponse{}, err
	}

	s.cache.Invalidate(ctx)
	s.events.Publish(EventTariffUpdated, map[string]interface{}{"id": tariff.ID.String()})
	return toTariffResponse(*tariff), nil
}

func (s *tariffService) applyPatch(ctx context.Context, t *model.Tariff, req UpdateTariffRequest) error {
	if v, ok := req.OriginCountry.Get(); ok {
		code := normalizeCode(v)
		if err := s.requireCountry(ctx, code); err != nil {
			return err
		}
		t.OriginCountryCode = code
	} else if req.OriginCountry.IsNull() {
		return validationf("origin_country cannot be null")
	}

	if v, ok := req.DestCountry.Get(); ok {
		code := normalizeCode(v)
		if err := s.requireCountry(ctx, code); err != nil {
			return err
		}
		t.DestCountryCode = code
	} else if req.DestCountry.IsNull() {
		return validationf("dest_country cannot be null")
	}

	if v, ok := req.EffectiveDate.Get(); ok {
		effective, err := parseDate("effective", v)
		if err != nil {
			return err
		}
		t.EffectiveDate = effective
	} else if req.EffectiveDate.IsNull() {
		return validationf("effective_date cannot be null")
	}

	if v, ok := req.ExpiryDate.Get(); ok {
		expiry, err := parseDate("expiry", v)
		if err != nil {
			return err
		}
		t.ExpiryDate = &expiry
	} else if req.ExpiryDate.IsNull() {
		t.ExpiryDate = nil
	}

	if t.ExpiryDate != nil && model.Day(t.EffectiveDate).After(model.Day(*t.ExpiryDate)) {
		return validationf("effective date %s must not be after expiry date %s", formatDate(t.EffectiveDate), formatDate(*t.ExpiryDate))
	}

	if v, ok := req.Rate.Get(); ok {
		t.AdValoremRate = v
	} else if v, ok := req.AdValoremPercent.Get(); ok {
		t.AdValoremRate = v.Div(hundred)
	} else if req.Rate.IsNull() || req.AdValoremPercent.IsNull() {
		return validationf("ad valorem rate cannot be null")
	}
	if t.AdValoremRate.IsNegative() {
		return validationf("ad valorem rate must not be negative")
	}

	if v, ok := req.SpecificRate.Get(); ok {
		if v.IsNegative() {
			return validationf("specific rate must not be negative")
		}
		t.SpecificRate = decimal.NewNullDecimal(v)
	} else if req.SpecificRate.IsNull() {
		t.SpecificRate = decimal.NullDecimal{}
	}

	if v, ok := req.Enabled.Get(); ok {
		t.Enabled = v
	}
	if v, ok := req.MinQuantity.Get(); ok {
		t.MinQuantity = v
	}
	if v, ok := req.MaxQuantity.Get(); ok {
		t.MaxQuantity = v
	}
	if t.MinQuantity < 0 || t.MaxQuantity < 0 || (t.MaxQuantity > 0 && t.MinQuantity > t.MaxQuantity) {
		return validationf("invalid quantity bounds %d..%d", t.MinQuantity, t.MaxQuantity)
	}
	if v, ok := req.UserDefined.Get(); ok {
		t.UserDefined = v
	}
	return nil
}

// warnOnOverlap logs every key on which t now shares days with another enabled window
func (s *tariffService) warnOnOverlap(ctx context.Context, t *model.Tariff, keys []model.TariffKey) {
	if !t.Enabled || t.IsRetired() {
		return
	}
	for _, key := range keys {
		n, err := s.tariffRepo.FindOverlapping(ctx, key, t.EffectiveDate, t.ExpiryDate, &t.ID)
		if err != nil {
			s.logger.WithError(err).WithField("key", key.String()).Warn("overlap check failed")
			continue
		}
		if n > 0 {
			s.logger.WithFields(logrus.Fields{
				"tariff_id": t.ID.String(),
				"key":       key.String(),
				"overlaps":  n,
			}).Warn("tariff window overlaps another enabled tariff")
		}
	}
}

// AddProductToTariff attaches a product found by name, creating it from the descriptor when absent
func (s *tariffService) AddProductToTariff(ctx context.Context, p Principal, id string, req ProductDescriptor) (TariffResponse, error) {
	tariffID, err := parseTariffID(id)
	if err != nil {
		return TariffResponse{}, err
	}
	name := strings.TrimSpace(req.Name)
	code := strings.TrimSpace(req.HTSCode)
	if name == "" && code == "" {
		return TariffResponse{}, validationf("product name or hts_code is required")
	}

	var tariff *model.Tariff
	var product *model.Product
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		tariff, err = s.findTariff(txCtx, tariffID)
		if err != nil {
			return err
		}

		product, err = s.productByNameOrCode(txCtx, name, code)
		if err != nil {
			if !IsNotFound(err) {
				return err
			}
			if code == "" {
				return validationf("hts_code is required to create product '%s'", name)
			}
			if product, err = s.createProduct(txCtx, p, code, req); err != nil {
				return err
			}
		}

		if tariff.HasProduct(product.HTSCode) {
			return validationf("Product '%s' already exists in the tariff", product.Name)
		}
		if err := s.tariffRepo.AddProduct(txCtx, tariff.ID, product); err != nil {
			return fmt.Errorf("failed to add product to tariff: %w", err)
		}
		tariff.Products = append(tariff.Products, *product)

		key := model.TariffKey{Origin: tariff.OriginCountryCode, Dest: tariff.DestCountryCode, ProductCode: product.HTSCode}
		s.warnOnOverlap(txCtx, tariff, []model.TariffKey{key})
		return writeAudit(txCtx, s.auditRepo, p, model.ActionAddTariffProduct, tariff.ID.String(), key.String(), req)
	})
	if err != nil {
		return TariffResponse{}, err
	}

	s.cache.Invalidate(ctx)
	s.events.Publish(EventTariffProductAdded, map[string]interface{}{"id": tariff.ID.String(), "hts_code": product.HTSCode})
	return toTariffResponse(*tariff), nil
}

func (s *tariffService) RemoveProductFromTariff(ctx context.Context, p Principal, id string, productCode string) (TariffResponse, error) {
	tariffID, err := parseTariffID(id)
	if err != nil {
		return TariffResponse{}, err
	}
	productCode = strings.TrimSpace(productCode)

	var tariff *model.Tariff
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		tariff, err = s.findTariff(txCtx, tariffID)
		if err != nil {
			return err
		}
		product, err := s.productByNameOrCode(txCtx, "", productCode)
		if err != nil {
			return err
		}
		if !tariff.HasProduct(product.HTSCode) {
			return validationf("Product '%s' is not associated with the tariff", product.Name)
		}

		if err := s.tariffRepo.RemoveProduct(txCtx, tariff.ID, product.HTSCode); err != nil {
			return fmt.Errorf("failed to remove product from tariff: %w", err)
		}
		kept := tariff.Products[:0]
		for _, tp := range tariff.Products {
			if tp.HTSCode != product.HTSCode {
				kept = append(kept, tp)
			}
		}
		tariff.Products = kept

		key := model.TariffKey{Origin: tariff.OriginCountryCode, Dest: tariff.DestCountryCode, ProductCode: product.HTSCode}
		return writeAudit(txCtx, s.auditRepo, p, model.ActionRemoveTariffProduct, tariff.ID.String(), key.String(),
			map[string]string{"hts_code": product.HTSCode})
	})
	if err != nil {
		return TariffResponse{}, err
	}

	s.cache.Invalidate(ctx)
	s.events.Publish(EventTariffProductRemoved, map[string]interface{}{"id": tariff.ID.String(), "hts_code": productCode})
	return toTariffResponse(*tariff), nil
}

// DeleteTariff removes the record, or with soft set collapses its window to end the day
// before it starts so no date resolves to it. The enabled flag is left untouched.
func (s *tariffService) DeleteTariff(ctx context.Context, p Principal, id string, soft bool) error {
	tariffID, err := parseTariffID(id)
	if err != nil {
		return err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		tariff, err := s.findTariff(txCtx, tariffID)
		if err != nil {
			return err
		}

		if !soft {
			if err := s.tariffRepo.Delete(txCtx, tariff.ID); err != nil {
				return fmt.Errorf("failed to delete tariff: %w", err)
			}
			return writeAudit(txCtx, s.auditRepo, p, model.ActionHardDeleteTariff, tariff.ID.String(), tariffLabel(tariff),
				map[string]string{"deleted_id": tariff.ID.String()})
		}

		anchor := tariff.EffectiveDate
		if anchor.IsZero() {
			anchor = s.now()
		}
		collapsed := model.Day(anchor).AddDate(0, 0, -1)
		tariff.ExpiryDate = &collapsed
		if err := s.tariffRepo.Update(txCtx, tariff); err != nil {
			return fmt.Errorf("failed to retire tariff: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, p, model.ActionSoftDeleteTariff, tariff.ID.String(), tariffLabel(tariff),
			map[string]string{"expiry_date": formatDate(collapsed)})
	})
	if err != nil {
		return err
	}

	s.cache.Invalidate(ctx)
	s.events.Publish(EventTariffDeleted, map[string]interface{}{"id": tariffID.String(), "soft": soft})
	s.logger.WithFields(logrus.Fields{"tariff_id": tariffID.String(), "soft": soft}).Info("tariff deleted")
	return nil
}

// --- Helpers ---

func resolveRates(rate, percent, specific *decimal.Decimal) (decimal.Decimal, decimal.NullDecimal, error) {
	var adValorem decimal.Decimal
	switch {
	case rate != nil:
		adValorem = *rate
	case percent != nil:
		adValorem = percent.Div(hundred)
	case specific == nil:
		return decimal.Zero, decimal.NullDecimal{}, validationf("an ad valorem rate or a specific rate is required")
	}
	if adValorem.IsNegative() {
		return decimal.Zero, decimal.NullDecimal{}, validationf("ad valorem rate must not be negative")
	}

	var specificRate decimal.NullDecimal
	if specific != nil {
		if specific.IsNegative() {
			return decimal.Zero, decimal.NullDecimal{}, validationf("specific rate must not be negative")
		}
		specificRate = decimal.NewNullDecimal(*specific)
	}
	return adValorem, specificRate, nil
}

func (s *tariffService) requireCountry(ctx context.Context, code string) error {
	country, err := s.countryRepo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &NotFoundError{Entity: "country", Key: code}
		}
		return fmt.Errorf("failed to fetch country: %w", err)
	}
	if !country.Enabled {
		return validationf("country '%s' is disabled", code)
	}
	return nil
}

func (s *tariffService) findTariff(ctx context.Context, id uuid.UUID) (*model.Tariff, error) {
	tariff, err := s.tariffRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Entity: "tariff", Key: id.String()}
		}
		return nil, fmt.Errorf("failed to fetch tariff: %w", err)
	}
	return tariff, nil
}

// productByNameOrCode prefers the name lookup and falls back to the code
func (s *tariffService) productByNameOrCode(ctx context.Context, name, code string) (*model.Product, error) {
	if name != "" {
		product, err := s.productRepo.FindByName(ctx, name)
		if err == nil {
			return product, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("failed to fetch product: %w", err)
		}
	}
	if code != "" {
		product, err := s.productRepo.FindByCode(ctx, code)
		if err == nil {
			return product, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("failed to fetch product: %w", err)
		}
	}

	missing := name
	if missing == "" {
		missing = code
	}
	return nil, &NotFoundError{Entity: "product", Key: missing}
}

func parseTariffID(id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return uuid.Nil, validationf("invalid tariff id: %s", id)
	}
	return parsed, nil
}

func tariffLabel(t *model.Tariff) string {
	return t.OriginCountryCode + ">" + t.DestCountryCode + ":" + strings.Join(t.ProductCodes(), ",")
}

func toTariffResponse(t model.Tariff) TariffResponse {
	resp := TariffResponse{
		ID:            t.ID.String(),
		OriginCountry: t.OriginCountryCode,
		DestCountry:   t.DestCountryCode,
		EffectiveDate: formatDate(t.EffectiveDate),
		ExpiryDate:    formatOptionalDate(t.ExpiryDate),
		AdValoremRate: t.AdValoremRate.String(),
		Enabled:       t.Enabled,
		MinQuantity:   t.MinQuantity,
		MaxQuantity:   t.MaxQuantity,
		UserDefined:   t.UserDefined,
		Products:      make([]ProductResponse, 0, len(t.Products)),
		CreatedAt:     t.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     t.UpdatedAt.Format(time.RFC3339),
	}
	if t.SpecificRate.Valid {
		s := t.SpecificRate.Decimal.String()
		resp.SpecificRate = &s
	}
	for _, p := range t.Products {
		resp.Products = append(resp.Products, toProductResponse(p))
	}
	return resp
}
