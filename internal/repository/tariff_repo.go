package repository

import (
	"context"
	"time"

	"tariff-service/internal/model"
	"tariff-service/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TariffRepository interface {
	Create(ctx context.Context, tariff *model.Tariff) error
	Update(ctx context.Context, tariff *model.Tariff) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Tariff, error)
	FindByProductCode(ctx context.Context, code string) ([]model.Tariff, error)
	FindByKey(ctx context.Context, key model.TariffKey) ([]model.Tariff, error)
	FindApplicable(ctx context.Context, key model.TariffKey, targetDate time.Time) ([]model.Tariff, error)
	FindOverlapping(ctx context.Context, key model.TariffKey, from time.Time, to *time.Time, excludeID *uuid.UUID) (int64, error)
	List(ctx context.Context, page, limit int) ([]model.Tariff, int64, error)
	ListAll(ctx context.Context) ([]model.Tariff, error)
	AddProduct(ctx context.Context, tariffID uuid.UUID, product *model.Product) error
	RemoveProduct(ctx context.Context, tariffID uuid.UUID, productCode string) error
	LockKey(ctx context.Context, key model.TariffKey) error
}

type tariffRepository struct {
	db *gorm.DB
}

func NewTariffRepository(db *gorm.DB) TariffRepository {
	return &tariffRepository{db: db}
}

// Create inserts the tariff together with its product associations
func (r *tariffRepository) Create(ctx context.Context, tariff *model.Tariff) error {
	return GetDB(ctx, r.db).Omit("OriginCountry", "DestCountry").Create(tariff).Error
}

// Update saves scalar columns only; associations go through AddProduct/RemoveProduct
func (r *tariffRepository) Update(ctx context.Context, tariff *model.Tariff) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Save(tariff).Error
}

func (r *tariffRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := GetDB(ctx, r.db)
	if err := db.Exec("DELETE FROM tariff_products WHERE tariff_id = ?", id).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&model.Tariff{}).Error
}

func (r *tariffRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Tariff, error) {
	var tariff model.Tariff
	if err := GetDB(ctx, r.db).Preload("Products").First(&tariff, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &tariff, nil
}

func (r *tariffRepository) FindByProductCode(ctx context.Context, code string) ([]model.Tariff, error) {
	var tariffs []model.Tariff
	err := GetDB(ctx, r.db).
		Select("tariffs.*").
		Joins("JOIN tariff_products tp ON tp.tariff_id = tariffs.id").
		Where("tp.product_code = ?", code).
		Preload("Products").
		Order("tariffs.origin_country_code, tariffs.dest_country_code, tariffs.effective_date").
		Find(&tariffs).Error
	if err != nil {
		return nil, err
	}
	return tariffs, nil
}

func (r *tariffRepository) keyQuery(ctx context.Context, key model.TariffKey) *gorm.DB {
	return GetDB(ctx, r.db).
		Select("tariffs.*").
		Joins("JOIN tariff_products tp ON tp.tariff_id = tariffs.id").
		Where("tp.product_code = ?", key.ProductCode).
		Where("tariffs.origin_country_code = ? AND tariffs.dest_country_code = ?", key.Origin, key.Dest)
}

func (r *tariffRepository) FindByKey(ctx context.Context, key model.TariffKey) ([]model.Tariff, error) {
	var tariffs []model.Tariff
	if err := r.keyQuery(ctx, key).Preload("Products").Order("tariffs.effective_date").Find(&tariffs).Error; err != nil {
		return nil, err
	}
	return tariffs, nil
}

// FindApplicable returns at most two enabled tariffs covering targetDate, so callers can detect ambiguity
func (r *tariffRepository) FindApplicable(ctx context.Context, key model.TariffKey, targetDate time.Time) ([]model.Tariff, error) {
	var tariffs []model.Tariff
	err := r.keyQuery(ctx, key).
		Joins("JOIN products p ON p.hts_code = tp.product_code AND p.enabled").
		Where("tariffs.enabled AND tariffs.effective_date <= ? AND (tariffs.expiry_date IS NULL OR tariffs.expiry_date >= ?)", targetDate, targetDate).
		Preload("Products").
		Order("tariffs.effective_date DESC").
		Limit(2).
		Find(&tariffs).Error
	if err != nil {
		return nil, err
	}
	return tariffs, nil
}

func (r *tariffRepository) FindOverlapping(ctx context.Context, key model.TariffKey, from time.Time, to *time.Time, excludeID *uuid.UUID) (int64, error) {
	var count int64
	query := r.keyQuery(ctx, key).
		Where("tariffs.enabled").
		Where("NOT (tariffs.expiry_date IS NOT NULL AND tariffs.expiry_date < tariffs.effective_date)")

	if excludeID != nil {
		query = query.Where("tariffs.id != ?", *excludeID)
	}

	if to != nil {
		// Window has end date: overlap if existing.from <= new.to AND (existing.to IS NULL OR existing.to >= new.from)
		query = query.Where("tariffs.effective_date <= ? AND (tariffs.expiry_date IS NULL OR tariffs.expiry_date >= ?)", *to, from)
	} else {
		query = query.Where("(tariffs.expiry_date IS NULL OR tariffs.expiry_date >= ?)", from)
	}

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *tariffRepository) List(ctx context.Context, page, limit int) ([]model.Tariff, int64, error) {
	var tariffs []model.Tariff
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Tariff{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	p := pagination.New(page, limit)
	if err := db.Preload("Products").Order("effective_date desc").Offset(p.Offset).Limit(p.Limit).Find(&tariffs).Error; err != nil {
		return nil, 0, err
	}

	return tariffs, total, nil
}

func (r *tariffRepository) ListAll(ctx context.Context) ([]model.Tariff, error) {
	var tariffs []model.Tariff
	err := GetDB(ctx, r.db).
		Preload("Products").
		Order("origin_country_code, dest_country_code, effective_date").
		Find(&tariffs).Error
	if err != nil {
		return nil, err
	}
	return tariffs, nil
}

func (r *tariffRepository) AddProduct(ctx context.Context, tariffID uuid.UUID, product *model.Product) error {
	return GetDB(ctx, r.db).Model(&model.Tariff{ID: tariffID}).Association("Products").Append(product)
}

func (r *tariffRepository) RemoveProduct(ctx context.Context, tariffID uuid.UUID, productCode string) error {
	return GetDB(ctx, r.db).Model(&model.Tariff{ID: tariffID}).Association("Products").Delete(&model.Product{HTSCode: productCode})
}

// LockKey serializes writers of one timeline until the surrounding transaction ends
func (r *tariffRepository) LockKey(ctx context.Context, key model.TariffKey) error {
	return GetDB(ctx, r.db).Exec("SELECT pg_advisory_xact_lock(hashtext(?))", key.String()).Error
}
