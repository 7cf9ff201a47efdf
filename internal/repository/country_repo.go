package repository

import (
	"context"

	"tariff-service/internal/model"

	"gorm.io/gorm"
)

type CountryRepository interface {
	Create(ctx context.Context, country *model.Country) error
	Update(ctx context.Context, country *model.Country) error
	Delete(ctx context.Context, code string) error
	FindByCode(ctx context.Context, code string) (*model.Country, error)
	Exists(ctx context.Context, code string) (bool, error)
	ListAll(ctx context.Context) ([]model.Country, error)
}

type countryRepository struct {
	db *gorm.DB
}

func NewCountryRepository(db *gorm.DB) CountryRepository {
	return &countryRepository{db: db}
}

func (r *countryRepository) Create(ctx context.Context, country *model.Country) error {
	return GetDB(ctx, r.db).Create(country).Error
}

func (r *countryRepository) Update(ctx context.Context, country *model.Country) error {
	return GetDB(ctx, r.db).Save(country).Error
}

func (r *countryRepository) Delete(ctx context.Context, code string) error {
	return GetDB(ctx, r.db).Where("code = ?", code).Delete(&model.Country{}).Error
}

func (r *countryRepository) FindByCode(ctx context.Context, code string) (*model.Country, error) {
	var country model.Country
	if err := GetDB(ctx, r.db).First(&country, "code = ?", code).Error; err != nil {
		return nil, err
	}
	return &country, nil
}

func (r *countryRepository) Exists(ctx context.Context, code string) (bool, error) {
	var count int64
	if err := GetDB(ctx, r.db).Model(&model.Country{}).Where("code = ?", code).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *countryRepository) ListAll(ctx context.Context) ([]model.Country, error) {
	var countries []model.Country
	if err := GetDB(ctx, r.db).Order("code asc").Find(&countries).Error; err != nil {
		return nil, err
	}
	return countries, nil
}
