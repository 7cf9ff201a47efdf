package repository

import (
	"context"

	"tariff-service/internal/model"
	"tariff-service/pkg/pagination"

	"gorm.io/gorm"
)

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	Update(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, code string) error
	FindByCode(ctx context.Context, code string) (*model.Product, error)
	FindByName(ctx context.Context, name string) (*model.Product, error)
	List(ctx context.Context, page, limit int, search string) ([]model.Product, int64, error)
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, product *model.Product) error {
	return GetDB(ctx, r.db).Create(product).Error
}

func (r *productRepository) Update(ctx context.Context, product *model.Product) error {
	return GetDB(ctx, r.db).Save(product).Error
}

// Delete removes the product and its tariff associations
func (r *productRepository) Delete(ctx context.Context, code string) error {
	db := GetDB(ctx, r.db)
	if err := db.Exec("DELETE FROM tariff_products WHERE product_code = ?", code).Error; err != nil {
		return err
	}
	return db.Where("hts_code = ?", code).Delete(&model.Product{}).Error
}

func (r *productRepository) FindByCode(ctx context.Context, code string) (*model.Product, error) {
	var product model.Product
	if err := GetDB(ctx, r.db).First(&product, "hts_code = ?", code).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) FindByName(ctx context.Context, name string) (*model.Product, error) {
	var product model.Product
	if err := GetDB(ctx, r.db).Where("name = ?", name).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) List(ctx context.Context, page, limit int, search string) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Product{})
	if search != "" {
		db = db.Where("name ILIKE ? OR hts_code LIKE ?", "%"+search+"%", search+"%")
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	p := pagination.New(page, limit)
	if err := db.Order("hts_code asc").Offset(p.Offset).Limit(p.Limit).Find(&products).Error; err != nil {
		return nil, 0, err
	}

	return products, total, nil
}
