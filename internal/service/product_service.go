package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tariff-service/internal/model"
	"tariff-service/internal/repository"
	"tariff-service/pkg/optional"

	"github.com/sirupsen/logrus"
)

// --- DTOs ---

type CreateProductRequest struct {
	HTSCode     string `json:"hts_code" binding:"required,max=20"`
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description" binding:"max=255"`
	Enabled     *bool  `json:"enabled"`
}

// UpdateProductRequest only overwrites fields present in the JSON body
type UpdateProductRequest struct {
	Name        optional.Value[string] `json:"name" swaggertype:"string"`
	Description optional.Value[string] `json:"description" swaggertype:"string"`
	Enabled     optional.Value[bool]   `json:"enabled" swaggertype:"boolean"`
}

type ProductResponse struct {
	HTSCode     string `json:"hts_code"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Enabled     bool   `json:"enabled"`
}

// --- Interface ---

type ProductService interface {
	CreateProduct(ctx context.Context, p Principal, req CreateProductRequest) (ProductResponse, error)
	GetProduct(ctx context.Context, code string) (ProductResponse, error)
	ListProducts(ctx context.Context, page, limit int, search string) ([]ProductResponse, int64, error)
	UpdateProduct(ctx context.Context, p Principal, code string, req UpdateProductRequest) (ProductResponse, error)
	DeleteProduct(ctx context.Context, p Principal, code string, soft bool) error
}

type productService struct {
	productRepo repository.ProductRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	cache       ResolutionCache
	logger      *logrus.Logger
}

func NewProductService(
	productRepo repository.ProductRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	cache ResolutionCache,
	logger *logrus.Logger,
) ProductService {
	if cache == nil {
		cache = nopCache{}
	}
	return &productService{
		productRepo: productRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		cache:       cache,
		logger:      logger,
	}
}

// --- Implementation ---

func (s *productService) CreateProduct(ctx context.Context, p Principal, req CreateProductRequest) (ProductResponse, error) {
	product := model.Product{
		HTSCode:     strings.TrimSpace(req.HTSCode),
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Enabled:     true,
	}
	if product.HTSCode == "" || product.Name == "" {
		return ProductResponse{}, validationf("product hts_code and name are required")
	}
	if req.Enabled != nil {
		product.Enabled = *req.Enabled
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.ensureUnique(txCtx, product.HTSCode, product.Name); err != nil {
			return err
		}
		if err := s.productRepo.Create(txCtx, &product); err != nil {
			return fmt.Errorf("failed to create product: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, p, model.ActionCreateProduct, product.HTSCode, product.Name, req)
	})
	if err != nil {
		return ProductResponse{}, err
	}

	return toProductResponse(product), nil
}

func (s *productService) GetProduct(ctx context.Context, code string) (ProductResponse, error) {
	product, err := s.findProduct(ctx, code)
	if err != nil {
		return ProductResponse{}, err
	}
	return toProductResponse(*product), nil
}

func (s *productService) ListProducts(ctx context.Context, page, limit int, search string) ([]ProductResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	products, total, err := s.productRepo.List(ctx, page, limit, strings.TrimSpace(search))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch products: %w", err)
	}

	res := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		res = append(res, toProductResponse(p))
	}
	return res, total, nil
}

func (s *productService) UpdateProduct(ctx context.Context, p Principal, code string, req UpdateProductRequest) (ProductResponse, error) {
	var product *model.Product
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		product, err = s.findProduct(txCtx, code)
		if err != nil {
			return err
		}

		if name, ok := req.Name.Get(); ok {
			name = strings.TrimSpace(name)
			if name == "" {
				return validationf("product name cannot be empty")
			}
			if name != product.Name {
				if err := s.ensureUnique(txCtx, "", name); err != nil {
					return err
				}
				product.Name = name
			}
		} else if req.Name.IsNull() {
			return validationf("product name cannot be null")
		}
		if req.Description.Present {
			product.Description, _ = req.Description.Get()
		}
		if enabled, ok := req.Enabled.Get(); ok {
			product.Enabled = enabled
		}

		if err := s.productRepo.Update(txCtx, product); err != nil {
			return fmt.Errorf("failed to update product: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, p, model.ActionUpdateProduct, product.HTSCode, product.Name, req)
	})
	if err != nil {
		return ProductResponse{}, err
	}

	s.cache.Invalidate(ctx)
	return toProductResponse(*product), nil
}

// DeleteProduct flips enabled off when soft is set; a hard delete also drops its tariff associations
func (s *productService) DeleteProduct(ctx context.Context, p Principal, code string, soft bool) error {
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		product, err := s.findProduct(txCtx, code)
		if err != nil {
			return err
		}

		if soft {
			product.Enabled = false
			if err := s.productRepo.Update(txCtx, product); err != nil {
				return fmt.Errorf("failed to disable product: %w", err)
			}
		} else if err := s.productRepo.Delete(txCtx, product.HTSCode); err != nil {
			return fmt.Errorf("failed to delete product: %w", err)
		}

		return writeAudit(txCtx, s.auditRepo, p, model.ActionDeleteProduct, product.HTSCode, product.Name, map[string]bool{"soft": soft})
	})
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{"hts_code": code, "soft": soft}).Info("product deleted")
	s.cache.Invalidate(ctx)
	return nil
}

// --- Helpers ---

func (s *productService) findProduct(ctx context.Context, code string) (*model.Product, error) {
	code = strings.TrimSpace(code)
	product, err := s.productRepo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Entity: "product", Key: code}
		}
		return nil, fmt.Errorf("failed to fetch product: %w", err)
	}
	return product, nil
}

// ensureUnique rejects a code or name already taken. Empty arguments are skipped.
func (s *productService) ensureUnique(ctx context.Context, code, name string) error {
	if code != "" {
		if _, err := s.productRepo.FindByCode(ctx, code); err == nil {
			return validationf("product with hts_code '%s' already exists", code)
		} else if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("failed to check product code: %w", err)
		}
	}
	if name != "" {
		if _, err := s.productRepo.FindByName(ctx, name); err == nil {
			return validationf("product with name '%s' already exists", name)
		} else if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("failed to check product name: %w", err)
		}
	}
	return nil
}

func toProductResponse(p model.Product) ProductResponse {
	return ProductResponse{
		HTSCode:     p.HTSCode,
		Name:        p.Name,
		Description: p.Description,
		Enabled:     p.Enabled,
	}
}
