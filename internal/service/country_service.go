package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"tariff-service/internal/model"
	"tariff-service/internal/repository"

	"github.com/sirupsen/logrus"
)

var countryCodePattern = regexp.MustCompile(`^[A-Z]{2,3}$`)

// --- DTOs ---

type CreateCountryRequest struct {
	Code    string `json:"code" binding:"required,countrycode"`
	Name    string `json:"name" binding:"required,max=100"`
	Enabled *bool  `json:"enabled"`
}

type UpdateCountryRequest struct {
	Name    string `json:"name" binding:"required,max=100"`
	Enabled *bool  `json:"enabled"`
}

type CountryResponse struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// --- Interface ---

type CountryService interface {
	CreateCountry(ctx context.Context, p Principal, req CreateCountryRequest) (CountryResponse, error)
	GetCountry(ctx context.Context, code string) (CountryResponse, error)
	ListCountries(ctx context.Context) ([]CountryResponse, error)
	UpdateCountry(ctx context.Context, p Principal, code string, req UpdateCountryRequest) (CountryResponse, error)
	DeleteCountry(ctx context.Context, p Principal, code string, soft bool) error
}

type countryService struct {
	countryRepo repository.CountryRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	logger      *logrus.Logger
}

func NewCountryService(
	countryRepo repository.CountryRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	logger *logrus.Logger,
) CountryService {
	return &countryService{
		countryRepo: countryRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		logger:      logger,
	}
}

// --- Implementation ---

func (s *countryService) CreateCountry(ctx context.Context, p Principal, req CreateCountryRequest) (CountryResponse, error) {
	code := normalizeCode(req.Code)
	if !countryCodePattern.MatchString(code) {
		return CountryResponse{}, validationf("country code must be 2-3 letters, got '%s'", req.Code)
	}
	if req.Name == "" {
		return CountryResponse{}, validationf("country name is required")
	}

	country := model.Country{Code: code, Name: req.Name, Enabled: true}
	if req.Enabled != nil {
		country.Enabled = *req.Enabled
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		exists, err := s.countryRepo.Exists(txCtx, code)
		if err != nil {
			return fmt.Errorf("failed to check country: %w", err)
		}
		if exists {
			return validationf("country '%s' already exists", code)
		}
		if err := s.countryRepo.Create(txCtx, &country); err != nil {
			return fmt.Errorf("failed to create country: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, p, model.ActionCreateCountry, country.Code, country.Name, req)
	})
	if err != nil {
		return CountryResponse{}, err
	}

	return toCountryResponse(country), nil
}

func (s *countryService) GetCountry(ctx context.Context, code string) (CountryResponse, error) {
	country, err := s.findCountry(ctx, normalizeCode(code))
	if err != nil {
		return CountryResponse{}, err
	}
	return toCountryResponse(*country), nil
}

func (s *countryService) ListCountries(ctx context.Context) ([]CountryResponse, error) {
	countries, err := s.countryRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch countries: %w", err)
	}

	res := make([]CountryResponse, 0, len(countries))
	for _, c := range countries {
		res = append(res, toCountryResponse(c))
	}
	return res, nil
}

func (s *countryService) UpdateCountry(ctx context.Context, p Principal, code string, req UpdateCountryRequest) (CountryResponse, error) {
	var country *model.Country
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		country, err = s.findCountry(txCtx, normalizeCode(code))
		if err != nil {
			return err
		}

		country.Name = req.Name
		if req.Enabled != nil {
			country.Enabled = *req.Enabled
		}
		if err := s.countryRepo.Update(txCtx, country); err != nil {
			return fmt.Errorf("failed to update country: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, p, model.ActionUpdateCountry, country.Code, country.Name, req)
	})
	if err != nil {
		return CountryResponse{}, err
	}

	return toCountryResponse(*country), nil
}

// DeleteCountry disables the country when soft is set, otherwise removes it
func (s *countryService) DeleteCountry(ctx context.Context, p Principal, code string, soft bool) error {
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		country, err := s.findCountry(txCtx, normalizeCode(code))
		if err != nil {
			return err
		}

		if soft {
			country.Enabled = false
			if err := s.countryRepo.Update(txCtx, country); err != nil {
				return fmt.Errorf("failed to disable country: %w", err)
			}
		} else if err := s.countryRepo.Delete(txCtx, country.Code); err != nil {
			return fmt.Errorf("failed to delete country: %w", err)
		}

		s.logger.WithFields(logrus.Fields{"country": country.Code, "soft": soft}).Info("country deleted")
		return writeAudit(txCtx, s.auditRepo, p, model.ActionDeleteCountry, country.Code, country.Name, map[string]bool{"soft": soft})
	})
}

// --- Helpers ---

func (s *countryService) findCountry(ctx context.Context, code string) (*model.Country, error) {
	country, err := s.countryRepo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Entity: "country", Key: code}
		}
		return nil, fmt.Errorf("failed to fetch country: %w", err)
	}
	return country, nil
}

func toCountryResponse(c model.Country) CountryResponse {
	return CountryResponse{Code: c.Code, Name: c.Name, Enabled: c.Enabled}
}
