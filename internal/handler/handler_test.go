package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tariff-service/internal/middleware"
	"tariff-service/internal/model"
	"tariff-service/internal/repository/memory"
	"tariff-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope[T any] struct {
	Status     string `json:"status"`
	StatusCode int    `json:"status_code"`
	Data       T      `json:"data"`
	Error      string `json:"error"`
}

type testServer struct {
	router *gin.Engine
	auth   *middleware.Auth
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store := memory.NewStore()
	countryRepo := memory.NewCountryRepository(store)
	productRepo := memory.NewProductRepository(store)
	tariffRepo := memory.NewTariffRepository(store)
	auditRepo := memory.NewAuditRepository(store)
	txManager := memory.NewTransactionManager(store)

	for _, c := range []model.Country{
		{Code: "CN", Name: "China", Enabled: true},
		{Code: "US", Name: "United States", Enabled: true},
	} {
		c := c
		require.NoError(t, countryRepo.Create(context.Background(), &c))
	}

	auth := middleware.NewAuth([]byte("handler-test-secret"))
	router := gin.New()
	router.Use(middleware.RequestLogger(logger), middleware.Metrics())
	api := router.Group("")
	NewCountryHandler(service.NewCountryService(countryRepo, auditRepo, txManager, logger), auth).RegisterRoutes(api)
	NewProductHandler(service.NewProductService(productRepo, auditRepo, txManager, nil, logger), auth).RegisterRoutes(api)
	NewTariffHandler(service.NewTariffService(tariffRepo, productRepo, countryRepo, auditRepo, txManager, nil, nil, logger), auth).RegisterRoutes(api)
	NewAuditHandler(service.NewAuditService(auditRepo), auth).RegisterRoutes(api)

	return &testServer{router: router, auth: auth}
}

func (s *testServer) token(t *testing.T, role string) string {
	t.Helper()
	token, err := s.auth.IssueToken("alice", role, time.Hour)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var env envelope[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func tariffBody(effective string, rate string) map[string]interface{} {
	return map[string]interface{}{
		"origin_country": "CN",
		"dest_country":   "US",
		"effective_date": effective,
		"rate":           rate,
		"hts_code":       "1234.56",
		"products":       []map[string]interface{}{{"hts_code": "1234.56", "name": "Widgets", "enabled": true}},
	}
}

func TestWriteRoutesRequireWriterRole(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/api/tariffs", "", tariffBody("2024-01-01", "0.10"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/api/tariffs", s.token(t, middleware.RoleViewer), tariffBody("2024-01-01", "0.10"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodGet, "/api/audit-logs", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// reads stay public
	w = s.do(http.MethodGet, "/api/countries", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTariffTimelineOverHTTP(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t, middleware.RoleAdmin)

	w := s.do(http.MethodPost, "/api/tariffs", token, tariffBody("2024-01-01", "0.10"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	a := decode[service.TariffResponse](t, w).Data
	assert.Nil(t, a.ExpiryDate)

	w = s.do(http.MethodPost, "/api/tariffs", token, tariffBody("2024-07-01", "0.08"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/api/tariffs/"+a.ID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	closed := decode[service.TariffResponse](t, w).Data
	require.NotNil(t, closed.ExpiryDate)
	assert.Equal(t, "2024-06-30", *closed.ExpiryDate)

	w = s.do(http.MethodGet, "/api/tariffs/particular?hts_code=1234.56&origin=CN&dest=US&date=2024-06-15", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, a.ID, decode[service.TariffResponse](t, w).Data.ID)

	w = s.do(http.MethodGet, "/api/tariffs/particular?product_name=Widgets&origin=CN&dest=US&date=2024-08-01", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0.08", decode[service.TariffResponse](t, w).Data.AdValoremRate)

	w = s.do(http.MethodPost, "/api/tariffs", token, tariffBody("2024-06-15", "0.09"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[any](t, w).Error, "2024-07-01")

	w = s.do(http.MethodGet, "/api/tariffs/particular?hts_code=1234.56&origin=CN&dest=US&date=2023-12-31", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodDelete, "/api/tariffs/"+a.ID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(http.MethodGet, "/api/tariffs/particular?hts_code=1234.56&origin=CN&dest=US&date=2024-03-01", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, "/api/audit-logs", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	logs := decode[struct {
		Items []service.AuditLogResponse `json:"items"`
	}](t, w).Data.Items
	require.NotEmpty(t, logs)
	assert.Equal(t, "alice", logs[0].Principal)

	w = s.do(http.MethodGet, "/api/audit-logs?entity_id="+a.ID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	history := decode[struct {
		Items []service.AuditLogResponse `json:"items"`
	}](t, w).Data.Items
	actions := make([]string, 0, len(history))
	for _, l := range history {
		actions = append(actions, l.Action)
	}
	assert.Equal(t, []string{"SOFT_DELETE_TARIFF", "SUPERSEDE_TARIFF", "CREATE_TARIFF"}, actions)
}

func TestTariffRequestErrors(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t, middleware.RoleManager)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
	}{
		{"lowercase country code", http.MethodPost, "/api/tariffs", map[string]interface{}{"origin_country": "china", "dest_country": "US", "effective_date": "2024-01-01"}, http.StatusBadRequest},
		{"unknown country", http.MethodPost, "/api/tariffs", map[string]interface{}{"origin_country": "FR", "dest_country": "US", "effective_date": "2024-01-01", "rate": "0.1", "hts_code": "1"}, http.StatusNotFound},
		{"malformed id", http.MethodPatch, "/api/tariffs/not-a-uuid", map[string]interface{}{"rate": "0.2"}, http.StatusBadRequest},
		{"missing tariff", http.MethodGet, "/api/tariffs/8f1d8a5e-3c1b-4c1e-9b7a-0d3c1f0e2a11", nil, http.StatusNotFound},
		{"particular without route", http.MethodGet, "/api/tariffs/particular?hts_code=1234.56", nil, http.StatusBadRequest},
		{"by-hts without code", http.MethodGet, "/api/tariffs/by-hts", nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(tt.method, tt.path, token, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, "error", decode[any](t, w).Status)
		})
	}
}

func TestCalculateDutyOverHTTP(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t, middleware.RoleAdmin)

	body := tariffBody("2024-01-01", "0.10")
	body["specific_rate"] = "0.5"
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/tariffs", token, body).Code)

	w := s.do(http.MethodPost, "/api/tariffs/duty", "", map[string]interface{}{
		"hts_code":       "1234.56",
		"origin_country": "CN",
		"dest_country":   "US",
		"date":           "2024-02-01",
		"quantity":       "10",
		"unit_price":     "20",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	duty := decode[service.DutyResponse](t, w).Data
	assert.Equal(t, "200.00", duty.CustomsValue)
	assert.Equal(t, "20.00", duty.AdValoremDuty)
	assert.Equal(t, "5.00", duty.SpecificDuty)
	assert.Equal(t, "25.00", duty.TotalDuty)
	assert.Equal(t, "225.00", duty.LandedCost)
}

func TestProductAssociationOverHTTP(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t, middleware.RoleAdmin)

	w := s.do(http.MethodPost, "/api/tariffs", token, tariffBody("2024-01-01", "0.10"))
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[service.TariffResponse](t, w).Data.ID

	w = s.do(http.MethodPost, "/api/tariffs/"+id+"/products", token, map[string]interface{}{"hts_code": "9999.00", "name": "Gadgets", "enabled": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decode[service.TariffResponse](t, w).Data.Products, 2)

	w = s.do(http.MethodPost, "/api/tariffs/"+id+"/products", token, map[string]interface{}{"hts_code": "9999.00", "name": "Gadgets"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodDelete, "/api/tariffs/"+id+"/products/9999.00", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decode[service.TariffResponse](t, w).Data.Products, 1)

	w = s.do(http.MethodGet, "/api/tariffs/by-hts?hts_code=1234.56", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]service.TariffResponse](t, w).Data, 1)
}

func TestListAndExportTariffs(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t, middleware.RoleAdmin)

	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/tariffs", token, tariffBody("2024-01-01", "0.10")).Code)
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/tariffs", token, tariffBody("2024-07-01", "0.08")).Code)

	w := s.do(http.MethodGet, "/api/tariffs?page=1&limit=1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[struct {
		Items      []service.TariffResponse `json:"items"`
		Pagination struct {
			Total      int64 `json:"total"`
			TotalPages int64 `json:"total_pages"`
		} `json:"pagination"`
	}](t, w).Data
	assert.Len(t, page.Items, 1)
	assert.Equal(t, int64(2), page.Pagination.Total)
	assert.Equal(t, int64(2), page.Pagination.TotalPages)

	w = s.do(http.MethodGet, "/api/tariffs?all=true", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]service.TariffResponse](t, w).Data, 2)

	w = s.do(http.MethodGet, "/api/tariffs/export", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")
	assert.NotZero(t, w.Body.Len())
}

func TestRegistryRoutes(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t, middleware.RoleAdmin)

	w := s.do(http.MethodPost, "/api/countries", token, map[string]interface{}{"code": "DE", "name": "Germany"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/api/countries", token, map[string]interface{}{"code": "DE", "name": "Germany"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPut, "/api/countries/DE", token, map[string]interface{}{"name": "Deutschland"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Deutschland", decode[service.CountryResponse](t, w).Data.Name)

	w = s.do(http.MethodPost, "/api/products", token, map[string]interface{}{"hts_code": "8471.30", "name": "Laptops"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodPatch, "/api/products/8471.30", token, map[string]interface{}{"description": "Portable computers"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Portable computers", decode[service.ProductResponse](t, w).Data.Description)

	w = s.do(http.MethodDelete, "/api/products/8471.30", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/api/products/8471.30", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[service.ProductResponse](t, w).Data.Enabled)

	w = s.do(http.MethodGet, "/api/products/0000.00", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
