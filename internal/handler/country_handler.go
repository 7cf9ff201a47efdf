package handler

import (
	"net/http"

	"tariff-service/internal/middleware"
	"tariff-service/internal/service"
	"tariff-service/pkg/response"

	"github.com/gin-gonic/gin"
)

type CountryHandler struct {
	countryService service.CountryService
	auth           *middleware.Auth
}

func NewCountryHandler(countryService service.CountryService, auth *middleware.Auth) *CountryHandler {
	RegisterValidators()
	return &CountryHandler{countryService: countryService, auth: auth}
}

func (h *CountryHandler) RegisterRoutes(router *gin.RouterGroup) {
	countries := router.Group("/api/countries")
	{
		countries.GET("", h.ListCountries)
		countries.GET("/:code", h.GetCountry)

		write := h.auth.RequireRole(middleware.WriteRoles...)
		countries.POST("", write, h.CreateCountry)
		countries.PUT("/:code", write, h.UpdateCountry)
		countries.DELETE("/:code", write, h.DeleteCountry)
	}
}

// ListCountries godoc
// @Summary      List countries
// @Tags         countries
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.CountryResponse}
// @Router       /api/countries [get]
func (h *CountryHandler) ListCountries(c *gin.Context) {
	countries, err := h.countryService.ListCountries(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, countries))
}

// GetCountry godoc
// @Summary      Get a country by code
// @Tags         countries
// @Produce      json
// @Param        code  path      string  true  "Country code"
// @Success      200   {object}  response.Response{data=service.CountryResponse}
// @Failure      404   {object}  response.Response
// @Router       /api/countries/{code} [get]
func (h *CountryHandler) GetCountry(c *gin.Context) {
	country, err := h.countryService.GetCountry(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, country))
}

// CreateCountry godoc
// @Summary      Register a country
// @Tags         countries
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateCountryRequest  true  "Country"
// @Success      201      {object}  response.Response{data=service.CountryResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/countries [post]
func (h *CountryHandler) CreateCountry(c *gin.Context) {
	var req service.CreateCountryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	country, err := h.countryService.CreateCountry(c.Request.Context(), principal(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, country))
}

// UpdateCountry godoc
// @Summary      Rename or re-enable a country
// @Tags         countries
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        code     path      string                        true  "Country code"
// @Param        payload  body      service.UpdateCountryRequest  true  "Changes"
// @Success      200      {object}  response.Response{data=service.CountryResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/countries/{code} [put]
func (h *CountryHandler) UpdateCountry(c *gin.Context) {
	var req service.UpdateCountryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	country, err := h.countryService.UpdateCountry(c.Request.Context(), principal(c), c.Param("code"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, country))
}

// DeleteCountry godoc
// @Summary      Delete a country
// @Description  soft=true (default) disables the country, soft=false removes it
// @Tags         countries
// @Security     BearerAuth
// @Param        code  path   string  true   "Country code"
// @Param        soft  query  bool    false  "Soft delete"
// @Success      200   {object}  response.Response
// @Failure      404   {object}  response.Response
// @Router       /api/countries/{code} [delete]
func (h *CountryHandler) DeleteCountry(c *gin.Context) {
	if err := h.countryService.DeleteCountry(c.Request.Context(), principal(c), c.Param("code"), softFlag(c, true)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Country deleted"}))
}
