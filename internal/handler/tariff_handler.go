package handler

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"tariff-service/internal/middleware"
	"tariff-service/internal/service"
	"tariff-service/pkg/pagination"
	"tariff-service/pkg/response"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type TariffHandler struct {
	tariffService service.TariffService
	auth          *middleware.Auth
}

func NewTariffHandler(tariffService service.TariffService, auth *middleware.Auth) *TariffHandler {
	RegisterValidators()
	return &TariffHandler{tariffService: tariffService, auth: auth}
}

func (h *TariffHandler) RegisterRoutes(router *gin.RouterGroup) {
	tariffs := router.Group("/api/tariffs")
	{
		tariffs.GET("", h.ListTariffs)
		tariffs.GET("/export", h.ExportTariffs)
		tariffs.GET("/by-hts", h.GetTariffsByProductCode)
		tariffs.GET("/particular", h.GetParticularTariff)
		tariffs.POST("/duty", h.CalculateDuty)
		tariffs.GET("/:id", h.GetTariff)

		write := h.auth.RequireRole(middleware.WriteRoles...)
		tariffs.POST("", write, h.AddTariff)
		tariffs.PATCH("/:id", write, h.UpdateTariff)
		tariffs.POST("/:id/products", write, h.AddProduct)
		tariffs.DELETE("/:id/products/:code", write, h.RemoveProduct)
		tariffs.DELETE("/:id", write, h.DeleteTariff)
	}
}

// ListTariffs godoc
// @Summary      List tariffs
// @Description  Paginated, newest effective date first. all=true returns every tariff unpaginated.
// @Tags         tariffs
// @Produce      json
// @Param        page   query     int   false  "Page number (default 1)"
// @Param        limit  query     int   false  "Items per page (default 20)"
// @Param        all    query     bool  false  "Return the full list"
// @Success      200    {object}  response.Response{data=response.PagedData{items=[]service.TariffResponse}}
// @Router       /api/tariffs [get]
func (h *TariffHandler) ListTariffs(c *gin.Context) {
	if all, _ := strconv.ParseBool(c.Query("all")); all {
		tariffs, err := h.tariffService.ListAllTariffs(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, response.Success(http.StatusOK, tariffs))
		return
	}

	p := pagination.Parse(c)
	tariffs, total, err := h.tariffService.ListTariffs(c.Request.Context(), p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, tariffs, p.Page, p.Limit, total))
}

// GetTariff godoc
// @Summary      Get a tariff by id
// @Tags         tariffs
// @Produce      json
// @Param        id   path      string  true  "Tariff id"
// @Success      200  {object}  response.Response{data=service.TariffResponse}
// @Failure      400  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/tariffs/{id} [get]
func (h *TariffHandler) GetTariff(c *gin.Context) {
	tariff, err := h.tariffService.GetTariffByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, tariff))
}

// GetTariffsByProductCode godoc
// @Summary      Tariff history of a product
// @Tags         tariffs
// @Produce      json
// @Param        hts_code  query     string  true  "HTS code"
// @Success      200       {object}  response.Response{data=[]service.TariffResponse}
// @Failure      400       {object}  response.Response
// @Router       /api/tariffs/by-hts [get]
func (h *TariffHandler) GetTariffsByProductCode(c *gin.Context) {
	code := c.Query("hts_code")
	if code == "" {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "hts_code is required"))
		return
	}

	tariffs, err := h.tariffService.GetTariffsByProductCode(c.Request.Context(), code)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, tariffs))
}

// GetParticularTariff godoc
// @Summary      Resolve the tariff in force
// @Description  Returns the single enabled tariff covering date for the product and route
// @Tags         tariffs
// @Produce      json
// @Param        hts_code      query     string  false  "HTS code"
// @Param        product_name  query     string  false  "Product name, used when hts_code is empty"
// @Param        origin        query     string  true   "Origin country code"
// @Param        dest          query     string  true   "Destination country code"
// @Param        date          query     string  false  "YYYY-MM-DD, defaults to today"
// @Success      200           {object}  response.Response{data=service.TariffResponse}
// @Failure      400           {object}  response.Response
// @Failure      404           {object}  response.Response
// @Failure      500           {object}  response.Response
// @Router       /api/tariffs/particular [get]
func (h *TariffHandler) GetParticularTariff(c *gin.Context) {
	var q service.ParticularTariffQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, err)
		return
	}

	tariff, err := h.tariffService.GetParticularTariff(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, tariff))
}

// CalculateDuty godoc
// @Summary      Calculate import duty
// @Description  Resolves the tariff in force and applies it to quantity x unit_price
// @Tags         tariffs
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CalculateDutyRequest  true  "Shipment"
// @Success      200      {object}  response.Response{data=service.DutyResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/tariffs/duty [post]
func (h *TariffHandler) CalculateDuty(c *gin.Context) {
	var req service.CalculateDutyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	duty, err := h.tariffService.CalculateDuty(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, duty))
}

// ExportTariffs godoc
// @Summary      Export tariffs to Excel
// @Tags         tariffs
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success      200
// @Failure      500  {object}  response.Response
// @Router       /api/tariffs/export [get]
func (h *TariffHandler) ExportTariffs(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.tariffService.ExportTariffs(c.Request.Context(), &buf); err != nil {
		respondError(c, err)
		return
	}

	filename := "tariffs-" + time.Now().Format("20060102") + ".xlsx"
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// AddTariff godoc
// @Summary      Add a tariff
// @Description  Supersedes an open-ended predecessor for the same route and product, rejects overlaps with closed ones
// @Tags         tariffs
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.AddTariffRequest  true  "Tariff"
// @Success      201      {object}  response.Response{data=service.TariffResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/tariffs [post]
func (h *TariffHandler) AddTariff(c *gin.Context) {
	var req service.AddTariffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	tariff, err := h.tariffService.AddTariff(c.Request.Context(), principal(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, tariff))
}

// UpdateTariff godoc
// @Summary      Patch a tariff
// @Description  Only fields present in the body are changed. expiry_date null reopens the window.
// @Tags         tariffs
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                       true  "Tariff id"
// @Param        payload  body      service.UpdateTariffRequest  true  "Changes"
// @Success      200      {object}  response.Response{data=service.TariffResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/tariffs/{id} [patch]
func (h *TariffHandler) UpdateTariff(c *gin.Context) {
	var req service.UpdateTariffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	tariff, err := h.tariffService.UpdateTariff(c.Request.Context(), principal(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, tariff))
}

// AddProduct godoc
// @Summary      Attach a product to a tariff
// @Tags         tariffs
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                     true  "Tariff id"
// @Param        payload  body      service.ProductDescriptor  true  "Product"
// @Success      200      {object}  response.Response{data=service.TariffResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/tariffs/{id}/products [post]
func (h *TariffHandler) AddProduct(c *gin.Context) {
	var req service.ProductDescriptor
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	tariff, err := h.tariffService.AddProductToTariff(c.Request.Context(), principal(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, tariff))
}

// RemoveProduct godoc
// @Summary      Detach a product from a tariff
// @Tags         tariffs
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string  true  "Tariff id"
// @Param        code  path      string  true  "HTS code"
// @Success      200   {object}  response.Response{data=service.TariffResponse}
// @Failure      400   {object}  response.Response
// @Failure      404   {object}  response.Response
// @Router       /api/tariffs/{id}/products/{code} [delete]
func (h *TariffHandler) RemoveProduct(c *gin.Context) {
	tariff, err := h.tariffService.RemoveProductFromTariff(c.Request.Context(), principal(c), c.Param("id"), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, tariff))
}

// DeleteTariff godoc
// @Summary      Delete a tariff
// @Description  soft=true (default) collapses the window to end the day before it starts, soft=false removes the row
// @Tags         tariffs
// @Security     BearerAuth
// @Param        id    path   string  true   "Tariff id"
// @Param        soft  query  bool    false  "Soft delete"
// @Success      200   {object}  response.Response
// @Failure      404   {object}  response.Response
// @Router       /api/tariffs/{id} [delete]
func (h *TariffHandler) DeleteTariff(c *gin.Context) {
	if err := h.tariffService.DeleteTariff(c.Request.Context(), principal(c), c.Param("id"), softFlag(c, true)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Tariff deleted"}))
}
