package handler

import (
	"net/http"

	"tariff-service/internal/middleware"
	"tariff-service/internal/service"
	"tariff-service/pkg/pagination"
	"tariff-service/pkg/response"

	"github.com/gin-gonic/gin"
)

type ProductHandler struct {
	productService service.ProductService
	auth           *middleware.Auth
}

func NewProductHandler(productService service.ProductService, auth *middleware.Auth) *ProductHandler {
	RegisterValidators()
	return &ProductHandler{productService: productService, auth: auth}
}

func (h *ProductHandler) RegisterRoutes(router *gin.RouterGroup) {
	products := router.Group("/api/products")
	{
		products.GET("", h.ListProducts)
		products.GET("/:code", h.GetProduct)

		write := h.auth.RequireRole(middleware.WriteRoles...)
		products.POST("", write, h.CreateProduct)
		products.PATCH("/:code", write, h.UpdateProduct)
		products.DELETE("/:code", write, h.DeleteProduct)
	}
}

// ListProducts godoc
// @Summary      List products
// @Description  Paginated, optionally filtered by name or HTS code prefix
// @Tags         products
// @Produce      json
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Items per page (default 20)"
// @Param        search  query     string  false  "Name or HTS code prefix"
// @Success      200     {object}  response.Response{data=response.PagedData{items=[]service.ProductResponse}}
// @Router       /api/products [get]
func (h *ProductHandler) ListProducts(c *gin.Context) {
	p := pagination.Parse(c)
	products, total, err := h.productService.ListProducts(c.Request.Context(), p.Page, p.Limit, c.Query("search"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, products, p.Page, p.Limit, total))
}

// GetProduct godoc
// @Summary      Get a product by HTS code
// @Tags         products
// @Produce      json
// @Param        code  path      string  true  "HTS code"
// @Success      200   {object}  response.Response{data=service.ProductResponse}
// @Failure      404   {object}  response.Response
// @Router       /api/products/{code} [get]
func (h *ProductHandler) GetProduct(c *gin.Context) {
	product, err := h.productService.GetProduct(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, product))
}

// CreateProduct godoc
// @Summary      Register a product
// @Tags         products
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateProductRequest  true  "Product"
// @Success      201      {object}  response.Response{data=service.ProductResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/products [post]
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req service.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	product, err := h.productService.CreateProduct(c.Request.Context(), principal(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, product))
}

// UpdateProduct godoc
// @Summary      Patch a product
// @Description  Only fields present in the body are changed
// @Tags         products
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        code     path      string                        true  "HTS code"
// @Param        payload  body      service.UpdateProductRequest  true  "Changes"
// @Success      200      {object}  response.Response{data=service.ProductResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/products/{code} [patch]
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	var req service.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	product, err := h.productService.UpdateProduct(c.Request.Context(), principal(c), c.Param("code"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, product))
}

// DeleteProduct godoc
// @Summary      Delete a product
// @Description  soft=true (default) disables the product and hides its tariffs from resolution
// @Tags         products
// @Security     BearerAuth
// @Param        code  path   string  true   "HTS code"
// @Param        soft  query  bool    false  "Soft delete"
// @Success      200   {object}  response.Response
// @Failure      404   {object}  response.Response
// @Router       /api/products/{code} [delete]
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	if err := h.productService.DeleteProduct(c.Request.Context(), principal(c), c.Param("code"), softFlag(c, true)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Product deleted"}))
}
