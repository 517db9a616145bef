package handler

import (
	"net/http"

	"supplylink/internal/middleware"
	"supplylink/internal/model"
	"supplylink/internal/service"
	"supplylink/pkg/pagination"
	"supplylink/pkg/response"

	"github.com/gin-gonic/gin"
)

// CatalogHandler serves categories and supplier products.
type CatalogHandler struct {
	categoryService service.CategoryService
	productService  service.ProductService
	auth            *middleware.Authenticator
}

func NewCatalogHandler(categoryService service.CategoryService, productService service.ProductService, auth *middleware.Authenticator) *CatalogHandler {
	return &CatalogHandler{categoryService: categoryService, productService: productService, auth: auth}
}

func (h *CatalogHandler) RegisterRoutes(router *gin.RouterGroup) {
	admin := h.auth.RequireRole(model.RoleAdmin)
	supplier := h.auth.RequireRole(model.RoleSupplier)

	categories := router.Group("/api/categories")
	{
		categories.GET("", h.ListCategories)
		categories.POST("", admin, h.CreateCategory)
		categories.PATCH("/:id", admin, h.UpdateCategory)
		categories.DELETE("/:id", admin, h.DeleteCategory)
	}

	products := router.Group("/api/products")
	{
		products.GET("", h.ListProducts)
		products.GET("/mine", supplier, h.ListMyProducts)
		products.GET("/:id", h.GetProduct)
		products.POST("", supplier, h.CreateProduct)
		products.PATCH("/:id", supplier, h.UpdateProduct)
		products.DELETE("/:id", supplier, h.DeleteProduct)
	}
}

// ListCategories returns all categories with their product counts
// @Summary      List categories
// @Tags         catalog
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /api/categories [get]
func (h *CatalogHandler) ListCategories(c *gin.Context) {
	categories, err := h.categoryService.FindAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, categories))
}

// CreateCategory adds a category
// @Summary      Create category
// @Tags         catalog
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.CategoryRequest  true  "Category"
// @Success      201  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/categories [post]
func (h *CatalogHandler) CreateCategory(c *gin.Context) {
	var req service.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}
	category, err := h.categoryService.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, category))
}

// UpdateCategory renames or re-describes a category
// @Summary      Update category
// @Tags         catalog
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                   true  "Category ID"
// @Param        payload  body  service.CategoryRequest  true  "Category"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/categories/{id} [patch]
func (h *CatalogHandler) UpdateCategory(c *gin.Context) {
	var req service.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}
	category, err := h.categoryService.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, category))
}

// DeleteCategory removes a category
// @Summary      Delete category
// @Tags         catalog
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Category ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/categories/{id} [delete]
func (h *CatalogHandler) DeleteCategory(c *gin.Context) {
	if err := h.categoryService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Category deleted successfully"))
}

// ListProducts searches the catalog
// @Summary      List products
// @Tags         catalog
// @Produce      json
// @Param        page         query  int     false  "Page number (default: 1)"
// @Param        limit        query  int     false  "Items per page (default: 10)"
// @Param        search       query  string  false  "Name contains"
// @Param        category_id  query  string  false  "Category ID"
// @Param        supplier_id  query  string  false  "Supplier ID"
// @Param        min_price    query  number  false  "Minimum base price"
// @Param        max_price    query  number  false  "Maximum base price"
// @Success      200  {object}  response.Response
// @Router       /api/products [get]
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	var filter service.ProductFilterRequest
	if err := c.ShouldBindQuery(&filter); err != nil {
		badPayload(c, err)
		return
	}
	p := pagination.Parse(c)

	products, total, err := h.productService.FindAll(c.Request.Context(), filter, p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, products, p, total))
}

// ListMyProducts returns the calling supplier's products
// @Summary      List my products
// @Tags         catalog
// @Security     BearerAuth
// @Produce      json
// @Param        page   query  int  false  "Page number (default: 1)"
// @Param        limit  query  int  false  "Items per page (default: 10)"
// @Success      200  {object}  response.Response
// @Router       /api/products/mine [get]
func (h *CatalogHandler) ListMyProducts(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	p := pagination.Parse(c)
	products, total, err := h.productService.FindMine(c.Request.Context(), cl, p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, products, p, total))
}

// GetProduct returns one product
// @Summary      Get product
// @Tags         catalog
// @Produce      json
// @Param        id  path  string  true  "Product ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/products/{id} [get]
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	product, err := h.productService.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, product))
}

// CreateProduct lists a new product for the calling supplier
// @Summary      Create product
// @Tags         catalog
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.CreateProductRequest  true  "Product"
// @Success      201  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/products [post]
func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	var req service.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}
	product, err := h.productService.Create(c.Request.Context(), cl, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, product))
}

// UpdateProduct edits a product owned by the caller
// @Summary      Update product
// @Tags         catalog
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                        true  "Product ID"
// @Param        payload  body  service.UpdateProductRequest  true  "Fields to change"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Router       /api/products/{id} [patch]
func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	var req service.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}
	product, err := h.productService.Update(c.Request.Context(), c.Param("id"), cl, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, product))
}

// DeleteProduct soft-deletes a product owned by the caller
// @Summary      Delete product
// @Tags         catalog
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Product ID"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Router       /api/products/{id} [delete]
func (h *CatalogHandler) DeleteProduct(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	if err := h.productService.Delete(c.Request.Context(), c.Param("id"), cl); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Product deleted successfully"))
}
