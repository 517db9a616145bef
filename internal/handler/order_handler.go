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

type OrderHandler struct {
	orderService service.OrderService
	auth         *middleware.Authenticator
}

func NewOrderHandler(orderService service.OrderService, auth *middleware.Authenticator) *OrderHandler {
	return &OrderHandler{orderService: orderService, auth: auth}
}

func (h *OrderHandler) RegisterRoutes(router *gin.RouterGroup) {
	anyParty := h.auth.RequireRole(model.RoleFactory, model.RoleSupplier, model.RoleAdmin)

	orders := router.Group("/api/orders")
	{
		orders.POST("", h.auth.RequireRole(model.RoleFactory), h.CreateOrder)
		orders.GET("", anyParty, h.ListOrders)
		orders.GET("/history", h.auth.RequireRole(model.RoleFactory, model.RoleSupplier), h.GetHistory)
		orders.GET("/:id", anyParty, h.GetOrder)
		orders.PATCH("/:id/status", h.auth.RequireRole(model.RoleSupplier), h.UpdateStatus)
	}
}

// CreateOrder places an order from an accepted quote
// @Summary      Create order
// @Tags         orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.CreateOrderRequest  true  "Accepted quote response"
// @Success      201  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Router       /api/orders [post]
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	order, err := h.orderService.Create(c.Request.Context(), cl, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, order))
}

// ListOrders returns the caller's orders
// @Summary      List orders
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Param        page    query  int     false  "Page number (default: 1)"
// @Param        limit   query  int     false  "Items per page (default: 10)"
// @Param        status  query  string  false  "CONFIRMED, PREPARING, IN_TRANSIT, DELIVERED"
// @Success      200  {object}  response.Response
// @Router       /api/orders [get]
func (h *OrderHandler) ListOrders(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	p := pagination.Parse(c)
	orders, total, err := h.orderService.FindAll(c.Request.Context(), cl, c.Query("status"), p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, orders, p, total))
}

// GetHistory returns delivered orders, most recently updated first
// @Summary      Order history
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Param        page   query  int  false  "Page number (default: 1)"
// @Param        limit  query  int  false  "Items per page (default: 10)"
// @Success      200  {object}  response.Response
// @Router       /api/orders/history [get]
func (h *OrderHandler) GetHistory(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	p := pagination.Parse(c)
	orders, total, err := h.orderService.GetHistory(c.Request.Context(), cl, p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, orders, p, total))
}

// GetOrder returns one order
// @Summary      Get order
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Order ID"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/orders/{id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	order, err := h.orderService.FindByID(c.Request.Context(), c.Param("id"), cl)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// UpdateStatus moves an order to a new fulfilment status
// @Summary      Update order status
// @Tags         orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                            true  "Order ID"
// @Param        payload  body  service.UpdateOrderStatusRequest  true  "New status"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Router       /api/orders/{id}/status [patch]
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	var req service.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	order, err := h.orderService.UpdateStatus(c.Request.Context(), c.Param("id"), cl, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}
