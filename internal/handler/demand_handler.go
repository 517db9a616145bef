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

type DemandHandler struct {
	demandService service.DemandService
	auth          *middleware.Authenticator
}

func NewDemandHandler(demandService service.DemandService, auth *middleware.Authenticator) *DemandHandler {
	return &DemandHandler{demandService: demandService, auth: auth}
}

func (h *DemandHandler) RegisterRoutes(router *gin.RouterGroup) {
	demands := router.Group("/api/demands")
	{
		demands.GET("", h.auth.RequireRole(model.RoleFactory, model.RoleAdmin), h.ListDemands)
		demands.POST("", h.auth.RequireRole(model.RoleFactory), h.CreateDemand)
		demands.GET("/:id", h.auth.RequireRole(model.RoleFactory, model.RoleAdmin), h.GetDemand)
		demands.PATCH("/:id", h.auth.RequireRole(model.RoleFactory), h.UpdateDemand)
		demands.PATCH("/:id/cancel", h.auth.RequireRole(model.RoleFactory), h.CancelDemand)
	}
}

// ListDemands returns the caller's demands (all demands for admins)
// @Summary      List demands
// @Tags         demands
// @Security     BearerAuth
// @Produce      json
// @Param        page    query     int     false  "Page number (default: 1)"
// @Param        limit   query     int     false  "Items per page (default: 10)"
// @Param        status  query     string  false  "OPEN, IN_NEGOTIATION, CLOSED, CANCELLED"
// @Success      200     {object}  response.Response
// @Router       /api/demands [get]
func (h *DemandHandler) ListDemands(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	p := pagination.Parse(c)

	demands, total, err := h.demandService.FindAll(c.Request.Context(), cl, c.Query("status"), p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, demands, p, total))
}

// CreateDemand opens a new material demand
// @Summary      Create demand
// @Tags         demands
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.CreateDemandRequest  true  "Demand payload"
// @Success      201  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/demands [post]
func (h *DemandHandler) CreateDemand(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	var req service.CreateDemandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	demand, err := h.demandService.Create(c.Request.Context(), cl, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, demand))
}

// GetDemand returns a demand with its quote requests
// @Summary      Get demand
// @Tags         demands
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Demand ID"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/demands/{id} [get]
func (h *DemandHandler) GetDemand(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	demand, err := h.demandService.FindByID(c.Request.Context(), c.Param("id"), cl)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, demand))
}

// UpdateDemand edits an OPEN demand
// @Summary      Update demand
// @Tags         demands
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                       true  "Demand ID"
// @Param        payload  body  service.UpdateDemandRequest  true  "Fields to change"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/demands/{id} [patch]
func (h *DemandHandler) UpdateDemand(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	var req service.UpdateDemandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	demand, err := h.demandService.Update(c.Request.Context(), c.Param("id"), cl, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, demand))
}

// CancelDemand cancels a demand
// @Summary      Cancel demand
// @Tags         demands
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Demand ID"
// @Success      200  {object}  response.Response
// @Router       /api/demands/{id}/cancel [patch]
func (h *DemandHandler) CancelDemand(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	demand, err := h.demandService.Cancel(c.Request.Context(), c.Param("id"), cl)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, demand))
}
