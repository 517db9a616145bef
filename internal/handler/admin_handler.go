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

type AdminHandler struct {
	adminService service.AdminService
	auth         *middleware.Authenticator
}

func NewAdminHandler(adminService service.AdminService, auth *middleware.Authenticator) *AdminHandler {
	return &AdminHandler{adminService: adminService, auth: auth}
}

func (h *AdminHandler) RegisterRoutes(router *gin.RouterGroup) {
	admin := router.Group("/api/admin", h.auth.RequireRole(model.RoleAdmin))
	{
		admin.GET("/metrics", h.GetMetrics)
		admin.GET("/logs", h.GetLogs)
	}
}

// GetMetrics returns the marketplace dashboard counters
// @Summary      Platform metrics
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=model.PlatformMetrics}
// @Router       /api/admin/metrics [get]
func (h *AdminHandler) GetMetrics(c *gin.Context) {
	m, err := h.adminService.Metrics(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, m))
}

// GetLogs returns the activity feed: every notification with its recipient
// @Summary      Activity logs
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        page   query  int  false  "Page number (default 1)"
// @Param        limit  query  int  false  "Number of items per page (default 10)"
// @Success      200  {object}  response.Response
// @Router       /api/admin/logs [get]
func (h *AdminHandler) GetLogs(c *gin.Context) {
	p := pagination.Parse(c)
	logs, total, err := h.adminService.Logs(c.Request.Context(), p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, logs, p, total))
}
