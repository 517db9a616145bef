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

type AuditHandler struct {
	adminService service.AdminService
	auth         *middleware.Authenticator
}

func NewAuditHandler(adminService service.AdminService, auth *middleware.Authenticator) *AuditHandler {
	return &AuditHandler{adminService: adminService, auth: auth}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/admin/audit-logs")
	group.Use(h.auth.RequireRole(model.RoleAdmin))
	{
		group.GET("", h.GetAuditLogs)
	}
}

// GetAuditLogs lists workflow transitions with the acting user, newest first
// @Summary      Get audit logs
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 10)"
// @Param        action  query     string  false  "Filter by action, e.g. ACCEPT_QUOTE"
// @Success      200     {object}  response.Response
// @Router       /api/admin/audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	p := pagination.Parse(c)

	logs, total, err := h.adminService.AuditLogs(c.Request.Context(), c.Query("action"), p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, logs, p, total))
}
