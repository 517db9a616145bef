package handler

import (
	"net/http"

	"supplylink/internal/middleware"
	"supplylink/internal/service"
	"supplylink/pkg/pagination"
	"supplylink/pkg/response"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notificationService service.NotificationService
	auth                *middleware.Authenticator
}

func NewNotificationHandler(notificationService service.NotificationService, auth *middleware.Authenticator) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService, auth: auth}
}

func (h *NotificationHandler) RegisterRoutes(router *gin.RouterGroup) {
	notifications := router.Group("/api/notifications", h.auth.RequireRole())
	{
		notifications.GET("", h.ListNotifications)
		notifications.PATCH("/read-all", h.MarkAllAsRead)
		notifications.PATCH("/:id/read", h.MarkAsRead)
	}
}

// ListNotifications returns the caller's notifications with the unread count in meta
// @Summary      List notifications
// @Tags         notifications
// @Security     BearerAuth
// @Produce      json
// @Param        page   query  int  false  "Page number (default: 1)"
// @Param        limit  query  int  false  "Items per page (default: 10)"
// @Success      200  {object}  response.Response
// @Router       /api/notifications [get]
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	p := pagination.Parse(c)

	items, total, unread, err := h.notificationService.List(c.Request.Context(), cl, p)
	if err != nil {
		respondError(c, err)
		return
	}

	res := response.Paginated(http.StatusOK, items, p, total)
	res.Meta.UnreadCount = &unread
	c.JSON(http.StatusOK, res)
}

// MarkAsRead marks one of the caller's notifications as read
// @Summary      Mark notification as read
// @Tags         notifications
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Notification ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/notifications/{id}/read [patch]
func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	n, err := h.notificationService.MarkAsRead(c.Request.Context(), c.Param("id"), cl)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, n))
}

// MarkAllAsRead marks every unread notification of the caller as read
// @Summary      Mark all notifications as read
// @Tags         notifications
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.MarkAllReadResponse}
// @Router       /api/notifications/read-all [patch]
func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	res, err := h.notificationService.MarkAllAsRead(c.Request.Context(), cl)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}
