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

type UserHandler struct {
	userService service.UserService
	auth        *middleware.Authenticator
}

// NewUserHandler sets up the routing dependencies for User endpoints
func NewUserHandler(userService service.UserService, auth *middleware.Authenticator) *UserHandler {
	return &UserHandler{userService: userService, auth: auth}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	profile := router.Group("/api/users/profile", h.auth.RequireRole())
	{
		profile.GET("", h.GetProfile)
		profile.PATCH("", h.UpdateProfile)
	}

	users := router.Group("/api/users", h.auth.RequireRole(model.RoleAdmin))
	{
		users.GET("", h.ListUsers)
		users.GET("/:id", h.GetUser)
		users.PATCH("/:id/approve", h.ApproveUser)
		users.PATCH("/:id/block", h.BlockUser)
		users.DELETE("/:id", h.DeleteUser)
	}
}

// GetProfile returns the caller's own account
// @Summary      Get profile
// @Tags         users
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.UserResponse}
// @Router       /api/users/profile [get]
func (h *UserHandler) GetProfile(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	user, err := h.userService.GetProfile(c.Request.Context(), cl)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}

// UpdateProfile edits the caller's contact details
// @Summary      Update profile
// @Tags         users
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.UpdateProfileRequest  true  "Fields to change"
// @Success      200      {object}  response.Response{data=service.UserResponse}
// @Router       /api/users/profile [patch]
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	var req service.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}
	user, err := h.userService.UpdateProfile(c.Request.Context(), cl, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}

// ListUsers handles GET /api/users with filters and pagination
// @Summary      List users
// @Tags         users
// @Security     BearerAuth
// @Produce      json
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 10)"
// @Param        role    query     string  false  "FACTORY, SUPPLIER, ADMIN"
// @Param        status  query     string  false  "PENDING, ACTIVE, BLOCKED"
// @Param        search  query     string  false  "Name, email or company"
// @Success      200     {object}  response.Response
// @Router       /api/users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	var filter service.UserFilterRequest
	if err := c.ShouldBindQuery(&filter); err != nil {
		badPayload(c, err)
		return
	}
	p := pagination.Parse(c)

	users, total, err := h.userService.List(c.Request.Context(), filter, p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, users, p, total))
}

// GetUser handles GET /api/users/:id
// @Summary      Get user
// @Tags         users
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  response.Response{data=service.UserResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/users/{id} [get]
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.userService.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}

// ApproveUser activates a pending account
// @Summary      Approve user
// @Tags         users
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  response.Response{data=service.UserResponse}
// @Router       /api/users/{id}/approve [patch]
func (h *UserHandler) ApproveUser(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	user, err := h.userService.Approve(c.Request.Context(), c.Param("id"), cl)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}

// BlockUser blocks an account
// @Summary      Block user
// @Tags         users
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  response.Response{data=service.UserResponse}
// @Router       /api/users/{id}/block [patch]
func (h *UserHandler) BlockUser(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	user, err := h.userService.Block(c.Request.Context(), c.Param("id"), cl)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}

// DeleteUser handles DELETE /api/users/:id (soft delete)
// @Summary      Delete user
// @Tags         users
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/users/{id} [delete]
func (h *UserHandler) DeleteUser(c *gin.Context) {
	if err := h.userService.Remove(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "User deleted successfully"))
}
