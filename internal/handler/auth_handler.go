package handler

import (
	"net/http"

	"supplylink/internal/middleware"
	"supplylink/internal/service"
	"supplylink/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService service.AuthService
	auth        *middleware.Authenticator
}

func NewAuthHandler(authService service.AuthService, auth *middleware.Authenticator) *AuthHandler {
	return &AuthHandler{authService: authService, auth: auth}
}

func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup) {
	auth := router.Group("/api/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
		auth.POST("/refresh", h.Refresh)
		auth.POST("/logout", h.Logout)
		auth.POST("/forgot-password", h.ForgotPassword)
		auth.POST("/reset-password", h.ResetPassword)
		auth.GET("/me", h.auth.RequireRole(), h.Me)
	}
}

// Register creates a company account awaiting admin approval
// @Summary      Register
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.RegisterRequest  true  "Account details"
// @Success      201      {object}  response.Response{data=service.UserResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	user, err := h.authService.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, user))
}

// Login authenticates an ACTIVE account and sets the auth cookies
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.LoginRequest  true  "Credentials"
// @Success      200      {object}  response.Response{data=service.AuthResponse}
// @Failure      401      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	res, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	h.auth.SetTokenCookies(c, res.Pair)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// Refresh rotates the token pair
// @Summary      Refresh tokens
// @Description  Reads the refresh_token cookie, falling back to the JSON body
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.RefreshRequest  false  "Refresh token"
// @Success      200      {object}  response.Response{data=token.Pair}
// @Failure      401      {object}  response.Response
// @Router       /api/auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	refreshToken, ok := h.refreshToken(c)
	if !ok {
		return
	}

	pair, err := h.authService.Refresh(c.Request.Context(), refreshToken)
	if err != nil {
		respondError(c, err)
		return
	}

	h.auth.SetTokenCookies(c, pair)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, pair))
}

// Logout revokes the refresh token and clears the cookies
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /api/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	refreshToken, ok := h.refreshToken(c)
	if !ok {
		return
	}
	if err := h.authService.Logout(c.Request.Context(), refreshToken); err != nil {
		respondError(c, err)
		return
	}

	h.auth.ClearTokenCookies(c)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Logged out"))
}

// ForgotPassword emails a reset token if the account exists
// @Summary      Forgot password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.ForgotPasswordRequest  true  "Account email"
// @Success      200      {object}  response.Response
// @Router       /api/auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req service.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}
	if err := h.authService.ForgotPassword(c.Request.Context(), req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "If the email is registered, a reset link has been sent"))
}

// ResetPassword sets a new password using a reset token
// @Summary      Reset password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.ResetPasswordRequest  true  "Token and new password"
// @Success      200      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Router       /api/auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req service.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}
	if err := h.authService.ResetPassword(c.Request.Context(), req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Password updated"))
}

// Me returns the authenticated user
// @Summary      Current user
// @Tags         auth
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.UserResponse}
// @Failure      401  {object}  response.Response
// @Router       /api/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	user, err := h.authService.Me(c.Request.Context(), cl)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}

// refreshToken reads the refresh_token cookie first, then the JSON body.
func (h *AuthHandler) refreshToken(c *gin.Context) (string, bool) {
	if v, err := c.Cookie(middleware.RefreshCookie); err == nil && v != "" {
		return v, true
	}
	var req service.RefreshRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badPayload(c, err)
			return "", false
		}
	}
	return req.RefreshToken, true
}
