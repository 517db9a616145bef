package middleware

import (
	"net/http"
	"strings"

	"supplylink/internal/token"
	"supplylink/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	AccessCookie  = "access_token"
	RefreshCookie = "refresh_token"
)

// Authenticator validates access tokens and manages the auth cookies.
type Authenticator struct {
	tokens        *token.Manager
	secureCookies bool
}

// NewAuthenticator: secureCookies switches the cookies to SameSite=None; Secure for cross-origin deployments.
func NewAuthenticator(tokens *token.Manager, secureCookies bool) *Authenticator {
	return &Authenticator{tokens: tokens, secureCookies: secureCookies}
}

// SetTokenCookies sets access_token and refresh_token as HttpOnly cookies
func (a *Authenticator) SetTokenCookies(c *gin.Context, pair token.Pair) {
	sameSite, secure := a.cookieMode()
	c.SetSameSite(sameSite)
	c.SetCookie(AccessCookie, pair.AccessToken, int(a.tokens.AccessTTL().Seconds()), "/", "", secure, true)
	c.SetCookie(RefreshCookie, pair.RefreshToken, int(a.tokens.RefreshTTL().Seconds()), "/", "", secure, true)
}

// ClearTokenCookies removes access_token and refresh_token cookies
func (a *Authenticator) ClearTokenCookies(c *gin.Context) {
	sameSite, secure := a.cookieMode()
	c.SetSameSite(sameSite)
	c.SetCookie(AccessCookie, "", -1, "/", "", secure, true)
	c.SetCookie(RefreshCookie, "", -1, "/", "", secure, true)
}

func (a *Authenticator) cookieMode() (http.SameSite, bool) {
	if a.secureCookies {
		return http.SameSiteNoneMode, true
	}
	return http.SameSiteLaxMode, false
}

// RequireRole validates the access token and checks the caller's role against
// allowedRoles. With no roles any authenticated caller passes.
func (a *Authenticator) RequireRole(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Try cookie first, fallback to Authorization header
		tokenString, cookieErr := c.Cookie(AccessCookie)
		if cookieErr != nil || tokenString == "" {
			authHeader := c.GetHeader("Authorization")
			if authHeader == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid authorization format. Expected 'Bearer <token>'"))
				return
			}
			tokenString = parts[1]
		}

		claims, err := a.tokens.ParseAccess(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid or expired token"))
			return
		}

		if len(allowedRoles) > 0 && !hasRole(claims.Role, allowedRoles) {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
			return
		}

		c.Set("userID", claims.UserID)
		c.Set("userRole", claims.Role)

		c.Next()
	}
}

func hasRole(role string, allowed []string) bool {
	for _, r := range allowed {
		if role == r {
			return true
		}
	}
	return false
}
