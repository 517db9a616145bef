package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"supplylink/internal/middleware"
	"supplylink/internal/token"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(t *testing.T, roles ...string) (*gin.Engine, *token.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens := token.NewManager("access", "refresh", time.Minute, time.Hour)
	auth := middleware.NewAuthenticator(tokens, false)

	r := gin.New()
	r.GET("/protected", auth.RequireRole(roles...), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("userID")+":"+c.GetString("userRole"))
	})
	return r, tokens
}

func TestRequireRole_Bearer(t *testing.T) {
	r, tokens := newRouter(t, "FACTORY")
	pair, err := tokens.Issue("u1", "FACTORY")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1:FACTORY", w.Body.String())
}

func TestRequireRole_Cookie(t *testing.T) {
	r, tokens := newRouter(t)
	pair, err := tokens.Issue("u2", "SUPPLIER")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: middleware.AccessCookie, Value: pair.AccessToken})
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRole_Rejections(t *testing.T) {
	r, tokens := newRouter(t, "ADMIN")
	supplier, err := tokens.Issue("u3", "SUPPLIER")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"bad format", "Token abc", http.StatusUnauthorized},
		{"garbage", "Bearer abc", http.StatusUnauthorized},
		{"refresh token used as access", "Bearer " + supplier.RefreshToken, http.StatusUnauthorized},
		{"wrong role", "Bearer " + supplier.AccessToken, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestSetAndClearCookies(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokens := token.NewManager("access", "refresh", time.Minute, time.Hour)
	auth := middleware.NewAuthenticator(tokens, true)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/login", nil)
	auth.SetTokenCookies(c, token.Pair{AccessToken: "a", RefreshToken: "r"})

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 2)
	for _, ck := range cookies {
		assert.True(t, ck.HttpOnly)
		assert.True(t, ck.Secure)
	}

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/logout", nil)
	auth.ClearTokenCookies(c)
	for _, ck := range w.Result().Cookies() {
		assert.Empty(t, ck.Value)
		assert.True(t, ck.MaxAge < 0)
	}
}
