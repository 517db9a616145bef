package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"supplylink/internal/app"
	"supplylink/internal/config"
	"supplylink/internal/model"
	"supplylink/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Status     string          `json:"status"`
	StatusCode int             `json:"status_code"`
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error"`
	Meta       *struct {
		Total       int64  `json:"total"`
		UnreadCount *int64 `json:"unread_count"`
	} `json:"meta"`
}

type harness struct {
	t      *testing.T
	app    *app.App
	router http.Handler
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	_, rdb := testutil.NewRedis(t)
	cfg := config.AppConfig{
		GinMode:              gin.TestMode,
		JWTSecret:            "test-access",
		JWTRefreshSecret:     "test-refresh",
		JWTExpiration:        15 * time.Minute,
		JWTRefreshExpiration: time.Hour,
		ResetTokenTTL:        time.Hour,
		MLServiceURL:         "http://127.0.0.1:1",
		MLTimeout:            time.Second,
		CORSOrigins:          []string{"http://localhost:3000"},
		JobStream:            "test:jobs",
		JobGroup:             "test-workers",
		JobConsumer:          "test-1",
		WSJoinOwnershipCheck: true,
	}
	a := app.New(cfg, nil, db, rdb)
	return &harness{t: t, app: a, router: a.Router()}
}

func (h *harness) bearer(u *model.User) string {
	pair, err := h.app.Tokens.Issue(u.ID.String(), u.Role)
	require.NoError(h.t, err)
	return "Bearer " + pair.AccessToken
}

func (h *harness) do(method, path, auth string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &env)
	}
	return rec, env
}

func decodeData(t *testing.T, env envelope, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, v))
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	rec, _ := h.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redis":"up"`)
}

func TestAuthAndRoleMapping(t *testing.T) {
	h := newHarness(t)
	factory := testutil.CreateUser(t, h.app.DB, model.RoleFactory)
	supplier := testutil.CreateUser(t, h.app.DB, model.RoleSupplier)

	rec, env := h.do(http.MethodGet, "/api/demands", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "error", env.Status)

	rec, _ = h.do(http.MethodGet, "/api/demands", "Bearer not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = h.do(http.MethodGet, "/api/demands", h.bearer(supplier), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env = h.do(http.MethodPost, "/api/demands", h.bearer(factory), map[string]interface{}{"product_name": "Resin"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Error, "Invalid request payload")

	rec, _ = h.do(http.MethodGet, "/api/demands/not-a-uuid", h.bearer(factory), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = h.do(http.MethodGet, "/api/demands/00000000-0000-0000-0000-000000000001", h.bearer(factory), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRegisterIsPendingUntilApproved(t *testing.T) {
	h := newHarness(t)
	admin := testutil.CreateUser(t, h.app.DB, model.RoleAdmin)

	payload := map[string]interface{}{
		"name": "Bruno", "email": "bruno@example.com", "password": "long-enough",
		"company_name": "Bruno Plastics", "cnpj": "33.333.333/0001-33", "role": "SUPPLIER",
	}
	rec, env := h.do(http.MethodPost, "/api/auth/register", "", payload)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var user struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	decodeData(t, env, &user)
	assert.Equal(t, model.UserStatusPending, user.Status)

	rec, _ = h.do(http.MethodPost, "/api/auth/register", "", payload)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "duplicate registration is a conflict reported as 400")

	payload["email"], payload["cnpj"], payload["role"] = "root@example.com", "9", "ADMIN"
	rec, _ = h.do(http.MethodPost, "/api/auth/register", "", payload)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	login := map[string]string{"email": "bruno@example.com", "password": "long-enough"}
	rec, _ = h.do(http.MethodPost, "/api/auth/login", "", login)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = h.do(http.MethodPatch, "/api/users/"+user.ID+"/approve", h.bearer(admin), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, env = h.do(http.MethodPost, "/api/auth/login", "", login)
	require.Equal(t, http.StatusOK, rec.Code)
	var tokens struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	decodeData(t, env, &tokens)
	assert.NotEmpty(t, tokens.AccessToken)

	var cookieNames []string
	for _, c := range rec.Result().Cookies() {
		cookieNames = append(cookieNames, c.Name)
		assert.True(t, c.HttpOnly)
	}
	assert.ElementsMatch(t, []string{"access_token", "refresh_token"}, cookieNames)

	rec, env = h.do(http.MethodGet, "/api/auth/me", "Bearer "+tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), "bruno@example.com")
	assert.NotContains(t, string(env.Data), "long-enough")
}

func TestNegotiationOverHTTP(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	factory := testutil.CreateUser(t, h.app.DB, model.RoleFactory)
	supplier := testutil.CreateUser(t, h.app.DB, model.RoleSupplier)
	fa, sa := h.bearer(factory), h.bearer(supplier)

	rec, env := h.do(http.MethodPost, "/api/demands", fa, map[string]interface{}{
		"product_name": "PET pellets", "quantity": 2000, "unit": "kg", "needed_by": "2031-03-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var demand struct {
		ID string `json:"id"`
	}
	decodeData(t, env, &demand)

	rec, env = h.do(http.MethodPost, "/api/quotes/request", fa, map[string]interface{}{
		"demand_id": demand.ID, "supplier_ids": []string{supplier.ID.String()},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var requests []struct {
		ID string `json:"id"`
	}
	decodeData(t, env, &requests)
	require.Len(t, requests, 1)

	rec, env = h.do(http.MethodGet, "/api/quotes/received", sa, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, env.Meta)
	assert.EqualValues(t, 1, env.Meta.Total)

	offer := map[string]interface{}{"unit_price": "1.25", "total_price": "2500", "lead_time_days": 12}
	rec, env = h.do(http.MethodPost, "/api/quotes/requests/"+requests[0].ID+"/respond", sa, offer)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var response struct {
		ID string `json:"id"`
	}
	decodeData(t, env, &response)

	rec, _ = h.do(http.MethodPost, "/api/quotes/requests/"+requests[0].ID+"/respond", sa, offer)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "second response conflicts")

	rec, _ = h.do(http.MethodPatch, "/api/quotes/requests/"+requests[0].ID+"/accept", fa, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, env = h.do(http.MethodPost, "/api/orders", fa, map[string]string{"quote_response_id": response.ID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var order struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	decodeData(t, env, &order)
	assert.Equal(t, model.OrderConfirmed, order.Status)

	rec, _ = h.do(http.MethodPatch, "/api/orders/"+order.ID+"/status", fa, map[string]string{"status": "PREPARING"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = h.do(http.MethodPatch, "/api/orders/"+order.ID+"/status", sa, map[string]string{"status": "SHIPPED"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = h.do(http.MethodPatch, "/api/orders/"+order.ID+"/status", sa, map[string]string{"status": "IN_TRANSIT"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Drain the job stream so notifications land in the database.
	w := h.app.Worker()
	require.NoError(t, w.EnsureGroup(ctx))
	for {
		n, err := w.ProcessBatch(ctx, -1)
		require.NoError(t, err)
		if n == 0 {
			break
		}
	}

	rec, env = h.do(http.MethodGet, "/api/notifications", fa, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, env.Meta)
	require.NotNil(t, env.Meta.UnreadCount)
	// quote answered, in transit
	assert.EqualValues(t, 2, *env.Meta.UnreadCount)

	rec, _ = h.do(http.MethodPatch, "/api/notifications/read-all", fa, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	_, env = h.do(http.MethodGet, "/api/notifications", fa, nil)
	assert.EqualValues(t, 0, *env.Meta.UnreadCount)

	rec, env = h.do(http.MethodGet, "/api/notifications", sa, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	// new quote request, new order
	assert.EqualValues(t, 2, *env.Meta.UnreadCount)
}
