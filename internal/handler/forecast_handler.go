package handler

import (
	"net/http"
	"strconv"

	"supplylink/internal/middleware"
	"supplylink/internal/model"
	"supplylink/internal/service"
	"supplylink/pkg/response"

	"github.com/gin-gonic/gin"
)

type ForecastHandler struct {
	forecastService service.ForecastService
	auth            *middleware.Authenticator
}

func NewForecastHandler(forecastService service.ForecastService, auth *middleware.Authenticator) *ForecastHandler {
	return &ForecastHandler{forecastService: forecastService, auth: auth}
}

func (h *ForecastHandler) RegisterRoutes(router *gin.RouterGroup) {
	forecast := router.Group("/api/forecast")
	{
		forecast.GET("/alerts", h.auth.RequireRole(model.RoleFactory, model.RoleAdmin), h.GetAlerts)
		forecast.POST("/trigger", h.auth.RequireRole(model.RoleAdmin), h.TriggerTraining)
		forecast.GET("/:productId", h.auth.RequireRole(model.RoleFactory), h.GetForecast)
	}
}

// GetForecast asks the ML service for a daily demand forecast of a product
// @Summary      Demand forecast
// @Tags         forecast
// @Security     BearerAuth
// @Produce      json
// @Param        productId  path   string  true   "Product ID"
// @Param        horizon    query  int     false  "Days ahead, 7 to 90 (default 30)"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      500  {object}  response.Response
// @Router       /api/forecast/{productId} [get]
func (h *ForecastHandler) GetForecast(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}

	horizon := service.DefaultHorizonDays
	if raw := c.Query("horizon"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "horizon must be an integer"))
			return
		}
		horizon = v
	}

	points, err := h.forecastService.GetForecast(c.Request.Context(), cl, c.Param("productId"), horizon)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, points))
}

// GetAlerts lists forecasts with high predicted demand
// @Summary      Replenishment alerts
// @Tags         forecast
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /api/forecast/alerts [get]
func (h *ForecastHandler) GetAlerts(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	alerts, err := h.forecastService.GetAlerts(c.Request.Context(), cl)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, alerts))
}

// TriggerTraining asks the ML service to retrain its model
// @Summary      Trigger model training
// @Tags         forecast
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response
// @Failure      500  {object}  response.Response
// @Router       /api/forecast/trigger [post]
func (h *ForecastHandler) TriggerTraining(c *gin.Context) {
	res, err := h.forecastService.TriggerTraining(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}
