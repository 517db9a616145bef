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

type QuoteHandler struct {
	quoteService service.QuoteService
	auth         *middleware.Authenticator
}

func NewQuoteHandler(quoteService service.QuoteService, auth *middleware.Authenticator) *QuoteHandler {
	return &QuoteHandler{quoteService: quoteService, auth: auth}
}

func (h *QuoteHandler) RegisterRoutes(router *gin.RouterGroup) {
	factory := h.auth.RequireRole(model.RoleFactory)
	supplier := h.auth.RequireRole(model.RoleSupplier)

	quotes := router.Group("/api/quotes")
	{
		quotes.POST("/request", factory, h.RequestQuotes)
		quotes.GET("/requests", factory, h.ListRequests)
		quotes.GET("/received", supplier, h.ListReceived)
		quotes.GET("/requests/:id", h.auth.RequireRole(model.RoleFactory, model.RoleSupplier), h.GetRequest)
		quotes.POST("/requests/:id/respond", supplier, h.Respond)
		quotes.PATCH("/requests/:id/accept", factory, h.Accept)
		quotes.PATCH("/requests/:id/reject", factory, h.Reject)
		quotes.GET("/demands/:demandId/compare", factory, h.Compare)
	}
}

// RequestQuotes invites suppliers to quote on a demand
// @Summary      Request quotes
// @Tags         quotes
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.RequestQuotesRequest  true  "Demand and suppliers"
// @Success      201  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Router       /api/quotes/request [post]
func (h *QuoteHandler) RequestQuotes(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	var req service.RequestQuotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	requests, err := h.quoteService.RequestQuotes(c.Request.Context(), cl, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, requests))
}

// ListRequests lists quote requests the factory has sent
// @Summary      List my quote requests
// @Tags         quotes
// @Security     BearerAuth
// @Produce      json
// @Param        page   query  int  false  "Page number (default: 1)"
// @Param        limit  query  int  false  "Items per page (default: 10)"
// @Success      200  {object}  response.Response
// @Router       /api/quotes/requests [get]
func (h *QuoteHandler) ListRequests(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	p := pagination.Parse(c)
	requests, total, err := h.quoteService.FindRequests(c.Request.Context(), cl, p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, requests, p, total))
}

// ListReceived lists quote requests addressed to the supplier
// @Summary      List received quote requests
// @Tags         quotes
// @Security     BearerAuth
// @Produce      json
// @Param        page   query  int  false  "Page number (default: 1)"
// @Param        limit  query  int  false  "Items per page (default: 10)"
// @Success      200  {object}  response.Response
// @Router       /api/quotes/received [get]
func (h *QuoteHandler) ListReceived(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	p := pagination.Parse(c)
	requests, total, err := h.quoteService.FindReceived(c.Request.Context(), cl, p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, requests, p, total))
}

// GetRequest returns a quote request with its response
// @Summary      Get quote request
// @Tags         quotes
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Quote request ID"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/quotes/requests/{id} [get]
func (h *QuoteHandler) GetRequest(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	request, err := h.quoteService.FindRequestByID(c.Request.Context(), c.Param("id"), cl)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, request))
}

// Respond submits the supplier's priced offer
// @Summary      Respond to quote request
// @Tags         quotes
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                       true  "Quote request ID"
// @Param        payload  body  service.RespondQuoteRequest  true  "Offer"
// @Success      201  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Router       /api/quotes/requests/{id}/respond [post]
func (h *QuoteHandler) Respond(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	var req service.RespondQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	offer, err := h.quoteService.Respond(c.Request.Context(), c.Param("id"), cl, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, offer))
}

// Accept marks an answered quote as accepted
// @Summary      Accept quote
// @Tags         quotes
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Quote request ID"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/quotes/requests/{id}/accept [patch]
func (h *QuoteHandler) Accept(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	request, err := h.quoteService.Accept(c.Request.Context(), c.Param("id"), cl)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, request))
}

// Reject marks an answered quote as rejected
// @Summary      Reject quote
// @Tags         quotes
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Quote request ID"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/quotes/requests/{id}/reject [patch]
func (h *QuoteHandler) Reject(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	request, err := h.quoteService.Reject(c.Request.Context(), c.Param("id"), cl)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, request))
}

// Compare lists every quote request of a demand with its offer, oldest first
// @Summary      Compare quotes
// @Tags         quotes
// @Security     BearerAuth
// @Produce      json
// @Param        demandId  path  string  true  "Demand ID"
// @Success      200  {object}  response.Response
// @Router       /api/quotes/demands/{demandId}/compare [get]
func (h *QuoteHandler) Compare(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	quotes, err := h.quoteService.CompareQuotes(c.Request.Context(), c.Param("demandId"), cl)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, quotes))
}
