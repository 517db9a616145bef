package service

import (
	"context"
	"fmt"

	"supplylink/internal/metrics"
	"supplylink/internal/model"
	"supplylink/internal/queue"
	"supplylink/internal/repository"
	"supplylink/pkg/apperror"
	"supplylink/pkg/pagination"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// --- DTOs ---

type RequestQuotesRequest struct {
	DemandID    string   `json:"demand_id" binding:"required,uuid"`
	SupplierIDs []string `json:"supplier_ids" binding:"required,min=1,unique,dive,uuid"`
}

type RespondQuoteRequest struct {
	UnitPrice    *decimal.Decimal `json:"unit_price" binding:"required"`
	TotalPrice   *decimal.Decimal `json:"total_price" binding:"required"`
	LeadTimeDays int              `json:"lead_time_days" binding:"required,min=1"`
	Conditions   string           `json:"conditions"`
}

type QuoteRequestResponse struct {
	ID         string             `json:"id"`
	DemandID   string             `json:"demand_id"`
	Demand     *DemandResponse    `json:"demand,omitempty"`
	SupplierID string             `json:"supplier_id"`
	Supplier   *PartyResponse     `json:"supplier,omitempty"`
	Status     string             `json:"status"`
	Response   *QuoteResponseView `json:"response,omitempty"`
	CreatedAt  string             `json:"created_at"`
	UpdatedAt  string             `json:"updated_at"`
}

// QuoteResponseView is a supplier's priced offer.
type QuoteResponseView struct {
	ID             string                `json:"id"`
	QuoteRequestID string                `json:"quote_request_id"`
	QuoteRequest   *QuoteRequestResponse `json:"quote_request,omitempty"`
	UnitPrice      decimal.Decimal       `json:"unit_price"`
	TotalPrice     decimal.Decimal       `json:"total_price"`
	LeadTimeDays   int                   `json:"lead_time_days"`
	Conditions     string                `json:"conditions"`
	CreatedAt      string                `json:"created_at"`
}

// --- Interface ---

type QuoteService interface {
	RequestQuotes(ctx context.Context, caller Caller, req RequestQuotesRequest) ([]QuoteRequestResponse, error)
	FindRequests(ctx context.Context, caller Caller, p pagination.Params) ([]QuoteRequestResponse, int64, error)
	FindReceived(ctx context.Context, caller Caller, p pagination.Params) ([]QuoteRequestResponse, int64, error)
	FindRequestByID(ctx context.Context, id string, caller Caller) (QuoteRequestResponse, error)
	Respond(ctx context.Context, id string, caller Caller, req RespondQuoteRequest) (QuoteResponseView, error)
	Accept(ctx context.Context, id string, caller Caller) (QuoteRequestResponse, error)
	Reject(ctx context.Context, id string, caller Caller) (QuoteRequestResponse, error)
	CompareQuotes(ctx context.Context, demandID string, caller Caller) ([]QuoteRequestResponse, error)
}

type quoteService struct {
	demandRepo repository.DemandRepository
	quoteRepo  repository.QuoteRepository
	auditRepo  repository.AuditRepository
	txManager  repository.TransactionManager
	jobs       JobQueue
	logger     *zap.Logger
}

func NewQuoteService(
	demandRepo repository.DemandRepository,
	quoteRepo repository.QuoteRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	jobs JobQueue,
	logger *zap.Logger,
) QuoteService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &quoteService{
		demandRepo: demandRepo,
		quoteRepo:  quoteRepo,
		auditRepo:  auditRepo,
		txManager:  txManager,
		jobs:       jobs,
		logger:     logger.Named("quotes"),
	}
}

// --- Implementation ---

// RequestQuotes moves the demand to IN_NEGOTIATION and invites every supplier in one transaction.
// Supplier ids are not checked against supplier accounts.
func (s *quoteService) RequestQuotes(ctx context.Context, caller Caller, req RequestQuotesRequest) ([]QuoteRequestResponse, error) {
	demandID, err := parseID(req.DemandID, "demand")
	if err != nil {
		return nil, err
	}
	if len(req.SupplierIDs) == 0 {
		return nil, apperror.BadRequest("at least one supplier is required")
	}

	seen := make(map[uuid.UUID]struct{}, len(req.SupplierIDs))
	requests := make([]model.QuoteRequest, 0, len(req.SupplierIDs))
	for _, raw := range req.SupplierIDs {
		supplierID, err := parseID(raw, "supplier")
		if err != nil {
			return nil, err
		}
		if _, dup := seen[supplierID]; dup {
			return nil, apperror.BadRequest("supplier ids must be unique")
		}
		seen[supplierID] = struct{}{}
		requests = append(requests, model.QuoteRequest{
			DemandID:   demandID,
			SupplierID: supplierID,
			Status:     model.QuotePending,
		})
	}

	var demand *model.Demand
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		demand, err = s.demandRepo.FindByIDForUpdate(txCtx, demandID)
		if err != nil {
			return notFound(err, "demand not found")
		}
		if demand.FactoryID != caller.ID {
			return apperror.Forbidden("not allowed to request quotes for this demand")
		}

		if err := s.demandRepo.UpdateStatus(txCtx, demandID, model.DemandInNegotiation); err != nil {
			return fmt.Errorf("failed to update demand status: %w", err)
		}
		demand.Status = model.DemandInNegotiation

		if err := s.quoteRepo.CreateRequests(txCtx, requests); err != nil {
			if repository.IsUniqueViolation(err) {
				return apperror.Conflict("a quote was already requested from one of these suppliers")
			}
			return fmt.Errorf("failed to create quote requests: %w", err)
		}

		return s.auditRepo.Record(txCtx, caller.ID, model.ActionRequestQuotes, demand.ID.String(), demand.ProductName, map[string]interface{}{
			"supplier_ids": req.SupplierIDs,
		})
	})
	if err != nil {
		return nil, err
	}

	metrics.QuoteTransitions.WithLabelValues("request").Add(float64(len(requests)))

	jobs := make([]queue.Job, 0, len(requests))
	result := make([]QuoteRequestResponse, 0, len(requests))
	for i := range requests {
		r := &requests[i]
		jobs = append(jobs, queue.NotificationJob(
			r.SupplierID.String(),
			model.NotificationNewQuote,
			"New quote request",
			fmt.Sprintf("You were asked to quote %g %s of %s", demand.Quantity, demand.Unit, demand.ProductName),
		))
		result = append(result, toQuoteRequestResponse(r))
	}
	dispatch(ctx, s.jobs, s.logger, jobs...)

	return result, nil
}

func (s *quoteService) FindRequests(ctx context.Context, caller Caller, p pagination.Params) ([]QuoteRequestResponse, int64, error) {
	requests, total, err := s.quoteRepo.ListByFactory(ctx, caller.ID, p)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list quote requests: %w", err)
	}
	return toQuoteRequestResponses(requests), total, nil
}

func (s *quoteService) FindReceived(ctx context.Context, caller Caller, p pagination.Params) ([]QuoteRequestResponse, int64, error) {
	requests, total, err := s.quoteRepo.ListBySupplier(ctx, caller.ID, p)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list received quote requests: %w", err)
	}
	return toQuoteRequestResponses(requests), total, nil
}

// FindRequestByID is visible to the demand's factory and to the invited supplier.
func (s *quoteService) FindRequestByID(ctx context.Context, id string, caller Caller) (QuoteRequestResponse, error) {
	requestID, err := parseID(id, "quote request")
	if err != nil {
		return QuoteRequestResponse{}, err
	}

	request, err := s.quoteRepo.FindRequestByID(ctx, requestID)
	if err != nil {
		return QuoteRequestResponse{}, notFound(err, "quote request not found")
	}

	isFactory := request.Demand != nil && request.Demand.FactoryID == caller.ID
	if !isFactory && request.SupplierID != caller.ID && !caller.IsAdmin() {
		return QuoteRequestResponse{}, apperror.Forbidden("not allowed to access this quote request")
	}

	return toQuoteRequestResponse(request), nil
}

// Respond records the supplier's offer. The unique index on quote_request_id
// decides concurrent responders; the loser gets a Conflict.
func (s *quoteService) Respond(ctx context.Context, id string, caller Caller, req RespondQuoteRequest) (QuoteResponseView, error) {
	requestID, err := parseID(id, "quote request")
	if err != nil {
		return QuoteResponseView{}, err
	}
	if req.UnitPrice == nil || req.TotalPrice == nil {
		return QuoteResponseView{}, apperror.BadRequest("unit_price and total_price are required")
	}
	if req.UnitPrice.IsNegative() || req.TotalPrice.IsNegative() {
		return QuoteResponseView{}, apperror.BadRequest("prices must not be negative")
	}
	if req.LeadTimeDays < 1 {
		return QuoteResponseView{}, apperror.BadRequest("lead_time_days must be at least 1")
	}

	response := &model.QuoteResponse{
		QuoteRequestID: requestID,
		UnitPrice:      *req.UnitPrice,
		TotalPrice:     *req.TotalPrice,
		LeadTimeDays:   req.LeadTimeDays,
		Conditions:     req.Conditions,
	}

	var request *model.QuoteRequest
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		request, err = s.quoteRepo.FindRequestByIDForUpdate(txCtx, requestID)
		if err != nil {
			return notFound(err, "quote request not found")
		}
		if request.SupplierID != caller.ID {
			return apperror.Forbidden("not allowed to respond to this quote request")
		}

		exists, err := s.quoteRepo.ResponseExists(txCtx, requestID)
		if err != nil {
			return fmt.Errorf("failed to check existing response: %w", err)
		}
		if exists {
			return apperror.Conflict("quote already responded")
		}

		if err := s.quoteRepo.UpdateRequestStatus(txCtx, requestID, model.QuoteAnswered); err != nil {
			return fmt.Errorf("failed to update quote request: %w", err)
		}
		request.Status = model.QuoteAnswered

		if err := s.quoteRepo.CreateResponse(txCtx, response); err != nil {
			if repository.IsUniqueViolation(err) {
				return apperror.Conflict("quote already responded")
			}
			return fmt.Errorf("failed to create quote response: %w", err)
		}

		return s.auditRepo.Record(txCtx, caller.ID, model.ActionRespondQuote, requestID.String(), request.Demand.ProductName, map[string]interface{}{
			"unit_price":     response.UnitPrice.String(),
			"total_price":    response.TotalPrice.String(),
			"lead_time_days": response.LeadTimeDays,
		})
	})
	if err != nil {
		return QuoteResponseView{}, err
	}

	metrics.QuoteTransitions.WithLabelValues("respond").Inc()
	dispatch(ctx, s.jobs, s.logger, queue.NotificationJob(
		request.Demand.FactoryID.String(),
		model.NotificationQuoteAnswered,
		"Quote answered",
		fmt.Sprintf("A supplier answered your request for %s: total %s, %d days", request.Demand.ProductName, response.TotalPrice.String(), response.LeadTimeDays),
	))

	return toQuoteResponseView(response), nil
}

func (s *quoteService) Accept(ctx context.Context, id string, caller Caller) (QuoteRequestResponse, error) {
	return s.decide(ctx, id, caller, model.QuoteAccepted)
}

func (s *quoteService) Reject(ctx context.Context, id string, caller Caller) (QuoteRequestResponse, error) {
	return s.decide(ctx, id, caller, model.QuoteRejected)
}

// decide moves an ANSWERED request to ACCEPTED or REJECTED on behalf of the demand owner.
// Several requests of the same demand may be accepted.
func (s *quoteService) decide(ctx context.Context, id string, caller Caller, target string) (QuoteRequestResponse, error) {
	requestID, err := parseID(id, "quote request")
	if err != nil {
		return QuoteRequestResponse{}, err
	}

	verb, action := "accept", model.ActionAcceptQuote
	if target == model.QuoteRejected {
		verb, action = "reject", model.ActionRejectQuote
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		request, err := s.quoteRepo.FindRequestByIDForUpdate(txCtx, requestID)
		if err != nil {
			return notFound(err, "quote request not found")
		}
		if request.Demand.FactoryID != caller.ID {
			return apperror.Forbidden("not allowed to %s this quote request", verb)
		}
		if request.Status != model.QuoteAnswered {
			return apperror.BadRequest("only ANSWERED quotes can be %sed", verb)
		}

		if err := s.quoteRepo.UpdateRequestStatus(txCtx, requestID, target); err != nil {
			return fmt.Errorf("failed to %s quote request: %w", verb, err)
		}
		return s.auditRepo.Record(txCtx, caller.ID, action, requestID.String(), request.Demand.ProductName, map[string]interface{}{
			"supplier_id": request.SupplierID.String(),
		})
	})
	if err != nil {
		return QuoteRequestResponse{}, err
	}

	metrics.QuoteTransitions.WithLabelValues(verb).Inc()

	request, err := s.quoteRepo.FindRequestByID(ctx, requestID)
	if err != nil {
		return QuoteRequestResponse{}, fmt.Errorf("failed to reload quote request: %w", err)
	}
	return toQuoteRequestResponse(request), nil
}

// CompareQuotes lists every request of a demand, oldest first, with supplier and offer.
func (s *quoteService) CompareQuotes(ctx context.Context, demandID string, caller Caller) ([]QuoteRequestResponse, error) {
	id, err := parseID(demandID, "demand")
	if err != nil {
		return nil, err
	}

	demand, err := s.demandRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "demand not found")
	}
	if demand.FactoryID != caller.ID {
		return nil, apperror.Forbidden("not allowed to access this demand")
	}

	requests, err := s.quoteRepo.ListByDemand(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list quotes: %w", err)
	}
	return toQuoteRequestResponses(requests), nil
}

func toQuoteRequestResponses(requests []model.QuoteRequest) []QuoteRequestResponse {
	result := make([]QuoteRequestResponse, 0, len(requests))
	for i := range requests {
		result = append(result, toQuoteRequestResponse(&requests[i]))
	}
	return result
}

func toQuoteRequestResponse(r *model.QuoteRequest) QuoteRequestResponse {
	res := QuoteRequestResponse{
		ID:         r.ID.String(),
		DemandID:   r.DemandID.String(),
		SupplierID: r.SupplierID.String(),
		Supplier:   toParty(r.Supplier),
		Status:     r.Status,
		CreatedAt:  formatTime(r.CreatedAt),
		UpdatedAt:  formatTime(r.UpdatedAt),
	}
	if r.Demand != nil {
		d := toDemandResponse(r.Demand)
		res.Demand = &d
	}
	if r.Response != nil {
		v := toQuoteResponseView(r.Response)
		res.Response = &v
	}
	return res
}

func toQuoteResponseView(q *model.QuoteResponse) QuoteResponseView {
	v := QuoteResponseView{
		ID:             q.ID.String(),
		QuoteRequestID: q.QuoteRequestID.String(),
		UnitPrice:      q.UnitPrice,
		TotalPrice:     q.TotalPrice,
		LeadTimeDays:   q.LeadTimeDays,
		Conditions:     q.Conditions,
		CreatedAt:      formatTime(q.CreatedAt),
	}
	if q.QuoteRequest != nil {
		r := toQuoteRequestResponse(q.QuoteRequest)
		v.QuoteRequest = &r
	}
	return v
}
