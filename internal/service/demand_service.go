package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"supplylink/internal/model"
	"supplylink/internal/repository"
	"supplylink/pkg/apperror"
	"supplylink/pkg/pagination"
)

// --- DTOs ---

type CreateDemandRequest struct {
	ProductName string  `json:"product_name" binding:"required"`
	Quantity    float64 `json:"quantity" binding:"required,gt=0"`
	Unit        string  `json:"unit" binding:"required"`
	NeededBy    string  `json:"needed_by" binding:"required"` // YYYY-MM-DD or RFC3339
	Conditions  string  `json:"conditions"`
}

// UpdateDemandRequest is a partial update; nil fields are left untouched.
type UpdateDemandRequest struct {
	ProductName *string  `json:"product_name"`
	Quantity    *float64 `json:"quantity" binding:"omitempty,gt=0"`
	Unit        *string  `json:"unit"`
	NeededBy    *string  `json:"needed_by"`
	Conditions  *string  `json:"conditions"`
}

type DemandResponse struct {
	ID            string                 `json:"id"`
	FactoryID     string                 `json:"factory_id"`
	Factory       *PartyResponse         `json:"factory,omitempty"`
	ProductName   string                 `json:"product_name"`
	Quantity      float64                `json:"quantity"`
	Unit          string                 `json:"unit"`
	NeededBy      string                 `json:"needed_by"`
	Conditions    string                 `json:"conditions"`
	Status        string                 `json:"status"`
	QuoteRequests []QuoteRequestResponse `json:"quote_requests,omitempty"`
	CreatedAt     string                 `json:"created_at"`
	UpdatedAt     string                 `json:"updated_at"`
}

// --- Interface ---

type DemandService interface {
	FindAll(ctx context.Context, caller Caller, status string, p pagination.Params) ([]DemandResponse, int64, error)
	FindByID(ctx context.Context, id string, caller Caller) (DemandResponse, error)
	Create(ctx context.Context, caller Caller, req CreateDemandRequest) (DemandResponse, error)
	Update(ctx context.Context, id string, caller Caller, req UpdateDemandRequest) (DemandResponse, error)
	Cancel(ctx context.Context, id string, caller Caller) (DemandResponse, error)
}

type demandService struct {
	demandRepo repository.DemandRepository
	auditRepo  repository.AuditRepository
	txManager  repository.TransactionManager
}

func NewDemandService(
	demandRepo repository.DemandRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) DemandService {
	return &demandService{
		demandRepo: demandRepo,
		auditRepo:  auditRepo,
		txManager:  txManager,
	}
}

// --- Implementation ---

func (s *demandService) FindAll(ctx context.Context, caller Caller, status string, p pagination.Params) ([]DemandResponse, int64, error) {
	if status != "" && !isDemandStatus(status) {
		return nil, 0, apperror.BadRequest("invalid demand status %q", status)
	}

	filter := repository.DemandFilter{Status: status}
	if !caller.IsAdmin() {
		filter.FactoryID = &caller.ID
	}

	demands, total, err := s.demandRepo.List(ctx, filter, p)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list demands: %w", err)
	}

	result := make([]DemandResponse, 0, len(demands))
	for i := range demands {
		result = append(result, toDemandResponse(&demands[i]))
	}
	return result, total, nil
}

func (s *demandService) FindByID(ctx context.Context, id string, caller Caller) (DemandResponse, error) {
	demandID, err := parseID(id, "demand")
	if err != nil {
		return DemandResponse{}, err
	}

	demand, err := s.demandRepo.FindByIDWithQuotes(ctx, demandID)
	if err != nil {
		return DemandResponse{}, notFound(err, "demand not found")
	}
	if demand.FactoryID != caller.ID && !caller.IsAdmin() {
		return DemandResponse{}, apperror.Forbidden("not allowed to access this demand")
	}

	return toDemandResponse(demand), nil
}

func (s *demandService) Create(ctx context.Context, caller Caller, req CreateDemandRequest) (DemandResponse, error) {
	neededBy, err := parseDate(req.NeededBy)
	if err != nil {
		return DemandResponse{}, err
	}
	if req.Quantity <= 0 {
		return DemandResponse{}, apperror.BadRequest("quantity must be greater than zero")
	}

	demand := &model.Demand{
		FactoryID:   caller.ID,
		ProductName: strings.TrimSpace(req.ProductName),
		Quantity:    req.Quantity,
		Unit:        strings.TrimSpace(req.Unit),
		NeededBy:    neededBy,
		Conditions:  req.Conditions,
		Status:      model.DemandOpen,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.demandRepo.Create(txCtx, demand); err != nil {
			return fmt.Errorf("failed to create demand: %w", err)
		}
		return s.auditRepo.Record(txCtx, caller.ID, model.ActionCreateDemand, demand.ID.String(), demand.ProductName, map[string]interface{}{
			"quantity": demand.Quantity,
			"unit":     demand.Unit,
		})
	})
	if err != nil {
		return DemandResponse{}, err
	}

	return toDemandResponse(demand), nil
}

func (s *demandService) Update(ctx context.Context, id string, caller Caller, req UpdateDemandRequest) (DemandResponse, error) {
	demandID, err := parseID(id, "demand")
	if err != nil {
		return DemandResponse{}, err
	}

	var demand *model.Demand
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		demand, err = s.demandRepo.FindByIDForUpdate(txCtx, demandID)
		if err != nil {
			return notFound(err, "demand not found")
		}
		if demand.FactoryID != caller.ID {
			return apperror.Forbidden("not allowed to update this demand")
		}
		if demand.Status != model.DemandOpen {
			return apperror.BadRequest("only OPEN demands can be updated")
		}

		if req.ProductName != nil && strings.TrimSpace(*req.ProductName) != "" {
			demand.ProductName = strings.TrimSpace(*req.ProductName)
		}
		if req.Quantity != nil {
			if *req.Quantity <= 0 {
				return apperror.BadRequest("quantity must be greater than zero")
			}
			demand.Quantity = *req.Quantity
		}
		if req.Unit != nil && strings.TrimSpace(*req.Unit) != "" {
			demand.Unit = strings.TrimSpace(*req.Unit)
		}
		if req.NeededBy != nil && *req.NeededBy != "" {
			neededBy, err := parseDate(*req.NeededBy)
			if err != nil {
				return err
			}
			demand.NeededBy = neededBy
		}
		if req.Conditions != nil {
			demand.Conditions = *req.Conditions
		}

		if err := s.demandRepo.Update(txCtx, demand); err != nil {
			return fmt.Errorf("failed to update demand: %w", err)
		}
		return s.auditRepo.Record(txCtx, caller.ID, model.ActionUpdateDemand, demand.ID.String(), demand.ProductName, nil)
	})
	if err != nil {
		return DemandResponse{}, err
	}

	return toDemandResponse(demand), nil
}

// Cancel is allowed from any status.
func (s *demandService) Cancel(ctx context.Context, id string, caller Caller) (DemandResponse, error) {
	demandID, err := parseID(id, "demand")
	if err != nil {
		return DemandResponse{}, err
	}

	var demand *model.Demand
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		demand, err = s.demandRepo.FindByIDForUpdate(txCtx, demandID)
		if err != nil {
			return notFound(err, "demand not found")
		}
		if demand.FactoryID != caller.ID {
			return apperror.Forbidden("not allowed to cancel this demand")
		}

		previous := demand.Status
		if err := s.demandRepo.UpdateStatus(txCtx, demand.ID, model.DemandCancelled); err != nil {
			return fmt.Errorf("failed to cancel demand: %w", err)
		}
		demand.Status = model.DemandCancelled

		return s.auditRepo.Record(txCtx, caller.ID, model.ActionCancelDemand, demand.ID.String(), demand.ProductName, map[string]interface{}{
			"previous_status": previous,
		})
	})
	if err != nil {
		return DemandResponse{}, err
	}

	return toDemandResponse(demand), nil
}

func isDemandStatus(s string) bool {
	switch s {
	case model.DemandOpen, model.DemandInNegotiation, model.DemandClosed, model.DemandCancelled:
		return true
	}
	return false
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC().Truncate(24 * time.Hour), nil
	}
	return time.Time{}, apperror.BadRequest("needed_by must be a date (YYYY-MM-DD)")
}

func toDemandResponse(d *model.Demand) DemandResponse {
	res := DemandResponse{
		ID:          d.ID.String(),
		FactoryID:   d.FactoryID.String(),
		Factory:     toParty(d.Factory),
		ProductName: d.ProductName,
		Quantity:    d.Quantity,
		Unit:        d.Unit,
		NeededBy:    d.NeededBy.Format(dateLayout),
		Conditions:  d.Conditions,
		Status:      d.Status,
		CreatedAt:   formatTime(d.CreatedAt),
		UpdatedAt:   formatTime(d.UpdatedAt),
	}
	for i := range d.QuoteRequests {
		res.QuoteRequests = append(res.QuoteRequests, toQuoteRequestResponse(&d.QuoteRequests[i]))
	}
	return res
}
