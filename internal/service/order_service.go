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
	"go.uber.org/zap"
)

// --- DTOs ---

type CreateOrderRequest struct {
	QuoteResponseID string `json:"quote_response_id" binding:"required,uuid"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=CONFIRMED PREPARING IN_TRANSIT DELIVERED"`
}

type OrderResponse struct {
	ID              string             `json:"id"`
	QuoteResponseID string             `json:"quote_response_id"`
	QuoteResponse   *QuoteResponseView `json:"quote_response,omitempty"`
	FactoryID       string             `json:"factory_id"`
	Factory         *PartyResponse     `json:"factory,omitempty"`
	SupplierID      string             `json:"supplier_id"`
	Supplier        *PartyResponse     `json:"supplier,omitempty"`
	Status          string             `json:"status"`
	CreatedAt       string             `json:"created_at"`
	UpdatedAt       string             `json:"updated_at"`
}

// --- Interface ---

type OrderService interface {
	Create(ctx context.Context, caller Caller, req CreateOrderRequest) (OrderResponse, error)
	UpdateStatus(ctx context.Context, id string, caller Caller, req UpdateOrderStatusRequest) (OrderResponse, error)
	FindAll(ctx context.Context, caller Caller, status string, p pagination.Params) ([]OrderResponse, int64, error)
	FindByID(ctx context.Context, id string, caller Caller) (OrderResponse, error)
	GetHistory(ctx context.Context, caller Caller, p pagination.Params) ([]OrderResponse, int64, error)
	// CanFollow reports whether the user may subscribe to the order's live updates.
	CanFollow(ctx context.Context, userID, role, orderID string) bool
}

type orderService struct {
	orderRepo   repository.OrderRepository
	quoteRepo   repository.QuoteRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	broadcaster StatusBroadcaster
	jobs        JobQueue
	logger      *zap.Logger
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	quoteRepo repository.QuoteRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	broadcaster StatusBroadcaster,
	jobs JobQueue,
	logger *zap.Logger,
) OrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &orderService{
		orderRepo:   orderRepo,
		quoteRepo:   quoteRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		broadcaster: broadcaster,
		jobs:        jobs,
		logger:      logger.Named("orders"),
	}
}

// --- Implementation ---

// Create turns an accepted quote response into an order. The unique index on
// quote_response_id guarantees at most one order per response.
func (s *orderService) Create(ctx context.Context, caller Caller, req CreateOrderRequest) (OrderResponse, error) {
	responseID, err := parseID(req.QuoteResponseID, "quote response")
	if err != nil {
		return OrderResponse{}, err
	}

	var order *model.Order
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		response, err := s.quoteRepo.FindResponseByID(txCtx, responseID)
		if err != nil {
			return notFound(err, "quote response not found")
		}
		request := response.QuoteRequest
		if request == nil || request.Demand == nil {
			return fmt.Errorf("quote response %s has no request", responseID)
		}
		if request.Demand.FactoryID != caller.ID {
			return apperror.Forbidden("not allowed to create an order from this quote")
		}
		if request.Status != model.QuoteAccepted {
			return apperror.BadRequest("quote must be accepted to create an order")
		}

		exists, err := s.orderRepo.ExistsForResponse(txCtx, responseID)
		if err != nil {
			return fmt.Errorf("failed to check existing order: %w", err)
		}
		if exists {
			return apperror.Conflict("order already exists for this quote")
		}

		order = &model.Order{
			QuoteResponseID: responseID,
			FactoryID:       caller.ID,
			SupplierID:      request.SupplierID,
			Status:          model.OrderConfirmed,
		}
		if err := s.orderRepo.Create(txCtx, order); err != nil {
			if repository.IsUniqueViolation(err) {
				return apperror.Conflict("order already exists for this quote")
			}
			return fmt.Errorf("failed to create order: %w", err)
		}

		return s.auditRepo.Record(txCtx, caller.ID, model.ActionCreateOrder, order.ID.String(), request.Demand.ProductName, map[string]interface{}{
			"quote_response_id": responseID.String(),
			"supplier_id":       request.SupplierID.String(),
		})
	})
	if err != nil {
		return OrderResponse{}, err
	}

	metrics.OrderStatusChanges.WithLabelValues(model.OrderConfirmed).Inc()
	dispatch(ctx, s.jobs, s.logger, queue.NotificationJob(
		order.SupplierID.String(),
		model.NotificationOrderStatus,
		"New order",
		"A factory confirmed an order from your quote",
	).WithOrder(order.ID.String(), order.Status))

	return s.reload(ctx, order.ID)
}

// UpdateStatus lets the order's supplier set any known status. Transitions are not
// forced forward.
func (s *orderService) UpdateStatus(ctx context.Context, id string, caller Caller, req UpdateOrderStatusRequest) (OrderResponse, error) {
	orderID, err := parseID(id, "order")
	if err != nil {
		return OrderResponse{}, err
	}
	if !model.IsValidOrderStatus(req.Status) {
		return OrderResponse{}, apperror.BadRequest("invalid order status %q", req.Status)
	}

	var order *model.Order
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, err = s.orderRepo.FindByIDForUpdate(txCtx, orderID)
		if err != nil {
			return notFound(err, "order not found")
		}
		if order.SupplierID != caller.ID {
			return apperror.Forbidden("not allowed to update this order")
		}

		previous := order.Status
		if err := s.orderRepo.UpdateStatus(txCtx, orderID, req.Status); err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}
		order.Status = req.Status

		return s.auditRepo.Record(txCtx, caller.ID, model.ActionUpdateOrderStatus, orderID.String(), "", map[string]interface{}{
			"from": previous,
			"to":   req.Status,
		})
	})
	if err != nil {
		return OrderResponse{}, err
	}

	metrics.OrderStatusChanges.WithLabelValues(req.Status).Inc()
	if s.broadcaster != nil {
		s.broadcaster.EmitStatusUpdate(orderID.String(), req.Status)
	}

	jobs := []queue.Job{
		queue.NotificationJob(
			order.FactoryID.String(),
			model.NotificationOrderStatus,
			"Order status updated",
			fmt.Sprintf("Order %s is now %s", orderID, req.Status),
		).WithOrder(orderID.String(), req.Status),
	}
	if req.Status == model.OrderDelivered {
		jobs = append(jobs, queue.MLTriggerJob("order "+orderID.String()+" delivered"))
	}
	dispatch(ctx, s.jobs, s.logger, jobs...)

	return s.reload(ctx, orderID)
}

func (s *orderService) FindAll(ctx context.Context, caller Caller, status string, p pagination.Params) ([]OrderResponse, int64, error) {
	if status != "" && !model.IsValidOrderStatus(status) {
		return nil, 0, apperror.BadRequest("invalid order status %q", status)
	}
	filter := scopeOrders(caller)
	filter.Status = status
	return s.list(ctx, filter, p)
}

// GetHistory lists the caller's delivered orders, most recently updated first.
func (s *orderService) GetHistory(ctx context.Context, caller Caller, p pagination.Params) ([]OrderResponse, int64, error) {
	filter := scopeOrders(caller)
	filter.Status = model.OrderDelivered
	filter.SortByUpdated = true
	return s.list(ctx, filter, p)
}

func (s *orderService) FindByID(ctx context.Context, id string, caller Caller) (OrderResponse, error) {
	orderID, err := parseID(id, "order")
	if err != nil {
		return OrderResponse{}, err
	}

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return OrderResponse{}, notFound(err, "order not found")
	}
	if !isOrderParty(order, caller) {
		return OrderResponse{}, apperror.Forbidden("not allowed to access this order")
	}
	return toOrderResponse(order), nil
}

func (s *orderService) CanFollow(ctx context.Context, userID, role, orderID string) bool {
	caller, err := NewCaller(userID, role)
	if err != nil {
		return false
	}
	id, err := uuid.Parse(orderID)
	if err != nil {
		return false
	}
	if caller.IsAdmin() {
		return true
	}

	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		if !repository.IsNotFound(err) {
			s.logger.Warn("load order for subscription", zap.String("order_id", orderID), zap.Error(err))
		}
		return false
	}
	return isOrderParty(order, caller)
}

func (s *orderService) list(ctx context.Context, filter repository.OrderFilter, p pagination.Params) ([]OrderResponse, int64, error) {
	orders, total, err := s.orderRepo.List(ctx, filter, p)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	result := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		result = append(result, toOrderResponse(&orders[i]))
	}
	return result, total, nil
}

func (s *orderService) reload(ctx context.Context, id uuid.UUID) (OrderResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return OrderResponse{}, fmt.Errorf("failed to reload order: %w", err)
	}
	return toOrderResponse(order), nil
}

// scopeOrders restricts listings to the caller's side of the order. Admins see everything.
func scopeOrders(caller Caller) repository.OrderFilter {
	var filter repository.OrderFilter
	switch caller.Role {
	case model.RoleFactory:
		filter.FactoryID = &caller.ID
	case model.RoleSupplier:
		filter.SupplierID = &caller.ID
	case model.RoleAdmin:
	default:
		filter.FactoryID = &caller.ID
	}
	return filter
}

func isOrderParty(order *model.Order, caller Caller) bool {
	return caller.IsAdmin() || order.FactoryID == caller.ID || order.SupplierID == caller.ID
}

func toOrderResponse(o *model.Order) OrderResponse {
	res := OrderResponse{
		ID:              o.ID.String(),
		QuoteResponseID: o.QuoteResponseID.String(),
		FactoryID:       o.FactoryID.String(),
		Factory:         toParty(o.Factory),
		SupplierID:      o.SupplierID.String(),
		Supplier:        toParty(o.Supplier),
		Status:          o.Status,
		CreatedAt:       formatTime(o.CreatedAt),
		UpdatedAt:       formatTime(o.UpdatedAt),
	}
	if o.QuoteResponse != nil {
		v := toQuoteResponseView(o.QuoteResponse)
		res.QuoteResponse = &v
	}
	return res
}
