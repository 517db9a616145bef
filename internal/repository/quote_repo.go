package repository

import (
	"context"

	"supplylink/internal/model"
	"supplylink/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type QuoteRepository interface {
	CreateRequests(ctx context.Context, requests []model.QuoteRequest) error
	FindRequestByID(ctx context.Context, id uuid.UUID) (*model.QuoteRequest, error)
	FindRequestByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.QuoteRequest, error)
	UpdateRequestStatus(ctx context.Context, id uuid.UUID, status string) error
	ListByFactory(ctx context.Context, factoryID uuid.UUID, p pagination.Params) ([]model.QuoteRequest, int64, error)
	ListBySupplier(ctx context.Context, supplierID uuid.UUID, p pagination.Params) ([]model.QuoteRequest, int64, error)
	ListByDemand(ctx context.Context, demandID uuid.UUID) ([]model.QuoteRequest, error)

	CreateResponse(ctx context.Context, response *model.QuoteResponse) error
	ResponseExists(ctx context.Context, requestID uuid.UUID) (bool, error)
	FindResponseByID(ctx context.Context, id uuid.UUID) (*model.QuoteResponse, error)
}

type quoteRepository struct {
	db *gorm.DB
}

func NewQuoteRepository(db *gorm.DB) QuoteRepository {
	return &quoteRepository{db: db}
}

func (r *quoteRepository) CreateRequests(ctx context.Context, requests []model.QuoteRequest) error {
	if len(requests) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).Create(&requests).Error
}

// FindRequestByID loads a request with its demand, supplier and response.
func (r *quoteRepository) FindRequestByID(ctx context.Context, id uuid.UUID) (*model.QuoteRequest, error) {
	var request model.QuoteRequest
	if err := GetDB(ctx, r.db).
		Preload("Demand").
		Preload("Demand.Factory").
		Preload("Supplier").
		Preload("Response").
		First(&request, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

// FindRequestByIDForUpdate locks the request row and loads its demand for the ownership check.
func (r *quoteRepository) FindRequestByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.QuoteRequest, error) {
	var request model.QuoteRequest
	if err := forUpdate(GetDB(ctx, r.db)).First(&request, "id = ?", id).Error; err != nil {
		return nil, err
	}

	var demand model.Demand
	if err := GetDB(ctx, r.db).First(&demand, "id = ?", request.DemandID).Error; err != nil {
		return nil, err
	}
	request.Demand = &demand

	return &request, nil
}

func (r *quoteRepository) UpdateRequestStatus(ctx context.Context, id uuid.UUID, status string) error {
	return GetDB(ctx, r.db).Model(&model.QuoteRequest{}).Where("id = ?", id).Update("status", status).Error
}

func (r *quoteRepository) ListByFactory(ctx context.Context, factoryID uuid.UUID, p pagination.Params) ([]model.QuoteRequest, int64, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		return db.Joins("JOIN demands ON demands.id = quote_requests.demand_id").
			Where("demands.factory_id = ?", factoryID)
	}
	return r.list(ctx, scope, p)
}

func (r *quoteRepository) ListBySupplier(ctx context.Context, supplierID uuid.UUID, p pagination.Params) ([]model.QuoteRequest, int64, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		return db.Where("quote_requests.supplier_id = ?", supplierID)
	}
	return r.list(ctx, scope, p)
}

func (r *quoteRepository) list(ctx context.Context, scope func(*gorm.DB) *gorm.DB, p pagination.Params) ([]model.QuoteRequest, int64, error) {
	var requests []model.QuoteRequest
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.QuoteRequest{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Scopes(scope).
		Preload("Demand").
		Preload("Demand.Factory").
		Preload("Supplier").
		Preload("Response").
		Order("quote_requests.created_at DESC").
		Offset(p.Offset).Limit(p.Limit).
		Find(&requests).Error; err != nil {
		return nil, 0, err
	}

	return requests, total, nil
}

// ListByDemand returns every request of a demand, oldest first.
func (r *quoteRepository) ListByDemand(ctx context.Context, demandID uuid.UUID) ([]model.QuoteRequest, error) {
	var requests []model.QuoteRequest
	if err := GetDB(ctx, r.db).
		Preload("Supplier").
		Preload("Response").
		Where("demand_id = ?", demandID).
		Order("created_at ASC").
		Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *quoteRepository) CreateResponse(ctx context.Context, response *model.QuoteResponse) error {
	return GetDB(ctx, r.db).Create(response).Error
}

func (r *quoteRepository) ResponseExists(ctx context.Context, requestID uuid.UUID) (bool, error) {
	var count int64
	if err := GetDB(ctx, r.db).Model(&model.QuoteResponse{}).
		Where("quote_request_id = ?", requestID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindResponseByID loads a response with its request and the request's demand.
func (r *quoteRepository) FindResponseByID(ctx context.Context, id uuid.UUID) (*model.QuoteResponse, error) {
	var response model.QuoteResponse
	if err := GetDB(ctx, r.db).
		Preload("QuoteRequest").
		Preload("QuoteRequest.Demand").
		First(&response, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &response, nil
}
