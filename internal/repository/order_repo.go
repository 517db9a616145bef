package repository

import (
	"context"

	"supplylink/internal/model"
	"supplylink/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderFilter scopes order listings to one party. Nil ids mean "any".
type OrderFilter struct {
	FactoryID  *uuid.UUID
	SupplierID *uuid.UUID
	Status     string
	// SortByUpdated orders by most recent update instead of creation
	SortByUpdated bool
}

type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Order, error)
	ExistsForResponse(ctx context.Context, quoteResponseID uuid.UUID) (bool, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	List(ctx context.Context, filter OrderFilter, p pagination.Params) ([]model.Order, int64, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	return GetDB(ctx, r.db).Create(order).Error
}

func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var order model.Order
	if err := withOrderRelations(GetDB(ctx, r.db)).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var order model.Order
	if err := forUpdate(GetDB(ctx, r.db)).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) ExistsForResponse(ctx context.Context, quoteResponseID uuid.UUID) (bool, error) {
	var count int64
	if err := GetDB(ctx, r.db).Model(&model.Order{}).
		Where("quote_response_id = ?", quoteResponseID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	return GetDB(ctx, r.db).Model(&model.Order{}).Where("id = ?", id).Update("status", status).Error
}

func (r *orderRepository) List(ctx context.Context, filter OrderFilter, p pagination.Params) ([]model.Order, int64, error) {
	var orders []model.Order
	var total int64

	scope := func(db *gorm.DB) *gorm.DB {
		if filter.FactoryID != nil {
			db = db.Where("factory_id = ?", *filter.FactoryID)
		}
		if filter.SupplierID != nil {
			db = db.Where("supplier_id = ?", *filter.SupplierID)
		}
		if filter.Status != "" {
			db = db.Where("status = ?", filter.Status)
		}
		return db
	}

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Order{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sort := "created_at DESC"
	if filter.SortByUpdated {
		sort = "updated_at DESC"
	}

	if err := withOrderRelations(db.Scopes(scope)).
		Order(sort).
		Offset(p.Offset).Limit(p.Limit).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

func withOrderRelations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("QuoteResponse").
		Preload("QuoteResponse.QuoteRequest").
		Preload("QuoteResponse.QuoteRequest.Demand").
		Preload("Factory").
		Preload("Supplier")
}
