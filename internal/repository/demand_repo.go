package repository

import (
	"context"

	"supplylink/internal/model"
	"supplylink/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DemandFilter narrows demand listings. A nil FactoryID lists every factory.
type DemandFilter struct {
	FactoryID *uuid.UUID
	Status    string
}

type DemandRepository interface {
	Create(ctx context.Context, demand *model.Demand) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Demand, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Demand, error)
	FindByIDWithQuotes(ctx context.Context, id uuid.UUID) (*model.Demand, error)
	List(ctx context.Context, filter DemandFilter, p pagination.Params) ([]model.Demand, int64, error)
	Update(ctx context.Context, demand *model.Demand) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}

type demandRepository struct {
	db *gorm.DB
}

func NewDemandRepository(db *gorm.DB) DemandRepository {
	return &demandRepository{db: db}
}

func (r *demandRepository) Create(ctx context.Context, demand *model.Demand) error {
	return GetDB(ctx, r.db).Create(demand).Error
}

func (r *demandRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Demand, error) {
	var demand model.Demand
	if err := GetDB(ctx, r.db).First(&demand, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &demand, nil
}

func (r *demandRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Demand, error) {
	var demand model.Demand
	if err := forUpdate(GetDB(ctx, r.db)).First(&demand, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &demand, nil
}

func (r *demandRepository) FindByIDWithQuotes(ctx context.Context, id uuid.UUID) (*model.Demand, error) {
	var demand model.Demand
	if err := GetDB(ctx, r.db).
		Preload("Factory").
		Preload("QuoteRequests", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("QuoteRequests.Supplier").
		Preload("QuoteRequests.Response").
		First(&demand, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &demand, nil
}

func (r *demandRepository) List(ctx context.Context, filter DemandFilter, p pagination.Params) ([]model.Demand, int64, error) {
	var demands []model.Demand
	var total int64

	scope := func(db *gorm.DB) *gorm.DB {
		if filter.FactoryID != nil {
			db = db.Where("factory_id = ?", *filter.FactoryID)
		}
		if filter.Status != "" {
			db = db.Where("status = ?", filter.Status)
		}
		return db
	}

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Demand{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Scopes(scope).
		Order("created_at DESC").
		Offset(p.Offset).Limit(p.Limit).
		Find(&demands).Error; err != nil {
		return nil, 0, err
	}

	return demands, total, nil
}

func (r *demandRepository) Update(ctx context.Context, demand *model.Demand) error {
	return GetDB(ctx, r.db).Save(demand).Error
}

func (r *demandRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	return GetDB(ctx, r.db).Model(&model.Demand{}).Where("id = ?", id).Update("status", status).Error
}
