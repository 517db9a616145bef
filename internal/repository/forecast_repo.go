package repository

import (
	"context"

	"supplylink/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ForecastRepository interface {
	CreateBatch(ctx context.Context, forecasts []model.DemandForecast) error
	ListAlerts(ctx context.Context, factoryID *uuid.UUID, threshold float64, limit int) ([]model.DemandForecast, error)
}

type forecastRepository struct {
	db *gorm.DB
}

func NewForecastRepository(db *gorm.DB) ForecastRepository {
	return &forecastRepository{db: db}
}

func (r *forecastRepository) CreateBatch(ctx context.Context, forecasts []model.DemandForecast) error {
	if len(forecasts) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).CreateInBatches(&forecasts, 100).Error
}

// ListAlerts returns forecasts at or above threshold, largest first. A nil factoryID spans all factories.
func (r *forecastRepository) ListAlerts(ctx context.Context, factoryID *uuid.UUID, threshold float64, limit int) ([]model.DemandForecast, error) {
	var forecasts []model.DemandForecast

	db := GetDB(ctx, r.db).Preload("Product").Where("predicted_quantity >= ?", threshold)
	if factoryID != nil {
		db = db.Where("factory_id = ?", *factoryID)
	}
	if err := db.Order("predicted_quantity DESC").Limit(limit).Find(&forecasts).Error; err != nil {
		return nil, err
	}
	return forecasts, nil
}
