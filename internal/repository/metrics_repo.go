package repository

import (
	"context"
	"fmt"
	"time"

	"supplylink/internal/model"

	"gorm.io/gorm"
)

type MetricsRepository interface {
	Collect(ctx context.Context, activitySince time.Time) (model.PlatformMetrics, error)
}

type metricsRepository struct {
	db *gorm.DB
}

func NewMetricsRepository(db *gorm.DB) MetricsRepository {
	return &metricsRepository{db: db}
}

// Collect runs the dashboard aggregates. Soft-deleted users and products are excluded.
func (r *metricsRepository) Collect(ctx context.Context, activitySince time.Time) (model.PlatformMetrics, error) {
	var m model.PlatformMetrics
	db := GetDB(ctx, r.db)

	counts := []struct {
		model interface{}
		dest  *int64
		name  string
	}{
		{&model.User{}, &m.TotalUsers, "users"},
		{&model.Order{}, &m.TotalOrders, "orders"},
		{&model.Demand{}, &m.TotalDemands, "demands"},
		{&model.Product{}, &m.TotalProducts, "products"},
	}
	for _, c := range counts {
		if err := db.Model(c.model).Count(c.dest).Error; err != nil {
			return m, fmt.Errorf("failed to count %s: %w", c.name, err)
		}
	}

	if err := db.Model(&model.Order{}).
		Select("status, COUNT(id) as count").
		Group("status").
		Order("status").
		Scan(&m.OrdersByStatus).Error; err != nil {
		return m, fmt.Errorf("failed to group orders by status: %w", err)
	}

	if err := db.Model(&model.User{}).
		Select("role, COUNT(id) as count").
		Group("role").
		Order("role").
		Scan(&m.UsersByRole).Error; err != nil {
		return m, fmt.Errorf("failed to group users by role: %w", err)
	}

	if err := db.Model(&model.Notification{}).
		Where("created_at >= ?", activitySince).
		Count(&m.RecentActivityCount).Error; err != nil {
		return m, fmt.Errorf("failed to count recent activity: %w", err)
	}

	return m, nil
}
