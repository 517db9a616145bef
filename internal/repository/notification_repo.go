package repository

import (
	"context"
	"time"

	"supplylink/internal/model"
	"supplylink/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Notification, error)
	ListByUser(ctx context.Context, userID uuid.UUID, p pagination.Params) ([]model.Notification, int64, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	ListAll(ctx context.Context, p pagination.Params) ([]model.Notification, int64, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
}

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	return GetDB(ctx, r.db).Create(n).Error
}

func (r *notificationRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Notification, error) {
	var n model.Notification
	if err := GetDB(ctx, r.db).First(&n, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID uuid.UUID, p pagination.Params) ([]model.Notification, int64, error) {
	var items []model.Notification
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Notification{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(p.Offset).Limit(p.Limit).
		Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Count(&count).Error
	return count, err
}

func (r *notificationRepository) MarkRead(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Model(&model.Notification{}).Where("id = ?", id).Update("read", true).Error
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	res := GetDB(ctx, r.db).Model(&model.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Update("read", true)
	return res.RowsAffected, res.Error
}

// ListAll is the admin activity log: every notification with its recipient.
func (r *notificationRepository) ListAll(ctx context.Context, p pagination.Params) ([]model.Notification, int64, error) {
	var items []model.Notification
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Notification{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Preload("User").
		Order("created_at DESC").
		Offset(p.Offset).Limit(p.Limit).
		Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *notificationRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.Notification{}).Where("created_at >= ?", since).Count(&count).Error
	return count, err
}
