package repository

import (
	"context"
	"encoding/json"

	"supplylink/internal/model"
	"supplylink/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AuditRepository interface {
	Log(ctx context.Context, entry *model.AuditLog) error
	Record(ctx context.Context, userID uuid.UUID, action, entityID, entityName string, details map[string]interface{}) error
	List(ctx context.Context, action string, p pagination.Params) ([]model.AuditLog, int64, error)
}

type auditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Log(ctx context.Context, entry *model.AuditLog) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

// Record serializes details and writes the entry inside the caller's transaction, if any.
func (r *auditRepository) Record(ctx context.Context, userID uuid.UUID, action, entityID, entityName string, details map[string]interface{}) error {
	payload, err := json.Marshal(details)
	if err != nil {
		return err
	}

	entry := &model.AuditLog{
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(payload),
	}
	if userID != uuid.Nil {
		entry.UserID = &userID
	}
	return r.Log(ctx, entry)
}

func (r *auditRepository) List(ctx context.Context, action string, p pagination.Params) ([]model.AuditLog, int64, error) {
	var logs []model.AuditLog
	var total int64

	scope := func(db *gorm.DB) *gorm.DB {
		if action != "" {
			db = db.Where("action = ?", action)
		}
		return db
	}

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.AuditLog{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Scopes(scope).Preload("User").Order("created_at desc").Offset(p.Offset).Limit(p.Limit).Find(&logs).Error; err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}
