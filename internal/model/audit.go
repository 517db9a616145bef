package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ActionCreateDemand      = "CREATE_DEMAND"
	ActionUpdateDemand      = "UPDATE_DEMAND"
	ActionCancelDemand      = "CANCEL_DEMAND"
	ActionRequestQuotes     = "REQUEST_QUOTES"
	ActionRespondQuote      = "RESPOND_QUOTE"
	ActionAcceptQuote       = "ACCEPT_QUOTE"
	ActionRejectQuote       = "REJECT_QUOTE"
	ActionCreateOrder       = "CREATE_ORDER"
	ActionUpdateOrderStatus = "UPDATE_ORDER_STATUS"
	ActionApproveUser       = "APPROVE_USER"
	ActionBlockUser         = "BLOCK_USER"
)

// AuditLog tracks Who, What, and When for workflow transitions
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // nil for system actions
	User       *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    string     `gorm:"type:text" json:"details"` // JSON payload
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	newID(&a.ID)
	return nil
}
