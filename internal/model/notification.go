package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	NotificationNewQuote      = "NEW_QUOTE"
	NotificationQuoteAnswered = "QUOTE_ANSWERED"
	NotificationOrderStatus   = "ORDER_STATUS"
	NotificationMLAlert       = "ML_ALERT"
)

// Notification is an in-app message for one user
type Notification struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Type      string    `gorm:"type:varchar(30);not null" json:"type"`
	Title     string    `gorm:"type:varchar(255);not null" json:"title"`
	Body      string    `gorm:"type:text" json:"body"`
	Read      bool      `gorm:"not null;default:false;index" json:"read"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	newID(&n.ID)
	return nil
}
