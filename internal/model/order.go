package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Order status progression: CONFIRMED -> PREPARING -> IN_TRANSIT -> DELIVERED.
// Writes are not forced to follow it.
const (
	OrderConfirmed = "CONFIRMED"
	OrderPreparing = "PREPARING"
	OrderInTransit = "IN_TRANSIT"
	OrderDelivered = "DELIVERED"
)

// OrderStatuses lists every valid status in progression order.
var OrderStatuses = []string{OrderConfirmed, OrderPreparing, OrderInTransit, OrderDelivered}

// IsValidOrderStatus reports whether s is a known order status.
func IsValidOrderStatus(s string) bool {
	for _, st := range OrderStatuses {
		if st == s {
			return true
		}
	}
	return false
}

// Order is the commitment created from an accepted quote response, at most one per response
type Order struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	QuoteResponseID uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"quote_response_id"`
	QuoteResponse   *QuoteResponse `gorm:"foreignKey:QuoteResponseID" json:"quote_response,omitempty"`
	FactoryID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"factory_id"`
	Factory         *User          `gorm:"foreignKey:FactoryID" json:"factory,omitempty"`
	SupplierID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"supplier_id"`
	Supplier        *User          `gorm:"foreignKey:SupplierID" json:"supplier,omitempty"`
	Status          string         `gorm:"type:varchar(20);not null;default:'CONFIRMED';index" json:"status"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	newID(&o.ID)
	return nil
}
