package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DemandOpen          = "OPEN"
	DemandInNegotiation = "IN_NEGOTIATION"
	DemandClosed        = "CLOSED"
	DemandCancelled     = "CANCELLED"
)

// Demand is a factory's posted need for a raw material
type Demand struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	FactoryID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"factory_id"`
	Factory       *User          `gorm:"foreignKey:FactoryID" json:"factory,omitempty"`
	ProductName   string         `gorm:"type:varchar(255);not null" json:"product_name"`
	Quantity      float64        `gorm:"not null" json:"quantity"`
	Unit          string         `gorm:"type:varchar(20);not null" json:"unit"`
	NeededBy      time.Time      `gorm:"type:date;not null" json:"needed_by"`
	Conditions    string         `gorm:"type:text" json:"conditions,omitempty"`
	Status        string         `gorm:"type:varchar(20);not null;default:'OPEN';index" json:"status"`
	QuoteRequests []QuoteRequest `gorm:"foreignKey:DemandID" json:"quote_requests,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

func (d *Demand) BeforeCreate(tx *gorm.DB) error {
	newID(&d.ID)
	return nil
}
