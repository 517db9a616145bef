package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	QuotePending  = "PENDING"
	QuoteAnswered = "ANSWERED"
	QuoteAccepted = "ACCEPTED"
	QuoteRejected = "REJECTED"
)

// QuoteRequest invites one supplier to price one demand. A (demand, supplier) pair is unique.
type QuoteRequest struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	DemandID   uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_quote_requests_demand_supplier" json:"demand_id"`
	Demand     *Demand        `gorm:"foreignKey:DemandID" json:"demand,omitempty"`
	SupplierID uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_quote_requests_demand_supplier;index" json:"supplier_id"`
	Supplier   *User          `gorm:"foreignKey:SupplierID" json:"supplier,omitempty"`
	Status     string         `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	Response   *QuoteResponse `gorm:"foreignKey:QuoteRequestID" json:"response,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

func (q *QuoteRequest) BeforeCreate(tx *gorm.DB) error {
	newID(&q.ID)
	return nil
}

// QuoteResponse is the supplier's priced offer. The unique index on
// quote_request_id keeps it 1:1 with its request even under concurrent writers.
type QuoteResponse struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	QuoteRequestID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"quote_request_id"`
	QuoteRequest   *QuoteRequest   `gorm:"foreignKey:QuoteRequestID" json:"quote_request,omitempty"`
	UnitPrice      decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"unit_price"`
	TotalPrice     decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"total_price"`
	LeadTimeDays   int             `gorm:"not null" json:"lead_time_days"`
	Conditions     string          `gorm:"type:text" json:"conditions,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

func (q *QuoteResponse) BeforeCreate(tx *gorm.DB) error {
	newID(&q.ID)
	return nil
}
