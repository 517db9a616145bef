package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Category groups raw materials in the supplier catalog
type Category struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Description  string    `gorm:"type:text" json:"description,omitempty"`
	ProductCount int64     `gorm:"-:migration;->" json:"product_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	newID(&c.ID)
	return nil
}

// Product is a material a supplier offers
type Product struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	SupplierID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"supplier_id"`
	Supplier    *User           `gorm:"foreignKey:SupplierID" json:"supplier,omitempty"`
	CategoryID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"category_id"`
	Category    *Category       `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Name        string          `gorm:"type:varchar(255);not null" json:"name"`
	Description string          `gorm:"type:text" json:"description,omitempty"`
	Unit        string          `gorm:"type:varchar(20);not null" json:"unit"`
	BasePrice   decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"base_price"`
	StockQty    int             `gorm:"type:int;default:0;not null" json:"stock_qty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	newID(&p.ID)
	return nil
}
