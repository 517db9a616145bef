package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AlertThreshold is the predicted quantity from which a forecast is flagged as a replenishment alert.
const AlertThreshold = 1000

// DemandForecast stores one predicted day returned by the ML service
type DemandForecast struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FactoryID         uuid.UUID `gorm:"type:uuid;not null;index" json:"factory_id"`
	ProductID         uuid.UUID `gorm:"type:uuid;not null;index" json:"product_id"`
	Product           *Product  `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	ForecastDate      time.Time `gorm:"type:date;not null" json:"forecast_date"`
	PredictedQuantity float64   `gorm:"not null;index" json:"predicted_quantity"`
	HorizonDays       int       `gorm:"not null" json:"horizon_days"`
	ModelVersion      string    `gorm:"type:varchar(50)" json:"model_version"`
	CreatedAt         time.Time `json:"created_at"`
}

func (f *DemandForecast) BeforeCreate(tx *gorm.DB) error {
	newID(&f.ID)
	return nil
}
