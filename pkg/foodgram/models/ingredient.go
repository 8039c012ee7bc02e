package models

import "time"

// Ingredient is a product with its measurement unit
type Ingredient struct {
	ID              uint      `gorm:"primarykey" json:"id"`
	CreatedAt       time.Time `json:"created_at"`
	Name            string    `gorm:"size:100;index;not null" json:"name"`
	MeasurementUnit string    `gorm:"size:100;not null" json:"measurement_unit"`
}
