package model

import "time"

// Substation represents a distribution substation (gardu) being monitored.
type Substation struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	Code        string    `gorm:"uniqueIndex;size:64;not null" json:"code"`
	Name        string    `gorm:"size:256;not null" json:"name"`
	Address     string    `gorm:"size:512" json:"address"`
	Feeder      string    `gorm:"size:128" json:"feeder"` // penyulang
	CapacityKVA float64   `gorm:"not null;default:0" json:"capacityKva"`
	Latitude    *float64  `json:"latitude,omitempty"`
	Longitude   *float64  `json:"longitude,omitempty"`
	CreatedAt   time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"not null" json:"updatedAt"`

	// Associations
	Measurements []Measurement `gorm:"foreignKey:SubstationID" json:"-"`
}
