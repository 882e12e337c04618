package model

import "time"

// MeasurementAuditLog records a single unbalance correction. Entries are
// append-only; MeasurementID always points at the superseded row.
type MeasurementAuditLog struct {
	ID            int64     `gorm:"primaryKey" json:"id"`
	MeasurementID int64     `gorm:"index;not null" json:"measurementId"`
	Period        Period    `gorm:"size:8;not null" json:"period"`
	OldValue      float64   `gorm:"not null" json:"oldValue"`
	NewValue      float64   `gorm:"not null" json:"newValue"`
	ChangedBy     string    `gorm:"size:128;not null" json:"changedBy"`
	ChangeReason  string    `gorm:"size:512;not null" json:"changeReason"`
	ChangedAt     time.Time `gorm:"not null;index" json:"changedAt"`
}
