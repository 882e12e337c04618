package model

import "time"

// Period distinguishes day (siang) from night (malam) readings.
type Period string

const (
	PeriodSiang Period = "SIANG"
	PeriodMalam Period = "MALAM"
)

// Valid reports whether p is one of the known periods.
func (p Period) Valid() bool {
	return p == PeriodSiang || p == PeriodMalam
}

// MeasurementStatus is the lifecycle state of a measurement row.
// The only transition is ACTIVE -> SUPERSEDED.
type MeasurementStatus string

const (
	StatusActive     MeasurementStatus = "ACTIVE"
	StatusSuperseded MeasurementStatus = "SUPERSEDED"
)

// Readings holds the raw phase and neutral values of one measurement.
type Readings struct {
	R  float64 `gorm:"not null;default:0" json:"r"`
	S  float64 `gorm:"not null;default:0" json:"s"`
	T  float64 `gorm:"not null;default:0" json:"t"`
	N  float64 `gorm:"not null;default:0" json:"n"`
	RN float64 `gorm:"column:rn;not null;default:0" json:"rn"`
	SN float64 `gorm:"column:sn;not null;default:0" json:"sn"`
	TN float64 `gorm:"column:tn;not null;default:0" json:"tn"`
	PP float64 `gorm:"column:pp;not null;default:0" json:"pp"`
	PN float64 `gorm:"column:pn;not null;default:0" json:"pn"`
}

// Derived holds the values computed from Readings.
type Derived struct {
	Average    float64 `gorm:"not null;default:0" json:"average"`
	KVA        float64 `gorm:"column:kva;not null;default:0" json:"kva"`
	Percentage float64 `gorm:"not null;default:0" json:"percentage"`
	Unbalanced float64 `gorm:"not null;default:0" json:"unbalanced"`
}

// Measurement is one periodic reading of a substation. Rows are never deleted;
// a correction supersedes the row and inserts a successor.
type Measurement struct {
	ID           int64             `gorm:"primaryKey" json:"id"`
	SubstationID int64             `gorm:"index;not null" json:"substationId"`
	Period       Period            `gorm:"size:8;not null;index" json:"period"`
	RowCode      string            `gorm:"size:32;not null" json:"rowCode"` // jurusan
	Month        string            `gorm:"size:7;not null;index" json:"month"`
	Readings     `gorm:"embedded"`
	Derived      `gorm:"embedded"`
	Status       MeasurementStatus `gorm:"size:16;not null;index" json:"status"`
	Version      int64             `gorm:"not null;default:1" json:"version"`
	PreviousID   *int64            `gorm:"index" json:"previousId,omitempty"`
	MeasuredAt   *time.Time        `json:"measuredAt,omitempty"`
	CreatedAt    time.Time         `gorm:"not null" json:"createdAt"`
	UpdatedAt    time.Time         `gorm:"not null" json:"updatedAt"`

	// Associations
	Substation Substation `gorm:"constraint:OnDelete:RESTRICT" json:"-"`
}
