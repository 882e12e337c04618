package store

import (
	"time"

	"gardu-monitor-backend/internal/model"
)

// MeasurementFilter narrows ListMeasurements. Zero values mean "any".
type MeasurementFilter struct {
	SubstationID      int64
	Period            model.Period
	Month             string
	IncludeSuperseded bool
}

// Revision is a validated request to replace the unbalance value of an ACTIVE
// measurement.
type Revision struct {
	MeasurementID   int64
	NewUnbalanced   float64
	Reason          string
	ChangedBy       string
	ExpectedVersion *int64
	At              time.Time
}

// RevisionOutcome carries the rows written by ReviseMeasurement.
type RevisionOutcome struct {
	Previous  model.Measurement
	Successor model.Measurement
	Audit     model.MeasurementAuditLog
}

// ImportItem is one substation together with the readings to seed for it.
type ImportItem struct {
	Substation   model.Substation
	Measurements []model.Measurement
}

// ImportStats summarises an ImportBatch call.
type ImportStats struct {
	Substations int `json:"substations"`
	Inserted    int `json:"inserted"`
	Skipped     int `json:"skipped"`
}
