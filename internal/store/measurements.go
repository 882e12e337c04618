package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gardu-monitor-backend/internal/model"
)

// CreateMeasurement inserts a new ACTIVE measurement. It fails with ErrConflict
// when an ACTIVE row already exists for the same substation, period, row and
// month; corrections must go through ReviseMeasurement instead.
func (s *gormStore) CreateMeasurement(ctx context.Context, m *model.Measurement) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := activeExists(tx, m)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: active %s measurement for row %q in %s already exists", ErrConflict, m.Period, m.RowCode, m.Month)
		}
		m.Status = model.StatusActive
		m.Version = 1
		return conflictOr(tx.Omit(clause.Associations).Create(m).Error)
	})
}

func activeExists(tx *gorm.DB, m *model.Measurement) (bool, error) {
	var count int64
	err := tx.Model(&model.Measurement{}).
		Where("substation_id = ? AND period = ? AND row_code = ? AND month = ? AND status = ?",
			m.SubstationID, m.Period, m.RowCode, m.Month, model.StatusActive).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check active measurement: %w", err)
	}
	return count > 0, nil
}

func (s *gormStore) GetMeasurement(ctx context.Context, id int64) (model.Measurement, error) {
	var m model.Measurement
	if err := s.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return model.Measurement{}, notFoundOr(err)
	}
	return m, nil
}

func (s *gormStore) ListMeasurements(ctx context.Context, filter MeasurementFilter) ([]model.Measurement, error) {
	q := s.db.WithContext(ctx).Model(&model.Measurement{})
	if filter.SubstationID != 0 {
		q = q.Where("substation_id = ?", filter.SubstationID)
	}
	if filter.Period != "" {
		q = q.Where("period = ?", filter.Period)
	}
	if filter.Month != "" {
		q = q.Where("month = ?", filter.Month)
	}
	if !filter.IncludeSuperseded {
		q = q.Where("status = ?", model.StatusActive)
	}

	var out []model.Measurement
	if err := q.Order("month DESC").Order("period").Order("row_code").Order("id DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list measurements: %w", err)
	}
	return out, nil
}

// MeasurementChain returns every version linked to id through previous_id,
// newest first.
func (s *gormStore) MeasurementChain(ctx context.Context, id int64) ([]model.Measurement, error) {
	db := s.db.WithContext(ctx)

	var start model.Measurement
	if err := db.First(&start, id).Error; err != nil {
		return nil, notFoundOr(err)
	}

	var newer []model.Measurement
	cursor := start.ID
	for {
		var next model.Measurement
		err := db.Where("previous_id = ?", cursor).Order("id").First(&next).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to walk successors of %d: %w", cursor, err)
		}
		newer = append(newer, next)
		cursor = next.ID
	}

	chain := make([]model.Measurement, 0, len(newer)+1)
	for i := len(newer) - 1; i >= 0; i-- {
		chain = append(chain, newer[i])
	}
	chain = append(chain, start)

	prev := start.PreviousID
	for prev != nil {
		var older model.Measurement
		if err := db.First(&older, *prev).Error; err != nil {
			return nil, fmt.Errorf("failed to walk predecessors of %d: %w", start.ID, notFoundOr(err))
		}
		chain = append(chain, older)
		prev = older.PreviousID
	}
	return chain, nil
}

// ListAuditLogs returns the corrections recorded against a measurement id,
// most recent first.
func (s *gormStore) ListAuditLogs(ctx context.Context, measurementID int64) ([]model.MeasurementAuditLog, error) {
	var logs []model.MeasurementAuditLog
	err := s.db.WithContext(ctx).
		Where("measurement_id = ?", measurementID).
		Order("changed_at DESC").Order("id DESC").
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs for %d: %w", measurementID, err)
	}
	return logs, nil
}
