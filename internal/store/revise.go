package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gardu-monitor-backend/internal/model"
)

// ReviseMeasurement supersedes an ACTIVE measurement, inserts its successor
// carrying the corrected unbalance value and appends one audit entry, all in a
// single transaction. The predecessor is guarded by its version so that two
// concurrent corrections of the same row cannot both succeed.
func (s *gormStore) ReviseMeasurement(ctx context.Context, rev Revision) (RevisionOutcome, error) {
	if rev.At.IsZero() {
		rev.At = s.now()
	}

	var out RevisionOutcome
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var prev model.Measurement
		if err := tx.First(&prev, rev.MeasurementID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to load measurement %d: %w", rev.MeasurementID, err)
		}

		if prev.Status != model.StatusActive {
			return fmt.Errorf("%w: measurement %d is %s", ErrConflict, prev.ID, prev.Status)
		}
		if rev.ExpectedVersion != nil && *rev.ExpectedVersion != prev.Version {
			return fmt.Errorf("%w: measurement %d is at version %d, not %d", ErrConflict, prev.ID, prev.Version, *rev.ExpectedVersion)
		}

		// Step 1: supersede, compare-and-swap on status and version.
		res := tx.Model(&model.Measurement{}).
			Where("id = ? AND status = ? AND version = ?", prev.ID, model.StatusActive, prev.Version).
			Updates(map[string]any{
				"status":     model.StatusSuperseded,
				"version":    prev.Version + 1,
				"updated_at": rev.At,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to supersede measurement %d: %w", prev.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: measurement %d changed while being revised", ErrConflict, prev.ID)
		}

		// Step 2: successor copies everything but the corrected value.
		prevID := prev.ID
		successor := prev
		successor.ID = 0
		successor.Unbalanced = rev.NewUnbalanced
		successor.Status = model.StatusActive
		successor.Version = 1
		successor.PreviousID = &prevID
		successor.CreatedAt = rev.At
		successor.UpdatedAt = rev.At
		if err := tx.Omit(clause.Associations).Create(&successor).Error; err != nil {
			return fmt.Errorf("failed to insert successor of measurement %d: %w", prev.ID, conflictOr(err))
		}

		// Step 3: audit entry references the original row.
		audit := model.MeasurementAuditLog{
			MeasurementID: prev.ID,
			Period:        prev.Period,
			OldValue:      prev.Unbalanced,
			NewValue:      rev.NewUnbalanced,
			ChangedBy:     rev.ChangedBy,
			ChangeReason:  rev.Reason,
			ChangedAt:     rev.At,
		}
		if err := tx.Create(&audit).Error; err != nil {
			return fmt.Errorf("failed to write audit log for measurement %d: %w", prev.ID, err)
		}

		prev.Status = model.StatusSuperseded
		prev.Version++
		prev.UpdatedAt = rev.At
		out = RevisionOutcome{Previous: prev, Successor: successor, Audit: audit}
		return nil
	})
	if err != nil {
		return RevisionOutcome{}, err
	}
	return out, nil
}
