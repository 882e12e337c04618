package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gardu-monitor-backend/internal/model"
)

func (s *gormStore) ListSubstations(ctx context.Context) ([]model.Substation, error) {
	var subs []model.Substation
	if err := s.db.WithContext(ctx).Order("code").Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to list substations: %w", err)
	}
	return subs, nil
}

func (s *gormStore) GetSubstation(ctx context.Context, id int64) (model.Substation, error) {
	var sub model.Substation
	if err := s.db.WithContext(ctx).First(&sub, id).Error; err != nil {
		return model.Substation{}, notFoundOr(err)
	}
	return sub, nil
}

func (s *gormStore) CreateSubstation(ctx context.Context, sub *model.Substation) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Substation{}).Where("code = ?", sub.Code).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: substation code %q already exists", ErrConflict, sub.Code)
		}
		return conflictOr(tx.Omit(clause.Associations).Create(sub).Error)
	})
}

// UpdateSubstation replaces the descriptive attributes of an existing substation.
func (s *gormStore) UpdateSubstation(ctx context.Context, sub *model.Substation) error {
	res := s.db.WithContext(ctx).Model(&model.Substation{}).Where("id = ?", sub.ID).Updates(map[string]any{
		"code":         sub.Code,
		"name":         sub.Name,
		"address":      sub.Address,
		"feeder":       sub.Feeder,
		"capacity_kva": sub.CapacityKVA,
		"latitude":     sub.Latitude,
		"longitude":    sub.Longitude,
		"updated_at":   s.now(),
	})
	if err := conflictOr(res.Error); err != nil {
		return fmt.Errorf("failed to update substation %d: %w", sub.ID, err)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteSubstation removes a substation that has no measurements. Measurement
// history is never deleted, so a substation with readings cannot be removed.
func (s *gormStore) DeleteSubstation(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Measurement{}).Where("substation_id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: substation %d has %d measurements", ErrConflict, id, count)
		}
		res := tx.Delete(&model.Substation{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
