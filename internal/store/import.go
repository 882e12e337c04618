package store

import (
	"context"
	"fmt"
	"log"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gardu-monitor-backend/internal/model"
)

// ImportBatch upserts substations by code and inserts their measurements as
// ACTIVE rows. Measurements whose key already has an ACTIVE row are skipped so
// that re-running a seed never produces duplicates or overrides corrections.
func (s *gormStore) ImportBatch(ctx context.Context, items []ImportItem) (ImportStats, error) {
	var stats ImportStats
	if len(items) == 0 {
		return stats, nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		subs := make([]model.Substation, 0, len(items))
		codes := make([]string, 0, len(items))
		for _, item := range items {
			sub := item.Substation
			sub.ID = 0
			sub.Measurements = nil
			subs = append(subs, sub)
			codes = append(codes, sub.Code)
		}

		log.Printf("Batch upserting %d substations...", len(subs))
		if err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "address", "feeder", "capacity_kva", "latitude", "longitude", "updated_at"}),
		}).Create(&subs).Error; err != nil {
			return fmt.Errorf("batch upsert substations failed: %w", err)
		}
		stats.Substations = len(subs)

		var stored []model.Substation
		if err := tx.Where("code IN ?", codes).Find(&stored).Error; err != nil {
			return fmt.Errorf("failed to retrieve substations after upsert: %w", err)
		}
		idByCode := make(map[string]int64, len(stored))
		for _, sub := range stored {
			idByCode[sub.Code] = sub.ID
		}

		for _, item := range items {
			subID, ok := idByCode[item.Substation.Code]
			if !ok {
				return fmt.Errorf("substation %q missing after upsert", item.Substation.Code)
			}
			for _, m := range item.Measurements {
				m.ID = 0
				m.SubstationID = subID
				exists, err := activeExists(tx, &m)
				if err != nil {
					return err
				}
				if exists {
					stats.Skipped++
					continue
				}
				m.Status = model.StatusActive
				m.Version = 1
				if err := tx.Omit(clause.Associations).Create(&m).Error; err != nil {
					return fmt.Errorf("failed to insert %s measurement %s/%s for %q: %w", m.Period, m.Month, m.RowCode, item.Substation.Code, err)
				}
				stats.Inserted++
			}
		}
		return nil
	})
	if err != nil {
		return ImportStats{}, conflictOr(err)
	}
	return stats, nil
}
