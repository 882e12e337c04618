package store

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gardu-monitor-backend/internal/model"
)

// PutSubscription creates or replaces a push subscription and the set of
// substations it follows.
func (s *gormStore) PutSubscription(ctx context.Context, sub *model.PushSubscription, substationIDs []int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth"}),
		}).Create(sub).Error; err != nil {
			return err
		}

		var substations []model.Substation
		if len(substationIDs) > 0 {
			if err := tx.Find(&substations, substationIDs).Error; err != nil {
				return err
			}
		}

		return tx.Model(sub).Association("Substations").Replace(&substations)
	})
}

func (s *gormStore) GetSubscription(ctx context.Context, endpoint string) (model.PushSubscription, error) {
	var sub model.PushSubscription
	if err := s.db.WithContext(ctx).Preload("Substations").First(&sub, "endpoint = ?", endpoint).Error; err != nil {
		return model.PushSubscription{}, notFoundOr(err)
	}
	return sub, nil
}

func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub := model.PushSubscription{Endpoint: endpoint}
		if err := tx.Model(&sub).Association("Substations").Clear(); err != nil {
			return err
		}
		return tx.Delete(&sub).Error
	})
}

// SubscriptionsForSubstation returns the subscriptions following a substation.
func (s *gormStore) SubscriptionsForSubstation(ctx context.Context, substationID int64) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	err := s.db.WithContext(ctx).
		Joins("JOIN subscription_substation_mapping ssm ON ssm.push_subscription_endpoint = push_subscriptions.endpoint").
		Where("ssm.substation_id = ?", substationID).
		Find(&subs).Error
	return subs, err
}
