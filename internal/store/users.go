package store

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"gardu-monitor-backend/internal/model"
)

// CreateAdminUser hashes password and stores the user.
func (s *gormStore) CreateAdminUser(ctx context.Context, user *model.AdminUser, password string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = string(hashed)
	if user.Role == "" {
		user.Role = "admin"
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.AdminUser{}).Where("username = ?", user.Username).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: username %q is taken", ErrConflict, user.Username)
		}
		return conflictOr(tx.Create(user).Error)
	})
}

// Authenticate returns the user when username and password match.
func (s *gormStore) Authenticate(ctx context.Context, username, password string) (model.AdminUser, error) {
	var user model.AdminUser
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.AdminUser{}, ErrInvalidCredentials
		}
		return model.AdminUser{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return model.AdminUser{}, ErrInvalidCredentials
	}
	return user, nil
}

func (s *gormStore) ListAdminUsers(ctx context.Context) ([]model.AdminUser, error) {
	var users []model.AdminUser
	if err := s.db.WithContext(ctx).Order("username").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list admin users: %w", err)
	}
	return users, nil
}

func (s *gormStore) DeleteAdminUser(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Delete(&model.AdminUser{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *gormStore) CountAdminUsers(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.AdminUser{}).Count(&count).Error
	return count, err
}
