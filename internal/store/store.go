package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"gardu-monitor-backend/internal/model"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a write would break the single ACTIVE
	// measurement rule or when the row changed since it was read.
	ErrConflict = errors.New("conflicting state")
	// ErrInvalidCredentials is returned by Authenticate.
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// Store defines the interface for all database operations.
type Store interface {
	Ping(ctx context.Context) error

	ListSubstations(ctx context.Context) ([]model.Substation, error)
	GetSubstation(ctx context.Context, id int64) (model.Substation, error)
	CreateSubstation(ctx context.Context, sub *model.Substation) error
	UpdateSubstation(ctx context.Context, sub *model.Substation) error
	DeleteSubstation(ctx context.Context, id int64) error

	CreateMeasurement(ctx context.Context, m *model.Measurement) error
	GetMeasurement(ctx context.Context, id int64) (model.Measurement, error)
	ListMeasurements(ctx context.Context, filter MeasurementFilter) ([]model.Measurement, error)
	MeasurementChain(ctx context.Context, id int64) ([]model.Measurement, error)
	ReviseMeasurement(ctx context.Context, rev Revision) (RevisionOutcome, error)
	ListAuditLogs(ctx context.Context, measurementID int64) ([]model.MeasurementAuditLog, error)
	ImportBatch(ctx context.Context, items []ImportItem) (ImportStats, error)

	CreateAdminUser(ctx context.Context, user *model.AdminUser, password string) error
	Authenticate(ctx context.Context, username, password string) (model.AdminUser, error)
	ListAdminUsers(ctx context.Context) ([]model.AdminUser, error)
	DeleteAdminUser(ctx context.Context, id int64) error
	CountAdminUsers(ctx context.Context) (int64, error)

	PutSubscription(ctx context.Context, sub *model.PushSubscription, substationIDs []int64) error
	GetSubscription(ctx context.Context, endpoint string) (model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
	SubscriptionsForSubstation(ctx context.Context, substationID int64) ([]model.PushSubscription, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (s *gormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// conflictOr maps a unique constraint violation to ErrConflict. It needs a
// handle opened with TranslateError.
func conflictOr(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}

func notFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
