// Package revision applies corrections to measurement unbalance values while
// keeping the superseded rows and an audit trail.
package revision

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"gardu-monitor-backend/config"
	"gardu-monitor-backend/internal/model"
	"gardu-monitor-backend/internal/store"
)

// Request is a correction for one measurement.
type Request struct {
	MeasurementID   int64
	Unbalanced      *float64
	Reason          string
	ChangedBy       string
	ExpectedVersion *int64
}

// Result describes a committed revision.
type Result struct {
	OldID        int64        `json:"old_id"`
	NewID        int64        `json:"new_id"`
	OldValue     float64      `json:"old_value"`
	NewValue     float64      `json:"new_value"`
	NewVersion   int64        `json:"new_version"`
	SubstationID int64        `json:"substation_id"`
	Period       model.Period `json:"period"`
	RowCode      string       `json:"row_code"`
	Month        string       `json:"month"`
	ChangedBy    string       `json:"changed_by"`
	Reason       string       `json:"reason"`
	ChangedAt    time.Time    `json:"changed_at"`
}

// Notifier receives committed revisions. Implementations must not block.
type Notifier interface {
	Dispatch(Result)
}

// Service validates and applies revisions through the store.
type Service struct {
	store    store.Store
	cfg      config.RevisionConfig
	notifier Notifier
	now      func() time.Time
}

// NewService creates a revision service. notifier may be nil.
func NewService(s store.Store, cfg config.RevisionConfig, notifier Notifier) *Service {
	if cfg.DefaultReason == "" {
		cfg.DefaultReason = "Koreksi nilai unbalance"
	}
	if cfg.DefaultActor == "" {
		cfg.DefaultActor = "admin"
	}
	return &Service{
		store:    s,
		cfg:      cfg,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Validate checks a request without touching the store.
func (s *Service) Validate(req Request) error {
	if req.MeasurementID <= 0 {
		return fmt.Errorf("%w: measurement id must be a positive integer", ErrValidation)
	}
	if req.Unbalanced == nil {
		return fmt.Errorf("%w: unbalanced is required", ErrValidation)
	}
	if math.IsNaN(*req.Unbalanced) || math.IsInf(*req.Unbalanced, 0) {
		return fmt.Errorf("%w: unbalanced must be a finite number", ErrValidation)
	}
	if s.cfg.RequireReason && strings.TrimSpace(req.Reason) == "" {
		return fmt.Errorf("%w: reason is required", ErrValidation)
	}
	return nil
}

// Revise supersedes the measurement and creates its corrected successor.
// Validation failures never reach the store.
func (s *Service) Revise(ctx context.Context, req Request) (Result, error) {
	if err := s.Validate(req); err != nil {
		return Result{}, err
	}

	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = s.cfg.DefaultReason
	}
	actor := strings.TrimSpace(req.ChangedBy)
	if actor == "" {
		actor = s.cfg.DefaultActor
	}

	out, err := s.store.ReviseMeasurement(ctx, store.Revision{
		MeasurementID:   req.MeasurementID,
		NewUnbalanced:   *req.Unbalanced,
		Reason:          reason,
		ChangedBy:       actor,
		ExpectedVersion: req.ExpectedVersion,
		At:              s.now(),
	})
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotFound):
		return Result{}, fmt.Errorf("%w: id %d", ErrNotFound, req.MeasurementID)
	case errors.Is(err, store.ErrConflict):
		return Result{}, fmt.Errorf("%w: %v", ErrConflict, err)
	default:
		return Result{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	res := Result{
		OldID:        out.Previous.ID,
		NewID:        out.Successor.ID,
		OldValue:     out.Audit.OldValue,
		NewValue:     out.Audit.NewValue,
		NewVersion:   out.Successor.Version,
		SubstationID: out.Successor.SubstationID,
		Period:       out.Successor.Period,
		RowCode:      out.Successor.RowCode,
		Month:        out.Successor.Month,
		ChangedBy:    out.Audit.ChangedBy,
		Reason:       out.Audit.ChangeReason,
		ChangedAt:    out.Audit.ChangedAt,
	}
	log.Printf("measurement %d revised by %s: unbalanced %.2f -> %.2f (new id %d)",
		res.OldID, res.ChangedBy, res.OldValue, res.NewValue, res.NewID)

	if s.notifier != nil {
		s.notifier.Dispatch(res)
	}
	return res, nil
}

// History returns the audit entries of a measurement, newest first.
func (s *Service) History(ctx context.Context, measurementID int64) ([]model.MeasurementAuditLog, error) {
	if measurementID <= 0 {
		return nil, fmt.Errorf("%w: measurement id must be a positive integer", ErrValidation)
	}
	logs, err := s.store.ListAuditLogs(ctx, measurementID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return logs, nil
}
