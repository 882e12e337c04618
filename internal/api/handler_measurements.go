package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"gardu-monitor-backend/internal/calc"
	"gardu-monitor-backend/internal/model"
	"gardu-monitor-backend/internal/mw"
	"gardu-monitor-backend/internal/parse"
	"gardu-monitor-backend/internal/revision"
	"gardu-monitor-backend/internal/store"
)

// ListMeasurements handles GET /api/substations/:id/measurements.
// Only ACTIVE rows are returned unless all=true.
func (h *Handler) ListMeasurements(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	filter := store.MeasurementFilter{
		SubstationID:      id,
		IncludeSuperseded: c.Query("all") == "true",
	}
	if raw := c.Query("period"); raw != "" {
		period, err := parse.Period(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		filter.Period = period
	}
	if raw := c.Query("month"); raw != "" {
		month, err := parse.Month(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		filter.Month = month
	}

	if _, err := h.store.GetSubstation(c.Request.Context(), id); err != nil {
		storeError(c, err, "substation")
		return
	}
	rows, err := h.store.ListMeasurements(c.Request.Context(), filter)
	if err != nil {
		storeError(c, err, "measurements")
		return
	}
	c.JSON(http.StatusOK, rows)
}

type createMeasurementRequest struct {
	Period     string     `json:"period" binding:"required"`
	Row        string     `json:"row" binding:"required"`
	Month      string     `json:"month" binding:"required"`
	MeasuredAt *time.Time `json:"measuredAt"`
	R          any        `json:"r"`
	S          any        `json:"s"`
	T          any        `json:"t"`
	N          any        `json:"n"`
	RN         any        `json:"rn"`
	SN         any        `json:"sn"`
	TN         any        `json:"tn"`
	PP         any        `json:"pp"`
	PN         any        `json:"pn"`
}

func (r createMeasurementRequest) readings() (model.Readings, error) {
	var out model.Readings
	fields := []struct {
		name string
		raw  any
		dst  *float64
	}{
		{"r", r.R, &out.R}, {"s", r.S, &out.S}, {"t", r.T, &out.T}, {"n", r.N, &out.N},
		{"rn", r.RN, &out.RN}, {"sn", r.SN, &out.SN}, {"tn", r.TN, &out.TN},
		{"pp", r.PP, &out.PP}, {"pn", r.PN, &out.PN},
	}
	var errs []error
	for _, f := range fields {
		if f.raw == nil {
			continue
		}
		v, err := parse.Number(f.raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", f.name, err))
			continue
		}
		*f.dst = v
	}
	return out, errors.Join(errs...)
}

// CreateMeasurement handles POST /api/substations/:id/measurements. Derived
// values are computed from the readings and the substation capacity.
func (h *Handler) CreateMeasurement(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req createMeasurementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	period, err := parse.Period(req.Period)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	month, err := parse.Month(req.Month)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	readings, err := req.readings()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sub, err := h.store.GetSubstation(c.Request.Context(), id)
	if err != nil {
		storeError(c, err, "substation")
		return
	}

	m := model.Measurement{
		SubstationID: sub.ID,
		Period:       period,
		RowCode:      strings.ToUpper(strings.TrimSpace(req.Row)),
		Month:        month,
		Readings:     readings,
		Derived:      calc.Derive(readings, sub.CapacityKVA),
	}
	if req.MeasuredAt != nil {
		at := req.MeasuredAt.UTC()
		m.MeasuredAt = &at
	}
	if err := h.store.CreateMeasurement(c.Request.Context(), &m); err != nil {
		storeError(c, err, "measurement")
		return
	}
	c.JSON(http.StatusCreated, m)
}

// GetMeasurement handles GET /api/measurements/:id.
func (h *Handler) GetMeasurement(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	m, err := h.store.GetMeasurement(c.Request.Context(), id)
	if err != nil {
		storeError(c, err, "measurement")
		return
	}
	c.JSON(http.StatusOK, m)
}

type reviseRequest struct {
	Unbalanced any    `json:"unbalanced"`
	Reason     string `json:"reason"`
	ChangedBy  string `json:"changedBy"`
	Version    *int64 `json:"version"`
}

// ReviseUnbalanced handles PUT /api/measurements/:id/unbalanced.
func (h *Handler) ReviseUnbalanced(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var body reviseRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "detail": err.Error()})
		return
	}

	req := revision.Request{
		MeasurementID:   id,
		Reason:          body.Reason,
		ChangedBy:       strings.TrimSpace(body.ChangedBy),
		ExpectedVersion: body.Version,
	}
	if body.Unbalanced != nil {
		v, err := parse.Number(body.Unbalanced)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unbalanced must be a number", "detail": err.Error()})
			return
		}
		req.Unbalanced = &v
	}
	if req.ChangedBy == "" {
		req.ChangedBy = mw.Username(c)
	}

	res, err := h.revisions.Revise(c.Request.Context(), req)
	if err != nil {
		revisionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"message":     "Nilai unbalance berhasil dikoreksi",
		"old_id":      res.OldID,
		"new_id":      res.NewID,
		"old_value":   res.OldValue,
		"new_value":   res.NewValue,
		"new_version": res.NewVersion,
	})
}

// GetAuditLogs handles GET /api/measurements/:id/audit.
func (h *Handler) GetAuditLogs(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	logs, err := h.revisions.History(c.Request.Context(), id)
	if err != nil {
		revisionError(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

// GetMeasurementHistory handles GET /api/measurements/:id/history.
func (h *Handler) GetMeasurementHistory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	chain, err := h.store.MeasurementChain(c.Request.Context(), id)
	if err != nil {
		storeError(c, err, "measurement")
		return
	}
	c.JSON(http.StatusOK, chain)
}

func revisionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, revision.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "detail": err.Error()})
	case errors.Is(err, revision.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "measurement not found", "detail": err.Error()})
	case errors.Is(err, revision.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "measurement was changed by another request", "detail": err.Error()})
	default:
		log.Printf("revision failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save revision", "detail": err.Error()})
	}
}
