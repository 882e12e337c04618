package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"gardu-monitor-backend/internal/model"
)

type substationRequest struct {
	Code        string   `json:"code" binding:"required"`
	Name        string   `json:"name" binding:"required"`
	Address     string   `json:"address"`
	Feeder      string   `json:"feeder"`
	CapacityKVA float64  `json:"capacityKva" binding:"gte=0"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
}

func (r substationRequest) toModel() model.Substation {
	return model.Substation{
		Code:        strings.TrimSpace(r.Code),
		Name:        strings.TrimSpace(r.Name),
		Address:     strings.TrimSpace(r.Address),
		Feeder:      strings.TrimSpace(r.Feeder),
		CapacityKVA: r.CapacityKVA,
		Latitude:    r.Latitude,
		Longitude:   r.Longitude,
	}
}

// ListSubstations handles GET /api/substations.
func (h *Handler) ListSubstations(c *gin.Context) {
	subs, err := h.store.ListSubstations(c.Request.Context())
	if err != nil {
		storeError(c, err, "substations")
		return
	}
	c.JSON(http.StatusOK, subs)
}

// GetSubstation handles GET /api/substations/:id.
func (h *Handler) GetSubstation(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	sub, err := h.store.GetSubstation(c.Request.Context(), id)
	if err != nil {
		storeError(c, err, "substation")
		return
	}
	c.JSON(http.StatusOK, sub)
}

// CreateSubstation handles POST /api/substations.
func (h *Handler) CreateSubstation(c *gin.Context) {
	var req substationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sub := req.toModel()
	if err := h.store.CreateSubstation(c.Request.Context(), &sub); err != nil {
		storeError(c, err, "substation")
		return
	}
	c.JSON(http.StatusCreated, sub)
}

// UpdateSubstation handles PUT /api/substations/:id.
func (h *Handler) UpdateSubstation(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req substationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sub := req.toModel()
	sub.ID = id
	if err := h.store.UpdateSubstation(c.Request.Context(), &sub); err != nil {
		storeError(c, err, "substation")
		return
	}
	updated, err := h.store.GetSubstation(c.Request.Context(), id)
	if err != nil {
		storeError(c, err, "substation")
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteSubstation handles DELETE /api/substations/:id.
func (h *Handler) DeleteSubstation(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.store.DeleteSubstation(c.Request.Context(), id); err != nil {
		storeError(c, err, "substation")
		return
	}
	c.Status(http.StatusNoContent)
}
