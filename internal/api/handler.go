package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"

	"gardu-monitor-backend/config"
	"gardu-monitor-backend/internal/revision"
	"gardu-monitor-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store     store.Store
	revisions *revision.Service
	auth      config.AuthConfig
	webpush   *webpush.Options
	now       func() time.Time
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, revisions *revision.Service, auth config.AuthConfig, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		store:     s,
		revisions: revisions,
		auth:      auth,
		webpush:   webpushOptions,
		now:       time.Now,
	}
}

// pathID parses a positive integer path parameter.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// storeError writes the response for an error returned by the store.
func storeError(c *gin.Context, err error, what string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": what + " not found"})
	case errors.Is(err, store.ErrConflict):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		log.Printf("store error (%s): %v", what, err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to process " + what})
	}
}
