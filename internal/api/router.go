package api

import (
	"log"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"gardu-monitor-backend/config"
	"gardu-monitor-backend/internal/mw"
	"gardu-monitor-backend/internal/revision"
	"gardu-monitor-backend/internal/store"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg *config.Config, s store.Store, revisions *revision.Service, webpushOptions *webpush.Options) *gin.Engine {
	r := gin.Default()

	handler := NewHandler(s, revisions, cfg.Auth, webpushOptions)

	// Initialize middleware
	rateLimiter := mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)

	ttl := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(ttl, 2*ttl)
	caching := mw.Cache(cacheStore, ttl)

	r.Use(mw.RequestID(), mw.CORS(cfg.Server.AllowedOrigins))

	r.GET("/health", handler.Health)

	// API group
	api := r.Group("/api")
	api.Use(rateLimiter, mw.InvalidateOnWrite(cacheStore))
	{
		api.POST("/auth/login", handler.Login)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
	}

	admin := api.Group("")
	if cfg.Auth.JWTSecret == "" {
		log.Println("WARNING: auth.jwt_secret is empty; admin routes are not protected")
	} else {
		admin.Use(mw.Auth(cfg.Auth.JWTSecret))
	}
	{
		admin.GET("/substations", caching, handler.ListSubstations)
		admin.POST("/substations", handler.CreateSubstation)
		admin.GET("/substations/:id", caching, handler.GetSubstation)
		admin.PUT("/substations/:id", handler.UpdateSubstation)
		admin.DELETE("/substations/:id", handler.DeleteSubstation)

		admin.GET("/substations/:id/measurements", caching, handler.ListMeasurements)
		admin.POST("/substations/:id/measurements", handler.CreateMeasurement)

		admin.GET("/measurements/:id", caching, handler.GetMeasurement)
		admin.PUT("/measurements/:id/unbalanced", handler.ReviseUnbalanced)
		admin.GET("/measurements/:id/audit", caching, handler.GetAuditLogs)
		admin.GET("/measurements/:id/history", caching, handler.GetMeasurementHistory)

		admin.POST("/import", handler.Import)

		admin.GET("/users", handler.ListUsers)
		admin.POST("/users", handler.CreateUser)
		admin.DELETE("/users/:id", handler.DeleteUser)
	}

	return r
}
