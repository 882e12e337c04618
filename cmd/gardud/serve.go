package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"golang.org/x/sync/errgroup"

	"gardu-monitor-backend/config"
	"gardu-monitor-backend/internal/api"
	"gardu-monitor-backend/internal/db"
	"gardu-monitor-backend/internal/model"
	"gardu-monitor-backend/internal/notification"
	"gardu-monitor-backend/internal/revision"
	"gardu-monitor-backend/internal/store"
)

func serve(cfg *config.Config) error {
	// Initialize database
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() {
		if err := db.Close(gormDB); err != nil {
			logger.Printf("failed to close database: %v", err)
		}
	}()
	logger.Println("database initialized successfully")

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	logger.Println("data store initialized")

	if err := bootstrapAdmin(ctx, cfg.Auth, appStore); err != nil {
		return err
	}

	var webpushOptions *webpush.Options
	var notifier revision.Notifier
	if cfg.Push.PublicKey == "" || cfg.Push.PrivateKey == "" {
		logger.Println("VAPID keys are not configured; push notifications are disabled")
	} else {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pool := notification.NewWorkerPool(cfg.WorkerPool.Size, cfg.WorkerPool.QueueSize, appStore, webpushOptions)
		pool.Start(ctx)
		notifier = pool
	}

	revisions := revision.NewService(appStore, cfg.Revision, notifier)

	// Initialize router
	router := api.NewRouter(cfg, appStore, revisions, webpushOptions)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Stop on SIGINT/SIGTERM or when the listener fails.
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(sigCtx)

	g.Go(func() error {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server ListenAndServe: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Println("Stopping services...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("HTTP server Shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Println("Server gracefully stopped")
	return nil
}

// bootstrapAdmin creates the configured admin account when no admin exists yet.
func bootstrapAdmin(ctx context.Context, auth config.AuthConfig, s store.Store) error {
	if auth.BootstrapUser == "" || auth.BootstrapPass == "" {
		return nil
	}
	count, err := s.CountAdminUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to count admin users: %w", err)
	}
	if count > 0 {
		return nil
	}
	user := model.AdminUser{Username: auth.BootstrapUser}
	if err := s.CreateAdminUser(ctx, &user, auth.BootstrapPass); err != nil {
		return fmt.Errorf("failed to create bootstrap admin: %w", err)
	}
	logger.Printf("created bootstrap admin %q", user.Username)
	return nil
}
