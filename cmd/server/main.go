package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rcabanilla/lapida/internal/config"
	"github.com/rcabanilla/lapida/internal/draft"
	"github.com/rcabanilla/lapida/internal/gateway"
	"github.com/rcabanilla/lapida/internal/handlers"
	"github.com/rcabanilla/lapida/internal/logger"
	"github.com/rcabanilla/lapida/internal/middleware"
	"github.com/rcabanilla/lapida/internal/models"
	"github.com/rcabanilla/lapida/internal/session"
	"github.com/rcabanilla/lapida/internal/wizard"
	"github.com/redis/go-redis/v9"
)

const (
	shutdownTimeout = 30 * time.Second
)

func main() {
	// Load configuration from environment variables
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	log := logger.New(cfg.Server.Env)
	log.Info("Starting Lapida reservation API", map[string]interface{}{
		"version":     handlers.APIVersion,
		"environment": cfg.Server.Env,
		"port":        cfg.Server.Port,
		"backend":     cfg.Backend.BaseURL,
	})

	// Select the draft store backend
	var store draft.Store
	switch cfg.Draft.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Draft.RedisAddr,
			Password: cfg.Draft.RedisPassword,
			DB:       cfg.Draft.RedisDB,
		})
		store = draft.NewRedisStore(client)
		log.Info("Draft store using redis", map[string]interface{}{
			"addr": cfg.Draft.RedisAddr,
		})
	default:
		store = draft.NewFileStore(cfg.Draft.Dir)
		log.Info("Draft store using local files", map[string]interface{}{
			"dir": cfg.Draft.Dir,
		})
	}
	drafts := draft.NewManager(store, cfg.Draft.Debounce, log)
	defer drafts.Close()

	// Gateway to the cemetery backend
	backend := gateway.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout, log)

	defaultCamera := wizard.Camera{
		Center: models.LatLng{Lat: cfg.Map.CenterLat, Lng: cfg.Map.CenterLng},
		Zoom:   cfg.Map.DefaultZoom,
	}

	// One wizard per visitor session, bound to the visitor's bearer token
	sessions := session.NewManager(func(token, visitorKey string) *wizard.Wizard {
		return wizard.New(wizard.Config{
			Gateway:       backend.WithToken(token),
			Drafts:        drafts,
			Log:           log,
			VisitorKey:    visitorKey,
			Authenticated: token != "",
			PollInterval:  cfg.Backend.PollInterval,
			DefaultCamera: defaultCamera,
		})
	}, cfg.Session.TTL, log)
	defer sessions.Close()

	// Setup Gin router
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware in order: RequestID -> Logger -> Recovery -> CORS -> BearerToken
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS(cfg.CORS.Origins))
	router.Use(middleware.BearerToken())

	// Register health check routes
	healthHandler := handlers.NewHealthHandler(backend, cfg.Server.Env)
	router.GET("/health", healthHandler.Health)
	router.GET("/health/ready", healthHandler.Ready)
	router.GET("/api/v1/info", healthHandler.Info)

	// Initialize handlers
	plotsHandler := handlers.NewPlotsHandler(sessions, backend)
	wizardHandler := handlers.NewWizardHandler(sessions)

	// Register API v1 routes
	v1 := router.Group("/api/v1")
	{
		v1.GET("/plots", plotsHandler.List)
		v1.GET("/reservations", middleware.RequireToken(), plotsHandler.MyReservations)

		wiz := v1.Group("/wizard")
		wiz.Use(middleware.RequireToken())
		{
			wiz.GET("", wizardHandler.State)
			wiz.PUT("/details", wizardHandler.Details)
			wiz.POST("/next", wizardHandler.Next)
			wiz.POST("/back", wizardHandler.Back)
			wiz.POST("/select", wizardHandler.Select)
			wiz.POST("/submit", wizardHandler.Submit)
			wiz.POST("/cancel", wizardHandler.Cancel)
			wiz.POST("/reset", wizardHandler.Reset)
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server listening", map[string]interface{}{
			"port": cfg.Server.Port,
			"addr": srv.Addr,
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start", err, nil)
		}
	}()

	// Wait for interrupt signal (SIGINT or SIGTERM)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Graceful shutdown: stop accepting requests, then stop session pollers
	log.Info("Shutting down server...", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", err, map[string]interface{}{
			"timeout": shutdownTimeout.String(),
		})
	}

	log.Info("Server exited", nil)
}
