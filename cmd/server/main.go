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
	"github.com/stwalsh4118/rowtrack/api/internal/config"
	"github.com/stwalsh4118/rowtrack/api/internal/database"
	"github.com/stwalsh4118/rowtrack/api/internal/handlers"
	"github.com/stwalsh4118/rowtrack/api/internal/importer"
	"github.com/stwalsh4118/rowtrack/api/internal/logger"
	"github.com/stwalsh4118/rowtrack/api/internal/middleware"
	"github.com/stwalsh4118/rowtrack/api/internal/normalize"
	"github.com/stwalsh4118/rowtrack/api/internal/repository"
	"github.com/stwalsh4118/rowtrack/api/internal/services"
)

const (
	shutdownTimeout = 30 * time.Second
)

// store bundles the persistence pieces chosen by DB_DRIVER.
type store struct {
	repo   repository.ParcelRepository
	locker importer.ProjectLocker
	pinger handlers.Pinger
	close  func()
}

func main() {
	// Load configuration from environment variables
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	log := logger.New(cfg.Server.Env)
	log.SetLevel(cfg.Server.LogLevel)
	log.Info("Starting RowTrack API", map[string]interface{}{
		"version":     handlers.APIVersion,
		"environment": cfg.Server.Env,
		"port":        cfg.Server.Port,
		"db_driver":   cfg.Database.Driver,
	})

	catalog, err := normalize.LoadCatalog(cfg.Import.CatalogPath)
	if err != nil {
		log.Fatal("Failed to load field catalog", err, map[string]interface{}{
			"path": cfg.Import.CatalogPath,
		})
	}
	if _, err := catalog.Profile(cfg.Import.DefaultProfile); err != nil {
		log.Fatal("Default import profile is not in the catalog", err, map[string]interface{}{
			"profile": cfg.Import.DefaultProfile,
		})
	}

	ctx := context.Background()
	st, err := openStore(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to open database", err, map[string]interface{}{
			"driver": cfg.Database.Driver,
		})
	}
	defer st.close()

	// Setup Gin router
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware in order: RequestID -> Logger -> Recovery -> CORS
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS(cfg.CORS.Origins))

	// Register health check routes
	healthHandler := handlers.NewHealthHandler(st.pinger, cfg.Server.Env, cfg.Database.Driver, catalog.ProfileNames())
	router.GET("/health", healthHandler.Health)
	router.GET("/health/ready", healthHandler.Ready)
	router.GET("/api/v1/info", healthHandler.Info)

	// Initialize service layer
	importService := importer.NewService(st.repo, st.locker, catalog, cfg.Import.DefaultProfile, log)
	parcelService := services.NewParcelService(st.repo, log)

	// Initialize handlers
	importHandler := handlers.NewImportHandler(importService, cfg.Import.MaxUploadBytes())
	parcelHandler := handlers.NewParcelHandler(parcelService)

	// Register authenticated API v1 routes
	v1 := router.Group("/api/v1", middleware.Auth(cfg.Auth.JWTSecret))
	{
		v1.POST("/import/parcels", importHandler.ImportParcels)

		projects := v1.Group("/projects")
		{
			projects.GET("/:id/parcels", parcelHandler.ListByProject)
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
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

	// Graceful shutdown
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

// openStore migrates and connects the configured database.
func openStore(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*store, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		if err := database.MigrateSQLite(cfg.SQLitePath); err != nil {
			return nil, err
		}
		db, err := database.NewSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}

		log.Info("Database connection established", map[string]interface{}{
			"driver": cfg.Driver,
			"path":   db.Path,
		})

		return &store{
			repo:   repository.NewSQLiteParcelRepository(db),
			locker: importer.NewMemoryLocker(),
			pinger: db,
			close: func() {
				if err := db.Close(); err != nil {
					log.Error("Failed to close database", err, nil)
				}
			},
		}, nil

	default:
		if err := database.MigratePostgres(cfg); err != nil {
			return nil, err
		}
		db, err := database.NewPostgresPool(ctx, cfg)
		if err != nil {
			return nil, err
		}

		log.Info("Database connection established", map[string]interface{}{
			"driver":   cfg.Driver,
			"host":     cfg.Host,
			"port":     cfg.Port,
			"database": cfg.Name,
			"pool_min": cfg.PoolMin,
			"pool_max": cfg.PoolMax,
		})

		return &store{
			repo:   repository.NewParcelRepository(db),
			locker: repository.NewPostgresLocker(db),
			pinger: db,
			close:  db.Close,
		}, nil
	}
}
