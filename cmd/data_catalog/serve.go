package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/haimhm/datacatalog/catalog/auth"
	"github.com/haimhm/datacatalog/catalog/config"
	"github.com/haimhm/datacatalog/catalog/services"
	"github.com/haimhm/datacatalog/catalog/storage"
	"github.com/haimhm/datacatalog/utils/logging"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the catalog web server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(envFile)
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg)
	},
}

func createStorage(ctx context.Context, cfg config.UploadConfig) (storage.Storage, error) {
	switch cfg.Backend {
	case config.S3Backend:
		return storage.NewS3Storage(ctx, storage.S3Args{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Prefix:    cfg.S3Prefix,
		})
	case config.DiskBackend:
		return storage.NewSharedDisk(cfg.Dir)
	default:
		return nil, fmt.Errorf("invalid upload backend '%v'", cfg.Backend)
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	logFile, err := openLogFile(cfg.LogDir, "data_catalog.log")
	if err != nil {
		return err
	}
	defer logFile.Close()

	auditLog, err := openLogFile(cfg.LogDir, "audit.log")
	if err != nil {
		return err
	}
	defer auditLog.Close()

	logging.Init(logFile, logging.Options{Service: "data_catalog", VictoriaLogs: cfg.IsProduction()})

	db, err := openDb(cfg)
	if err != nil {
		return err
	}

	store, err := createStorage(ctx, cfg.Uploads)
	if err != nil {
		return fmt.Errorf("error creating upload storage: %w", err)
	}

	userAuth, err := auth.NewBasicIdentityProvider(db, auth.BasicProviderArgs{
		Sessions: auth.NewSessionManager([]byte(cfg.SecretKey), cfg.SessionTTL, cfg.SecureCookies),
	})
	if err != nil {
		return err
	}

	catalog := services.NewCatalog(db, store, userAuth, services.CatalogArgs{
		Audit:          auth.NewAuditLogger(auditLog),
		LoginRateLimit: cfg.LoginRateLimit,
		MaxUploadBytes: cfg.Uploads.MaxBytes,
		MinFreeBytes:   cfg.Uploads.MinFreeBytes,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Mount("/", catalog.Routes())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      5 * time.Minute,
	}

	idleConnsClosed := make(chan struct{})
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server", "code", logging.SYSTEM_STARTUP)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("error shutting down server", "error", err)
		}
		close(idleConnsClosed)
	}()

	slog.Info("starting server", "port", cfg.Port, "storage", store.Location(), "environment", cfg.Environment, "code", logging.SYSTEM_STARTUP)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen and serve returned error: %w", err)
	}

	<-idleConnsClosed
	slog.Info("server stopped", "code", logging.SYSTEM_STARTUP)
	return nil
}
