package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/jansaakshi/backend/config"
	"github.com/jansaakshi/backend/handler"
	"github.com/jansaakshi/backend/model"
	"github.com/jansaakshi/backend/pkg/metrics"
	"github.com/jansaakshi/backend/query"
	"github.com/jansaakshi/backend/service"
	"github.com/jansaakshi/backend/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, db, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := bootstrapAdmin(ctx, db, &cfg.Auth); err != nil {
		return err
	}

	sessions, err := openSessions(ctx, &cfg.Session)
	if err != nil {
		return err
	}
	defer func() {
		if c, ok := sessions.(io.Closer); ok {
			c.Close()
		}
	}()

	m := metrics.New()

	var narrator query.Narrator
	if cfg.LLMEnabled() {
		narrator = service.NewLLMNarrator(&cfg.LLM)
		slog.Info("LLM narrator enabled", "model", cfg.LLM.Model)
	} else {
		slog.Info("LLM narrator disabled, answers use the structured fallback")
	}

	deps := handler.Deps{
		Config:   cfg,
		Store:    db,
		Sessions: sessions,
		Asker:    query.NewService(db, narrator),
		Metrics:  m,
	}

	if cfg.IngestEnabled() {
		ingestor, verifier, err := buildIngestor(ctx, cfg, db, m)
		if err != nil {
			return err
		}
		defer ingestor.Close()
		deps.Ingestion = ingestor
		if verifier != nil {
			deps.Verifier = verifier
		}
	} else {
		slog.Info("minutes ingestion disabled, minio and ocr are not configured")
	}

	if cfg.Reconcile.Enabled {
		rec := service.NewReconciler(db, m)
		if err := rec.Start(cfg.Reconcile.Schedule); err != nil {
			return fmt.Errorf("failed to start reconciler: %w", err)
		}
		defer rec.Stop()
	}

	gin.SetMode(gin.ReleaseMode)
	router := handler.NewRouter(deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.Server.Port, "default_city", cfg.Server.DefaultCity)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		return err
	}
	slog.Info("server exited")
	return nil
}

// bootstrapAdmin creates the configured admin account once
func bootstrapAdmin(ctx context.Context, db *store.Store, cfg *config.AuthConfig) error {
	if cfg.AdminUsername == "" || cfg.AdminPassword == "" {
		return nil
	}
	hash, err := handler.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}
	err = db.CreateUser(ctx, &model.User{
		Username:     cfg.AdminUsername,
		PasswordHash: hash,
		DisplayName:  "Administrator",
		Role:         model.RoleAdmin,
	})
	switch {
	case errors.Is(err, model.ErrConflict):
		return nil
	case err != nil:
		return fmt.Errorf("failed to create admin account: %w", err)
	}
	slog.Info("admin account created", "username", cfg.AdminUsername)
	return nil
}

func openSessions(ctx context.Context, cfg *config.SessionConfig) (service.SessionStore, error) {
	switch cfg.Backend {
	case "", "memory":
		return service.NewMemorySessionStore(time.Minute), nil
	case "redis":
		s, err := service.NewRedisSessionStore(ctx, &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, cfg.KeyPrefix)
		if err != nil {
			return nil, fmt.Errorf("failed to connect session store: %w", err)
		}
		slog.Info("redis session store connected", "addr", cfg.RedisAddr)
		return s, nil
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Backend)
	}
}

func buildIngestor(ctx context.Context, cfg *config.Config, db *store.Store, m *metrics.Metrics) (*service.Ingestor, *service.OCRService, error) {
	storage, err := service.NewMinioService(&cfg.Minio)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to init minio: %w", err)
	}
	if err := storage.EnsureBucket(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to ensure bucket: %w", err)
	}

	ocr := service.NewOCRService(&cfg.OCR)
	ingestor := service.NewIngestor(
		storage,
		ocr,
		service.NewLLMDocumentClassifier(&cfg.LLM),
		db,
		service.NewJobStore(cfg.Ingest.MaxJobs),
		service.IngestorOptions{UseCallback: cfg.OCR.CallbackURL != "", Metrics: m},
	)
	slog.Info("minutes ingestion enabled", "bucket", cfg.Minio.Bucket, "callback", cfg.OCR.CallbackURL != "")

	if cfg.OCR.Seed == "" {
		return ingestor, nil, nil
	}
	return ingestor, ocr, nil
}
