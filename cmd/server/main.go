package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"elog/internal/auth"
	"elog/internal/config"
	"elog/internal/handler"
	"elog/internal/middleware"
	"elog/internal/repository/postgres"
	"elog/internal/service"
	"elog/internal/service/refrewrite"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()

	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	jwtVerifier, err := auth.NewJWTVerifier(cfg.JWKSURL, logger)
	if err != nil {
		log.Fatalf("Failed to create JWT verifier: %v", err)
	}
	defer jwtVerifier.Close()

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	logger.Info("database connected")

	tables := postgres.NewTableNames(cfg.TablePrefix)
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	entryRepo := postgres.NewEntryRepository(repoConfig)
	logbookRepo := postgres.NewLogbookRepository(repoConfig)
	attachmentRepo := postgres.NewAttachmentRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool)

	logbookService := service.NewLogbookService(logbookRepo, logger)
	attachmentService := service.NewAttachmentService(attachmentRepo, logger)
	entryService := service.NewEntryService(entryRepo, logbookService, attachmentService, txManager, refrewrite.New(), logger)
	importService := service.NewImportService(entryRepo, entryService, attachmentService, txManager, logger)

	entryHandler := handler.NewEntryHandler(entryService, logger)
	logbookHandler := handler.NewLogbookHandler(logbookService, logger)
	attachmentHandler := handler.NewAttachmentHandler(attachmentService, logger)
	importHandler := handler.NewImportHandler(importService, logger)

	logger.Info("services initialized")

	// HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Entry routes
	mux.HandleFunc("POST /api/entries", entryHandler.CreateEntry)
	mux.HandleFunc("GET /api/entries/search", entryHandler.SearchEntries) // Must come before {id} route
	mux.HandleFunc("GET /api/entries/{id}", entryHandler.GetEntry)
	mux.HandleFunc("POST /api/entries/{id}/supersede", entryHandler.SupersedeEntry)
	mux.HandleFunc("POST /api/entries/{id}/follow-ups", entryHandler.FollowUpEntry)

	// Logbook routes
	mux.HandleFunc("POST /api/logbooks", logbookHandler.CreateLogbook)
	mux.HandleFunc("GET /api/logbooks", logbookHandler.ListLogbooks)
	mux.HandleFunc("GET /api/logbooks/{id}", logbookHandler.GetLogbook)
	mux.HandleFunc("POST /api/logbooks/{id}/shifts", logbookHandler.AddShift)
	mux.HandleFunc("POST /api/logbooks/{id}/tags", logbookHandler.AddTag)

	// Attachment routes
	mux.HandleFunc("POST /api/attachments", attachmentHandler.UploadAttachment)
	mux.HandleFunc("GET /api/attachments/{id}", attachmentHandler.GetAttachment)
	mux.HandleFunc("GET /api/attachments/{id}/download", attachmentHandler.DownloadAttachment)

	// Import route
	mux.HandleFunc("POST /api/import", importHandler.ImportEntry)

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Recovery → Auth → Routes
	var h http.Handler = mux
	h = middleware.Auth(jwtVerifier, logger)(h)
	h = middleware.Recovery(logger, cfg.Debug)(h)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}
