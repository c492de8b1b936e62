package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/glocktrack/glocktrack/internal/config"
	"github.com/glocktrack/glocktrack/internal/database"
	"github.com/glocktrack/glocktrack/internal/logger"
	"github.com/glocktrack/glocktrack/internal/ocr"
	"github.com/glocktrack/glocktrack/internal/server"
	"github.com/glocktrack/glocktrack/internal/services"
	"github.com/glocktrack/glocktrack/internal/store"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting GlockTrack...")

	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.InitWithConfig(logger.Config{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	db, err := database.NewSQLiteDB(cfg.DB)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	logger.Info("Database opened and migrations completed", "path", cfg.DB.Path)

	var notifier store.Notifier
	if cfg.Redis.Host != "" {
		redisNotifier, err := store.NewRedisNotifier(cfg.Redis.Host, cfg.Redis.Port)
		if err != nil {
			log.Fatalf("Failed to connect notifier to Redis: %v", err)
		}
		defer redisNotifier.Close()
		notifier = redisNotifier
		logger.Info("Using Redis change notifier", "host", cfg.Redis.Host)
	} else {
		notifier = store.NewMemoryNotifier()
	}

	st := store.New(db, notifier)
	extractor := ocr.NewExtractor(ocr.GeminiFactory(cfg.GeminiAPIKey, cfg.OCRModel))
	readingService := services.NewReadingService(st, extractor)
	profileService := services.NewProfileService(st)
	trendService := services.NewTrendService(st)
	logger.Info("Services initialized")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go trendService.Run(ctx)

	apiServer := server.NewServer(st, readingService, profileService, trendService)
	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: apiServer.Router(),
	}

	go func() {
		logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown failed", "error", err)
	}
}
