package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/opentempo/play-analytics/internal/config"
	"github.com/opentempo/play-analytics/internal/play"
	"github.com/opentempo/play-analytics/internal/rollup"
	"github.com/opentempo/play-analytics/internal/stats"
	"github.com/opentempo/play-analytics/internal/trending"
	"github.com/opentempo/play-analytics/migrations"
	"github.com/opentempo/play-analytics/pkg/kafka"
	"github.com/opentempo/play-analytics/pkg/logger"
	"github.com/opentempo/play-analytics/pkg/postgres"
)

func main() {

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Error loading config: %v", err))
	}

	log, err := logger.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		panic(fmt.Sprintf("Error initializing logger: %v", err))
	}

	defer log.Sync()

	log = logger.WithService(log, "play-service")
	log.Info("Starting Play Service",
		zap.String("environment", cfg.Environment),
		zap.String("http_port", cfg.HTTPPort),
		zap.Duration("dedup_window", cfg.Play.DedupWindow),
	)

	db, err := postgres.New(postgres.Config{
		DSN:             cfg.Postgres.PostgresDSN(),
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime}, log)

	if err != nil {
		log.Fatal("Error initializing postgres client", zap.Error(err))
	}

	defer db.Close()

	if err := db.Migrate(migrations.FS, "."); err != nil {
		log.Fatal("Error applying migrations", zap.Error(err))
	}

	producer, err := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:          cfg.Kafka.Brokers,
		Topic:            cfg.Kafka.Topic,
		Retries:          cfg.Kafka.ProducerRetries,
		Timeout:          cfg.Kafka.ProducerTimeout,
		RequiredAcks:     cfg.Kafka.RequiredAcks,
		Compression:      cfg.Kafka.CompressionType,
		IdempotentWrites: cfg.Kafka.IdempotentWrites,
		MaxMessageBytes:  cfg.Kafka.MaxMessageBytes,
	}, log)

	if err != nil {
		log.Fatal("Error initializing kafka", zap.Error(err))
	}

	defer producer.Close()

	playRepo := play.NewRepository(db, log)
	playService := play.NewService(playRepo, producer, log, cfg.Play.DedupWindow)
	playHandler := play.NewHandler(playService, log)

	rollupRepo := rollup.NewRepository(db.DB, log)
	rollupService := rollup.NewService(rollupRepo, log, cfg.Play.MonthlyWindow, cfg.Play.TopTracks)

	trendingRepo := trending.NewRepository(db.DB, log)
	trendingService := trending.NewService(trendingRepo, log)

	collabRepo := stats.NewCollabRepository(db.DB, log)
	statsService := stats.NewService(rollupService, playService, collabRepo, log)
	statsHandler := stats.NewHandler(statsService, trendingService, log)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if err := db.HealthCheck(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	playHandler.Register(r)
	statsHandler.Register(r)

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Info("Starting HTTP server", zap.String("port", cfg.HTTPPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Error running HTTP server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Warn("shutdown HTTP server timed out", zap.Error(err))
	}

	log.Info("Play Service stopped")
}
