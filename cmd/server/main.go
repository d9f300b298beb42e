package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"propwatch/server/config"
	"propwatch/server/internal/api"
	"propwatch/server/internal/geofence"
	"propwatch/server/internal/listing"
	"propwatch/server/internal/models"
	"propwatch/server/internal/processor"
	"propwatch/server/internal/queue"
	"propwatch/server/internal/scheduler"
	"propwatch/server/internal/search"
	"propwatch/server/internal/store"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			logger.WithError(err).Fatal("Failed to create database directory")
		}
	}
	logger.Infof("Using database at: %s", cfg.DatabasePath)

	db, err := gorm.Open(sqlite.Open(cfg.DatabasePath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to open database")
	}

	logger.Info("Running database migrations...")
	if err := models.Migrate(db); err != nil {
		logger.WithError(err).Fatal("Failed to run database migrations")
	}

	client, err := listing.NewClient(listing.Options{
		BaseURL:         cfg.Upstream.BaseURL,
		Timeout:         time.Duration(cfg.Upstream.Timeout) * time.Second,
		MaxRetries:      cfg.Upstream.MaxRetries,
		RetryDelay:      time.Duration(cfg.Upstream.RetryDelay) * time.Second,
		RegionCacheSize: cfg.Upstream.RegionCacheSize,
	}, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create listing client")
	}

	st := store.NewStore(db, logger)

	summaryQueue := queue.NewSummaryQueue(cfg.Ingest.QueueSize, logger)
	writer := processor.NewBatchWriter(st, summaryQueue, processor.Options{
		WriterCount: cfg.Ingest.WriterCount,
		MaxRetries:  cfg.Ingest.MaxRetries,
		RetryDelay:  time.Duration(cfg.Ingest.RetryDelay) * time.Second,
	}, logger)
	writer.Start()

	searcher := search.NewSearcher(client, st, summaryQueue, search.Options{
		ResultCap:       cfg.Search.ResultCap,
		MaxDepth:        cfg.Search.MaxDepth,
		MaxInFlight:     cfg.Search.MaxInFlight,
		DetailBatchSize: cfg.Ingest.DetailBatchSize,
	}, logger)

	engine := geofence.NewEngine(db, st, cfg.Geofence.ShapeDir, cfg.Geofence.ExclusionDir, logger)

	sched := scheduler.NewScheduler(searcher, engine, cfg, logger)
	sched.Start()

	handler := api.NewHandler(st, sched, cfg.Geofence.MaxTravelTime, logger)
	router := gin.New()
	router.Use(gin.Recovery())
	api.SetupRoutes(router, handler)

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}
	go func() {
		logger.Infof("Starting server on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down...")

	sched.Stop()
	summaryQueue.Close()
	writer.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server shutdown failed")
	}
}
