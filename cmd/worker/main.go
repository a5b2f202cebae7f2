package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"
	"github.com/skillcart/backend/internal/config"
	"github.com/skillcart/backend/internal/logger"
	"github.com/skillcart/backend/internal/repositories"
	"github.com/skillcart/backend/internal/services"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v\n", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v\n", err)
	}
	defer logger.Sync()

	logger.Logger.Info("Starting SkillCart Worker")

	if cfg.Redis.Addr == "" {
		logger.Logger.Fatal("REDIS_ADDR is required for the worker")
	}

	// Connect to database
	db, err := connectDB(cfg.DSN())
	if err != nil {
		logger.Logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Connect to Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	// Test Redis connection
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		logger.Logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}

	courseRepo := repositories.NewCourseRepository(db, logger.Logger)

	// Create Asynq server
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Queues: map[string]int{
				services.EventsQueue: 1,
			},
			Logger: logger.Logger.Sugar(),
		},
	)

	worker := NewWorker(logger.Logger, courseRepo)

	// Register task handlers
	mux := asynq.NewServeMux()
	mux.HandleFunc(services.TaskEnrollmentCreated, worker.HandleEnrollmentCreated)
	mux.HandleFunc(services.TaskCourseCompleted, worker.HandleCourseCompleted)

	// Start worker
	go func() {
		if err := srv.Run(mux); err != nil {
			logger.Logger.Fatal("Failed to start worker", zap.Error(err))
		}
	}()

	// Periodic reconciliation of student counters
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Worker.RecountSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := worker.RecountStudents(ctx); err != nil {
			logger.Logger.Error("Student recount failed", zap.Error(err))
		}
	}); err != nil {
		logger.Logger.Fatal("Invalid WORKER_RECOUNT_SCHEDULE", zap.String("schedule", cfg.Worker.RecountSchedule), zap.Error(err))
	}
	scheduler.Start()

	logger.Logger.Info("Worker started",
		zap.String("queue", services.EventsQueue),
		zap.String("recount_schedule", cfg.Worker.RecountSchedule))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info("Shutting down worker...")
	<-scheduler.Stop().Done()
	srv.Shutdown()
	logger.Logger.Info("Worker exited")
}

// connectDB connects to the database
func connectDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
