package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/hibiken/asynq"
	"github.com/skillcart/backend/docs"
	"github.com/skillcart/backend/internal/auth"
	"github.com/skillcart/backend/internal/catalog"
	"github.com/skillcart/backend/internal/config"
	"github.com/skillcart/backend/internal/handlers"
	"github.com/skillcart/backend/internal/keylock"
	"github.com/skillcart/backend/internal/logger"
	"github.com/skillcart/backend/internal/middleware"
	"github.com/skillcart/backend/internal/observability"
	"github.com/skillcart/backend/internal/repositories"
	"github.com/skillcart/backend/internal/services"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

const serviceName = "skillcart-api"

// @title SkillCart Commerce API
// @version 1.0
// @description Course catalog, search, cart, enrollment and learning progress

// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
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

	logger.Logger.Info("Starting SkillCart API")

	shutdownTracing, err := observability.InitTracing(serviceName, cfg.Tracing.Exporter, logger.Logger)
	if err != nil {
		logger.Logger.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	// Connect to database
	db, err := connectDB(cfg.DSN())
	if err != nil {
		logger.Logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	if err := runMigrations(db, cfg.Migrations); err != nil {
		logger.Logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	healthChecks := map[string]handlers.Pinger{"database": db}

	// Enrollment events are published only when Redis is configured
	var events services.EventPublisher = services.NoopEventPublisher{}
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.Logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		healthChecks["redis"] = handlers.PingFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})

		asynqClient := asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer asynqClient.Close()

		events = services.NewAsynqEventPublisher(asynqClient, logger.Logger)
		logger.Logger.Info("Enrollment events enabled", zap.String("queue", services.EventsQueue))
	}

	// Initialize repositories
	courseRepo := repositories.NewCourseRepository(db, logger.Logger)
	cartRepo := repositories.NewCartRepository(db, logger.Logger)
	enrollmentRepo := repositories.NewEnrollmentRepository(db, logger.Logger)
	progressRepo := repositories.NewProgressRepository(db, logger.Logger)

	courseIndex := catalog.NewIndex(courseRepo, cfg.Catalog.CacheTTL, logger.Logger)

	discount, err := services.NewDiscountPolicy(cfg.Cart.DiscountPercent)
	if err != nil {
		logger.Logger.Fatal("Invalid cart discount", zap.Error(err))
	}

	var gateway services.PaymentGateway = services.AutoApproveGateway{}
	if cfg.Payment.GatewayURL != "" {
		gateway = services.NewHTTPPaymentGateway(cfg.Payment.GatewayURL, cfg.Payment.Timeout, logger.Logger)
	} else {
		logger.Logger.Warn("No payment gateway configured, checkouts are auto-approved")
	}

	// Cart and enrollment writes for the same (user, course) share one lock table
	locks := keylock.New()

	// Initialize services
	catalogService := services.NewCatalogService(courseRepo, enrollmentRepo, logger.Logger)
	searchService := services.NewSearchService(courseIndex, logger.Logger)
	cartService := services.NewCartService(cartRepo, courseRepo, enrollmentRepo, locks, discount, logger.Logger)
	enrollmentService := services.NewEnrollmentService(courseRepo, enrollmentRepo, services.CourseCapacityPolicy{}, events, locks, logger.Logger)
	progressService := services.NewProgressService(courseRepo, enrollmentRepo, progressRepo, events, locks, logger.Logger)
	checkoutService := services.NewCheckoutService(cartService, enrollmentService, gateway, cfg.Payment.Currency, locks, logger.Logger)

	// Initialize handlers
	courseHandler := handlers.NewCourseHandler(catalogService, enrollmentService, logger.Logger)
	searchHandler := handlers.NewSearchHandler(searchService, services.DefaultSuggestionLimit, logger.Logger)
	cartHandler := handlers.NewCartHandler(cartService, checkoutService, logger.Logger)
	progressHandler := handlers.NewProgressHandler(progressService, logger.Logger)
	healthHandler := handlers.NewHealthHandler(healthChecks, 2*time.Second, logger.Logger)

	// Initialize auth middleware
	tokenValidator := auth.NewTokenValidator(cfg.Auth.JWTSecret, cfg.Auth.Audience)
	authMiddleware := middleware.AuthMiddleware(tokenValidator)
	optionalAuthMiddleware := middleware.OptionalAuthMiddleware(tokenValidator)

	// Setup router
	r := chi.NewRouter()

	// Apply middleware
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.TracingMiddleware(serviceName))
	r.Use(middleware.LoggerMiddleware(logger.Logger))
	r.Use(middleware.RecoveryMiddleware(logger.Logger))
	r.Use(middleware.CORSMiddleware(cfg.CORS.AllowedOrigins))
	r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RequestsPerMinute))
	r.Use(middleware.RequestSizeLimitMiddleware(middleware.DefaultMaxRequestSize))

	// Swagger documentation
	docs.SwaggerInfo.Host = fmt.Sprintf("localhost:%d", cfg.Server.Port)
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL(fmt.Sprintf("http://localhost:%d/swagger/doc.json", cfg.Server.Port)),
	))

	healthHandler.RegisterRoutes(r)

	// Scope router to /api/v1
	r.Route("/api/v1", func(r chi.Router) {
		courseHandler.RegisterRoutes(r, authMiddleware, optionalAuthMiddleware)
		progressHandler.RegisterRoutes(r, authMiddleware)
		searchHandler.RegisterRoutes(r)
		cartHandler.RegisterRoutes(r, authMiddleware)
	})

	// Start server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Logger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Logger.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := shutdownTracing(ctx); err != nil {
		logger.Logger.Error("Failed to flush traces", zap.Error(err))
	}

	logger.Logger.Info("Server exited")
}

// connectDB connects to the database
func connectDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// runMigrations applies pending migrations from migrationPath
func runMigrations(db *sql.DB, migrationPath string) error {
	driver, err := mysql.WithInstance(db, &mysql.Config{
		MigrationsTable: "skillcart_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(migrationPath, "mysql", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
