package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	appControllers "github.com/aliyavuz/registrar/internal/app/controllers"
	appMigrations "github.com/aliyavuz/registrar/internal/app/migrations"
	appModels "github.com/aliyavuz/registrar/internal/app/models"
	appRepos "github.com/aliyavuz/registrar/internal/app/repositories"
	appRoutes "github.com/aliyavuz/registrar/internal/app/routes"
	appServices "github.com/aliyavuz/registrar/internal/app/services"
	"github.com/aliyavuz/registrar/internal/config"
	"github.com/aliyavuz/registrar/internal/db"
	"github.com/aliyavuz/registrar/internal/pkg/logger"
	"github.com/aliyavuz/registrar/internal/seed"
)

// Dependencies holds all the application dependencies
type Dependencies struct {
	Repos                *appRepos.Repositories
	AllocationService    *appServices.AllocationService
	EnrollmentService    *appServices.EnrollmentService
	CourseService        *appServices.CourseService
	PromotionDispatcher  *appServices.PromotionDispatcher
	AllocationController *appControllers.AllocationController
	EnrollmentController *appControllers.EnrollmentController
	CourseController     *appControllers.CourseController
	Logger               zerolog.Logger
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	configPath := filepath.Join("configs", "config.yaml")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.LogLevel(strings.ToLower(cfg.Logging.Level))
	prettyLog := strings.ToLower(cfg.Logging.Format) == "text"

	logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: prettyLog,
	})

	lgr := log.Logger
	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase establishes the database connection and runs migrations.
func SetupDatabase(cfg *config.Config, lgr zerolog.Logger) (*pgxpool.Pool, error) {
	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	dbPool := database.Pool

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := dbPool.Ping(ctx); err != nil {
		lgr.Error().Err(err).Msg("Failed to ping database")
		dbPool.Close()
		return nil, err
	}
	lgr.Info().Msg("Database connection successfully established.")

	lgr.Info().Msg("Running database migrations...")
	migrator := appMigrations.NewMigrator(dbPool)

	migrationsDir := "migrations"
	if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
		lgr.Error().Str("path", migrationsDir).Msg("Migrations directory not found")
		return nil, fmt.Errorf("migrations directory not found at %s: %w", migrationsDir, err)
	}

	if err := migrator.MigrateFromDirectory(migrationsDir); err != nil {
		lgr.Error().Err(err).Msg("Database migration error")
		return nil, fmt.Errorf("database migrations failed: %w", err)
	}

	lgr.Info().Msg("Database migrations successfully applied.")

	// Demo catalog and students for local development only
	if strings.ToLower(cfg.Server.Mode) != "production" {
		if err := seed.CreateDefaultData(context.Background(), dbPool, lgr); err != nil {
			lgr.Error().Err(err).Msg("Failed to create default data, proceeding anyway...")
		}
	}

	return dbPool, nil
}

// BuildDependencies initializes application repositories, services, and controllers.
func BuildDependencies(cfg *config.Config, dbPool *pgxpool.Pool, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: lgr}

	deps.Repos = appRepos.NewRepositories(dbPool)

	deps.AllocationService = appServices.NewAllocationService(
		deps.Repos.CourseRepository,
		deps.Repos.RequestRepository,
		deps.Repos.StudentRepository,
		deps.Repos.AllocationRepository,
		appServices.AllocationOptions{
			DefaultCreditLimit:   cfg.Allocation.DefaultCreditLimit,
			ValidationAbortRatio: cfg.Allocation.ValidationAbortRatio,
		},
		logger.Component("allocation"),
	)

	deps.PromotionDispatcher = appServices.NewPromotionDispatcher(
		deps.AllocationService.HandlePromotion,
		cfg.Allocation.PromotionQueueSize,
		logger.Component("promotion"),
	)

	deps.EnrollmentService = appServices.NewEnrollmentService(
		deps.Repos.RequestRepository,
		deps.Repos.StudentRepository,
		logger.Component("enrollment"),
	)

	deps.CourseService = appServices.NewCourseService(
		deps.Repos.CourseRepository,
		deps.PromotionDispatcher,
		logger.Component("catalog"),
	)

	deps.AllocationController = appControllers.NewAllocationController(
		deps.AllocationService,
		deps.PromotionDispatcher,
		cfg.Academic.Year,
		appModels.Term(cfg.Academic.Term),
	)
	deps.EnrollmentController = appControllers.NewEnrollmentController(deps.EnrollmentService)
	deps.CourseController = appControllers.NewCourseController(deps.CourseService)

	return deps, nil
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	if strings.ToLower(cfg.Server.Mode) == "production" {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	router := gin.Default()

	appRoutes.SetupRouter(router,
		deps.CourseController,
		deps.EnrollmentController,
		deps.AllocationController,
	)

	// Test endpoint
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong", "status": "success"})
	})

	return router
}
