package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	appControllers "github.com/yigit/seatallot/internal/app/controllers"
	appMigrations "github.com/yigit/seatallot/internal/app/migrations"
	"github.com/yigit/seatallot/internal/app/models"
	appRepos "github.com/yigit/seatallot/internal/app/repositories"
	appRoutes "github.com/yigit/seatallot/internal/app/routes"
	appServices "github.com/yigit/seatallot/internal/app/services"
	"github.com/yigit/seatallot/internal/config"
	"github.com/yigit/seatallot/internal/db"
	appMiddleware "github.com/yigit/seatallot/internal/middleware"
	"github.com/yigit/seatallot/internal/pkg/apperrors"
	pkgAuth "github.com/yigit/seatallot/internal/pkg/auth"
	"github.com/yigit/seatallot/internal/pkg/logger"
	"github.com/yigit/seatallot/internal/pkg/roundlock"
	"github.com/yigit/seatallot/internal/seed"
)

const lockKeyPrefix = "seatallot:lock:"

// Dependencies holds all the application dependencies
type Dependencies struct {
	Store                appRepos.Store
	Engine               *appServices.AllocationEngine
	Orchestrator         *appServices.RoundOrchestrator
	DecisionService      *appServices.DecisionService
	InventoryService     *appServices.InventoryService
	PreviewService       *appServices.PreviewService
	AuthService          *appServices.AuthService
	AuthController       *appControllers.AuthController
	SeatController       *appControllers.SeatController
	AllocationController *appControllers.AllocationController
	AuthMiddleware       *appMiddleware.AuthMiddleware
	JWTService           *pkgAuth.JWTService
	Redis                *redis.Client // nil when the round lock is in-process
	Logger               zerolog.Logger
}

// DefaultConfigPath is used when no --config flag is given
var DefaultConfigPath = filepath.Join("configs", "config.yaml")

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger(configPath string) (*config.Config, zerolog.Logger, error) {
	if configPath == "" {
		configPath = DefaultConfigPath
	}
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

	lgr := log.Logger // Get the configured global logger
	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase establishes the database connection, runs migrations and
// imports the seed data when the tables are empty.
func SetupDatabase(cfg *config.Config, lgr zerolog.Logger) (*db.PostgresDB, error) {
	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	lgr.Info().Msg("Database connection successfully established.")

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	lgr.Info().Msg("Running database migrations...")
	migrator := appMigrations.NewMigrator(database.Pool, lgr)
	if err := migrator.Migrate(ctx); err != nil {
		lgr.Error().Err(err).Msg("Database migration error")
		database.Close()
		return nil, fmt.Errorf("database migrations failed: %w", err)
	}
	lgr.Info().Msg("Database migrations successfully applied.")

	if dir := cfg.Allocation.SeedDir; dir != "" {
		store := appRepos.NewPostgresStore(database)
		if err := seed.Import(ctx, store, dir, cfg.Allocation.MaxChoices, lgr); err != nil {
			// Log the error but don't fail the startup
			lgr.Error().Err(err).Str("dir", dir).Msg("Failed to import seed data, proceeding anyway...")
		}
	}

	return database, nil
}

// categoryOrder converts the configured category codes
func categoryOrder(codes []string) []models.Category {
	order := make([]models.Category, 0, len(codes))
	for _, code := range codes {
		order = append(order, models.NormalizeCategory(code))
	}
	return order
}

// setupRoundLock returns the Redis lock when enabled, the in-process lock otherwise
func setupRoundLock(cfg *config.Config, lgr zerolog.Logger) (appServices.RoundLocker, *redis.Client, error) {
	if !cfg.Redis.Enabled {
		lgr.Info().Msg("Redis disabled, using in-process round lock")
		return roundlock.NewLocalLock(), nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Address, err)
	}

	lgr.Info().Str("address", cfg.Redis.Address).Msg("Using Redis round lock")
	return roundlock.NewRedisLock(client, lockKeyPrefix, cfg.Redis.LockTTL), client, nil
}

// BuildDependencies initializes application repositories, services, and controllers.
func BuildDependencies(cfg *config.Config, database *db.PostgresDB, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: lgr}

	deps.Store = appRepos.NewPostgresStore(database)

	locker, redisClient, err := setupRoundLock(cfg, lgr)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to set up round lock")
		return nil, err
	}
	deps.Redis = redisClient

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:      cfg.JWT.Secret,
		AccessTokenExp: cfg.AccessTokenTTL(),
		TokenIssuer:    cfg.JWT.Issuer,
	})

	// Initialize services
	deps.Engine = appServices.NewAllocationEngine(deps.Store, appServices.EnginePolicy{
		MaxChoices: cfg.Allocation.MaxChoices,
		SkipLocked: cfg.Allocation.SkipLocked,
	}, lgr)
	deps.Orchestrator = appServices.NewRoundOrchestrator(deps.Engine, locker, categoryOrder(cfg.Allocation.CategoryOrder), lgr)
	deps.DecisionService = appServices.NewDecisionService(deps.Store, lgr)
	deps.InventoryService = appServices.NewInventoryService(deps.Store, lgr)
	deps.PreviewService = appServices.NewPreviewService(deps.Store, deps.Engine, deps.Orchestrator)
	deps.AuthService = appServices.NewAuthService(deps.Store.Applicants(), deps.JWTService, appServices.AdminCredentials{
		Email:        cfg.Admin.Email,
		PasswordHash: cfg.Admin.PasswordHash,
	}, lgr)

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService)

	deps.AuthController = appControllers.NewAuthController(deps.AuthService, lgr)
	deps.SeatController = appControllers.NewSeatController(deps.DecisionService, lgr)
	deps.AllocationController = appControllers.NewAllocationController(
		deps.Orchestrator,
		deps.PreviewService,
		deps.InventoryService,
		lgr,
	)

	return deps, nil
}

// ReconcileInventory recomputes the seat counters before the first round.
// Halted rows are logged and do not stop the startup.
func ReconcileInventory(ctx context.Context, cfg *config.Config, deps *Dependencies) {
	if !cfg.Allocation.ReconcileOnStart {
		return
	}
	_, err := deps.InventoryService.Reconcile(ctx)
	switch {
	case errors.Is(err, apperrors.ErrInconsistentInventory):
		deps.Logger.Warn().Err(err).Msg("Startup reconciliation halted inventory rows")
	case err != nil:
		deps.Logger.Error().Err(err).Msg("Startup reconciliation failed")
	}
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

	router := gin.New()
	router.Use(gin.Recovery(), appMiddleware.RequestLogger(lgr))

	appRoutes.SetupRouter(router,
		deps.AuthController,
		deps.SeatController,
		deps.AllocationController,
		deps.AuthMiddleware,
	)

	// Test endpoint
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong", "status": "success"})
	})

	return router
}
