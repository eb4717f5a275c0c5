package app

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sahilchouksey/studyhub-api/api"
	"github.com/sahilchouksey/studyhub-api/config"
	"github.com/sahilchouksey/studyhub-api/database"
	"github.com/sahilchouksey/studyhub-api/router"
	"github.com/sahilchouksey/studyhub-api/services"
	"github.com/sahilchouksey/studyhub-api/services/cron"
	"github.com/sahilchouksey/studyhub-api/services/storage"
	"github.com/sahilchouksey/studyhub-api/utils/auth"
	"github.com/sahilchouksey/studyhub-api/utils/cache"
	"github.com/sahilchouksey/studyhub-api/utils/logger"
	"github.com/sahilchouksey/studyhub-api/utils/middleware"
)

// Runtime is the set of long-lived dependencies shared by the server and the CLI
type Runtime struct {
	Env   *config.EnvironmentVariables
	Store *database.GORMStore
	Files storage.FileStore
	Redis *cache.RedisCache
}

// Bootstrap loads configuration, initializes logging and connects to the
// database and file storage. Redis is optional and left nil when unreachable.
func Bootstrap() (*Runtime, error) {
	envErr := config.LoadENV()

	getEnv, err := config.Get()
	if err != nil {
		return nil, err
	}

	logger.Init(logger.Config{
		Level:      getEnv.LOG_LEVEL,
		JSONOutput: strings.EqualFold(getEnv.LOG_FORMAT, "json"),
	})
	if envErr != nil {
		logger.Logger.Warn().Err(envErr).Msg(".env file not loaded, using process environment")
	}

	store, err := database.StartGORM()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", getEnv.DB_TYPE, err)
	}

	files, err := storage.New(getEnv)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize file storage: %w", err)
	}

	redisCache, err := cache.NewRedisCache(getEnv.REDIS_URL, getEnv.REDIS_PASSWORD)
	if err != nil {
		logger.Logger.Warn().Err(err).Msg("redis unavailable; brute force protection, list caching and job locks are disabled")
		redisCache = nil
	}

	return &Runtime{Env: getEnv, Store: store, Files: files, Redis: redisCache}, nil
}

// Close releases the database and redis connections
func (r *Runtime) Close() {
	if r.Redis != nil {
		r.Redis.Close()
	}
	r.Store.Close()
}

func SetupAndRunServer() error {
	rt, err := Bootstrap()
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.Store.Init(); err != nil {
		return fmt.Errorf("failed to initialize database tables: %w", err)
	}

	if rt.Env.JWT_SECRET == "" {
		return fmt.Errorf("JWT_SECRET environment variable is not set")
	}
	jwtManager := auth.NewJWTManager(auth.JWTConfig{
		Secret:        rt.Env.JWT_SECRET,
		Expiry:        rt.Env.JWT_ACCESS_EXPIRY,
		RefreshExpiry: rt.Env.JWT_REFRESH_EXPIRY,
		Issuer:        rt.Env.JWT_ISSUER,
	})

	// Initialize Cron Manager (only if enabled via environment variable)
	var cronManager *cron.CronManager
	if rt.Env.ENABLE_CRON {
		maintenance := services.NewMaintenanceService(rt.Store.GetDB(), rt.Files)
		cronManager = cron.NewCronManager(rt.Store.GetDB(), maintenance, rt.Redis)
		if err := cronManager.Start(); err != nil {
			// Don't fail the app, just log the warning
			logger.Logger.Warn().Err(err).Msg("failed to start cron jobs")
			cronManager = nil
		}
	}
	defer func() {
		if cronManager != nil {
			cronManager.Stop()
		}
	}()

	// Init API
	server := api.NewAPIServer(fmt.Sprintf(":%d", rt.Env.PORT), rt.Env.MAX_UPLOAD_MB)
	app := server.GetEngine()

	router.SetupRoutes(app, router.Config{
		Store:       rt.Store,
		Files:       rt.Files,
		JWTManager:  jwtManager,
		Redis:       rt.Redis,
		Mailer:      services.NewEmailService(rt.Env),
		MaxUploadMB: rt.Env.MAX_UPLOAD_MB,
		Security: &middleware.SecurityConfig{
			AllowedOrigins:    rt.Env.CORS_ORIGINS,
			RateLimitRequests: 100,
			RateLimitWindow:   time.Minute,
		},
		Metrics: true,
	})

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Logger.Info().Msg("shutting down")
		if err := server.Shutdown(); err != nil {
			logger.Logger.Error().Err(err).Msg("shutdown failed")
		}
	}()

	return server.Run()
}
