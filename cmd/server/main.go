package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/weatherapp/weather/internal/delivery/http"
	"github.com/weatherapp/weather/internal/logging"
	"github.com/weatherapp/weather/internal/repository/postgres"
	"github.com/weatherapp/weather/internal/repository/redis"
	"github.com/weatherapp/weather/internal/scheduler"
	"github.com/weatherapp/weather/internal/service"
	"github.com/weatherapp/weather/internal/telemetry"
)

type flusher interface {
	service.Cache
	Flush(ctx context.Context) (int, error)
}

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	// Configuration
	cfg := loadConfig()

	logger, logFiles, err := logging.New(cfg.LogPath, logging.ParseLevel(cfg.LogLevel), os.Stdout)
	if err != nil {
		log.Fatalf("Could not open log files: %v", err)
	}
	defer logFiles.Close()
	slog.SetDefault(logger)

	shutdownTracer, err := telemetry.Setup("weather-api", cfg.ZipkinEndpoint)
	if err != nil {
		slog.Error("tracing disabled", "error", err)
		shutdownTracer = func(context.Context) error { return nil }
	}

	// Database connection
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		pool, err = pgxpool.New(ctx, cfg.DatabaseURL)
		if err == nil {
			err = pool.Ping(ctx)
		}
		if err != nil {
			slog.Warn("could not connect to database, using in-memory storage", "error", err)
			if pool != nil {
				pool.Close()
			}
			pool = nil
		} else {
			defer pool.Close()
			slog.Info("connected to PostgreSQL")
		}
	}

	// Dependency Injection: Repositories
	var dataRepo service.DataRepository
	if pool != nil {
		pg := postgres.NewPostgresRepository(pool)
		if err := pg.Migrate(ctx); err != nil {
			slog.Error("database migration failed", "error", err)
			os.Exit(1)
		}
		dataRepo = pg
	} else {
		dataRepo = postgres.NewMockRepository()
	}

	var cache flusher = redis.NewMockCache()
	if cfg.RedisURL != "" {
		rdb, err := redis.Connect(ctx, cfg.RedisURL)
		if err != nil {
			slog.Warn("could not connect to redis, using in-memory cache", "error", err)
		} else {
			defer rdb.Close()
			cache = redis.NewCache(rdb)
			slog.Info("connected to Redis")
		}
	}

	// Dependency Injection: Services
	geocoder := service.NewGeocodingClient(cfg.GeocodingAPIURL)
	forecaster := service.NewForecastClient(cfg.ForecastAPIURL)
	weatherSvc := service.NewWeatherService(geocoder, forecaster, cache, dataRepo, cfg.CacheTTL)
	logStore := logging.NewStore(cfg.LogPath)

	jobs, err := scheduler.New(dataRepo, logStore, scheduler.Options{LogRetentionDays: cfg.LogRetentionDays})
	if err != nil {
		slog.Error("could not create scheduler", "error", err)
		os.Exit(1)
	}
	jobs.Start()

	if cfg.AuthToken == "" {
		slog.Warn("AUTH_TOKEN is not set, protected routes will reject every request")
	}

	// Fiber App
	app := http.NewApp(http.Config{
		WeatherSvc:     weatherSvc,
		Repo:           dataRepo,
		Logs:           logStore,
		Cache:          cache,
		Metrics:        http.NewMetrics(),
		AuthToken:      cfg.AuthToken,
		FrontendPath:   cfg.FrontendPath,
		SessionTTL:     cfg.SessionTTL,
		SecureCookies:  cfg.Env == "production",
		AllowedOrigins: cfg.AllowedOrigins,
	})

	// Graceful shutdown
	go func() {
		slog.Info("server starting", "port", cfg.Port, "mode", cfg.Env)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	// Drain background history writes before closing the pool
	weatherSvc.WaitBackground()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	jobs.Stop(stopCtx)
	if n, err := cache.Flush(stopCtx); err != nil {
		slog.Error("cache flush failed", "error", err)
	} else {
		slog.Info("cache flushed", "keys", n)
	}
	if err := shutdownTracer(stopCtx); err != nil {
		slog.Error("tracer shutdown failed", "error", err)
	}
	slog.Info("server exited gracefully")
}

type Config struct {
	DatabaseURL      string
	RedisURL         string
	ForecastAPIURL   string
	GeocodingAPIURL  string
	LogPath          string
	LogLevel         string
	LogRetentionDays int
	FrontendPath     string
	AuthToken        string
	ZipkinEndpoint   string
	AllowedOrigins   string
	CacheTTL         time.Duration
	SessionTTL       time.Duration
	Port             string
	Env              string
}

func loadConfig() *Config {
	return &Config{
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		RedisURL:         getEnv("REDIS_URL", ""),
		ForecastAPIURL:   getEnv("OPENMETEO_API_URL", "https://api.open-meteo.com/v1"),
		GeocodingAPIURL:  getEnv("OPENMETEO_GEOCODING_API_URL", "https://geocoding-api.open-meteo.com/v1"),
		LogPath:          getEnv("LOG_PATH", "logs"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogRetentionDays: getEnvInt("LOG_RETENTION_DAYS", 30),
		FrontendPath:     getEnv("FRONTEND_PATH", "frontend"),
		AuthToken:        getEnv("AUTH_TOKEN", ""),
		ZipkinEndpoint:   getEnv("ZIPKIN_ENDPOINT", ""),
		AllowedOrigins:   getEnv("ALLOWED_ORIGINS", "*"),
		CacheTTL:         getEnvDuration("CACHE_TTL", 10*time.Minute),
		SessionTTL:       getEnvDuration("SESSION_TTL", 7*24*time.Hour),
		Port:             getEnv("PORT", "3000"),
		Env:              getEnv("APP_MODE", "development"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return defaultValue
}
