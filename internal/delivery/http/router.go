package http

import (
	"os"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/weatherapp/weather/internal/logging"
	"github.com/weatherapp/weather/internal/service"
)

// ListCacheTTL is how long log date listings stay cached
const ListCacheTTL = time.Hour

// Config carries everything the HTTP layer depends on
type Config struct {
	WeatherSvc     *service.WeatherService
	Repo           service.DataRepository
	Logs           *logging.Store
	Cache          service.Cache
	Metrics        *Metrics
	AuthToken      string
	FrontendPath   string
	SessionTTL     time.Duration
	SecureCookies  bool
	AllowedOrigins string
}

// NewApp builds the fiber application with middleware and routes
func NewApp(cfg Config) *fiber.App {
	if cfg.Metrics == nil {
		cfg.Metrics = NewMetrics()
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 7 * 24 * time.Hour
	}
	if cfg.AllowedOrigins == "" {
		cfg.AllowedOrigins = "*"
	}

	app := fiber.New(fiber.Config{
		AppName:      "Weather API v1.0",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		Immutable:    true,
		ErrorHandler: ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(RequestParams())
	app.Use(AccessLog())
	app.Use(cfg.Metrics.Middleware())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowedOrigins,
		AllowMethods: "GET,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	SetupRoutes(app, cfg)
	return app
}

// SetupRoutes configures all HTTP routes
func SetupRoutes(app *fiber.App, cfg Config) {
	handler := NewHandler(cfg.WeatherSvc, cfg.Repo, cfg.Logs, cfg.Cache)
	auth := RequireAuth(cfg.AuthToken)
	cached := Cached(cfg.Cache, cfg.Metrics, ListCacheTTL)

	app.Get("/metrics", cfg.Metrics.Handler())

	if cfg.FrontendPath != "" {
		if info, err := os.Stat(cfg.FrontendPath); err == nil && info.IsDir() {
			app.Static("/static", cfg.FrontendPath)
			index := filepath.Join(cfg.FrontendPath, "index.html")
			app.Get("/", func(c *fiber.Ctx) error {
				return c.SendFile(index)
			})
		}
	}

	api := app.Group("/api")
	{
		api.Get("/health", handler.HealthCheck)
		api.Get("/help", handler.Help)
		api.Get("/", func(c *fiber.Ctx) error {
			return c.Redirect("/api/help", fiber.StatusFound)
		})

		// Log files
		api.Get("/logs", auth, cached, handler.ListLogDates(logging.KindLog))
		api.Get("/logs/:date", auth, handler.GetLogContent(logging.KindLog))
		api.Delete("/logs/:date", auth, handler.DeleteLog(logging.KindLog, "/api/logs"))
		api.Get("/exceptions", auth, cached, handler.ListLogDates(logging.KindException))
		api.Get("/exceptions/:date", auth, handler.GetLogContent(logging.KindException))
		api.Delete("/exceptions/:date", auth, handler.DeleteLog(logging.KindException, "/api/exceptions"))
	}

	v1 := app.Group("/api/v1", Session(cfg.Repo, cfg.SessionTTL, cfg.SecureCookies))
	{
		v1.Get("/weather/:city", handler.GetWeather)
		v1.Get("/history/:session_id", auth, handler.GetHistory)
	}
}
