package http

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/weatherapp/weather/internal/domain"
	"github.com/weatherapp/weather/internal/logging"
	"github.com/weatherapp/weather/internal/service"
)

// Handler contains all HTTP handlers
type Handler struct {
	weatherSvc *service.WeatherService
	repo       service.DataRepository
	logs       *logging.Store
	cache      service.Cache
}

// NewHandler creates a new handler
func NewHandler(weatherSvc *service.WeatherService, repo service.DataRepository, logs *logging.Store, cache service.Cache) *Handler {
	return &Handler{
		weatherSvc: weatherSvc,
		repo:       repo,
		logs:       logs,
		cache:      cache,
	}
}

func componentStatus(err error) string {
	if err != nil {
		return "down"
	}
	return "up"
}

// HealthCheck reports the service and its storage backends. Any backend
// down turns the answer into a 503.
func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
	defer cancel()

	components := fiber.Map{}
	healthy := true
	if h.repo != nil {
		err := h.repo.Health(ctx)
		if err != nil {
			slog.Warn("database health check failed", "error", err)
			healthy = false
		}
		components["database"] = componentStatus(err)
	}
	if h.cache != nil {
		err := h.cache.Ping(ctx)
		if err != nil {
			slog.Warn("cache health check failed", "error", err)
			healthy = false
		}
		components["cache"] = componentStatus(err)
	}

	if !healthy {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status":     "error",
			"message":    "service is degraded",
			"components": components,
		})
	}
	return c.JSON(fiber.Map{
		"status":     "success",
		"message":    "service is up",
		"components": components,
	})
}

// Help points to the available API surface
func (h *Handler) Help(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "success",
		"message": "weather: GET /api/v1/weather/{city}; history: GET /api/v1/history/{session_id}",
	})
}

// GetWeather returns the daily forecast for a city
func (h *Handler) GetWeather(c *fiber.Ctx) error {
	ctx := c.Context()

	city, err := url.PathUnescape(c.Params("city"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid city")
	}
	city = strings.TrimSpace(city)
	if city == "" {
		return fiber.NewError(fiber.StatusBadRequest, "City is required")
	}

	forecast, err := h.weatherSvc.GetForecast(ctx, city)
	if errors.Is(err, service.ErrCityNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(domain.ErrorResponse{
			Status:  "error",
			Message: "city not found",
		})
	}
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, "Failed to fetch weather data")
	}

	h.weatherSvc.RecordSearch(sessionID(c), city, forecast)

	return c.JSON(domain.WeatherResponse{
		Status:  "success",
		Message: "Weather for " + city,
		Weather: forecast,
	})
}

// GetHistory returns the search history of a session
func (h *Handler) GetHistory(c *fiber.Ctx) error {
	ctx := c.Context()

	limit := c.QueryInt("limit", 100)
	history, err := h.weatherSvc.History(ctx, c.Params("session_id"), limit)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch history")
	}
	if len(history) == 0 {
		return c.Status(fiber.StatusNotFound).JSON(domain.ErrorResponse{
			Status:  "error",
			Message: "history not found",
		})
	}

	return c.JSON(domain.HistoryResponse{
		Status:  "success",
		Message: "history found",
		History: history,
	})
}

func logError(err error) error {
	switch {
	case errors.Is(err, logging.ErrInvalidDate):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, logging.ErrCurrentDay):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, logging.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to access log files")
	}
}

// ListLogDates returns the days that have a file of the given kind
func (h *Handler) ListLogDates(kind logging.Kind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		dates, err := h.logs.Dates(kind)
		if err != nil {
			return logError(err)
		}
		return c.JSON(fiber.Map{
			"status": "success",
			"dates":  dates,
		})
	}
}

// GetLogContent returns the parsed entries of one day
func (h *Handler) GetLogContent(kind logging.Kind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		content, err := h.logs.Content(kind, c.Params("date"))
		if err != nil {
			return logError(err)
		}
		return c.JSON(content)
	}
}

// DeleteLog removes one day's file and invalidates the cached date list
func (h *Handler) DeleteLog(kind logging.Kind, listPath string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		date := c.Params("date")
		if err := h.logs.Delete(kind, date); err != nil {
			return logError(err)
		}
		if err := h.cache.Delete(c.Context(), "cache:GET:"+listPath); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to invalidate cache")
		}
		return c.JSON(fiber.Map{
			"status":  "success",
			"message": "log file for date " + date + " deleted successfully",
		})
	}
}
