package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/weatherapp/weather/internal/domain"
	"github.com/weatherapp/weather/pkg/utils"
)

// ErrCityNotFound is returned when geocoding yields no location
var ErrCityNotFound = errors.New("city not found")

// Locator resolves a city name to a location
type Locator interface {
	Locate(ctx context.Context, city string) (*domain.Location, error)
}

// DailyFetcher fetches the daily forecast for a location
type DailyFetcher interface {
	Daily(ctx context.Context, loc domain.Location) ([]domain.DailyForecast, error)
}

// WeatherService resolves cities, fetches forecasts and records history
type WeatherService struct {
	locator  Locator
	forecast DailyFetcher
	cache    Cache
	repo     DataRepository
	cacheTTL time.Duration

	wgBg sync.WaitGroup // tracks background history writes for graceful shutdown
}

// NewWeatherService creates a new weather service
func NewWeatherService(locator Locator, forecast DailyFetcher, cache Cache, repo DataRepository, cacheTTL time.Duration) *WeatherService {
	return &WeatherService{
		locator:  locator,
		forecast: forecast,
		cache:    cache,
		repo:     repo,
		cacheTTL: cacheTTL,
	}
}

// WaitBackground blocks until all background history writes complete.
func (s *WeatherService) WaitBackground() {
	s.wgBg.Wait()
}

func forecastKey(loc domain.Location) string {
	return fmt.Sprintf("forecast:%.2f,%.2f", utils.RoundTo(loc.Latitude, 2), utils.RoundTo(loc.Longitude, 2))
}

// GetForecast returns the daily forecast for a city
func (s *WeatherService) GetForecast(ctx context.Context, city string) (domain.Forecast, error) {
	loc, err := s.locator.Locate(ctx, city)
	if err != nil {
		return domain.Forecast{}, fmt.Errorf("weather: failed to locate %q: %w", city, err)
	}
	if loc == nil {
		return domain.Forecast{}, ErrCityNotFound
	}

	forecast := domain.Forecast{
		Latitude:  loc.Latitude,
		Longitude: loc.Longitude,
		City:      loc.Name,
		Country:   loc.Country,
	}

	key := forecastKey(*loc)
	if days, ok := s.cachedDays(ctx, key); ok {
		forecast.Daily = days
		return forecast, nil
	}

	days, err := s.forecast.Daily(ctx, *loc)
	if err != nil {
		return domain.Forecast{}, fmt.Errorf("weather: failed to fetch forecast: %w", err)
	}
	forecast.Daily = days

	if payload, err := json.Marshal(days); err == nil {
		if err := s.cache.Set(ctx, key, payload, s.cacheTTL); err != nil {
			slog.Warn("forecast cache write failed", "key", key, "error", err)
		}
	}
	return forecast, nil
}

func (s *WeatherService) cachedDays(ctx context.Context, key string) ([]domain.DailyForecast, bool) {
	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		slog.Warn("forecast cache read failed", "key", key, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var days []domain.DailyForecast
	if err := json.Unmarshal(raw, &days); err != nil {
		slog.Warn("forecast cache entry corrupt", "key", key, "error", err)
		return nil, false
	}
	return days, true
}

// RecordSearch stores a history entry asynchronously. The requested city
// name is kept as typed, the rest comes from the resolved location.
func (s *WeatherService) RecordSearch(sessionID, city string, f domain.Forecast) {
	if sessionID == "" {
		return
	}
	s.wgBg.Add(1)
	go func() {
		defer s.wgBg.Done()
		bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := s.repo.AddHistory(bgCtx, domain.History{
			SessionID: sessionID,
			City:      city,
			Country:   f.Country,
			Latitude:  f.Latitude,
			Longitude: f.Longitude,
			CreatedAt: time.Now().UTC(),
		})
		if err != nil {
			slog.Error("failed to save history", "session_id", sessionID, "error", err)
		}
	}()
}

// History returns a session's searches, newest first
func (s *WeatherService) History(ctx context.Context, sessionID string, limit int) ([]domain.History, error) {
	limit = utils.Clamp(limit, 1, 500)
	return s.repo.GetHistory(ctx, sessionID, limit)
}
