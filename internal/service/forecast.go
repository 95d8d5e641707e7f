package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/weatherapp/weather/internal/domain"
)

// ForecastClient fetches daily forecasts from the Open-Meteo forecast API
type ForecastClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewForecastClient creates a forecast client; baseURL is e.g.
// https://api.open-meteo.com/v1
func NewForecastClient(baseURL string) *ForecastClient {
	return &ForecastClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// openMeteoDaily mirrors the column-oriented "daily" block of the API
type openMeteoDaily struct {
	Daily struct {
		Time           []string  `json:"time"`
		TemperatureMax []float64 `json:"temperature_2m_max"`
		TemperatureMin []float64 `json:"temperature_2m_min"`
		WeatherCode    []int     `json:"weathercode"`
	} `json:"daily"`
}

// Daily returns the daily forecast for a location
func (c *ForecastClient) Daily(ctx context.Context, loc domain.Location) ([]domain.DailyForecast, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "forecast.daily", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.Float64("forecast.latitude", loc.Latitude),
		attribute.Float64("forecast.longitude", loc.Longitude),
	)

	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(loc.Latitude, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(loc.Longitude, 'f', -1, 64))
	q.Set("daily", "temperature_2m_max,temperature_2m_min,weathercode")
	q.Set("timezone", "auto")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/forecast?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("forecast: failed to create request: %w", err)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return nil, fmt.Errorf("forecast: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := httpStatusError{status: resp.StatusCode, body: string(body)}
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("forecast: %w", err)
	}

	var decoded openMeteoDaily
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("forecast: failed to decode response: %w", err)
	}

	d := decoded.Daily
	n := min(len(d.Time), len(d.TemperatureMax), len(d.TemperatureMin))
	days := make([]domain.DailyForecast, n)
	for i := 0; i < n; i++ {
		days[i] = domain.DailyForecast{
			Date:           d.Time[i],
			TemperatureMax: d.TemperatureMax[i],
			TemperatureMin: d.TemperatureMin[i],
		}
		if i < len(d.WeatherCode) {
			days[i].WeatherCode = d.WeatherCode[i]
		}
	}
	span.SetAttributes(attribute.Int("forecast.days", n))
	return days, nil
}
