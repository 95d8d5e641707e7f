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

const tracerName = "github.com/weatherapp/weather/internal/service"

// SuggestionCount caps the number of names fetched for inline completion
const SuggestionCount = 5

type httpStatusError struct {
	status int
	body   string
}

func (e httpStatusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("API returned status %d", e.status)
	}
	return fmt.Sprintf("API returned status %d: %s", e.status, e.body)
}

// GeocodingClient talks to the Open-Meteo geocoding search API
type GeocodingClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewGeocodingClient creates a geocoding client; baseURL is e.g.
// https://geocoding-api.open-meteo.com/v1
func NewGeocodingClient(baseURL string) *GeocodingClient {
	return &GeocodingClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type geocodingResponse struct {
	Results []struct {
		Name      string  `json:"name"`
		Country   string  `json:"country"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"results"`
}

// Search returns up to count locations matching name, in API order
func (c *GeocodingClient) Search(ctx context.Context, name string, count int) ([]domain.Location, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "geocoding.search", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("geocoding.name", name), attribute.Int("geocoding.count", count))

	q := url.Values{}
	q.Set("name", name)
	q.Set("count", strconv.Itoa(count))
	q.Set("language", "en")
	q.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("geocoding: failed to create request: %w", err)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return nil, fmt.Errorf("geocoding: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := httpStatusError{status: resp.StatusCode, body: string(body)}
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("geocoding: %w", err)
	}

	var decoded geocodingResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("geocoding: failed to decode response: %w", err)
	}

	locations := make([]domain.Location, len(decoded.Results))
	for i, r := range decoded.Results {
		locations[i] = domain.Location{
			Name:      r.Name,
			Country:   r.Country,
			Latitude:  r.Latitude,
			Longitude: r.Longitude,
		}
	}
	span.SetAttributes(attribute.Int("geocoding.results", len(locations)))
	return locations, nil
}

// Locate resolves a city to its best match, nil when nothing matches
func (c *GeocodingClient) Locate(ctx context.Context, city string) (*domain.Location, error) {
	locations, err := c.Search(ctx, city, 1)
	if err != nil {
		return nil, err
	}
	if len(locations) == 0 {
		return nil, nil
	}
	return &locations[0], nil
}

// Suggest returns candidate city names for inline completion
func (c *GeocodingClient) Suggest(ctx context.Context, query string) ([]string, error) {
	if query == "" {
		return nil, nil
	}
	locations, err := c.Search(ctx, query, SuggestionCount)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(locations))
	for i, l := range locations {
		names[i] = l.Name
	}
	return names, nil
}
