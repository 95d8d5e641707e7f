package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/weatherapp/weather/internal/domain"
)

// API talks to the weather backend. Its cookie jar keeps the backend
// session so searches end up in one history.
type API struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPI creates a backend client
func NewAPI(baseURL string) *API {
	jar, _ := cookiejar.New(nil)
	return &API{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Jar:     jar,
		},
	}
}

// Weather fetches the forecast of city. Any non-OK status is reported as
// ErrCityNotFound.
func (a *API) Weather(ctx context.Context, city string) (domain.Forecast, error) {
	endpoint := fmt.Sprintf("%s/api/v1/weather/%s", a.baseURL, url.PathEscape(city))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.Forecast{}, fmt.Errorf("api: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return domain.Forecast{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Forecast{}, ErrCityNotFound
	}

	var body domain.WeatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.Forecast{}, fmt.Errorf("api: failed to decode response: %w", err)
	}
	return body.Weather, nil
}

// Health checks backend connectivity
func (a *API) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/api/health", nil)
	if err != nil {
		return fmt.Errorf("api: failed to create health request: %w", err)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("api: health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("api: health check returned status %d", resp.StatusCode)
	}
	return nil
}
