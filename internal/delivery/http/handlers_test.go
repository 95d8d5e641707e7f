package http

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/weatherapp/weather/internal/domain"
	"github.com/weatherapp/weather/internal/logging"
	"github.com/weatherapp/weather/internal/repository/postgres"
	"github.com/weatherapp/weather/internal/repository/redis"
	"github.com/weatherapp/weather/internal/service"
)

const testToken = "secret"

type stubLocator struct{}

func (stubLocator) Locate(_ context.Context, city string) (*domain.Location, error) {
	if strings.EqualFold(city, "Nowhereland") {
		return nil, nil
	}
	return &domain.Location{Name: "Paris", Country: "France", Latitude: 48.8566, Longitude: 2.3522}, nil
}

type stubFetcher struct{ err error }

func (f stubFetcher) Daily(context.Context, domain.Location) ([]domain.DailyForecast, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []domain.DailyForecast{
		{Date: "2024-04-01", TemperatureMax: 14.2, TemperatureMin: 5.1, WeatherCode: 3},
		{Date: "2024-04-02", TemperatureMax: 15, TemperatureMin: 6, WeatherCode: 61},
	}, nil
}

type testEnv struct {
	app     *fiber.App
	svc     *service.WeatherService
	repo    *postgres.MockRepository
	cache   *redis.MockCache
	logDir  string
	metrics *Metrics
}

func newTestEnv(t *testing.T, fetcher service.DailyFetcher) *testEnv {
	t.Helper()
	env := &testEnv{
		repo:    postgres.NewMockRepository(),
		cache:   redis.NewMockCache(),
		logDir:  t.TempDir(),
		metrics: NewMetrics(),
	}
	env.svc = service.NewWeatherService(stubLocator{}, fetcher, env.cache, env.repo, time.Minute)
	env.app = NewApp(Config{
		WeatherSvc: env.svc,
		Repo:       env.repo,
		Logs:       logging.NewStore(env.logDir),
		Cache:      env.cache,
		Metrics:    env.metrics,
		AuthToken:  testToken,
	})
	return env
}

func (e *testEnv) do(t *testing.T, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	resp.Body.Close()
	return resp, body
}

func authed(method, target string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	req.Header.Set("Authorization", "Bearer "+testToken)
	return req
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t, stubFetcher{})
	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), `"service is up"`) {
		t.Fatalf("unexpected body %s", body)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatalf("expected request id header")
	}
}

type downRepo struct {
	*postgres.MockRepository
}

func (downRepo) Health(context.Context) error { return io.ErrClosedPipe }

func TestHealthCheckReportsComponents(t *testing.T) {
	env := newTestEnv(t, stubFetcher{})
	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var got struct {
		Components map[string]string `json:"components"`
	}
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Components["database"] != "up" || got.Components["cache"] != "up" {
		t.Fatalf("unexpected components %v", got.Components)
	}
}

func TestHealthCheckDatabaseDown(t *testing.T) {
	repo := downRepo{postgres.NewMockRepository()}
	svc := service.NewWeatherService(stubLocator{}, stubFetcher{}, redis.NewMockCache(), repo, time.Minute)
	app := NewApp(Config{
		WeatherSvc: svc,
		Repo:       repo,
		Logs:       logging.NewStore(t.TempDir()),
		Cache:      redis.NewMockCache(),
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/health", nil), -1)
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != fiber.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), `"database":"down"`) || !strings.Contains(string(body), `"cache":"up"`) {
		t.Fatalf("unexpected body %s", body)
	}
}

func TestAPIRootRedirectsToHelp(t *testing.T) {
	env := newTestEnv(t, stubFetcher{})
	resp, _ := env.do(t, httptest.NewRequest(http.MethodGet, "/api/", nil))
	if resp.StatusCode != fiber.StatusFound || resp.Header.Get("Location") != "/api/help" {
		t.Fatalf("expected redirect to /api/help, got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}
}

func TestGetWeatherCityNotFound(t *testing.T) {
	env := newTestEnv(t, stubFetcher{})
	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/weather/Nowhereland", nil))
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	var got domain.ErrorResponse
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Status != "error" || got.Message != "city not found" {
		t.Fatalf("unexpected envelope %+v", got)
	}
}

func TestGetWeatherUpstreamFailure(t *testing.T) {
	env := newTestEnv(t, stubFetcher{err: io.ErrUnexpectedEOF})
	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/weather/Paris", nil))
	if resp.StatusCode != fiber.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}
	var got domain.ErrorResponse
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Type != "bad gateway" || got.RequestID == "" {
		t.Fatalf("unexpected envelope %+v", got)
	}
}

func sessionFromCookie(t *testing.T, resp *http.Response) (string, *http.Cookie) {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name != sessionCookieName {
			continue
		}
		raw, err := base64.RawURLEncoding.DecodeString(c.Value)
		if err != nil {
			t.Fatalf("decode cookie: %v", err)
		}
		var s sessionCookie
		if err := json.Unmarshal(raw, &s); err != nil {
			t.Fatalf("unmarshal cookie: %v", err)
		}
		if !c.HttpOnly || c.SameSite != http.SameSiteStrictMode {
			t.Fatalf("cookie attributes not set: %+v", c)
		}
		return s.SessionID, c
	}
	t.Fatalf("no session cookie set")
	return "", nil
}

func TestGetWeatherRecordsHistory(t *testing.T) {
	env := newTestEnv(t, stubFetcher{})

	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/weather/Paris", nil))
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	var got domain.WeatherResponse
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Status != "success" || got.Message != "Weather for Paris" || len(got.Weather.Daily) != 2 {
		t.Fatalf("unexpected response %+v", got)
	}

	sid, cookie := sessionFromCookie(t, resp)
	env.svc.WaitBackground()

	// reusing the cookie keeps the session
	req := httptest.NewRequest(http.MethodGet, "/api/v1/weather/New%20York", nil)
	req.AddCookie(cookie)
	resp, _ = env.do(t, req)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	for _, c := range resp.Cookies() {
		if c.Name == sessionCookieName {
			t.Fatalf("valid session should not be reissued")
		}
	}

	env.svc.WaitBackground()

	resp, body = env.do(t, authed(http.MethodGet, "/api/v1/history/"+sid))
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	var hist domain.HistoryResponse
	if err := json.Unmarshal(body, &hist); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(hist.History) != 2 || hist.History[0].City != "New York" || hist.History[1].City != "Paris" {
		t.Fatalf("unexpected history %+v", hist.History)
	}
}

func TestGetHistoryAuth(t *testing.T) {
	env := newTestEnv(t, stubFetcher{})

	resp, _ := env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/history/abc", nil))
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}

	resp, body := env.do(t, authed(http.MethodGet, "/api/v1/history/abc"))
	if resp.StatusCode != fiber.StatusNotFound || !strings.Contains(string(body), "history not found") {
		t.Fatalf("expected 404 history not found, got %d: %s", resp.StatusCode, body)
	}
}

func writeLog(t *testing.T, dir string, kind logging.Kind, date string, lines ...string) {
	t.Helper()
	p := filepath.Join(dir, string(kind)+"_"+date+".log")
	if err := os.WriteFile(p, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
}

func TestLogRoutes(t *testing.T) {
	env := newTestEnv(t, stubFetcher{})
	writeLog(t, env.logDir, logging.KindLog, "2024-01-02",
		`{"level":"INFO","msg":"request"}`,
		`{"level":"ERROR","msg":"boom"}`)
	writeLog(t, env.logDir, logging.KindLog, "2024-01-03", `{"level":"WARN","msg":"slow"}`)

	resp, _ := env.do(t, httptest.NewRequest(http.MethodGet, "/api/logs", nil))
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	resp, body := env.do(t, authed(http.MethodGet, "/api/logs"))
	if resp.StatusCode != fiber.StatusOK || !strings.Contains(string(body), `["2024-01-03","2024-01-02"]`) {
		t.Fatalf("unexpected listing %d: %s", resp.StatusCode, body)
	}
	if _, ok, _ := env.cache.Get(context.Background(), "cache:GET:/api/logs"); !ok {
		t.Fatalf("listing should be cached")
	}

	resp, body = env.do(t, authed(http.MethodGet, "/api/logs/2024-01-02"))
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var content logging.Content
	if err := json.Unmarshal(body, &content); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if content.TotalEntries != 2 || content.Metadata.ErrorCount != 1 || content.Metadata.InfoCount != 1 {
		t.Fatalf("unexpected content %+v", content)
	}

	resp, _ = env.do(t, authed(http.MethodGet, "/api/logs/not-a-date"))
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	resp, _ = env.do(t, authed(http.MethodGet, "/api/exceptions/2024-01-02"))
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	resp, body = env.do(t, authed(http.MethodDelete, "/api/logs/2024-01-02"))
	if resp.StatusCode != fiber.StatusOK || !strings.Contains(string(body), "deleted successfully") {
		t.Fatalf("unexpected delete %d: %s", resp.StatusCode, body)
	}
	if _, ok, _ := env.cache.Get(context.Background(), "cache:GET:/api/logs"); ok {
		t.Fatalf("delete should invalidate the cached listing")
	}
}

func TestDeleteTodayRefused(t *testing.T) {
	env := newTestEnv(t, stubFetcher{})
	today := time.Now().Format(time.DateOnly)
	writeLog(t, env.logDir, logging.KindException, today, `{"level":"ERROR","msg":"boom"}`)

	resp, body := env.do(t, authed(http.MethodDelete, "/api/exceptions/"+today))
	if resp.StatusCode != fiber.StatusBadRequest || !strings.Contains(string(body), "current day") {
		t.Fatalf("expected 400 for today's file, got %d: %s", resp.StatusCode, body)
	}
	if _, err := os.Stat(filepath.Join(env.logDir, "exception_"+today+".log")); err != nil {
		t.Fatalf("today's file should remain: %v", err)
	}
}

func TestTrailingSlashSharesCachedListing(t *testing.T) {
	env := newTestEnv(t, stubFetcher{})
	writeLog(t, env.logDir, logging.KindLog, "2024-01-02", `{"level":"INFO","msg":"request"}`)
	writeLog(t, env.logDir, logging.KindLog, "2024-01-03", `{"level":"INFO","msg":"request"}`)

	resp, body := env.do(t, authed(http.MethodGet, "/api/logs/"))
	if resp.StatusCode != fiber.StatusOK || !strings.Contains(string(body), "2024-01-02") {
		t.Fatalf("unexpected listing %d: %s", resp.StatusCode, body)
	}
	if _, ok, _ := env.cache.Get(context.Background(), "cache:GET:/api/logs/"); ok {
		t.Fatalf("trailing slash must not get its own entry")
	}
	if _, ok, _ := env.cache.Get(context.Background(), "cache:GET:/api/logs"); !ok {
		t.Fatalf("listing should be cached under the bare path")
	}

	resp, _ = env.do(t, authed(http.MethodDelete, "/api/logs/2024-01-02"))
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("delete: %d", resp.StatusCode)
	}
	_, body = env.do(t, authed(http.MethodGet, "/api/logs/"))
	if strings.Contains(string(body), "2024-01-02") {
		t.Fatalf("deleted date still listed: %s", body)
	}
}

func TestCachedServesStoredBody(t *testing.T) {
	env := newTestEnv(t, stubFetcher{})
	stored := []byte(`{"status":"success","dates":["1999-12-31"]}`)
	if err := env.cache.Set(context.Background(), "cache:GET:/api/exceptions", stored, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	resp, body := env.do(t, authed(http.MethodGet, "/api/exceptions"))
	if resp.StatusCode != fiber.StatusOK || string(body) != string(stored) {
		t.Fatalf("expected cached body, got %d: %s", resp.StatusCode, body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, stubFetcher{})
	env.do(t, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), `http_requests_total{method="GET",path="/api/health",status="200"} 1`) {
		t.Fatalf("request counter missing:\n%s", body)
	}
}

func TestUnknownRouteUsesErrorEnvelope(t *testing.T) {
	env := newTestEnv(t, stubFetcher{})
	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if resp.StatusCode != fiber.StatusNotFound || !strings.Contains(string(body), `"type":"not found"`) {
		t.Fatalf("unexpected response %d: %s", resp.StatusCode, body)
	}
}
