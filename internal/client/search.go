package client

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/weatherapp/weather/internal/domain"
)

const (
	// RevealStep separates consecutive rows of the staggered reveal
	RevealStep = 100 * time.Millisecond
	// SettleDelay is the wait between showing the panel and settling it
	SettleDelay = 10 * time.Millisecond

	calendarIcon = "📅"
)

// ErrCityNotFound is reported for any non-OK weather response
var ErrCityNotFound = errors.New("City not found")

// WeatherFetcher fetches the forecast of a city from the backend
type WeatherFetcher interface {
	Weather(ctx context.Context, city string) (domain.Forecast, error)
}

// CityStore persists the last successfully searched city
type CityStore interface {
	LastCity() string
	SetLastCity(city string) error
}

// Row is one rendered forecast day
type Row struct {
	Day   string
	Max   float64
	Min   float64
	Delay time.Duration
}

func celsius(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "°C"
}

func (r Row) String() string {
	return calendarIcon + " " + r.Day + "  Max: " + celsius(r.Max) + "  Min: " + celsius(r.Min)
}

// Plan orders days Monday first and schedules row i at i × RevealStep
func Plan(days []domain.DailyForecast) []Row {
	named := domain.SortByWeekday(days)
	rows := make([]Row, len(named))
	for i, d := range named {
		rows[i] = Row{
			Day:   d.DayName,
			Max:   d.TemperatureMax,
			Min:   d.TemperatureMin,
			Delay: time.Duration(i) * RevealStep,
		}
	}
	return rows
}

// Panel is a snapshot of the forecast panel
type Panel struct {
	Visible bool
	Settled bool
	Rows    []Row
}

// Search sequences weather searches. Every search gets a generation and
// deferred panel updates from an older generation are discarded.
type Search struct {
	api   WeatherFetcher
	prefs CityStore

	mu    sync.Mutex
	gen   uint64
	panel Panel
}

func NewSearch(api WeatherFetcher, prefs CityStore) *Search {
	return &Search{api: api, prefs: prefs}
}

// Begin starts a new generation for city. A blank city hides the panel
// and yields no search.
func (s *Search) Begin(city string) (gen uint64, trimmed string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen++
	trimmed = strings.TrimSpace(city)
	if trimmed == "" {
		s.panel = Panel{}
		return s.gen, "", false
	}
	return s.gen, trimmed, true
}

// Fetch performs the request and plans the rows. It touches no state.
func (s *Search) Fetch(ctx context.Context, city string) ([]Row, error) {
	forecast, err := s.api.Weather(ctx, city)
	if err != nil {
		return nil, err
	}
	return Plan(forecast.Daily), nil
}

// Complete applies the outcome of a fetch. A success always updates the
// last city; the panel only changes when gen is still current.
func (s *Search) Complete(gen uint64, city string, err error) bool {
	if err == nil && s.prefs != nil {
		if perr := s.prefs.SetLastCity(city); perr != nil {
			slog.Warn("failed to save last city", "city", city, "error", perr)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return false
	}
	if err != nil {
		s.panel = Panel{}
		return true
	}
	s.panel = Panel{Visible: true}
	return true
}

// Run is Begin, Fetch and Complete in one call
func (s *Search) Run(ctx context.Context, city string) (uint64, []Row, error) {
	gen, city, ok := s.Begin(city)
	if !ok {
		return gen, nil, nil
	}
	rows, err := s.Fetch(ctx, city)
	s.Complete(gen, city, err)
	return gen, rows, err
}

// Reveal appends row unless a newer search started
func (s *Search) Reveal(gen uint64, row Row) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || !s.panel.Visible {
		return false
	}
	s.panel.Rows = append(s.panel.Rows, row)
	return true
}

// Settle marks the panel settled unless a newer search started
func (s *Search) Settle(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || !s.panel.Visible {
		return false
	}
	s.panel.Settled = true
	return true
}

// Panel returns a copy of the panel state
func (s *Search) Panel() Panel {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.panel
	p.Rows = append([]Row(nil), s.panel.Rows...)
	return p
}

// Stagger reveals rows on timers measured from the call, invoking apply for
// each row that is still current. It stops early when ctx ends or a newer
// search starts.
func (s *Search) Stagger(ctx context.Context, gen uint64, rows []Row, apply func(Row)) error {
	start := time.Now()
	time.AfterFunc(SettleDelay, func() { s.Settle(gen) })

	for _, row := range rows {
		t := time.NewTimer(time.Until(start.Add(row.Delay)))
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		if !s.Reveal(gen, row) {
			return nil
		}
		apply(row)
	}
	return nil
}
