package tui

import (
	"context"
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/cursor"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/weatherapp/weather/internal/client"
	"github.com/weatherapp/weather/internal/domain"
)

type fakeSuggester struct{ names []string }

func (f fakeSuggester) Suggest(context.Context, string) ([]string, error) {
	return f.names, nil
}

type fakeWeather struct{}

func (fakeWeather) Weather(_ context.Context, city string) (domain.Forecast, error) {
	if city == "Nowhereland" {
		return domain.Forecast{}, client.ErrCityNotFound
	}
	return domain.Forecast{City: city, Daily: []domain.DailyForecast{
		{Date: "2024-04-03", TemperatureMax: 20, TemperatureMin: 10},
		{Date: "2024-04-01", TemperatureMax: 18, TemperatureMin: 8},
	}}, nil
}

type cities struct{ last string }

func (c *cities) LastCity() string { return c.last }

func (c *cities) SetLastCity(city string) error {
	c.last = city
	return nil
}

func newModel(t *testing.T, names []string, store *cities) *Model {
	t.Helper()
	m := New(context.Background(), Options{
		Suggester: fakeSuggester{names: names},
		Weather:   fakeWeather{},
		Cities:    store,
	})
	m.input.Cursor.SetMode(cursor.CursorStatic)
	return m
}

// run executes cmd and feeds every resulting message back into m
func run(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	if cmd == nil {
		return
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			run(t, m, c)
		}
	case nil:
	default:
		m.Update(msg)
	}
}

func typeText(t *testing.T, m *Model, s string) {
	t.Helper()
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	run(t, m, cmd)
}

func press(m *Model, k tea.KeyType) tea.Cmd {
	_, cmd := m.Update(tea.KeyMsg{Type: k})
	return cmd
}

func TestPlaceholderFromLastCity(t *testing.T) {
	m := newModel(t, nil, &cities{last: "Paris"})
	if m.input.Placeholder != "Paris" {
		t.Fatalf("expected placeholder Paris, got %q", m.input.Placeholder)
	}
}

func TestGhostTextAndTabAccept(t *testing.T) {
	m := newModel(t, []string{"Paris", "Parma"}, &cities{})
	typeText(t, m, "Par")

	if !strings.Contains(m.View(), "is") || m.ac.Ghost() != "is" {
		t.Fatalf("expected ghost text, got %q", m.ac.Ghost())
	}

	if cmd := press(m, tea.KeyTab); cmd != nil {
		t.Fatalf("tab accept should not start a search")
	}
	if m.input.Value() != "Paris" || m.ac.Ghost() != "" || m.ac.Suggestion() != "" {
		t.Fatalf("unexpected state after accept: value=%q ghost=%q", m.input.Value(), m.ac.Ghost())
	}
}

func TestEnterAcceptsAndSearches(t *testing.T) {
	store := &cities{}
	m := newModel(t, []string{"Paris"}, store)
	typeText(t, m, "par")

	cmd := press(m, tea.KeyEnter)
	if cmd == nil {
		t.Fatalf("enter with a suggestion should search")
	}
	if m.input.Value() != "Paris" {
		t.Fatalf("expected field to hold Paris, got %q", m.input.Value())
	}

	msg := cmd()
	wm, ok := msg.(weatherMsg)
	if !ok {
		t.Fatalf("expected weatherMsg, got %T", msg)
	}
	m.Update(wm)

	p := m.search.Panel()
	if !p.Visible || len(p.Rows) != 1 || p.Rows[0].Day != "Monday" {
		t.Fatalf("expected the Monday row revealed first, got %+v", p)
	}
	if store.last != "Paris" {
		t.Fatalf("expected last city Paris, got %q", store.last)
	}

	m.Update(revealMsg{gen: wm.gen, row: wm.rows[1]})
	m.Update(settleMsg{gen: wm.gen})
	p = m.search.Panel()
	if len(p.Rows) != 2 || !p.Settled {
		t.Fatalf("unexpected panel %+v", p)
	}
}

func TestNotFoundShowsBlockingAlert(t *testing.T) {
	m := newModel(t, nil, &cities{})
	typeText(t, m, "Nowhereland")

	cmd := press(m, tea.KeyEnter)
	if cmd == nil {
		t.Fatalf("expected a search")
	}
	m.Update(cmd())

	if m.alert != "City not found" || m.search.Panel().Visible {
		t.Fatalf("expected alert and hidden panel, got alert=%q", m.alert)
	}
	if !strings.Contains(m.View(), "City not found") {
		t.Fatalf("alert not rendered")
	}

	typeText(t, m, "x")
	if m.input.Value() != "Nowhereland" {
		t.Fatalf("input must be blocked while the alert is open")
	}
	press(m, tea.KeyEnter)
	if m.alert != "" {
		t.Fatalf("enter should dismiss the alert")
	}
}

func TestBlankSubmitHidesPanel(t *testing.T) {
	m := newModel(t, nil, &cities{})
	typeText(t, m, "   ")
	if cmd := press(m, tea.KeyEnter); cmd != nil {
		t.Fatalf("blank submit must not search")
	}
	if m.search.Panel().Visible {
		t.Fatalf("panel should be hidden")
	}
}

func TestStaleRowsDiscarded(t *testing.T) {
	m := newModel(t, nil, &cities{})
	typeText(t, m, "Rome")
	first := press(m, tea.KeyEnter)().(weatherMsg)
	m.Update(first)

	second := press(m, tea.KeyEnter)().(weatherMsg)

	m.Update(revealMsg{gen: first.gen, row: first.rows[1]})
	if got := len(m.search.Panel().Rows); got != 1 {
		t.Fatalf("rows from an older search must be dropped, got %d rows", got)
	}
	m.Update(second)
	if got := len(m.search.Panel().Rows); got != 1 {
		t.Fatalf("expected only the new first row, got %d", got)
	}
}

func TestLeavingFieldClearsSuggestion(t *testing.T) {
	m := newModel(t, []string{"Oslo"}, &cities{})
	typeText(t, m, "Os")
	if m.ac.Suggestion() != "Oslo" {
		t.Fatalf("expected suggestion")
	}
	run(t, m, press(m, tea.KeyShiftTab))
	if m.input.Focused() {
		t.Fatalf("shift+tab should leave the field")
	}
	if m.ac.Suggestion() != "" {
		t.Fatalf("leaving the field should clear the suggestion")
	}
}

func TestRefocusWithinGraceKeepsSuggestion(t *testing.T) {
	m := newModel(t, []string{"Oslo"}, &cities{})
	typeText(t, m, "Os")

	leave := press(m, tea.KeyShiftTab)
	press(m, tea.KeyShiftTab)
	if !m.input.Focused() {
		t.Fatalf("second shift+tab should refocus the field")
	}
	run(t, m, leave)
	if m.ac.Suggestion() != "Oslo" {
		t.Fatalf("an expired blur from before refocus must not clear, got %q", m.ac.Suggestion())
	}
}

func TestTypingRefocusesField(t *testing.T) {
	m := newModel(t, []string{"Oslo"}, &cities{})
	press(m, tea.KeyShiftTab)
	typeText(t, m, "Os")
	if !m.input.Focused() || m.input.Value() != "Os" {
		t.Fatalf("typing should refocus and edit, got focused=%v value=%q", m.input.Focused(), m.input.Value())
	}
}

func TestGhostHiddenWhileTypoLookupPending(t *testing.T) {
	m := newModel(t, []string{"Paris"}, &cities{})
	typeText(t, m, "Par")

	// the lookup for the new text is not answered yet
	_, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	if m.input.Value() != "Parx" {
		t.Fatalf("unexpected value %q", m.input.Value())
	}
	if strings.Contains(m.View(), "Parxis") || m.ac.Ghost() != "" {
		t.Fatalf("ghost must not outlive the text it completes, got %q", m.ac.Ghost())
	}
	press(m, tea.KeyTab)
	if m.input.Value() != "Parx" {
		t.Fatalf("tab must not replace the field, got %q", m.input.Value())
	}
}
