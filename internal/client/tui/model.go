// Package tui is the bubbletea front end of the weather client.
package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/weatherapp/weather/internal/client"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	ghostStyle = lipgloss.NewStyle().Faint(true)
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
	settledPanelStyle = panelStyle.BorderForeground(lipgloss.Color("39"))
	alertStyle        = lipgloss.NewStyle().
				Border(lipgloss.DoubleBorder()).
				BorderForeground(lipgloss.Color("196")).
				Padding(0, 2)
	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
)

type suggestionsMsg struct {
	lookup client.Lookup
	names  []string
}

type weatherMsg struct {
	gen  uint64
	city string
	rows []client.Row
	err  error
}

type revealMsg struct {
	gen uint64
	row client.Row
}

type settleMsg struct{ gen uint64 }

type blurExpiredMsg struct{ seq uint64 }

// Options are the collaborators of the model
type Options struct {
	Suggester client.Suggester
	Weather   client.WeatherFetcher
	Cities    client.CityStore
}

// Model is the root bubbletea model
type Model struct {
	ctx       context.Context
	input     textinput.Model
	ac        *client.Autocomplete
	search    *client.Search
	suggester client.Suggester
	alert     string
	lastValue string
	blurSeq   uint64
}

// New builds the model. The last searched city seeds the placeholder.
func New(ctx context.Context, opts Options) *Model {
	ti := textinput.New()
	ti.Prompt = "City: "
	ti.Placeholder = "Enter a city"
	if opts.Cities != nil {
		if last := opts.Cities.LastCity(); last != "" {
			ti.Placeholder = last
		}
	}
	ti.Focus()

	return &Model{
		ctx:       ctx,
		input:     ti,
		ac:        client.NewAutocomplete(),
		search:    client.NewSearch(opts.Weather, opts.Cities),
		suggester: opts.Suggester,
	}
}

func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

func acceptKey(t tea.KeyType) (client.Key, bool) {
	switch t {
	case tea.KeyTab:
		return client.KeyTab, true
	case tea.KeyRight:
		return client.KeyRight, true
	case tea.KeyEnter:
		return client.KeyEnter, true
	}
	return 0, false
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case suggestionsMsg:
		m.ac.Resolve(msg.lookup, msg.names)
		return m, nil

	case weatherMsg:
		if !m.search.Complete(msg.gen, msg.city, msg.err) {
			return m, nil
		}
		if msg.err != nil {
			m.alert = msg.err.Error()
			return m, nil
		}
		return m, m.reveal(msg.gen, msg.rows)

	case revealMsg:
		m.search.Reveal(msg.gen, msg.row)
		return m, nil

	case settleMsg:
		m.search.Settle(msg.gen)
		return m, nil

	case blurExpiredMsg:
		if msg.seq == m.blurSeq && !m.input.Focused() {
			m.ac.Clear()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	// the alert blocks input until dismissed
	if m.alert != "" {
		switch msg.Type {
		case tea.KeyEnter, tea.KeyEsc, tea.KeySpace:
			m.alert = ""
		}
		return m, nil
	}

	if msg.Type == tea.KeyEsc {
		return m, tea.Quit
	}

	if msg.Type == tea.KeyShiftTab {
		return m, m.toggleFocus()
	}
	if !m.input.Focused() {
		m.input.Focus()
	}

	if key, ok := acceptKey(msg.Type); ok {
		if value, search, accepted := m.ac.Accept(key); accepted {
			m.input.SetValue(value)
			m.input.CursorEnd()
			m.lastValue = value
			if search {
				return m, m.submit(value)
			}
			return m, nil
		}
		if key == client.KeyEnter {
			return m, m.submit(m.input.Value())
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	value := m.input.Value()
	if value == m.lastValue {
		return m, cmd
	}
	m.lastValue = value
	return m, tea.Batch(cmd, m.lookup(value))
}

// toggleFocus moves focus off the field or back onto it. Leaving the field
// clears the suggestion once BlurGrace has passed.
func (m *Model) toggleFocus() tea.Cmd {
	m.blurSeq++
	if !m.input.Focused() {
		return m.input.Focus()
	}
	m.input.Blur()
	seq := m.blurSeq
	return tea.Tick(client.BlurGrace, func(time.Time) tea.Msg { return blurExpiredMsg{seq: seq} })
}

// lookup records an input event and returns the suggestion request, if any
func (m *Model) lookup(value string) tea.Cmd {
	l, ok := m.ac.Begin(value)
	if !ok || m.suggester == nil {
		return nil
	}
	ctx, s := m.ctx, m.suggester
	return func() tea.Msg {
		names, err := s.Suggest(ctx, l.Query)
		if err != nil {
			names = nil
		}
		return suggestionsMsg{lookup: l, names: names}
	}
}

// submit starts a search; a blank city only hides the panel
func (m *Model) submit(value string) tea.Cmd {
	gen, city, ok := m.search.Begin(value)
	if !ok {
		return nil
	}
	ctx, search := m.ctx, m.search
	return func() tea.Msg {
		rows, err := search.Fetch(ctx, city)
		return weatherMsg{gen: gen, city: city, rows: rows, err: err}
	}
}

// reveal schedules the settle tick and one tick per row, all measured from now
func (m *Model) reveal(gen uint64, rows []client.Row) tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(rows)+1)
	cmds = append(cmds, tea.Tick(client.SettleDelay, func(time.Time) tea.Msg { return settleMsg{gen: gen} }))
	for _, row := range rows {
		row := row
		if row.Delay <= 0 {
			m.search.Reveal(gen, row)
			continue
		}
		cmds = append(cmds, tea.Tick(row.Delay, func(time.Time) tea.Msg { return revealMsg{gen: gen, row: row} }))
	}
	return tea.Batch(cmds...)
}

func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Weather"))
	b.WriteString("\n\n")

	b.WriteString(m.input.View())
	if m.ac.Entered() == m.input.Value() {
		b.WriteString(ghostStyle.Render(m.ac.Ghost()))
	}
	b.WriteString("\n\n")

	if p := m.search.Panel(); p.Visible {
		lines := make([]string, len(p.Rows))
		for i, r := range p.Rows {
			lines[i] = r.String()
		}
		style := panelStyle
		if p.Settled {
			style = settledPanelStyle
		}
		b.WriteString(style.Render(strings.Join(lines, "\n")))
		b.WriteString("\n")
	}

	if m.alert != "" {
		b.WriteString(alertStyle.Render(m.alert + "\n\n" + helpStyle.Render("enter to dismiss")))
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("tab/→ accept • enter search • shift+tab leave field • esc quit"))
	b.WriteString("\n")
	return b.String()
}
