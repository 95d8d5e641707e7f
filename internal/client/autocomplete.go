// Package client holds the state machines behind the terminal weather
// client: inline city completion, search sequencing with a staggered row
// reveal, the backend API client and persisted preferences.
package client

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/weatherapp/weather/internal/domain"
)

// BlurGrace is how long a suggestion survives after the input loses focus
const BlurGrace = 100 * time.Millisecond

// Suggester returns candidate city names for a typed prefix
type Suggester interface {
	Suggest(ctx context.Context, query string) ([]string, error)
}

// Key is a key that can accept a live suggestion
type Key int

const (
	KeyTab Key = iota + 1
	KeyRight
	KeyEnter
)

// Lookup identifies one suggestion request
type Lookup struct {
	Query string
	Seq   uint64
}

// Autocomplete tracks the single live inline suggestion of one input field.
// The suggestion and the last queried text are always reset together.
type Autocomplete struct {
	mu        sync.Mutex
	current   string
	lastQuery string
	entered   string
	seq       uint64
}

func NewAutocomplete() *Autocomplete {
	return &Autocomplete{}
}

// Begin records an input event. It returns the lookup to issue, or false
// when the value is blank or was already queried.
func (a *Autocomplete) Begin(value string) (Lookup, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.entered = value
	if strings.TrimSpace(value) == "" {
		a.clearLocked()
		return Lookup{}, false
	}
	if value == a.lastQuery {
		return Lookup{}, false
	}
	a.lastQuery = value
	a.seq++
	// a suggestion the new text no longer extends must not be accepted
	if !extends(value, a.current) {
		a.current = ""
	}
	return Lookup{Query: value, Seq: a.seq}, true
}

func extends(value, name string) bool {
	return name != "" && domain.BestCompletion(value, []string{name}) == name
}

// Resolve applies the names returned for l. Results of superseded lookups,
// or of a query that no longer matches the field, are dropped.
func (a *Autocomplete) Resolve(l Lookup, names []string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if l.Seq != a.seq || l.Query != a.entered {
		return false
	}
	a.current = domain.BestCompletion(l.Query, names)
	return true
}

// Input runs a whole input event synchronously. Lookup failures count as
// no suggestions.
func (a *Autocomplete) Input(ctx context.Context, s Suggester, value string) string {
	l, ok := a.Begin(value)
	if !ok {
		return a.Suggestion()
	}
	names, err := s.Suggest(ctx, l.Query)
	if err != nil {
		names = nil
	}
	a.Resolve(l, names)
	return a.Suggestion()
}

// Suggestion is the full suggested name, empty when none is live
func (a *Autocomplete) Suggestion() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// Entered is the literal text typed into the field
func (a *Autocomplete) Entered() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.entered
}

// Ghost is the suggested remainder shown after the typed text
func (a *Autocomplete) Ghost() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !extends(a.entered, a.current) {
		return ""
	}
	return domain.Remainder(a.entered, a.current)
}

// Accept consumes key when a suggestion is live. It returns the full name
// the field should hold and whether a search must start right away.
func (a *Autocomplete) Accept(key Key) (value string, search bool, ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !extends(a.entered, a.current) {
		return "", false, false
	}
	value = a.current
	a.clearLocked()
	a.entered = value
	return value, key == KeyEnter, true
}

// Clear drops the live suggestion
func (a *Autocomplete) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.clearLocked()
}

func (a *Autocomplete) clearLocked() {
	a.current = ""
	a.lastQuery = ""
	a.seq++
}
