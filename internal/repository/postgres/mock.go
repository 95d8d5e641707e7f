package postgres

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/weatherapp/weather/internal/domain"
)

// MockRepository implements domain.DataRepository in memory for tests and
// for running without a database
type MockRepository struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
	history  []domain.History
	nextID   int64
}

// NewMockRepository creates a new mock repository
func NewMockRepository() *MockRepository {
	return &MockRepository{sessions: make(map[string]domain.Session)}
}

// AddSession stores the session in memory
func (r *MockRepository) AddSession(ctx context.Context, s domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s.SessionID]; !ok {
		r.sessions[s.SessionID] = s
	}
	return nil
}

// GetSession returns the stored session or nil
func (r *MockRepository) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

// PurgeExpiredSessions drops expired sessions and their history
func (r *MockRepository) PurgeExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var purged int64
	for id, s := range r.sessions {
		if s.ExpiresAt.Before(now) {
			delete(r.sessions, id)
			purged++
		}
	}
	kept := r.history[:0]
	for _, h := range r.history {
		if _, ok := r.sessions[h.SessionID]; ok {
			kept = append(kept, h)
		}
	}
	r.history = kept
	return purged, nil
}

// AddHistory appends a history entry
func (r *MockRepository) AddHistory(ctx context.Context, h domain.History) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	h.ID = r.nextID
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now().UTC()
	}
	r.history = append(r.history, h)
	return nil
}

// GetHistory returns entries for a session, newest first
func (r *MockRepository) GetHistory(ctx context.Context, sessionID string, limit int) ([]domain.History, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var results []domain.History
	for _, h := range r.history {
		if h.SessionID == sessionID {
			results = append(results, h)
		}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].ID > results[j].ID })
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Health always returns nil in mock mode
func (r *MockRepository) Health(ctx context.Context) error {
	return nil
}
