package domain

import (
	"context"
	"time"
)

// Session identifies a browser or client across requests
type Session struct {
	SessionID string    `json:"session_id"`
	UserIP    string    `json:"user_ip"`
	ExpiresAt time.Time `json:"expires_at"`
}

// History is a single successful weather search made within a session
type History struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	City      string    `json:"city"`
	Country   string    `json:"country"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	CreatedAt time.Time `json:"created_at"`
}

// HistoryResponse wraps history records with metadata
type HistoryResponse struct {
	Status  string    `json:"status"`
	Message string    `json:"message"`
	History []History `json:"history"`
}

// DataRepository defines the interface for session and history persistence
type DataRepository interface {
	// AddSession stores a newly issued session
	AddSession(ctx context.Context, s Session) error

	// GetSession returns the session or nil when it is unknown
	GetSession(ctx context.Context, sessionID string) (*Session, error)

	// PurgeExpiredSessions removes sessions (and their history) expired before now
	PurgeExpiredSessions(ctx context.Context, now time.Time) (int64, error)

	// AddHistory appends a search to a session's history
	AddHistory(ctx context.Context, h History) error

	// GetHistory returns the newest entries first, at most limit
	GetHistory(ctx context.Context, sessionID string, limit int) ([]History, error)

	// Health checks database connectivity
	Health(ctx context.Context) error
}
