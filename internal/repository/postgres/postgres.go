package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/weatherapp/weather/internal/domain"
)

const schema = `
	CREATE TABLE IF NOT EXISTS sessions (
		id         BIGSERIAL PRIMARY KEY,
		session_id TEXT NOT NULL UNIQUE,
		user_ip    TEXT NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL
	);
	CREATE TABLE IF NOT EXISTS history (
		id         BIGSERIAL PRIMARY KEY,
		session_id TEXT REFERENCES sessions(session_id) ON DELETE CASCADE,
		city       TEXT NOT NULL,
		country    TEXT NOT NULL,
		latitude   NUMERIC NOT NULL,
		longitude  NUMERIC NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX IF NOT EXISTS history_session_idx ON history (session_id, created_at DESC);
`

// PostgresRepository implements domain.DataRepository
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Migrate creates the tables when they do not exist yet
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres: failed to initialize schema: %w", err)
	}
	return nil
}

// AddSession persists a newly issued session
func (r *PostgresRepository) AddSession(ctx context.Context, s domain.Session) error {
	query := `
		INSERT INTO sessions (session_id, user_ip, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (session_id) DO NOTHING
	`

	_, err := r.pool.Exec(ctx, query, s.SessionID, s.UserIP, s.ExpiresAt)
	if err != nil {
		return fmt.Errorf("postgres: failed to save session: %w", err)
	}

	return nil
}

// GetSession looks a session up by its public ID
func (r *PostgresRepository) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	query := `SELECT session_id, user_ip, expires_at FROM sessions WHERE session_id = $1`

	var s domain.Session
	err := r.pool.QueryRow(ctx, query, sessionID).Scan(&s.SessionID, &s.UserIP, &s.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query session: %w", err)
	}

	return &s, nil
}

// PurgeExpiredSessions deletes expired sessions; history rows cascade
func (r *PostgresRepository) PurgeExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("postgres: failed to purge sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

// AddHistory persists a search history entry
func (r *PostgresRepository) AddHistory(ctx context.Context, h domain.History) error {
	query := `
		INSERT INTO history (session_id, city, country, latitude, longitude, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query, h.SessionID, h.City, h.Country, h.Latitude, h.Longitude, h.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: failed to save history: %w", err)
	}

	return nil
}

// GetHistory retrieves a session's search history, newest first
func (r *PostgresRepository) GetHistory(ctx context.Context, sessionID string, limit int) ([]domain.History, error) {
	query := `
		SELECT id, session_id, city, country, latitude::float8, longitude::float8, created_at
		FROM history
		WHERE session_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query history: %w", err)
	}
	defer rows.Close()

	var results []domain.History
	for rows.Next() {
		var h domain.History
		err := rows.Scan(&h.ID, &h.SessionID, &h.City, &h.Country, &h.Latitude, &h.Longitude, &h.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan history row: %w", err)
		}
		results = append(results, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: failed to iterate history: %w", err)
	}

	return results, nil
}

// Health checks database connectivity
func (r *PostgresRepository) Health(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: health check failed: %w", err)
	}
	return nil
}
