package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ashureev/datadesk/internal/domain"
	"github.com/ashureev/datadesk/internal/shared"
)

const (
	writeAttempts  = 3
	writeBaseDelay = 100 * time.Millisecond
)

const schema = `
CREATE TABLE IF NOT EXISTS interactions (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	utterance TEXT NOT NULL,
	intent TEXT NOT NULL DEFAULT '',
	score INTEGER NOT NULL DEFAULT 0,
	fallback BOOLEAN NOT NULL DEFAULT FALSE,
	created_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_interactions_session ON interactions(session_id, created_at);
CREATE INDEX IF NOT EXISTS idx_interactions_intent ON interactions(intent);
`

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

// SQLStore implements Repository on database/sql. The same queries serve
// SQLite and Postgres; placeholders are rebound for Postgres.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (*SQLStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL keeps readers from blocking the writer.
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return newSQLStore(db, dialectSQLite)
}

func newSQLStore(db *sql.DB, d dialect) (*SQLStore, error) {
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLStore{db: db, dialect: d}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLStore) initSchema() error {
	query := schema
	if s.dialect == dialectSQLite {
		query = "PRAGMA busy_timeout = 5000;" + query
	}
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// rebind rewrites ? placeholders to $n for Postgres.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != dialectPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Ping verifies database connectivity.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// RecordInteraction stores one answered question.
// SQLite busy errors are retried with exponential backoff.
func (s *SQLStore) RecordInteraction(ctx context.Context, it *domain.Interaction) error {
	if it == nil {
		return fmt.Errorf("record interaction: nil interaction")
	}
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	if it.CreatedAt.IsZero() {
		it.CreatedAt = time.Now()
	}

	query := s.rebind(`
		INSERT INTO interactions (id, session_id, utterance, intent, score, fallback, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)

	return shared.RetryOnConflict(ctx, "record interaction", writeAttempts, writeBaseDelay, func() error {
		_, err := s.db.ExecContext(ctx, query,
			it.ID, it.SessionID, it.Utterance, it.Intent,
			it.Score, it.Fallback, it.CreatedAt.UnixMilli(),
		)
		if err != nil {
			return fmt.Errorf("insert interaction: %w", err)
		}
		return nil
	})
}

// ListInteractions returns the most recent interactions of a session, newest first.
func (s *SQLStore) ListInteractions(ctx context.Context, sessionID string, limit int) ([]*domain.Interaction, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := s.rebind(`
		SELECT id, session_id, utterance, intent, score, fallback, created_at
		FROM interactions WHERE session_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`)

	rows, err := s.db.QueryContext(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("query interactions: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close interaction rows", "error", closeErr)
		}
	}()

	var out []*domain.Interaction
	for rows.Next() {
		var it domain.Interaction
		var createdAt int64
		if err := rows.Scan(
			&it.ID, &it.SessionID, &it.Utterance, &it.Intent,
			&it.Score, &it.Fallback, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan interaction row: %w", err)
		}
		it.CreatedAt = time.UnixMilli(createdAt)
		out = append(out, &it)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate interactions: %w", err)
	}
	return out, nil
}

// IntentStats counts interactions per intent, most frequent first.
func (s *SQLStore) IntentStats(ctx context.Context) ([]domain.IntentCount, error) {
	query := `
		SELECT intent, COUNT(*) AS n
		FROM interactions
		GROUP BY intent
		ORDER BY n DESC, intent ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query intent stats: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close intent stats rows", "error", closeErr)
		}
	}()

	var out []domain.IntentCount
	for rows.Next() {
		var c domain.IntentCount
		if err := rows.Scan(&c.Intent, &c.Count); err != nil {
			return nil, fmt.Errorf("scan intent stats row: %w", err)
		}
		out = append(out, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate intent stats: %w", err)
	}
	return out, nil
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
