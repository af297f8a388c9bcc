// Package store persists the interaction log of answered questions.
package store

import (
	"context"
	"errors"
	"strings"

	"github.com/ashureev/datadesk/internal/domain"
)

// DefaultListLimit is used by ListInteractions when limit is not positive.
const DefaultListLimit = 100

// ErrEmptyDSN is returned by Open when no data source is configured.
var ErrEmptyDSN = errors.New("store: empty dsn")

// Repository defines the interface for persisting interactions.
type Repository interface {
	// RecordInteraction stores one answered question. A missing ID is generated.
	RecordInteraction(ctx context.Context, it *domain.Interaction) error

	// ListInteractions returns the most recent interactions of a session, newest first.
	ListInteractions(ctx context.Context, sessionID string, limit int) ([]*domain.Interaction, error)

	// IntentStats counts interactions per intent, most frequent first.
	// Fallback replies are counted under the empty intent.
	IntentStats(ctx context.Context) ([]domain.IntentCount, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}

// Open picks a backend from dsn: postgres:// and postgresql:// URLs use
// Postgres, anything else is treated as a SQLite file path (an optional
// sqlite:// prefix is stripped).
func Open(dsn string) (Repository, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, ErrEmptyDSN
	}

	var (
		s   *SQLStore
		err error
	)
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		s, err = NewPostgres(dsn)
	} else {
		s, err = NewSQLite(strings.TrimPrefix(dsn, "sqlite://"))
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}
