package shared

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsSQLiteConflictError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"busy", errors.New("step: SQLITE_BUSY"), true},
		{"locked", errors.New("database is locked (5)"), true},
		{"other", errors.New("no such table: x"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSQLiteConflictError(tt.err))
		})
	}
}

func TestRetryOnConflict_SucceedsAfterConflicts(t *testing.T) {
	calls := 0
	err := RetryOnConflict(context.Background(), "insert", 3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return errors.New("database is locked")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryOnConflict_GivesUp(t *testing.T) {
	calls := 0
	busy := errors.New("SQLITE_BUSY")
	err := RetryOnConflict(context.Background(), "insert", 2, time.Millisecond, func() error {
		calls++
		return busy
	})

	assert.ErrorIs(t, err, busy)
	assert.Contains(t, err.Error(), "after 2 attempts")
	assert.Equal(t, 2, calls)
}

func TestRetryOnConflict_OtherErrorsAreNotRetried(t *testing.T) {
	calls := 0
	boom := errors.New("constraint failed")
	err := RetryOnConflict(context.Background(), "insert", 5, time.Millisecond, func() error {
		calls++
		return boom
	})

	assert.Equal(t, boom, err)
	assert.Equal(t, 1, calls)
}

func TestRetryOnConflict_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RetryOnConflict(ctx, "insert", 3, time.Hour, func() error {
		return errors.New("SQLITE_BUSY")
	})
	assert.ErrorIs(t, err, context.Canceled)
}
