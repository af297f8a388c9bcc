// Package domain contains core domain types shared across the datadesk packages.
package domain

import (
	"time"
)

// Interaction records how one user question was answered.
type Interaction struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Utterance string    `json:"utterance"`
	Intent    string    `json:"intent,omitempty"`
	Score     int       `json:"score"`
	Fallback  bool      `json:"fallback"`
	CreatedAt time.Time `json:"created_at"`
}

// Matched returns true if the question hit a knowledge base entry.
func (i *Interaction) Matched() bool {
	return !i.Fallback && i.Intent != ""
}
