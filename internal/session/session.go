// Package session keeps per-session conversation history for document Q&A.
package session

import (
	"context"
	"errors"
	"time"
)

type Turn struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var ErrInvalidSession = errors.New("invalid session id")

// Store holds conversation turns keyed by session id. A session comes into
// existence on its first Append and is gone after Clear or once its TTL lapses.
type Store interface {
	Append(ctx context.Context, sessionID string, turns ...Turn) error
	History(ctx context.Context, sessionID string) ([]Turn, error)
	Clear(ctx context.Context, sessionID string) error
}

type Options struct {
	TTL      time.Duration
	MaxTurns int
}

func (o Options) withDefaults() Options {
	if o.TTL <= 0 {
		o.TTL = time.Hour
	}
	if o.MaxTurns <= 0 {
		o.MaxTurns = 20
	}
	return o
}
