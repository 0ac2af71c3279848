package repository

import (
	"context"
	"database/sql"

	"github.com/okian/bankrank/pkg/logger"
)

// Opener matches sql.Open.
type Opener func(driverName, dataSourceName string) (*sql.DB, error)

// Option applies a configuration option to the SQLiteStore.
type Option func(*SQLiteStore)

// WithOpener replaces sql.Open, mainly for tests.
func WithOpener(open Opener) Option {
	return func(s *SQLiteStore) {
		if open != nil {
			s.open = open
		}
	}
}

// WithCheckpoint registers fn to observe Replace's connection lifecycle.
func WithCheckpoint(fn func(ctx context.Context, c Checkpoint)) Option {
	return func(s *SQLiteStore) {
		if fn != nil {
			s.checkpoint = fn
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l logger.Logger) Option {
	return func(s *SQLiteStore) {
		if l != nil {
			s.log = l
		}
	}
}
