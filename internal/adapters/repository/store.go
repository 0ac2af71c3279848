// Package repository persists enriched bank records in SQLite and runs queries against them.
package repository

import (
	"context"
	"regexp"

	"github.com/okian/bankrank/internal/domain/model"
)

// Result holds the rows returned by one statement, in the store's natural order.
type Result struct {
	Statement string
	Columns   []string
	Rows      [][]any
}

// Store provides scoped access to the relational table.
type Store interface {
	// Replace drops table if present, recreates it and inserts records in order.
	Replace(ctx context.Context, table string, records []model.EnrichedBankRecord) error

	// Query executes statement, commits any side effects and returns every row.
	Query(ctx context.Context, statement string) (Result, error)
}

// Checkpoint marks a point in a Replace call's connection lifecycle.
type Checkpoint int

const (
	// CheckpointConnected fires once the connection answers a ping.
	CheckpointConnected Checkpoint = iota + 1
	// CheckpointLoaded fires after the replacing transaction commits.
	CheckpointLoaded
	// CheckpointClosed fires after the connection is released, on success or failure.
	CheckpointClosed
)

func (c Checkpoint) String() string {
	switch c {
	case CheckpointConnected:
		return "connected"
	case CheckpointLoaded:
		return "loaded"
	case CheckpointClosed:
		return "closed"
	default:
		return "unknown"
	}
}

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidTableName reports whether name is a plain SQL identifier.
func ValidTableName(name string) bool {
	return tableNamePattern.MatchString(name)
}
