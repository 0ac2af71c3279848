package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	// Registers the pure-Go "sqlite" driver.
	_ "modernc.org/sqlite"

	"github.com/okian/bankrank/internal/domain/model"
	"github.com/okian/bankrank/pkg/logger"
)

// DriverName is the database/sql driver used by SQLiteStore.
const DriverName = "sqlite"

// SQLiteStore is a Store backed by a SQLite file. Every call opens its own
// connection and closes it before returning.
type SQLiteStore struct {
	path       string
	open       Opener
	checkpoint func(context.Context, Checkpoint)
	log        logger.Logger
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore returns a store for the database file at path.
func NewSQLiteStore(path string, opts ...Option) *SQLiteStore {
	s := &SQLiteStore{
		path:       path,
		open:       sql.Open,
		checkpoint: func(context.Context, Checkpoint) {},
		log:        logger.Get().Named("repository"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Replace implements Store. The drop, create and inserts share one
// transaction, so readers see either the old table or the complete new one.
func (s *SQLiteStore) Replace(ctx context.Context, table string, records []model.EnrichedBankRecord) (err error) {
	if !ValidTableName(table) {
		return fmt.Errorf("%w: %q", ErrInvalidTableName, table)
	}

	db, err := s.connect(ctx)
	if err != nil {
		return err
	}
	s.checkpoint(ctx, CheckpointConnected)
	defer func() {
		if cerr := db.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: close: %w", ErrWrite, cerr)
		}
		s.checkpoint(ctx, CheckpointClosed)
	}()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", ErrWrite, err)
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil && !errors.Is(rerr, sql.ErrTxDone) {
				s.log.Warn(ctx, "rollback failed", logger.Error(rerr))
			}
		}
	}()

	quoted := quoteIdent(table)
	if _, err = tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoted); err != nil {
		return fmt.Errorf("%w: drop: %w", ErrWrite, err)
	}
	if _, err = tx.ExecContext(ctx, createStatement(quoted)); err != nil {
		return fmt.Errorf("%w: create: %w", ErrWrite, err)
	}

	stmt, err := tx.PrepareContext(ctx, insertStatement(quoted))
	if err != nil {
		return fmt.Errorf("%w: prepare: %w", ErrWrite, err)
	}
	defer stmt.Close()

	for i, r := range records {
		if _, err = stmt.ExecContext(ctx,
			r.Name,
			r.MarketCapUSDBillion,
			r.MarketCapGBPBillion,
			r.MarketCapEURBillion,
			r.MarketCapINRBillion,
		); err != nil {
			return fmt.Errorf("%w: insert row %d: %w", ErrWrite, i, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", ErrWrite, err)
	}
	s.log.Debug(ctx, "table replaced", logger.String("table", table), logger.Int("rows", len(records)))
	s.checkpoint(ctx, CheckpointLoaded)
	return nil
}

// Query implements Store.
func (s *SQLiteStore) Query(ctx context.Context, statement string) (res Result, err error) {
	res.Statement = statement

	db, err := s.connect(ctx)
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrQuery, err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: close: %w", ErrQuery, cerr)
		}
	}()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("%w: begin: %w", ErrQuery, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	rows, err := tx.QueryContext(ctx, statement)
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrQuery, err)
	}
	res.Columns, res.Rows, err = scanAll(rows)
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrQuery, err)
	}

	if err = tx.Commit(); err != nil {
		return res, fmt.Errorf("%w: commit: %w", ErrQuery, err)
	}
	return res, nil
}

func (s *SQLiteStore) connect(ctx context.Context) (*sql.DB, error) {
	db, err := s.open(DriverName, s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrOpen, s.path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrOpen, s.path, err)
	}
	return db, nil
}

func scanAll(rows *sql.Rows) ([]string, [][]any, error) {
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	var out [][]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		out = append(out, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return cols, out, nil
}

func quoteIdent(name string) string {
	return `"` + name + `"`
}

func createStatement(quoted string) string {
	cols := model.Columns()
	defs := make([]string, len(cols))
	for i, c := range cols {
		typ := "REAL"
		if c == model.ColumnName {
			typ = "TEXT"
		}
		defs[i] = c + " " + typ
	}
	return "CREATE TABLE " + quoted + " (" + strings.Join(defs, ", ") + ")"
}

func insertStatement(quoted string) string {
	cols := model.Columns()
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	return "INSERT INTO " + quoted + " (" + strings.Join(cols, ", ") + ") VALUES (" + marks + ")"
}
