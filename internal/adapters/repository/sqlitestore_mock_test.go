package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDisk = errors.New("disk I/O error")

func mockStore(t *testing.T, opts ...Option) (*SQLiteStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	opener := func(driver, dsn string) (*sql.DB, error) {
		assert.Equal(t, DriverName, driver)
		return db, nil
	}
	return NewSQLiteStore("banks.db", append([]Option{WithOpener(opener)}, opts...)...), mock
}

func TestReplaceReleasesConnectionOnDropFailure(t *testing.T) {
	var seen []Checkpoint
	store, mock := mockStore(t, WithCheckpoint(func(_ context.Context, c Checkpoint) { seen = append(seen, c) }))

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DROP TABLE IF EXISTS "Largest_banks"`)).WillReturnError(errDisk)
	mock.ExpectRollback()
	mock.ExpectClose()

	err := store.Replace(context.Background(), "Largest_banks", sampleRecords(2))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWrite)
	assert.ErrorIs(t, err, errDisk)
	assert.Equal(t, []Checkpoint{CheckpointConnected, CheckpointClosed}, seen)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceReleasesConnectionOnInsertFailure(t *testing.T) {
	store, mock := mockStore(t)
	records := sampleRecords(2)

	mock.ExpectBegin()
	mock.ExpectExec("DROP TABLE IF EXISTS").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
	prep := mock.ExpectPrepare("INSERT INTO")
	prep.ExpectExec().
		WithArgs(records[0].Name, records[0].MarketCapUSDBillion, records[0].MarketCapGBPBillion,
			records[0].MarketCapEURBillion, records[0].MarketCapINRBillion).
		WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WillReturnError(errDisk)
	mock.ExpectRollback()
	mock.ExpectClose()

	err := store.Replace(context.Background(), "Largest_banks", records)

	assert.ErrorIs(t, err, ErrWrite)
	assert.Contains(t, err.Error(), "insert row 1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceReleasesConnectionOnCommitFailure(t *testing.T) {
	var seen []Checkpoint
	store, mock := mockStore(t, WithCheckpoint(func(_ context.Context, c Checkpoint) { seen = append(seen, c) }))

	mock.ExpectBegin()
	mock.ExpectExec("DROP TABLE IF EXISTS").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectPrepare("INSERT INTO")
	mock.ExpectCommit().WillReturnError(errDisk)
	mock.ExpectClose()

	err := store.Replace(context.Background(), "Largest_banks", nil)

	assert.ErrorIs(t, err, ErrWrite)
	assert.NotContains(t, seen, CheckpointLoaded)
	assert.Equal(t, CheckpointClosed, seen[len(seen)-1])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceOpenFailure(t *testing.T) {
	var seen []Checkpoint
	store := NewSQLiteStore("banks.db",
		WithOpener(func(string, string) (*sql.DB, error) { return nil, errDisk }),
		WithCheckpoint(func(_ context.Context, c Checkpoint) { seen = append(seen, c) }))

	err := store.Replace(context.Background(), "Largest_banks", sampleRecords(1))

	assert.ErrorIs(t, err, ErrOpen)
	assert.Empty(t, seen)
}

func TestQueryReleasesConnectionOnFailure(t *testing.T) {
	store, mock := mockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT Name").WillReturnError(errDisk)
	mock.ExpectRollback()
	mock.ExpectClose()

	res, err := store.Query(context.Background(), "SELECT Name FROM Largest_banks")

	assert.ErrorIs(t, err, ErrQuery)
	assert.Equal(t, "SELECT Name FROM Largest_banks", res.Statement)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryConvertsBytesToStrings(t *testing.T) {
	store, mock := mockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT Name").WillReturnRows(
		sqlmock.NewRows([]string{"Name", "MC_GBP_Billion"}).
			AddRow([]byte("JPMorgan Chase"), 346.34))
	mock.ExpectCommit()
	mock.ExpectClose()

	res, err := store.Query(context.Background(), "SELECT Name, MC_GBP_Billion FROM Largest_banks")

	require.NoError(t, err)
	assert.Equal(t, []string{"Name", "MC_GBP_Billion"}, res.Columns)
	assert.Equal(t, [][]any{{"JPMorgan Chase", 346.34}}, res.Rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
