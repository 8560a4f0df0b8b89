package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewPostgresFromPool(mock), mock
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS expenditures`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveExpenditures(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_tmp_upsert_expenditures"`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_expenditures"}, expenditureColumns).WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "expenditures" .* ON CONFLICT \("id"\) DO UPDATE SET "lobbyist_first_name" = EXCLUDED`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()
	mock.ExpectRollback()

	n, err := s.SaveExpenditures(context.Background(), sampleExpenditures())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestPostgresStore_SaveExpenditures_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	_, err := s.SaveExpenditures(context.Background(), sampleExpenditures())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save expenditures")
}

func TestPostgresStore_ListExpenditures(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	want := sampleExpenditures()[0]

	rows := pgxmock.NewRows(expenditureColumns).AddRow(
		want.ID.String(), "Al", "Lobby", "2013-01-01", "Jane Doe", "Senator", "jane-doe",
		"2013-01-15", "Meal", "Meal", "Dinner", 40.0, "Acme Corp", "acme-corp", "Energy", "", "", true,
	)
	mock.ExpectQuery(`SELECT id, .*report_period::text.* FROM expenditures WHERE legislator = \$1 AND report_period >= \$2 ORDER BY event_date, id LIMIT 5`).
		WithArgs("jane-doe", jan13).
		WillReturnRows(rows)

	got, err := s.ListExpenditures(context.Background(), ExpenditureFilter{
		Legislator: "jane-doe",
		Since:      jan13,
		Limit:      5,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, want, got[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListExpenditures_BadRow(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := pgxmock.NewRows(expenditureColumns).AddRow(
		"not-a-uuid", "", "", "2013-01-01", "", "", "", "2013-01-15", "", "", "", 1.0, "", "", "", "", "", false,
	)
	mock.ExpectQuery(`SELECT id, .* FROM expenditures ORDER BY event_date, id`).WillReturnRows(rows)

	_, err := s.ListExpenditures(context.Background(), ExpenditureFilter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scan expenditure")
}

func TestPostgresStore_CountAndDelete(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM expenditures`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(7))
	mock.ExpectExec(`DELETE FROM expenditures`).
		WillReturnResult(pgxmock.NewResult("DELETE", 7))

	n, err := s.CountExpenditures(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	deleted, err := s.DeleteExpenditures(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Imports(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	created := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO imports`).
		WithArgs(pgxmock.AnyArg(), "gifts.xlsx", 10, 2, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(`SELECT id, source, row_count, skipped, created_at FROM imports ORDER BY created_at DESC LIMIT \$1`).
		WithArgs(20).
		WillReturnRows(pgxmock.NewRows([]string{"id", "source", "row_count", "skipped", "created_at"}).
			AddRow("run-1", "gifts.xlsx", 10, 2, created))

	run, err := s.RecordImport(context.Background(), "gifts.xlsx", 10, 2)
	require.NoError(t, err)
	assert.Equal(t, 10, run.Rows)

	runs, err := s.ListImports(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, created, runs[0].CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CloseBorrowedPool(t *testing.T) {
	s, _ := newMockPostgresStore(t)
	assert.NoError(t, s.Close())
	assert.NotNil(t, s.Pool())
}
