package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLite_SaveAndList(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	n, err := st.SaveExpenditures(ctx, sampleExpenditures())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	all, err := st.ListExpenditures(ctx, ExpenditureFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, sampleExpenditures()[0], all[0])
	assert.Equal(t, "Freshman caucus", all[1].Group)
	assert.False(t, all[1].Solicitation)

	count, err := st.CountExpenditures(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestSQLite_SaveIsIdempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	exps := sampleExpenditures()
	_, err := st.SaveExpenditures(ctx, exps)
	require.NoError(t, err)

	exps[0].Cost = 99
	_, err = st.SaveExpenditures(ctx, exps)
	require.NoError(t, err)

	count, err := st.CountExpenditures(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	got, err := st.ListExpenditures(ctx, ExpenditureFilter{Legislator: "jane-doe"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 99.0, got[0].Cost, 0.001)
}

func TestSQLite_ListFilters(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	_, err := st.SaveExpenditures(ctx, sampleExpenditures())
	require.NoError(t, err)

	got, err := st.ListExpenditures(ctx, ExpenditureFilter{Organization: "widgets"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Staffer", got[0].Recipient)

	got, err = st.ListExpenditures(ctx, ExpenditureFilter{Since: feb13})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Widgets", got[0].Principal)

	got, err = st.ListExpenditures(ctx, ExpenditureFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = st.ListExpenditures(ctx, ExpenditureFilter{Legislator: "jane-doe", Organization: "widgets"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLite_Delete(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	n, err := st.SaveExpenditures(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	_, err = st.SaveExpenditures(ctx, sampleExpenditures())
	require.NoError(t, err)

	deleted, err := st.DeleteExpenditures(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	count, err := st.CountExpenditures(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSQLite_Imports(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	first, err := st.RecordImport(ctx, "gifts-2013.xlsx", 10, 1)
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)

	_, err = st.RecordImport(ctx, "gifts-2014.csv", 20, 0)
	require.NoError(t, err)

	runs, err := st.ListImports(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "gifts-2014.csv", runs[0].Source)
	assert.Equal(t, 10, runs[1].Rows)
	assert.Equal(t, 1, runs[1].Skipped)
	assert.False(t, runs[1].CreatedAt.IsZero())

	runs, err = st.ListImports(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestSQLite_ImplementsStore(t *testing.T) {
	var _ Store = newTestSQLiteStore(t)
	var _ Store = (*PostgresStore)(nil)
}
