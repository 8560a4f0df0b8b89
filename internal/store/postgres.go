package store

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lobbying-cli/internal/db"
	"github.com/sells-group/lobbying-cli/internal/gifts"
)

// PostgresStore implements Store on a pgx pool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres opens a pool and returns a PostgresStore.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	opts := db.PoolOptions{MaxConns: 10, MinConns: 2}
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			opts.MaxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			opts.MinConns = poolCfg.MinConns
		}
	}
	pool, err := db.Open(ctx, connString, opts)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: open")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool. Close does not close it.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Pool returns the underlying pool for subsystems that share it, such as
// the geocode cache and district persistence.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS expenditures (
	id                  TEXT PRIMARY KEY,
	lobbyist_first_name TEXT NOT NULL DEFAULT '',
	lobbyist_last_name  TEXT NOT NULL DEFAULT '',
	report_period       DATE NOT NULL,
	recipient           TEXT NOT NULL DEFAULT '',
	recipient_type      TEXT NOT NULL DEFAULT '',
	legislator          TEXT NOT NULL DEFAULT '',
	event_date          DATE NOT NULL,
	event_type          TEXT NOT NULL DEFAULT '',
	category            TEXT NOT NULL DEFAULT '',
	description         TEXT NOT NULL DEFAULT '',
	cost                DOUBLE PRECISION NOT NULL DEFAULT 0,
	principal           TEXT NOT NULL DEFAULT '',
	organization_slug   TEXT NOT NULL DEFAULT '',
	industry            TEXT NOT NULL DEFAULT '',
	gift_group          TEXT NOT NULL DEFAULT '',
	ethics_id           TEXT NOT NULL DEFAULT '',
	solicitation        BOOLEAN NOT NULL DEFAULT false
);

CREATE TABLE IF NOT EXISTS imports (
	id         TEXT PRIMARY KEY,
	source     TEXT NOT NULL,
	row_count  INTEGER NOT NULL,
	skipped    INTEGER NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_expenditures_legislator ON expenditures(legislator);
CREATE INDEX IF NOT EXISTS idx_expenditures_org ON expenditures(organization_slug);
CREATE INDEX IF NOT EXISTS idx_expenditures_report ON expenditures(report_period);
`

// Migrate creates the schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Close releases the pool when the store owns it.
func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func pgPlaceholder(n int) string { return "$" + strconv.Itoa(n) }

// SaveExpenditures bulk upserts exps by id.
func (s *PostgresStore) SaveExpenditures(ctx context.Context, exps []gifts.Expenditure) (int64, error) {
	rows := make([][]any, len(exps))
	for i, e := range exps {
		rows[i] = expenditureValues(e, pgDate)
	}
	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "expenditures",
		Columns:      expenditureColumns,
		ConflictKeys: []string{"id"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: save expenditures")
	}
	return n, nil
}

// pgSelectColumns casts dates to ISO text for scanExpenditure.
func pgSelectColumns() string {
	cols := make([]string, len(expenditureColumns))
	for i, c := range expenditureColumns {
		switch c {
		case "report_period", "event_date":
			cols[i] = c + "::text"
		default:
			cols[i] = c
		}
	}
	return strings.Join(cols, ", ")
}

// ListExpenditures returns matching rows ordered by event date.
func (s *PostgresStore) ListExpenditures(ctx context.Context, filter ExpenditureFilter) ([]gifts.Expenditure, error) {
	where, args := filter.where(pgPlaceholder, pgDate)
	query := `SELECT ` + pgSelectColumns() + ` FROM expenditures` + where + ` ORDER BY event_date, id`
	if filter.Limit > 0 {
		query += ` LIMIT ` + strconv.Itoa(filter.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list expenditures")
	}
	defer rows.Close()

	var out []gifts.Expenditure
	for rows.Next() {
		e, err := scanExpenditure(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan expenditure")
		}
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate expenditures")
}

// CountExpenditures returns the number of stored rows.
func (s *PostgresStore) CountExpenditures(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM expenditures`).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "postgres: count expenditures")
	}
	return n, nil
}

// DeleteExpenditures removes every row.
func (s *PostgresStore) DeleteExpenditures(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM expenditures`)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expenditures")
	}
	return tag.RowsAffected(), nil
}

// RecordImport appends to the import log.
func (s *PostgresStore) RecordImport(ctx context.Context, source string, rows, skipped int) (*ImportRun, error) {
	run := &ImportRun{
		ID:        newID(),
		Source:    source,
		Rows:      rows,
		Skipped:   skipped,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO imports (id, source, row_count, skipped, created_at) VALUES ($1, $2, $3, $4, $5)`,
		run.ID, run.Source, run.Rows, run.Skipped, run.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert import")
	}
	return run, nil
}

// ListImports returns the newest imports first.
func (s *PostgresStore) ListImports(ctx context.Context, limit int) ([]ImportRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, source, row_count, skipped, created_at FROM imports ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list imports")
	}
	defer rows.Close()

	var out []ImportRun
	for rows.Next() {
		var run ImportRun
		if err := rows.Scan(&run.ID, &run.Source, &run.Rows, &run.Skipped, &run.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan import")
		}
		out = append(out, run)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate imports")
}
