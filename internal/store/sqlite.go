package store

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/lobbying-cli/internal/gifts"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS expenditures (
	id                  TEXT PRIMARY KEY,
	lobbyist_first_name TEXT NOT NULL DEFAULT '',
	lobbyist_last_name  TEXT NOT NULL DEFAULT '',
	report_period       TEXT NOT NULL,
	recipient           TEXT NOT NULL DEFAULT '',
	recipient_type      TEXT NOT NULL DEFAULT '',
	legislator          TEXT NOT NULL DEFAULT '',
	event_date          TEXT NOT NULL,
	event_type          TEXT NOT NULL DEFAULT '',
	category            TEXT NOT NULL DEFAULT '',
	description         TEXT NOT NULL DEFAULT '',
	cost                REAL NOT NULL DEFAULT 0,
	principal           TEXT NOT NULL DEFAULT '',
	organization_slug   TEXT NOT NULL DEFAULT '',
	industry            TEXT NOT NULL DEFAULT '',
	gift_group          TEXT NOT NULL DEFAULT '',
	ethics_id           TEXT NOT NULL DEFAULT '',
	solicitation        INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS imports (
	id         TEXT PRIMARY KEY,
	source     TEXT NOT NULL,
	row_count  INTEGER NOT NULL,
	skipped    INTEGER NOT NULL,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_expenditures_legislator ON expenditures(legislator);
CREATE INDEX IF NOT EXISTS idx_expenditures_org ON expenditures(organization_slug);
CREATE INDEX IF NOT EXISTS idx_expenditures_report ON expenditures(report_period);
`

// Migrate creates the schema.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func sqlitePlaceholder(int) string { return "?" }

// SaveExpenditures upserts exps by id in one transaction.
func (s *SQLiteStore) SaveExpenditures(ctx context.Context, exps []gifts.Expenditure) (int64, error) {
	if len(exps) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	updates := make([]string, 0, len(expenditureColumns)-1)
	for _, c := range expenditureColumns[1:] {
		updates = append(updates, c+" = excluded."+c)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO expenditures (`+strings.Join(expenditureColumns, ", ")+`) VALUES (`+
			strings.TrimSuffix(strings.Repeat("?, ", len(expenditureColumns)), ", ")+
			`) ON CONFLICT(id) DO UPDATE SET `+strings.Join(updates, ", "),
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare upsert")
	}
	defer stmt.Close() //nolint:errcheck

	var n int64
	for _, e := range exps {
		res, err := stmt.ExecContext(ctx, expenditureValues(e, isoDate)...)
		if err != nil {
			return n, eris.Wrapf(err, "sqlite: upsert expenditure %s", e.ID)
		}
		affected, _ := res.RowsAffected()
		n += affected
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit")
	}
	return n, nil
}

// ListExpenditures returns matching rows ordered by event date.
func (s *SQLiteStore) ListExpenditures(ctx context.Context, filter ExpenditureFilter) ([]gifts.Expenditure, error) {
	where, args := filter.where(sqlitePlaceholder, isoDate)
	query := `SELECT ` + strings.Join(expenditureColumns, ", ") + ` FROM expenditures` + where +
		` ORDER BY event_date, id`
	if filter.Limit > 0 {
		query += ` LIMIT ` + strconv.Itoa(filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list expenditures")
	}
	defer rows.Close() //nolint:errcheck

	var out []gifts.Expenditure
	for rows.Next() {
		e, err := scanExpenditure(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan expenditure")
		}
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate expenditures")
}

// CountExpenditures returns the number of stored rows.
func (s *SQLiteStore) CountExpenditures(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM expenditures`).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "sqlite: count expenditures")
	}
	return n, nil
}

// DeleteExpenditures removes every row.
func (s *SQLiteStore) DeleteExpenditures(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM expenditures`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expenditures")
	}
	return res.RowsAffected()
}

// RecordImport appends to the import log.
func (s *SQLiteStore) RecordImport(ctx context.Context, source string, rows, skipped int) (*ImportRun, error) {
	run := &ImportRun{
		ID:        newID(),
		Source:    source,
		Rows:      rows,
		Skipped:   skipped,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO imports (id, source, row_count, skipped, created_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Source, run.Rows, run.Skipped, run.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert import")
	}
	return run, nil
}

// ListImports returns the newest imports first.
func (s *SQLiteStore) ListImports(ctx context.Context, limit int) ([]ImportRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, row_count, skipped, created_at FROM imports ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list imports")
	}
	defer rows.Close() //nolint:errcheck

	var out []ImportRun
	for rows.Next() {
		var (
			run     ImportRun
			created string
		)
		if err := rows.Scan(&run.ID, &run.Source, &run.Rows, &run.Skipped, &created); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan import")
		}
		run.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, run)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate imports")
}
