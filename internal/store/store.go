// Package store persists imported expenditures and the import log.
package store

import (
	"context"
	"time"

	"github.com/sells-group/lobbying-cli/internal/gifts"
)

// ExpenditureFilter narrows ListExpenditures. Zero fields match everything.
type ExpenditureFilter struct {
	Legislator   string    `json:"legislator,omitempty"`
	Organization string    `json:"organization,omitempty"`
	Since        time.Time `json:"since,omitempty"`
	Limit        int       `json:"limit,omitempty"`
}

// ImportRun records one spreadsheet import.
type ImportRun struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Rows      int       `json:"rows"`
	Skipped   int       `json:"skipped"`
	CreatedAt time.Time `json:"created_at"`
}

// Store defines the persistence interface for expenditures.
type Store interface {
	// Expenditures
	SaveExpenditures(ctx context.Context, exps []gifts.Expenditure) (int64, error)
	ListExpenditures(ctx context.Context, filter ExpenditureFilter) ([]gifts.Expenditure, error)
	CountExpenditures(ctx context.Context) (int, error)
	DeleteExpenditures(ctx context.Context) (int64, error)

	// Import log
	RecordImport(ctx context.Context, source string, rows, skipped int) (*ImportRun, error)
	ListImports(ctx context.Context, limit int) ([]ImportRun, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// expenditureColumns is the shared column order for writes and reads.
var expenditureColumns = []string{
	"id",
	"lobbyist_first_name",
	"lobbyist_last_name",
	"report_period",
	"recipient",
	"recipient_type",
	"legislator",
	"event_date",
	"event_type",
	"category",
	"description",
	"cost",
	"principal",
	"organization_slug",
	"industry",
	"gift_group",
	"ethics_id",
	"solicitation",
}

// where builds a WHERE clause for f using placeholder(n) for the nth
// argument and date to encode the Since bound.
func (f ExpenditureFilter) where(placeholder func(int) string, date func(time.Time) any) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	add := func(expr string, v any) {
		args = append(args, v)
		clauses = append(clauses, expr+" "+placeholder(len(args)))
	}
	if f.Legislator != "" {
		add("legislator =", f.Legislator)
	}
	if f.Organization != "" {
		add("organization_slug =", f.Organization)
	}
	if !f.Since.IsZero() {
		add("report_period >=", date(f.Since))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	out := " WHERE " + clauses[0]
	for _, c := range clauses[1:] {
		out += " AND " + c
	}
	return out, args
}

const dateLayout = "2006-01-02"

func isoDate(t time.Time) any { return t.Format(dateLayout) }

func pgDate(t time.Time) any { return t.UTC().Truncate(24 * time.Hour) }

type scannable interface {
	Scan(dest ...any) error
}

// scanExpenditure reads one row in expenditureColumns order. Dates are
// read as ISO text.
func scanExpenditure(row scannable) (gifts.Expenditure, error) {
	var (
		e              gifts.Expenditure
		id, report, ev string
		orgSlug        string
	)
	err := row.Scan(
		&id,
		&e.LobbyistFirstName,
		&e.LobbyistLastName,
		&report,
		&e.Recipient,
		&e.RecipientType,
		&e.Legislator,
		&ev,
		&e.EventType,
		&e.Category,
		&e.Description,
		&e.Cost,
		&e.Principal,
		&orgSlug,
		&e.Industry,
		&e.Group,
		&e.EthicsID,
		&e.Solicitation,
	)
	if err != nil {
		return e, err
	}
	if e.ID, err = parseUUID(id); err != nil {
		return e, err
	}
	if e.ReportPeriod, err = time.Parse(dateLayout, report); err != nil {
		return e, err
	}
	if e.EventDate, err = time.Parse(dateLayout, ev); err != nil {
		return e, err
	}
	return e, nil
}

// expenditureValues flattens e in expenditureColumns order, encoding dates
// with date.
func expenditureValues(e gifts.Expenditure, date func(time.Time) any) []any {
	return []any{
		e.ID.String(),
		e.LobbyistFirstName,
		e.LobbyistLastName,
		date(e.ReportPeriod),
		e.Recipient,
		e.RecipientType,
		e.Legislator,
		date(e.EventDate),
		e.EventType,
		e.Category,
		e.Description,
		e.Cost,
		e.Principal,
		e.OrganizationSlug(),
		e.Industry,
		e.Group,
		e.EthicsID,
		e.Solicitation,
	}
}
