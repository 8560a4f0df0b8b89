package gifts

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lobbying-cli/internal/directory"
	"github.com/sells-group/lobbying-cli/internal/fetcher"
)

// Spreadsheet column names.
const (
	ColLobbyistFirst = "Lob F Name"
	ColLobbyistLast  = "Lob L Name"
	ColReport        = "Report"
	ColRecipient     = "Recipient"
	ColDate          = "Date"
	ColType          = "Type"
	ColDescription   = "Description"
	ColCost          = "Cost"
	ColPrincipal     = "Principal"

	ColLegislator    = "Legislator"
	ColRecipientType = "Recipient Type"
	ColCategory      = "Category"
	ColIndustry      = "Industry"
	ColGroup         = "Group"
	ColEthicsID      = "Ethics ID"
	ColSolicitation  = "Solicitation"
)

// RequiredColumns must be present in every expenditure export.
var RequiredColumns = []string{
	ColLobbyistFirst, ColLobbyistLast, ColReport, ColRecipient, ColDate,
	ColType, ColDescription, ColCost, ColPrincipal,
}

// idNamespace seeds deterministic expenditure ids so re-imports upsert.
var idNamespace = uuid.MustParse("5b0b7a0e-3c1c-4f4e-9d3b-6f1f6c0d2a11")

// ParseReportPeriod parses "Jan-13" style report months.
func ParseReportPeriod(s string) (time.Time, error) {
	t, err := time.Parse("Jan-06", strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "gifts: report period %q", s)
	}
	return t, nil
}

// ParseEventDate parses m/d/yyyy dates.
func ParseEventDate(s string) (time.Time, error) {
	t, err := time.Parse("1/2/2006", strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "gifts: event date %q", s)
	}
	return t, nil
}

// ParseCost parses "$1,234.50" or "($12.50)". Parentheses are stripped
// without negating the amount.
func ParseCost(s string) (float64, error) {
	v := strings.TrimSpace(s)
	v = strings.Trim(v, "()")
	v = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(v), "$"))
	v = strings.ReplaceAll(v, ",", "")
	if v == "" {
		return 0, eris.Errorf("gifts: empty cost")
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "gifts: cost %q", s)
	}
	return f, nil
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes", "true", "1", "x":
		return true
	}
	return false
}

// RowError records a row that could not be parsed.
type RowError struct {
	Row int // 1-based data row
	Err error
}

// ParseRow converts one spreadsheet row. dir may be nil; when set, rows
// are attributed to a legislator by the Legislator column or, failing that,
// by the recipient name.
func ParseRow(tbl *fetcher.Table, row []string, dir *directory.Directory) (Expenditure, error) {
	get := func(col string) string { return tbl.Get(row, col) }

	report, err := ParseReportPeriod(get(ColReport))
	if err != nil {
		return Expenditure{}, err
	}
	date, err := ParseEventDate(get(ColDate))
	if err != nil {
		return Expenditure{}, err
	}
	cost, err := ParseCost(get(ColCost))
	if err != nil {
		return Expenditure{}, err
	}

	e := Expenditure{
		LobbyistFirstName: get(ColLobbyistFirst),
		LobbyistLastName:  get(ColLobbyistLast),
		ReportPeriod:      report,
		Recipient:         get(ColRecipient),
		RecipientType:     get(ColRecipientType),
		EventDate:         date,
		EventType:         get(ColType),
		Category:          get(ColCategory),
		Description:       get(ColDescription),
		Cost:              cost,
		Principal:         get(ColPrincipal),
		Industry:          get(ColIndustry),
		Group:             get(ColGroup),
		EthicsID:          get(ColEthicsID),
		Solicitation:      parseBool(get(ColSolicitation)),
	}
	if e.Principal == "" {
		return Expenditure{}, eris.New("gifts: row has no principal")
	}
	if e.Category == "" {
		e.Category = e.EventType
	}

	if dir != nil {
		name := get(ColLegislator)
		if name == "" {
			name = e.Recipient
		}
		if l, ok := dir.ByName(name); ok {
			e.Legislator = l.Slug
			if e.RecipientType == "" {
				e.RecipientType = l.Office()
			}
		}
	}

	e.ID = rowID(row, 0)
	return e, nil
}

// rowID derives a stable id from a row's cells. occurrence numbers repeats
// of an identical row so each one keeps its own id across re-imports.
func rowID(row []string, occurrence int) uuid.UUID {
	key := strings.Join(row, "\x1f")
	if occurrence > 0 {
		key += "\x1e" + strconv.Itoa(occurrence)
	}
	return uuid.NewSHA1(idNamespace, []byte(key))
}

// ParseTable converts every data row. Bad rows are returned as RowErrors
// and skipped; a missing required column fails the whole table.
func ParseTable(tbl *fetcher.Table, dir *directory.Directory) ([]Expenditure, []RowError, error) {
	if err := tbl.Require(RequiredColumns...); err != nil {
		return nil, nil, eris.Wrap(err, "gifts: expenditure table")
	}

	log := zap.L().With(zap.String("component", "gifts"))
	exps := make([]Expenditure, 0, len(tbl.Rows))
	var rowErrs []RowError
	seen := map[uuid.UUID]int{}
	for i, row := range tbl.Rows {
		e, err := ParseRow(tbl, row, dir)
		if err != nil {
			rowErrs = append(rowErrs, RowError{Row: i + 1, Err: err})
			log.Debug("skipping row", zap.Int("row", i+1), zap.Error(err))
			continue
		}
		if n := seen[e.ID]; n > 0 {
			seen[e.ID]++
			e.ID = rowID(row, n)
		} else {
			seen[e.ID] = 1
		}
		exps = append(exps, e)
	}
	return exps, rowErrs, nil
}

func slugify(s string) string { return directory.Slugify(s) }
