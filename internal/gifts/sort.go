package gifts

import (
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

// SortField names a sortable expenditure column.
type SortField string

// Sortable columns.
const (
	SortDate         SortField = "date"
	SortCost         SortField = "cost"
	SortRecipient    SortField = "recipient"
	SortOrganization SortField = "organization"
	SortLobbyist     SortField = "lobbyist"
	SortReport       SortField = "report"
	SortType         SortField = "type"
)

// ParseSort maps a query value to a SortField; empty means date.
func ParseSort(s string) (SortField, error) {
	switch f := SortField(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return SortDate, nil
	case SortDate, SortCost, SortRecipient, SortOrganization, SortLobbyist, SortReport, SortType:
		return f, nil
	default:
		return "", eris.Errorf("gifts: unknown sort field %q", s)
	}
}

// Sort orders exps in place by field. Equal rows keep their order.
func Sort(exps []Expenditure, field SortField, desc bool) {
	less := lessFunc(field)
	sort.SliceStable(exps, func(i, j int) bool {
		if desc {
			return less(exps[j], exps[i])
		}
		return less(exps[i], exps[j])
	})
}

func lessFunc(field SortField) func(a, b Expenditure) bool {
	switch field {
	case SortCost:
		return func(a, b Expenditure) bool { return a.Cost < b.Cost }
	case SortRecipient:
		return func(a, b Expenditure) bool { return fold(a.Recipient) < fold(b.Recipient) }
	case SortOrganization:
		return func(a, b Expenditure) bool { return fold(a.Principal) < fold(b.Principal) }
	case SortLobbyist:
		return func(a, b Expenditure) bool {
			if fold(a.LobbyistLastName) != fold(b.LobbyistLastName) {
				return fold(a.LobbyistLastName) < fold(b.LobbyistLastName)
			}
			return fold(a.LobbyistFirstName) < fold(b.LobbyistFirstName)
		}
	case SortReport:
		return func(a, b Expenditure) bool { return a.ReportPeriod.Before(b.ReportPeriod) }
	case SortType:
		return func(a, b Expenditure) bool { return fold(a.EventType) < fold(b.EventType) }
	default:
		return func(a, b Expenditure) bool { return a.EventDate.Before(b.EventDate) }
	}
}

func fold(s string) string { return strings.ToLower(s) }

// Query selects and orders expenditures.
type Query struct {
	Legislator   string
	Organization string
	Sort         SortField
	Desc         bool
	Limit        int
}

// Apply filters a copy of exps and sorts it.
func (q Query) Apply(exps []Expenditure) []Expenditure {
	out := filter(exps, func(e Expenditure) bool {
		if q.Legislator != "" && e.Legislator != q.Legislator {
			return false
		}
		if q.Organization != "" && e.OrganizationSlug() != q.Organization {
			return false
		}
		return true
	})
	Sort(out, q.Sort, q.Desc)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}
