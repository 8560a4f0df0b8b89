package gifts

import (
	"sort"
	"time"
)

// TopN is the length of the "top" lists.
const TopN = 10

// Uncategorized labels spending with no industry.
const Uncategorized = "Uncategorized"

// Ago returns the start of the recent window: the first day of the month
// after the current one, two years back.
func Ago(now time.Time) time.Time {
	return time.Date(now.Year()-2, now.Month()+1, 1, 0, 0, 0, 0, time.UTC)
}

// Since keeps expenditures reported on or after t.
func Since(exps []Expenditure, t time.Time) []Expenditure {
	var out []Expenditure
	for _, e := range exps {
		if !e.ReportPeriod.Before(t) {
			out = append(out, e)
		}
	}
	return out
}

// Sum returns the total cost.
func Sum(exps []Expenditure) float64 {
	var total float64
	for _, e := range exps {
		total += e.Cost
	}
	return total
}

// Total is aggregated spending for one key.
type Total struct {
	Key    string  `json:"key"`
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
	Count  int     `json:"count"`
}

// totals groups by key; empty keys are dropped. Output is sorted by amount
// descending with ties broken by key.
func totals(exps []Expenditure, key func(Expenditure) (string, string)) []Total {
	idx := map[string]int{}
	var out []Total
	for _, e := range exps {
		k, name := key(e)
		if k == "" {
			continue
		}
		i, ok := idx[k]
		if !ok {
			i = len(out)
			idx[k] = i
			out = append(out, Total{Key: k, Name: name})
		}
		out[i].Amount += e.Cost
		out[i].Count++
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Amount != out[j].Amount {
			return out[i].Amount > out[j].Amount
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// ByLegislator totals attributed spending per legislator slug.
func ByLegislator(exps []Expenditure) []Total {
	return totals(exps, func(e Expenditure) (string, string) { return e.Legislator, e.Recipient })
}

// ByOrganization totals spending per principal.
func ByOrganization(exps []Expenditure) []Total {
	return totals(exps, func(e Expenditure) (string, string) { return e.OrganizationSlug(), e.Principal })
}

// ByCategory totals spending per organization industry.
func ByCategory(exps []Expenditure) []Total {
	return totals(exps, func(e Expenditure) (string, string) {
		if e.Industry == "" {
			return Uncategorized, Uncategorized
		}
		return e.Industry, e.Industry
	})
}

// Top truncates a ranking to n entries.
func Top(ts []Total, n int) []Total {
	if len(ts) > n {
		return ts[:n]
	}
	return ts
}

// Rank returns the 1-based position of key, or 0 when absent.
func Rank(ts []Total, key string) int {
	for i, t := range ts {
		if t.Key == key {
			return i + 1
		}
	}
	return 0
}

// Summary is the statewide overview for the recent window.
type Summary struct {
	Since             time.Time `json:"since"`
	TotalSpending     float64   `json:"total_spending"`
	TotalExpenditures int       `json:"total_expenditures"`
	Organizations     int       `json:"organizations"`
	Lobbyists         int       `json:"lobbyists"`
	Legislators       int       `json:"legislators"`
	TopLegislators    []Total   `json:"top_legislators"`
	TopOrganizations  []Total   `json:"top_organizations"`
	Categories        []Total   `json:"categories"`
}

// Summarize builds the overview of expenditures reported since Ago(now).
func Summarize(exps []Expenditure, now time.Time) Summary {
	ago := Ago(now)
	recent := Since(exps, ago)

	lobbyists := map[string]struct{}{}
	for _, e := range recent {
		lobbyists[e.Lobbyist()] = struct{}{}
	}
	legislators := ByLegislator(recent)
	orgs := ByOrganization(recent)

	return Summary{
		Since:             ago,
		TotalSpending:     Sum(recent),
		TotalExpenditures: len(recent),
		Organizations:     len(orgs),
		Lobbyists:         len(lobbyists),
		Legislators:       len(legislators),
		TopLegislators:    Top(legislators, TopN),
		TopOrganizations:  Top(orgs, TopN),
		Categories:        ByCategory(recent),
	}
}

// Profile is the spending picture for one legislator or organization.
type Profile struct {
	Key                     string        `json:"key"`
	Expenditures            []Expenditure `json:"expenditures"`
	TotalSpending           float64       `json:"total_spending"`
	TotalSpendingRecent     float64       `json:"total_spending_recent"`
	TotalExpenditures       int           `json:"total_expenditures"`
	TotalExpendituresRecent int           `json:"total_expenditures_recent"`
	Rank                    int           `json:"rank"`
	TopOrganizations        []Total       `json:"top_organizations,omitempty"`
	TopCategories           []Total       `json:"top_categories,omitempty"`
	TopLegislators          []Total       `json:"top_legislators,omitempty"`
}

// LegislatorProfile ranks a legislator against all others by recent
// spending and lists who paid for their gifts.
func LegislatorProfile(exps []Expenditure, slug string, now time.Time) Profile {
	mine := filter(exps, func(e Expenditure) bool { return e.Legislator == slug })
	p := profile(slug, mine, now)
	p.Rank = Rank(ByLegislator(Since(exps, Ago(now))), slug)
	p.TopOrganizations = Top(ByOrganization(mine), TopN)
	p.TopCategories = ByCategory(mine)
	return p
}

// OrganizationProfile ranks an organization by recent spending and lists
// the legislators it spent the most on.
func OrganizationProfile(exps []Expenditure, slug string, now time.Time) Profile {
	mine := filter(exps, func(e Expenditure) bool { return e.OrganizationSlug() == slug })
	p := profile(slug, mine, now)
	p.Rank = Rank(ByOrganization(Since(exps, Ago(now))), slug)
	p.TopLegislators = Top(ByLegislator(mine), TopN)
	return p
}

func profile(key string, mine []Expenditure, now time.Time) Profile {
	recent := Since(mine, Ago(now))
	sorted := make([]Expenditure, len(mine))
	copy(sorted, mine)
	Sort(sorted, SortCost, true)
	return Profile{
		Key:                     key,
		Expenditures:            sorted,
		TotalSpending:           Sum(mine),
		TotalSpendingRecent:     Sum(recent),
		TotalExpenditures:       len(mine),
		TotalExpendituresRecent: len(recent),
	}
}

func filter(exps []Expenditure, keep func(Expenditure) bool) []Expenditure {
	var out []Expenditure
	for _, e := range exps {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}
