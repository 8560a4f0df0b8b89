package gifts

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lobbying-cli/internal/directory"
	"github.com/sells-group/lobbying-cli/internal/district"
	"github.com/sells-group/lobbying-cli/internal/fetcher"
)

var header = []string{
	"Lob F Name", "Lob L Name", "Report", "Recipient", "Date", "Type",
	"Description", "Cost", "Principal", "Industry", "Solicitation",
}

func testDirectory(t *testing.T) *directory.Directory {
	t.Helper()
	dir, err := directory.New([]directory.Legislator{
		{Chamber: district.Senate, District: "5", Name: "Jane Doe", Party: "R"},
		{Chamber: district.House, District: "12", Name: "Mary Smith", Party: "D"},
	})
	require.NoError(t, err)
	return dir
}

func testTable(rows ...[]string) *fetcher.Table {
	return fetcher.NewTable(append([][]string{header}, rows...))
}

func TestParseHelpers(t *testing.T) {
	report, err := ParseReportPeriod(" Jan-13 ")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2013, time.January, 1, 0, 0, 0, 0, time.UTC), report)

	date, err := ParseEventDate("3/7/2013")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2013, time.March, 7, 0, 0, 0, 0, time.UTC), date)

	_, err = ParseReportPeriod("2013-01")
	assert.Error(t, err)
	_, err = ParseEventDate("March 7")
	assert.Error(t, err)

	costs := map[string]float64{
		"$12.50":     12.5,
		"($12.50)":   12.5,
		" $1,234.00": 1234,
		"7":          7,
	}
	for in, want := range costs {
		got, err := ParseCost(in)
		require.NoError(t, err, in)
		assert.InDelta(t, want, got, 0.001, in)
	}
	_, err = ParseCost("()")
	assert.Error(t, err)
	_, err = ParseCost("$abc")
	assert.Error(t, err)
}

func TestParseTable(t *testing.T) {
	tbl := testTable(
		[]string{"Al", "Lobby", "Jan-13", "Sen. Jane Doe", "1/15/2013", "Meal", "Dinner", "($40.00)", "Acme Corp", "Energy", "N"},
		[]string{"Al", "Lobby", "Feb-13", "Staffer", "2/1/2013", "Gift", "Mug", "$5", "Acme Corp", "", "Y"},
		[]string{"Bo", "Bee", "bad", "Mary Smith", "2/1/2013", "Gift", "Mug", "$5", "Widgets", "", ""},
	)

	exps, rowErrs, err := ParseTable(tbl, testDirectory(t))
	require.NoError(t, err)
	require.Len(t, exps, 2)
	require.Len(t, rowErrs, 1)
	assert.Equal(t, 3, rowErrs[0].Row)

	first := exps[0]
	assert.Equal(t, "jane-doe", first.Legislator)
	assert.Equal(t, "Senator", first.RecipientType)
	assert.Equal(t, "Meal", first.Category, "category falls back to type")
	assert.InDelta(t, 40.0, first.Cost, 0.001)
	assert.Equal(t, "acme-corp", first.OrganizationSlug())
	assert.Equal(t, "Al Lobby", first.Lobbyist())
	assert.False(t, first.Solicitation)

	assert.Empty(t, exps[1].Legislator)
	assert.True(t, exps[1].Solicitation)

	again, _, err := ParseTable(tbl, nil)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again[0].ID, "ids are stable across imports")
	assert.Empty(t, again[0].Legislator, "no directory, no attribution")
}

func TestParseTable_DuplicateRows(t *testing.T) {
	row := []string{"Al", "Lobby", "Jan-13", "Sen. Jane Doe", "1/15/2013", "Meal", "Lunch", "$12.00", "Acme Corp", "", "N"}
	tbl := testTable(row, row, row)

	exps, rowErrs, err := ParseTable(tbl, testDirectory(t))
	require.NoError(t, err)
	require.Empty(t, rowErrs)
	require.Len(t, exps, 3)

	ids := map[string]bool{}
	var total float64
	for _, e := range exps {
		ids[e.ID.String()] = true
		total += e.Cost
	}
	assert.Len(t, ids, 3, "identical rows keep distinct ids")
	assert.InDelta(t, 36.0, total, 0.001)

	again, _, err := ParseTable(tbl, testDirectory(t))
	require.NoError(t, err)
	for i := range exps {
		assert.Equal(t, exps[i].ID, again[i].ID)
	}
}

func TestParseTable_MissingColumns(t *testing.T) {
	tbl := fetcher.NewTable([][]string{{"Recipient", "Cost"}, {"x", "1"}})
	_, _, err := ParseTable(tbl, nil)
	assert.Error(t, err)
}

func TestParseRow_LegislatorColumn(t *testing.T) {
	tbl := fetcher.NewTable([][]string{
		append(append([]string{}, header...), "Legislator"),
		{"Al", "Lobby", "Jan-13", "Family of legislator", "1/15/2013", "Meal", "Lunch", "$9", "Acme", "", "", "Mary Smith"},
	})
	e, err := ParseRow(tbl, tbl.Rows[0], testDirectory(t))
	require.NoError(t, err)
	assert.Equal(t, "mary-smith", e.Legislator)
	assert.Equal(t, "Representative", e.RecipientType)
}

func exp(leg, principal, industry string, cost float64, report time.Time) Expenditure {
	return Expenditure{
		Legislator:        leg,
		Recipient:         leg,
		Principal:         principal,
		Industry:          industry,
		Cost:              cost,
		ReportPeriod:      report,
		EventDate:         report,
		LobbyistFirstName: "L",
		LobbyistLastName:  principal,
	}
}

func TestAgo(t *testing.T) {
	assert.Equal(t, time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC),
		Ago(time.Date(2026, time.June, 15, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		Ago(time.Date(2026, time.December, 3, 0, 0, 0, 0, time.UTC)), "december rolls into january")
}

func TestRankings(t *testing.T) {
	now := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	old := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

	exps := []Expenditure{
		exp("jane-doe", "Acme", "Energy", 100, recent),
		exp("jane-doe", "Widgets", "", 20, recent),
		exp("mary-smith", "Acme", "Energy", 50, recent),
		exp("mary-smith", "Acme", "Energy", 500, old),
		exp("", "Widgets", "", 5, recent),
	}

	sum := Summarize(exps, now)
	assert.InDelta(t, 175.0, sum.TotalSpending, 0.001)
	assert.Equal(t, 4, sum.TotalExpenditures)
	assert.Equal(t, 2, sum.Organizations)
	assert.Equal(t, 2, sum.Lobbyists)
	assert.Equal(t, 2, sum.Legislators)
	require.Len(t, sum.TopLegislators, 2)
	assert.Equal(t, "jane-doe", sum.TopLegislators[0].Key)
	assert.Equal(t, "acme", sum.TopOrganizations[0].Key)
	require.Len(t, sum.Categories, 2)
	assert.Equal(t, "Energy", sum.Categories[0].Key)
	assert.Equal(t, Uncategorized, sum.Categories[1].Key)

	mary := LegislatorProfile(exps, "mary-smith", now)
	assert.Equal(t, 2, mary.Rank)
	assert.InDelta(t, 550.0, mary.TotalSpending, 0.001)
	assert.InDelta(t, 50.0, mary.TotalSpendingRecent, 0.001)
	assert.Equal(t, 2, mary.TotalExpenditures)
	assert.Equal(t, 1, mary.TotalExpendituresRecent)
	assert.InDelta(t, 500.0, mary.Expenditures[0].Cost, 0.001, "sorted by cost desc")
	require.Len(t, mary.TopOrganizations, 1)

	acme := OrganizationProfile(exps, "acme", now)
	assert.Equal(t, 1, acme.Rank)
	require.Len(t, acme.TopLegislators, 2)
	assert.Equal(t, "mary-smith", acme.TopLegislators[0].Key)

	nobody := LegislatorProfile(exps, "nobody", now)
	assert.Equal(t, 0, nobody.Rank)
	assert.Empty(t, nobody.Expenditures)
}

func TestTopAndOrganizations(t *testing.T) {
	var ts []Total
	for i := 0; i < 15; i++ {
		ts = append(ts, Total{Key: string(rune('a' + i))})
	}
	assert.Len(t, Top(ts, TopN), TopN)
	assert.Len(t, Top(ts[:3], TopN), 3)

	exps := []Expenditure{
		{Principal: "Acme Corp"},
		{Principal: "ACME corp", Industry: "Energy"},
		{Principal: ""},
	}
	orgs := Organizations(exps)
	require.Len(t, orgs, 1)
	assert.Equal(t, "Acme Corp", orgs[0].Name)
	assert.Equal(t, "Energy", orgs[0].Industry)

	_, ok := FindOrganization(exps, "acme-corp")
	assert.True(t, ok)
	_, ok = FindOrganization(exps, "zzz")
	assert.False(t, ok)
}

func TestSortAndQuery(t *testing.T) {
	d1 := time.Date(2013, 1, 1, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2013, 2, 1, 0, 0, 0, 0, time.UTC)
	exps := []Expenditure{
		{Recipient: "b", Cost: 5, EventDate: d2, Principal: "Acme", Legislator: "x"},
		{Recipient: "A", Cost: 50, EventDate: d1, Principal: "Widgets"},
		{Recipient: "c", Cost: 1, EventDate: d1, Principal: "Acme", Legislator: "x"},
	}

	f, err := ParseSort("")
	require.NoError(t, err)
	assert.Equal(t, SortDate, f)
	_, err = ParseSort("color")
	assert.Error(t, err)

	got := Query{Sort: SortCost, Desc: true}.Apply(exps)
	assert.Equal(t, []float64{50, 5, 1}, []float64{got[0].Cost, got[1].Cost, got[2].Cost})

	got = Query{Sort: SortRecipient}.Apply(exps)
	assert.Equal(t, "A", got[0].Recipient)

	got = Query{Sort: SortDate}.Apply(exps)
	assert.Equal(t, "A", got[0].Recipient, "stable among equal dates")
	assert.Equal(t, "b", got[2].Recipient)

	got = Query{Organization: "acme", Legislator: "x", Sort: SortCost, Limit: 1}.Apply(exps)
	require.Len(t, got, 1)
	assert.InDelta(t, 1.0, got[0].Cost, 0.001)

	assert.Equal(t, "b", exps[0].Recipient, "input not reordered")
}

func TestWriteCSV(t *testing.T) {
	dir := testDirectory(t)
	report := time.Date(2013, 1, 1, 0, 0, 0, 0, time.UTC)
	exps := []Expenditure{
		{
			LobbyistFirstName: "Al", LobbyistLastName: "Lobby", ReportPeriod: report, EventDate: report,
			Recipient: "Jane Doe", Legislator: "jane-doe", Cost: 12.5, Principal: "Acme, Inc.", Solicitation: true,
		},
		{Recipient: "Staff", Principal: "Widgets", ReportPeriod: report, EventDate: report},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, exps, dir))

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, ExportColumns, records[0])

	row := records[1]
	assert.Equal(t, "2013-01-01", row[2])
	assert.Equal(t, "Jane", row[5])
	assert.Equal(t, "Doe", row[6])
	assert.Equal(t, "Senator", row[7])
	assert.Equal(t, "R", row[8])
	assert.Equal(t, "5", row[9])
	assert.Equal(t, "12.50", row[13])
	assert.Equal(t, "Acme, Inc.", row[14])
	assert.Equal(t, "true", row[18])

	assert.Empty(t, records[2][5], "unattributed row has no legislator")
}
