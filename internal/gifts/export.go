package gifts

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lobbying-cli/internal/directory"
)

// DownloadFilename is the public name of the CSV export.
const DownloadFilename = "missouri-lobbying.csv"

// ExportColumns is the header of the CSV export.
var ExportColumns = []string{
	"lobbyist_first_name",
	"lobbyist_last_name",
	"report_period",
	"recipient_name",
	"recipient_type",
	"legislator_first_name",
	"legislator_last_name",
	"legislator_office",
	"legislator_party",
	"legislator_district",
	"event_date",
	"category",
	"description",
	"cost",
	"organization_name",
	"organization_industry",
	"group",
	"ethics_board_id",
	"is_solicitation",
}

// WriteCSV writes exps in export format. Legislator columns are filled from
// dir and left empty for unattributed rows.
func WriteCSV(w io.Writer, exps []Expenditure, dir *directory.Directory) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportColumns); err != nil {
		return eris.Wrap(err, "gifts: write csv header")
	}

	for _, e := range exps {
		var first, last, office, party, dist string
		if l, ok := dir.BySlug(e.Legislator); ok && e.Legislator != "" {
			first, last = directory.SplitName(l.Name)
			office, party, dist = l.Office(), l.Party, l.District
		}
		record := []string{
			e.LobbyistFirstName,
			e.LobbyistLastName,
			e.ReportPeriod.Format("2006-01-02"),
			e.Recipient,
			e.RecipientType,
			first,
			last,
			office,
			party,
			dist,
			e.EventDate.Format("2006-01-02"),
			e.Category,
			e.Description,
			strconv.FormatFloat(e.Cost, 'f', 2, 64),
			e.Principal,
			e.Industry,
			e.Group,
			e.EthicsID,
			strconv.FormatBool(e.Solicitation),
		}
		if err := cw.Write(record); err != nil {
			return eris.Wrap(err, "gifts: write csv row")
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "gifts: flush csv")
}
