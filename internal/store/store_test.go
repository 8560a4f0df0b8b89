package store

import (
	"time"

	"github.com/google/uuid"

	"github.com/sells-group/lobbying-cli/internal/gifts"
)

var (
	jan13 = time.Date(2013, time.January, 1, 0, 0, 0, 0, time.UTC)
	feb13 = time.Date(2013, time.February, 1, 0, 0, 0, 0, time.UTC)
)

func sampleExpenditures() []gifts.Expenditure {
	return []gifts.Expenditure{
		{
			ID:                uuid.MustParse("00000000-0000-0000-0000-000000000001"),
			LobbyistFirstName: "Al",
			LobbyistLastName:  "Lobby",
			ReportPeriod:      jan13,
			Recipient:         "Jane Doe",
			RecipientType:     "Senator",
			Legislator:        "jane-doe",
			EventDate:         time.Date(2013, time.January, 15, 0, 0, 0, 0, time.UTC),
			EventType:         "Meal",
			Category:          "Meal",
			Description:       "Dinner",
			Cost:              40,
			Principal:         "Acme Corp",
			Industry:          "Energy",
			Solicitation:      true,
		},
		{
			ID:           uuid.MustParse("00000000-0000-0000-0000-000000000002"),
			ReportPeriod: feb13,
			Recipient:    "Staffer",
			EventDate:    time.Date(2013, time.February, 2, 0, 0, 0, 0, time.UTC),
			EventType:    "Gift",
			Cost:         5,
			Principal:    "Widgets",
			Group:        "Freshman caucus",
		},
	}
}
