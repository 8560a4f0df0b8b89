// Package gifts models lobbyist expenditures reported to the Missouri Ethics
// Commission and computes the spending rankings shown alongside legislators.
package gifts

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Expenditure is one reported gift or expense.
type Expenditure struct {
	ID                uuid.UUID `json:"id"`
	LobbyistFirstName string    `json:"lobbyist_first_name"`
	LobbyistLastName  string    `json:"lobbyist_last_name"`
	ReportPeriod      time.Time `json:"report_period"`
	Recipient         string    `json:"recipient"`
	RecipientType     string    `json:"recipient_type,omitempty"`
	Legislator        string    `json:"legislator,omitempty"` // directory slug
	EventDate         time.Time `json:"event_date"`
	EventType         string    `json:"event_type"`
	Category          string    `json:"category,omitempty"`
	Description       string    `json:"description"`
	Cost              float64   `json:"cost"`
	Principal         string    `json:"principal"`
	Industry          string    `json:"industry,omitempty"`
	Group             string    `json:"group,omitempty"`
	EthicsID          string    `json:"ethics_id,omitempty"`
	Solicitation      bool      `json:"solicitation"`
}

// Lobbyist returns the lobbyist's full name.
func (e Expenditure) Lobbyist() string {
	return strings.TrimSpace(e.LobbyistFirstName + " " + e.LobbyistLastName)
}

// OrganizationSlug returns the slug of the paying principal.
func (e Expenditure) OrganizationSlug() string {
	return slugify(e.Principal)
}

// Organization is a principal paying for expenditures.
type Organization struct {
	Slug     string `json:"slug"`
	Name     string `json:"name"`
	Industry string `json:"industry,omitempty"`
}

// Organizations returns the distinct principals in first-seen order.
func Organizations(exps []Expenditure) []Organization {
	seen := map[string]int{}
	var out []Organization
	for _, e := range exps {
		slug := e.OrganizationSlug()
		if slug == "" {
			continue
		}
		if i, ok := seen[slug]; ok {
			if out[i].Industry == "" {
				out[i].Industry = e.Industry
			}
			continue
		}
		seen[slug] = len(out)
		out = append(out, Organization{Slug: slug, Name: e.Principal, Industry: e.Industry})
	}
	return out
}

// FindOrganization returns the organization with slug.
func FindOrganization(exps []Expenditure, slug string) (Organization, bool) {
	for _, o := range Organizations(exps) {
		if o.Slug == slug {
			return o, true
		}
	}
	return Organization{}, false
}
