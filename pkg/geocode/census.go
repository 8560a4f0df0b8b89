package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/lobbying-cli/internal/resilience"
)

const (
	censusOneLineURL = "https://geocoding.geo.census.gov/geocoder/locations/onelineaddress"
	censusBenchmark  = "Public_AR_Current"
)

type censusOneLineResponse struct {
	Result struct {
		AddressMatches []censusAddressMatch `json:"addressMatches"`
	} `json:"result"`
}

type censusAddressMatch struct {
	Coordinates struct {
		X float64 `json:"x"` // longitude
		Y float64 `json:"y"` // latitude
	} `json:"coordinates"`
	MatchedAddress    string `json:"matchedAddress"`
	AddressComponents struct {
		State string `json:"state"`
	} `json:"addressComponents"`
}

// usStates maps USPS abbreviations to state names.
var usStates = map[string]string{
	"AL": "Alabama", "AK": "Alaska", "AZ": "Arizona", "AR": "Arkansas",
	"CA": "California", "CO": "Colorado", "CT": "Connecticut", "DE": "Delaware",
	"DC": "District of Columbia", "FL": "Florida", "GA": "Georgia", "HI": "Hawaii",
	"ID": "Idaho", "IL": "Illinois", "IN": "Indiana", "IA": "Iowa",
	"KS": "Kansas", "KY": "Kentucky", "LA": "Louisiana", "ME": "Maine",
	"MD": "Maryland", "MA": "Massachusetts", "MI": "Michigan", "MN": "Minnesota",
	"MS": "Mississippi", "MO": "Missouri", "MT": "Montana", "NE": "Nebraska",
	"NV": "Nevada", "NH": "New Hampshire", "NJ": "New Jersey", "NM": "New Mexico",
	"NY": "New York", "NC": "North Carolina", "ND": "North Dakota", "OH": "Ohio",
	"OK": "Oklahoma", "OR": "Oregon", "PA": "Pennsylvania", "RI": "Rhode Island",
	"SC": "South Carolina", "SD": "South Dakota", "TN": "Tennessee", "TX": "Texas",
	"UT": "Utah", "VT": "Vermont", "VA": "Virginia", "WA": "Washington",
	"WV": "West Virginia", "WI": "Wisconsin", "WY": "Wyoming", "PR": "Puerto Rico",
}

// displayName spells out the state and appends the country so Census
// matches read like Nominatim display names:
// "201 W CAPITOL AVE, JEFFERSON CITY, MO, 65101, Missouri, United States of America".
func (m censusAddressMatch) displayName() string {
	abbr := strings.ToUpper(strings.TrimSpace(m.AddressComponents.State))
	if abbr == "" {
		// matchedAddress ends "..., ST, ZIP".
		parts := strings.Split(m.MatchedAddress, ",")
		if len(parts) >= 2 {
			abbr = strings.ToUpper(strings.TrimSpace(parts[len(parts)-2]))
		}
	}
	name := m.MatchedAddress
	if state, ok := usStates[abbr]; ok {
		name += ", " + state
	}
	return name + ", " + DefaultRegion
}

// Census geocodes US street addresses with the Census Bureau one-line API.
// It only knows US addresses and answers with state abbreviations, so
// display names gain the state name and country to pass FilterRegion.
type Census struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      resilience.RetryConfig
}

// NewCensus creates a Census provider. hc may be nil.
func NewCensus(hc *http.Client) *Census {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("census", "onelineaddress")
	return &Census{
		httpClient: hc,
		limiter:    rate.NewLimiter(10, 10),
		retry:      retry,
	}
}

// Name implements Provider.
func (c *Census) Name() string { return "census" }

// Search implements Provider.
func (c *Census) Search(ctx context.Context, query string) ([]Candidate, error) {
	if query == "" {
		return nil, nil
	}
	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]Candidate, error) {
		return c.search(ctx, query)
	})
}

func (c *Census) search(ctx context.Context, query string) ([]Candidate, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: census rate limit")
	}

	params := url.Values{
		"address":   {query},
		"benchmark": {censusBenchmark},
		"format":    {"json"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, censusOneLineURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: census build request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: census request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, resilience.StatusError("geocode: census", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, eris.Wrap(err, "geocode: census read body")
	}

	var censusResp censusOneLineResponse
	if err := json.Unmarshal(body, &censusResp); err != nil {
		return nil, eris.Wrap(err, "geocode: census parse response")
	}

	cands := make([]Candidate, 0, len(censusResp.Result.AddressMatches))
	for _, m := range censusResp.Result.AddressMatches {
		cands = append(cands, Candidate{
			DisplayName: m.displayName(),
			Lat:         m.Coordinates.Y,
			Lng:         m.Coordinates.X,
			Type:        "address",
			Source:      "census",
		})
	}
	return cands, nil
}
