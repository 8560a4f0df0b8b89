package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/lobbying-cli/internal/resilience"
)

// DefaultNominatimURL is the public OpenStreetMap Nominatim endpoint.
const DefaultNominatimURL = "https://nominatim.openstreetmap.org"

// Option configures a Nominatim client.
type Option func(*Nominatim)

// WithBaseURL sets the Nominatim root (the /search path is appended).
func WithBaseURL(u string) Option {
	return func(n *Nominatim) { n.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(n *Nominatim) { n.httpClient = hc }
}

// WithRateLimit sets requests per second. The public endpoint allows one.
func WithRateLimit(rps float64) Option {
	return func(n *Nominatim) {
		if rps > 0 {
			n.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithUserAgent sets the User-Agent header Nominatim requires.
func WithUserAgent(ua string) Option {
	return func(n *Nominatim) { n.userAgent = ua }
}

// WithLimit caps the candidates returned per query.
func WithLimit(limit int) Option {
	return func(n *Nominatim) { n.limit = limit }
}

// WithCountryCodes restricts results to ISO 3166-1 country codes.
func WithCountryCodes(codes ...string) Option {
	return func(n *Nominatim) { n.countryCodes = codes }
}

// WithRetry overrides the retry policy.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(n *Nominatim) { n.retry = cfg }
}

// Nominatim searches an OpenStreetMap Nominatim server.
type Nominatim struct {
	baseURL      string
	httpClient   *http.Client
	limiter      *rate.Limiter
	userAgent    string
	limit        int
	countryCodes []string
	retry        resilience.RetryConfig
}

// NewNominatim creates a Nominatim client.
func NewNominatim(opts ...Option) *Nominatim {
	n := &Nominatim{
		baseURL:    DefaultNominatimURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(1, 1),
		userAgent:  "lobbying-cli/1.0",
		limit:      10,
		retry:      resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.retry.OnRetry == nil {
		n.retry.OnRetry = resilience.RetryLogger("nominatim", "search")
	}
	return n
}

// Name implements Provider.
func (n *Nominatim) Name() string { return "nominatim" }

type nominatimPlace struct {
	DisplayName string  `json:"display_name"`
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	Type        string  `json:"type"`
	Importance  float64 `json:"importance"`
}

// Search implements Provider.
func (n *Nominatim) Search(ctx context.Context, query string) ([]Candidate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	return resilience.DoVal(ctx, n.retry, func(ctx context.Context) ([]Candidate, error) {
		return n.search(ctx, query)
	})
}

func (n *Nominatim) search(ctx context.Context, query string) ([]Candidate, error) {
	if err := n.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim rate limit")
	}

	params := url.Values{
		"format": {"json"},
		"q":      {query},
	}
	if n.limit > 0 {
		params.Set("limit", strconv.Itoa(n.limit))
	}
	if len(n.countryCodes) > 0 {
		params.Set("countrycodes", strings.Join(n.countryCodes, ","))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim build request")
	}
	req.Header.Set("User-Agent", n.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, resilience.StatusError("geocode: nominatim", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim read body")
	}

	var places []nominatimPlace
	if err := json.Unmarshal(body, &places); err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim parse response")
	}

	cands := make([]Candidate, 0, len(places))
	for _, p := range places {
		lat, latErr := strconv.ParseFloat(p.Lat, 64)
		lng, lngErr := strconv.ParseFloat(p.Lon, 64)
		if latErr != nil || lngErr != nil {
			zap.L().Debug("geocode: nominatim skipping place with bad coordinates",
				zap.String("display_name", p.DisplayName))
			continue
		}
		cands = append(cands, Candidate{
			DisplayName: p.DisplayName,
			Lat:         lat,
			Lng:         lng,
			Type:        p.Type,
			Importance:  p.Importance,
			Source:      "nominatim",
		})
	}
	return cands, nil
}
