// Package mugs downloads legislator portraits from the Missouri house and
// senate rosters.
package mugs

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/lobbying-cli/internal/district"
)

// Roster URLs.
const (
	HouseRosterURL  = "http://www.house.mo.gov/member.aspx"
	SenateRosterURL = "http://www.senate.mo.gov/13info/SenateRoster.htm"
)

// Page selectors.
const (
	houseLinkSelector   = "#ContentPlaceHolder1_gridMembers_DXMainTable td:first-child a"
	housePhotoSelector  = "#ContentPlaceHolder1_imgPhoto"
	senateLinkSelector  = "table table td:first-child a"
	senatePhotoSelector = "#container div:first-child img"
)

// Source describes how to find member pages and portraits for a chamber.
type Source struct {
	Chamber   district.Chamber
	RosterURL string
	Ext       string

	// Links extracts member page hrefs from the roster.
	Links func(doc *goquery.Document) []string
	// Portrait returns the image src and file stem from a member page.
	Portrait func(doc *goquery.Document) (src, name string, ok bool)
}

// House reads the member grid and each member's photo element.
func House(rosterURL string) Source {
	return Source{
		Chamber:   district.House,
		RosterURL: rosterURL,
		Ext:       ".png",
		Links: func(doc *goquery.Document) []string {
			return hrefs(doc.Find(houseLinkSelector))
		},
		Portrait: func(doc *goquery.Document) (string, string, bool) {
			img := doc.Find(housePhotoSelector).First()
			src, _ := img.Attr("src")
			alt, _ := img.Attr("alt")
			return src, FileName(alt), src != "" && alt != ""
		},
	}
}

// Senate reads the nested roster table and names photos by page title.
func Senate(rosterURL string) Source {
	return Source{
		Chamber:   district.Senate,
		RosterURL: rosterURL,
		Ext:       ".gif",
		Links: func(doc *goquery.Document) []string {
			return hrefs(doc.Find(senateLinkSelector))
		},
		Portrait: func(doc *goquery.Document) (string, string, bool) {
			src, _ := doc.Find(senatePhotoSelector).First().Attr("src")
			name := FileName(doc.Find("title").First().Text())
			return src, name, src != "" && name != ""
		},
	}
}

func hrefs(sel *goquery.Selection) []string {
	var out []string
	sel.Each(func(_ int, a *goquery.Selection) {
		if href := strings.TrimSpace(a.AttrOr("href", "")); href != "" {
			out = append(out, href)
		}
	})
	return out
}

// FileName lowercases s, replaces spaces with underscores and drops dots.
func FileName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "_")
	return strings.ReplaceAll(s, ".", "")
}

// Photo is one saved portrait.
type Photo struct {
	Chamber district.Chamber `json:"chamber"`
	Name    string           `json:"name"`
	URL     string           `json:"url"`
	Path    string           `json:"path"`
}

// Scraper fetches rosters, member pages and images politely.
type Scraper struct {
	client      *http.Client
	limiter     *rate.Limiter
	userAgent   string
	concurrency int
	log         *zap.Logger
}

// Option configures a Scraper.
type Option func(*Scraper)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Scraper) { s.client = c }
}

// WithRateLimit sets requests per second; 0 disables limiting.
func WithRateLimit(rps float64) Option {
	return func(s *Scraper) {
		if rps <= 0 {
			s.limiter = nil
			return
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithConcurrency bounds parallel member page fetches.
func WithConcurrency(n int) Option {
	return func(s *Scraper) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(s *Scraper) { s.userAgent = ua }
}

// NewScraper returns a scraper limited to 2 requests per second.
func NewScraper(opts ...Option) *Scraper {
	s := &Scraper{
		client:      &http.Client{Timeout: 30 * time.Second},
		limiter:     rate.NewLimiter(2, 1),
		userAgent:   "lobbying-cli/1.0",
		concurrency: 4,
		log:         zap.L().With(zap.String("component", "mugs")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scrape saves every portrait found via src into destDir. Members whose
// page or image cannot be fetched are logged and skipped.
func (s *Scraper) Scrape(ctx context.Context, src Source, destDir string) ([]Photo, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, eris.Wrap(err, "mugs: create dest dir")
	}

	rosterURL, err := url.Parse(src.RosterURL)
	if err != nil {
		return nil, eris.Wrapf(err, "mugs: parse roster url %q", src.RosterURL)
	}
	roster, err := s.document(ctx, rosterURL.String())
	if err != nil {
		return nil, eris.Wrapf(err, "mugs: fetch %s roster", src.Chamber)
	}

	links := src.Links(roster)
	s.log.Info("roster parsed", zap.String("chamber", string(src.Chamber)), zap.Int("members", len(links)))

	var (
		mu     sync.Mutex
		photos []Photo
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, href := range links {
		g.Go(func() error {
			photo, err := s.member(gctx, src, rosterURL, href, destDir)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.log.Warn("member skipped", zap.String("href", href), zap.Error(err))
				return nil
			}
			mu.Lock()
			photos = append(photos, photo)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return photos, eris.Wrap(err, "mugs: scrape")
	}
	return photos, nil
}

func (s *Scraper) member(ctx context.Context, src Source, base *url.URL, href, destDir string) (Photo, error) {
	ref, err := url.Parse(href)
	if err != nil {
		return Photo{}, eris.Wrapf(err, "parse member href %q", href)
	}
	pageURL := base.ResolveReference(ref)

	doc, err := s.document(ctx, pageURL.String())
	if err != nil {
		return Photo{}, err
	}
	imgSrc, name, ok := src.Portrait(doc)
	if !ok {
		return Photo{}, eris.Errorf("no portrait on %s", pageURL)
	}
	imgRef, err := url.Parse(imgSrc)
	if err != nil {
		return Photo{}, eris.Wrapf(err, "parse image src %q", imgSrc)
	}
	imgURL := pageURL.ResolveReference(imgRef).String()

	path := filepath.Join(destDir, name+src.Ext)
	if err := s.download(ctx, imgURL, path); err != nil {
		return Photo{}, err
	}
	return Photo{Chamber: src.Chamber, Name: name, URL: imgURL, Path: path}, nil
}

func (s *Scraper) get(ctx context.Context, rawURL string) (*http.Response, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "rate limit")
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "build request")
	}
	req.Header.Set("User-Agent", s.userAgent)
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "get %s", rawURL)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close() //nolint:errcheck
		return nil, eris.Errorf("get %s: status %d", rawURL, resp.StatusCode)
	}
	return resp, nil
}

func (s *Scraper) document(ctx context.Context, rawURL string) (*goquery.Document, error) {
	resp, err := s.get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, 5<<20))
	if err != nil {
		return nil, eris.Wrapf(err, "parse %s", rawURL)
	}
	return doc, nil
}

func (s *Scraper) download(ctx context.Context, rawURL, path string) error {
	resp, err := s.get(ctx, rawURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck

	out, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "create image file")
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()     //nolint:errcheck
		os.Remove(path) //nolint:errcheck
		return eris.Wrapf(err, "write %s", path)
	}
	return eris.Wrap(out.Close(), "close image file")
}
