// Package lookup turns an address or point into the legislators who
// represent it.
package lookup

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/lobbying-cli/internal/directory"
	"github.com/sells-group/lobbying-cli/internal/district"
	"github.com/sells-group/lobbying-cli/pkg/geocode"
)

// ErrEmptyAddress is returned for a blank address query.
var ErrEmptyAddress = eris.New("lookup: empty address")

// Status is the user-visible outcome of a lookup.
type Status string

// Lookup outcomes.
const (
	StatusFound     Status = "found"
	StatusAmbiguous Status = "ambiguous"
	StatusNotFound  Status = "not_found"
)

// Match is one chamber's district and its seat holder, if known.
type Match struct {
	Chamber    district.Chamber      `json:"chamber"`
	DistrictID string                `json:"district_id"`
	Legislator *directory.Legislator `json:"legislator,omitempty"`
}

// Response is the outcome of a lookup.
type Response struct {
	Status      Status              `json:"status"`
	Query       string              `json:"query,omitempty"`
	DisplayName string              `json:"display_name,omitempty"`
	Point       *district.Point     `json:"point,omitempty"`
	Matches     []Match             `json:"matches,omitempty"`
	Candidates  []geocode.Candidate `json:"candidates,omitempty"`
}

// Match returns the chamber's match.
func (r *Response) Match(c district.Chamber) (Match, bool) {
	for _, m := range r.Matches {
		if m.Chamber == c {
			return m, true
		}
	}
	return Match{}, false
}

// Service orchestrates geocoding and district resolution.
type Service struct {
	geocoder    geocode.Provider
	resolvers   []district.Resolver
	directory   *directory.Directory
	regions     []string
	concurrency int
	log         *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithRegions sets the display-name substrings a candidate must contain.
func WithRegions(regions ...string) Option {
	return func(s *Service) { s.regions = regions }
}

// WithConcurrency bounds LookupBatch parallelism.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// NewService builds a Service. geocoder may be nil when only point lookups
// are needed.
func NewService(geocoder geocode.Provider, dir *directory.Directory, resolvers []district.Resolver, opts ...Option) *Service {
	s := &Service{
		geocoder:    geocoder,
		resolvers:   resolvers,
		directory:   dir,
		regions:     []string{geocode.DefaultRegion},
		concurrency: 4,
		log:         zap.L().With(zap.String("component", "lookup")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LookupAddress geocodes address and resolves the single matching
// candidate. Several candidates yield StatusAmbiguous so the caller can pick
// one and call LookupPoint. ticket may be nil; a superseded ticket yields
// district.ErrStale.
func (s *Service) LookupAddress(ctx context.Context, ticket *district.Ticket, address string) (*Response, error) {
	query := strings.TrimSpace(address)
	if query == "" {
		return nil, ErrEmptyAddress
	}
	resp := &Response{Status: StatusNotFound, Query: query}
	if s.geocoder == nil {
		return nil, eris.New("lookup: no geocoder configured")
	}

	cands, err := s.geocoder.Search(ctx, query)
	if err := ticket.Check(); err != nil {
		return nil, err
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.log.Warn("geocode failed", zap.String("query", query), zap.Error(err))
		return resp, nil
	}

	cands = geocode.FilterRegion(cands, s.regions...)
	switch len(cands) {
	case 0:
		return resp, nil
	case 1:
		c := cands[0]
		out, err := s.LookupPoint(ctx, ticket, district.Point{Lat: c.Lat, Lng: c.Lng})
		if err != nil {
			return nil, err
		}
		out.Query = query
		out.DisplayName = geocode.ShortName(c.DisplayName)
		return out, nil
	default:
		for i := range cands {
			cands[i].DisplayName = geocode.ShortName(cands[i].DisplayName)
		}
		resp.Status = StatusAmbiguous
		resp.Candidates = cands
		return resp, nil
	}
}

// LookupPoint resolves p in every chamber. Backend errors are logged and
// count as not found for that chamber.
func (s *Service) LookupPoint(ctx context.Context, ticket *district.Ticket, p district.Point) (*Response, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	results := make([]district.Result, len(s.resolvers))
	g, gctx := errgroup.WithContext(ctx)
	for i, r := range s.resolvers {
		g.Go(func() error {
			res, err := r.Resolve(gctx, p)
			if err != nil {
				s.log.Warn("resolve failed",
					zap.String("chamber", string(r.Chamber())),
					zap.Float64("lat", p.Lat), zap.Float64("lng", p.Lng),
					zap.Error(err))
				res = district.NotFound(r.Chamber())
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	if err := ticket.Check(); err != nil {
		return nil, err
	}

	point := p
	resp := &Response{Status: StatusNotFound, Point: &point}
	for _, res := range results {
		if !res.Found {
			continue
		}
		m := Match{Chamber: res.Chamber, DistrictID: res.DistrictID}
		if l, ok := s.directory.ByDistrict(res.Chamber, res.DistrictID); ok {
			m.Legislator = &l
		}
		resp.Matches = append(resp.Matches, m)
	}
	if len(resp.Matches) > 0 {
		resp.Status = StatusFound
	}
	return resp, nil
}

// BatchResult is one address's outcome in LookupBatch.
type BatchResult struct {
	Address  string    `json:"address"`
	Response *Response `json:"response,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// LookupBatch resolves addresses with bounded concurrency. Results keep
// input order; a failed address is reported in its result and does not
// fail the batch. Only context cancellation aborts it.
func (s *Service) LookupBatch(ctx context.Context, addresses []string) ([]BatchResult, error) {
	results := make([]BatchResult, len(addresses))
	var mu sync.Mutex
	found := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, addr := range addresses {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i].Address = addr
			resp, err := s.LookupAddress(gctx, nil, addr)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				results[i].Error = err.Error()
				return nil
			}
			results[i].Response = resp
			if resp.Status == StatusFound {
				mu.Lock()
				found++
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, eris.Wrap(err, "lookup: batch")
	}

	s.log.Info("batch complete", zap.Int("addresses", len(addresses)), zap.Int("found", found))
	return results, nil
}
