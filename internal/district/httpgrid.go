package district

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/lobbying-cli/internal/resilience"
)

const gridService = "district: grid"

// HTTPGridSource fetches UTFGrid tiles from a tile server. The URL template
// must contain {z}, {x} and {y}. Bodies may be plain JSON or JSONP.
type HTTPGridSource struct {
	template  string
	layer     string
	client    *http.Client
	limiter   *rate.Limiter
	retry     resilience.RetryConfig
	breaker   *resilience.Breaker
	cache     *GridCache
	userAgent string
}

// HTTPGridOption configures an HTTPGridSource.
type HTTPGridOption func(*HTTPGridSource)

// WithGridHTTPClient sets the HTTP client.
func WithGridHTTPClient(c *http.Client) HTTPGridOption {
	return func(s *HTTPGridSource) { s.client = c }
}

// WithGridRateLimit sets requests per second. Zero disables limiting.
func WithGridRateLimit(rps float64) HTTPGridOption {
	return func(s *HTTPGridSource) {
		if rps <= 0 {
			s.limiter = nil
			return
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithGridRetry overrides the retry policy.
func WithGridRetry(cfg resilience.RetryConfig) HTTPGridOption {
	return func(s *HTTPGridSource) { s.retry = cfg }
}

// WithGridBreaker sets a circuit breaker shared across fetches.
func WithGridBreaker(b *resilience.Breaker) HTTPGridOption {
	return func(s *HTTPGridSource) { s.breaker = b }
}

// WithGridCache sets the tile cache.
func WithGridCache(c *GridCache) HTTPGridOption {
	return func(s *HTTPGridSource) { s.cache = c }
}

// WithGridUserAgent sets the User-Agent header.
func WithGridUserAgent(ua string) HTTPGridOption {
	return func(s *HTTPGridSource) { s.userAgent = ua }
}

// NewHTTPGridSource creates a grid source for a URL template. layer names the
// source in cache keys.
func NewHTTPGridSource(layer, template string, opts ...HTTPGridOption) (*HTTPGridSource, error) {
	for _, p := range []string{"{z}", "{x}", "{y}"} {
		if !strings.Contains(template, p) {
			return nil, eris.Errorf("district: grid url template %q missing %s", template, p)
		}
	}
	s := &HTTPGridSource{
		template:  template,
		layer:     layer,
		client:    &http.Client{Timeout: 15 * time.Second},
		limiter:   rate.NewLimiter(rate.Limit(5), 1),
		retry:     resilience.DefaultRetryConfig(),
		userAgent: "lobbying-cli/1.0",
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.retry.OnRetry == nil {
		s.retry.OnRetry = resilience.RetryLogger("grid", layer)
	}
	return s, nil
}

// URL expands the template for a tile.
func (s *HTTPGridSource) URL(tile TileCoord) string {
	return strings.NewReplacer(
		"{z}", strconv.Itoa(tile.Z),
		"{x}", strconv.Itoa(tile.X),
		"{y}", strconv.Itoa(tile.Y),
	).Replace(s.template)
}

// Cache returns the tile cache, or nil.
func (s *HTTPGridSource) Cache() *GridCache { return s.cache }

// Grid implements GridSource.
func (s *HTTPGridSource) Grid(ctx context.Context, tile TileCoord) (*UTFGrid, error) {
	if s.cache != nil {
		if grid, ok := s.cache.Get(s.layer, tile); ok {
			return grid, nil
		}
	}

	fetch := func(ctx context.Context) (*UTFGrid, error) {
		return resilience.DoVal(ctx, s.retry, func(ctx context.Context) (*UTFGrid, error) {
			return s.fetch(ctx, tile)
		})
	}

	var grid *UTFGrid
	var err error
	if s.breaker != nil {
		err = s.breaker.Execute(ctx, func(ctx context.Context) error {
			var ferr error
			grid, ferr = fetch(ctx)
			return ferr
		})
	} else {
		grid, err = fetch(ctx)
	}
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Put(s.layer, tile, grid)
	}
	return grid, nil
}

func (s *HTTPGridSource) fetch(ctx context.Context, tile TileCoord) (*UTFGrid, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "district: grid rate limiter")
		}
	}

	url := s.URL(tile)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eris.Wrap(err, "district: create grid request")
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "district: fetch grid %s", tile)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusNoContent {
		zap.L().Debug("district: empty grid tile", zap.String("url", url), zap.Int("status", resp.StatusCode))
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, resilience.StatusError(gridService, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, eris.Wrap(err, "district: read grid body")
	}

	grid, err := DecodeUTFGrid(body)
	if err != nil {
		return nil, eris.Wrapf(err, "district: decode grid %s", tile)
	}

	zap.L().Debug("district: fetched grid tile", zap.String("url", url), zap.Int("bytes", len(body)))
	return grid, nil
}

// DecodeUTFGrid parses a UTFGrid body, unwrapping a JSONP callback such as
// grid({...}) when present. An empty body decodes to a nil grid.
func DecodeUTFGrid(body []byte) (*UTFGrid, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, nil
	}
	if body[0] != '{' {
		open := bytes.IndexByte(body, '(')
		end := bytes.LastIndexByte(body, ')')
		if open < 0 || end <= open {
			return nil, eris.New("district: grid body is neither JSON nor JSONP")
		}
		body = bytes.TrimSpace(body[open+1 : end])
	}

	var grid UTFGrid
	if err := json.Unmarshal(body, &grid); err != nil {
		return nil, eris.Wrap(err, "district: unmarshal utfgrid")
	}
	return &grid, nil
}
