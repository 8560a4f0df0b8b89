package geocode

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lobbying-cli/internal/db"
)

// CacheSchema creates the geocode cache table.
const CacheSchema = `CREATE TABLE IF NOT EXISTS geocode_cache (
	query_hash TEXT PRIMARY KEY,
	query      TEXT NOT NULL,
	candidates JSONB NOT NULL,
	cached_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Cached wraps a provider with a Postgres-backed answer cache. Empty answers
// are cached too, so repeated misses do not hit the upstream.
type Cached struct {
	next    Provider
	pool    db.Pool
	ttlDays int
}

// NewCached wraps next. ttlDays <= 0 keeps entries forever.
func NewCached(next Provider, pool db.Pool, ttlDays int) *Cached {
	return &Cached{next: next, pool: pool, ttlDays: ttlDays}
}

// Name implements Provider.
func (c *Cached) Name() string { return c.next.Name() + "+cache" }

// Search implements Provider.
func (c *Cached) Search(ctx context.Context, query string) ([]Candidate, error) {
	key := cacheKey(query)

	cands, err := c.lookup(ctx, key)
	if err == nil {
		zap.L().Debug("geocode cache hit", zap.String("key", key[:12]), zap.Int("candidates", len(cands)))
		return cands, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		zap.L().Warn("geocode cache lookup failed", zap.Error(err))
	}

	cands, err = c.next.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	if err := c.store(ctx, key, query, cands); err != nil {
		zap.L().Warn("geocode cache store failed", zap.Error(err))
	}
	return cands, nil
}

// cacheKey returns SHA-256 hex of the normalized query.
func cacheKey(query string) string {
	h := sha256.Sum256([]byte(normalizeQuery(query)))
	return fmt.Sprintf("%x", h)
}

func (c *Cached) lookup(ctx context.Context, key string) ([]Candidate, error) {
	q := "SELECT candidates FROM geocode_cache WHERE query_hash = $1"
	if c.ttlDays > 0 {
		q += fmt.Sprintf(" AND cached_at > now() - interval '%d days'", c.ttlDays)
	}

	var raw []byte
	if err := c.pool.QueryRow(ctx, q, key).Scan(&raw); err != nil {
		return nil, err
	}
	var cands []Candidate
	if err := json.Unmarshal(raw, &cands); err != nil {
		return nil, eris.Wrap(err, "geocode: decode cached candidates")
	}
	return cands, nil
}

func (c *Cached) store(ctx context.Context, key, query string, cands []Candidate) error {
	if cands == nil {
		cands = []Candidate{}
	}
	raw, err := json.Marshal(cands)
	if err != nil {
		return eris.Wrap(err, "geocode: encode candidates")
	}
	_, err = c.pool.Exec(ctx, `
		INSERT INTO geocode_cache (query_hash, query, candidates, cached_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (query_hash) DO UPDATE SET
			candidates = EXCLUDED.candidates,
			cached_at = now()`,
		key, normalizeQuery(query), raw,
	)
	if err != nil {
		return eris.Wrap(err, "geocode: store cache")
	}
	return nil
}
