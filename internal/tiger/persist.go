package tiger

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lobbying-cli/internal/db"
	"github.com/sells-group/lobbying-cli/internal/district"
)

// DistrictTable holds persisted boundaries.
const DistrictTable = "legislative_districts"

var districtColumns = []string{"chamber", "district_id", "name", "year", "the_geom"}

// CreateSchema creates the PostGIS boundary table and its spatial index.
func CreateSchema(ctx context.Context, pool db.Pool) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS postgis`,
		`CREATE TABLE IF NOT EXISTS legislative_districts (
			chamber     TEXT NOT NULL,
			district_id TEXT NOT NULL,
			name        TEXT,
			year        INTEGER NOT NULL,
			the_geom    geometry(MultiPolygon, 4326) NOT NULL,
			loaded_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (chamber, district_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_legislative_districts_geom ON legislative_districts USING GIST (the_geom)`,
	}
	for _, s := range stmts {
		if _, err := pool.Exec(ctx, s); err != nil {
			return eris.Wrap(err, "tiger: create schema")
		}
	}
	return nil
}

// SaveSet replaces a chamber's persisted boundaries with set.
func SaveSet(ctx context.Context, pool db.Pool, set *district.DistrictSet, year int) (int64, error) {
	start := time.Now()
	chamber := string(set.Chamber())

	rows := make([][]any, 0, set.Len())
	for _, d := range set.Districts() {
		wkb, err := EncodeWKB(d.Geometry)
		if err != nil {
			return 0, eris.Wrapf(err, "tiger: encode %s %s", chamber, d.ID)
		}
		rows = append(rows, []any{chamber, d.ID, d.Name, year, wkb})
	}

	if _, err := pool.Exec(ctx, `DELETE FROM legislative_districts WHERE chamber = $1`, chamber); err != nil {
		return 0, eris.Wrapf(err, "tiger: clear %s districts", chamber)
	}

	n, err := db.CopyFrom(ctx, pool, DistrictTable, districtColumns, rows)
	if err != nil {
		return 0, err
	}

	zap.L().Info("tiger: districts saved",
		zap.String("chamber", chamber),
		zap.Int64("rows", n),
		zap.Duration("duration", time.Since(start)),
	)
	return n, nil
}

// ResolveSQL finds the district containing a point using PostGIS. It mirrors
// the in-memory scan: lowest district number first, boundary inclusive.
const ResolveSQL = `SELECT district_id, COALESCE(name, '')
FROM legislative_districts
WHERE chamber = $1 AND ST_Intersects(the_geom, ST_SetSRID(ST_MakePoint($2, $3), 4326))
ORDER BY CASE WHEN district_id ~ '^[0-9]+$' THEN district_id::int END NULLS LAST, district_id
LIMIT 1`

// PostGISResolver resolves points against persisted boundaries.
type PostGISResolver struct {
	pool    db.Pool
	chamber district.Chamber
}

// NewPostGISResolver creates a resolver over legislative_districts.
func NewPostGISResolver(pool db.Pool, chamber district.Chamber) *PostGISResolver {
	return &PostGISResolver{pool: pool, chamber: chamber}
}

// Chamber implements district.Resolver.
func (r *PostGISResolver) Chamber() district.Chamber { return r.chamber }

// Resolve implements district.Resolver.
func (r *PostGISResolver) Resolve(ctx context.Context, p district.Point) (district.Result, error) {
	if err := p.Validate(); err != nil {
		return district.NotFound(r.chamber), err
	}

	rows, err := r.pool.Query(ctx, ResolveSQL, string(r.chamber), p.Lng, p.Lat)
	if err != nil {
		return district.NotFound(r.chamber), eris.Wrap(err, "tiger: query district")
	}
	defer rows.Close()

	if !rows.Next() {
		return district.NotFound(r.chamber), eris.Wrap(rows.Err(), "tiger: read district")
	}
	var id, name string
	if err := rows.Scan(&id, &name); err != nil {
		return district.NotFound(r.chamber), eris.Wrap(err, "tiger: scan district")
	}
	return district.Result{
		Chamber:    r.chamber,
		DistrictID: id,
		Found:      true,
		Properties: map[string]any{"name": name},
	}, nil
}
