package district

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"github.com/rotisserie/eris"
)

// tileSize is the pixel width of a web mercator tile.
const tileSize = 256

// UTFGrid is an interaction grid tile: rows of encoded characters indexing
// into Keys, with per-key feature properties in Data.
type UTFGrid struct {
	Grid []string                  `json:"grid"`
	Keys []string                  `json:"keys"`
	Data map[string]map[string]any `json:"data"`
}

// decodeGridChar maps a UTFGrid character to its key index.
func decodeGridChar(r rune) int {
	code := int(r)
	if code >= 93 {
		code--
	}
	if code >= 35 {
		code--
	}
	return code - 32
}

// FeatureAt returns the properties of the feature under pixel (px, py) of a
// 256x256 tile. ok is false when the pixel carries no feature.
func (g *UTFGrid) FeatureAt(px, py int) (map[string]any, bool) {
	if g == nil || len(g.Grid) == 0 {
		return nil, false
	}
	rows := len(g.Grid)
	resolution := tileSize / rows
	if resolution <= 0 {
		resolution = 1
	}

	row := clamp(py/resolution, 0, rows-1)
	line := []rune(g.Grid[row])
	if len(line) == 0 {
		return nil, false
	}
	col := clamp(px/resolution, 0, len(line)-1)

	idx := decodeGridChar(line[col])
	if idx < 0 || idx >= len(g.Keys) {
		return nil, false
	}
	key := g.Keys[idx]
	if key == "" {
		return nil, false
	}
	props, ok := g.Data[key]
	if !ok || props == nil {
		return nil, false
	}
	return props, true
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// TileCoord addresses one web mercator tile.
type TileCoord struct {
	Z, X, Y int
}

func (t TileCoord) String() string {
	return fmt.Sprintf("%d/%d/%d", t.Z, t.X, t.Y)
}

// TileAt returns the tile containing p at zoom z and the pixel offset of p
// inside that tile.
func TileAt(p Point, z int) (TileCoord, int, int) {
	zoom := maptile.Zoom(z)
	ll := orb.Point{p.Lng, p.Lat}
	frac := maptile.Fraction(ll, zoom)

	maxIdx := float64(uint32(1)<<zoom) - 1
	fx := math.Min(math.Max(frac[0], 0), maxIdx+0.999999)
	fy := math.Min(math.Max(frac[1], 0), maxIdx+0.999999)

	tx, ty := math.Floor(fx), math.Floor(fy)
	px := int((fx - tx) * tileSize)
	py := int((fy - ty) * tileSize)

	return TileCoord{Z: z, X: int(tx), Y: int(ty)}, px, py
}

// GridSource fetches interaction grid tiles. A nil grid with nil error means
// the tile has no features.
type GridSource interface {
	Grid(ctx context.Context, tile TileCoord) (*UTFGrid, error)
}

// GridResolver resolves points through a hosted interaction grid.
type GridResolver struct {
	chamber  Chamber
	source   GridSource
	zoom     int
	property string
}

// GridOption configures a GridResolver.
type GridOption func(*GridResolver)

// WithGridZoom sets the tile zoom used for lookups.
func WithGridZoom(z int) GridOption {
	return func(r *GridResolver) {
		if z >= 0 && z <= 22 {
			r.zoom = z
		}
	}
}

// WithDistrictProperty sets the feature property holding the district id.
func WithDistrictProperty(name string) GridOption {
	return func(r *GridResolver) {
		if name != "" {
			r.property = name
		}
	}
}

// NewGridResolver creates a grid-backed resolver for a chamber.
func NewGridResolver(chamber Chamber, source GridSource, opts ...GridOption) *GridResolver {
	r := &GridResolver{
		chamber:  chamber,
		source:   source,
		zoom:     10,
		property: "district",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Chamber implements Resolver.
func (r *GridResolver) Chamber() Chamber { return r.chamber }

// Resolve implements Resolver.
func (r *GridResolver) Resolve(ctx context.Context, p Point) (Result, error) {
	return r.ResolveAtCenter(ctx, p)
}

// ResolveAtCenter fetches the grid tile covering center and returns the
// district of the feature under it. A tile without a feature at center is
// not found, not an error.
func (r *GridResolver) ResolveAtCenter(ctx context.Context, center Point) (Result, error) {
	if err := center.Validate(); err != nil {
		return NotFound(r.chamber), err
	}

	tile, px, py := TileAt(center, r.zoom)
	grid, err := r.source.Grid(ctx, tile)
	if err != nil {
		return NotFound(r.chamber), eris.Wrapf(err, "district: fetch %s grid %s", r.chamber, tile)
	}

	props, ok := grid.FeatureAt(px, py)
	if !ok {
		return NotFound(r.chamber), nil
	}

	id, ok := propertyID(props, r.property)
	if !ok {
		return NotFound(r.chamber), nil
	}

	return Result{
		Chamber:    r.chamber,
		DistrictID: id,
		Found:      true,
		Properties: props,
	}, nil
}

// propertyID reads a district id from a property bag, formatting numbers
// without a fractional part.
func propertyID(props map[string]any, name string) (string, bool) {
	v, ok := props[name]
	if !ok || v == nil {
		return "", false
	}
	var id string
	switch t := v.(type) {
	case string:
		id = t
	case float64:
		id = strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		id = strconv.Itoa(t)
	case int64:
		id = strconv.FormatInt(t, 10)
	case json.Number:
		id = t.String()
	default:
		id = fmt.Sprint(t)
	}
	id = NormalizeID(id)
	return id, id != ""
}
