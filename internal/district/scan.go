package district

import (
	"context"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"github.com/twpayne/go-geom/xy/location"
)

// Resolver maps a point to the enclosing district of one chamber.
type Resolver interface {
	Chamber() Chamber
	Resolve(ctx context.Context, p Point) (Result, error)
}

// Resolve scans the set in order and returns the first district containing p.
// Points on a district boundary count as inside.
func Resolve(p Point, set *DistrictSet) Result {
	if set == nil {
		return Result{}
	}
	if p.Validate() != nil {
		return NotFound(set.chamber)
	}
	for i := range set.districts {
		d := &set.districts[i]
		if contains(d, p) {
			return Result{
				Chamber:    set.chamber,
				DistrictID: d.ID,
				Found:      true,
				Properties: d.Properties,
			}
		}
	}
	return NotFound(set.chamber)
}

// Matches returns every district in the set containing p, in set order.
// More than one match means the boundary data overlaps.
func Matches(p Point, set *DistrictSet) []string {
	if set == nil || p.Validate() != nil {
		return nil
	}
	var ids []string
	for i := range set.districts {
		if contains(&set.districts[i], p) {
			ids = append(ids, set.districts[i].ID)
		}
	}
	return ids
}

// Contains reports whether the district's geometry contains p.
func Contains(d District, p Point) bool {
	if d.bounds == nil && d.Geometry != nil {
		d.bounds = d.Geometry.Bounds()
	}
	return contains(&d, p)
}

func contains(d *District, p Point) bool {
	c := p.coord()
	if d.bounds != nil && !d.bounds.OverlapsPoint(geom.XY, c) {
		return false
	}
	switch g := d.Geometry.(type) {
	case *geom.Polygon:
		return polygonContains(g, c)
	case *geom.MultiPolygon:
		for i := 0; i < g.NumPolygons(); i++ {
			if polygonContains(g.Polygon(i), c) {
				return true
			}
		}
	}
	return false
}

// polygonContains tests the shell then excludes points strictly inside a hole.
func polygonContains(poly *geom.Polygon, c geom.Coord) bool {
	if poly.NumLinearRings() == 0 {
		return false
	}
	shell := poly.LinearRing(0)
	if xy.LocatePointInRing(shell.Layout(), c, shell.FlatCoords()) == location.Exterior {
		return false
	}
	for i := 1; i < poly.NumLinearRings(); i++ {
		hole := poly.LinearRing(i)
		if xy.LocatePointInRing(hole.Layout(), c, hole.FlatCoords()) == location.Interior {
			return false
		}
	}
	return true
}

// ScanResolver resolves points against an in-memory DistrictSet.
type ScanResolver struct {
	set *DistrictSet
}

// NewScanResolver wraps a loaded set.
func NewScanResolver(set *DistrictSet) *ScanResolver {
	return &ScanResolver{set: set}
}

// Chamber implements Resolver.
func (r *ScanResolver) Chamber() Chamber { return r.set.Chamber() }

// Set returns the underlying district set.
func (r *ScanResolver) Set() *DistrictSet { return r.set }

// Resolve implements Resolver. It never returns an error for a valid point.
func (r *ScanResolver) Resolve(_ context.Context, p Point) (Result, error) {
	if err := p.Validate(); err != nil {
		return NotFound(r.set.Chamber()), err
	}
	return Resolve(p, r.set), nil
}
