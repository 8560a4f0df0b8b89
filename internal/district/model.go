// Package district resolves geographic points to state legislative districts.
//
// Two interchangeable backends implement Resolver: a polygon scan over a
// DistrictSet loaded from boundary data, and a lookup against a hosted
// UTFGrid interaction tile service.
package district

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// Chamber identifies a legislative chamber.
type Chamber string

// Supported chambers.
const (
	Senate Chamber = "senate"
	House  Chamber = "house"
)

// Chambers lists every supported chamber in display order.
var Chambers = []Chamber{Senate, House}

// ParseChamber converts user input ("senate", "Senate", "upper", "sldu") to a Chamber.
func ParseChamber(s string) (Chamber, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "senate", "upper", "sldu":
		return Senate, nil
	case "house", "lower", "sldl":
		return House, nil
	default:
		return "", eris.Errorf("district: unknown chamber %q", s)
	}
}

// Office returns the title used for a member of the chamber.
func (c Chamber) Office() string {
	if c == Senate {
		return "Senator"
	}
	return "Representative"
}

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate checks that the point is finite and lies within WGS84 bounds.
func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) || math.IsNaN(p.Lng) || math.IsInf(p.Lng, 0) {
		return eris.Errorf("district: coordinate (%f, %f) is not finite", p.Lat, p.Lng)
	}
	if p.Lat < -90 || p.Lat > 90 {
		return eris.Errorf("district: latitude %f out of range", p.Lat)
	}
	if p.Lng < -180 || p.Lng > 180 {
		return eris.Errorf("district: longitude %f out of range", p.Lng)
	}
	return nil
}

func (p Point) coord() geom.Coord {
	return geom.Coord{p.Lng, p.Lat}
}

// District is one legislative seat's boundary.
type District struct {
	ID         string         `json:"id"`
	Chamber    Chamber        `json:"chamber"`
	Name       string         `json:"name,omitempty"`
	Geometry   geom.T         `json:"-"`
	Properties map[string]any `json:"properties,omitempty"`

	bounds *geom.Bounds
}

// DistrictSet is the immutable, ordered collection of districts for one chamber.
// Districts are ordered by numeric ID so that first-match resolution is
// deterministic even when boundary data overlaps.
type DistrictSet struct {
	chamber   Chamber
	districts []District
	byID      map[string]int
}

// NewDistrictSet validates and orders districts for a chamber. Geometries must
// be *geom.Polygon or *geom.MultiPolygon. Duplicate IDs are rejected.
func NewDistrictSet(chamber Chamber, districts []District) (*DistrictSet, error) {
	set := &DistrictSet{
		chamber:   chamber,
		districts: make([]District, 0, len(districts)),
		byID:      make(map[string]int, len(districts)),
	}

	for _, d := range districts {
		d.ID = NormalizeID(d.ID)
		if d.ID == "" {
			return nil, eris.Errorf("district: %s district with empty id", chamber)
		}
		switch d.Geometry.(type) {
		case *geom.Polygon, *geom.MultiPolygon:
		default:
			return nil, eris.Errorf("district: %s %s has unsupported geometry %T", chamber, d.ID, d.Geometry)
		}
		if _, dup := set.byID[d.ID]; dup {
			return nil, eris.Errorf("district: duplicate %s district %s", chamber, d.ID)
		}
		set.byID[d.ID] = -1
		d.Chamber = chamber
		d.bounds = d.Geometry.Bounds()
		set.districts = append(set.districts, d)
	}

	sort.SliceStable(set.districts, func(i, j int) bool {
		return lessID(set.districts[i].ID, set.districts[j].ID)
	})
	for i, d := range set.districts {
		set.byID[d.ID] = i
	}

	return set, nil
}

// Chamber returns the set's chamber.
func (s *DistrictSet) Chamber() Chamber {
	if s == nil {
		return ""
	}
	return s.chamber
}

// Len returns the number of districts.
func (s *DistrictSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.districts)
}

// Districts returns a copy of the ordered districts.
func (s *DistrictSet) Districts() []District {
	if s == nil {
		return nil
	}
	out := make([]District, len(s.districts))
	copy(out, s.districts)
	return out
}

// IDs returns the district IDs in set order.
func (s *DistrictSet) IDs() []string {
	if s == nil {
		return nil
	}
	ids := make([]string, len(s.districts))
	for i, d := range s.districts {
		ids[i] = d.ID
	}
	return ids
}

// Get returns a district by ID.
func (s *DistrictSet) Get(id string) (District, bool) {
	if s == nil {
		return District{}, false
	}
	i, ok := s.byID[NormalizeID(id)]
	if !ok {
		return District{}, false
	}
	return s.districts[i], true
}

// NormalizeID trims whitespace and leading zeros from numeric district IDs.
// Non-numeric IDs are returned trimmed.
func NormalizeID(id string) string {
	id = strings.TrimSpace(id)
	if n, err := strconv.Atoi(id); err == nil {
		return strconv.Itoa(n)
	}
	if f, err := strconv.ParseFloat(id, 64); err == nil && f == float64(int(f)) {
		return strconv.Itoa(int(f))
	}
	return id
}

// lessID orders numeric IDs numerically and everything else lexically after them.
func lessID(a, b string) bool {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	switch {
	case errA == nil && errB == nil:
		return na < nb
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return a < b
	}
}

// Result is the outcome of a resolution: a district or not found.
type Result struct {
	Chamber    Chamber        `json:"chamber"`
	DistrictID string         `json:"district_id,omitempty"`
	Found      bool           `json:"found"`
	Properties map[string]any `json:"properties,omitempty"`
}

// NotFound returns the not-found result for a chamber.
func NotFound(chamber Chamber) Result {
	return Result{Chamber: chamber}
}
