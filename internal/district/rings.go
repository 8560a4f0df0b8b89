package district

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

// closeRing appends the first coordinate when a flat XY ring is open.
func closeRing(flat []float64) []float64 {
	n := len(flat)
	if n < 2 {
		return flat
	}
	if flat[0] != flat[n-2] || flat[1] != flat[n-1] {
		flat = append(flat, flat[0], flat[1])
	}
	return flat
}

// validRing reports whether a closed XY ring has at least three distinct
// vertices.
func validRing(flat []float64) bool {
	return len(flat) >= 8
}

// newPolygon builds a polygon from flat XY rings, the first being the shell.
// Rings are closed and degenerate holes are dropped.
func newPolygon(rings [][]float64) (*geom.Polygon, error) {
	if len(rings) == 0 {
		return nil, eris.New("district: polygon without rings")
	}
	var flat []float64
	var ends []int
	for i, r := range rings {
		r = closeRing(r)
		if !validRing(r) {
			if i == 0 {
				return nil, eris.New("district: polygon shell has fewer than 3 vertices")
			}
			continue
		}
		flat = append(flat, r...)
		ends = append(ends, len(flat))
	}
	return geom.NewPolygonFlat(geom.XY, flat, ends), nil
}

// newMultiPolygon builds a multipolygon from per-polygon flat XY rings.
func newMultiPolygon(polys [][][]float64) (*geom.MultiPolygon, error) {
	mp := geom.NewMultiPolygon(geom.XY)
	for _, rings := range polys {
		p, err := newPolygon(rings)
		if err != nil {
			return nil, err
		}
		if err := mp.Push(p); err != nil {
			return nil, eris.Wrap(err, "district: push polygon")
		}
	}
	return mp, nil
}

// assembleRings groups an unordered list of rings into polygons using ring
// orientation: clockwise rings are shells and counter-clockwise rings are
// holes of the first shell that contains them. This is the ESRI shapefile
// convention.
func assembleRings(rings [][]float64) (geom.T, error) {
	var shells [][][]float64
	var holes [][]float64
	for _, r := range rings {
		r = closeRing(r)
		if !validRing(r) {
			continue
		}
		if xy.IsRingCounterClockwise(geom.XY, r) {
			holes = append(holes, r)
		} else {
			shells = append(shells, [][]float64{r})
		}
	}
	if len(shells) == 0 {
		// Some writers ignore orientation; treat every ring as a shell.
		for _, h := range holes {
			shells = append(shells, [][]float64{h})
		}
		holes = nil
	}
	if len(shells) == 0 {
		return nil, eris.New("district: no usable rings")
	}

	for _, h := range holes {
		probe := geom.Coord{h[0], h[1]}
		for i := range shells {
			if xy.IsPointInRing(geom.XY, probe, shells[i][0]) {
				shells[i] = append(shells[i], h)
				break
			}
		}
	}

	if len(shells) == 1 {
		return newPolygon(shells[0])
	}
	return newMultiPolygon(shells)
}
