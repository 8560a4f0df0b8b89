package district

import (
	"encoding/json"
	"io"
	"sort"

	"github.com/rotisserie/eris"
)

// topology is the subset of a TopoJSON document used for district boundaries.
type topology struct {
	Type      string                  `json:"type"`
	Transform *topoTransform          `json:"transform"`
	Arcs      [][][]float64           `json:"arcs"`
	Objects   map[string]topoGeometry `json:"objects"`
}

type topoTransform struct {
	Scale     [2]float64 `json:"scale"`
	Translate [2]float64 `json:"translate"`
}

type topoGeometry struct {
	Type       string          `json:"type"`
	ID         any             `json:"id"`
	Arcs       json.RawMessage `json:"arcs"`
	Properties map[string]any  `json:"properties"`
	Geometries []topoGeometry  `json:"geometries"`
}

// TopoJSONOptions selects the object and properties read from a topology.
type TopoJSONOptions struct {
	// Object names the topology object. Empty picks the only object, or
	// fails when there are several.
	Object string
	// IDProperty holds the district number. Empty falls back to the
	// geometry id.
	IDProperty string
	// NameProperty is optional.
	NameProperty string
}

// ReadTopoJSON decodes the polygons of one topology object into districts.
func ReadTopoJSON(r io.Reader, opts TopoJSONOptions) ([]District, error) {
	var topo topology
	if err := json.NewDecoder(r).Decode(&topo); err != nil {
		return nil, eris.Wrap(err, "district: decode topojson")
	}
	if topo.Type != "Topology" {
		return nil, eris.Errorf("district: expected Topology, got %q", topo.Type)
	}

	obj, err := topo.object(opts.Object)
	if err != nil {
		return nil, err
	}

	arcs := topo.decodeArcs()

	geoms := obj.Geometries
	if obj.Type != "GeometryCollection" {
		geoms = []topoGeometry{obj}
	}

	districts := make([]District, 0, len(geoms))
	for i, g := range geoms {
		d, ok, err := topoDistrict(g, arcs, opts)
		if err != nil {
			return nil, eris.Wrapf(err, "district: topojson geometry %d", i)
		}
		if ok {
			districts = append(districts, d)
		}
	}
	return districts, nil
}

func (t *topology) object(name string) (topoGeometry, error) {
	if name != "" {
		obj, ok := t.Objects[name]
		if !ok {
			return topoGeometry{}, eris.Errorf("district: topojson object %q not found", name)
		}
		return obj, nil
	}
	if len(t.Objects) != 1 {
		keys := make([]string, 0, len(t.Objects))
		for k := range t.Objects {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return topoGeometry{}, eris.Errorf("district: topojson has objects %v, choose one", keys)
	}
	for _, obj := range t.Objects {
		return obj, nil
	}
	return topoGeometry{}, nil
}

// decodeArcs returns absolute coordinates, undoing delta encoding and
// quantization when a transform is present.
func (t *topology) decodeArcs() [][]float64 {
	out := make([][]float64, len(t.Arcs))
	for i, arc := range t.Arcs {
		flat := make([]float64, 0, 2*len(arc))
		var x, y float64
		for _, pos := range arc {
			if len(pos) < 2 {
				continue
			}
			if t.Transform != nil {
				x += pos[0]
				y += pos[1]
				flat = append(flat,
					x*t.Transform.Scale[0]+t.Transform.Translate[0],
					y*t.Transform.Scale[1]+t.Transform.Translate[1],
				)
			} else {
				flat = append(flat, pos[0], pos[1])
			}
		}
		out[i] = flat
	}
	return out
}

// stitch joins arc references into one flat ring. A negative index ~i means
// arc i reversed. The first point of each following arc repeats the last point
// of the previous one and is dropped.
func stitch(refs []int, arcs [][]float64) ([]float64, error) {
	var ring []float64
	for k, ref := range refs {
		idx := ref
		reversed := ref < 0
		if reversed {
			idx = ^ref
		}
		if idx < 0 || idx >= len(arcs) {
			return nil, eris.Errorf("arc index %d out of range", ref)
		}
		arc := arcs[idx]
		n := len(arc) / 2
		for j := 0; j < n; j++ {
			p := j
			if reversed {
				p = n - 1 - j
			}
			if k > 0 && j == 0 {
				continue
			}
			ring = append(ring, arc[2*p], arc[2*p+1])
		}
	}
	return ring, nil
}

func topoDistrict(g topoGeometry, arcs [][]float64, opts TopoJSONOptions) (District, bool, error) {
	d := District{Properties: g.Properties}

	switch g.Type {
	case "Polygon":
		var refs [][]int
		if err := json.Unmarshal(g.Arcs, &refs); err != nil {
			return d, false, eris.Wrap(err, "polygon arcs")
		}
		rings, err := stitchAll(refs, arcs)
		if err != nil {
			return d, false, err
		}
		poly, err := newPolygon(rings)
		if err != nil {
			return d, false, err
		}
		d.Geometry = poly
	case "MultiPolygon":
		var refs [][][]int
		if err := json.Unmarshal(g.Arcs, &refs); err != nil {
			return d, false, eris.Wrap(err, "multipolygon arcs")
		}
		polys := make([][][]float64, 0, len(refs))
		for _, p := range refs {
			rings, err := stitchAll(p, arcs)
			if err != nil {
				return d, false, err
			}
			polys = append(polys, rings)
		}
		mp, err := newMultiPolygon(polys)
		if err != nil {
			return d, false, err
		}
		d.Geometry = mp
	default:
		// Points, lines and null geometries carry no district area.
		return d, false, nil
	}

	d.ID = propertyString(g.Properties, opts.IDProperty)
	if d.ID == "" && g.ID != nil {
		d.ID, _ = propertyID(map[string]any{"id": g.ID}, "id")
	}
	d.Name = propertyString(g.Properties, opts.NameProperty)
	return d, true, nil
}

func stitchAll(refs [][]int, arcs [][]float64) ([][]float64, error) {
	rings := make([][]float64, 0, len(refs))
	for _, r := range refs {
		ring, err := stitch(r, arcs)
		if err != nil {
			return nil, err
		}
		rings = append(rings, ring)
	}
	return rings, nil
}

func propertyString(props map[string]any, name string) string {
	if name == "" || props == nil {
		return ""
	}
	id, _ := propertyID(props, name)
	return id
}
