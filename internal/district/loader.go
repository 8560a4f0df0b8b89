package district

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// LoadOptions describes where a chamber's boundary file lives and which
// attributes identify districts.
type LoadOptions struct {
	Path         string
	Object       string // TopoJSON object name
	IDProperty   string
	NameProperty string
}

// ReadGeoJSON decodes a FeatureCollection of Polygon / MultiPolygon features.
// Other geometry types are skipped.
func ReadGeoJSON(r io.Reader, idProperty, nameProperty string) ([]District, error) {
	var fc geojson.FeatureCollection
	if err := json.NewDecoder(r).Decode(&fc); err != nil {
		return nil, eris.Wrap(err, "district: decode geojson")
	}

	districts := make([]District, 0, len(fc.Features))
	for i, f := range fc.Features {
		if f == nil {
			continue
		}
		g, err := closeGeometry(f.Geometry)
		if err != nil {
			return nil, eris.Wrapf(err, "district: geojson feature %d", i)
		}
		if g == nil {
			continue
		}
		d := District{
			ID:         propertyString(f.Properties, idProperty),
			Name:       propertyString(f.Properties, nameProperty),
			Geometry:   g,
			Properties: f.Properties,
		}
		if d.ID == "" {
			d.ID = NormalizeID(f.ID)
		}
		districts = append(districts, d)
	}
	return districts, nil
}

// closeGeometry returns polygonal geometry with every ring closed. Nil is
// returned for non-polygonal geometry.
func closeGeometry(g geom.T) (geom.T, error) {
	switch t := g.(type) {
	case *geom.Polygon:
		return newPolygon(polygonRings(t))
	case *geom.MultiPolygon:
		polys := make([][][]float64, 0, t.NumPolygons())
		for i := 0; i < t.NumPolygons(); i++ {
			polys = append(polys, polygonRings(t.Polygon(i)))
		}
		return newMultiPolygon(polys)
	default:
		return nil, nil
	}
}

func polygonRings(p *geom.Polygon) [][]float64 {
	rings := make([][]float64, 0, p.NumLinearRings())
	for i := 0; i < p.NumLinearRings(); i++ {
		lr := p.LinearRing(i)
		stride := lr.Stride()
		src := lr.FlatCoords()
		flat := make([]float64, 0, 2*len(src)/stride)
		for j := 0; j+1 < len(src); j += stride {
			flat = append(flat, src[j], src[j+1])
		}
		rings = append(rings, flat)
	}
	return rings
}

// LoadFile reads a boundary file for a chamber, choosing the decoder by
// extension: .topojson, .json/.geojson (TopoJSON when the document says so),
// or .shp.
func LoadFile(chamber Chamber, opts LoadOptions) (*DistrictSet, error) {
	if opts.IDProperty == "" {
		opts.IDProperty = "district"
	}

	var districts []District
	var err error

	switch strings.ToLower(filepath.Ext(opts.Path)) {
	case ".shp":
		districts, err = ReadShapefile(opts.Path, chamber, opts.IDProperty, opts.NameProperty)
	case ".topojson", ".json", ".geojson":
		districts, err = readJSONFile(opts)
	default:
		return nil, eris.Errorf("district: unsupported boundary file %s", opts.Path)
	}
	if err != nil {
		return nil, err
	}

	set, err := NewDistrictSet(chamber, districts)
	if err != nil {
		return nil, eris.Wrapf(err, "district: build %s set from %s", chamber, opts.Path)
	}

	zap.L().Info("district: loaded boundaries",
		zap.String("chamber", string(chamber)),
		zap.String("path", opts.Path),
		zap.Int("districts", set.Len()),
	)
	return set, nil
}

func readJSONFile(opts LoadOptions) ([]District, error) {
	data, err := os.ReadFile(opts.Path)
	if err != nil {
		return nil, eris.Wrapf(err, "district: read %s", opts.Path)
	}

	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, eris.Wrapf(err, "district: parse %s", opts.Path)
	}

	r := bytes.NewReader(data)
	if probe.Type == "Topology" {
		return ReadTopoJSON(r, TopoJSONOptions{
			Object:       opts.Object,
			IDProperty:   opts.IDProperty,
			NameProperty: opts.NameProperty,
		})
	}
	return ReadGeoJSON(r, opts.IDProperty, opts.NameProperty)
}

// LoadChambers loads several chambers concurrently.
func LoadChambers(ctx context.Context, files map[Chamber]LoadOptions) (map[Chamber]*DistrictSet, error) {
	g, _ := errgroup.WithContext(ctx)
	sets := make([]*DistrictSet, len(Chambers))

	for i, c := range Chambers {
		opts, ok := files[c]
		if !ok || opts.Path == "" {
			continue
		}
		g.Go(func() error {
			set, err := LoadFile(c, opts)
			if err != nil {
				return err
			}
			sets[i] = set
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[Chamber]*DistrictSet, len(Chambers))
	for i, c := range Chambers {
		if sets[i] != nil {
			out[c] = sets[i]
		}
	}
	return out, nil
}
