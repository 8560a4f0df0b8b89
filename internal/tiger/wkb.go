package tiger

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

// SRID of TIGER/Line geometries after reprojection to WGS84.
const SRID = 4326

// EncodeWKB converts a district geometry to little-endian EWKB with SRID 4326.
// Polygons are promoted to MultiPolygons so every row has one geometry type.
func EncodeWKB(g geom.T) ([]byte, error) {
	var mp *geom.MultiPolygon
	switch t := g.(type) {
	case *geom.MultiPolygon:
		mp = geom.NewMultiPolygonFlat(geom.XY, t.FlatCoords(), t.Endss())
	case *geom.Polygon:
		mp = geom.NewMultiPolygon(geom.XY)
		if err := mp.Push(t); err != nil {
			return nil, eris.Wrap(err, "tiger: promote polygon")
		}
	default:
		return nil, eris.Errorf("tiger: unsupported geometry %T", g)
	}

	data, err := ewkb.Marshal(mp.SetSRID(SRID), ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "tiger: encode WKB")
	}
	return data, nil
}
