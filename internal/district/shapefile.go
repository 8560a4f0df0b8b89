package district

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ReadShapefile decodes polygon records of a shapefile into districts. idField
// names the attribute holding the district number (for TIGER/Line
// legislative files, SLDUST or SLDLST). nameField is optional. Every other
// attribute is kept as a property.
func ReadShapefile(shpPath string, chamber Chamber, idField, nameField string) ([]District, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "district: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	names := make([]string, len(fields))
	idIdx, nameIdx := -1, -1
	for i, f := range fields {
		names[i] = strings.ToLower(strings.TrimRight(f.String(), "\x00"))
		switch names[i] {
		case strings.ToLower(idField):
			idIdx = i
		case strings.ToLower(nameField):
			nameIdx = i
		}
	}
	if idIdx < 0 {
		return nil, eris.Errorf("district: shapefile %s has no %s field", shpPath, idField)
	}

	var districts []District
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok || poly == nil {
			skipped++
			continue
		}

		g, err := assembleRings(shapeRings(poly))
		if err != nil {
			skipped++
			continue
		}

		props := make(map[string]any, len(fields))
		for i, name := range names {
			props[name] = strings.TrimSpace(strings.TrimRight(reader.Attribute(i), "\x00"))
		}

		d := District{
			ID:         props[names[idIdx]].(string),
			Geometry:   g,
			Properties: props,
		}
		if nameIdx >= 0 {
			d.Name = props[names[nameIdx]].(string)
		}
		// TIGER uses ZZZ for water and undefined areas.
		if d.ID == "" || strings.EqualFold(d.ID, "ZZZ") {
			skipped++
			continue
		}
		districts = append(districts, d)
	}

	if skipped > 0 {
		zap.L().Debug("district: skipped shapefile records",
			zap.String("path", shpPath),
			zap.String("chamber", string(chamber)),
			zap.Int("skipped", skipped),
		)
	}
	return districts, nil
}

// shapeRings splits a shapefile polygon into flat XY rings.
func shapeRings(p *shp.Polygon) [][]float64 {
	rings := make([][]float64, 0, p.NumParts)
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		if start < 0 || start >= end || end > int32(len(p.Points)) {
			continue
		}
		flat := make([]float64, 0, 2*(end-start))
		for _, pt := range p.Points[start:end] {
			flat = append(flat, pt.X, pt.Y)
		}
		rings = append(rings, flat)
	}
	return rings
}
