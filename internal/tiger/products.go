// Package tiger downloads Census TIGER/Line state legislative district
// boundaries and loads them as district sets, optionally persisting them to
// PostGIS.
package tiger

import (
	"fmt"
	"strings"

	"github.com/sells-group/lobbying-cli/internal/district"
)

// MissouriFIPS is the state FIPS code used by default.
const MissouriFIPS = "29"

// DefaultYear is the TIGER/Line vintage used when none is configured.
const DefaultYear = 2024

// DefaultBaseURL is the Census TIGER/Line root.
const DefaultBaseURL = "https://www2.census.gov/geo/tiger"

// Product describes one TIGER/Line legislative boundary layer.
type Product struct {
	Name      string           // "SLDU" or "SLDL"
	Chamber   district.Chamber // chamber the layer describes
	IDField   string           // attribute holding the district number
	NameField string           // attribute holding the display name
}

// Products lists the state legislative district layers.
var Products = []Product{
	{Name: "SLDU", Chamber: district.Senate, IDField: "SLDUST", NameField: "NAMELSAD"},
	{Name: "SLDL", Chamber: district.House, IDField: "SLDLST", NameField: "NAMELSAD"},
}

// ProductFor returns the layer for a chamber.
func ProductFor(c district.Chamber) (Product, bool) {
	for _, p := range Products {
		if p.Chamber == c {
			return p, true
		}
	}
	return Product{}, false
}

// DownloadURL builds the per-state ZIP URL for a product, e.g.
// https://www2.census.gov/geo/tiger/TIGER2024/SLDU/tl_2024_29_sldu.zip.
func DownloadURL(baseURL string, p Product, year int, stateFIPS string) string {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return fmt.Sprintf("%s/TIGER%d/%s/tl_%d_%s_%s.zip",
		strings.TrimRight(baseURL, "/"), year, p.Name, year, stateFIPS, strings.ToLower(p.Name))
}
