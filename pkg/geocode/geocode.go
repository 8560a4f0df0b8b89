// Package geocode turns free-text addresses into candidate coordinates via
// Nominatim (primary) and the Census one-line geocoder (fallback).
package geocode

import (
	"context"
	"strings"
)

// DefaultRegion is the display-name suffix that marks a US result.
const DefaultRegion = "United States of America"

// maxResponseBytes caps how much of a provider response is read.
const maxResponseBytes = 4 << 20

// Candidate is one possible location for an address query.
type Candidate struct {
	DisplayName string  `json:"display_name"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	Type        string  `json:"type,omitempty"`
	Importance  float64 `json:"importance,omitempty"`
	Source      string  `json:"source"`
}

// Provider is a single geocoding backend.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string) ([]Candidate, error)
}

// FilterRegion keeps candidates whose display name contains every region
// string. With no regions, DefaultRegion is used. The match is a plain
// substring test, so results naming the region only in passing also pass.
func FilterRegion(cands []Candidate, regions ...string) []Candidate {
	if len(regions) == 0 {
		regions = []string{DefaultRegion}
	}
	out := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		keep := true
		for _, r := range regions {
			if r != "" && !strings.Contains(c.DisplayName, r) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, c)
		}
	}
	return out
}

// ShortName drops the trailing country from a display name.
func ShortName(displayName string) string {
	return strings.TrimSpace(strings.Replace(displayName, ", "+DefaultRegion, "", 1))
}

// normalizeQuery collapses whitespace and case for cache keys.
func normalizeQuery(q string) string {
	return strings.ToLower(strings.Join(strings.Fields(q), " "))
}
