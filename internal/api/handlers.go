package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/sells-group/lobbying-cli/internal/district"
	"github.com/sells-group/lobbying-cli/internal/gifts"
	"github.com/sells-group/lobbying-cli/internal/lookup"
	"github.com/sells-group/lobbying-cli/internal/store"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	ticket, release := s.ticket(r)
	defer release()

	resp, err := s.deps.Lookup.LookupAddress(ticket.Context(), ticket, r.URL.Query().Get("address"))
	s.writeLookup(w, ticket, resp, err)
}

func (s *Server) handleLookupPoint(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	lng, errLng := strconv.ParseFloat(q.Get("lng"), 64)
	if errLat != nil || errLng != nil {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "lat and lng must be numbers")
		return
	}
	p := district.Point{Lat: lat, Lng: lng}
	if err := p.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_parameter", err.Error())
		return
	}

	ticket, release := s.ticket(r)
	defer release()

	resp, err := s.deps.Lookup.LookupPoint(ticket.Context(), ticket, p)
	s.writeLookup(w, ticket, resp, err)
}

func (s *Server) writeLookup(w http.ResponseWriter, ticket *district.Ticket, resp *lookup.Response, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, resp)
	case errors.Is(err, lookup.ErrEmptyAddress):
		writeError(w, http.StatusBadRequest, "missing_parameter", "address is required")
	case errors.Is(err, district.ErrStale), !ticket.Current():
		writeError(w, http.StatusConflict, "superseded", "a newer lookup replaced this one")
	default:
		s.log.Error("lookup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "lookup failed")
	}
}

func (s *Server) chamberSet(w http.ResponseWriter, r *http.Request) (*district.DistrictSet, bool) {
	chamber, err := district.ParseChamber(chi.URLParam(r, "chamber"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_parameter", err.Error())
		return nil, false
	}
	set, ok := s.deps.Sets[chamber]
	if !ok || set == nil {
		writeError(w, http.StatusNotFound, "not_loaded", "no boundary data loaded for "+string(chamber))
		return nil, false
	}
	return set, true
}

func (s *Server) handleDistricts(w http.ResponseWriter, r *http.Request) {
	set, ok := s.chamberSet(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"chamber": set.Chamber(),
		"count":   set.Len(),
		"ids":     set.IDs(),
	})
}

// handleDistrict returns one district as a GeoJSON feature.
func (s *Server) handleDistrict(w http.ResponseWriter, r *http.Request) {
	set, ok := s.chamberSet(w, r)
	if !ok {
		return
	}
	d, ok := set.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "unknown district")
		return
	}

	props := map[string]any{"chamber": d.Chamber, "district": d.ID}
	if d.Name != "" {
		props["name"] = d.Name
	}
	if l, ok := s.deps.Directory.ByDistrict(d.Chamber, d.ID); ok {
		props["legislator"] = l.Slug
	}
	w.Header().Set("Content-Type", "application/geo+json")
	writeJSON(w, http.StatusOK, &geojson.Feature{
		ID:         d.ID,
		Geometry:   d.Geometry,
		Properties: props,
	})
}

func (s *Server) handleLegislators(w http.ResponseWriter, r *http.Request) {
	if c := r.URL.Query().Get("chamber"); c != "" {
		chamber, err := district.ParseChamber(c)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_parameter", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, s.deps.Directory.Chamber(chamber))
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Directory.All())
}

func (s *Server) handleLegislator(w http.ResponseWriter, r *http.Request) {
	l, ok := s.deps.Directory.BySlug(chi.URLParam(r, "slug"))
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "unknown legislator")
		return
	}
	exps, ok := s.expenditures(w, r, store.ExpenditureFilter{})
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"legislator": l,
		"spending":   gifts.LegislatorProfile(exps, l.Slug, s.deps.Now()),
	})
}

func (s *Server) handleOrganization(w http.ResponseWriter, r *http.Request) {
	exps, ok := s.expenditures(w, r, store.ExpenditureFilter{})
	if !ok {
		return
	}
	org, ok := gifts.FindOrganization(exps, chi.URLParam(r, "slug"))
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "unknown organization")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"organization": org,
		"spending":     gifts.OrganizationProfile(exps, org.Slug, s.deps.Now()),
	})
}

func (s *Server) handleExpenditures(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	field, err := gifts.ParseSort(q.Get("sort"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_parameter", err.Error())
		return
	}
	limit := 0
	if v := q.Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "invalid_parameter", "limit must be a non-negative integer")
			return
		}
	}

	exps, ok := s.expenditures(w, r, store.ExpenditureFilter{
		Legislator:   q.Get("legislator"),
		Organization: q.Get("organization"),
	})
	if !ok {
		return
	}
	query := gifts.Query{
		Sort:  field,
		Desc:  strings.EqualFold(q.Get("order"), "desc"),
		Limit: limit,
	}
	out := query.Apply(exps)
	if out == nil {
		out = []gifts.Expenditure{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	exps, ok := s.expenditures(w, r, store.ExpenditureFilter{})
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, gifts.Summarize(exps, s.deps.Now()))
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	exps, ok := s.expenditures(w, r, store.ExpenditureFilter{})
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+gifts.DownloadFilename+`"`)
	if err := gifts.WriteCSV(w, exps, s.deps.Directory); err != nil {
		s.log.Error("csv export failed", zap.Error(err))
	}
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	caches := map[string]district.CacheStats{}
	for chamber, c := range s.deps.GridCaches {
		if c != nil {
			caches[string(chamber)] = c.Stats()
		}
	}
	districts := map[string]int{}
	for chamber, set := range s.deps.Sets {
		districts[string(chamber)] = set.Len()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"grid_caches": caches,
		"districts":   districts,
		"legislators": s.deps.Directory.Len(),
	})
}

func (s *Server) expenditures(w http.ResponseWriter, r *http.Request, f store.ExpenditureFilter) ([]gifts.Expenditure, bool) {
	if s.deps.Expenditures == nil {
		return nil, true
	}
	exps, err := s.deps.Expenditures.ListExpenditures(r.Context(), f)
	if err != nil {
		s.log.Error("list expenditures failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "could not load expenditures")
		return nil, false
	}
	return exps, true
}
