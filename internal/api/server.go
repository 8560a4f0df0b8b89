// Package api serves district lookups, the legislator directory and the
// gift-disclosure data over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/lobbying-cli/internal/directory"
	"github.com/sells-group/lobbying-cli/internal/district"
	"github.com/sells-group/lobbying-cli/internal/gifts"
	"github.com/sells-group/lobbying-cli/internal/lookup"
	"github.com/sells-group/lobbying-cli/internal/store"
)

// SessionHeader identifies a client whose newer lookups supersede older
// in-flight ones.
const SessionHeader = "X-Lookup-Session"

// ExpenditureSource lists stored expenditures.
type ExpenditureSource interface {
	ListExpenditures(ctx context.Context, filter store.ExpenditureFilter) ([]gifts.Expenditure, error)
}

// Deps are the collaborators a Server needs. Sets and GridCaches may be
// empty when the matching backend is not in use.
type Deps struct {
	Lookup       *lookup.Service
	Sets         map[district.Chamber]*district.DistrictSet
	Directory    *directory.Directory
	Expenditures ExpenditureSource
	GridCaches   map[district.Chamber]*district.GridCache
	Now          func() time.Time
}

// Server holds the HTTP handlers.
type Server struct {
	deps Deps
	log  *zap.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

// session is a client's tracker plus the number of its lookups in flight.
// It is dropped once the last one finishes.
type session struct {
	tracker  *district.Tracker
	inflight int
}

// New creates a Server.
func New(deps Deps) *Server {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Server{
		deps:     deps,
		log:      zap.L().With(zap.String("component", "api")),
		sessions: make(map[string]*session),
	}
}

// Routes returns the router. origins configures CORS.
func (s *Server) Routes(origins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", SessionHeader},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/lookup", s.handleLookup)
	r.Get("/lookup/point", s.handleLookupPoint)
	r.Get("/districts/{chamber}", s.handleDistricts)
	r.Get("/districts/{chamber}/{id}", s.handleDistrict)
	r.Get("/legislators", s.handleLegislators)
	r.Get("/legislators/{slug}", s.handleLegislator)
	r.Get("/organizations/{slug}", s.handleOrganization)
	r.Get("/expenditures", s.handleExpenditures)
	r.Get("/summary", s.handleSummary)
	r.Get("/download/"+gifts.DownloadFilename, s.handleDownload)
	r.Get("/stats", s.handleStats)
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// ticket begins a lookup generation for the request's session. Without a
// session id the ticket is detached. The returned func must be called when
// the lookup finishes.
func (s *Server) ticket(r *http.Request) (*district.Ticket, func()) {
	id := r.Header.Get(SessionHeader)
	if id == "" {
		return district.Detached(r.Context()), func() {}
	}

	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		sess = &session{tracker: district.NewTracker()}
		s.sessions[id] = sess
	}
	sess.inflight++
	t := sess.tracker.Begin(r.Context())
	s.mu.Unlock()

	return t, func() {
		t.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		sess.inflight--
		if sess.inflight == 0 && s.sessions[id] == sess {
			delete(s.sessions, id)
		}
	}
}

// activeSessions returns the number of sessions with lookups in flight.
func (s *Server) activeSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": code, "message": message})
}
