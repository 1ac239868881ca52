// Package httpapi exposes the health poller's control surface over
// HTTP: list/add/remove configured backends, inspect their current
// Status, and enable/disable their probe — the network-reachable
// counterpart to varnishadm's backend.list/backend.set_health.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hirsh012/varnish-cache/internal/domain"
	"github.com/hirsh012/varnish-cache/internal/httpapi/middleware"
	"github.com/hirsh012/varnish-cache/internal/poller"
	"github.com/hirsh012/varnish-cache/internal/repo"
)

// Server wires the HTTP API to the poller and backend registry. It
// keeps its own name -> *domain.Backend index because poller
// operations need the live Backend pointer, not just its persisted
// configuration.
type Server struct {
	Logger   *zap.Logger
	Poller   *poller.Poller
	Registry repo.BackendRegistry

	mu       sync.RWMutex
	backends map[string]*domain.Backend
}

func NewServer(l *zap.Logger, p *poller.Poller, registry repo.BackendRegistry) *Server {
	return &Server{
		Logger:   l,
		Poller:   p,
		Registry: registry,
		backends: make(map[string]*domain.Backend),
	}
}

// Router builds the chi router. keys configures bearer/X-API-Key auth;
// an empty Keys disables auth entirely (local dev). The four rate
// parameters are requests-per-minute/burst pairs for the public and
// admin route groups; 0 disables limiting for that group.
func (s *Server) Router(keys middleware.Keys, publicRPM, publicBurst, adminRPM, adminBurst int) http.Handler {
	r := chi.NewRouter()
	r.Use(cors.AllowAll().Handler)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAny(keys))
		r.Use(middleware.RateLimit(publicRPM, publicBurst))
		r.Get("/api/backends", s.handleListBackends)
		r.Get("/api/backends/{name}/status", s.handleStatus)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin(keys))
		r.Use(middleware.RateLimit(adminRPM, adminBurst))
		r.Post("/api/backends", s.handleAddBackend)
		r.Delete("/api/backends/{name}", s.handleRemoveBackend)
		r.Post("/api/backends/{name}/control", s.handleControl)
	})

	return r
}

type addBackendPayload struct {
	Name       string           `json:"name"`
	Address4   string           `json:"address4"`
	Address6   string           `json:"address6"`
	HostHeader string           `json:"host_header"`
	Probe      domain.ProbeSpec `json:"probe"`
}

var errBadPayload = errors.New("bad payload")

func (s *Server) handleAddBackend(w http.ResponseWriter, r *http.Request) {
	var p addBackendPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || p.Name == "" {
		http.Error(w, errBadPayload.Error(), http.StatusBadRequest)
		return
	}
	if p.Address4 == "" && p.Address6 == "" {
		http.Error(w, "backend needs address4 or address6", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	if _, exists := s.backends[p.Name]; exists {
		s.mu.Unlock()
		http.Error(w, "backend already exists", http.StatusConflict)
		return
	}
	s.mu.Unlock()

	backend := domain.NewBackend(p.Name, p.Address4, p.Address6)
	if _, err := s.Poller.Insert(backend, p.Probe, p.HostHeader); err != nil {
		http.Error(w, "could not start probing backend", http.StatusInternalServerError)
		return
	}

	cfg := domain.BackendConfig{
		ID:          backend.ID,
		DisplayName: p.Name,
		Address4:    p.Address4,
		Address6:    p.Address6,
		HostHeader:  p.HostHeader,
		Probe:       p.Probe.WithDefaults(),
	}
	if err := s.Registry.Add(r.Context(), cfg); err != nil {
		s.Logger.Error("registry add failed", zap.String("backend", p.Name), zap.Error(err))
	}

	s.mu.Lock()
	s.backends[p.Name] = backend
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(cfg)
}

func (s *Server) handleRemoveBackend(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	s.mu.Lock()
	backend, ok := s.backends[name]
	if ok {
		delete(s.backends, name)
	}
	s.mu.Unlock()
	if !ok {
		http.Error(w, "unknown backend", http.StatusNotFound)
		return
	}

	if err := s.Poller.Remove(backend); err != nil {
		s.Logger.Error("poller remove failed", zap.String("backend", name), zap.Error(err))
	}
	if err := s.Registry.Remove(r.Context(), backend.ID); err != nil {
		s.Logger.Error("registry remove failed", zap.String("backend", name), zap.Error(err))
	}
	w.WriteHeader(http.StatusNoContent)
}

// ActiveBackends returns a snapshot of the live *domain.Backend
// pointers currently known to the server, for collaborators (such as
// internal/notify.Alerter) that poll Backend.Healthy() directly
// instead of going through the registry.
func (s *Server) ActiveBackends() []*domain.Backend {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Backend, 0, len(s.backends))
	for _, b := range s.backends {
		out = append(out, b)
	}
	return out
}

func (s *Server) handleListBackends(w http.ResponseWriter, r *http.Request) {
	cfgs, err := s.Registry.List(r.Context())
	if err != nil {
		http.Error(w, "list error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(cfgs)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	s.mu.RLock()
	backend, ok := s.backends[name]
	s.mu.RUnlock()
	if !ok {
		http.Error(w, "unknown backend", http.StatusNotFound)
		return
	}

	details, _ := strconv.ParseBool(r.URL.Query().Get("details"))
	w.Header().Set("Content-Type", "text/plain")
	if err := s.Poller.Status(w, backend, details); err != nil {
		http.Error(w, "status error", http.StatusInternalServerError)
	}
}

type controlPayload struct {
	Enable bool `json:"enable"`
}

func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	s.mu.RLock()
	backend, ok := s.backends[name]
	s.mu.RUnlock()
	if !ok {
		http.Error(w, "unknown backend", http.StatusNotFound)
		return
	}

	var p controlPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, errBadPayload.Error(), http.StatusBadRequest)
		return
	}
	if err := s.Poller.Control(backend, p.Enable); err != nil {
		http.Error(w, "control error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
