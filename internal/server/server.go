package server

import (
	"encoding/json"
	"net/http"

	chi "github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/glocktrack/glocktrack/internal/services"
	"github.com/glocktrack/glocktrack/internal/store"
)

// Server exposes the data core to the PWA shell over a JSON API
type Server struct {
	router   chi.Router
	store    *store.Store
	readings *services.ReadingService
	profiles *services.ProfileService
	trends   *services.TrendService
}

// NewServer wires the API routes over the given services
func NewServer(st *store.Store, readings *services.ReadingService, profiles *services.ProfileService, trends *services.TrendService) *Server {
	s := &Server{
		store:    st,
		readings: readings,
		profiles: profiles,
		trends:   trends,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Route("/api", func(r chi.Router) {
		r.Post("/readings", s.handleCreateReading)
		r.Get("/readings", s.handleListReadings)
		r.Delete("/readings/{id}", s.handleDeleteReading)
		r.Get("/dashboard", s.handleDashboard)
		r.Post("/scan", s.handleScan)
		r.Get("/profile", s.handleGetProfile)
		r.Put("/profile", s.handleSaveProfile)
		r.Get("/events", s.handleEvents)
	})
	s.router = r
	return s
}

// Router returns the HTTP handler
func (s *Server) Router() http.Handler {
	return s.router
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
