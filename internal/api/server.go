// Package api exposes the aggregation service over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/yhun1542/emarknews-stable/internal/enrich"
	"github.com/yhun1542/emarknews-stable/internal/logger"
	"github.com/yhun1542/emarknews-stable/internal/metrics"
	"github.com/yhun1542/emarknews-stable/internal/service"
)

type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type Server struct {
	agg          *service.Aggregator
	queue        *enrich.Queue
	defaultLimit int
	log          *slog.Logger
}

func NewServer(agg *service.Aggregator, queue *enrich.Queue, defaultLimit int) *Server {
	if defaultLimit <= 0 {
		defaultLimit = 30
	}
	return &Server{agg: agg, queue: queue, defaultLimit: defaultLimit, log: logger.With("api")}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/stats", s.handleStats).Methods(http.MethodGet)
	r.HandleFunc("/api/deadletters", s.handleDeadLetters).Methods(http.MethodGet)
	r.HandleFunc("/api/deadletters/replay", s.handleReplayDeadLetters).Methods(http.MethodPost)
	r.HandleFunc("/api/article/{section}/{id}", s.handleArticle).Methods(http.MethodGet)
	r.HandleFunc("/api/{section}/fast", s.handleSectionFast).Methods(http.MethodGet)
	r.HandleFunc("/api/{section}", s.handleSection).Methods(http.MethodGet)

	return r
}

func (s *Server) handleSection(w http.ResponseWriter, r *http.Request) {
	section := mux.Vars(r)["section"]

	payload, err := s.agg.Section(r.Context(), section)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{Success: true, Data: s.paged(r, payload)})
}

func (s *Server) handleSectionFast(w http.ResponseWriter, r *http.Request) {
	section := mux.Vars(r)["section"]

	payload, err := s.agg.SectionFast(r.Context(), section)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{Success: true, Data: s.paged(r, payload)})
}

func (s *Server) handleArticle(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	art, err := s.agg.ArticleByID(r.Context(), vars["section"], vars["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{Success: true, Data: art})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	stats := metrics.Global.GetStats()
	status := http.StatusOK
	if healthy, ok := stats["is_healthy"].(bool); ok && !healthy {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, envelope{Success: status == http.StatusOK, Data: map[string]interface{}{
		"status": http.StatusText(status),
		"time":   time.Now().UTC().Format(time.RFC3339),
	}})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, envelope{Success: true, Data: metrics.Global.GetStats()})
}

func (s *Server) handleDeadLetters(w http.ResponseWriter, _ *http.Request) {
	tasks := []enrich.Task{}
	if s.queue != nil {
		tasks = s.queue.DeadLetters()
	}
	s.writeJSON(w, http.StatusOK, envelope{Success: true, Data: tasks})
}

func (s *Server) handleReplayDeadLetters(w http.ResponseWriter, r *http.Request) {
	if s.queue == nil {
		s.writeJSON(w, http.StatusServiceUnavailable, envelope{Success: false, Error: "enrichment queue not configured"})
		return
	}

	replayed, err := s.queue.ReplayDeadLetters(r.Context())
	if err != nil {
		s.writeJSON(w, http.StatusServiceUnavailable, envelope{
			Success: false,
			Error:   err.Error(),
			Data:    map[string]int{"replayed": replayed},
		})
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{Success: true, Data: map[string]int{"replayed": replayed}})
}

// paged returns a shallow copy of the payload limited to the requested
// page window. Total keeps the pre-paging count.
func (s *Server) paged(r *http.Request, payload *service.Payload) *service.Payload {
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", s.defaultLimit)
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = s.defaultLimit
	}

	start := (page - 1) * limit
	end := start + limit

	out := *payload
	switch {
	case start >= len(payload.Articles):
		out.Articles = nil
	case end > len(payload.Articles):
		out.Articles = payload.Articles[start:]
	default:
		out.Articles = payload.Articles[start:end]
	}
	return &out
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrUnknownSection):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrArticleNotFound):
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		metrics.Global.SetError(err.Error())
	}
	s.writeJSON(w, status, envelope{Success: false, Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Error("write response", "error", err)
	}
}
