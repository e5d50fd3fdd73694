package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ILLUVRSE/council/internal/config"
	"github.com/ILLUVRSE/council/internal/deliberation"
	"github.com/ILLUVRSE/council/internal/events"
	"github.com/ILLUVRSE/council/internal/models"
	"github.com/ILLUVRSE/council/internal/registry"
)

// routeTimeoutSlack keeps the HTTP deadline past the deliberation budget so runs
// always end through their own timeout handling.
const routeTimeoutSlack = 30 * time.Second

// Deliberator runs one deliberation.
type Deliberator interface {
	Run(ctx context.Context, req deliberation.Request) (*models.DeliberationResult, error)
}

// WindowUsage exposes rate limiter state for listings.
type WindowUsage interface {
	Usage(id string) int
	Tracked() int
}

// EventStats is satisfied by the event emitter when publishing is enabled.
type EventStats interface {
	Stats() events.Stats
}

type Server struct {
	cfg      config.Config
	registry *registry.Registry
	svc      Deliberator
	limiter  WindowUsage
	events   EventStats
}

// New builds the HTTP surface. stats may be nil when events are disabled.
func New(cfg config.Config, reg *registry.Registry, svc Deliberator, limiter WindowUsage, stats EventStats) *Server {
	return &Server{
		cfg:      cfg,
		registry: reg,
		svc:      svc,
		limiter:  limiter,
		events:   stats,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.routeTimeout()))

	r.Get("/health", s.handleHealth)
	r.Post("/deliberation", s.handleDeliberation)

	r.Route("/participants", func(r chi.Router) {
		r.Get("/", s.handleListParticipants)
		r.Get("/{id}", s.handleGetParticipant)
	})

	return r
}

func (s *Server) routeTimeout() time.Duration {
	budget := s.cfg.DeliberationTimeout
	if s.cfg.FastTimeout > budget {
		budget = s.cfg.FastTimeout
	}
	if budget <= 0 {
		budget = deliberation.DefaultDeliberationTimeout
	}
	return budget + routeTimeoutSlack
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"ok":           true,
		"time":         time.Now().UTC().Format(time.RFC3339Nano),
		"participants": len(s.registry.List()),
		"providers":    s.registry.Providers(),
		"limiter": map[string]int{
			"trackedWindows": s.limiter.Tracked(),
		},
	}
	if s.events != nil {
		status["events"] = s.events.Stats()
	} else {
		status["events"] = "disabled"
	}
	respondJSON(w, http.StatusOK, status)
}

type deliberationRequest struct {
	Query              string   `json:"query"`
	Mode               string   `json:"mode"`
	ActiveParticipants []string `json:"activeParticipants"`
}

func (s *Server) handleDeliberation(w http.ResponseWriter, r *http.Request) {
	var req deliberationRequest
	if err := decodeJSON(w, r, &req, int64(s.cfg.MaxBodyBytes)); err != nil {
		respondError(w, http.StatusBadRequest, "COUNCIL_BAD_REQUEST", err.Error())
		return
	}

	result, err := s.svc.Run(r.Context(), deliberation.Request{
		Query:              req.Query,
		Mode:               models.Mode(req.Mode),
		ActiveParticipants: req.ActiveParticipants,
	})
	if err != nil {
		respondDeliberationError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func respondDeliberationError(w http.ResponseWriter, err error) {
	status, code := http.StatusInternalServerError, "COUNCIL_INTERNAL"
	switch {
	case errors.Is(err, deliberation.ErrInvalidQuery), errors.Is(err, deliberation.ErrInvalidMode):
		status, code = http.StatusBadRequest, "COUNCIL_BAD_REQUEST"
	case errors.Is(err, deliberation.ErrInsufficientParticipants):
		status, code = http.StatusBadRequest, "COUNCIL_INSUFFICIENT_PARTICIPANTS"
	case errors.Is(err, deliberation.ErrAllParticipantsFailed):
		code = "COUNCIL_ALL_PARTICIPANTS_FAILED"
	case errors.Is(err, deliberation.ErrNoChairmanSelectable):
		code = "COUNCIL_NO_CHAIRMAN"
	case errors.Is(err, deliberation.ErrSynthesisFailed):
		code = "COUNCIL_SYNTHESIS_FAILED"
	}

	var derr *deliberation.Error
	if !errors.As(err, &derr) {
		respondError(w, status, code, "internal error")
		return
	}
	body := map[string]interface{}{
		"error": derr.Err.Error(),
		"code":  code,
	}
	if len(derr.Failures) > 0 {
		body["details"] = derr.Failures
	}
	respondJSON(w, status, body)
}

type participantView struct {
	models.Participant
	WindowUsage int `json:"windowUsage"`
}

func (s *Server) view(p models.Participant) participantView {
	return participantView{Participant: p, WindowUsage: s.limiter.Usage(p.ID)}
}

func (s *Server) handleListParticipants(w http.ResponseWriter, r *http.Request) {
	list := s.registry.List()
	if raw := r.URL.Query().Get("provider"); raw != "" {
		p := models.Provider(raw)
		if p != models.ProviderGroq && p != models.ProviderNvidia {
			respondError(w, http.StatusBadRequest, "COUNCIL_BAD_REQUEST", "provider must be groq or nvidia")
			return
		}
		list = s.registry.ByProvider(p)
	}
	out := make([]participantView, 0, len(list))
	for _, p := range list {
		out = append(out, s.view(p))
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"participants": out})
}

func (s *Server) handleGetParticipant(w http.ResponseWriter, r *http.Request) {
	p, ok := s.registry.Get(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, http.StatusNotFound, "COUNCIL_NOT_FOUND", "participant not found")
		return
	}
	respondJSON(w, http.StatusOK, s.view(p))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}, limit int64) error {
	if limit <= 0 {
		limit = 1 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, code, msg string) {
	respondJSON(w, status, map[string]string{
		"error": msg,
		"code":  code,
	})
}
