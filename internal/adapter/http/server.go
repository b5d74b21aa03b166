// Package http exposes the flood risk service over HTTP: health and metrics
// endpoints plus the JSON API consumed by the dashboard.
package http

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/flood-risk-service/internal/alert"
	"github.com/couchcryptid/flood-risk-service/internal/domain"
)

// Service is the evaluation surface the API serves.
type Service interface {
	Assessments(ctx context.Context) ([]domain.RiskAssessment, error)
	Advisory(ctx context.Context, unitID string) ([]string, error)
	TriggerAlert(ctx context.Context, unitID string) (alert.Decision, error)
	AlertStates() []alert.State
}

// Server exposes health, readiness, metrics and API endpoints.
type Server struct {
	httpServer *http.Server
	service    Service
	logger     *slog.Logger
}

// NewServer creates an HTTP server with its routes registered. The write
// timeout leaves room for send_alert, which waits on the notification transport.
func NewServer(addr string, service Service, ready sharedobs.ReadinessChecker, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		service: service,
		logger:  logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/waterlogged", s.handleWaterlogged)
	mux.HandleFunc("GET /api/control_strategies/{unit_id}", s.handleControlStrategies)
	mux.HandleFunc("POST /api/send_alert/{unit_id}", s.handleSendAlert)
	mux.HandleFunc("GET /api/alert_state", s.handleAlertState)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type waterloggedArea struct {
	ID         string    `json:"id"`
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	WaterLevel float64   `json:"water_level"`
	Status     string    `json:"status"`
	Timestamp  time.Time `json:"timestamp"`
	PlaceName  string    `json:"place_name,omitempty"`
}

type controlStrategies struct {
	UnitID     string   `json:"unit_id"`
	Strategies []string `json:"strategies"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleWaterlogged(w http.ResponseWriter, r *http.Request) {
	assessments, err := s.service.Assessments(r.Context())
	if err != nil {
		s.logger.Error("list assessments failed", "error", err)
		sharedobs.WriteJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	areas := make([]waterloggedArea, 0, len(assessments))
	for _, a := range assessments {
		areas = append(areas, waterloggedArea{
			ID:         a.UnitID,
			Lat:        a.Location.Lat,
			Lon:        a.Location.Lon,
			WaterLevel: math.Round(a.PredictedWaterLevelM*100) / 100,
			Status:     string(a.RiskState),
			Timestamp:  a.Timestamp.UTC(),
			PlaceName:  a.PlaceName,
		})
	}
	sharedobs.WriteJSON(w, http.StatusOK, areas)
}

func (s *Server) handleControlStrategies(w http.ResponseWriter, r *http.Request) {
	unitID := r.PathValue("unit_id")
	strategies, err := s.service.Advisory(r.Context(), unitID)
	switch {
	case err == nil:
		sharedobs.WriteJSON(w, http.StatusOK, controlStrategies{UnitID: unitID, Strategies: strategies})
	case errors.Is(err, domain.ErrInvalidReading):
		s.logger.Warn("advisory rejected reading", "unit_id", unitID, "error", err)
		sharedobs.WriteJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	default:
		s.logger.Error("advisory failed", "unit_id", unitID, "error", err)
		sharedobs.WriteJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}

func (s *Server) handleSendAlert(w http.ResponseWriter, r *http.Request) {
	unitID := r.PathValue("unit_id")
	decision, err := s.service.TriggerAlert(r.Context(), unitID)
	if err == nil {
		sharedobs.WriteJSON(w, http.StatusOK, decision)
		return
	}

	s.logger.Warn("manual alert failed", "unit_id", unitID, "error", err)
	switch {
	case errors.Is(err, domain.ErrDispatchFailed):
		sharedobs.WriteJSON(w, http.StatusBadGateway, decision)
	case errors.Is(err, domain.ErrInvalidReading):
		sharedobs.WriteJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	default:
		sharedobs.WriteJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}

func (s *Server) handleAlertState(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, s.service.AlertStates())
}
