// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"

	"github.com/okian/sportsmeet/internal/app/attendance"
	"github.com/okian/sportsmeet/internal/app/identity"
	"github.com/okian/sportsmeet/internal/app/results"
	"github.com/okian/sportsmeet/internal/domain/dedupe"
	"github.com/okian/sportsmeet/internal/domain/model"
	"github.com/okian/sportsmeet/internal/domain/scoreboard"
)

// ScoreDependencies records and corrects event results.
type ScoreDependencies interface {
	SubmitScores(ctx context.Context, in results.Submission) (results.SubmitResult, error)
	EditWinner(ctx context.Context, in results.Edit) (model.ScoreRecord, error)
	DeleteWinner(ctx context.Context, in results.Removal) error
}

// ScoreboardDependencies exposes the aggregated standings.
type ScoreboardDependencies interface {
	Scoreboard(ctx context.Context) (scoreboard.Board, error)
}

// ParticipantDependencies covers identity lookup, attendance and chest numbers.
type ParticipantDependencies interface {
	LookupParticipant(ctx context.Context, identifier string) (identity.Profile, error)
	MarkAttendance(ctx context.Context, identifier, eventID string) (attendance.Result, error)
	UnmarkAttendance(ctx context.Context, identifier, eventID string) (attendance.Result, error)
	AssignChestNumber(ctx context.Context, clearID, chestNumber string) (model.Participant, error)
	Registrants(ctx context.Context, eventID string) ([]attendance.Registrant, error)
}

// CatalogDependencies lists the events of the meet.
type CatalogDependencies interface {
	Events(ctx context.Context) ([]model.CatalogEvent, error)
}

// SchoolDependencies manages the school registry.
type SchoolDependencies interface {
	CreateSchool(ctx context.Context, name string) (model.School, error)
	ListSchools(ctx context.Context) ([]model.School, error)
	DeleteSchool(ctx context.Context, name string) error
}

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	ScoreDependencies
	ScoreboardDependencies
	ParticipantDependencies
	CatalogDependencies
	SchoolDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler       *HealthHandler
	statsHandler        *StatsHandler
	scoresHandler       *ScoresHandler
	scoreboardHandler   *ScoreboardHandler
	participantsHandler *ParticipantsHandler
	eventsHandler       *EventsHandler
	schoolsHandler      *SchoolsHandler

	limiter *IPRateLimiter
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithRateLimit throttles write routes per client IP. A non-positive rps
// leaves them unthrottled.
func WithRateLimit(rps float64, burst int) ServerOption {
	return func(s *Server) {
		if rps <= 0 {
			s.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		s.limiter = NewIPRateLimiter(rate.Limit(rps), burst)
	}
}

// WithIdempotency makes POST /score reject a repeated Idempotency-Key while
// g still holds it.
func WithIdempotency(g dedupe.Guard) ServerOption {
	return func(s *Server) {
		s.scoresHandler.guard = g
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	s := &Server{
		healthHandler:       NewHealthHandler(),
		statsHandler:        NewStatsHandler(statsProvider),
		scoresHandler:       NewScoresHandler(deps),
		scoreboardHandler:   NewScoreboardHandler(deps),
		participantsHandler: NewParticipantsHandler(deps),
		eventsHandler:       NewEventsHandler(deps, deps),
		schoolsHandler:      NewSchoolsHandler(deps),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(_ context.Context, r chi.Router) {
	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/metrics", s.healthHandler.HandleMetrics)
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	r.Route("/scoreboard", func(r chi.Router) {
		r.Get("/", MetricsMiddleware(s.scoreboardHandler.HandleGetScoreboard, "scoreboard"))
		r.Get("/export.xlsx", MetricsMiddleware(s.scoreboardHandler.HandleExport, "scoreboard_export"))
		r.Get("/chart.png", MetricsMiddleware(s.scoreboardHandler.HandleChart, "scoreboard_chart"))
	})
	r.Get("/events", MetricsMiddleware(s.eventsHandler.HandleListEvents, "events"))
	r.Get("/events/{eventId}/registrants", MetricsMiddleware(s.eventsHandler.HandleRegistrants, "registrants"))
	r.Get("/schools", MetricsMiddleware(s.schoolsHandler.HandleList, "schools"))

	// Writes share the per-IP limiter.
	r.Group(func(r chi.Router) {
		if s.limiter != nil {
			r.Use(RateLimitMiddleware(s.limiter))
		}
		r.Post("/score", MetricsMiddleware(s.scoresHandler.HandleSubmit, "score"))
		r.Post("/score/edit", MetricsMiddleware(s.scoresHandler.HandleEdit, "score_edit"))
		r.Post("/score/delete", MetricsMiddleware(s.scoresHandler.HandleDelete, "score_delete"))
		r.Post("/identity/lookup", MetricsMiddleware(s.participantsHandler.HandleLookup, "identity_lookup"))
		r.Post("/attendance/mark", MetricsMiddleware(s.participantsHandler.HandleMark, "attendance_mark"))
		r.Post("/attendance/unmark", MetricsMiddleware(s.participantsHandler.HandleUnmark, "attendance_unmark"))
		r.Post("/chest-number/assign", MetricsMiddleware(s.participantsHandler.HandleAssignChestNumber, "chest_number"))
		r.Post("/schools", MetricsMiddleware(s.schoolsHandler.HandleCreate, "schools_create"))
		r.Post("/schools/delete", MetricsMiddleware(s.schoolsHandler.HandleDelete, "schools_delete"))
	})
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeBinary(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	if filename != "" {
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
