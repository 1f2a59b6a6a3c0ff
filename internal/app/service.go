// Package service composes the sportsmeet use cases behind the single
// dependency bundle the HTTP API and the admin CLI consume.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/okian/sportsmeet/internal/adapters/repository"
	"github.com/okian/sportsmeet/internal/app/attendance"
	"github.com/okian/sportsmeet/internal/app/catalog"
	"github.com/okian/sportsmeet/internal/app/identity"
	"github.com/okian/sportsmeet/internal/app/results"
	"github.com/okian/sportsmeet/internal/app/schools"
	"github.com/okian/sportsmeet/internal/domain/errs"
	"github.com/okian/sportsmeet/internal/domain/model"
	"github.com/okian/sportsmeet/internal/domain/scoreboard"
	"github.com/okian/sportsmeet/internal/domain/scoring"
	"github.com/okian/sportsmeet/pkg/logger"
	"github.com/okian/sportsmeet/pkg/metrics"
)

const tracerName = "github.com/okian/sportsmeet/internal/app"

// ErrNotStarted is returned by operations called before Start.
var ErrNotStarted = errors.New("service not started")

// Service implements the API dependencies for the sports meet.
type Service struct {
	mu sync.RWMutex

	// Storage
	store  repository.Store
	tables repository.Tables

	// Use cases
	scores     *repository.Scores
	recorder   *results.Recorder
	resolver   *identity.Resolver
	marker     *attendance.Marker
	catalog    *catalog.Catalog
	schools    *schools.Registry
	aggregator *scoreboard.Aggregator

	// Configuration
	maxBatchItems  int
	topSchools     int
	recentWinners  int
	fanOut         int
	tieBreak       scoreboard.TieBreak
	positionPoints map[string]int
	events         []model.CatalogEvent
	now            func() time.Time

	// State
	started   bool
	startedAt time.Time

	logger logger.Logger
	tracer trace.Tracer
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the document store. The in-memory store is used otherwise.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithTables sets the table names.
func WithTables(t repository.Tables) Option {
	return func(s *Service) {
		s.tables = t
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithClock overrides the timestamp source of every use case.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMaxBatchItems caps the items written by one score submission.
func WithMaxBatchItems(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxBatchItems = n
		}
	}
}

// WithAttendanceFanOut bounds the concurrent record writes of one attendance
// change.
func WithAttendanceFanOut(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.fanOut = n
		}
	}
}

// WithScoreboardLimits sizes the top schools and recent winners lists.
func WithScoreboardLimits(top, recent int) Option {
	return func(s *Service) {
		if top > 0 {
			s.topSchools = top
		}
		if recent > 0 {
			s.recentWinners = recent
		}
	}
}

// WithTieBreak selects how schools with equal points are ordered.
func WithTieBreak(policy string) Option {
	return func(s *Service) {
		s.tieBreak = scoreboard.TieBreak(policy)
	}
}

// WithPositionPoints sets the default points per finishing position.
func WithPositionPoints(points map[string]int) Option {
	return func(s *Service) {
		if len(points) > 0 {
			s.positionPoints = points
		}
	}
}

// WithEvents replaces the built-in event catalog.
func WithEvents(events []model.CatalogEvent) Option {
	return func(s *Service) {
		s.events = events
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		tables:        repository.DefaultTables(),
		maxBatchItems: repository.MaxBatchSize,
		topSchools:    5,
		recentWinners: 10,
		tieBreak:      scoreboard.TieBreakAlphabetical,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start wires the use cases over the configured store.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}

	s.logger.Info(ctx, "starting sportsmeet service...")

	table := scoring.NewTable()
	if len(s.positionPoints) > 0 {
		table = scoring.NewTable(scoring.WithPositionPointsFromConfig(s.positionPoints))
	}

	s.scores = repository.NewScores(s.store, s.tables.Scores)
	participants := repository.NewParticipants(s.store, s.tables.Participants)
	registrations := repository.NewRegistrations(s.store, s.tables.Registrations)

	s.catalog = catalog.New(registrations, catalog.WithEvents(s.events))
	s.recorder = results.NewRecorder(s.scores,
		results.WithClock(s.now),
		results.WithMaxItems(s.maxBatchItems),
		results.WithPoints(table),
		results.WithLogger(s.logger.Named("results")),
	)
	s.resolver = identity.New(participants, registrations, s.catalog, s.logger.Named("identity"))
	s.marker = attendance.New(s.resolver, participants, registrations,
		attendance.WithClock(s.now),
		attendance.WithFanOut(s.fanOut),
		attendance.WithLogger(s.logger.Named("attendance")),
	)
	s.schools = schools.New(repository.NewSchools(s.store, s.tables.Schools), s.scores, s.now, s.logger.Named("schools"))
	s.aggregator = scoreboard.New(
		scoreboard.WithScorer(table),
		scoreboard.WithTopSchools(s.topSchools),
		scoreboard.WithRecentWinners(s.recentWinners),
		scoreboard.WithTieBreak(s.tieBreak),
	)

	s.started = true
	s.startedAt = s.now()
	s.logger.Info(ctx, "sportsmeet service started",
		logger.String("driver", s.store.Driver()),
		logger.String("scoresTable", s.tables.Scores.Name),
		logger.Int("maxBatchItems", s.maxBatchItems),
		logger.String("tieBreak", string(s.tieBreak)),
	)
	return nil
}

// Stop releases the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.logger.Info(context.Background(), "stopping sportsmeet service...")
	if err := s.store.Close(); err != nil {
		s.logger.Warn(context.Background(), "store close failed", logger.Error(err))
	}
	s.started = false
	s.logger.Info(context.Background(), "sportsmeet service stopped")
}

func (s *Service) running(op string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return errs.WrapKind(op, errs.ErrStorage, ErrNotStarted)
	}
	return nil
}

// traced runs fn inside a span and logs failures that are not the caller's fault.
func traced[T any](ctx context.Context, s *Service, op string, fn func(context.Context) (T, error), attrs ...attribute.KeyValue) (T, error) {
	var zero T
	if err := s.running(op); err != nil {
		return zero, err
	}
	ctx, span := s.tracer.Start(ctx, op, trace.WithAttributes(attrs...))
	defer span.End()

	out, err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		if kind := errs.KindOf(err); kind != nil {
			span.SetAttributes(attribute.String("error.kind", kind.Error()))
		}
		if errs.IsCallerError(err) {
			span.SetStatus(codes.Error, "rejected")
		} else {
			span.SetStatus(codes.Error, err.Error())
			s.logger.Error(ctx, "operation failed", logger.String("op", op), logger.Error(err))
		}
	}
	return out, err
}

// SubmitScores records the results of one event.
func (s *Service) SubmitScores(ctx context.Context, in results.Submission) (results.SubmitResult, error) {
	return traced(ctx, s, "Service.SubmitScores", func(ctx context.Context) (results.SubmitResult, error) {
		return s.recorder.Submit(ctx, in)
	}, attribute.String("event.name", in.EventName), attribute.String("event.type", string(in.EventType)))
}

// EditWinner corrects a winner slot.
func (s *Service) EditWinner(ctx context.Context, in results.Edit) (model.ScoreRecord, error) {
	return traced(ctx, s, "Service.EditWinner", func(ctx context.Context) (model.ScoreRecord, error) {
		return s.recorder.Edit(ctx, in)
	}, attribute.String("event.id", in.EventID), attribute.String("slot.id", in.PositionID))
}

// DeleteWinner removes a winner slot whose details match.
func (s *Service) DeleteWinner(ctx context.Context, in results.Removal) error {
	_, err := traced(ctx, s, "Service.DeleteWinner", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.recorder.Delete(ctx, in)
	}, attribute.String("event.name", in.EventName), attribute.Int("position", in.Position))
	return err
}

// Scoreboard computes the standings from every score record.
func (s *Service) Scoreboard(ctx context.Context) (scoreboard.Board, error) {
	return traced(ctx, s, "Service.Scoreboard", func(ctx context.Context) (scoreboard.Board, error) {
		start := time.Now()
		records, err := s.scores.All(ctx)
		if err != nil {
			return scoreboard.Board{}, errs.Wrap("service.scoreboard", err)
		}
		board := s.aggregator.Compute(records)
		metrics.RecordScoreboard(float64(time.Since(start).Microseconds())/1000, board.Records, len(board.TotalsPerSchool))
		return board, nil
	})
}

// LookupParticipant resolves an identifier to a participant profile.
func (s *Service) LookupParticipant(ctx context.Context, identifier string) (identity.Profile, error) {
	return traced(ctx, s, "Service.LookupParticipant", func(ctx context.Context) (identity.Profile, error) {
		return s.resolver.Lookup(ctx, identifier)
	})
}

// MarkAttendance marks every record of a person present at an event.
func (s *Service) MarkAttendance(ctx context.Context, identifier, eventID string) (attendance.Result, error) {
	return traced(ctx, s, "Service.MarkAttendance", func(ctx context.Context) (attendance.Result, error) {
		return s.marker.Mark(ctx, identifier, eventID)
	}, attribute.String("event.id", eventID))
}

// UnmarkAttendance clears attendance the way MarkAttendance sets it.
func (s *Service) UnmarkAttendance(ctx context.Context, identifier, eventID string) (attendance.Result, error) {
	return traced(ctx, s, "Service.UnmarkAttendance", func(ctx context.Context) (attendance.Result, error) {
		return s.marker.Unmark(ctx, identifier, eventID)
	}, attribute.String("event.id", eventID))
}

// AssignChestNumber sets the chest number of one participant record.
func (s *Service) AssignChestNumber(ctx context.Context, clearID, chestNumber string) (model.Participant, error) {
	return traced(ctx, s, "Service.AssignChestNumber", func(ctx context.Context) (model.Participant, error) {
		return s.marker.AssignChestNumber(ctx, clearID, chestNumber)
	}, attribute.String("participant.clear_id", clearID))
}

// Registrants lists the people registered for an event.
func (s *Service) Registrants(ctx context.Context, eventID string) ([]attendance.Registrant, error) {
	return traced(ctx, s, "Service.Registrants", func(ctx context.Context) ([]attendance.Registrant, error) {
		return s.marker.Registrants(ctx, eventID)
	}, attribute.String("event.id", eventID))
}

// Events returns the event catalog.
func (s *Service) Events(ctx context.Context) ([]model.CatalogEvent, error) {
	return traced(ctx, s, "Service.Events", func(ctx context.Context) ([]model.CatalogEvent, error) {
		return s.catalog.Events(ctx)
	})
}

// CreateSchool adds a school.
func (s *Service) CreateSchool(ctx context.Context, name string) (model.School, error) {
	return traced(ctx, s, "Service.CreateSchool", func(ctx context.Context) (model.School, error) {
		return s.schools.Create(ctx, name)
	}, attribute.String("school.name", name))
}

// ListSchools returns every school sorted by name.
func (s *Service) ListSchools(ctx context.Context) ([]model.School, error) {
	return traced(ctx, s, "Service.ListSchools", func(ctx context.Context) ([]model.School, error) {
		return s.schools.List(ctx)
	})
}

// DeleteSchool removes a school no result references.
func (s *Service) DeleteSchool(ctx context.Context, name string) error {
	_, err := traced(ctx, s, "Service.DeleteSchool", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.schools.Delete(ctx, name)
	}, attribute.String("school.name", name))
	return err
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":       s.started,
		"maxBatchItems":    s.maxBatchItems,
		"topSchools":       s.topSchools,
		"recentWinners":    s.recentWinners,
		"attendanceFanOut": s.fanOut,
		"tieBreak":         string(s.tieBreak),
		"tables": map[string]string{
			"scores":        s.tables.Scores.Name,
			"participants":  s.tables.Participants.Name,
			"registrations": s.tables.Registrations.Name,
			"schools":       s.tables.Schools.Name,
		},
	}
	if s.started {
		stats["driver"] = s.store.Driver()
		stats["startedAt"] = s.startedAt.UTC().Format(time.RFC3339)
		stats["uptime"] = fmt.Sprint(s.now().Sub(s.startedAt).Round(time.Second))
	}
	return stats
}
