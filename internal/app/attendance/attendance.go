// Package attendance marks participants present at events and assigns
// chest numbers.
package attendance

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/sportsmeet/internal/adapters/repository"
	"github.com/okian/sportsmeet/internal/app/identity"
	"github.com/okian/sportsmeet/internal/domain/errs"
	"github.com/okian/sportsmeet/internal/domain/model"
	"github.com/okian/sportsmeet/pkg/logger"
	"github.com/okian/sportsmeet/pkg/metrics"
)

const defaultFanOut = 8

var chestNumberPattern = regexp.MustCompile(`^\d{3,4}$`)

// Resolver expands an identifier to every record of the person.
type Resolver interface {
	Resolve(ctx context.Context, identifier string) (identity.Identity, error)
}

// Registrations is the registration table surface used here.
type Registrations interface {
	ByEvent(ctx context.Context, eventID string) ([]model.Registration, error)
	SetAttendance(ctx context.Context, eventID, clearID string, attended bool, at time.Time) error
}

// Participants is the participant table surface used here.
type Participants interface {
	Get(ctx context.Context, clearID string) (model.Participant, error)
	SetChestNumber(ctx context.Context, clearID, chest string) (model.Participant, error)
}

// Result reports an attendance fan-out.
type Result struct {
	EventID      string   `json:"eventId"`
	Attended     bool     `json:"attendance"`
	UpdatedCount int      `json:"updatedCount"`
	FailedCount  int      `json:"failedCount"`
	Updated      []string `json:"updated"`
	Failed       []string `json:"failed,omitempty"`
}

// Registrant is one row of an event's registrant list.
type Registrant struct {
	ClearID            string    `json:"clearId"`
	FullName           string    `json:"fullName"`
	RegistrationNumber string    `json:"registrationNumber"`
	InstitutionalEmail string    `json:"institutionalEmail"`
	SchoolShort        string    `json:"schoolShort"`
	Attendance         bool      `json:"attendance"`
	ChestNumber        string    `json:"chestNumber"`
	Duplicates         int       `json:"duplicates"`
	MarkedAt           time.Time `json:"markedAt,omitzero"`
}

// Marker updates attendance and chest numbers.
type Marker struct {
	resolver      Resolver
	participants  Participants
	registrations Registrations
	fanOut        int
	now           func() time.Time
	log           logger.Logger
}

// Option configures a Marker.
type Option func(*Marker)

// WithFanOut bounds the concurrent writes of one request.
func WithFanOut(n int) Option {
	return func(m *Marker) {
		if n > 0 {
			m.fanOut = n
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(m *Marker) {
		if now != nil {
			m.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(m *Marker) {
		if l != nil {
			m.log = l
		}
	}
}

// New creates a Marker.
func New(r Resolver, p Participants, regs Registrations, opts ...Option) *Marker {
	m := &Marker{
		resolver:      r,
		participants:  p,
		registrations: regs,
		fanOut:        defaultFanOut,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		m.log = logger.Named("attendance")
	}
	return m
}

// Mark sets attendance on the event registration of every record of the
// person behind identifier.
func (m *Marker) Mark(ctx context.Context, identifier, eventID string) (Result, error) {
	return m.set(ctx, "attendance.mark", identifier, eventID, true)
}

// Unmark clears attendance the same way Mark sets it.
func (m *Marker) Unmark(ctx context.Context, identifier, eventID string) (Result, error) {
	return m.set(ctx, "attendance.unmark", identifier, eventID, false)
}

func (m *Marker) set(ctx context.Context, op, identifier, eventID string, attended bool) (Result, error) {
	eventID = strings.TrimSpace(eventID)
	if strings.TrimSpace(identifier) == "" || eventID == "" {
		return Result{}, errs.Validation(op, "identifier and eventId are required")
	}

	id, err := m.resolver.Resolve(ctx, identifier)
	if err != nil {
		return Result{}, err
	}

	var (
		mu       sync.Mutex
		res      = Result{EventID: eventID, Attended: attended}
		firstErr error
		at       = m.now().UTC()
	)
	g := new(errgroup.Group)
	g.SetLimit(m.fanOut)
	for _, clearID := range id.ClearIDs() {
		g.Go(func() error {
			err := m.registrations.SetAttendance(ctx, eventID, clearID, attended, at)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				res.Updated = append(res.Updated, clearID)
			case errors.Is(err, repository.ErrConditionFailed):
				// not registered for this event
			default:
				res.Failed = append(res.Failed, clearID)
				if firstErr == nil {
					firstErr = err
				}
				m.log.Warn(ctx, "attendance write failed",
					logger.String("event_id", eventID),
					logger.String("clear_id", clearID),
					logger.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()

	res.UpdatedCount = len(res.Updated)
	res.FailedCount = len(res.Failed)
	direction := "unmark"
	if attended {
		direction = "mark"
	}
	metrics.RecordAttendance(direction, res.UpdatedCount, res.FailedCount)

	switch {
	case res.UpdatedCount == 0 && res.FailedCount == 0:
		return res, errs.Newf(op, errs.ErrNotFound, "%s is not registered for event %s", identifier, eventID)
	case res.UpdatedCount == 0:
		return res, &errs.Error{Op: op, Kind: errs.ErrStorage,
			Msg: "attendance was not updated for any registration", Err: firstErr}
	}

	m.log.Info(ctx, "attendance updated",
		logger.String("event_id", eventID),
		logger.Bool("attended", attended),
		logger.Int("updated", res.UpdatedCount),
		logger.Int("failed", res.FailedCount))
	return res, nil
}

// AssignChestNumber sets the chest number of a single participant record.
// Duplicate records of the same person are left unchanged.
func (m *Marker) AssignChestNumber(ctx context.Context, clearID, chestNumber string) (p model.Participant, err error) {
	const op = "attendance.assign_chest_number"
	defer func() { metrics.RecordChestNumberAssignment(metrics.Outcome(err, errs.IsCallerError)) }()

	clearID = strings.TrimSpace(clearID)
	chestNumber = strings.TrimSpace(chestNumber)
	if clearID == "" {
		return model.Participant{}, errs.Validation(op, "clearId is required")
	}
	if !chestNumberPattern.MatchString(chestNumber) {
		return model.Participant{}, errs.Validation(op, "chest number must be 3 or 4 digits")
	}

	p, err = m.participants.SetChestNumber(ctx, clearID, chestNumber)
	if errors.Is(err, repository.ErrConditionFailed) || errors.Is(err, repository.ErrNotFound) {
		return model.Participant{}, errs.Newf(op, errs.ErrNotFound, "participant %s not found", clearID)
	}
	if err != nil {
		return model.Participant{}, errs.Wrap(op, err)
	}
	m.log.Info(ctx, "chest number assigned",
		logger.String("clear_id", clearID), logger.String("chest_number", chestNumber))
	return p, nil
}

// Registrants lists everyone registered for eventID with their attendance,
// chest number and how many other records the same person has.
func (m *Marker) Registrants(ctx context.Context, eventID string) ([]Registrant, error) {
	const op = "attendance.registrants"

	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return nil, errs.Validation(op, "eventId is required")
	}
	regs, err := m.registrations.ByEvent(ctx, eventID)
	if err != nil {
		return nil, errs.Wrap(op, err)
	}

	out := make([]Registrant, len(regs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.fanOut)
	for i, reg := range regs {
		g.Go(func() error {
			row := Registrant{
				ClearID:     reg.PlayerClearID,
				Attendance:  reg.Attendance,
				ChestNumber: reg.ChestNumber,
				MarkedAt:    reg.MarkedAt,
			}
			p, err := m.participants.Get(gctx, reg.PlayerClearID)
			switch {
			case errors.Is(err, repository.ErrNotFound):
				out[i] = row
				return nil
			case err != nil:
				return err
			}
			row.FullName = p.FullName
			row.RegistrationNumber = p.RegistrationNumber
			row.InstitutionalEmail = p.InstitutionalEmail
			row.SchoolShort = p.SchoolShort
			if row.ChestNumber == "" {
				row.ChestNumber = p.ChestNumber
			}
			id, err := m.resolver.Resolve(gctx, reg.PlayerClearID)
			if err != nil {
				return err
			}
			row.Duplicates = len(id.Records) - 1
			out[i] = row
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errs.Wrap(op, err)
	}
	return out, nil
}
