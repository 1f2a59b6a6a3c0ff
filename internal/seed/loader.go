package seed

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/sportsmeet/internal/domain/errs"
	"github.com/okian/sportsmeet/internal/domain/model"
	"github.com/okian/sportsmeet/pkg/logger"
)

// DefaultWorkers bounds concurrent writes during a load.
const DefaultWorkers = 8

// ParticipantWriter stores participant records.
type ParticipantWriter interface {
	Put(ctx context.Context, p model.Participant) error
}

// RegistrationWriter stores event registrations.
type RegistrationWriter interface {
	Put(ctx context.Context, r model.Registration) error
}

// SchoolCreator registers a school by display name.
type SchoolCreator interface {
	Create(ctx context.Context, name string) (model.School, error)
}

// EventLookup resolves catalog metadata for registrations that omit it.
type EventLookup interface {
	Lookup(id string) (model.CatalogEvent, bool)
}

// Report counts what a load wrote.
type Report struct {
	Schools        int `json:"schools"`
	SchoolsSkipped int `json:"schoolsSkipped"`
	Participants   int `json:"participants"`
	Registrations  int `json:"registrations"`
}

// Loader writes a seed file into the tables.
type Loader struct {
	schools       SchoolCreator
	participants  ParticipantWriter
	registrations RegistrationWriter
	events        EventLookup
	workers       int
	now           func() time.Time
	log           logger.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithWorkers sets the write concurrency.
func WithWorkers(n int) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.workers = n
		}
	}
}

// WithEventLookup fills missing event names and categories from a catalog.
func WithEventLookup(e EventLookup) LoaderOption {
	return func(l *Loader) { l.events = e }
}

// WithClock overrides the timestamp source for records without one.
func WithClock(now func() time.Time) LoaderOption {
	return func(l *Loader) {
		if now != nil {
			l.now = now
		}
	}
}

// WithLogger sets the loader logger.
func WithLogger(log logger.Logger) LoaderOption {
	return func(l *Loader) {
		if log != nil {
			l.log = log
		}
	}
}

// NewLoader creates a Loader.
func NewLoader(schools SchoolCreator, participants ParticipantWriter, registrations RegistrationWriter, opts ...LoaderOption) *Loader {
	l := &Loader{
		schools:       schools,
		participants:  participants,
		registrations: registrations,
		workers:       DefaultWorkers,
		now:           time.Now,
		log:           logger.Named("seed"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load writes schools first, then participants, then registrations. Schools
// that already exist are skipped. The first write error stops the load.
func (l *Loader) Load(ctx context.Context, f File) (Report, error) {
	var rep Report
	if f.Empty() {
		return rep, ErrEmptyFile
	}
	start := time.Now()

	for _, name := range f.Schools {
		_, err := l.schools.Create(ctx, name)
		switch {
		case errors.Is(err, errs.ErrConflict):
			rep.SchoolsSkipped++
		case err != nil:
			return rep, fmt.Errorf("seed school %q: %w", name, err)
		default:
			rep.Schools++
		}
	}

	ids := make(map[int]string, len(f.Participants))
	for i, p := range f.Participants {
		if p.ClearID == "" {
			ids[i] = uuid.NewString()
		}
	}

	var written atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)
	for i, p := range f.Participants {
		g.Go(func() error {
			rec := l.participant(p)
			if id, ok := ids[i]; ok {
				rec.ClearID = id
			}
			if err := l.participants.Put(gctx, rec); err != nil {
				return fmt.Errorf("seed participant %s: %w", rec.ClearID, err)
			}
			written.Add(1)
			return nil
		})
	}
	err := g.Wait()
	rep.Participants = int(written.Load())
	if err != nil {
		return rep, err
	}

	written.Store(0)
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(l.workers)
	for _, r := range f.Registrations {
		g.Go(func() error {
			if r.EventID == "" || r.ClearID == "" {
				return errs.Validation("seed.load", "registration needs eventId and clearId")
			}
			if err := l.registrations.Put(gctx, l.registration(r)); err != nil {
				return fmt.Errorf("seed registration %s/%s: %w", r.EventID, r.ClearID, err)
			}
			written.Add(1)
			return nil
		})
	}
	err = g.Wait()
	rep.Registrations = int(written.Load())
	if err != nil {
		return rep, err
	}

	l.log.Info(ctx, "seed loaded",
		logger.Int("schools", rep.Schools),
		logger.Int("schools_skipped", rep.SchoolsSkipped),
		logger.Int("participants", rep.Participants),
		logger.Int("registrations", rep.Registrations),
		logger.String("took", time.Since(start).String()))
	return rep, nil
}

func (l *Loader) participant(p Participant) model.Participant {
	created := p.CreatedAt
	if created.IsZero() {
		created = l.now()
	}
	return model.Participant{
		ClearID:            p.ClearID,
		FullName:           p.FullName,
		RegistrationNumber: p.RegistrationNumber,
		InstitutionalEmail: p.InstitutionalEmail,
		SchoolShort:        p.SchoolShort,
		ClassSection:       p.ClassSection,
		DepartmentShort:    p.DepartmentShort,
		Gender:             p.Gender,
		ChestNumber:        p.ChestNumber,
		CreatedAt:          created.UTC(),
	}
}

func (l *Loader) registration(r Registration) model.Registration {
	name, category := r.EventName, r.Category
	if l.events != nil {
		if e, ok := l.events.Lookup(r.EventID); ok {
			if name == "" {
				name = e.Name
			}
			if category == "" {
				category = e.Category
			}
		}
	}
	now := l.now().UTC()
	return model.Registration{
		EventID:       r.EventID,
		PlayerClearID: r.ClearID,
		EventName:     name,
		Category:      category,
		Attendance:    r.Attendance,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
