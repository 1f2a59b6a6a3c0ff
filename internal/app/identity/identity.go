// Package identity resolves a participant identifier to every record of
// that person. Participants are imported from an external registration
// system and one person can hold several records.
package identity

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/okian/sportsmeet/internal/adapters/repository"
	"github.com/okian/sportsmeet/internal/domain/errs"
	"github.com/okian/sportsmeet/internal/domain/model"
	"github.com/okian/sportsmeet/pkg/logger"
	"github.com/okian/sportsmeet/pkg/metrics"
)

// Participants is the participant table query surface.
type Participants interface {
	Get(ctx context.Context, clearID string) (model.Participant, error)
	FindByEmail(ctx context.Context, email string) ([]model.Participant, error)
	FindByRegistrationNumber(ctx context.Context, reg string) ([]model.Participant, error)
}

// Registrations lists registrations of a set of participants.
type Registrations interface {
	ByParticipants(ctx context.Context, clearIDs []string) ([]model.Registration, error)
}

// EventResolver maps a registered event id to its catalog entry.
type EventResolver interface {
	Resolve(id string) model.CatalogEvent
}

// Identity is the resolved duplicate set of one person.
type Identity struct {
	// Canonical is the clearId match when there is one, else the earliest
	// created record.
	Canonical model.Participant
	// Records holds every matching record, Canonical included, ordered by
	// creation time then clearId.
	Records []model.Participant
}

// ClearIDs returns the ids of every record.
func (id Identity) ClearIDs() []string {
	out := make([]string, len(id.Records))
	for i, p := range id.Records {
		out[i] = p.ClearID
	}
	return out
}

// Duplicates returns every record except the canonical one.
func (id Identity) Duplicates() []model.Participant {
	out := make([]model.Participant, 0, len(id.Records))
	for _, p := range id.Records {
		if p.ClearID != id.Canonical.ClearID {
			out = append(out, p)
		}
	}
	return out
}

// Profile is the lookup view of a person.
type Profile struct {
	Participant      model.Participant    `json:"user"`
	Duplicates       []model.Participant  `json:"duplicates"`
	RegisteredEvents []model.CatalogEvent `json:"registeredEvents"`
	Registrations    []model.Registration `json:"registrations"`
}

// Resolver finds participants.
type Resolver struct {
	participants  Participants
	registrations Registrations
	events        EventResolver
	log           logger.Logger
}

// New creates a Resolver.
func New(p Participants, r Registrations, events EventResolver, l logger.Logger) *Resolver {
	if l == nil {
		l = logger.Named("identity")
	}
	return &Resolver{participants: p, registrations: r, events: events, log: l}
}

// Resolve returns every record of the person behind identifier. An exact
// clearId match pulls in records sharing its registration number or email;
// an identifier containing "@" is an email, compared case-insensitively;
// anything else is a registration number.
func (r *Resolver) Resolve(ctx context.Context, identifier string) (Identity, error) {
	const op = "identity.resolve"

	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return Identity{}, errs.Validation(op, "identifier is required")
	}

	found := make(map[string]model.Participant)
	add := func(ps []model.Participant) {
		for _, p := range ps {
			found[p.ClearID] = p
		}
	}

	direct, err := r.participants.Get(ctx, identifier)
	switch {
	case err == nil:
		add([]model.Participant{direct})
		if reg := strings.TrimSpace(direct.RegistrationNumber); reg != "" {
			same, err := r.participants.FindByRegistrationNumber(ctx, reg)
			if err != nil {
				return Identity{}, errs.Wrap(op, err)
			}
			add(same)
		}
		if email := strings.TrimSpace(direct.InstitutionalEmail); email != "" {
			same, err := r.participants.FindByEmail(ctx, email)
			if err != nil {
				return Identity{}, errs.Wrap(op, err)
			}
			add(same)
		}
	case errors.Is(err, repository.ErrNotFound):
		var matches []model.Participant
		if strings.Contains(identifier, "@") {
			matches, err = r.participants.FindByEmail(ctx, identifier)
		} else {
			matches, err = r.participants.FindByRegistrationNumber(ctx, identifier)
		}
		if err != nil {
			return Identity{}, errs.Wrap(op, err)
		}
		add(matches)
	default:
		return Identity{}, errs.Wrap(op, err)
	}

	if len(found) == 0 {
		return Identity{}, errs.Newf(op, errs.ErrNotFound, "no participant matches %q", identifier)
	}

	records := make([]model.Participant, 0, len(found))
	for _, p := range found {
		records = append(records, p)
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.Before(records[j].CreatedAt)
		}
		return records[i].ClearID < records[j].ClearID
	})

	id := Identity{Canonical: records[0], Records: records}
	if p, ok := found[identifier]; ok {
		id.Canonical = p
	}
	return id, nil
}

// Lookup resolves identifier and attaches the events every record of the
// person is registered for.
func (r *Resolver) Lookup(ctx context.Context, identifier string) (p Profile, err error) {
	const op = "identity.lookup"
	defer func() { metrics.RecordIdentityLookup(metrics.Outcome(err, errs.IsCallerError)) }()

	id, err := r.Resolve(ctx, identifier)
	if err != nil {
		return Profile{}, err
	}
	regs, err := r.registrations.ByParticipants(ctx, id.ClearIDs())
	if err != nil {
		return Profile{}, errs.Wrap(op, err)
	}
	sort.Slice(regs, func(i, j int) bool {
		if regs[i].EventID != regs[j].EventID {
			return regs[i].EventID < regs[j].EventID
		}
		return regs[i].PlayerClearID < regs[j].PlayerClearID
	})

	p = Profile{
		Participant:      id.Canonical,
		Duplicates:       id.Duplicates(),
		RegisteredEvents: make([]model.CatalogEvent, 0, len(regs)),
		Registrations:    regs,
	}
	seen := make(map[string]bool, len(regs))
	for _, reg := range regs {
		if seen[reg.EventID] {
			continue
		}
		seen[reg.EventID] = true
		p.RegisteredEvents = append(p.RegisteredEvents, r.events.Resolve(reg.EventID))
	}

	r.log.Debug(ctx, "participant resolved",
		logger.String("clear_id", id.Canonical.ClearID),
		logger.Int("records", len(id.Records)),
		logger.Int("events", len(p.RegisteredEvents)))
	return p, nil
}
