// Package catalog lists the events participants can register for.
package catalog

import (
	"context"
	"sort"
	"strings"

	"github.com/okian/sportsmeet/internal/domain/errs"
	"github.com/okian/sportsmeet/internal/domain/model"
)

// UnknownEventName is reported for registrations whose event id is not in the catalog.
const UnknownEventName = "Unknown Event"

// Default returns the built-in event list.
func Default() []model.CatalogEvent {
	return []model.CatalogEvent{
		{ID: "SIDI01", Name: "100m", Category: model.CategoryTrack},
		{ID: "SIDI02", Name: "200m", Category: model.CategoryTrack},
		{ID: "SIDI03", Name: "400m", Category: model.CategoryTrack},
		{ID: "SIDI04", Name: "800m", Category: model.CategoryTrack},
		{ID: "SIDI05", Name: "1500m", Category: model.CategoryTrack},
		{ID: "SIDI06", Name: "3000m", Category: model.CategoryTrack},
		{ID: "SIDI07", Name: "Shot Put", Category: model.CategoryThrow},
		{ID: "SIDI08", Name: "Discus Throw", Category: model.CategoryThrow},
		{ID: "SIDI09", Name: "Javelin Throw", Category: model.CategoryThrow},
		{ID: "SIDI010", Name: "Long Jump", Category: model.CategoryJump},
	}
}

// RegistrationLister is the registration query the catalog derives events from.
type RegistrationLister interface {
	All(ctx context.Context) ([]model.Registration, error)
}

// Catalog merges the static list with events seen in registrations.
type Catalog struct {
	static []model.CatalogEvent
	byID   map[string]model.CatalogEvent
	regs   RegistrationLister
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithEvents replaces the built-in list. An empty list keeps the default.
func WithEvents(events []model.CatalogEvent) Option {
	return func(c *Catalog) {
		if len(events) > 0 {
			c.static = append([]model.CatalogEvent(nil), events...)
		}
	}
}

// New creates a Catalog. regs may be nil, in which case only the static
// list is served.
func New(regs RegistrationLister, opts ...Option) *Catalog {
	c := &Catalog{static: Default(), regs: regs}
	for _, opt := range opts {
		opt(c)
	}
	c.byID = make(map[string]model.CatalogEvent, len(c.static))
	for i, e := range c.static {
		if e.Category == "" {
			e.Category = model.CategoryUnknown
			c.static[i] = e
		}
		if _, dup := c.byID[e.ID]; !dup {
			c.byID[e.ID] = e
		}
	}
	return c
}

// Lookup finds an event of the static list.
func (c *Catalog) Lookup(id string) (model.CatalogEvent, bool) {
	e, ok := c.byID[strings.TrimSpace(id)]
	return e, ok
}

// Resolve returns the catalog entry for id, or the unknown placeholder.
func (c *Catalog) Resolve(id string) model.CatalogEvent {
	if e, ok := c.Lookup(id); ok {
		return e
	}
	return model.CatalogEvent{ID: id, Name: UnknownEventName, Category: model.CategoryUnknown}
}

// Events returns the static list in its configured order followed by events
// that only appear in registrations, sorted by id.
func (c *Catalog) Events(ctx context.Context) ([]model.CatalogEvent, error) {
	const op = "catalog.events"

	out := make([]model.CatalogEvent, 0, len(c.byID))
	seen := make(map[string]bool, len(c.byID))
	for _, e := range c.static {
		if seen[e.ID] {
			continue
		}
		seen[e.ID] = true
		out = append(out, e)
	}
	if c.regs == nil {
		return out, nil
	}

	regs, err := c.regs.All(ctx)
	if err != nil {
		return nil, errs.Wrap(op, err)
	}
	var derived []model.CatalogEvent
	for _, r := range regs {
		if r.EventID == "" || seen[r.EventID] {
			continue
		}
		seen[r.EventID] = true
		e := model.CatalogEvent{ID: r.EventID, Name: r.EventName, Category: r.Category}
		if e.Name == "" {
			e.Name = r.EventID
		}
		if e.Category == "" {
			e.Category = model.CategoryUnknown
		}
		derived = append(derived, e)
	}
	sort.Slice(derived, func(i, j int) bool { return derived[i].ID < derived[j].ID })
	return append(out, derived...), nil
}
