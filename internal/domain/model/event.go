// Package model contains domain models passed between layers.
package model

import "time"

// EventType distinguishes individual results from team results.
type EventType string

const (
	EventIndividual EventType = "individual"
	EventTeam       EventType = "team"
)

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool { return t == EventIndividual || t == EventTeam }

// OrIndividual treats an empty type as individual, the convention for
// records written before event types existed.
func (t EventType) OrIndividual() EventType {
	if t == "" {
		return EventIndividual
	}
	return t
}

// Event categories of the catalog.
const (
	CategoryTrack   = "track"
	CategoryThrow   = "throw"
	CategoryJump    = "jump"
	CategoryTeam    = "team"
	CategoryUnknown = "unknown"
)

// CatalogEvent is an entry of the event catalog.
type CatalogEvent struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// Registration links a participant to an event.
type Registration struct {
	EventID       string    `json:"eventId"`
	PlayerClearID string    `json:"playerClearId"`
	EventName     string    `json:"eventName,omitempty"`
	Category      string    `json:"category,omitempty"`
	Attendance    bool      `json:"attendance"`
	ChestNumber   string    `json:"chestNumber,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
	MarkedAt      time.Time `json:"markedAt,omitzero"`
}
