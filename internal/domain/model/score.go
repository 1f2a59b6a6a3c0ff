package model

import "time"

// ScoreRecord is one slot of an event's result partition: a winner, a team
// entry or the METADATA marker.
type ScoreRecord struct {
	EventID     string    `json:"eventId"`
	SlotID      string    `json:"slotId"`
	EventName   string    `json:"eventName"`
	EventType   EventType `json:"eventType,omitempty"`
	Position    int       `json:"position,omitempty"`
	ChestNo     string    `json:"chestNo,omitempty"`
	StudentName string    `json:"studentName,omitempty"`
	TeamName    string    `json:"teamName,omitempty"`
	SchoolName  string    `json:"schoolName,omitempty"`
	// Points is nil when the submitter left points to the position table.
	Points     *int      `json:"points,omitempty"`
	RecordedAt time.Time `json:"recordedAt"`

	TotalWinnersRecorded int `json:"totalWinnersRecorded,omitempty"`
}

// School is a participating institution.
type School struct {
	SchoolID   string    `json:"schoolId"`
	SchoolName string    `json:"schoolName"`
	CreatedAt  time.Time `json:"createdAt"`
}
