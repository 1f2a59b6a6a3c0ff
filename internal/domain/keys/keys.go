// Package keys derives the deterministic identifiers used to address score,
// school and slot records. Everything here is pure.
package keys

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Prefixes and fixed slot ids.
const (
	EventPrefix    = "EVENT#"
	SchoolPrefix   = "SCHOOL#"
	PositionPrefix = "POS#"
	TeamPrefix     = "TEAM#"
	MetadataSlot   = "METADATA"
)

// SlotKind classifies a score sort key.
type SlotKind int

const (
	SlotUnknown SlotKind = iota
	SlotMetadata
	SlotPosition
	SlotTeam
)

func (k SlotKind) String() string {
	switch k {
	case SlotMetadata:
		return "metadata"
	case SlotPosition:
		return "position"
	case SlotTeam:
		return "team"
	default:
		return "unknown"
	}
}

// Normalize uppercases the trimmed name, drops every character other than
// A-Z, 0-9 and whitespace, and replaces each whitespace run with "_".
// Names that differ only in dropped characters normalize identically.
func Normalize(name string) string {
	upper := strings.ToUpper(strings.TrimSpace(name))

	var b strings.Builder
	b.Grow(len(upper))
	inSpace := false
	for _, r := range upper {
		switch {
		case unicode.IsSpace(r):
			if !inSpace {
				b.WriteByte('_')
			}
			inSpace = true
		case (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			inSpace = false
		}
	}
	return b.String()
}

// EventID derives the partition key of an event.
func EventID(name string) string { return EventPrefix + Normalize(name) }

// SchoolID derives the key of a school record.
func SchoolID(name string) string { return SchoolPrefix + Normalize(name) }

// PositionSlot is the bare slot id for a finishing position.
func PositionSlot(position int) string {
	return fmt.Sprintf("%s%02d", PositionPrefix, position)
}

// PositionSlotWithSuffix returns the bare slot for suffix 0 and
// POS#nn_k otherwise.
func PositionSlotWithSuffix(position, suffix int) string {
	if suffix == 0 {
		return PositionSlot(position)
	}
	return fmt.Sprintf("%s_%d", PositionSlot(position), suffix)
}

// TeamSlot is the slot id of the n-th team entry.
func TeamSlot(n int) string {
	return fmt.Sprintf("%s%02d", TeamPrefix, n)
}

// Slot is a parsed score sort key.
type Slot struct {
	Kind SlotKind
	// Number is the position for position slots and the team number for team
	// slots.
	Number int
	// Suffix is the tie suffix of a position slot, 0 for the bare slot.
	Suffix int
}

// ParseSlot decodes a score sort key. Malformed keys parse as SlotUnknown.
func ParseSlot(id string) Slot {
	switch {
	case id == MetadataSlot:
		return Slot{Kind: SlotMetadata}
	case strings.HasPrefix(id, PositionPrefix):
		rest := strings.TrimPrefix(id, PositionPrefix)
		num, suffix, hasSuffix := strings.Cut(rest, "_")
		p, err := strconv.Atoi(num)
		if err != nil || p < 0 {
			return Slot{}
		}
		s := 0
		if hasSuffix {
			s, err = strconv.Atoi(suffix)
			if err != nil || s <= 0 {
				return Slot{}
			}
		}
		return Slot{Kind: SlotPosition, Number: p, Suffix: s}
	case strings.HasPrefix(id, TeamPrefix):
		n, err := strconv.Atoi(strings.TrimPrefix(id, TeamPrefix))
		if err != nil || n < 0 {
			return Slot{}
		}
		return Slot{Kind: SlotTeam, Number: n}
	default:
		return Slot{}
	}
}

// NextFreeSlot returns the lowest integer >= floor that is not in used.
func NextFreeSlot(used map[int]bool, floor int) int {
	n := floor
	for used[n] {
		n++
	}
	return n
}
