// Package scoring resolves the points a score record is worth.
package scoring

import (
	"strconv"
	"strings"

	"github.com/okian/sportsmeet/internal/domain/model"
)

// Default position points: 1st 5, 2nd 3, 3rd 1.
var defaultPositionPoints = map[int]int{1: 5, 2: 3, 3: 1} //nolint:gochecknoglobals // read-only table

// Option applies a configuration option to the Table.
type Option func(*Table)

// WithPositionPoints replaces the position table. Non-positive positions and
// negative points are ignored.
func WithPositionPoints(points map[int]int) Option {
	return func(t *Table) {
		t.positions = make(map[int]int, len(points))
		for pos, pts := range points {
			if pos > 0 && pts >= 0 {
				t.positions[pos] = pts
			}
		}
	}
}

// WithPositionPointsFromConfig reads a table keyed by position strings as
// found in configuration files.
func WithPositionPointsFromConfig(points map[string]int) Option {
	parsed := make(map[int]int, len(points))
	for k, v := range points {
		pos, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil {
			continue
		}
		parsed[pos] = v
	}
	return WithPositionPoints(parsed)
}

// Scorer resolves points for a score record.
type Scorer interface {
	Points(rec model.ScoreRecord) int
}

// Table is the position based Scorer.
type Table struct {
	positions map[int]int
}

// NewTable creates a Table with the default position points.
func NewTable(opts ...Option) *Table {
	t := &Table{positions: make(map[int]int, len(defaultPositionPoints))}
	for pos, pts := range defaultPositionPoints {
		t.positions[pos] = pts
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ForPosition returns the default points for a finishing position, 0 for
// positions outside the table.
func (t *Table) ForPosition(position int) int {
	return t.positions[position]
}

// Points returns explicit points when present (zero included). Otherwise
// individual records fall back to the position table and team records are
// worth nothing.
func (t *Table) Points(rec model.ScoreRecord) int {
	if rec.Points != nil {
		return *rec.Points
	}
	if rec.EventType.OrIndividual() == model.EventTeam {
		return 0
	}
	return t.ForPosition(rec.Position)
}
