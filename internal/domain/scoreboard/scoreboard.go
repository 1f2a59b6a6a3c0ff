// Package scoreboard aggregates score records into standings.
//
// The board is a pure read model: it is recomputed from the full record set
// on every call and never stored.
package scoreboard

import (
	"fmt"
	"sort"
	"time"

	"github.com/okian/sportsmeet/internal/domain/keys"
	"github.com/okian/sportsmeet/internal/domain/model"
	"github.com/okian/sportsmeet/internal/domain/scoring"
)

// TieBreak orders schools with equal points.
type TieBreak string

const (
	// TieBreakAlphabetical orders tied schools by name.
	TieBreakAlphabetical TieBreak = "alphabetical"
	// TieBreakFirstSeen keeps tied schools in the order their first record appeared.
	TieBreakFirstSeen TieBreak = "first_seen"
)

const (
	defaultTopSchools    = 5
	defaultRecentWinners = 10
)

// SchoolTotal is the accumulated result of one school.
type SchoolTotal struct {
	School      string         `json:"school"`
	TotalPoints int            `json:"totalPoints"`
	Wins        map[string]int `json:"wins"`
}

// Winner is one entry of the recent winners list.
type Winner struct {
	EventID    string          `json:"eventId"`
	EventName  string          `json:"eventName"`
	EventType  model.EventType `json:"eventType"`
	SlotID     string          `json:"slotId"`
	Position   int             `json:"position,omitempty"`
	Name       string          `json:"name"`
	ChestNo    string          `json:"chestNo,omitempty"`
	School     string          `json:"school"`
	Points     int             `json:"points"`
	Label      string          `json:"label"`
	RecordedAt time.Time       `json:"recordedAt"`
}

// Board is the computed scoreboard.
type Board struct {
	TotalsPerSchool     map[string]SchoolTotal    `json:"totalsPerSchool"`
	TopSchools          []SchoolTotal             `json:"topSchools"`
	RecentWinners       []Winner                  `json:"recentWinners"`
	WinsByEventBySchool map[string]map[string]int `json:"winsByEventBySchool"`
	Records             int                       `json:"records"`
}

// Aggregator computes boards.
type Aggregator struct {
	scorer   scoring.Scorer
	top      int
	recent   int
	tieBreak TieBreak
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithScorer sets how points are resolved.
func WithScorer(s scoring.Scorer) Option {
	return func(a *Aggregator) {
		if s != nil {
			a.scorer = s
		}
	}
}

// WithTopSchools limits the top schools list.
func WithTopSchools(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.top = n
		}
	}
}

// WithRecentWinners limits the recent winners list.
func WithRecentWinners(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.recent = n
		}
	}
}

// WithTieBreak selects the tie-break policy. Unknown values keep the default.
func WithTieBreak(tb TieBreak) Option {
	return func(a *Aggregator) {
		if tb == TieBreakAlphabetical || tb == TieBreakFirstSeen {
			a.tieBreak = tb
		}
	}
}

// New creates an Aggregator with the default position table, five top
// schools, ten recent winners and alphabetical tie-breaks.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{
		scorer:   scoring.NewTable(),
		top:      defaultTopSchools,
		recent:   defaultRecentWinners,
		tieBreak: TieBreakAlphabetical,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type scored struct {
	rec    model.ScoreRecord
	points int
}

// Compute builds the board from every score record. Metadata and
// unrecognised slots are skipped.
func (a *Aggregator) Compute(records []model.ScoreRecord) Board {
	board := Board{
		TotalsPerSchool:     make(map[string]SchoolTotal),
		WinsByEventBySchool: make(map[string]map[string]int),
	}
	totals := make(map[string]*SchoolTotal)
	var order []string
	results := make([]scored, 0, len(records))

	for _, rec := range records {
		kind := keys.ParseSlot(rec.SlotID).Kind
		if kind != keys.SlotPosition && kind != keys.SlotTeam {
			continue
		}
		pts := a.scorer.Points(rec)
		results = append(results, scored{rec: rec, points: pts})

		event := eventLabel(rec)
		t, ok := totals[rec.SchoolName]
		if !ok {
			t = &SchoolTotal{School: rec.SchoolName, Wins: make(map[string]int)}
			totals[rec.SchoolName] = t
			order = append(order, rec.SchoolName)
		}
		t.TotalPoints += pts
		t.Wins[event]++

		byEvent, ok := board.WinsByEventBySchool[event]
		if !ok {
			byEvent = make(map[string]int)
			board.WinsByEventBySchool[event] = byEvent
		}
		byEvent[rec.SchoolName]++
	}
	board.Records = len(results)

	ranked := make([]SchoolTotal, 0, len(order))
	for _, school := range order {
		board.TotalsPerSchool[school] = *totals[school]
		ranked = append(ranked, *totals[school])
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].TotalPoints != ranked[j].TotalPoints {
			return ranked[i].TotalPoints > ranked[j].TotalPoints
		}
		if a.tieBreak == TieBreakFirstSeen {
			return false
		}
		return ranked[i].School < ranked[j].School
	})
	board.TopSchools = ranked[:min(a.top, len(ranked))]

	sort.SliceStable(results, func(i, j int) bool {
		ri, rj := results[i].rec, results[j].rec
		if !ri.RecordedAt.Equal(rj.RecordedAt) {
			return ri.RecordedAt.After(rj.RecordedAt)
		}
		if ri.EventID != rj.EventID {
			return ri.EventID < rj.EventID
		}
		return ri.SlotID < rj.SlotID
	})
	results = results[:min(a.recent, len(results))]
	board.RecentWinners = make([]Winner, 0, len(results))
	for _, s := range results {
		board.RecentWinners = append(board.RecentWinners, winnerOf(s))
	}
	return board
}

func eventLabel(rec model.ScoreRecord) string {
	if rec.EventName != "" {
		return rec.EventName
	}
	return rec.EventID
}

func winnerOf(s scored) Winner {
	rec := s.rec
	w := Winner{
		EventID:    rec.EventID,
		EventName:  eventLabel(rec),
		EventType:  rec.EventType.OrIndividual(),
		SlotID:     rec.SlotID,
		School:     rec.SchoolName,
		Points:     s.points,
		RecordedAt: rec.RecordedAt,
	}
	if w.EventType == model.EventTeam {
		w.Name = rec.TeamName
	} else {
		w.Name = rec.StudentName
		w.ChestNo = rec.ChestNo
		w.Position = rec.Position
	}
	w.Label = Label(w.EventType, w.Position, w.Points)
	return w
}

// Label renders the placing badge shown next to a winner.
func Label(t model.EventType, position, points int) string {
	if t == model.EventTeam {
		return fmt.Sprintf("🏆 Team (%d pts)", points)
	}
	switch position {
	case 1:
		return "🥇 1st Place"
	case 2:
		return "🥈 2nd Place"
	case 3:
		return "🥉 3rd Place"
	default:
		return fmt.Sprintf("🏅 %s Place", Ordinal(position))
	}
}

// Ordinal formats n as 1st, 2nd, 3rd, 4th, 11th, 21st...
func Ordinal(n int) string {
	suffix := "th"
	switch n % 100 {
	case 11, 12, 13:
	default:
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return fmt.Sprintf("%d%s", n, suffix)
}
