// Package report renders the scoreboard as a spreadsheet and a chart.
package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/okian/sportsmeet/internal/domain/scoreboard"
)

// Sheet names of the scoreboard workbook.
const (
	SheetTotals  = "Totals"
	SheetByEvent = "Wins by Event"
	SheetRecent  = "Recent Winners"
)

// Workbook renders board as an xlsx file.
func Workbook(board scoreboard.Board) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), SheetTotals); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetByEvent, SheetRecent} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("add sheet %s: %w", name, err)
		}
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}

	totals := Standings(board)
	rows := make([][]any, 0, len(totals))
	for i, t := range totals {
		rows = append(rows, []any{i + 1, t.School, t.TotalPoints, wins(t)})
	}
	if err := writeSheet(f, SheetTotals, bold, []any{"Rank", "School", "Total Points", "Wins"}, rows); err != nil {
		return nil, err
	}

	events := make([]string, 0, len(board.WinsByEventBySchool))
	for e := range board.WinsByEventBySchool {
		events = append(events, e)
	}
	sort.Strings(events)
	rows = rows[:0]
	for _, e := range events {
		bySchool := board.WinsByEventBySchool[e]
		names := make([]string, 0, len(bySchool))
		for s := range bySchool {
			names = append(names, s)
		}
		sort.Strings(names)
		for _, s := range names {
			rows = append(rows, []any{e, s, bySchool[s]})
		}
	}
	if err := writeSheet(f, SheetByEvent, bold, []any{"Event", "School", "Wins"}, rows); err != nil {
		return nil, err
	}

	rows = rows[:0]
	for _, w := range board.RecentWinners {
		rows = append(rows, []any{w.RecordedAt.UTC().Format(time.RFC3339), w.EventName, w.Label, w.Name, w.School, w.Points})
	}
	if err := writeSheet(f, SheetRecent, bold, []any{"Recorded At", "Event", "Place", "Name", "School", "Points"}, rows); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// Standings returns every school ordered by points, then name.
func Standings(board scoreboard.Board) []scoreboard.SchoolTotal {
	out := make([]scoreboard.SchoolTotal, 0, len(board.TotalsPerSchool))
	for _, t := range board.TotalsPerSchool {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalPoints != out[j].TotalPoints {
			return out[i].TotalPoints > out[j].TotalPoints
		}
		return out[i].School < out[j].School
	})
	return out
}

func wins(t scoreboard.SchoolTotal) int {
	n := 0
	for _, w := range t.Wins {
		n += w
	}
	return n
}

func writeSheet(f *excelize.File, sheet string, headerStyle int, header []any, rows [][]any) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("%s header: %w", sheet, err)
	}
	if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
		return fmt.Errorf("%s header style: %w", sheet, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("%s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}
