package report

import (
	"bytes"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/okian/sportsmeet/internal/domain/scoreboard"
)

// NoDataMessage is drawn when no school has points yet.
const NoDataMessage = "No results recorded yet"

// Palette colours the chart.
type Palette struct {
	Background drawing.Color
	Bar        drawing.Color
	Text       drawing.Color
}

// DefaultPalette is a light theme with gold bars.
func DefaultPalette() Palette {
	return Palette{
		Background: drawing.ColorWhite,
		Bar:        drawing.Color{R: 212, G: 160, B: 23, A: 255},
		Text:       drawing.Color{R: 33, G: 37, B: 41, A: 255},
	}
}

// TopSchoolsChart renders the top schools as a PNG bar chart.
func TopSchoolsChart(board scoreboard.Board, palette Palette) ([]byte, error) {
	maxPoints := 0
	for _, s := range board.TopSchools {
		maxPoints = max(maxPoints, s.TotalPoints)
	}
	if len(board.TopSchools) == 0 || maxPoints <= 0 {
		return renderNoData(palette)
	}

	bars := make([]chart.Value, len(board.TopSchools))
	for i, s := range board.TopSchools {
		bars[i] = chart.Value{
			Label: fmt.Sprintf("%s (%d)", s.School, s.TotalPoints),
			Value: float64(s.TotalPoints),
			Style: chart.Style{FillColor: palette.Bar, StrokeColor: palette.Bar},
		}
	}

	graph := chart.BarChart{
		Title:      "Top Schools",
		TitleStyle: chart.Style{FontColor: palette.Text},
		Width:      800,
		Height:     400,
		BarWidth:   80,
		Background: chart.Style{
			FillColor: palette.Background,
			Padding:   chart.Box{Top: 40},
		},
		Canvas: chart.Style{FillColor: palette.Background},
		XAxis:  chart.Style{FontColor: palette.Text},
		YAxis: chart.YAxis{
			Style: chart.Style{FontColor: palette.Text},
			Range: &chart.ContinuousRange{Min: 0, Max: float64(maxPoints) * 1.1},
		},
		Bars: bars,
	}

	buffer := bytes.NewBuffer(nil)
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}
	return buffer.Bytes(), nil
}

func renderNoData(palette Palette) ([]byte, error) {
	const (
		width  = 400
		height = 200
	)

	r, err := chart.PNG(width, height)
	if err != nil {
		return nil, err
	}
	font, err := chart.GetDefaultFont()
	if err != nil {
		return nil, err
	}

	r.SetFillColor(palette.Background)
	r.MoveTo(0, 0)
	r.LineTo(width, 0)
	r.LineTo(width, height)
	r.LineTo(0, height)
	r.Close()
	r.Fill()

	r.SetFont(font)
	r.SetFontColor(palette.Text)
	r.SetFontSize(12.0)
	tb := r.MeasureText(NoDataMessage)
	r.Text(NoDataMessage, (width-tb.Width())/2, (height+tb.Height())/2)

	buffer := bytes.NewBuffer(nil)
	if err := r.Save(buffer); err != nil {
		return nil, fmt.Errorf("render placeholder: %w", err)
	}
	return buffer.Bytes(), nil
}
