package chart

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"CapIot.dashboard/internal/gauge"
)

const (
	svgBarWidth    = 800
	svgBarHeight   = 400
	svgGaugeWidth  = 320
	svgGaugeHeight = 320
)

// RenderBarSVG draws the daily consumption bars.
func RenderBarSVG(w io.Writer, labels []string, values []float64) error {
	if len(labels) != len(values) {
		return fmt.Errorf("bar chart: %d labels for %d values", len(labels), len(values))
	}

	fill := ParseColor(BarColor)
	bars := make([]gochart.Value, len(values))
	top := 0.0
	for i, v := range values {
		bars[i] = gochart.Value{
			Label: labels[i],
			Value: v,
			Style: gochart.Style{FillColor: fill, StrokeColor: fill},
		}
		top = math.Max(top, v)
	}
	if top <= 0 {
		top = 1
	}

	graph := gochart.BarChart{
		Title:      DailyDatasetLabel,
		Width:      svgBarWidth,
		Height:     svgBarHeight,
		BarWidth:   60,
		BarSpacing: 30,
		Bars:       bars,
		YAxis: gochart.YAxis{
			Range: &gochart.ContinuousRange{Min: 0, Max: top},
		},
	}
	if err := graph.Render(gochart.SVG, w); err != nil {
		return fmt.Errorf("render bar chart: %w", err)
	}
	return nil
}

// RenderGaugeSVG draws a gauge's segments as a donut. Empty arcs are
// skipped since go-chart drops zero values anyway.
func RenderGaugeSVG(w io.Writer, segments []gauge.Segment, actual float64) error {
	values := make([]gochart.Value, 0, len(segments))
	for _, s := range segments {
		if s.Value <= 0 {
			continue
		}
		color := ParseColor(s.Color)
		values = append(values, gochart.Value{
			Value: s.Value,
			Style: gochart.Style{FillColor: color, StrokeColor: color},
		})
	}
	if len(values) == 0 {
		return fmt.Errorf("gauge chart: no visible segments")
	}

	graph := gochart.DonutChart{
		Title:  GaugeTitle(actual),
		Width:  svgGaugeWidth,
		Height: svgGaugeHeight,
		Values: values,
	}
	if err := graph.Render(gochart.SVG, w); err != nil {
		return fmt.Errorf("render gauge chart: %w", err)
	}
	return nil
}

// ParseColor understands the CSS forms the dashboard uses: "red" and
// "rgba(r, g, b, a)". Anything else comes back opaque black.
func ParseColor(css string) drawing.Color {
	css = strings.TrimSpace(strings.ToLower(css))
	if css == "red" {
		return drawing.Color{R: 255, A: 255}
	}
	if !strings.HasPrefix(css, "rgba(") || !strings.HasSuffix(css, ")") {
		return drawing.Color{A: 255}
	}

	parts := strings.Split(strings.TrimSuffix(strings.TrimPrefix(css, "rgba("), ")"), ",")
	if len(parts) != 4 {
		return drawing.Color{A: 255}
	}
	channel := func(s string) uint8 {
		v, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return 0
		}
		return uint8(min(max(v, 0), 255))
	}
	alpha, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
	if err != nil {
		alpha = 1
	}
	return drawing.Color{
		R: channel(parts[0]),
		G: channel(parts[1]),
		B: channel(parts[2]),
		A: uint8(math.Round(math.Min(math.Max(alpha, 0), 1) * 255)),
	}
}
