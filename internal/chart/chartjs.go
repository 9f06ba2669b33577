// Package chart prepares datasets for the charting libraries: Chart.js
// configurations for the browser canvases and SVG renderings via go-chart.
package chart

import (
	"fmt"
	"time"

	"CapIot.dashboard/internal/gauge"
)

const (
	TypeBar      = "bar"
	TypeDoughnut = "doughnut"

	DailyDatasetLabel = "Daily consumption in liters"
	BarColor          = "red"
)

type Config struct {
	Type    string  `json:"type"`
	Data    Data    `json:"data"`
	Options Options `json:"options"`
}

type Data struct {
	Labels   []string  `json:"labels,omitempty"`
	Datasets []Dataset `json:"datasets"`
}

type Dataset struct {
	Label           string    `json:"label,omitempty"`
	Data            []float64 `json:"data"`
	BackgroundColor []string  `json:"backgroundColor"`
}

// Options only carries what the dashboard sets. Events is always an empty
// list so charts ignore pointer interaction.
type Options struct {
	Events              []string `json:"events"`
	MaintainAspectRatio *bool    `json:"maintainAspectRatio,omitempty"`
	Rotation            *float64 `json:"rotation,omitempty"`
	BorderWidth         *float64 `json:"borderWidth,omitempty"`
	Plugins             *Plugins `json:"plugins,omitempty"`
}

type Plugins struct {
	Title Title `json:"title"`
}

type Title struct {
	Display bool   `json:"display"`
	Text    string `json:"text"`
}

// BarConfig builds the daily consumption bar chart.
func BarConfig(labels []string, values []float64) Config {
	colors := make([]string, len(values))
	for i := range colors {
		colors[i] = BarColor
	}
	maintainAspectRatio := false
	return Config{
		Type: TypeBar,
		Data: Data{
			Labels: labels,
			Datasets: []Dataset{{
				Label:           DailyDatasetLabel,
				Data:            values,
				BackgroundColor: colors,
			}},
		},
		Options: Options{
			Events:              []string{},
			MaintainAspectRatio: &maintainAspectRatio,
		},
	}
}

// DoughnutConfig builds a half-turned doughnut gauge titled with the
// actual consumption.
func DoughnutConfig(segments []gauge.Segment, actual float64) Config {
	data := make([]float64, len(segments))
	colors := make([]string, len(segments))
	for i, s := range segments {
		data[i] = s.Value
		colors[i] = s.Color
	}
	rotation := 180.0
	borderWidth := 0.0
	return Config{
		Type: TypeDoughnut,
		Data: Data{
			Datasets: []Dataset{{Data: data, BackgroundColor: colors}},
		},
		Options: Options{
			Events:      []string{},
			Rotation:    &rotation,
			BorderWidth: &borderWidth,
			Plugins: &Plugins{
				Title: Title{Display: true, Text: GaugeTitle(actual)},
			},
		},
	}
}

// GaugeTitle prints the consumption with two decimals.
func GaugeTitle(actual float64) string {
	return fmt.Sprintf("%.2f liters", actual)
}

// WeekdayLabels names each day, e.g. "Monday".
func WeekdayLabels(days []time.Time) []string {
	labels := make([]string, len(days))
	for i, day := range days {
		labels[i] = day.Weekday().String()
	}
	return labels
}
