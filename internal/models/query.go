package models

import "time"

// ConsumptionKind selects which consumption a view shows. It comes from the
// page's q query parameter.
type ConsumptionKind string

const (
	KindTotal     ConsumptionKind = "total"
	KindManual    ConsumptionKind = "manual"
	KindAutomatic ConsumptionKind = "automatic"
)

// ParseKind maps the q parameter onto a kind; anything unknown is total.
func ParseKind(q string) ConsumptionKind {
	switch ConsumptionKind(q) {
	case KindManual:
		return KindManual
	case KindAutomatic:
		return KindAutomatic
	default:
		return KindTotal
	}
}

// Title is the human readable prefix used in page headings.
func (k ConsumptionKind) Title() string {
	switch k {
	case KindManual:
		return "Shower and faucet"
	case KindAutomatic:
		return "Appliance"
	default:
		return "Total"
	}
}

const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
)

// DateWindow is a [Start, End) range sent to the stats API.
type DateWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// DayWindow covers the calendar day starting at day.
func DayWindow(day time.Time) DateWindow {
	start := StartOfDay(day)
	return DateWindow{Start: start, End: start.AddDate(0, 0, 1)}
}

// TrailingWindow covers the given number of days ending before end's day.
func TrailingWindow(end time.Time, days int) DateWindow {
	stop := StartOfDay(end)
	return DateWindow{Start: stop.AddDate(0, 0, -days), End: stop}
}

// QueryParams renders the window as start/end query parameters. Bounds at
// midnight use the short date form.
func (w DateWindow) QueryParams() map[string]string {
	return map[string]string{
		"start": formatBound(w.Start),
		"end":   formatBound(w.End),
	}
}

func formatBound(t time.Time) string {
	if t.Equal(StartOfDay(t)) {
		return t.Format(DateLayout)
	}
	return t.Format(DateTimeLayout)
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
