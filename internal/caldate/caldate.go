// Package caldate provides a zone-free calendar date used as the canonical
// date representation for stored records.
package caldate

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Layout is the canonical text form of a Date.
const Layout = "2006-01-02"

// Provider layouts seen in upstream payloads.
const (
	LayoutProviderDateTime      = "Mon 02 Jan 2006 15:04:05 MST"
	LayoutProviderDateTimeComma = "Mon, 02 Jan 2006 15:04:05 MST"
	LayoutProviderDotted        = "02.01.2006"
	LayoutProviderISOMinute     = "2006-01-02T15:04Z"
)

// parseLayouts is tried in order by Parse.
var parseLayouts = []string{
	Layout,
	LayoutProviderDateTime,
	LayoutProviderDateTimeComma,
	LayoutProviderDotted,
	LayoutProviderISOMinute,
	time.RFC3339,
	"2006-01-02 15:04",
}

// Date is a calendar date without a time of day or zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// New returns the date for y-m-d, normalising overflow the way time.Date does.
func New(year int, month time.Month, day int) Date {
	return FromTime(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// FromTime takes the calendar date of t in t's own location.
func FromTime(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Today returns the current date in loc. A nil loc means UTC.
func Today(loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	return FromTime(time.Now().In(loc))
}

// Parse accepts the canonical layout and every known provider layout.
func Parse(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, fmt.Errorf("parsing date: empty string")
	}
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return FromTime(t), nil
		}
	}
	return Date{}, fmt.Errorf("parsing date %q: unrecognised layout", s)
}

// ParseLayout parses s with a single layout.
func ParseLayout(layout, s string) (Date, error) {
	t, err := time.Parse(layout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("parsing date %q with layout %q: %w", s, layout, err)
	}
	return FromTime(t), nil
}

// Time returns midnight UTC of d.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// Format renders d using a time layout.
func (d Date) Format(layout string) string {
	return d.Time().Format(layout)
}

func (d Date) String() string {
	return d.Format(Layout)
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// AddDays returns d shifted by n days.
func (d Date) AddDays(n int) Date {
	return FromTime(d.Time().AddDate(0, 0, n))
}

// Compare returns -1, 0 or +1.
func (d Date) Compare(other Date) int {
	return d.Time().Compare(other.Time())
}

func (d Date) Before(other Date) bool { return d.Compare(other) < 0 }
func (d Date) After(other Date) bool  { return d.Compare(other) > 0 }

// MarshalJSON encodes d in the canonical layout.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts any layout Parse accepts. An empty string yields the zero Date.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decoding date: %w", err)
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
