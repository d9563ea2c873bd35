// dates maps calendar dates onto the keys the timetable is stored under:
// the Monday that starts a date's week and the display label of the day.
package dates

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidDateFormat = errors.New("invalid date format")

const (
	// layout of every date the api accepts and of week start keys
	IsoLayout = "2006-01-02"
	// layout of the day labels e.i. "Mon, 01-Dec-2025"
	LabelLayout = "Mon, 02-Jan-2006"
)

// Go's reference layouts are always english so labels never depend on the
// locale of the host
var weekdayAbbreviations = [...]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
var monthAbbreviations = [...]string{
	"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
}

// Parse strictly reads a YYYY-MM-DD date as midnight UTC
func Parse(date string) (time.Time, error) {
	// time.Parse accepts some inputs that are not zero padded with other layouts
	if len(date) != len(IsoLayout) {
		return time.Time{}, fmt.Errorf("%w: %q is not YYYY-MM-DD", ErrInvalidDateFormat, date)
	}
	t, err := time.ParseInLocation(IsoLayout, date, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", ErrInvalidDateFormat, date, err)
	}
	return t, nil
}

// WeekStartOf gives the Monday on or before date as YYYY-MM-DD
func WeekStartOf(date string) (string, error) {
	t, err := Parse(date)
	if err != nil {
		return "", err
	}
	return MondayOf(t).Format(IsoLayout), nil
}

// MondayOf truncates t to the Monday of its ISO week
func MondayOf(t time.Time) time.Time {
	// Sunday is 0 but it ends an ISO week
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.Date()
	return time.Date(y, m, d-offset, 0, 0, 0, 0, time.UTC)
}

// DisplayLabelOf gives the label a day is keyed by inside its week
func DisplayLabelOf(date string) (string, error) {
	t, err := Parse(date)
	if err != nil {
		return "", err
	}
	return Label(t), nil
}

func Label(t time.Time) string {
	return fmt.Sprintf("%s, %02d-%s-%04d",
		weekdayAbbreviations[t.Weekday()],
		t.Day(),
		monthAbbreviations[t.Month()-1],
		t.Year(),
	)
}

// ParseDisplayLabel reads a label made by DisplayLabelOf back into a date.
// The weekday has to agree with the date.
func ParseDisplayLabel(label string) (time.Time, error) {
	trimmed := strings.TrimSpace(label)
	t, err := time.ParseInLocation(LabelLayout, trimmed, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", ErrInvalidDateFormat, label, err)
	}
	if Label(t) != trimmed {
		return time.Time{}, fmt.Errorf("%w: %q does not match %s", ErrInvalidDateFormat, label, Label(t))
	}
	return t, nil
}

// IsoFromLabel is a shorthand for converting exported labels into api dates
func IsoFromLabel(label string) (string, error) {
	t, err := ParseDisplayLabel(label)
	if err != nil {
		return "", err
	}
	return t.Format(IsoLayout), nil
}
