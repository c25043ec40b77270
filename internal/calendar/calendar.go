// Package calendar converts between the Gregorian calendar used for storage and the calendar
// system a company works in.
package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// System identifies a calendar system configured for a company.
type System string

const (
	// Standard is the Gregorian calendar.
	Standard System = "standard"
	// Nepali is the Bikram Sambat calendar.
	Nepali System = "nepali"
)

// ErrUnsupportedDate is returned for dates outside the supported conversion range.
var ErrUnsupportedDate = errors.New("calendar: date outside supported range")

// Calendar parses and formats civil dates in one calendar system. Parsed values are always
// Gregorian midnights in UTC so they can be stored and compared directly.
type Calendar interface {
	System() System
	Parse(value string) (time.Time, error)
	Format(t time.Time) (string, error)
}

// For returns the calendar for a system; an empty system means Standard.
func For(system System) (Calendar, error) {
	switch system {
	case Standard, "":
		return gregorian{}, nil
	case Nepali:
		return bikramSambat{}, nil
	default:
		return nil, fmt.Errorf("calendar: unknown system %q", system)
	}
}

// MustFor is For for statically known systems.
func MustFor(system System) Calendar {
	cal, err := For(system)
	if err != nil {
		panic(err)
	}
	return cal
}

// Midnight truncates t to its civil date in UTC.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of whole days from `from` to `to`, rounding down.
func DaysBetween(from, to time.Time) int {
	diff := Midnight(to).Sub(Midnight(from))
	days := int(diff / (24 * time.Hour))
	if diff < 0 && diff%(24*time.Hour) != 0 {
		days--
	}
	return days
}

// Normalize re-expresses t through cal so that a reference date and stored dates share one
// calendar system.
func Normalize(cal Calendar, t time.Time) (time.Time, error) {
	formatted, err := cal.Format(t)
	if err != nil {
		return time.Time{}, err
	}
	return cal.Parse(formatted)
}

type gregorian struct{}

func (gregorian) System() System { return Standard }

func (gregorian) Parse(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("calendar: empty date")
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006/01/02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return Midnight(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("calendar: invalid date %q", value)
}

func (gregorian) Format(t time.Time) (string, error) {
	return Midnight(t).Format("2006-01-02"), nil
}
