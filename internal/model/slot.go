package model

import (
	"fmt"
	"regexp"
	"time"
)

// TimeSlot is a canonical bookable interval token, e.g. "10:00-11:00".
// Tokens are opaque keys for conflict detection; equality is string
// equality, never interval arithmetic.
type TimeSlot string

var timeSlotPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d-([01]\d|2[0-3]):[0-5]\d$`)

// Valid reports whether the token is well-formed and the interval is
// non-empty.
func (t TimeSlot) Valid() bool {
	if !timeSlotPattern.MatchString(string(t)) {
		return false
	}
	start, end, err := t.Bounds()
	if err != nil {
		return false
	}
	return end.After(start)
}

// Bounds parses the token endpoints as clock times on a reference day.
func (t TimeSlot) Bounds() (time.Time, time.Time, error) {
	s := string(t)
	if len(s) != 11 {
		return time.Time{}, time.Time{}, fmt.Errorf("malformed time slot %q", s)
	}
	start, err := time.Parse("15:04", s[:5])
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("malformed time slot %q: %w", s, err)
	}
	end, err := time.Parse("15:04", s[6:])
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("malformed time slot %q: %w", s, err)
	}
	return start, end, nil
}

// NewTimeSlot builds the canonical token for a start clock time and a
// duration.
func NewTimeSlot(start time.Time, d time.Duration) TimeSlot {
	return TimeSlot(fmt.Sprintf("%s-%s", start.Format("15:04"), start.Add(d).Format("15:04")))
}
