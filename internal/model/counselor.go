package model

import (
	"time"

	"github.com/lib/pq"
)

// CounselorSchedule is bookable-hours configuration owned by the
// counselor-profile collaborator. This core only reads it to derive
// the day's slot catalog.
type CounselorSchedule struct {
	Base
	Name          string         `db:"name" json:"name"`
	WorkStart     string         `db:"work_start" json:"work_start"` // "09:00"
	WorkEnd       string         `db:"work_end" json:"work_end"`     // "17:00"
	SlotMinutes   int            `db:"slot_minutes" json:"slot_minutes"`
	DayOff        int            `db:"day_off" json:"day_off"` // time.Weekday value
	BlackoutDates pq.StringArray `db:"blackout_dates" json:"blackout_dates"`
	Active        bool           `db:"active" json:"active"`
}

// WorksOn reports whether the counselor takes bookings on the given
// calendar day.
func (c *CounselorSchedule) WorksOn(date time.Time, dateStr string) bool {
	if !c.Active {
		return false
	}
	if date.Weekday() == time.Weekday(c.DayOff) {
		return false
	}
	for _, blackout := range c.BlackoutDates {
		if blackout == dateStr {
			return false
		}
	}
	return true
}
