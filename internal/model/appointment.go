package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

// appointmentTransitions is the full lifecycle table. Anything not
// listed here is an illegal transition; terminal states have no
// outgoing edges.
var appointmentTransitions = map[AppointmentStatus][]AppointmentStatus{
	AppointmentStatusPending:   {AppointmentStatusConfirmed, AppointmentStatusCancelled},
	AppointmentStatusConfirmed: {AppointmentStatusCompleted, AppointmentStatusCancelled},
}

func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentStatusPending, AppointmentStatusConfirmed,
		AppointmentStatusCompleted, AppointmentStatusCancelled:
		return true
	}
	return false
}

// Active reports whether the appointment occupies its slot.
func (s AppointmentStatus) Active() bool {
	return s == AppointmentStatusPending || s == AppointmentStatusConfirmed
}

// Terminal reports whether the status admits no further transitions.
func (s AppointmentStatus) Terminal() bool {
	return s == AppointmentStatusCompleted || s == AppointmentStatusCancelled
}

// CanTransitionTo checks the lifecycle table.
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	for _, allowed := range appointmentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type AppointmentType string

const (
	AppointmentTypeOnSite AppointmentType = "on_site"
	AppointmentTypeRemote AppointmentType = "remote"
)

// ParseAppointmentType canonicalizes the wire token; hyphenated
// spellings ("on-site") are accepted as aliases of the stored
// snake_case form.
func ParseAppointmentType(s string) AppointmentType {
	return AppointmentType(strings.ReplaceAll(s, "-", "_"))
}

type UrgencyLevel string

const (
	UrgencyRoutine UrgencyLevel = "routine"
	UrgencyUrgent  UrgencyLevel = "urgent"
	UrgencyCrisis  UrgencyLevel = "crisis"
)

type Appointment struct {
	Base
	StudentID      uuid.UUID         `db:"student_id" json:"student_id"`
	CounselorID    uuid.UUID         `db:"counselor_id" json:"counselor_id"`
	Date           string            `db:"date" json:"date"`
	TimeSlot       TimeSlot          `db:"time_slot" json:"time_slot"`
	Type           AppointmentType   `db:"appointment_type" json:"appointment_type"`
	Urgency        UrgencyLevel      `db:"urgency_level" json:"urgency_level"`
	Status         AppointmentStatus `db:"status" json:"status"`
	Reason         *string           `db:"reason" json:"reason,omitempty"`
	IdempotencyKey *string           `db:"idempotency_key" json:"-"`
}

type CreateAppointmentRequest struct {
	Student        string  `json:"student" binding:"required,uuid"`
	Counselor      string  `json:"counselor" binding:"required,uuid"`
	Date           string  `json:"date" binding:"required,datetime=2006-01-02"`
	TimeSlot       string  `json:"time_slot" binding:"required,timeslot"`
	Type           string  `json:"appointment_type" binding:"required,oneof=on_site on-site remote"`
	Urgency        string  `json:"urgency_level" binding:"required,oneof=routine urgent crisis"`
	Reason         *string `json:"reason" binding:"omitempty,max=2000"`
	IdempotencyKey *string `json:"idempotency_key" binding:"omitempty,max=128"`
}

type UpdateAppointmentStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending confirmed completed cancelled"`
}

type AppointmentFilters struct {
	CounselorID uuid.UUID
	StudentID   uuid.UUID
	Status      AppointmentStatus
	Date        string
}

// BookingResult couples a created appointment with an optional crisis
// alert created for crisis-urgency bookings. The alert is an explicit
// output so the two subsystems stay independently testable.
type BookingResult struct {
	Appointment *Appointment `json:"appointment"`
	CrisisAlert *CrisisAlert `json:"crisis_alert,omitempty"`
}

// ParseDate validates and parses an institution-local calendar day.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateFormat, s)
}
