package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppointmentStatusTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    AppointmentStatus
		to      AppointmentStatus
		allowed bool
	}{
		{"pending to confirmed", AppointmentStatusPending, AppointmentStatusConfirmed, true},
		{"pending to cancelled", AppointmentStatusPending, AppointmentStatusCancelled, true},
		{"confirmed to completed", AppointmentStatusConfirmed, AppointmentStatusCompleted, true},
		{"confirmed to cancelled", AppointmentStatusConfirmed, AppointmentStatusCancelled, true},
		{"pending to completed skips confirmation", AppointmentStatusPending, AppointmentStatusCompleted, false},
		{"confirmed to pending is backward", AppointmentStatusConfirmed, AppointmentStatusPending, false},
		{"completed is terminal", AppointmentStatusCompleted, AppointmentStatusCancelled, false},
		{"cancelled is terminal", AppointmentStatusCancelled, AppointmentStatusPending, false},
		{"cancelled cannot be confirmed", AppointmentStatusCancelled, AppointmentStatusConfirmed, false},
		{"no self transition", AppointmentStatusPending, AppointmentStatusPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestAppointmentStatusClosure(t *testing.T) {
	// No sequence of transitions can leave the four known states.
	all := []AppointmentStatus{
		AppointmentStatusPending,
		AppointmentStatusConfirmed,
		AppointmentStatusCompleted,
		AppointmentStatusCancelled,
	}
	for from, targets := range appointmentTransitions {
		assert.True(t, from.Valid())
		for _, to := range targets {
			assert.Contains(t, all, to)
		}
	}

	for _, s := range all {
		if s.Terminal() {
			for _, next := range all {
				assert.False(t, s.CanTransitionTo(next), "terminal state %s must not transition to %s", s, next)
			}
		}
	}
}

func TestAppointmentStatusActive(t *testing.T) {
	assert.True(t, AppointmentStatusPending.Active())
	assert.True(t, AppointmentStatusConfirmed.Active())
	assert.False(t, AppointmentStatusCompleted.Active())
	assert.False(t, AppointmentStatusCancelled.Active())
}

func TestAppointmentStatusValid(t *testing.T) {
	assert.True(t, AppointmentStatusPending.Valid())
	assert.False(t, AppointmentStatus("scheduled").Valid())
	assert.False(t, AppointmentStatus("").Valid())
}
