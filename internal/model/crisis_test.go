package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAlertStatusForwardOnly(t *testing.T) {
	tests := []struct {
		name    string
		from    AlertStatus
		to      AlertStatus
		allowed bool
	}{
		{"open to acknowledged", AlertStatusOpen, AlertStatusAcknowledged, true},
		{"acknowledged to in_progress", AlertStatusAcknowledged, AlertStatusInProgress, true},
		{"acknowledged to resolved", AlertStatusAcknowledged, AlertStatusResolved, true},
		{"in_progress to resolved", AlertStatusInProgress, AlertStatusResolved, true},
		{"open to resolved skips ack", AlertStatusOpen, AlertStatusResolved, false},
		{"open to in_progress skips ack", AlertStatusOpen, AlertStatusInProgress, false},
		{"acknowledged back to open", AlertStatusAcknowledged, AlertStatusOpen, false},
		{"resolved back to in_progress", AlertStatusResolved, AlertStatusInProgress, false},
		{"resolved is terminal", AlertStatusResolved, AlertStatusResolved, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestSLABudgets(t *testing.T) {
	assert.Equal(t, 2*time.Minute, SeverityCritical.SLABudget())
	assert.Equal(t, 15*time.Minute, SeverityHigh.SLABudget())
	assert.Equal(t, 2*time.Hour, SeverityMedium.SLABudget())
	assert.Equal(t, 24*time.Hour, SeverityLow.SLABudget())
}

func TestSeverityOrdering(t *testing.T) {
	assert.True(t, SeverityCritical.MoreSevereThan(SeverityHigh))
	assert.True(t, SeverityHigh.MoreSevereThan(SeverityMedium))
	assert.True(t, SeverityMedium.MoreSevereThan(SeverityLow))
	assert.False(t, SeverityLow.MoreSevereThan(SeverityCritical))
	assert.False(t, SeverityHigh.MoreSevereThan(SeverityHigh))
}

func TestAlertBreached(t *testing.T) {
	created := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	deadline := created.Add(2 * time.Minute)

	alert := &CrisisAlert{
		Status:      AlertStatusOpen,
		CreatedAt:   created,
		SLADeadline: deadline,
	}

	assert.False(t, alert.Breached(deadline.Add(-time.Second)), "open before deadline")
	assert.True(t, alert.Breached(deadline.Add(time.Second)), "open past deadline")

	// Acknowledged in time: never breached, no matter when read.
	inTime := deadline.Add(-30 * time.Second)
	alert.Status = AlertStatusAcknowledged
	alert.RespondedAt = &inTime
	assert.False(t, alert.Breached(deadline.Add(time.Hour)))

	// Acknowledged late: breached forever after.
	late := deadline.Add(time.Minute)
	alert.RespondedAt = &late
	assert.True(t, alert.Breached(late))
}
