package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeSlotValid(t *testing.T) {
	assert.True(t, TimeSlot("10:00-11:00").Valid())
	assert.True(t, TimeSlot("09:30-10:00").Valid())
	assert.True(t, TimeSlot("23:00-23:30").Valid())

	assert.False(t, TimeSlot("10:00").Valid())
	assert.False(t, TimeSlot("10:00-10:00").Valid(), "empty interval")
	assert.False(t, TimeSlot("11:00-10:00").Valid(), "inverted interval")
	assert.False(t, TimeSlot("25:00-26:00").Valid())
	assert.False(t, TimeSlot("10:00 - 11:00").Valid())
	assert.False(t, TimeSlot("").Valid())
}

func TestNewTimeSlot(t *testing.T) {
	start, err := time.Parse("15:04", "10:00")
	assert.NoError(t, err)
	assert.Equal(t, TimeSlot("10:00-11:00"), NewTimeSlot(start, time.Hour))
	assert.Equal(t, TimeSlot("10:00-10:30"), NewTimeSlot(start, 30*time.Minute))
}
