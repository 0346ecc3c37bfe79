package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuswell/counseling-api/internal/model"
	"github.com/campuswell/counseling-api/internal/repository"
	apperrors "github.com/campuswell/counseling-api/pkg/errors"
)

type stubCounselorRepo struct {
	counselors map[uuid.UUID]*model.CounselorSchedule
	gets       int
}

func (r *stubCounselorRepo) Get(_ context.Context, id uuid.UUID) (*model.CounselorSchedule, error) {
	r.gets++
	counselor, ok := r.counselors[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return counselor, nil
}

// nextWorkday returns an upcoming date avoiding the given weekday.
func nextWorkday(dayOff time.Weekday) (time.Time, string) {
	day := time.Now().AddDate(0, 0, 1)
	for day.Weekday() == dayOff {
		day = day.AddDate(0, 0, 1)
	}
	return day, day.Format(model.DateFormat)
}

func nextWeekday(weekday time.Weekday) string {
	day := time.Now().AddDate(0, 0, 1)
	for day.Weekday() != weekday {
		day = day.AddDate(0, 0, 1)
	}
	return day.Format(model.DateFormat)
}

func TestListSlotsForCounselor(t *testing.T) {
	counselorID := uuid.New()
	_, date := nextWorkday(time.Sunday)

	repo := &stubCounselorRepo{counselors: map[uuid.UUID]*model.CounselorSchedule{
		counselorID: {
			Name:        "Dr. Okafor",
			WorkStart:   "09:00",
			WorkEnd:     "17:00",
			SlotMinutes: 60,
			DayOff:      int(time.Sunday),
			Active:      true,
		},
	}}
	svc := NewService(repo)

	slots, err := svc.ListSlotsForCounselor(context.Background(), counselorID, date)
	require.NoError(t, err)

	want := []model.TimeSlot{
		"09:00-10:00", "10:00-11:00", "11:00-12:00", "12:00-13:00",
		"13:00-14:00", "14:00-15:00", "15:00-16:00", "16:00-17:00",
	}
	assert.Equal(t, want, slots)
}

func TestListSlotsHalfHourGrid(t *testing.T) {
	counselorID := uuid.New()
	_, date := nextWorkday(time.Monday)

	repo := &stubCounselorRepo{counselors: map[uuid.UUID]*model.CounselorSchedule{
		counselorID: {
			WorkStart:   "10:00",
			WorkEnd:     "12:00",
			SlotMinutes: 30,
			DayOff:      int(time.Monday),
			Active:      true,
		},
	}}
	svc := NewService(repo)

	slots, err := svc.ListSlotsForCounselor(context.Background(), counselorID, date)
	require.NoError(t, err)
	assert.Equal(t, []model.TimeSlot{"10:00-10:30", "10:30-11:00", "11:00-11:30", "11:30-12:00"}, slots)
}

func TestListSlotsDayOff(t *testing.T) {
	counselorID := uuid.New()
	repo := &stubCounselorRepo{counselors: map[uuid.UUID]*model.CounselorSchedule{
		counselorID: {
			WorkStart:   "09:00",
			WorkEnd:     "17:00",
			SlotMinutes: 60,
			DayOff:      int(time.Wednesday),
			Active:      true,
		},
	}}
	svc := NewService(repo)

	slots, err := svc.ListSlotsForCounselor(context.Background(), counselorID, nextWeekday(time.Wednesday))
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestListSlotsBlackoutDate(t *testing.T) {
	counselorID := uuid.New()
	_, date := nextWorkday(time.Sunday)

	repo := &stubCounselorRepo{counselors: map[uuid.UUID]*model.CounselorSchedule{
		counselorID: {
			WorkStart:     "09:00",
			WorkEnd:       "17:00",
			SlotMinutes:   60,
			DayOff:        int(time.Sunday),
			BlackoutDates: []string{date},
			Active:        true,
		},
	}}
	svc := NewService(repo)

	slots, err := svc.ListSlotsForCounselor(context.Background(), counselorID, date)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestListSlotsInactiveCounselor(t *testing.T) {
	counselorID := uuid.New()
	_, date := nextWorkday(time.Sunday)

	repo := &stubCounselorRepo{counselors: map[uuid.UUID]*model.CounselorSchedule{
		counselorID: {
			WorkStart:   "09:00",
			WorkEnd:     "17:00",
			SlotMinutes: 60,
			DayOff:      int(time.Sunday),
			Active:      false,
		},
	}}
	svc := NewService(repo)

	slots, err := svc.ListSlotsForCounselor(context.Background(), counselorID, date)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestListSlotsUnknownCounselor(t *testing.T) {
	svc := NewService(&stubCounselorRepo{counselors: map[uuid.UUID]*model.CounselorSchedule{}})
	_, date := nextWorkday(time.Sunday)

	_, err := svc.ListSlotsForCounselor(context.Background(), uuid.New(), date)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestListSlotsBadDate(t *testing.T) {
	svc := NewService(&stubCounselorRepo{counselors: map[uuid.UUID]*model.CounselorSchedule{}})

	_, err := svc.ListSlotsForCounselor(context.Background(), uuid.New(), "15-01-2026")
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestScheduleConfigCached(t *testing.T) {
	counselorID := uuid.New()
	_, date := nextWorkday(time.Sunday)

	repo := &stubCounselorRepo{counselors: map[uuid.UUID]*model.CounselorSchedule{
		counselorID: {
			WorkStart:   "09:00",
			WorkEnd:     "17:00",
			SlotMinutes: 60,
			DayOff:      int(time.Sunday),
			Active:      true,
		},
	}}
	svc := NewService(repo)

	for i := 0; i < 3; i++ {
		_, err := svc.ListSlotsForCounselor(context.Background(), counselorID, date)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, repo.gets)
}
