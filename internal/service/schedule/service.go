package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/campuswell/counseling-api/internal/model"
	"github.com/campuswell/counseling-api/internal/repository"
	apperrors "github.com/campuswell/counseling-api/pkg/errors"
)

const (
	scheduleCacheTTL     = 30 * time.Second
	scheduleCacheCleanup = 5 * time.Minute
)

// Service derives the day's slot catalog from counselor schedule
// configuration. The catalog is recomputed per call from current
// config; only the config row itself is cached.
type Service struct {
	counselors repository.CounselorRepository
	cache      *gocache.Cache
}

func NewService(counselors repository.CounselorRepository) *Service {
	return &Service{
		counselors: counselors,
		cache:      gocache.New(scheduleCacheTTL, scheduleCacheCleanup),
	}
}

func (s *Service) getCounselor(ctx context.Context, id uuid.UUID) (*model.CounselorSchedule, error) {
	if cached, ok := s.cache.Get(id.String()); ok {
		return cached.(*model.CounselorSchedule), nil
	}

	counselor, err := s.counselors.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFound("counselor")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load counselor schedule: %w", err)
	}

	s.cache.SetDefault(id.String(), counselor)
	return counselor, nil
}

// ListSlotsForCounselor returns the ordered canonical slot tokens the
// counselor exposes on the given date: consecutive fixed-length
// intervals inside working hours, empty on the day off or a blackout
// date.
func (s *Service) ListSlotsForCounselor(ctx context.Context, counselorID uuid.UUID, date string) ([]model.TimeSlot, error) {
	day, err := model.ParseDate(date)
	if err != nil {
		return nil, apperrors.NewValidation(fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", date), err)
	}

	counselor, err := s.getCounselor(ctx, counselorID)
	if err != nil {
		return nil, err
	}

	if !counselor.WorksOn(day, date) {
		return []model.TimeSlot{}, nil
	}

	start, err := time.Parse("15:04", counselor.WorkStart)
	if err != nil {
		return nil, fmt.Errorf("counselor %s has malformed work_start %q: %w", counselorID, counselor.WorkStart, err)
	}
	end, err := time.Parse("15:04", counselor.WorkEnd)
	if err != nil {
		return nil, fmt.Errorf("counselor %s has malformed work_end %q: %w", counselorID, counselor.WorkEnd, err)
	}

	slotLen := time.Duration(counselor.SlotMinutes) * time.Minute
	if slotLen <= 0 {
		return nil, fmt.Errorf("counselor %s has invalid slot_minutes %d", counselorID, counselor.SlotMinutes)
	}

	slots := []model.TimeSlot{}
	for t := start; !t.Add(slotLen).After(end); t = t.Add(slotLen) {
		slots = append(slots, model.NewTimeSlot(t, slotLen))
	}
	return slots, nil
}
