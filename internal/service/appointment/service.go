package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/campuswell/counseling-api/internal/model"
	"github.com/campuswell/counseling-api/internal/repository"
	"github.com/campuswell/counseling-api/internal/service/schedule"
	apperrors "github.com/campuswell/counseling-api/pkg/errors"
	"github.com/campuswell/counseling-api/pkg/metrics"
)

// AlertCreator is the only seam between booking and crisis handling:
// a crisis-urgency booking asks for a linked alert and the result is
// returned to the caller, never written as a hidden side effect.
type AlertCreator interface {
	CreateFromBooking(ctx context.Context, studentID, appointmentID uuid.UUID) (*model.CrisisAlert, error)
}

type Service struct {
	repo     repository.AppointmentRepository
	schedule *schedule.Service
	outbox   repository.OutboxRepository
	alerts   AlertCreator
	metrics  *metrics.Metrics
}

func NewService(repo repository.AppointmentRepository, scheduleSvc *schedule.Service, outbox repository.OutboxRepository, alerts AlertCreator, m *metrics.Metrics) *Service {
	return &Service{
		repo:     repo,
		schedule: scheduleSvc,
		outbox:   outbox,
		alerts:   alerts,
		metrics:  m,
	}
}

// GetAvailableSlots returns the counselor's slot catalog minus slots
// held by active appointments. A returned slot can still be lost to a
// concurrent booking; the conflict guard in CreateAppointment is the
// arbiter, not this read.
func (s *Service) GetAvailableSlots(ctx context.Context, counselorID uuid.UUID, date string) ([]model.TimeSlot, error) {
	if err := s.validateDateNotPast(date); err != nil {
		return nil, err
	}

	catalog, err := s.schedule.ListSlotsForCounselor(ctx, counselorID, date)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.SlotQueries.Inc()
	}

	occupied, err := s.repo.ListActiveSlots(ctx, counselorID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to load occupied slots: %w", err)
	}

	taken := make(map[model.TimeSlot]struct{}, len(occupied))
	for _, slot := range occupied {
		taken[slot] = struct{}{}
	}

	available := []model.TimeSlot{}
	for _, slot := range catalog {
		if _, ok := taken[slot]; !ok {
			available = append(available, slot)
		}
	}
	return available, nil
}

// CreateAppointment books a slot. The uniqueness index on active
// (counselor, date, time_slot) rows makes check-and-insert a single
// atomic write: whoever the store admits first wins, everyone else
// gets a slot_taken conflict and must re-query availability.
func (s *Service) CreateAppointment(ctx context.Context, req *model.CreateAppointmentRequest) (*model.BookingResult, error) {
	studentID, err := uuid.Parse(req.Student)
	if err != nil {
		return nil, apperrors.NewValidation("invalid student identifier", err)
	}
	counselorID, err := uuid.Parse(req.Counselor)
	if err != nil {
		return nil, apperrors.NewValidation("invalid counselor identifier", err)
	}
	if err := s.validateDateNotPast(req.Date); err != nil {
		return nil, err
	}

	slot := model.TimeSlot(req.TimeSlot)
	if !slot.Valid() {
		return nil, apperrors.NewValidation(fmt.Sprintf("malformed time slot %q", req.TimeSlot), nil)
	}

	catalog, err := s.schedule.ListSlotsForCounselor(ctx, counselorID, req.Date)
	if err != nil {
		return nil, err
	}
	if !containsSlot(catalog, slot) {
		return nil, apperrors.NewValidation(
			fmt.Sprintf("time slot %q is not offered by this counselor on %s", slot, req.Date), nil)
	}

	apt := &model.Appointment{
		StudentID:      studentID,
		CounselorID:    counselorID,
		Date:           req.Date,
		TimeSlot:       slot,
		Type:           model.ParseAppointmentType(req.Type),
		Urgency:        model.UrgencyLevel(req.Urgency),
		Status:         model.AppointmentStatusPending,
		Reason:         req.Reason,
		IdempotencyKey: req.IdempotencyKey,
	}

	// Retried requests carry the caller's idempotency key; a prior
	// booking under the same key is returned instead of a second row.
	if req.IdempotencyKey != nil {
		prior, err := s.repo.GetByIdempotencyKey(ctx, *req.IdempotencyKey)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("failed to check idempotency key: %w", err)
		}
		if prior != nil {
			if err := samePayload(prior, apt); err != nil {
				return nil, err
			}
			return s.replay(prior), nil
		}
	}

	err = s.repo.Create(ctx, apt)
	switch {
	case errors.Is(err, repository.ErrSlotTaken):
		// When the duplicate of a keyed retry loses the insert race to
		// its twin, the store may report the slot index before the key
		// index; both rows carry the same key, so the winner's row is
		// still the canonical result, not a conflict.
		if req.IdempotencyKey != nil {
			prior, getErr := s.repo.GetByIdempotencyKey(ctx, *req.IdempotencyKey)
			if getErr != nil && !errors.Is(getErr, repository.ErrNotFound) {
				return nil, fmt.Errorf("failed to check idempotency key: %w", getErr)
			}
			if prior != nil && samePayload(prior, apt) == nil {
				return s.replay(prior), nil
			}
		}
		if s.metrics != nil {
			s.metrics.BookingConflicts.Inc()
			s.metrics.BookingAttempts.WithLabelValues("conflict").Inc()
		}
		return nil, apperrors.NewConflict("slot_taken",
			"slot already has an active appointment, refresh availability")
	case errors.Is(err, repository.ErrDuplicateIdempotencyKey):
		// Lost a race against our own retry; the winner's row is the
		// canonical result.
		if req.IdempotencyKey == nil {
			return nil, fmt.Errorf("idempotency key violation without key: %w", err)
		}
		prior, getErr := s.repo.GetByIdempotencyKey(ctx, *req.IdempotencyKey)
		if getErr != nil {
			return nil, fmt.Errorf("failed to load prior booking after duplicate key: %w", getErr)
		}
		if err := samePayload(prior, apt); err != nil {
			return nil, err
		}
		return s.replay(prior), nil
	case err != nil:
		return nil, fmt.Errorf("failed to create appointment: %w", err)
	}

	if s.metrics != nil {
		s.metrics.BookingAttempts.WithLabelValues("created").Inc()
	}

	s.emit(ctx, "appointment.created", apt)

	result := &model.BookingResult{Appointment: apt}

	if apt.Urgency == model.UrgencyCrisis && s.alerts != nil {
		alert, err := s.alerts.CreateFromBooking(ctx, studentID, apt.ID)
		if err != nil {
			// The booking stands; a failed alert must not unwind it.
			log.Error().Err(err).
				Str("appointment_id", apt.ID.String()).
				Msg("failed to create crisis alert for crisis-urgency booking")
		} else {
			result.CrisisAlert = alert
		}
	}

	return result, nil
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	apt, err := s.repo.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFound("appointment")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return apt, nil
}

// ListStudentAppointments returns the student's appointments. A
// malformed student identifier yields an empty list rather than an
// error so anonymous and demo callers get a harmless response.
func (s *Service) ListStudentAppointments(ctx context.Context, studentID string) ([]*model.Appointment, error) {
	id, err := uuid.Parse(studentID)
	if err != nil {
		return []*model.Appointment{}, nil
	}
	appointments, err := s.repo.ListByStudent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list student appointments: %w", err)
	}
	return appointments, nil
}

func (s *Service) ListAppointments(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	appointments, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

// UpdateAppointmentStatus enforces the lifecycle table and executes
// the transition as a conditional write keyed on the observed prior
// state, so concurrent transition requests serialize at the store.
func (s *Service) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, newStatus model.AppointmentStatus) (*model.Appointment, error) {
	if !newStatus.Valid() {
		return nil, apperrors.NewValidation(fmt.Sprintf("unknown status %q", newStatus), nil)
	}

	apt, err := s.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}

	if !apt.Status.CanTransitionTo(newStatus) {
		return nil, apperrors.NewInvalidTransition(string(apt.Status), string(newStatus))
	}

	updated, err := s.repo.UpdateStatus(ctx, id, apt.Status, newStatus)
	if err != nil {
		return nil, fmt.Errorf("failed to update appointment status: %w", err)
	}
	if !updated {
		// The row moved on between our read and write; report the
		// transition against the state that actually holds.
		current, err := s.GetAppointment(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, apperrors.NewInvalidTransition(string(current.Status), string(newStatus))
	}

	apt.Status = newStatus
	apt.UpdatedAt = time.Now()
	s.emit(ctx, "appointment.status_changed", apt)
	return apt, nil
}

func (s *Service) validateDateNotPast(date string) error {
	day, err := model.ParseDate(date)
	if err != nil {
		return apperrors.NewValidation(fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", date), err)
	}
	today, _ := model.ParseDate(time.Now().Format(model.DateFormat))
	if day.Before(today) {
		return apperrors.NewValidation(fmt.Sprintf("date %s is in the past", date), nil)
	}
	return nil
}

func (s *Service) emit(ctx context.Context, eventType string, payload interface{}) {
	if s.outbox == nil {
		return
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", eventType).Msg("failed to marshal outbox payload")
		return
	}
	if err := s.outbox.Create(ctx, &model.OutboxEvent{EventType: eventType, Payload: raw}); err != nil {
		log.Error().Err(err).Str("event_type", eventType).Msg("failed to write outbox event")
	}
}

func containsSlot(catalog []model.TimeSlot, slot model.TimeSlot) bool {
	for _, s := range catalog {
		if s == slot {
			return true
		}
	}
	return false
}

// replay returns a prior booking as the result of a retried request.
func (s *Service) replay(prior *model.Appointment) *model.BookingResult {
	if s.metrics != nil {
		s.metrics.BookingIdempotent.Inc()
		s.metrics.BookingAttempts.WithLabelValues("replayed").Inc()
	}
	return &model.BookingResult{Appointment: prior}
}

// samePayload checks that a retried request matches the booking its
// idempotency key points at, field for field.
func samePayload(prior, next *model.Appointment) error {
	if prior.StudentID != next.StudentID || prior.CounselorID != next.CounselorID ||
		prior.Date != next.Date || prior.TimeSlot != next.TimeSlot ||
		prior.Type != next.Type || prior.Urgency != next.Urgency ||
		!equalReason(prior.Reason, next.Reason) {
		return apperrors.NewValidation("idempotency key reused with a different payload", nil)
	}
	return nil
}

func equalReason(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
