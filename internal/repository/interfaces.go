package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/campuswell/counseling-api/internal/model"
)

// Sentinel errors surfaced by implementations so the service layer can
// map storage-level arbitration to the public error taxonomy.
var (
	// ErrSlotTaken means the atomic insert lost the race for the
	// (counselor, date, time_slot) key.
	ErrSlotTaken = errors.New("slot already has an active appointment")

	// ErrDuplicateIdempotencyKey means a row with the same idempotency
	// key already exists; the caller should load and return it.
	ErrDuplicateIdempotencyKey = errors.New("idempotency key already used")

	ErrNotFound = errors.New("not found")
)

type (
	// AppointmentRepository owns the appointments table. Create is the
	// booking conflict guard: check-and-insert happens as one atomic
	// write arbitrated by the store's unique index.
	AppointmentRepository interface {
		Create(ctx context.Context, appointment *model.Appointment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		GetByIdempotencyKey(ctx context.Context, key string) (*model.Appointment, error)
		ListByStudent(ctx context.Context, studentID uuid.UUID) ([]*model.Appointment, error)
		List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)
		ListActiveSlots(ctx context.Context, counselorID uuid.UUID, date string) ([]model.TimeSlot, error)
		// UpdateStatus performs a conditional transition and reports
		// whether a row in the expected prior state was updated.
		UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.AppointmentStatus) (bool, error)
	}

	// CounselorRepository reads schedule configuration owned by the
	// counselor-profile collaborator.
	CounselorRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.CounselorSchedule, error)
	}

	CrisisAlertRepository interface {
		Create(ctx context.Context, alert *model.CrisisAlert) error
		GetByAlertID(ctx context.Context, alertID string) (*model.CrisisAlert, error)
		List(ctx context.Context, filters *model.AlertFilters) ([]*model.CrisisAlert, error)
		// Acknowledge transitions open -> acknowledged and stamps
		// responded_at; reports whether the row was still open.
		Acknowledge(ctx context.Context, alertID string, responder *uuid.UUID, at time.Time) (bool, error)
		// Transition performs a generic conditional forward step.
		Transition(ctx context.Context, alertID string, from, to model.AlertStatus, at time.Time) (bool, error)
		ListOpenPastDeadline(ctx context.Context, now time.Time) ([]*model.CrisisAlert, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string, retryAt *time.Time) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)
