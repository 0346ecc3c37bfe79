package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/campuswell/counseling-api/internal/model"
	"github.com/campuswell/counseling-api/internal/repository"
)

// Constraint names from migrations; unique-violation mapping depends
// on them.
const (
	constraintActiveSlot     = "uq_appointments_active_slot"
	constraintIdempotencyKey = "uq_appointments_idempotency_key"
)

// Create inserts the appointment. The partial unique index on
// (counselor_id, date, time_slot) WHERE status IN (pending, confirmed)
// arbitrates concurrent bookings: exactly one insert succeeds, the
// rest observe a unique violation mapped to ErrSlotTaken.
func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	query := `
		INSERT INTO appointments (
			id, student_id, counselor_id, date, time_slot,
			appointment_type, urgency_level, status, reason,
			idempotency_key, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	appointment.ID = uuid.New()
	appointment.CreatedAt = time.Now()
	appointment.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		appointment.ID,
		appointment.StudentID,
		appointment.CounselorID,
		appointment.Date,
		appointment.TimeSlot,
		appointment.Type,
		appointment.Urgency,
		appointment.Status,
		appointment.Reason,
		appointment.IdempotencyKey,
		appointment.CreatedAt,
		appointment.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			switch pqErr.Constraint {
			case constraintActiveSlot:
				return repository.ErrSlotTaken
			case constraintIdempotencyKey:
				return repository.ErrDuplicateIdempotencyKey
			}
		}
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `
		SELECT id, student_id, counselor_id, date, time_slot,
			   appointment_type, urgency_level, status, reason,
			   idempotency_key, created_at, updated_at
		FROM appointments
		WHERE id = $1
	`
	var appointment model.Appointment
	err := r.db.GetContext(ctx, &appointment, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &appointment, nil
}

func (r *appointmentRepository) GetByIdempotencyKey(ctx context.Context, key string) (*model.Appointment, error) {
	query := `
		SELECT id, student_id, counselor_id, date, time_slot,
			   appointment_type, urgency_level, status, reason,
			   idempotency_key, created_at, updated_at
		FROM appointments
		WHERE idempotency_key = $1
	`
	var appointment model.Appointment
	err := r.db.GetContext(ctx, &appointment, query, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment by idempotency key: %w", err)
	}
	return &appointment, nil
}

func (r *appointmentRepository) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]*model.Appointment, error) {
	query := `
		SELECT id, student_id, counselor_id, date, time_slot,
			   appointment_type, urgency_level, status, reason,
			   idempotency_key, created_at, updated_at
		FROM appointments
		WHERE student_id = $1
		ORDER BY date ASC, time_slot ASC
	`
	appointments := []*model.Appointment{}
	if err := r.db.SelectContext(ctx, &appointments, query, studentID); err != nil {
		return nil, fmt.Errorf("failed to list student appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	query := `
		SELECT id, student_id, counselor_id, date, time_slot,
			   appointment_type, urgency_level, status, reason,
			   idempotency_key, created_at, updated_at
		FROM appointments
		WHERE 1=1
	`
	args := []interface{}{}
	argCount := 1

	if filters != nil {
		if filters.CounselorID != uuid.Nil {
			query += fmt.Sprintf(" AND counselor_id = $%d", argCount)
			args = append(args, filters.CounselorID)
			argCount++
		}
		if filters.StudentID != uuid.Nil {
			query += fmt.Sprintf(" AND student_id = $%d", argCount)
			args = append(args, filters.StudentID)
			argCount++
		}
		if filters.Status != "" {
			query += fmt.Sprintf(" AND status = $%d", argCount)
			args = append(args, filters.Status)
			argCount++
		}
		if filters.Date != "" {
			query += fmt.Sprintf(" AND date = $%d", argCount)
			args = append(args, filters.Date)
			argCount++
		}
	}

	query += " ORDER BY date ASC, time_slot ASC"

	appointments := []*model.Appointment{}
	if err := r.db.SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) ListActiveSlots(ctx context.Context, counselorID uuid.UUID, date string) ([]model.TimeSlot, error) {
	query := `
		SELECT time_slot
		FROM appointments
		WHERE counselor_id = $1
		AND date = $2
		AND status IN ('pending', 'confirmed')
	`
	slots := []model.TimeSlot{}
	if err := r.db.SelectContext(ctx, &slots, query, counselorID, date); err != nil {
		return nil, fmt.Errorf("failed to list occupied slots: %w", err)
	}
	return slots, nil
}

// UpdateStatus executes the transition as a single conditional write
// so concurrent transition requests on one appointment serialize at
// the store: the WHERE clause only matches the expected prior state.
func (r *appointmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.AppointmentStatus) (bool, error) {
	query := `
		UPDATE appointments
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`
	result, err := r.db.ExecContext(ctx, query, to, time.Now(), id, from)
	if err != nil {
		return false, fmt.Errorf("failed to update appointment status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}
