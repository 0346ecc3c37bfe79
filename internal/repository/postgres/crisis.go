package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/campuswell/counseling-api/internal/model"
	"github.com/campuswell/counseling-api/internal/repository"
)

func (r *crisisAlertRepository) Create(ctx context.Context, alert *model.CrisisAlert) error {
	query := `
		INSERT INTO crisis_alerts (
			id, alert_id, student_ref, severity, source, ai_confidence,
			keywords_trigger, status, created_at, sla_deadline
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	alert.ID = uuid.New()

	_, err := r.db.ExecContext(ctx, query,
		alert.ID,
		alert.AlertID,
		alert.StudentRef,
		alert.Severity,
		alert.Source,
		alert.AIConfidence,
		alert.KeywordsTrigger,
		alert.Status,
		alert.CreatedAt,
		alert.SLADeadline,
	)
	if err != nil {
		return fmt.Errorf("failed to create crisis alert: %w", err)
	}
	return nil
}

func (r *crisisAlertRepository) GetByAlertID(ctx context.Context, alertID string) (*model.CrisisAlert, error) {
	query := `
		SELECT id, alert_id, student_ref, severity, source, ai_confidence,
			   keywords_trigger, status, responder_ref, created_at,
			   responded_at, resolved_at, sla_deadline
		FROM crisis_alerts
		WHERE alert_id = $1
	`
	var alert model.CrisisAlert
	err := r.db.GetContext(ctx, &alert, query, alertID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get crisis alert: %w", err)
	}
	return &alert, nil
}

func (r *crisisAlertRepository) List(ctx context.Context, filters *model.AlertFilters) ([]*model.CrisisAlert, error) {
	query := `
		SELECT id, alert_id, student_ref, severity, source, ai_confidence,
			   keywords_trigger, status, responder_ref, created_at,
			   responded_at, resolved_at, sla_deadline
		FROM crisis_alerts
		WHERE 1=1
	`
	args := []interface{}{}
	argCount := 1

	if filters != nil {
		if filters.Status != "" {
			query += fmt.Sprintf(" AND status = $%d", argCount)
			args = append(args, filters.Status)
			argCount++
		}
		if filters.Severity != "" {
			query += fmt.Sprintf(" AND severity = $%d", argCount)
			args = append(args, filters.Severity)
			argCount++
		}
	}

	query += " ORDER BY created_at DESC"

	alerts := []*model.CrisisAlert{}
	if err := r.db.SelectContext(ctx, &alerts, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list crisis alerts: %w", err)
	}
	return alerts, nil
}

// Acknowledge is conditional on the row still being open, so a
// concurrent duplicate acknowledgement updates nothing and the caller
// can report the state as already moved on.
func (r *crisisAlertRepository) Acknowledge(ctx context.Context, alertID string, responder *uuid.UUID, at time.Time) (bool, error) {
	query := `
		UPDATE crisis_alerts
		SET status = $1, responder_ref = $2, responded_at = $3
		WHERE alert_id = $4 AND status = $5
	`
	result, err := r.db.ExecContext(ctx, query,
		model.AlertStatusAcknowledged, responder, at, alertID, model.AlertStatusOpen)
	if err != nil {
		return false, fmt.Errorf("failed to acknowledge alert: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}

func (r *crisisAlertRepository) Transition(ctx context.Context, alertID string, from, to model.AlertStatus, at time.Time) (bool, error) {
	query := `
		UPDATE crisis_alerts
		SET status = $1,
			resolved_at = CASE WHEN $1 = 'resolved' THEN $2 ELSE resolved_at END
		WHERE alert_id = $3 AND status = $4
	`
	result, err := r.db.ExecContext(ctx, query, to, at, alertID, from)
	if err != nil {
		return false, fmt.Errorf("failed to transition alert: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}

func (r *crisisAlertRepository) ListOpenPastDeadline(ctx context.Context, now time.Time) ([]*model.CrisisAlert, error) {
	query := `
		SELECT id, alert_id, student_ref, severity, source, ai_confidence,
			   keywords_trigger, status, responder_ref, created_at,
			   responded_at, resolved_at, sla_deadline
		FROM crisis_alerts
		WHERE status = 'open'
		AND sla_deadline < $1
		ORDER BY sla_deadline ASC
	`
	alerts := []*model.CrisisAlert{}
	if err := r.db.SelectContext(ctx, &alerts, query, now); err != nil {
		return nil, fmt.Errorf("failed to list breached alerts: %w", err)
	}
	return alerts, nil
}
