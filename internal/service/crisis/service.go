package crisis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/campuswell/counseling-api/internal/model"
	"github.com/campuswell/counseling-api/internal/repository"
	apperrors "github.com/campuswell/counseling-api/pkg/errors"
	"github.com/campuswell/counseling-api/pkg/metrics"
)

type Service struct {
	repo    repository.CrisisAlertRepository
	outbox  repository.OutboxRepository
	metrics *metrics.Metrics
}

func NewService(repo repository.CrisisAlertRepository, outbox repository.OutboxRepository, m *metrics.Metrics) *Service {
	return &Service{
		repo:    repo,
		outbox:  outbox,
		metrics: m,
	}
}

// ClassifyAndCreateAlert computes severity from the signal, fixes the
// SLA deadline at creation and opens the alert. The deadline never
// changes afterwards regardless of clock reads.
func (s *Service) ClassifyAndCreateAlert(ctx context.Context, req *model.CreateCrisisAlertRequest) (*model.CrisisAlert, error) {
	studentRef, err := uuid.Parse(req.StudentID)
	if err != nil {
		return nil, apperrors.NewValidation("invalid student identifier", err)
	}

	source := model.ParseCrisisSource(req.Source)
	if !source.Valid() {
		return nil, apperrors.NewValidation(fmt.Sprintf("unknown source %q", req.Source), nil)
	}
	if req.AIConfidence < 0 || req.AIConfidence > 100 {
		return nil, apperrors.NewValidation("ai_confidence must be between 0 and 100", nil)
	}

	var requested *model.CrisisSeverity
	if req.Severity != nil {
		sv := model.CrisisSeverity(*req.Severity)
		if !sv.Valid() {
			return nil, apperrors.NewValidation(fmt.Sprintf("unknown severity %q", *req.Severity), nil)
		}
		requested = &sv
	}

	keywords := req.KeywordsTrigger
	if req.Type != "" {
		keywords = append(keywords, req.Type)
	}
	severity := ComputeSeverity(req.AIConfidence, keywords, requested)

	now := time.Now()
	alert := &model.CrisisAlert{
		AlertID:         newAlertID(now),
		StudentRef:      studentRef,
		Severity:        severity,
		Source:          source,
		AIConfidence:    req.AIConfidence,
		KeywordsTrigger: req.KeywordsTrigger,
		Status:          model.AlertStatusOpen,
		CreatedAt:       now,
		SLADeadline:     now.Add(severity.SLABudget()),
	}

	if err := s.repo.Create(ctx, alert); err != nil {
		return nil, fmt.Errorf("failed to create crisis alert: %w", err)
	}

	if s.metrics != nil {
		s.metrics.AlertsCreated.WithLabelValues(string(alert.Severity)).Inc()
	}
	s.emit(ctx, "crisis.created", alert)
	return alert, nil
}

// CreateFromBooking opens the alert linked to a crisis-urgency
// appointment. Manual source, high severity; a stronger concurrent
// signal from the analyzers arrives as its own alert.
func (s *Service) CreateFromBooking(ctx context.Context, studentID, appointmentID uuid.UUID) (*model.CrisisAlert, error) {
	now := time.Now()
	alert := &model.CrisisAlert{
		AlertID:         newAlertID(now),
		StudentRef:      studentID,
		Severity:        model.SeverityHigh,
		Source:          model.SourceManual,
		AIConfidence:    0,
		KeywordsTrigger: nil,
		Status:          model.AlertStatusOpen,
		CreatedAt:       now,
		SLADeadline:     now.Add(model.SeverityHigh.SLABudget()),
	}

	if err := s.repo.Create(ctx, alert); err != nil {
		return nil, fmt.Errorf("failed to create crisis alert for booking %s: %w", appointmentID, err)
	}

	if s.metrics != nil {
		s.metrics.AlertsCreated.WithLabelValues(string(alert.Severity)).Inc()
	}
	s.emit(ctx, "crisis.created", alert)
	return alert, nil
}

func (s *Service) GetAlert(ctx context.Context, alertID string) (*model.CrisisAlert, error) {
	alert, err := s.repo.GetByAlertID(ctx, alertID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFound("crisis alert")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get crisis alert: %w", err)
	}
	alert.SLABreached = alert.Breached(time.Now())
	return alert, nil
}

func (s *Service) ListAlerts(ctx context.Context, filters *model.AlertFilters) ([]*model.CrisisAlert, error) {
	if filters != nil {
		if filters.Status != "" && !filters.Status.Valid() {
			return nil, apperrors.NewValidation(fmt.Sprintf("unknown status %q", filters.Status), nil)
		}
		if filters.Severity != "" && !filters.Severity.Valid() {
			return nil, apperrors.NewValidation(fmt.Sprintf("unknown severity %q", filters.Severity), nil)
		}
	}

	alerts, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list crisis alerts: %w", err)
	}

	now := time.Now()
	for _, alert := range alerts {
		alert.SLABreached = alert.Breached(now)
	}
	return alerts, nil
}

// AcknowledgeAlert moves open -> acknowledged and stamps responded_at.
// A late acknowledgement is flagged as an SLA breach but never
// rejected: crisis response must not fail for being late.
func (s *Service) AcknowledgeAlert(ctx context.Context, alertID string, responderRef *uuid.UUID) (*model.CrisisAlert, error) {
	now := time.Now()

	updated, err := s.repo.Acknowledge(ctx, alertID, responderRef, now)
	if err != nil {
		return nil, fmt.Errorf("failed to acknowledge alert: %w", err)
	}
	if !updated {
		return nil, s.transitionError(ctx, alertID, model.AlertStatusAcknowledged)
	}

	alert, err := s.GetAlert(ctx, alertID)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.AckLatency.WithLabelValues(string(alert.Severity)).
			Observe(now.Sub(alert.CreatedAt).Seconds())
	}

	if alert.SLABreached {
		log.Warn().
			Str("alert_id", alert.AlertID).
			Str("severity", string(alert.Severity)).
			Time("sla_deadline", alert.SLADeadline).
			Time("responded_at", now).
			Msg("crisis alert acknowledged after SLA deadline")
	}
	return alert, nil
}

// StartProgress moves acknowledged -> in_progress.
func (s *Service) StartProgress(ctx context.Context, alertID string) (*model.CrisisAlert, error) {
	updated, err := s.repo.Transition(ctx, alertID, model.AlertStatusAcknowledged, model.AlertStatusInProgress, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to start progress on alert: %w", err)
	}
	if !updated {
		return nil, s.transitionError(ctx, alertID, model.AlertStatusInProgress)
	}
	return s.GetAlert(ctx, alertID)
}

// ResolveAlert moves acknowledged|in_progress -> resolved. Resolution
// stops breach reporting but the record is never deleted.
func (s *Service) ResolveAlert(ctx context.Context, alertID string) (*model.CrisisAlert, error) {
	now := time.Now()

	updated, err := s.repo.Transition(ctx, alertID, model.AlertStatusInProgress, model.AlertStatusResolved, now)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve alert: %w", err)
	}
	if !updated {
		updated, err = s.repo.Transition(ctx, alertID, model.AlertStatusAcknowledged, model.AlertStatusResolved, now)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve alert: %w", err)
		}
	}
	if !updated {
		return nil, s.transitionError(ctx, alertID, model.AlertStatusResolved)
	}
	return s.GetAlert(ctx, alertID)
}

// UpdateAlertStatus dispatches a requested forward transition to the
// matching operation; backward requests surface as invalid.
func (s *Service) UpdateAlertStatus(ctx context.Context, alertID string, newStatus model.AlertStatus, responderRef *uuid.UUID) (*model.CrisisAlert, error) {
	switch newStatus {
	case model.AlertStatusAcknowledged:
		return s.AcknowledgeAlert(ctx, alertID, responderRef)
	case model.AlertStatusInProgress:
		return s.StartProgress(ctx, alertID)
	case model.AlertStatusResolved:
		return s.ResolveAlert(ctx, alertID)
	case model.AlertStatusOpen:
		return nil, s.transitionError(ctx, alertID, model.AlertStatusOpen)
	default:
		return nil, apperrors.NewValidation(fmt.Sprintf("unknown status %q", newStatus), nil)
	}
}

// transitionError distinguishes a missing alert from a conditional
// write that found the row in a state it cannot leave.
func (s *Service) transitionError(ctx context.Context, alertID string, wanted model.AlertStatus) error {
	current, err := s.repo.GetByAlertID(ctx, alertID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("crisis alert")
	}
	if err != nil {
		return fmt.Errorf("failed to get crisis alert: %w", err)
	}
	return apperrors.NewInvalidTransition(string(current.Status), string(wanted))
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

func newAlertID(now time.Time) string {
	suffix := strings.Split(uuid.New().String(), "-")[0]
	return fmt.Sprintf("CRS-%s-%s", now.Format("20060102150405"), strings.ToUpper(suffix))
}
