package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/campuswell/counseling-api/internal/model"
	"github.com/campuswell/counseling-api/internal/repository"
	"github.com/campuswell/counseling-api/pkg/logger"
	"github.com/campuswell/counseling-api/pkg/messaging"
	"github.com/campuswell/counseling-api/pkg/metrics"
	"github.com/campuswell/counseling-api/pkg/notify"
)

type EscalationWatcherConfig struct {
	PollInterval time.Duration
}

// EscalationWatcher surfaces open alerts past their SLA deadline.
// Breach is a time predicate recomputed every poll, never stored; the
// watcher only tracks which alerts it has already announced so the
// response team is paged once per breach, not once per tick.
type EscalationWatcher struct {
	repo     repository.CrisisAlertRepository
	outbox   repository.OutboxRepository
	notifier *notify.EmailNotifier
	config   EscalationWatcherConfig
	logger   *logger.Logger
	metrics  *metrics.Metrics

	announced map[string]struct{}
}

func NewEscalationWatcher(
	repo repository.CrisisAlertRepository,
	outbox repository.OutboxRepository,
	notifier *notify.EmailNotifier,
	config EscalationWatcherConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *EscalationWatcher {
	if config.PollInterval <= 0 {
		config.PollInterval = 15 * time.Second
	}
	return &EscalationWatcher{
		repo:      repo,
		outbox:    outbox,
		notifier:  notifier,
		config:    config,
		logger:    logger,
		metrics:   metrics,
		announced: make(map[string]struct{}),
	}
}

func (w *EscalationWatcher) Start(ctx context.Context) {
	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	w.logger.Info("starting escalation watcher", "poll_interval", w.config.PollInterval.String())

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("shutting down escalation watcher")
			return
		case <-ticker.C:
			if err := w.sweep(ctx); err != nil {
				w.logger.Error(err, "escalation sweep failed")
			}
		}
	}
}

func (w *EscalationWatcher) sweep(ctx context.Context) error {
	now := time.Now()

	breached, err := w.repo.ListOpenPastDeadline(ctx, now)
	if err != nil {
		return err
	}

	w.metrics.OpenPastSLA.Set(float64(len(breached)))

	for _, alert := range breached {
		if _, seen := w.announced[alert.AlertID]; seen {
			continue
		}
		w.announce(ctx, alert)
		w.announced[alert.AlertID] = struct{}{}
	}

	// Alerts that got acknowledged can be forgotten; a resolved alert
	// never re-enters the breached set.
	current := make(map[string]struct{}, len(breached))
	for _, alert := range breached {
		current[alert.AlertID] = struct{}{}
	}
	for id := range w.announced {
		if _, ok := current[id]; !ok {
			delete(w.announced, id)
		}
	}

	return nil
}

func (w *EscalationWatcher) announce(ctx context.Context, alert *model.CrisisAlert) {
	w.metrics.SLABreaches.WithLabelValues(string(alert.Severity)).Inc()

	w.logger.Warn("crisis alert past SLA deadline",
		"alert_id", alert.AlertID,
		"severity", string(alert.Severity),
		"sla_deadline", alert.SLADeadline.Format(time.RFC3339))

	payload, err := json.Marshal(map[string]interface{}{
		"alert_id":     alert.AlertID,
		"severity":     alert.Severity,
		"student_ref":  alert.StudentRef,
		"sla_deadline": alert.SLADeadline,
	})
	if err != nil {
		w.logger.Error(err, "failed to marshal breach payload", "alert_id", alert.AlertID)
		return
	}
	if err := w.outbox.Create(ctx, &model.OutboxEvent{
		EventType: messaging.ChannelCrisisBreached,
		Payload:   payload,
	}); err != nil {
		w.logger.Error(err, "failed to write breach event", "alert_id", alert.AlertID)
	}

	if w.notifier != nil {
		if err := w.notifier.SendBreach(alert.AlertID, string(alert.Severity), alert.SLADeadline); err != nil {
			w.logger.Error(err, "failed to send breach email", "alert_id", alert.AlertID)
		}
	}
}
