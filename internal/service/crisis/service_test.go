package crisis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuswell/counseling-api/internal/model"
	"github.com/campuswell/counseling-api/internal/repository"
	apperrors "github.com/campuswell/counseling-api/pkg/errors"
	"github.com/campuswell/counseling-api/pkg/metrics"
)

// One registry per test binary; collectors register globally.
var testMetrics = metrics.NewMetrics("test", "crisis")

type fakeAlertRepo struct {
	mu     sync.Mutex
	alerts map[string]*model.CrisisAlert
}

func newFakeAlertRepo() *fakeAlertRepo {
	return &fakeAlertRepo{alerts: make(map[string]*model.CrisisAlert)}
}

func (r *fakeAlertRepo) Create(_ context.Context, alert *model.CrisisAlert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *alert
	r.alerts[alert.AlertID] = &stored
	return nil
}

func (r *fakeAlertRepo) GetByAlertID(_ context.Context, alertID string) (*model.CrisisAlert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	alert, ok := r.alerts[alertID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *alert
	return &clone, nil
}

func (r *fakeAlertRepo) List(_ context.Context, filters *model.AlertFilters) ([]*model.CrisisAlert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*model.CrisisAlert{}
	for _, alert := range r.alerts {
		if filters != nil {
			if filters.Status != "" && alert.Status != filters.Status {
				continue
			}
			if filters.Severity != "" && alert.Severity != filters.Severity {
				continue
			}
		}
		clone := *alert
		out = append(out, &clone)
	}
	return out, nil
}

func (r *fakeAlertRepo) Acknowledge(_ context.Context, alertID string, responder *uuid.UUID, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	alert, ok := r.alerts[alertID]
	if !ok || alert.Status != model.AlertStatusOpen {
		return false, nil
	}
	alert.Status = model.AlertStatusAcknowledged
	alert.ResponderRef = responder
	alert.RespondedAt = &at
	return true, nil
}

func (r *fakeAlertRepo) Transition(_ context.Context, alertID string, from, to model.AlertStatus, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	alert, ok := r.alerts[alertID]
	if !ok || alert.Status != from {
		return false, nil
	}
	alert.Status = to
	if to == model.AlertStatusResolved {
		alert.ResolvedAt = &at
	}
	return true, nil
}

func (r *fakeAlertRepo) ListOpenPastDeadline(_ context.Context, now time.Time) ([]*model.CrisisAlert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*model.CrisisAlert{}
	for _, alert := range r.alerts {
		if alert.Status == model.AlertStatusOpen && alert.SLADeadline.Before(now) {
			clone := *alert
			out = append(out, &clone)
		}
	}
	return out, nil
}

type fakeOutbox struct {
	mu     sync.Mutex
	events []*model.OutboxEvent
}

func (o *fakeOutbox) Create(_ context.Context, event *model.OutboxEvent) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, event)
	return nil
}

func (o *fakeOutbox) GetPendingEvents(context.Context, int) ([]*model.OutboxEvent, error) {
	return nil, nil
}

func (o *fakeOutbox) UpdateStatus(context.Context, uuid.UUID, model.OutboxStatus, *string, *time.Time) error {
	return nil
}

func (o *fakeOutbox) DeleteProcessedBefore(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func newTestService() (*Service, *fakeAlertRepo, *fakeOutbox) {
	repo := newFakeAlertRepo()
	outbox := &fakeOutbox{}
	return NewService(repo, outbox, testMetrics), repo, outbox
}

func TestClassifyAndCreateAlert(t *testing.T) {
	svc, _, outbox := newTestService()

	criticalBefore := testutil.ToFloat64(testMetrics.AlertsCreated.WithLabelValues("critical"))

	alert, err := svc.ClassifyAndCreateAlert(context.Background(), &model.CreateCrisisAlertRequest{
		StudentID:       uuid.New().String(),
		Source:          "chat",
		AIConfidence:    95,
		KeywordsTrigger: []string{"suicide"},
	})
	require.NoError(t, err)

	assert.Equal(t, model.SeverityCritical, alert.Severity)
	assert.Equal(t, model.AlertStatusOpen, alert.Status)
	assert.Equal(t, model.SourceChat, alert.Source)
	assert.NotEmpty(t, alert.AlertID)
	assert.Len(t, outbox.events, 1)
	assert.Equal(t, "crisis.created", outbox.events[0].EventType)
	assert.Equal(t, criticalBefore+1, testutil.ToFloat64(testMetrics.AlertsCreated.WithLabelValues("critical")))
}

func TestHyphenatedSourceAccepted(t *testing.T) {
	svc, _, _ := newTestService()

	alert, err := svc.ClassifyAndCreateAlert(context.Background(), &model.CreateCrisisAlertRequest{
		StudentID:    uuid.New().String(),
		Source:       "mood-tracker",
		AIConfidence: 55,
	})
	require.NoError(t, err)
	assert.Equal(t, model.SourceMoodTracker, alert.Source)
}

func TestSLADeadlineFixedAtCreation(t *testing.T) {
	svc, _, _ := newTestService()

	alert, err := svc.ClassifyAndCreateAlert(context.Background(), &model.CreateCrisisAlertRequest{
		StudentID:       uuid.New().String(),
		Source:          "chat",
		AIConfidence:    95,
		KeywordsTrigger: []string{"suicide"},
	})
	require.NoError(t, err)

	// Deadline derives from createdAt and severity only, independent
	// of any later clock reads.
	assert.Equal(t, alert.CreatedAt.Add(2*time.Minute), alert.SLADeadline)

	reread, err := svc.GetAlert(context.Background(), alert.AlertID)
	require.NoError(t, err)
	assert.Equal(t, alert.SLADeadline, reread.SLADeadline)
}

func TestClassifyValidation(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.ClassifyAndCreateAlert(context.Background(), &model.CreateCrisisAlertRequest{
		StudentID:    "not-a-uuid",
		Source:       "chat",
		AIConfidence: 50,
	})
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	_, err = svc.ClassifyAndCreateAlert(context.Background(), &model.CreateCrisisAlertRequest{
		StudentID:    uuid.New().String(),
		Source:       "carrier-pigeon",
		AIConfidence: 50,
	})
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestCreateFromBooking(t *testing.T) {
	svc, _, _ := newTestService()

	alert, err := svc.CreateFromBooking(context.Background(), uuid.New(), uuid.New())
	require.NoError(t, err)

	assert.Equal(t, model.SeverityHigh, alert.Severity)
	assert.Equal(t, model.SourceManual, alert.Source)
	assert.Equal(t, alert.CreatedAt.Add(15*time.Minute), alert.SLADeadline)
}

func TestAcknowledgeAlert(t *testing.T) {
	svc, _, _ := newTestService()

	created, err := svc.ClassifyAndCreateAlert(context.Background(), &model.CreateCrisisAlertRequest{
		StudentID:    uuid.New().String(),
		Source:       "forum",
		AIConfidence: 80,
	})
	require.NoError(t, err)

	responder := uuid.New()
	alert, err := svc.AcknowledgeAlert(context.Background(), created.AlertID, &responder)
	require.NoError(t, err)

	assert.Equal(t, model.AlertStatusAcknowledged, alert.Status)
	require.NotNil(t, alert.RespondedAt)
	assert.False(t, alert.SLABreached)

	// A second acknowledgement is a backward step.
	_, err = svc.AcknowledgeAlert(context.Background(), created.AlertID, &responder)
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidTransition))
}

func TestLateAcknowledgementIsFlaggedNotRejected(t *testing.T) {
	svc, repo, _ := newTestService()

	// Seed an alert whose deadline has long passed.
	past := time.Now().Add(-time.Hour)
	seeded := &model.CrisisAlert{
		AlertID:     "CRS-LATE",
		StudentRef:  uuid.New(),
		Severity:    model.SeverityCritical,
		Source:      model.SourceChat,
		Status:      model.AlertStatusOpen,
		CreatedAt:   past,
		SLADeadline: past.Add(2 * time.Minute),
	}
	require.NoError(t, repo.Create(context.Background(), seeded))

	alert, err := svc.AcknowledgeAlert(context.Background(), "CRS-LATE", nil)
	require.NoError(t, err, "crisis response must never be rejected for being late")
	assert.Equal(t, model.AlertStatusAcknowledged, alert.Status)
	assert.True(t, alert.SLABreached)
}

func TestResolvePaths(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	created, err := svc.ClassifyAndCreateAlert(ctx, &model.CreateCrisisAlertRequest{
		StudentID:    uuid.New().String(),
		Source:       "mood_tracker",
		AIConfidence: 60,
	})
	require.NoError(t, err)

	// Resolving an open alert skips acknowledgement.
	_, err = svc.ResolveAlert(ctx, created.AlertID)
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidTransition))

	_, err = svc.AcknowledgeAlert(ctx, created.AlertID, nil)
	require.NoError(t, err)

	// acknowledged -> in_progress -> resolved
	alert, err := svc.StartProgress(ctx, created.AlertID)
	require.NoError(t, err)
	assert.Equal(t, model.AlertStatusInProgress, alert.Status)

	alert, err = svc.ResolveAlert(ctx, created.AlertID)
	require.NoError(t, err)
	assert.Equal(t, model.AlertStatusResolved, alert.Status)
	assert.NotNil(t, alert.ResolvedAt)

	// Terminal: nothing moves a resolved alert.
	_, err = svc.UpdateAlertStatus(ctx, created.AlertID, model.AlertStatusOpen, nil)
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidTransition))
}

func TestResolveDirectlyFromAcknowledged(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	created, err := svc.ClassifyAndCreateAlert(ctx, &model.CreateCrisisAlertRequest{
		StudentID:    uuid.New().String(),
		Source:       "chat",
		AIConfidence: 55,
	})
	require.NoError(t, err)

	_, err = svc.AcknowledgeAlert(ctx, created.AlertID, nil)
	require.NoError(t, err)

	alert, err := svc.ResolveAlert(ctx, created.AlertID)
	require.NoError(t, err)
	assert.Equal(t, model.AlertStatusResolved, alert.Status)
}

func TestAlertNotFound(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.GetAlert(context.Background(), "CRS-MISSING")
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))

	_, err = svc.AcknowledgeAlert(context.Background(), "CRS-MISSING", nil)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestListAlertsComputesBreach(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	past := time.Now().Add(-time.Hour)
	require.NoError(t, repo.Create(ctx, &model.CrisisAlert{
		AlertID:     "CRS-BREACHED",
		StudentRef:  uuid.New(),
		Severity:    model.SeverityHigh,
		Source:      model.SourceChat,
		Status:      model.AlertStatusOpen,
		CreatedAt:   past,
		SLADeadline: past.Add(15 * time.Minute),
	}))
	require.NoError(t, repo.Create(ctx, &model.CrisisAlert{
		AlertID:     "CRS-FRESH",
		StudentRef:  uuid.New(),
		Severity:    model.SeverityLow,
		Source:      model.SourceForum,
		Status:      model.AlertStatusOpen,
		CreatedAt:   time.Now(),
		SLADeadline: time.Now().Add(24 * time.Hour),
	}))

	alerts, err := svc.ListAlerts(ctx, nil)
	require.NoError(t, err)
	require.Len(t, alerts, 2)

	byID := map[string]bool{}
	for _, a := range alerts {
		byID[a.AlertID] = a.SLABreached
	}
	assert.True(t, byID["CRS-BREACHED"])
	assert.False(t, byID["CRS-FRESH"])
}
