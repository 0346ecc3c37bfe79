package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type CrisisSeverity string

const (
	SeverityCritical CrisisSeverity = "critical"
	SeverityHigh     CrisisSeverity = "high"
	SeverityMedium   CrisisSeverity = "medium"
	SeverityLow      CrisisSeverity = "low"
)

var severityRank = map[CrisisSeverity]int{
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

func (s CrisisSeverity) Valid() bool {
	_, ok := severityRank[s]
	return ok
}

// MoreSevereThan orders severities; critical is most severe.
func (s CrisisSeverity) MoreSevereThan(other CrisisSeverity) bool {
	return severityRank[s] > severityRank[other]
}

// SLABudget is the response-time budget attached at creation.
func (s CrisisSeverity) SLABudget() time.Duration {
	switch s {
	case SeverityCritical:
		return 2 * time.Minute
	case SeverityHigh:
		return 15 * time.Minute
	case SeverityMedium:
		return 2 * time.Hour
	default:
		return 24 * time.Hour
	}
}

type CrisisSource string

const (
	SourceChat        CrisisSource = "chat"
	SourceForum       CrisisSource = "forum"
	SourceMoodTracker CrisisSource = "mood_tracker"
	SourceManual      CrisisSource = "manual"
)

// ParseCrisisSource canonicalizes the wire token; "mood-tracker" is
// accepted as an alias of the stored snake_case form.
func ParseCrisisSource(s string) CrisisSource {
	return CrisisSource(strings.ReplaceAll(s, "-", "_"))
}

func (s CrisisSource) Valid() bool {
	switch s {
	case SourceChat, SourceForum, SourceMoodTracker, SourceManual:
		return true
	}
	return false
}

type AlertStatus string

const (
	AlertStatusOpen         AlertStatus = "open"
	AlertStatusAcknowledged AlertStatus = "acknowledged"
	AlertStatusInProgress   AlertStatus = "in_progress"
	AlertStatusResolved     AlertStatus = "resolved"
)

// alertStatusRank encodes the forward-only protocol
// open -> acknowledged -> in_progress -> resolved.
var alertStatusRank = map[AlertStatus]int{
	AlertStatusOpen:         1,
	AlertStatusAcknowledged: 2,
	AlertStatusInProgress:   3,
	AlertStatusResolved:     4,
}

func (s AlertStatus) Valid() bool {
	_, ok := alertStatusRank[s]
	return ok
}

// CanTransitionTo permits only single forward steps, except that
// resolution is reachable from either acknowledged or in_progress.
func (s AlertStatus) CanTransitionTo(next AlertStatus) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	if next == AlertStatusResolved {
		return s == AlertStatusAcknowledged || s == AlertStatusInProgress
	}
	return alertStatusRank[next] == alertStatusRank[s]+1
}

type CrisisAlert struct {
	ID              uuid.UUID      `db:"id" json:"id"`
	AlertID         string         `db:"alert_id" json:"alert_id"`
	StudentRef      uuid.UUID      `db:"student_ref" json:"student_ref"`
	Severity        CrisisSeverity `db:"severity" json:"severity"`
	Source          CrisisSource   `db:"source" json:"source"`
	AIConfidence    int            `db:"ai_confidence" json:"ai_confidence"`
	KeywordsTrigger pq.StringArray `db:"keywords_trigger" json:"keywords_trigger"`
	Status          AlertStatus    `db:"status" json:"status"`
	ResponderRef    *uuid.UUID     `db:"responder_ref" json:"responder_ref,omitempty"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	RespondedAt     *time.Time     `db:"responded_at" json:"responded_at,omitempty"`
	ResolvedAt      *time.Time     `db:"resolved_at" json:"resolved_at,omitempty"`
	SLADeadline     time.Time      `db:"sla_deadline" json:"sla_deadline"`

	// SLABreached is a pure time predicate recomputed on read, never
	// stored, so reports cannot drift from the clock.
	SLABreached bool `db:"-" json:"sla_breached"`
}

// Breached reports whether the alert missed its response deadline:
// still unacknowledged past the deadline, or acknowledged after it.
func (a *CrisisAlert) Breached(now time.Time) bool {
	if a.RespondedAt != nil {
		return a.RespondedAt.After(a.SLADeadline)
	}
	if a.Status == AlertStatusOpen {
		return now.After(a.SLADeadline)
	}
	return false
}

type CreateCrisisAlertRequest struct {
	Severity        *string  `json:"severity" binding:"omitempty,oneof=critical high medium low"`
	Type            string   `json:"type" binding:"omitempty,max=64"`
	StudentID       string   `json:"student_id" binding:"required,uuid"`
	Source          string   `json:"source" binding:"required,oneof=chat forum mood_tracker mood-tracker manual"`
	AIConfidence    int      `json:"ai_confidence" binding:"min=0,max=100"`
	KeywordsTrigger []string `json:"keywords_trigger" binding:"omitempty,dive,max=64"`
}

type UpdateAlertStatusRequest struct {
	Status       string  `json:"status" binding:"required,oneof=open acknowledged in_progress resolved"`
	ResponderRef *string `json:"responder_ref" binding:"omitempty,uuid"`
}

type AlertFilters struct {
	Status   AlertStatus
	Severity CrisisSeverity
}
