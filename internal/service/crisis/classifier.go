package crisis

import (
	"strings"

	"github.com/campuswell/counseling-api/internal/model"
)

// Confidence thresholds for severity tiers. Ties resolve toward the
// higher severity; under-escalating a crisis costs more than
// over-escalating one.
const (
	criticalConfidence = 90
	highConfidence     = 75
	mediumConfidence   = 50
)

// hardTriggerKeywords is the self-harm/suicide category. A match plus
// critical-level confidence forces the critical tier.
var hardTriggerKeywords = map[string]struct{}{
	"suicide":     {},
	"suicidal":    {},
	"kill myself": {},
	"end my life": {},
	"self-harm":   {},
	"self harm":   {},
	"cutting":     {},
	"overdose":    {},
}

func hasHardTrigger(keywords []string) bool {
	for _, kw := range keywords {
		if _, ok := hardTriggerKeywords[strings.ToLower(strings.TrimSpace(kw))]; ok {
			return true
		}
	}
	return false
}

// ComputeSeverity is the deterministic severity function:
// critical when confidence >= 90 and a hard-trigger keyword matched,
// high when confidence >= 75, medium when confidence >= 50, else low.
// A caller-supplied severity may raise the computed tier but never
// lower it.
func ComputeSeverity(aiConfidence int, keywords []string, requested *model.CrisisSeverity) model.CrisisSeverity {
	computed := model.SeverityLow
	switch {
	case aiConfidence >= criticalConfidence && hasHardTrigger(keywords):
		computed = model.SeverityCritical
	case aiConfidence >= highConfidence:
		computed = model.SeverityHigh
	case aiConfidence >= mediumConfidence:
		computed = model.SeverityMedium
	}

	if requested != nil && requested.Valid() && requested.MoreSevereThan(computed) {
		return *requested
	}
	return computed
}
