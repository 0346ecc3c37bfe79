package crisis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/campuswell/counseling-api/internal/model"
)

func TestComputeSeverity(t *testing.T) {
	tests := []struct {
		name       string
		confidence int
		keywords   []string
		requested  *model.CrisisSeverity
		want       model.CrisisSeverity
	}{
		{"high confidence with hard trigger", 95, []string{"suicide"}, nil, model.SeverityCritical},
		{"exactly at critical threshold", 90, []string{"self-harm"}, nil, model.SeverityCritical},
		{"hard trigger keyword case insensitive", 92, []string{"  Suicidal  "}, nil, model.SeverityCritical},
		{"high confidence without trigger", 95, nil, nil, model.SeverityHigh},
		{"trigger without confidence", 60, []string{"suicide"}, nil, model.SeverityMedium},
		{"high threshold", 75, nil, nil, model.SeverityHigh},
		{"medium threshold", 50, nil, nil, model.SeverityMedium},
		{"just below medium", 49, nil, nil, model.SeverityLow},
		{"low confidence no keywords", 40, nil, nil, model.SeverityLow},
		{"zero confidence", 0, nil, nil, model.SeverityLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeSeverity(tt.confidence, tt.keywords, tt.requested))
		})
	}
}

func TestComputeSeverityRequestedOnlyRaises(t *testing.T) {
	critical := model.SeverityCritical
	low := model.SeverityLow

	// A caller may escalate a weak signal.
	assert.Equal(t, model.SeverityCritical, ComputeSeverity(40, nil, &critical))

	// A caller may never downgrade a strong one.
	assert.Equal(t, model.SeverityCritical, ComputeSeverity(95, []string{"suicide"}, &low))
	assert.Equal(t, model.SeverityHigh, ComputeSeverity(80, nil, &low))
}
