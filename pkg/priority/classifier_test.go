package priority

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ruchirkulkarni22/LensOra/pkg/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		summary     string
		description string
		want        models.Priority
	}{
		{"production outage", "Production down after deploy", "", models.PriorityP1},
		{"data loss", "", "We are seeing data loss in the ledger", models.PriorityP1},
		{"slow report", "Report is slow", "", models.PriorityP2},
		{"timeout", "", "Request timeout when posting invoice", models.PriorityP2},
		{"numeric error code", "Seeing error 50012 on submit", "", models.PriorityP2},
		{"plain request", "Please update the vendor address", "", models.PriorityP3},
		{"empty", "", "", models.PriorityP3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := Classify(tt.summary, tt.description)
			assert.Equal(t, tt.want, got)
			assert.NotEmpty(t, reason)
		})
	}
}

// P1 keywords must win even when P2 keywords are also present.
func TestClassify_P1WinsOverP2(t *testing.T) {
	got, reason := Classify("Outage: requests slow and failing with error 500", "")
	assert.Equal(t, models.PriorityP1, got)
	assert.Contains(t, reason, "outage")
}

func TestClassify_CaseInsensitive(t *testing.T) {
	got, _ := Classify("CRITICAL: ledger mismatch", "")
	assert.Equal(t, models.PriorityP1, got)
}

func TestClassify_NoKeywordsReason(t *testing.T) {
	_, reason := Classify("routine question", "how do I export")
	assert.Equal(t, "No priority keywords found", reason)
}
