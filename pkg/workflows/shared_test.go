package workflows

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruchirkulkarni22/LensOra/pkg/models"
)

func TestInflateVerdict_FromTypedValue(t *testing.T) {
	in := models.LLMVerdict{Module: "AP.Invoice", ValidationStatus: models.StatusComplete}
	out, err := InflateVerdict(in)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestInflateVerdict_FromGenericMap(t *testing.T) {
	out, err := InflateVerdict(map[string]any{
		"module":            "AP.Invoice",
		"validation_status": "incomplete",
		"missing_fields":    []any{"Invoice ID", "Amount"},
		"confidence":        0.75,
		"duplicate_of":      "K2",
	})
	require.NoError(t, err)
	assert.Equal(t, "AP.Invoice", out.Module)
	assert.Equal(t, models.StatusIncomplete, out.ValidationStatus)
	assert.Equal(t, []string{"Invoice ID", "Amount"}, out.MissingFields)
	assert.InDelta(t, 0.75, out.Confidence, 1e-9)
	assert.Equal(t, "K2", out.DuplicateOf)
}

func TestInflateTicketContext_FromPointer(t *testing.T) {
	in := &models.TicketContext{TicketKey: "LENS-1", BundledText: "text"}
	out, err := InflateTicketContext(in)
	require.NoError(t, err)
	assert.Equal(t, "LENS-1", out.TicketKey)
}

func TestInflateResolutionResult_FromGenericMap(t *testing.T) {
	out, err := InflateResolutionResult(map[string]any{
		"status":       "duplicate",
		"ticket_key":   "LENS-1",
		"duplicate_of": "K2",
	})
	require.NoError(t, err)
	assert.Equal(t, ResolutionStatusDuplicate, out.Status)
	assert.Equal(t, "K2", out.DuplicateOf)
}

func TestInflate_RejectsGarbage(t *testing.T) {
	_, err := InflateVerdict(make(chan int))
	assert.Error(t, err)
}
