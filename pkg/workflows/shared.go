// Package workflows defines the durable workflow and activity code for
// ticket validation and resolution, plus the typed I/O that crosses the
// engine boundary.
package workflows

import (
	"encoding/json"
	"fmt"

	"github.com/ruchirkulkarni22/LensOra/pkg/models"
)

// Workflow names as registered with the engine.
const (
	WorkflowValidateTicket = "ValidateTicket"
	WorkflowFindResolution = "FindResolution"
	WorkflowPostResolution = "PostResolution"
)

// Activity names as registered with the engine.
const (
	ActivityFetchTicketContext  = "FetchTicketContext"
	ActivityGetLLMVerdict       = "GetLLMVerdict"
	ActivityLogValidationResult = "LogValidationResult"
	ActivityCommentAndReassign  = "CommentAndReassign"
	ActivityNotifyTicketInQueue = "NotifyTicketInQueue"
	ActivityFindAndSynthesize   = "FindAndSynthesizeSolutions"
	ActivityPostSolution        = "PostSolutionToTicket"
	ActivityLogResolution       = "LogResolution"
)

// TicketValidationInput starts a validation workflow.
type TicketValidationInput struct {
	TicketKey string `json:"ticket_key"`
}

// ResolutionInput starts a resolution workflow.
type ResolutionInput struct {
	TicketKey         string `json:"ticket_key"`
	TicketBundledText string `json:"ticket_bundled_text"`
}

// SynthesizedSolution is the human-approved payload posted back to the
// ticket platform.
type SynthesizedSolution struct {
	SolutionText     string   `json:"solution_text"`
	LLMProviderModel string   `json:"llm_provider_model"`
	Sources          []string `json:"sources,omitempty"`
	Reasoning        string   `json:"reasoning,omitempty"`
}

// PostResolutionInput starts a post-resolution workflow.
type PostResolutionInput struct {
	TicketKey string              `json:"ticket_key"`
	Solution  SynthesizedSolution `json:"solution"`
}

// Resolution result statuses.
const (
	ResolutionStatusSuccess         = "success"
	ResolutionStatusSuccessFallback = "success_fallback"
	ResolutionStatusDuplicate       = "duplicate"
	ResolutionStatusNeedsMoreInfo   = "needs_more_info"
)

// ResolutionResult is the full payload of a resolution generation, shaped
// for the admin UI.
type ResolutionResult struct {
	Status            string            `json:"status"`
	TicketKey         string            `json:"ticket_key"`
	Solutions         []models.Solution `json:"solutions,omitempty"`
	TicketContext     string            `json:"ticket_context,omitempty"`
	Escalate          bool              `json:"escalate"`
	DuplicateOf       string            `json:"duplicate_of,omitempty"`
	ResolutionPreview string            `json:"resolution_preview,omitempty"`
	FollowUpQuestions []string          `json:"follow_up_questions,omitempty"`
	// EngineError carries the original workflow-engine failure when the
	// result was produced by the in-process fallback path.
	EngineError string `json:"engine_error,omitempty"`
}

// inflate re-materializes a typed value from whatever shape the engine's
// payload converter produced — the typed struct itself or a generic object
// map. Typed values and non-nil pointers pass through; anything else takes
// one JSON round-trip.
func inflate[T any](raw any) (T, error) {
	var out T
	switch v := raw.(type) {
	case T:
		return v, nil
	case *T:
		if v != nil {
			return *v, nil
		}
		return out, fmt.Errorf("nil value for %T", out)
	default:
		data, err := json.Marshal(raw)
		if err != nil {
			return out, fmt.Errorf("marshal %T for inflation: %w", raw, err)
		}
		if err := json.Unmarshal(data, &out); err != nil {
			return out, fmt.Errorf("inflate %T: %w", out, err)
		}
		return out, nil
	}
}

// InflateTicketContext accepts a TicketContext or a generic map.
func InflateTicketContext(raw any) (models.TicketContext, error) {
	return inflate[models.TicketContext](raw)
}

// InflateVerdict accepts an LLMVerdict or a generic map.
func InflateVerdict(raw any) (models.LLMVerdict, error) {
	return inflate[models.LLMVerdict](raw)
}

// InflateResolutionResult accepts a ResolutionResult or a generic map.
func InflateResolutionResult(raw any) (ResolutionResult, error) {
	return inflate[ResolutionResult](raw)
}

// InflateSynthesizedSolution accepts a SynthesizedSolution or a generic map.
func InflateSynthesizedSolution(raw any) (SynthesizedSolution, error) {
	return inflate[SynthesizedSolution](raw)
}
