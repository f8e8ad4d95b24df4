package models

import "time"

// SourceType distinguishes retrieval evidence origins.
type SourceType string

// Source types.
const (
	SourceInternal SourceType = "internal"
	SourceExternal SourceType = "external"
)

// Source is a normalized evidence record handed to the synthesis prompt.
// Internal sources come from the solved-ticket corpus; external sources from
// the ingested web results. DisplayRef is the citation token the model is
// instructed to use ("INT:<ticket_key>" or "WEB:<n>").
type Source struct {
	SourceType SourceType `json:"source_type"`
	TicketKey  string     `json:"ticket_key,omitempty"`
	URL        string     `json:"url,omitempty"`
	Title      string     `json:"title,omitempty"`
	Summary    string     `json:"summary"`
	Resolution string     `json:"resolution"`
	Distance   *float64   `json:"distance,omitempty"`
	DisplayRef string     `json:"display_ref"`
}

// GuardrailIssue is one finding from the solution guardrail.
type GuardrailIssue struct {
	Severity       string `json:"severity"` // "warning" or "error"
	Message        string `json:"message"`
	ParagraphIndex int    `json:"paragraph_index"`
}

// Solution is one synthesized resolution alternative after guardrail
// validation and confidence scoring.
type Solution struct {
	SolutionText     string           `json:"solution_text"`
	Confidence       float64          `json:"confidence"`
	LLMProviderModel string           `json:"llm_provider_model"`
	Sources          []string         `json:"sources"`
	Reasoning        string           `json:"reasoning,omitempty"`
	ValidationIssues []GuardrailIssue `json:"validation_issues"`
	GuardrailValid   bool             `json:"guardrail_valid"`
}

// ResolutionRecord is the append-only audit row for a posted solution.
type ResolutionRecord struct {
	ID               int64     `json:"id"`
	TicketKey        string    `json:"ticket_key"`
	SolutionPosted   string    `json:"solution_posted"`
	LLMProviderModel string    `json:"llm_provider_model"`
	Sources          []string  `json:"sources"`
	Reasoning        string    `json:"reasoning,omitempty"`
	DraftID          *int64    `json:"draft_id,omitempty"`
	ResolvedAt       time.Time `json:"resolved_at"`
}

// Draft is a human-authored solution draft.
type Draft struct {
	ID        int64     `json:"id"`
	TicketKey string    `json:"ticket_key"`
	DraftText string    `json:"draft_text"`
	Author    string    `json:"author,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ImpactCounters aggregates the headline numbers for the dashboard.
type ImpactCounters struct {
	TicketsTriaged     int     `json:"tickets_triaged"`
	DuplicatesAvoided  int     `json:"duplicates_avoided"`
	SolutionsPosted    int     `json:"solutions_posted"`
	DraftsCreated      int     `json:"drafts_created"`
	EngineerHoursSaved float64 `json:"engineer_hours_saved"`
}
