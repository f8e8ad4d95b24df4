// Package models defines the shared domain types passed between the store,
// the pipelines, and the API layer. Pipelines hold these values by copy; no
// shared mutable state crosses an activity boundary.
package models

import "time"

// ValidationStatus is the terminal classification of a validation run.
type ValidationStatus string

// Validation statuses.
const (
	StatusComplete   ValidationStatus = "complete"
	StatusIncomplete ValidationStatus = "incomplete"
	StatusError      ValidationStatus = "error"
)

// Priority is the heuristic ticket priority.
type Priority string

// Priority levels.
const (
	PriorityP1 Priority = "P1"
	PriorityP2 Priority = "P2"
	PriorityP3 Priority = "P3"
)

// TicketContext bundles everything extracted from a ticket, ready for the
// model to analyze. Image attachments are passed to vision-capable providers
// verbatim; non-image attachments have already been OCR'd into BundledText.
type TicketContext struct {
	TicketKey        string   `json:"ticket_key"`
	BundledText      string   `json:"bundled_text"`
	ReporterID       string   `json:"reporter_id,omitempty"`
	ImageAttachments [][]byte `json:"image_attachments,omitempty"`
}

// LLMVerdict is the structured result of the validation pipeline for one
// ticket: the model's verdict enriched with priority, vagueness and
// duplicate-detection signals.
type LLMVerdict struct {
	Module           string           `json:"module"`
	ValidationStatus ValidationStatus `json:"validation_status"`
	MissingFields    []string         `json:"missing_fields"`
	Confidence       float64          `json:"confidence"`
	LLMProviderModel string           `json:"llm_provider_model"`
	Priority         Priority         `json:"priority,omitempty"`
	IsVague          bool             `json:"is_vague,omitempty"`
	VaguenessReason  string           `json:"vagueness_reason,omitempty"`
	DuplicateOf      string           `json:"duplicate_of,omitempty"`
	ErrorMessage     string           `json:"error_message,omitempty"`
	// ContextHint is the keyword-based module classification computed
	// independently of the model; it backfills Module when the model could
	// not classify.
	ContextHint string `json:"context_hint,omitempty"`
	// Entities are the structured field values extracted from the raw
	// ticket text by regex, surfaced to reviewers alongside the verdict.
	Entities map[string]string `json:"entities,omitempty"`
}

// ValidationRecord is the persisted verdict for a ticket key. Exactly one row
// exists per ticket key; re-validation upserts in place.
type ValidationRecord struct {
	TicketKey        string           `json:"ticket_key"`
	Module           string           `json:"module"`
	Status           ValidationStatus `json:"status"`
	MissingFields    []string         `json:"missing_fields"`
	Confidence       float64          `json:"confidence"`
	LLMProviderModel string           `json:"llm_provider_model"`
	Priority         Priority         `json:"priority,omitempty"`
	DuplicateOf      string           `json:"duplicate_of,omitempty"`
	ValidatedAt      time.Time        `json:"validated_at"`
	// Escalate is derived on read: confidence below the escalation floor.
	Escalate bool `json:"escalate"`
}

// SolvedTicket is one entry of the retrieval corpus.
type SolvedTicket struct {
	TicketKey   string `json:"ticket_key"`
	Summary     string `json:"summary"`
	Description string `json:"description,omitempty"`
	Resolution  string `json:"resolution"`
}

// SimilarTicket is a retrieval hit: a solved ticket plus its L2 distance to
// the query embedding.
type SimilarTicket struct {
	TicketKey  string  `json:"ticket_key"`
	Summary    string  `json:"summary"`
	Resolution string  `json:"resolution"`
	Distance   float64 `json:"distance"`
}
