package models

import "time"

// SearchResult is one raw hit from the web-search provider (or the heuristic
// fallback) before ingestion.
type SearchResult struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	// FullContent carries page text when the provider supplies it; the
	// heuristic fallback leaves it empty and the snippet stands in.
	FullContent string `json:"full_content,omitempty"`
}

// ExternalDoc is a cached, embedded external document keyed by URL.
type ExternalDoc struct {
	URL         string    `json:"url"`
	Domain      string    `json:"domain,omitempty"`
	Title       string    `json:"title"`
	ContentText string    `json:"content_text"`
	ContentHash string    `json:"content_hash"`
	FetchedAt   time.Time `json:"fetched_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// SearchAudit records one external search invocation for reproducibility.
type SearchAudit struct {
	QueryText           string    `json:"query_text"`
	NormalizedQueryHash string    `json:"normalized_query_hash"`
	ProviderUsed        string    `json:"provider_used"`
	ResultCount         int       `json:"result_count"`
	CreatedAt           time.Time `json:"created_at"`
}

// KnowledgeModule is one business-process module with its mandatory fields,
// as handed to the validation prompt.
type KnowledgeModule struct {
	Description     string   `json:"description"`
	MandatoryFields []string `json:"mandatory_fields"`
}

// KnowledgeBase maps module name to its description and mandatory fields.
type KnowledgeBase map[string]KnowledgeModule
