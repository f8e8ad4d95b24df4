// Package websearch abstracts the external web-search provider with a
// deterministic heuristic fallback, and ingests results into the cached,
// embedded external-document store.
package websearch

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/ruchirkulkarni22/LensOra/pkg/models"
)

// Provider identifiers written to the audit trail.
const (
	ProviderTavily    = "tavily"
	ProviderHeuristic = "heuristic"
)

const (
	tavilyEndpoint = "https://api.tavily.com/search"
	maxQueryLen    = 8000
	maxNormLen     = 500
	snippetLen     = 180
)

// AuditStore records search invocations for reproducibility.
type AuditStore interface {
	InsertSearchAudit(ctx context.Context, audit models.SearchAudit) error
}

// Service performs external searches. When no Tavily credential is
// configured — or the provider fails for any reason — it degrades to a
// deterministic heuristic that fabricates stable pseudo-results from the
// query text itself, so downstream synthesis always has a uniform shape to
// work with.
type Service struct {
	apiKey  string
	enabled bool
	client  *http.Client
	audit   AuditStore
}

// NewService creates a search service. audit may not be nil.
func NewService(apiKey string, enabled bool, audit AuditStore) *Service {
	return &Service{
		apiKey:  apiKey,
		enabled: enabled,
		client:  &http.Client{Timeout: 25 * time.Second},
		audit:   audit,
	}
}

// OverrideHTTPClientForTest replaces the provider HTTP client. Testing only.
func (s *Service) OverrideHTTPClientForTest(client *http.Client) {
	s.client = client
}

var whitespaceRE = regexp.MustCompile(`\s+`)

// NormalizeQuery lowercases, collapses whitespace and bounds the query for
// audit hashing.
func NormalizeQuery(text string) string {
	norm := whitespaceRE.ReplaceAllString(strings.ToLower(strings.TrimSpace(text)), " ")
	if len(norm) > maxNormLen {
		norm = norm[:maxNormLen]
	}
	return norm
}

// Search returns up to maxResults hits for the ticket text. Every call —
// provider or heuristic — writes one audit row. Returns an empty slice when
// search is disabled.
func (s *Service) Search(ctx context.Context, ticketText string, maxResults int) ([]models.SearchResult, error) {
	if !s.enabled {
		return []models.SearchResult{}, nil
	}

	query := strings.TrimSpace(ticketText)
	if len(query) > maxQueryLen {
		query = query[:maxQueryLen]
	}
	hash := sha256.Sum256([]byte(NormalizeQuery(query)))
	normHash := hex.EncodeToString(hash[:])

	if s.apiKey != "" {
		results, err := s.searchTavily(ctx, query, maxResults)
		if err != nil {
			slog.Warn("Tavily search failed, falling back to heuristic", "error", err)
		} else if len(results) > 0 {
			s.writeAudit(ctx, query, normHash, ProviderTavily, len(results))
			return results, nil
		}
	}

	results := HeuristicResults(ticketText, maxResults)
	s.writeAudit(ctx, query, normHash, ProviderHeuristic, len(results))
	return results, nil
}

func (s *Service) writeAudit(ctx context.Context, query, normHash, provider string, count int) {
	err := s.audit.InsertSearchAudit(ctx, models.SearchAudit{
		QueryText:           query,
		NormalizedQueryHash: normHash,
		ProviderUsed:        provider,
		ResultCount:         count,
	})
	if err != nil {
		slog.Error("Search audit insert failed", "error", err)
	}
}

type tavilyRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	MaxResults  int    `json:"max_results"`
	SearchDepth string `json:"search_depth"`
}

type tavilyResponse struct {
	Results []struct {
		URL     string `json:"url"`
		Title   string `json:"title"`
		Content string `json:"content"`
	} `json:"results"`
}

func (s *Service) searchTavily(ctx context.Context, query string, maxResults int) ([]models.SearchResult, error) {
	body, err := json.Marshal(tavilyRequest{
		APIKey:      s.apiKey,
		Query:       query,
		MaxResults:  maxResults,
		SearchDepth: "advanced",
	})
	if err != nil {
		return nil, fmt.Errorf("marshal tavily request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tavilyEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build tavily request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tavily request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("tavily returned %d: %s", resp.StatusCode, string(payload))
	}

	var parsed tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode tavily response: %w", err)
	}

	results := make([]models.SearchResult, 0, maxResults)
	for _, r := range parsed.Results {
		if len(results) == maxResults {
			break
		}
		title := r.Title
		if title == "" {
			title = "Untitled"
		}
		snippet := r.Content
		if len(snippet) > 600 {
			snippet = snippet[:600]
		}
		results = append(results, models.SearchResult{
			URL:         r.URL,
			Title:       title,
			Snippet:     snippet,
			FullContent: r.Content,
		})
	}
	return results, nil
}

// HeuristicResults fabricates deterministic pseudo-results: the top-N
// longest non-empty lines of the query, hashed into stable local URLs.
func HeuristicResults(ticketText string, maxResults int) []models.SearchResult {
	var lines []string
	for _, l := range strings.Split(ticketText, "\n") {
		if trimmed := strings.TrimSpace(l); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	sort.SliceStable(lines, func(i, j int) bool { return len(lines[i]) > len(lines[j]) })
	if len(lines) > maxResults {
		lines = lines[:maxResults]
	}

	results := make([]models.SearchResult, 0, len(lines))
	for i, line := range lines {
		h := sha256.Sum256([]byte(line))
		snippet := line
		if len(snippet) > snippetLen {
			snippet = snippet[:snippetLen]
		}
		results = append(results, models.SearchResult{
			URL:     fmt.Sprintf("https://lensora.local/faux/%s", hex.EncodeToString(h[:])[:10]),
			Title:   fmt.Sprintf("Heuristic Context %d", i+1),
			Snippet: snippet,
		})
	}
	return results
}
