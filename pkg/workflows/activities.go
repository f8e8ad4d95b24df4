package workflows

import (
	"context"

	"github.com/ruchirkulkarni22/LensOra/pkg/jira"
	"github.com/ruchirkulkarni22/LensOra/pkg/models"
	"github.com/ruchirkulkarni22/LensOra/pkg/notify"
	"github.com/ruchirkulkarni22/LensOra/pkg/ocr"
	"github.com/ruchirkulkarni22/LensOra/pkg/store"
)

// Store is the persistence surface the activities need.
type Store interface {
	GetKnowledgeBase(ctx context.Context) (models.KnowledgeBase, error)
	UpsertValidation(ctx context.Context, ticketKey string, verdict models.LLMVerdict) error
	GetValidation(ctx context.Context, ticketKey string) (*models.ValidationRecord, error)
	GetSolvedTicket(ctx context.Context, ticketKey string) (*models.SolvedTicket, error)
	LogResolution(ctx context.Context, rec models.ResolutionRecord) error
	AddEvent(ctx context.Context, ticketKey string, eventType models.EventType, message string) error
}

// Retriever is the retrieval surface the activities need.
type Retriever interface {
	FindSimilar(ctx context.Context, queryText string, k int, maxDistance *float64) ([]models.SimilarTicket, error)
	FindPotentialDuplicate(ctx context.Context, queryText string, threshold float64) (*models.SimilarTicket, error)
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// ModelService is the language-model surface the activities need.
type ModelService interface {
	Validate(ctx context.Context, bundle string, kb models.KnowledgeBase, images [][]byte) models.LLMVerdict
	SynthesizeAlternatives(ctx context.Context, ticketContext string, sources []models.Source, n int) []models.Solution
}

// Searcher runs external web searches.
type Searcher interface {
	Search(ctx context.Context, ticketText string, maxResults int) ([]models.SearchResult, error)
}

// Ingestor caches raw search results as evidence sources.
type Ingestor interface {
	IngestResults(ctx context.Context, raw []models.SearchResult) ([]models.Source, error)
}

// Activities carries the collaborators for every workflow activity. One
// instance is registered with the engine worker; the same instance backs
// the in-process fallback path.
type Activities struct {
	store    Store
	retrieve Retriever
	model    ModelService
	search   Searcher
	ingest   Ingestor
	tickets  jira.Client
	extract  ocr.Extractor
	notifier *notify.Service // nil-safe; nil when Slack is not configured
}

// NewActivities wires the activity set.
func NewActivities(
	st Store,
	retrieve Retriever,
	model ModelService,
	search Searcher,
	ingest Ingestor,
	tickets jira.Client,
	extract ocr.Extractor,
) *Activities {
	return &Activities{
		store:    st,
		retrieve: retrieve,
		model:    model,
		search:   search,
		ingest:   ingest,
		tickets:  tickets,
		extract:  extract,
	}
}

// SetNotifier attaches the optional Slack notifier.
func (a *Activities) SetNotifier(n *notify.Service) {
	a.notifier = n
}

// Compile-time check that the concrete store satisfies the activity surface.
var _ Store = (*store.Store)(nil)
