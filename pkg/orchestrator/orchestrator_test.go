package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/client"

	"github.com/ruchirkulkarni22/LensOra/pkg/config"
	"github.com/ruchirkulkarni22/LensOra/pkg/jira"
	"github.com/ruchirkulkarni22/LensOra/pkg/models"
	"github.com/ruchirkulkarni22/LensOra/pkg/workflows"
)

type stubStore struct {
	resolutions int
}

func (s *stubStore) GetKnowledgeBase(context.Context) (models.KnowledgeBase, error) {
	return models.KnowledgeBase{}, nil
}
func (s *stubStore) UpsertValidation(context.Context, string, models.LLMVerdict) error { return nil }
func (s *stubStore) GetValidation(context.Context, string) (*models.ValidationRecord, error) {
	return nil, nil
}
func (s *stubStore) GetSolvedTicket(context.Context, string) (*models.SolvedTicket, error) {
	return nil, nil
}
func (s *stubStore) LogResolution(context.Context, models.ResolutionRecord) error {
	s.resolutions++
	return nil
}
func (s *stubStore) AddEvent(context.Context, string, models.EventType, string) error { return nil }

type stubRetriever struct{}

func (stubRetriever) FindSimilar(context.Context, string, int, *float64) ([]models.SimilarTicket, error) {
	return nil, nil
}
func (stubRetriever) FindPotentialDuplicate(context.Context, string, float64) (*models.SimilarTicket, error) {
	return nil, nil
}
func (stubRetriever) EmbedTexts(context.Context, []string) ([][]float32, error) { return nil, nil }

type stubModel struct{}

func (stubModel) Validate(context.Context, string, models.KnowledgeBase, [][]byte) models.LLMVerdict {
	return models.LLMVerdict{}
}
func (stubModel) SynthesizeAlternatives(context.Context, string, []models.Source, int) []models.Solution {
	return nil
}

type stubSearcher struct{}

func (stubSearcher) Search(context.Context, string, int) ([]models.SearchResult, error) {
	return nil, nil
}

type stubIngestor struct{}

func (stubIngestor) IngestResults(context.Context, []models.SearchResult) ([]models.Source, error) {
	return nil, nil
}

type stubTickets struct {
	comments int
}

func (s *stubTickets) GetTicketDetails(context.Context, string) (jira.TicketDetails, error) {
	return jira.TicketDetails{}, nil
}
func (s *stubTickets) SearchTickets(context.Context, string, int) ([]jira.TicketRef, error) {
	return nil, nil
}
func (s *stubTickets) DownloadAttachment(context.Context, string) ([]byte, error) { return nil, nil }
func (s *stubTickets) AddComment(context.Context, string, string) error {
	s.comments++
	return nil
}
func (s *stubTickets) CommentAndReassign(context.Context, string, string, string) error { return nil }

type stubExtractor struct{}

func (stubExtractor) ExtractText(context.Context, []byte, string) string { return "" }

func newOfflineOrchestrator(st *stubStore, tickets *stubTickets) *Orchestrator {
	activities := workflows.NewActivities(st, stubRetriever{}, stubModel{}, stubSearcher{}, stubIngestor{}, tickets, stubExtractor{})
	return NewWithDialer(
		config.TemporalConfig{Address: "localhost:7233", Namespace: "default", TaskQueue: "assistiq-task-queue"},
		activities,
		func(client.Options) (client.Client, error) { return nil, errors.New("connection refused") },
	)
}

func TestGenerateResolution_FallsBackInProcess(t *testing.T) {
	o := newOfflineOrchestrator(&stubStore{}, &stubTickets{})

	result, err := o.GenerateResolution(context.Background(), workflows.ResolutionInput{
		TicketKey:         "LENS-1",
		TicketBundledText: "Error.",
	})
	require.NoError(t, err)
	assert.Equal(t, workflows.ResolutionStatusNeedsMoreInfo, result.Status)
	assert.Contains(t, result.EngineError, "connection refused")
}

func TestPostResolution_FallsBackInProcess(t *testing.T) {
	st := &stubStore{}
	tickets := &stubTickets{}
	o := newOfflineOrchestrator(st, tickets)

	id, err := o.PostResolution(context.Background(), "LENS-1", workflows.SynthesizedSolution{
		SolutionText:     "Unlock the account.",
		LLMProviderModel: "human-approved",
	})
	require.NoError(t, err)
	assert.Equal(t, "in-process-fallback", id)
	assert.Equal(t, 1, tickets.comments)
	assert.Equal(t, 1, st.resolutions)
}

func TestStartValidateTicket_EngineDownErrors(t *testing.T) {
	o := newOfflineOrchestrator(&stubStore{}, &stubTickets{})
	err := o.StartValidateTicket(context.Background(), "LENS-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dial workflow engine")
}

func TestIsConnectionError(t *testing.T) {
	assert.True(t, IsConnectionError(errors.New("dial tcp 127.0.0.1:7233: connection refused")))
	assert.True(t, IsConnectionError(errors.New("rpc error: code = Unavailable")))
	assert.False(t, IsConnectionError(errors.New("workflow already completed")))
	assert.False(t, IsConnectionError(nil))
}

func TestHealthy_FalseBeforeDial(t *testing.T) {
	o := newOfflineOrchestrator(&stubStore{}, &stubTickets{})
	assert.False(t, o.Healthy(context.Background()))
}
