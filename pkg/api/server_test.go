package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/client"

	"github.com/ruchirkulkarni22/LensOra/pkg/config"
	"github.com/ruchirkulkarni22/LensOra/pkg/database"
	"github.com/ruchirkulkarni22/LensOra/pkg/jira"
	"github.com/ruchirkulkarni22/LensOra/pkg/models"
	"github.com/ruchirkulkarni22/LensOra/pkg/orchestrator"
	"github.com/ruchirkulkarni22/LensOra/pkg/rag"
	"github.com/ruchirkulkarni22/LensOra/pkg/store"
	"github.com/ruchirkulkarni22/LensOra/pkg/workflows"
)

// --- fakes ---

type fakeTicketClient struct {
	details jira.TicketDetails
	err     error
}

func (f *fakeTicketClient) GetTicketDetails(context.Context, string) (jira.TicketDetails, error) {
	return f.details, f.err
}
func (f *fakeTicketClient) SearchTickets(context.Context, string, int) ([]jira.TicketRef, error) {
	return nil, nil
}
func (f *fakeTicketClient) DownloadAttachment(context.Context, string) ([]byte, error) {
	return nil, nil
}
func (f *fakeTicketClient) AddComment(context.Context, string, string) error { return nil }
func (f *fakeTicketClient) CommentAndReassign(context.Context, string, string, string) error {
	return nil
}

type fakeWFStore struct{}

func (fakeWFStore) GetKnowledgeBase(context.Context) (models.KnowledgeBase, error) {
	return models.KnowledgeBase{}, nil
}
func (fakeWFStore) UpsertValidation(context.Context, string, models.LLMVerdict) error { return nil }
func (fakeWFStore) GetValidation(context.Context, string) (*models.ValidationRecord, error) {
	return nil, nil
}
func (fakeWFStore) GetSolvedTicket(context.Context, string) (*models.SolvedTicket, error) {
	return nil, nil
}
func (fakeWFStore) LogResolution(context.Context, models.ResolutionRecord) error { return nil }
func (fakeWFStore) AddEvent(context.Context, string, models.EventType, string) error {
	return nil
}

type fakeWFRetriever struct{}

func (fakeWFRetriever) FindSimilar(context.Context, string, int, *float64) ([]models.SimilarTicket, error) {
	return nil, nil
}
func (fakeWFRetriever) FindPotentialDuplicate(context.Context, string, float64) (*models.SimilarTicket, error) {
	return nil, nil
}
func (fakeWFRetriever) EmbedTexts(context.Context, []string) ([][]float32, error) { return nil, nil }

type fakeWFModel struct{}

func (fakeWFModel) Validate(context.Context, string, models.KnowledgeBase, [][]byte) models.LLMVerdict {
	return models.LLMVerdict{ValidationStatus: models.StatusComplete}
}
func (fakeWFModel) SynthesizeAlternatives(context.Context, string, []models.Source, int) []models.Solution {
	return nil
}

type fakeWFSearcher struct{}

func (fakeWFSearcher) Search(context.Context, string, int) ([]models.SearchResult, error) {
	return nil, nil
}

type fakeWFIngestor struct{}

func (fakeWFIngestor) IngestResults(context.Context, []models.SearchResult) ([]models.Source, error) {
	return nil, nil
}

type fakeWFExtractor struct{}

func (fakeWFExtractor) ExtractText(context.Context, []byte, string) string { return "" }

// --- harness ---

type testServer struct {
	server *Server
	mock   sqlmock.Sqlmock
}

func newTestServer(t *testing.T, tickets jira.Client) *testServer {
	t.Helper()

	db, mock, err := sqlmock.New(
		sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp),
		sqlmock.MonitorPingsOption(true),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	st := store.New(db)
	ragService := rag.NewService(nil, rag.NewLazyEmbedder(func() (rag.Embedder, error) {
		return rag.NewHashEmbedder(), nil
	}))

	activities := workflows.NewActivities(
		fakeWFStore{}, fakeWFRetriever{}, fakeWFModel{}, fakeWFSearcher{}, fakeWFIngestor{},
		tickets, fakeWFExtractor{})

	// Engine always unreachable: API paths exercise the in-process fallback.
	orch := orchestrator.NewWithDialer(config.TemporalConfig{Address: "localhost:7233", Namespace: "default", TaskQueue: "assistiq-task-queue"},
		activities,
		func(client.Options) (client.Client, error) { return nil, errors.New("dial tcp: connection refused") })

	cfg := &config.Config{HTTPPort: "8000", LLM: config.LLMConfig{FallbackChain: []string{"gemini-2.0-flash"}}}

	srv := NewServer(cfg, database.NewClientFromDB(db), st, ragService, orch, tickets, nil)
	return &testServer{server: srv, mock: mock}
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.server.Echo().ServeHTTP(rec, req)
	return rec
}

// --- tests ---

func TestJiraWebhook_Always200(t *testing.T) {
	ts := newTestServer(t, &fakeTicketClient{})

	body := `{"webhookEvent":"jira:issue_created","issue":{"key":"LENS-1"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/jira-webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := ts.do(req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Unknown events are acknowledged too.
	req = httptest.NewRequest(http.MethodPost, "/api/jira-webhook", strings.NewReader(`{"webhookEvent":"comment_created"}`))
	req.Header.Set("Content-Type", "application/json")
	rec = ts.do(req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTriggerValidation_EngineDown500(t *testing.T) {
	ts := newTestServer(t, &fakeTicketClient{})

	rec := ts.do(httptest.NewRequest(http.MethodPost, "/api/trigger-validation/LENS-1", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "failed to start workflow")
}

func TestGenerateSolutions_FallbackNeedsMoreInfo(t *testing.T) {
	ts := newTestServer(t, &fakeTicketClient{details: jira.TicketDetails{Summary: "Err", Description: ""}})

	rec := ts.do(httptest.NewRequest(http.MethodPost, "/api/generate-solutions/LENS-1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var result workflows.ResolutionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, workflows.ResolutionStatusNeedsMoreInfo, result.Status)
	assert.Len(t, result.FollowUpQuestions, 4)
	assert.NotEmpty(t, result.EngineError, "fallback results echo the engine error")
}

func TestGenerateSolutions_RateLimitWindow(t *testing.T) {
	ts := newTestServer(t, &fakeTicketClient{details: jira.TicketDetails{Summary: "Err"}})

	first := ts.do(httptest.NewRequest(http.MethodPost, "/api/generate-solutions/LENS-1", nil))
	require.Equal(t, http.StatusOK, first.Code)

	second := ts.do(httptest.NewRequest(http.MethodPost, "/api/generate-solutions/LENS-1", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestGenerateSolutions_InFlight409(t *testing.T) {
	ts := newTestServer(t, &fakeTicketClient{details: jira.TicketDetails{Summary: "Err"}})

	require.NoError(t, ts.server.guard.begin("LENS-9"))
	rec := ts.do(httptest.NewRequest(http.MethodPost, "/api/generate-solutions/LENS-9", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSolutionsCache(t *testing.T) {
	ts := newTestServer(t, &fakeTicketClient{details: jira.TicketDetails{Summary: "Err"}})

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/solutions-cache/LENS-1", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	gen := ts.do(httptest.NewRequest(http.MethodPost, "/api/generate-solutions/LENS-1", nil))
	require.Equal(t, http.StatusOK, gen.Code)

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/api/solutions-cache/LENS-1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "needs_more_info")
}

func TestSaveDraft_RequiresText(t *testing.T) {
	ts := newTestServer(t, &fakeTicketClient{})

	req := httptest.NewRequest(http.MethodPost, "/api/save-draft/LENS-1", strings.NewReader(`{"draft_text":"  "}`))
	req.Header.Set("Content-Type", "application/json")
	rec := ts.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostSolution_InProcessFallback(t *testing.T) {
	ts := newTestServer(t, &fakeTicketClient{})

	ts.mock.ExpectQuery(`SELECT ticket_key, module, status`).
		WithArgs("LENS-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"ticket_key", "module", "status", "missing_fields", "confidence",
			"llm_provider_model", "priority", "duplicate_of", "validated_at",
		}).AddRow("LENS-1", "AP.Invoice", "complete", []byte(`[]`), 0.9, "gemini-2.0-flash", "P3", "", time.Now()))

	body := `{"solution_text":"Unlock the account. [INT:K2]"}`
	req := httptest.NewRequest(http.MethodPost, "/api/post-solution/LENS-1", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := ts.do(req)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), "in-process-fallback")
}

func TestPostSolution_RejectedWithoutCompleteValidation(t *testing.T) {
	ts := newTestServer(t, &fakeTicketClient{})

	ts.mock.ExpectQuery(`SELECT ticket_key, module, status`).
		WithArgs("LENS-2").
		WillReturnRows(sqlmock.NewRows([]string{
			"ticket_key", "module", "status", "missing_fields", "confidence",
			"llm_provider_model", "priority", "duplicate_of", "validated_at",
		}))

	req := httptest.NewRequest(http.MethodPost, "/api/post-solution/LENS-2",
		strings.NewReader(`{"solution_text":"fix it"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := ts.do(req)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func multipartUpload(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestUploadKnowledge_WrongExtension400(t *testing.T) {
	ts := newTestServer(t, &fakeTicketClient{})

	buf, contentType := multipartUpload(t, "file", "knowledge.txt", "module_name,field_name\n")
	req := httptest.NewRequest(http.MethodPost, "/api/upload-knowledge", buf)
	req.Header.Set("Content-Type", contentType)
	rec := ts.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid file format")
}

func TestUploadKnowledge_MissingColumns400(t *testing.T) {
	ts := newTestServer(t, &fakeTicketClient{})

	buf, contentType := multipartUpload(t, "file", "knowledge.csv", "module_name,other\nAP.Invoice,x\n")
	req := httptest.NewRequest(http.MethodPost, "/api/upload-knowledge", buf)
	req.Header.Set("Content-Type", contentType)
	rec := ts.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "field_name")
}

func TestUploadKnowledge_CSVSuccess(t *testing.T) {
	ts := newTestServer(t, &fakeTicketClient{})

	ts.mock.ExpectBegin()
	ts.mock.ExpectExec(`INSERT INTO modules_taxonomy`).WillReturnResult(sqlmock.NewResult(1, 1))
	ts.mock.ExpectExec(`INSERT INTO mandatory_field_templates`).WillReturnResult(sqlmock.NewResult(1, 1))
	ts.mock.ExpectCommit()

	buf, contentType := multipartUpload(t, "file", "knowledge.csv",
		"Module Name,Field Name\nAP.Invoice,Invoice ID\n")
	req := httptest.NewRequest(http.MethodPost, "/api/upload-knowledge", buf)
	req.Header.Set("Content-Type", contentType)
	rec := ts.do(req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp uploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.RowsProcessed)
	assert.Equal(t, 1, resp.RowsUpserted)
	assert.NoError(t, ts.mock.ExpectationsWereMet())
}

func TestHealth_ReportsFlags(t *testing.T) {
	ts := newTestServer(t, &fakeTicketClient{})
	ts.mock.ExpectPing()

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.DBOk)
	assert.False(t, resp.EngineOk, "engine never dialed")
	assert.False(t, resp.EmbeddingModelLoaded, "lazy embedder stays cold without warm=true")
	assert.True(t, resp.RetrievalOnlyMode, "no provider keys configured")
}

func TestHealth_WarmLoadsEmbedder(t *testing.T) {
	ts := newTestServer(t, &fakeTicketClient{})
	ts.mock.ExpectPing()

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/health?warm=true", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.EmbeddingModelLoaded)
}
