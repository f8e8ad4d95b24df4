package websearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruchirkulkarni22/LensOra/pkg/models"
)

type fakeAudit struct {
	rows []models.SearchAudit
}

func (f *fakeAudit) InsertSearchAudit(_ context.Context, audit models.SearchAudit) error {
	f.rows = append(f.rows, audit)
	return nil
}

func TestSearch_DisabledReturnsEmpty(t *testing.T) {
	audit := &fakeAudit{}
	svc := NewService("", false, audit)

	results, err := svc.Search(context.Background(), "anything", 3)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Empty(t, audit.rows, "disabled search must not audit")
}

func TestSearch_HeuristicDeterministic(t *testing.T) {
	audit := &fakeAudit{}
	svc := NewService("", true, audit)
	text := "short\nThe longest line wins and becomes the first pseudo result\nmedium line here"

	first, err := svc.Search(context.Background(), text, 2)
	require.NoError(t, err)
	second, err := svc.Search(context.Background(), text, 2)
	require.NoError(t, err)

	assert.Equal(t, first, second, "heuristic results must be deterministic")
	require.Len(t, first, 2)
	assert.Contains(t, first[0].URL, "https://lensora.local/faux/")
	assert.Equal(t, "Heuristic Context 1", first[0].Title)
	assert.Contains(t, first[0].Snippet, "longest line")
}

func TestSearch_AuditRowPerCall(t *testing.T) {
	audit := &fakeAudit{}
	svc := NewService("", true, audit)

	_, err := svc.Search(context.Background(), "Error   500 on\nSubmit", 3)
	require.NoError(t, err)

	require.Len(t, audit.rows, 1)
	row := audit.rows[0]
	assert.Equal(t, ProviderHeuristic, row.ProviderUsed)
	assert.Len(t, row.NormalizedQueryHash, 64)
	assert.Equal(t, 2, row.ResultCount)
}

func TestSearch_TavilyFailureFallsBackToHeuristic(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	audit := &fakeAudit{}
	svc := NewService("tvly-key", true, audit)
	svc.OverrideHTTPClientForTest(&http.Client{Transport: rewriteTransport{target: server.URL}})

	results, err := svc.Search(context.Background(), "invoice stuck in approval queue", 3)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Contains(t, results[0].URL, "lensora.local")
	require.Len(t, audit.rows, 1)
	assert.Equal(t, ProviderHeuristic, audit.rows[0].ProviderUsed)
}

// rewriteTransport redirects every request to the test server.
type rewriteTransport struct {
	target string
}

func (rt rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	redirected, err := http.NewRequestWithContext(req.Context(), req.Method, rt.target, req.Body)
	if err != nil {
		return nil, err
	}
	redirected.Header = req.Header
	return http.DefaultTransport.RoundTrip(redirected)
}

func TestNormalizeQuery(t *testing.T) {
	assert.Equal(t, "error 500 on submit", NormalizeQuery("  Error   500 on\n\tSubmit "))
	long := strings.Repeat("x", 600)
	assert.Len(t, NormalizeQuery(long), 500)
}

func TestNeedExternal(t *testing.T) {
	tests := []struct {
		name      string
		distances []float64
		want      bool
	}{
		{"no internal results", nil, true},
		{"weak best hit", []float64{0.9, 0.95, 1.0}, true},
		{"strong uniform hits", []float64{0.3, 0.35, 0.4}, false},
		{"large gap ratio", []float64{0.1, 0.4}, true},
		{"single strong hit", []float64{0.2}, false},
		{"boundary best exactly 0.55", []float64{0.55, 0.6}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NeedExternal(tt.distances))
		})
	}
}

func TestHeuristicResults_SkipsBlankLines(t *testing.T) {
	results := HeuristicResults("\n\n  \nonly real line\n", 5)
	require.Len(t, results, 1)
	assert.Equal(t, "only real line", results[0].Snippet)
}
