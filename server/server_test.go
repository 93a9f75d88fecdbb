package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksmt/ava/internal/models"
	"github.com/ksmt/ava/internal/types"
	"github.com/ksmt/ava/pkg/history"
	"github.com/ksmt/ava/pkg/knowledge"
	"github.com/ksmt/ava/pkg/orchestrator"
	"github.com/ksmt/ava/server"
)

type stubProvider struct {
	results []models.SearchResult
	err     error
}

func (s *stubProvider) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	return s.results, s.err
}

func newTestServer(t *testing.T, provider types.SearchProvider) *httptest.Server {
	t.Helper()

	kb := knowledge.NewMemoryStore(nil, knowledge.StoreConfig{})
	_, err := knowledge.Seed(context.Background(), kb, nil)
	require.NoError(t, err)

	store := history.NewMemoryStore()
	writer := history.NewWriter(store, 64, time.Second)
	t.Cleanup(writer.Close)

	orch, err := orchestrator.NewWithConfig(orchestrator.Options{
		KnowledgeBase:  kb,
		SearchProvider: provider,
		History:        store,
		Writer:         writer,
	}, types.OrchestratorConfig{SimilarityThreshold: 0.75})
	require.NoError(t, err)

	srv := server.New(server.Options{
		Orchestrator:   orch,
		KnowledgeBase:  kb,
		SearchProvider: provider,
		History:        store,
	})

	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestChatKnowledgeBaseHit(t *testing.T) {
	ts := newTestServer(t, &stubProvider{})

	resp := postJSON(t, ts.URL+"/chat", `{"message": "Tell me about artificial intelligence machines"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var reply models.Reply
	decode(t, resp, &reply)

	assert.Equal(t, models.SourceKnowledgeBase, reply.Source)
	assert.Contains(t, reply.Response, "Artificial Intelligence")
	assert.NotEmpty(t, reply.ChatID)
}

func TestChatMissingMessageField(t *testing.T) {
	ts := newTestServer(t, &stubProvider{})

	resp := postJSON(t, ts.URL+"/chat", `{"chat_id": "abc"}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestChatEmptyMessageIsValidationReply(t *testing.T) {
	ts := newTestServer(t, &stubProvider{})

	resp := postJSON(t, ts.URL+"/chat", `{"message": ""}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var reply models.Reply
	decode(t, resp, &reply)
	assert.Equal(t, models.SourceError, reply.Source)
}

func TestChatFallsBackToWebSearch(t *testing.T) {
	ts := newTestServer(t, &stubProvider{results: []models.SearchResult{
		{Title: "Quantum Computing", Snippet: "Qubits explained.", URL: "https://example.com/qc"},
	}})

	resp := postJSON(t, ts.URL+"/chat", `{"message": "quantum chromodynamics lattice"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var reply models.Reply
	decode(t, resp, &reply)

	assert.Equal(t, models.SourceWebSearch, reply.Source)
	assert.Contains(t, reply.Response, "Quantum Computing")
}

func TestChatStaticFallbackNever5xx(t *testing.T) {
	ts := newTestServer(t, &stubProvider{err: errors.New("search down")})

	resp := postJSON(t, ts.URL+"/chat", `{"message": "quantum chromodynamics lattice"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var reply models.Reply
	decode(t, resp, &reply)
	assert.Equal(t, models.SourceFallback, reply.Source)
}

func TestChatHistoryRoundTrip(t *testing.T) {
	ts := newTestServer(t, &stubProvider{})

	resp := postJSON(t, ts.URL+"/chat", `{"message": "what is machine learning", "chat_id": "round-trip"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// History writes are asynchronous.
	require.Eventually(t, func() bool {
		var conv models.Conversation
		res, err := http.Get(ts.URL + "/history/round-trip")
		if err != nil {
			return false
		}
		decode(t, res, &conv)
		return len(conv.Messages) == 2
	}, 3*time.Second, 50*time.Millisecond)

	var conv models.Conversation
	res, err := http.Get(ts.URL + "/chat/round-trip")
	require.NoError(t, err)
	decode(t, res, &conv)

	require.Len(t, conv.Messages, 2)
	assert.Equal(t, models.RoleUser, conv.Messages[0].Role)
	assert.Equal(t, "what is machine learning", conv.Messages[0].Text)
	assert.Equal(t, models.RoleAssistant, conv.Messages[1].Role)
}

func TestHistoryUnknownChatIsEmpty(t *testing.T) {
	ts := newTestServer(t, &stubProvider{})

	res, err := http.Get(ts.URL + "/history/never-seen")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)

	var conv models.Conversation
	decode(t, res, &conv)
	assert.Empty(t, conv.Messages)
}

func TestIngestAndQuery(t *testing.T) {
	ts := newTestServer(t, &stubProvider{})

	resp := postJSON(t, ts.URL+"/ingest", `{"text": "Ava is a minimal multi-service assistant.", "metadata": {"category": "About"}}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		Success     bool     `json:"success"`
		DocumentIDs []string `json:"document_ids"`
	}
	decode(t, resp, &created)
	assert.True(t, created.Success)
	require.Len(t, created.DocumentIDs, 1)

	resp = postJSON(t, ts.URL+"/query", `{"query": "minimal multi-service assistant"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Found   bool   `json:"found"`
		Answer  string `json:"answer"`
		Query   string `json:"query"`
		Sources []models.RetrievalResult
	}
	decode(t, resp, &result)
	assert.True(t, result.Found)
	assert.Contains(t, result.Answer, "Ava is a minimal")
}

func TestIngestEmptyTextRejected(t *testing.T) {
	ts := newTestServer(t, &stubProvider{})

	resp := postJSON(t, ts.URL+"/ingest", `{"text": "   "}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSearchEndpoint(t *testing.T) {
	ts := newTestServer(t, &stubProvider{results: []models.SearchResult{
		{Title: "Hit", Snippet: "A snippet.", URL: "https://example.com"},
	}})

	res, err := http.Get(ts.URL + "/search?query=test")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)

	var out struct {
		Results      []models.SearchResult `json:"results"`
		TotalResults int                   `json:"total_results"`
	}
	decode(t, res, &out)
	require.Len(t, out.Results, 1)
	assert.Equal(t, "Hit", out.Results[0].Title)
	assert.Equal(t, 1, out.TotalResults)
}

func TestSearchEndpointAbsorbsProviderFailure(t *testing.T) {
	ts := newTestServer(t, &stubProvider{err: errors.New("down")})

	res, err := http.Get(ts.URL + "/search?query=test")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)

	var out struct {
		Results []models.SearchResult `json:"results"`
	}
	decode(t, res, &out)
	assert.Empty(t, out.Results)
}

func TestAddHistoryEndpoint(t *testing.T) {
	ts := newTestServer(t, &stubProvider{})

	resp := postJSON(t, ts.URL+"/history", `{"chat_id": "direct", "message": "hi", "response": "hello", "source": "knowledge_base"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	res, err := http.Get(ts.URL + "/history/direct")
	require.NoError(t, err)

	var conv models.Conversation
	decode(t, res, &conv)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, "hi", conv.Messages[0].Text)
	assert.Equal(t, "hello", conv.Messages[1].Text)
}

func TestHealthAndStatus(t *testing.T) {
	ts := newTestServer(t, &stubProvider{})

	res, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	res.Body.Close()

	res, err = http.Get(ts.URL + "/services/status")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)

	var status struct {
		Dependent map[string]string `json:"dependent_services"`
	}
	decode(t, res, &status)
	assert.Equal(t, "healthy", status.Dependent["knowledge_base"])
}

func TestStats(t *testing.T) {
	ts := newTestServer(t, &stubProvider{})

	res, err := http.Get(ts.URL + "/stats")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)

	var stats struct {
		TotalDocuments int `json:"total_documents"`
	}
	decode(t, res, &stats)
	assert.Equal(t, 10, stats.TotalDocuments)
}

func TestWebSocketChat(t *testing.T) {
	ts := newTestServer(t, &stubProvider{})

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	err = conn.WriteJSON(map[string]string{
		"type":    "message",
		"content": "Tell me about neural networks",
	})
	require.NoError(t, err)

	var out struct {
		Type    string                 `json:"type"`
		Content string                 `json:"content"`
		Data    map[string]interface{} `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&out))

	assert.Equal(t, "response", out.Type)
	assert.Contains(t, out.Content, "Neural Networks")
	assert.Equal(t, string(models.SourceKnowledgeBase), out.Data["source"])
	assert.NotEmpty(t, out.Data["chat_id"])
}
