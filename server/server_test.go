package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crawlchat/crawlchat/agent"
	"github.com/crawlchat/crawlchat/core"
)

type fakeAgent struct {
	ready bool
	tools []string
}

func (f *fakeAgent) Ready() bool         { return f.ready }
func (f *fakeAgent) ToolNames() []string { return f.tools }
func (f *fakeAgent) ToolCount() int      { return len(f.tools) }

type fakeProcessor struct {
	result  *core.ChatResult
	message string
	history []agent.HistoryMessage
}

func (f *fakeProcessor) Process(_ context.Context, userInput string, history []agent.HistoryMessage) *core.ChatResult {
	f.message = userInput
	f.history = history
	return f.result
}

func newTestServer(ag Agent, p ChatProcessor) *Server {
	return New("127.0.0.1:0", ag, p)
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload
}

func TestHealthInitializing(t *testing.T) {
	s := newTestServer(&fakeAgent{}, &fakeProcessor{})

	rec := doRequest(t, s, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	payload := decodeBody(t, rec)
	assert.Equal(t, "initializing", payload["status"])
	assert.Equal(t, float64(0), payload["tools_available"])
}

func TestHealthHealthy(t *testing.T) {
	s := newTestServer(&fakeAgent{ready: true, tools: []string{"firecrawl_scrape", "firecrawl_search"}}, &fakeProcessor{})

	rec := doRequest(t, s, http.MethodGet, "/health", "")
	payload := decodeBody(t, rec)
	assert.Equal(t, "healthy", payload["status"])
	assert.Equal(t, float64(2), payload["tools_available"])
}

func TestTools(t *testing.T) {
	s := newTestServer(&fakeAgent{ready: true, tools: []string{"firecrawl_scrape"}}, &fakeProcessor{})

	rec := doRequest(t, s, http.MethodGet, "/tools", "")
	require.Equal(t, http.StatusOK, rec.Code)
	payload := decodeBody(t, rec)
	assert.Equal(t, []any{"firecrawl_scrape"}, payload["tools"])
}

func TestToolsEmptyIsList(t *testing.T) {
	s := newTestServer(&fakeAgent{}, &fakeProcessor{})

	rec := doRequest(t, s, http.MethodGet, "/tools", "")
	payload := decodeBody(t, rec)
	assert.Equal(t, []any{}, payload["tools"])
}

func TestChatSuccess(t *testing.T) {
	p := &fakeProcessor{result: &core.ChatResult{
		Success:     true,
		AIMessage:   "Here you go.",
		ToolCalls:   []core.ToolInvocationRecord{{Name: "firecrawl_scrape", InvocationID: "call-1"}},
		ToolOutputs: []core.ToolResult{{Name: "firecrawl_scrape", Content: "preview"}},
	}}
	s := newTestServer(&fakeAgent{ready: true}, p)

	body := `{"message":"scrape example.com","history":[{"type":"user","content":"hi"}]}`
	rec := doRequest(t, s, http.MethodPost, "/chat", body)
	require.Equal(t, http.StatusOK, rec.Code)

	payload := decodeBody(t, rec)
	assert.Equal(t, true, payload["success"])
	assert.Equal(t, "Here you go.", payload["ai_message"])
	assert.Equal(t, "scrape example.com", p.message)
	require.Len(t, p.history, 1)
	assert.Equal(t, "user", p.history[0].Type)
}

func TestChatEmptyMessage(t *testing.T) {
	s := newTestServer(&fakeAgent{ready: true}, &fakeProcessor{})

	rec := doRequest(t, s, http.MethodPost, "/chat", `{"message":"   "}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Empty message", decodeBody(t, rec)["error"])
}

func TestChatInvalidBody(t *testing.T) {
	s := newTestServer(&fakeAgent{ready: true}, &fakeProcessor{})

	rec := doRequest(t, s, http.MethodPost, "/chat", "{not json")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No data provided", decodeBody(t, rec)["error"])
}

func TestChatNotReady(t *testing.T) {
	s := newTestServer(&fakeAgent{ready: false}, &fakeProcessor{})

	rec := doRequest(t, s, http.MethodPost, "/chat", `{"message":"hi"}`)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	payload := decodeBody(t, rec)
	assert.Equal(t, agent.NotInitializedError, payload["error"])
	assert.NotEmpty(t, payload["ai_message"])
}

func TestChatFailureStaysStructured(t *testing.T) {
	p := &fakeProcessor{result: &core.ChatResult{
		Success:   false,
		Error:     "Request timed out. Please try a simpler query or check your connection.",
		AIMessage: "timeout notice",
	}}
	s := newTestServer(&fakeAgent{ready: true}, p)

	rec := doRequest(t, s, http.MethodPost, "/chat", `{"message":"hi"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	payload := decodeBody(t, rec)
	assert.Equal(t, false, payload["success"])
	assert.NotEmpty(t, payload["error"])
	assert.NotEmpty(t, payload["ai_message"])
}

func TestMetricsExposed(t *testing.T) {
	s := newTestServer(&fakeAgent{}, &fakeProcessor{})

	rec := doRequest(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
