package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crawlchat/crawlchat/logging"
)

func newTestSession(t *testing.T, handle func(method string, params json.RawMessage) (any, *jsonrpcError)) (*Session, func()) {
	t.Helper()
	tr, stop := (&fakeServer{handle: handle}).serve(t)
	s := NewSession(ServerConfig{Command: "fake"}, logging.NoOpLogger{})
	s.transport = tr
	return s, stop
}

func TestSessionListTools(t *testing.T) {
	s, stop := newTestSession(t, func(method string, _ json.RawMessage) (any, *jsonrpcError) {
		require.Equal(t, "tools/list", method)
		return toolsListResult{Tools: []Tool{
			{Name: "firecrawl_scrape", Description: "Scrape a single page"},
			{Name: "firecrawl_search", Description: "Search the web"},
		}}, nil
	})
	defer stop()

	tools, err := s.ListTools(context.Background())
	require.NoError(t, err)
	require.Len(t, tools, 2)
	assert.Equal(t, []string{"firecrawl_scrape", "firecrawl_search"}, s.ToolNames())
	assert.Equal(t, tools, s.Tools())
}

func TestSessionCallTool(t *testing.T) {
	s, stop := newTestSession(t, func(method string, params json.RawMessage) (any, *jsonrpcError) {
		require.Equal(t, "tools/call", method)
		var p struct {
			Name      string         `json:"name"`
			Arguments map[string]any `json:"arguments"`
		}
		require.NoError(t, json.Unmarshal(params, &p))
		assert.Equal(t, "firecrawl_scrape", p.Name)
		assert.Equal(t, "https://example.com", p.Arguments["url"])
		return CallResult{Content: []ContentBlock{{Type: "text", Text: "# Example"}}}, nil
	})
	defer stop()

	result, err := s.CallTool(context.Background(), "firecrawl_scrape", map[string]any{"url": "https://example.com"})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, "# Example", result.Text())
}

func TestSessionToolLevelError(t *testing.T) {
	s, stop := newTestSession(t, func(string, json.RawMessage) (any, *jsonrpcError) {
		return CallResult{IsError: true, Content: []ContentBlock{{Type: "text", Text: "quota exceeded"}}}, nil
	})
	defer stop()

	result, err := s.CallTool(context.Background(), "firecrawl_scrape", nil)
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Equal(t, "quota exceeded", result.Text())
}

func TestSessionNotOpen(t *testing.T) {
	s := NewSession(ServerConfig{Command: "fake"}, nil)

	_, err := s.ListTools(context.Background())
	assert.Error(t, err)

	_, err = s.CallTool(context.Background(), "anything", nil)
	assert.Error(t, err)

	// Close on a never-opened session is a no-op.
	assert.NoError(t, s.Close())
}

func TestSessionCloseIdempotent(t *testing.T) {
	s, stop := newTestSession(t, func(string, json.RawMessage) (any, *jsonrpcError) {
		return map[string]any{}, nil
	})
	defer stop()

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}

func TestCallResultText(t *testing.T) {
	r := &CallResult{Content: []ContentBlock{
		{Type: "text", Text: "a"},
		{Type: "image"},
		{Type: "text", Text: "b"},
	}}
	assert.Equal(t, "ab", r.Text())
}
