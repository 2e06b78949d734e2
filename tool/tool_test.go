package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crawlchat/crawlchat/core"
	"github.com/crawlchat/crawlchat/mcp"
)

type staticTool struct {
	name   string
	result string
	err    error
	args   map[string]any
}

func (t *staticTool) Name() string        { return t.name }
func (t *staticTool) Description() string { return "static test tool" }
func (t *staticTool) Parameters() map[string]any { return map[string]any{"type": "object"} }
func (t *staticTool) Call(_ context.Context, args map[string]any) (string, error) {
	t.args = args
	return t.result, t.err
}

func TestCatalogDefinitions(t *testing.T) {
	c := NewCatalog(
		&staticTool{name: "firecrawl_scrape"},
		&staticTool{name: "firecrawl_search"},
	)

	defs := c.Definitions()
	require.Len(t, defs, 2)
	assert.Equal(t, "firecrawl_scrape", defs[0].Name)
	assert.Equal(t, "firecrawl_search", defs[1].Name)
	assert.Equal(t, []string{"firecrawl_scrape", "firecrawl_search"}, c.Names())
}

func TestCatalogCall(t *testing.T) {
	st := &staticTool{name: "firecrawl_scrape", result: "# Example"}
	c := NewCatalog(st)

	out, err := c.Call(context.Background(), "firecrawl_scrape", `{"url":"https://example.com"}`)
	require.NoError(t, err)
	assert.Equal(t, "# Example", out)
	assert.Equal(t, "https://example.com", st.args["url"])
}

func TestCatalogCallUnknownTool(t *testing.T) {
	c := NewCatalog()

	_, err := c.Call(context.Background(), "nope", "{}")
	require.Error(t, err)
	assert.Equal(t, core.KindTool, core.KindOf(err))
}

func TestCatalogCallInvalidArguments(t *testing.T) {
	c := NewCatalog(&staticTool{name: "firecrawl_scrape"})

	_, err := c.Call(context.Background(), "firecrawl_scrape", "{not json")
	require.Error(t, err)
	assert.Equal(t, core.KindTool, core.KindOf(err))
}

func TestCatalogCallWrapsFailure(t *testing.T) {
	c := NewCatalog(&staticTool{name: "broken", err: errors.New("boom")})

	_, err := c.Call(context.Background(), "broken", "{}")
	require.Error(t, err)
	assert.Equal(t, core.KindTool, core.KindOf(err))
	assert.Contains(t, err.Error(), "boom")
}

type fakeCaller struct {
	name   string
	args   map[string]any
	result *mcp.CallResult
	err    error
}

func (f *fakeCaller) CallTool(_ context.Context, name string, arguments map[string]any) (*mcp.CallResult, error) {
	f.name = name
	f.args = arguments
	return f.result, f.err
}

func TestMCPToolCall(t *testing.T) {
	caller := &fakeCaller{result: &mcp.CallResult{
		Content: []mcp.ContentBlock{{Type: "text", Text: "scraped content"}},
	}}
	mt := NewMCPTool(caller, mcp.Tool{Name: "firecrawl_scrape", Description: "Scrape a page"})

	out, err := mt.Call(context.Background(), map[string]any{"url": "https://example.com"})
	require.NoError(t, err)
	assert.Equal(t, "scraped content", out)
	assert.Equal(t, "firecrawl_scrape", caller.name)
	assert.Equal(t, "https://example.com", caller.args["url"])
}

func TestMCPToolServerError(t *testing.T) {
	caller := &fakeCaller{result: &mcp.CallResult{
		Content: []mcp.ContentBlock{{Type: "text", Text: "rate limited"}},
		IsError: true,
	}}
	mt := NewMCPTool(caller, mcp.Tool{Name: "firecrawl_scrape"})

	_, err := mt.Call(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, core.KindTool, core.KindOf(err))
	assert.Contains(t, err.Error(), "rate limited")
}
