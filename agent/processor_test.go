package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crawlchat/crawlchat/core"
)

type fakeRuntime struct {
	state core.AgentState
	trace core.Trace
	err   error
	got   []core.Message
}

func (f *fakeRuntime) State() core.AgentState { return f.state }

func (f *fakeRuntime) Invoke(_ context.Context, messages []core.Message) (core.Trace, error) {
	f.got = messages
	return f.trace, f.err
}

func readyRuntime(trace core.Trace, err error) *fakeRuntime {
	return &fakeRuntime{state: core.StateReady, trace: trace, err: err}
}

func TestFormatHistory(t *testing.T) {
	messages := formatHistory([]HistoryMessage{
		{Type: "user", Content: "hi"},
		{Type: "bot", Content: "hello"},
		{Type: "other", Content: "x"},
	})

	require.Len(t, messages, 3, "system prefix plus two history entries")
	assert.Equal(t, core.RoleSystem, messages[0].Role)
	assert.Equal(t, core.RoleUser, messages[1].Role)
	assert.Equal(t, "hi", messages[1].Content)
	assert.Equal(t, core.RoleAssistant, messages[2].Role)
	assert.Equal(t, "hello", messages[2].Content)
}

func TestProcessNotReady(t *testing.T) {
	p := NewProcessor(&fakeRuntime{state: core.StateInitializing}, nil)

	result := p.Process(context.Background(), "hi", nil)
	assert.False(t, result.Success)
	assert.Equal(t, NotInitializedError, result.Error)
	assert.Equal(t, NotInitializedNotice, result.AIMessage)
}

func TestProcessTruncatesInput(t *testing.T) {
	rt := readyRuntime(core.Trace{core.AssistantMessage("ok")}, nil)
	p := NewProcessor(rt, nil)

	input := strings.Repeat("a", MaxInputChars+500)
	result := p.Process(context.Background(), input, nil)
	require.True(t, result.Success)

	last := rt.got[len(rt.got)-1]
	assert.Equal(t, core.RoleUser, last.Role)
	assert.Len(t, []rune(last.Content), MaxInputChars)
}

func TestProcessShortInputNotTruncated(t *testing.T) {
	rt := readyRuntime(core.Trace{core.AssistantMessage("ok")}, nil)
	p := NewProcessor(rt, nil)

	p.Process(context.Background(), "short message", nil)
	last := rt.got[len(rt.got)-1]
	assert.Equal(t, "short message", last.Content)
}

func TestProcessClassifiesTrace(t *testing.T) {
	longOutput := strings.Repeat("x", ToolPreviewChars+200)
	trace := core.Trace{
		core.UserMessage("scrape example.com"),
		{
			Role: core.RoleAssistant,
			ToolCalls: []core.ToolCall{
				{ID: "call-1", Name: "firecrawl_scrape", Arguments: `{"url":"https://example.com"}`},
			},
		},
		core.ToolMessage("call-1", "firecrawl_scrape", longOutput),
		core.AssistantMessage("Here is what I found."),
	}
	p := NewProcessor(readyRuntime(trace, nil), nil)

	result := p.Process(context.Background(), "scrape example.com", nil)
	require.True(t, result.Success)
	assert.Equal(t, "Here is what I found.", result.AIMessage)

	require.Len(t, result.ToolCalls, 1)
	assert.Equal(t, "firecrawl_scrape", result.ToolCalls[0].Name)
	assert.Equal(t, "call-1", result.ToolCalls[0].InvocationID)
	assert.Equal(t, "https://example.com", result.ToolCalls[0].Arguments["url"])

	require.Len(t, result.ToolOutputs, 1)
	assert.Equal(t, "firecrawl_scrape", result.ToolOutputs[0].Name)
	assert.Len(t, []rune(result.ToolOutputs[0].Content), ToolPreviewChars+3)
	assert.True(t, strings.HasSuffix(result.ToolOutputs[0].Content, "..."))
	assert.Equal(t, longOutput, result.ToolOutputs[0].FullContent)
}

func TestProcessLastAssistantTextWins(t *testing.T) {
	trace := core.Trace{
		core.AssistantMessage("first draft"),
		core.AssistantMessage("final answer"),
	}
	p := NewProcessor(readyRuntime(trace, nil), nil)

	result := p.Process(context.Background(), "hi", nil)
	assert.Equal(t, "final answer", result.AIMessage)
}

func TestProcessFallbackNotice(t *testing.T) {
	trace := core.Trace{
		{
			Role:      core.RoleAssistant,
			ToolCalls: []core.ToolCall{{ID: "call-1", Name: "firecrawl_scrape", Arguments: "{}"}},
		},
		core.ToolMessage("call-1", "firecrawl_scrape", "data"),
	}
	p := NewProcessor(readyRuntime(trace, nil), nil)

	result := p.Process(context.Background(), "hi", nil)
	require.True(t, result.Success)
	assert.Equal(t, fallbackNotice, result.AIMessage)
	assert.NotEmpty(t, result.AIMessage)
}

func TestProcessTimeout(t *testing.T) {
	p := NewProcessor(readyRuntime(nil, core.NewTimeoutError("agent invocation timed out", nil)), nil)

	result := p.Process(context.Background(), "hi", nil)
	assert.False(t, result.Success)
	assert.Equal(t, timeoutErrorText, result.Error)
	assert.Equal(t, timeoutNotice, result.AIMessage)
}

func TestProcessGenericFailure(t *testing.T) {
	p := NewProcessor(readyRuntime(nil, core.NewAgentError("model generation failed", nil)), nil)

	result := p.Process(context.Background(), "hi", nil)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "model generation failed")
	assert.Equal(t, processingNotice, result.AIMessage)
}
