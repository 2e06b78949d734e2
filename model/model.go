package model

import (
	"context"
	"fmt"

	"github.com/crawlchat/crawlchat/core"
)

// ToolDefinition declaratively exposes a callable tool to the model.
// Parameters is a JSON Schema object (minimal subset expected).
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request captures the normalized model input assembled by the engine.
// Instructions carries the system prompt separately because some providers
// take it out of band rather than as a leading message.
type Request struct {
	Instructions string           `json:"instructions"`
	Messages     []core.Message   `json:"messages"`
	Tools        []ToolDefinition `json:"tools,omitempty"`
}

// Response is the completed model turn: a single assistant message that may
// carry free text, tool calls, or both.
type Response struct {
	Message      core.Message `json:"message"`
	FinishReason string       `json:"finish_reason"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"`
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required to drive generation. Generate must
// honor ctx cancellation since the bridge relies on it to bound invocations.
type Model interface {
	Generate(ctx context.Context, req Request) (*Response, error)

	// Info returns information about the model implementation.
	Info() Info
}

// MockModel is a lightweight in-memory Model useful for tests. Responses are
// consumed in the order they were queued; once exhausted, Generate echoes the
// last user message.
type MockModel struct {
	info      Info
	scripted  []Response
	Requests  []Request
	failWith  error
	callCount int
}

// NewMockModel constructs a MockModel with tool support enabled.
func NewMockModel(name string) *MockModel {
	return &MockModel{info: Info{Name: name, Provider: "mock", SupportsTools: true}}
}

// QueueText enqueues a plain assistant text response.
func (m *MockModel) QueueText(text string) *MockModel {
	m.scripted = append(m.scripted, Response{
		Message:      core.AssistantMessage(text),
		FinishReason: "stop",
	})
	return m
}

// QueueToolCall enqueues an assistant response requesting a single tool call.
func (m *MockModel) QueueToolCall(id, name, arguments string) *MockModel {
	msg := core.Message{Role: core.RoleAssistant, ToolCalls: []core.ToolCall{
		{ID: id, Name: name, Arguments: arguments},
	}}
	m.scripted = append(m.scripted, Response{Message: msg, FinishReason: "tool_calls"})
	return m
}

// QueueResponse enqueues an arbitrary response.
func (m *MockModel) QueueResponse(resp Response) *MockModel {
	m.scripted = append(m.scripted, resp)
	return m
}

// FailWith makes every subsequent Generate call return err.
func (m *MockModel) FailWith(err error) *MockModel {
	m.failWith = err
	return m
}

// Generate implements Model. It records the request for later assertions and
// honors context cancellation.
func (m *MockModel) Generate(ctx context.Context, req Request) (*Response, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	m.Requests = append(m.Requests, req)
	if m.failWith != nil {
		return nil, m.failWith
	}
	if m.callCount < len(m.scripted) {
		resp := m.scripted[m.callCount]
		m.callCount++
		return &resp, nil
	}
	var lastUser string
	for _, msg := range req.Messages {
		if msg.Role == core.RoleUser {
			lastUser = msg.Content
		}
	}
	return &Response{
		Message:      core.AssistantMessage(fmt.Sprintf("Mock response to: %s", lastUser)),
		FinishReason: "stop",
	}, nil
}

// Info implements Model interface.
func (m *MockModel) Info() Info { return m.info }
