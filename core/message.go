package core

import "github.com/google/uuid"

// Role identifies the author of a conversation message.
type Role string

const (
	// RoleSystem marks the fixed instruction message prefixed to every conversation.
	RoleSystem Role = "system"
	// RoleUser marks messages authored by the end user.
	RoleUser Role = "user"
	// RoleAssistant marks messages produced by the model, including tool-call requests.
	RoleAssistant Role = "assistant"
	// RoleTool marks tool execution results fed back into the conversation.
	RoleTool Role = "tool"
)

// ToolCall is a single tool invocation requested by the model inside an
// assistant message. Arguments is the raw JSON argument payload as produced
// by the provider.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments,omitempty"`
}

// Message is one entry of a conversation. Order within a trace is causal
// history and must be preserved. An assistant message may carry free text,
// tool calls, or both; a tool message carries the result of exactly one
// earlier tool call, correlated by ToolCallID.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolName   string     `json:"tool_name,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// Trace is the ordered message sequence an engine invocation returns,
// including the input history and all intermediate tool-call and tool-result
// entries produced while resolving the turn.
type Trace []Message

// SystemMessage builds a system instruction message.
func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: text}
}

// UserMessage builds a user-authored text message.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

// AssistantMessage builds an assistant text message.
func AssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: text}
}

// ToolMessage builds a tool-result message correlated to the originating call.
func ToolMessage(callID, name, content string) Message {
	return Message{Role: RoleTool, ToolCallID: callID, ToolName: name, Content: content}
}

// HasToolCalls reports whether the message requests any tool invocations.
func (m Message) HasToolCalls() bool { return len(m.ToolCalls) > 0 }

// NewID generates a unique identifier for invocations and synthesized
// tool-call ids.
func NewID() string { return uuid.NewString() }
