package core

// ToolInvocationRecord captures one tool call the model requested during a
// chat turn. Records are reported in trace order and never re-ordered.
type ToolInvocationRecord struct {
	Name         string         `json:"name"`
	Arguments    map[string]any `json:"args"`
	InvocationID string         `json:"id"`
}

// ToolResult is the outcome of one tool invocation. Content holds a bounded
// preview suitable for chat UIs; FullContent retains the complete output.
type ToolResult struct {
	Name        string `json:"name"`
	Content     string `json:"content"`
	FullContent string `json:"full_content"`
}

// ChatResult is the terminal, immutable outcome of a chat turn. It is always
// fully populated: failures carry both a machine-readable Error and a
// human-readable AIMessage so a chat UI can render something.
type ChatResult struct {
	Success     bool                   `json:"success"`
	AIMessage   string                 `json:"ai_message"`
	ToolCalls   []ToolInvocationRecord `json:"tool_calls"`
	ToolOutputs []ToolResult           `json:"tool_outputs"`
	Error       string                 `json:"error,omitempty"`
}
