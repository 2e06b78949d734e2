package agent

import (
	"context"
	"encoding/json"

	"github.com/crawlchat/crawlchat/core"
	"github.com/crawlchat/crawlchat/logging"
)

const (
	// MaxInputChars bounds the user payload sent to the model.
	MaxInputChars = 175000

	// ToolPreviewChars caps the tool output preview in chat results. The
	// full output is still carried separately.
	ToolPreviewChars = 1000
)

// Canned user-facing messages. The error field carries the machine-readable
// reason; these keep the chat UI rendering something friendly.
const (
	fallbackNotice = "✅ Task completed successfully! Let me know if you need any clarification or have additional questions."

	timeoutErrorText = "Request timed out. Please try a simpler query or check your connection."
	timeoutNotice    = "⏱️ **Request Timeout**\n\nYour request is taking longer than expected. This might be due to:\n• Complex query processing\n• Network connectivity issues\n\n**Try this:**\n• Break your question into smaller parts\n• Rephrase with simpler terms\n• Check your internet connection"

	processingNotice = "⚠️ **Processing Error**\n\nI encountered an issue processing your request.\n\n**Next steps:**\n• Try rephrasing your question\n• Make sure your request is clear\n• Contact support if this persists"
)

// Startup messages are exported for the gateway, which returns them with a
// 503 while initialization is still in progress.
const (
	NotInitializedError  = "Agent is not initialized"
	NotInitializedNotice = "🚀 **Starting Up**\n\nI'm still getting my tools ready! Give me a moment and try again.\n\n• Loading web scraping capabilities\n• Connecting to Firecrawl services\n• Preparing AI models"
)

// HistoryMessage is one entry of the chat history a client sends along with
// a new message. Type is "user" or "bot"; anything else is dropped.
type HistoryMessage struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// Runtime is the slice of the manager the processor needs.
type Runtime interface {
	State() core.AgentState
	Invoke(ctx context.Context, messages []core.Message) (core.Trace, error)
}

// Processor turns a user message plus history into a structured chat
// result. It never returns an error; every failure mode is folded into the
// result so the gateway always has something to render.
type Processor struct {
	runtime Runtime
	logger  logging.Logger
}

// NewProcessor creates a processor on top of an initialized runtime.
func NewProcessor(runtime Runtime, logger logging.Logger) *Processor {
	return &Processor{runtime: runtime, logger: logging.OrNoOp(logger)}
}

// formatHistory converts client history records into the engine's message
// shape, prefixed with the fixed system instruction. Entries with an
// unknown type are dropped.
func formatHistory(history []HistoryMessage) []core.Message {
	messages := []core.Message{core.SystemMessage(systemPrompt)}
	for _, h := range history {
		switch h.Type {
		case "user":
			messages = append(messages, core.UserMessage(h.Content))
		case "bot":
			messages = append(messages, core.AssistantMessage(h.Content))
		}
	}
	return messages
}

// truncateInput caps the user payload, counting characters rather than
// bytes so multi-byte input is not cut mid-rune.
func (p *Processor) truncateInput(input string) string {
	runes := []rune(input)
	if len(runes) <= MaxInputChars {
		return input
	}
	p.logger.Warn("input truncated", "from", len(runes), "to", MaxInputChars)
	return string(runes[:MaxInputChars])
}

// Process runs one chat turn. The returned result always carries a
// non-empty AIMessage, success or not.
func (p *Processor) Process(ctx context.Context, userInput string, history []HistoryMessage) *core.ChatResult {
	if p.runtime.State() != core.StateReady {
		return &core.ChatResult{
			Success:   false,
			Error:     NotInitializedError,
			AIMessage: NotInitializedNotice,
		}
	}

	messages := formatHistory(history)
	messages = append(messages, core.UserMessage(p.truncateInput(userInput)))

	trace, err := p.runtime.Invoke(ctx, messages)
	if err != nil {
		if core.IsTimeout(err) {
			p.logger.Error("agent invocation timed out")
			return &core.ChatResult{
				Success:   false,
				Error:     timeoutErrorText,
				AIMessage: timeoutNotice,
			}
		}
		p.logger.Error("agent invocation failed", "error", err)
		return &core.ChatResult{
			Success:   false,
			Error:     err.Error(),
			AIMessage: processingNotice,
		}
	}

	return p.classify(trace)
}

// classify walks the trace in order, collecting tool-call intents and tool
// outputs and keeping the last free-text assistant message as the answer.
func (p *Processor) classify(trace core.Trace) *core.ChatResult {
	result := &core.ChatResult{
		Success:     true,
		ToolCalls:   []core.ToolInvocationRecord{},
		ToolOutputs: []core.ToolResult{},
	}

	var aiMessage string
	for _, msg := range trace {
		switch {
		case msg.Role == core.RoleAssistant && msg.HasToolCalls():
			for _, call := range msg.ToolCalls {
				args := map[string]any{}
				if call.Arguments != "" {
					if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
						args = map[string]any{}
					}
				}
				result.ToolCalls = append(result.ToolCalls, core.ToolInvocationRecord{
					Name:         call.Name,
					Arguments:    args,
					InvocationID: call.ID,
				})
				p.logger.Info("tool used", "tool", call.Name)
			}
		case msg.Role == core.RoleTool:
			result.ToolOutputs = append(result.ToolOutputs, core.ToolResult{
				Name:        msg.ToolName,
				Content:     previewOf(msg.Content),
				FullContent: msg.Content,
			})
			p.logger.Info("tool output", "tool", msg.ToolName, "chars", len(msg.Content))
		case msg.Role == core.RoleAssistant && msg.Content != "":
			aiMessage = msg.Content
		}
	}

	if aiMessage == "" {
		aiMessage = fallbackNotice
	}
	result.AIMessage = aiMessage
	return result
}

// previewOf caps tool output for display, marking the cut with an ellipsis.
func previewOf(content string) string {
	runes := []rune(content)
	if len(runes) <= ToolPreviewChars {
		return content
	}
	return string(runes[:ToolPreviewChars]) + "..."
}
