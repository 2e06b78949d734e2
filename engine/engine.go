// Package engine drives the model/tool conversation loop. Each invocation
// alternates between model generation and tool execution until the model
// produces a final answer without tool calls.
package engine

import (
	"context"

	"github.com/crawlchat/crawlchat/core"
	"github.com/crawlchat/crawlchat/logging"
	"github.com/crawlchat/crawlchat/model"
	"github.com/crawlchat/crawlchat/tool"
)

// DefaultMaxIterations bounds the model/tool loop so a model that keeps
// requesting tools cannot spin forever.
const DefaultMaxIterations = 10

// Options tune engine behavior.
type Options struct {
	MaxIterations int
	Logger        logging.Logger
}

// Engine runs the tool-calling conversation loop against a single model and
// tool catalog. It is safe for concurrent use as long as the model and
// catalog are.
type Engine struct {
	model         model.Model
	catalog       *tool.Catalog
	instructions  string
	maxIterations int
	logger        logging.Logger
}

// New creates an engine bound to a model and tool catalog. The instruction
// string is passed verbatim to the model on every turn.
func New(m model.Model, catalog *tool.Catalog, instructions string, optFns ...func(o *Options)) *Engine {
	opts := Options{MaxIterations: DefaultMaxIterations}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultMaxIterations
	}
	return &Engine{
		model:         m,
		catalog:       catalog,
		instructions:  instructions,
		maxIterations: opts.MaxIterations,
		logger:        logging.OrNoOp(opts.Logger),
	}
}

// Invoke runs the conversation loop starting from the given messages and
// returns the full trace: the input messages followed by every assistant and
// tool message produced. The partial trace accompanies any error so callers
// can surface tool activity that happened before the failure.
func (e *Engine) Invoke(ctx context.Context, messages []core.Message) (core.Trace, error) {
	trace := make(core.Trace, len(messages))
	copy(trace, messages)

	defs := e.catalog.Definitions()

	for i := 0; i < e.maxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return trace, err
		}

		resp, err := e.model.Generate(ctx, model.Request{
			Instructions: e.instructions,
			Messages:     trace,
			Tools:        defs,
		})
		if err != nil {
			return trace, core.NewAgentError("model generation failed", err)
		}

		trace = append(trace, resp.Message)
		if !resp.Message.HasToolCalls() {
			return trace, nil
		}

		for _, call := range resp.Message.ToolCalls {
			if err := ctx.Err(); err != nil {
				return trace, err
			}

			e.logger.Info("executing tool", "tool", call.Name)
			output, err := e.catalog.Call(ctx, call.Name, call.Arguments)
			if err != nil {
				// Feed the failure back to the model so it can recover
				// or report it instead of aborting the conversation.
				e.logger.Warn("tool execution failed", "tool", call.Name, "error", err)
				output = "Error: " + err.Error()
			}
			trace = append(trace, core.ToolMessage(call.ID, call.Name, output))
		}
	}

	return trace, core.NewAgentError("conversation exceeded maximum tool iterations", nil)
}
