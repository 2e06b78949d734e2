// Package tool implements the function calling subsystem that lets the agent
// invoke structured capabilities with schema described arguments and
// consistent error handling. The primary implementation proxies tools exposed
// by an MCP server.
package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/crawlchat/crawlchat/core"
	"github.com/crawlchat/crawlchat/model"
)

// Tool defines the interface for a single callable capability.
//
// Tool implementations should:
//   - Provide clear, descriptive names and descriptions
//   - Define proper JSON schema for parameters
//   - Be safe for concurrent use
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description of what this tool does.
	// It is provided to the LLM to help it decide when to use the tool.
	Description() string

	// Parameters returns a JSON schema describing the expected input format.
	Parameters() map[string]any

	// Call executes the tool with structured arguments and returns the
	// textual result.
	Call(ctx context.Context, args map[string]any) (string, error)
}

// Catalog holds the set of tools available to the agent, keyed by name,
// preserving registration order for stable definition lists.
type Catalog struct {
	tools []Tool
	index map[string]Tool
}

// NewCatalog creates a catalog from the given tools. Later registrations
// with a duplicate name replace earlier ones.
func NewCatalog(tools ...Tool) *Catalog {
	c := &Catalog{index: make(map[string]Tool)}
	for _, t := range tools {
		c.Register(t)
	}
	return c
}

// Register adds a tool to the catalog.
func (c *Catalog) Register(t Tool) {
	if _, exists := c.index[t.Name()]; !exists {
		c.tools = append(c.tools, t)
	} else {
		for i, existing := range c.tools {
			if existing.Name() == t.Name() {
				c.tools[i] = t
				break
			}
		}
	}
	c.index[t.Name()] = t
}

// Names returns the tool names in registration order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.tools))
	for _, t := range c.tools {
		names = append(names, t.Name())
	}
	return names
}

// Len returns the number of registered tools.
func (c *Catalog) Len() int { return len(c.tools) }

// Definitions renders the catalog as model tool definitions for LLM requests.
func (c *Catalog) Definitions() []model.ToolDefinition {
	defs := make([]model.ToolDefinition, 0, len(c.tools))
	for _, t := range c.tools {
		defs = append(defs, model.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return defs
}

// Call looks up a tool by name, decodes its JSON argument payload and
// executes it. Failures are reported as tool errors so callers can
// distinguish them from model or transport failures.
func (c *Catalog) Call(ctx context.Context, name, argsJSON string) (string, error) {
	t, ok := c.index[name]
	if !ok {
		return "", core.NewToolError(fmt.Sprintf("unknown tool %q", name), nil)
	}

	args := map[string]any{}
	if argsJSON != "" {
		if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
			return "", core.NewToolError(fmt.Sprintf("invalid arguments for tool %q", name), err)
		}
	}

	result, err := t.Call(ctx, args)
	if err != nil {
		if core.KindOf(err) == core.KindTool {
			return "", err
		}
		return "", core.NewToolError(fmt.Sprintf("tool %q failed", name), err)
	}
	return result, nil
}
