package tool

import (
	"context"
	"fmt"

	"github.com/crawlchat/crawlchat/core"
	"github.com/crawlchat/crawlchat/mcp"
)

// ToolCaller is the slice of the MCP session the proxy needs. Declared here
// so tests can substitute a fake server connection.
type ToolCaller interface {
	CallTool(ctx context.Context, name string, arguments map[string]any) (*mcp.CallResult, error)
}

// MCPTool proxies a single tool exposed by an MCP server.
type MCPTool struct {
	caller ToolCaller
	spec   mcp.Tool
}

// NewMCPTool wraps one advertised server tool.
func NewMCPTool(caller ToolCaller, spec mcp.Tool) *MCPTool {
	return &MCPTool{caller: caller, spec: spec}
}

// CatalogFromSession builds a catalog proxying every tool the server
// advertised. ListTools must have succeeded on the session beforehand.
func CatalogFromSession(session *mcp.Session) *Catalog {
	c := NewCatalog()
	for _, spec := range session.Tools() {
		c.Register(NewMCPTool(session, spec))
	}
	return c
}

// Name implements Tool.
func (t *MCPTool) Name() string { return t.spec.Name }

// Description implements Tool.
func (t *MCPTool) Description() string { return t.spec.Description }

// Parameters implements Tool.
func (t *MCPTool) Parameters() map[string]any { return t.spec.InputSchema }

// Call forwards the invocation to the server and flattens the content
// blocks into text. A result flagged IsError by the server surfaces as a
// tool error carrying the server's message.
func (t *MCPTool) Call(ctx context.Context, args map[string]any) (string, error) {
	result, err := t.caller.CallTool(ctx, t.spec.Name, args)
	if err != nil {
		return "", core.NewToolError(fmt.Sprintf("tool %q failed", t.spec.Name), err)
	}
	text := result.Text()
	if result.IsError {
		return "", core.NewToolError(fmt.Sprintf("tool %q reported an error: %s", t.spec.Name, text), nil)
	}
	return text, nil
}
