package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/crawlchat/crawlchat/logging"
)

// ServerConfig describes how to reach the external tool server.
type ServerConfig struct {
	Command string
	Args    []string
	// Env entries ("KEY=value") appended to the child environment. The
	// tool-API credential is injected here.
	Env []string
}

// Session owns one subprocess and its protocol transport. The ordered
// lifecycle is Open (spawn + handshake) -> ListTools -> CallTool... -> Close.
// CallTool must never be used before Open has returned successfully.
type Session struct {
	cfg       ServerConfig
	logger    logging.Logger
	transport *transport
	tools     []Tool
}

// NewSession prepares a session; no subprocess is spawned until Open.
func NewSession(cfg ServerConfig, logger logging.Logger) *Session {
	return &Session{cfg: cfg, logger: logging.OrNoOp(logger)}
}

// Open spawns the subprocess and performs the protocol handshake: an
// initialize request followed by the initialized notification. On any
// failure the transport is torn down before returning.
func (s *Session) Open(ctx context.Context) error {
	if s.transport != nil {
		return fmt.Errorf("session already open")
	}

	t, err := startTransport(s.cfg.Command, s.cfg.Args, s.cfg.Env, s.logger)
	if err != nil {
		return fmt.Errorf("spawn tool server: %w", err)
	}

	initParams := map[string]any{
		"protocolVersion": protocolVersion,
		"capabilities":    map[string]any{},
		"clientInfo": map[string]any{
			"name":    clientName,
			"version": clientVersion,
		},
	}
	if _, err := t.call(ctx, "initialize", initParams); err != nil {
		t.close()
		return fmt.Errorf("initialize handshake: %w", err)
	}
	if err := t.notify("notifications/initialized", nil); err != nil {
		t.close()
		return fmt.Errorf("initialized notification: %w", err)
	}

	s.transport = t
	s.logger.Info("tool session established", "command", s.cfg.Command)
	return nil
}

// ListTools fetches the tool catalog and caches it on the session.
func (s *Session) ListTools(ctx context.Context) ([]Tool, error) {
	if s.transport == nil {
		return nil, fmt.Errorf("session not open")
	}
	raw, err := s.transport.call(ctx, "tools/list", nil)
	if err != nil {
		return nil, fmt.Errorf("tools/list: %w", err)
	}
	var result toolsListResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode tools/list result: %w", err)
	}
	s.tools = result.Tools
	s.logger.Info("tool catalog loaded", "count", len(result.Tools))
	return result.Tools, nil
}

// Tools returns the cached catalog from the last ListTools call.
func (s *Session) Tools() []Tool { return s.tools }

// ToolNames returns the cached catalog names in catalog order.
func (s *Session) ToolNames() []string {
	names := make([]string, 0, len(s.tools))
	for _, t := range s.tools {
		names = append(names, t.Name)
	}
	return names
}

// CallTool invokes a named tool. Protocol-level failures become errors;
// tool-level failures are reported inside the result with IsError set.
func (s *Session) CallTool(ctx context.Context, name string, arguments map[string]any) (*CallResult, error) {
	if s.transport == nil {
		return nil, fmt.Errorf("session not open")
	}
	params := map[string]any{
		"name":      name,
		"arguments": arguments,
	}
	raw, err := s.transport.call(ctx, "tools/call", params)
	if err != nil {
		return nil, fmt.Errorf("tools/call %s: %w", name, err)
	}
	var result CallResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode tools/call result: %w", err)
	}
	return &result, nil
}

// Close tears the transport down. Safe to call multiple times and on a
// session that never opened.
func (s *Session) Close() error {
	if s.transport == nil {
		return nil
	}
	err := s.transport.close()
	s.transport = nil
	s.logger.Info("tool session closed")
	return err
}
