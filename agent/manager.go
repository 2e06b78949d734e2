// Package agent orchestrates the lifecycle of the conversational agent: the
// tool subprocess session, the model client, the conversation engine and the
// bridge that serializes access to them. It also houses the request-scoped
// processing pipeline that turns chat history into structured results.
package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/crawlchat/crawlchat/config"
	"github.com/crawlchat/crawlchat/core"
	"github.com/crawlchat/crawlchat/engine"
	"github.com/crawlchat/crawlchat/logging"
	"github.com/crawlchat/crawlchat/mcp"
	"github.com/crawlchat/crawlchat/model"
	"github.com/crawlchat/crawlchat/model/anthropic"
	"github.com/crawlchat/crawlchat/model/google"
	"github.com/crawlchat/crawlchat/model/openai"
	"github.com/crawlchat/crawlchat/tool"
)

// ShutdownGrace is how long cleanup waits after closing the subprocess
// channel so the external process can exit on its own. Advisory only.
const ShutdownGrace = 100 * time.Millisecond

// ToolSession is the slice of the MCP session the manager drives. The
// concrete implementation is mcp.Session; tests substitute fakes.
type ToolSession interface {
	Open(ctx context.Context) error
	ListTools(ctx context.Context) ([]mcp.Tool, error)
	Tools() []mcp.Tool
	ToolNames() []string
	CallTool(ctx context.Context, name string, arguments map[string]any) (*mcp.CallResult, error)
	Close() error
}

// ModelFactory constructs the model client for the configured provider.
type ModelFactory func(ctx context.Context, cfg *config.Config) (model.Model, error)

// SessionFactory constructs the tool session. It must not open it.
type SessionFactory func(cfg *config.Config, logger logging.Logger) ToolSession

// Options configures a Manager beyond its Config, mainly for tests.
type Options struct {
	Logger         logging.Logger
	ModelFactory   ModelFactory
	SessionFactory SessionFactory
	ShutdownGrace  time.Duration
}

// Manager owns the agent's long-lived resources and their state machine.
// Initialize and Cleanup bracket the process lifetime; everything between
// them reads the handles through the bridge without further locking.
type Manager struct {
	cfg            *config.Config
	logger         logging.Logger
	modelFactory   ModelFactory
	sessionFactory SessionFactory
	shutdownGrace  time.Duration

	mu        sync.Mutex
	state     core.AgentState
	session   ToolSession
	bridge    *Bridge
	toolNames []string
}

// NewManager creates a manager in the Uninitialized state.
func NewManager(cfg *config.Config, optFns ...func(o *Options)) *Manager {
	opts := Options{
		ModelFactory:   defaultModelFactory,
		SessionFactory: defaultSessionFactory,
		ShutdownGrace:  ShutdownGrace,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Manager{
		cfg:            cfg,
		logger:         logging.OrNoOp(opts.Logger),
		modelFactory:   opts.ModelFactory,
		sessionFactory: opts.SessionFactory,
		shutdownGrace:  opts.ShutdownGrace,
		state:          core.StateUninitialized,
	}
}

func defaultModelFactory(ctx context.Context, cfg *config.Config) (model.Model, error) {
	switch cfg.Provider {
	case "google":
		return google.NewModel(ctx, func(o *google.Options) {
			o.Model = cfg.ModelName
			o.Temperature = cfg.Temperature
		})
	case "anthropic":
		return anthropic.NewModel(func(o *anthropic.Options) {
			o.Model = cfg.ModelName
			o.Temperature = cfg.Temperature
		}), nil
	case "openai":
		return openai.NewModel(func(o *openai.Options) {
			o.Model = cfg.ModelName
			o.Temperature = cfg.Temperature
		}), nil
	default:
		return nil, fmt.Errorf("unsupported model provider %q", cfg.Provider)
	}
}

func defaultSessionFactory(cfg *config.Config, logger logging.Logger) ToolSession {
	return mcp.NewSession(mcp.ServerConfig{
		Command: cfg.MCPCommand,
		Args:    cfg.MCPArgs,
		Env:     []string{"FIRECRAWL_API_KEY=" + cfg.FirecrawlAPIKey},
	}, logger)
}

// Initialize brings the agent up in a fixed order: config validation, model
// client, tool session, tool catalog, engine, bridge. Any failure triggers
// Cleanup before the typed error is returned, so no partially open session
// survives. Safe to call again after a failed attempt.
func (m *Manager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	switch m.state {
	case core.StateReady:
		m.mu.Unlock()
		return nil
	case core.StateInitializing, core.StateShuttingDown:
		state := m.state
		m.mu.Unlock()
		return core.NewAgentError(fmt.Sprintf("initialization not possible while %s", state), nil)
	}
	m.state = core.StateInitializing
	m.mu.Unlock()

	m.logger.Info("initializing agent", "provider", m.cfg.Provider, "model", m.cfg.ModelName)

	if err := m.cfg.Validate(); err != nil {
		return m.abort(err)
	}

	mdl, err := m.modelFactory(ctx, m.cfg)
	if err != nil {
		if core.KindOf(err) != core.KindConfiguration {
			err = core.NewConfigurationError("failed to construct model client", err)
		}
		return m.abort(err)
	}

	session := m.sessionFactory(m.cfg, m.logger)
	if err := session.Open(ctx); err != nil {
		m.setSession(session)
		if core.KindOf(err) == core.KindOther {
			err = core.NewAgentError("failed to open tool session", err)
		}
		return m.abort(err)
	}
	m.setSession(session)

	tools, err := session.ListTools(ctx)
	if err != nil {
		return m.abort(core.NewToolError("failed to fetch tool catalog", err))
	}
	if len(tools) == 0 {
		m.logger.Warn("tool server advertised no tools")
	}

	catalog := tool.NewCatalog()
	for _, spec := range tools {
		catalog.Register(tool.NewMCPTool(session, spec))
	}

	// The system prompt rides in the message sequence built by the
	// processor, so the engine carries no separate instruction string.
	eng := engine.New(mdl, catalog, "", func(o *engine.Options) {
		o.Logger = m.logger
	})
	bridge := NewBridge(eng, func(o *BridgeOptions) {
		o.Logger = m.logger
	})
	bridge.Start()

	m.mu.Lock()
	m.bridge = bridge
	m.toolNames = catalog.Names()
	m.state = core.StateReady
	m.mu.Unlock()

	m.logger.Info("agent initialized", "tools", len(tools))
	return nil
}

// abort rolls back a failed initialization and propagates the typed error.
func (m *Manager) abort(err error) error {
	m.logger.Error("agent initialization failed", "error", err)
	m.Cleanup()
	return err
}

// Cleanup tears down resources in reverse acquisition order: bridge first so
// in-flight turns can drain, then the tool session. Individual release
// failures are logged and swallowed. Idempotent; always ends Uninitialized.
func (m *Manager) Cleanup() {
	m.mu.Lock()
	if m.state == core.StateUninitialized {
		m.mu.Unlock()
		return
	}
	m.state = core.StateShuttingDown
	bridge := m.bridge
	session := m.session
	m.bridge = nil
	m.session = nil
	m.toolNames = nil
	m.mu.Unlock()

	if bridge != nil {
		bridge.Stop()
	}
	if session != nil {
		if err := session.Close(); err != nil {
			m.logger.Warn("error closing tool session", "error", err)
		}
		time.Sleep(m.shutdownGrace)
	}

	m.mu.Lock()
	m.state = core.StateUninitialized
	m.mu.Unlock()
	m.logger.Info("agent cleanup complete")
}

// setSession records the session handle so Cleanup can release it even when
// a later initialization step fails.
func (m *Manager) setSession(s ToolSession) {
	m.mu.Lock()
	m.session = s
	m.mu.Unlock()
}

// State returns the current lifecycle state.
func (m *Manager) State() core.AgentState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Ready reports whether the agent can serve chat turns.
func (m *Manager) Ready() bool { return m.State() == core.StateReady }

// ToolNames returns the names of the bound tool catalog, empty until Ready.
func (m *Manager) ToolNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, len(m.toolNames))
	copy(names, m.toolNames)
	return names
}

// ToolCount returns the size of the bound tool catalog.
func (m *Manager) ToolCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.toolNames)
}

// Invoke runs one conversation turn through the bridge. It fails fast with
// an agent error when the bridge is not running.
func (m *Manager) Invoke(ctx context.Context, messages []core.Message) (core.Trace, error) {
	m.mu.Lock()
	bridge := m.bridge
	m.mu.Unlock()
	if bridge == nil {
		return nil, core.NewAgentError("agent is not initialized", nil)
	}
	return bridge.Submit(ctx, messages)
}
