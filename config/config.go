// Package config loads the agent configuration from the environment (with
// optional .env and YAML file sources) and validates the pieces that must be
// present before the agent may start.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/crawlchat/crawlchat/core"
)

// Defaults applied when the environment leaves a knob unset.
const (
	DefaultHost       = "0.0.0.0"
	DefaultPort       = 5000
	DefaultProvider   = "google"
	DefaultModelName  = "gemini-2.0-flash"
	DefaultMCPCommand = "npx"
)

// Config holds everything the lifecycle manager and gateway need. Values are
// resolved once at process start and treated as immutable afterwards.
type Config struct {
	// HTTP gateway bind address.
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// Model provider selection: google, anthropic or openai.
	Provider    string  `yaml:"provider"`
	ModelName   string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`

	// Tool subprocess. The credential is injected into the child environment.
	FirecrawlAPIKey string   `yaml:"-"`
	MCPCommand      string   `yaml:"mcp_command"`
	MCPArgs         []string `yaml:"mcp_args"`

	// Logging sinks.
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	LogFile   string `yaml:"log_file"`
}

// Load resolves configuration from a .env file (if present) and the process
// environment. It does not validate; call Validate before serving traffic.
func Load() *Config {
	// Missing .env is fine, the environment may already be populated.
	_ = godotenv.Load()

	cfg := &Config{
		Host:            envOr("HOST", DefaultHost),
		Port:            envIntOr("PORT", DefaultPort),
		Provider:        strings.ToLower(envOr("MODEL_PROVIDER", DefaultProvider)),
		ModelName:       envOr("MODEL_NAME", ""),
		Temperature:     envFloatOr("MODEL_TEMPERATURE", 0.1),
		FirecrawlAPIKey: os.Getenv("FIRECRAWL_API_KEY"),
		MCPCommand:      envOr("MCP_COMMAND", DefaultMCPCommand),
		LogLevel:        envOr("LOG_LEVEL", "info"),
		LogFormat:       envOr("LOG_FORMAT", "json"),
		LogFile:         envOr("LOG_FILE", "agent.log"),
	}
	if args := os.Getenv("MCP_ARGS"); args != "" {
		cfg.MCPArgs = strings.Fields(args)
	} else {
		cfg.MCPArgs = []string{"firecrawl-mcp"}
	}
	if cfg.ModelName == "" {
		cfg.ModelName = defaultModelFor(cfg.Provider)
	}
	return cfg
}

// LoadFile overlays YAML file settings onto cfg. Credentials are never read
// from the file; they stay environment-only.
func LoadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks the pieces required before initialize may proceed. The
// tool-API credential is the hard requirement; provider credentials are
// validated by the provider constructors themselves.
func (c *Config) Validate() error {
	if c.FirecrawlAPIKey == "" {
		return core.NewConfigurationError("FIRECRAWL_API_KEY environment variable is required", nil)
	}
	switch c.Provider {
	case "google", "anthropic", "openai":
	default:
		return core.NewConfigurationError(fmt.Sprintf("unknown model provider %q", c.Provider), nil)
	}
	if c.MCPCommand == "" {
		return core.NewConfigurationError("tool server command must not be empty", nil)
	}
	return nil
}

// Addr returns the gateway listen address.
func (c *Config) Addr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

func defaultModelFor(provider string) string {
	switch provider {
	case "anthropic":
		return "claude-3-5-sonnet-20241022"
	case "openai":
		return "gpt-4o-mini"
	default:
		return DefaultModelName
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
