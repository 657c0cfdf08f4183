package config

import (
	"encoding/json"
	"fmt"

	"github.com/harun/agentcore/internal/logger"
	"github.com/harun/agentcore/pkg/provider"
)

// Config represents the main agentcore configuration
type Config struct {
	// Models
	Models ModelsConfig `json:"models" mapstructure:"models"`

	// Agent holds turn defaults
	Agent AgentConfig `json:"agent" mapstructure:"agent"`

	// Classifier
	Classifier ClassifierConfig `json:"classifier" mapstructure:"classifier"`

	// Providers lists model backend credentials
	Providers []provider.Profile `json:"providers" mapstructure:"providers"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Gateway configuration
	Gateway GatewayConfig `json:"gateway" mapstructure:"gateway"`

	// Tools
	Tools ToolsConfig `json:"tools" mapstructure:"tools"`

	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// ModelsConfig holds model configuration
type ModelsConfig struct {
	Default string            `json:"default" mapstructure:"default"`
	Aliases map[string]string `json:"aliases" mapstructure:"aliases"`
}

// AgentConfig holds the defaults applied to every turn
type AgentConfig struct {
	SystemMessage string  `json:"system_message" mapstructure:"system_message"`
	MaxTokens     int     `json:"max_tokens" mapstructure:"max_tokens"`
	Temperature   float64 `json:"temperature" mapstructure:"temperature"`
}

// ClassifierConfig controls tool intent classification
type ClassifierConfig struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`
	// Model used for classification; empty means the turn's model.
	Model string `json:"model" mapstructure:"model"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	Console   bool   `json:"console" mapstructure:"console"`
	Pretty    bool   `json:"pretty" mapstructure:"pretty"`
	MaxSize   int    `json:"max_size" mapstructure:"max_size"` // MB
	MaxAge    int    `json:"max_age" mapstructure:"max_age"`   // days
	Compress  bool   `json:"compress" mapstructure:"compress"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
	AuditFile string `json:"audit_file" mapstructure:"audit_file"`
}

// GatewayConfig holds gateway server configuration
type GatewayConfig struct {
	Port         int    `json:"port" mapstructure:"port"`
	Host         string `json:"host" mapstructure:"host"`
	SharedSecret string `json:"shared_secret" mapstructure:"shared_secret"`
	StreamBuffer int    `json:"stream_buffer" mapstructure:"stream_buffer"`
}

// ToolsConfig holds built-in tool configuration
type ToolsConfig struct {
	WorkspaceRoot string   `json:"workspace_root" mapstructure:"workspace_root"`
	Enabled       []string `json:"enabled" mapstructure:"enabled"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Models: ModelsConfig{
			Default: "openai:gpt-4.1-nano",
			Aliases: map[string]string{
				"nano":   "openai:gpt-4.1-nano",
				"mini":   "openai:gpt-4.1-mini",
				"sonnet": "anthropic:claude-sonnet-4-20250514",
				"haiku":  "anthropic:claude-3-5-haiku-latest",
			},
		},
		Agent: AgentConfig{
			SystemMessage: "You are a helpful AI assistant.",
			MaxTokens:     1024,
			Temperature:   0,
		},
		Classifier: ClassifierConfig{
			Enabled: true,
		},
		Providers: []provider.Profile{},
		Logging: LoggingConfig{
			Level:     "info",
			Console:   true,
			Pretty:    true,
			MaxSize:   100,
			MaxAge:    7,
			Compress:  true,
			Redaction: true,
		},
		Gateway: GatewayConfig{
			Port:         8080,
			Host:         "127.0.0.1",
			SharedSecret: "",
			StreamBuffer: 16,
		},
		Tools: ToolsConfig{
			Enabled: []string{"current_time", "read_file", "list_files"},
		},
	}
}

// LoggerConfig converts the logging section into a logger.Config
func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{
		Level:     c.Logging.Level,
		File:      c.Logging.File,
		Console:   c.Logging.Console,
		Pretty:    c.Logging.Pretty,
		Redaction: c.Logging.Redaction,
		MaxSize:   c.Logging.MaxSize,
		MaxAge:    c.Logging.MaxAge,
		Compress:  c.Logging.Compress,
	}
}

// Profile returns the provider profile with the given name.
func (c *Config) Profile(name string) (provider.Profile, bool) {
	for _, p := range c.Providers {
		if p.Name == name {
			return p, true
		}
	}
	return provider.Profile{}, false
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if len(c.Providers) == 0 {
		return fmt.Errorf("no providers configured: at least one provider profile is required")
	}

	seen := make(map[string]bool, len(c.Providers))
	for i, profile := range c.Providers {
		if profile.Name == "" {
			return fmt.Errorf("provider %d: name is required", i)
		}
		if profile.Name != "anthropic" && profile.Name != "openai" {
			return fmt.Errorf("provider %s: invalid name (must be: anthropic, openai)", profile.Name)
		}
		if seen[profile.Name] {
			return fmt.Errorf("provider %s: configured more than once", profile.Name)
		}
		seen[profile.Name] = true
		if profile.APIKey == "" {
			return fmt.Errorf("provider %s: api_key is required", profile.Name)
		}
	}

	if c.Models.Default == "" {
		return fmt.Errorf("models.default is required")
	}
	if name := c.defaultProvider(); !seen[name] {
		return fmt.Errorf("default model %s: provider %q is not configured", c.Models.Default, name)
	}

	if c.Agent.Temperature < 0 || c.Agent.Temperature > 2 {
		return fmt.Errorf("agent.temperature must be between 0 and 2, got %g", c.Agent.Temperature)
	}
	if c.Agent.MaxTokens < 0 {
		return fmt.Errorf("agent.max_tokens must be >= 0, got %d", c.Agent.MaxTokens)
	}

	if c.Gateway.Port < 1 || c.Gateway.Port > 65535 {
		return fmt.Errorf("gateway.port must be between 1 and 65535, got %d", c.Gateway.Port)
	}
	if c.Gateway.StreamBuffer < 0 {
		return fmt.Errorf("gateway.stream_buffer must be >= 0, got %d", c.Gateway.StreamBuffer)
	}

	return nil
}

// DefaultProvider returns the provider named by the default model. A default
// model without a provider prefix uses the first configured provider.
func (c *Config) DefaultProvider() string {
	return c.defaultProvider()
}

func (c *Config) defaultProvider() string {
	model := c.Models.Default
	if target, ok := c.Models.Aliases[model]; ok {
		model = target
	}
	name, _ := provider.SplitModel(model)
	if name == "" && len(c.Providers) > 0 {
		return c.Providers[0].Name
	}
	return name
}
