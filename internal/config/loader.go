package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/harun/agentcore/pkg/provider"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes environment overrides, e.g. AGENTCORE_MODELS_DEFAULT.
	EnvPrefix = "AGENTCORE"

	defaultDirName  = ".agentcore"
	defaultFileName = "agentcore.json"
)

// Loader handles configuration loading
type Loader struct {
	configPath string
}

// NewLoader creates a new config loader
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
	}
}

// Load loads the configuration from file. A missing file yields the defaults,
// still subject to environment overrides.
func (l *Loader) Load() (*Config, error) {
	configPath, err := l.resolvePath()
	if err != nil {
		return nil, err
	}

	v := l.newViper(configPath)

	if _, err := os.Stat(configPath); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	// Slices are decoded into empty values so a file's list replaces the
	// default instead of overwriting it element by element. Alias maps merge.
	cfg := DefaultConfig()
	cfg.Providers = nil
	cfg.Tools.Enabled = nil
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if !v.IsSet("tools.enabled") {
		cfg.Tools.Enabled = DefaultConfig().Tools.Enabled
	}
	if cfg.Providers == nil {
		cfg.Providers = []provider.Profile{}
	}

	// Set data directory if not specified
	if cfg.DataDir == "" {
		cfg.DataDir = filepath.Dir(configPath)
	}

	if cfg.Tools.WorkspaceRoot == "" {
		cfg.Tools.WorkspaceRoot = filepath.Join(cfg.DataDir, "workspace")
	}

	return cfg, nil
}

// newViper returns a viper instance bound to configPath with every known key
// registered, so environment variables override keys missing from the file.
func (l *Loader) newViper(configPath string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultConfig()
	v.SetDefault("models.default", defaults.Models.Default)
	v.SetDefault("agent.system_message", defaults.Agent.SystemMessage)
	v.SetDefault("agent.max_tokens", defaults.Agent.MaxTokens)
	v.SetDefault("agent.temperature", defaults.Agent.Temperature)
	v.SetDefault("classifier.enabled", defaults.Classifier.Enabled)
	v.SetDefault("classifier.model", defaults.Classifier.Model)
	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.file", defaults.Logging.File)
	v.SetDefault("logging.console", defaults.Logging.Console)
	v.SetDefault("logging.pretty", defaults.Logging.Pretty)
	v.SetDefault("logging.max_size", defaults.Logging.MaxSize)
	v.SetDefault("logging.max_age", defaults.Logging.MaxAge)
	v.SetDefault("logging.compress", defaults.Logging.Compress)
	v.SetDefault("logging.redaction", defaults.Logging.Redaction)
	v.SetDefault("logging.audit_file", defaults.Logging.AuditFile)
	v.SetDefault("gateway.host", defaults.Gateway.Host)
	v.SetDefault("gateway.port", defaults.Gateway.Port)
	v.SetDefault("gateway.shared_secret", defaults.Gateway.SharedSecret)
	v.SetDefault("gateway.stream_buffer", defaults.Gateway.StreamBuffer)
	v.SetDefault("tools.workspace_root", defaults.Tools.WorkspaceRoot)
	v.SetDefault("data_dir", defaults.DataDir)

	return v
}

// Save saves the configuration to file
func (l *Loader) Save(cfg *Config) error {
	configPath, err := l.resolvePath()
	if err != nil {
		return err
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(configPath), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")

	v.Set("models", cfg.Models)
	v.Set("agent", cfg.Agent)
	v.Set("classifier", cfg.Classifier)
	v.Set("providers", cfg.Providers)
	v.Set("logging", cfg.Logging)
	v.Set("gateway", cfg.Gateway)
	v.Set("tools", cfg.Tools)
	v.Set("data_dir", cfg.DataDir)

	if err := v.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	// The file holds API keys.
	if err := os.Chmod(configPath, 0o600); err != nil {
		return fmt.Errorf("failed to restrict config file permissions: %w", err)
	}

	return nil
}

// GetConfigPath returns the config file path
func (l *Loader) GetConfigPath() string {
	path, err := l.resolvePath()
	if err != nil {
		return ""
	}
	return path
}

func (l *Loader) resolvePath() (string, error) {
	if l.configPath != "" {
		return l.configPath, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, defaultDirName, defaultFileName), nil
}

// Load is a convenience function that creates a loader and loads the config
func Load(configPath string) (*Config, error) {
	loader := NewLoader(configPath)
	return loader.Load()
}
