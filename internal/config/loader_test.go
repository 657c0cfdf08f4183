package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/harun/agentcore/pkg/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoader(t *testing.T) {
	loader := NewLoader("/path/to/config.json")
	assert.Equal(t, "/path/to/config.json", loader.GetConfigPath())

	loader = NewLoader("")
	assert.Contains(t, loader.GetConfigPath(), filepath.Join(".agentcore", "agentcore.json"))
}

func TestLoaderLoad(t *testing.T) {
	t.Run("should return defaults when the file does not exist", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "nonexistent.json")

		cfg, err := NewLoader(configPath).Load()

		require.NoError(t, err)
		assert.Equal(t, "openai:gpt-4.1-nano", cfg.Models.Default)
		assert.Equal(t, filepath.Dir(configPath), cfg.DataDir)
		assert.Equal(t, filepath.Join(cfg.DataDir, "workspace"), cfg.Tools.WorkspaceRoot)
	})

	t.Run("should load values from file", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "agentcore.json")

		testConfig := `{
			"models": {"default": "anthropic:claude-sonnet-4-20250514"},
			"agent": {"max_tokens": 2048},
			"providers": [{"name": "anthropic", "api_key": "sk-ant-test", "base_url": "http://localhost:9000"}],
			"gateway": {"port": 9191, "shared_secret": "s3cret"},
			"tools": {"workspace_root": "/srv/work", "enabled": ["current_time"]}
		}`
		require.NoError(t, os.WriteFile(configPath, []byte(testConfig), 0o600))

		cfg, err := NewLoader(configPath).Load()

		require.NoError(t, err)
		assert.Equal(t, "anthropic:claude-sonnet-4-20250514", cfg.Models.Default)
		assert.Equal(t, 2048, cfg.Agent.MaxTokens)
		assert.Equal(t, "You are a helpful AI assistant.", cfg.Agent.SystemMessage)
		require.Len(t, cfg.Providers, 1)
		assert.Equal(t, "http://localhost:9000", cfg.Providers[0].BaseURL)
		assert.Equal(t, 9191, cfg.Gateway.Port)
		assert.Equal(t, "127.0.0.1", cfg.Gateway.Host)
		assert.Equal(t, "s3cret", cfg.Gateway.SharedSecret)
		assert.Equal(t, "/srv/work", cfg.Tools.WorkspaceRoot)
		assert.Equal(t, []string{"current_time"}, cfg.Tools.Enabled)
	})

	t.Run("should apply environment overrides", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "agentcore.json")
		require.NoError(t, os.WriteFile(configPath, []byte(`{"gateway": {"port": 9191}}`), 0o600))

		t.Setenv("AGENTCORE_GATEWAY_PORT", "7070")
		t.Setenv("AGENTCORE_MODELS_DEFAULT", "openai:gpt-4.1-mini")

		cfg, err := NewLoader(configPath).Load()

		require.NoError(t, err)
		assert.Equal(t, 7070, cfg.Gateway.Port)
		assert.Equal(t, "openai:gpt-4.1-mini", cfg.Models.Default)
	})

	t.Run("should fail on invalid JSON", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "invalid.json")
		require.NoError(t, os.WriteFile(configPath, []byte("invalid json"), 0o600))

		_, err := NewLoader(configPath).Load()
		assert.Error(t, err)
	})
}

func TestLoaderSave(t *testing.T) {
	t.Run("should round trip through the file", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "nested", "agentcore.json")
		loader := NewLoader(configPath)

		cfg := DefaultConfig()
		cfg.Providers = []provider.Profile{{Name: "openai", APIKey: "sk-openai-test"}}
		cfg.Gateway.SharedSecret = "s3cret"
		require.NoError(t, loader.Save(cfg))

		info, err := os.Stat(configPath)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

		loaded, err := loader.Load()
		require.NoError(t, err)
		require.Len(t, loaded.Providers, 1)
		assert.Equal(t, "sk-openai-test", loaded.Providers[0].APIKey)
		assert.Equal(t, "s3cret", loaded.Gateway.SharedSecret)
		assert.Equal(t, cfg.Models.Default, loaded.Models.Default)
		assert.NoError(t, loaded.Validate())
	})
}

func TestLoad(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.NotNil(t, cfg)
}
