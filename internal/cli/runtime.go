package cli

import (
	"fmt"
	"io"

	"github.com/harun/agentcore/internal/config"
	"github.com/harun/agentcore/internal/logger"
	"github.com/harun/agentcore/internal/observability"
	"github.com/harun/agentcore/pkg/agent"
	"github.com/harun/agentcore/pkg/classifier"
	"github.com/harun/agentcore/pkg/coretools"
	"github.com/harun/agentcore/pkg/provider"
	"github.com/harun/agentcore/pkg/toolexecutor"
	"github.com/rs/zerolog"
)

// runtime is everything a command needs to run turns.
type runtime struct {
	cfg    *config.Config
	log    *logger.Logger
	runner *agent.Runner
	tools  *toolexecutor.ToolExecutor
}

func (rt *runtime) Close() {
	if rt.log != nil {
		_ = rt.log.Close()
	}
	_ = observability.GetAuditLogger().Close()
}

// loadConfig loads the config file named by --config and applies --log-level.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return cfg, nil
}

// newRuntime builds the logger, provider router, tool registry, classifier and
// runner described by cfg. Console logs go to stderr.
func newRuntime(cfg *config.Config, stderr io.Writer, classify bool) (*runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logCfg := cfg.LoggerConfig()
	logCfg.Output = stderr
	logCfg.Service = "agentcore"
	logCfg.Version = GetVersion()
	log, err := logger.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	rt := &runtime{cfg: cfg, log: log}
	if err := rt.build(classify); err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

func (rt *runtime) build(classify bool) error {
	cfg := rt.cfg

	if cfg.Logging.AuditFile != "" {
		if err := observability.InitAuditLogger(cfg.Logging.AuditFile); err != nil {
			return fmt.Errorf("failed to initialize audit log: %w", err)
		}
	}

	factory := &provider.Factory{}
	router, err := factory.NewRouterFromProfiles(cfg.DefaultProvider(), cfg.Providers, cfg.Models.Aliases)
	if err != nil {
		return fmt.Errorf("failed to build providers: %w", err)
	}

	tools := toolexecutor.New()
	if err := coretools.RegisterCoreTools(tools, coretools.Options{
		WorkspaceRoot: cfg.Tools.WorkspaceRoot,
		Enabled:       cfg.Tools.Enabled,
	}); err != nil {
		return err
	}

	var c classifier.Classifier
	if classify && cfg.Classifier.Enabled {
		c = classifier.NewLLMClassifier(router, cfg.Classifier.Model, rt.log.Zerolog())
	}

	runner, err := agent.NewRunner(agent.Config{
		Provider:             router,
		Classifier:           c,
		ToolExecutor:         tools,
		Logger:               rt.log.Component("agent"),
		DefaultModel:         cfg.Models.Default,
		DefaultSystemMessage: cfg.Agent.SystemMessage,
		MaxTokens:            cfg.Agent.MaxTokens,
		Temperature:          cfg.Agent.Temperature,
		StreamBuffer:         cfg.Gateway.StreamBuffer,
	})
	if err != nil {
		return fmt.Errorf("failed to create runner: %w", err)
	}

	rt.runner = runner
	rt.tools = tools

	logger := rt.log.Component("cli")
	logger.Debug().
		Str("model", cfg.Models.Default).
		Int("tools", tools.GetToolCount()).
		Bool("classifier", c != nil).
		Msg("Runtime ready")
	return nil
}

// logger returns the runtime's zerolog logger tagged with component.
func (rt *runtime) logger(component string) zerolog.Logger {
	return rt.log.Component(component)
}
