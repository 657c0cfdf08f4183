package cli

import (
	"fmt"
	"os"

	"github.com/harun/agentcore/internal/config"
	"github.com/harun/agentcore/internal/logger"
	"github.com/harun/agentcore/internal/observability"
	"github.com/harun/agentcore/pkg/coretools"
	"github.com/spf13/cobra"
)

var (
	initInteractive bool
	initForce       bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file",
	Long: `Write the default configuration to the config file. With --interactive the
provider keys, default model, gateway secret and log level are asked for first.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration with secrets redacted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), logger.NewRedactor().Redact(cfg.String()))
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration and report every problem",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		problems := config.NewValidator().ValidateConfig(cfg, coretools.Names())
		if err := cfg.Validate(); err != nil {
			problems = append(problems, err)
		}
		if len(problems) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Configuration is valid")
			return nil
		}
		for _, p := range problems {
			fmt.Fprintf(cmd.ErrOrStderr(), "- %v\n", p)
		}
		return fmt.Errorf("configuration has %d problem(s)", len(problems))
	},
}

func init() {
	configInitCmd.Flags().BoolVarP(&initInteractive, "interactive", "i", false, "prompt for settings")
	configInitCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing file")

	configCmd.AddCommand(configInitCmd, configShowCmd, configValidateCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	loader := config.NewLoader(cfgFile)
	configPath := loader.GetConfigPath()

	if _, err := os.Stat(configPath); err == nil && !initForce {
		return fmt.Errorf("config file %s already exists (use --force to overwrite)", configPath)
	}

	cfg := config.DefaultConfig()
	if initInteractive {
		var err error
		cfg, err = config.NewWizard(cmd.InOrStdin(), cmd.OutOrStdout()).Run()
		if err != nil {
			return fmt.Errorf("configuration failed: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
	}

	if err := loader.Save(cfg); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	observability.RecordConfigAudit(cmd.Context(), "config.init", "cli", map[string]interface{}{
		"path":        configPath,
		"interactive": initInteractive,
	})

	fmt.Fprintf(cmd.OutOrStdout(), "Configuration saved to: %s\n", configPath)
	if len(cfg.Providers) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Add a provider API key before running turns.")
	}
	return nil
}
