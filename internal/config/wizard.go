package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/harun/agentcore/pkg/provider"
)

// Wizard prompts for the settings `agentcore config init --interactive` writes
type Wizard struct {
	reader *bufio.Reader
	out    io.Writer
}

// NewWizard creates a wizard reading answers from in and writing prompts to out
func NewWizard(in io.Reader, out io.Writer) *Wizard {
	return &Wizard{
		reader: bufio.NewReader(in),
		out:    out,
	}
}

// Run asks for provider keys, the default model, the gateway secret and the
// log level, starting from DefaultConfig.
func (w *Wizard) Run() (*Config, error) {
	fmt.Fprintln(w.out, "=== agentcore configuration ===")
	fmt.Fprintln(w.out)

	cfg := DefaultConfig()
	validator := NewValidator()

	fmt.Fprintln(w.out, "Provider API keys (at least one is required):")
	for _, name := range []string{"openai", "anthropic"} {
		key, err := w.askAPIKey(validator, name)
		if err != nil {
			return nil, err
		}
		if key != "" {
			cfg.Providers = append(cfg.Providers, provider.Profile{Name: name, APIKey: key})
		}
	}

	if len(cfg.Providers) == 0 {
		return nil, fmt.Errorf("at least one API key is required")
	}

	// Without an OpenAI key the built-in default model cannot resolve.
	if _, ok := cfg.Profile("openai"); !ok {
		cfg.Models.Default = "anthropic:claude-sonnet-4-20250514"
	}

	fmt.Fprintln(w.out)
	model, err := w.ask(fmt.Sprintf("Default model [%s]: ", cfg.Models.Default))
	if err != nil {
		return nil, err
	}
	if model != "" {
		if err := validator.ValidateModel(model); err != nil {
			fmt.Fprintf(w.out, "Warning: %v, keeping %s\n", err, cfg.Models.Default)
		} else {
			cfg.Models.Default = model
		}
	}

	secret, err := w.ask("Gateway shared secret (press Enter for none): ")
	if err != nil {
		return nil, err
	}
	cfg.Gateway.SharedSecret = secret

	level, err := w.ask("Log level (debug/info/warn/error) [info]: ")
	if err != nil {
		return nil, err
	}
	if level != "" {
		if err := validator.ValidateLogLevel(level); err != nil {
			fmt.Fprintf(w.out, "Warning: %v, using default (info)\n", err)
		} else {
			cfg.Logging.Level = level
		}
	}

	fmt.Fprintln(w.out)
	fmt.Fprintln(w.out, "Configuration complete!")

	return cfg, nil
}

func (w *Wizard) askAPIKey(validator *Validator, name string) (string, error) {
	for {
		key, err := w.ask(fmt.Sprintf("%s API key (press Enter to skip): ", name))
		if err != nil || key == "" {
			return "", err
		}
		if err := validator.ValidateAPIKey(key, name); err != nil {
			fmt.Fprintf(w.out, "Error: %v\n", err)
			continue
		}
		return key, nil
	}
}

// ask prints prompt and returns the trimmed answer. A final answer without a
// trailing newline is accepted; running out of input afterwards is an error.
func (w *Wizard) ask(prompt string) (string, error) {
	fmt.Fprint(w.out, prompt)
	line, err := w.reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		return "", fmt.Errorf("failed to read answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}
