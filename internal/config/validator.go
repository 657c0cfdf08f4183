package config

import (
	"fmt"
	"strings"
)

// Validator validates individual configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateAPIKey validates an API key format
func (v *Validator) ValidateAPIKey(key string, providerName string) error {
	if key == "" {
		return fmt.Errorf("%s API key cannot be empty", providerName)
	}

	switch providerName {
	case "anthropic":
		if !strings.HasPrefix(key, "sk-ant-") {
			return fmt.Errorf("invalid Anthropic API key format (should start with sk-ant-)")
		}
	case "openai":
		if !strings.HasPrefix(key, "sk-") {
			return fmt.Errorf("invalid OpenAI API key format (should start with sk-)")
		}
	}

	return nil
}

// ValidateModel validates a model identifier. Both "<provider>:<model>" and
// bare model names are accepted; a prefix must name a supported provider.
func (v *Validator) ValidateModel(model string) error {
	if strings.TrimSpace(model) == "" {
		return fmt.Errorf("model name cannot be empty")
	}

	i := strings.Index(model, ":")
	if i < 0 {
		return nil
	}

	name, rest := model[:i], model[i+1:]
	if name != "anthropic" && name != "openai" {
		return fmt.Errorf("unknown provider %q in model %s (must be one of: anthropic, openai)", name, model)
	}
	if rest == "" {
		return fmt.Errorf("model %s: missing model name after provider", model)
	}
	return nil
}

// ValidateTemperature validates temperature value
func (v *Validator) ValidateTemperature(temp float64) error {
	if temp < 0 || temp > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %g", temp)
	}
	return nil
}

// ValidateMaxTokens validates max tokens value
func (v *Validator) ValidateMaxTokens(tokens int) error {
	if tokens <= 0 {
		return fmt.Errorf("max tokens must be positive, got %d", tokens)
	}
	if tokens > 200000 {
		return fmt.Errorf("max tokens too large (max 200000), got %d", tokens)
	}
	return nil
}

// ValidateLogLevel validates log level
func (v *Validator) ValidateLogLevel(level string) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	for _, valid := range validLevels {
		if level == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid log level: %s (must be one of: %s)", level, strings.Join(validLevels, ", "))
}

// ValidateToolName validates a built-in tool name in tools.enabled
func (v *Validator) ValidateToolName(name string, known []string) error {
	for _, k := range known {
		if name == k {
			return nil
		}
	}
	return fmt.Errorf("unknown tool: %s (must be one of: %s)", name, strings.Join(known, ", "))
}

// ValidateConfig performs comprehensive validation and returns every problem
// found, unlike Config.Validate which stops at the first.
func (v *Validator) ValidateConfig(cfg *Config, knownTools []string) []error {
	var errs []error

	for i, profile := range cfg.Providers {
		if err := v.ValidateAPIKey(profile.APIKey, profile.Name); err != nil {
			errs = append(errs, fmt.Errorf("provider %d (%s): %w", i, profile.Name, err))
		}
	}

	if err := v.ValidateModel(cfg.Models.Default); err != nil {
		errs = append(errs, fmt.Errorf("models.default: %w", err))
	}
	for alias, target := range cfg.Models.Aliases {
		if err := v.ValidateModel(target); err != nil {
			errs = append(errs, fmt.Errorf("models.aliases.%s: %w", alias, err))
		}
	}
	if cfg.Classifier.Model != "" {
		if err := v.ValidateModel(cfg.Classifier.Model); err != nil {
			errs = append(errs, fmt.Errorf("classifier.model: %w", err))
		}
	}

	if err := v.ValidateTemperature(cfg.Agent.Temperature); err != nil {
		errs = append(errs, fmt.Errorf("agent: %w", err))
	}
	if cfg.Agent.MaxTokens != 0 {
		if err := v.ValidateMaxTokens(cfg.Agent.MaxTokens); err != nil {
			errs = append(errs, fmt.Errorf("agent: %w", err))
		}
	}

	if knownTools != nil {
		for _, name := range cfg.Tools.Enabled {
			if err := v.ValidateToolName(name, knownTools); err != nil {
				errs = append(errs, fmt.Errorf("tools.enabled: %w", err))
			}
		}
	}

	if err := v.ValidateLogLevel(cfg.Logging.Level); err != nil {
		errs = append(errs, err)
	}

	return errs
}
