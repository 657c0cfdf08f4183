package provider

import "fmt"

// Profile holds the credentials of one provider.
type Profile struct {
	Name    string `json:"name" mapstructure:"name"`
	APIKey  string `json:"api_key" mapstructure:"api_key"`
	BaseURL string `json:"base_url,omitempty" mapstructure:"base_url"`
}

// Factory creates LLM providers
type Factory struct{}

// NewProvider creates a new LLM provider based on a profile
func (f *Factory) NewProvider(profile Profile) (Provider, error) {
	switch profile.Name {
	case "anthropic":
		return NewAnthropicProvider(profile.APIKey, profile.BaseURL), nil
	case "openai":
		return NewOpenAIProvider(profile.APIKey, profile.BaseURL), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, profile.Name)
	}
}

// NewRouterFromProfiles builds a router with one provider per profile.
func (f *Factory) NewRouterFromProfiles(defaultProvider string, profiles []Profile, aliases map[string]string) (*Router, error) {
	router := NewRouter(defaultProvider)
	for _, profile := range profiles {
		p, err := f.NewProvider(profile)
		if err != nil {
			return nil, err
		}
		router.Register(p)
	}
	for alias, target := range aliases {
		router.Alias(alias, target)
	}
	return router, nil
}
