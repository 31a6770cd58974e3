package providers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/amerfu/llm-fallback/internal/config"
)

// ErrUnconfiguredProvider is returned for identifiers outside the known set.
var ErrUnconfiguredProvider = errors.New("unconfigured provider")

// Endpoint is the resolved connection info for a provider.
type Endpoint struct {
	Provider ProviderID
	BaseURL  string
	APIKey   string
}

// Usable reports whether both the base URL and the API key are present.
func (e Endpoint) Usable() bool {
	return e.BaseURL != "" && e.APIKey != ""
}

// ChatCompletionsURL is the upstream chat completion endpoint.
func (e Endpoint) ChatCompletionsURL() string {
	return strings.TrimRight(e.BaseURL, "/") + "/chat/completions"
}

// Resolver maps provider identifiers to endpoints. It is built once at
// startup and never mutated.
type Resolver struct {
	endpoints map[ProviderID]Endpoint
}

// NewResolver builds a resolver from the provider configuration.
func NewResolver(cfg config.ProvidersConfig) *Resolver {
	byName := cfg.ByName()
	endpoints := make(map[ProviderID]Endpoint, len(KnownProviders))
	for _, id := range KnownProviders {
		p := byName[string(id)]
		endpoints[id] = Endpoint{
			Provider: id,
			BaseURL:  strings.TrimSpace(p.BaseURL),
			APIKey:   strings.TrimSpace(p.APIKey),
		}
	}
	return &Resolver{endpoints: endpoints}
}

// Resolve returns the endpoint for id. Known providers always resolve; the
// caller must check Usable before dispatching to them.
func (r *Resolver) Resolve(id ProviderID) (Endpoint, error) {
	ep, ok := r.endpoints[id]
	if !ok {
		return Endpoint{}, fmt.Errorf("%w: %q", ErrUnconfiguredProvider, id)
	}
	return ep, nil
}

// Configured lists the providers that have both a base URL and an API key.
func (r *Resolver) Configured() []ProviderID {
	var out []ProviderID
	for _, id := range KnownProviders {
		if r.endpoints[id].Usable() {
			out = append(out, id)
		}
	}
	return out
}
