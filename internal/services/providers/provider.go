package providers

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ProviderID identifies an upstream OpenAI-compatible inference API.
type ProviderID string

const (
	Cerebras   ProviderID = "cerebras"
	DeepInfra  ProviderID = "deepinfra"
	OpenRouter ProviderID = "openrouter"
	Groq       ProviderID = "groq"
	Fireworks  ProviderID = "fireworks"
)

// KnownProviders lists every supported provider in a stable order.
var KnownProviders = []ProviderID{Cerebras, DeepInfra, OpenRouter, Groq, Fireworks}

// Valid reports whether p is one of the known providers.
func (p ProviderID) Valid() bool {
	switch p {
	case Cerebras, DeepInfra, OpenRouter, Groq, Fireworks:
		return true
	}
	return false
}

func (p ProviderID) String() string {
	return string(p)
}

// ParseProviderID validates s against the known providers.
func ParseProviderID(s string) (ProviderID, error) {
	p := ProviderID(s)
	if !p.Valid() {
		return "", fmt.Errorf("unknown provider %q, expected one of %v", s, KnownProviders)
	}
	return p, nil
}

// LLMQueryConfig is one ranked candidate supplied by the caller. On the wire
// it is the tuple [model, provider, routingHint|null, highPriority].
type LLMQueryConfig struct {
	Model        string
	Provider     ProviderID
	RoutingHint  *string
	HighPriority bool
}

var jsonNull = []byte("null")

// UnmarshalJSON decodes and validates the four element tuple form.
func (c *LLMQueryConfig) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("expected a [model, provider, routingHint, flag] array")
	}
	if len(parts) != 4 {
		return fmt.Errorf("expected 4 elements, got %d", len(parts))
	}

	var out LLMQueryConfig

	if isNull(parts[0]) {
		return fmt.Errorf("model must be a string")
	}
	if err := json.Unmarshal(parts[0], &out.Model); err != nil {
		return fmt.Errorf("model must be a string")
	}

	var provider string
	if isNull(parts[1]) {
		return fmt.Errorf("provider must be a string")
	}
	if err := json.Unmarshal(parts[1], &provider); err != nil {
		return fmt.Errorf("provider must be a string")
	}
	id, err := ParseProviderID(provider)
	if err != nil {
		return err
	}
	out.Provider = id

	if !isNull(parts[2]) {
		var hint string
		if err := json.Unmarshal(parts[2], &hint); err != nil {
			return fmt.Errorf("routingHint must be a string or null")
		}
		out.RoutingHint = &hint
	}

	if isNull(parts[3]) {
		return fmt.Errorf("flag must be a boolean")
	}
	if err := json.Unmarshal(parts[3], &out.HighPriority); err != nil {
		return fmt.Errorf("flag must be a boolean")
	}

	*c = out
	return nil
}

// MarshalJSON encodes the config back into its tuple form.
func (c LLMQueryConfig) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{c.Model, c.Provider, c.RoutingHint, c.HighPriority})
}

func (c LLMQueryConfig) String() string {
	return fmt.Sprintf("%s/%s", c.Provider, c.Model)
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), jsonNull)
}
