package providers

import (
	"encoding/json"
	"fmt"
)

// Params is the caller's opaque chat-completion request. Values are kept as
// raw JSON so fields the proxy does not touch are forwarded byte for byte.
type Params map[string]json.RawMessage

// openRouterPreferences is the subset of OpenRouter's provider routing
// object the proxy fills in from a routing hint.
type openRouterPreferences struct {
	Order []string `json:"order"`
}

// BuildPayload returns a copy of params with model overridden for the given
// candidate. For OpenRouter a routing hint becomes a provider order
// preference unless the caller already supplied one.
func BuildPayload(params Params, candidate LLMQueryConfig) (Params, error) {
	out := make(Params, len(params)+2)
	for k, v := range params {
		out[k] = v
	}

	model, err := json.Marshal(candidate.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to encode model: %w", err)
	}
	out["model"] = model

	if candidate.Provider == OpenRouter && candidate.RoutingHint != nil && *candidate.RoutingHint != "" {
		if _, ok := out["provider"]; !ok {
			prefs, err := json.Marshal(openRouterPreferences{Order: []string{*candidate.RoutingHint}})
			if err != nil {
				return nil, fmt.Errorf("failed to encode routing hint: %w", err)
			}
			out["provider"] = prefs
		}
	}

	return out, nil
}

// StringField decodes a top level string field, reporting false when it is
// absent, null, empty or not a string.
func (p Params) StringField(name string) (string, bool) {
	raw, ok := p[name]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil || s == "" {
		return "", false
	}
	return s, true
}

// SetString overwrites a top level field with a JSON string.
func (p Params) SetString(name, value string) {
	raw, _ := json.Marshal(value)
	p[name] = raw
}
