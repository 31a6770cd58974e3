package providers

import (
	"errors"
	"testing"

	"github.com/amerfu/llm-fallback/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_Resolve(t *testing.T) {
	r := NewResolver(config.ProvidersConfig{
		Cerebras:  config.ProviderEndpointConfig{BaseURL: "https://api.cerebras.ai/v1/", APIKey: "csk"},
		Groq:      config.ProviderEndpointConfig{BaseURL: "https://api.groq.com/openai/v1"},
		Fireworks: config.ProviderEndpointConfig{APIKey: "fw"},
	})

	ep, err := r.Resolve(Cerebras)
	require.NoError(t, err)
	assert.True(t, ep.Usable())
	assert.Equal(t, "https://api.cerebras.ai/v1/chat/completions", ep.ChatCompletionsURL())

	ep, err = r.Resolve(Groq)
	require.NoError(t, err, "missing key is not a hard error")
	assert.False(t, ep.Usable())

	ep, err = r.Resolve(Fireworks)
	require.NoError(t, err)
	assert.False(t, ep.Usable(), "missing base URL is not usable")

	_, err = r.Resolve(ProviderID("openai"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnconfiguredProvider))

	assert.Equal(t, []ProviderID{Cerebras}, r.Configured())
}
