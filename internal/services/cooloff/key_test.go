package cooloff

import (
	"testing"

	"github.com/amerfu/llm-fallback/internal/services/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey_RoundTrip(t *testing.T) {
	models := []string{
		"m1",
		"llama-3.3-70b",
		"meta-llama/Llama-3.3-70B-Instruct",
		"accounts/fireworks/models/llama-v3p1-405b-instruct",
		"weird:model:with:colons",
		"percent%2Fliteral",
		"plus+and space",
		"",
	}

	for _, p := range providers.KnownProviders {
		for _, m := range models {
			key := EncodeKey(p, m)
			gotProvider, gotModel, err := ParseKey(key)
			require.NoError(t, err, key)
			assert.Equal(t, p, gotProvider)
			assert.Equal(t, m, gotModel)
		}
	}
}

func TestKey_NoCollisions(t *testing.T) {
	a := EncodeKey(providers.Groq, "a:b")
	b := EncodeKey(providers.ProviderID("groq:a"), "b")
	assert.NotEqual(t, a, b)
}

func TestParseKey_Malformed(t *testing.T) {
	for _, key := range []string{
		"",
		"cooloff",
		"cooloff:groq",
		"cooloff:groq:m1:extra",
		"other:groq:m1",
		"cooloff::m1",
		"cooloff:groq:%zz",
	} {
		_, _, err := ParseKey(key)
		assert.Error(t, err, key)
	}
}
