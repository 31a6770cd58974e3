package cooloff

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/amerfu/llm-fallback/internal/services/providers"
)

const (
	keyNamespace = "cooloff"
	keySeparator = ":"
)

// EncodeKey builds the storage key for a provider/model pair. Both parts are
// query-escaped so the separator can never appear inside a segment.
func EncodeKey(provider providers.ProviderID, model string) string {
	return keyNamespace + keySeparator +
		url.QueryEscape(string(provider)) + keySeparator +
		url.QueryEscape(model)
}

// ParseKey is the inverse of EncodeKey.
func ParseKey(key string) (providers.ProviderID, string, error) {
	parts := strings.Split(key, keySeparator)
	if len(parts) != 3 {
		return "", "", fmt.Errorf("malformed cool-off key %q: expected 3 segments, got %d", key, len(parts))
	}
	if parts[0] != keyNamespace {
		return "", "", fmt.Errorf("malformed cool-off key %q: unknown namespace %q", key, parts[0])
	}

	provider, err := url.QueryUnescape(parts[1])
	if err != nil || provider == "" {
		return "", "", fmt.Errorf("malformed cool-off key %q: bad provider segment", key)
	}
	model, err := url.QueryUnescape(parts[2])
	if err != nil {
		return "", "", fmt.Errorf("malformed cool-off key %q: bad model segment", key)
	}

	return providers.ProviderID(provider), model, nil
}
