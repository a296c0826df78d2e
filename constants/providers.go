package constants

import "strings"

// Provider is the canonical identifier for a text-recognition backend.
type Provider string

// Stable values (these exact strings appear in config, logs, and results).
const (
	ProviderOCRSpace Provider = "ocrspace"
	ProviderOpenAI   Provider = "openai"
	ProviderGemini   Provider = "gemini"
)

// DefaultProviderOrder is the fallback chain used when config supplies none.
var DefaultProviderOrder = []string{
	string(ProviderOCRSpace),
	string(ProviderOpenAI),
	string(ProviderGemini),
}

// KnownProviders holds every provider this build can construct.
var KnownProviders = map[string]struct{}{
	string(ProviderOCRSpace): {},
	string(ProviderOpenAI):   {},
	string(ProviderGemini):   {},
}

// NormalizeProvider lowercases and trims a provider identifier.
func NormalizeProvider(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// IsKnownProvider reports whether name maps to a constructible provider.
func IsKnownProvider(name string) bool {
	_, ok := KnownProviders[NormalizeProvider(name)]
	return ok
}
