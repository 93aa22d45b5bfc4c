// AI provider factory.
//
// The factory selects and constructs a concrete provider from the
// admin-configured kind. The credential is an API key for Claude/OpenAI and
// the server URL for Ollama.

package llm

import (
	"fmt"
	"strings"
)

// SupportedProviders is the fixed set of provider kinds the factory accepts.
var SupportedProviders = []string{"claude", "openai", "ollama"}

// NewProvider creates a provider for the given kind (case-insensitive).
// model is optional; each provider falls back to its default when empty.
func NewProvider(kind, credential, model string) (Provider, error) {
	switch strings.ToLower(kind) {
	case "claude":
		return NewClaudeProvider(credential, model), nil
	case "openai":
		return NewOpenAIProvider(credential, model), nil
	case "ollama":
		return NewOllamaProvider(credential, model)
	default:
		return nil, fmt.Errorf("unknown provider: %s. Supported providers: %s",
			kind, strings.Join(SupportedProviders, ", "))
	}
}
