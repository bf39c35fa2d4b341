package embedding

import "fmt"

// NewProvider selects an embedding backend by name. "ollama" talks to a
// local Ollama daemon; "local" is the in-process hashing embedder used
// for offline runs.
func NewProvider(providerType, baseURL, model string, dimension int) (EmbeddingProvider, error) {
	switch providerType {
	case "ollama":
		return NewOllamaProvider(baseURL, model), nil
	case "local":
		return NewHashingProvider(dimension), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", providerType)
	}
}
