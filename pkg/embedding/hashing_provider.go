package embedding

import (
	"hash/fnv"
	"regexp"
	"strings"
)

const defaultHashingDimension = 768

var tokenPattern = regexp.MustCompile(`[a-z0-9']+`)

// HashingProvider is a deterministic, fully local embedder. Each token is
// hashed into a fixed-size bucket vector (feature hashing), then the
// vector is normalized to unit length. The embeddings carry no semantics
// beyond lexical overlap, which is enough for offline runs and tests
// where Ollama is not available.
type HashingProvider struct {
	Dimension int
}

func NewHashingProvider(dimension int) EmbeddingProvider {
	if dimension <= 0 {
		dimension = defaultHashingDimension
	}
	return &HashingProvider{Dimension: dimension}
}

func (p *HashingProvider) Generate(text string, taskType string) (*EmbeddingResponse, error) {
	values := make([]float32, p.Dimension)

	tokens := tokenPattern.FindAllString(strings.ToLower(text), -1)
	for _, tok := range tokens {
		h := fnv.New32a()
		h.Write([]byte(tok))
		values[int(h.Sum32())%p.Dimension]++
	}

	return &EmbeddingResponse{
		Embedding: EmbeddingResponseEmbedding{
			Values: normalizeVector(values),
		},
	}, nil
}
