package chunker

import (
	"strings"

	"ai-redteam-be/pkg/apperr"
)

const (
	DefaultChunkSize = 500
	DefaultOverlap   = 50
)

// Chunker splits extracted text into overlapping word windows. Overlap
// preserves context at window boundaries so a query near a boundary
// still retrieves the neighboring window.
type Chunker struct {
	ChunkSize int // words per window
	Overlap   int // words shared with the previous window
}

func New(chunkSize, overlap int) (*Chunker, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = DefaultOverlap
	}
	// A stride of chunkSize-overlap <= 0 would never advance.
	if chunkSize <= overlap {
		return nil, apperr.NewConfigurationError("chunk_size", "must be greater than overlap")
	}
	return &Chunker{ChunkSize: chunkSize, Overlap: overlap}, nil
}

// Split cuts text into windows of ChunkSize words joined with single
// spaces, advancing by ChunkSize-Overlap words each step. The last
// window may be shorter; empty input yields no chunks.
func (c *Chunker) Split(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	step := c.ChunkSize - c.Overlap

	var chunks []string
	for i := 0; i < len(words); i += step {
		end := i + c.ChunkSize
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[i:end], " "))

		// The window that reaches the tail is the final one, even when
		// the next start index would still be in range.
		if i+c.ChunkSize >= len(words) {
			break
		}
	}

	return chunks
}
