package chunker

import (
	"fmt"

	"github.com/quarrylabs/graphmill/pkg/tokenizer"
)

// ChunkSlice is an addressable unit of raw text before chunking.
type ChunkSlice struct {
	SourceID string
	Text     string
}

// TextChunk is the atomic unit consumed by graph extraction. SourceIDs may
// aggregate multiple slices when a chunk spans document boundaries.
// TokenCount always equals the token count of Text under the chunker's
// tokenizer, and stays within the configured chunk size except when a single
// indivisible fragment unavoidably exceeds it.
type TextChunk struct {
	SourceIDs  []string `json:"source_ids"`
	Text       string   `json:"text"`
	TokenCount int      `json:"token_count"`
}

// Chunker splits labeled text slices into token-bounded chunks.
type Chunker interface {
	Chunk(slices []ChunkSlice) []TextChunk
}

// Config holds the shared chunking parameters. Prefix is an optional
// metadata header prepended to every emitted chunk; its token cost is
// charged against Size.
type Config struct {
	Size    int
	Overlap int
	Prefix  string
}

// resolve validates the configuration against the tokenizer and returns the
// effective content budget and overlap. Configuration mistakes fail here,
// before any chunking work happens.
func (c Config) resolve(tok tokenizer.Tokenizer) (size, overlap int, err error) {
	if c.Size <= 0 {
		return 0, 0, fmt.Errorf("chunk size must be positive, got %d", c.Size)
	}
	if c.Overlap < 0 {
		return 0, 0, fmt.Errorf("chunk overlap must not be negative, got %d", c.Overlap)
	}

	size = c.Size
	if c.Prefix != "" {
		prefixTokens := tok.Count(c.Prefix)
		if prefixTokens >= c.Size {
			return 0, 0, fmt.Errorf(
				"metadata prefix is %d tokens, must be shorter than chunk size %d",
				prefixTokens, c.Size,
			)
		}
		size = c.Size - prefixTokens
	}

	overlap = c.Overlap
	if overlap >= size {
		overlap = size - 1
	}
	return size, overlap, nil
}
