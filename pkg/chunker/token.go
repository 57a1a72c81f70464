package chunker

import (
	"github.com/quarrylabs/graphmill/pkg/tokenizer"
)

// TokenChunker splits a set of labeled text slices into fixed-token-budget,
// overlapping windows. The token streams of all slices are concatenated, so
// a single window may span slice boundaries; the chunk then carries every
// contributing source id.
type TokenChunker struct {
	tok     tokenizer.Tokenizer
	size    int
	overlap int
	prefix  string
}

// NewTokenChunker creates a TokenChunker. It fails fast on configuration
// mistakes such as a non-positive size or a metadata prefix that does not
// leave room for content.
func NewTokenChunker(tok tokenizer.Tokenizer, cfg Config) (*TokenChunker, error) {
	size, overlap, err := cfg.resolve(tok)
	if err != nil {
		return nil, err
	}
	return &TokenChunker{
		tok:     tok,
		size:    size,
		overlap: overlap,
		prefix:  cfg.Prefix,
	}, nil
}

// Chunk walks a window of the configured size over the combined token
// stream, advancing by size-overlap tokens (minimum 1) per step. A final
// partial window is still emitted as long as it holds at least one token.
func (c *TokenChunker) Chunk(slices []ChunkSlice) []TextChunk {
	var tokens []int
	var owners []string
	for _, slice := range slices {
		for _, t := range c.tok.Encode(slice.Text) {
			tokens = append(tokens, t)
			owners = append(owners, slice.SourceID)
		}
	}
	if len(tokens) == 0 {
		return nil
	}

	step := c.size - c.overlap
	if step < 1 {
		step = 1
	}

	var chunks []TextChunk
	for start := 0; start < len(tokens); start += step {
		end := min(start+c.size, len(tokens))

		text := c.prefix + c.tok.Decode(tokens[start:end])
		chunks = append(chunks, TextChunk{
			SourceIDs:  distinctOwners(owners[start:end]),
			Text:       text,
			TokenCount: c.tok.Count(text),
		})

		if end == len(tokens) {
			break
		}
	}
	return chunks
}

// distinctOwners returns the distinct source ids of a window in first-seen
// order, keeping output deterministic for identical input.
func distinctOwners(window []string) []string {
	var ids []string
	seen := make(map[string]struct{}, 1)
	for _, id := range window {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}
