package chunker

import (
	"regexp"
	"strings"

	"github.com/quarrylabs/graphmill/pkg/tokenizer"
)

// Separator tiers, strongest first. A fragment is only split with the
// current tier; sub-fragments that still overflow fall through to the next
// finer tier. The final fallback is a raw token-window split.
var separatorTiers = []*regexp.Regexp{
	// Section breaks: blank lines before a heading, horizontal rules,
	// and runs of three or more newlines.
	regexp.MustCompile("\n{2,}#{1,6} |\n(?:-{3,}|\\*{3,}|_{3,})\n+|\n{3,}"),
	// Block breaks: paragraph boundaries.
	regexp.MustCompile("\n{2,}"),
	// Line breaks.
	regexp.MustCompile("\n"),
	// Sentence breaks: terminal punctuation (plus closing quotes or
	// brackets) followed by whitespace.
	regexp.MustCompile(`[.!?]["')\]]*\s+`),
	// Clause breaks.
	regexp.MustCompile(`[,;:]\s+`),
	// Whitespace of any kind.
	regexp.MustCompile(`\s+`),
}

// headingTail matches a heading marker at the end of a separator match; the
// marker belongs to the following content piece, not to the separator.
var headingTail = regexp.MustCompile("#{1,6} $")

// mediaMarker identifies chunks that begin with an inline media reference.
// A bare media block is not useful as an independent retrieval unit, so such
// chunks are folded into their predecessor.
const mediaMarker = "!["

// StructuralChunker splits a single text slice along a ranked hierarchy of
// structural separators, recursively falling back to finer separators only
// where a fragment still exceeds the token budget. Slices are processed
// independently of each other; chunks never span slice boundaries.
//
// Given identical input and configuration the output is byte-identical
// across runs.
type StructuralChunker struct {
	tok     tokenizer.Tokenizer
	size    int
	overlap int
	prefix  string
}

// NewStructuralChunker creates a StructuralChunker, failing fast on
// configuration mistakes.
func NewStructuralChunker(tok tokenizer.Tokenizer, cfg Config) (*StructuralChunker, error) {
	size, overlap, err := cfg.resolve(tok)
	if err != nil {
		return nil, err
	}
	return &StructuralChunker{
		tok:     tok,
		size:    size,
		overlap: overlap,
		prefix:  cfg.Prefix,
	}, nil
}

// Chunk processes each slice independently and returns the concatenated
// per-slice chunk lists in input order.
func (c *StructuralChunker) Chunk(slices []ChunkSlice) []TextChunk {
	var chunks []TextChunk
	for _, slice := range slices {
		chunks = append(chunks, c.chunkSlice(slice)...)
	}
	return chunks
}

func (c *StructuralChunker) chunkSlice(slice ChunkSlice) []TextChunk {
	text := strings.TrimSpace(slice.Text)
	if text == "" {
		return nil
	}

	run := &structuralRun{chunker: c}
	run.split(text, 0)
	run.flush()

	raw := run.chunks
	if len(raw) == 0 {
		return nil
	}

	// Inject overlap: each chunk after the first inherits the tail tokens
	// of its raw predecessor, decoded back to text.
	final := make([]string, len(raw))
	final[0] = raw[0]
	for i := 1; i < len(raw); i++ {
		final[i] = c.overlapTail(raw[i-1]) + raw[i]
	}

	// Merge orphaned media chunks into their predecessor. The raw text is
	// appended so the inherited overlap prefix is not duplicated.
	var merged []string
	for i, text := range final {
		if i > 0 && len(merged) > 0 && strings.HasPrefix(strings.TrimSpace(raw[i]), mediaMarker) {
			merged[len(merged)-1] += "\n\n" + raw[i]
			continue
		}
		merged = append(merged, text)
	}

	chunks := make([]TextChunk, 0, len(merged))
	for _, text := range merged {
		text = c.prefix + text
		if strings.TrimSpace(text) == "" {
			continue
		}
		chunks = append(chunks, TextChunk{
			SourceIDs:  []string{slice.SourceID},
			Text:       text,
			TokenCount: c.tok.Count(text),
		})
	}
	return chunks
}

func (c *StructuralChunker) overlapTail(prev string) string {
	if c.overlap <= 0 {
		return ""
	}
	tokens := c.tok.Encode(prev)
	if len(tokens) > c.overlap {
		tokens = tokens[len(tokens)-c.overlap:]
	}
	return c.tok.Decode(tokens)
}

// structuralRun accumulates the raw chunks of one slice. The first chunk of
// a slice carries no inherited overlap prefix and therefore uses the full
// budget; subsequent chunks reserve room for the overlap injected later.
type structuralRun struct {
	chunker *StructuralChunker
	chunks  []string
	pending strings.Builder
}

func (r *structuralRun) budget() int {
	if len(r.chunks) == 0 {
		return r.chunker.size
	}
	return r.restBudget()
}

// restBudget is the budget of every chunk after the first, which must leave
// room for the overlap prefix injected afterwards.
func (r *structuralRun) restBudget() int {
	rest := r.chunker.size - r.chunker.overlap
	if rest < 1 {
		rest = 1
	}
	return rest
}

func (r *structuralRun) flush() {
	text := strings.TrimRight(r.pending.String(), " \t\n\r")
	r.pending.Reset()
	if strings.TrimSpace(text) != "" {
		r.chunks = append(r.chunks, text)
	}
}

// split emits the fragment into the run, splitting it at the given tier and
// recursing into finer tiers for pieces that still overflow.
func (r *structuralRun) split(text string, tier int) {
	if r.chunker.tok.Count(text) <= r.budget() {
		r.append(text)
		return
	}

	if tier >= len(separatorTiers) {
		r.splitTokens(text)
		return
	}

	pieces := splitTier(text, separatorTiers[tier])
	if len(pieces) == 1 {
		r.split(text, tier+1)
		return
	}

	for _, piece := range pieces {
		if strings.TrimSpace(piece.content) == "" {
			continue
		}
		if r.chunker.tok.Count(piece.content) > r.restBudget() {
			r.flush()
			r.split(piece.content, tier+1)
			if r.pending.Len() > 0 {
				r.pending.WriteString(piece.separator)
			}
			continue
		}
		r.append(piece.content + piece.separator)
	}
}

// append greedily recombines adjacent pieces into the pending chunk up to
// budget, flushing when the next piece would overflow.
func (r *structuralRun) append(text string) {
	if r.pending.Len() > 0 {
		candidate := r.pending.String() + text
		if r.chunker.tok.Count(strings.TrimRight(candidate, " \t\n\r")) > r.budget() {
			r.flush()
		}
	}
	r.pending.WriteString(text)
}

// splitTokens is the last-resort split for fragments no separator tier can
// break: raw token windows of budget size. A single token can never be
// divided further, so one chunk may still exceed the budget only when the
// budget is below one token.
func (r *structuralRun) splitTokens(text string) {
	r.flush()
	tokens := r.chunker.tok.Encode(text)
	for start := 0; start < len(tokens); {
		end := min(start+r.budget(), len(tokens))
		r.chunks = append(r.chunks, r.chunker.tok.Decode(tokens[start:end]))
		start = end
	}
}

// piece is one content fragment and the separator that followed it. The
// separator of the final piece is empty.
type piece struct {
	content   string
	separator string
}

// splitTier cuts text at every match of the tier's separator pattern into
// alternating content/separator pieces. Terminal punctuation inside a match
// stays with the preceding content; a trailing heading marker stays with the
// following content.
func splitTier(text string, re *regexp.Regexp) []piece {
	matches := re.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return []piece{{content: text}}
	}

	var pieces []piece
	cursor := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		sep := text[start:end]

		// Punctuation at the head of the match belongs to the content
		// before it.
		lead := 0
		for lead < len(sep) && !isSpaceByte(sep[lead]) {
			lead++
		}

		// A heading marker at the tail of the match opens the next piece.
		tail := len(sep)
		if loc := headingTail.FindStringIndex(sep); loc != nil && loc[0] >= lead {
			tail = loc[0]
		}

		pieces = append(pieces, piece{
			content:   text[cursor : start+lead],
			separator: sep[lead:tail],
		})
		cursor = start + tail
	}
	if cursor < len(text) {
		pieces = append(pieces, piece{content: text[cursor:]})
	} else {
		// Keep the alternation well-formed when the text ends on a
		// separator.
		pieces = append(pieces, piece{})
	}
	return pieces
}

func isSpaceByte(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}
