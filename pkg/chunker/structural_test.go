package chunker

import (
	"reflect"
	"strings"
	"testing"
)

func TestStructuralChunkerSmallInput(t *testing.T) {
	c, err := NewStructuralChunker(runeTokenizer{}, Config{Size: 60, Overlap: 10})
	if err != nil {
		t.Fatalf("NewStructuralChunker() error = %v", err)
	}

	chunks := c.Chunk([]ChunkSlice{{SourceID: "d1", Text: "# T\n\nAlice met Bob."}})
	if len(chunks) < 1 {
		t.Fatal("expected at least one chunk")
	}
	if !reflect.DeepEqual(chunks[0].SourceIDs, []string{"d1"}) {
		t.Errorf("source ids = %v, want [d1]", chunks[0].SourceIDs)
	}
	if strings.TrimSpace(chunks[0].Text) == "" {
		t.Error("chunk text is empty after trimming")
	}
}

func TestStructuralChunkerDeterminism(t *testing.T) {
	text := "# Heading\n\nFirst paragraph with some words. Second sentence here!\n\n" +
		"- list item one\n- list item two\n\n" +
		"| col1 | col2 |\n| ---- | ---- |\n| a | b |\n\n" +
		"```\ncode block content\n```\n\n" +
		"![diagram](img.png)\n\nClosing paragraph, with a clause; and another."
	c, err := NewStructuralChunker(runeTokenizer{}, Config{Size: 40, Overlap: 8})
	if err != nil {
		t.Fatalf("NewStructuralChunker() error = %v", err)
	}

	slices := []ChunkSlice{{SourceID: "doc", Text: text}}
	first := c.Chunk(slices)
	second := c.Chunk(slices)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated chunking differs:\nfirst:  %#v\nsecond: %#v", first, second)
	}
	if len(first) == 0 {
		t.Fatal("expected chunks")
	}
}

func TestStructuralChunkerParagraphSplit(t *testing.T) {
	c, err := NewStructuralChunker(runeTokenizer{}, Config{Size: 6, Overlap: 0})
	if err != nil {
		t.Fatalf("NewStructuralChunker() error = %v", err)
	}

	chunks := c.Chunk([]ChunkSlice{{SourceID: "d1", Text: "aaaa\n\nbbbb"}})
	want := []string{"aaaa", "bbbb"}
	if len(chunks) != len(want) {
		t.Fatalf("got %d chunks, want %d", len(chunks), len(want))
	}
	for i, chunk := range chunks {
		if chunk.Text != want[i] {
			t.Errorf("chunk %d text = %q, want %q", i, chunk.Text, want[i])
		}
	}
}

func TestStructuralChunkerOverlapInjection(t *testing.T) {
	c, err := NewStructuralChunker(runeTokenizer{}, Config{Size: 6, Overlap: 2})
	if err != nil {
		t.Fatalf("NewStructuralChunker() error = %v", err)
	}

	chunks := c.Chunk([]ChunkSlice{{SourceID: "d1", Text: "aaaa\n\nbbbb"}})
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	// The second chunk inherits the last two tokens of the first.
	if chunks[1].Text != "aabbbb" {
		t.Errorf("second chunk text = %q, want %q", chunks[1].Text, "aabbbb")
	}
	for i, chunk := range chunks {
		if chunk.TokenCount > 6 {
			t.Errorf("chunk %d token count = %d, exceeds size 6", i, chunk.TokenCount)
		}
	}
}

func TestStructuralChunkerMediaMerge(t *testing.T) {
	c, err := NewStructuralChunker(runeTokenizer{}, Config{Size: 6, Overlap: 0})
	if err != nil {
		t.Fatalf("NewStructuralChunker() error = %v", err)
	}

	chunks := c.Chunk([]ChunkSlice{{SourceID: "d1", Text: "aaaa\n\n![b]"}})
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1 after media merge", len(chunks))
	}
	if !strings.Contains(chunks[0].Text, "![b]") {
		t.Errorf("merged chunk %q does not contain media reference", chunks[0].Text)
	}
	if !strings.HasPrefix(chunks[0].Text, "aaaa") {
		t.Errorf("merged chunk %q does not start with preceding content", chunks[0].Text)
	}
}

func TestStructuralChunkerSlicesIndependent(t *testing.T) {
	c, err := NewStructuralChunker(runeTokenizer{}, Config{Size: 50, Overlap: 5})
	if err != nil {
		t.Fatalf("NewStructuralChunker() error = %v", err)
	}

	chunks := c.Chunk([]ChunkSlice{
		{SourceID: "a", Text: "first document text"},
		{SourceID: "b", Text: "second document text"},
	})
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	for _, chunk := range chunks {
		if len(chunk.SourceIDs) != 1 {
			t.Errorf("chunk spans slices: source ids = %v", chunk.SourceIDs)
		}
	}
}

func TestStructuralChunkerIndivisibleFragment(t *testing.T) {
	// A fragment with no separators falls through to raw token windows.
	c, err := NewStructuralChunker(runeTokenizer{}, Config{Size: 4, Overlap: 0})
	if err != nil {
		t.Fatalf("NewStructuralChunker() error = %v", err)
	}

	chunks := c.Chunk([]ChunkSlice{{SourceID: "d1", Text: "abcdefghij"}})
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	want := []string{"abcd", "efgh", "ij"}
	for i, chunk := range chunks {
		if chunk.Text != want[i] {
			t.Errorf("chunk %d text = %q, want %q", i, chunk.Text, want[i])
		}
	}
}

func TestStructuralChunkerEmptyInput(t *testing.T) {
	c, err := NewStructuralChunker(runeTokenizer{}, Config{Size: 10, Overlap: 0})
	if err != nil {
		t.Fatalf("NewStructuralChunker() error = %v", err)
	}
	if chunks := c.Chunk([]ChunkSlice{{SourceID: "d1", Text: "  \n\n  "}}); chunks != nil {
		t.Errorf("got %v, want nil for whitespace input", chunks)
	}
}
