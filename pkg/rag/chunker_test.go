package rag

import (
	"strings"
	"testing"
)

func TestChunkParagraphs(t *testing.T) {
	text := "Go is an open source programming language that makes it simple to build software.\n\n" +
		"Short.\n\n" +
		"It was designed at Google in 2007 to improve programming productivity at scale."

	chunks := Chunk(text)

	if len(chunks) != 2 {
		t.Fatalf("chunk count = %d, want 2 (short paragraph should be dropped)", len(chunks))
	}
	if !strings.HasPrefix(chunks[0], "Go is an open source") {
		t.Errorf("chunks[0] = %q, want first paragraph", chunks[0])
	}
	if !strings.HasPrefix(chunks[1], "It was designed at Google") {
		t.Errorf("chunks[1] = %q, want third paragraph", chunks[1])
	}
}

func TestChunkTwoParagraphs(t *testing.T) {
	text := "Para one is long enough to pass fifty chars threshold.\n\n" +
		"Para two also exceeds the fifty character minimum easily."

	chunks := Chunk(text)

	if len(chunks) != 2 {
		t.Fatalf("chunk count = %d, want 2: %v", len(chunks), chunks)
	}
	if chunks[0] != "Para one is long enough to pass fifty chars threshold." {
		t.Errorf("chunks[0] = %q", chunks[0])
	}
	if chunks[1] != "Para two also exceeds the fifty character minimum easily." {
		t.Errorf("chunks[1] = %q", chunks[1])
	}
}

func TestChunkSentenceFallback(t *testing.T) {
	// No paragraph exceeds the paragraph threshold, so the splitter
	// falls back to sentences.
	text := "The quick brown fox ran. The lazy dog slept on!"

	chunks := Chunk(text)

	if len(chunks) != 2 {
		t.Fatalf("chunk count = %d, want 2, got %v", len(chunks), chunks)
	}
	if chunks[0] != "The quick brown fox ran." {
		t.Errorf("chunks[0] = %q", chunks[0])
	}
	if chunks[1] != "The lazy dog slept on!" {
		t.Errorf("chunks[1] = %q", chunks[1])
	}
}

func TestChunkEdgeCases(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty input", "", 0},
		{"whitespace only", "   \n\n \t ", 0},
		{"all fragments too short", "Hi. Ok. No.", 0},
		{
			"windows style paragraph separator",
			"The first paragraph is certainly long enough to survive chunking here.\n \n" +
				"The second paragraph is also clearly long enough to survive chunking.",
			2,
		},
		{
			"trailing text without terminal punctuation",
			"First clause ends now. an unpunctuated tail here",
			2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Chunk(tt.text)
			if len(got) != tt.want {
				t.Errorf("Chunk(%q) returned %d chunks, want %d: %v", tt.text, len(got), tt.want, got)
			}
		})
	}
}

func TestChunkCountsCharactersNotBytes(t *testing.T) {
	// 16 characters but 31 bytes: must fall under the sentence cutoff.
	short := strings.Repeat("é", 15) + "."
	if got := Chunk(short); len(got) != 0 {
		t.Errorf("Chunk(%q) = %v, want short accented sentence dropped", short, got)
	}

	// Each paragraph is 30 characters (60 bytes), so neither clears the
	// paragraph threshold and the whole text falls back to one sentence.
	text := strings.Repeat("é", 30) + "\n\n" + strings.Repeat("é", 30)
	if got := Chunk(text); len(got) != 1 {
		t.Errorf("chunk count = %d, want 1 via sentence fallback: %v", len(got), got)
	}
}

func TestChunkTrimsWhitespace(t *testing.T) {
	text := "   The only paragraph here carries leading and trailing whitespace around it.   "

	chunks := Chunk(text)
	if len(chunks) != 1 {
		t.Fatalf("chunk count = %d, want 1", len(chunks))
	}
	if chunks[0] != strings.TrimSpace(text) {
		t.Errorf("chunk not trimmed: %q", chunks[0])
	}
}
