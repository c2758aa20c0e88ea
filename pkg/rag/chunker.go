package rag

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Chunking thresholds, counted in characters rather than bytes so
// accented text is gated the same as ASCII. Paragraphs below
// MinParagraphLen are considered too thin to retrieve on their own;
// the sentence fallback uses a smaller cutoff since sentences are
// naturally shorter.
const (
	MinParagraphLen = 50
	MinSentenceLen  = 20
)

var paragraphSplitter = regexp.MustCompile(`\n\s*\n`)

// Chunk splits raw document text into retrievable units. It prefers
// paragraph boundaries and falls back to sentence splitting when the
// text has no paragraph long enough. Returns nil when nothing qualifies.
func Chunk(text string) []string {
	var chunks []string

	for _, para := range paragraphSplitter.Split(text, -1) {
		trimmed := strings.TrimSpace(para)
		if utf8.RuneCountInString(trimmed) > MinParagraphLen {
			chunks = append(chunks, trimmed)
		}
	}
	if len(chunks) > 0 {
		return chunks
	}

	// Sentence fallback for single-paragraph or unstructured text.
	for _, sentence := range splitSentences(text) {
		trimmed := strings.TrimSpace(sentence)
		if utf8.RuneCountInString(trimmed) > MinSentenceLen {
			chunks = append(chunks, trimmed)
		}
	}
	return chunks
}

func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for _, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			sentences = append(sentences, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		sentences = append(sentences, current.String())
	}
	return sentences
}
