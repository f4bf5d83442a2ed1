package provider

import (
	"strings"
	"testing"
)

func TestChunk_NoopWhenUnderCap(t *testing.T) {
	chunks := Chunk("short text", 1000)
	if len(chunks) != 1 || chunks[0] != "short text" {
		t.Fatalf("expected single passthrough chunk, got %v", chunks)
	}
}

func TestChunk_SplitsOnParagraphBoundaries(t *testing.T) {
	text := strings.Repeat("a", 40) + "\n\n" + strings.Repeat("b", 40)
	chunks := Chunk(text, 50)
	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d: %v", len(chunks), chunks)
	}
	for _, c := range chunks {
		if len(c) > 60 {
			t.Fatalf("chunk exceeds budget: %d chars", len(c))
		}
	}
}

func TestChunk_FallsBackToSentencesForOversizedParagraph(t *testing.T) {
	sentence := strings.Repeat("word ", 20) + "."
	text := sentence + " " + sentence + " " + sentence
	chunks := Chunk(text, 60)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
}
