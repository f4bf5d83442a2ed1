package translate

import (
	"testing"

	"github.com/adrianmusante/subtitle-tools/internal/srt"
)

func TestEstimateCost_DeduplicatesRepeatedText(t *testing.T) {
	file := &srt.File{Segments: []*srt.Segment{
		{Index: 1, Text: "Hello there", DetectedLanguage: srt.LanguageEnglish},
		{Index: 2, Text: "Hello there", DetectedLanguage: srt.LanguageEnglish},
		{Index: 3, Text: "[Music]", DetectedLanguage: srt.LanguageEnglish},
		{Index: 4, Text: "ok", DetectedLanguage: srt.LanguageGerman},
	}}

	est := EstimateCost(file, srt.LanguageGerman)

	if est.TotalSegments != 4 {
		t.Fatalf("expected 4 total segments, got %d", est.TotalSegments)
	}
	// Segment 3 is non-verbal, segment 4 is already the target language,
	// so only the two "Hello there" segments should count.
	if est.SegmentsToTranslate != 2 {
		t.Fatalf("expected 2 segments to translate, got %d", est.SegmentsToTranslate)
	}
	if est.UniqueTexts != 1 {
		t.Fatalf("expected 1 unique text, got %d", est.UniqueTexts)
	}
	if est.SavingsFactor != 2 {
		t.Fatalf("expected savings factor of 2 for a fully repeated pair, got %v", est.SavingsFactor)
	}
	if est.CostWithDedup >= est.CostWithoutDedup {
		t.Fatalf("expected deduplicated cost to be lower: with=%v without=%v", est.CostWithDedup, est.CostWithoutDedup)
	}
}

func TestEstimateCost_NoTranslatableSegments(t *testing.T) {
	file := &srt.File{Segments: []*srt.Segment{
		{Index: 1, Text: "[Music]", DetectedLanguage: srt.LanguageEnglish},
	}}

	est := EstimateCost(file, srt.LanguageGerman)

	if est.SegmentsToTranslate != 0 || est.UniqueTexts != 0 {
		t.Fatalf("expected no translatable segments, got %+v", est)
	}
	if est.SavingsFactor != 1 {
		t.Fatalf("expected savings factor fallback of 1 when there are no unique tokens, got %v", est.SavingsFactor)
	}
}
