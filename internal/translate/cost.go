package translate

import (
	"github.com/adrianmusante/subtitle-tools/internal/srt"
)

// charsPerToken is the rough token estimator the original pipeline used:
// 4 characters per token, good enough for a cost estimate rather than
// billing.
const charsPerToken = 4

// costPerMillionTokens approximates GPT-4.1-mini-class input pricing, the
// same figure the original pipeline's estimator used.
const costPerMillionTokens = 0.15

// Estimate summarizes the translation cost of a file for one target
// language without performing any translation.
type Estimate struct {
	TotalSegments        int
	SegmentsToTranslate  int
	UniqueTexts          int
	TotalTokens          float64
	UniqueTokens         float64
	CostWithoutDedup     float64
	CostWithDedup        float64
	SavingsFactor        float64
}

// EstimateCost reports how much translating file to target would cost,
// with and without the Orchestrator's deduplication, so a caller can
// decide whether a batch is worth running before spending anything.
func EstimateCost(file *srt.File, target srt.Language) Estimate {
	seen := make(map[string]struct{})
	var totalChars, uniqueChars int
	segmentsToTranslate := 0

	for _, seg := range file.Segments {
		if !shouldTranslate(seg, target) {
			continue
		}
		segmentsToTranslate++
		totalChars += len(seg.Text)

		key := UniqueTextKey(seg.Text)
		if _, ok := seen[key]; !ok {
			seen[key] = struct{}{}
			uniqueChars += len(seg.Text)
		}
	}

	totalTokens := float64(totalChars) / charsPerToken
	uniqueTokens := float64(uniqueChars) / charsPerToken

	savings := 1.0
	if uniqueTokens > 0 {
		savings = totalTokens / uniqueTokens
	}

	return Estimate{
		TotalSegments:       len(file.Segments),
		SegmentsToTranslate: segmentsToTranslate,
		UniqueTexts:         len(seen),
		TotalTokens:         totalTokens,
		UniqueTokens:        uniqueTokens,
		CostWithoutDedup:    (totalTokens / 1_000_000) * costPerMillionTokens,
		CostWithDedup:       (uniqueTokens / 1_000_000) * costPerMillionTokens,
		SavingsFactor:       savings,
	}
}
