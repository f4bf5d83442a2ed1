// Package detect implements per-segment language detection: batches of
// subtitle text are sent to a chat-completion model with a strict
// response format, with a bounded reprompt-then-per-segment fallback for
// anything the model fails to classify cleanly.
package detect

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/adrianmusante/subtitle-tools/internal/llm"
	"github.com/adrianmusante/subtitle-tools/internal/srt"
)

const DefaultBatchSize = 50

// Classifier sends one classification prompt and returns the model's raw
// reply text.
type Classifier interface {
	Classify(ctx context.Context, segments []candidate) (string, error)
}

type candidate struct {
	index int
	text  string
}

// LLMClassifier is the production Classifier, backed by the shared chat
// client.
type LLMClassifier struct {
	Client *llm.Client
}

func (c *LLMClassifier) Classify(ctx context.Context, segs []candidate) (string, error) {
	var b strings.Builder
	for _, s := range segs {
		fmt.Fprintf(&b, "%d: %s\n", s.index, strings.ReplaceAll(s.text, "\n", " "))
	}
	system := "You classify the spoken language of each numbered line. " +
		"Respond with exactly one line per input line, in the same order, " +
		"formatted as `N: Language` where Language is one of English, German, Hebrew, or Unknown. " +
		"Do not add commentary, headers, or blank lines."
	return c.Client.Chat(ctx, system, b.String())
}

var responseLinePattern = regexp.MustCompile(`(?m)^\s*(\d+):\s*(English|German|Hebrew|Unknown)\s*$`)

// Options configures a Detect run.
type Options struct {
	BatchSize int
}

// Result summarizes one Detect run for observability.
type Result struct {
	Classified      int
	FallbackSingles int
	Failed          int
}

// Detect annotates file.Segments[*].DetectedLanguage in place. It never
// falls back to a heuristic/pattern-based classifier: a segment that
// cannot be classified even via the one-at-a-time fallback is left
// LanguageUnknown.
func Detect(ctx context.Context, c Classifier, file *srt.File, opts Options) (Result, error) {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	var res Result
	var candidates []candidate
	for i, seg := range file.Segments {
		if strings.TrimSpace(seg.Text) == "" || srt.IsNonVerbal(seg.Text) {
			continue
		}
		candidates = append(candidates, candidate{index: i, text: seg.Text})
	}

	for start := 0; start < len(candidates); start += batchSize {
		end := start + batchSize
		if end > len(candidates) {
			end = len(candidates)
		}
		batch := candidates[start:end]
		classified, fallbackSingles, failed := detectBatch(ctx, c, file, batch)
		res.Classified += classified
		res.FallbackSingles += fallbackSingles
		res.Failed += failed
	}
	return res, nil
}

func detectBatch(ctx context.Context, c Classifier, file *srt.File, batch []candidate) (classified, fallbackSingles, failed int) {
	reply, err := c.Classify(ctx, batch)
	if err == nil {
		parsed := parseResponse(reply)
		if len(parsed) == len(batch) {
			for _, cand := range batch {
				if lang, ok := parsed[cand.index]; ok {
					file.Segments[cand.index].DetectedLanguage = lang
					classified++
					continue
				}
			}
			if classified == len(batch) {
				return classified, 0, 0
			}
		}
		// One reprompt before falling back per-segment.
		slog.Warn("detector batch response malformed or incomplete; reprompting", "batch_size", len(batch))
		reply2, err2 := c.Classify(ctx, batch)
		if err2 == nil {
			parsed2 := parseResponse(reply2)
			if len(parsed2) == len(batch) {
				classified = 0
				for _, cand := range batch {
					if lang, ok := parsed2[cand.index]; ok {
						file.Segments[cand.index].DetectedLanguage = lang
						classified++
					}
				}
				if classified == len(batch) {
					return classified, 0, 0
				}
			}
		}
	} else {
		slog.Warn("detector batch request failed; falling back to per-segment classification", "batch_size", len(batch), "err", err)
	}

	// Per-segment fallback for anything not yet classified.
	classified = 0
	remaining := make([]candidate, 0, len(batch))
	for _, cand := range batch {
		if file.Segments[cand.index].DetectedLanguage == "" {
			remaining = append(remaining, cand)
		} else {
			classified++
		}
	}
	for _, cand := range remaining {
		reply, err := c.Classify(ctx, []candidate{cand})
		if err != nil {
			file.Segments[cand.index].DetectedLanguage = srt.LanguageUnknown
			failed++
			continue
		}
		parsed := parseResponse(reply)
		lang, ok := parsed[cand.index]
		if !ok {
			file.Segments[cand.index].DetectedLanguage = srt.LanguageUnknown
			failed++
			continue
		}
		file.Segments[cand.index].DetectedLanguage = lang
		fallbackSingles++
	}
	return classified, fallbackSingles, failed
}

func parseResponse(reply string) map[int]srt.Language {
	out := make(map[int]srt.Language)
	for _, m := range responseLinePattern.FindAllStringSubmatch(reply, -1) {
		var idx int
		fmt.Sscanf(m[1], "%d", &idx)
		out[idx] = mapLabel(m[2])
	}
	return out
}

func mapLabel(label string) srt.Language {
	switch label {
	case "English":
		return srt.LanguageEnglish
	case "German":
		return srt.LanguageGerman
	case "Hebrew":
		return srt.LanguageHebrew
	default:
		return srt.LanguageUnknown
	}
}
