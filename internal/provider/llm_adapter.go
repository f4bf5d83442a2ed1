package provider

import (
	"context"
	"fmt"

	"github.com/adrianmusante/subtitle-tools/internal/llm"
	"github.com/adrianmusante/subtitle-tools/internal/srt"
)

// LLMAdapter emulates batch translation over a chat-completion model: the
// batch is serialized to NDJSON, sent as one prompt, and the reply is
// parsed back into per-item results. Hebrew-capable (the model itself
// produces it), with a per-request character cap well below a typical
// context window to leave room for the prompt and the echoed reply.
type LLMAdapter struct {
	Client *llm.Client

	MaxChars int // defaults to 20_000 if unset
}

const llmDefaultMaxChars = 20_000

func (a *LLMAdapter) ID() ID { return LLM }

func (a *LLMAdapter) SupportsLanguage(srt.Language) bool { return true }

func (a *LLMAdapter) MaxCharsPerRequest() int {
	if a.MaxChars > 0 {
		return a.MaxChars
	}
	return llmDefaultMaxChars
}

func (a *LLMAdapter) SupportsBatch() bool { return true }

func (a *LLMAdapter) BatchTranslate(ctx context.Context, texts []string, target, source srt.Language) ([]string, error) {
	idxs := make([]int, len(texts))
	for i := range texts {
		idxs[i] = i + 1
	}
	payload, err := llm.FormatItems(idxs, texts)
	if err != nil {
		return nil, err
	}

	system, user := buildTranslatePrompt(source, target, payload)
	reply, err := a.Client.Chat(ctx, system, user)
	if err != nil {
		return nil, err
	}

	parsed, err := llm.ParseItems(reply)
	if err != nil {
		return nil, &ErrContractViolation{Provider: a.ID(), Reason: err.Error()}
	}
	byIdx := make(map[int]string, len(parsed))
	for _, p := range parsed {
		byIdx[p.Idx] = p.Text
	}
	if len(byIdx) != len(texts) {
		return nil, &ErrContractViolation{Provider: a.ID(), Reason: fmt.Sprintf("expected %d items, got %d", len(texts), len(byIdx))}
	}
	out := make([]string, len(texts))
	for i, idx := range idxs {
		text, ok := byIdx[idx]
		if !ok {
			return nil, &ErrContractViolation{Provider: a.ID(), Reason: fmt.Sprintf("missing idx %d in model output", idx)}
		}
		out[i] = text
	}
	return out, nil
}

func (a *LLMAdapter) Translate(ctx context.Context, text string, target, source srt.Language) (string, error) {
	out, err := a.BatchTranslate(ctx, []string{text}, target, source)
	if err != nil {
		return "", err
	}
	return out[0], nil
}

func buildTranslatePrompt(source, target srt.Language, payload string) (system, user string) {
	sourceLabel := NormalizeLabel(string(source))
	targetLabel := NormalizeLabel(string(target))

	system = "You are a translation engine. Output must follow the requested format exactly. Do not add commentary."
	user = "Translate the following subtitles"
	if sourceLabel != "" {
		user += " from `" + sourceLabel + "`"
	}
	user += " to: `" + targetLabel + "`\n"
	user += "\n" +
		"Rules:\n" +
		"- Output MUST contain the same number of items as the input.\n" +
		"- Preserve idx values exactly and do not reorder.\n" +
		"- Output MUST be NDJSON: one JSON object per line (no surrounding array).\n" +
		"- Each output line MUST be valid JSON with exactly two keys: idx (number) and text (string).\n" +
		"- Do not output markdown, code fences, headers, or explanations.\n" +
		"\n" +
		"Example:\n" +
		"Input:\n" +
		"{\"idx\":1,\"text\":\"Hello\\nworld\"}\n" +
		"{\"idx\":2,\"text\":\"How are you?\"}\n" +
		"Output:\n" +
		"{\"idx\":1,\"text\":\"Hola\\nmundo\"}\n" +
		"{\"idx\":2,\"text\":\"¿Cómo estás?\"}\n" +
		"\n" +
		"Input:\n\n" + payload + "\n"
	return system, user
}
