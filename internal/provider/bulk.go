package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/adrianmusante/subtitle-tools/internal/llm"
	"github.com/adrianmusante/subtitle-tools/internal/srt"
)

// BulkAdapter talks to a high-throughput bulk machine-translation REST
// endpoint (modeled on the DeepL-shaped API the original pipeline used):
// native array-in/array-out batch translation, a very large per-request
// character cap, but no Hebrew.
type BulkAdapter struct {
	HTTPClient   *http.Client
	BaseURL      string
	APIKey       string
	Timeout      time.Duration
	RetryOptions llm.RetryOptions

	MaxChars int // defaults to 128_000 if unset
}

const bulkDefaultMaxChars = 128_000

func (a *BulkAdapter) ID() ID { return Bulk }

func (a *BulkAdapter) SupportsLanguage(target srt.Language) bool {
	return target == srt.LanguageEnglish || target == srt.LanguageGerman
}

func (a *BulkAdapter) MaxCharsPerRequest() int {
	if a.MaxChars > 0 {
		return a.MaxChars
	}
	return bulkDefaultMaxChars
}

func (a *BulkAdapter) SupportsBatch() bool { return true }

type bulkRequest struct {
	Text       []string `json:"text"`
	TargetLang string   `json:"target_lang"`
	SourceLang string   `json:"source_lang,omitempty"`
}

type bulkResponse struct {
	Translations []struct {
		Text string `json:"text"`
	} `json:"translations"`
}

func (a *BulkAdapter) client() *http.Client {
	if a.HTTPClient != nil {
		return a.HTTPClient
	}
	return &http.Client{Timeout: a.Timeout}
}

func (a *BulkAdapter) BatchTranslate(ctx context.Context, texts []string, target, source srt.Language) ([]string, error) {
	if !a.SupportsLanguage(target) {
		return nil, fmt.Errorf("provider %s: unsupported target language %q", a.ID(), target)
	}
	reqBody, err := json.Marshal(bulkRequest{
		Text:       texts,
		TargetLang: string(target),
		SourceLang: string(source),
	})
	if err != nil {
		return nil, err
	}
	u, err := llm.BuildURL(a.BaseURL, "/v2/translate")
	if err != nil {
		return nil, err
	}

	retry := a.RetryOptions
	if retry.MaxAttempts <= 0 {
		retry = llm.DefaultRetryOptions()
	}

	out, err := llm.RequestWithRetry[[]string](ctx, retry, func(attempt int) ([]string, llm.RetryDecision) {
		r, err := llm.DoJSONPost(ctx, a.client(), u.String(), a.APIKey, reqBody, nil)
		if err != nil {
			if llm.IsRetryableNetErr(err) {
				return nil, llm.RetryDecision{Err: err, Retry: true}
			}
			return nil, llm.RetryDecision{Err: err}
		}
		if r.StatusCode < 200 || r.StatusCode >= 300 {
			hErr := fmt.Errorf("provider %s: api error status=%d", a.ID(), r.StatusCode)
			if llm.IsRetryableHTTPStatus(r.StatusCode) {
				return nil, llm.RetryDecision{Err: hErr, Retry: true, Delay: llm.RetryDelayFromHeader(r.Header)}
			}
			return nil, llm.RetryDecision{Err: hErr}
		}
		var parsed bulkResponse
		if err := json.Unmarshal(r.Body, &parsed); err != nil {
			return nil, llm.RetryDecision{Err: fmt.Errorf("provider %s: %w", a.ID(), err), Retry: true}
		}
		res := make([]string, len(parsed.Translations))
		for i, t := range parsed.Translations {
			res[i] = t.Text
		}
		return res, llm.RetryDecision{}
	})
	if err != nil {
		return nil, err
	}
	if len(out) != len(texts) {
		return nil, &ErrContractViolation{Provider: a.ID(), Reason: fmt.Sprintf("expected %d translations, got %d", len(texts), len(out))}
	}
	return out, nil
}

func (a *BulkAdapter) Translate(ctx context.Context, text string, target, source srt.Language) (string, error) {
	out, err := a.BatchTranslate(ctx, []string{text}, target, source)
	if err != nil {
		return "", err
	}
	if len(out) != 1 {
		return "", errors.New("provider: expected exactly one translation")
	}
	return out[0], nil
}
