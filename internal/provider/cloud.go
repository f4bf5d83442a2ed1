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

// CloudAdapter talks to a Hebrew-capable cloud machine-translation REST
// endpoint (modeled on the Microsoft Translator Text API the original
// pipeline used): native batch translation, but a modest per-request
// character cap.
type CloudAdapter struct {
	HTTPClient   *http.Client
	BaseURL      string
	APIKey       string
	Region       string
	Timeout      time.Duration
	RetryOptions llm.RetryOptions

	MaxChars int // defaults to 10_000 if unset
}

const cloudDefaultMaxChars = 10_000

func (a *CloudAdapter) ID() ID { return Cloud }

func (a *CloudAdapter) SupportsLanguage(target srt.Language) bool {
	switch target {
	case srt.LanguageEnglish, srt.LanguageGerman, srt.LanguageHebrew:
		return true
	default:
		return false
	}
}

func (a *CloudAdapter) MaxCharsPerRequest() int {
	if a.MaxChars > 0 {
		return a.MaxChars
	}
	return cloudDefaultMaxChars
}

func (a *CloudAdapter) SupportsBatch() bool { return true }

type cloudRequestItem struct {
	Text string `json:"Text"`
}

type cloudResponseItem struct {
	Translations []struct {
		Text string `json:"text"`
		To   string `json:"to"`
	} `json:"translations"`
}

func (a *CloudAdapter) client() *http.Client {
	if a.HTTPClient != nil {
		return a.HTTPClient
	}
	return &http.Client{Timeout: a.Timeout}
}

func (a *CloudAdapter) BatchTranslate(ctx context.Context, texts []string, target, source srt.Language) ([]string, error) {
	if !a.SupportsLanguage(target) {
		return nil, fmt.Errorf("provider %s: unsupported target language %q", a.ID(), target)
	}
	items := make([]cloudRequestItem, len(texts))
	for i, t := range texts {
		items[i] = cloudRequestItem{Text: t}
	}
	reqBody, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	u, err := llm.BuildURL(a.BaseURL, "/translate")
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("api-version", "3.0")
	q.Set("to", string(target))
	if source != "" && source != srt.LanguageUnknown {
		q.Set("from", string(source))
	}
	u.RawQuery = q.Encode()

	headers := map[string]string{}
	if a.Region != "" {
		headers["Ocp-Apim-Subscription-Region"] = a.Region
	}

	retry := a.RetryOptions
	if retry.MaxAttempts <= 0 {
		retry = llm.DefaultRetryOptions()
	}

	out, err := llm.RequestWithRetry[[]string](ctx, retry, func(attempt int) ([]string, llm.RetryDecision) {
		r, err := llm.DoJSONPost(ctx, a.client(), u.String(), a.APIKey, reqBody, headers)
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
		var parsed []cloudResponseItem
		if err := json.Unmarshal(r.Body, &parsed); err != nil {
			return nil, llm.RetryDecision{Err: fmt.Errorf("provider %s: %w", a.ID(), err), Retry: true}
		}
		res := make([]string, len(parsed))
		for i, item := range parsed {
			if len(item.Translations) > 0 {
				res[i] = item.Translations[0].Text
			}
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

func (a *CloudAdapter) Translate(ctx context.Context, text string, target, source srt.Language) (string, error) {
	out, err := a.BatchTranslate(ctx, []string{text}, target, source)
	if err != nil {
		return "", err
	}
	if len(out) != 1 {
		return "", errors.New("provider: expected exactly one translation")
	}
	return out[0], nil
}
