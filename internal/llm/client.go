package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"

	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"github.com/adrianmusante/subtitle-tools/internal/run"
)

// Client is a chat-completion client over an OpenAI-compatible endpoint,
// with multi-key round-robin rotation (rotating away from a rejected key)
// and the shared retry/backoff policy layered on top of the SDK call.
type Client struct {
	HTTPClient   *http.Client
	BaseURL      string // e.g. https://api.openai.com/v1; empty resolves from Model
	APIKey       string // single key, or a comma-separated list of keys
	Model        string
	RetryOptions RetryOptions

	apiKeyRR uint32
}

func (c *Client) apiKeys() []string {
	normalized := run.NormalizeCSV(c.APIKey)
	if normalized == "" {
		return nil
	}
	return strings.Split(normalized, run.CommaSeparator)
}

func (c *Client) pickAPIKey(keys []string, rotated bool) string {
	if len(keys) == 0 {
		return ""
	}
	if len(keys) == 1 {
		return keys[0]
	}
	idx := int(atomic.LoadUint32(&c.apiKeyRR)) % len(keys)
	if rotated {
		idx = (idx + 1) % len(keys)
	}
	return keys[idx]
}

func (c *Client) advanceAPIKeyRR() {
	atomic.AddUint32(&c.apiKeyRR, 1)
}

// ResolveBaseURLForModel mirrors the teacher's model-prefix routing: it
// picks a sane default endpoint for known model families when BaseURL
// isn't set explicitly.
func ResolveBaseURLForModel(model string, explicitBaseURL string) (string, error) {
	explicitBaseURL = strings.TrimSpace(explicitBaseURL)
	if explicitBaseURL != "" {
		return explicitBaseURL, nil
	}
	m := strings.ToLower(strings.TrimSpace(model))
	switch {
	case strings.HasPrefix(m, "gemini-"):
		return "https://generativelanguage.googleapis.com/v1beta/openai", nil
	case strings.HasPrefix(m, "gpt-"), strings.HasPrefix(m, "o1"), strings.HasPrefix(m, "o3"):
		return "https://api.openai.com/v1", nil
	default:
		return "", fmt.Errorf("llm: cannot resolve base url for model %q; set BaseURL explicitly", model)
	}
}

// Chat sends a single system+user exchange and returns the assistant's
// reply content, retrying transient failures and rotating API keys on a
// rejection (401/403/429).
func (c *Client) Chat(ctx context.Context, system, user string) (string, error) {
	if c.Model == "" {
		return "", errors.New("llm: model is required")
	}
	base, err := ResolveBaseURLForModel(c.Model, c.BaseURL)
	if err != nil {
		return "", err
	}
	keys := c.apiKeys()
	if len(keys) == 0 {
		return "", errors.New("llm: at least one api key is required")
	}

	retry := c.RetryOptions
	if retry.MaxAttempts <= 0 {
		retry = DefaultRetryOptions()
	}
	rotatedOnReject := false

	return RequestWithRetry[string](ctx, retry, func(attempt int) (string, RetryDecision) {
		apiKey := c.pickAPIKey(keys, rotatedOnReject)
		rotatedOnReject = false

		cfg := openai.DefaultConfig(apiKey)
		cfg.BaseURL = base
		if c.HTTPClient != nil {
			cfg.HTTPClient = c.HTTPClient
		}
		sdk := openai.NewClientWithConfig(cfg)

		resp, err := sdk.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: c.Model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: system},
				{Role: openai.ChatMessageRoleUser, Content: user},
			},
			Temperature: 0,
		})
		if err != nil {
			var apiErr *openai.APIError
			if errors.As(err, &apiErr) {
				status := apiErr.HTTPStatusCode
				if IsRejectedHTTPStatus(status) && len(keys) > 1 {
					slog.Warn("llm request rejected; rotating api key",
						"attempt", attempt, "status_code", status, "rejected_key", run.MaskKey(apiKey), "keys", len(keys))
					rotatedOnReject = true
				}
				if rotatedOnReject || IsRetryableHTTPStatus(status) {
					return "", RetryDecision{Err: err, Retry: true}
				}
				return "", RetryDecision{Err: err}
			}
			if IsRetryableNetErr(err) {
				return "", RetryDecision{Err: err, Retry: true}
			}
			return "", RetryDecision{Err: err}
		}

		if len(keys) > 1 {
			c.advanceAPIKeyRR()
		}
		if len(resp.Choices) == 0 {
			return "", RetryDecision{Err: errors.New("llm: no choices in response"), Retry: true}
		}
		content := strings.TrimSpace(resp.Choices[0].Message.Content)
		if content == "" {
			return "", RetryDecision{Err: errors.New("llm: empty content in response"), Retry: true}
		}
		return content, RetryDecision{}
	})
}
