package provider

import (
	"net/http"
	"os"
	"time"

	"github.com/adrianmusante/subtitle-tools/internal/llm"
)

// DiscoverOptions carries the knobs needed to construct whichever
// adapters have credentials available. Each BaseURL/APIKey pair left
// empty means that adapter is not registered.
type DiscoverOptions struct {
	BulkBaseURL, BulkAPIKey   string
	CloudBaseURL, CloudAPIKey, CloudRegion string
	LLMBaseURL, LLMAPIKey, LLMModel string

	RequestTimeout time.Duration
	RetryOptions   llm.RetryOptions
}

// DiscoverRegistry builds a Registry from whichever provider credentials
// are configured, matching the teacher's "read from env, default the
// rest" posture (see internal/cli/envflags.go).
func DiscoverRegistry(o DiscoverOptions) Registry {
	var adapters []Capability

	if o.BulkAPIKey != "" && o.BulkBaseURL != "" {
		adapters = append(adapters, &BulkAdapter{
			HTTPClient:   &http.Client{Timeout: o.RequestTimeout},
			BaseURL:      o.BulkBaseURL,
			APIKey:       o.BulkAPIKey,
			Timeout:      o.RequestTimeout,
			RetryOptions: o.RetryOptions,
		})
	}
	if o.CloudAPIKey != "" && o.CloudBaseURL != "" {
		adapters = append(adapters, &CloudAdapter{
			HTTPClient:   &http.Client{Timeout: o.RequestTimeout},
			BaseURL:      o.CloudBaseURL,
			APIKey:       o.CloudAPIKey,
			Region:       o.CloudRegion,
			Timeout:      o.RequestTimeout,
			RetryOptions: o.RetryOptions,
		})
	}
	if o.LLMAPIKey != "" && o.LLMModel != "" {
		adapters = append(adapters, &LLMAdapter{
			Client: &llm.Client{
				HTTPClient:   &http.Client{Timeout: o.RequestTimeout},
				BaseURL:      o.LLMBaseURL,
				APIKey:       o.LLMAPIKey,
				Model:        o.LLMModel,
				RetryOptions: o.RetryOptions,
			},
		})
	}
	return NewRegistry(adapters...)
}

// DiscoverOptionsFromEnv reads the standard credential environment
// variables this module defines for each provider slot.
func DiscoverOptionsFromEnv() DiscoverOptions {
	return DiscoverOptions{
		BulkBaseURL:  os.Getenv("SUBTITLE_PIPELINE_BULK_BASE_URL"),
		BulkAPIKey:   os.Getenv("SUBTITLE_PIPELINE_BULK_API_KEY"),
		CloudBaseURL: os.Getenv("SUBTITLE_PIPELINE_CLOUD_BASE_URL"),
		CloudAPIKey:  os.Getenv("SUBTITLE_PIPELINE_CLOUD_API_KEY"),
		CloudRegion:  os.Getenv("SUBTITLE_PIPELINE_CLOUD_REGION"),
		LLMBaseURL:   os.Getenv("SUBTITLE_PIPELINE_LLM_BASE_URL"),
		LLMAPIKey:    os.Getenv("SUBTITLE_PIPELINE_LLM_API_KEY"),
		LLMModel:     os.Getenv("SUBTITLE_PIPELINE_LLM_MODEL"),
		RequestTimeout: 150 * time.Second,
		RetryOptions:   llm.DefaultRetryOptions(),
	}
}
