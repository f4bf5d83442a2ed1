package llm

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"
)

// HTTPResult is the generic response shape used by the non-chat provider
// adapters (Bulk, Cloud), which speak plain JSON REST rather than the
// chat-completions protocol.
type HTTPResult struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// DoJSONPost issues a POST with a JSON body and an optional bearer token,
// returning the raw response for the caller to interpret (status codes
// and response shapes vary per adapter).
func DoJSONPost(ctx context.Context, hc *http.Client, u string, authBearer string, body []byte, extraHeaders map[string]string) (HTTPResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return HTTPResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if authBearer != "" {
		req.Header.Set("Authorization", "Bearer "+authBearer)
	}
	for k, v := range extraHeaders {
		req.Header.Set(k, v)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return HTTPResult{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return HTTPResult{}, err
	}
	return HTTPResult{StatusCode: resp.StatusCode, Header: resp.Header.Clone(), Body: bodyBytes}, nil
}

func RetryDelayFromHeader(h http.Header) time.Duration {
	ra := strings.TrimSpace(h.Get("Retry-After"))
	if ra == "" {
		return 0
	}
	secs, err := strconv.Atoi(ra)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func BuildURL(baseURL, urlPath string) (*url.URL, error) {
	baseURL = strings.TrimRight(baseURL, "/")
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	u.Path = path.Join(u.Path, urlPath)
	return u, nil
}
