package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"wageflow/internal/etl"
)

// ── HTTP Source ─────────────────────────────────────────────
// Downloads a delimited export straight from a publisher's endpoint
// (statistics office CSV download, central bank series) and parses it
// exactly like a local file.

// HTTPDelimitedType is the registry key of the HTTP delimited source.
const HTTPDelimitedType = "http_delimited"

type httpSource struct{}

func init() { etl.RegisterSource(&httpSource{}) }

func (s *httpSource) Spec() etl.SourceSpec {
	return etl.SourceSpec{
		Type:  HTTPDelimitedType,
		Label: "HTTP Delimited Export",
		ConfigFields: []etl.ConfigField{
			{Key: "url", Label: "URL", Type: "string", Required: true, Help: "Full URL of the delimited export"},
			{Key: "headers", Label: "Headers", Type: "textarea", Help: "JSON object of request headers"},
			{Key: "timeout", Label: "Timeout", Type: "string", Default: "30s", Help: "Per-attempt timeout"},
			{Key: "retries", Label: "Retries", Type: "number", Default: "3", Help: "Retries on network errors and 5xx responses"},
			{Key: "delimiter", Label: "Delimiter", Type: "string", Default: ";", Help: "Single-character field separator"},
			{Key: "encoding", Label: "Encoding", Type: "string", Default: "utf-8", Help: "Text encoding label"},
			{Key: "skipLines", Label: "Skip Lines", Type: "number", Default: "0", Help: "Descriptive lines to discard before the header"},
			{Key: "hasHeader", Label: "Has Header", Type: "select", Options: []string{"true", "false"}, Default: "true"},
		},
	}
}

func (s *httpSource) Discover(ctx context.Context, cfg etl.SourceConfig) (*etl.Schema, error) {
	headers, _, err := fetchDelimited(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return headerSchema(headers), nil
}

func (s *httpSource) Read(ctx context.Context, cfg etl.SourceConfig) (*etl.Schema, []etl.Record, error) {
	headers, rows, err := fetchDelimited(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return headerSchema(headers), toRecords(headers, rows), nil
}

func fetchDelimited(ctx context.Context, cfg etl.SourceConfig) ([]string, [][]string, error) {
	url := cfg.String("url", "")
	if url == "" {
		return nil, nil, fmt.Errorf("url is required")
	}
	timeout, err := cfg.Duration("timeout", 30*time.Second)
	if err != nil {
		return nil, nil, err
	}
	headers, err := requestHeaders(cfg["headers"])
	if err != nil {
		return nil, nil, err
	}

	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(cfg.Int("retries", 3)).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(retryCondition)

	resp, err := client.R().
		SetContext(ctx).
		SetHeaders(headers).
		Get(url)
	if err != nil {
		return nil, nil, fmt.Errorf("http request: %w", err)
	}
	switch {
	case resp.StatusCode() == http.StatusNotFound || resp.StatusCode() == http.StatusGone:
		return nil, nil, fmt.Errorf("%w: %s: http %d", etl.ErrSourceNotFound, url, resp.StatusCode())
	case resp.IsError():
		body := resp.Body()
		if len(body) > 1024 {
			body = body[:1024]
		}
		return nil, nil, fmt.Errorf("http %d: %s", resp.StatusCode(), string(body))
	}

	return parseDelimited(bytes.NewReader(resp.Body()), url, cfg)
}

// retryCondition retries network errors, throttling and server errors.
func retryCondition(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	if r == nil {
		return false
	}
	code := r.StatusCode()
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// requestHeaders accepts a map (YAML config) or a JSON object string (flags, env).
func requestHeaders(v any) (map[string]string, error) {
	out := map[string]string{}
	switch h := v.(type) {
	case nil:
	case map[string]string:
		for k, x := range h {
			out[k] = x
		}
	case map[string]any:
		for k, x := range h {
			out[k] = fmt.Sprint(x)
		}
	case string:
		if h == "" {
			break
		}
		if err := json.Unmarshal([]byte(h), &out); err != nil {
			return nil, fmt.Errorf("headers must be a JSON object: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported headers value %T", v)
	}
	return out, nil
}
