// Package httpclient fetches table data and runs row actions against the taskdash HTTP API.
package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hylla/taskdash/internal/adapters/server/httpapi"
	"github.com/hylla/taskdash/internal/domain"
)

// DefaultTimeout is the request timeout used by the default configuration.
const DefaultTimeout = 30 * time.Second

// maxResponseBytes limits decoded response bodies.
const maxResponseBytes int64 = 8 << 20

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-Id"

// ErrInvalidBaseURL reports an unusable API base URL.
var ErrInvalidBaseURL = errors.New("invalid base url")

// Config configures one Client.
type Config struct {
	BaseURL string
	// Timeout of zero disables the per-request timeout.
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client implements the dashboard fetch and action ports over HTTP.
type Client struct {
	base    *url.URL
	http    *http.Client
	timeout time.Duration
	newID   func() string
}

// StatusError reports one non-2xx API response.
type StatusError struct {
	StatusCode int
	RequestID  string
	API        httpapi.APIError
}

// Error implements error.
func (e *StatusError) Error() string {
	code := strings.TrimSpace(e.API.Code)
	if code == "" {
		code = strings.ToLower(strings.ReplaceAll(http.StatusText(e.StatusCode), " ", "_"))
	}
	if msg := strings.TrimSpace(e.API.Message); msg != "" {
		return fmt.Sprintf("tabledata api status %d: %s: %s", e.StatusCode, code, msg)
	}
	return fmt.Sprintf("tabledata api status %d: %s", e.StatusCode, code)
}

// UserMessage returns the text shown to the user for this failure.
func (e *StatusError) UserMessage() string {
	msg := strings.TrimSpace(e.API.Message)
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if hint := strings.TrimSpace(e.API.Hint); hint != "" {
		msg += ". " + hint
	}
	return msg
}

// New constructs a Client for one API base URL such as `http://127.0.0.1:8080/api/v1`.
func New(cfg Config) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	base, err := url.Parse(raw)
	if err != nil || raw == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, raw)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme must be http or https", ErrInvalidBaseURL)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("%w: host is required", ErrInvalidBaseURL)
	}
	base.Path = strings.TrimRight(base.Path, "/")
	base.RawPath = ""

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		base:    base,
		http:    httpClient,
		timeout: cfg.Timeout,
		newID:   uuid.NewString,
	}, nil
}

// FetchSection requests one my-work or per-section payload.
func (c *Client) FetchSection(ctx context.Context, key string) (domain.FetchResponse, error) {
	var out domain.FetchResponse
	if err := c.do(ctx, http.MethodGet, &out, "tabledata", key); err != nil {
		return domain.FetchResponse{}, fmt.Errorf("fetch section %q: %w", key, err)
	}
	return out, nil
}

// FetchGrouped requests one grouped-section payload.
func (c *Client) FetchGrouped(ctx context.Context, key string) (domain.FetchResponse, error) {
	var out domain.FetchResponse
	if err := c.do(ctx, http.MethodGet, &out, "tasks-by-group", key); err != nil {
		return domain.FetchResponse{}, fmt.Errorf("fetch group %q: %w", key, err)
	}
	return out, nil
}

// PerformAction runs one workflow action on a work item.
func (c *Client) PerformAction(ctx context.Context, workItemID string, action domain.WorkflowAction) (domain.ActionResult, error) {
	var out domain.ActionResult
	if err := c.do(ctx, http.MethodPost, &out, "work-items", workItemID, "actions", string(action)); err != nil {
		return domain.ActionResult{}, fmt.Errorf("%s %q: %w", action, workItemID, err)
	}
	return out, nil
}

// endpoint joins escaped path segments onto the base URL.
func (c *Client) endpoint(segments ...string) string {
	u := *c.base
	escaped := make([]string, 0, len(segments))
	plain := make([]string, 0, len(segments))
	for _, seg := range segments {
		escaped = append(escaped, url.PathEscape(seg))
		plain = append(plain, seg)
	}
	u.RawPath = c.base.EscapedPath() + "/" + strings.Join(escaped, "/")
	u.Path = c.base.Path + "/" + strings.Join(plain, "/")
	return u.String()
}

// do sends one request and decodes a 2xx JSON body into out.
func (c *Client) do(ctx context.Context, method string, out any, segments ...string) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(segments...), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	requestID := c.newID()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body := io.LimitReader(resp.Body, maxResponseBytes)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{StatusCode: resp.StatusCode, RequestID: requestID}
		var envelope httpapi.ErrorEnvelope
		if err := json.NewDecoder(body).Decode(&envelope); err == nil {
			statusErr.API = envelope.Error
		}
		return statusErr
	}
	if err := json.NewDecoder(body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
