package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hupe1980/analystloop/logging"
)

// Options configure the HTTP sandbox client.
type Options struct {
	// Token is sent as a bearer token when non-empty.
	Token string
	// HTTPClient overrides the default client. Timeouts belong here; the
	// orchestrator enforces none.
	HTTPClient *http.Client
	// Logger defaults to logging.NoOpLogger.
	Logger logging.Logger
}

// Client talks to a sandbox service over HTTP:
//
//	POST {base}/v1/execute        {"code": "..."} -> {"results": {...}, "error": {...}}
//	PUT  {base}/v1/files?path=P   raw bytes       -> 2xx
type Client struct {
	baseURL string
	opts    Options
}

// NewClient creates a sandbox client for the given base URL.
func NewClient(baseURL string, optFns ...func(o *Options)) *Client {
	opts := Options{
		HTTPClient: http.DefaultClient,
		Logger:     logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), opts: opts}
}

type executeRequest struct {
	Code string `json:"code"`
}

type executeError struct {
	Name      string `json:"name"`
	Value     string `json:"value"`
	Traceback string `json:"traceback,omitempty"`
}

type executeResponse struct {
	Results Result        `json:"results"`
	Stdout  []string      `json:"stdout,omitempty"`
	Error   *executeError `json:"error,omitempty"`
}

// Execute runs code remotely and returns its result payload. Captured
// stdout lines, when present and not already keyed, are exposed under
// "stdout".
func (c *Client) Execute(ctx context.Context, code string) (Result, error) {
	body, err := json.Marshal(executeRequest{Code: code})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/execute", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	raw, err := c.do(req)
	if err != nil {
		c.opts.Logger.Error("sandbox.execute.failed", "error", err.Error(), "duration_ms", time.Since(start).Milliseconds())
		return nil, err
	}

	var resp executeResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrTransport, err)
	}

	if resp.Error != nil {
		c.opts.Logger.Warn("sandbox.execute.error", "name", resp.Error.Name, "duration_ms", time.Since(start).Milliseconds())
		return nil, fmt.Errorf("%w: %s: %s", ErrExecution, resp.Error.Name, resp.Error.Value)
	}

	result := resp.Results
	if result == nil {
		result = Result{}
	}
	if _, ok := result["stdout"]; !ok && len(resp.Stdout) > 0 {
		result["stdout"] = strings.Join(resp.Stdout, "")
	}

	c.opts.Logger.Debug("sandbox.execute.completed", "keys", len(result), "duration_ms", time.Since(start).Milliseconds())

	return result, nil
}

// Upload stores data at remotePath inside the sandbox filesystem.
func (c *Client) Upload(ctx context.Context, data []byte, remotePath string) error {
	u := c.baseURL + "/v1/files?path=" + url.QueryEscape(remotePath)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	if _, err := c.do(req); err != nil {
		return err
	}

	c.opts.Logger.Debug("sandbox.upload.completed", "path", remotePath, "bytes", len(data))

	return nil
}

// do sends the request and classifies failures: network errors and 5xx are
// transport failures, other non-2xx statuses are execution failures.
func (c *Client) do(req *http.Request) ([]byte, error) {
	if c.opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.opts.Token)
	}

	resp, err := c.opts.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrTransport, err)
	}

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: %s: %s", ErrTransport, resp.Status, snippet(raw))
	case resp.StatusCode >= 300:
		return nil, fmt.Errorf("%w: %s: %s", ErrExecution, resp.Status, snippet(raw))
	}

	return raw, nil
}

func snippet(b []byte) string {
	const max = 256
	s := strings.TrimSpace(string(b))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}

var _ Sandbox = (*Client)(nil)
