// Package partio is a client for the Partio multi-tenant chunking and
// embedding platform.
//
// Every operation funnels through Client.Request, which sends JSON over an
// authenticated HTTP connection and turns any non-2xx response into *Error.
// The client performs no retries, caching or per-status special casing;
// callers branch on Error.StatusCode.
package partio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-hclog"
)

// APIVersionPrefix is prepended to every resource path.
const APIVersionPrefix = "/v1.0"

// Client is a Partio API client. A Client is meant to be used by a single
// logical caller issuing requests sequentially, and must be closed when done.
type Client struct {
	baseURL   string
	accessKey string
	http      *http.Client
	logger    hclog.Logger
	closed    atomic.Bool
}

// NewClient creates a new client from cfg.
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid client config: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	return &Client{
		baseURL:   strings.TrimSuffix(cfg.BaseURL, "/"),
		accessKey: cfg.AccessKey,
		http:      cfg.NewHTTPClient(),
		logger:    logger.Named("partio-client"),
	}, nil
}

// BaseURL returns the server address requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Close releases the client's pooled connections. Requests issued after
// Close fail with a transport error. Close is idempotent.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.http.CloseIdleConnections()
	return nil
}

// Request sends method to path with body JSON-encoded when non-nil, and
// decodes a non-empty success body into out when out is non-nil.
//
// A 204 or an empty success body leaves out untouched and returns nil. Any
// non-2xx status returns *Error.
func (c *Client) Request(ctx context.Context, method, path string, body, out interface{}) error {
	_, err := c.request(ctx, method, path, body, out)
	return err
}

// request is Request that also reports whether a body was decoded into out.
func (c *Client) request(ctx context.Context, method, path string, body, out interface{}) (bool, error) {
	resp, respBody, err := c.do(ctx, method, path, body)
	if err != nil {
		return false, err
	}

	if resp.StatusCode == http.StatusNoContent {
		return false, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		perr := newStatusError(resp.StatusCode, respBody)
		c.logger.Debug("request failed",
			"method", method,
			"path", path,
			"status", resp.StatusCode,
			"message", perr.Message,
		)
		return false, perr
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return false, nil
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return false, newTransportError("failed to decode response", err)
	}

	return true, nil
}

// head issues a header-only request and returns the status code. The body is
// never read.
func (c *Client) head(ctx context.Context, path string) (int, error) {
	resp, _, err := c.send(ctx, http.MethodHead, path, nil, false)
	if err != nil {
		return 0, err
	}
	return resp.StatusCode, nil
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}) (*http.Response, []byte, error) {
	return c.send(ctx, method, path, body, true)
}

func (c *Client) send(ctx context.Context, method, path string, body interface{}, readBody bool) (*http.Response, []byte, error) {
	if c.closed.Load() {
		return nil, nil, newTransportError("client is closed", nil)
	}

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, nil, newTransportError("failed to marshal request body", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, nil, newTransportError("failed to create request", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.accessKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, newTransportError("request failed", err)
	}
	defer resp.Body.Close()

	var respBody []byte
	if readBody {
		respBody, err = io.ReadAll(resp.Body)
		if err != nil {
			return nil, nil, &Error{
				StatusCode: resp.StatusCode,
				Message:    "failed to read response",
				Err:        err,
			}
		}
	}

	c.logger.Debug("request completed",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	return resp, respBody, nil
}

// Health checks server liveness. A healthy server reports Status "Healthy".
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var h HealthStatus
	ok, err := c.request(ctx, http.MethodGet, APIVersionPrefix+"/health", nil, &h)
	if err != nil || !ok {
		return nil, err
	}
	return &h, nil
}

// WhoAmI returns the role and tenant of the credential in use.
func (c *Client) WhoAmI(ctx context.Context) (*WhoAmI, error) {
	var w WhoAmI
	ok, err := c.request(ctx, http.MethodGet, APIVersionPrefix+"/whoami", nil, &w)
	if err != nil || !ok {
		return nil, err
	}
	return &w, nil
}
