package partio

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-hclog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Config contains configuration for the Partio client.
//
// Example configuration:
//
//	client, err := partio.NewClient(&partio.Config{
//	  BaseURL:   "http://localhost:8000",
//	  AccessKey: os.Getenv("PARTIO_ADMIN_KEY"),
//	})
type Config struct {
	// BaseURL is the address of the Partio server, e.g. "http://localhost:8000".
	// A single trailing slash is removed.
	BaseURL string

	// AccessKey is sent as "Authorization: Bearer <AccessKey>" on every request.
	AccessKey string

	// Timeout bounds each request. Zero means no timeout; callers that need a
	// deadline can also pass one through the context.
	Timeout time.Duration

	// TLSSkipVerify disables certificate verification. Development only.
	TLSSkipVerify bool

	// Transport overrides the HTTP transport. When nil a pooled transport
	// instrumented with otelhttp is used.
	Transport http.RoundTripper

	// Logger receives request-level debug logs (optional).
	Logger hclog.Logger
}

// DefaultConfig returns a Config pointing at a local Partio server.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:   "http://localhost:8000",
		AccessKey: "partioadmin",
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL is required")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("base URL must use http or https scheme, got: %q", parsedURL.Scheme)
	}

	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}

	if c.AccessKey == "" {
		return fmt.Errorf("access key is required")
	}

	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative, got: %v", c.Timeout)
	}

	return nil
}

// NewHTTPClient creates the HTTP client used for the lifetime of a Client.
func (c *Config) NewHTTPClient() *http.Client {
	rt := c.Transport
	if rt == nil {
		transport := &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		}
		if c.TLSSkipVerify {
			transport.TLSClientConfig = &tls.Config{
				InsecureSkipVerify: true,
			}
		}
		rt = otelhttp.NewTransport(transport)
	}

	return &http.Client{
		Timeout:   c.Timeout,
		Transport: rt,
	}
}
