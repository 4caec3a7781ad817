// Package httpx wraps the HTTP plumbing shared by the Areena API clients:
// common headers, proxy resolution and retrying of transient server errors.
package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/famomatic/yledl/internal/filesystem"
)

// Version is the user agent version reported to the Yle servers.
const Version = "2.0.0"

const (
	requestTimeout = 20 * time.Second
	maxRetries     = 3
	retryBackoff   = 500 * time.Millisecond
)

// Client is an HTTP client with the default headers and proxy settings
// used for all Areena requests.
type Client struct {
	httpClient *http.Client
	logger     logrus.FieldLogger
	// extra header added to every request when non-empty
	xForwardedFor string
}

// Options configures a Client.
type Options struct {
	// Proxy overrides the https_proxy environment variable.
	Proxy         string
	XForwardedFor string
	Logger        logrus.FieldLogger
}

// New builds a client. A proxy given in Options wins over the https_proxy
// environment variable.
func New(opts Options) (*Client, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = 10
	transport.IdleConnTimeout = 30 * time.Second

	if opts.Proxy != "" {
		proxyURL, err := url.Parse(opts.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy %q: %w", opts.Proxy, err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
		if os.Getenv("https_proxy") != "" || os.Getenv("HTTPS_PROXY") != "" {
			logger.Warn("--proxy overrides the https_proxy environment variable")
		}
	} else {
		transport.Proxy = http.ProxyFromEnvironment
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   requestTimeout,
			Transport: transport,
		},
		logger:        logger,
		xForwardedFor: opts.XForwardedFor,
	}, nil
}

// UserAgent returns the User-Agent header value sent with every request.
func UserAgent() string {
	return "yledl/" + Version
}

// Get fetches a URL and returns the response body. Server errors (5xx)
// are retried a few times before giving up.
func (c *Client) Get(ctx context.Context, rawURL string, extraHeaders map[string]string) ([]byte, error) {
	if !strings.Contains(rawURL, "://") {
		rawURL = "https://" + rawURL
	}
	if idx := strings.IndexByte(rawURL, '#'); idx >= 0 {
		rawURL = rawURL[:idx]
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryBackoff * time.Duration(attempt)):
			}
		}

		body, retryable, err := c.getOnce(ctx, rawURL, extraHeaders)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable {
			break
		}
		c.logger.WithField("url", rawURL).WithError(err).Debug("retrying request")
	}
	return nil, lastErr
}

func (c *Client) getOnce(ctx context.Context, rawURL string, extraHeaders map[string]string) (body []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("User-Agent", UserAgent())
	if c.xForwardedFor != "" {
		req.Header.Set("X-Forwarded-For", c.xForwardedFor)
	}
	for k, v := range extraHeaders {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, true, fmt.Errorf("GET %s: %s", rawURL, resp.Status)
	}
	if resp.StatusCode >= 400 {
		return nil, false, fmt.Errorf("GET %s: %s", rawURL, resp.Status)
	}

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, err
	}
	return body, false, nil
}

// PostJSON sends a JSON request body and decodes the JSON response into v.
func (c *Client) PostJSON(ctx context.Context, rawURL string, payload any, extraHeaders map[string]string, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(string(body)))
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", UserAgent())
	req.Header.Set("Content-Type", "application/json")
	if c.xForwardedFor != "" {
		req.Header.Set("X-Forwarded-For", c.xForwardedFor)
	}
	for k, v := range extraHeaders {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("POST %s: %s", rawURL, resp.Status)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(respBody, v); err != nil {
		return fmt.Errorf("decoding %s: %w", rawURL, err)
	}
	return nil
}

// GetJSON fetches a URL and decodes the response body into v.
func (c *Client) GetJSON(ctx context.Context, rawURL string, extraHeaders map[string]string, v any) error {
	body, err := c.Get(ctx, rawURL, extraHeaders)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decoding %s: %w", rawURL, err)
	}
	return nil
}

// GetHTML fetches a URL and parses the response as an HTML document.
func (c *Client) GetHTML(ctx context.Context, rawURL string) (*goquery.Document, error) {
	body, err := c.Get(ctx, rawURL, nil)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", rawURL, err)
	}
	return doc, nil
}

// DownloadToFile saves the contents of a URL into the named file.
func (c *Client) DownloadToFile(ctx context.Context, rawURL, destination string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", UserAgent())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("GET %s: %s", rawURL, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return filesystem.API().WriteFile(destination, data, 0o644)
}
