// Package network sends a single upload request to the Process Link Files API.
// Requests are never retried: one call is one attempt.
package network

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"time"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/retryhttp"
	"github.com/hashicorp/go-retryablehttp"
)

const (
	// SiteIDHeader carries the site identifier.
	SiteIDHeader = "x-site-id"
	// APIKeyHeader carries the secret API key.
	APIKeyHeader = "x-api-key"

	redacted = "*****"
)

// RawResponse is the unparsed HTTP response of an upload.
type RawResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// SendParams ...
type SendParams struct {
	URL     string
	Headers map[string]string
	Body    []byte
	// Timeout bounds the whole exchange, from connecting to reading the last body byte.
	Timeout time.Duration
}

// RequestError is a network level failure (DNS, refused or reset connection, ...).
type RequestError struct {
	Message string
	Err     error
}

func (e *RequestError) Error() string {
	return e.Message
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// TimeoutError is returned when the deadline expired before the response was read.
// The in-flight request has been aborted by then.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return "Request timed out"
}

// Endpoint is a parsed upload URL.
type Endpoint struct {
	URL    *url.URL
	Secure bool
	// Address is host:port, the port defaulting to 443 for https and 80 for http.
	Address string
}

// ParseEndpoint ...
func ParseEndpoint(rawURL string) (Endpoint, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Endpoint{}, fmt.Errorf("invalid API URL %q: %w", rawURL, err)
	}

	var defaultPort string
	switch u.Scheme {
	case "https":
		defaultPort = "443"
	case "http":
		defaultPort = "80"
	default:
		return Endpoint{}, fmt.Errorf("invalid API URL %q: unsupported protocol %q", rawURL, u.Scheme)
	}
	if u.Hostname() == "" {
		return Endpoint{}, fmt.Errorf("invalid API URL %q: missing host", rawURL)
	}

	port := u.Port()
	if port == "" {
		port = defaultPort
	}

	return Endpoint{
		URL:     u,
		Secure:  u.Scheme == "https",
		Address: net.JoinHostPort(u.Hostname(), port),
	}, nil
}

// Client ...
type Client struct {
	httpClient *retryablehttp.Client
	logger     log.Logger
}

// NewClient returns a Client that makes exactly one attempt per Send.
func NewClient(logger log.Logger) *Client {
	httpClient := retryhttp.NewClient(logger)
	httpClient.RetryMax = 0
	httpClient.CheckRetry = createNoRetryFunction(logger)
	httpClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{
		httpClient: httpClient,
		logger:     logger,
	}
}

func createNoRetryFunction(logger log.Logger) retryablehttp.CheckRetry {
	return func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		logger.Debugf("CheckRetry: retry=false ; err=%+v", err)
		return false, nil
	}
}

// Send posts params.Body to params.URL. Exactly one of a response, a *RequestError or a
// *TimeoutError is produced.
func (c *Client) Send(ctx context.Context, params SendParams) (RawResponse, error) {
	endpoint, err := ParseEndpoint(params.URL)
	if err != nil {
		return RawResponse{}, &RequestError{Message: err.Error(), Err: err}
	}

	var cancel context.CancelFunc
	if params.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, params.Timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, endpoint.URL.String(), params.Body)
	if err != nil {
		return RawResponse{}, &RequestError{Message: err.Error(), Err: err}
	}
	for k, v := range params.Headers {
		req.Header.Set(k, v)
	}

	// Add Content-Length header manually because retryablehttp doesn't do it automatically
	size := int64(len(params.Body))
	req.Header.Set("Content-Length", strconv.FormatInt(size, 10))
	req.ContentLength = size

	c.logger.Debugf("Sending %d bytes to %s", size, endpoint.Address)
	c.dumpRequest(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return RawResponse{}, c.wrapError(ctx, err, params.Timeout)
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			c.logger.Debugf("Failed to close response body: %s", err)
		}
	}(resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return RawResponse{}, c.wrapError(ctx, err, params.Timeout)
	}

	dump, err := httputil.DumpResponse(resp, false)
	if err != nil {
		c.logger.Warnf("error while dumping response: %s", err)
	}
	c.logger.Debugf("Upload response dump: %s%s", string(dump), string(body))

	return RawResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}, nil
}

func (c *Client) wrapError(ctx context.Context, err error, timeout time.Duration) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		c.logger.Debugf("Request aborted after %s: %s", timeout, err)
		return &TimeoutError{Timeout: timeout}
	}

	message := err.Error()
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		message = urlErr.Err.Error()
	}
	return &RequestError{Message: message, Err: err}
}

func (c *Client) dumpRequest(req *retryablehttp.Request) {
	clone := req.Request.Clone(req.Context())
	if clone.Header.Get(APIKeyHeader) != "" {
		clone.Header.Set(APIKeyHeader, redacted)
	}

	dump, err := httputil.DumpRequest(clone, false)
	if err != nil {
		c.logger.Warnf("error while dumping request: %s", err)
		return
	}
	c.logger.Debugf("Upload request dump: %s", string(dump))
}
