package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"syscall"
	"time"
)

// Common errors.
var (
	ErrNotFound     = errors.New("http: resource not found")
	ErrForbidden    = errors.New("http: access forbidden")
	ErrUnauthorized = errors.New("http: unauthorized")
	ErrServerError  = errors.New("http: server error")
)

// DefaultLoginHost is the Earthdata Login host that receives basic auth
// credentials during the OAuth redirect.
const DefaultLoginHost = "urs.earthdata.nasa.gov"

// retryStatus lists the response codes that are retried with backoff.
var retryStatus = map[int]bool{
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// Credentials authenticate against Earthdata Login. A Token takes precedence
// over Username/Password.
type Credentials struct {
	Username string
	Password string
	Token    string
}

// Empty reports whether no credentials are set.
func (c Credentials) Empty() bool {
	return c.Token == "" && (c.Username == "" || c.Password == "")
}

// Options configures the HTTP client.
type Options struct {
	// Timeout for individual requests, including reading the body.
	// Default: 10m
	Timeout time.Duration

	// RetryAttempts is the maximum number of retry attempts.
	// Default: 5
	RetryAttempts int

	// RetryBackoff is the initial backoff duration.
	// Default: 1s
	RetryBackoff time.Duration

	// RetryMaxBackoff is the maximum backoff duration.
	// Default: 30s
	RetryMaxBackoff time.Duration

	// Credentials for Earthdata Login. Optional for the catalog.
	Credentials Credentials

	// LoginHost receives basic auth during redirects.
	// Default: DefaultLoginHost
	LoginHost string

	// UserAgent is sent with every request when set.
	UserAgent string
}

// DefaultOptions returns options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		Timeout:         10 * time.Minute,
		RetryAttempts:   5,
		RetryBackoff:    time.Second,
		RetryMaxBackoff: 30 * time.Second,
		LoginHost:       DefaultLoginHost,
		UserAgent:       "swot-fetch",
	}
}

// Client is an HTTP client with retry and Earthdata authentication.
type Client struct {
	client *http.Client
	opts   Options
}

// NewClient creates a new HTTP client with the given options.
func NewClient(opts Options) *Client {
	if opts.LoginHost == "" {
		opts.LoginHost = DefaultLoginHost
	}

	// cookiejar.New only fails for a non-nil PublicSuffixList.
	jar, _ := cookiejar.New(nil)

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	}

	c := &Client{opts: opts}
	c.client = &http.Client{
		Transport:     transport,
		Timeout:       opts.Timeout,
		Jar:           jar,
		CheckRedirect: c.checkRedirect,
	}
	return c
}

// Get performs a GET request and returns the response of the first attempt
// that did not fail with a retryable error. The caller must close the body.
func (c *Client) Get(ctx context.Context, rawURL string, header http.Header) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.opts.RetryAttempts; attempt++ {
		if attempt > 0 {
			if err := c.backoff(ctx, attempt); err != nil {
				return nil, err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
		if c.opts.UserAgent != "" {
			req.Header.Set("User-Agent", c.opts.UserAgent)
		}
		c.authorize(req, true)

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}

		if retryStatus[resp.StatusCode] {
			drain(resp.Body)
			lastErr = fmt.Errorf("%w: %s", ErrServerError, resp.Status)
			continue
		}

		if err := checkStatusCode(resp.StatusCode); err != nil {
			drain(resp.Body)
			return nil, err
		}

		return resp, nil
	}

	return nil, fmt.Errorf("get %s failed after %d attempts: %w", redact(rawURL), c.opts.RetryAttempts+1, lastErr)
}

// Download streams the body of rawURL into w and returns the number of bytes
// written. Errors while copying the body are not retried since w already
// holds partial data.
func (c *Client) Download(ctx context.Context, rawURL string, w io.Writer) (int64, error) {
	resp, err := c.Get(ctx, rawURL, nil)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("read body of %s: %w", redact(rawURL), err)
	}
	if resp.ContentLength >= 0 && n != resp.ContentLength {
		return n, fmt.Errorf("read body of %s: %w (got %d of %d bytes)", redact(rawURL), io.ErrUnexpectedEOF, n, resp.ContentLength)
	}
	return n, nil
}

// checkRedirect re-applies credentials on redirects. Go strips the
// Authorization header when a redirect leaves the original host.
func (c *Client) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= 10 {
		return errors.New("stopped after 10 redirects")
	}
	c.authorize(req, via[0].URL.Host == req.URL.Host)
	return nil
}

// authorize adds credentials to req. The token is only sent to the origin
// host and the login host; basic auth only to the login host.
func (c *Client) authorize(req *http.Request, origin bool) {
	creds := c.opts.Credentials
	toLogin := req.URL.Hostname() == c.opts.LoginHost

	switch {
	case creds.Token != "" && (origin || toLogin):
		req.Header.Set("Authorization", "Bearer "+creds.Token)
	case creds.Username != "" && toLogin:
		req.SetBasicAuth(creds.Username, creds.Password)
	}
}

// backoff waits for an exponentially increasing duration with jitter.
func (c *Client) backoff(ctx context.Context, attempt int) error {
	backoff := c.opts.RetryBackoff * time.Duration(1<<uint(attempt-1))
	if c.opts.RetryMaxBackoff > 0 && backoff > c.opts.RetryMaxBackoff {
		backoff = c.opts.RetryMaxBackoff
	}

	// Add jitter: 0.5 to 1.5 of backoff
	jitter := time.Duration(float64(backoff) * (0.5 + rand.Float64()))

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(jitter):
		return nil
	}
}

// IsConnectionError reports whether err is a connectivity-class failure: a
// network error, a truncated body, or server errors that outlasted the
// retries. Cancellation is not a connection error.
func IsConnectionError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, ErrServerError) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// checkStatusCode returns an appropriate error for non-success status codes.
func checkStatusCode(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusForbidden:
		return ErrForbidden
	case code == http.StatusUnauthorized:
		return ErrUnauthorized
	default:
		return fmt.Errorf("unexpected status code: %d", code)
	}
}

func drain(body io.ReadCloser) {
	io.Copy(io.Discard, io.LimitReader(body, 64*1024))
	body.Close()
}

// redact drops the query string, which may carry signed tokens.
func redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.RawQuery = ""
	return u.String()
}
