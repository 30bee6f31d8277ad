package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Default values for HTTPFetcher.
const (
	// DefaultTimeout bounds a single attempt, from dial to the last body byte.
	DefaultTimeout = 3 * time.Second

	// DefaultMaxBodySize caps a buffered body at 10 MiB.
	DefaultMaxBodySize int64 = 10 << 20

	// DefaultUserAgent identifies the crawler.
	DefaultUserAgent = "wordscan/1.0 (+https://github.com/nao1215/wordscan)"
)

// Fetcher issues a single HTTP request.
// method is "HEAD" or "GET".
type Fetcher interface {
	Fetch(ctx context.Context, rawURL, method string) (*Response, error)
}

// HTTPFetcher is the Fetcher used against real servers.
// It is safe for concurrent use by separate crawls.
type HTTPFetcher struct {
	client      *http.Client
	maxBodySize int64
}

// fetcherConfig collects the values set by Option.
type fetcherConfig struct {
	timeout     time.Duration
	maxBodySize int64
	userAgent   string
	headers     map[string]string
	cookie      string
	transport   http.RoundTripper
}

// Option configures an HTTPFetcher.
type Option func(*fetcherConfig)

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *fetcherConfig) {
		c.timeout = d
	}
}

// WithMaxBodySize caps the buffered body. Zero means unlimited.
func WithMaxBodySize(n int64) Option {
	return func(c *fetcherConfig) {
		c.maxBodySize = n
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *fetcherConfig) {
		c.userAgent = ua
	}
}

// WithHeaders adds headers to every request.
func WithHeaders(headers map[string]string) Option {
	return func(c *fetcherConfig) {
		c.headers = headers
	}
}

// WithCookie sends a raw cookie string (e.g. "session=abc") with every request.
func WithCookie(cookie string) Option {
	return func(c *fetcherConfig) {
		c.cookie = cookie
	}
}

// WithTransport replaces the base transport. Header injection still applies.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *fetcherConfig) {
		c.transport = rt
	}
}

// NewHTTPFetcher creates an HTTPFetcher.
//
// The client disables keep-alives so that each call opens exactly one
// connection, and never follows redirects.
func NewHTTPFetcher(opts ...Option) *HTTPFetcher {
	cfg := &fetcherConfig{
		timeout:     DefaultTimeout,
		maxBodySize: DefaultMaxBodySize,
		userAgent:   DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	base := cfg.transport
	if base == nil {
		base = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			DisableKeepAlives:   true,
			DisableCompression:  true,
			TLSHandshakeTimeout: cfg.timeout,
		}
	}

	return &HTTPFetcher{
		client: &http.Client{
			Transport: &headerInjectingTransport{
				base:      base,
				userAgent: cfg.userAgent,
				cookie:    cfg.cookie,
				headers:   cfg.headers,
			},
			Timeout: cfg.timeout,
			CheckRedirect: func(_ *http.Request, _ []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		maxBodySize: cfg.maxBodySize,
	}
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL, method string) (*Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	if scheme := strings.ToLower(u.Scheme); scheme != "http" && scheme != "https" {
		return nil, &ProtocolError{URL: rawURL, Scheme: u.Scheme}
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept-Encoding", acceptEncoding)

	resp, err := f.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &NetworkError{URL: rawURL, Method: method, Err: err}
	}
	defer resp.Body.Close()

	body, err := f.readBody(resp.Body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, ErrBodyTooLarge) {
			return nil, fmt.Errorf("%s %s: %w", method, rawURL, err)
		}
		return nil, &NetworkError{URL: rawURL, Method: method, Err: err}
	}

	header := resp.Header.Clone()
	if enc := header.Get("Content-Encoding"); enc != "" && len(body) > 0 {
		body, err = decodeBody(body, enc, f.maxBodySize)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", method, rawURL, err)
		}
		header.Del("Content-Encoding")
		header.Del("Content-Length")
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     header,
		Body:       body,
	}, nil
}

// readBody buffers the body, honoring maxBodySize.
func (f *HTTPFetcher) readBody(r io.Reader) ([]byte, error) {
	if f.maxBodySize <= 0 {
		return io.ReadAll(r)
	}
	body, err := io.ReadAll(io.LimitReader(r, f.maxBodySize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > f.maxBodySize {
		return nil, ErrBodyTooLarge
	}
	return body, nil
}

// headerInjectingTransport wraps an http.RoundTripper to inject
// the User-Agent, custom headers and a cookie into every request.
type headerInjectingTransport struct {
	base      http.RoundTripper
	userAgent string
	cookie    string
	headers   map[string]string
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())

	if t.userAgent != "" {
		clone.Header.Set("User-Agent", t.userAgent)
	}

	if t.cookie != "" {
		if existing := clone.Header.Get("Cookie"); existing != "" {
			clone.Header.Set("Cookie", existing+"; "+t.cookie)
		} else {
			clone.Header.Set("Cookie", t.cookie)
		}
	}

	// Custom headers win over the defaults above.
	for key, value := range t.headers {
		clone.Header.Set(key, value)
	}

	return t.base.RoundTrip(clone)
}
