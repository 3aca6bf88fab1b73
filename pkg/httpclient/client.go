// Package httpclient wraps resty behind a small client interface so the
// fetcher and tests can swap transports.
package httpclient

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
)

// Response exposes the parts of an HTTP response the pipeline needs.
type Response interface {
	Body() []byte
	StatusCode() int
	ContentType() string
	// FinalURL is the request URL after following redirects.
	FinalURL() string
}

// Client issues GET requests with optional headers.
type Client interface {
	Get(ctx context.Context, url string, headers map[string]string) (Response, error)
}

// Options tunes the underlying resty client.
type Options struct {
	Timeout      time.Duration
	RetryCount   int
	RetryWait    time.Duration
	RetryMaxWait time.Duration
	UserAgent    string
}

type restyClient struct {
	client *resty.Client
}

// NewRestyClient builds a Client with the given request timeout and
// default retry behavior.
func NewRestyClient(timeout time.Duration) Client {
	return NewRestyClientWithOptions(Options{Timeout: timeout})
}

// NewRestyClientWithOptions builds a Client from explicit options.
// Retries are handled by resty with exponential backoff; 5xx and 429
// responses are retried in addition to transport errors.
func NewRestyClientWithOptions(opts Options) Client {
	c := resty.New()

	if opts.Timeout > 0 {
		c.SetTimeout(opts.Timeout)
	}
	if opts.RetryCount > 0 {
		c.SetRetryCount(opts.RetryCount)
	}
	if opts.RetryWait > 0 {
		c.SetRetryWaitTime(opts.RetryWait)
	}
	if opts.RetryMaxWait > 0 {
		c.SetRetryMaxWaitTime(opts.RetryMaxWait)
	}
	if opts.UserAgent != "" {
		c.SetHeader("User-Agent", opts.UserAgent)
	}

	c.AddRetryCondition(func(r *resty.Response, err error) bool {
		if err != nil {
			return true
		}
		return r.StatusCode() >= 500 || r.StatusCode() == 429
	})

	return &restyClient{client: c}
}

func (c *restyClient) Get(ctx context.Context, url string, headers map[string]string) (Response, error) {
	req := c.client.R().SetContext(ctx)
	if len(headers) > 0 {
		req.SetHeaders(headers)
	}

	resp, err := req.Get(url)
	if err != nil {
		return nil, err
	}
	return &restyResponse{resp: resp}, nil
}

type restyResponse struct {
	resp *resty.Response
}

func (r *restyResponse) Body() []byte        { return r.resp.Body() }
func (r *restyResponse) StatusCode() int     { return r.resp.StatusCode() }
func (r *restyResponse) ContentType() string { return r.resp.Header().Get("Content-Type") }

func (r *restyResponse) FinalURL() string {
	raw := r.resp.RawResponse
	if raw != nil && raw.Request != nil && raw.Request.URL != nil {
		return raw.Request.URL.String()
	}
	return r.resp.Request.URL
}
