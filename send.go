package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	nethttp "net/http"
	"sync/atomic"
	"time"

	"github.com/gaborage/go-apiclient/logger"
	"github.com/gaborage/go-apiclient/retry"
	"github.com/gaborage/go-apiclient/trace"
)

// RequestOption customizes a single request.
type RequestOption func(*requestOptions)

type requestOptions struct {
	headers map[string]string
	auth    *Auth
}

// WithHeader adds a header to this request only. It overrides a default
// header with the same name.
func WithHeader(key, value string) RequestOption {
	return func(o *requestOptions) {
		if o.headers == nil {
			o.headers = make(map[string]string)
		}
		o.headers[key] = value
	}
}

// WithHeaders adds a set of headers to this request only.
func WithHeaders(headers map[string]string) RequestOption {
	return func(o *requestOptions) {
		if o.headers == nil {
			o.headers = make(map[string]string, len(headers))
		}
		for key, value := range headers {
			o.headers[key] = value
		}
	}
}

// WithRequestAuth overrides the client credential for this request only.
func WithRequestAuth(auth Auth) RequestOption {
	return func(o *requestOptions) {
		o.auth = &auth
	}
}

// Get performs a GET request and decodes the response body into T.
func Get[T any](ctx context.Context, c *Client, url string, opts ...RequestOption) Response[T] {
	return Send[T](ctx, c, nethttp.MethodGet, url, nil, opts...)
}

// Post performs a POST request with the encoded payload as body.
func Post[T any](ctx context.Context, c *Client, url string, payload any, opts ...RequestOption) Response[T] {
	return Send[T](ctx, c, nethttp.MethodPost, url, payload, opts...)
}

// Put performs a PUT request with the encoded payload as body.
func Put[T any](ctx context.Context, c *Client, url string, payload any, opts ...RequestOption) Response[T] {
	return Send[T](ctx, c, nethttp.MethodPut, url, payload, opts...)
}

// Patch performs a PATCH request with the encoded payload as body.
func Patch[T any](ctx context.Context, c *Client, url string, payload any, opts ...RequestOption) Response[T] {
	return Send[T](ctx, c, nethttp.MethodPatch, url, payload, opts...)
}

// Delete performs a DELETE request.
func Delete[T any](ctx context.Context, c *Client, url string, opts ...RequestOption) Response[T] {
	return Send[T](ctx, c, nethttp.MethodDelete, url, nil, opts...)
}

// Send performs a request with the given method and reports the outcome
// through the envelope. Payloads are only encoded for POST, PUT and PATCH.
func Send[T any](ctx context.Context, c *Client, method, url string, payload any, opts ...RequestOption) Response[T] {
	if c == nil {
		var resp Response[T]
		resp.ErrorMessage = "Unexpected error: client is nil"
		return resp
	}
	return buildEnvelope[T](c, c.exchange(ctx, method, url, payload, opts))
}

// exchangeResult carries the raw outcome of an exchange before envelope
// construction.
type exchangeResult struct {
	status  int
	body    []byte
	headers nethttp.Header
	stats   Stats
	err     error
}

// setFault records a failure that prevented a complete exchange. Status and
// body left over from an earlier attempt are cleared so the envelope reflects
// the final fault.
func (r *exchangeResult) setFault(err error) {
	r.err = err
	r.status = 0
	r.body = nil
	r.headers = nil
}

// retryReason describes the outcome that triggered another attempt.
func (r *exchangeResult) retryReason() string {
	if r.err != nil {
		return r.err.Error()
	}
	return fmt.Sprintf("status %d", r.status)
}

// exchange runs the request pipeline: encode, build, send, retry, read.
// It never returns nil.
func (c *Client) exchange(ctx context.Context, method, url string, payload any, opts []RequestOption) *exchangeResult {
	if ctx == nil {
		ctx = context.Background()
	}

	var options requestOptions
	for _, opt := range opts {
		opt(&options)
	}

	res := &exchangeResult{}
	res.stats.CallCount = atomic.AddInt64(&c.callCount, 1)
	start := time.Now()
	logger.IncrementCallCount(ctx)
	defer func() {
		res.stats.ElapsedTime = time.Since(start)
		logger.AddCallElapsed(ctx, res.stats.ElapsedTime.Nanoseconds())
	}()

	log := c.logger.WithContext(ctx)

	target, err := c.resolveURL(url)
	if err != nil {
		res.setFault(err)
		return res
	}

	var body []byte
	if payload != nil && methodAllowsBody(method) {
		if body, err = c.codec.Marshal(payload); err != nil {
			res.setFault(err)
			return res
		}
	}

	requestID := c.requestID(ctx)
	policy := c.config.Retry

	for attempt := 0; ; attempt++ {
		res.stats.Attempts = attempt + 1

		if attempt > 0 {
			delay := policy.Delay(attempt)
			c.logRetry(log, method, target, requestID, attempt, delay, res.retryReason())
			if err := retry.Sleep(ctx, delay); err != nil {
				res.setFault(err)
				return res
			}
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				res.setFault(err)
				return res
			}
		}

		req, err := c.buildRequest(ctx, method, target, body, requestID, &options)
		if err != nil {
			res.setFault(err)
			return res
		}

		c.logRequest(log, req, body, requestID)

		httpResp, err := c.httpClient.Do(req)
		if err != nil {
			res.setFault(err)
			if ctx.Err() == nil && attempt < policy.MaxRetries {
				continue
			}
			return res
		}

		respBody, readErr := io.ReadAll(httpResp.Body)
		httpResp.Body.Close()

		res.status = httpResp.StatusCode
		res.headers = httpResp.Header
		res.body = respBody

		if readErr != nil {
			// Keep the status and partial body for diagnostics
			res.err = readErr
			if ctx.Err() == nil && attempt < policy.MaxRetries {
				continue
			}
			return res
		}
		res.err = nil

		if IsSuccessStatus(res.status) || !policy.ShouldRetry(attempt, res.status) {
			res.stats.ElapsedTime = time.Since(start)
			c.logResponse(log, res, requestID)
			return res
		}
	}
}

// buildRequest constructs the outgoing request for one attempt with headers,
// trace propagation and authentication applied.
func (c *Client) buildRequest(ctx context.Context, method, url string, body []byte, requestID string, options *requestOptions) (*nethttp.Request, error) {
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}

	req, err := nethttp.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")
	if len(body) > 0 {
		req.Header.Set("Content-Type", c.codec.ContentType())
	}

	// Default headers first, request-specific headers override them
	for key, value := range c.config.DefaultHeaders {
		req.Header.Set(key, value)
	}
	for key, value := range options.headers {
		req.Header.Set(key, value)
	}

	c.applyTrace(ctx, req, requestID)
	c.applyAuth(req.Header, options.auth)

	return req, nil
}

// applyTrace injects correlation headers unless the request already carries
// them.
func (c *Client) applyTrace(ctx context.Context, req *nethttp.Request, requestID string) {
	header := c.config.TraceIDHeader
	if header == "" {
		header = HeaderRequestID
	}
	if requestID != "" && req.Header.Get(header) == "" {
		req.Header.Set(header, requestID)
	}

	if !c.config.EnableW3CTrace {
		return
	}
	if req.Header.Get(HeaderTraceParent) == "" {
		parent, ok := trace.ParentFromContext(ctx)
		if !ok || parent == "" {
			parent = trace.NewTraceParent()
		}
		req.Header.Set(HeaderTraceParent, parent)
	}
	if req.Header.Get(HeaderTraceState) == "" {
		if state, ok := trace.StateFromContext(ctx); ok && state != "" {
			req.Header.Set(HeaderTraceState, state)
		}
	}
}

// methodAllowsBody reports whether the method carries a request payload.
// GET and DELETE requests never attach one.
func methodAllowsBody(method string) bool {
	switch method {
	case nethttp.MethodPost, nethttp.MethodPut, nethttp.MethodPatch:
		return true
	default:
		return false
	}
}
