package apiclient

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	neturl "net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/gaborage/go-apiclient/codec"
	"github.com/gaborage/go-apiclient/config"
	"github.com/gaborage/go-apiclient/logger"
	"github.com/gaborage/go-apiclient/retry"
	"github.com/gaborage/go-apiclient/trace"
)

const (
	// DefaultTimeout is the default request timeout duration
	DefaultTimeout = 30 * time.Second

	// DefaultMaxPayloadLogBytes caps logged payload previews when no explicit limit is configured
	DefaultMaxPayloadLogBytes = 1024
)

const (
	// HeaderRequestID is the default header name for request correlation
	HeaderRequestID = trace.HeaderRequestID
	// HeaderTraceParent is the W3C trace context header name
	HeaderTraceParent = trace.HeaderTraceParent
	// HeaderTraceState is the W3C trace context "tracestate" header name
	HeaderTraceState = trace.HeaderTraceState
)

// Config holds the API client configuration
type Config struct {
	// BaseURL is prepended to relative request paths; absolute URLs bypass it
	BaseURL string
	// Timeout bounds each request attempt end to end
	Timeout time.Duration
	// DefaultHeaders are added to every outgoing request
	DefaultHeaders map[string]string
	// Auth is the credential injected into outgoing requests
	Auth Auth
	// Retry controls how failed requests are reattempted
	Retry retry.Policy
	// RateLimit throttles outgoing requests in requests per second; zero disables throttling
	RateLimit float64
	// RateBurst is the burst size allowed on top of RateLimit
	RateBurst int
	// LogPayloads enables debug-level logging of headers and body payloads
	LogPayloads bool
	// MaxPayloadLogBytes caps the number of body bytes logged when LogPayloads is enabled
	MaxPayloadLogBytes int
	// TraceIDHeader configures the header name used for request ID propagation (default: X-Request-ID)
	TraceIDHeader string
	// NewTraceID generates a new request ID when none is present (default: uuid)
	NewTraceID func() string
	// TraceIDExtractor allows advanced extraction of a request ID from context; return ok=false to fall back to the generator
	TraceIDExtractor func(_ context.Context) (id string, ok bool)
	// EnableW3CTrace enables W3C Trace Context (traceparent/tracestate) propagation and generation
	EnableW3CTrace bool
}

// Client executes HTTP requests against JSON APIs. All request operations
// report their outcome through the Response envelope and never panic or
// return a bare error. A Client is safe for concurrent use.
type Client struct {
	httpClient *nethttp.Client
	ownsClient bool
	logger     logger.Logger
	codec      codec.Codec
	config     *Config
	limiter    *rate.Limiter
	baseURL    *neturl.URL
	baseErr    error
	callCount  int64
}

// New creates a new API client with default configuration
func New(log logger.Logger) *Client {
	return NewBuilder(log).Build()
}

// NewFromConfig creates a client from a loaded configuration. The logger may
// be nil, in which case one is created from the configured log settings.
func NewFromConfig(cfg *config.Config, log logger.Logger) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("configuration is nil")
	}
	if log == nil {
		log = logger.New(cfg.Log.Level, cfg.Log.Pretty)
	}

	c := NewBuilder(log).
		WithBaseURL(cfg.Client.BaseURL).
		WithTimeout(cfg.Client.Timeout).
		WithDefaultHeaders(cfg.Client.Headers).
		WithAuth(Auth{Type: ParseAuthType(cfg.Client.Auth.Type), Token: cfg.Client.Auth.Token}).
		WithRetryPolicy(retry.Policy{
			MaxRetries: cfg.Client.Retry.MaxRetries,
			Backoff: retry.ExponentialBackoff{
				InitialInterval: cfg.Client.Retry.InitialDelay,
				MaxInterval:     cfg.Client.Retry.MaxDelay,
				Multiplier:      cfg.Client.Retry.Multiplier,
				JitterFactor:    cfg.Client.Retry.Jitter,
			},
		}).
		WithRateLimit(cfg.Client.Rate.Limit, cfg.Client.Rate.Burst).
		WithTraceIDHeader(cfg.Client.Trace.Header).
		WithW3CTrace(cfg.Client.Trace.W3C).
		WithPayloadLogging(cfg.Client.Payload.Log).
		WithMaxPayloadLogBytes(cfg.Client.Payload.MaxBytes).
		Build()

	if c.baseErr != nil {
		return nil, c.baseErr
	}
	return c, nil
}

// Builder provides a fluent interface for configuring the API client
type Builder struct {
	config       *Config
	logger       logger.Logger
	codec        codec.Codec
	httpClient   *nethttp.Client
	ownsSupplied bool
	transport    nethttp.RoundTripper
}

// NewBuilder creates a new client builder
func NewBuilder(log logger.Logger) *Builder {
	return &Builder{
		config: &Config{
			Timeout:            DefaultTimeout,
			DefaultHeaders:     make(map[string]string),
			Retry:              retry.DefaultPolicy(),
			MaxPayloadLogBytes: DefaultMaxPayloadLogBytes,
			TraceIDHeader:      HeaderRequestID,
			EnableW3CTrace:     true,
		},
		logger: log,
	}
}

// WithBaseURL sets the base URL prepended to relative request paths
func (b *Builder) WithBaseURL(rawURL string) *Builder {
	b.config.BaseURL = rawURL
	return b
}

// WithTimeout sets the request timeout
func (b *Builder) WithTimeout(timeout time.Duration) *Builder {
	b.config.Timeout = timeout
	return b
}

// WithDefaultHeader adds a default header that will be sent with all requests
func (b *Builder) WithDefaultHeader(key, value string) *Builder {
	b.config.DefaultHeaders[key] = value
	return b
}

// WithDefaultHeaders adds a set of default headers sent with all requests
func (b *Builder) WithDefaultHeaders(headers map[string]string) *Builder {
	for key, value := range headers {
		b.config.DefaultHeaders[key] = value
	}
	return b
}

// WithAuth sets the credential injected into outgoing requests
func (b *Builder) WithAuth(auth Auth) *Builder {
	b.config.Auth = auth
	return b
}

// WithBearerToken configures bearer token authentication
func (b *Builder) WithBearerToken(token string) *Builder {
	return b.WithAuth(BearerAuth(token))
}

// WithBasicAuth configures basic authentication credentials
func (b *Builder) WithBasicAuth(username, password string) *Builder {
	return b.WithAuth(BasicAuth(username, password))
}

// WithAPIKey configures API key authentication via the X-API-Key header
func (b *Builder) WithAPIKey(key string) *Builder {
	return b.WithAuth(APIKeyAuth(key))
}

// WithRetryPolicy sets the retry configuration
func (b *Builder) WithRetryPolicy(policy retry.Policy) *Builder {
	b.config.Retry = policy
	return b
}

// WithoutRetry disables retries entirely
func (b *Builder) WithoutRetry() *Builder {
	b.config.Retry = retry.Policy{}
	return b
}

// WithHTTPClient supplies a caller-owned *http.Client. The client's timeout
// and transport are used as-is and Close becomes a no-op.
func (b *Builder) WithHTTPClient(httpClient *nethttp.Client) *Builder {
	b.httpClient = httpClient
	b.ownsSupplied = false
	return b
}

// WithOwnedHTTPClient supplies a *http.Client whose lifecycle transfers to
// the built client: Close releases its idle connections.
func (b *Builder) WithOwnedHTTPClient(httpClient *nethttp.Client) *Builder {
	b.httpClient = httpClient
	b.ownsSupplied = true
	return b
}

// WithTransport sets the round tripper for the built-in HTTP client.
// Ignored when WithHTTPClient is used.
func (b *Builder) WithTransport(transport nethttp.RoundTripper) *Builder {
	b.transport = transport
	return b
}

// WithCodec replaces the payload codec (default: JSON)
func (b *Builder) WithCodec(co codec.Codec) *Builder {
	b.codec = co
	return b
}

// WithRateLimit throttles outgoing requests to rps requests per second with
// the given burst. A burst below one is raised to one.
func (b *Builder) WithRateLimit(rps float64, burst int) *Builder {
	b.config.RateLimit = rps
	b.config.RateBurst = burst
	return b
}

// WithTraceIDHeader sets the header name used for request ID propagation
func (b *Builder) WithTraceIDHeader(header string) *Builder {
	b.config.TraceIDHeader = header
	return b
}

// WithTraceIDGenerator sets the function used to mint request IDs
func (b *Builder) WithTraceIDGenerator(generator func() string) *Builder {
	b.config.NewTraceID = generator
	return b
}

// WithTraceIDExtractor sets a custom request ID extractor consulted before
// the context and the generator
func (b *Builder) WithTraceIDExtractor(extractor func(ctx context.Context) (string, bool)) *Builder {
	b.config.TraceIDExtractor = extractor
	return b
}

// WithW3CTrace toggles traceparent/tracestate propagation
func (b *Builder) WithW3CTrace(enabled bool) *Builder {
	b.config.EnableW3CTrace = enabled
	return b
}

// WithPayloadLogging toggles debug-level logging of payloads and headers
func (b *Builder) WithPayloadLogging(enabled bool) *Builder {
	b.config.LogPayloads = enabled
	return b
}

// WithMaxPayloadLogBytes caps the number of payload bytes captured in logs
func (b *Builder) WithMaxPayloadLogBytes(limit int) *Builder {
	b.config.MaxPayloadLogBytes = limit
	return b
}

// Build creates the API client with the configured options. Build never
// fails: a malformed base URL is reported through the envelope of every
// request that needs it.
func (b *Builder) Build() *Client {
	c := &Client{
		logger: b.logger,
		codec:  b.codec,
		config: b.config,
	}

	if c.logger == nil {
		c.logger = logger.New("info", false)
	}
	if c.codec == nil {
		c.codec = codec.NewJSON()
	}
	if c.config.MaxPayloadLogBytes <= 0 {
		c.config.MaxPayloadLogBytes = DefaultMaxPayloadLogBytes
	}
	if c.config.TraceIDHeader == "" {
		c.config.TraceIDHeader = HeaderRequestID
	}

	switch {
	case b.httpClient != nil:
		c.httpClient = b.httpClient
		c.ownsClient = b.ownsSupplied
	case b.transport != nil:
		c.httpClient = &nethttp.Client{Timeout: b.config.Timeout, Transport: b.transport}
		c.ownsClient = true
	default:
		c.httpClient = &nethttp.Client{Timeout: b.config.Timeout}
		c.ownsClient = true
	}

	if b.config.BaseURL != "" {
		base, err := neturl.Parse(b.config.BaseURL)
		switch {
		case err != nil:
			c.baseErr = fmt.Errorf("invalid base URL %q: %w", b.config.BaseURL, err)
		case base.Scheme == "" || base.Host == "":
			c.baseErr = fmt.Errorf("base URL %q must be absolute", b.config.BaseURL)
		default:
			c.baseURL = base
		}
	}

	if b.config.RateLimit > 0 {
		burst := b.config.RateBurst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(b.config.RateLimit), burst)
	}

	return c
}

// Close releases idle connections when the client owns its transport.
// Clients built with WithHTTPClient leave the lifecycle to the caller.
func (c *Client) Close() {
	if c.ownsClient && c.httpClient != nil {
		c.httpClient.CloseIdleConnections()
	}
}

// resolveURL joins a request URL with the configured base URL. Absolute URLs
// pass through untouched.
func (c *Client) resolveURL(rawURL string) (string, error) {
	if rawURL == "" {
		return "", errors.New("URL cannot be empty")
	}

	if parsed, err := neturl.Parse(rawURL); err == nil && parsed.IsAbs() {
		return rawURL, nil
	}

	if c.baseErr != nil {
		return "", c.baseErr
	}
	if c.baseURL == nil {
		return "", fmt.Errorf("relative URL %q requires a base URL", rawURL)
	}

	base := strings.TrimRight(c.baseURL.String(), "/")
	return base + "/" + strings.TrimLeft(rawURL, "/"), nil
}

// requestID resolves the correlation ID for an exchange: the configured
// extractor first, then the context, then the generator.
func (c *Client) requestID(ctx context.Context) string {
	if c.config.TraceIDExtractor != nil {
		if id, ok := c.config.TraceIDExtractor(ctx); ok && id != "" {
			return id
		}
	}
	if id, ok := trace.RequestIDFromContext(ctx); ok {
		return id
	}
	if c.config.NewTraceID != nil {
		return c.config.NewTraceID()
	}
	return trace.NewRequestID()
}
