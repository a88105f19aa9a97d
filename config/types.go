package config

import (
	"time"

	"github.com/knadh/koanf/v2"
)

// Config represents the overall API client configuration structure.
// It includes sections for client behavior (base URL, auth, retries,
// rate limiting, tracing) and logging preferences. The embedded
// koanf.Koanf instance allows for flexible access to additional custom
// configurations not explicitly defined in the struct.
type Config struct {
	Client ClientConfig `koanf:"client" json:"client" yaml:"client" toml:"client" mapstructure:"client"`
	Log    LogConfig    `koanf:"log" json:"log" yaml:"log" toml:"log" mapstructure:"log"`

	// k holds the underlying Koanf instance for flexible access to custom configurations
	k *koanf.Koanf `json:"-" yaml:"-" toml:"-" mapstructure:"-"`
}

// ClientConfig holds HTTP client behavior settings.
// Production-safe defaults are applied automatically:
//   - Timeout: 30s (per-attempt request timeout)
//   - Retry: 3 retries, exponential backoff starting at 2s
//   - Trace: X-Request-ID header with W3C trace context enabled
type ClientConfig struct {
	// BaseURL is prepended to relative request paths. Optional; requests
	// made with absolute URLs bypass it.
	BaseURL string `koanf:"baseurl" json:"baseurl" yaml:"baseurl" toml:"baseurl" mapstructure:"baseurl" validate:"omitempty,url"`

	// Timeout bounds each request attempt end to end.
	// Default: 30s.
	Timeout time.Duration `koanf:"timeout" json:"timeout" yaml:"timeout" toml:"timeout" mapstructure:"timeout" validate:"gte=0"`

	// Headers are added to every outgoing request.
	Headers map[string]string `koanf:"headers" json:"headers" yaml:"headers" toml:"headers" mapstructure:"headers"`

	Auth    AuthConfig    `koanf:"auth" json:"auth" yaml:"auth" toml:"auth" mapstructure:"auth"`
	Retry   RetryConfig   `koanf:"retry" json:"retry" yaml:"retry" toml:"retry" mapstructure:"retry"`
	Rate    RateConfig    `koanf:"rate" json:"rate" yaml:"rate" toml:"rate" mapstructure:"rate"`
	Trace   TraceConfig   `koanf:"trace" json:"trace" yaml:"trace" toml:"trace" mapstructure:"trace"`
	Payload PayloadConfig `koanf:"payload" json:"payload" yaml:"payload" toml:"payload" mapstructure:"payload"`
}

// Supported authentication scheme names for AuthConfig.Type.
const (
	AuthTypeNone   = "none"
	AuthTypeBearer = "bearer"
	AuthTypeBasic  = "basic"
	AuthTypeAPIKey = "apikey"
)

// AuthConfig describes how outgoing requests are authenticated.
type AuthConfig struct {
	// Type selects the authentication scheme: none, bearer, basic, or apikey.
	// Empty means none. Case-insensitive.
	Type string `koanf:"type" json:"type" yaml:"type" toml:"type" mapstructure:"type" validate:"omitempty,authtype"`

	// Token is the credential for the selected scheme. For basic auth it is
	// the base64-encoded user:password pair.
	Token string `koanf:"token" json:"token" yaml:"token" toml:"token" mapstructure:"token"`
}

// RetryConfig controls retries of failed requests.
type RetryConfig struct {
	// MaxRetries is the number of retries after the initial attempt.
	// Default: 3.
	MaxRetries int `koanf:"maxretries" json:"maxretries" yaml:"maxretries" toml:"maxretries" mapstructure:"maxretries" validate:"gte=0"`

	// InitialDelay is the backoff interval before the first retry.
	// Default: 2s.
	InitialDelay time.Duration `koanf:"initialdelay" json:"initialdelay" yaml:"initialdelay" toml:"initialdelay" mapstructure:"initialdelay" validate:"gte=0"`

	// Multiplier grows the interval between consecutive retries.
	// Default: 2.
	Multiplier float64 `koanf:"multiplier" json:"multiplier" yaml:"multiplier" toml:"multiplier" mapstructure:"multiplier" validate:"omitempty,gte=1"`

	// MaxDelay caps the computed backoff interval. Zero means uncapped.
	MaxDelay time.Duration `koanf:"maxdelay" json:"maxdelay" yaml:"maxdelay" toml:"maxdelay" mapstructure:"maxdelay" validate:"gte=0"`

	// Jitter randomizes each interval by the given factor (0 to 1).
	Jitter float64 `koanf:"jitter" json:"jitter" yaml:"jitter" toml:"jitter" mapstructure:"jitter" validate:"gte=0,lte=1"`
}

// RateConfig throttles outgoing requests. A zero limit disables throttling.
type RateConfig struct {
	// Limit is the sustained request rate in requests per second.
	Limit float64 `koanf:"limit" json:"limit" yaml:"limit" toml:"limit" mapstructure:"limit" validate:"gte=0"`

	// Burst is the number of requests allowed to exceed the rate momentarily.
	Burst int `koanf:"burst" json:"burst" yaml:"burst" toml:"burst" mapstructure:"burst" validate:"gte=0"`
}

// TraceConfig controls request correlation headers.
type TraceConfig struct {
	// Header names the request ID header.
	// Default: X-Request-ID.
	Header string `koanf:"header" json:"header" yaml:"header" toml:"header" mapstructure:"header"`

	// W3C enables traceparent/tracestate propagation.
	W3C bool `koanf:"w3c" json:"w3c" yaml:"w3c" toml:"w3c" mapstructure:"w3c"`
}

// PayloadConfig controls request and response payload logging.
type PayloadConfig struct {
	// Log enables debug logging of request/response bodies and headers.
	Log bool `koanf:"log" json:"log" yaml:"log" toml:"log" mapstructure:"log"`

	// MaxBytes truncates logged payloads.
	// Default: 1024.
	MaxBytes int `koanf:"maxbytes" json:"maxbytes" yaml:"maxbytes" toml:"maxbytes" mapstructure:"maxbytes" validate:"gte=0"`
}

// LogConfig holds logging preferences.
type LogConfig struct {
	Level  string `koanf:"level" json:"level" yaml:"level" toml:"level" mapstructure:"level" validate:"omitempty,oneof=trace debug info warn error fatal panic disabled"`
	Pretty bool   `koanf:"pretty" json:"pretty" yaml:"pretty" toml:"pretty" mapstructure:"pretty"`
}
