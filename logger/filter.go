package logger

import (
	"net/http"
	"net/url"
	"strings"
)

const (
	// DefaultMaskValue replaces sensitive values in log output
	DefaultMaskValue = "***"

	// defaultMaxDepth bounds recursion into nested field maps
	defaultMaxDepth = 8
)

// FilterConfig defines the configuration for sensitive data filtering
type FilterConfig struct {
	// SensitiveFields contains field names that should be masked in logs
	SensitiveFields []string
	// MaskValue is the value used to replace sensitive data (default: "***")
	MaskValue string
}

// DefaultFilterConfig returns a default configuration covering the header and
// field names an HTTP client is likely to log.
func DefaultFilterConfig() *FilterConfig {
	return &FilterConfig{
		SensitiveFields: []string{
			"password", "passwd", "pwd",
			"secret", "api_key", "apikey", "api-key",
			"token", "access_token", "refresh_token",
			"auth", "authorization",
			"credential", "credentials",
			"cookie", "set-cookie", "session",
		},
		MaskValue: DefaultMaskValue,
	}
}

// SensitiveDataFilter masks sensitive values before they reach log output
type SensitiveDataFilter struct {
	config *FilterConfig
}

// NewSensitiveDataFilter creates a new filter with the given configuration
func NewSensitiveDataFilter(config *FilterConfig) *SensitiveDataFilter {
	if config == nil {
		config = DefaultFilterConfig()
	}
	if config.MaskValue == "" {
		config.MaskValue = DefaultMaskValue
	}
	return &SensitiveDataFilter{config: config}
}

// FilterString filters sensitive data from string values
func (f *SensitiveDataFilter) FilterString(key, value string) string {
	if f.isSensitiveField(key) {
		return f.maskString(value)
	}
	return value
}

// FilterValue filters sensitive data from arbitrary field values. String
// values, header-shaped maps, and nested maps or slices of plain values are
// handled; other types pass through unchanged.
func (f *SensitiveDataFilter) FilterValue(key string, value any) any {
	return f.filterValue(key, value, defaultMaxDepth)
}

func (f *SensitiveDataFilter) filterValue(key string, value any, depth int) any {
	if value == nil {
		return nil
	}
	if depth <= 0 {
		return value
	}

	switch v := value.(type) {
	case string:
		return f.FilterString(key, v)
	case map[string]string:
		filtered := make(map[string]string, len(v))
		for k, val := range v {
			filtered[k] = f.FilterString(k, val)
		}
		return filtered
	case map[string]any:
		filtered := make(map[string]any, len(v))
		for k, val := range v {
			filtered[k] = f.filterValue(k, val, depth-1)
		}
		return filtered
	case http.Header:
		filtered := make(http.Header, len(v))
		for k, vals := range v {
			for _, val := range vals {
				filtered.Add(k, f.FilterString(k, val))
			}
		}
		return filtered
	case []string:
		if !f.isSensitiveField(key) {
			return v
		}
		filtered := make([]string, len(v))
		for i, val := range v {
			filtered[i] = f.maskString(val)
		}
		return filtered
	case []any:
		filtered := make([]any, len(v))
		for i, val := range v {
			filtered[i] = f.filterValue(key, val, depth-1)
		}
		return filtered
	default:
		if f.isSensitiveField(key) {
			return f.config.MaskValue
		}
		return value
	}
}

// FilterFields filters a map of fields for sensitive data
func (f *SensitiveDataFilter) FilterFields(fields map[string]any) map[string]any {
	filtered := make(map[string]any, len(fields))
	for key, value := range fields {
		filtered[key] = f.FilterValue(key, value)
	}
	return filtered
}

// isSensitiveField checks if a field name is considered sensitive
func (f *SensitiveDataFilter) isSensitiveField(fieldName string) bool {
	lowerFieldName := strings.ToLower(fieldName)
	for _, sensitiveField := range f.config.SensitiveFields {
		if strings.Contains(lowerFieldName, strings.ToLower(sensitiveField)) {
			return true
		}
	}
	return false
}

// maskString masks sensitive string values
func (f *SensitiveDataFilter) maskString(value string) string {
	if value == "" {
		return value
	}

	// URLs keep their structure with only the password portion masked
	if f.isURL(value) {
		return f.maskURL(value)
	}

	// No partial disclosure for other sensitive strings
	return f.config.MaskValue
}

// isURL checks if a string appears to be a URL
func (f *SensitiveDataFilter) isURL(value string) bool {
	return strings.HasPrefix(value, "http://") ||
		strings.HasPrefix(value, "https://")
}

// maskURL masks the password in URL userinfo while preserving structure
func (f *SensitiveDataFilter) maskURL(urlStr string) string {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		// If parsing fails, fall back to generic masking
		return f.config.MaskValue
	}

	if parsed.User != nil {
		if _, hasPassword := parsed.User.Password(); hasPassword {
			return f.buildMaskedURL(parsed, parsed.User.Username())
		}
	}

	// No password to mask, return original URL
	return urlStr
}

// buildMaskedURL constructs a URL with masked password while preserving structure
func (f *SensitiveDataFilter) buildMaskedURL(parsed *url.URL, username string) string {
	var b strings.Builder

	b.WriteString(parsed.Scheme)
	b.WriteString("://")

	b.WriteString(username)
	b.WriteByte(':')
	b.WriteString(f.config.MaskValue)
	b.WriteByte('@')
	b.WriteString(parsed.Host)

	// Preserve encoded path, query and fragment parts
	if p := parsed.EscapedPath(); p != "" {
		b.WriteString(p)
	}
	if q := parsed.RawQuery; q != "" {
		b.WriteByte('?')
		b.WriteString(q)
	}
	if frag := parsed.Fragment; frag != "" {
		b.WriteByte('#')
		b.WriteString(frag)
	}

	return b.String()
}
