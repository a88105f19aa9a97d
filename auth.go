package apiclient

import (
	"encoding/base64"
	nethttp "net/http"
	"strings"
)

// AuthType identifies the authentication scheme applied to outgoing requests.
type AuthType string

// Supported authentication schemes.
const (
	AuthNone   AuthType = "none"
	AuthBearer AuthType = "bearer"
	AuthBasic  AuthType = "basic"
	AuthAPIKey AuthType = "apikey"
)

// HeaderAPIKey is the header used by the apikey scheme.
const HeaderAPIKey = "X-API-Key"

// Auth is the credential attached to outgoing requests. Token carries the
// ready-to-send value for the scheme: the bearer token, the base64-encoded
// user:password pair, or the API key.
type Auth struct {
	Type  AuthType
	Token string
}

// ParseAuthType maps a scheme name to an AuthType, case-insensitively.
// Unknown names map to AuthNone.
func ParseAuthType(s string) AuthType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(AuthBearer):
		return AuthBearer
	case string(AuthBasic):
		return AuthBasic
	case string(AuthAPIKey):
		return AuthAPIKey
	default:
		return AuthNone
	}
}

// BearerAuth builds a bearer token credential.
func BearerAuth(token string) Auth {
	return Auth{Type: AuthBearer, Token: token}
}

// BasicAuth builds a basic credential, base64-encoding the user:password
// pair once up front.
func BasicAuth(username, password string) Auth {
	token := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	return Auth{Type: AuthBasic, Token: token}
}

// APIKeyAuth builds an API key credential sent via the X-API-Key header.
func APIKeyAuth(key string) Auth {
	return Auth{Type: AuthAPIKey, Token: key}
}

// apply sets the authentication header for the credential's scheme. A blank
// token or the none scheme leaves the headers untouched.
func (a Auth) apply(h nethttp.Header) {
	if a.Token == "" {
		return
	}
	switch a.Type {
	case AuthBearer:
		h.Set("Authorization", "Bearer "+a.Token)
	case AuthBasic:
		h.Set("Authorization", "Basic "+a.Token)
	case AuthAPIKey:
		h.Set(HeaderAPIKey, a.Token)
	}
}

// applyAuth injects the request credential. Per-request auth takes precedence
// over the client credential. An Authorization header already present on the
// request means it is authenticated some other way; the credential is never
// allowed to override it.
func (c *Client) applyAuth(h nethttp.Header, override *Auth) {
	auth := c.config.Auth
	if override != nil {
		auth = *override
	}

	if auth.Type == "" || auth.Type == AuthNone || auth.Token == "" {
		return
	}
	if h.Get("Authorization") != "" {
		return
	}

	auth.apply(h)
}
