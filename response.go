package apiclient

import (
	"bytes"
	"fmt"
	nethttp "net/http"
	"time"

	"github.com/gaborage/go-apiclient/codec"
)

// Response is the uniform envelope returned by every request operation.
// Failures of any kind are reported through it; operations never panic and
// never return a separate error value.
type Response[T any] struct {
	// Success is true only for 2xx responses whose body decoded cleanly.
	Success bool `json:"success"`

	// Data holds the decoded payload. It stays at the zero value on failure
	// and for blank response bodies.
	Data T `json:"data"`

	// ErrorMessage is a human-readable classification of the failure.
	ErrorMessage string `json:"errorMessage,omitempty"`

	// ErrorData carries the raw response body of a failed exchange for
	// diagnostics.
	ErrorData string `json:"errorData,omitempty"`

	// StatusCode is the HTTP status, or zero when the request never
	// completed an exchange with the server.
	StatusCode int `json:"statusCode"`

	// Headers are the response headers of the final attempt.
	Headers nethttp.Header `json:"-"`

	// Stats describes how the request was executed.
	Stats Stats `json:"-"`
}

// Stats contains request execution statistics.
type Stats struct {
	// Attempts is the number of transport attempts made, including retries.
	Attempts int
	// ElapsedTime is the total wall-clock duration of the exchange,
	// including backoff waits.
	ElapsedTime time.Duration
	// CallCount is the cumulative number of calls made through the client.
	CallCount int64
}

// IsClientError reports whether the response status is in the 4xx range.
func (r Response[T]) IsClientError() bool {
	return r.StatusCode >= 400 && r.StatusCode <= 499
}

// IsServerError reports whether the response status is in the 5xx range.
func (r Response[T]) IsServerError() bool {
	return r.StatusCode >= 500 && r.StatusCode <= 599
}

// IsSuccessStatus reports whether code is in the 2xx range.
func IsSuccessStatus(code int) bool {
	return code >= 200 && code <= 299
}

// statusMessages maps well-known error statuses to their fixed messages.
// Statuses outside the table fall back to "HTTP {code}".
var statusMessages = map[int]string{
	nethttp.StatusBadRequest:          "Bad Request",
	nethttp.StatusUnauthorized:        "Unauthorized",
	nethttp.StatusForbidden:           "Forbidden",
	nethttp.StatusNotFound:            "Not Found",
	nethttp.StatusInternalServerError: "Internal Server Error",
	nethttp.StatusBadGateway:          "Bad Gateway",
	nethttp.StatusServiceUnavailable:  "Service Unavailable",
}

func statusMessage(code int) string {
	if msg, ok := statusMessages[code]; ok {
		return msg
	}
	return fmt.Sprintf("HTTP %d", code)
}

// buildEnvelope converts the raw exchange outcome into the typed envelope.
func buildEnvelope[T any](c *Client, res *exchangeResult) Response[T] {
	resp := Response[T]{
		StatusCode: res.status,
		Headers:    res.headers,
		Stats:      res.stats,
	}

	if res.err != nil {
		resp.ErrorMessage = faultMessage(res.err)
		resp.ErrorData = string(res.body)
		return resp
	}

	if !IsSuccessStatus(res.status) {
		resp.ErrorMessage = statusMessage(res.status)
		resp.ErrorData = string(res.body)
		return resp
	}

	data, err := decodePayload[T](c.codec, res.body)
	if err != nil {
		resp.ErrorMessage = faultMessage(err)
		resp.ErrorData = string(res.body)
		return resp
	}

	resp.Success = true
	resp.Data = data
	return resp
}

// decodePayload decodes a success body into T. A blank body leaves the value
// at its default. String targets receive the body verbatim, bypassing the
// codec, so callers can capture non-JSON payloads.
func decodePayload[T any](co codec.Codec, body []byte) (T, error) {
	var data T

	if len(bytes.TrimSpace(body)) == 0 {
		return data, nil
	}

	if target, ok := any(&data).(*string); ok {
		*target = string(body)
		return data, nil
	}

	if err := co.Unmarshal(body, &data); err != nil {
		return data, err
	}
	return data, nil
}
