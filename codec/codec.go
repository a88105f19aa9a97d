// Package codec provides the payload encoding used for request and response
// bodies. The default codec speaks JSON with UTF-8 charset and can be swapped
// out per client for endpoints with stricter decoding requirements.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// jsonContentType is the MIME type advertised for encoded request bodies.
const jsonContentType = "application/json; charset=utf-8"

// Codec encodes request payloads and decodes response bodies.
type Codec interface {
	// Marshal encodes a value into its wire representation.
	Marshal(v any) ([]byte, error)
	// Unmarshal decodes a wire representation into the given value.
	Unmarshal(data []byte, v any) error
	// ContentType returns the MIME type sent with encoded payloads.
	ContentType() string
}

// JSONCodec implements Codec using encoding/json.
type JSONCodec struct {
	disallowUnknownFields bool
	escapeHTML            bool
}

// Option configures a JSONCodec.
type Option func(*JSONCodec)

// WithDisallowUnknownFields makes decoding fail when the payload carries
// fields the target type does not declare.
func WithDisallowUnknownFields() Option {
	return func(c *JSONCodec) {
		c.disallowUnknownFields = true
	}
}

// WithEscapeHTML controls whether <, > and & are escaped in encoded output.
// Escaping is on by default, matching encoding/json.
func WithEscapeHTML(escape bool) Option {
	return func(c *JSONCodec) {
		c.escapeHTML = escape
	}
}

// NewJSON creates a JSON codec with the given options.
func NewJSON(opts ...Option) *JSONCodec {
	c := &JSONCodec{escapeHTML: true}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Marshal encodes v as JSON.
func (c *JSONCodec) Marshal(v any) ([]byte, error) {
	if c.escapeHTML {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, &EncodeError{Err: err}
		}
		return data, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, &EncodeError{Err: err}
	}
	// Encoder appends a trailing newline that does not belong in a request body
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Unmarshal decodes JSON data into v.
func (c *JSONCodec) Unmarshal(data []byte, v any) error {
	if c.disallowUnknownFields {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(v); err != nil {
			return &DecodeError{Raw: data, Err: err}
		}
		if _, err := dec.Token(); err != io.EOF {
			return &DecodeError{Raw: data, Err: errors.New("unexpected data after top-level value")}
		}
		return nil
	}

	if err := json.Unmarshal(data, v); err != nil {
		return &DecodeError{Raw: data, Err: err}
	}
	return nil
}

// ContentType returns the JSON MIME type with UTF-8 charset.
func (c *JSONCodec) ContentType() string {
	return jsonContentType
}

// EncodeError wraps a failure to encode a request payload.
type EncodeError struct {
	Err error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode payload: %v", e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// DecodeError wraps a failure to decode a response body. Raw holds the
// undecoded body so callers can surface it alongside the error.
type DecodeError struct {
	Raw []byte
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode payload: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsEncodeError reports whether err is or wraps an EncodeError.
func IsEncodeError(err error) bool {
	var encodeErr *EncodeError
	return errors.As(err, &encodeErr)
}

// IsDecodeError reports whether err is or wraps a DecodeError.
func IsDecodeError(err error) bool {
	var decodeErr *DecodeError
	return errors.As(err, &decodeErr)
}
