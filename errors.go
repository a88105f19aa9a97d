package apiclient

import (
	"context"
	"errors"
	"io"
	"net"
	neturl "net/url"

	"github.com/gaborage/go-apiclient/codec"
)

// faultKind classifies a pipeline failure for message rendering.
type faultKind int

const (
	faultUnexpected faultKind = iota
	faultCancelled
	faultTimeout
	faultNetwork
	faultCodec
)

// classifyFault maps an error from any pipeline stage to its fault kind.
// Codec failures win over transport classification because a decode error
// may wrap I/O errors from the reader. Cancellation and timeout are checked
// before generic network errors since the transport wraps context errors
// inside *url.Error.
func classifyFault(err error) faultKind {
	switch {
	case codec.IsEncodeError(err) || codec.IsDecodeError(err):
		return faultCodec
	case errors.Is(err, context.Canceled):
		return faultCancelled
	case isTimeout(err):
		return faultTimeout
	case isNetworkError(err):
		return faultNetwork
	default:
		return faultUnexpected
	}
}

// faultMessage renders the human-readable message for a pipeline failure.
func faultMessage(err error) string {
	switch classifyFault(err) {
	case faultCodec:
		return "JSON processing error: " + codecDetail(err)
	case faultCancelled:
		return "Request was cancelled"
	case faultTimeout:
		return "Request timeout"
	case faultNetwork:
		return "Network error: " + networkDetail(err)
	default:
		return "Unexpected error: " + err.Error()
	}
}

// isTimeout reports whether err represents a deadline being exceeded,
// either from the context or from the transport.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// isNetworkError reports whether err originates from the transport layer.
func isNetworkError(err error) bool {
	var urlErr *neturl.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF)
}

// codecDetail strips the codec wrapper so the message carries the underlying
// encoding error.
func codecDetail(err error) string {
	var encodeErr *codec.EncodeError
	if errors.As(err, &encodeErr) && encodeErr.Err != nil {
		return encodeErr.Err.Error()
	}
	var decodeErr *codec.DecodeError
	if errors.As(err, &decodeErr) && decodeErr.Err != nil {
		return decodeErr.Err.Error()
	}
	return err.Error()
}

// networkDetail strips the "METHOD url:" prefix *url.Error adds so log and
// envelope messages are not dominated by the request line.
func networkDetail(err error) string {
	var urlErr *neturl.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		return urlErr.Err.Error()
	}
	return err.Error()
}
