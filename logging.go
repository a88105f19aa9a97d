package apiclient

import (
	nethttp "net/http"
	"strconv"
	"time"

	"github.com/gaborage/go-apiclient/logger"
)

// Log messages emitted by the request pipeline.
const (
	msgRequest  = "API client request"
	msgResponse = "API client response"
	msgRetry    = "API client retry"
)

// logRequest logs the outgoing request. With payload logging enabled a
// second, debug-level event carries the headers and a bounded body preview.
func (c *Client) logRequest(log logger.Logger, req *nethttp.Request, body []byte, requestID string) {
	event := log.Info().
		Str("direction", "outbound").
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Str("request_id", requestID)

	if len(req.Header) > 0 {
		event.Int("header_count", len(req.Header))
	}
	if len(body) > 0 {
		event.Int("body_size", len(body))
	}
	event.Msg(msgRequest)

	if !c.config.LogPayloads {
		return
	}

	debug := log.Debug().
		Str("direction", "outbound").
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Str("request_id", requestID).
		Interface("headers", req.Header)
	c.attachPayload(debug, body)
	debug.Msg(msgRequest)
}

// logResponse logs the terminal response of an exchange.
func (c *Client) logResponse(log logger.Logger, res *exchangeResult, requestID string) {
	event := log.Info().
		Str("direction", "inbound").
		Int("status", res.status).
		Dur("elapsed", res.stats.ElapsedTime).
		Int64("call_count", res.stats.CallCount).
		Str("request_id", requestID)

	if len(res.body) > 0 {
		event.Int("body_size", len(res.body))
	}
	event.Msg(msgResponse)

	if !c.config.LogPayloads {
		return
	}

	debug := log.Debug().
		Str("direction", "inbound").
		Int("status", res.status).
		Str("request_id", requestID).
		Interface("headers", res.headers)
	c.attachPayload(debug, res.body)
	debug.Msg(msgResponse)
}

// logRetry records a scheduled retry before its backoff wait.
func (c *Client) logRetry(log logger.Logger, method, url, requestID string, attempt int, delay time.Duration, reason string) {
	log.Debug().
		Str("direction", "outbound").
		Str("method", method).
		Str("url", url).
		Str("request_id", requestID).
		Int("attempt", attempt).
		Dur("delay", delay).
		Str("reason", reason).
		Msg(msgRetry)
}

// attachPayload adds body size and a bounded preview to a debug event.
func (c *Client) attachPayload(event logger.LogEvent, body []byte) {
	limit := c.config.MaxPayloadLogBytes
	if limit <= 0 {
		limit = DefaultMaxPayloadLogBytes
	}

	preview := body
	truncated := false
	if len(preview) > limit {
		preview = preview[:limit]
		truncated = true
	}

	event.Int("body_size", len(body)).
		Str("body_truncated", strconv.FormatBool(truncated)).
		Bytes("body_preview", preview)
}
