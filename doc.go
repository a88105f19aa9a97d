// Package apiclient provides a typed HTTP client for JSON APIs with
// authentication, retries with exponential backoff, rate limiting,
// and trace header propagation.
//
// Every request operation reports its outcome through a Response envelope
// instead of returning an error:
//   - Success is true only for 2xx responses whose body decoded cleanly.
//   - ErrorMessage classifies the failure; ErrorData carries the raw body.
//   - StatusCode is zero when the request never completed an exchange.
//
// Retries
//   - Controlled via Builder.WithRetryPolicy; the default schedule makes
//     three retries waiting 2s, 4s and 8s.
//   - Retries occur on:
//   - Transport errors (network failures, timeouts)
//   - HTTP 408, 429 and 503 responses
//   - Other statuses, including the remaining 5xx range, are not retried.
//   - Context cancellation stops the schedule immediately.
//
// Authentication
//   - bearer: Authorization: Bearer <token>
//   - basic: Authorization: Basic <base64-encoded pair>
//   - apikey: X-API-Key: <key>
//   - A request that already carries an Authorization header is never
//     overridden, regardless of the configured scheme.
//
// Notes
//   - Request bodies are re-sent by rebuilding the http.Request on each attempt.
//   - GET and DELETE requests never attach a payload.
package apiclient
