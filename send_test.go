package apiclient

import (
	"context"
	"io"
	"net"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/gaborage/go-apiclient/retry"
	"github.com/gaborage/go-apiclient/trace"
)

// Test constants to avoid string duplication
const (
	testContentTypeHdr = "Content-Type"
	testJSONType       = "application/json; charset=utf-8"
	testAuthHdr        = "Authorization"
	testOKBody         = `{"id": 1, "name": "ada"}`
)

// fastRetry returns a retry policy that keeps the standard schedule shape
// but waits only a millisecond between attempts.
func fastRetry(maxRetries int) retry.Policy {
	return retry.Policy{
		MaxRetries: maxRetries,
		Backoff:    retry.FixedBackoff{Interval: time.Millisecond},
	}
}

func newIPv4TestServer(t *testing.T, handler nethttp.Handler) *httptest.Server {
	t.Helper()
	lc := net.ListenConfig{}
	listener, err := lc.Listen(context.Background(), "tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping test: unable to bind IPv4 listener: %v", err)
		return &httptest.Server{}
	}

	server := &httptest.Server{
		Listener: listener,
		Config:   &nethttp.Server{Handler: handler},
	}
	server.Start()
	return server
}

func TestSendHTTPMethods(t *testing.T) {
	log := createTestLogger()

	tests := []struct {
		name    string
		send    func(ctx context.Context, c *Client, url string) Response[testUser]
		method  string
		hasBody bool
	}{
		{
			name: "GET",
			send: func(ctx context.Context, c *Client, url string) Response[testUser] {
				return Get[testUser](ctx, c, url)
			},
			method: nethttp.MethodGet,
		},
		{
			name: "POST",
			send: func(ctx context.Context, c *Client, url string) Response[testUser] {
				return Post[testUser](ctx, c, url, testUser{ID: 1, Name: "ada"})
			},
			method:  nethttp.MethodPost,
			hasBody: true,
		},
		{
			name: "PUT",
			send: func(ctx context.Context, c *Client, url string) Response[testUser] {
				return Put[testUser](ctx, c, url, testUser{ID: 1, Name: "ada"})
			},
			method:  nethttp.MethodPut,
			hasBody: true,
		},
		{
			name: "PATCH",
			send: func(ctx context.Context, c *Client, url string) Response[testUser] {
				return Patch[testUser](ctx, c, url, testUser{Name: "ada"})
			},
			method:  nethttp.MethodPatch,
			hasBody: true,
		},
		{
			name: "DELETE",
			send: func(ctx context.Context, c *Client, url string) Response[testUser] {
				return Delete[testUser](ctx, c, url)
			},
			method: nethttp.MethodDelete,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newIPv4TestServer(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
				assert.Equal(t, tt.method, r.Method)

				body, err := io.ReadAll(r.Body)
				assert.NoError(t, err)
				if tt.hasBody {
					assert.NotEmpty(t, body)
					assert.Equal(t, testJSONType, r.Header.Get(testContentTypeHdr))
				} else {
					assert.Empty(t, body)
					assert.Empty(t, r.Header.Get(testContentTypeHdr))
				}

				w.Header().Set(testContentTypeHdr, "application/json")
				w.Write([]byte(testOKBody))
			}))
			defer server.Close()

			c := New(log)
			defer c.Close()

			resp := tt.send(context.Background(), c, server.URL)
			require.True(t, resp.Success, "unexpected failure: %s", resp.ErrorMessage)
			assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
			assert.Equal(t, testUser{ID: 1, Name: "ada"}, resp.Data)
			assert.Equal(t, 1, resp.Stats.Attempts)
			assert.Greater(t, resp.Stats.ElapsedTime, time.Duration(0))
		})
	}
}

func TestSendEncodesPayload(t *testing.T) {
	var received []byte
	server := newIPv4TestServer(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		received, _ = io.ReadAll(r.Body)
		w.WriteHeader(nethttp.StatusCreated)
		w.Write([]byte(`{"id": 9, "name": "new"}`))
	}))
	defer server.Close()

	c := New(createTestLogger())
	defer c.Close()

	resp := Post[testUser](context.Background(), c, server.URL, map[string]any{"name": "new"})
	require.True(t, resp.Success)
	assert.Equal(t, nethttp.StatusCreated, resp.StatusCode)
	assert.JSONEq(t, `{"name": "new"}`, string(received))
	assert.Equal(t, testUser{ID: 9, Name: "new"}, resp.Data)
}

func TestSendIgnoresPayloadForGet(t *testing.T) {
	server := newIPv4TestServer(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Empty(t, body)
		w.Write([]byte("{}"))
	}))
	defer server.Close()

	c := New(createTestLogger())
	defer c.Close()

	resp := Send[testUser](context.Background(), c, nethttp.MethodGet, server.URL, map[string]string{"ignored": "yes"})
	assert.True(t, resp.Success)
}

func TestSendStringTarget(t *testing.T) {
	server := newIPv4TestServer(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		w.Header().Set(testContentTypeHdr, "text/plain")
		w.Write([]byte("pong"))
	}))
	defer server.Close()

	c := New(createTestLogger())
	defer c.Close()

	resp := Get[string](context.Background(), c, server.URL)
	require.True(t, resp.Success)
	assert.Equal(t, "pong", resp.Data)
}

func TestSendEmptyResponseBody(t *testing.T) {
	server := newIPv4TestServer(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		w.WriteHeader(nethttp.StatusNoContent)
	}))
	defer server.Close()

	c := New(createTestLogger())
	defer c.Close()

	resp := Delete[testUser](context.Background(), c, server.URL)
	require.True(t, resp.Success)
	assert.Equal(t, nethttp.StatusNoContent, resp.StatusCode)
	assert.Zero(t, resp.Data)
}

func TestSendErrorStatuses(t *testing.T) {
	tests := []struct {
		status          int
		expectedMessage string
		clientError     bool
		serverError     bool
	}{
		{nethttp.StatusBadRequest, "Bad Request", true, false},
		{nethttp.StatusUnauthorized, "Unauthorized", true, false},
		{nethttp.StatusForbidden, "Forbidden", true, false},
		{nethttp.StatusNotFound, "Not Found", true, false},
		{nethttp.StatusTeapot, "HTTP 418", true, false},
		{nethttp.StatusInternalServerError, "Internal Server Error", false, true},
		{nethttp.StatusBadGateway, "Bad Gateway", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.expectedMessage, func(t *testing.T) {
			server := newIPv4TestServer(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, _ *nethttp.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"error": "details"}`))
			}))
			defer server.Close()

			c := New(createTestLogger())
			defer c.Close()

			resp := Get[testUser](context.Background(), c, server.URL)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.expectedMessage, resp.ErrorMessage)
			assert.Equal(t, `{"error": "details"}`, resp.ErrorData)
			assert.Equal(t, tt.clientError, resp.IsClientError())
			assert.Equal(t, tt.serverError, resp.IsServerError())
			assert.Zero(t, resp.Data)
		})
	}
}

func TestSendDecodeFailureKeepsStatus(t *testing.T) {
	server := newIPv4TestServer(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		w.Header().Set(testContentTypeHdr, "text/html")
		w.Write([]byte("<html>login page</html>"))
	}))
	defer server.Close()

	c := New(createTestLogger())
	defer c.Close()

	resp := Get[testUser](context.Background(), c, server.URL)
	assert.False(t, resp.Success)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.ErrorMessage, "JSON processing error:")
	assert.Equal(t, "<html>login page</html>", resp.ErrorData)
}

func TestSendMarshalFailure(t *testing.T) {
	c := New(createTestLogger())
	defer c.Close()

	resp := Post[testUser](context.Background(), c, "http://unreachable.test", make(chan int))
	assert.False(t, resp.Success)
	assert.Contains(t, resp.ErrorMessage, "JSON processing error:")
	assert.Zero(t, resp.StatusCode)
	assert.Zero(t, resp.Stats.Attempts) // failed before reaching the transport
}

func TestSendRetries(t *testing.T) {
	log := createTestLogger()

	t.Run("retries retryable statuses until success", func(t *testing.T) {
		var calls atomic.Int32
		server := newIPv4TestServer(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, _ *nethttp.Request) {
			if calls.Add(1) <= 2 {
				w.WriteHeader(nethttp.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(nethttp.StatusCreated)
			w.Write([]byte(testOKBody))
		}))
		defer server.Close()

		c := NewBuilder(log).WithRetryPolicy(fastRetry(3)).Build()
		defer c.Close()

		resp := Post[testUser](context.Background(), c, server.URL, testUser{Name: "ada"})
		require.True(t, resp.Success)
		assert.Equal(t, nethttp.StatusCreated, resp.StatusCode)
		assert.Equal(t, 3, resp.Stats.Attempts)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("retries 429 and 408", func(t *testing.T) {
		for _, status := range []int{nethttp.StatusTooManyRequests, nethttp.StatusRequestTimeout} {
			var calls atomic.Int32
			server := newIPv4TestServer(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, _ *nethttp.Request) {
				if calls.Add(1) == 1 {
					w.WriteHeader(status)
					return
				}
				w.Write([]byte(testOKBody))
			}))

			c := NewBuilder(log).WithRetryPolicy(fastRetry(3)).Build()

			resp := Get[testUser](context.Background(), c, server.URL)
			assert.True(t, resp.Success, "status %d should be retried", status)
			assert.Equal(t, 2, resp.Stats.Attempts)

			c.Close()
			server.Close()
		}
	})

	t.Run("does not retry other statuses", func(t *testing.T) {
		for _, status := range []int{
			nethttp.StatusBadRequest,
			nethttp.StatusNotFound,
			nethttp.StatusInternalServerError,
			nethttp.StatusBadGateway,
		} {
			var calls atomic.Int32
			server := newIPv4TestServer(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, _ *nethttp.Request) {
				calls.Add(1)
				w.WriteHeader(status)
			}))

			c := NewBuilder(log).WithRetryPolicy(fastRetry(3)).Build()

			resp := Get[testUser](context.Background(), c, server.URL)
			assert.False(t, resp.Success)
			assert.Equal(t, status, resp.StatusCode)
			assert.Equal(t, int32(1), calls.Load(), "status %d should not be retried", status)

			c.Close()
			server.Close()
		}
	})

	t.Run("exhausted retries return last response", func(t *testing.T) {
		var calls atomic.Int32
		server := newIPv4TestServer(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, _ *nethttp.Request) {
			calls.Add(1)
			w.WriteHeader(nethttp.StatusServiceUnavailable)
			w.Write([]byte(`{"error": "overloaded"}`))
		}))
		defer server.Close()

		c := NewBuilder(log).WithRetryPolicy(fastRetry(2)).Build()
		defer c.Close()

		resp := Get[testUser](context.Background(), c, server.URL)
		assert.False(t, resp.Success)
		assert.Equal(t, nethttp.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, "Service Unavailable", resp.ErrorMessage)
		assert.Equal(t, `{"error": "overloaded"}`, resp.ErrorData)
		assert.Equal(t, 3, resp.Stats.Attempts) // initial + two retries
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("retries transport errors", func(t *testing.T) {
		server := newIPv4TestServer(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, _ *nethttp.Request) {
			w.WriteHeader(nethttp.StatusOK)
		}))
		url := server.URL
		server.Close() // every connection attempt now fails

		c := NewBuilder(log).WithRetryPolicy(fastRetry(1)).Build()
		defer c.Close()

		resp := Get[testUser](context.Background(), c, url)
		assert.False(t, resp.Success)
		assert.Contains(t, resp.ErrorMessage, "Network error:")
		assert.Zero(t, resp.StatusCode)
		assert.Equal(t, 2, resp.Stats.Attempts)
	})

	t.Run("disabled retries stop after first attempt", func(t *testing.T) {
		var calls atomic.Int32
		server := newIPv4TestServer(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, _ *nethttp.Request) {
			calls.Add(1)
			w.WriteHeader(nethttp.StatusServiceUnavailable)
		}))
		defer server.Close()

		c := NewBuilder(log).WithoutRetry().Build()
		defer c.Close()

		resp := Get[testUser](context.Background(), c, server.URL)
		assert.False(t, resp.Success)
		assert.Equal(t, int32(1), calls.Load())
		assert.Equal(t, 1, resp.Stats.Attempts)
	})

	t.Run("request body is resent on each attempt", func(t *testing.T) {
		var calls atomic.Int32
		bodies := make([]string, 0, 2)
		server := newIPv4TestServer(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
			body, _ := io.ReadAll(r.Body)
			bodies = append(bodies, string(body))
			if calls.Add(1) == 1 {
				w.WriteHeader(nethttp.StatusServiceUnavailable)
				return
			}
			w.Write([]byte(testOKBody))
		}))
		defer server.Close()

		c := NewBuilder(log).WithRetryPolicy(fastRetry(1)).Build()
		defer c.Close()

		resp := Post[testUser](context.Background(), c, server.URL, testUser{Name: "ada"})
		require.True(t, resp.Success)
		require.Len(t, bodies, 2)
		assert.Equal(t, bodies[0], bodies[1])
		assert.NotEmpty(t, bodies[0])
	})
}

func TestSendCancellation(t *testing.T) {
	log := createTestLogger()

	t.Run("cancelled before the call", func(t *testing.T) {
		server := newIPv4TestServer(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, _ *nethttp.Request) {
			w.WriteHeader(nethttp.StatusOK)
		}))
		defer server.Close()

		c := New(log)
		defer c.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		resp := Get[testUser](ctx, c, server.URL)
		assert.False(t, resp.Success)
		assert.Equal(t, "Request was cancelled", resp.ErrorMessage)
		assert.Zero(t, resp.StatusCode)
	})

	t.Run("cancelled during backoff", func(t *testing.T) {
		server := newIPv4TestServer(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, _ *nethttp.Request) {
			w.WriteHeader(nethttp.StatusServiceUnavailable)
		}))
		defer server.Close()

		c := NewBuilder(log).
			WithRetryPolicy(retry.Policy{
				MaxRetries: 3,
				Backoff:    retry.FixedBackoff{Interval: time.Second},
			}).
			Build()
		defer c.Close()

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(50 * time.Millisecond)
			cancel()
		}()

		start := time.Now()
		resp := Get[testUser](ctx, c, server.URL)
		assert.False(t, resp.Success)
		assert.Equal(t, "Request was cancelled", resp.ErrorMessage)
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("timeout maps to request timeout", func(t *testing.T) {
		server := newIPv4TestServer(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, _ *nethttp.Request) {
			time.Sleep(200 * time.Millisecond)
			w.WriteHeader(nethttp.StatusOK)
		}))
		defer server.Close()

		c := NewBuilder(log).
			WithTimeout(20 * time.Millisecond).
			WithoutRetry().
			Build()
		defer c.Close()

		resp := Get[testUser](context.Background(), c, server.URL)
		assert.False(t, resp.Success)
		assert.Equal(t, "Request timeout", resp.ErrorMessage)
		assert.Zero(t, resp.StatusCode)
	})
}

func TestSendHeaders(t *testing.T) {
	log := createTestLogger()

	t.Run("default and per-request headers", func(t *testing.T) {
		server := newIPv4TestServer(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
			assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
			assert.Equal(t, "override", r.Header.Get("X-Team"))
			assert.Equal(t, "only-here", r.Header.Get("X-One-Shot"))
			w.Write([]byte("{}"))
		}))
		defer server.Close()

		c := NewBuilder(log).
			WithDefaultHeader("User-Agent", "test-agent").
			WithDefaultHeader("X-Team", "default").
			Build()
		defer c.Close()

		resp := Get[map[string]any](context.Background(), c, server.URL,
			WithHeader("X-Team", "override"),
			WithHeaders(map[string]string{"X-One-Shot": "only-here"}),
		)
		require.True(t, resp.Success)
	})

	t.Run("per-request headers do not leak across calls", func(t *testing.T) {
		var second atomic.Bool
		server := newIPv4TestServer(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
			if second.Load() {
				assert.Empty(t, r.Header.Get("X-One-Shot"))
			}
			w.Write([]byte("{}"))
		}))
		defer server.Close()

		c := New(log)
		defer c.Close()

		Get[map[string]any](context.Background(), c, server.URL, WithHeader("X-One-Shot", "once"))
		second.Store(true)
		resp := Get[map[string]any](context.Background(), c, server.URL)
		require.True(t, resp.Success)
	})

	t.Run("accept defaults to JSON and can be overridden", func(t *testing.T) {
		var accepts []string
		server := newIPv4TestServer(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
			accepts = append(accepts, r.Header.Get("Accept"))
			w.Write([]byte("{}"))
		}))
		defer server.Close()

		c := New(log)
		defer c.Close()

		Get[map[string]any](context.Background(), c, server.URL)
		Get[map[string]any](context.Background(), c, server.URL, WithHeader("Accept", "text/csv"))

		require.Len(t, accepts, 2)
		assert.Equal(t, "application/json", accepts[0])
		assert.Equal(t, "text/csv", accepts[1])
	})
}

func TestSendAuth(t *testing.T) {
	log := createTestLogger()

	captureAuth := func(t *testing.T) (*httptest.Server, *nethttp.Header) {
		t.Helper()
		var captured nethttp.Header
		server := newIPv4TestServer(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
			captured = r.Header.Clone()
			w.Write([]byte("{}"))
		}))
		return server, &captured
	}

	t.Run("bearer", func(t *testing.T) {
		server, headers := captureAuth(t)
		defer server.Close()

		c := NewBuilder(log).WithBearerToken("tok-1").Build()
		defer c.Close()

		require.True(t, Get[map[string]any](context.Background(), c, server.URL).Success)
		assert.Equal(t, "Bearer tok-1", headers.Get(testAuthHdr))
	})

	t.Run("basic", func(t *testing.T) {
		var user, pass string
		var ok bool
		server := newIPv4TestServer(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
			user, pass, ok = r.BasicAuth()
			w.Write([]byte("{}"))
		}))
		defer server.Close()

		c := NewBuilder(log).WithBasicAuth("svc", "secret").Build()
		defer c.Close()

		require.True(t, Get[map[string]any](context.Background(), c, server.URL).Success)
		assert.True(t, ok)
		assert.Equal(t, "svc", user)
		assert.Equal(t, "secret", pass)
	})

	t.Run("apikey", func(t *testing.T) {
		server, headers := captureAuth(t)
		defer server.Close()

		c := NewBuilder(log).WithAPIKey("key-9").Build()
		defer c.Close()

		require.True(t, Get[map[string]any](context.Background(), c, server.URL).Success)
		assert.Equal(t, "key-9", headers.Get(HeaderAPIKey))
		assert.Empty(t, headers.Get(testAuthHdr))
	})

	t.Run("none sends no credential", func(t *testing.T) {
		server, headers := captureAuth(t)
		defer server.Close()

		c := New(log)
		defer c.Close()

		require.True(t, Get[map[string]any](context.Background(), c, server.URL).Success)
		assert.Empty(t, headers.Get(testAuthHdr))
		assert.Empty(t, headers.Get(HeaderAPIKey))
	})

	t.Run("per-request auth overrides client auth", func(t *testing.T) {
		server, headers := captureAuth(t)
		defer server.Close()

		c := NewBuilder(log).WithBearerToken("client-tok").Build()
		defer c.Close()

		resp := Get[map[string]any](context.Background(), c, server.URL, WithRequestAuth(APIKeyAuth("req-key")))
		require.True(t, resp.Success)
		assert.Empty(t, headers.Get(testAuthHdr))
		assert.Equal(t, "req-key", headers.Get(HeaderAPIKey))
	})

	t.Run("explicit Authorization header is never overridden", func(t *testing.T) {
		server, headers := captureAuth(t)
		defer server.Close()

		c := NewBuilder(log).WithBearerToken("client-tok").Build()
		defer c.Close()

		resp := Get[map[string]any](context.Background(), c, server.URL, WithHeader(testAuthHdr, "Digest external"))
		require.True(t, resp.Success)
		assert.Equal(t, "Digest external", headers.Get(testAuthHdr))
	})

	t.Run("explicit Authorization header suppresses apikey", func(t *testing.T) {
		server, headers := captureAuth(t)
		defer server.Close()

		c := NewBuilder(log).WithAPIKey("key-9").Build()
		defer c.Close()

		resp := Get[map[string]any](context.Background(), c, server.URL, WithHeader(testAuthHdr, "Bearer external"))
		require.True(t, resp.Success)
		assert.Equal(t, "Bearer external", headers.Get(testAuthHdr))
		assert.Empty(t, headers.Get(HeaderAPIKey))
	})
}

func TestSendTraceHeaders(t *testing.T) {
	log := createTestLogger()

	t.Run("adds request ID when none present", func(t *testing.T) {
		var captured nethttp.Header
		server := newIPv4TestServer(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
			captured = r.Header.Clone()
			w.Write([]byte("{}"))
		}))
		defer server.Close()

		c := New(log)
		defer c.Close()

		require.True(t, Get[map[string]any](context.Background(), c, server.URL).Success)
		assert.Len(t, captured.Get(HeaderRequestID), 36) // UUID format
	})

	t.Run("propagates request ID from context", func(t *testing.T) {
		var captured nethttp.Header
		server := newIPv4TestServer(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
			captured = r.Header.Clone()
			w.Write([]byte("{}"))
		}))
		defer server.Close()

		c := New(log)
		defer c.Close()

		ctx := trace.WithRequestID(context.Background(), "ctx-trace-1")
		require.True(t, Get[map[string]any](ctx, c, server.URL).Success)
		assert.Equal(t, "ctx-trace-1", captured.Get(HeaderRequestID))
	})

	t.Run("explicit header takes precedence over context", func(t *testing.T) {
		var captured nethttp.Header
		server := newIPv4TestServer(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
			captured = r.Header.Clone()
			w.Write([]byte("{}"))
		}))
		defer server.Close()

		c := New(log)
		defer c.Close()

		ctx := trace.WithRequestID(context.Background(), "ctx-trace-2")
		resp := Get[map[string]any](ctx, c, server.URL, WithHeader(HeaderRequestID, "header-trace"))
		require.True(t, resp.Success)
		assert.Equal(t, "header-trace", captured.Get(HeaderRequestID))
	})

	t.Run("custom trace header name", func(t *testing.T) {
		var captured nethttp.Header
		server := newIPv4TestServer(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
			captured = r.Header.Clone()
			w.Write([]byte("{}"))
		}))
		defer server.Close()

		c := NewBuilder(log).WithTraceIDHeader("X-Correlation-ID").Build()
		defer c.Close()

		ctx := trace.WithRequestID(context.Background(), "corr-7")
		require.True(t, Get[map[string]any](ctx, c, server.URL).Success)
		assert.Equal(t, "corr-7", captured.Get("X-Correlation-ID"))
		assert.Empty(t, captured.Get(HeaderRequestID))
	})

	t.Run("adds W3C traceparent when enabled", func(t *testing.T) {
		var captured nethttp.Header
		server := newIPv4TestServer(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
			captured = r.Header.Clone()
			w.Write([]byte("{}"))
		}))
		defer server.Close()

		c := New(log)
		defer c.Close()

		require.True(t, Get[map[string]any](context.Background(), c, server.URL).Success)

		tp := captured.Get(HeaderTraceParent)
		require.NotEmpty(t, tp)
		parts := strings.Split(tp, "-")
		require.Len(t, parts, 4)
		assert.Len(t, parts[1], 32)
		assert.Len(t, parts[2], 16)
	})

	t.Run("propagates traceparent and tracestate from context", func(t *testing.T) {
		var captured nethttp.Header
		server := newIPv4TestServer(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
			captured = r.Header.Clone()
			w.Write([]byte("{}"))
		}))
		defer server.Close()

		c := New(log)
		defer c.Close()

		ctx := trace.WithTraceParent(context.Background(), "00-0123456789abcdef0123456789abcdef-0123456789abcdef-01")
		ctx = trace.WithTraceState(ctx, "vendor=k:v")

		require.True(t, Get[map[string]any](ctx, c, server.URL).Success)
		assert.Equal(t, "00-0123456789abcdef0123456789abcdef-0123456789abcdef-01", captured.Get(HeaderTraceParent))
		assert.Equal(t, "vendor=k:v", captured.Get(HeaderTraceState))
	})

	t.Run("W3C headers absent when disabled", func(t *testing.T) {
		var captured nethttp.Header
		server := newIPv4TestServer(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
			captured = r.Header.Clone()
			w.Write([]byte("{}"))
		}))
		defer server.Close()

		c := NewBuilder(log).WithW3CTrace(false).Build()
		defer c.Close()

		require.True(t, Get[map[string]any](context.Background(), c, server.URL).Success)
		assert.Empty(t, captured.Get(HeaderTraceParent))
	})
}

func TestSendBaseURL(t *testing.T) {
	var path string
	server := newIPv4TestServer(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		path = r.URL.Path
		w.Write([]byte("{}"))
	}))
	defer server.Close()

	c := NewBuilder(createTestLogger()).WithBaseURL(server.URL).Build()
	defer c.Close()

	resp := Get[map[string]any](context.Background(), c, "/users/42")
	require.True(t, resp.Success)
	assert.Equal(t, "/users/42", path)
}

func TestSendRelativeURLWithoutBase(t *testing.T) {
	c := New(createTestLogger())
	defer c.Close()

	resp := Get[testUser](context.Background(), c, "/users")
	assert.False(t, resp.Success)
	assert.Contains(t, resp.ErrorMessage, "Unexpected error:")
	assert.Zero(t, resp.StatusCode)
}

func TestSendNilClient(t *testing.T) {
	resp := Get[testUser](context.Background(), nil, "http://api.test")
	assert.False(t, resp.Success)
	assert.Equal(t, "Unexpected error: client is nil", resp.ErrorMessage)
}

func TestSendCallCount(t *testing.T) {
	server := newIPv4TestServer(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		w.Write([]byte("{}"))
	}))
	defer server.Close()

	c := New(createTestLogger())
	defer c.Close()

	first := Get[map[string]any](context.Background(), c, server.URL)
	second := Get[map[string]any](context.Background(), c, server.URL)

	assert.Equal(t, int64(1), first.Stats.CallCount)
	assert.Equal(t, int64(2), second.Stats.CallCount)
}

func TestSendRateLimit(t *testing.T) {
	server := newIPv4TestServer(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		w.Write([]byte("{}"))
	}))
	defer server.Close()

	c := NewBuilder(createTestLogger()).WithRateLimit(50, 1).Build()
	defer c.Close()

	start := time.Now()
	for range 3 {
		require.True(t, Get[map[string]any](context.Background(), c, server.URL).Success)
	}

	// At 50 rps with burst 1 the second and third calls each wait ~20ms
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestSendConcurrent(t *testing.T) {
	server := newIPv4TestServer(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		w.Write([]byte(testOKBody))
	}))
	defer server.Close()

	c := New(createTestLogger())
	defer c.Close()

	var g errgroup.Group
	for range 8 {
		g.Go(func() error {
			resp := Get[testUser](context.Background(), c, server.URL)
			if !resp.Success {
				return assert.AnError
			}
			return nil
		})
	}

	require.NoError(t, g.Wait())
	assert.Equal(t, int64(8), atomic.LoadInt64(&c.callCount))
}
