package supabase

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tweestoelen/internal/domain/photo"
	"tweestoelen/internal/pkg/retry"
)

var fastRetry = retry.Policy{Attempts: 3, Backoff: time.Millisecond}

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(Config{URL: srv.URL + "/", Key: "anon", Retry: fastRetry, Timeout: time.Second})
	require.NoError(t, err)
	return c
}

// flakyTransport fails the first n round trips before delegating. err
// defaults to a reset connection.
type flakyTransport struct {
	failures int32
	err      error
	calls    atomic.Int32
	next     http.RoundTripper
}

func (f *flakyTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	if f.calls.Add(1) <= f.failures {
		if f.err != nil {
			return nil, f.err
		}
		return nil, errors.New("connection reset by peer")
	}
	return f.next.RoundTrip(r)
}

var errRefused = &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}

func TestNew_RetryPolicy(t *testing.T) {
	c, err := New(Config{URL: "https://x.supabase.co", Key: "k"})
	require.NoError(t, err)
	assert.Equal(t, retry.DefaultPolicy, c.retry)

	custom := retry.Policy{Backoff: 50 * time.Millisecond, MaxBackoff: time.Second}
	c, err = New(Config{URL: "https://x.supabase.co", Key: "k", Retry: custom})
	require.NoError(t, err)
	assert.Equal(t, retry.Policy{Attempts: 1, Backoff: 50 * time.Millisecond, MaxBackoff: time.Second}, c.retry)
}

func TestNew_MissingConfigIsUnavailable(t *testing.T) {
	_, err := New(Config{URL: "https://x.supabase.co"})
	assert.ErrorIs(t, err, photo.ErrBackendUnavailable)
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = New(Config{Key: "k"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestClient_SendsCredentials(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "anon", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer anon", r.Header.Get("Authorization"))
		w.Write([]byte(`[]`))
	}))

	var out []photoRow
	require.NoError(t, c.do(context.Background(), request{method: http.MethodGet, path: "/rest/v1/photos"}, &out))
	assert.Empty(t, out)
}

func TestClient_RetriesTransportErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	tr := &flakyTransport{failures: 2, next: http.DefaultTransport}
	c, err := New(Config{URL: srv.URL, Key: "k", Retry: fastRetry, HTTPClient: &http.Client{Transport: tr}})
	require.NoError(t, err)

	require.NoError(t, c.do(context.Background(), request{method: http.MethodGet, path: "/"}, nil))
	assert.Equal(t, int32(3), tr.calls.Load())
}

func TestClient_SlowInsertIsNotSentTwice(t *testing.T) {
	var inserts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Write([]byte(`[]`))
			return
		}
		if inserts.Add(1) == 1 {
			// committed, but the answer arrives after the client gave up
			time.Sleep(300 * time.Millisecond)
		}
		w.Write([]byte(`[{"id":1,"image_url":"u","created_at":"2024-05-01T10:00:00Z","is_current":true}]`))
	}))
	defer srv.Close()

	c, err := New(Config{URL: srv.URL, Key: "k", Retry: fastRetry, Timeout: 100 * time.Millisecond})
	require.NoError(t, err)

	err = NewRecordStore(c).Insert(context.Background(), &photo.Photo{ImageURL: "u", IsCurrent: true})
	assert.ErrorIs(t, err, photo.ErrBackendUnavailable)
	assert.Equal(t, int32(1), inserts.Load())
}

func TestClient_WritesRetryOnlyFailedDials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	for _, method := range []string{http.MethodPost, http.MethodPatch} {
		refused := &flakyTransport{failures: 2, err: errRefused, next: http.DefaultTransport}
		c, err := New(Config{URL: srv.URL, Key: "k", Retry: fastRetry, HTTPClient: &http.Client{Transport: refused}})
		require.NoError(t, err)
		require.NoError(t, c.do(context.Background(), request{method: method, path: "/"}, nil), method)
		assert.Equal(t, int32(3), refused.calls.Load(), method)

		reset := &flakyTransport{failures: 2, next: http.DefaultTransport}
		c, err = New(Config{URL: srv.URL, Key: "k", Retry: fastRetry, HTTPClient: &http.Client{Transport: reset}})
		require.NoError(t, err)
		err = c.do(context.Background(), request{method: method, path: "/"}, nil)
		assert.ErrorIs(t, err, photo.ErrBackendUnavailable, method)
		assert.Equal(t, int32(1), reset.calls.Load(), method)
	}
}

func TestClient_ReadOnlyPostIsRetried(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	tr := &flakyTransport{failures: 2, next: http.DefaultTransport}
	c, err := New(Config{URL: srv.URL, Key: "k", Retry: fastRetry, HTTPClient: &http.Client{Transport: tr}})
	require.NoError(t, err)

	require.NoError(t, c.do(context.Background(), request{method: http.MethodPost, path: "/", idempotent: true}, nil))
	assert.Equal(t, int32(3), tr.calls.Load())
}

func TestClient_ExhaustedRetriesAreUnavailable(t *testing.T) {
	tr := &flakyTransport{failures: 10, next: http.DefaultTransport}
	c, err := New(Config{URL: "http://127.0.0.1:1", Key: "k", Retry: fastRetry, HTTPClient: &http.Client{Transport: tr}})
	require.NoError(t, err)

	err = c.do(context.Background(), request{method: http.MethodGet, path: "/"}, nil)
	assert.ErrorIs(t, err, photo.ErrBackendUnavailable)
	assert.Equal(t, int32(3), tr.calls.Load())
}

func TestClient_APIErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":"22P02","message":"invalid input syntax"}`))
	}))

	err := c.do(context.Background(), request{method: http.MethodGet, path: "/"}, nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "22P02", apiErr.Code)
	assert.Equal(t, "invalid input syntax", apiErr.Message)
	assert.Equal(t, int32(1), calls.Load())
	assert.NotErrorIs(t, err, photo.ErrBackendUnavailable)
}

func TestClient_RejectedKeyIsUnavailable(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"Invalid API key"}`))
	}))

	err := c.do(context.Background(), request{method: http.MethodGet, path: "/"}, nil)
	assert.ErrorIs(t, err, photo.ErrBackendUnavailable)
}

func TestClient_CancelledContext(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.do(ctx, request{method: http.MethodGet, path: "/"}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseAPIError_PlainBody(t *testing.T) {
	apiErr := parseAPIError(http.StatusBadGateway, []byte("upstream down"))
	assert.Equal(t, "upstream down", apiErr.Message)

	apiErr = parseAPIError(http.StatusBadGateway, nil)
	assert.Equal(t, http.StatusText(http.StatusBadGateway), apiErr.Message)
}

func TestClient_RawBody(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Write(body)
	}))

	var out []byte
	require.NoError(t, c.do(context.Background(), request{method: http.MethodPost, path: "/", body: []byte("echo")}, &out))
	assert.Equal(t, "echo", string(out))
}
