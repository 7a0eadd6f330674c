package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tweestoelen/internal/domain/photo"
	"tweestoelen/internal/pkg/retry"
)

var ErrNotConfigured = errors.New("supabase url or api key missing")

type Config struct {
	URL        string
	Key        string
	Timeout    time.Duration // per attempt
	Retry      retry.Policy
	HTTPClient *http.Client
}

// Client talks to the Supabase REST and Storage APIs.
type Client struct {
	baseURL string
	key     string
	http    *http.Client
	timeout time.Duration
	retry   retry.Policy
}

// APIError is an error response sent by Supabase itself. It is never retried.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("supabase: status %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("supabase: status %d: %s", e.Status, e.Message)
}

// New validates the configuration. A missing URL or key is reported as
// photo.ErrBackendUnavailable so the caller can start degraded.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if base == "" || strings.TrimSpace(cfg.Key) == "" {
		return nil, fmt.Errorf("%w: %w", photo.ErrBackendUnavailable, ErrNotConfigured)
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("%w: invalid supabase url: %v", photo.ErrBackendUnavailable, err)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	policy := cfg.Retry
	switch {
	case policy == (retry.Policy{}):
		policy = retry.DefaultPolicy
	case policy.Attempts < 1:
		policy.Attempts = 1
	}

	return &Client{
		baseURL: base,
		key:     cfg.Key,
		http:    hc,
		timeout: timeout,
		retry:   policy,
	}, nil
}

// BaseURL is the project URL without trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

type request struct {
	method      string
	path        string
	query       url.Values
	body        []byte
	contentType string
	header      http.Header

	// idempotent marks a POST that only reads, like an object listing.
	idempotent bool
}

// replayable reports whether req may be sent again after it could have
// reached the server.
func (req request) replayable() bool {
	if req.idempotent {
		return true
	}
	switch req.method {
	case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

// isDialError reports a failure to connect, before any request bytes went
// out.
func isDialError(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

// do sends req with retries on transport failures and decodes a JSON reply
// into out. out may be a *[]byte to receive the raw body. Writes that are not
// replayable are only retried when the connection could not be made.
func (c *Client) do(ctx context.Context, req request, out any) error {
	target := c.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	var payload []byte
	err := retry.Do(ctx, c.retry, func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		var body io.Reader
		if req.body != nil {
			body = bytes.NewReader(req.body)
		}
		httpReq, err := http.NewRequestWithContext(attemptCtx, req.method, target, body)
		if err != nil {
			return retry.Stop(err)
		}
		httpReq.Header.Set("apikey", c.key)
		httpReq.Header.Set("Authorization", "Bearer "+c.key)
		if req.contentType != "" {
			httpReq.Header.Set("Content-Type", req.contentType)
		}
		for k, vs := range req.header {
			for _, v := range vs {
				httpReq.Header.Add(k, v)
			}
		}

		res, err := c.http.Do(httpReq)
		if err != nil {
			if !req.replayable() && !isDialError(err) {
				return retry.Stop(err)
			}
			return err
		}
		defer res.Body.Close()

		data, err := io.ReadAll(res.Body)
		if err != nil {
			if !req.replayable() {
				return retry.Stop(err)
			}
			return err
		}
		if res.StatusCode >= http.StatusBadRequest {
			return retry.Stop(parseAPIError(res.StatusCode, data))
		}
		payload = data
		return nil
	})
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			if apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden {
				return fmt.Errorf("%w: %w", photo.ErrBackendUnavailable, apiErr)
			}
			return apiErr
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %v", photo.ErrBackendUnavailable, err)
	}

	switch dst := out.(type) {
	case nil:
		return nil
	case *[]byte:
		*dst = payload
		return nil
	default:
		if len(bytes.TrimSpace(payload)) == 0 {
			return nil
		}
		if err := json.Unmarshal(payload, out); err != nil {
			return fmt.Errorf("decode supabase response: %w", err)
		}
		return nil
	}
}

func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		apiErr.Message = strings.TrimSpace(string(body))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(status)
		}
		return apiErr
	}

	for _, key := range []string{"message", "msg", "error_description", "error"} {
		if s, ok := raw[key].(string); ok && s != "" {
			apiErr.Message = s
			break
		}
	}
	// storage replies carry the real status as a string in statusCode
	switch v := raw["statusCode"].(type) {
	case string:
		apiErr.Code = v
	case float64:
		apiErr.Code = strconv.Itoa(int(v))
	}
	if code, ok := raw["code"].(string); ok && code != "" {
		apiErr.Code = code
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}

func jsonBody(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode supabase request: %w", err)
	}
	return b, nil
}
