package fabric

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Request describes a single API call.
type Request struct {
	Method string

	// Endpoint is relative to the base URL, or an absolute http(s) URL
	// such as an Operation-Location.
	Endpoint string
	Params   url.Values

	// Body is marshalled as JSON for POST, PUT and PATCH.
	Body any

	// LRO marks the call as one that may be answered with 202 Accepted
	// and an operation to poll. Without it a 202 is a *TransportError.
	LRO bool
}

// Response is a completed API call.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Accepted reports whether the platform started a long-running operation.
func (r *Response) Accepted() bool {
	return r.StatusCode == http.StatusAccepted
}

// OperationLocation returns the URL to poll, preferring Operation-Location
// over Location.
func (r *Response) OperationLocation() string {
	if loc := r.Header.Get("Operation-Location"); loc != "" {
		return loc
	}
	return r.Header.Get("Location")
}

// RetryAfter returns the Retry-After header in seconds, or zero.
func (r *Response) RetryAfter() time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(r.Header.Get("Retry-After")))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// Do performs one authenticated request. Non-2xx responses, network
// failures and 202 Accepted on a request without LRO are returned as
// *TransportError. Nothing is retried.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	target, err := c.buildURL(method, req.Endpoint, req.Params)
	if err != nil {
		return nil, &TransportError{Method: method, URL: req.Endpoint, Err: err}
	}

	var body io.Reader
	if req.Body != nil && hasBody(method) {
		raw, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encoding %s %s body: %w", method, target, err)
		}
		body = bytes.NewReader(raw)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &TransportError{Method: method, URL: target, Err: err}
		}
	}

	token, err := c.cred.GetToken(ctx, c.cfg.Scope)
	if err != nil {
		return nil, &TransportError{Method: method, URL: target, Err: fmt.Errorf("acquiring token: %w", err)}
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, method, target, body)
	if err != nil {
		return nil, &TransportError{Method: method, URL: target, Err: err}
	}
	httpReq.Header.Set("Authorization", "Bearer "+token.Token)
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.DebugContext(ctx, "fabric request failed", "method", method, "url", target, "error", err)
		return nil, &TransportError{Method: method, URL: target, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Method: method, URL: target, StatusCode: resp.StatusCode, Err: fmt.Errorf("reading body: %w", err)}
	}

	c.logger.DebugContext(ctx, "fabric request",
		"method", method,
		"url", target,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{
			Method:     method,
			URL:        target,
			StatusCode: resp.StatusCode,
			Body:       truncate(string(raw), maxErrorBody),
		}
	}

	if resp.StatusCode == http.StatusAccepted && !req.LRO {
		return nil, &TransportError{
			Method:     method,
			URL:        target,
			StatusCode: resp.StatusCode,
			Body:       truncate(string(raw), maxErrorBody),
			Err:        errUnexpectedAccepted,
		}
	}

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: raw}, nil
}

// buildURL joins endpoint to the base URL and merges params. GET and HEAD
// requests carry maxResults unless the caller set it.
func (c *Client) buildURL(method, endpoint string, params url.Values) (string, error) {
	raw := endpoint
	if !isAbsolute(endpoint) {
		raw = c.cfg.BaseURL + "/" + strings.TrimLeft(endpoint, "/")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parsing url %q: %w", raw, err)
	}

	q := u.Query()
	for k, vs := range params {
		q.Del(k)
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	if (method == http.MethodGet || method == http.MethodHead) && c.cfg.PageSize > 0 && !q.Has("maxResults") {
		q.Set("maxResults", strconv.Itoa(c.cfg.PageSize))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func isAbsolute(endpoint string) bool {
	return strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://")
}

func hasBody(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	default:
		return false
	}
}
