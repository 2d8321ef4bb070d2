package upstream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Call is a single outbound request.
type Call struct {
	Method      string
	URL         string
	ContentType string
	Header      http.Header
	Body        []byte
	Timeout     time.Duration
}

// Response is what came back from the upstream.
type Response struct {
	StatusCode int
	Status     string
	Body       []byte
	Elapsed    time.Duration
}

// OK reports whether the status counts as an upstream success. Redirects are
// not followed, and a 301 or 302 is accepted as a successful hand-off.
func (r Response) OK() bool {
	return IsSuccessStatus(r.StatusCode)
}

// IsSuccessStatus reports whether code is 2xx, 301 or 302.
func IsSuccessStatus(code int) bool {
	if code >= 200 && code <= 299 {
		return true
	}
	return code == http.StatusMovedPermanently || code == http.StatusFound
}

// Client sends outbound calls.
type Client struct {
	httpClient *http.Client
}

// NewClient wraps httpClient (or a fresh one when nil) so that redirects are
// never followed.
func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	c := *httpClient
	c.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &Client{httpClient: &c}
}

// NewCall builds the outbound call for a destination. GET calls carry no body.
func (d *Destination) NewCall(url string, body []byte) Call {
	call := Call{
		Method:      d.Method,
		URL:         url,
		ContentType: d.ContentType,
		Timeout:     d.timeout(),
	}
	if d.Method != http.MethodGet && len(body) > 0 {
		call.Body = body
	}
	return call
}

// Send performs exactly one attempt bounded by call.Timeout.
func (c *Client) Send(ctx context.Context, call Call) (Response, error) {
	timeout := call.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if len(call.Body) > 0 {
		body = bytes.NewReader(call.Body)
	}

	req, err := http.NewRequestWithContext(ctx, call.Method, call.URL, body)
	if err != nil {
		return Response{}, fmt.Errorf("build request: %w", err)
	}
	for k, vs := range call.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if body != nil && call.ContentType != "" {
		req.Header.Set("Content-Type", call.ContentType)
	}

	start := time.Now()
	res, err := c.httpClient.Do(req)
	if err != nil {
		return Response{Elapsed: time.Since(start)}, fmt.Errorf("send %s %s: %w", call.Method, call.URL, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	elapsed := time.Since(start)
	if err != nil {
		return Response{StatusCode: res.StatusCode, Status: res.Status, Elapsed: elapsed},
			fmt.Errorf("read response from %s: %w", call.URL, err)
	}

	return Response{
		StatusCode: res.StatusCode,
		Status:     res.Status,
		Body:       data,
		Elapsed:    elapsed,
	}, nil
}
