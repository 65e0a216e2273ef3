// Package httpclient is a small o11y instrumented HTTP client for talking to the
// services a test has started. Calls are retried with backoff on connection errors
// and 5XX responses, which covers a service that has only just started listening.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/circleci/testdriver/o11y"
)

const JSON = "application/json; charset=utf-8"

type Config struct {
	// Name is used to identify the client in spans
	Name string
	// BaseURL is the scheme, host and optional path prefix of the server.
	BaseURL string
	// Timeout bounds a call including all of its retries. Zero means 10 seconds.
	Timeout time.Duration
}

type Client struct {
	name       string
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		name:    cfg.Name,
		baseURL: cfg.BaseURL,
		timeout: cfg.Timeout,
		httpClient: &http.Client{
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
		},
	}
}

type Decoder func(r io.Reader) error

type Request struct {
	Method  string
	Route   string
	Body    interface{} // sent as JSON when set
	Decoder Decoder     // applied to 2XX response bodies when set
	Headers map[string]string
	Query   url.Values
	// Timeout bounds a single attempt. Zero means 2 seconds.
	Timeout time.Duration

	url string
}

// NewRequest formats route with routeParams for the URL, keeping the unformatted
// route for span names.
func NewRequest(method, route string, routeParams ...interface{}) Request {
	return Request{
		Method: method,
		Route:  route,
		url:    fmt.Sprintf(route, routeParams...),
	}
}

// Call sends r, retrying until it gets a response below 500 or the client timeout
// runs out. Responses of 300 and above are returned as an *HTTPError.
func (c *Client) Call(ctx context.Context, r Request) (err error) {
	ctx, span := o11y.StartSpan(ctx, fmt.Sprintf("httpclient: %s %s", c.name, r.Route))
	defer o11y.End(span, &err)
	span.RecordMetric(o11y.Timing("httpclient", "client_name", "route", "status_code", "attempts"))
	span.AddField("client_name", c.name)
	span.AddField("route", r.Route)

	if r.url == "" {
		r.url = r.Route
	}
	u, err := url.Parse(c.baseURL + r.url)
	if err != nil {
		return err
	}
	u.RawQuery = r.Query.Encode()

	var body []byte
	if r.Body != nil {
		body, err = json.Marshal(r.Body)
		if err != nil {
			return fmt.Errorf("could not json encode request: %w", err)
		}
	}

	attempts := 0
	attempt := func() error {
		attempts++
		span.AddField("attempts", attempts)

		timeout := r.Timeout
		if timeout == 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, r.Method, u.String(), bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		for k, v := range r.Headers {
			req.Header.Set(k, v)
		}
		if body != nil {
			req.Header.Set("Content-Type", JSON)
		}

		res, err := c.httpClient.Do(req)
		if err != nil {
			e := &url.Error{}
			if errors.As(err, &e) {
				err = e.Err
			}
			return fmt.Errorf("call: %s %s failed with: %w after %d attempt(s)",
				r.Method, r.Route, err, attempts)
		}
		defer func() {
			_, _ = io.Copy(io.Discard, res.Body)
			_ = res.Body.Close()
		}()
		span.AddField("status_code", res.StatusCode)

		if res.StatusCode >= 300 {
			httpErr := &HTTPError{method: r.Method, route: r.Route, code: res.StatusCode, attempts: attempts}
			if res.StatusCode >= 500 {
				return httpErr
			}
			return backoff.Permanent(httpErr)
		}
		if r.Decoder == nil {
			return nil
		}
		err = r.Decoder(res.Body)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("call: %s %s decoding failed with: %w", r.Method, r.Route, err))
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 50 * time.Millisecond
	bo.MaxElapsedTime = c.timeout
	return backoff.Retry(attempt, backoff.WithContext(bo, ctx))
}

// NewJSONDecoder decodes a JSON response body into resp.
func NewJSONDecoder(resp interface{}) Decoder {
	return func(r io.Reader) error {
		if err := json.NewDecoder(r).Decode(resp); err != nil {
			return fmt.Errorf("failed to unmarshal: %w", err)
		}
		return nil
	}
}

func NewStringDecoder(resp *string) Decoder {
	return func(r io.Reader) error {
		b, err := io.ReadAll(r)
		if err != nil {
			return err
		}
		*resp = string(b)
		return nil
	}
}

// HTTPError is returned for a response status of 300 or above.
type HTTPError struct {
	method   string
	route    string
	code     int
	attempts int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("the response from %s %s was %d (%s) (%d attempts)",
		e.method, e.route, e.code, http.StatusText(e.code), e.attempts)
}

func (e *HTTPError) Code() int {
	return e.code
}

// HasStatusCode reports whether err is an *HTTPError with one of codes.
func HasStatusCode(err error, codes ...int) bool {
	e := &HTTPError{}
	if errors.As(err, &e) {
		for _, code := range codes {
			if e.code == code {
				return true
			}
		}
	}
	return false
}
