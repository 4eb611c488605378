package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/storefront-backend/internal/platform/logger"
)

const DefaultUIDHeader = "X-User-ID"

// Descriptor describes one request. It is not modified by Send.
type Descriptor struct {
	Endpoint string
	Method   string
	Payload  any

	AuthToken string
	UID       string

	Retries    int
	RetryDelay time.Duration

	// Validate runs on the unwrapped success payload; false fails the call
	// with ErrValidationFailed regardless of HTTP status.
	Validate func(payload any) bool
}

type Options struct {
	BaseURL   string
	UIDHeader string
	Timeout   time.Duration

	// Retryable and Sleep override the retry policy hooks (tests).
	Retryable func(err error) bool
	Sleep     func(ctx context.Context, d time.Duration) error

	// Observe is called after every attempt; status is 0 when no response
	// arrived.
	Observe func(method, endpoint string, status int, dur time.Duration)

	HTTPClient *http.Client
}

type Client struct {
	log       *logger.Logger
	baseURL   string
	uidHeader string
	timeout   time.Duration
	retryable func(err error) bool
	sleep     func(ctx context.Context, d time.Duration) error
	observe   func(method, endpoint string, status int, dur time.Duration)

	httpClient *http.Client
	tracer     trace.Tracer
}

func New(log *logger.Logger, opts Options) (*Client, error) {
	if log == nil {
		return nil, errors.New("logger required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("baseURL required")
	}
	uidHeader := strings.TrimSpace(opts.UIDHeader)
	if uidHeader == "" {
		uidHeader = DefaultUIDHeader
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{
		log:        log.With("client", "Transport"),
		baseURL:    baseURL,
		uidHeader:  uidHeader,
		timeout:    opts.Timeout,
		retryable:  opts.Retryable,
		sleep:      opts.Sleep,
		observe:    opts.Observe,
		httpClient: hc,
		tracer:     otel.Tracer("storefront/transport"),
	}, nil
}

func (c *Client) BaseURL() string { return c.baseURL }

// Send executes d with the descriptor's retry budget and returns the decoded
// response body. Errors are logged with the endpoint and returned unchanged.
func (c *Client) Send(ctx context.Context, d Descriptor) (any, error) {
	method, ok := httpMethod(d.Method)
	if !ok {
		err := fmt.Errorf("%w: %q", ErrUnsupportedMethod, d.Method)
		c.log.Error("request failed", "endpoint", d.Endpoint, "method", d.Method, "error", err)
		return nil, err
	}

	var body []byte
	if d.Payload != nil && method != http.MethodGet && method != http.MethodDelete {
		raw, err := json.Marshal(d.Payload)
		if err != nil {
			c.log.Error("request failed", "endpoint", d.Endpoint, "method", method, "error", err)
			return nil, err
		}
		body = raw
	}

	retryable := c.retryable
	if retryable == nil {
		retryable = RetryServerErrors
	}
	policy := RetryPolicy{
		MaxRetries: d.Retries,
		Delay:      d.RetryDelay,
		Retryable:  retryable,
		Sleep:      c.sleep,
	}

	var result any
	err := policy.Do(ctx, func(attempt int) error {
		out, err := c.attempt(ctx, method, d, body, attempt)
		if err != nil {
			if attempt < d.Retries && retryable(err) {
				c.log.Warn("request attempt failed, retrying",
					"endpoint", d.Endpoint,
					"attempt", attempt+1,
					"retries", d.Retries,
					"delay_ms", d.RetryDelay.Milliseconds(),
					"error", err,
				)
			}
			return err
		}
		result = out
		return nil
	})
	if err != nil {
		c.log.Error("request failed", "endpoint", d.Endpoint, "method", method, "error", err)
		return nil, err
	}
	return result, nil
}

// Fetch is Send followed by Unwrap.
func (c *Client) Fetch(ctx context.Context, d Descriptor) (any, error) {
	raw, err := c.Send(ctx, d)
	if err != nil {
		return nil, err
	}
	return Unwrap(raw), nil
}

func (c *Client) attempt(ctx context.Context, method string, d Descriptor, body []byte, attempt int) (any, error) {
	ctx, span := c.tracer.Start(ctx, "transport.send", trace.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("transport.endpoint", d.Endpoint),
		attribute.Int("transport.attempt", attempt),
	))
	defer span.End()

	start := time.Now()
	out, err := c.do(ctx, method, d, body)
	if err != nil {
		status := StatusCode(err)
		if status != 0 {
			span.SetAttributes(attribute.Int("http.status_code", status))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.observeAttempt(method, d.Endpoint, status, start)
		return nil, err
	}
	c.observeAttempt(method, d.Endpoint, http.StatusOK, start)
	return out, nil
}

func (c *Client) observeAttempt(method, endpoint string, status int, start time.Time) {
	if c.observe != nil {
		c.observe(method, endpoint, status, time.Since(start))
	}
}

func (c *Client) do(ctx context.Context, method string, d Descriptor, body []byte) (any, error) {
	ctx2 := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx2, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx2, method, c.resolve(d.Endpoint), reader)
	if err != nil {
		return nil, err
	}
	for k, v := range c.headers(d) {
		req.Header.Set(k, v)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, parseHTTPError(resp.StatusCode, raw)
	}

	out := decodeBody(raw)
	if d.Validate != nil && !d.Validate(Unwrap(out)) {
		return nil, ErrValidationFailed
	}
	return out, nil
}

// headers holds only what the descriptor supplies: bearer auth and the uid
// header, either, both, or neither.
func (c *Client) headers(d Descriptor) map[string]string {
	h := map[string]string{}
	if tok := strings.TrimSpace(d.AuthToken); tok != "" {
		h["Authorization"] = "Bearer " + tok
	}
	if uid := strings.TrimSpace(d.UID); uid != "" {
		h[c.uidHeader] = uid
	}
	return h
}

func (c *Client) resolve(endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	return c.baseURL + endpoint
}

func httpMethod(m string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(m)) {
	case "get":
		return http.MethodGet, true
	case "post":
		return http.MethodPost, true
	case "put":
		return http.MethodPut, true
	case "patch":
		return http.MethodPatch, true
	case "delete":
		return http.MethodDelete, true
	default:
		return "", false
	}
}

func decodeBody(raw []byte) any {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil
	}
	var out any
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return string(raw)
	}
	return out
}
