package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/chaturvedibitan-tech/easyutilityhub-backend/internal/client"
	"github.com/chaturvedibitan-tech/easyutilityhub-backend/internal/config"
	"github.com/chaturvedibitan-tech/easyutilityhub-backend/internal/metrics"
	"github.com/chaturvedibitan-tech/easyutilityhub-backend/internal/model"
	"github.com/chaturvedibitan-tech/easyutilityhub-backend/internal/retry"
)

const maxVendorMessage = 300

var displayNames = map[string]string{
	config.VendorRemoveBG: "remove.bg",
	config.VendorClipdrop: "ClipDrop",
	config.VendorGemini:   "Gemini",
}

func displayName(vendor string) string {
	if n, ok := displayNames[vendor]; ok {
		return n
	}
	return vendor
}

// response is a fully buffered 2xx vendor reply.
type response struct {
	Status int
	Header http.Header
	Body   []byte
}

// sendFunc performs one outbound attempt. attempt is 0-based.
type sendFunc func(ctx context.Context, attempt int) (*model.UpstreamResponse, error)

// caller owns credential lookup and the retry loop shared by every service.
type caller struct {
	upstream *client.Upstream
	secrets  *config.Secrets
	retry    config.RetryConfig
	maxBody  int64
	logger   *slog.Logger
	metrics  *metrics.Metrics

	// sleep overrides the backoff wait; nil uses a real timer.
	sleep func(ctx context.Context, d time.Duration) error
}

func newCaller(up *client.Upstream, secrets *config.Secrets, cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *caller {
	return &caller{
		upstream: up,
		secrets:  secrets,
		retry:    cfg.Retry,
		maxBody:  cfg.Upstream.MaxResponseBytes,
		logger:   logger,
		metrics:  m,
	}
}

// key resolves the vendor credential. It runs before any network I/O.
func (c *caller) key(vendor string) (string, error) {
	k, err := c.secrets.Lookup(vendor)
	if err != nil {
		return "", c.fail(vendor, &Error{
			Kind:    KindConfiguration,
			Vendor:  vendor,
			Message: "Server configuration error.",
			Err:     err,
		})
	}
	return k, nil
}

func (c *caller) policy(vendor string) retry.Policy {
	return retry.Policy{
		MaxRetries: c.retry.Retries(),
		BaseDelay:  c.retry.BaseDelay(),
		MaxDelay:   c.retry.MaxDelay(),
		Sleep:      c.sleep,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			c.logger.Info("retrying vendor call",
				"vendor", vendor,
				"attempt", attempt+1,
				"delay", delay,
				"error", err,
			)
			if c.metrics != nil {
				c.metrics.UpstreamRetries.WithLabelValues(vendor).Inc()
			}
		},
	}
}

func (c *caller) classify(err error) retry.Outcome {
	var se *Error
	if !errors.As(err, &se) {
		return retry.Fatal
	}
	switch se.Kind {
	case KindOverloaded:
		return retry.Retryable
	case KindTransport:
		if c.retry.RetryTransport() && !errors.Is(err, context.Canceled) {
			return retry.Retryable
		}
	}
	return retry.Fatal
}

// invoke runs send under the retry policy and hands each 2xx reply to parse.
// Errors returned by parse end the loop without another attempt.
func invoke[T any](ctx context.Context, c *caller, vendor string, send sendFunc, parse func(*response) (T, error)) (T, error) {
	res, err := retry.Do(ctx, c.policy(vendor), func(ctx context.Context, attempt int) (T, error) {
		var zero T
		resp, err := c.attempt(ctx, vendor, send, attempt)
		if err != nil {
			return zero, err
		}
		return parse(resp)
	}, c.classify)
	if err != nil {
		return res, c.fail(vendor, err)
	}
	return res, nil
}

// attempt performs one call and buffers the reply. Non-2xx statuses become
// overloaded or vendor errors.
func (c *caller) attempt(ctx context.Context, vendor string, send sendFunc, n int) (*response, error) {
	up, err := send(ctx, n)
	if err != nil {
		var se *Error
		if errors.As(err, &se) {
			return nil, err
		}
		return nil, transportError(vendor, err)
	}
	defer func() { _ = up.Body.Close() }()

	var r io.Reader = up.Body
	if c.maxBody > 0 {
		r = io.LimitReader(up.Body, c.maxBody+1)
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, transportError(vendor, fmt.Errorf("read response: %w", err))
	}
	if c.maxBody > 0 && int64(len(body)) > c.maxBody {
		return nil, &Error{
			Kind:    KindMalformedResponse,
			Vendor:  vendor,
			Status:  up.StatusCode,
			Message: fmt.Sprintf("%s returned a response larger than %d bytes", displayName(vendor), c.maxBody),
		}
	}

	switch {
	case up.StatusCode >= 200 && up.StatusCode < 300:
		return &response{Status: up.StatusCode, Header: up.Header, Body: body}, nil
	case c.retry.IsOverload(up.StatusCode):
		return nil, &Error{
			Kind:    KindOverloaded,
			Vendor:  vendor,
			Status:  up.StatusCode,
			Message: fmt.Sprintf("%s is overloaded right now. Please try again in a moment.", displayName(vendor)),
		}
	default:
		return nil, &Error{
			Kind:    KindVendor,
			Vendor:  vendor,
			Status:  up.StatusCode,
			Message: vendorMessage(body, up.StatusCode),
		}
	}
}

// fail records a terminal error. Errors without a typed cause (an interrupted
// backoff) are classified from the underlying context error.
func (c *caller) fail(vendor string, err error) error {
	var se *Error
	if !errors.As(err, &se) {
		se = transportError(vendor, err)
		err = se
	}
	if c.metrics != nil {
		c.metrics.VendorFailures.WithLabelValues(vendor, string(se.Kind)).Inc()
	}
	c.logger.Warn("vendor call failed",
		"vendor", vendor,
		"kind", se.Kind,
		"status", se.Status,
		"error", err,
	)
	return err
}

func transportError(vendor string, err error) *Error {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return &Error{
			Kind:    KindTimeout,
			Vendor:  vendor,
			Message: fmt.Sprintf("%s did not respond in time.", displayName(vendor)),
			Err:     err,
		}
	}
	return &Error{
		Kind:    KindTransport,
		Vendor:  vendor,
		Message: fmt.Sprintf("Could not reach %s.", displayName(vendor)),
		Err:     err,
	}
}

// vendorMessage extracts a human-readable message from a vendor error body.
// Recognized shapes: {"error":{"message":...}}, {"error":"..."},
// {"errors":[{"title":...}]} and {"message":...}.
func vendorMessage(body []byte, status int) string {
	var doc struct {
		Error   json.RawMessage `json:"error"`
		Errors  json.RawMessage `json:"errors"`
		Message json.RawMessage `json:"message"`
	}
	if json.Unmarshal(body, &doc) == nil {
		var obj struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(doc.Error, &obj) == nil && obj.Message != "" {
			return truncate(obj.Message)
		}
		var s string
		if json.Unmarshal(doc.Error, &s) == nil && s != "" {
			return truncate(s)
		}
		var list []struct {
			Title string `json:"title"`
		}
		if json.Unmarshal(doc.Errors, &list) == nil && len(list) > 0 && list[0].Title != "" {
			return truncate(list[0].Title)
		}
		if json.Unmarshal(doc.Message, &s) == nil && s != "" {
			return truncate(s)
		}
	}
	return fmt.Sprintf("upstream returned status %d", status)
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxVendorMessage {
		return s
	}
	return string(r[:maxVendorMessage]) + "…"
}
