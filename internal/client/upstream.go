// Package client provides the shared outbound HTTP client for vendor calls.
package client

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/chaturvedibitan-tech/easyutilityhub-backend/internal/config"
	"github.com/chaturvedibitan-tech/easyutilityhub-backend/internal/metrics"
	"github.com/chaturvedibitan-tech/easyutilityhub-backend/internal/model"
)

// UserAgent is sent on every outbound request.
const UserAgent = "easyutilityhub/1.0"

// Upstream sends single attempts to vendor APIs over a pooled transport.
// It never retries; retry decisions belong to the caller.
type Upstream struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewUpstream creates an Upstream with connection pooling and timeouts.
// The metrics parameter is optional; pass nil to disable upstream metrics recording.
func NewUpstream(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *Upstream {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        cfg.Upstream.IdleConnections,
		MaxIdleConnsPerHost: cfg.Upstream.IdleConnections,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}

	return &Upstream{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   time.Duration(cfg.Upstream.TimeoutSeconds) * time.Second,
		},
		logger:  logger.With("component", "upstream"),
		metrics: m,
	}
}

// Do executes one request against vendor and returns the raw response.
// The caller is responsible for closing the response body.
func (c *Upstream) Do(vendor string, req *http.Request) (*model.UpstreamResponse, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", UserAgent)
	}

	c.logger.Debug("upstream request",
		"vendor", vendor,
		"method", req.Method,
		"host", req.URL.Host,
		"path", req.URL.Path,
	)

	start := time.Now()
	resp, err := c.httpClient.Do(req) //nolint:bodyclose // body ownership transfers to caller via UpstreamResponse
	duration := time.Since(start).Seconds()

	if c.metrics != nil {
		c.metrics.UpstreamDuration.WithLabelValues(vendor).Observe(duration)
	}
	if err != nil {
		return nil, fmt.Errorf("upstream request: %w", err)
	}

	if c.metrics != nil {
		c.metrics.UpstreamResponses.WithLabelValues(vendor, strconv.Itoa(resp.StatusCode)).Inc()
	}

	return &model.UpstreamResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       resp.Body,
	}, nil
}

// DoStream builds a request from its parts and executes it. A negative
// length sends the body with chunked encoding. The context controls the
// lifetime of the outbound request: when the inbound client disconnects,
// the vendor call is canceled too.
func (c *Upstream) DoStream(ctx context.Context, vendor, method, url string, header http.Header, body io.Reader, length int64) (*model.UpstreamResponse, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	if header != nil {
		req.Header = header.Clone()
	}
	if body != nil && length >= 0 {
		req.ContentLength = length
	}

	return c.Do(vendor, req)
}
