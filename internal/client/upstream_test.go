package client

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/chaturvedibitan-tech/easyutilityhub-backend/internal/config"
	"github.com/chaturvedibitan-tech/easyutilityhub-backend/internal/metrics"
)

func testConfig(timeout int) *config.Config {
	return &config.Config{
		Upstream: config.UpstreamConfig{
			TimeoutSeconds:  timeout,
			IdleConnections: 10,
		},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestUpstream_DoStream(t *testing.T) {
	var gotUA, gotKey, gotCT string
	var gotLen int64
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotKey = r.Header.Get("X-Api-Key")
		gotCT = r.Header.Get("Content-Type")
		gotLen = r.ContentLength
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Header().Set("Content-Type", "image/png")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("PNG"))
	}))
	defer srv.Close()

	m := metrics.New()
	c := NewUpstream(testConfig(10), discardLogger(), m)

	header := http.Header{}
	header.Set("X-Api-Key", "secret")
	header.Set("Content-Type", "multipart/form-data; boundary=abc")

	resp, err := c.DoStream(context.Background(), "removebg", http.MethodPost, srv.URL+"/v1.0/removebg",
		header, io.NopCloser(strings.NewReader("payload")), 7)
	if err != nil {
		t.Fatalf("DoStream() error = %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(body) != "PNG" {
		t.Errorf("body = %q, want %q", body, "PNG")
	}

	if gotUA != UserAgent {
		t.Errorf("User-Agent = %q, want %q", gotUA, UserAgent)
	}
	if gotKey != "secret" {
		t.Errorf("X-Api-Key = %q, want %q", gotKey, "secret")
	}
	if gotCT != "multipart/form-data; boundary=abc" {
		t.Errorf("Content-Type = %q, want boundary preserved", gotCT)
	}
	if gotLen != 7 || gotBody != "payload" {
		t.Errorf("upstream saw length %d body %q, want 7 %q", gotLen, gotBody, "payload")
	}
	if header.Get("User-Agent") != "" {
		t.Error("DoStream() mutated the caller's header")
	}

	if got := testutil.ToFloat64(m.UpstreamResponses.WithLabelValues("removebg", "200")); got != 1 {
		t.Errorf("upstream_responses_total{removebg,200} = %v, want 1", got)
	}
}

func TestUpstream_DoStream_Error(t *testing.T) {
	m := metrics.New()
	c := NewUpstream(testConfig(1), discardLogger(), m)

	_, err := c.DoStream(context.Background(), "gemini", http.MethodGet, "http://127.0.0.1:1/nonexistent", nil, nil, 0)
	if err == nil {
		t.Fatal("DoStream() expected error for unreachable host, got nil")
	}
	if got := testutil.CollectAndCount(m.UpstreamResponses); got != 0 {
		t.Errorf("upstream_responses_total series = %d, want 0 on transport failure", got)
	}
}

func TestUpstream_DoStream_CanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewUpstream(testConfig(30), discardLogger(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.DoStream(ctx, "clipdrop", http.MethodPost, srv.URL+"/slow", nil, nil, 0)
	if err == nil {
		t.Fatal("DoStream() expected error for canceled context, got nil")
	}
}

func TestUpstream_KeepsExplicitUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	c := NewUpstream(testConfig(5), discardLogger(), nil)
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("User-Agent", "custom/2")

	resp, err := c.Do("gemini", req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	_ = resp.Body.Close()

	if gotUA != "custom/2" {
		t.Errorf("User-Agent = %q, want %q", gotUA, "custom/2")
	}
}
