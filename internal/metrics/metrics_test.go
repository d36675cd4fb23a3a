package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNew_GathersMetrics(t *testing.T) {
	m := New()

	m.RequestsTotal.WithLabelValues("POST", "200", "/api/quiz").Inc()
	m.UpstreamRetries.WithLabelValues("gemini").Inc()

	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	want := map[string]bool{
		"easyutilityhub_http_requests_total":   false,
		"easyutilityhub_upstream_retries_total": false,
	}
	for _, f := range families {
		if _, ok := want[f.GetName()]; ok {
			want[f.GetName()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("expected %s in gathered metrics", name)
		}
	}
}

func TestVendorFailures_LabeledByKind(t *testing.T) {
	m := New()

	m.VendorFailures.WithLabelValues("clipdrop", "overloaded").Inc()
	m.VendorFailures.WithLabelValues("clipdrop", "overloaded").Inc()
	m.VendorFailures.WithLabelValues("clipdrop", "vendor").Inc()

	if got := testutil.ToFloat64(m.VendorFailures.WithLabelValues("clipdrop", "overloaded")); got != 2 {
		t.Errorf("overloaded failures = %v, want 2", got)
	}
	if got := testutil.CollectAndCount(m.VendorFailures); got != 2 {
		t.Errorf("series = %d, want 2", got)
	}
}

func TestNormalizeMethod(t *testing.T) {
	tests := []struct {
		method string
		want   string
	}{
		{"GET", "GET"},
		{"POST", "POST"},
		{"PUT", "PUT"},
		{"DELETE", "DELETE"},
		{"PATCH", "PATCH"},
		{"HEAD", "HEAD"},
		{"OPTIONS", "OPTIONS"},
		{"FOOBAR", "other"},
		{"get", "other"},
		{"", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			got := NormalizeMethod(tt.method)
			if got != tt.want {
				t.Errorf("NormalizeMethod(%q) = %q, want %q", tt.method, got, tt.want)
			}
		})
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/remove-background", "/api/remove-background"},
		{"/api/remove-background/raw", "/api/remove-background/raw"},
		{"/api/grammar-check/", "/api/grammar-check"},
		{"/api/quiz?x=1", "/api/quiz"},
		{"/healthz", "/healthz"},
		{"/status", "/status"},
		{"/metrics", "other"},
		{"/api/unknown", "other"},
		{"/", "other"},
		{"", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := NormalizePath(tt.path)
			if got != tt.want {
				t.Errorf("NormalizePath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestRoute_AddedPath(t *testing.T) {
	m := New()
	m.AddRoute("/internal/prom")

	tests := []struct {
		path string
		want string
	}{
		{"/internal/prom", "/internal/prom"},
		{"/internal/prom/", "/internal/prom"},
		{"/internal/prom?debug=1", "/internal/prom"},
		{"/api/quiz", "/api/quiz"},
		{"/metrics", "other"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := m.Route(tt.path); got != tt.want {
				t.Errorf("Route(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}
