package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/chaturvedibitan-tech/easyutilityhub-backend/internal/model"
	"github.com/chaturvedibitan-tech/easyutilityhub-backend/internal/service"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) model.ErrorResponse {
	t.Helper()
	var env model.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal envelope %q: %v", rec.Body.String(), err)
	}
	return env
}

func TestSanitizeError(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"query key", "Get https://x/v1?key=abc123&alt=json: EOF", "Get https://x/v1?key=[REDACTED]&alt=json: EOF"},
		{"api_key", "bad api_key=secret", "bad api_key=[REDACTED]"},
		{"header form", "x-api-key: secret failed", "x-api-key: [REDACTED] failed"},
		{"no key", "connection refused", "connection refused"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeError(errors.New(tt.in)); got != tt.want {
				t.Errorf("sanitizeError(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestWriteError_StatusMapping(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantMessage string
	}{
		{
			name:        "invalid input",
			err:         &service.Error{Kind: service.KindInvalidInput, Message: "text is required."},
			wantStatus:  http.StatusBadRequest,
			wantMessage: "text is required.",
		},
		{
			name:        "configuration",
			err:         &service.Error{Kind: service.KindConfiguration, Vendor: "gemini", Message: "Server configuration error."},
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "Server configuration error.",
		},
		{
			name:        "wrapped overloaded",
			err:         fmt.Errorf("tool: %w", &service.Error{Kind: service.KindOverloaded, Message: "Gemini is overloaded right now. Please try again in a moment."}),
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "Gemini is overloaded right now. Please try again in a moment.",
		},
		{
			name:        "wrapped invalid input",
			err:         fmt.Errorf("bind: %w", &service.Error{Kind: service.KindInvalidInput, Message: "Bad."}),
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Bad.",
		},
		{
			name:        "untyped",
			err:         errors.New("boom"),
			wantStatus:  http.StatusInternalServerError,
			wantMessage: genericMessage,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodPost, "/api/quiz", http.NoBody), rec)

			if err := writeError(c, discardLogger(), tt.err); err != nil {
				t.Fatalf("writeError: %v", err)
			}
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			env := decodeEnvelope(t, rec)
			if env.Success || env.Message != tt.wantMessage {
				t.Errorf("envelope = %+v, want message %q", env, tt.wantMessage)
			}
		})
	}
}

func TestHTTPErrorHandler(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantMessage string
	}{
		{"not found", echo.ErrNotFound, http.StatusNotFound, "Not found."},
		{"method not allowed", echo.ErrMethodNotAllowed, http.StatusMethodNotAllowed, "Method not allowed."},
		{"too large", echo.ErrStatusRequestEntityTooLarge, http.StatusRequestEntityTooLarge, "Request body is too large."},
		{"rate limited", echo.NewHTTPError(http.StatusTooManyRequests, "slow down"), http.StatusTooManyRequests, "Too many requests. Please slow down."},
		{"internal", echo.NewHTTPError(http.StatusInternalServerError, "panic: key=abc"), http.StatusInternalServerError, genericMessage},
		{"custom client error", echo.NewHTTPError(http.StatusConflict, "Busy."), http.StatusConflict, "Busy."},
		{"service error", &service.Error{Kind: service.KindInvalidInput, Message: "Bad."}, http.StatusBadRequest, "Bad."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodPost, "/api/quiz", http.NoBody), rec)

			NewHTTPErrorHandler(discardLogger())(tt.err, c)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			env := decodeEnvelope(t, rec)
			if env.Success || env.Message != tt.wantMessage {
				t.Errorf("envelope = %+v, want message %q", env, tt.wantMessage)
			}
		})
	}
}

func TestHTTPErrorHandler_SkipsCommitted(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", http.NoBody), rec)
	if err := c.String(http.StatusOK, "done"); err != nil {
		t.Fatal(err)
	}

	NewHTTPErrorHandler(discardLogger())(echo.ErrNotFound, c)

	if rec.Code != http.StatusOK || rec.Body.String() != "done" {
		t.Errorf("committed response was rewritten: %d %q", rec.Code, rec.Body.String())
	}
}
