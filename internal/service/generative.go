package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/chaturvedibitan-tech/easyutilityhub-backend/internal/client"
	"github.com/chaturvedibitan-tech/easyutilityhub-backend/internal/config"
	"github.com/chaturvedibitan-tech/easyutilityhub-backend/internal/metrics"
	"github.com/chaturvedibitan-tech/easyutilityhub-backend/internal/model"
)

// blockedFinishReasons end a candidate without usable content.
var blockedFinishReasons = map[string]bool{
	"SAFETY":             true,
	"RECITATION":         true,
	"BLOCKLIST":          true,
	"PROHIBITED_CONTENT": true,
	"SPII":               true,
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature      *float64      `json:"temperature,omitempty"`
	ResponseMIMEType string        `json:"responseMimeType,omitempty"`
	ResponseSchema   *model.Schema `json:"responseSchema,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// GenerativeService runs the Gemini-backed text tools.
type GenerativeService struct {
	c           *caller
	endpoint    string
	temperature float64
}

// NewGenerativeService creates a GenerativeService for the configured model.
func NewGenerativeService(up *client.Upstream, secrets *config.Secrets, cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *GenerativeService {
	endpoint := strings.TrimSuffix(cfg.Gemini.BaseURL, "/") +
		"/v1beta/models/" + url.PathEscape(cfg.Gemini.Model) + ":generateContent"

	return &GenerativeService{
		c:           newCaller(up, secrets, cfg, logger.With("component", "generative_service"), m),
		endpoint:    endpoint,
		temperature: cfg.Gemini.Temperature,
	}
}

// GenerateText sends prompt without an output schema and returns the
// candidate text.
func (s *GenerativeService) GenerateText(ctx context.Context, prompt string) (string, error) {
	key, err := s.c.key(config.VendorGemini)
	if err != nil {
		return "", err
	}
	payload, err := s.payload(prompt, nil)
	if err != nil {
		return "", err
	}

	return invoke(ctx, s.c, config.VendorGemini, s.send(key, payload), func(resp *response) (string, error) {
		text, err := candidateText(resp)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(text), nil
	})
}

// generateJSON asks for output matching schema and decodes it into T. Every
// field the schema marks required must be present in the reply. A non-nil
// check inspects the decoded value and returns a non-empty reason to reject it.
func generateJSON[T any](ctx context.Context, s *GenerativeService, prompt string, schema *model.Schema, check func(*T) string) (*T, error) {
	key, err := s.c.key(config.VendorGemini)
	if err != nil {
		return nil, err
	}
	payload, err := s.payload(prompt, schema)
	if err != nil {
		return nil, err
	}

	return invoke(ctx, s.c, config.VendorGemini, s.send(key, payload), func(resp *response) (*T, error) {
		text, err := candidateText(resp)
		if err != nil {
			return nil, err
		}
		out, err := decodeStructured[T](resp.Status, text, schema)
		if err != nil {
			return nil, err
		}
		if check != nil {
			if reason := check(out); reason != "" {
				return nil, malformed(resp.Status, reason, nil)
			}
		}
		return out, nil
	})
}

func (s *GenerativeService) payload(prompt string, schema *model.Schema) ([]byte, error) {
	req := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
	}
	if s.temperature > 0 {
		t := s.temperature
		req.GenerationConfig.Temperature = &t
	}
	if schema != nil {
		req.GenerationConfig.ResponseMIMEType = "application/json"
		req.GenerationConfig.ResponseSchema = schema
	}
	b, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode generate request: %w", err)
	}
	return b, nil
}

func (s *GenerativeService) send(key string, payload []byte) sendFunc {
	return func(ctx context.Context, _ int) (*model.UpstreamResponse, error) {
		header := http.Header{}
		header.Set("Content-Type", "application/json")
		header.Set("x-goog-api-key", key)
		return s.c.upstream.DoStream(ctx, config.VendorGemini, http.MethodPost, s.endpoint, header, bytes.NewReader(payload), int64(len(payload)))
	}
}

// candidateText returns the first candidate's text, or a blocked or
// malformed error.
func candidateText(resp *response) (string, error) {
	var gr generateResponse
	if err := json.Unmarshal(resp.Body, &gr); err != nil {
		return "", malformed(resp.Status, "response is not valid JSON", err)
	}
	if gr.PromptFeedback != nil && gr.PromptFeedback.BlockReason != "" {
		return "", blocked(resp.Status, gr.PromptFeedback.BlockReason)
	}
	if len(gr.Candidates) == 0 {
		return "", malformed(resp.Status, "response has no candidates", nil)
	}

	cand := gr.Candidates[0]
	if blockedFinishReasons[cand.FinishReason] {
		return "", blocked(resp.Status, cand.FinishReason)
	}

	var sb strings.Builder
	for _, p := range cand.Content.Parts {
		sb.WriteString(p.Text)
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", malformed(resp.Status, "response has no text", nil)
	}
	return sb.String(), nil
}

// decodeStructured parses text as JSON into T after checking the schema's
// required top-level fields are present and non-null.
func decodeStructured[T any](status int, text string, schema *model.Schema) (*T, error) {
	raw := []byte(stripCodeFence(text))

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, malformed(status, "output is not a JSON object", err)
	}
	if schema != nil {
		for _, name := range schema.Required {
			v, ok := fields[name]
			if !ok || string(v) == "null" {
				return nil, malformed(status, fmt.Sprintf("output is missing %q", name), nil)
			}
		}
	}

	out := new(T)
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, malformed(status, "output does not match the expected shape", err)
	}
	return out, nil
}

// stripCodeFence removes a surrounding ```json ... ``` block if present.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func malformed(status int, detail string, err error) *Error {
	e := &Error{
		Kind:    KindMalformedResponse,
		Vendor:  config.VendorGemini,
		Status:  status,
		Message: "Received a malformed response from Gemini.",
		Err:     errors.New(detail),
	}
	if err != nil {
		e.Err = fmt.Errorf("%s: %w", detail, err)
	}
	return e
}

func blocked(status int, reason string) *Error {
	return &Error{
		Kind:    KindBlockedContent,
		Vendor:  config.VendorGemini,
		Status:  status,
		Message: "The request was blocked by the content safety filter.",
		Err:     fmt.Errorf("block reason %s", reason),
	}
}
