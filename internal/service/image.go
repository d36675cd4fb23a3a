package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/chaturvedibitan-tech/easyutilityhub-backend/internal/client"
	"github.com/chaturvedibitan-tech/easyutilityhub-backend/internal/config"
	"github.com/chaturvedibitan-tech/easyutilityhub-backend/internal/metrics"
	"github.com/chaturvedibitan-tech/easyutilityhub-backend/internal/model"
)

const (
	removeBGPath = "/v1.0/removebg"
	clipdropPath = "/remove-background/v1"

	clipdropField    = "image_file"
	clipdropFilename = "image.png"

	defaultImageType = "image/png"
)

// ImageService removes image backgrounds through remove.bg or ClipDrop.
type ImageService struct {
	c           *caller
	removeBGURL string
	clipdropURL string
	maxUpload   int64
}

// NewImageService creates an ImageService.
func NewImageService(up *client.Upstream, secrets *config.Secrets, cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *ImageService {
	return &ImageService{
		c:           newCaller(up, secrets, cfg, logger.With("component", "image_service"), m),
		removeBGURL: strings.TrimSuffix(cfg.RemoveBG.BaseURL, "/") + removeBGPath,
		clipdropURL: strings.TrimSuffix(cfg.Clipdrop.BaseURL, "/") + clipdropPath,
		maxUpload:   cfg.Server.BodyMaxBytes,
	}
}

// RemoveBackground forwards a multipart upload to remove.bg unchanged. The
// inbound Content-Type (with its boundary) and length are preserved. The first
// attempt streams straight from the inbound body; a retry replays the
// recorded bytes.
func (s *ImageService) RemoveBackground(ctx context.Context, in *model.ImageUpload) (*model.ImageResult, error) {
	if err := checkMultipart(in); err != nil {
		return nil, err
	}
	key, err := s.c.key(config.VendorRemoveBG)
	if err != nil {
		return nil, err
	}

	body := newReplayBody(in.Body)
	send := func(ctx context.Context, attempt int) (*model.UpstreamResponse, error) {
		header := http.Header{}
		header.Set("Content-Type", in.ContentType)
		header.Set("Accept", "image/*, application/json")
		header.Set("X-Api-Key", key)

		if attempt == 0 {
			resp, err := s.c.upstream.DoStream(ctx, config.VendorRemoveBG, http.MethodPost, s.removeBGURL, header, body, in.ContentLength)
			if err != nil {
				_ = body.Close()
			}
			// A failed upload read surfaces as a transport error, or not at all
			// when the vendor answered early. Either way the fault is inbound.
			if rerr := body.Err(); rerr != nil {
				if resp != nil {
					_ = resp.Body.Close()
				}
				return nil, uploadError(rerr)
			}
			return resp, err
		}

		replay, err := body.Replay()
		if err != nil {
			return nil, uploadError(err)
		}
		return s.c.upstream.DoStream(ctx, config.VendorRemoveBG, http.MethodPost, s.removeBGURL, header, replay, replay.Size())
	}

	return invoke(ctx, s.c, config.VendorRemoveBG, send, imageResult(config.VendorRemoveBG))
}

// RemoveBackgroundRaw reads a raw image body, wraps it in a multipart form
// under the field ClipDrop expects and sends it.
func (s *ImageService) RemoveBackgroundRaw(ctx context.Context, in *model.ImageUpload) (*model.ImageResult, error) {
	key, err := s.c.key(config.VendorClipdrop)
	if err != nil {
		return nil, err
	}
	if in == nil || in.Body == nil {
		return nil, invalidInput("No image data received.")
	}

	r := in.Body
	if s.maxUpload > 0 {
		r = io.LimitReader(in.Body, s.maxUpload+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &Error{Kind: KindInvalidInput, Message: "Could not read the uploaded image.", Err: err}
	}
	if len(data) == 0 {
		return nil, invalidInput("No image data received.")
	}
	if s.maxUpload > 0 && int64(len(data)) > s.maxUpload {
		return nil, invalidInput(fmt.Sprintf("Image exceeds the %d byte limit.", s.maxUpload))
	}

	detected := mimetype.Detect(data)
	if !strings.HasPrefix(detected.String(), "image/") {
		return nil, invalidInput("Uploaded file is not an image.")
	}

	payload, contentType, err := repackage(data, detected.String())
	if err != nil {
		return nil, fmt.Errorf("build multipart payload: %w", err)
	}

	send := func(ctx context.Context, _ int) (*model.UpstreamResponse, error) {
		header := http.Header{}
		header.Set("Content-Type", contentType)
		header.Set("x-api-key", key)
		return s.c.upstream.DoStream(ctx, config.VendorClipdrop, http.MethodPost, s.clipdropURL, header, bytes.NewReader(payload), int64(len(payload)))
	}

	return invoke(ctx, s.c, config.VendorClipdrop, send, imageResult(config.VendorClipdrop))
}

// uploadError keeps the read failure as the cause, so a body-limit
// rejection still reaches the caller as 413.
func uploadError(err error) *Error {
	return &Error{Kind: KindInvalidInput, Message: "Could not read the uploaded image.", Err: err}
}

func checkMultipart(in *model.ImageUpload) error {
	if in == nil || in.Body == nil || in.ContentLength == 0 {
		return invalidInput("No image data received.")
	}
	mt, params, err := mime.ParseMediaType(in.ContentType)
	if err != nil || mt != "multipart/form-data" || params["boundary"] == "" {
		return invalidInput("Expected a multipart/form-data upload.")
	}
	return nil
}

// repackage wraps data in a multipart body with a single file part.
func repackage(data []byte, partType string) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, clipdropField, clipdropFilename))
	h.Set("Content-Type", partType)
	fw, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := fw.Write(data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func imageResult(vendor string) func(*response) (*model.ImageResult, error) {
	return func(resp *response) (*model.ImageResult, error) {
		ct := resp.Header.Get("Content-Type")
		if len(resp.Body) == 0 || strings.HasPrefix(ct, "application/json") {
			return nil, &Error{
				Kind:    KindMalformedResponse,
				Vendor:  vendor,
				Status:  resp.Status,
				Message: fmt.Sprintf("%s returned no image.", displayName(vendor)),
			}
		}
		if ct == "" {
			ct = defaultImageType
		}
		return &model.ImageResult{ContentType: ct, Data: resp.Body}, nil
	}
}
