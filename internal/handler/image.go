package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/chaturvedibitan-tech/easyutilityhub-backend/internal/model"
	"github.com/chaturvedibitan-tech/easyutilityhub-backend/internal/service"
)

// ImageHandler serves the background-removal routes.
type ImageHandler struct {
	images *service.ImageService
	logger *slog.Logger
}

// NewImageHandler creates an ImageHandler.
func NewImageHandler(images *service.ImageService, logger *slog.Logger) *ImageHandler {
	return &ImageHandler{images: images, logger: logger.With("component", "image_handler")}
}

// RemoveBackground forwards a multipart upload to remove.bg.
func (h *ImageHandler) RemoveBackground(c echo.Context) error {
	res, err := h.images.RemoveBackground(c.Request().Context(), upload(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.Blob(http.StatusOK, res.ContentType, res.Data)
}

// RemoveBackgroundRaw forwards a raw image body to ClipDrop.
func (h *ImageHandler) RemoveBackgroundRaw(c echo.Context) error {
	res, err := h.images.RemoveBackgroundRaw(c.Request().Context(), upload(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.Blob(http.StatusOK, res.ContentType, res.Data)
}

func upload(c echo.Context) *model.ImageUpload {
	req := c.Request()
	return &model.ImageUpload{
		ContentType:   req.Header.Get(echo.HeaderContentType),
		ContentLength: req.ContentLength,
		Body:          req.Body,
	}
}

// respondError writes err as the error envelope. Framework errors such as a
// body-limit rejection are returned so the central error handler sees them.
func respondError(c echo.Context, logger *slog.Logger, err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return err
	}
	return writeError(c, logger, err)
}
