// Package model defines shared request, response and schema types.
package model

import (
	"io"
	"net/http"
)

// UpstreamResponse is a vendor response whose body has not been read yet.
type UpstreamResponse struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}

// ImageUpload is an inbound image body forwarded as-is.
type ImageUpload struct {
	ContentType   string
	ContentLength int64
	Body          io.Reader
}

// ImageResult is a processed image returned by a vendor.
type ImageResult struct {
	ContentType string
	Data        []byte
}
