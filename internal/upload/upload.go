// Package upload turns application documents into base64 model.Documents.
package upload

import (
	"encoding/base64"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"hostel-allocation-backend/internal/apperr"
	"hostel-allocation-backend/internal/model"
)

const (
	DefaultMaxBytes int64 = 5 << 20
	DefaultMIMEType       = "application/pdf"
)

// Encoder enforces a size limit and a single accepted MIME type.
type Encoder struct {
	maxBytes int64
	mimeType string
}

// NewEncoder returns an Encoder; non-positive or empty values fall back to the defaults.
func NewEncoder(maxBytes int64, mimeType string) *Encoder {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if mimeType == "" {
		mimeType = DefaultMIMEType
	}
	return &Encoder{maxBytes: maxBytes, mimeType: mimeType}
}

// Encode reads r with the default limits.
func Encode(r io.Reader, name string) (model.Document, error) {
	return NewEncoder(0, "").Encode(r, name)
}

// MaxBytes is the accepted upper bound of one document.
func (e *Encoder) MaxBytes() int64 { return e.maxBytes }

// Encode reads the whole document, sniffs its content type and returns it base64-encoded.
func (e *Encoder) Encode(r io.Reader, name string) (model.Document, error) {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return model.Document{}, apperr.Validation("document name is required")
	}

	data, err := io.ReadAll(io.LimitReader(r, e.maxBytes+1))
	if err != nil {
		return model.Document{}, apperr.Validation("failed to read document %s", name)
	}
	if len(data) == 0 {
		return model.Document{}, apperr.Validation("document %s is empty", name)
	}
	if int64(len(data)) > e.maxBytes {
		return model.Document{}, apperr.Validation("document %s exceeds the %s limit", name, humanSize(e.maxBytes))
	}

	detected := mimetype.Detect(data)
	if !detected.Is(e.mimeType) {
		return model.Document{}, apperr.Validation("document %s must be %s, got %s", name, e.mimeType, detected.String())
	}

	return model.Document{
		Name:     name,
		MIMEType: e.mimeType,
		Size:     int64(len(data)),
		Data:     base64.StdEncoding.EncodeToString(data),
	}, nil
}

func humanSize(n int64) string {
	switch {
	case n >= 1<<20 && n%(1<<20) == 0:
		return fmt.Sprintf("%d MB", n>>20)
	case n >= 1<<10 && n%(1<<10) == 0:
		return fmt.Sprintf("%d KB", n>>10)
	}
	return fmt.Sprintf("%d bytes", n)
}
