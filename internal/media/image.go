// Package media loads meal photos and encodes them for upload.
package media

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// MaxUploadSize bounds the form-encoded body of an upload request. The
// development backend rejects larger bodies with 413.
const MaxUploadSize = 32 << 20

// formOverhead is reserved for the other fields of an upload request.
const formOverhead = 64 << 10

// MaxImageSize is the largest image whose upload fits MaxUploadSize in the
// worst case: base64 turns 3 bytes into 4 characters and form encoding may
// escape every character into 3 bytes.
const MaxImageSize = (MaxUploadSize - formOverhead) / 3 / 4 * 3

var (
	ErrNotImage = errors.New("file is not an image")
	ErrTooLarge = errors.New("image is too large")
	ErrEmpty    = errors.New("image is empty")
)

// Image is a selected photo.
type Image struct {
	Name     string
	MIMEType string
	Data     []byte
}

// New wraps raw bytes, sniffing the MIME type from the content.
func New(name string, data []byte) (*Image, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	if len(data) > MaxImageSize {
		return nil, fmt.Errorf("%s: %w", name, ErrTooLarge)
	}
	mimeType := http.DetectContentType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, fmt.Errorf("%s (%s): %w", name, mimeType, ErrNotImage)
	}
	return &Image{Name: name, MIMEType: mimeType, Data: data}, nil
}

// Load reads an image file from disk.
func Load(path string) (*Image, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat image: %w", err)
	}
	if info.Size() > MaxImageSize {
		return nil, fmt.Errorf("%s: %w", path, ErrTooLarge)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	return New(filepath.Base(path), data)
}

// Base64 returns the standard base64 encoding of the image, without a
// data-URL prefix.
func (i *Image) Base64() string {
	return base64.StdEncoding.EncodeToString(i.Data)
}
