package media

import (
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// pngHeader is enough for content sniffing.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestNewDetectsType(t *testing.T) {
	img, err := New("meal.png", pngHeader)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if img.MIMEType != "image/png" {
		t.Errorf("MIMEType = %q, want image/png", img.MIMEType)
	}

	decoded, err := base64.StdEncoding.DecodeString(img.Base64())
	if err != nil || string(decoded) != string(pngHeader) {
		t.Errorf("Base64 round trip failed: %v", err)
	}
}

func TestNewRejects(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrEmpty},
		{"text", []byte("hello, world"), ErrNotImage},
		{"too large", make([]byte, MaxImageSize+1), ErrTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.name, tt.data); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lunch.png")
	if err := os.WriteFile(path, pngHeader, 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	img, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if img.Name != "lunch.png" {
		t.Errorf("Name = %q", img.Name)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("expected error for missing file")
	}
}
