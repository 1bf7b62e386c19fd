package ocr

import (
	"strings"
	"testing"
)

func TestDataURL(t *testing.T) {
	// Minimal PNG signature is enough for content sniffing.
	png := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	url := dataURL(png)
	if !strings.HasPrefix(url, "data:image/png;base64,") {
		t.Errorf("expected PNG data URL prefix, got %q", url[:min(len(url), 40)])
	}

	jpeg := []byte{0xff, 0xd8, 0xff, 0xe0}
	url = dataURL(jpeg)
	if !strings.HasPrefix(url, "data:image/jpeg;base64,") {
		t.Errorf("expected JPEG data URL prefix, got %q", url[:min(len(url), 40)])
	}

	// Unrecognized bytes still produce a well-formed data URL.
	url = dataURL([]byte("plain text"))
	if !strings.HasPrefix(url, "data:") || !strings.Contains(url, ";base64,") {
		t.Errorf("expected data URL, got %q", url)
	}
}
