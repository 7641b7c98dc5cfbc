package screenshot

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), A: 255})
		}
	}
	return img
}

func TestDownscaleWideImage(t *testing.T) {
	out := downscale(testImage(2048, 1152), 1024)
	b := out.Bounds()
	if b.Dx() != 1024 {
		t.Fatalf("width = %d, want 1024", b.Dx())
	}
	if b.Dy() != 576 {
		t.Fatalf("height = %d, want 576 (aspect preserved)", b.Dy())
	}
}

func TestDownscaleSmallImageUnchanged(t *testing.T) {
	src := testImage(800, 600)
	out := downscale(src, 1024)
	if out != src {
		t.Fatal("image narrower than maxWidth should be returned as-is")
	}
}

func TestEncodeProducesValidPNG(t *testing.T) {
	c := New(64, "")
	b64, err := c.encode(testImage(128, 64))
	if err != nil {
		t.Fatalf("encode error: %v", err)
	}

	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		t.Fatalf("output is not valid base64: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not valid png: %v", err)
	}
	if img.Bounds().Dx() != 64 {
		t.Fatalf("decoded width = %d, want 64", img.Bounds().Dx())
	}
}

func TestEncodeSavesCopy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "captures", "last.png")
	c := New(64, path)

	if _, err := c.encode(testImage(128, 64)); err != nil {
		t.Fatalf("encode error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("saved copy missing: %v", err)
	}
}
