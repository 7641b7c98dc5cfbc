// Package screenshot captures the primary display for screen-aware prompts.
// Captures are downscaled before leaving the process so a 4K desktop does not
// blow up the vision model's input budget.
package screenshot

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-vgo/robotgo"
)

// DefaultMaxWidth bounds the longer screenshot dimension sent to the model.
const DefaultMaxWidth = 1024

// Capturer grabs and prepares screenshots.
type Capturer struct {
	maxWidth int
	savePath string // optional, keeps a PNG copy of the last capture
}

// New creates a Capturer. maxWidth <= 0 selects DefaultMaxWidth; savePath is
// optional.
func New(maxWidth int, savePath string) *Capturer {
	if maxWidth <= 0 {
		maxWidth = DefaultMaxWidth
	}
	return &Capturer{maxWidth: maxWidth, savePath: savePath}
}

// Capture grabs the primary display and returns it as base64-encoded PNG,
// downscaled to the configured width.
func (c *Capturer) Capture() (string, error) {
	img, err := robotgo.CaptureImg()
	if err != nil {
		return "", fmt.Errorf("screenshot: capture display: %w", err)
	}
	return c.encode(img)
}

// encode downscales, optionally persists, and base64-encodes an image.
// Split from Capture so tests can exercise it without a display.
func (c *Capturer) encode(img image.Image) (string, error) {
	scaled := downscale(img, c.maxWidth)

	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return "", fmt.Errorf("screenshot: encode png: %w", err)
	}

	if c.savePath != "" {
		if err := c.save(buf.Bytes()); err != nil {
			slog.Warn("screenshot save failed", "path", c.savePath, "error", err)
		}
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func (c *Capturer) save(data []byte) error {
	if err := os.MkdirAll(filepath.Dir(c.savePath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(c.savePath, data, 0o644)
}

// downscale shrinks img so its width is at most maxWidth, preserving aspect
// ratio with nearest-neighbor sampling. Text stays legible enough for vision
// models at this scale, and it avoids pulling in an image processing
// dependency for a single resize.
func downscale(img image.Image, maxWidth int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxWidth {
		return img
	}

	newW := maxWidth
	newH := h * maxWidth / w
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	for y := 0; y < newH; y++ {
		srcY := bounds.Min.Y + y*h/newH
		for x := 0; x < newW; x++ {
			srcX := bounds.Min.X + x*w/newW
			dst.Set(x, y, img.At(srcX, srcY))
		}
	}
	return dst
}
