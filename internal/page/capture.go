package page

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CapturerFunc adapts a function to the Capturer interface.
type CapturerFunc func(ctx context.Context) (*Shot, error)

// Capture implements Capturer.
func (f CapturerFunc) Capture(ctx context.Context) (*Shot, error) {
	return f(ctx)
}

// FileCapturer is a Capturer that returns the contents of an image file on
// every capture. It backs the console harness, where no live viewport
// exists; the file stands in for the screenshot.
type FileCapturer struct {
	// Path is the image file to return.
	Path string
}

// Capture implements Capturer.
func (c *FileCapturer) Capture(ctx context.Context) (*Shot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(c.Path)
	if err != nil {
		return nil, fmt.Errorf("reading screenshot file: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("screenshot file %s is empty", c.Path)
	}

	return &Shot{
		Base64:   base64.StdEncoding.EncodeToString(data),
		MIMEType: mimeTypeForFile(c.Path),
	}, nil
}

// mimeTypeForFile maps an image file extension to its media type. Unknown
// extensions fall back to image/png.
func mimeTypeForFile(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	default:
		return "image/png"
	}
}
