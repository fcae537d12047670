package page

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileCapturer(t *testing.T) {
	t.Parallel()

	raw := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}
	path := filepath.Join(t.TempDir(), "viewport.png")
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	c := &FileCapturer{Path: path}
	shot, err := c.Capture(context.Background())
	require.NoError(t, err)
	require.NotNil(t, shot)

	assert.Equal(t, "image/png", shot.MIMEType)
	decoded, err := base64.StdEncoding.DecodeString(shot.Base64)
	require.NoError(t, err)
	assert.Equal(t, raw, decoded)
}

func TestFileCapturerMissingFile(t *testing.T) {
	t.Parallel()

	c := &FileCapturer{Path: filepath.Join(t.TempDir(), "nope.png")}
	_, err := c.Capture(context.Background())
	assert.Error(t, err)
}

func TestFileCapturerEmptyFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "empty.png")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	c := &FileCapturer{Path: path}
	_, err := c.Capture(context.Background())
	assert.Error(t, err)
}

func TestFileCapturerCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := &FileCapturer{Path: "irrelevant.png"}
	_, err := c.Capture(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMimeTypeForFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want string
	}{
		{path: "shot.png", want: "image/png"},
		{path: "shot.JPG", want: "image/jpeg"},
		{path: "shot.jpeg", want: "image/jpeg"},
		{path: "shot.webp", want: "image/webp"},
		{path: "shot.gif", want: "image/gif"},
		{path: "shot.bin", want: "image/png"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, mimeTypeForFile(tt.path), "path %q", tt.path)
	}
}

func TestCapturerFunc(t *testing.T) {
	t.Parallel()

	want := &Shot{Base64: "aGk=", MIMEType: "image/png"}
	var c Capturer = CapturerFunc(func(context.Context) (*Shot, error) {
		return want, nil
	})

	got, err := c.Capture(context.Background())
	require.NoError(t, err)
	assert.Same(t, want, got)
}
