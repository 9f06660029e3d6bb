package service

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atorhub/ANJ-Invoice-Creature-System-v2/dto"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	img.Set(2, 2, color.Black)
	return img
}

func TestToPNGConvertsJPEG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, testImage(), nil))

	out, err := NewImageProcessor().ToPNG(buf.Bytes(), "image/jpeg")

	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, pngMagic))
}

func TestToPNGKeepsPNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage()))

	out, err := NewImageProcessor().ToPNG(buf.Bytes(), "image/png")

	require.NoError(t, err)
	assert.Equal(t, buf.Bytes(), out)
}

func TestToPNGRejectsGarbage(t *testing.T) {
	_, err := NewImageProcessor().ToPNG([]byte("definitely not an image"), "")

	assert.ErrorIs(t, err, dto.ErrUnsupportedFile)
}

func TestToPNGEmpty(t *testing.T) {
	_, err := NewImageProcessor().ToPNG(nil, "image/png")

	assert.ErrorIs(t, err, dto.ErrEmptyFile)
}

func TestIsHEIC(t *testing.T) {
	heicHeader := []byte("\x00\x00\x00\x18ftypheic\x00\x00\x00\x00")

	assert.True(t, isHEIC(heicHeader, ""))
	assert.True(t, isHEIC([]byte("xx"), "image/HEIF"))
	assert.False(t, isHEIC([]byte("\x00\x00\x00\x18ftypisom"), "video/mp4"))
	assert.False(t, isHEIC(nil, "image/jpeg"))
}
