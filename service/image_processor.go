package service

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"strings"

	"github.com/gen2brain/heic"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/atorhub/ANJ-Invoice-Creature-System-v2/dto"
)

type ImageProcessor interface {
	// ToPNG decodes any supported raster format and re-encodes it as PNG.
	ToPNG(data []byte, contentType string) ([]byte, error)
}

type imageProcessor struct{}

func NewImageProcessor() ImageProcessor {
	return &imageProcessor{}
}

func (p *imageProcessor) ToPNG(data []byte, contentType string) ([]byte, error) {
	if len(data) == 0 {
		return nil, dto.ErrEmptyFile
	}

	var (
		img image.Image
		err error
	)
	if isHEIC(data, contentType) {
		img, err = heic.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding HEIC image: %w", err)
		}
	} else {
		var format string
		img, format, err = image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: decoding image: %v", dto.ErrUnsupportedFile, err)
		}
		if format == "png" {
			return data, nil
		}
	}

	return encodePNG(img)
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// isHEIC checks the ftyp brand at offset 4 and falls back to the MIME type.
func isHEIC(data []byte, contentType string) bool {
	if len(data) >= 12 && string(data[4:8]) == "ftyp" {
		switch string(data[8:12]) {
		case "heic", "heix", "heif", "mif1", "msf1":
			return true
		}
	}
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "heic") || strings.Contains(ct, "heif")
}
