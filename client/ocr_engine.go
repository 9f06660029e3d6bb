package client

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/atorhub/ANJ-Invoice-Creature-System-v2/logger"
)

// ErrNoOCRText is returned when an engine ran but recognised nothing.
var ErrNoOCRText = errors.New("ocr produced no text")

// OCREngine recognises text in an encoded raster image (PNG, JPEG or GIF).
type OCREngine interface {
	Name() string
	ExtractText(ctx context.Context, img []byte) (string, error)
}

// ChainEngine tries each engine in order and returns the first non-empty
// result.
type ChainEngine struct {
	engines []OCREngine
}

func NewChainEngine(engines ...OCREngine) *ChainEngine {
	return &ChainEngine{engines: engines}
}

func (c *ChainEngine) Name() string {
	names := make([]string, 0, len(c.engines))
	for _, e := range c.engines {
		names = append(names, e.Name())
	}
	return strings.Join(names, ">")
}

func (c *ChainEngine) ExtractText(ctx context.Context, img []byte) (string, error) {
	log := logger.FromContext(ctx)

	var errs []error
	for _, e := range c.engines {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		text, err := e.ExtractText(ctx, img)
		if err == nil && strings.TrimSpace(text) != "" {
			return text, nil
		}
		if err == nil {
			err = ErrNoOCRText
		}
		log.Warn().Err(err).Str("engine", e.Name()).Msg("OCR engine failed, trying next")
		errs = append(errs, fmt.Errorf("%s: %w", e.Name(), err))
	}

	if len(errs) == 0 {
		return "", fmt.Errorf("no OCR engine configured: %w", ErrNoOCRText)
	}
	return "", errors.Join(errs...)
}
