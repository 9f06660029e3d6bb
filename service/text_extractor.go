package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/sync/errgroup"

	"github.com/atorhub/ANJ-Invoice-Creature-System-v2/client"
	"github.com/atorhub/ANJ-Invoice-Creature-System-v2/dto"
	"github.com/atorhub/ANJ-Invoice-Creature-System-v2/logger"
)

// minEmbeddedText is the number of non-space characters below which a PDF is
// treated as scanned and its pages are OCR'd.
const minEmbeddedText = 20

// TextExtractor recovers raw text from an uploaded document.
type TextExtractor interface {
	Extract(ctx context.Context, doc dto.Document) (dto.Extraction, error)
}

type textExtractor struct {
	pdf     PDFProcessor
	images  ImageProcessor
	ocr     client.OCREngine
	workers int
}

func NewTextExtractor(pdf PDFProcessor, images ImageProcessor, ocr client.OCREngine, workers int) TextExtractor {
	if workers < 1 {
		workers = 1
	}
	return &textExtractor{
		pdf:     pdf,
		images:  images,
		ocr:     ocr,
		workers: workers,
	}
}

func (e *textExtractor) Extract(ctx context.Context, doc dto.Document) (dto.Extraction, error) {
	if len(doc.Data) == 0 {
		return dto.Extraction{}, dto.ErrEmptyFile
	}

	log := logger.FromContext(ctx).With().
		Str("file", doc.Filename).
		Str("kind", string(doc.Kind())).
		Bool("force_ocr", doc.ForceOCR).
		Logger()
	ctx = logger.WithContext(ctx, log)

	switch doc.Kind() {
	case dto.KindText:
		return dto.Extraction{Text: string(doc.Data), Source: dto.SourceText}, nil
	case dto.KindImage:
		return e.extractImage(ctx, doc)
	default:
		return e.extractPDF(ctx, doc)
	}
}

func (e *textExtractor) extractImage(ctx context.Context, doc dto.Document) (dto.Extraction, error) {
	png, err := e.images.ToPNG(doc.Data, doc.ContentType)
	if err != nil {
		return dto.Extraction{}, err
	}

	text, err := e.recognise(ctx, png)
	if err != nil {
		return dto.Extraction{}, err
	}
	return dto.Extraction{Text: text, Source: dto.SourceOCR, Pages: 1}, nil
}

func (e *textExtractor) extractPDF(ctx context.Context, doc dto.Document) (dto.Extraction, error) {
	log := logger.FromContext(ctx)

	if doc.ForceOCR {
		return e.ocrPDF(ctx, doc)
	}

	text, pages, err := e.pdf.ExtractText(doc.Data)
	if err != nil {
		log.Warn().Err(err).Msg("PDF text extraction failed, falling back to OCR")
		res, ocrErr := e.ocrPDF(ctx, doc)
		if ocrErr == nil {
			return res, nil
		}
		if errors.Is(ocrErr, context.Canceled) || errors.Is(ocrErr, context.DeadlineExceeded) {
			return dto.Extraction{}, ocrErr
		}
		log.Warn().Err(ocrErr).Msg("page OCR failed, trying the raw upload as an image")
		return e.extractImage(ctx, doc)
	}

	if countNonSpace(text) >= minEmbeddedText {
		log.Debug().Int("pages", pages).Msg("using embedded PDF text")
		return dto.Extraction{Text: text, Source: dto.SourcePDF, Pages: pages}, nil
	}

	log.Info().Int("pages", pages).Msg("PDF has little embedded text, running OCR on pages")
	res, err := e.ocrPDF(ctx, doc)
	if err == nil {
		return res, nil
	}
	if strings.TrimSpace(text) != "" {
		log.Warn().Err(err).Msg("page OCR failed, keeping sparse embedded text")
		return dto.Extraction{Text: text, Source: dto.SourcePDF, Pages: pages}, nil
	}
	return dto.Extraction{}, err
}

// ocrPDF rasterises the pages (or, failing that, pulls their embedded
// images) and OCRs them concurrently, keeping page order.
func (e *textExtractor) ocrPDF(ctx context.Context, doc dto.Document) (dto.Extraction, error) {
	log := logger.FromContext(ctx)

	pages, err := e.pdf.RenderPages(ctx, doc.Data)
	if err != nil || len(pages) == 0 {
		if err != nil {
			log.Warn().Err(err).Msg("PDF rendering failed, extracting embedded images")
		}
		pages, err = e.pdf.ExtractImages(doc.Data)
		if err != nil {
			return dto.Extraction{}, fmt.Errorf("%w: %v", dto.ErrNoText, err)
		}
	}
	if len(pages) == 0 {
		return dto.Extraction{}, fmt.Errorf("%w: no page images in PDF", dto.ErrNoText)
	}

	texts := make([]string, len(pages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, page := range pages {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			text, err := e.ocr.ExtractText(gctx, page)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log.Warn().Err(err).Int("page", i+1).Msg("page OCR failed")
				return nil
			}
			texts[i] = strings.TrimSpace(text)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return dto.Extraction{}, err
	}

	text := joinNonEmpty(texts)
	if text == "" {
		return dto.Extraction{}, dto.ErrNoText
	}
	return dto.Extraction{Text: text, Source: dto.SourcePDFOCR, Pages: len(pages)}, nil
}

// recognise runs OCR over one image and maps an empty result to ErrNoText.
func (e *textExtractor) recognise(ctx context.Context, png []byte) (string, error) {
	text, err := e.ocr.ExtractText(ctx, png)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: %v", dto.ErrNoText, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", dto.ErrNoText
	}
	return text, nil
}

func countNonSpace(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}

func joinNonEmpty(parts []string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n")
}
