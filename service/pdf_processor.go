package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// extractedImageName matches pdfcpu's "<doc>_<page>_<id>.<ext>" output names.
var extractedImageName = regexp.MustCompile(`_(\d+)_[^_]*\.[A-Za-z0-9]+$`)

const (
	// maxPDFPages caps how many pages are read or rendered per document.
	maxPDFPages = 10
	// renderDPI is the resolution scanned pages are rasterised at for OCR.
	renderDPI = 300
)

type PDFProcessor interface {
	// ExtractText returns the embedded text of the first pages, one line per
	// text row, and the number of pages read.
	ExtractText(pdfData []byte) (string, int, error)
	// RenderPages rasterises the first pages to PNG.
	RenderPages(ctx context.Context, pdfData []byte) ([][]byte, error)
	// ExtractImages returns the images embedded in the first pages as PNG.
	ExtractImages(pdfData []byte) ([][]byte, error)
}

type pdfProcessor struct{}

func NewPDFProcessor() PDFProcessor {
	return &pdfProcessor{}
}

func (p *pdfProcessor) ExtractText(pdfData []byte) (string, int, error) {
	r, err := pdf.NewReader(bytes.NewReader(pdfData), int64(len(pdfData)))
	if err != nil {
		return "", 0, fmt.Errorf("opening PDF: %w", err)
	}

	pages := min(r.NumPage(), maxPDFPages)

	var textBuilder strings.Builder
	for pageIndex := 1; pageIndex <= pages; pageIndex++ {
		page := r.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		rows, err := page.GetTextByRow()
		if err != nil {
			return "", 0, fmt.Errorf("reading page %d: %w", pageIndex, err)
		}
		for _, row := range rows {
			words := make([]string, 0, len(row.Content))
			for _, word := range row.Content {
				words = append(words, word.S)
			}
			textBuilder.WriteString(strings.Join(words, " "))
			textBuilder.WriteString("\n")
		}
	}
	return textBuilder.String(), pages, nil
}

func (p *pdfProcessor) RenderPages(ctx context.Context, pdfData []byte) ([][]byte, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, fmt.Errorf("opening PDF for rendering: %w", err)
	}
	defer doc.Close()

	pages := min(doc.NumPage(), maxPDFPages)
	out := make([][]byte, 0, pages)
	for i := 0; i < pages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		img, err := doc.ImageDPI(i, renderDPI)
		if err != nil {
			return nil, fmt.Errorf("rendering page %d: %w", i+1, err)
		}
		png, err := encodePNG(img)
		if err != nil {
			return nil, err
		}
		out = append(out, png)
	}
	return out, nil
}

func (p *pdfProcessor) ExtractImages(pdfData []byte) ([][]byte, error) {
	tempDir, err := os.MkdirTemp("", "anj-pdf-images")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	pdfPath := filepath.Join(tempDir, "doc.pdf")
	if err := os.WriteFile(pdfPath, pdfData, 0600); err != nil {
		return nil, fmt.Errorf("failed to write pdf data: %w", err)
	}

	outDir := filepath.Join(tempDir, "images")
	if err := os.Mkdir(outDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create image dir: %w", err)
	}

	selected := []string{fmt.Sprintf("1-%d", maxPDFPages)}
	if err := api.ExtractImagesFile(pdfPath, outDir, selected, model.NewDefaultConfiguration()); err != nil {
		return nil, fmt.Errorf("failed to extract images: %w", err)
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read image dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sortByPage(names)

	var images [][]byte
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(outDir, name))
		if err != nil {
			continue
		}
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			continue
		}
		png, err := encodePNG(img)
		if err != nil {
			continue
		}
		images = append(images, png)
	}
	return images, nil
}

// sortByPage orders extracted image files by page number, then by name.
// Names without a page number sort last.
func sortByPage(names []string) {
	page := func(name string) int {
		m := extractedImageName.FindStringSubmatch(name)
		if m == nil {
			return math.MaxInt
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return math.MaxInt
		}
		return n
	}
	sort.SliceStable(names, func(i, j int) bool {
		pi, pj := page(names[i]), page(names[j])
		if pi != pj {
			return pi < pj
		}
		return names[i] < names[j]
	})
}
