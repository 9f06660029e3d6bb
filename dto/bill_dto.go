package dto

import (
	"errors"
	"path/filepath"
	"strings"
	"time"
)

// Custom errors
var (
	ErrNoText          = errors.New("no text could be extracted from the document")
	ErrBillNotFound    = errors.New("bill not found")
	ErrUnsupportedFile = errors.New("unsupported file type")
	ErrFileTooLarge    = errors.New("file is too large")
	ErrEmptyFile       = errors.New("file is empty")
)

const (
	// MaxRawTextLen bounds the extracted text kept with a saved bill.
	MaxRawTextLen = 10000
	// MaxFileDataLen bounds the original upload bytes kept with a saved bill.
	MaxFileDataLen = 200000
)

// TextSource records which engine produced the text of a document.
type TextSource string

const (
	SourceText   TextSource = "text"
	SourcePDF    TextSource = "pdf-text"
	SourcePDFOCR TextSource = "pdf-ocr"
	SourceOCR    TextSource = "ocr"
)

// DocumentKind is the dispatch class of an uploaded file.
type DocumentKind string

const (
	KindText  DocumentKind = "text"
	KindImage DocumentKind = "image"
	KindPDF   DocumentKind = "pdf"
)

// Document is an uploaded file awaiting text extraction.
type Document struct {
	Filename    string
	ContentType string
	Data        []byte
	// ForceOCR skips embedded text and runs OCR directly.
	ForceOCR bool
}

// Kind sniffs the document class from content type and extension. Anything
// that is neither text nor an image is treated as a PDF.
func (d Document) Kind() DocumentKind {
	ct := strings.ToLower(d.ContentType)
	ext := strings.ToLower(filepath.Ext(d.Filename))

	switch {
	case strings.HasPrefix(ct, "text/plain") || ext == ".txt":
		return KindText
	case strings.HasPrefix(ct, "image/"):
		return KindImage
	}

	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif", ".heic", ".heif":
		return KindImage
	}
	return KindPDF
}

// Extraction is the text recovered from a document.
type Extraction struct {
	Text   string     `json:"text"`
	Source TextSource `json:"source"`
	Pages  int        `json:"pages,omitempty"`
}

// StoredBill is a parsed record as kept in the bill history.
type StoredBill struct {
	ID string `json:"id"`
	ParsedRecord
	Raw      string     `json:"raw"`
	FileName string     `json:"fileName"`
	Source   TextSource `json:"source,omitempty"`
	SavedAt  time.Time  `json:"savedAt"`
	FileData []byte     `json:"fileData,omitempty"`
}

// DisplayName is the label used for a bill in listings.
func (b *StoredBill) DisplayName() string {
	if b.Merchant != nil && *b.Merchant != "" {
		return *b.Merchant
	}
	if b.FileName != "" {
		return b.FileName
	}
	return "Bill"
}

// ParseTextRequest is the body of a raw-text parse request.
type ParseTextRequest struct {
	Text string `json:"text"`
}

// ParseResponse is returned for a parsed (not yet saved) upload.
type ParseResponse struct {
	Record     ParsedRecord `json:"record"`
	Source     TextSource   `json:"source"`
	FileName   string       `json:"fileName"`
	RawPreview string       `json:"rawPreview"`
	Creature   *Creature    `json:"creature,omitempty"`
}

// BillResponse is a saved bill together with its category creature.
type BillResponse struct {
	*StoredBill
	Creature *Creature `json:"creature,omitempty"`
}
