package service

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/atorhub/ANJ-Invoice-Creature-System-v2/dto"
	"github.com/atorhub/ANJ-Invoice-Creature-System-v2/export"
	"github.com/atorhub/ANJ-Invoice-Creature-System-v2/logger"
	"github.com/atorhub/ANJ-Invoice-Creature-System-v2/store"
	"github.com/atorhub/ANJ-Invoice-Creature-System-v2/utils"
)

// rawPreviewLen is how much extracted text a parse response echoes back.
const rawPreviewLen = 500

// IDGenerator generates unique IDs for bills
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (uuidGenerator) Generate() string {
	return "bill-" + uuid.NewString()
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

// BillService ties extraction, parsing and the bill history together.
type BillService struct {
	extractor   TextExtractor
	store       store.BillStore
	parser      *utils.ReceiptParser
	idGenerator IDGenerator
	timeSource  TimeSource
}

func NewBillService(extractor TextExtractor, bills store.BillStore) *BillService {
	return NewBillServiceWithDeps(extractor, bills, uuidGenerator{}, systemClock{})
}

// NewBillServiceWithDeps lets tests pin IDs and timestamps.
func NewBillServiceWithDeps(extractor TextExtractor, bills store.BillStore, idGen IDGenerator, clock TimeSource) *BillService {
	return &BillService{
		extractor:   extractor,
		store:       bills,
		parser:      utils.NewReceiptParser(),
		idGenerator: idGen,
		timeSource:  clock,
	}
}

// Parse extracts and parses a document into an unsaved bill.
func (s *BillService) Parse(ctx context.Context, doc dto.Document) (*dto.StoredBill, error) {
	log := logger.FromContext(ctx)

	extraction, err := s.extractor.Extract(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("extracting text from %s: %w", doc.Filename, err)
	}

	bill := &dto.StoredBill{
		ID:           s.idGenerator.Generate(),
		ParsedRecord: s.parser.Parse(extraction.Text),
		Raw:          truncateRunes(extraction.Text, dto.MaxRawTextLen),
		FileName:     doc.Filename,
		Source:       extraction.Source,
		SavedAt:      s.timeSource.Now(),
		FileData:     truncateBytes(doc.Data, dto.MaxFileDataLen),
	}

	log.Info().
		Str("id", bill.ID).
		Str("source", string(bill.Source)).
		Str("category", string(bill.Category)).
		Int("items", len(bill.Items)).
		Bool("total_found", bill.Total != nil).
		Msg("bill parsed")

	return bill, nil
}

// ParseAndSave parses a document and stores the result.
func (s *BillService) ParseAndSave(ctx context.Context, doc dto.Document) (*dto.StoredBill, error) {
	bill, err := s.Parse(ctx, doc)
	if err != nil {
		return nil, err
	}
	if err := s.Save(ctx, bill); err != nil {
		return nil, err
	}
	return bill, nil
}

// Save stores a bill, filling in the ID and timestamp when missing and
// enforcing the size bounds on the raw text and file data.
func (s *BillService) Save(ctx context.Context, bill *dto.StoredBill) error {
	if bill.ID == "" {
		bill.ID = s.idGenerator.Generate()
	}
	if bill.SavedAt.IsZero() {
		bill.SavedAt = s.timeSource.Now()
	}
	bill.Raw = truncateRunes(bill.Raw, dto.MaxRawTextLen)
	bill.FileData = truncateBytes(bill.FileData, dto.MaxFileDataLen)

	if err := s.store.Save(bill); err != nil {
		return fmt.Errorf("saving bill %s: %w", bill.ID, err)
	}

	log := logger.FromContext(ctx)
	log.Info().Str("id", bill.ID).Str("merchant", bill.DisplayName()).Msg("bill saved")
	return nil
}

// ParseText parses raw bill text without touching the history.
func (s *BillService) ParseText(text string) dto.ParsedRecord {
	return s.parser.Parse(text)
}

// History returns every saved bill, newest first.
func (s *BillService) History() ([]*dto.StoredBill, error) {
	bills, err := s.store.List()
	if err != nil {
		return nil, fmt.Errorf("listing bills: %w", err)
	}
	sort.SliceStable(bills, func(i, j int) bool {
		return bills[i].SavedAt.After(bills[j].SavedAt)
	})
	return bills, nil
}

func (s *BillService) Get(id string) (*dto.StoredBill, error) {
	return s.store.Get(id)
}

func (s *BillService) Clear(ctx context.Context) error {
	if err := s.store.Clear(); err != nil {
		return fmt.Errorf("clearing bills: %w", err)
	}
	log := logger.FromContext(ctx)
	log.Info().Msg("bill history cleared")
	return nil
}

// Export writes the whole history as JSON.
func (s *BillService) Export(w io.Writer) error {
	bills, err := s.History()
	if err != nil {
		return err
	}
	return export.WriteCollection(w, bills)
}

// RenderPDF writes a printable PDF of one saved bill.
func (s *BillService) RenderPDF(w io.Writer, id string) error {
	bill, err := s.store.Get(id)
	if err != nil {
		return err
	}
	return export.RenderPDF(w, bill)
}

// NewParseResponse is the preview returned for an unsaved bill.
func NewParseResponse(bill *dto.StoredBill) dto.ParseResponse {
	return dto.ParseResponse{
		Record:     bill.ParsedRecord,
		Source:     bill.Source,
		FileName:   bill.FileName,
		RawPreview: truncateRunes(bill.Raw, rawPreviewLen),
		Creature:   utils.CreatureFor(bill.Category),
	}
}

func NewBillResponse(bill *dto.StoredBill) dto.BillResponse {
	return dto.BillResponse{
		StoredBill: bill,
		Creature:   utils.CreatureFor(bill.Category),
	}
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func truncateBytes(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
