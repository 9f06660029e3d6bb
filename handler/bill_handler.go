package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/atorhub/ANJ-Invoice-Creature-System-v2/buildinfo"
	"github.com/atorhub/ANJ-Invoice-Creature-System-v2/dto"
	"github.com/atorhub/ANJ-Invoice-Creature-System-v2/export"
	"github.com/atorhub/ANJ-Invoice-Creature-System-v2/logger"
	"github.com/atorhub/ANJ-Invoice-Creature-System-v2/service"
)

// BillService is the part of service.BillService the HTTP layer uses.
type BillService interface {
	Parse(ctx context.Context, doc dto.Document) (*dto.StoredBill, error)
	ParseAndSave(ctx context.Context, doc dto.Document) (*dto.StoredBill, error)
	ParseText(text string) dto.ParsedRecord
	History() ([]*dto.StoredBill, error)
	Get(id string) (*dto.StoredBill, error)
	Clear(ctx context.Context) error
	Export(w io.Writer) error
	RenderPDF(w io.Writer, id string) error
}

type BillHandler struct {
	bills       BillService
	maxFileSize int64
}

func NewBillHandler(bills BillService, maxFileSize int64) *BillHandler {
	return &BillHandler{
		bills:       bills,
		maxFileSize: maxFileSize,
	}
}

func (h *BillHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "ANJ Invoice",
		"version": buildinfo.Version,
	})
}

// ParseBill handles POST /bills/parse. The bill is returned but not saved.
func (h *BillHandler) ParseBill(c *gin.Context) {
	doc, ok := h.readDocument(c)
	if !ok {
		return
	}

	bill, err := h.bills.Parse(c.Request.Context(), doc)
	if err != nil {
		h.sendError(c, err)
		return
	}

	c.JSON(http.StatusOK, service.NewParseResponse(bill))
}

// CreateBill handles POST /bills: parse the upload and add it to the history.
func (h *BillHandler) CreateBill(c *gin.Context) {
	doc, ok := h.readDocument(c)
	if !ok {
		return
	}

	bill, err := h.bills.ParseAndSave(c.Request.Context(), doc)
	if err != nil {
		h.sendError(c, err)
		return
	}

	c.JSON(http.StatusCreated, service.NewBillResponse(bill))
}

// ParseText handles POST /parse-text with a JSON body {"text": "..."}.
func (h *BillHandler) ParseText(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxFileSize)

	var req dto.ParseTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.sendError(c, fmt.Errorf("%w: limit %d bytes", dto.ErrFileTooLarge, h.maxFileSize))
			return
		}
		abortWithError(c, http.StatusBadRequest, "INVALID_REQUEST", "request body must be JSON with a text field")
		return
	}

	c.JSON(http.StatusOK, h.bills.ParseText(req.Text))
}

func (h *BillHandler) ListBills(c *gin.Context) {
	bills, err := h.bills.History()
	if err != nil {
		h.sendError(c, err)
		return
	}

	out := make([]dto.BillResponse, 0, len(bills))
	for _, b := range bills {
		out = append(out, service.NewBillResponse(b))
	}
	c.JSON(http.StatusOK, out)
}

func (h *BillHandler) GetBill(c *gin.Context) {
	bill, err := h.bills.Get(c.Param("id"))
	if err != nil {
		h.sendError(c, err)
		return
	}

	c.JSON(http.StatusOK, service.NewBillResponse(bill))
}

func (h *BillHandler) ClearBills(c *gin.Context) {
	if err := h.bills.Clear(c.Request.Context()); err != nil {
		h.sendError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ExportBills sends the whole history as a JSON download.
func (h *BillHandler) ExportBills(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.bills.Export(&buf); err != nil {
		h.sendError(c, err)
		return
	}

	c.Header("Content-Disposition", attachment(export.CollectionFileName))
	c.Data(http.StatusOK, "application/json", buf.Bytes())
}

// BillPDF sends a printable PDF of one bill.
func (h *BillHandler) BillPDF(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.bills.RenderPDF(&buf, c.Param("id")); err != nil {
		h.sendError(c, err)
		return
	}

	c.Header("Content-Disposition", attachment(export.InvoiceFileName))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

// readDocument reads the multipart "file" field. On failure the error
// response has already been written.
func (h *BillHandler) readDocument(c *gin.Context) (dto.Document, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxFileSize+1<<20)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.sendError(c, dto.ErrFileTooLarge)
			return dto.Document{}, false
		}
		abortWithError(c, http.StatusBadRequest, "FILE_MISSING", "multipart field \"file\" is required")
		return dto.Document{}, false
	}
	if fileHeader.Size > h.maxFileSize {
		h.sendError(c, fmt.Errorf("%w: %d bytes, limit %d", dto.ErrFileTooLarge, fileHeader.Size, h.maxFileSize))
		return dto.Document{}, false
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.sendError(c, fmt.Errorf("opening upload: %w", err))
		return dto.Document{}, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.sendError(c, fmt.Errorf("reading upload: %w", err))
		return dto.Document{}, false
	}

	return dto.Document{
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Data:        data,
		ForceOCR:    c.DefaultPostForm("ocr", c.Query("ocr")) == "true",
	}, true
}

// sendError maps service errors onto a structured error response
func (h *BillHandler) sendError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL_ERROR"
	switch {
	case errors.Is(err, dto.ErrBillNotFound):
		status, code = http.StatusNotFound, "BILL_NOT_FOUND"
	case errors.Is(err, dto.ErrFileTooLarge):
		status, code = http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE"
	case errors.Is(err, dto.ErrEmptyFile):
		status, code = http.StatusBadRequest, "EMPTY_FILE"
	case errors.Is(err, dto.ErrUnsupportedFile):
		status, code = http.StatusBadRequest, "UNSUPPORTED_FILE"
	case errors.Is(err, dto.ErrNoText):
		status, code = http.StatusBadRequest, "NO_TEXT"
	}

	log := logger.FromContext(c.Request.Context())
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	} else {
		log.Debug().Err(err).Str("code", code).Msg("request rejected")
	}

	abortWithError(c, status, code, err.Error())
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, dto.ErrorResponse{
		Error:   code,
		Message: message,
		Code:    status,
	})
}

func attachment(name string) string {
	return fmt.Sprintf("attachment; filename=%q", name)
}
