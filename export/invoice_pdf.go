package export

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"strings"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/shopspring/decimal"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/atorhub/ANJ-Invoice-Creature-System-v2/dto"
	"github.com/atorhub/ANJ-Invoice-Creature-System-v2/utils"
)

// The page is drawn at A4 proportions and scaled up before embedding.
const (
	pageWidth  = 620
	pageHeight = 877
	pageScale  = 2
	margin     = 32
	lineHeight = 16
	qrSize     = 120
)

var maxLineChars = (pageWidth - 2*margin) / basicfont.Face7x13.Advance

// RenderPDF draws a printable summary of the bill and writes it as a
// single-page PDF.
func RenderPDF(w io.Writer, bill *dto.StoredBill) error {
	if bill == nil {
		return fmt.Errorf("rendering invoice: nil bill")
	}

	page, err := renderPage(bill)
	if err != nil {
		return err
	}

	var img bytes.Buffer
	if err := png.Encode(&img, page); err != nil {
		return fmt.Errorf("encoding invoice image: %w", err)
	}

	imp := pdfcpu.DefaultImportConfig()
	conf := model.NewDefaultConfiguration()
	if err := api.ImportImages(nil, w, []io.Reader{&img}, imp, conf); err != nil {
		return fmt.Errorf("writing invoice PDF: %w", err)
	}
	return nil
}

func renderPage(bill *dto.StoredBill) (image.Image, error) {
	canvas := image.NewRGBA(image.Rect(0, 0, pageWidth, pageHeight))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(color.Black),
		Face: basicfont.Face7x13,
	}
	y := margin + lineHeight
	for _, line := range SummaryLines(bill) {
		if y > pageHeight-margin-qrSize {
			break
		}
		d.Dot = fixed.P(margin, y)
		d.DrawString(clip(line))
		y += lineHeight
	}

	if bill.ID != "" {
		qr, err := qrcode.NewQRCodeWriter().Encode(bill.ID, gozxing.BarcodeFormat_QR_CODE, qrSize, qrSize, nil)
		if err != nil {
			return nil, fmt.Errorf("encoding bill id QR: %w", err)
		}
		at := image.Pt(pageWidth-margin-qrSize, pageHeight-margin-qrSize)
		draw.Draw(canvas, image.Rectangle{Min: at, Max: at.Add(image.Pt(qrSize, qrSize))}, qr, image.Point{}, draw.Src)
	}

	scaled := image.NewRGBA(image.Rect(0, 0, pageWidth*pageScale, pageHeight*pageScale))
	xdraw.NearestNeighbor.Scale(scaled, scaled.Bounds(), canvas, canvas.Bounds(), xdraw.Src, nil)
	return scaled, nil
}

// SummaryLines is the plain-text body printed on the invoice page.
func SummaryLines(bill *dto.StoredBill) []string {
	lines := []string{
		"ANJ Invoice",
		"",
		"Merchant: " + orDash(bill.Merchant),
		"Date:     " + orDash(bill.Date),
		"Category: " + utils.CategoryLabel(bill.Category),
		"Total:    " + orDash(bill.Total),
		"",
	}

	if len(bill.Items) > 0 {
		lines = append(lines, fmt.Sprintf("Items (%d):", len(bill.Items)))
		for _, it := range bill.Items {
			switch item := it.(type) {
			case dto.FullItem:
				lines = append(lines, fmt.Sprintf("  %s  %s x %s = %s", item.Name, item.Quantity, item.UnitPrice, item.LineTotal))
			case dto.PartialItem:
				lines = append(lines, fmt.Sprintf("  %s  %s", item.Name, item.Price))
			}
		}
		if sum, ok := ItemsSum(bill.Items); ok {
			lines = append(lines, "  Items sum: "+sum.StringFixed(2))
		}
		lines = append(lines, "")
	}

	if !bill.SavedAt.IsZero() {
		lines = append(lines, "Saved: "+bill.SavedAt.UTC().Format("2006-01-02 15:04 MST"))
	}
	if bill.FileName != "" {
		lines = append(lines, "File:  "+bill.FileName)
	}
	if bill.ID != "" {
		lines = append(lines, "ID:    "+bill.ID)
	}
	return lines
}

// ItemsSum adds the line totals (or prices, for partial rows). It reports
// false when any amount is not a plain number.
func ItemsSum(items dto.Items) (decimal.Decimal, bool) {
	if len(items) == 0 {
		return decimal.Zero, false
	}

	sum := decimal.Zero
	for _, it := range items {
		var amount string
		switch item := it.(type) {
		case dto.FullItem:
			amount = item.LineTotal
		case dto.PartialItem:
			amount = item.Price
		}
		v, err := decimal.NewFromString(strings.ReplaceAll(amount, ",", ""))
		if err != nil {
			return decimal.Zero, false
		}
		sum = sum.Add(v)
	}
	return sum, true
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

func clip(line string) string {
	r := []rune(line)
	if len(r) <= maxLineChars {
		return line
	}
	return string(r[:maxLineChars-3]) + "..."
}
