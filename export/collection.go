package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/atorhub/ANJ-Invoice-Creature-System-v2/dto"
)

const (
	// CollectionFileName is the suggested download name for WriteCollection.
	CollectionFileName = "anj-history.json"
	// InvoiceFileName is the suggested download name for RenderPDF.
	InvoiceFileName = "anj-invoice.pdf"
)

// WriteCollection writes the bills as an indented JSON array. A nil slice is
// written as [].
func WriteCollection(w io.Writer, bills []*dto.StoredBill) error {
	if bills == nil {
		bills = []*dto.StoredBill{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(bills); err != nil {
		return fmt.Errorf("encoding bill collection: %w", err)
	}
	return nil
}
