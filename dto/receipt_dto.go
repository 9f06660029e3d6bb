package dto

import (
	"encoding/json"
	"fmt"
)

// Category is the spending category assigned to a parsed bill.
type Category string

const (
	CategoryFood     Category = "food"
	CategoryShopping Category = "shopping"
	CategoryFinance  Category = "finance"
	CategoryGeneral  Category = "general"
)

// ParsedRecord is the structured result of running the heuristic parser over
// extracted bill text. A nil pointer field means the value was not found.
type ParsedRecord struct {
	Date     *string  `json:"date"`
	Total    *string  `json:"total"`
	Merchant *string  `json:"merchant"`
	Items    Items    `json:"items"`
	Category Category `json:"category"`
}

// LineItem is one row recovered from the bill body. It is either a FullItem
// or a PartialItem; a record never mixes the two.
type LineItem interface {
	ItemName() string
	isLineItem()
}

// FullItem is a row carrying quantity, unit price and line total.
type FullItem struct {
	Name      string `json:"name"`
	Quantity  string `json:"qty"`
	UnitPrice string `json:"price"`
	LineTotal string `json:"total"`
}

// PartialItem is a name followed by a single price.
type PartialItem struct {
	Name  string `json:"name"`
	Price string `json:"price"`
}

func (i FullItem) ItemName() string    { return i.Name }
func (i PartialItem) ItemName() string { return i.Name }

func (FullItem) isLineItem()    {}
func (PartialItem) isLineItem() {}

// Items is the ordered list of line items of a record.
type Items []LineItem

// MarshalJSON always emits an array, never null.
func (items Items) MarshalJSON() ([]byte, error) {
	out := make([]any, 0, len(items))
	for _, it := range items {
		out = append(out, it)
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores the item shape: objects carrying "qty" are full
// items, everything else is partial.
func (items *Items) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding items: %w", err)
	}

	decoded := make(Items, 0, len(raw))
	for i, msg := range raw {
		var probe struct {
			Qty *string `json:"qty"`
		}
		if err := json.Unmarshal(msg, &probe); err != nil {
			return fmt.Errorf("decoding item %d: %w", i, err)
		}

		if probe.Qty != nil {
			var full FullItem
			if err := json.Unmarshal(msg, &full); err != nil {
				return fmt.Errorf("decoding item %d: %w", i, err)
			}
			decoded = append(decoded, full)
			continue
		}

		var partial PartialItem
		if err := json.Unmarshal(msg, &partial); err != nil {
			return fmt.Errorf("decoding item %d: %w", i, err)
		}
		decoded = append(decoded, partial)
	}

	*items = decoded
	return nil
}

// IsFullForm reports whether the items are full-form rows. An empty list is
// not full-form.
func (items Items) IsFullForm() bool {
	if len(items) == 0 {
		return false
	}
	_, ok := items[0].(FullItem)
	return ok
}

// Creature is the mascot shown for a category.
type Creature struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Levels []string `json:"levels"`
	Badge  string   `json:"badge"`
}
