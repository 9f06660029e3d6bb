package utils

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/atorhub/ANJ-Invoice-Creature-System-v2/dto"
)

// ReceiptParser turns noisy OCR or PDF text into a ParsedRecord using fixed
// keyword tables and patterns. It holds no mutable state and is safe for
// concurrent use.
type ReceiptParser struct {
	noiseWords  []string
	datePattern *regexp.Regexp
	totalMarker *regexp.Regexp
	categories  []categoryRule
}

// NewReceiptParser creates a parser with the built-in rule tables.
func NewReceiptParser() *ReceiptParser {
	return &ReceiptParser{
		noiseWords:  merchantNoiseWords,
		datePattern: datePattern,
		totalMarker: totalMarker,
		categories:  categoryTable,
	}
}

var defaultParser = NewReceiptParser()

// ParseText parses bill text with the default parser. It never fails; fields
// that could not be recovered are left nil.
func ParseText(text string) dto.ParsedRecord {
	return defaultParser.Parse(text)
}

// Parse extracts merchant, date, total, items and category from text.
func (p *ReceiptParser) Parse(text string) dto.ParsedRecord {
	lines := SplitLines(text)

	return dto.ParsedRecord{
		Merchant: p.extractMerchant(lines),
		Date:     p.extractDate(lines),
		Total:    p.extractTotal(lines),
		Items:    extractItems(lines),
		Category: p.classify(text),
	}
}

// SplitLines splits text on \n or \r\n, trims every line and drops the
// empty ones.
func SplitLines(text string) []string {
	lines := make([]string, 0)
	for _, l := range strings.Split(text, "\n") {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		lines = append(lines, l)
	}
	return lines
}

// extractMerchant returns the first of the leading lines that is not an
// "invoice"/"bill"/"tax" header.
func (p *ReceiptParser) extractMerchant(lines []string) *string {
	for i := 0; i < merchantWindow && i < len(lines); i++ {
		candidate := strings.TrimSpace(strings.ReplaceAll(lines[i], "|", " "))
		if candidate == "" {
			continue
		}
		if containsAny(strings.ToLower(candidate), p.noiseWords) {
			continue
		}
		return &candidate
	}
	return nil
}

// extractDate returns the first date-shaped token, verbatim.
func (p *ReceiptParser) extractDate(lines []string) *string {
	for _, l := range lines {
		if m := p.datePattern.FindString(l); m != "" {
			return &m
		}
	}
	return nil
}

// extractTotal takes the first trailing line that mentions a total or a
// currency. Subtotal lines only count when no other line qualifies. Without
// any, it falls back to the largest decimal number anywhere in the text.
func (p *ReceiptParser) extractTotal(lines []string) *string {
	tail := lines
	if len(tail) > totalWindow {
		tail = tail[len(tail)-totalWindow:]
	}

	var subtotals []string
	for _, l := range tail {
		if !p.totalMarker.MatchString(l) {
			continue
		}
		if p.isSubtotalOnly(l) {
			subtotals = append(subtotals, l)
			continue
		}
		if amount := cleanAmount(l); amount != "" {
			return &amount
		}
	}
	for _, l := range subtotals {
		if amount := cleanAmount(l); amount != "" {
			return &amount
		}
	}

	return largestAmount(lines)
}

// isSubtotalOnly reports whether a qualifying line qualifies only through
// the word "subtotal".
func (p *ReceiptParser) isSubtotalOnly(line string) bool {
	if !subtotalWord.MatchString(line) {
		return false
	}
	return !p.totalMarker.MatchString(subtotalWord.ReplaceAllString(line, " "))
}

// cleanAmount keeps digits and periods of a line, dropping thousands
// separators. Lines without any digit yield "".
func cleanAmount(line string) string {
	amount := nonAmountChars.ReplaceAllString(line, "")
	amount = commaRuns.ReplaceAllString(amount, "")
	if !strings.ContainsAny(amount, "0123456789") {
		return ""
	}
	return amount
}

// largestAmount scans every line for plain decimal tokens and returns the
// numerically largest one as written (minus commas), if it is above zero.
func largestAmount(lines []string) *string {
	var (
		best     decimal.Decimal
		bestText string
	)
	for _, l := range lines {
		for _, tok := range amountToken.FindAllString(l, -1) {
			tok = strings.ReplaceAll(tok, ",", "")
			v, err := decimal.NewFromString(tok)
			if err != nil {
				continue
			}
			if v.GreaterThan(best) {
				best = v
				bestText = tok
			}
		}
	}
	if bestText == "" {
		return nil
	}
	return &bestText
}

// extractItems collects full-form rows; only when there are none does it
// fall back to name/price rows.
func extractItems(lines []string) dto.Items {
	items := make(dto.Items, 0)
	for _, l := range lines {
		m := fullItemPattern.FindStringSubmatch(l)
		if m == nil {
			continue
		}
		items = append(items, dto.FullItem{
			Name:      strings.TrimSpace(m[1]),
			Quantity:  m[2],
			UnitPrice: m[3],
			LineTotal: m[4],
		})
	}
	if len(items) > 0 {
		return items
	}

	for _, l := range lines {
		m := partialItemPattern.FindStringSubmatch(l)
		if m == nil || !hasLetter.MatchString(m[1]) {
			continue
		}
		items = append(items, dto.PartialItem{
			Name:  strings.TrimSpace(m[1]),
			Price: m[2],
		})
	}
	return items
}

// classify picks the first category whose keyword occurs in the text.
func (p *ReceiptParser) classify(text string) dto.Category {
	lower := strings.ToLower(text)
	for _, rule := range p.categories {
		if containsAny(lower, rule.keywords) {
			return rule.category
		}
	}
	return dto.CategoryGeneral
}
