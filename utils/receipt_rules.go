package utils

import (
	"regexp"
	"strings"

	"github.com/atorhub/ANJ-Invoice-Creature-System-v2/dto"
)

const (
	// merchantWindow is how many leading lines may hold the vendor name.
	merchantWindow = 3
	// totalWindow is how many trailing lines are searched for a labeled total.
	totalWindow = 8
)

// merchantNoiseWords disqualify a header line from being the merchant.
var merchantNoiseWords = []string{"invoice", "bill", "tax"}

// datePattern recognises, in one pass:
//  1. day/month/year and month/day/year with / . or - separators
//  2. year/month/day
//  3. "March 5, 2024" style month names
var datePattern = regexp.MustCompile(
	`\b(?:` +
		dayPart + dateSep + monthPart + dateSep + yearPart +
		`|` + monthPart + dateSep + dayPart + dateSep + yearPart +
		`|\d{4}` + dateSep + monthPart + dateSep + dayPart +
		`|[A-Za-z]{3,9}\s+\d{1,2},\s*\d{4}` +
		`)\b`,
)

const (
	dayPart   = `(?:0?[1-9]|[12][0-9]|3[01])`
	monthPart = `(?:0?[1-9]|1[012])`
	yearPart  = `(?:\d{4}|\d{2})`
	dateSep   = `[/.\-]`
)

// totalMarker qualifies a trailing line whose digits are taken as the bill
// total: it mentions a total or carries a currency marker.
var totalMarker = regexp.MustCompile(`(?i)total|grand total|balance due|₹|\$|INR|Rs\.?`)

// subtotalWord is removed before re-testing a line against totalMarker; a line
// that no longer qualifies only mentioned a subtotal.
var subtotalWord = regexp.MustCompile(`(?i)sub[\s-]?total`)

var (
	nonAmountChars = regexp.MustCompile(`[^0-9.,]`)
	commaRuns      = regexp.MustCompile(`,+`)
	// amountToken is a plain decimal number used by the whole-document fallback.
	amountToken = regexp.MustCompile(`[0-9]+[.,][0-9]{2,}`)
)

var (
	// fullItemPattern: name, integer quantity, unit price, line total.
	fullItemPattern = regexp.MustCompile(`^(.{2,60})\s+(\d+)\s+([0-9.,]+)\s+([0-9.,]+)$`)
	// partialItemPattern: name followed by a single price.
	partialItemPattern = regexp.MustCompile(`^(.{2,60})\s+([0-9.,]+)$`)
	hasLetter          = regexp.MustCompile(`[A-Za-z]`)
)

// categoryRule maps a category to the substrings that select it.
type categoryRule struct {
	category dto.Category
	keywords []string
}

// categoryTable is evaluated in declaration order and the first keyword hit
// decides the category, so "cafe" beats "bank" regardless of position.
var categoryTable = []categoryRule{
	{category: dto.CategoryFood, keywords: []string{"restaurant", "cafe", "grocer", "grocery", "food", "mart"}},
	{category: dto.CategoryShopping, keywords: []string{"store", "shop", "mall", "shopping", "boutique"}},
	{category: dto.CategoryFinance, keywords: []string{"bank", "payment", "upi", "transaction", "invoice"}},
}

// containsAny reports whether s contains any of the substrings.
func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
