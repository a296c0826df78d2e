package parser

import (
	"regexp"
	"sort"
	"strings"
)

// LineItem is a single purchased item with its printed price.
type LineItem struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// Receipt holds every field the parser could confidently locate.
// Absent fields stay zero: empty string, nil pointer, nil slice. The parser
// never guesses.
type Receipt struct {
	Merchant      string     `json:"merchant,omitempty"`
	Address       string     `json:"address,omitempty"`
	Subtotal      *float64   `json:"subtotal,omitempty"`
	Tax           *float64   `json:"tax,omitempty"`
	Tip           *float64   `json:"tip,omitempty"`
	Total         *float64   `json:"total,omitempty"`
	Discount      *float64   `json:"discount,omitempty"`
	Date          string     `json:"date,omitempty"`
	Time          string     `json:"time,omitempty"`
	PaymentMethod string     `json:"payment_method,omitempty"`
	MemberNumber  string     `json:"member_number,omitempty"`
	Items         []LineItem `json:"items,omitempty"`
}

// Options control locale-sensitive token handling. Date order (MM/DD vs DD/MM)
// is deliberately not an option: dates are captured verbatim and never
// reinterpreted.
type Options struct {
	DecimalComma bool // parse "12,98" as twelve ninety-eight
}

var (
	reDate = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b|\b\d{1,2}[/.-]\d{1,2}[/.-]\d{2,4}\b`)
	reTime = regexp.MustCompile(`(?i)\b\d{1,2}:\d{2}(?::\d{2})?(?:\s?[ap]m)?`)

	reCardBrand = regexp.MustCompile(`(?i)\b(visa|mastercard|master card|amex|american express|discover|debit|credit card|cash)\b`)
	reMaskedPAN = regexp.MustCompile(`(?i)(ending in\s+\d{4}|[x*]{2,}\s*\d{4})`)

	reMember = regexp.MustCompile(`(?i)^(?:member|mbr|loyalty|rewards?)\b[^0-9]*(\d{3,})\s*$`)

	reDigit = regexp.MustCompile(`\d`)
	reAlpha = regexp.MustCompile(`[a-zA-Z]`)
)

// reservedKeywords mark totals-section lines; they are never line items.
var reservedKeywords = []string{"subtotal", "tax", "tip", "total", "discount", "change"}

// Parse turns raw recognized text into a partial structured receipt using the
// default (dot-decimal) locale.
func Parse(text string) Receipt {
	return ParseWithOptions(text, Options{})
}

// ParseWithOptions is Parse with explicit locale handling. It is a pure
// function: no I/O, no shared state, and malformed input degrades the output
// instead of aborting.
func ParseWithOptions(text string, opts Options) Receipt {
	var r Receipt
	lines := strings.Split(text, "\n")

	// The first non-empty line is the merchant candidate, but pure
	// digit/symbol noise is not a name.
	merchantIdx := -1
	for i, ln := range lines {
		trimmed := strings.TrimSpace(ln)
		if trimmed == "" {
			continue
		}
		if reAlpha.MatchString(trimmed) {
			r.Merchant = trimmed
		}
		merchantIdx = i
		break
	}
	if merchantIdx < 0 {
		return r
	}

	r.Address = addressBlock(lines[merchantIdx+1:], opts)

	for i, raw := range lines {
		ln := strings.TrimSpace(raw)
		if ln == "" {
			continue
		}
		lower := strings.ToLower(ln)

		if ms := reservedMatches(lower); len(ms) > 0 {
			// Each keyword binds to the amount printed after it, so a
			// compact "SUBTOTAL 10.00 TAX 0.80" line fills both fields.
			// Last occurrence wins: later values are corrections printed
			// closer to the bottom of the receipt.
			for idx, m := range ms {
				segEnd := len(lower)
				if idx+1 < len(ms) {
					segEnd = ms[idx+1].start
				}
				tok, ok := firstAmount(lower[m.end:segEnd], opts)
				if !ok && len(ms) == 1 {
					tok, _, ok = trailingAmount(ln, opts)
				}
				if !ok {
					continue
				}
				if v, ok := parseAmount(tok, opts); ok {
					setTotalField(&r, m.kw, v)
				}
			}
			continue
		}

		if r.Date == "" {
			if m := reDate.FindString(ln); m != "" {
				r.Date = m
			}
		}
		if r.Time == "" {
			if m := reTime.FindString(ln); m != "" {
				r.Time = m
			}
		}
		if r.MemberNumber == "" {
			if m := reMember.FindStringSubmatch(ln); m != nil {
				r.MemberNumber = m[1]
				continue
			}
		}
		if r.PaymentMethod == "" && (reCardBrand.MatchString(ln) || reMaskedPAN.MatchString(ln)) {
			r.PaymentMethod = ln
			continue
		}

		if i > merchantIdx {
			if tok, start, ok := trailingAmount(ln, opts); ok {
				name := strings.TrimSpace(ln[:start])
				if name == "" || !reAlpha.MatchString(name) || looksLikeDate(name) {
					continue
				}
				if v, ok := parseAmount(tok, opts); ok {
					r.Items = append(r.Items, LineItem{Name: name, Price: v})
				}
			}
		}
	}
	return r
}

// addressBlock accumulates the contiguous run of street-address-looking lines
// that immediately follow the merchant, stopping at the first blank line, the
// first line with a price suffix, or the first line that no longer looks like
// an address.
func addressBlock(lines []string, opts Options) string {
	var parts []string
	for _, raw := range lines {
		ln := strings.TrimSpace(raw)
		if ln == "" {
			break
		}
		if _, _, ok := trailingAmount(ln, opts); ok {
			break
		}
		if !reDigit.MatchString(ln) || !reAlpha.MatchString(ln) {
			break
		}
		if reDate.MatchString(ln) || reTime.MatchString(ln) {
			break
		}
		parts = append(parts, ln)
	}
	return strings.Join(parts, ", ")
}

type kwMatch struct {
	kw    string
	start int
	end   int
}

// reservedMatches returns every totals keyword occurrence in the lowercased
// line in print order. A "total" that is the tail of "subtotal" is not its own
// match, so the substring overlap cannot misclassify the line.
func reservedMatches(lower string) []kwMatch {
	var ms []kwMatch
	for _, kw := range reservedKeywords {
		for from := 0; ; {
			i := strings.Index(lower[from:], kw)
			if i < 0 {
				break
			}
			start := from + i
			from = start + len(kw)
			if kw == "total" && start >= 3 && lower[start-3:start] == "sub" {
				continue
			}
			ms = append(ms, kwMatch{kw: kw, start: start, end: start + len(kw)})
		}
	}
	sort.Slice(ms, func(i, j int) bool { return ms[i].start < ms[j].start })
	return ms
}

func setTotalField(r *Receipt, keyword string, v float64) {
	switch keyword {
	case "subtotal":
		r.Subtotal = &v
	case "tax":
		r.Tax = &v
	case "tip":
		r.Tip = &v
	case "total":
		r.Total = &v
	case "discount":
		r.Discount = &v
	}
	// "change" is reserved so change-due lines never become items, but the
	// amount itself is not a receipt field.
}

func looksLikeDate(s string) bool {
	return reDate.MatchString(s) || reTime.MatchString(s)
}
