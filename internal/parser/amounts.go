package parser

import (
	"regexp"
	"strconv"
	"strings"
)

// Currency-like trailing token: optional symbol, digits with optional thousands
// separators, optional two-decimal fraction. The token must sit at the very end
// of the line and be preceded by whitespace (or start the line), which keeps
// date fragments like "01/01/2024" and clock times from matching.
// The bare integer part is capped at four digits so five-digit ZIP codes and
// loyalty numbers don't read as prices; larger amounts carry thousands
// separators on printed receipts.
var (
	reTrailingDot   = regexp.MustCompile(`(?:^|\s)([$€£]?\s?-?(?:\d{1,3}(?:,\d{3})+|\d{1,4})(?:\.\d{2})?)$`)
	reTrailingComma = regexp.MustCompile(`(?:^|\s)([$€£]?\s?-?(?:\d{1,3}(?:\.\d{3})+|\d{1,4})(?:,\d{2})?)$`)

	reFirstDot   = regexp.MustCompile(`(?:^|\s)([$€£]?\s?-?(?:\d{1,3}(?:,\d{3})+|\d{1,4})(?:\.\d{2})?)(?:\s|$)`)
	reFirstComma = regexp.MustCompile(`(?:^|\s)([$€£]?\s?-?(?:\d{1,3}(?:\.\d{3})+|\d{1,4})(?:,\d{2})?)(?:\s|$)`)
)

// trailingAmount returns the currency-like token ending the line, its start
// offset within the line, and whether one was found.
func trailingAmount(line string, opts Options) (token string, start int, ok bool) {
	re := reTrailingDot
	if opts.DecimalComma {
		re = reTrailingComma
	}
	m := re.FindStringSubmatchIndex(line)
	if m == nil {
		return "", 0, false
	}
	return line[m[2]:m[3]], m[2], true
}

// firstAmount returns the first currency-like token in the segment. The token
// must be whitespace-bounded on both sides, which keeps date and time
// fragments from matching mid-line.
func firstAmount(segment string, opts Options) (string, bool) {
	re := reFirstDot
	if opts.DecimalComma {
		re = reFirstComma
	}
	m := re.FindStringSubmatch(segment)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// parseAmount converts a currency token to a float. Malformed tokens (stray
// OCR punctuation, double signs) are skipped rather than coerced.
func parseAmount(token string, opts Options) (float64, bool) {
	s := strings.TrimSpace(token)
	s = strings.TrimLeft(s, "$€£")
	s = strings.TrimSpace(s)
	if opts.DecimalComma {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}
	if s == "" || s == "-" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
