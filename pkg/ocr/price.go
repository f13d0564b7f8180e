package ocr

import (
	"regexp"
	"strings"
)

var (
	// optional currency symbol, 1-3 digits, optional 2-digit cents/thousands suffix
	currencyRE = regexp.MustCompile(`(?:\$|€|¢|₡|£|¥)?[\s\v\p{Z}]*[0-9]{1,3}(?:[.,][0-9]{2})?`)
	digitsRE   = regexp.MustCompile(`[0-9]{2,4}(?:[.,][0-9]{1,2})?`)
	anyDigitRE = regexp.MustCompile(`[0-9]`)
)

// priceSearches are tried in order; the first non-empty token wins.
var priceSearches = []func(string) string{
	currencyToken,
	bareDigitToken,
}

// ExtractPrice returns the first price-like token found in OCR text, or "" when
// nothing matches. Separator style is kept as recognized ("12,50" stays "12,50").
func ExtractPrice(text string) string {
	if text == "" {
		return ""
	}
	for _, search := range priceSearches {
		if p := search(text); p != "" {
			return p
		}
	}
	return ""
}

// currencyToken returns the left-most currency-like match containing a digit,
// with whitespace removed ("$ 240" -> "$240").
func currencyToken(text string) string {
	for _, m := range currencyRE.FindAllString(text, -1) {
		if anyDigitRE.MatchString(m) {
			return stripSpaces(m)
		}
	}
	return ""
}

// bareDigitToken matches a plain 2-4 digit group and marks it as dollars.
func bareDigitToken(text string) string {
	m := digitsRE.FindString(text)
	if m == "" {
		return ""
	}
	return "$" + m
}

func stripSpaces(s string) string {
	return strings.Join(strings.Fields(s), "")
}
