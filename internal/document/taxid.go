package document

import (
	"regexp"
	"strings"

	"verity/internal/validation/oib"
)

var (
	elevenDigits = regexp.MustCompile(`\d{11}`)

	rpoKeywords = []string{
		"rješenja porezne uprave",
		"upisuje se u registar poreznih obveznika",
		"oib:",
		"osobni identifikacijski broj",
		"porezna uprava",
	}
	rpoAcronym = regexp.MustCompile(`\bRPO\b`)
)

// TaxID returns the first 11-digit run in text that passes the OIB check
// digit. Runs embedded in longer digit sequences are ignored, and runs that
// fail the checksum are skipped even when they appear first.
func TaxID(text string) (string, bool) {
	for _, loc := range elevenDigits.FindAllStringIndex(text, -1) {
		if isDigitAt(text, loc[0]-1) || isDigitAt(text, loc[1]) {
			continue
		}
		candidate := text[loc[0]:loc[1]]
		if oib.Valid(candidate) {
			return candidate, true
		}
	}
	return "", false
}

func isDigitAt(s string, i int) bool {
	return i >= 0 && i < len(s) && s[i] >= '0' && s[i] <= '9'
}

// IsRPODocument reports whether text carries the phrases of a tax
// administration registration decision.
func IsRPODocument(text string) bool {
	if rpoAcronym.MatchString(text) {
		return true
	}
	lower := strings.ToLower(text)
	for _, kw := range rpoKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
