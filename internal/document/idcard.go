package document

import (
	"regexp"
	"strings"
)

const croatianState = "Republika Hrvatska"

var (
	idNumberPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:^|[^A-Za-z0-9])([A-Z]{2}\d{7})(?:$|[^A-Za-z0-9])`),
		regexp.MustCompile(`(?:^|\D)(\d{9})(?:$|\D)`),
		regexp.MustCompile(`(?i)(?:br\.|broj|document)[ \t]*(?:no\.?|number)?[ \t]*:?[ \t]*([A-Z0-9]{5,12})`),
	}
	stateMention = regexp.MustCompile(`(?i)republika\s+hrvatska|hrvatska|\bRH\b`)
)

// IDDocumentNumber extracts an identity card number.
func IDDocumentNumber(text string) (string, bool) {
	for _, re := range idNumberPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if hasDigit(m[1]) {
				return strings.ToUpper(m[1]), true
			}
		}
	}
	return "", false
}

// IDIssuingAuthority recognises cards issued by the Croatian state.
func IDIssuingAuthority(text string) (string, bool) {
	if stateMention.MatchString(text) {
		return croatianState, true
	}
	return "", false
}
