package document

import (
	"regexp"
	"strings"
)

// word is one capitalised name token; hyphenated surnames are one token.
const word = `[A-ZČĆĐŠŽ][a-zčćđšž]+(?:-[A-ZČĆĐŠŽ][a-zčćđšž]+)?`

var (
	fullNameLabel = regexp.MustCompile(`(?i:ime\s+i\s+prezime|vlasnik|nositelj|holder)\s*:?\s*(` + word + `(?:[ \t]+` + word + `){1,3})`)
	firstNameHR   = regexp.MustCompile(`(?i:\bime)[ \t]*:[ \t]*(` + word + `(?:[ \t]+` + word + `)?)`)
	lastNameHR    = regexp.MustCompile(`(?i:prezime)[ \t]*:[ \t]*(` + word + `(?:[ \t]+` + word + `)?)`)
	firstNameEN   = regexp.MustCompile(`(?i:\bgiven\s+names?|\bname)[ \t]*:[ \t]*(` + word + `(?:[ \t]+` + word + `)?)`)
	lastNameEN    = regexp.MustCompile(`(?i:surname)[ \t]*:[ \t]*(` + word + `(?:[ \t]+` + word + `)?)`)
	genericName   = regexp.MustCompile(`(?:^|[^\p{L}])(` + word + `[ \t]+` + word + `)`)
)

// nameStopwords are capitalised words that commonly head document lines and
// must not be taken for a person's name by the generic fallback.
var nameStopwords = map[string]struct{}{
	"republika": {}, "hrvatska": {}, "porezna": {}, "uprava": {}, "osobna": {},
	"iskaznica": {}, "identity": {}, "card": {}, "ministarstvo": {}, "komora": {},
	"hrvatski": {}, "hrvatske": {}, "rješenje": {}, "rjesenje": {}, "na": {},
	"datum": {}, "adresa": {}, "broj": {}, "licenca": {}, "zagreb": {}, "split": {},
	"rijeka": {}, "osijek": {}, "zakona": {}, "zakon": {}, "agencija": {},
}

// HolderName applies label-anchored patterns in order and falls back to the
// first generic "Capitalised Capitalised" pair.
func HolderName(text string) (string, bool) {
	if m := fullNameLabel.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	if name, ok := pairedName(text, firstNameHR, lastNameHR); ok {
		return name, true
	}
	if name, ok := pairedName(text, firstNameEN, lastNameEN); ok {
		return name, true
	}
	for _, m := range genericName.FindAllStringSubmatch(text, -1) {
		candidate := strings.TrimSpace(m[1])
		if !containsStopword(candidate) {
			return candidate, true
		}
	}
	return "", false
}

// pairedName joins separate given-name and surname labels. A single label
// whose value already holds two words is accepted on its own.
func pairedName(text string, first, last *regexp.Regexp) (string, bool) {
	var given, family string
	if m := first.FindStringSubmatch(text); m != nil {
		given = m[1]
	}
	if m := last.FindStringSubmatch(text); m != nil {
		family = m[1]
	}
	switch {
	case given != "" && family != "":
		return given + " " + family, true
	case given != "" && strings.Contains(given, " "):
		return given, true
	case family != "" && strings.Contains(family, " "):
		return family, true
	}
	return "", false
}

func containsStopword(s string) bool {
	for _, w := range strings.Fields(strings.ToLower(s)) {
		if _, ok := nameStopwords[w]; ok {
			return true
		}
	}
	return false
}
