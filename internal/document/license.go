package document

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// licenseTypes maps recognised fragments to license types. Order matters:
// the first type with a matching keyword wins.
var licenseTypes = []struct {
	Type     string
	Keywords []string
}{
	{"elektrotehnička", []string{"elektrotehni", "elektro", "hkie", "električar"}},
	{"građevinska", []string{"građevinska", "gradevinska", "hkgk", "građevinar"}},
	{"arhitektonska", []string{"arhitektonska", "arhitekt", "hka"}},
	{"odvjetnička", []string{"odvjetni", "odvjetnik", "hok"}},
	{"fizioterapeutska", []string{"fizioterapeut", "hkf"}},
	{"prijevoz", []string{"prijevoz", "transport", "mppi", "autoprijevoz"}},
	{"osiguranje", []string{"osiguranje", "osiguravajuć", "hanfa"}},
	{"vodovodna", []string{"vodovodna", "vodoinstalater", "vodoinstalacij"}},
}

// issuingAuthorities maps recognised fragments to the authority that issues
// the license.
var issuingAuthorities = []struct {
	Authority string
	Keywords  []string
}{
	{"Hrvatska komora inženjera elektrotehnike", []string{"hkie", "hrvatska komora inženjera elektrotehnike", "elektrotehni"}},
	{"Hrvatska komora inženjera građevinarstva", []string{"hkgk", "hrvatska komora inženjera građevinarstva", "gradevinsk"}},
	{"Hrvatska komora arhitekata", []string{"hka", "hrvatska komora arhitekata"}},
	{"Hrvatska odvjetnička komora", []string{"hok", "hrvatska odvjetnička komora", "odvjetnička komora"}},
	{"Hrvatska komora fizioterapeuta", []string{"hkf", "hrvatska komora fizioterapeuta"}},
	{"Ministarstvo mora, prometa i infrastrukture", []string{"mppi", "ministarstvo mora", "ministarstvo prometa", "prometa i infrastrukture"}},
	{"Hrvatska agencija za nadzor financijskih usluga", []string{"hanfa", "agencija za nadzor financijskih"}},
}

// licenseNumberPatterns are tried in order; the first capture that contains
// a digit wins.
var licenseNumberPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)broj[ \t]*(?:licence|dozvole|dozvola|registracije)?[ \t]*:?[ \t]*([A-Z0-9/\-]{3,20})`),
	regexp.MustCompile(`(?i)(?:reg\.?[ \t]*br\.?|registarski[ \t]*broj)[ \t]*:?[ \t]*([A-Z0-9/\-]{3,20})`),
	regexp.MustCompile(`(?i)(?:br\.?[ \t]*|broj)[ \t]*([A-Z]\d{4,10}|\d{5,10}[A-Z]?|\d{4,10})`),
	regexp.MustCompile(`(?i)licenca[ \t]*(?:br\.?|broj)?[ \t]*:?[ \t]*([A-Z0-9/\-]{3,20})`),
	regexp.MustCompile(`(?:^|[^A-Za-z0-9])([A-Z]\d{4,10}|\d{5,10}[A-Z]?)(?:$|[^A-Za-z0-9])`),
}

// LicenseNumber extracts the license or registration number. The tax ID is
// excluded so an OIB printed on the license is not mistaken for it.
func LicenseNumber(text, taxID string) (string, bool) {
	for _, re := range licenseNumberPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			candidate := strings.Trim(m[1], "/-")
			if !hasDigit(candidate) || candidate == taxID {
				continue
			}
			return strings.ToUpper(candidate), true
		}
	}
	return "", false
}

// LicenseType returns the display label for the first matching license type,
// e.g. "Elektrotehnička licenca".
func LicenseType(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, lt := range licenseTypes {
		for _, kw := range lt.Keywords {
			if strings.Contains(lower, kw) {
				return capitalize(lt.Type) + " licenca", true
			}
		}
	}
	return "", false
}

// IssuingAuthority returns the first authority whose keyword occurs in text.
func IssuingAuthority(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, a := range issuingAuthorities {
		for _, kw := range a.Keywords {
			if strings.Contains(lower, kw) {
				return a.Authority, true
			}
		}
	}
	return "", false
}

func hasDigit(s string) bool {
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
