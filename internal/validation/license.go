package validation

import (
	"regexp"
	"strings"
)

var (
	chamberNumber   = regexp.MustCompile(`^[A-Z]?\d{4,8}$`)
	lawyerNumber    = regexp.MustCompile(`^[A-Z0-9/-]{5,15}$`)
	transportNumber = regexp.MustCompile(`^[A-Z0-9/-]{6,20}$`)
)

// licenseFormats maps authority fragments to the number format that
// authority issues. The first matching fragment wins.
var licenseFormats = []struct {
	fragments []string
	format    *regexp.Regexp
}{
	{[]string{"elektrotehnik", "hkie"}, chamberNumber},
	{[]string{"građevinar", "gradevinar", "hkgk"}, chamberNumber},
	{[]string{"arhitekata", "hka"}, chamberNumber},
	{[]string{"odvjetni", "hok"}, lawyerNumber},
	{[]string{"promet", "infrastrukture", "prijevoz"}, transportNumber},
}

// LicenseNumberFormat reports whether number has the format the authority
// issues. Authorities without a known format accept any number of at least
// three characters.
func LicenseNumberFormat(authority, number string) bool {
	number = strings.TrimSpace(number)
	lower := strings.ToLower(authority)
	for _, lf := range licenseFormats {
		for _, f := range lf.fragments {
			if strings.Contains(lower, f) {
				return lf.format.MatchString(number)
			}
		}
	}
	return len(number) >= 3
}
