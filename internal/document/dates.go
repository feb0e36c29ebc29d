package document

import (
	"regexp"
	"sort"
	"strconv"
	"time"
)

const (
	minYear       = 1900
	maxBirthYear  = 2010
	minExpiryYear = 2020
	maxYear       = 2100

	windowBefore = 50
	windowAfter  = 100
)

var (
	dayMonthYear = regexp.MustCompile(`(\d{1,2})[ \t]?[./-][ \t]?(\d{1,2})[ \t]?[./-][ \t]?(\d{4})`)
	yearMonthDay = regexp.MustCompile(`(\d{4})-(\d{1,2})-(\d{1,2})`)

	issuedKeywords = regexp.MustCompile(`(?i)datum\s+izdavanja|izdan[oa]?|izdavanj[ea]|date\s+of\s+issue|issued|\bdana\b`)
	expiryKeywords = regexp.MustCompile(`(?i)istje[čc]e|vrijedi\s+do|va[žz]i\s+do|valjan[a]?\s+do|datum\s+isteka|\bistek|expir(?:es|y)|\bexp\.`)
	birthKeywords  = regexp.MustCompile(`(?i)datum\s+ro[đd]enja|date\s+of\s+birth|ro[đd]en[ja]?|\bdob\b`)
)

type dateMatch struct {
	at         time.Time
	start, end int
}

// Dates holds the dates assigned to document roles.
type Dates struct {
	IssuedAt  time.Time
	ExpiresAt time.Time
	BirthDate time.Time
}

// ExtractDates collects every valid calendar date in text and assigns roles.
// Dates near issue, expiry or birth keywords win; otherwise, with two or more
// distinct dates, the earliest is the issue date and the latest the expiry.
func ExtractDates(text string, withBirth bool) Dates {
	all := findDates(text)
	var out Dates
	if len(all) == 0 {
		return out
	}

	if withBirth {
		out.BirthDate, _ = labelledDate(text, birthKeywords, all, minYear, maxBirthYear)
	}
	out.ExpiresAt, _ = labelledDate(text, expiryKeywords, all, minExpiryYear, maxYear)
	out.IssuedAt, _ = labelledDate(text, issuedKeywords, all, minYear, maxYear)
	if !out.IssuedAt.IsZero() && out.IssuedAt.Equal(out.BirthDate) {
		out.IssuedAt = time.Time{}
	}

	if !out.IssuedAt.IsZero() && !out.ExpiresAt.IsZero() {
		return out
	}

	distinct := distinctDates(all, out.BirthDate)
	switch {
	case len(distinct) >= 2:
		if out.IssuedAt.IsZero() {
			out.IssuedAt = distinct[0]
		}
		if out.ExpiresAt.IsZero() {
			last := distinct[len(distinct)-1]
			if last.After(out.IssuedAt) {
				out.ExpiresAt = last
			}
		}
	case len(distinct) == 1 && out.IssuedAt.IsZero() && out.ExpiresAt.IsZero():
		out.IssuedAt = distinct[0]
	}
	return out
}

func findDates(text string) []dateMatch {
	var found []dateMatch
	for _, loc := range dayMonthYear.FindAllStringSubmatchIndex(text, -1) {
		if !bounded(text, loc[0], loc[1]) {
			continue
		}
		d, m, y := atoi(text[loc[2]:loc[3]]), atoi(text[loc[4]:loc[5]]), atoi(text[loc[6]:loc[7]])
		if t, ok := calendarDate(y, m, d); ok {
			found = append(found, dateMatch{at: t, start: loc[0], end: loc[1]})
		}
	}
	for _, loc := range yearMonthDay.FindAllStringSubmatchIndex(text, -1) {
		if !bounded(text, loc[0], loc[1]) {
			continue
		}
		y, m, d := atoi(text[loc[2]:loc[3]]), atoi(text[loc[4]:loc[5]]), atoi(text[loc[6]:loc[7]])
		if t, ok := calendarDate(y, m, d); ok {
			found = append(found, dateMatch{at: t, start: loc[0], end: loc[1]})
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].start < found[j].start })
	return found
}

// bounded rejects matches glued to further digits, e.g. parts of an OIB.
func bounded(text string, start, end int) bool {
	return !isDigitAt(text, start-1) && !isDigitAt(text, end)
}

func calendarDate(y, m, d int) (time.Time, bool) {
	if y < minYear || y > maxYear || m < 1 || m > 12 || d < 1 || d > 31 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d || int(t.Month()) != m {
		return time.Time{}, false
	}
	return t, true
}

// labelledDate finds the first date within the window after a keyword, or
// failing that the closest date shortly before it.
func labelledDate(text string, kw *regexp.Regexp, dates []dateMatch, fromYear, toYear int) (time.Time, bool) {
	for _, loc := range kw.FindAllStringIndex(text, -1) {
		for _, d := range dates {
			if d.start >= loc[1] && d.start <= loc[1]+windowAfter && inYears(d.at, fromYear, toYear) {
				return d.at, true
			}
		}
		for i := len(dates) - 1; i >= 0; i-- {
			d := dates[i]
			if d.end <= loc[0] && d.end >= loc[0]-windowBefore && inYears(d.at, fromYear, toYear) {
				return d.at, true
			}
		}
	}
	return time.Time{}, false
}

func inYears(t time.Time, from, to int) bool {
	return t.Year() >= from && t.Year() <= to
}

func distinctDates(all []dateMatch, exclude time.Time) []time.Time {
	seen := make(map[time.Time]struct{}, len(all))
	out := make([]time.Time, 0, len(all))
	for _, d := range all {
		if d.at.Equal(exclude) {
			continue
		}
		if _, ok := seen[d.at]; ok {
			continue
		}
		seen[d.at] = struct{}{}
		out = append(out, d.at)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
