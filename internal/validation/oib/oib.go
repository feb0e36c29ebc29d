// Package oib implements the Croatian personal identification number (OIB)
// check digit, ISO 7064 MOD 11,10.
package oib

// Length is the number of digits in an OIB.
const Length = 11

// CheckDigit computes the check digit for a 10-digit prefix. ok is false
// when prefix is not exactly 10 ASCII digits.
func CheckDigit(prefix string) (digit int, ok bool) {
	if len(prefix) != Length-1 {
		return 0, false
	}
	s := 10
	for i := 0; i < len(prefix); i++ {
		c := prefix[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		s = (s + int(c-'0')) % 10
		if s == 0 {
			s = 10
		}
		s = (s * 2) % 11
	}
	return (11 - s) % 10, true
}

// Valid reports whether s is exactly 11 ASCII digits with a correct check digit.
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}
	want, ok := CheckDigit(s[:Length-1])
	if !ok {
		return false
	}
	last := s[Length-1]
	if last < '0' || last > '9' {
		return false
	}
	return int(last-'0') == want
}

// Complete appends the check digit to a 10-digit prefix.
func Complete(prefix string) (string, bool) {
	d, ok := CheckDigit(prefix)
	if !ok {
		return "", false
	}
	return prefix + string(rune('0'+d)), true
}
