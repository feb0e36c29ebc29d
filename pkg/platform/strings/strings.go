// Package strings provides text normalization used when comparing names and
// collecting messages.
package strings

import (
	"strings"
)

var croatianFolder = strings.NewReplacer(
	"č", "c", "ć", "c", "đ", "d", "š", "s", "ž", "z",
	"Č", "c", "Ć", "c", "Đ", "d", "Š", "s", "Ž", "z",
)

// FoldDiacritics lower-cases s and maps Croatian letters to their ASCII base.
//
//	FoldDiacritics("Mirković Đurđa") // "mirkovic durda"
func FoldDiacritics(s string) string {
	return strings.ToLower(croatianFolder.Replace(s))
}

// CollapseSpaces trims s and reduces internal whitespace runs to one space.
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// DedupeAndTrim removes duplicates and empty strings from a slice,
// trimming whitespace from each element. Order is preserved.
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; !ok {
			seen[trimmed] = struct{}{}
			result = append(result, trimmed)
		}
	}
	return result
}
