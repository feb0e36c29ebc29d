package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFoldDiacritics(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Mirković", "mirkovic"},
		{"ĐURĐA Šimić", "durda simic"},
		{"Žužić Čačić", "zuzic cacic"},
		{"plain ascii", "plain ascii"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, FoldDiacritics(tt.input))
		})
	}
}

func TestCollapseSpaces(t *testing.T) {
	assert.Equal(t, "Ana Horvat", CollapseSpaces("  Ana \t\n Horvat  "))
	assert.Equal(t, "", CollapseSpaces("   "))
}

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{name: "nil slice", input: nil, expected: nil},
		{name: "empty slice", input: []string{}, expected: []string{}},
		{
			name:     "trims and removes duplicates preserving order",
			input:    []string{"  re-upload ", "check OIB", "re-upload", "", "  "},
			expected: []string{"re-upload", "check OIB"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrim(tt.input))
		})
	}
}
