package validation

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verity/internal/document"
)

const validOIB = "69435151530"

var now = time.Date(2025, 6, 1, 15, 30, 0, 0, time.UTC)

func licenseData(fields map[document.Field]string) document.ExtractedData {
	return document.ExtractedData{
		DocumentType: document.TypeLicense,
		Fields:       fields,
		Confidence:   90,
		TextLength:   240,
	}
}

func completeLicense() map[document.Field]string {
	return map[document.Field]string{
		document.FieldTaxID:            validOIB,
		document.FieldHolderName:       "Ivan Horvat",
		document.FieldIssuedAt:         "2021-03-10",
		document.FieldExpiresAt:        "2031-03-10",
		document.FieldDocumentNumber:   "E12345",
		document.FieldLicenseType:      "Elektrotehnička licenca",
		document.FieldIssuingAuthority: "Hrvatska komora inženjera elektrotehnike",
	}
}

func TestNameMatches(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"Mirković", "mirkovic horvat", true},
		{"Ivan Horvat", "IVAN   HORVAT", true},
		{"Đurđa Šimić", "durda simic", true},
		{"Ana Kovač", "Ivan Horvat", false},
		{"", "Ivan", false},
		{"  ", "  ", false},
	}
	for _, tt := range tests {
		t.Run(tt.a+"|"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, NameMatches(tt.a, tt.b))
			assert.Equal(t, tt.want, NameMatches(tt.b, tt.a), "match must be symmetric")
		})
	}
}

func TestValidate(t *testing.T) {
	t.Run("complete license passes", func(t *testing.T) {
		res := Validate(licenseData(completeLicense()), Declared{TaxID: validOIB, FullName: "Horvat"}, now)
		assert.True(t, res.Valid)
		assert.Empty(t, res.Errors)
		assert.Empty(t, res.Warnings)
		assert.False(t, res.Blocking())
	})

	t.Run("declared tax id mismatch is only a warning", func(t *testing.T) {
		res := Validate(licenseData(completeLicense()), Declared{TaxID: "12345678903"}, now)
		assert.True(t, res.Valid)
		require.Len(t, res.Warnings, 1)
		assert.Equal(t, CodeFieldMismatch, res.Warnings[0].Code)
		assert.Equal(t, document.FieldTaxID, res.Warnings[0].Field)
	})

	t.Run("declared tax id with bad checksum is a mismatch warning", func(t *testing.T) {
		res := Validate(licenseData(completeLicense()), Declared{TaxID: "12345678901"}, now)
		assert.True(t, res.Valid)
		assert.False(t, res.Blocking())
		assert.False(t, res.Has(CodeChecksumInvalid))
		require.Len(t, res.Warnings, 1)
		assert.Equal(t, CodeFieldMismatch, res.Warnings[0].Code)
		assert.Equal(t, document.FieldTaxID, res.Warnings[0].Field)
	})

	t.Run("extracted tax id with bad checksum blocks", func(t *testing.T) {
		fields := completeLicense()
		fields[document.FieldTaxID] = "69435151531"
		res := Validate(licenseData(fields), Declared{}, now)
		assert.True(t, res.Blocking())
	})

	t.Run("name mismatch is a warning", func(t *testing.T) {
		res := Validate(licenseData(completeLicense()), Declared{FullName: "Ana Kovač"}, now)
		assert.True(t, res.Valid)
		assert.True(t, res.Has(CodeFieldMismatch))
	})

	t.Run("expired document blocks", func(t *testing.T) {
		fields := completeLicense()
		fields[document.FieldExpiresAt] = "2025-05-22"
		res := Validate(licenseData(fields), Declared{}, now)
		assert.False(t, res.Valid)
		assert.True(t, res.Blocking())
		require.Len(t, res.Errors, 1)
		assert.Equal(t, CodeDocumentExpired, res.Errors[0].Code)
		assert.Equal(t, "Document expired 10 days ago.", res.Errors[0].Message)
	})

	t.Run("expiring soon carries the day count", func(t *testing.T) {
		fields := completeLicense()
		fields[document.FieldExpiresAt] = "2025-07-16"
		res := Validate(licenseData(fields), Declared{}, now)
		assert.True(t, res.Valid)
		require.Len(t, res.Warnings, 1)
		assert.Equal(t, CodeExpiringSoon, res.Warnings[0].Code)
		assert.Equal(t, 45, res.Warnings[0].Days)
		assert.Contains(t, res.Warnings[0].Message, "45 days")
	})

	t.Run("expiring today is not expired", func(t *testing.T) {
		fields := completeLicense()
		fields[document.FieldExpiresAt] = "2025-06-01"
		res := Validate(licenseData(fields), Declared{}, now)
		assert.False(t, res.Has(CodeDocumentExpired))
		assert.True(t, res.Has(CodeExpiringSoon))
	})

	t.Run("expiry before issue is invalid but not blocking", func(t *testing.T) {
		fields := completeLicense()
		fields[document.FieldIssuedAt] = "2032-01-01"
		res := Validate(licenseData(fields), Declared{}, now)
		assert.False(t, res.Valid)
		assert.True(t, res.Has(CodeInvalidDates))
		assert.False(t, res.Blocking())
	})

	t.Run("license without number", func(t *testing.T) {
		fields := completeLicense()
		delete(fields, document.FieldDocumentNumber)
		res := Validate(licenseData(fields), Declared{}, now)
		assert.False(t, res.Valid)
		assert.True(t, res.Has(CodeFieldNotExtracted))
		assert.False(t, res.Blocking())
	})

	t.Run("missing fields are warnings", func(t *testing.T) {
		data := document.ExtractedData{DocumentType: document.TypeRPOSolution, TextLength: 10}
		res := Validate(data, Declared{}, now)
		assert.True(t, res.Valid)
		codes := make([]Code, 0, len(res.Warnings))
		for _, w := range res.Warnings {
			codes = append(codes, w.Code)
		}
		assert.ElementsMatch(t, []Code{CodeDocumentUnreadable, CodeFieldNotExtracted, CodeFieldNotExtracted}, codes)
	})
}

func TestLicenseNumberFormat(t *testing.T) {
	tests := []struct {
		authority string
		number    string
		want      bool
	}{
		{"Hrvatska komora inženjera elektrotehnike", "E12345", true},
		{"Hrvatska komora inženjera elektrotehnike", "EE-12", false},
		{"Hrvatska komora inženjera građevinarstva", "1234", true},
		{"Hrvatska odvjetnička komora", "HOK/123", true},
		{"Hrvatska odvjetnička komora", "12", false},
		{"Ministarstvo mora, prometa i infrastrukture", "AP-2021/44", true},
		{"Hrvatska agencija za nadzor financijskih usluga", "X1", false},
		{"Hrvatska agencija za nadzor financijskih usluga", "HANFA-1", true},
	}
	for _, tt := range tests {
		t.Run(tt.authority+" "+tt.number, func(t *testing.T) {
			assert.Equal(t, tt.want, LicenseNumberFormat(tt.authority, tt.number))
		})
	}
}

func TestUnknownLicenseFormatWarns(t *testing.T) {
	fields := completeLicense()
	fields[document.FieldDocumentNumber] = "ABC-DEF-123"
	res := Validate(licenseData(fields), Declared{}, now)
	assert.True(t, res.Valid)
	assert.True(t, res.Has(CodeLicenseFormat))
	assert.True(t, strings.Contains(res.Warnings[0].Message, "ABC-DEF-123"))
}

func TestOIBHelpers(t *testing.T) {
	assert.True(t, ValidOIB(validOIB))
	assert.False(t, ValidOIB("12345678901"))
	d, ok := CheckDigit("6943515153")
	require.True(t, ok)
	assert.Equal(t, 0, d)
}
