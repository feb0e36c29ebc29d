package document

import (
	"strings"
	"unicode/utf8"
)

// Extract parses recognized text into candidate fields. It never fails;
// fields that cannot be found are omitted. Confidence is left for the
// caller, who knows what the text recognizer reported.
func Extract(text string, hint Type) ExtractedData {
	if hint == "" {
		hint = TypeRPOSolution
	}
	out := ExtractedData{
		DocumentType: hint,
		Fields:       make(map[Field]string),
		TextLength:   utf8.RuneCountInString(strings.TrimSpace(text)),
	}

	taxID, _ := TaxID(text)
	out.set(FieldTaxID, taxID)

	if name, ok := HolderName(text); ok {
		out.set(FieldHolderName, name)
	}

	dates := ExtractDates(text, hint == TypeIDCard)
	out.set(FieldIssuedAt, formatDate(dates.IssuedAt))
	out.set(FieldExpiresAt, formatDate(dates.ExpiresAt))
	out.set(FieldDateOfBirth, formatDate(dates.BirthDate))

	switch hint {
	case TypeLicense:
		if number, ok := LicenseNumber(text, taxID); ok {
			out.set(FieldDocumentNumber, number)
		}
		if lt, ok := LicenseType(text); ok {
			out.set(FieldLicenseType, lt)
		}
		if authority, ok := IssuingAuthority(text); ok {
			out.set(FieldIssuingAuthority, authority)
		}
	case TypeIDCard:
		if number, ok := IDDocumentNumber(stripTaxID(text, taxID)); ok {
			out.set(FieldDocumentNumber, number)
		}
		if authority, ok := IDIssuingAuthority(text); ok {
			out.set(FieldIssuingAuthority, authority)
		}
	case TypeRPOSolution:
		if IsRPODocument(text) {
			out.set(FieldIssuingAuthority, "Porezna uprava")
		}
	}
	return out
}

// stripTaxID blanks the tax ID so its digits are not read as a card number.
func stripTaxID(text, taxID string) string {
	if taxID == "" {
		return text
	}
	return strings.ReplaceAll(text, taxID, " ")
}
