// Package document turns recognized text into typed candidate fields.
// Extraction never fails: fields that cannot be found are omitted.
package document

import (
	"time"
)

// Type is the kind of document a user uploaded.
type Type string

const (
	TypeRPOSolution Type = "RPO_SOLUTION"
	TypeLicense     Type = "LICENSE"
	TypeIDCard      Type = "ID_CARD"
)

// ParseType maps a client-provided hint to a Type, defaulting to an RPO solution.
func ParseType(s string) (Type, bool) {
	switch Type(s) {
	case TypeRPOSolution, TypeLicense, TypeIDCard:
		return Type(s), true
	case "":
		return TypeRPOSolution, true
	default:
		return "", false
	}
}

// Field names the extracted values.
type Field string

const (
	FieldTaxID            Field = "taxId"
	FieldHolderName       Field = "holderName"
	FieldIssuedAt         Field = "issuedAt"
	FieldExpiresAt        Field = "expiresAt"
	FieldDocumentNumber   Field = "documentNumber"
	FieldIssuingAuthority Field = "issuingAuthority"
	FieldLicenseType      Field = "licenseType"
	FieldDateOfBirth      Field = "dateOfBirth"
)

// DateLayout is how date fields are stored in ExtractedData.Fields.
const DateLayout = "2006-01-02"

// ExtractedData is the typed result of extraction.
type ExtractedData struct {
	DocumentType Type             `json:"documentType"`
	Fields       map[Field]string `json:"fields"`
	// Confidence is the 0-100 score reported by text recognition.
	Confidence int `json:"confidence"`
	// TextLength is the number of characters that were analysed.
	TextLength int `json:"textLength"`
}

// Get returns a field value and whether it was extracted.
func (d ExtractedData) Get(f Field) (string, bool) {
	v, ok := d.Fields[f]
	return v, ok && v != ""
}

// Date returns a date field parsed back into a time.Time (UTC midnight).
func (d ExtractedData) Date(f Field) (time.Time, bool) {
	v, ok := d.Get(f)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, v)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func (d *ExtractedData) set(f Field, v string) {
	if v == "" {
		return
	}
	if d.Fields == nil {
		d.Fields = make(map[Field]string)
	}
	d.Fields[f] = v
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}
