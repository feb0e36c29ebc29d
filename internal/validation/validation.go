package validation

import (
	"fmt"
	"strings"
	"time"

	"verity/internal/document"
	"verity/internal/validation/oib"
	textutil "verity/pkg/platform/strings"
)

const (
	// MinTextLength is the shortest recognized text worth analysing.
	MinTextLength = 50
	// ExpiryWarningDays is how close to expiry a document draws a warning.
	ExpiryWarningDays = 90
)

// Declared holds what the user reported about themselves.
type Declared struct {
	TaxID    string `json:"taxId,omitempty"`
	FullName string `json:"fullName,omitempty"`
}

// Issue is a single validation finding.
type Issue struct {
	Code    Code           `json:"code"`
	Field   document.Field `json:"field,omitempty"`
	Message string         `json:"message"`
	// Days is set for expiry findings.
	Days int `json:"days,omitempty"`
}

// Result collects findings. Valid is false when there is at least one error.
type Result struct {
	Valid    bool    `json:"isValid"`
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

// Blocking reports whether any error prevents automatic approval.
func (r Result) Blocking() bool {
	for _, e := range r.Errors {
		if e.Code.Blocks() {
			return true
		}
	}
	return false
}

// Has reports whether an error or warning with the code was raised.
func (r Result) Has(code Code) bool {
	for _, i := range r.Errors {
		if i.Code == code {
			return true
		}
	}
	for _, i := range r.Warnings {
		if i.Code == code {
			return true
		}
	}
	return false
}

func (r *Result) fail(i Issue) { r.Errors = append(r.Errors, i) }
func (r *Result) warn(i Issue) { r.Warnings = append(r.Warnings, i) }

// ValidOIB reports whether s is a well-formed OIB with a correct check digit.
func ValidOIB(s string) bool { return oib.Valid(s) }

// CheckDigit computes the OIB check digit of a 10-digit prefix.
func CheckDigit(prefix string) (int, bool) { return oib.CheckDigit(prefix) }

// NameMatches compares names after folding diacritics, lower-casing and
// collapsing whitespace. Either name containing the other is a match.
func NameMatches(a, b string) bool {
	na := textutil.CollapseSpaces(textutil.FoldDiacritics(a))
	nb := textutil.CollapseSpaces(textutil.FoldDiacritics(b))
	if na == "" || nb == "" {
		return false
	}
	return strings.Contains(na, nb) || strings.Contains(nb, na)
}

// Validate checks extracted data against the declared profile at time now.
func Validate(data document.ExtractedData, declared Declared, now time.Time) Result {
	var r Result
	r.Errors = []Issue{}
	r.Warnings = []Issue{}

	if data.TextLength < MinTextLength {
		r.warn(Issue{
			Code:    CodeDocumentUnreadable,
			Message: "Document text could not be read. Please re-upload a sharper photo.",
		})
	}

	checkTaxID(&r, data, declared)
	checkName(&r, data, declared)
	checkDates(&r, data, now)
	if data.DocumentType == document.TypeLicense {
		checkLicense(&r, data)
	}

	r.Valid = len(r.Errors) == 0
	return r
}

// checkTaxID blocks only on the document's own OIB. A bad declared OIB is
// profile data and only sends the document to review.
func checkTaxID(r *Result, data document.ExtractedData, declared Declared) {
	declaredID := strings.TrimSpace(declared.TaxID)

	extracted, ok := data.Get(document.FieldTaxID)
	switch {
	case !ok:
		r.warn(Issue{Code: CodeFieldNotExtracted, Field: document.FieldTaxID, Message: "OIB was not found on the document."})
	case !oib.Valid(extracted):
		r.fail(Issue{Code: CodeChecksumInvalid, Field: document.FieldTaxID, Message: "OIB on the document fails the check digit."})
		return
	}

	switch {
	case declaredID == "":
	case !oib.Valid(declaredID):
		r.warn(Issue{Code: CodeFieldMismatch, Field: document.FieldTaxID, Message: "Declared OIB is not valid and cannot be compared with the document."})
	case ok && declaredID != extracted:
		r.warn(Issue{Code: CodeFieldMismatch, Field: document.FieldTaxID, Message: "OIB on the document differs from the declared OIB."})
	}
}

func checkName(r *Result, data document.ExtractedData, declared Declared) {
	name, ok := data.Get(document.FieldHolderName)
	if !ok {
		r.warn(Issue{Code: CodeFieldNotExtracted, Field: document.FieldHolderName, Message: "Holder name was not found on the document."})
		return
	}
	if strings.TrimSpace(declared.FullName) != "" && !NameMatches(name, declared.FullName) {
		r.warn(Issue{Code: CodeFieldMismatch, Field: document.FieldHolderName, Message: "Name on the document does not match the profile name."})
	}
}

func checkDates(r *Result, data document.ExtractedData, now time.Time) {
	issued, hasIssued := data.Date(document.FieldIssuedAt)
	expires, hasExpiry := data.Date(document.FieldExpiresAt)

	if hasIssued && hasExpiry && expires.Before(issued) {
		r.fail(Issue{Code: CodeInvalidDates, Field: document.FieldExpiresAt, Message: "Expiry date is before the issue date."})
	}
	if !hasExpiry {
		return
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	days := int(expires.Sub(today).Hours() / 24)
	switch {
	case expires.Before(today):
		r.fail(Issue{
			Code:    CodeDocumentExpired,
			Field:   document.FieldExpiresAt,
			Message: fmt.Sprintf("Document expired %d days ago.", -days),
			Days:    days,
		})
	case days <= ExpiryWarningDays:
		r.warn(Issue{
			Code:    CodeExpiringSoon,
			Field:   document.FieldExpiresAt,
			Message: fmt.Sprintf("Document expires in %d days.", days),
			Days:    days,
		})
	}
}

func checkLicense(r *Result, data document.ExtractedData) {
	number, hasNumber := data.Get(document.FieldDocumentNumber)
	if !hasNumber {
		r.fail(Issue{Code: CodeFieldNotExtracted, Field: document.FieldDocumentNumber, Message: "License number was not found."})
	}
	if _, ok := data.Get(document.FieldLicenseType); !ok {
		r.warn(Issue{Code: CodeFieldNotExtracted, Field: document.FieldLicenseType, Message: "License type was not recognised."})
	}
	authority, hasAuthority := data.Get(document.FieldIssuingAuthority)
	if !hasAuthority {
		r.warn(Issue{Code: CodeFieldNotExtracted, Field: document.FieldIssuingAuthority, Message: "Issuing authority was not recognised."})
	}
	if _, ok := data.Get(document.FieldIssuedAt); !ok {
		r.warn(Issue{Code: CodeFieldNotExtracted, Field: document.FieldIssuedAt, Message: "Issue date was not found."})
	}
	if hasNumber && hasAuthority && !LicenseNumberFormat(authority, number) {
		r.warn(Issue{Code: CodeLicenseFormat, Field: document.FieldDocumentNumber, Message: fmt.Sprintf("License number %q has an unexpected format for %s.", number, authority)})
	}
}
