// Package validation checks extracted document data. Blocking problems are
// reported as errors, advisory ones as warnings.
package validation

// Code classifies a validation or pipeline problem.
type Code string

const (
	CodeDocumentUnreadable  Code = "document_unreadable"
	CodeFieldNotExtracted   Code = "field_not_extracted"
	CodeChecksumInvalid     Code = "checksum_invalid"
	CodeDocumentExpired     Code = "document_expired"
	CodeExpiringSoon        Code = "expiring_soon"
	CodeFieldMismatch       Code = "field_mismatch"
	CodeInvalidDates        Code = "invalid_dates"
	CodeLicenseFormat       Code = "license_format"
	CodeRegistryUnavailable Code = "registry_unavailable"
	CodeRegistryBlocked     Code = "registry_blocked"
	CodeTimeout             Code = "timeout"
	CodeLowConfidence       Code = "low_confidence"
)

// Blocks reports whether the code prevents automatic approval outright.
// Everything else degrades to manual review.
func (c Code) Blocks() bool {
	return c == CodeChecksumInvalid || c == CodeDocumentExpired
}
