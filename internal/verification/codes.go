package verification

// Failure classifies why an operation did not complete. Document findings
// are reported through validation codes instead.
type Failure string

const (
	FailureNone            Failure = ""
	FailureInvalidRequest  Failure = "invalid_request"
	FailureInvalidState    Failure = "invalid_state"
	FailureDocumentBlocked Failure = "document_blocked"
	FailureTimeout         Failure = "timeout"
	FailureAudit           Failure = "audit_failed"
	FailureStorage         Failure = "storage_unavailable"
)

const (
	msgNoDocument      = "No document was uploaded. Please attach a photo or PDF of the document."
	msgUnreadable      = "Document text could not be read. Please re-upload a sharper photo."
	msgLowConfidence   = "The document photo is unclear. It was sent for manual review; a sharper photo speeds this up."
	msgChecksum        = "The OIB does not pass the check digit. Please check the number and try again."
	msgExpired         = "The document has expired. Please upload a valid document."
	msgNameMissing     = "The holder name could not be read. The document was sent for manual review."
	msgNameMismatch    = "The name on the document does not match your profile name."
	msgTaxIDMismatch   = "The OIB on the document differs from the OIB in your profile."
	msgTaxIDMissing    = "The OIB could not be read from the document. It was sent for manual review."
	msgNumberMissing   = "The document number could not be read. The document was sent for manual review."
	msgInvalidDates    = "The dates on the document are inconsistent. The document was sent for manual review."
	msgRegistryBlocked = "The registry refused an automated lookup. Please upload your registration document for manual review."
	msgRegistryDown    = "A registry is temporarily unavailable. Your profile was sent for manual review."
	msgNotFound        = "No active registration was found for this OIB."
	msgTimeout         = "Verification took too long. Please try again later."
	msgStorage         = "Your verification could not be saved. Please try again later."
	msgCompanyVerified = "Your business registration was confirmed."
	msgIDVerified      = "Your identity document was confirmed."
	msgNoChange        = "Nothing new to verify."
)

const msgInactive = "The registration for this OIB is not active."
