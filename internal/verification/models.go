package verification

import (
	"verity/internal/document"
	"verity/internal/registry"
	"verity/internal/trust"
	"verity/internal/validation"
	id "verity/pkg/domain"
)

// MinConfidence is the recognition confidence below which a document is
// sent to manual review instead of being trusted automatically.
const MinConfidence = 50

// MaxBatchSize caps a single batch auto-verification run.
const MaxBatchSize = 100

// UploadRequest is one document upload.
type UploadRequest struct {
	UserID       id.UserID
	DocumentType document.Type
	Front        []byte
	// Back is the optional reverse side of an ID card.
	Back     []byte
	Declared validation.Declared
}

// ProfileRequest carries the profile fields whose change triggers an
// automatic pass. Email and phone are confirmed through ConfirmChannel only.
type ProfileRequest struct {
	UserID      id.UserID
	TaxID       string
	CompanyName string
	LegalStatus string
	Profession  string
}

// Result is what every pipeline operation reports. Failures are data:
// Success is false and Failure plus Messages say what to do next.
type Result struct {
	Success       bool                    `json:"success"`
	Failure       Failure                 `json:"failure,omitempty"`
	Verified      []trust.Channel         `json:"verified"`
	Pending       []trust.Channel         `json:"pending"`
	ExtractedData *document.ExtractedData `json:"extractedData,omitempty"`
	Validation    *validation.Result      `json:"validation,omitempty"`
	TrustScore    int                     `json:"trustScore"`
	Messages      []string                `json:"messages"`
	Registry      []registry.CheckResult  `json:"registry,omitempty"`

	// Record is the stored record after the operation, when one was written.
	Record *trust.Record `json:"-"`
}

func newResult() Result {
	return Result{
		Verified: []trust.Channel{},
		Pending:  []trust.Channel{},
		Messages: []string{},
	}
}

func (r *Result) fail(f Failure, msg string) {
	r.Success = false
	r.Failure = f
	if msg != "" {
		r.Messages = append(r.Messages, msg)
	}
}

func (r *Result) say(msg string) {
	for _, m := range r.Messages {
		if m == msg {
			return
		}
	}
	r.Messages = append(r.Messages, msg)
}

// BatchItem is the outcome for one user of a batch run.
type BatchItem struct {
	UserID     id.UserID       `json:"userId"`
	Verified   []trust.Channel `json:"verified"`
	Pending    []trust.Channel `json:"pending"`
	TrustScore int             `json:"trustScore"`
	Failure    Failure         `json:"failure,omitempty"`
}

// BatchReport summarizes a batch auto-verification run.
type BatchReport struct {
	Requested int         `json:"requested"`
	Processed int         `json:"processed"`
	Verified  int         `json:"verified"`
	Pending   int         `json:"pending"`
	Failed    int         `json:"failed"`
	Items     []BatchItem `json:"items"`
}
