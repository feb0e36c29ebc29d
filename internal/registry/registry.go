// Package registry reconciles a declared business or professional identity
// against external authorities. Every check is read-only and reports
// failures as data.
package registry

import (
	"context"
	"time"
)

// Source identifies an external authority.
type Source string

const (
	SourceCompany Source = "COMPANY_REGISTRY"
	SourceTrade   Source = "TRADE_REGISTRY"
	SourceChamber Source = "CHAMBER_REGISTRY"
	SourceVAT     Source = "VAT_REGISTRY"
)

// priority orders sources from most to least authoritative.
var priority = map[Source]int{
	SourceCompany: 0,
	SourceTrade:   1,
	SourceChamber: 2,
	SourceVAT:     3,
}

// Outcome tags a CheckResult.
type Outcome string

const (
	OutcomeVerified    Outcome = "verified"
	OutcomeNotVerified Outcome = "not_verified"
	OutcomeError       Outcome = "error"
)

// Notes attached to not_verified results.
const (
	NoteNotConfigured = "not configured"
	NoteManualUpload  = "manual upload required"
	NoteNotFound      = "not found"
	NoteUnavailable   = "registry unavailable"
	NoteInvalidFormat = "invalid format"
	NoteNotApplicable = "not applicable"
	NoteKnownVerified = "verified via existing verification"
)

// Data is what a registry reported about the subject.
type Data struct {
	TaxID              string `json:"taxId,omitempty"`
	Name               string `json:"name,omitempty"`
	Address            string `json:"address,omitempty"`
	Status             string `json:"status,omitempty"`
	RegistrationNumber string `json:"registrationNumber,omitempty"`
	TaxNumber          string `json:"taxNumber,omitempty"`
	LicenseNumber      string `json:"licenseNumber,omitempty"`
	Chamber            string `json:"chamber,omitempty"`
	VATID              string `json:"vatId,omitempty"`
	// Origin records where the confirmation came from when it was not the
	// registry itself, e.g. an earlier verification.
	Origin string `json:"origin,omitempty"`
}

// CheckResult is the outcome of one registry lookup.
type CheckResult struct {
	Source    Source    `json:"source"`
	Outcome   Outcome   `json:"outcome"`
	Active    bool      `json:"active"`
	Data      *Data     `json:"data,omitempty"`
	Note      string    `json:"note,omitempty"`
	Blocked   bool      `json:"blocked,omitempty"`
	Err       *Error    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checkedAt"`
	Cached    bool      `json:"cached,omitempty"`
}

// Confirmed reports whether the registry found an active entity.
func (r CheckResult) Confirmed() bool {
	return r.Outcome == OutcomeVerified && r.Active
}

// Cacheable reports whether the result may be reused. Errors and
// anti-automation blocks are transient.
func (r CheckResult) Cacheable() bool {
	return r.Outcome != OutcomeError && !r.Blocked && r.Note != NoteNotConfigured && r.Note != NoteUnavailable
}

func verified(src Source, active bool, data *Data, now time.Time) CheckResult {
	return CheckResult{Source: src, Outcome: OutcomeVerified, Active: active, Data: data, CheckedAt: now}
}

func notVerified(src Source, note string, now time.Time) CheckResult {
	return CheckResult{Source: src, Outcome: OutcomeNotVerified, Note: note, CheckedAt: now}
}

func failed(src Source, err *Error, now time.Time) CheckResult {
	return CheckResult{Source: src, Outcome: OutcomeError, Err: err, Note: err.Message, CheckedAt: now}
}

// Checker looks up one registry.
type Checker interface {
	Source() Source
	Check(ctx context.Context, taxID, declaredName string) CheckResult
}
