package handler

import (
	"fmt"
	"strings"

	"verity/internal/trust"
	"verity/internal/validation/oib"
	"verity/internal/verification"
	id "verity/pkg/domain"
	dErrors "verity/pkg/domain-errors"
)

const (
	maxFieldLength = 200
	maxNoteLength  = 1000
)

// ProfileRequest is the body of POST /verification/profile.
type ProfileRequest struct {
	TaxID       string `json:"taxId"`
	CompanyName string `json:"companyName"`
	LegalStatus string `json:"legalStatus"`
	Profession  string `json:"profession"`
}

// Validate bounds field sizes. Checksum problems are reported by the
// pipeline, not rejected here.
func (r *ProfileRequest) Validate() error {
	r.TaxID = strings.TrimSpace(r.TaxID)
	if len(r.TaxID) > 20 {
		return dErrors.New(dErrors.CodeValidation, "taxId must be at most 20 characters")
	}
	for name, v := range map[string]string{"companyName": r.CompanyName, "legalStatus": r.LegalStatus, "profession": r.Profession} {
		if len(v) > maxFieldLength {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s must be at most %d characters", name, maxFieldLength))
		}
	}
	return nil
}

func (r *ProfileRequest) toDomain(userID id.UserID) verification.ProfileRequest {
	return verification.ProfileRequest{
		UserID:      userID,
		TaxID:       r.TaxID,
		CompanyName: r.CompanyName,
		LegalStatus: r.LegalStatus,
		Profession:  r.Profession,
	}
}

// ManualRequest is the body of POST /admin/verification/{userID}. Omitted
// fields are left unchanged; an empty taxId clears the stored one.
type ManualRequest struct {
	EmailVerified   *bool             `json:"emailVerified"`
	PhoneVerified   *bool             `json:"phoneVerified"`
	IDVerified      *bool             `json:"idVerified"`
	CompanyVerified *bool             `json:"companyVerified"`
	TaxIDValidated  *bool             `json:"taxIdValidated"`
	TaxID           *string           `json:"taxId"`
	TrustScore      *int              `json:"trustScore"`
	CompanyName     *string           `json:"companyName"`
	LegalStatus     *string           `json:"legalStatus"`
	Profession      *string           `json:"profession"`
	States          map[string]string `json:"states"`
	Note            string            `json:"note"`
}

// Validate checks channel and state names and field sizes.
func (r *ManualRequest) Validate() error {
	if r.TaxID != nil {
		v := strings.TrimSpace(*r.TaxID)
		if v != "" && len(v) != oib.Length {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("taxId must have %d digits", oib.Length))
		}
		r.TaxID = &v
	}
	for ch, s := range r.States {
		if !trust.Channel(ch).Valid() {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown channel %q", ch))
		}
		if !trust.State(s).Valid() {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown state %q", s))
		}
	}
	if len(r.Note) > maxNoteLength {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("note must be at most %d characters", maxNoteLength))
	}
	return nil
}

func (r *ManualRequest) toUpdate(actor string) *trust.ManualUpdate {
	u := trust.NewManualUpdate(actor)
	if r.EmailVerified != nil {
		u.SetEmail(*r.EmailVerified)
	}
	if r.PhoneVerified != nil {
		u.SetPhone(*r.PhoneVerified)
	}
	if r.IDVerified != nil {
		u.SetIDDocument(*r.IDVerified)
	}
	if r.CompanyVerified != nil {
		u.SetCompany(*r.CompanyVerified)
	}
	if r.TaxIDValidated != nil {
		u.SetTaxIDValidated(*r.TaxIDValidated)
	}
	if r.TaxID != nil {
		if *r.TaxID == "" {
			u.ClearTaxID()
		} else {
			u.SetTaxID(*r.TaxID)
		}
	}
	if r.TrustScore != nil {
		u.SetScore(*r.TrustScore)
	}
	if r.CompanyName != nil {
		u.SetCompanyName(*r.CompanyName)
	}
	if r.LegalStatus != nil {
		u.SetLegalStatus(*r.LegalStatus)
	}
	if r.Profession != nil {
		u.SetProfession(*r.Profession)
	}
	for ch, s := range r.States {
		u.SetState(trust.Channel(ch), trust.State(s))
	}
	if strings.TrimSpace(r.Note) != "" {
		u.AddNote(strings.TrimSpace(r.Note))
	}
	return u
}
