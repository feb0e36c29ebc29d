package handler

import (
	"time"

	"verity/internal/trust"
	"verity/pkg/platform/audit"
)

// StatusResponse is the caller-facing view of a verification record.
type StatusResponse struct {
	UserID          string                        `json:"userId"`
	EmailVerified   bool                          `json:"emailVerified"`
	PhoneVerified   bool                          `json:"phoneVerified"`
	IDVerified      bool                          `json:"idVerified"`
	CompanyVerified bool                          `json:"companyVerified"`
	TaxID           string                        `json:"taxId,omitempty"`
	TaxIDValidated  bool                          `json:"taxIdValidated"`
	CompanyName     string                        `json:"companyName,omitempty"`
	TrustScore      int                           `json:"trustScore"`
	Channels        map[trust.Channel]trust.State `json:"channels"`
	Verified        bool                          `json:"verified"`
	PendingReview   bool                          `json:"pendingReview"`
	VerifiedAt      *time.Time                    `json:"verifiedAt,omitempty"`
	Notes           []trust.Note                  `json:"notes"`
	UpdatedAt       time.Time                     `json:"updatedAt,omitzero"`
}

// FromRecord maps a record to its response.
func FromRecord(r *trust.Record) StatusResponse {
	channels := make(map[trust.Channel]trust.State, len(trust.Channels))
	for _, ch := range trust.Channels {
		channels[ch] = r.State(ch)
	}
	notes := r.Notes
	if notes == nil {
		notes = []trust.Note{}
	}
	return StatusResponse{
		UserID:          r.UserID.String(),
		EmailVerified:   r.EmailVerified,
		PhoneVerified:   r.PhoneVerified,
		IDVerified:      r.IDVerified,
		CompanyVerified: r.CompanyVerified,
		TaxID:           r.TaxID,
		TaxIDValidated:  r.TaxIDValidated,
		CompanyName:     r.CompanyName,
		TrustScore:      r.TrustScore,
		Channels:        channels,
		Verified:        r.Verified(),
		PendingReview:   r.Pending(),
		VerifiedAt:      r.VerifiedAt,
		Notes:           notes,
		UpdatedAt:       r.UpdatedAt,
	}
}

// AuditEventResponse is one audit line.
type AuditEventResponse struct {
	ID        string    `json:"id"`
	Category  string    `json:"category"`
	Timestamp time.Time `json:"timestamp"`
	ActorID   string    `json:"actorId,omitempty"`
	Action    string    `json:"action"`
	Channel   string    `json:"channel,omitempty"`
	Decision  string    `json:"decision,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	RequestID string    `json:"requestId,omitempty"`
}

// AuditTrailResponse lists a user's audit events, most recent first.
type AuditTrailResponse struct {
	Events []AuditEventResponse `json:"events"`
}

// FromEvents maps audit events to the response. Subject hashes stay internal.
func FromEvents(events []audit.Event) AuditTrailResponse {
	out := make([]AuditEventResponse, len(events))
	for i, e := range events {
		out[i] = AuditEventResponse{
			ID:        e.ID.String(),
			Category:  string(e.Category),
			Timestamp: e.Timestamp,
			ActorID:   e.ActorID,
			Action:    e.Action,
			Channel:   e.Channel,
			Decision:  e.Decision,
			Reason:    e.Reason,
			RequestID: e.RequestID,
		}
	}
	return AuditTrailResponse{Events: out}
}
