// Package trust owns the per-user verification record: channel flags,
// per-channel states and the trust score derived from them.
package trust

import (
	"slices"
	"time"

	id "verity/pkg/domain"
)

// Channel is one independent verification channel.
type Channel string

const (
	ChannelEmail      Channel = "email"
	ChannelPhone      Channel = "phone"
	ChannelTaxID      Channel = "tax_id"
	ChannelCompany    Channel = "company"
	ChannelIDDocument Channel = "id_document"
)

// Channels lists every channel in display order.
var Channels = []Channel{ChannelEmail, ChannelPhone, ChannelTaxID, ChannelCompany, ChannelIDDocument}

// Valid reports whether c is a known channel.
func (c Channel) Valid() bool { return slices.Contains(Channels, c) }

// Contributions is the fixed score each confirmed channel adds.
var Contributions = map[Channel]int{
	ChannelEmail:      20,
	ChannelPhone:      20,
	ChannelTaxID:      20,
	ChannelCompany:    40,
	ChannelIDDocument: 30,
}

const (
	MinScore = 0
	MaxScore = 100
)

// Note is one append-only audit line on a record.
type Note struct {
	At     time.Time `json:"at"`
	Source string    `json:"source"`
	Text   string    `json:"text"`
}

// Note sources.
const (
	NoteSourceAuto   = "auto"
	NoteSourceManual = "manual"
)

// Record is the verification state of one user.
type Record struct {
	UserID          id.UserID `json:"userId"`
	EmailVerified   bool      `json:"emailVerified"`
	PhoneVerified   bool      `json:"phoneVerified"`
	IDVerified      bool      `json:"idVerified"`
	CompanyVerified bool      `json:"companyVerified"`
	TaxID           string    `json:"taxId,omitempty"`
	TaxIDValidated  bool      `json:"taxIdValidated"`

	// Declared profile, kept so batch runs can re-evaluate without the
	// profile service.
	CompanyName string `json:"companyName,omitempty"`
	LegalStatus string `json:"legalStatus,omitempty"`
	Profession  string `json:"profession,omitempty"`

	TrustScore int               `json:"trustScore"`
	Notes      []Note            `json:"notes"`
	Channels   map[Channel]State `json:"channels"`
	Sources    []string          `json:"sources"`
	VerifiedAt *time.Time        `json:"verifiedAt,omitempty"`
	Version    int64             `json:"version"`
	CreatedAt  time.Time         `json:"createdAt"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

// NewRecord returns an empty record with every channel UNVERIFIED.
func NewRecord(userID id.UserID, now time.Time) *Record {
	r := &Record{
		UserID:    userID,
		Notes:     []Note{},
		Sources:   []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.normalize()
	return r
}

// normalize fills nil collections and missing channel states so records
// read from older rows behave like fresh ones.
func (r *Record) normalize() {
	if r.Notes == nil {
		r.Notes = []Note{}
	}
	if r.Sources == nil {
		r.Sources = []string{}
	}
	if r.Channels == nil {
		r.Channels = make(map[Channel]State, len(Channels))
	}
	for _, ch := range Channels {
		if _, ok := r.Channels[ch]; !ok {
			r.Channels[ch] = StateUnverified
		}
	}
}

// Normalize is exported for stores that decode records themselves.
func (r *Record) Normalize() { r.normalize() }

// Flag reports the channel's boolean flag.
func (r *Record) Flag(ch Channel) bool {
	switch ch {
	case ChannelEmail:
		return r.EmailVerified
	case ChannelPhone:
		return r.PhoneVerified
	case ChannelTaxID:
		return r.TaxIDValidated
	case ChannelCompany:
		return r.CompanyVerified
	case ChannelIDDocument:
		return r.IDVerified
	}
	return false
}

func (r *Record) setFlag(ch Channel, v bool) {
	switch ch {
	case ChannelEmail:
		r.EmailVerified = v
	case ChannelPhone:
		r.PhoneVerified = v
	case ChannelTaxID:
		r.TaxIDValidated = v
	case ChannelCompany:
		r.CompanyVerified = v
	case ChannelIDDocument:
		r.IDVerified = v
	}
}

// State returns the channel's state machine value.
func (r *Record) State(ch Channel) State {
	if s, ok := r.Channels[ch]; ok {
		return s
	}
	return StateUnverified
}

// Verified reports whether any channel is VERIFIED.
func (r *Record) Verified() bool {
	for _, ch := range Channels {
		if r.State(ch) == StateVerified {
			return true
		}
	}
	return false
}

// Pending reports whether any channel awaits review.
func (r *Record) Pending() bool {
	for _, ch := range Channels {
		if r.State(ch) == StatePendingReview {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (r *Record) Clone() *Record {
	c := *r
	c.Notes = slices.Clone(r.Notes)
	c.Sources = slices.Clone(r.Sources)
	c.Channels = make(map[Channel]State, len(r.Channels))
	for k, v := range r.Channels {
		c.Channels[k] = v
	}
	if r.VerifiedAt != nil {
		t := *r.VerifiedAt
		c.VerifiedAt = &t
	}
	c.normalize()
	return &c
}

// Score sums the contributions of every set flag, clamped to MaxScore.
func Score(r *Record) int {
	total := 0
	for _, ch := range Channels {
		if r.Flag(ch) {
			total += Contributions[ch]
		}
	}
	return clamp(total)
}

func clamp(score int) int {
	return max(MinScore, min(MaxScore, score))
}

func (r *Record) markVerified(now time.Time) {
	if r.VerifiedAt == nil && r.Verified() {
		t := now
		r.VerifiedAt = &t
	}
}

func (r *Record) addSource(src string) {
	if src != "" && !slices.Contains(r.Sources, src) {
		r.Sources = append(r.Sources, src)
	}
}
