package trust

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"verity/internal/validation/oib"
)

// Optional distinguishes an omitted field from one explicitly set to its
// zero value.
type Optional[T any] struct {
	value T
	set   bool
}

// Some returns a set Optional.
func Some[T any](v T) Optional[T] { return Optional[T]{value: v, set: true} }

// Get returns the value and whether it was set.
func (o Optional[T]) Get() (T, bool) { return o.value, o.set }

// IsSet reports whether the field was provided.
func (o Optional[T]) IsSet() bool { return o.set }

// ManualUpdate is an admin change to a record. Build it with NewManualUpdate
// and the Set methods; unset fields are left untouched.
type ManualUpdate struct {
	Actor string

	flags       map[Channel]Optional[bool]
	states      map[Channel]State
	taxID       Optional[string]
	score       Optional[int]
	companyName Optional[string]
	legalStatus Optional[string]
	profession  Optional[string]
	notes       []string
}

// NewManualUpdate starts an update on behalf of actor.
func NewManualUpdate(actor string) *ManualUpdate {
	return &ManualUpdate{
		Actor:  actor,
		flags:  make(map[Channel]Optional[bool]),
		states: make(map[Channel]State),
	}
}

func (u *ManualUpdate) SetEmail(v bool) *ManualUpdate      { return u.SetFlag(ChannelEmail, v) }
func (u *ManualUpdate) SetPhone(v bool) *ManualUpdate      { return u.SetFlag(ChannelPhone, v) }
func (u *ManualUpdate) SetIDDocument(v bool) *ManualUpdate { return u.SetFlag(ChannelIDDocument, v) }
func (u *ManualUpdate) SetCompany(v bool) *ManualUpdate    { return u.SetFlag(ChannelCompany, v) }
func (u *ManualUpdate) SetTaxIDValidated(v bool) *ManualUpdate {
	return u.SetFlag(ChannelTaxID, v)
}

// SetFlag sets a channel's flag. Setting it moves the channel to VERIFIED,
// clearing it to UNVERIFIED, unless SetState overrides.
func (u *ManualUpdate) SetFlag(ch Channel, v bool) *ManualUpdate {
	u.flags[ch] = Some(v)
	return u
}

// SetState forces a channel's state.
func (u *ManualUpdate) SetState(ch Channel, s State) *ManualUpdate {
	u.states[ch] = s
	return u
}

func (u *ManualUpdate) SetTaxID(v string) *ManualUpdate {
	u.taxID = Some(strings.TrimSpace(v))
	return u
}

// ClearTaxID removes the tax ID and its validation flag.
func (u *ManualUpdate) ClearTaxID() *ManualUpdate {
	u.taxID = Some("")
	return u.SetFlag(ChannelTaxID, false)
}

// SetScore overrides the trust score. It is clamped to 0..100 on apply.
func (u *ManualUpdate) SetScore(v int) *ManualUpdate {
	u.score = Some(v)
	return u
}

func (u *ManualUpdate) SetCompanyName(v string) *ManualUpdate {
	u.companyName = Some(v)
	return u
}

func (u *ManualUpdate) SetLegalStatus(v string) *ManualUpdate {
	u.legalStatus = Some(v)
	return u
}

func (u *ManualUpdate) SetProfession(v string) *ManualUpdate {
	u.profession = Some(v)
	return u
}

func (u *ManualUpdate) AddNote(text string) *ManualUpdate {
	if t := strings.TrimSpace(text); t != "" {
		u.notes = append(u.notes, t)
	}
	return u
}

// Empty reports whether the update changes nothing.
func (u *ManualUpdate) Empty() bool {
	return len(u.flags) == 0 && len(u.states) == 0 && !u.taxID.IsSet() && !u.score.IsSet() &&
		!u.companyName.IsSet() && !u.legalStatus.IsSet() && !u.profession.IsSet() && len(u.notes) == 0
}

// ErrInvalidUpdate marks a manual update rejected before it touched a record.
var ErrInvalidUpdate = errors.New("invalid manual update")

// Validate checks the update before it touches a record.
func (u *ManualUpdate) Validate() error {
	if u.Empty() {
		return fmt.Errorf("%w: changes nothing", ErrInvalidUpdate)
	}
	for ch := range u.flags {
		if !ch.Valid() {
			return fmt.Errorf("%w: unknown channel %q", ErrInvalidUpdate, ch)
		}
	}
	for ch, s := range u.states {
		if !ch.Valid() {
			return fmt.Errorf("%w: unknown channel %q", ErrInvalidUpdate, ch)
		}
		if !s.Valid() {
			return fmt.Errorf("%w: unknown state %q", ErrInvalidUpdate, s)
		}
	}
	if v, ok := u.taxID.Get(); ok && v != "" && len(v) != oib.Length {
		return fmt.Errorf("%w: tax ID must have %d digits", ErrInvalidUpdate, oib.Length)
	}
	return nil
}

// Summary describes the update for audit entries.
func (u *ManualUpdate) Summary() string {
	var parts []string
	for _, ch := range Channels {
		if v, ok := u.flags[ch].Get(); ok {
			parts = append(parts, string(ch)+"="+strconv.FormatBool(v))
		}
		if s, ok := u.states[ch]; ok {
			parts = append(parts, string(ch)+"_state="+string(s))
		}
	}
	if v, ok := u.taxID.Get(); ok {
		if v == "" {
			parts = append(parts, "tax_id cleared")
		} else {
			parts = append(parts, "tax_id set")
		}
	}
	if v, ok := u.score.Get(); ok {
		parts = append(parts, "score="+strconv.Itoa(v))
	}
	if u.companyName.IsSet() {
		parts = append(parts, "company_name")
	}
	if u.legalStatus.IsSet() {
		parts = append(parts, "legal_status")
	}
	if u.profession.IsSet() {
		parts = append(parts, "profession")
	}
	if len(parts) == 0 {
		return "notes only"
	}
	return strings.Join(parts, ", ")
}

// ApplyManual applies an admin update. Unlike Merge it may clear flags and
// lower the score. When flags change without an explicit score the score is
// recomputed from the flags.
func ApplyManual(rec *Record, u *ManualUpdate, now time.Time) error {
	if err := u.Validate(); err != nil {
		return err
	}
	rec.normalize()
	next := rec.Clone()

	if v, ok := u.taxID.Get(); ok {
		next.TaxID = v
		if v != "" && !oib.Valid(v) {
			next.setFlag(ChannelTaxID, false)
		}
	}
	if v, ok := u.companyName.Get(); ok {
		next.CompanyName = v
	}
	if v, ok := u.legalStatus.Get(); ok {
		next.LegalStatus = v
	}
	if v, ok := u.profession.Get(); ok {
		next.Profession = v
	}

	flagsChanged := false
	for _, ch := range Channels {
		v, ok := u.flags[ch].Get()
		if !ok {
			continue
		}
		flagsChanged = flagsChanged || next.Flag(ch) != v
		next.setFlag(ch, v)
		target := StateUnverified
		if v {
			target = StateVerified
		}
		next.Channels[ch] = target
	}
	for _, ch := range Channels {
		s, ok := u.states[ch]
		if !ok {
			continue
		}
		to, err := ManualTransition(next.State(ch), s)
		if err != nil {
			return err
		}
		next.Channels[ch] = to
		switch to {
		case StateVerified:
			next.setFlag(ch, true)
		case StateRejected, StateUnverified:
			next.setFlag(ch, false)
		}
	}

	switch v, ok := u.score.Get(); {
	case ok:
		next.TrustScore = clamp(v)
	case flagsChanged || len(u.states) > 0:
		next.TrustScore = Score(next)
	}

	next.markVerified(now)
	next.UpdatedAt = now
	source := NoteSourceManual
	if u.Actor != "" {
		source = u.Actor
	}
	next.Notes = append(next.Notes, Note{At: now, Source: source, Text: "[Manual] " + u.Summary()})
	for _, n := range u.notes {
		next.Notes = append(next.Notes, Note{At: now, Source: source, Text: n})
	}

	*rec = *next
	return nil
}
