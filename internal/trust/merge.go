package trust

import (
	"strings"
	"time"
)

// Evidence is what one automatic pass observed. Zero values mean "nothing
// observed", never "revoked".
type Evidence struct {
	EmailVerified bool
	PhoneVerified bool

	// TaxID is the declared or extracted tax ID; TaxIDValid reports its
	// checksum.
	TaxID      string
	TaxIDValid bool

	CompanyConfirmed bool
	CompanySources   []string

	IDDocumentMatched bool

	// Pending names channels whose evidence needs a human, with the reason.
	Pending map[Channel]string

	CompanyName string
	LegalStatus string
	Profession  string
}

// confirms reports whether the evidence confirms ch.
func (e Evidence) confirms(ch Channel) bool {
	switch ch {
	case ChannelEmail:
		return e.EmailVerified
	case ChannelPhone:
		return e.PhoneVerified
	case ChannelTaxID:
		return e.TaxIDValid
	case ChannelCompany:
		return e.CompanyConfirmed
	case ChannelIDDocument:
		return e.IDDocumentMatched
	}
	return false
}

// Changes summarizes what a merge did.
type Changes struct {
	Verified    []Channel
	Pending     []Channel
	ScoreBefore int
	ScoreAfter  int
}

// Changed reports whether the merge altered anything beyond the audit note.
func (c Changes) Changed() bool {
	return len(c.Verified) > 0 || len(c.Pending) > 0 || c.ScoreBefore != c.ScoreAfter
}

// Merge folds an automatic pass into rec. Flags are OR-merged, the score
// never decreases and exactly one note is appended. Merging the same
// evidence twice leaves flags and score unchanged. Rejected channels are
// left to manual action.
func Merge(rec *Record, ev Evidence, now time.Time) Changes {
	rec.normalize()
	changes := Changes{ScoreBefore: rec.TrustScore}

	if ev.TaxID != "" && (rec.TaxID == "" || (ev.TaxIDValid && !rec.TaxIDValidated)) {
		rec.TaxID = ev.TaxID
	}
	if ev.CompanyName != "" {
		rec.CompanyName = ev.CompanyName
	}
	if ev.LegalStatus != "" {
		rec.LegalStatus = ev.LegalStatus
	}
	if ev.Profession != "" {
		rec.Profession = ev.Profession
	}
	if ev.CompanyConfirmed {
		for _, src := range ev.CompanySources {
			rec.addSource(src)
		}
	}

	for _, ch := range Channels {
		from := rec.State(ch)
		if from == StateRejected {
			continue
		}
		if ev.confirms(ch) {
			if !rec.Flag(ch) {
				rec.setFlag(ch, true)
			}
			if to := AutoTransition(from, StateVerified); to != from {
				rec.Channels[ch] = to
				changes.Verified = append(changes.Verified, ch)
			}
			continue
		}
		if _, ok := ev.Pending[ch]; ok {
			if to := AutoTransition(from, StatePendingReview); to != from {
				rec.Channels[ch] = to
				changes.Pending = append(changes.Pending, ch)
			}
		}
	}

	rec.TrustScore = max(rec.TrustScore, Score(rec))
	changes.ScoreAfter = rec.TrustScore
	rec.markVerified(now)
	rec.UpdatedAt = now
	rec.Notes = append(rec.Notes, Note{At: now, Source: NoteSourceAuto, Text: autoNote(changes, ev, now)})
	return changes
}

func autoNote(c Changes, ev Evidence, now time.Time) string {
	ts := now.UTC().Format(time.RFC3339)
	var parts []string
	if len(c.Verified) > 0 {
		parts = append(parts, "Auto-verified: "+joinChannels(c.Verified))
	}
	if len(c.Pending) > 0 {
		reasons := make([]string, 0, len(c.Pending))
		for _, ch := range c.Pending {
			if r := ev.Pending[ch]; r != "" {
				reasons = append(reasons, string(ch)+" ("+r+")")
			} else {
				reasons = append(reasons, string(ch))
			}
		}
		parts = append(parts, "Pending review: "+strings.Join(reasons, ", "))
	}
	if len(parts) == 0 {
		return "[Auto] Re-evaluated: no new evidence at " + ts
	}
	return "[Auto] " + strings.Join(parts, "; ") + " at " + ts
}

func joinChannels(chs []Channel) string {
	s := make([]string, len(chs))
	for i, ch := range chs {
		s[i] = string(ch)
	}
	return strings.Join(s, ", ")
}
