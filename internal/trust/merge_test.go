package trust

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "verity/pkg/domain"
)

var fixedNow = time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

func newTestRecord() *Record {
	return NewRecord(id.UserID(uuid.New()), fixedNow)
}

func TestMergeCompanyConfirmation(t *testing.T) {
	rec := newTestRecord()
	ev := Evidence{TaxID: "69435151530", TaxIDValid: true, CompanyConfirmed: true, CompanySources: []string{"COMPANY_REGISTRY"}}

	changes := Merge(rec, ev, fixedNow)

	assert.True(t, rec.CompanyVerified)
	assert.True(t, rec.TaxIDValidated)
	assert.Equal(t, StateVerified, rec.State(ChannelCompany))
	assert.Equal(t, 60, rec.TrustScore)
	assert.Equal(t, []Channel{ChannelTaxID, ChannelCompany}, changes.Verified)
	assert.Equal(t, 0, changes.ScoreBefore)
	assert.Equal(t, 60, changes.ScoreAfter)
	assert.Equal(t, []string{"COMPANY_REGISTRY"}, rec.Sources)
	require.NotNil(t, rec.VerifiedAt)
	require.Len(t, rec.Notes, 1)
	assert.Equal(t, "[Auto] Auto-verified: tax_id, company at 2025-03-14T10:00:00Z", rec.Notes[0].Text)
}

func TestMergeIsIdempotent(t *testing.T) {
	rec := newTestRecord()
	ev := Evidence{EmailVerified: true, PhoneVerified: true, TaxID: "69435151530", TaxIDValid: true, CompanyConfirmed: true}

	Merge(rec, ev, fixedNow)
	score, flags := rec.TrustScore, [5]bool{rec.EmailVerified, rec.PhoneVerified, rec.TaxIDValidated, rec.CompanyVerified, rec.IDVerified}

	later := fixedNow.Add(time.Hour)
	changes := Merge(rec, ev, later)

	assert.Equal(t, score, rec.TrustScore)
	assert.Equal(t, flags, [5]bool{rec.EmailVerified, rec.PhoneVerified, rec.TaxIDValidated, rec.CompanyVerified, rec.IDVerified})
	assert.False(t, changes.Changed())
	require.Len(t, rec.Notes, 2, "one note per pass")
	assert.Equal(t, "[Auto] Re-evaluated: no new evidence at 2025-03-14T11:00:00Z", rec.Notes[1].Text)
}

func TestMergeNeverLowers(t *testing.T) {
	rec := newTestRecord()
	rec.PhoneVerified = true
	rec.Channels[ChannelPhone] = StateVerified
	rec.TrustScore = 75

	Merge(rec, Evidence{EmailVerified: true}, fixedNow)

	assert.True(t, rec.PhoneVerified, "absent evidence never clears a flag")
	assert.Equal(t, 75, rec.TrustScore, "score is max of existing and computed")
}

func TestMergeClampsScore(t *testing.T) {
	rec := newTestRecord()
	Merge(rec, Evidence{
		EmailVerified: true, PhoneVerified: true, TaxID: "69435151530", TaxIDValid: true,
		CompanyConfirmed: true, IDDocumentMatched: true,
	}, fixedNow)

	assert.Equal(t, MaxScore, rec.TrustScore)
}

func TestMergePendingKeepsFlag(t *testing.T) {
	rec := newTestRecord()
	Merge(rec, Evidence{IDDocumentMatched: true}, fixedNow)
	require.Equal(t, StateVerified, rec.State(ChannelIDDocument))

	changes := Merge(rec, Evidence{Pending: map[Channel]string{ChannelIDDocument: "low confidence"}}, fixedNow)

	assert.Equal(t, StatePendingReview, rec.State(ChannelIDDocument))
	assert.True(t, rec.IDVerified)
	assert.Equal(t, 30, rec.TrustScore)
	assert.Equal(t, []Channel{ChannelIDDocument}, changes.Pending)
	assert.True(t, strings.HasPrefix(rec.Notes[1].Text, "[Auto] Pending review: id_document (low confidence)"))

	Merge(rec, Evidence{IDDocumentMatched: true}, fixedNow)
	assert.Equal(t, StateVerified, rec.State(ChannelIDDocument), "new evidence completes a pending review")
}

func TestMergeLeavesRejectedAlone(t *testing.T) {
	rec := newTestRecord()
	rec.Channels[ChannelCompany] = StateRejected

	Merge(rec, Evidence{CompanyConfirmed: true}, fixedNow)

	assert.Equal(t, StateRejected, rec.State(ChannelCompany))
	assert.False(t, rec.CompanyVerified)
	assert.Equal(t, 0, rec.TrustScore)
}

func TestMergeProfileFields(t *testing.T) {
	rec := newTestRecord()
	Merge(rec, Evidence{TaxID: "12345678901", CompanyName: "Obrt Horvat", LegalStatus: "OBRT"}, fixedNow)

	assert.Equal(t, "12345678901", rec.TaxID)
	assert.False(t, rec.TaxIDValidated)
	assert.Equal(t, "Obrt Horvat", rec.CompanyName)

	Merge(rec, Evidence{TaxID: "69435151530", TaxIDValid: true}, fixedNow)
	assert.Equal(t, "69435151530", rec.TaxID, "a valid tax ID replaces an unvalidated one")

	Merge(rec, Evidence{TaxID: "12345678903"}, fixedNow)
	assert.Equal(t, "69435151530", rec.TaxID, "a validated tax ID is kept")
}
