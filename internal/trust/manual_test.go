package trust

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptional(t *testing.T) {
	var omitted Optional[bool]
	_, ok := omitted.Get()
	assert.False(t, ok)

	v, ok := Some(false).Get()
	assert.True(t, ok)
	assert.False(t, v)
}

func TestApplyManual(t *testing.T) {
	t.Run("may lower score and clear flags", func(t *testing.T) {
		rec := newTestRecord()
		Merge(rec, Evidence{EmailVerified: true, PhoneVerified: true}, fixedNow)
		require.Equal(t, 40, rec.TrustScore)

		upd := NewManualUpdate("admin@example.com").SetPhone(false).AddNote("phone number reassigned")
		require.NoError(t, ApplyManual(rec, upd, fixedNow.Add(time.Minute)))

		assert.False(t, rec.PhoneVerified)
		assert.Equal(t, StateUnverified, rec.State(ChannelPhone))
		assert.Equal(t, 20, rec.TrustScore)
		require.Len(t, rec.Notes, 3)
		assert.Equal(t, "[Manual] phone=false", rec.Notes[1].Text)
		assert.Equal(t, "admin@example.com", rec.Notes[1].Source)
		assert.Equal(t, "phone number reassigned", rec.Notes[2].Text)
	})

	t.Run("explicit score wins and is clamped", func(t *testing.T) {
		rec := newTestRecord()
		require.NoError(t, ApplyManual(rec, NewManualUpdate("a").SetCompany(true).SetScore(250), fixedNow))

		assert.True(t, rec.CompanyVerified)
		assert.Equal(t, StateVerified, rec.State(ChannelCompany))
		assert.Equal(t, MaxScore, rec.TrustScore)
		assert.NotNil(t, rec.VerifiedAt)

		require.NoError(t, ApplyManual(rec, NewManualUpdate("a").SetScore(-5), fixedNow))
		assert.Equal(t, MinScore, rec.TrustScore)
	})

	t.Run("reject clears the flag", func(t *testing.T) {
		rec := newTestRecord()
		Merge(rec, Evidence{CompanyConfirmed: true}, fixedNow)

		require.NoError(t, ApplyManual(rec, NewManualUpdate("a").SetState(ChannelCompany, StateRejected), fixedNow))

		assert.Equal(t, StateRejected, rec.State(ChannelCompany))
		assert.False(t, rec.CompanyVerified)
		assert.Equal(t, 0, rec.TrustScore)
	})

	t.Run("clear tax ID", func(t *testing.T) {
		rec := newTestRecord()
		Merge(rec, Evidence{TaxID: "69435151530", TaxIDValid: true}, fixedNow)

		require.NoError(t, ApplyManual(rec, NewManualUpdate("a").ClearTaxID(), fixedNow))

		assert.Empty(t, rec.TaxID)
		assert.False(t, rec.TaxIDValidated)
	})

	t.Run("omitted fields are untouched", func(t *testing.T) {
		rec := newTestRecord()
		Merge(rec, Evidence{EmailVerified: true, CompanyName: "Primjer d.o.o."}, fixedNow)

		require.NoError(t, ApplyManual(rec, NewManualUpdate("a").SetLegalStatus("DOO"), fixedNow))

		assert.True(t, rec.EmailVerified)
		assert.Equal(t, "Primjer d.o.o.", rec.CompanyName)
		assert.Equal(t, "DOO", rec.LegalStatus)
		assert.Equal(t, 20, rec.TrustScore)
	})

	t.Run("invalid updates leave the record unchanged", func(t *testing.T) {
		rec := newTestRecord()
		before := rec.Clone()

		assert.Error(t, ApplyManual(rec, NewManualUpdate("a"), fixedNow))
		assert.Error(t, ApplyManual(rec, NewManualUpdate("a").SetTaxID("123"), fixedNow))
		assert.Error(t, ApplyManual(rec, NewManualUpdate("a").SetState(Channel("fax"), StateVerified), fixedNow))
		assert.Error(t, ApplyManual(rec, NewManualUpdate("a").SetPhone(true).SetState(ChannelEmail, StatePendingReview), fixedNow))

		assert.Equal(t, before, rec)
	})
}
