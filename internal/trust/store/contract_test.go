package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verity/internal/trust"
	id "verity/pkg/domain"
	"verity/pkg/platform/sentinel"
	"verity/pkg/requestcontext"
)

// storeContract exercises behavior every trust.Store must share. s must be
// empty.
func storeContract(t *testing.T, s trust.Store) {
	base := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), base)

	t.Run("find unknown user", func(t *testing.T) {
		_, err := s.Find(ctx, id.UserID(uuid.New()))
		assert.True(t, errors.Is(err, sentinel.ErrNotFound))
	})

	t.Run("apply creates and round trips", func(t *testing.T) {
		userID := id.UserID(uuid.New())
		rec, err := s.Apply(ctx, userID, func(_ context.Context, r *trust.Record) error {
			trust.Merge(r, trust.Evidence{
				EmailVerified: true, TaxID: "69435151530", TaxIDValid: true,
				CompanyConfirmed: true, CompanySources: []string{"COMPANY_REGISTRY"},
				CompanyName: "Primjer d.o.o.", LegalStatus: "DOO",
			}, base)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), rec.Version)

		found, err := s.Find(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, userID, found.UserID)
		assert.True(t, found.EmailVerified)
		assert.True(t, found.CompanyVerified)
		assert.Equal(t, 80, found.TrustScore)
		assert.Equal(t, trust.StateVerified, found.State(trust.ChannelCompany))
		assert.Equal(t, trust.StateUnverified, found.State(trust.ChannelPhone))
		assert.Equal(t, []string{"COMPANY_REGISTRY"}, found.Sources)
		assert.Equal(t, "Primjer d.o.o.", found.CompanyName)
		require.Len(t, found.Notes, 1)
		require.NotNil(t, found.VerifiedAt)
		assert.True(t, base.Equal(*found.VerifiedAt))

		verified, err := s.IsCompanyVerified(ctx, "69435151530")
		require.NoError(t, err)
		assert.True(t, verified)

		byTax, err := s.FindByTaxID(ctx, "69435151530")
		require.NoError(t, err)
		assert.Equal(t, userID, byTax.UserID)
	})

	t.Run("failed mutation writes nothing", func(t *testing.T) {
		userID := id.UserID(uuid.New())
		_, err := s.Apply(ctx, userID, func(_ context.Context, r *trust.Record) error {
			r.TrustScore = 99
			return errors.New("boom")
		})
		require.Error(t, err)

		rec, err := s.Find(ctx, userID)
		if err == nil {
			assert.Equal(t, 0, rec.TrustScore)
		} else {
			assert.True(t, errors.Is(err, sentinel.ErrNotFound))
		}
	})

	t.Run("concurrent applies do not lose updates", func(t *testing.T) {
		userID := id.UserID(uuid.New())
		const writers = 8
		var wg sync.WaitGroup
		for range writers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.Apply(ctx, userID, func(_ context.Context, r *trust.Record) error {
					r.Notes = append(r.Notes, trust.Note{At: base, Source: "test", Text: "pass"})
					return nil
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		rec, err := s.Find(ctx, userID)
		require.NoError(t, err)
		assert.Len(t, rec.Notes, writers)
		assert.Equal(t, int64(writers), rec.Version)
	})

	t.Run("list unverified", func(t *testing.T) {
		older := id.UserID(uuid.New())
		newer := id.UserID(uuid.New())
		for i, u := range []id.UserID{older, newer} {
			at := base.Add(-time.Duration(2-i) * time.Hour)
			_, err := s.Apply(ctx, u, func(_ context.Context, r *trust.Record) error {
				trust.Merge(r, trust.Evidence{TaxID: "12345678903", TaxIDValid: true}, at)
				return nil
			})
			require.NoError(t, err)
		}

		list, err := s.ListUnverified(ctx, 10)
		require.NoError(t, err)
		require.GreaterOrEqual(t, len(list), 2)
		assert.Equal(t, older, list[0].UserID)
		assert.Equal(t, newer, list[1].UserID)
		for _, r := range list {
			assert.False(t, r.CompanyVerified)
		}

		one, err := s.ListUnverified(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, one, 1)

		verified, err := s.IsCompanyVerified(ctx, "12345678903")
		require.NoError(t, err)
		assert.False(t, verified)
	})
}
