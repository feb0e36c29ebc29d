package store_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verity/internal/trust"
	"verity/internal/trust/store"
	id "verity/pkg/domain"
)

func TestInMemoryStore(t *testing.T) {
	storeContract(t, store.NewInMemory())
}

func TestInMemoryReturnsCopies(t *testing.T) {
	s := store.NewInMemory()
	ctx := context.Background()
	userID := id.UserID(uuid.New())

	rec, err := s.Apply(ctx, userID, func(_ context.Context, r *trust.Record) error {
		r.Sources = append(r.Sources, "VAT_REGISTRY")
		return nil
	})
	require.NoError(t, err)
	rec.Sources[0] = "mutated"
	rec.Channels[trust.ChannelEmail] = trust.StateVerified

	found, err := s.Find(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, []string{"VAT_REGISTRY"}, found.Sources)
	assert.Equal(t, trust.StateUnverified, found.State(trust.ChannelEmail))
}
