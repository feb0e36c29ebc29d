package compliance

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "verity/pkg/domain"
	audit "verity/pkg/platform/audit"
	"verity/pkg/platform/audit/store/memory"
)

type failingStore struct{}

func (failingStore) Append(context.Context, audit.Event) error { return errors.New("down") }
func (failingStore) ListByUser(context.Context, id.UserID, int) ([]audit.Event, error) {
	return nil, nil
}

func TestPublisherEmit(t *testing.T) {
	store := memory.NewInMemoryStore()
	m := NewMetrics(prometheus.NewRegistry())
	pub := New(store, WithMetrics(m))
	userID := id.UserID(uuid.New())

	err := pub.Emit(context.Background(), audit.Event{
		UserID:   userID,
		ActorID:  "admin-1",
		Action:   string(audit.EventManualUpdate),
		Decision: "phone=false",
	})
	require.NoError(t, err)

	events, err := store.ListByUser(context.Background(), userID, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.CategoryCompliance, events[0].Category)
	assert.Equal(t, "admin-1", events[0].ActorID)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsEmitted))
}

func TestPublisherFailsClosed(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	pub := New(failingStore{}, WithMetrics(m))

	err := pub.Emit(context.Background(), audit.Event{UserID: id.UserID(uuid.New()), Action: "manual_update"})
	assert.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PersistFailures))
}

func TestPublisherValidates(t *testing.T) {
	pub := New(memory.NewInMemoryStore())
	assert.Error(t, pub.Emit(context.Background(), audit.Event{Action: "manual_update"}))
	assert.Error(t, pub.Emit(context.Background(), audit.Event{UserID: id.UserID(uuid.New())}))
}
