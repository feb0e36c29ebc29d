package ops

import (
	"context"
	"errors"
	"testing"
	"time"

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

func TestTrackerPersistsOnFlush(t *testing.T) {
	store := memory.NewInMemoryStore()
	tr := New(store, WithFlushInterval(time.Hour))
	defer tr.Close()

	userID := id.UserID(uuid.New())
	tr.Track(context.Background(), audit.Event{UserID: userID, Action: string(audit.EventAutoEvaluated)})
	tr.Flush()

	events, err := store.ListByUser(context.Background(), userID, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.CategoryOperations, events[0].Category)
	assert.NotEqual(t, uuid.Nil, events[0].ID)
	assert.False(t, events[0].Timestamp.IsZero())
}

func TestTrackerCloseDrains(t *testing.T) {
	store := memory.NewInMemoryStore()
	tr := New(store, WithFlushInterval(time.Hour))
	userID := id.UserID(uuid.New())
	for range 3 {
		tr.Track(context.Background(), audit.Event{UserID: userID, Action: "x"})
	}
	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())

	events, _ := store.ListByUser(context.Background(), userID, 0)
	assert.Len(t, events, 3)
}

func TestTrackerDropsOldestWhenFull(t *testing.T) {
	store := memory.NewInMemoryStore()
	m := NewMetrics(prometheus.NewRegistry())
	tr := New(store, WithBufferSize(2), WithMetrics(m), WithFlushInterval(time.Hour))
	defer tr.Close()

	userID := id.UserID(uuid.New())
	for _, reason := range []string{"first", "second", "third"} {
		tr.Track(context.Background(), audit.Event{UserID: userID, Action: "x", Reason: reason})
	}
	tr.Flush()

	events, _ := store.ListByUser(context.Background(), userID, 0)
	require.Len(t, events, 2)
	reasons := []string{events[0].Reason, events[1].Reason}
	assert.ElementsMatch(t, []string{"second", "third"}, reasons)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Dropped))
}

func TestTrackerSamplingAndFailures(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	s := NewSampler(1)
	s.SetRate("noisy", 0)
	tr := New(failingStore{}, WithSampler(s), WithMetrics(m), WithFlushInterval(time.Hour))
	defer tr.Close()

	tr.Track(context.Background(), audit.Event{Action: "noisy"})
	tr.Track(context.Background(), audit.Event{Action: "kept"})
	tr.Flush()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Sampled))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PersistFailures))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Tracked))
}

func TestSamplerRates(t *testing.T) {
	s := NewSampler(0.5)
	s.roll = func() float64 { return 0.4 }
	assert.True(t, s.Keep("a"))
	s.roll = func() float64 { return 0.6 }
	assert.False(t, s.Keep("a"))

	s.SetRate("always", 3)
	assert.True(t, s.Keep("always"))
}
