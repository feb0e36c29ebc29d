package notify_test

//go:generate mockgen -source=notify.go -destination=mocks/mocks.go -package=mocks Notifier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"verity/internal/notify"
	"verity/internal/notify/mocks"
	"verity/pkg/platform/circuit"
)

func closeDispatcher(t *testing.T, d *notify.Dispatcher) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, d.Close(ctx))
}

func TestDispatcher_DeliversToPrimary(t *testing.T) {
	ctrl := gomock.NewController(t)
	primary := mocks.NewMockNotifier(ctrl)
	fallback := mocks.NewMockNotifier(ctrl)

	primary.EXPECT().Notify(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e notify.Event) error {
		assert.Equal(t, "user-1", e.UserID)
		assert.NotEmpty(t, e.ID)
		assert.False(t, e.OccurredAt.IsZero())
		return nil
	})

	d := notify.NewDispatcher(primary, notify.WithFallback(fallback))
	d.Publish(context.Background(), notify.Event{Type: notify.EventStatusChanged, UserID: "user-1"})
	closeDispatcher(t, d)
}

func TestDispatcher_FailedDeliveryGoesToFallback(t *testing.T) {
	ctrl := gomock.NewController(t)
	primary := mocks.NewMockNotifier(ctrl)
	fallback := mocks.NewMockNotifier(ctrl)

	primary.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(errors.New("broker down"))
	fallback.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(nil)

	d := notify.NewDispatcher(primary, notify.WithFallback(fallback))
	d.Publish(context.Background(), notify.Event{Type: notify.EventStatusChanged, UserID: "user-1"})
	closeDispatcher(t, d)
}

func TestDispatcher_OpenCircuitSkipsPrimary(t *testing.T) {
	ctrl := gomock.NewController(t)
	primary := mocks.NewMockNotifier(ctrl)
	fallback := mocks.NewMockNotifier(ctrl)

	reg := prometheus.NewRegistry()
	metrics := notify.NewMetrics(reg)

	// Two failures open the breaker; the next events skip the primary until
	// the retry interval is reached.
	primary.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(errors.New("broker down")).Times(2)
	fallback.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(nil).Times(5)

	d := notify.NewDispatcher(primary,
		notify.WithFallback(fallback),
		notify.WithBreaker(circuit.New("test", circuit.WithFailureThreshold(2))),
		notify.WithRetryInterval(100),
		notify.WithMetrics(metrics),
	)
	for range 5 {
		d.Publish(context.Background(), notify.Event{Type: notify.EventStatusChanged, UserID: "user-1"})
	}
	closeDispatcher(t, d)

	assert.Equal(t, float64(5), promtest.ToFloat64(metrics.Fallbacks))
	assert.Equal(t, float64(2), promtest.ToFloat64(metrics.Delivered.WithLabelValues("failed")))
}

func TestDispatcher_RetryClosesCircuit(t *testing.T) {
	ctrl := gomock.NewController(t)
	primary := mocks.NewMockNotifier(ctrl)
	fallback := mocks.NewMockNotifier(ctrl)

	breaker := circuit.New("test", circuit.WithFailureThreshold(1), circuit.WithSuccessThreshold(1))
	gomock.InOrder(
		primary.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(errors.New("broker down")),
		primary.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(nil).Times(2),
	)
	// first failure, then one skipped event before the retry
	fallback.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	d := notify.NewDispatcher(primary,
		notify.WithFallback(fallback),
		notify.WithBreaker(breaker),
		notify.WithRetryInterval(2),
	)
	for range 4 {
		d.Publish(context.Background(), notify.Event{Type: notify.EventStatusChanged, UserID: "user-1"})
	}
	closeDispatcher(t, d)
	assert.False(t, breaker.IsOpen())
}

type blockingNotifier struct {
	release chan struct{}
	mu      sync.Mutex
	seen    int
}

func (b *blockingNotifier) Notify(ctx context.Context, _ notify.Event) error {
	<-b.release
	b.mu.Lock()
	b.seen++
	b.mu.Unlock()
	return nil
}

func TestDispatcher_PublishNeverBlocks(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := notify.NewMetrics(reg)
	primary := &blockingNotifier{release: make(chan struct{})}

	d := notify.NewDispatcher(primary, notify.WithBufferSize(1), notify.WithMetrics(metrics))

	done := make(chan struct{})
	go func() {
		for range 10 {
			d.Publish(context.Background(), notify.Event{Type: notify.EventStatusChanged, UserID: "user-1"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full queue")
	}

	close(primary.release)
	closeDispatcher(t, d)

	primary.mu.Lock()
	defer primary.mu.Unlock()
	assert.Equal(t, float64(10-primary.seen), promtest.ToFloat64(metrics.Dropped))
	assert.GreaterOrEqual(t, primary.seen, 1)
}

func TestDispatcher_PublishAfterCloseDrops(t *testing.T) {
	ctrl := gomock.NewController(t)
	primary := mocks.NewMockNotifier(ctrl)
	metrics := notify.NewMetrics(prometheus.NewRegistry())

	d := notify.NewDispatcher(primary, notify.WithMetrics(metrics))
	closeDispatcher(t, d)

	d.Publish(context.Background(), notify.Event{Type: notify.EventStatusChanged, UserID: "user-1"})
	assert.Equal(t, float64(1), promtest.ToFloat64(metrics.Dropped))
	require.NoError(t, d.Close(context.Background()))
}
