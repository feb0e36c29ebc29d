package circuit

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// step records one primary call ('f' failure, 's' success) and the expected breaker response.
type step struct {
	outcome  byte
	open     bool
	fallback bool
	opened   bool
	closed   bool
}

func TestBreakerSequences(t *testing.T) {
	tests := []struct {
		name  string
		opts  []Option
		steps []step
	}{
		{
			name: "opens on the third consecutive failure",
			opts: []Option{WithFailureThreshold(3)},
			steps: []step{
				{outcome: 'f'},
				{outcome: 'f'},
				{outcome: 'f', open: true, fallback: true, opened: true},
				{outcome: 'f', open: true, fallback: true},
			},
		},
		{
			name: "a success in between restarts the failure run",
			opts: []Option{WithFailureThreshold(3)},
			steps: []step{
				{outcome: 'f'},
				{outcome: 'f'},
				{outcome: 's'},
				{outcome: 'f'},
				{outcome: 'f'},
				{outcome: 'f', open: true, fallback: true, opened: true},
			},
		},
		{
			name: "closes after enough consecutive successes",
			opts: []Option{WithFailureThreshold(1), WithSuccessThreshold(2)},
			steps: []step{
				{outcome: 'f', open: true, fallback: true, opened: true},
				{outcome: 's', open: true, fallback: true},
				{outcome: 's', closed: true},
			},
		},
		{
			name: "a failure while open restarts the success run",
			opts: []Option{WithFailureThreshold(1), WithSuccessThreshold(3)},
			steps: []step{
				{outcome: 'f', open: true, fallback: true, opened: true},
				{outcome: 's', open: true, fallback: true},
				{outcome: 's', open: true, fallback: true},
				{outcome: 'f', open: true, fallback: true},
				{outcome: 's', open: true, fallback: true},
				{outcome: 's', open: true, fallback: true},
				{outcome: 's', closed: true},
			},
		},
		{
			name: "non-positive thresholds keep the defaults",
			opts: []Option{WithFailureThreshold(0), WithSuccessThreshold(-1)},
			steps: []step{
				{outcome: 'f'},
				{outcome: 'f'},
				{outcome: 'f'},
				{outcome: 'f'},
				{outcome: 'f', open: true, fallback: true, opened: true},
				{outcome: 's', open: true, fallback: true},
				{outcome: 's', closed: true},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New("registry", tt.opts...)
			for i, s := range tt.steps {
				var fallback bool
				var change StateChange
				if s.outcome == 'f' {
					fallback, change = b.RecordFailure()
				} else {
					var usePrimary bool
					usePrimary, change = b.RecordSuccess()
					fallback = !usePrimary
				}
				assert.Equal(t, s.fallback, fallback, "step %d fallback", i)
				assert.Equal(t, s.opened, change.Opened, "step %d opened", i)
				assert.Equal(t, s.closed, change.Closed, "step %d closed", i)
				assert.Equal(t, s.open, b.IsOpen(), "step %d open", i)
			}
		})
	}
}

func TestBreakerReset(t *testing.T) {
	b := New("notify", WithFailureThreshold(1))
	assert.Equal(t, "notify", b.Name())
	assert.Equal(t, StateClosed, b.State())

	b.RecordFailure()
	require.Equal(t, StateOpen, b.State())

	b.Reset()
	assert.Equal(t, StateClosed, b.State())
	usePrimary, change := b.RecordSuccess()
	assert.True(t, usePrimary)
	assert.False(t, change.Closed)
}

func TestBreakerReportsOpeningOnce(t *testing.T) {
	b := New("ratelimit", WithFailureThreshold(10))

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		opened int
	)
	for range 50 {
		wg.Go(func() {
			if _, change := b.RecordFailure(); change.Opened {
				mu.Lock()
				opened++
				mu.Unlock()
			}
		})
	}
	wg.Wait()

	assert.Equal(t, 1, opened)
	assert.True(t, b.IsOpen())
}
