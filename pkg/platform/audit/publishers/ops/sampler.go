package ops

import (
	"math/rand/v2"
	"sync"
)

// Sampler keeps a configurable fraction of ops events per action. Routine
// re-evaluations are high volume; state changes should stay at 1.0.
type Sampler struct {
	mu           sync.RWMutex
	defaultRate  float64
	rateByAction map[string]float64
	roll         func() float64
}

// NewSampler creates a sampler with the given default rate in [0, 1].
func NewSampler(defaultRate float64) *Sampler {
	return &Sampler{
		defaultRate:  clampRate(defaultRate),
		rateByAction: make(map[string]float64),
		roll:         rand.Float64,
	}
}

// Keep reports whether an event for action should be persisted.
func (s *Sampler) Keep(action string) bool {
	rate := s.rateFor(action)
	switch {
	case rate >= 1:
		return true
	case rate <= 0:
		return false
	}
	return s.roll() < rate
}

// SetRate overrides the rate for one action.
func (s *Sampler) SetRate(action string, rate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rateByAction[action] = clampRate(rate)
}

func (s *Sampler) rateFor(action string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rate, ok := s.rateByAction[action]; ok {
		return rate
	}
	return s.defaultRate
}

func clampRate(r float64) float64 {
	return max(0, min(1, r))
}
