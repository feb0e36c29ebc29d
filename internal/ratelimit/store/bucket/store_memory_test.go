package bucket

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"verity/internal/ratelimit/models"
)

const (
	testLimit  = 10
	testWindow = time.Minute
)

type InMemoryBucketStoreSuite struct {
	suite.Suite
	store *InMemoryBucketStore
	now   time.Time
	ctx   context.Context
}

func TestInMemoryBucketStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryBucketStoreSuite))
}

func (s *InMemoryBucketStoreSuite) SetupTest() {
	s.now = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	s.store = NewInMemoryBucketStore().WithClock(func() time.Time { return s.now })
	s.ctx = context.Background()
}

func (s *InMemoryBucketStoreSuite) TestAllow() {
	s.Run("first request allowed", func() {
		result, err := s.store.Allow(s.ctx, "allow:first", testLimit, testWindow)
		s.Require().NoError(err)
		s.True(result.Allowed)
		s.Equal(testLimit, result.Limit)
		s.Equal(testLimit-1, result.Remaining)
		s.Equal(s.now.Add(testWindow), result.ResetAt)
	})

	s.Run("requests up to limit allowed", func() {
		var result *models.Result
		var err error
		for range testLimit {
			result, err = s.store.Allow(s.ctx, "allow:limit", testLimit, testWindow)
		}
		s.Require().NoError(err)
		s.True(result.Allowed)
		s.Equal(0, result.Remaining)
	})

	s.Run("request over limit denied with retry hint", func() {
		for range testLimit {
			_, err := s.store.Allow(s.ctx, "allow:over", testLimit, testWindow)
			s.Require().NoError(err)
		}
		result, err := s.store.Allow(s.ctx, "allow:over", testLimit, testWindow)
		s.Require().NoError(err)
		s.False(result.Allowed)
		s.Equal(60, result.RetryAfter)
	})

	s.Run("keys are independent", func() {
		for range testLimit {
			_, err := s.store.Allow(s.ctx, "allow:a", testLimit, testWindow)
			s.Require().NoError(err)
		}
		result, err := s.store.Allow(s.ctx, "allow:b", testLimit, testWindow)
		s.Require().NoError(err)
		s.True(result.Allowed)
	})
}

func (s *InMemoryBucketStoreSuite) TestSlidingWindow() {
	for range testLimit {
		_, err := s.store.Allow(s.ctx, "slide", testLimit, testWindow)
		s.Require().NoError(err)
	}

	s.now = s.now.Add(30 * time.Second)
	result, err := s.store.Allow(s.ctx, "slide", testLimit, testWindow)
	s.Require().NoError(err)
	s.False(result.Allowed)
	s.Equal(30, result.RetryAfter)

	s.now = s.now.Add(30*time.Second + time.Millisecond)
	result, err = s.store.Allow(s.ctx, "slide", testLimit, testWindow)
	s.Require().NoError(err)
	s.True(result.Allowed)
	s.Equal(testLimit-1, result.Remaining)
}

func (s *InMemoryBucketStoreSuite) TestAllowNRejectsCostAboveRemaining() {
	_, err := s.store.AllowN(s.ctx, "cost", 8, testLimit, testWindow)
	s.Require().NoError(err)

	result, err := s.store.AllowN(s.ctx, "cost", 3, testLimit, testWindow)
	s.Require().NoError(err)
	s.False(result.Allowed)

	count, err := s.store.GetCurrentCount(s.ctx, "cost")
	s.Require().NoError(err)
	s.Equal(8, count)
}

func (s *InMemoryBucketStoreSuite) TestReset() {
	for range testLimit {
		_, err := s.store.Allow(s.ctx, "reset", testLimit, testWindow)
		s.Require().NoError(err)
	}
	s.Require().NoError(s.store.Reset(s.ctx, "reset"))

	count, err := s.store.GetCurrentCount(s.ctx, "reset")
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *InMemoryBucketStoreSuite) TestConcurrentAllow() {
	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for range 50 {
		wg.Go(func() {
			result, err := s.store.Allow(s.ctx, "concurrent", testLimit, testWindow)
			if err == nil && result.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		})
	}
	wg.Wait()
	s.Equal(testLimit, allowed)
}
