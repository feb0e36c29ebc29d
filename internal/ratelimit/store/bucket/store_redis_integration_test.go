//go:build integration

package bucket_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"verity/internal/ratelimit/store/bucket"
	"verity/pkg/testutil/containers"
)

type RedisBucketStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *bucket.RedisBucketStore
}

func TestRedisBucketStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisBucketStoreSuite))
}

func (s *RedisBucketStoreSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = bucket.NewRedisBucketStore(s.redis.Client)
}

func (s *RedisBucketStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisBucketStoreSuite) TestLimitIsShared() {
	ctx := context.Background()
	other := bucket.NewRedisBucketStore(s.redis.Client)

	for i := range 3 {
		store := s.store
		if i%2 == 1 {
			store = other
		}
		result, err := store.Allow(ctx, "rl:document:user_1", 3, time.Minute)
		s.Require().NoError(err)
		s.True(result.Allowed)
		s.Equal(2-i, result.Remaining)
	}

	result, err := other.Allow(ctx, "rl:document:user_1", 3, time.Minute)
	s.Require().NoError(err)
	s.False(result.Allowed)
	s.Positive(result.RetryAfter)
	s.LessOrEqual(result.RetryAfter, 60)
}

func (s *RedisBucketStoreSuite) TestWindowExpires() {
	ctx := context.Background()
	for range 2 {
		_, err := s.store.Allow(ctx, "rl:profile:user_2", 2, 200*time.Millisecond)
		s.Require().NoError(err)
	}
	result, err := s.store.Allow(ctx, "rl:profile:user_2", 2, 200*time.Millisecond)
	s.Require().NoError(err)
	s.False(result.Allowed)

	time.Sleep(300 * time.Millisecond)
	result, err = s.store.Allow(ctx, "rl:profile:user_2", 2, 200*time.Millisecond)
	s.Require().NoError(err)
	s.True(result.Allowed)
}

func (s *RedisBucketStoreSuite) TestReset() {
	ctx := context.Background()
	_, err := s.store.AllowN(ctx, "rl:admin:root", 5, 5, time.Minute)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Reset(ctx, "rl:admin:root"))

	result, err := s.store.Allow(ctx, "rl:admin:root", 5, time.Minute)
	s.Require().NoError(err)
	s.True(result.Allowed)
	s.Equal(4, result.Remaining)
}
