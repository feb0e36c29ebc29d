//go:build integration

package store_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"verity/internal/trust"
	"verity/internal/trust/store"
	id "verity/pkg/domain"
	"verity/pkg/platform/pii"
	"verity/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *store.Redis
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.store = store.NewRedis(s.redis.Client, pii.NewHasher("test"))
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestContract() {
	storeContract(s.T(), s.store)
}

func (s *RedisStoreSuite) TestTaxIDNotInKeys() {
	ctx := context.Background()
	storeContract(s.T(), s.store)

	keys, err := s.redis.Client.Keys(ctx, "*69435151530*").Result()
	s.Require().NoError(err)
	s.Empty(keys)
}

func (s *RedisStoreSuite) TestApplyRetriesAfterConcurrentWrite() {
	ctx := context.Background()
	userID := id.UserID(uuid.New())
	s.True(s.store.Optimistic())

	attempts := 0
	rec, err := s.store.Apply(ctx, userID, func(ctx context.Context, r *trust.Record) error {
		attempts++
		if attempts == 1 {
			_, err := s.store.Apply(ctx, userID, func(_ context.Context, other *trust.Record) error {
				other.Profession = "stolar"
				return nil
			})
			s.Require().NoError(err)
		}
		r.CompanyName = "Stolarija Horvat"
		return nil
	})
	s.Require().NoError(err)

	s.Equal(2, attempts)
	s.Equal("stolar", rec.Profession)
	s.Equal("Stolarija Horvat", rec.CompanyName)
	s.Equal(int64(2), rec.Version)
}
