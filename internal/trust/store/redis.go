package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"verity/internal/trust"
	id "verity/pkg/domain"
	"verity/pkg/platform/pii"
	"verity/pkg/platform/sentinel"
	"verity/pkg/requestcontext"
)

const (
	recordKeyPrefix = "verity:trust:record:"
	taxIDKeyPrefix  = "verity:trust:taxid:"
	unverifiedKey   = "verity:trust:unverified"
	maxApplyRetries = 10
)

// Redis stores records as JSON values. Apply uses WATCH/MULTI and retries
// when another writer touched the record in between.
//
// Secondary keys:
//   - taxid:<hash> holds the user ID last written with that tax ID
//   - unverified is a sorted set of user IDs scored by last update
type Redis struct {
	client *redis.Client
	hasher *pii.Hasher
}

func NewRedis(client *redis.Client, hasher *pii.Hasher) *Redis {
	if hasher == nil {
		hasher = pii.NewHasher("")
	}
	return &Redis{client: client, hasher: hasher}
}

// Optimistic reports that Apply may rerun fn after a WATCH conflict.
func (s *Redis) Optimistic() bool { return true }

func recordKey(userID id.UserID) string { return recordKeyPrefix + userID.String() }

func (s *Redis) taxIDKey(taxID string) string { return taxIDKeyPrefix + s.hasher.Hash(taxID) }

func (s *Redis) Find(ctx context.Context, userID id.UserID) (*trust.Record, error) {
	return s.get(ctx, s.client, recordKey(userID))
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *Redis) get(ctx context.Context, c getter, key string) (*trust.Record, error) {
	payload, err := c.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get trust record: %w", err)
	}
	var rec trust.Record
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, fmt.Errorf("decode trust record: %w", err)
	}
	rec.Normalize()
	return &rec, nil
}

func (s *Redis) Apply(ctx context.Context, userID id.UserID, fn trust.MutateFunc) (*trust.Record, error) {
	key := recordKey(userID)
	var out *trust.Record

	txf := func(tx *redis.Tx) error {
		rec, err := s.get(ctx, tx, key)
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			rec = trust.NewRecord(userID, requestcontext.Now(ctx))
		case err != nil:
			return err
		}
		prevTaxID := rec.TaxID
		if err := fn(ctx, rec); err != nil {
			return err
		}
		rec.Version++
		payload, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode trust record: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			if prevTaxID != "" && prevTaxID != rec.TaxID {
				pipe.Del(ctx, s.taxIDKey(prevTaxID))
			}
			if rec.TaxID != "" {
				pipe.Set(ctx, s.taxIDKey(rec.TaxID), userID.String(), 0)
			}
			if trust.Unverified(rec) {
				pipe.ZAdd(ctx, unverifiedKey, redis.Z{Score: float64(rec.UpdatedAt.UnixMilli()), Member: userID.String()})
			} else {
				pipe.ZRem(ctx, unverifiedKey, userID.String())
			}
			return nil
		})
		if err != nil {
			return err
		}
		out = rec
		return nil
	}

	for range maxApplyRetries {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return out, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("apply trust record %s: %w", userID, sentinel.ErrConflict)
}

func (s *Redis) FindByTaxID(ctx context.Context, taxID string) (*trust.Record, error) {
	if taxID == "" {
		return nil, sentinel.ErrNotFound
	}
	userID, err := s.client.Get(ctx, s.taxIDKey(taxID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find by tax id: %w", err)
	}
	uid, err := id.ParseUserID(userID)
	if err != nil {
		return nil, fmt.Errorf("tax id index: %w", err)
	}
	rec, err := s.Find(ctx, uid)
	if err != nil {
		return nil, err
	}
	if rec.TaxID != taxID {
		return nil, sentinel.ErrNotFound
	}
	return rec, nil
}

func (s *Redis) IsCompanyVerified(ctx context.Context, taxID string) (bool, error) {
	rec, err := s.FindByTaxID(ctx, taxID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return rec.CompanyVerified, nil
}

func (s *Redis) ListUnverified(ctx context.Context, limit int) ([]*trust.Record, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	ids, err := s.client.ZRange(ctx, unverifiedKey, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("list unverified: %w", err)
	}
	out := make([]*trust.Record, 0, len(ids))
	for _, raw := range ids {
		uid, err := id.ParseUserID(raw)
		if err != nil {
			continue
		}
		rec, err := s.Find(ctx, uid)
		if errors.Is(err, sentinel.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
