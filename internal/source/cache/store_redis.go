package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"kyclens/pkg/platform/sentinel"
)

const keyPrefix = "kyclens:snapshot:"

// RedisStore keeps snapshots in redis so a restart does not force a refetch
// of every source. Entries are written without expiry; the caller's refresh
// policy is the only TTL.
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedis(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, src string) (*Snapshot, error) {
	raw, err := s.client.Get(ctx, keyPrefix+src).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot %s: %w", src, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", src, err)
	}
	return &snap, nil
}

func (s *RedisStore) Put(ctx context.Context, snap *Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", snap.Source, err)
	}
	if err := s.client.Set(ctx, keyPrefix+snap.Source, raw, 0).Err(); err != nil {
		return fmt.Errorf("put snapshot %s: %w", snap.Source, err)
	}
	return nil
}
