// Package redis provides the Redis-backed session slot store.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jobmatcher/jm-portal/internal/ports"
)

// DefaultPrefix namespaces portal slots inside a shared Redis.
const DefaultPrefix = "jm:slot:"

// SlotStore keeps session slots as plain Redis strings.
// A zero TTL keeps slots until they are overwritten or deleted.
type SlotStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ ports.SlotStore = (*SlotStore)(nil)

// SlotStoreOptions configures a SlotStore.
type SlotStoreOptions struct {
	Client redis.UniversalClient // Required
	Prefix string                // defaults to DefaultPrefix
	TTL    time.Duration
}

// NewSlotStore creates a Redis-backed slot store.
func NewSlotStore(opts SlotStoreOptions) *SlotStore {
	if opts.Client == nil {
		panic("redis.SlotStore: Client is required")
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &SlotStore{client: opts.Client, prefix: prefix, ttl: opts.TTL}
}

func (s *SlotStore) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ports.ErrSlotNotFound
	}
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ports.ErrSlotNotFound
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return data, nil
}

func (s *SlotStore) Set(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return errors.New("slot key cannot be empty")
	}
	if err := s.client.Set(ctx, s.prefix+key, value, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *SlotStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
