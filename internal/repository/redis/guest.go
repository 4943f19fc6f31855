package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Zembil-Gift/go-zembil-frontend-sub002/pkg/database"
)

// GuestStore implements repository.GuestStore using Redis. Every write
// refreshes the key's TTL, so active guests keep their data.
type GuestStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewGuestStore creates a new Redis-backed guest store.
func NewGuestStore(client redis.UniversalClient, ttl time.Duration) *GuestStore {
	return &GuestStore{
		client: client,
		ttl:    ttl,
	}
}

// Get returns the value stored under key, or nil if it does not exist.
func (s *GuestStore) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, end := database.TraceCommand(ctx, "GET", key)
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		end(nil)
		return nil, nil
	}
	end(err)
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, nil
}

// Set stores value under key with the configured TTL.
func (s *GuestStore) Set(ctx context.Context, key string, value []byte) error {
	ctx, end := database.TraceCommand(ctx, "SET", key)
	err := s.client.Set(ctx, key, value, s.ttl).Err()
	end(err)
	if err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete removes keys.
func (s *GuestStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx, end := database.TraceCommand(ctx, "DEL", strings.Join(keys, " "))
	err := s.client.Del(ctx, keys...).Err()
	end(err)
	if err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
