package redis

// Package redis provides Redis-based adapters for persisted session keys and token revocation.

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Storage is a Redis-backed ports.Storage for production use.
// When ttl is positive every write refreshes the key's expiry, so idle sessions age out.
type Storage struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewStorage creates a Redis storage with the default "examportal:" key prefix and no expiry.
func NewStorage(client redis.UniversalClient) *Storage {
	return NewStorageWithOptions(client, "examportal:", 0)
}

// NewStorageWithOptions creates a Redis storage with a custom key prefix and TTL.
func NewStorageWithOptions(client redis.UniversalClient, prefix string, ttl time.Duration) *Storage {
	return &Storage{client: client, prefix: prefix, ttl: ttl}
}

func (s *Storage) Get(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, nil
	}
	v, err := s.client.Get(ctx, s.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	return v, true, nil
}

func (s *Storage) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return errors.New("storage key cannot be empty")
	}
	if err := s.client.Set(ctx, s.prefix+key, value, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *Storage) Remove(ctx context.Context, key string) error {
	if key == "" {
		return nil // Nothing to delete
	}
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
