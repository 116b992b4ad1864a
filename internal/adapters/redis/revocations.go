package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationList stores revoked token IDs with a TTL matching the token's remaining lifetime.
type RevocationList struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRevocationList creates a revocation list under the "revoked:" prefix.
func NewRevocationList(client redis.UniversalClient) *RevocationList {
	return &RevocationList{client: client, prefix: "revoked:", now: time.Now}
}

func (r *RevocationList) Revoke(ctx context.Context, id string, until time.Time) error {
	if id == "" {
		return errors.New("token id cannot be empty")
	}
	ttl := until.Sub(r.now())
	if !until.IsZero() && ttl <= 0 {
		// Already expired; verification rejects it without our help.
		return nil
	}
	if until.IsZero() {
		ttl = 0
	}
	if err := r.client.Set(ctx, r.prefix+id, "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis set revocation: %w", err)
	}
	return nil
}

func (r *RevocationList) Revoked(ctx context.Context, id string) (bool, error) {
	n, err := r.client.Exists(ctx, r.prefix+id).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}
