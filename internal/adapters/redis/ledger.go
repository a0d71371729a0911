// Package redis keeps the pending request ledger in Redis so every server
// process sees the same slots.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Classroom/internal/domain"
)

const pendingPrefix = "classroom:pending:"

// Releasing compares before deleting so a late release of an old request
// cannot free the slot of a newer one.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type Ledger struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewLedger(client *redis.Client, ttl time.Duration) *Ledger {
	return &Ledger{Client: client, TTL: ttl}
}

// Connect builds a client and pings it.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	log.Info().Str("module", "adapters.redis").Str("addr", addr).Msg("connected")
	return client, nil
}

func pendingKey(id domain.SessionID, identity string) string {
	return pendingPrefix + string(id) + ":" + identity
}

func (l *Ledger) Claim(ctx context.Context, id domain.SessionID, identity, requestID string) (bool, error) {
	key := pendingKey(id, identity)
	ok, err := l.Client.SetNX(ctx, key, requestID, l.TTL).Result()
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", key, err)
	}
	if ok {
		return true, nil
	}
	cur, err := l.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		// expired between the two calls
		return l.Claim(ctx, id, identity, requestID)
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	return cur == requestID, nil
}

func (l *Ledger) Release(ctx context.Context, id domain.SessionID, identity, requestID string) error {
	key := pendingKey(id, identity)
	if err := releaseScript.Run(ctx, l.Client, []string{key}, requestID).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release %s: %w", key, err)
	}
	return nil
}
