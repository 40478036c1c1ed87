package stripewebhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/vaultmart-backend/pkg/redis"
)

// IdempotencyGuard drops redelivered processor events. It only saves work:
// settlement stays correct without it because payment references are unique.
type IdempotencyGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	scope string
}

func NewIdempotencyGuard(store redis.IdempotencyStore, ttl time.Duration, scope string) (*IdempotencyGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl <= 0 {
		return nil, errors.New("ttl must be positive")
	}
	if scope == "" {
		return nil, errors.New("scope is required")
	}
	return &IdempotencyGuard{store: store, ttl: ttl, scope: scope}, nil
}

// Run executes fn once per eventID. It reports whether fn ran. When fn fails
// the mark is cleared so the processor's retry is handled.
func (g *IdempotencyGuard) Run(ctx context.Context, eventID string, fn func(ctx context.Context) error) (bool, error) {
	if eventID == "" {
		return false, errors.New("event id is required")
	}
	key := g.store.IdempotencyKey(g.scope, eventID)
	fresh, err := g.store.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), g.ttl)
	if err != nil {
		return false, fmt.Errorf("set idempotency key: %w", err)
	}
	if !fresh {
		return false, nil
	}
	if err := fn(ctx); err != nil {
		if delErr := g.store.Del(context.WithoutCancel(ctx), key); delErr != nil {
			return true, errors.Join(err, fmt.Errorf("clear idempotency key: %w", delErr))
		}
		return true, err
	}
	return true, nil
}
