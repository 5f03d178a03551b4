package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotAcquired is returned when another recomputation already holds the
// cart lock.
var ErrNotAcquired = fmt.Errorf("lock: already held")

// releaseScript deletes the lock key only if the caller still owns it, so an
// expired lock taken over by another holder is never released by mistake.
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`

// CartLocker serializes cart recomputations with a per-cart Redis lock.
// Holding the lock is advisory: the database transaction still guarantees
// atomicity, the lock just turns concurrent recomputes of the same cart into
// fast failures instead of serialized retries.
type CartLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCartLocker creates a cart locker with the given lock TTL. The TTL is an
// upper bound on how long a crashed holder can block other recomputations.
func NewCartLocker(client *redis.Client, ttl time.Duration) *CartLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &CartLocker{client: client, ttl: ttl}
}

// Releaser frees a held lock.
type Releaser interface {
	Release(ctx context.Context) error
}

// Lock is a held cart lock. Release it when the recomputation finishes.
type Lock struct {
	client *redis.Client
	key    string
	token  string
}

// Acquire takes the lock for the given cart. Returns ErrNotAcquired when the
// lock is already held.
func (l *CartLocker) Acquire(ctx context.Context, cartID string) (Releaser, error) {
	key := "promo:cart-lock:" + cartID
	token := uuid.New().String()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire cart lock: %w", err)
	}
	if !ok {
		return nil, ErrNotAcquired
	}

	return &Lock{client: l.client, key: key, token: token}, nil
}

// Release frees the lock if the caller still owns it.
func (lk *Lock) Release(ctx context.Context) error {
	if err := lk.client.Eval(ctx, releaseScript, []string{lk.key}, lk.token).Err(); err != nil {
		return fmt.Errorf("release cart lock: %w", err)
	}
	return nil
}
