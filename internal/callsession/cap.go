package callsession

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"receptionist-platform/pkg/utils"
)

// ConcurrencyCap limits live calls per user. The Redis implementation holds
// across processes; the memory one backs unit tests.
type ConcurrencyCap interface {
	Acquire(ctx context.Context, userID string) (bool, error)
	Release(ctx context.Context, userID string) error
}

const (
	callCapPrefix = "calls:active:"
	callCapLimit  = 1

	// TTL bounds a leaked slot if a process dies mid-call.
	callCapTTL = 2 * time.Hour
)

type RedisCap struct {
	rdb *redis.Client
}

func NewRedisCap(rdb *redis.Client) *RedisCap {
	return &RedisCap{rdb: rdb}
}

func (c *RedisCap) Acquire(ctx context.Context, userID string) (bool, error) {
	return utils.AcquireConcurrencyCap(ctx, c.rdb, callCapPrefix+userID, callCapLimit, callCapTTL)
}

func (c *RedisCap) Release(ctx context.Context, userID string) error {
	return utils.ReleaseConcurrencyCap(ctx, c.rdb, callCapPrefix+userID)
}

type MemoryCap struct {
	mu   sync.Mutex
	held map[string]bool
}

func NewMemoryCap() *MemoryCap {
	return &MemoryCap{held: make(map[string]bool)}
}

func (c *MemoryCap) Acquire(ctx context.Context, userID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.held[userID] {
		return false, nil
	}
	c.held[userID] = true
	return true, nil
}

func (c *MemoryCap) Release(ctx context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.held, userID)
	return nil
}
