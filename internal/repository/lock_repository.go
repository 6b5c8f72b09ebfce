package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const releaseTimeout = 2 * time.Second

var releaseLockScript = redis.NewScript(`if redis.call("GET", KEYS[1]) == ARGV[1] then return redis.call("DEL", KEYS[1]) end return 0`)

// Lock is a held run lock. Release is safe to call more than once.
type Lock struct {
	key    string
	token  string
	client *redis.Client
	logger *zap.Logger
}

// Release drops the lock if this holder still owns it. It still runs when ctx is already cancelled.
func (l *Lock) Release(ctx context.Context) {
	if l == nil || l.client == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if err := releaseLockScript.Run(ctx, l.client, []string{l.key}, l.token).Err(); err != nil && err != redis.Nil {
		l.logger.Warn("release run lock", zap.String("key", l.key), zap.Error(err))
	}
	l.client = nil
}

// LockRepository coordinates generator runs across processes with Redis SET NX locks.
type LockRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewLockRepository constructs a lock repository. A nil client disables locking.
func NewLockRepository(client *redis.Client, logger *zap.Logger) *LockRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LockRepository{client: client, logger: logger}
}

// Acquire tries to take key for ttl. It returns a nil lock and no error when another holder owns it.
func (r *LockRepository) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lock, error) {
	if r.client == nil {
		return &Lock{key: key}, nil
	}
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	if !ok {
		return nil, nil
	}
	return &Lock{key: key, token: token, client: r.client, logger: r.logger}, nil
}
