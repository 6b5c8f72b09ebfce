package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/academy-scheduling/internal/repository"
	appErrors "github.com/noah-isme/academy-scheduling/pkg/errors"
)

type runLocker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (*repository.Lock, error)
}

// acquireRunLock takes a best-effort lock. When Redis is unreachable the run proceeds and storage
// uniqueness constraints decide; a lock held by someone else yields RUN_IN_PROGRESS.
func acquireRunLock(ctx context.Context, locks runLocker, key string, ttl time.Duration, logger *zap.Logger) (*repository.Lock, error) {
	if locks == nil {
		return nil, nil
	}
	lock, err := locks.Acquire(ctx, key, ttl)
	if err != nil {
		logger.Warn("run lock unavailable, continuing without it", zap.String("key", key), zap.Error(err))
		return nil, nil
	}
	if lock == nil {
		return nil, appErrors.Clone(appErrors.ErrRunInProgress, fmt.Sprintf("%s is held by another run", key))
	}
	return lock, nil
}
