package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/noah-isme/academy-scheduling/internal/models"
)

type groupFeeReader interface {
	FindByGroup(ctx context.Context, groupID string) (*models.GroupFee, error)
}

// FeeResolver resolves group monthly fees through an expiring LRU cache. A group without a fee row
// resolves to a zero fee.
type FeeResolver struct {
	repo    groupFeeReader
	cache   *lru.LRU[string, models.GroupFee]
	metrics *MetricsService
}

// NewFeeResolver constructs a resolver caching up to size groups for ttl.
func NewFeeResolver(repo groupFeeReader, size int, ttl time.Duration, metrics *MetricsService) *FeeResolver {
	if size <= 0 {
		size = 256
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &FeeResolver{
		repo:    repo,
		cache:   lru.NewLRU[string, models.GroupFee](size, nil, ttl),
		metrics: metrics,
	}
}

// Resolve returns the fee of groupID.
func (r *FeeResolver) Resolve(ctx context.Context, groupID string) (models.GroupFee, error) {
	if fee, ok := r.cache.Get(groupID); ok {
		r.metrics.RecordFeeLookup(true)
		return fee, nil
	}
	r.metrics.RecordFeeLookup(false)

	fee, err := r.repo.FindByGroup(ctx, groupID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			zero := models.GroupFee{GroupID: groupID}
			r.cache.Add(groupID, zero)
			return zero, nil
		}
		return models.GroupFee{}, err
	}
	r.cache.Add(groupID, *fee)
	return *fee, nil
}
