package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-scheduling/internal/models"
)

type fakeGroupFeeRepo struct {
	fees  map[string]models.GroupFee
	errs  map[string]error
	calls int
}

func (f *fakeGroupFeeRepo) FindByGroup(ctx context.Context, groupID string) (*models.GroupFee, error) {
	f.calls++
	if err := f.errs[groupID]; err != nil {
		return nil, err
	}
	fee, ok := f.fees[groupID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &fee, nil
}

func TestFeeResolverCachesLookups(t *testing.T) {
	repo := &fakeGroupFeeRepo{fees: map[string]models.GroupFee{"g-1": {GroupID: "g-1", GroupName: "Kids", MonthlyFeeCents: 15000}}}
	metrics := NewMetricsService()
	resolver := NewFeeResolver(repo, 8, time.Minute, metrics)

	for i := 0; i < 3; i++ {
		fee, err := resolver.Resolve(context.Background(), "g-1")
		require.NoError(t, err)
		assert.Equal(t, int64(15000), fee.MonthlyFeeCents)
	}
	assert.Equal(t, 1, repo.calls)
	assert.InDelta(t, 2.0/3.0, metrics.Snapshot().FeeCacheHitRatio, 0.001)
}

func TestFeeResolverTreatsMissingFeeAsZero(t *testing.T) {
	repo := &fakeGroupFeeRepo{}
	resolver := NewFeeResolver(repo, 0, 0, nil)

	fee, err := resolver.Resolve(context.Background(), "g-free")
	require.NoError(t, err)
	assert.Equal(t, "g-free", fee.GroupID)
	assert.Zero(t, fee.MonthlyFeeCents)

	_, err = resolver.Resolve(context.Background(), "g-free")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.calls)
}

func TestFeeResolverDoesNotCacheFailures(t *testing.T) {
	repo := &fakeGroupFeeRepo{errs: map[string]error{"g-1": errors.New("timeout")}}
	resolver := NewFeeResolver(repo, 8, time.Minute, nil)

	_, err := resolver.Resolve(context.Background(), "g-1")
	require.Error(t, err)
	_, err = resolver.Resolve(context.Background(), "g-1")
	require.Error(t, err)
	assert.Equal(t, 2, repo.calls)
}
