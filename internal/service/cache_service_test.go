package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/shootdesk-api/internal/models"
)

type brokenCacheStub struct{}

func (brokenCacheStub) Get(context.Context, string, interface{}) error {
	return errors.New("connection refused")
}

func (brokenCacheStub) Set(context.Context, string, interface{}, time.Duration) error {
	return errors.New("connection refused")
}

func (brokenCacheStub) DeleteByPattern(context.Context, string) error {
	return errors.New("connection refused")
}

func TestCacheServiceRosterRoundTrip(t *testing.T) {
	store := newMemoryCache()
	svc := NewCacheService(store, NewMetricsService(), 0, nil, true)

	var roster []models.Operator
	hit, err := svc.Get(context.Background(), rosterCacheKey, &roster)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, svc.Set(context.Background(), rosterCacheKey, []models.Operator{rosterOperator(7, "Han", models.OperatorRegular)}, 0))
	hit, err = svc.Get(context.Background(), rosterCacheKey, &roster)
	require.NoError(t, err)
	assert.True(t, hit)
	require.Len(t, roster, 1)
	assert.Equal(t, "Han", roster[0].DisplayName)

	require.NoError(t, svc.Invalidate(context.Background(), rosterCacheKey))
	assert.Equal(t, []string{rosterCacheKey}, store.dropped)
}

func TestCacheServiceDisabledAndBroken(t *testing.T) {
	var nilSvc *CacheService
	hit, err := nilSvc.Get(context.Background(), rosterCacheKey, &[]models.Operator{})
	require.NoError(t, err)
	assert.False(t, hit)

	off := NewCacheService(brokenCacheStub{}, nil, time.Minute, nil, false)
	assert.False(t, off.Enabled())
	require.NoError(t, off.Set(context.Background(), rosterCacheKey, "x", 0))

	broken := NewCacheService(brokenCacheStub{}, nil, time.Minute, nil, true)
	hit, err = broken.Get(context.Background(), rosterCacheKey, &[]models.Operator{})
	require.Error(t, err)
	assert.False(t, hit)
	require.Error(t, broken.Invalidate(context.Background(), rosterCacheKey))
}
