package store

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-bus-tracking/internal/domain/transit"
	"go-bus-tracking/internal/infrastructure/logger"
)

type countingSource struct {
	busCalls  atomic.Int32
	tripCalls atomic.Int32
	err       error
}

func (c *countingSource) FetchActiveBuses(ctx context.Context) ([]transit.BusPosition, error) {
	c.busCalls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return []transit.BusPosition{{BusID: "BUS001"}}, nil
}

func (c *countingSource) FetchActiveTrips(ctx context.Context) ([]transit.TripSummary, error) {
	c.tripCalls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return []transit.TripSummary{{TripID: "TRIP001"}}, nil
}

func TestCachedSource_ServesFromCacheWithinTTL(t *testing.T) {
	src := &countingSource{}
	cached := NewCachedSource(src, time.Minute, logger.NewNop())
	defer cached.Stop()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		buses, err := cached.FetchActiveBuses(ctx)
		require.NoError(t, err)
		assert.Equal(t, "BUS001", buses[0].BusID)

		trips, err := cached.FetchActiveTrips(ctx)
		require.NoError(t, err)
		assert.Equal(t, "TRIP001", trips[0].TripID)
	}

	assert.EqualValues(t, 1, src.busCalls.Load())
	assert.EqualValues(t, 1, src.tripCalls.Load())

	cached.Invalidate()
	_, err := cached.FetchActiveBuses(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, src.busCalls.Load())
}

func TestCachedSource_DoesNotCacheErrors(t *testing.T) {
	src := &countingSource{err: errors.New("store unavailable")}
	cached := NewCachedSource(src, time.Minute, logger.NewNop())
	defer cached.Stop()

	ctx := context.Background()
	_, err := cached.FetchActiveBuses(ctx)
	require.Error(t, err)

	src.err = nil
	buses, err := cached.FetchActiveBuses(ctx)
	require.NoError(t, err)
	assert.Len(t, buses, 1)
	assert.EqualValues(t, 2, src.busCalls.Load())
}

func TestCachedSource_ZeroTTLPassesThrough(t *testing.T) {
	src := &countingSource{}
	cached := NewCachedSource(src, 0, logger.NewNop())
	defer cached.Stop()

	ctx := context.Background()
	_, _ = cached.FetchActiveTrips(ctx)
	_, _ = cached.FetchActiveTrips(ctx)
	assert.EqualValues(t, 2, src.tripCalls.Load())
}

// gatedSource blocks the first bus fetch until release is closed.
type gatedSource struct {
	countingSource
	started chan struct{}
	release chan struct{}
}

func (g *gatedSource) FetchActiveBuses(ctx context.Context) ([]transit.BusPosition, error) {
	if g.busCalls.Load() == 0 {
		close(g.started)
		<-g.release
	}
	return g.countingSource.FetchActiveBuses(ctx)
}

func TestCachedSource_InvalidateDuringFetchSkipsCaching(t *testing.T) {
	src := &gatedSource{started: make(chan struct{}), release: make(chan struct{})}
	cached := NewCachedSource(src, time.Minute, logger.NewNop())
	defer cached.Stop()

	ctx := context.Background()
	done := make(chan error, 1)
	go func() {
		_, err := cached.FetchActiveBuses(ctx)
		done <- err
	}()

	<-src.started
	cached.Invalidate()
	close(src.release)
	require.NoError(t, <-done)

	_, err := cached.FetchActiveBuses(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, src.busCalls.Load())

	_, err = cached.FetchActiveBuses(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, src.busCalls.Load())
}
