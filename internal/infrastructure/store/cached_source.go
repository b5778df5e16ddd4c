package store

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/sync/singleflight"

	"go-bus-tracking/internal/domain/transit"
	"go-bus-tracking/internal/infrastructure/logger"
)

const (
	activeBusesKey = "active_buses"
	activeTripsKey = "active_trips"
)

type Source interface {
	FetchActiveBuses(ctx context.Context) ([]transit.BusPosition, error)
	FetchActiveTrips(ctx context.Context) ([]transit.TripSummary, error)
}

// CachedSource memoises the active-entity snapshots for a short TTL so a
// burst of new connections costs one store scan. Concurrent misses share a
// single fetch; failed fetches are not cached. A zero TTL disables caching.
type CachedSource struct {
	source Source
	logger logger.Logger
	ttl    time.Duration

	buses *ttlcache.Cache[string, []transit.BusPosition]
	trips *ttlcache.Cache[string, []transit.TripSummary]
	group singleflight.Group

	// generation is bumped by Invalidate; a fetch that straddles a bump is
	// returned but not cached.
	generation atomic.Uint64
}

var _ Source = (*CachedSource)(nil)

func NewCachedSource(source Source, ttl time.Duration, log logger.Logger) *CachedSource {
	c := &CachedSource{
		source: source,
		logger: log.WithField("component", "snapshot-cache"),
		ttl:    ttl,
		buses: ttlcache.New[string, []transit.BusPosition](
			ttlcache.WithTTL[string, []transit.BusPosition](ttl),
			ttlcache.WithDisableTouchOnHit[string, []transit.BusPosition](),
		),
		trips: ttlcache.New[string, []transit.TripSummary](
			ttlcache.WithTTL[string, []transit.TripSummary](ttl),
			ttlcache.WithDisableTouchOnHit[string, []transit.TripSummary](),
		),
	}
	go c.buses.Start()
	go c.trips.Start()
	return c
}

// Stop halts the cache expiry loops.
func (c *CachedSource) Stop() {
	c.buses.Stop()
	c.trips.Stop()
}

func (c *CachedSource) FetchActiveBuses(ctx context.Context) ([]transit.BusPosition, error) {
	return fetchCached(ctx, c, c.buses, activeBusesKey, c.source.FetchActiveBuses)
}

func (c *CachedSource) FetchActiveTrips(ctx context.Context) ([]transit.TripSummary, error) {
	return fetchCached(ctx, c, c.trips, activeTripsKey, c.source.FetchActiveTrips)
}

// Invalidate drops both snapshots, e.g. after a write through the REST API.
func (c *CachedSource) Invalidate() {
	c.generation.Add(1)
	c.buses.Delete(activeBusesKey)
	c.trips.Delete(activeTripsKey)
}

func fetchCached[V any](
	ctx context.Context,
	c *CachedSource,
	cache *ttlcache.Cache[string, V],
	key string,
	fetch func(context.Context) (V, error),
) (V, error) {
	if c.ttl <= 0 {
		return fetch(ctx)
	}
	if item := cache.Get(key); item != nil && !item.IsExpired() {
		c.logger.Debugf("snapshot cache hit for %s", key)
		return item.Value(), nil
	}

	v, err, shared := c.group.Do(key, func() (any, error) {
		gen := c.generation.Load()
		value, err := fetch(ctx)
		if err != nil {
			return value, err
		}
		if c.generation.Load() != gen {
			c.logger.Debugf("snapshot for %s invalidated during fetch, not caching", key)
			return value, nil
		}
		cache.Set(key, value, ttlcache.DefaultTTL)
		return value, nil
	})
	if shared {
		c.logger.Debugf("snapshot fetch for %s shared with a concurrent caller", key)
	}
	if err != nil {
		var zero V
		return zero, err
	}
	return v.(V), nil
}
