package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v3"

	"go-bus-tracking/internal/domain/transit"
	"go-bus-tracking/internal/infrastructure/logger"
)

const (
	busPrefix   = "bus/"
	tripPrefix  = "trip/"
	routePrefix = "route/"

	maxConflictRetries = 100
)

var (
	ErrNotFound  = errors.New("document not found")
	ErrInvalidID = errors.New("document id is empty")
)

type Config struct {
	Path     string
	InMemory bool
}

// Store keeps buses, trips and routes as JSON documents in badger.
// Writes are last-write-wins per document.
type Store struct {
	db     *badger.DB
	logger logger.Logger
	now    func() time.Time
}

func Open(cfg Config, log logger.Logger) (*Store, error) {
	log = log.WithField("component", "store")

	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	opts = opts.
		WithLogger(&badgerLogger{log: log}).
		WithLoggingLevel(badger.WARNING).
		WithMemTableSize(16 << 20)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}

	log.Infof("store opened (path=%q, in_memory=%v)", cfg.Path, cfg.InMemory)
	return &Store{db: db, logger: log, now: time.Now}, nil
}

func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close badger: %w", err)
	}
	s.logger.Info("store closed")
	return nil
}

func getDoc(txn *badger.Txn, key string, out any) error {
	item, err := txn.Get([]byte(key))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, out)
	})
}

func setDoc(txn *badger.Txn, key string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return txn.Set([]byte(key), data)
}

func (s *Store) get(ctx context.Context, key string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(txn *badger.Txn) error {
		return getDoc(txn, key, out)
	})
}

func (s *Store) put(ctx context.Context, key string, doc any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return setDoc(txn, key, doc)
	})
}

func (s *Store) delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(key)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}
		return txn.Delete([]byte(key))
	})
}

// update runs a read-modify-write transaction, retrying when a concurrent
// writer commits the same key first. The last commit wins.
func (s *Store) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 1; attempt <= maxConflictRetries; attempt++ {
		if err = ctx.Err(); err != nil {
			return err
		}
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		s.logger.Debugf("transaction conflict, retrying (attempt %d)", attempt)
	}
	return fmt.Errorf("update after %d attempts: %w", maxConflictRetries, err)
}

// scan decodes every document under prefix and hands it to fn. The context
// is checked between documents so a fetch timeout stops long scans.
func scan[T any](ctx context.Context, db *badger.DB, prefix string, fn func(*T)) error {
	return db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var doc T
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &doc)
			})
			if err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			fn(&doc)
		}
		return nil
	})
}

// Buses

func (s *Store) PutBus(ctx context.Context, bus *transit.Bus) error {
	if bus.BusID == "" {
		return ErrInvalidID
	}
	bus.UpdatedAt = s.now()
	return s.put(ctx, busPrefix+bus.BusID, bus)
}

func (s *Store) GetBus(ctx context.Context, busID string) (*transit.Bus, error) {
	var bus transit.Bus
	if err := s.get(ctx, busPrefix+busID, &bus); err != nil {
		return nil, err
	}
	return &bus, nil
}

func (s *Store) DeleteBus(ctx context.Context, busID string) error {
	return s.delete(ctx, busPrefix+busID)
}

// ListBuses returns buses ordered by id. An empty status returns all of them.
func (s *Store) ListBuses(ctx context.Context, status transit.BusStatus) ([]transit.Bus, error) {
	buses := []transit.Bus{}
	err := scan(ctx, s.db, busPrefix, func(b *transit.Bus) {
		if status == "" || b.Current.Status == status {
			buses = append(buses, *b)
		}
	})
	if err != nil {
		return nil, err
	}
	return buses, nil
}

// ListBusesNear returns active buses within maxMeters of loc, nearest
// first.
func (s *Store) ListBusesNear(ctx context.Context, loc transit.Location, maxMeters float64) ([]transit.Bus, error) {
	type near struct {
		bus      transit.Bus
		distance float64
	}
	var found []near
	err := scan(ctx, s.db, busPrefix, func(b *transit.Bus) {
		if b.Current.Status != transit.BusStatusActive {
			return
		}
		if d := transit.DistanceMeters(loc, b.Current.Location); d <= maxMeters {
			found = append(found, near{bus: *b, distance: d})
		}
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(found, func(i, j int) bool { return found[i].distance < found[j].distance })

	buses := make([]transit.Bus, 0, len(found))
	for _, n := range found {
		buses = append(buses, n.bus)
	}
	return buses, nil
}

func (s *Store) BusStats(ctx context.Context) (transit.Stats, error) {
	stats := transit.NewStats()
	err := scan(ctx, s.db, busPrefix, func(b *transit.Bus) {
		stats.Count(string(b.Current.Status), b.Current.Status == transit.BusStatusActive)
	})
	return stats, err
}

// UpdateBusLocation applies a position report inside a single transaction.
func (s *Store) UpdateBusLocation(ctx context.Context, busID string, update transit.LocationUpdate) (*transit.Bus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var bus transit.Bus
	err := s.update(ctx, func(txn *badger.Txn) error {
		bus = transit.Bus{}
		if err := getDoc(txn, busPrefix+busID, &bus); err != nil {
			return err
		}
		bus.ApplyLocation(update, s.now())
		return setDoc(txn, busPrefix+busID, &bus)
	})
	if err != nil {
		return nil, err
	}
	return &bus, nil
}

// Trips

func (s *Store) PutTrip(ctx context.Context, trip *transit.Trip) error {
	if trip.TripID == "" {
		return ErrInvalidID
	}
	trip.Progress.Percentage = transit.ClampPercentage(trip.Progress.Percentage)
	trip.UpdatedAt = s.now()
	return s.put(ctx, tripPrefix+trip.TripID, trip)
}

func (s *Store) GetTrip(ctx context.Context, tripID string) (*transit.Trip, error) {
	var trip transit.Trip
	if err := s.get(ctx, tripPrefix+tripID, &trip); err != nil {
		return nil, err
	}
	return &trip, nil
}

func (s *Store) DeleteTrip(ctx context.Context, tripID string) error {
	return s.delete(ctx, tripPrefix+tripID)
}

func (s *Store) ListTrips(ctx context.Context, status transit.TripStatus) ([]transit.Trip, error) {
	trips := []transit.Trip{}
	err := scan(ctx, s.db, tripPrefix, func(t *transit.Trip) {
		if status == "" || t.Status == status {
			trips = append(trips, *t)
		}
	})
	if err != nil {
		return nil, err
	}
	return trips, nil
}

func (s *Store) ListActiveTrips(ctx context.Context) ([]transit.Trip, error) {
	trips := []transit.Trip{}
	err := scan(ctx, s.db, tripPrefix, func(t *transit.Trip) {
		if t.Status.IsActive() {
			trips = append(trips, *t)
		}
	})
	if err != nil {
		return nil, err
	}
	return trips, nil
}

func (s *Store) UpdateTripProgress(ctx context.Context, tripID string, update transit.ProgressUpdate) (*transit.Trip, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var trip transit.Trip
	err := s.update(ctx, func(txn *badger.Txn) error {
		trip = transit.Trip{}
		if err := getDoc(txn, tripPrefix+tripID, &trip); err != nil {
			return err
		}
		trip.ApplyProgress(update, s.now())
		return setDoc(txn, tripPrefix+tripID, &trip)
	})
	if err != nil {
		return nil, err
	}
	return &trip, nil
}

// AddTripIncident appends an incident to the trip in one transaction.
func (s *Store) AddTripIncident(ctx context.Context, tripID string, incident transit.Incident) (*transit.Trip, error) {
	var trip transit.Trip
	err := s.update(ctx, func(txn *badger.Txn) error {
		trip = transit.Trip{}
		if err := getDoc(txn, tripPrefix+tripID, &trip); err != nil {
			return err
		}
		trip.AddIncident(incident, s.now())
		return setDoc(txn, tripPrefix+tripID, &trip)
	})
	if err != nil {
		return nil, err
	}
	return &trip, nil
}

// ListTripsByRouteAndDate returns the trips of a route planned to start on
// the UTC calendar day of date, earliest first.
func (s *Store) ListTripsByRouteAndDate(ctx context.Context, routeID string, date time.Time) ([]transit.Trip, error) {
	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	trips := []transit.Trip{}
	err := scan(ctx, s.db, tripPrefix, func(t *transit.Trip) {
		planned := t.Schedule.PlannedStart
		if t.RouteID == routeID && !planned.Before(start) && planned.Before(end) {
			trips = append(trips, *t)
		}
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(trips, func(i, j int) bool {
		return trips[i].Schedule.PlannedStart.Before(trips[j].Schedule.PlannedStart)
	})
	return trips, nil
}

func (s *Store) TripStats(ctx context.Context) (transit.Stats, error) {
	stats := transit.NewStats()
	err := scan(ctx, s.db, tripPrefix, func(t *transit.Trip) {
		stats.Count(string(t.Status), t.Status.IsActive())
	})
	return stats, err
}

// Routes

func (s *Store) PutRoute(ctx context.Context, route *transit.Route) error {
	if route.RouteID == "" {
		return ErrInvalidID
	}
	sort.SliceStable(route.Stops, func(i, j int) bool {
		return route.Stops[i].Order < route.Stops[j].Order
	})
	route.UpdatedAt = s.now()
	return s.put(ctx, routePrefix+route.RouteID, route)
}

func (s *Store) GetRoute(ctx context.Context, routeID string) (*transit.Route, error) {
	var route transit.Route
	if err := s.get(ctx, routePrefix+routeID, &route); err != nil {
		return nil, err
	}
	return &route, nil
}

func (s *Store) DeleteRoute(ctx context.Context, routeID string) error {
	return s.delete(ctx, routePrefix+routeID)
}

func (s *Store) ListRoutes(ctx context.Context) ([]transit.Route, error) {
	routes := []transit.Route{}
	err := scan(ctx, s.db, routePrefix, func(r *transit.Route) {
		routes = append(routes, *r)
	})
	if err != nil {
		return nil, err
	}
	return routes, nil
}

// ListRoutesNear returns routes whose first or last stop lies within
// maxMeters of loc.
func (s *Store) ListRoutesNear(ctx context.Context, loc transit.Location, maxMeters float64) ([]transit.Route, error) {
	routes := []transit.Route{}
	err := scan(ctx, s.db, routePrefix, func(r *transit.Route) {
		if len(r.Stops) == 0 {
			return
		}
		origin, destination := r.Stops[0].Location, r.Stops[len(r.Stops)-1].Location
		if transit.DistanceMeters(loc, origin) <= maxMeters || transit.DistanceMeters(loc, destination) <= maxMeters {
			routes = append(routes, *r)
		}
	})
	if err != nil {
		return nil, err
	}
	return routes, nil
}

func (s *Store) RouteStats(ctx context.Context) (transit.Stats, error) {
	stats := transit.NewStats()
	err := scan(ctx, s.db, routePrefix, func(r *transit.Route) {
		status := "inactive"
		if r.Active {
			status = "active"
		}
		stats.Count(status, r.Active)
	})
	return stats, err
}

// Snapshot queries used by the broadcast hub.

func (s *Store) FetchActiveBuses(ctx context.Context) ([]transit.BusPosition, error) {
	positions := []transit.BusPosition{}
	err := scan(ctx, s.db, busPrefix, func(b *transit.Bus) {
		if b.Current.Status == transit.BusStatusActive {
			positions = append(positions, b.Position())
		}
	})
	if err != nil {
		return nil, fmt.Errorf("fetch active buses: %w", err)
	}
	return positions, nil
}

func (s *Store) FetchActiveTrips(ctx context.Context) ([]transit.TripSummary, error) {
	summaries := []transit.TripSummary{}
	err := scan(ctx, s.db, tripPrefix, func(t *transit.Trip) {
		if t.Status.IsActive() {
			summaries = append(summaries, t.Summary())
		}
	})
	if err != nil {
		return nil, fmt.Errorf("fetch active trips: %w", err)
	}
	return summaries, nil
}
