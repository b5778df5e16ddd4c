package hub

import (
	"context"
	"fmt"
	"time"
)

// every runs tick on a fixed delay until ctx ends. A failing tick is logged
// and the schedule carries on.
func (h *Hub) every(ctx context.Context, interval time.Duration, name string, tick func(context.Context) error) error {
	log := h.logger.WithField("schedule", name)
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug("Refresh schedule stopped")
			return nil
		case <-timer.C:
			if err := h.runTick(ctx, tick); err != nil {
				log.Errorf("Refresh skipped: %v", err)
			}
			timer.Reset(interval)
		}
	}
}

func (h *Hub) runTick(ctx context.Context, tick func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("refresh panicked: %v", r)
		}
	}()

	tickCtx, cancel := context.WithTimeout(ctx, h.opts.FetchTimeout)
	defer cancel()
	return tick(tickCtx)
}

// refreshBuses pushes the full list of active buses to all_buses.
func (h *Hub) refreshBuses(ctx context.Context) error {
	buses, err := h.source.FetchActiveBuses(ctx)
	if err != nil {
		return err
	}
	return h.enqueue(&dispatch{
		topics:  []Topic{AllBusesTopic},
		message: BulkBusLocationMessage(buses),
	})
}

// refreshTrips pushes the full list of active trips to all_trips.
func (h *Hub) refreshTrips(ctx context.Context) error {
	trips, err := h.source.FetchActiveTrips(ctx)
	if err != nil {
		return err
	}
	return h.enqueue(&dispatch{
		topics:  []Topic{AllTripsTopic},
		message: BulkTripProgressMessage(trips),
	})
}
