package hub

import (
	"context"
)

// sendInitialData pushes the active buses and trips to a newly registered
// connection as two initialData messages. A failed fetch is logged and the
// connection keeps working.
func (h *Hub) sendInitialData(ctx context.Context, conn Connection) {
	log := h.logger.WithField("connection_id", conn.ID())

	fetchCtx, cancel := context.WithTimeout(ctx, h.opts.FetchTimeout)
	buses, err := h.source.FetchActiveBuses(fetchCtx)
	cancel()
	if err != nil {
		log.Errorf("Failed to fetch active buses for initial data: %v", err)
	} else if err := conn.Send(ctx, InitialDataMessage(SnapshotBuses, buses)); err != nil {
		log.Warnf("Failed to send initial bus data: %v", err)
	}

	fetchCtx, cancel = context.WithTimeout(ctx, h.opts.FetchTimeout)
	trips, err := h.source.FetchActiveTrips(fetchCtx)
	cancel()
	if err != nil {
		log.Errorf("Failed to fetch active trips for initial data: %v", err)
	} else if err := conn.Send(ctx, InitialDataMessage(SnapshotTrips, trips)); err != nil {
		log.Warnf("Failed to send initial trip data: %v", err)
	}
}
