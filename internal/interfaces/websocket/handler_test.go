package websocket

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-bus-tracking/internal/domain/transit"
	"go-bus-tracking/internal/infrastructure/hub"
	"go-bus-tracking/internal/infrastructure/logger"
)

type staticSource struct{}

func (staticSource) FetchActiveBuses(context.Context) ([]transit.BusPosition, error) {
	return []transit.BusPosition{{BusID: "BUS001"}}, nil
}

func (staticSource) FetchActiveTrips(context.Context) ([]transit.TripSummary, error) {
	return nil, nil
}

type wireMessage struct {
	ID   string         `json:"id"`
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

func dial(t *testing.T) (*hub.Hub, *gorillaws.Conn) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := hub.New(staticSource{}, hub.Options{BusRefreshInterval: time.Hour, TripRefreshInterval: time.Hour}, logger.NewNop())
	require.NoError(t, h.Start(context.Background()))

	router := gin.New()
	InitWebSocketRouter(logger.NewNop(), h, hub.DefaultConnectionOptions(), router.Group(""))
	srv := httptest.NewServer(router)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := gorillaws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		conn.Close()
		_ = h.Stop(context.Background())
		srv.Close()
	})
	return h, conn
}

func read(t *testing.T, conn *gorillaws.Conn) wireMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg wireMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestWebSocketHandler_SubscribeAndReceive(t *testing.T) {
	h, conn := dial(t)

	connected := read(t, conn)
	require.Equal(t, "connected", connected.Type)
	connID, _ := connected.Data["connectionId"].(string)
	require.NotEmpty(t, connID)

	buses := read(t, conn)
	trips := read(t, conn)
	assert.Equal(t, "initialData", buses.Type)
	assert.Equal(t, "buses", buses.Data["type"])
	assert.Equal(t, "initialData", trips.Type)
	assert.Equal(t, "trips", trips.Data["type"])

	require.NoError(t, conn.WriteJSON(map[string]any{
		"event": "subscribe",
		"data":  map[string]string{"type": "trip", "id": "TRIP007"},
	}))
	require.Eventually(t, func() bool {
		topics, err := h.Subscriptions(connID)
		return err == nil && len(topics) == 1
	}, 2*time.Second, 5*time.Millisecond)

	h.NotifyTripProgress("TRIP007", transit.TripProgress{Percentage: 60, NextStop: "Galle"})

	update := read(t, conn)
	assert.Equal(t, "tripProgressUpdate", update.Type)
	assert.Equal(t, "TRIP007", update.Data["tripId"])
	progress, _ := update.Data["progress"].(map[string]any)
	assert.Equal(t, 60.0, progress["percentage"])
}

func TestWebSocketHandler_DisconnectUnregisters(t *testing.T) {
	h, conn := dial(t)
	read(t, conn)

	require.Eventually(t, func() bool {
		return h.ConnectionCount() == 1
	}, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool {
		return h.ConnectionCount() == 0
	}, 2*time.Second, 5*time.Millisecond)
}

func TestWebSocketHandler_FrameSentOnConnectIsApplied(t *testing.T) {
	h, conn := dial(t)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"event": "subscribe",
		"data":  map[string]string{"type": "all_buses"},
	}))

	connected := read(t, conn)
	connID, _ := connected.Data["connectionId"].(string)
	require.NotEmpty(t, connID)

	require.Eventually(t, func() bool {
		topics, err := h.Subscriptions(connID)
		return err == nil && len(topics) == 1 && topics[0] == hub.AllBusesTopic
	}, 2*time.Second, 5*time.Millisecond)
}
