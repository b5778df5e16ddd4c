package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-bus-tracking/internal/infrastructure/hub"
	"go-bus-tracking/internal/infrastructure/logger"
	"go-bus-tracking/internal/infrastructure/store"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logger.NewNop()

	db, err := store.Open(store.Config{InMemory: true}, log)
	require.NoError(t, err)
	source := store.NewCachedSource(db, 0, log)

	h := hub.New(source, hub.DefaultOptions(), log)
	require.NoError(t, h.Start(context.Background()))

	t.Cleanup(func() {
		_ = h.Stop(context.Background())
		source.Stop()
		_ = db.Close()
	})

	return InitRouter(routerDeps{
		hub:        h,
		store:      db,
		source:     source,
		connOpts:   hub.DefaultConnectionOptions(),
		corsOrigin: "https://tracker.example.lk",
	}, log)
}

func TestInitRouter_CORSPreflight(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/buses", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://tracker.example.lk", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestInitRouter_StatusEndpoints(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{"/health", "/hub/status", "/api/v1/buses", "/api/v1/sse/connections", "/api/v1/ws/connections"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}
