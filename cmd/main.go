package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"go-bus-tracking/internal/infrastructure/config"
	"go-bus-tracking/internal/infrastructure/hub"
	"go-bus-tracking/internal/infrastructure/logger"
	"go-bus-tracking/internal/infrastructure/server"
	"go-bus-tracking/internal/infrastructure/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.NewLogrusLogger(logger.NewDefaultConfig()).Fatalf("failed to load config: %v", err)
	}

	log := logger.NewLogrusLogger(&cfg.Logger)
	if cfg.Logger.Level != logger.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()
	sctx := WithSignal(ctx)

	db, err := store.Open(store.Config{Path: cfg.Store.Path, InMemory: cfg.Store.InMemory}, log)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}

	source := store.NewCachedSource(db, cfg.Hub.SnapshotCacheTTL, log)

	hubInstance := hub.New(source, hub.Options{
		BusRefreshInterval:  cfg.Hub.BusRefreshInterval,
		TripRefreshInterval: cfg.Hub.TripRefreshInterval,
		FetchTimeout:        cfg.Hub.FetchTimeout,
		CleanupInterval:     cfg.Hub.CleanupInterval,
		BroadcastBuffer:     cfg.Hub.BroadcastBuffer,
	}, log)

	// Start the hub first
	if err := hubInstance.Start(ctx); err != nil {
		log.Errorf("failed to start hub: %v", err)
		_ = db.Close()
		return
	}

	connOpts := hub.ConnectionOptions{
		SendBuffer:        cfg.Hub.SendBuffer,
		KeepAliveInterval: cfg.Hub.KeepAliveInterval,
		MessageRate:       cfg.Hub.ClientMessageRate,
		MessageBurst:      cfg.Hub.ClientMessageBurst,
	}
	router := InitRouter(routerDeps{
		hub:        hubInstance,
		store:      db,
		source:     source,
		connOpts:   connOpts,
		corsOrigin: cfg.Server.CORSOrigin,
	}, log)

	httpSrv := server.NewHTTPServer(server.Config{
		Addr:         cfg.Server.Addr,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}, router, log)

	app := newApplication(log, httpSrv, hubInstance, db, source)
	if err := app.Run(sctx); err != nil {
		log.Errorf("failed to run application: %v", err)
		os.Exit(1)
	}
}

type Application struct {
	logger  logger.Logger
	httpSrv server.Server
	hub     *hub.Hub
	store   *store.Store
	cache   *store.CachedSource
}

func newApplication(
	logger logger.Logger,
	httpSrv server.Server,
	hubInstance *hub.Hub,
	db *store.Store,
	cache *store.CachedSource,
) *Application {
	return &Application{
		logger:  logger.WithField("app", "bus-tracking"),
		httpSrv: httpSrv,
		hub:     hubInstance,
		store:   db,
		cache:   cache,
	}
}

// Run serves until ctx ends, then stops the hub, the HTTP server and the
// store in that order.
func (app *Application) Run(ctx context.Context) error {
	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		return app.httpSrv.Start(egCtx)
	})

	eg.Go(func() error {
		<-egCtx.Done()

		gracefulshutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			shutdownTimeout,
		)
		defer cancel()

		// Stop hub first
		if err := app.hub.Stop(gracefulshutdownCtx); err != nil {
			app.logger.Errorf("failed to stop hub: %v", err)
		}

		err := app.httpSrv.Stop(gracefulshutdownCtx)

		app.cache.Stop()
		if cerr := app.store.Close(); cerr != nil {
			app.logger.Errorf("failed to close store: %v", cerr)
		}
		return err
	})

	return eg.Wait()
}

func WithSignal(pctx context.Context) context.Context {
	ctx, cancel := context.WithCancel(pctx)

	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

		<-sigc

		cancel()
	}()

	return ctx
}
