package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"go-bus-tracking/internal/infrastructure/logger"
)

type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type HTTPServer struct {
	srv    *http.Server
	logger logger.Logger
}

var _ Server = (*HTTPServer)(nil)

func NewHTTPServer(cfg Config, handler http.Handler, log logger.Logger) *HTTPServer {
	return &HTTPServer{
		srv: &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
		},
		logger: log.WithField("component", "http"),
	}
}

// Start listens on the configured address and serves until Stop is called.
func (h *HTTPServer) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", h.srv.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", h.srv.Addr, err)
	}
	return h.Serve(ctx, ln)
}

// Serve serves on an existing listener.
func (h *HTTPServer) Serve(ctx context.Context, ln net.Listener) error {
	h.srv.BaseContext = func(net.Listener) context.Context { return ctx }
	h.logger.Infof("HTTP server listening on %s", ln.Addr())

	var eg errgroup.Group
	eg.Go(func() error {
		err := h.srv.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	return eg.Wait()
}

func (h *HTTPServer) Stop(ctx context.Context) error {
	if err := h.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	h.logger.Info("HTTP server stopped")
	return nil
}
