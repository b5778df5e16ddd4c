package server

import "context"

// Server is a long-running listener. Start blocks until the server stops;
// Stop drains in-flight requests until ctx ends.
type Server interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
