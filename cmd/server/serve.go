package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"chatrelay/internal/logging"
)

const shutdownTimeout = 30 * time.Second

// serve runs server on ln until ctx is done, then shuts it down and waits
// for in-flight requests, up to timeout. It returns only once the server
// has fully stopped.
func serve(ctx context.Context, server *http.Server, ln net.Listener, timeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logging.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := server.Shutdown(shutdownCtx)
	<-errCh
	return err
}
