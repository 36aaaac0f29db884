package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"
)

// shutdownTimeout is the time in-flight requests get to finish after a
// termination signal.
const shutdownTimeout = 30 * time.Second

// newHTTPServer creates the HTTP server for the proxy. No write timeout is set
// as package downloads may take arbitrarily long.
func newHTTPServer() *http.Server {
	return &http.Server{
		Addr:    fmt.Sprintf(":%d", config.ListenPort),
		Handler: http.HandlerFunc(handleRequest),

		ReadHeaderTimeout: 90 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// ListenHTTP runs the proxy server until ctx is cancelled and then shuts it
// down gracefully.
func ListenHTTP(ctx context.Context) error {
	server := newHTTPServer()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[INFO] Starting proxy server on port %d\n", config.ListenPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("[INFO] Shutting down proxy server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}
