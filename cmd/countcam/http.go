package main

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"countcam/internal/api"
	"countcam/internal/metrics"
	"countcam/internal/registry"
	"countcam/internal/store"
	"countcam/internal/ws"
)

// handleHTTPServer configures and starts the HTTP server carrying the page,
// the control/record API, the websocket frame channel and the metrics
// endpoint. It shuts the server down when the context is canceled.
func handleHTTPServer(ctx context.Context, addr string, reg *registry.Registry, st store.RecordStore, m *metrics.Metrics, wg *sync.WaitGroup, errc chan error, logger *log.Logger) {
	apiServer := api.NewServer(reg, st, m, logger)
	wsHandler := ws.NewHandler(reg, m)

	mux := chi.NewRouter()
	mux.Use(chimiddleware.RequestID)
	mux.Use(chimiddleware.Recoverer)
	mux.Mount("/", apiServer.Routes())
	mux.Handle("/ws", wsHandler)
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 60 * time.Second}

	wg.Add(1)
	go func() {
		defer wg.Done()

		go func() {
			logger.Printf("HTTP server listening on %q", addr)
			errc <- srv.ListenAndServe()
		}()

		<-ctx.Done()
		logger.Printf("shutting down HTTP server at %q", addr)

		// Shutdown gracefully with a 30s timeout.
		sctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(sctx); err != nil {
			logger.Printf("failed to shutdown: %v", err)
		}
	}()
}
