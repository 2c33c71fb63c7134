package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"countcam/internal/metrics"
	"countcam/internal/registry"
	"countcam/internal/store"
)

func main() {
	var (
		addrF        = flag.String("addr", envOr("COUNTCAM_ADDR", ":8080"), "HTTP listen address")
		dbF          = flag.String("db", envOr("COUNTCAM_DB", "countcam.db"), "Path to the SQLite record database")
		idleTimeoutF = flag.Duration("idle-timeout", registry.DefaultIdleTimeout, "Evict clients idle longer than this")
		sweepF       = flag.Duration("sweep-interval", registry.DefaultSweepInterval, "How often the idle sweeper runs")
	)
	flag.Parse()

	logger := log.New(os.Stderr, "[countcam] ", log.Ltime)

	recordStore, err := store.Open(*dbF)
	if err != nil {
		logger.Fatalf("failed to open record store: %v", err)
	}
	defer recordStore.Close()
	if err := recordStore.Migrate(); err != nil {
		logger.Fatalf("failed to migrate record store: %v", err)
	}

	reg := registry.New(*idleTimeoutF)
	m := metrics.New(func() float64 { return float64(reg.Len()) })

	// Channel used by both the signal handler and the server goroutine to
	// notify the main goroutine when to stop.
	errc := make(chan error)
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		errc <- fmt.Errorf("%s", <-c)
	}()

	var wg sync.WaitGroup
	ctx, cancel := context.WithCancel(context.Background())

	// Idle sweeper runs for the lifetime of the process.
	wg.Add(1)
	go func() {
		defer wg.Done()
		reg.Run(ctx, *sweepF)
	}()

	handleHTTPServer(ctx, *addrF, reg, recordStore, m, &wg, errc, logger)

	logger.Printf("exiting (%v)", <-errc)
	cancel()
	wg.Wait()
	logger.Println("exited")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
