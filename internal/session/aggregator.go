// Package session aggregates detection counts over one processing session.
package session

import (
	"math"
	"sync"
	"time"
)

// Aggregator tracks the start time and per-frame detection counts of a
// client's active session. State is cleared when a session starts, not when
// it stops, so the numbers of a finished session stay readable until the
// next start.
type Aggregator struct {
	mu     sync.Mutex
	active bool
	start  time.Time
	counts []int
}

// New creates an aggregator with no active session.
func New() *Aggregator {
	return &Aggregator{}
}

// Start begins a new session: records the start time and clears any counts
// from a previous session.
func (a *Aggregator) Start(now time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.active = true
	a.start = now
	a.counts = a.counts[:0]
}

// RecordCount appends one per-frame detection count. Calls outside an active
// session are ignored.
func (a *Aggregator) RecordCount(n int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.active {
		return
	}
	a.counts = append(a.counts, n)
}

// Active reports whether a session is currently running.
func (a *Aggregator) Active() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active
}

// Stop ends the session and returns its start time together with the mean
// detection count rounded to two decimal places, or 0 if nothing was
// recorded. Recorded state is kept until the next Start.
func (a *Aggregator) Stop() (time.Time, float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.active = false

	if len(a.counts) == 0 {
		return a.start, 0
	}
	sum := 0
	for _, n := range a.counts {
		sum += n
	}
	avg := float64(sum) / float64(len(a.counts))
	return a.start, math.Round(avg*100) / 100
}
