package session

import (
	"testing"
	"time"
)

func TestAverageOfRecordedCounts(t *testing.T) {
	a := New()
	started := time.Now()
	a.Start(started)
	a.RecordCount(2)
	a.RecordCount(4)
	a.RecordCount(6)

	gotStart, avg := a.Stop()
	if !gotStart.Equal(started) {
		t.Fatalf("start = %v, want %v", gotStart, started)
	}
	if avg != 4.00 {
		t.Fatalf("average = %v, want 4.00", avg)
	}
}

func TestAverageRoundsToTwoDecimals(t *testing.T) {
	a := New()
	a.Start(time.Now())
	a.RecordCount(1)
	a.RecordCount(2)
	a.RecordCount(4)

	if _, avg := a.Stop(); avg != 2.33 {
		t.Fatalf("average = %v, want 2.33", avg)
	}
}

func TestEmptySessionAverageIsZero(t *testing.T) {
	a := New()
	a.Start(time.Now())

	if _, avg := a.Stop(); avg != 0 {
		t.Fatalf("average = %v, want 0", avg)
	}
}

func TestRecordCountIgnoredWhenInactive(t *testing.T) {
	a := New()
	a.RecordCount(7) // never started

	a.Start(time.Now())
	a.RecordCount(3)
	a.Stop()
	a.RecordCount(9) // after stop

	// Stop does not clear counts; a second Stop sees the same data.
	if _, avg := a.Stop(); avg != 3 {
		t.Fatalf("average = %v, want 3", avg)
	}
}

func TestStartClearsPreviousSession(t *testing.T) {
	a := New()
	a.Start(time.Now())
	a.RecordCount(10)
	a.Stop()

	a.Start(time.Now())
	a.RecordCount(2)

	if _, avg := a.Stop(); avg != 2 {
		t.Fatalf("average = %v, want 2 after restart", avg)
	}
}

func TestActive(t *testing.T) {
	a := New()
	if a.Active() {
		t.Fatal("fresh aggregator reports active")
	}
	a.Start(time.Now())
	if !a.Active() {
		t.Fatal("started aggregator reports inactive")
	}
	a.Stop()
	if a.Active() {
		t.Fatal("stopped aggregator reports active")
	}
}
