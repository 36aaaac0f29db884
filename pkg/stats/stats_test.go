package stats

import (
	"os"
	"sync"
	"testing"
	"time"
)

func newTestTracker(t *testing.T) *Tracker {
	t.Helper()
	return New(t.TempDir())
}

func TestTrackAndSnapshot(t *testing.T) {
	tracker := newTestTracker(t)

	tracker.Track(Proxied, "/ubuntu", 10)
	tracker.Track(Proxied, "/ubuntu", 20)
	tracker.Track(Proxied, "/debian", 5)
	tracker.Track(NotFound, "", 0)
	tracker.Track(UpstreamError, "/alpine", 0)

	snapshot := tracker.Snapshot(1)
	if snapshot.Totals.Requests != 5 {
		t.Fatalf("Requests = %d, want 5", snapshot.Totals.Requests)
	}
	if snapshot.Totals.Proxied != 3 {
		t.Fatalf("Proxied = %d, want 3", snapshot.Totals.Proxied)
	}
	if snapshot.Totals.NotFound != 1 {
		t.Fatalf("NotFound = %d, want 1", snapshot.Totals.NotFound)
	}
	if snapshot.Totals.UpstreamError != 1 {
		t.Fatalf("UpstreamError = %d, want 1", snapshot.Totals.UpstreamError)
	}
	if snapshot.Totals.Traffic != 35 {
		t.Fatalf("Traffic = %d, want 35", snapshot.Totals.Traffic)
	}
	if snapshot.Totals.Prefixes["/ubuntu"] != 2 {
		t.Fatalf("Prefixes[/ubuntu] = %d, want 2", snapshot.Totals.Prefixes["/ubuntu"])
	}
	if snapshot.Totals.Prefixes["/alpine"] != 1 {
		t.Fatalf("Prefixes[/alpine] = %d, want 1", snapshot.Totals.Prefixes["/alpine"])
	}
	if len(snapshot.Daily) != 1 {
		t.Fatalf("Daily len = %d, want 1", len(snapshot.Daily))
	}
}

func TestSnapshotOrdersDaysNewestFirst(t *testing.T) {
	tracker := newTestTracker(t)
	day := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		current := day.AddDate(0, 0, i)
		tracker.now = func() time.Time { return current }
		tracker.Track(Proxied, "/kali", int64(i+1))
	}

	snapshot := tracker.Snapshot(2)
	if len(snapshot.Daily) != 2 {
		t.Fatalf("Daily len = %d, want 2", len(snapshot.Daily))
	}
	if got := snapshot.Daily[0].Date.Format(dayLayout); got != "2024-03-03" {
		t.Fatalf("Daily[0] = %s, want 2024-03-03", got)
	}
	if got := snapshot.Daily[1].Date.Format(dayLayout); got != "2024-03-02" {
		t.Fatalf("Daily[1] = %s, want 2024-03-02", got)
	}
	if got := snapshot.OldestDay.Format(dayLayout); got != "2024-03-01" {
		t.Fatalf("OldestDay = %s, want 2024-03-01", got)
	}
	if snapshot.Totals.Requests != 3 || snapshot.Totals.Traffic != 6 {
		t.Fatalf("Totals = %+v, want 3 requests and 6 bytes", snapshot.Totals)
	}

	if all := tracker.Snapshot(0); len(all.Daily) != 3 {
		t.Fatalf("Snapshot(0) Daily len = %d, want 3", len(all.Daily))
	}
}

func TestFlushAndLoadFromDisk(t *testing.T) {
	tracker := newTestTracker(t)
	tracker.Track(Proxied, "/fedora", 12)

	if err := tracker.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if _, err := os.Stat(tracker.filePath()); err != nil {
		t.Fatalf("expected stats file to exist: %v", err)
	}

	loaded := New(tracker.Directory)
	snapshot := loaded.Snapshot(10)
	if snapshot.Totals.Requests != 1 {
		t.Fatalf("loaded Requests = %d, want 1", snapshot.Totals.Requests)
	}
	if snapshot.Totals.Traffic != 12 {
		t.Fatalf("loaded Traffic = %d, want 12", snapshot.Totals.Traffic)
	}
	if snapshot.Totals.Prefixes["/fedora"] != 1 {
		t.Fatalf("loaded Prefixes[/fedora] = %d, want 1", snapshot.Totals.Prefixes["/fedora"])
	}
}

func TestFlushWithoutChangesDoesNothing(t *testing.T) {
	tracker := newTestTracker(t)

	if err := tracker.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if _, err := os.Stat(tracker.filePath()); !os.IsNotExist(err) {
		t.Fatalf("expected no stats file, stat error = %v", err)
	}
}

func TestLoadIgnoresCorruptFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(dir+"/"+fileName, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	tracker := New(dir)
	if snapshot := tracker.Snapshot(0); snapshot.Totals.Requests != 0 {
		t.Fatalf("Requests = %d, want 0", snapshot.Totals.Requests)
	}
}

func TestStopFlushesAndIsIdempotent(t *testing.T) {
	tracker := newTestTracker(t)
	tracker.FlushInterval = time.Hour
	tracker.Start()
	tracker.Track(NotFound, "", 0)

	if err := tracker.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := tracker.Stop(); err != nil {
		t.Fatalf("second Stop() error = %v", err)
	}
	if _, err := os.Stat(tracker.filePath()); err != nil {
		t.Fatalf("expected stats file after Stop: %v", err)
	}
}

func TestDaysReturnsCopies(t *testing.T) {
	tracker := newTestTracker(t)
	tracker.Track(Proxied, "/epel", 1)

	for day, entry := range tracker.Days() {
		entry.Prefixes["/epel"] = 100
		if got := tracker.Days()[day].Prefixes["/epel"]; got != 1 {
			t.Fatalf("Prefixes[/epel] = %d after modifying copy, want 1", got)
		}
	}
}

func TestTrackConcurrent(t *testing.T) {
	tracker := newTestTracker(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.Track(Proxied, "/alpine", 1)
		}()
	}
	wg.Wait()

	if got := tracker.Snapshot(0).Totals.Requests; got != 50 {
		t.Fatalf("Requests = %d, want 50", got)
	}
}
