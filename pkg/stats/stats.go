// Package stats counts proxied requests per day and persists the counters to
// a JSON file, so they survive restarts.
package stats

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

const (
	flushIntervalDefault = 30 * time.Second
	fileName             = ".stats.json"
	dayLayout            = "2006-01-02"
)

// Outcome classifies a handled request.
type Outcome int

const (
	Proxied       Outcome = iota // Upstream answered, response relayed
	NotFound                     // No repository matched the path
	UpstreamError                // Upstream could not be contacted
)

// Entry holds the counters of one day.
type Entry struct {
	Requests      uint64            `json:"requests"`
	Proxied       uint64            `json:"proxied"`
	NotFound      uint64            `json:"not_found"`
	UpstreamError uint64            `json:"upstream_error"`
	Traffic       uint64            `json:"traffic"`
	Prefixes      map[string]uint64 `json:"prefixes,omitempty"`
}

type persisted struct {
	Version int              `json:"version"`
	Daily   map[string]Entry `json:"daily"`
}

// Day is one day of a snapshot.
type Day struct {
	Date time.Time `json:"date"`
	Entry
}

// Snapshot contains totals and the most recent days, newest first.
type Snapshot struct {
	Totals    Entry     `json:"totals"`
	Daily     []Day     `json:"daily"`
	OldestDay time.Time `json:"oldest_day"`
}

// Tracker collects statistics. It is safe for concurrent use.
type Tracker struct {
	Directory     string
	FlushInterval time.Duration

	mux      sync.RWMutex
	byDate   map[string]*Entry
	dirty    bool
	revision uint64

	stop     chan struct{}
	stopOnce sync.Once
	now      func() time.Time
}

// New creates a tracker persisting to directory and loads previously stored
// counters. An unreadable stats file is logged and ignored.
func New(directory string) *Tracker {
	t := &Tracker{
		Directory: directory,
		byDate:    make(map[string]*Entry),
		stop:      make(chan struct{}),
		now:       time.Now,
	}

	if err := t.load(); err != nil {
		log.Printf("[WARN:STATS] failed to load stats from %s: %v", t.filePath(), err)
	}

	return t
}

func (t *Tracker) filePath() string {
	return filepath.Join(t.Directory, fileName)
}

// Start runs the periodic flush loop until Stop is called.
func (t *Tracker) Start() {
	interval := t.FlushInterval
	if interval <= 0 {
		interval = flushIntervalDefault
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := t.Flush(); err != nil {
					log.Printf("[WARN:STATS] failed to persist stats: %v", err)
				}
			case <-t.stop:
				return
			}
		}
	}()
}

// Stop ends the flush loop and writes pending counters to disk.
func (t *Tracker) Stop() error {
	t.stopOnce.Do(func() { close(t.stop) })
	return t.Flush()
}

func (t *Tracker) load() error {
	data, err := os.ReadFile(t.filePath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var stored persisted
	if err := json.Unmarshal(data, &stored); err != nil {
		return err
	}

	loaded := make(map[string]*Entry, len(stored.Daily))
	for day, entry := range stored.Daily {
		if _, err := time.Parse(dayLayout, day); err != nil {
			continue
		}
		entryCopy := entry
		loaded[day] = &entryCopy
	}

	t.mux.Lock()
	t.byDate = loaded
	t.dirty = false
	t.revision = 0
	t.mux.Unlock()

	return nil
}

// Flush writes the counters to disk if they changed since the last flush.
func (t *Tracker) Flush() error {
	t.mux.RLock()
	if !t.dirty {
		t.mux.RUnlock()
		return nil
	}

	revision := t.revision
	daily := make(map[string]Entry, len(t.byDate))
	for day, entry := range t.byDate {
		daily[day] = entry.clone()
	}
	t.mux.RUnlock()

	data, err := json.Marshal(persisted{Version: 1, Daily: daily})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(t.Directory, 0o755); err != nil {
		return err
	}

	targetPath := t.filePath()
	tmpPath := targetPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, targetPath); err != nil {
		return err
	}

	t.mux.Lock()
	if t.revision == revision {
		t.dirty = false
	}
	t.mux.Unlock()

	return nil
}

// Track records one handled request. prefix is the matched repository prefix
// and may be empty.
func (t *Tracker) Track(outcome Outcome, prefix string, transferred int64) {
	t.mux.Lock()
	defer t.mux.Unlock()

	day := t.now().Format(dayLayout)
	entry, ok := t.byDate[day]
	if !ok {
		entry = &Entry{}
		t.byDate[day] = entry
	}

	entry.Requests++
	switch outcome {
	case Proxied:
		entry.Proxied++
	case NotFound:
		entry.NotFound++
	case UpstreamError:
		entry.UpstreamError++
	}
	if transferred > 0 {
		entry.Traffic += uint64(transferred)
	}
	if prefix != "" {
		if entry.Prefixes == nil {
			entry.Prefixes = make(map[string]uint64)
		}
		entry.Prefixes[prefix]++
	}

	t.dirty = true
	t.revision++
}

// Days returns a copy of all stored days keyed by date.
func (t *Tracker) Days() map[string]Entry {
	t.mux.RLock()
	defer t.mux.RUnlock()

	days := make(map[string]Entry, len(t.byDate))
	for day, entry := range t.byDate {
		days[day] = entry.clone()
	}
	return days
}

// Snapshot returns totals over all days and up to limit most recent days. A
// limit of zero or less returns all days.
func (t *Tracker) Snapshot(limit int) Snapshot {
	daily := t.Days()

	keys := make([]string, 0, len(daily))
	for day := range daily {
		keys = append(keys, day)
	}
	sort.Strings(keys)

	snapshot := Snapshot{
		Daily: make([]Day, 0),
	}

	for _, day := range keys {
		snapshot.Totals.add(daily[day])
	}

	if len(keys) > 0 {
		if oldest, err := time.Parse(dayLayout, keys[0]); err == nil {
			snapshot.OldestDay = oldest
		}
	} else {
		snapshot.OldestDay = t.now()
	}

	if limit <= 0 || limit > len(keys) {
		limit = len(keys)
	}

	for i := len(keys) - 1; i >= 0 && len(snapshot.Daily) < limit; i-- {
		parsedDay, err := time.Parse(dayLayout, keys[i])
		if err != nil {
			continue
		}
		snapshot.Daily = append(snapshot.Daily, Day{Date: parsedDay, Entry: daily[keys[i]]})
	}

	return snapshot
}

func (e Entry) clone() Entry {
	if e.Prefixes != nil {
		prefixes := make(map[string]uint64, len(e.Prefixes))
		for prefix, count := range e.Prefixes {
			prefixes[prefix] = count
		}
		e.Prefixes = prefixes
	}
	return e
}

func (e *Entry) add(other Entry) {
	e.Requests += other.Requests
	e.Proxied += other.Proxied
	e.NotFound += other.NotFound
	e.UpstreamError += other.UpstreamError
	e.Traffic += other.Traffic
	for prefix, count := range other.Prefixes {
		if e.Prefixes == nil {
			e.Prefixes = make(map[string]uint64)
		}
		e.Prefixes[prefix] += count
	}
}
