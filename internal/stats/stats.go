// Package stats implements the thread-safe counter map every processor
// and the orchestrator increment during a run, snapshotted into the
// final Report at the end.
package stats

import (
	"sync"
	"sync/atomic"
)

// Well-known counter names, including kind-specific ones such as
// fontlist_found. Counters are created on first increment.
const (
	ProcessedFiles   = "processed_files"
	DuplicateFiles   = "duplicate_files"
	AlreadyProcessed = "already_processed"
	ErrorFiles       = "error_files"
	IgnoredFiles     = "ignored_files"
	UnknownFiles     = "unknown_files"

	FontlistFound      = "fontlist_found"
	FontsDownloaded    = "fonts_downloaded"
	FontsSkippedLocal  = "fonts_skipped_local"
	DownloadFailures   = "download_failures"
	SegmentsDownloaded = "segments_downloaded"
	MergedVideos       = "merged_videos"
	MergeFailures      = "merge_failures"
	ProcessedVideos    = "processed_videos"
)

// Stats is a map of named counters. Each counter increments atomically,
// but every lookup of a counter by name, including an existing one, takes
// the map mutex briefly. Safe for concurrent use by multiple workers.
type Stats struct {
	mu       sync.Mutex
	counters map[string]*atomic.Int64
}

// New returns an empty Stats with all counters implicitly zero.
func New() *Stats {
	return &Stats{counters: make(map[string]*atomic.Int64)}
}

func (s *Stats) counter(name string) *atomic.Int64 {
	s.mu.Lock()
	c, ok := s.counters[name]
	if !ok {
		c = &atomic.Int64{}
		s.counters[name] = c
	}
	s.mu.Unlock()
	return c
}

// Incr adds delta to the named counter, creating it at zero if absent.
func (s *Stats) Incr(name string, delta int64) {
	s.counter(name).Add(delta)
}

// Inc increments the named counter by one.
func (s *Stats) Inc(name string) {
	s.counter(name).Add(1)
}

// Get returns the current value of the named counter (0 if never set).
func (s *Stats) Get(name string) int64 {
	s.mu.Lock()
	c, ok := s.counters[name]
	s.mu.Unlock()
	if !ok {
		return 0
	}
	return c.Load()
}

// Snapshot returns a copy of all counters at the moment of the call.
// Intermediate snapshots are advisory only per the engine's eventual
// consistency guarantee; the final one (taken after workers drain) is
// authoritative.
func (s *Stats) Snapshot() map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]int64, len(s.counters))
	for k, v := range s.counters {
		out[k] = v.Load()
	}
	return out
}

// Merge folds delta counters (e.g. from a process-pool worker) into s.
func (s *Stats) Merge(delta map[string]int64) {
	for k, v := range delta {
		s.counter(k).Add(v)
	}
}
