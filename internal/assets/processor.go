package assets

import (
	"rbxcache/internal/hashcache"
	"rbxcache/internal/history"
	"rbxcache/internal/stats"
)

// Outcome is the terminal state of one processed entry, matching the
// state machine in spec §4.4. Processors increment the caller's stats
// themselves; one entry can increment more than one counter (a merged
// video counts under both processed_videos and merged_videos).
type Outcome int

const (
	Processed Outcome = iota
	Duplicate
	AlreadyProcessed
	Errored
	IgnoredOutcome
	SkippedLocal
)

func (o Outcome) String() string {
	switch o {
	case Processed:
		return "Processed"
	case Duplicate:
		return "Duplicate"
	case AlreadyProcessed:
		return "AlreadyProcessed"
	case Errored:
		return "Errored"
	case IgnoredOutcome:
		return "Ignored"
	case SkippedLocal:
		return "SkippedLocal"
	default:
		return "Unknown"
	}
}

// Context bundles the shared, concurrency-safe collaborators every
// processor consults before writing: history, the ephemeral hash cache,
// and stats. OutputDir is the per-kind output root
// ({output_dir}/{Kind}).
type Context struct {
	OutputDir            string
	BlockAvatarImages    bool
	ClassificationMethod string

	History   *history.History
	HashCache *hashcache.Cache
	Stats     *stats.Stats
}
